// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const maxEntityNameLength = 32

// scanEntity parses an [entity or numeric character reference]
// starting at s[i], which must be '&'.
// It returns the decoded text and the index just past the semicolon,
// or -1 if s[i:] does not start with a valid reference.
//
// [entity or numeric character reference]: https://spec.commonmark.org/0.31.2/#entity-and-numeric-character-references
func scanEntity(s string, i int) (decoded string, end int) {
	if i+1 >= len(s) || s[i] != '&' {
		return "", -1
	}
	j := i + 1
	if s[j] == '#' {
		j++
		hex := j < len(s) && (s[j] == 'x' || s[j] == 'X')
		if hex {
			j++
		}
		digitsStart := j
		var c rune
		maxDigits, base := 7, rune(10)
		if hex {
			maxDigits, base = 6, 16
		}
		for j < len(s) && j-digitsStart <= maxDigits {
			d, ok := digitValue(s[j], hex)
			if !ok {
				break
			}
			c = c*base + d
			j++
		}
		n := j - digitsStart
		if n == 0 || n > maxDigits || j >= len(s) || s[j] != ';' {
			return "", -1
		}
		if c == 0 || !utf8.ValidRune(c) {
			c = utf8.RuneError
		}
		return string(c), j + 1
	}

	for j < len(s) && j-i-1 < maxEntityNameLength && (isASCIILetter(s[j]) || isASCIIDigit(s[j])) {
		j++
	}
	if j == i+1 || j >= len(s) || s[j] != ';' {
		return "", -1
	}
	ref := s[i : j+1]
	decoded = html.UnescapeString(ref)
	if decoded == ref || isPartialEntityDecode(decoded) {
		return "", -1
	}
	return decoded, j + 1
}

func digitValue(b byte, hex bool) (rune, bool) {
	switch {
	case isASCIIDigit(b):
		return rune(b - '0'), true
	case hex && 'a' <= b && b <= 'f':
		return rune(b-'a') + 10, true
	case hex && 'A' <= b && b <= 'F':
		return rune(b-'A') + 10, true
	default:
		return 0, false
	}
}

// isPartialEntityDecode reports whether [html.UnescapeString]
// only decoded a legacy prefix of an entity name
// (for example "&notit;" decodes to "¬it;").
func isPartialEntityDecode(decoded string) bool {
	n := len(decoded)
	return n >= 2 && decoded[n-1] == ';' && (isASCIILetter(decoded[n-2]) || isASCIIDigit(decoded[n-2]))
}

// unescapeString replaces backslash escapes and entity references in s
// with the characters they represent.
func unescapeString(s string) string {
	i := strings.IndexAny(s, `\&`)
	if i < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	sb.WriteString(s[:i])
	for i < len(s) {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s) && isASCIIPunctuation(s[i+1]):
			sb.WriteByte(s[i+1])
			i += 2
		case c == '&':
			if decoded, end := scanEntity(s, i); end >= 0 {
				sb.WriteString(decoded)
				i = end
			} else {
				sb.WriteByte('&')
				i++
			}
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}
