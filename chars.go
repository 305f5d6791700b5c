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
	"unicode"
)

// tabStopSize is the multiple of columns that a [tab] advances to.
//
// [tab]: https://spec.commonmark.org/0.31.2/#tabs
const tabStopSize = 4

func isSpaceOrTab(c byte) bool {
	return c == ' ' || c == '\t'
}

func isLineEnding(c byte) bool {
	return c == '\n' || c == '\r'
}

func isSpaceTabOrLineEnding(c byte) bool {
	return isSpaceOrTab(c) || isLineEnding(c)
}

func isASCIILetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHex(c byte) bool {
	return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' || isASCIIDigit(c)
}

// isASCIIPunctuation reports whether c is an [ASCII punctuation character].
//
// [ASCII punctuation character]: https://spec.commonmark.org/0.31.2/#ascii-punctuation-character
func isASCIIPunctuation(c byte) bool {
	return '!' <= c && c <= '/' ||
		':' <= c && c <= '@' ||
		'[' <= c && c <= '`' ||
		'{' <= c && c <= '~'
}

// isUnicodeWhitespace reports whether c is a [Unicode whitespace character].
//
// [Unicode whitespace character]: https://spec.commonmark.org/0.31.2/#unicode-whitespace-character
func isUnicodeWhitespace(c rune) bool {
	return c == '\t' || c == '\n' || c == '\f' || c == '\r' || unicode.Is(unicode.Zs, c)
}

// isUnicodePunctuation reports whether c is a [Unicode punctuation character].
//
// [Unicode punctuation character]: https://spec.commonmark.org/0.31.2/#unicode-punctuation-character
func isUnicodePunctuation(c rune) bool {
	if c < 0x80 {
		return isASCIIPunctuation(byte(c))
	}
	return unicode.In(c, unicode.P, unicode.S)
}

func isBlankLine(line string) bool {
	for i := 0; i < len(line); i++ {
		if !isSpaceTabOrLineEnding(line[i]) {
			return false
		}
	}
	return true
}

func hasCaseInsensitivePrefix(s string, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func caseInsensitiveContains(s string, search string) bool {
	for i := 0; i+len(search) <= len(s); i++ {
		if hasCaseInsensitivePrefix(s[i:], search) {
			return true
		}
	}
	return false
}

func toLowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}

// isEndEscaped reports whether s ends with an odd number of backslashes.
func isEndEscaped(s string) bool {
	n := 0
	for ; n < len(s); n++ {
		if s[len(s)-n-1] != '\\' {
			break
		}
	}
	return n%2 == 1
}
