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
)

// DefaultInlineParsers returns the inline parsers for CommonMark
// in their default priority order.
func DefaultInlineParsers() []InlineParser {
	return []InlineParser{
		lineBreakParser{},
		escapeParser{},
		codeSpanParser{},
		delimiterRunParser{},
		linkOpenParser{},
		linkCloseParser{},
		autolinkParser{},
		inlineHTMLParser{},
		entityParser{},
	}
}

// escapeParser handles [backslash escapes]
// and backslash [hard line breaks].
//
// [backslash escapes]: https://spec.commonmark.org/0.31.2/#backslash-escapes
// [hard line breaks]: https://spec.commonmark.org/0.31.2/#hard-line-breaks
type escapeParser struct{}

func (escapeParser) Name() string { return EscapeParserName }

func (escapeParser) OpeningCharacters() []rune { return []rune{'\\'} }

func (escapeParser) Match(p *InlineProcessor) bool {
	switch c := p.PeekChar(1); {
	case c == '\n':
		p.Advance(2)
		skipLeadingSpace(p)
		p.Emit(p.doc.NewNode(HardLineBreakKind))
		return true
	case isASCIIPunctuation(c):
		start := p.Pos()
		p.Advance(2)
		text := p.doc.NewText(p.content[start+1:start+2], p.SourceSpan(start, start+2))
		p.Emit(text)
		return true
	default:
		return false
	}
}

// lineBreakParser turns line endings into soft or hard line breaks.
type lineBreakParser struct{}

func (lineBreakParser) Name() string { return LineBreakParserName }

func (lineBreakParser) OpeningCharacters() []rune { return []rune{'\n'} }

func (lineBreakParser) Match(p *InlineProcessor) bool {
	trimmed := p.TrimPendingSpaces()
	kind := SoftLineBreakKind
	if trimmed >= 2 {
		kind = HardLineBreakKind
	}
	start := p.Pos() - trimmed
	p.Advance(1)
	node := p.doc.NewNode(kind)
	node.SetSpan(p.SourceSpan(start, p.Pos()))
	skipLeadingSpace(p)
	p.Emit(node)
	return true
}

// skipLeadingSpace advances past the indentation at the start of a line.
func skipLeadingSpace(p *InlineProcessor) {
	for isSpaceOrTab(p.Char()) {
		p.Advance(1)
	}
}

// codeSpanParser handles [code spans].
//
// [code spans]: https://spec.commonmark.org/0.31.2/#code-spans
type codeSpanParser struct{}

func (codeSpanParser) Name() string { return CodeSpanParserName }

func (codeSpanParser) OpeningCharacters() []rune { return []rune{'`'} }

func (codeSpanParser) Match(p *InlineProcessor) bool {
	start := p.Pos()
	n := 0
	for p.PeekChar(n) == '`' {
		n++
	}
	contentStart := start + n
	closeStart := p.ticks.find(p.content, n, contentStart)
	if closeStart < 0 {
		// No matching run: the backticks are literal.
		p.SetPos(contentStart)
		return true
	}
	p.SetPos(closeStart + n)
	node := p.doc.NewNode(CodeSpanKind)
	node.SetText(normalizeCodeSpan(p.content[contentStart:closeStart]))
	node.SetDelimiter('`', n)
	p.Emit(node)
	return true
}

// normalizeCodeSpan converts line endings to spaces
// and strips a single space from both ends
// if the content is not entirely spaces.
func normalizeCodeSpan(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.Trim(s, " ") != "" {
		s = s[1 : len(s)-1]
	}
	return s
}

// backtickIndex records the backtick runs of a block's content
// so that finding a closing run takes amortized linear time.
type backtickIndex struct {
	built bool
	runs  map[int][]int // run length -> start offsets, ascending
	next  map[int]int   // run length -> index of first unconsumed run
}

// find returns the start of the first backtick run of exactly length n
// that begins at or after from, or -1.
func (idx *backtickIndex) find(s string, n, from int) int {
	if !idx.built {
		idx.built = true
		idx.runs = make(map[int][]int)
		idx.next = make(map[int]int)
		for i := 0; i < len(s); {
			if s[i] != '`' {
				i++
				continue
			}
			j := i
			for j < len(s) && s[j] == '`' {
				j++
			}
			idx.runs[j-i] = append(idx.runs[j-i], i)
			i = j
		}
	}
	list := idx.runs[n]
	i := idx.next[n]
	for i < len(list) && list[i] < from {
		i++
	}
	idx.next[n] = i
	if i >= len(list) {
		return -1
	}
	return list[i]
}

// autolinkParser handles [autolinks].
//
// [autolinks]: https://spec.commonmark.org/0.31.2/#autolinks
type autolinkParser struct{}

func (autolinkParser) Name() string { return AutolinkParserName }

func (autolinkParser) OpeningCharacters() []rune { return []rune{'<'} }

func (autolinkParser) Match(p *InlineProcessor) bool {
	start := p.Pos()
	var dest string
	end := scanURIAutolink(p.content, start)
	if end >= 0 {
		dest = p.content[start+1 : end-1]
	} else if end = scanEmailAutolink(p.content, start); end >= 0 {
		dest = "mailto:" + p.content[start+1:end-1]
	} else {
		return false
	}
	p.SetPos(end)
	node := p.doc.NewNode(AutolinkKind)
	node.SetText(p.content[start+1 : end-1])
	node.setLink(dest, "", false)
	p.Emit(node)
	return true
}

// scanURIAutolink parses an [URI autolink] starting at s[i].
// It returns the index just past the closing '>' or -1.
//
// [URI autolink]: https://spec.commonmark.org/0.31.2/#uri-autolink
func scanURIAutolink(s string, i int) (end int) {
	if i >= len(s) || s[i] != '<' {
		return -1
	}
	j := i + 1
	if j >= len(s) || !isASCIILetter(s[j]) {
		return -1
	}
	schemeStart := j
	for j < len(s) && (isASCIILetter(s[j]) || isASCIIDigit(s[j]) || s[j] == '+' || s[j] == '.' || s[j] == '-') {
		j++
	}
	if n := j - schemeStart; n < 2 || n > 32 || j >= len(s) || s[j] != ':' {
		return -1
	}
	for j++; j < len(s); j++ {
		switch c := s[j]; {
		case c == '>':
			return j + 1
		case c == '<' || c <= ' ' || c == 0x7f:
			return -1
		}
	}
	return -1
}

// scanEmailAutolink parses an [email autolink] starting at s[i].
// It returns the index just past the closing '>' or -1.
//
// [email autolink]: https://spec.commonmark.org/0.31.2/#email-autolink
func scanEmailAutolink(s string, i int) (end int) {
	if i >= len(s) || s[i] != '<' {
		return -1
	}
	j := i + 1
	localStart := j
	for j < len(s) && (isASCIILetter(s[j]) || isASCIIDigit(s[j]) || strings.IndexByte(".!#$%&'*+/=?^_`{|}~-", s[j]) >= 0) {
		j++
	}
	if j == localStart || j >= len(s) || s[j] != '@' {
		return -1
	}
	j++
	for {
		// Domain label: alphanumeric at both ends, up to 63 characters.
		labelStart := j
		for j < len(s) && (isASCIILetter(s[j]) || isASCIIDigit(s[j]) || s[j] == '-') {
			j++
		}
		n := j - labelStart
		if n == 0 || n > 63 || s[labelStart] == '-' || s[j-1] == '-' {
			return -1
		}
		if j >= len(s) {
			return -1
		}
		switch s[j] {
		case '>':
			return j + 1
		case '.':
			j++
		default:
			return -1
		}
	}
}

// inlineHTMLParser handles [raw HTML].
//
// [raw HTML]: https://spec.commonmark.org/0.31.2/#raw-html
type inlineHTMLParser struct{}

func (inlineHTMLParser) Name() string { return InlineHTMLParserName }

func (inlineHTMLParser) OpeningCharacters() []rune { return []rune{'<'} }

func (inlineHTMLParser) Match(p *InlineProcessor) bool {
	start := p.Pos()
	end := scanHTMLTag(p.content, start)
	if end < 0 {
		return false
	}
	p.SetPos(end)
	node := p.doc.NewNode(RawHTMLKind)
	node.SetText(p.content[start:end])
	p.Emit(node)
	return true
}

// entityParser handles [entity and numeric character references].
//
// [entity and numeric character references]: https://spec.commonmark.org/0.31.2/#entity-and-numeric-character-references
type entityParser struct{}

func (entityParser) Name() string { return EntityParserName }

func (entityParser) OpeningCharacters() []rune { return []rune{'&'} }

func (entityParser) Match(p *InlineProcessor) bool {
	start := p.Pos()
	decoded, end := scanEntity(p.content, start)
	if end < 0 {
		return false
	}
	p.SetPos(end)
	node := p.doc.NewNode(CharacterReferenceKind)
	node.SetText(decoded)
	node.attrs().info = p.content[start:end]
	p.Emit(node)
	return true
}
