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

import "unicode/utf8"

// maxLinkLabelLength is the maximum number of characters
// between the brackets of a [link label].
//
// [link label]: https://spec.commonmark.org/0.31.2/#link-label
const maxLinkLabelLength = 999

// scanLinkLabel parses a [link label] starting at s[i], which must be '['.
// It returns the index just past the closing ']' or -1.
// The caller is responsible for checking that the label
// contains a non-whitespace character.
//
// [link label]: https://spec.commonmark.org/0.31.2/#link-label
func scanLinkLabel(s string, i int) (end int) {
	if i >= len(s) || s[i] != '[' {
		return -1
	}
	n := 0
	for j := i + 1; j < len(s); {
		if n > maxLinkLabelLength {
			return -1
		}
		switch c := s[j]; c {
		case '[':
			return -1
		case ']':
			return j + 1
		case '\\':
			if j+1 < len(s) && isASCIIPunctuation(s[j+1]) {
				j += 2
				n += 2
				continue
			}
			j++
			n++
		default:
			_, size := utf8.DecodeRuneInString(s[j:])
			j += size
			n++
		}
	}
	return -1
}

// maxLinkDestinationDepth is the deepest nesting of unescaped parentheses
// accepted in a link destination.
// Without a limit, each failed "](" rescans the rest of the block.
const maxLinkDestinationDepth = 32

// scanLinkDestination parses a [link destination] starting at s[i].
// It returns the unescaped destination and the index just past it.
// An empty destination is only accepted in its angle-bracketed form.
//
// [link destination]: https://spec.commonmark.org/0.31.2/#link-destination
func scanLinkDestination(s string, i int) (dest string, end int, ok bool) {
	if i >= len(s) {
		return "", -1, false
	}
	if s[i] == '<' {
		for j := i + 1; j < len(s); j++ {
			switch s[j] {
			case '>':
				return unescapeString(s[i+1 : j]), j + 1, true
			case '<', '\n', '\r':
				return "", -1, false
			case '\\':
				if j+1 < len(s) && isASCIIPunctuation(s[j+1]) {
					j++
				}
			}
		}
		return "", -1, false
	}

	depth := 0
	j := i
loop:
	for j < len(s) {
		switch c := s[j]; {
		case c == '\\' && j+1 < len(s) && isASCIIPunctuation(s[j+1]):
			j += 2
			continue
		case c == '(':
			depth++
			if depth > maxLinkDestinationDepth {
				return "", -1, false
			}
		case c == ')':
			if depth == 0 {
				break loop
			}
			depth--
		case c <= ' ' || c == 0x7f:
			break loop
		}
		j++
	}
	if j == i || depth != 0 {
		return "", -1, false
	}
	return unescapeString(s[i:j]), j, true
}

// scanLinkTitle parses a [link title] starting at s[i].
// It returns the unescaped title and the index just past the closing delimiter.
//
// [link title]: https://spec.commonmark.org/0.31.2/#link-title
func scanLinkTitle(s string, i int) (title string, end int, ok bool) {
	if i >= len(s) {
		return "", -1, false
	}
	var closer byte
	switch s[i] {
	case '"':
		closer = '"'
	case '\'':
		closer = '\''
	case '(':
		closer = ')'
	default:
		return "", -1, false
	}
	for j := i + 1; j < len(s); j++ {
		switch c := s[j]; {
		case c == closer:
			return unescapeString(s[i+1 : j]), j + 1, true
		case c == '(' && closer == ')':
			return "", -1, false
		case c == '\\' && j+1 < len(s) && isASCIIPunctuation(s[j+1]):
			j++
		case c == '\n' && j+1 < len(s) && isBlankLine(nextLine(s, j+1)):
			// Titles cannot contain a blank line.
			return "", -1, false
		}
	}
	return "", -1, false
}

func nextLine(s string, i int) string {
	for j := i; j < len(s); j++ {
		if s[j] == '\n' {
			return s[i:j]
		}
	}
	return s[i:]
}

// skipSpaceNewline skips spaces and tabs,
// at most one line ending, and then more spaces and tabs.
func skipSpaceNewline(s string, i int) int {
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '\n' {
		i++
		for i < len(s) && isSpaceOrTab(s[i]) {
			i++
		}
	}
	return i
}

// bracket is an entry in the bracket stack:
// a '[' or "![" that may begin a link or image.
type bracket struct {
	node  Node
	prev  *bracket
	delim *delimiter // top of delimiter stack when the bracket was pushed
	// index is the content offset just past the opening bracket.
	index        int
	start        int
	image        bool
	active       bool
	bracketAfter bool
}

// Names of the built-in inline parsers,
// for use with [ParserList] positioning methods.
const (
	EscapeParserName     = "escape"
	LineBreakParserName  = "linebreak"
	CodeSpanParserName   = "codespan"
	LinkOpenParserName   = "linkopen"
	LinkCloseParserName  = "linkclose"
	AutolinkParserName   = "autolink"
	EntityParserName     = "entity"
	InlineHTMLParserName = "html"
)

// linkOpenParser handles '[' and "![".
type linkOpenParser struct{}

func (linkOpenParser) Name() string { return LinkOpenParserName }

func (linkOpenParser) OpeningCharacters() []rune { return []rune{'[', '!'} }

func (linkOpenParser) Match(p *InlineProcessor) bool {
	start := p.Pos()
	image := p.Char() == '!'
	n := 1
	if image {
		if p.PeekChar(1) != '[' {
			return false
		}
		n = 2
	}
	if p.bracketDepth >= p.ctx.pipeline.maxNestingDepth {
		return false
	}
	p.Advance(n)
	node := p.doc.NewText(p.content[start:p.Pos()], p.SourceSpan(start, p.Pos()))
	p.Emit(node)
	if p.brackets != nil {
		p.brackets.bracketAfter = true
	}
	p.brackets = &bracket{
		node:   node,
		prev:   p.brackets,
		delim:  p.delims,
		index:  p.Pos(),
		start:  start,
		image:  image,
		active: true,
	}
	p.bracketDepth++
	return true
}

func (p *InlineProcessor) popBracket() {
	p.brackets = p.brackets.prev
	p.bracketDepth--
}

// linkCloseParser handles ']',
// converting the text since the matching opener into a link or image.
type linkCloseParser struct{}

func (linkCloseParser) Name() string { return LinkCloseParserName }

func (linkCloseParser) OpeningCharacters() []rune { return []rune{']'} }

func (linkCloseParser) Match(p *InlineProcessor) bool {
	opener := p.brackets
	if opener == nil {
		return false
	}
	if !opener.active {
		p.popBracket()
		return false
	}
	closeBracket := p.Pos()
	p.Advance(1)
	afterBracket := p.Pos()

	var dest, title, label string
	var titlePresent bool
	refType := InlineLink
	matched := false
	if p.Char() == '(' {
		dest, title, titlePresent, matched = p.scanInlineLink()
	}
	if !matched {
		p.SetPos(afterBracket)
		var raw string
		labelEnd := scanLinkLabel(p.content, afterBracket)
		switch {
		case labelEnd > afterBracket+2:
			raw = p.content[afterBracket+1 : labelEnd-1]
			refType = FullReference
		case !opener.bracketAfter:
			raw = p.content[opener.index:closeBracket]
			refType = ShortcutReference
			if labelEnd == afterBracket+2 {
				refType = CollapsedReference
			}
		}
		if refType == ShortcutReference || labelEnd < 0 {
			labelEnd = afterBracket
		}
		if raw != "" && utf8.RuneCountInString(raw) <= maxLinkLabelLength {
			if def, ok := p.doc.refs.Lookup(raw); ok {
				dest = def.Destination
				title = def.Title
				titlePresent = def.TitlePresent
				label = raw
				matched = true
				p.SetPos(labelEnd)
			}
		}
	}
	if !matched {
		p.popBracket()
		p.SetPos(closeBracket)
		return false
	}

	// Text before the closing bracket belongs inside the link.
	p.flush()

	kind := LinkKind
	if opener.image {
		kind = ImageKind
	}
	link := p.doc.NewNode(kind)
	link.setLink(dest, title, titlePresent)
	a := link.attrs()
	a.label = label
	a.refType = refType
	for n := opener.node.NextSibling(); !n.IsNil(); {
		next := n.NextSibling()
		n.unlink()
		link.link(n, link.rec().lastChild, 0)
		n = next
	}
	opener.node.insertAfter(link)
	link.SetSpan(p.SourceSpan(opener.start, p.Pos()))

	p.processEmphasis(opener.delim)
	p.popBracket()
	opener.node.unlink()

	if !opener.image {
		// Links may not contain other links.
		for b := p.brackets; b != nil; b = b.prev {
			if !b.image {
				b.active = false
			}
		}
	}
	p.consumed()
	return true
}

// scanInlineLink parses the parenthesized part of an [inline link]
// at the cursor, leaving the cursor after the closing parenthesis on success.
//
// [inline link]: https://spec.commonmark.org/0.31.2/#inline-link
func (p *InlineProcessor) scanInlineLink() (dest, title string, titlePresent, ok bool) {
	s := p.content
	i := skipSpaceNewline(s, p.Pos()+1)
	if i < len(s) && s[i] != ')' {
		var end int
		dest, end, ok = scanLinkDestination(s, i)
		if !ok {
			return "", "", false, false
		}
		i = end
	}
	if j := skipSpaceNewline(s, i); j > i && j < len(s) && s[j] != ')' {
		var end int
		title, end, titlePresent = scanLinkTitle(s, j)
		if !titlePresent {
			return "", "", false, false
		}
		i = end
	}
	i = skipSpaceNewline(s, i)
	if i >= len(s) || s[i] != ')' {
		return "", "", false, false
	}
	p.SetPos(i + 1)
	return dest, title, titlePresent, true
}
