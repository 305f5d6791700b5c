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

import "strings"

// Names of the built-in block parsers,
// for use with [ParserList] positioning methods.
const (
	DocumentParserName      = "document"
	ParagraphParserName     = "paragraph"
	BlockQuoteParserName    = "blockquote"
	ATXHeadingParserName    = "atxheading"
	FencedCodeParserName    = "fencedcode"
	HTMLBlockParserName     = "htmlblock"
	SetextHeadingParserName = "setextheading"
	ThematicBreakParserName = "thematicbreak"
	ListItemParserName      = "listitem"
	IndentedCodeParserName  = "indentedcode"
)

// DefaultBlockParsers returns the block parsers for CommonMark
// in their default priority order.
func DefaultBlockParsers() []BlockParser {
	return []BlockParser{
		blockQuoteParser{},
		atxHeadingParser{},
		fencedCodeParser{},
		htmlBlockParser{},
		setextHeadingParser{},
		thematicBreakParser{},
		listItemParser{},
		indentedCodeParser{},
	}
}

// paragraphParserIndex is the index of [paragraphParser]
// in a pipeline's block parsers.
const paragraphParserIndex = 1

// paragraphParser continues paragraphs.
// Paragraphs are opened by the block processor
// for any line that no other parser claims.
type paragraphParser struct{}

func (paragraphParser) Name() string { return ParagraphParserName }

func (paragraphParser) OpeningCharacters() []rune { return nil }

func (paragraphParser) TryOpen(*BlockProcessor) BlockState { return NoMatch }

func (paragraphParser) TryContinue(p *BlockProcessor, block Node) BlockState {
	if p.IsBlank() {
		return NoMatch
	}
	return Matched
}

func (paragraphParser) Close(p *BlockProcessor, block Node) {
	extractLinkReferenceDefinitions(p, block)
	if len(block.Lines()) > 0 {
		return
	}
	// The paragraph consisted entirely of definitions.
	heir := block.PrevSibling()
	if heir.IsNil() {
		heir = block.Parent()
	}
	for _, t := range block.Trivia() {
		heir.addTrivia(t)
	}
	block.unlink()
}

type blockQuoteParser struct{}

func (blockQuoteParser) Name() string { return BlockQuoteParserName }

func (blockQuoteParser) OpeningCharacters() []rune { return []rune{'>'} }

func (blockQuoteParser) TryOpen(p *BlockProcessor) BlockState {
	if !consumeBlockQuoteMarker(p) {
		return NoMatch
	}
	p.OpenBlock(BlockQuoteKind, p.NextNonspace())
	return Matched
}

func (blockQuoteParser) TryContinue(p *BlockProcessor, block Node) BlockState {
	if !consumeBlockQuoteMarker(p) {
		return NoMatch
	}
	return Matched
}

func (blockQuoteParser) Close(*BlockProcessor, Node) {}

// consumeBlockQuoteMarker advances past a [block quote marker].
//
// [block quote marker]: https://spec.commonmark.org/0.31.2/#block-quote-marker
func consumeBlockQuoteMarker(p *BlockProcessor) bool {
	if p.IsIndented() || p.PeekNonspace(0) != '>' {
		return false
	}
	p.AdvanceNextNonspace()
	p.AdvanceOffset(1, false)
	if isSpaceOrTab(p.CharAt(p.Offset())) {
		p.AdvanceOffset(1, true)
	}
	return true
}

type atxHeadingParser struct{}

func (atxHeadingParser) Name() string { return ATXHeadingParserName }

func (atxHeadingParser) OpeningCharacters() []rune { return []rune{'#'} }

func (atxHeadingParser) TryOpen(p *BlockProcessor) BlockState {
	if p.IsIndented() {
		return NoMatch
	}
	start := p.NextNonspace()
	h := parseATXHeading(p.Line().Text[start:p.lineEnd])
	if h.level == 0 {
		return NoMatch
	}
	p.AdvanceNextNonspace()
	heading := p.OpenBlock(ATXHeadingKind, start)
	heading.attrs().level = h.level
	heading.SetProcessInlines(true)
	p.AppendLine(heading, start+h.contentStart, start+h.contentEnd)
	p.AdvanceToEnd()
	return MatchedEntireLine
}

func (atxHeadingParser) TryContinue(*BlockProcessor, Node) BlockState { return NoMatch }

func (atxHeadingParser) Close(*BlockProcessor, Node) {}

type atxHeading struct {
	level        int // 1-6
	contentStart int
	contentEnd   int
}

// parseATXHeading attempts to parse the line as an [ATX heading].
// The level is zero if the line is not an ATX heading.
// parseATXHeading assumes that the caller has stripped any leading indentation
// and the line ending.
//
// [ATX heading]: https://spec.commonmark.org/0.31.2/#atx-headings
func parseATXHeading(line string) atxHeading {
	var h atxHeading
	for h.level < len(line) && line[h.level] == '#' {
		h.level++
	}
	if h.level == 0 || h.level > 6 {
		return atxHeading{}
	}
	i := h.level
	if i < len(line) && !isSpaceOrTab(line[i]) {
		return atxHeading{}
	}
	for i < len(line) && isSpaceOrTab(line[i]) {
		i++
	}
	h.contentStart = i

	end := len(line)
	for end > i && isSpaceOrTab(line[end-1]) {
		end--
	}
	// Strip an optional closing sequence,
	// which must be preceded by a space or tab unless it is the whole content.
	j := end
	for j > i && line[j-1] == '#' {
		j--
	}
	if j < end {
		switch {
		case j == i:
			end = i
		case isSpaceOrTab(line[j-1]):
			end = j
			for end > i && isSpaceOrTab(line[end-1]) {
				end--
			}
		}
	}
	h.contentEnd = end
	return h
}

type thematicBreakParser struct{}

func (thematicBreakParser) Name() string { return ThematicBreakParserName }

func (thematicBreakParser) OpeningCharacters() []rune { return []rune{'-', '_', '*'} }

func (thematicBreakParser) TryOpen(p *BlockProcessor) BlockState {
	if p.IsIndented() {
		return NoMatch
	}
	start := p.NextNonspace()
	if parseThematicBreak(p.Line().Text[start:p.lineEnd]) < 0 {
		return NoMatch
	}
	p.AdvanceNextNonspace()
	p.OpenBlock(ThematicBreakKind, start)
	p.AdvanceToEnd()
	return MatchedEntireLine
}

func (thematicBreakParser) TryContinue(*BlockProcessor, Node) BlockState { return NoMatch }

func (thematicBreakParser) Close(*BlockProcessor, Node) {}

// parseThematicBreak attempts to parse the line as a [thematic break].
// It returns the end of the thematic break characters
// or -1 if the line is not a thematic break.
// parseThematicBreak assumes that the caller has stripped any leading indentation.
//
// [thematic break]: https://spec.commonmark.org/0.31.2/#thematic-breaks
func parseThematicBreak(line string) (end int) {
	n := 0
	var want byte
	for i := 0; i < len(line); i++ {
		switch b := line[i]; b {
		case '-', '_', '*':
			if n == 0 {
				want = b
			} else if b != want {
				return -1
			}
			n++
			end = i + 1
		case ' ', '\t', '\r', '\n':
			// Ignore
		default:
			return -1
		}
	}
	if n < 3 {
		return -1
	}
	return end
}

type setextHeadingParser struct{}

func (setextHeadingParser) Name() string { return SetextHeadingParserName }

func (setextHeadingParser) OpeningCharacters() []rune { return []rune{'=', '-'} }

func (setextHeadingParser) TryOpen(p *BlockProcessor) BlockState {
	para := p.Container()
	if p.IsIndented() || para.Kind() != ParagraphKind {
		return NoMatch
	}
	level := parseSetextUnderline(p.Line().Text[p.NextNonspace():p.lineEnd])
	if level == 0 {
		return NoMatch
	}
	p.CloseUnmatchedBlocks()
	extractLinkReferenceDefinitions(p, para)
	if len(para.Lines()) == 0 {
		return NoMatch
	}
	para.setKind(SetextHeadingKind)
	para.attrs().level = level
	para.SetBreakable(false)
	para.SetAcceptsLines(false)
	para.rec().parser = int16(p.currentParser + 1)
	p.AdvanceToEnd()
	return MatchedEntireLine
}

func (setextHeadingParser) TryContinue(*BlockProcessor, Node) BlockState { return NoMatch }

func (setextHeadingParser) Close(*BlockProcessor, Node) {}

// parseSetextUnderline returns the heading level of a [setext heading underline]
// or zero if the line is not one.
//
// [setext heading underline]: https://spec.commonmark.org/0.31.2/#setext-heading-underline
func parseSetextUnderline(line string) int {
	if line == "" || (line[0] != '=' && line[0] != '-') {
		return 0
	}
	c := line[0]
	i := 1
	for i < len(line) && line[i] == c {
		i++
	}
	if !isBlankLine(line[i:]) {
		return 0
	}
	if c == '=' {
		return 1
	}
	return 2
}

type fencedCodeParser struct{}

func (fencedCodeParser) Name() string { return FencedCodeParserName }

func (fencedCodeParser) OpeningCharacters() []rune { return []rune{'`', '~'} }

func (fencedCodeParser) TryOpen(p *BlockProcessor) BlockState {
	if p.IsIndented() {
		return NoMatch
	}
	c := p.PeekNonspace(0)
	if c != '`' && c != '~' {
		return NoMatch
	}
	start := p.NextNonspace()
	src := p.Line().Text
	n := 0
	for start+n < p.lineEnd && src[start+n] == c {
		n++
	}
	if n < 3 {
		return NoMatch
	}
	infoStart := start + n
	if c == '`' && strings.IndexByte(src[infoStart:p.lineEnd], '`') >= 0 {
		return NoMatch
	}
	fenceIndent := p.Indent()
	p.AdvanceNextNonspace()
	block := p.OpenBlock(FencedCodeKind, start)
	block.SetAcceptsLines(true)
	a := block.attrs()
	a.char = c
	a.count = n
	a.indent = fenceIndent
	info := Slice{Text: src, Start: infoStart, End: p.lineEnd - 1}
	info.Trim()
	a.info = unescapeString(info.String())
	a.infoSpan = info.Span()
	p.AdvanceToEnd()
	return MatchedEntireLine
}

func (fencedCodeParser) TryContinue(p *BlockProcessor, block Node) BlockState {
	a := block.peekAttrs()
	if !p.IsIndented() && p.PeekNonspace(0) == a.char {
		src := p.Line().Text
		i := p.NextNonspace()
		n := 0
		for i+n < p.lineEnd && src[i+n] == a.char {
			n++
		}
		if n >= a.count && isBlankLine(src[i+n:p.lineEnd]) {
			p.AdvanceToEnd()
			p.CloseBlock(block)
			return MatchedEntireLine
		}
	}
	for i := a.indent; i > 0 && isSpaceOrTab(p.CharAt(p.Offset())); i-- {
		p.AdvanceOffset(1, true)
	}
	return Matched
}

func (fencedCodeParser) Close(*BlockProcessor, Node) {}

type indentedCodeParser struct{}

func (indentedCodeParser) Name() string { return IndentedCodeParserName }

func (indentedCodeParser) OpeningCharacters() []rune { return nil }

func (indentedCodeParser) TryOpen(p *BlockProcessor) BlockState {
	if !p.IsIndented() || p.IsBlank() {
		return NoMatch
	}
	if tip := p.Tip(); tip.IsBreakable() && tip.AcceptsLines() {
		// Indented code cannot interrupt a paragraph.
		return NoMatch
	}
	p.AdvanceOffset(codeBlockIndentLimit, true)
	block := p.OpenBlock(IndentedCodeKind, p.Offset())
	block.SetAcceptsLines(true)
	return MatchedEntireLine
}

func (indentedCodeParser) TryContinue(p *BlockProcessor, block Node) BlockState {
	switch {
	case p.IsIndented():
		p.AdvanceOffset(codeBlockIndentLimit, true)
	case p.IsBlank():
		p.AdvanceNextNonspace()
	default:
		return NoMatch
	}
	return Matched
}

func (indentedCodeParser) Close(p *BlockProcessor, block Node) {
	lines := block.Lines()
	n := len(lines)
	for n > 0 && lines[n-1].Slice.IsBlank() {
		n--
	}
	if n < len(lines) {
		block.moveLinesToTrivia(n, p.ctx.pipeline.trackTrivia)
	}
}

type htmlBlockParser struct{}

func (htmlBlockParser) Name() string { return HTMLBlockParserName }

func (htmlBlockParser) OpeningCharacters() []rune { return []rune{'<'} }

func (htmlBlockParser) TryOpen(p *BlockProcessor) BlockState {
	if p.IsIndented() || p.PeekNonspace(0) != '<' {
		return NoMatch
	}
	line := p.Line().Text[p.NextNonspace():p.lineEnd]
	inParagraph := p.Container().Kind() == ParagraphKind ||
		(!p.AllClosed() && !p.IsBlank() && p.Tip().Kind() == ParagraphKind)
	for i, cond := range htmlBlockConditions {
		if !cond.startCondition(line) || (inParagraph && !cond.canInterruptParagraph) {
			continue
		}
		block := p.OpenBlock(HTMLBlockKind, p.Offset())
		block.SetAcceptsLines(true)
		block.attrs().level = i + 1
		return MatchedEntireLine
	}
	return NoMatch
}

func (htmlBlockParser) TryContinue(p *BlockProcessor, block Node) BlockState {
	cond := htmlBlockConditions[block.HTMLBlockCondition()-1]
	if cond.endsAtBlankLine {
		if p.IsBlank() {
			return NoMatch
		}
		return Matched
	}
	// Conditions 1 through 5 end on the line that contains the end marker.
	if lines := block.Lines(); len(lines) > 0 && cond.endCondition(lines[len(lines)-1].Slice.String()) {
		return NoMatch
	}
	return Matched
}

func (htmlBlockParser) Close(*BlockProcessor, Node) {}

type listItemParser struct{}

func (listItemParser) Name() string { return ListItemParserName }

func (listItemParser) OpeningCharacters() []rune {
	return []rune{'-', '+', '*', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9'}
}

func (listItemParser) TryOpen(p *BlockProcessor) BlockState {
	container := p.Container()
	if p.IsIndented() && container.Kind() != ListKind {
		return NoMatch
	}
	data, ok := parseListMarker(p, container)
	if !ok {
		return NoMatch
	}
	p.CloseUnmatchedBlocks()
	if tip := p.Tip(); tip.Kind() != ListKind || !data.matches(tip) {
		list := p.OpenBlock(ListKind, p.NextNonspace())
		list.setFlag(flagTight, true)
		a := list.attrs()
		a.char = data.char
		a.level = data.start
	}
	item := p.OpenBlock(ListItemKind, p.NextNonspace())
	a := item.attrs()
	a.char = data.char
	a.level = data.start
	a.indent = data.markerOffset
	a.padding = data.padding
	return Matched
}

func (listItemParser) TryContinue(p *BlockProcessor, block Node) BlockState {
	switch block.Kind() {
	case ListKind:
		return Matched
	case ListItemKind:
		a := block.peekAttrs()
		switch {
		case p.IsBlank():
			if block.FirstChild().IsNil() {
				// A list item can begin with at most one blank line.
				return NoMatch
			}
			p.AdvanceNextNonspace()
		case p.Indent() >= a.indent+a.padding:
			p.AdvanceOffset(a.indent+a.padding, true)
		default:
			return NoMatch
		}
		return Matched
	default:
		return NoMatch
	}
}

func (listItemParser) Close(p *BlockProcessor, block Node) {
	if block.Kind() != ListKind {
		return
	}
	block.setFlag(flagTight, isTightList(block))
}

// isTightList reports whether none of a list's items
// are separated by blank lines
// and no item directly contains two block-level elements with a blank line between them.
func isTightList(list Node) bool {
	for item := list.FirstChild(); !item.IsNil(); item = item.NextSibling() {
		hasNext := !item.NextSibling().IsNil()
		if hasNext && endsWithBlankLine(item) {
			return false
		}
		for sub := item.FirstChild(); !sub.IsNil(); sub = sub.NextSibling() {
			if endsWithBlankLine(sub) && (hasNext || !sub.NextSibling().IsNil()) {
				return false
			}
		}
	}
	return true
}

func endsWithBlankLine(block Node) bool {
	for !block.IsNil() {
		if block.hasFlag(flagLastLineBlank) {
			return true
		}
		if k := block.Kind(); k != ListKind && k != ListItemKind {
			return false
		}
		block = block.LastChild()
	}
	return false
}

type listData struct {
	char         byte // bullet character or ordinal delimiter
	start        int
	markerOffset int
	padding      int
}

func (data listData) isOrdered() bool {
	return data.char == '.' || data.char == ')'
}

// matches reports whether an item with this marker
// can be added to the given list.
func (data listData) matches(list Node) bool {
	return list.ListMarker() == data.char
}

// parseListMarker parses a [list marker] at the cursor
// and advances past it and the spaces that follow.
//
// [list marker]: https://spec.commonmark.org/0.31.2/#list-marker
func parseListMarker(p *BlockProcessor, container Node) (listData, bool) {
	if p.IsIndented() {
		return listData{}, false
	}
	src := p.Line().Text
	rest := src[p.NextNonspace():p.lineEnd]
	if rest == "" {
		return listData{}, false
	}
	data := listData{markerOffset: p.Indent()}
	var markerLength int
	switch c := rest[0]; {
	case c == '-' || c == '+' || c == '*':
		data.char = c
		markerLength = 1
	case isASCIIDigit(c):
		n := 0
		for n < len(rest) && n < 10 && isASCIIDigit(rest[n]) {
			data.start = data.start*10 + int(rest[n]-'0')
			n++
		}
		if n > 9 || n >= len(rest) || (rest[n] != '.' && rest[n] != ')') {
			return listData{}, false
		}
		if container.Kind() == ParagraphKind && data.start != 1 {
			// Only lists starting with 1 can interrupt a paragraph.
			return listData{}, false
		}
		data.char = rest[n]
		markerLength = n + 1
	default:
		return listData{}, false
	}
	if markerLength < len(rest) && !isSpaceOrTab(rest[markerLength]) {
		return listData{}, false
	}
	if container.Kind() == ParagraphKind && isBlankLine(rest[markerLength:]) {
		// An empty list item cannot interrupt a paragraph.
		return listData{}, false
	}

	p.AdvanceNextNonspace()
	p.AdvanceOffset(markerLength, true)
	spacesStart := p.saveCursor()
	for {
		p.AdvanceOffset(1, true)
		if p.Column()-spacesStart.column >= 5 || !isSpaceOrTab(p.CharAt(p.Offset())) {
			break
		}
	}
	blankItem := p.Offset() >= p.lineEnd
	spacesAfterMarker := p.Column() - spacesStart.column
	if spacesAfterMarker >= 5 || spacesAfterMarker < 1 || blankItem {
		data.padding = markerLength + 1
		p.offset = spacesStart.offset
		p.column = spacesStart.column
		p.partiallyConsumedTab = spacesStart.partiallyConsumedTab
		if isSpaceOrTab(p.CharAt(p.Offset())) {
			p.AdvanceOffset(1, true)
		}
	} else {
		data.padding = markerLength + spacesAfterMarker
	}
	return data, true
}
