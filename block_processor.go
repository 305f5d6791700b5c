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
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"zombiezen.com/go/markdown/internal/logging"
)

// BlockState is the result of a [BlockParser]'s attempt
// to open or continue a block.
type BlockState int8

const (
	// NoMatch indicates that the parser did not recognize the line.
	// Any cursor movement made by the parser is undone.
	NoMatch BlockState = iota
	// Matched indicates that the parser consumed a prefix of the line
	// (such as a container marker)
	// and that the rest of the line should be offered to other parsers.
	Matched
	// MatchedEntireLine indicates that the parser has finished
	// looking for blocks on this line.
	// From TryOpen, the remainder of the line (if any)
	// is added to the new block when it accepts lines.
	// From TryContinue, the line is considered fully handled.
	MatchedEntireLine
)

// String returns the name of the state.
func (state BlockState) String() string {
	switch state {
	case NoMatch:
		return "NoMatch"
	case Matched:
		return "Matched"
	case MatchedEntireLine:
		return "MatchedEntireLine"
	default:
		return "BlockState(?)"
	}
}

// A BlockParser recognizes one or more kinds of blocks.
//
// OpeningCharacters returns the characters that can begin the block
// (after any indentation).
// Parsers that return no characters are offered every line.
// When more than one parser can open a block on the same line,
// the parser registered first wins.
//
// TryOpen is called during the new-block phase
// with the cursor at the current position.
// A parser that recognizes a block start opens it with [BlockProcessor.OpenBlock].
//
// TryContinue is called for each open block the parser created,
// from the document root downward,
// to determine whether the current line continues the block.
//
// Close is called once the block is closed
// and can no longer receive lines.
type BlockParser interface {
	Name() string
	OpeningCharacters() []rune
	TryOpen(p *BlockProcessor) BlockState
	TryContinue(p *BlockProcessor, block Node) BlockState
	Close(p *BlockProcessor, block Node)
}

// codeBlockIndentLimit is the column width of an indent
// required to start an indented code block.
const codeBlockIndentLimit = 4

// BlockProcessor is a cursor on a line of text,
// used while splitting a document into blocks.
// A BlockProcessor is created for each parse
// and passed to the [BlockParser] methods.
type BlockProcessor struct {
	ctx *parseContext
	doc *Document

	// Current line. Offsets are relative to the start of the document.
	lineStart  int
	lineEnd    int // exclusive, before line ending
	newline    Newline
	lineNumber int

	offset               int
	column               int
	partiallyConsumedTab bool
	nextNonspace         int
	nextNonspaceColumn   int
	indent               int
	blank                bool

	tip                  Node
	oldTip               Node
	lastMatchedContainer Node
	container            Node
	allClosed            bool
	lastOpened           Node
	currentParser        int

	triviaPos  int
	lineOwner  Node
	candidates []int
}

func newBlockProcessor(ctx *parseContext) *BlockProcessor {
	p := &BlockProcessor{
		ctx: ctx,
		doc: ctx.doc,
	}
	root := p.doc.Root()
	root.setFlag(flagOpen, true)
	root.rec().parser = 1
	p.tip = root
	p.oldTip = root
	p.lastMatchedContainer = root
	p.allClosed = true
	return p
}

// Document returns the document being built.
func (p *BlockProcessor) Document() *Document {
	return p.doc
}

// Logger returns the pipeline's logger or nil.
func (p *BlockProcessor) Logger() *log.Logger {
	return p.ctx.logger
}

// LineNumber returns the 1-based number of the current line.
func (p *BlockProcessor) LineNumber() int {
	return p.lineNumber
}

// Line returns the current line, not including its line ending.
func (p *BlockProcessor) Line() Slice {
	return Slice{Text: p.doc.source, Start: p.lineStart, End: p.lineEnd - 1}
}

// Remaining returns the part of the current line after the cursor.
func (p *BlockProcessor) Remaining() Slice {
	return Slice{Text: p.doc.source, Start: p.offset, End: p.lineEnd - 1}
}

// Offset returns the cursor's byte offset in the document source.
func (p *BlockProcessor) Offset() int {
	return p.offset
}

// Column returns the cursor's 0-based column, with tabs expanded.
func (p *BlockProcessor) Column() int {
	return p.column
}

// NextNonspace returns the offset of the first non-space, non-tab character
// at or after the cursor.
func (p *BlockProcessor) NextNonspace() int {
	return p.nextNonspace
}

// NextNonspaceColumn returns the column of [BlockProcessor.NextNonspace].
func (p *BlockProcessor) NextNonspaceColumn() int {
	return p.nextNonspaceColumn
}

// Indent returns the number of columns of whitespace
// between the cursor and the next non-space character.
func (p *BlockProcessor) Indent() int {
	return p.indent
}

// IsIndented reports whether the indent is large enough
// to start an indented code block.
func (p *BlockProcessor) IsIndented() bool {
	return p.indent >= codeBlockIndentLimit
}

// IsBlank reports whether the rest of the line contains only spaces and tabs.
func (p *BlockProcessor) IsBlank() bool {
	return p.blank
}

// PartiallyConsumedTab reports whether the cursor is in the middle of a tab.
func (p *BlockProcessor) PartiallyConsumedTab() bool {
	return p.partiallyConsumedTab
}

// CharAt returns the byte at the given document offset
// or zero if the offset is outside the current line.
func (p *BlockProcessor) CharAt(offset int) byte {
	if offset < p.lineStart || offset >= p.lineEnd {
		return 0
	}
	return p.doc.source[offset]
}

// PeekNonspace returns the byte i bytes after [BlockProcessor.NextNonspace]
// or zero if that is past the end of the line.
func (p *BlockProcessor) PeekNonspace(i int) byte {
	return p.CharAt(p.nextNonspace + i)
}

// AdvanceOffset moves the cursor forward by count bytes,
// or by count columns if columns is true.
// When advancing by columns, a tab may be partially consumed.
func (p *BlockProcessor) AdvanceOffset(count int, columns bool) {
	src := p.doc.source
	for count > 0 && p.offset < p.lineEnd {
		if src[p.offset] == '\t' {
			charsToTab := tabStopSize - (p.column % tabStopSize)
			if columns {
				p.partiallyConsumedTab = charsToTab > count
				charsToAdvance := min(charsToTab, count)
				p.column += charsToAdvance
				if !p.partiallyConsumedTab {
					p.offset++
				}
				count -= charsToAdvance
			} else {
				p.partiallyConsumedTab = false
				p.column += charsToTab
				p.offset++
				count--
			}
			continue
		}
		p.partiallyConsumedTab = false
		p.offset++
		p.column++
		count--
	}
}

// AdvanceNextNonspace moves the cursor to [BlockProcessor.NextNonspace].
func (p *BlockProcessor) AdvanceNextNonspace() {
	p.offset = p.nextNonspace
	p.column = p.nextNonspaceColumn
	p.partiallyConsumedTab = false
}

// AdvanceToEnd moves the cursor to the end of the line.
func (p *BlockProcessor) AdvanceToEnd() {
	p.AdvanceOffset(p.lineEnd-p.offset, false)
}

func (p *BlockProcessor) findNextNonspace() {
	src := p.doc.source
	i := p.offset
	cols := p.column
	for i < p.lineEnd {
		c := src[i]
		if c == ' ' {
			i++
			cols++
		} else if c == '\t' {
			i++
			cols += tabStopSize - (cols % tabStopSize)
		} else {
			break
		}
	}
	p.blank = i >= p.lineEnd
	p.nextNonspace = i
	p.nextNonspaceColumn = cols
	p.indent = cols - p.column
}

type cursorState struct {
	offset               int
	column               int
	partiallyConsumedTab bool
}

func (p *BlockProcessor) saveCursor() cursorState {
	return cursorState{p.offset, p.column, p.partiallyConsumedTab}
}

func (p *BlockProcessor) restoreCursor(s cursorState) {
	p.offset = s.offset
	p.column = s.column
	p.partiallyConsumedTab = s.partiallyConsumedTab
	p.findNextNonspace()
}

// Container returns the block that new blocks will be added to:
// during the continue phase, the block being continued;
// during the new-block phase, the deepest block matched or opened so far.
func (p *BlockProcessor) Container() Node {
	return p.container
}

// Tip returns the deepest open block.
func (p *BlockProcessor) Tip() Node {
	return p.tip
}

// AllClosed reports whether every open block unmatched on this line
// has been closed.
// A paragraph that is still the tip while AllClosed is false
// is receiving a lazy continuation line.
func (p *BlockProcessor) AllClosed() bool {
	return p.allClosed
}

// CloseUnmatchedBlocks closes the open blocks
// that were not continued by the current line.
func (p *BlockProcessor) CloseUnmatchedBlocks() {
	if p.allClosed {
		return
	}
	for p.oldTip != p.lastMatchedContainer && !p.oldTip.IsNil() {
		parent := p.oldTip.Parent()
		p.finalize(p.oldTip)
		p.oldTip = parent
	}
	p.allClosed = true
}

// OpenBlock adds a new open block of the given kind
// as the last child of the current container,
// closing unmatched blocks and any blocks that cannot contain the new kind.
// The block's span starts at the given document offset.
// OpenBlock must only be called from [BlockParser.TryOpen].
func (p *BlockProcessor) OpenBlock(kind Kind, start int) Node {
	p.CloseUnmatchedBlocks()
	for !p.tip.Kind().canContain(kind) && p.tip != p.doc.Root() {
		p.finalize(p.tip)
	}
	n := p.doc.NewNode(kind)
	r := n.rec()
	r.flags |= flagOpen
	r.parser = int16(p.currentParser + 1)
	r.span = Span{Start: start, End: start - 1}
	p.tip.link(n, p.tip.rec().lastChild, 0)
	p.tip = n
	p.container = n
	p.lastOpened = n
	if logger := p.ctx.logger; logger != nil {
		logger.Debug("open block", logging.FieldKind, kind, logging.FieldLine, p.lineNumber, logging.FieldParser, p.parserFor(n).Name())
	}
	return n
}

// CloseBlock closes block and any of its open descendants.
// The block's parent becomes the tip.
func (p *BlockProcessor) CloseBlock(block Node) error {
	if !block.IsOpen() {
		return errors.Wrapf(ErrNotOpen, "close %v", block.Kind())
	}
	if block == p.doc.Root() {
		return errors.Wrap(ErrDiscardRoot, "close document before end of input")
	}
	for p.tip != block {
		p.finalize(p.tip)
	}
	p.finalize(block)
	if p.lastMatchedContainer.IsNil() || !p.lastMatchedContainer.IsOpen() {
		p.lastMatchedContainer = p.tip
	}
	if !p.oldTip.IsOpen() {
		p.oldTip = p.tip
	}
	return nil
}

// Discard removes an open block from the tree,
// along with its descendants.
// It is used by parsers that open a block and then decide it was not needed.
func (p *BlockProcessor) Discard(block Node) error {
	if block.IsNil() {
		return errors.Wrap(ErrNilNode, "discard")
	}
	if block == p.doc.Root() {
		return errors.WithStack(ErrDiscardRoot)
	}
	if !block.IsOpen() {
		return errors.Wrapf(ErrNotOpen, "discard %v", block.Kind())
	}
	parent := block.Parent()
	if p.ctx.pipeline.trackTrivia {
		// Keep the source text consumed by the block attributed somewhere.
		moved := collectTrivia(nil, block)
		for d := range block.Descendants() {
			moved = collectTrivia(moved, d)
		}
		for _, t := range moved {
			parent.addTrivia(t)
		}
	}
	for n := block; !n.IsNil(); n = n.LastChild() {
		n.setFlag(flagOpen, false)
	}
	block.unlink()
	if p.ctx.logger != nil {
		p.ctx.logger.Debug("discard block", logging.FieldKind, block.Kind(), logging.FieldLine, p.lineNumber)
	}
	fix := func(n Node) Node {
		for a := n; !a.IsNil(); a = a.Parent() {
			if a == block {
				return parent
			}
		}
		return n
	}
	p.tip = fix(p.tip)
	p.oldTip = fix(p.oldTip)
	p.lastMatchedContainer = fix(p.lastMatchedContainer)
	p.container = fix(p.container)
	if p.lineOwner == block {
		p.lineOwner = parent
	}
	return nil
}

// AppendLine adds the source range [start, end) of the current line
// to a leaf block's lines.
// Bytes of the line skipped before start are recorded as trivia of the block.
func (p *BlockProcessor) AppendLine(block Node, start, end int) {
	line := Line{
		Slice:    Slice{Text: p.doc.source, Start: start, End: end - 1},
		RawStart: start,
		Column:   p.columnAt(start),
		Number:   p.lineNumber,
	}
	p.appendLine(block, line)
}

func (p *BlockProcessor) appendLine(block Node, line Line) {
	p.attribute(block, line.RawStart)
	lineEnd := line.Slice.End + 1
	if lineEnd == p.lineEnd {
		line.Newline = p.newline
		p.triviaPos = max(p.triviaPos, p.lineEnd+p.newline.Len())
	} else {
		p.triviaPos = max(p.triviaPos, lineEnd)
	}
	r := block.rec()
	r.lines = append(r.lines, line)
	if line.Slice.End >= line.RawStart {
		block.ExtendSpan(line.Slice.End)
	}
	p.lineOwner = block
}

// addLine adds the rest of the line to a leaf block,
// expanding a partially consumed tab into padding.
func (p *BlockProcessor) addLine(block Node) {
	line := Line{
		RawStart: p.offset,
		Column:   p.column,
		Number:   p.lineNumber,
	}
	start := p.offset
	if p.partiallyConsumedTab {
		start++
		line.Padding = tabStopSize - (p.column % tabStopSize)
	}
	line.Slice = Slice{Text: p.doc.source, Start: start, End: p.lineEnd - 1}
	p.appendLine(block, line)
}

// columnAt computes the column of a document offset on the current line.
func (p *BlockProcessor) columnAt(offset int) int {
	col := 0
	for i := p.lineStart; i < offset && i < p.lineEnd; i++ {
		if p.doc.source[i] == '\t' {
			col += tabStopSize - (col % tabStopSize)
		} else {
			col++
		}
	}
	return col
}

func (p *BlockProcessor) parserFor(n Node) BlockParser {
	i := int(n.rec().parser) - 1
	if i < 0 {
		return documentParser{}
	}
	return p.ctx.pipeline.blockParsers[i]
}

// finalize closes a single block and moves the tip to its parent.
func (p *BlockProcessor) finalize(block Node) {
	parent := block.Parent()
	block.setFlag(flagOpen, false)
	p.parserFor(block).Close(p, block)
	if logger := p.ctx.logger; logger != nil {
		logger.Debug("close block", logging.FieldKind, block.Kind(), logging.FieldLine, p.lineNumber)
	}
	if p.tip == block {
		p.tip = parent
	}
}

// attribute records the line bytes between the last attributed position
// and end as trivia belonging to n.
func (p *BlockProcessor) attribute(n Node, end int) {
	if end <= p.triviaPos {
		return
	}
	if p.ctx.pipeline.trackTrivia {
		n.addTrivia(Trivia{
			Kind: classifyTrivia(p.doc.source, p.triviaPos, end),
			Span: SpanOf(p.triviaPos, end),
		})
	}
	p.triviaPos = end
}

// finishLine attributes any bytes left on the line, including its line ending.
func (p *BlockProcessor) finishLine() {
	owner := p.lineOwner
	if owner.IsNil() {
		owner = p.doc.Root()
	}
	p.attribute(owner, p.lineEnd)
	if end := p.lineEnd + p.newline.Len(); p.triviaPos < end {
		if p.ctx.pipeline.trackTrivia {
			owner.addTrivia(Trivia{
				Kind: TriviaNewline,
				Span: SpanOf(p.triviaPos, end),
			})
		}
		p.triviaPos = end
	}
}

// run splits the document into lines and feeds them through the block phases.
func (p *BlockProcessor) run() {
	src := p.doc.source
	for start := 0; start < len(src); {
		end := start
		for end < len(src) && !isLineEnding(src[end]) {
			end++
		}
		p.lineStart = start
		p.lineEnd = end
		p.newline = newlineAt(src, end)
		p.processLine()
		start = end + p.newline.Len()
	}
	for !p.tip.IsNil() {
		p.finalize(p.tip)
	}
	root := p.doc.Root()
	root.SetSpan(SpanOf(0, len(src)))
}

func (p *BlockProcessor) processLine() {
	p.offset = p.lineStart
	p.column = 0
	p.blank = false
	p.partiallyConsumedTab = false
	p.lineNumber++
	p.triviaPos = p.lineStart
	p.lastOpened = Node{}
	p.lineOwner = p.doc.Root()

	// Continue phase: descend through open blocks.
	container := p.doc.Root()
	p.oldTip = p.tip
	depth := 0
	for {
		last := container.LastChild()
		if last.IsNil() || !last.IsOpen() || !last.Kind().IsBlock() {
			break
		}
		p.findNextNonspace()
		p.container = last
		saved := p.saveCursor()
		state := p.parserFor(last).TryContinue(p, last)
		if state == NoMatch {
			p.restoreCursor(saved)
			break
		}
		container = last
		depth++
		if p.offset > saved.offset {
			container.ExtendSpan(p.offset - 1)
		}
		p.attribute(container, p.offset)
		p.lineOwner = container
		if state == MatchedEntireLine {
			p.finishLine()
			return
		}
	}

	p.allClosed = container == p.oldTip
	p.lastMatchedContainer = container

	// New-block phase.
	matchedLeaf := container.Kind().Class() == LeafBlockClass &&
		container.AcceptsLines() && !container.IsBreakable()
	maxDepth := p.ctx.pipeline.maxNestingDepth
	for !matchedLeaf {
		p.findNextNonspace()
		if depth >= maxDepth {
			p.AdvanceNextNonspace()
			break
		}
		var c rune
		if !p.blank {
			c, _ = utf8.DecodeRuneInString(p.doc.source[p.nextNonspace:p.lineEnd])
		}
		p.candidates = p.ctx.pipeline.blockCandidates(p.candidates[:0], c)
		opened := false
		for _, i := range p.candidates {
			p.container = container
			p.currentParser = i
			saved := p.saveCursor()
			state := p.ctx.pipeline.blockParsers[i].TryOpen(p)
			if state == NoMatch {
				p.restoreCursor(saved)
				continue
			}
			container = p.tip
			depth++
			if p.offset > saved.offset {
				container.ExtendSpan(p.offset - 1)
			}
			p.attribute(container, p.offset)
			p.lineOwner = container
			if state == MatchedEntireLine {
				matchedLeaf = true
			}
			opened = true
			break
		}
		if !opened {
			p.AdvanceNextNonspace()
			break
		}
	}
	p.container = container

	// Leaf phase.
	if !p.allClosed && !p.blank && p.tip.IsBreakable() && p.tip.AcceptsLines() {
		// Lazy continuation.
		p.addLine(p.tip)
	} else {
		p.CloseUnmatchedBlocks()
		if p.blank {
			if last := container.LastChild(); !last.IsNil() {
				last.setFlag(flagLastLineBlank, true)
			}
		}
		k := container.Kind()
		lastLineBlank := p.blank &&
			!(k == BlockQuoteKind ||
				k == FencedCodeKind ||
				(k == ListItemKind && container.FirstChild().IsNil() && container.Line() == p.lineNumber))
		for c := container; !c.IsNil(); c = c.Parent() {
			c.setFlag(flagLastLineBlank, lastLineBlank)
		}

		switch {
		case container.AcceptsLines() && container.IsOpen():
			if container != p.lastOpened || p.offset < p.lineEnd {
				p.addLine(container)
			}
		case p.offset < p.lineEnd && !p.blank:
			p.currentParser = paragraphParserIndex
			para := p.OpenBlock(ParagraphKind, p.offset)
			para.rec().flags |= flagAcceptsLines | flagBreakable | flagProcessInlines
			p.AdvanceNextNonspace()
			p.addLine(para)
		}
	}
	p.finishLine()
}

// documentParser continues the document on every line.
type documentParser struct{}

func (documentParser) Name() string { return DocumentParserName }

func (documentParser) OpeningCharacters() []rune { return nil }

func (documentParser) TryOpen(*BlockProcessor) BlockState { return NoMatch }

func (documentParser) TryContinue(*BlockProcessor, Node) BlockState { return Matched }

func (documentParser) Close(*BlockProcessor, Node) {}
