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

	"github.com/charmbracelet/log"
	"zombiezen.com/go/markdown/internal/logging"
)

// An InlineParser recognizes inline syntax within a leaf block's content.
//
// OpeningCharacters returns the characters at which Match is attempted.
// Parsers that return no characters are tried at every position.
//
// Match is called with the processor's position at an opening character.
// A parser that recognizes its syntax advances the position past it,
// calls [InlineProcessor.Emit] with the resulting node (if any),
// and returns true.
// A parser may also return true without emitting a node,
// in which case the consumed text is treated as literal text.
// On false, the processor restores its position and tries the next parser;
// a parser must not emit nodes before returning false.
type InlineParser interface {
	Name() string
	OpeningCharacters() []rune
	Match(p *InlineProcessor) bool
}

// InlineProcessor is a cursor on the content of a leaf block,
// used while parsing its inline content.
// An InlineProcessor is created for each parse
// and passed to the [InlineParser] methods.
type InlineProcessor struct {
	ctx     *parseContext
	doc     *Document
	block   Node
	root    Node
	lines   *lineMap
	content string
	precise bool

	pos        int
	matchStart int
	textStart  int
	pendingEnd int // end of pending text or -1 to use matchStart

	delims       *delimiter
	brackets     *bracket
	bracketDepth int
	ticks        backtickIndex
	local        map[uint64]any
	candidates   []int
}

func newInlineProcessor(ctx *parseContext) *InlineProcessor {
	return &InlineProcessor{
		ctx:     ctx,
		doc:     ctx.doc,
		precise: ctx.pipeline.preciseSourceLocation,
	}
}

// Document returns the document being built.
func (p *InlineProcessor) Document() *Document {
	return p.doc
}

// Block returns the leaf block whose content is being parsed.
func (p *InlineProcessor) Block() Node {
	return p.block
}

// Root returns the [InlineRootKind] node of the current block.
func (p *InlineProcessor) Root() Node {
	return p.root
}

// Logger returns the pipeline's logger or nil.
func (p *InlineProcessor) Logger() *log.Logger {
	return p.ctx.logger
}

// Content returns the block's content:
// its lines joined by '\n', without trailing whitespace.
func (p *InlineProcessor) Content() string {
	return p.content
}

// Pos returns the current offset in [InlineProcessor.Content].
func (p *InlineProcessor) Pos() int {
	return p.pos
}

// SetPos moves the cursor to the given content offset.
func (p *InlineProcessor) SetPos(pos int) {
	p.pos = max(0, min(pos, len(p.content)))
}

// Advance moves the cursor forward by n bytes.
func (p *InlineProcessor) Advance(n int) {
	p.SetPos(p.pos + n)
}

// MatchStart returns the content offset where the current match began.
func (p *InlineProcessor) MatchStart() int {
	return p.matchStart
}

// Char returns the byte at the cursor or zero at the end of the content.
func (p *InlineProcessor) Char() byte {
	return p.PeekChar(0)
}

// PeekChar returns the byte i bytes after the cursor
// or zero if that is outside the content.
func (p *InlineProcessor) PeekChar(i int) byte {
	i += p.pos
	if i < 0 || i >= len(p.content) {
		return 0
	}
	return p.content[i]
}

// RuneBefore returns the character that ends before content offset i.
// At the start of the content, it returns '\n'.
func (p *InlineProcessor) RuneBefore(i int) rune {
	if i <= 0 {
		return '\n'
	}
	r, _ := utf8.DecodeLastRuneInString(p.content[:i])
	return r
}

// RuneAt returns the character at content offset i.
// At the end of the content, it returns '\n'.
func (p *InlineProcessor) RuneAt(i int) rune {
	if i >= len(p.content) {
		return '\n'
	}
	r, _ := utf8.DecodeRuneInString(p.content[i:])
	return r
}

// SourceSpan returns the document span of content range [start, end)
// when the pipeline tracks precise source locations.
// Otherwise it returns [NullSpan].
func (p *InlineProcessor) SourceSpan(start, end int) Span {
	if !p.precise {
		return NullSpan()
	}
	return p.lines.sourceSpan(start, end)
}

// Emit appends node to the block's inline root.
// Literal text accumulated since the last emitted node is added first
// as a [TextKind] node.
// If node does not have a span,
// it is given the span from the start of the match to the cursor.
func (p *InlineProcessor) Emit(node Node) {
	p.flush()
	if !node.Span().IsValid() {
		node.SetSpan(p.SourceSpan(p.matchStart, p.pos))
	}
	if err := p.root.AppendChild(node); err != nil {
		if logger := p.ctx.logger; logger != nil {
			logger.Error("emit inline", logging.FieldError, err)
		}
		return
	}
	p.consumed()
}

// TrimPendingSpaces removes trailing spaces and tabs
// from the literal text that precedes the current match
// and returns the number of bytes removed.
func (p *InlineProcessor) TrimPendingSpaces() int {
	end := p.pendingEnd
	if end < 0 {
		end = p.matchStart
	}
	n := 0
	for end > p.textStart && isSpaceOrTab(p.content[end-1]) {
		end--
		n++
	}
	p.pendingEnd = end
	return n
}

// flush adds any pending literal text as a text node.
func (p *InlineProcessor) flush() {
	end := p.pendingEnd
	if end < 0 {
		end = p.matchStart
	}
	if end > p.textStart {
		text := p.doc.NewText(p.content[p.textStart:end], p.SourceSpan(p.textStart, end))
		p.root.link(text, p.root.rec().lastChild, 0)
	}
	p.textStart = p.matchStart
	p.pendingEnd = -1
}

// consumed marks everything before the cursor as handled.
func (p *InlineProcessor) consumed() {
	p.textStart = p.pos
	p.matchStart = p.pos
	p.pendingEnd = -1
}

// process parses the inline content of a single leaf block.
func (p *InlineProcessor) process(block Node) {
	p.block = block
	p.lines = newLineMap(block.Lines(), false)
	p.content = strings.TrimRight(p.lines.content, " \t")
	p.pos, p.matchStart, p.textStart, p.pendingEnd = 0, 0, 0, -1
	p.delims, p.brackets, p.bracketDepth = nil, nil, 0
	p.ticks = backtickIndex{}
	clear(p.local)

	p.root = p.doc.NewNode(InlineRootKind)
	if len(p.lines.segs) > 0 {
		p.root.SetSpan(p.lines.sourceSpan(0, len(p.content)))
	} else {
		start := block.Span().Start
		p.root.SetSpan(Span{Start: start, End: start - 1})
	}
	if err := block.AppendChild(p.root); err != nil {
		if logger := p.ctx.logger; logger != nil {
			logger.Error("inline root", logging.FieldError, err, logging.FieldKind, block.Kind())
		}
		return
	}

	pl := p.ctx.pipeline
	for p.pos < len(p.content) {
		next := p.pos
		if len(pl.inlineAlways) == 0 {
			next = pl.inlineChars.IndexOfOpeningCharacter(p.content, p.pos, len(p.content))
			if next < 0 {
				break
			}
		}
		p.pos = next
		c, size := utf8.DecodeRuneInString(p.content[p.pos:])
		if !p.tryParsers(c) {
			p.pos += size
		}
	}
	p.pos = len(p.content)
	p.matchStart = p.pos
	p.flush()
	p.processEmphasis(nil)
	p.brackets = nil
	p.bracketDepth = 0
}

func (p *InlineProcessor) tryParsers(c rune) bool {
	pl := p.ctx.pipeline
	p.candidates = pl.inlineCandidates(p.candidates[:0], c)
	for _, i := range p.candidates {
		start, pendingEnd := p.pos, p.pendingEnd
		p.matchStart = start
		parser := pl.inlineParsers[i]
		if parser.Match(p) && (p.pos > start || p.textStart > start) {
			if logger := p.ctx.logger; logger != nil {
				logger.Debug("inline match", logging.FieldParser, parser.Name(), "block", p.block.Kind(), "offset", start)
			}
			return true
		}
		p.pos, p.pendingEnd = start, pendingEnd
	}
	p.matchStart = p.pos
	return false
}

// LocalState returns the parser-local value stored for key
// while parsing the current leaf block,
// calling init to create it on first use.
// Values are discarded when the processor moves to the next block.
func LocalState[T any](p *InlineProcessor, key DataKey[T], init func() T) T {
	if v, ok := p.local[key.id]; ok {
		return v.(T)
	}
	v := init()
	if p.local == nil {
		p.local = make(map[uint64]any)
	}
	p.local[key.id] = v
	return v
}
