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
	"slices"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"zombiezen.com/go/markdown/internal/logging"
	"zombiezen.com/go/markdown/internal/pool"
)

// DefaultMaxNestingDepth is the default limit
// on the depth of nested container blocks and link brackets.
const DefaultMaxNestingDepth = 128

// A ParserList is an ordered list of named parsers.
// Order determines priority:
// when more than one parser can handle the same character,
// the one earlier in the list is tried first.
type ParserList[T interface{ Name() string }] struct {
	items []T
}

// NewParserList returns a list containing the given parsers.
// It panics if two parsers share a name.
func NewParserList[T interface{ Name() string }](items ...T) *ParserList[T] {
	list := new(ParserList[T])
	for _, item := range items {
		if err := list.Append(item); err != nil {
			panic(err)
		}
	}
	return list
}

// Len returns the number of parsers in the list.
func (list *ParserList[T]) Len() int {
	if list == nil {
		return 0
	}
	return len(list.items)
}

// Items returns a copy of the list's parsers in order.
func (list *ParserList[T]) Items() []T {
	if list == nil {
		return nil
	}
	return slices.Clone(list.items)
}

// Index returns the position of the parser with the given name or -1.
func (list *ParserList[T]) Index(name string) int {
	if list == nil {
		return -1
	}
	return slices.IndexFunc(list.items, func(item T) bool {
		return item.Name() == name
	})
}

// Find returns the parser with the given name.
func (list *ParserList[T]) Find(name string) (_ T, ok bool) {
	i := list.Index(name)
	if i < 0 {
		var zero T
		return zero, false
	}
	return list.items[i], true
}

// Append adds a parser to the end of the list.
func (list *ParserList[T]) Append(item T) error {
	return list.insert(len(list.items), item)
}

// InsertBefore adds item immediately before the parser named ref.
func (list *ParserList[T]) InsertBefore(ref string, item T) error {
	i := list.Index(ref)
	if i < 0 {
		return errors.Wrapf(ErrUnknownParser, "insert %q before %q", item.Name(), ref)
	}
	return list.insert(i, item)
}

// InsertAfter adds item immediately after the parser named ref.
func (list *ParserList[T]) InsertAfter(ref string, item T) error {
	i := list.Index(ref)
	if i < 0 {
		return errors.Wrapf(ErrUnknownParser, "insert %q after %q", item.Name(), ref)
	}
	return list.insert(i+1, item)
}

func (list *ParserList[T]) insert(i int, item T) error {
	if list.Index(item.Name()) >= 0 {
		return errors.Wrapf(ErrDuplicateParser, "add %q", item.Name())
	}
	list.items = slices.Insert(list.items, i, item)
	return nil
}

// Replace substitutes item for the parser named ref.
// item may have a different name.
func (list *ParserList[T]) Replace(ref string, item T) error {
	i := list.Index(ref)
	if i < 0 {
		return errors.Wrapf(ErrUnknownParser, "replace %q", ref)
	}
	if j := list.Index(item.Name()); j >= 0 && j != i {
		return errors.Wrapf(ErrDuplicateParser, "replace %q with %q", ref, item.Name())
	}
	list.items[i] = item
	return nil
}

// Remove deletes the parser named ref.
func (list *ParserList[T]) Remove(ref string) error {
	i := list.Index(ref)
	if i < 0 {
		return errors.Wrapf(ErrUnknownParser, "remove %q", ref)
	}
	list.items = slices.Delete(list.items, i, i+1)
	return nil
}

// An Extension adds syntax to a pipeline.
// Setup is called once while the pipeline is being configured
// and typically registers parsers, delimiter rules, or observers.
type Extension interface {
	Name() string
	Setup(b *PipelineBuilder) error
}

// An InlineObserver is a set of callbacks
// run during the inline pass.
// Nil callbacks are skipped.
type InlineObserver struct {
	Name string
	// BeforeBlock is called before a leaf block's inline content is parsed.
	BeforeBlock func(block Node)
	// AfterBlock is called after a leaf block's inline content is parsed.
	AfterBlock func(block Node)
	// AfterDocument is called once every leaf block has been processed,
	// before blocks marked with [Node.SetRemoveAfterInlineProcessing] are removed.
	AfterDocument func(doc *Document)
}

// A PipelineBuilder collects the parsers and options for a [Pipeline].
// The zero value has no parsers;
// use [NewPipelineBuilder] to start from the CommonMark defaults.
type PipelineBuilder struct {
	BlockParsers    *ParserList[BlockParser]
	InlineParsers   *ParserList[InlineParser]
	DelimiterRules  []DelimiterRule
	InlineObservers []InlineObserver

	// TrackTrivia records the source text consumed by block syntax
	// so that the document can be reproduced exactly.
	TrackTrivia bool
	// PreciseSourceLocation gives every inline node a source span.
	// Without it, only blocks and inline roots have spans.
	PreciseSourceLocation bool
	// MaxNestingDepth limits nested container blocks and link brackets.
	// Zero means [DefaultMaxNestingDepth].
	MaxNestingDepth int
	// Logger, if not nil, receives debug-level trace events.
	Logger *log.Logger

	extensions []string
}

// NewPipelineBuilder returns a builder
// with the CommonMark block parsers, inline parsers, and emphasis rules.
func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{
		BlockParsers:   NewParserList(DefaultBlockParsers()...),
		InlineParsers:  NewParserList(DefaultInlineParsers()...),
		DelimiterRules: EmphasisRules(),
	}
}

// Use runs the setup of each extension in order.
// An extension whose name has already been used is skipped.
func (b *PipelineBuilder) Use(exts ...Extension) error {
	for _, ext := range exts {
		if slices.Contains(b.extensions, ext.Name()) {
			continue
		}
		if err := ext.Setup(b); err != nil {
			return errors.Wrapf(err, "set up extension %q", ext.Name())
		}
		b.extensions = append(b.extensions, ext.Name())
	}
	return nil
}

// Extensions returns the names of the extensions set up so far.
func (b *PipelineBuilder) Extensions() []string {
	return slices.Clone(b.extensions)
}

// AddDelimiterRule registers a delimiter character.
// A rule for a character that already has one replaces it.
func (b *PipelineBuilder) AddDelimiterRule(rule DelimiterRule) {
	for i := range b.DelimiterRules {
		if b.DelimiterRules[i].Char == rule.Char {
			b.DelimiterRules[i] = rule
			return
		}
	}
	b.DelimiterRules = append(b.DelimiterRules, rule)
}

// AddInlineObserver appends an observer to the inline pass.
func (b *PipelineBuilder) AddInlineObserver(obs InlineObserver) {
	b.InlineObservers = append(b.InlineObservers, obs)
}

// Build returns a pipeline with the builder's current configuration.
// Later changes to the builder do not affect the pipeline.
func (b *PipelineBuilder) Build() (*Pipeline, error) {
	pl := &Pipeline{
		trackTrivia:           b.TrackTrivia,
		preciseSourceLocation: b.PreciseSourceLocation,
		maxNestingDepth:       b.MaxNestingDepth,
		logger:                b.Logger,
		observers:             slices.Clone(b.InlineObservers),
		extensions:            slices.Clone(b.extensions),
	}
	if pl.maxNestingDepth <= 0 {
		pl.maxNestingDepth = DefaultMaxNestingDepth
	}

	for _, rule := range b.DelimiterRules {
		if rule.Create == nil {
			return nil, errors.Newf("delimiter rule %q has no Create function", rule.Char)
		}
		if isSpaceTabOrLineEnding(rule.Char) || rule.Char >= 0x80 {
			return nil, errors.Newf("invalid delimiter character %q", rule.Char)
		}
		if pl.delimiterIndex[rule.Char] != 0 {
			return nil, errors.Newf("delimiter %q registered twice", rule.Char)
		}
		pl.delimiterRules = append(pl.delimiterRules, rule)
		pl.delimiterIndex[rule.Char] = int8(len(pl.delimiterRules))
	}

	pl.blockParsers = append(pl.blockParsers, documentParser{}, paragraphParser{})
	var blockEntries []CharacterEntry[int]
	for _, bp := range b.BlockParsers.Items() {
		switch bp.Name() {
		case DocumentParserName, ParagraphParserName:
			return nil, errors.Wrapf(ErrDuplicateParser, "block parser %q is reserved", bp.Name())
		}
		i := len(pl.blockParsers)
		pl.blockParsers = append(pl.blockParsers, bp)
		chars := bp.OpeningCharacters()
		if len(chars) == 0 {
			pl.blockAlways = append(pl.blockAlways, i)
		}
		for _, c := range chars {
			blockEntries = append(blockEntries, CharacterEntry[int]{Char: c, Value: i})
		}
	}
	pl.blockChars = NewCharacterMap(blockEntries...)

	var inlineEntries []CharacterEntry[int]
	for i, ip := range b.InlineParsers.Items() {
		pl.inlineParsers = append(pl.inlineParsers, ip)
		var chars []rune
		if dp, ok := ip.(interface{ openingCharacters(*Pipeline) []rune }); ok {
			chars = dp.openingCharacters(pl)
			if len(chars) == 0 {
				// Nothing to match without delimiter rules.
				continue
			}
		} else {
			chars = ip.OpeningCharacters()
		}
		if len(chars) == 0 {
			pl.inlineAlways = append(pl.inlineAlways, i)
		}
		for _, c := range chars {
			inlineEntries = append(inlineEntries, CharacterEntry[int]{Char: c, Value: i})
		}
	}
	pl.inlineChars = NewCharacterMap(inlineEntries...)

	pl.candidates = pool.New(4, func() []int { return make([]int, 0, 8) }, func(s []int) []int { return s[:0] })
	return pl, nil
}

// A Pipeline parses Markdown documents
// with a fixed set of parsers and options.
// A Pipeline is safe to use from multiple goroutines.
type Pipeline struct {
	blockParsers []BlockParser
	blockChars   *CharacterMap[int]
	blockAlways  []int

	inlineParsers []InlineParser
	inlineChars   *CharacterMap[int]
	inlineAlways  []int

	delimiterRules []DelimiterRule
	delimiterIndex [0x80]int8 // index into delimiterRules plus one

	observers             []InlineObserver
	extensions            []string
	trackTrivia           bool
	preciseSourceLocation bool
	maxNestingDepth       int
	logger                *log.Logger

	candidates *pool.Pool[[]int]
}

// TrackTrivia reports whether the pipeline records trivia.
func (pl *Pipeline) TrackTrivia() bool {
	return pl.trackTrivia
}

// Extensions returns the names of the extensions the pipeline was built with.
func (pl *Pipeline) Extensions() []string {
	return slices.Clone(pl.extensions)
}

// Parse parses source into a document.
// Line endings may be "\n", "\r\n", or "\r".
// Parse never fails: every input has a parse.
func (pl *Pipeline) Parse(source string) *Document {
	ctx := &parseContext{
		pipeline: pl,
		doc:      newDocument(source),
		logger:   pl.logger,
	}
	bp := newBlockProcessor(ctx)
	bp.candidates = pl.candidates.Get()
	bp.run()
	pl.candidates.Put(bp.candidates)

	ip := newInlineProcessor(ctx)
	ip.candidates = pl.candidates.Get()
	var leaves []Node
	for n := range ctx.doc.Root().Descendants() {
		if n.Kind().IsBlock() && n.ProcessInlines() {
			leaves = append(leaves, n)
		}
	}
	for _, block := range leaves {
		for _, obs := range pl.observers {
			if obs.BeforeBlock != nil {
				obs.BeforeBlock(block)
			}
		}
		ip.process(block)
		for _, obs := range pl.observers {
			if obs.AfterBlock != nil {
				obs.AfterBlock(block)
			}
		}
	}
	pl.candidates.Put(ip.candidates)
	for _, obs := range pl.observers {
		if obs.AfterDocument != nil {
			obs.AfterDocument(ctx.doc)
		}
	}
	pl.removeMarkedBlocks(ctx)
	return ctx.doc
}

// removeMarkedBlocks removes blocks marked with
// [Node.SetRemoveAfterInlineProcessing].
// When tracking trivia, the removed block's source text
// is attributed to its parent.
func (pl *Pipeline) removeMarkedBlocks(ctx *parseContext) {
	var marked []Node
	for n := range ctx.doc.Root().Descendants() {
		if n.Kind().IsBlock() && n.RemoveAfterInlineProcessing() {
			marked = append(marked, n)
		}
	}
	for _, n := range slices.Backward(marked) {
		parent := n.Parent()
		if parent.IsNil() {
			continue
		}
		if pl.trackTrivia {
			var segs []Trivia
			segs = collectTrivia(segs, n)
			for d := range n.Descendants() {
				if d.Kind().IsBlock() {
					segs = collectTrivia(segs, d)
				}
			}
			for _, t := range segs {
				parent.addTrivia(t)
			}
		}
		if logger := ctx.logger; logger != nil {
			logger.Debug("remove block", logging.FieldKind, n.Kind(), logging.FieldLine, n.Line())
		}
		n.unlink()
	}
}

// blockCandidates appends the indices of the block parsers
// to try on a line whose first non-space character is c
// in priority order.
func (pl *Pipeline) blockCandidates(dst []int, c rune) []int {
	return mergeCandidates(dst, pl.blockChars.Candidates(c), pl.blockAlways)
}

// inlineCandidates appends the indices of the inline parsers
// to try at character c in priority order.
func (pl *Pipeline) inlineCandidates(dst []int, c rune) []int {
	return mergeCandidates(dst, pl.inlineChars.Candidates(c), pl.inlineAlways)
}

// mergeCandidates merges two ascending index lists.
func mergeCandidates(dst, a, b []int) []int {
	for len(a) > 0 && len(b) > 0 {
		if a[0] < b[0] {
			dst = append(dst, a[0])
			a = a[1:]
		} else {
			dst = append(dst, b[0])
			b = b[1:]
		}
	}
	dst = append(dst, a...)
	return append(dst, b...)
}

// delimiterRule returns the rule registered for c or nil.
func (pl *Pipeline) delimiterRule(c byte) *DelimiterRule {
	if c >= 0x80 {
		return nil
	}
	i := pl.delimiterIndex[c]
	if i == 0 {
		return nil
	}
	return &pl.delimiterRules[i-1]
}
