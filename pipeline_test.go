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
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/markdown/internal/logging"
)

type namedParser string

func (p namedParser) Name() string { return string(p) }

func parserNames(list *ParserList[namedParser]) []string {
	var names []string
	for _, p := range list.Items() {
		names = append(names, p.Name())
	}
	return names
}

func TestParserList(t *testing.T) {
	list := NewParserList[namedParser]("a", "b", "c")
	require.Equal(t, 3, list.Len())
	require.Equal(t, 1, list.Index("b"))
	require.Equal(t, -1, list.Index("zzz"))

	require.NoError(t, list.InsertBefore("b", "x"))
	require.Equal(t, []string{"a", "x", "b", "c"}, parserNames(list))
	require.NoError(t, list.InsertAfter("c", "y"))
	require.Equal(t, []string{"a", "x", "b", "c", "y"}, parserNames(list))
	require.NoError(t, list.Replace("x", "z"))
	require.Equal(t, []string{"a", "z", "b", "c", "y"}, parserNames(list))
	require.NoError(t, list.Replace("z", "z"))
	require.NoError(t, list.Remove("a"))
	require.Equal(t, []string{"z", "b", "c", "y"}, parserNames(list))

	p, ok := list.Find("c")
	require.True(t, ok)
	require.Equal(t, namedParser("c"), p)
	_, ok = list.Find("a")
	require.False(t, ok)

	require.ErrorIs(t, list.Append("b"), ErrDuplicateParser)
	require.ErrorIs(t, list.InsertBefore("nope", "q"), ErrUnknownParser)
	require.ErrorIs(t, list.InsertAfter("nope", "q"), ErrUnknownParser)
	require.ErrorIs(t, list.InsertBefore("b", "c"), ErrDuplicateParser)
	require.ErrorIs(t, list.Replace("nope", "q"), ErrUnknownParser)
	require.ErrorIs(t, list.Replace("z", "b"), ErrDuplicateParser)
	require.ErrorIs(t, list.Remove("nope"), ErrUnknownParser)
	require.Equal(t, []string{"z", "b", "c", "y"}, parserNames(list))

	items := list.Items()
	items[0] = "mutated"
	require.Equal(t, 0, list.Index("z"), "Items returned the list's own storage")

	var nilList *ParserList[namedParser]
	require.Equal(t, 0, nilList.Len())
	require.Equal(t, -1, nilList.Index("a"))
}

func TestNewParserListDuplicatePanics(t *testing.T) {
	require.Panics(t, func() {
		NewParserList[namedParser]("a", "a")
	})
}

func TestDefaultParserNames(t *testing.T) {
	b := NewPipelineBuilder()
	var blockNames []string
	for _, p := range b.BlockParsers.Items() {
		blockNames = append(blockNames, p.Name())
	}
	require.ElementsMatch(t, []string{
		BlockQuoteParserName,
		ATXHeadingParserName,
		FencedCodeParserName,
		HTMLBlockParserName,
		SetextHeadingParserName,
		ThematicBreakParserName,
		ListItemParserName,
		IndentedCodeParserName,
	}, blockNames)

	var inlineNames []string
	for _, p := range b.InlineParsers.Items() {
		inlineNames = append(inlineNames, p.Name())
	}
	require.ElementsMatch(t, []string{
		EscapeParserName,
		LineBreakParserName,
		CodeSpanParserName,
		DelimiterRunParserName,
		LinkOpenParserName,
		LinkCloseParserName,
		AutolinkParserName,
		EntityParserName,
		InlineHTMLParserName,
	}, inlineNames)
}

func TestBuildErrors(t *testing.T) {
	t.Run("ReservedBlockParser", func(t *testing.T) {
		b := NewPipelineBuilder()
		require.NoError(t, b.BlockParsers.Append(paragraphParser{}))
		_, err := b.Build()
		require.ErrorIs(t, err, ErrDuplicateParser)
	})
	t.Run("NilCreate", func(t *testing.T) {
		b := NewPipelineBuilder()
		b.AddDelimiterRule(DelimiterRule{Char: '=', MinRun: 2})
		_, err := b.Build()
		require.Error(t, err)
	})
	t.Run("SpaceDelimiter", func(t *testing.T) {
		b := NewPipelineBuilder()
		b.AddDelimiterRule(DelimiterRule{Char: ' ', MinRun: 1, Create: newEmphasis})
		_, err := b.Build()
		require.Error(t, err)
	})
	t.Run("DuplicateDelimiter", func(t *testing.T) {
		b := NewPipelineBuilder()
		b.DelimiterRules = append(b.DelimiterRules, b.DelimiterRules[0])
		_, err := b.Build()
		require.Error(t, err)
	})
}

var (
	testMarkKind    = RegisterKind("TestMark", ContainerInlineClass)
	testMentionKind = RegisterKind("TestMention", LeafInlineClass)
)

func newTestMark(doc *Document, char byte, count int) Node {
	n := doc.NewNode(testMarkKind)
	n.SetDelimiter(char, count)
	return n
}

func TestDelimiterRule(t *testing.T) {
	b := NewPipelineBuilder()
	b.AddDelimiterRule(DelimiterRule{
		Char:       '=',
		MinRun:     2,
		MaxRun:     2,
		MaxConsume: 2,
		Create:     newTestMark,
	})
	pl, err := b.Build()
	require.NoError(t, err)

	tests := []struct {
		source string
		want   string
	}{
		{
			source: "==x==\n",
			want: "Document\n" +
				"  Paragraph\n" +
				"    InlineRoot\n" +
				"      TestMark delim===\n" +
				"        Text \"x\"\n",
		},
		{
			source: "=x=\n",
			want: "Document\n" +
				"  Paragraph\n" +
				"    InlineRoot\n" +
				"      Text \"=x=\"\n",
		},
		{
			source: "===x===\n",
			want: "Document\n" +
				"  Paragraph\n" +
				"    InlineRoot\n" +
				"      Text \"===x===\"\n",
		},
		{
			source: "*a* ==b==\n",
			want: "Document\n" +
				"  Paragraph\n" +
				"    InlineRoot\n" +
				"      Emphasis\n" +
				"        Text \"a\"\n" +
				"      Text \" \"\n" +
				"      TestMark delim===\n" +
				"        Text \"b\"\n",
		},
	}
	for _, test := range tests {
		doc := pl.Parse(test.source)
		sb := new(strings.Builder)
		require.NoError(t, DumpWith(sb, doc.Root(), nil))
		if diff := cmp.Diff(test.want, sb.String()); diff != "" {
			t.Errorf("Parse(%q) (-want +got):\n%s", test.source, diff)
		}
	}
}

func TestAddDelimiterRuleReplaces(t *testing.T) {
	b := NewPipelineBuilder()
	n := len(b.DelimiterRules)
	b.AddDelimiterRule(DelimiterRule{
		Char:       '*',
		MinRun:     1,
		MaxConsume: 1,
		WithinWord: true,
		Create:     newTestMark,
	})
	require.Len(t, b.DelimiterRules, n)
	pl, err := b.Build()
	require.NoError(t, err)
	doc := pl.Parse("**a**\n")
	emph := doc.Root().FirstChild().Inline().FirstChild()
	require.Equal(t, testMarkKind, emph.Kind())
	require.Equal(t, testMarkKind, emph.FirstChild().Kind())
}

type mentionParser struct{}

func (mentionParser) Name() string { return "mention" }

func (mentionParser) OpeningCharacters() []rune { return []rune{'@'} }

func (mentionParser) Match(p *InlineProcessor) bool {
	start := p.Pos() + 1
	end := start
	for end < len(p.Content()) && isASCIILetter(p.Content()[end]) {
		end++
	}
	if end == start {
		return false
	}
	p.SetPos(end)
	n := p.Document().NewNode(testMentionKind)
	n.SetText(p.Content()[start:end])
	p.Emit(n)
	return true
}

type mentionExtension struct{}

func (mentionExtension) Name() string { return "mention" }

func (mentionExtension) Setup(b *PipelineBuilder) error {
	return b.InlineParsers.InsertBefore(EntityParserName, mentionParser{})
}

func TestCustomInlineParser(t *testing.T) {
	b := NewPipelineBuilder()
	b.PreciseSourceLocation = true
	require.NoError(t, b.Use(mentionExtension{}, mentionExtension{}))
	require.Equal(t, []string{"mention"}, b.Extensions())
	pl, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, []string{"mention"}, pl.Extensions())

	const source = "hi @bob! @ `@x`\n"
	doc := pl.Parse(source)
	root := doc.Root().FirstChild().Inline()
	type inline struct {
		Kind Kind
		Text string
	}
	var got []inline
	for c := range root.Children() {
		got = append(got, inline{c.Kind(), c.Text()})
	}
	want := []inline{
		{TextKind, "hi "},
		{testMentionKind, "bob"},
		{TextKind, "! @ "},
		{CodeSpanKind, "@x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inlines (-want +got):\n%s", diff)
	}
	mention := root.Child(1)
	require.Equal(t, "@bob", mention.Span().Slice(source))
	require.Empty(t, ValidateSpans(doc.Root()))
}

type failingExtension struct{}

func (failingExtension) Name() string { return "failing" }

func (failingExtension) Setup(b *PipelineBuilder) error {
	return b.InlineParsers.Remove("nonexistent")
}

func TestUseError(t *testing.T) {
	b := NewPipelineBuilder()
	err := b.Use(failingExtension{})
	require.ErrorIs(t, err, ErrUnknownParser)
	require.Empty(t, b.Extensions())
}

func TestInlineObserver(t *testing.T) {
	var events []string
	b := NewPipelineBuilder()
	b.AddInlineObserver(InlineObserver{
		Name: "recorder",
		BeforeBlock: func(block Node) {
			require.True(t, block.Inline().IsNil(), "inline root exists before processing")
			events = append(events, "before "+block.Kind().String())
		},
		AfterBlock: func(block Node) {
			require.False(t, block.Inline().IsNil(), "inline root missing after processing")
			events = append(events, "after "+block.Kind().String())
		},
	})
	b.AddInlineObserver(InlineObserver{
		Name: "done",
		AfterDocument: func(doc *Document) {
			events = append(events, "document")
		},
	})
	pl, err := b.Build()
	require.NoError(t, err)
	pl.Parse("a\n\n# b\n\n    code\n")
	require.Equal(t, []string{
		"before Paragraph",
		"after Paragraph",
		"before ATXHeading",
		"after ATXHeading",
		"document",
	}, events)
}

func TestBuilderIndependence(t *testing.T) {
	b := NewPipelineBuilder()
	pl, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, b.InlineParsers.Remove(DelimiterRunParserName))
	doc := pl.Parse("*a*\n")
	require.Equal(t, EmphasisKind, doc.Root().FirstChild().Inline().FirstChild().Kind())

	pl2, err := b.Build()
	require.NoError(t, err)
	doc = pl2.Parse("*a*\n")
	require.Equal(t, TextKind, doc.Root().FirstChild().Inline().FirstChild().Kind())
}

func TestPipelineLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	b := NewPipelineBuilder()
	b.Logger = logging.NewWriter(buf, "debug")
	pl, err := b.Build()
	require.NoError(t, err)
	pl.Parse("> *a*\n\n[x]: /one\n[x]: /two\n")
	out := buf.String()
	for _, want := range []string{"open block", "close block", "inline match", "duplicate link reference definition"} {
		require.Contains(t, out, want)
	}
}

func TestPipelineConcurrent(t *testing.T) {
	pl, err := NewPipelineBuilder().Build()
	require.NoError(t, err)
	const source = "# Title\n\n- *a*\n- [b](/c)\n"
	want := DumpString(pl.Parse(source).Root())
	errs := make(chan error)
	for range 8 {
		go func() {
			for range 20 {
				if got := DumpString(pl.Parse(source).Root()); got != want {
					errs <- errors.Newf("concurrent parse produced:\n%s", got)
					return
				}
			}
			errs <- nil
		}()
	}
	for range 8 {
		require.NoError(t, <-errs)
	}
}

var testTentativeKind = RegisterKind("TestTentative", ContainerBlockClass)

// tentativeParser opens a block on '%' and immediately discards it.
type tentativeParser struct {
	errs *[]error
}

func (tentativeParser) Name() string { return "tentative" }

func (tentativeParser) OpeningCharacters() []rune { return []rune{'%'} }

func (pp tentativeParser) TryOpen(p *BlockProcessor) BlockState {
	n := p.OpenBlock(testTentativeKind, p.Offset())
	*pp.errs = append(*pp.errs,
		p.Discard(n),
		p.Discard(n),
		p.Discard(p.Document().Root()),
		p.Discard(Node{}),
	)
	return NoMatch
}

func (tentativeParser) TryContinue(*BlockProcessor, Node) BlockState { return NoMatch }

func (tentativeParser) Close(*BlockProcessor, Node) {}

func TestDiscard(t *testing.T) {
	var errs []error
	b := NewPipelineBuilder()
	b.TrackTrivia = true
	require.NoError(t, b.BlockParsers.InsertBefore(BlockQuoteParserName, tentativeParser{&errs}))
	pl, err := b.Build()
	require.NoError(t, err)

	const source = "%x\n"
	doc := pl.Parse(source)
	require.Len(t, errs, 4)
	require.NoError(t, errs[0])
	require.ErrorIs(t, errs[1], ErrNotOpen)
	require.ErrorIs(t, errs[2], ErrDiscardRoot)
	require.ErrorIs(t, errs[3], ErrNilNode)

	sb := new(strings.Builder)
	require.NoError(t, DumpWith(sb, doc.Root(), nil))
	want := "Document\n" +
		"  Paragraph\n" +
		"    InlineRoot\n" +
		"      Text \"%x\"\n"
	require.Equal(t, want, sb.String())
	for n := range doc.Root().Descendants() {
		require.NotEqual(t, testTentativeKind, n.Kind())
	}
}

var caretCountKey = NewDataKey[*int]("caret count")

// caretParser replaces each '^' with its 1-based index within the block.
type caretParser struct{}

func (caretParser) Name() string { return "caret" }

func (caretParser) OpeningCharacters() []rune { return []rune{'^'} }

func (caretParser) Match(p *InlineProcessor) bool {
	count := LocalState(p, caretCountKey, func() *int { return new(int) })
	*count++
	p.Advance(1)
	p.Emit(p.Document().NewText(strconv.Itoa(*count), NullSpan()))
	return true
}

func TestLocalState(t *testing.T) {
	b := NewPipelineBuilder()
	require.NoError(t, b.InlineParsers.Append(caretParser{}))
	pl, err := b.Build()
	require.NoError(t, err)

	doc := pl.Parse("^ ^ ^\n\n^\n")
	var got []string
	for block := range doc.Root().Children() {
		got = append(got, PlainText(block.Inline()))
	}
	require.Equal(t, []string{"1 2 3", "1"}, got)
}
