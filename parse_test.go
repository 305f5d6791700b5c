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
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestLazyContinuation(t *testing.T) {
	doc := Parse("> Hello\nWorld\n")
	quote := doc.Root().FirstChild()
	if got := quote.Kind(); got != BlockQuoteKind {
		t.Fatalf("root.FirstChild().Kind() = %v; want %v", got, BlockQuoteKind)
	}
	if got := doc.Root().ChildCount(); got != 1 {
		t.Errorf("root.ChildCount() = %d; want 1", got)
	}
	para := quote.FirstChild()
	var lines []string
	for _, line := range para.Lines() {
		lines = append(lines, line.Text())
	}
	if diff := cmp.Diff([]string{"Hello", "World"}, lines); diff != "" {
		t.Errorf("paragraph lines (-want +got):\n%s", diff)
	}
	if got := quote.Line(); got != 1 {
		t.Errorf("quote.Line() = %d; want 1", got)
	}
}

func TestPosition(t *testing.T) {
	doc := Parse("a\nb\r\nc\rd")
	tests := []struct {
		offset     int
		wantLine   int
		wantColumn int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{2, 2, 1},
		{3, 2, 2},
		{5, 3, 1},
		{7, 4, 1},
	}
	for _, test := range tests {
		line, col := doc.Position(test.offset)
		if line != test.wantLine || col != test.wantColumn {
			t.Errorf("Position(%d) = %d, %d; want %d, %d", test.offset, line, col, test.wantLine, test.wantColumn)
		}
	}

	var paraLines []int
	for c := range doc.Root().Children() {
		paraLines = append(paraLines, c.Line())
	}
	if diff := cmp.Diff([]int{1}, paraLines); diff != "" {
		t.Errorf("block lines (-want +got):\n%s", diff)
	}
}

func TestBlockLines(t *testing.T) {
	doc := Parse("# One\n\nTwo\n\n---\n\n- Three\n")
	var got []int
	for c := range doc.Root().Children() {
		got = append(got, c.Line())
	}
	if diff := cmp.Diff([]int{1, 3, 5, 7}, got); diff != "" {
		t.Errorf("block lines (-want +got):\n%s", diff)
	}
}

func TestLinkReferences(t *testing.T) {
	doc := Parse("[foo]: /first\n[FOO]: /second\n[caf\u00e9]: /coffee 'Coffee'\n\n[Foo] [cafe]\n")
	refs := doc.References()
	if got := len(refs); got != 2 {
		t.Errorf("len(References()) = %d; want 2", got)
	}
	def, ok := refs.Lookup("  foo ")
	if !ok {
		t.Fatal("Lookup(\"  foo \") not found")
	}
	if got, want := def.Destination, "/first"; got != want {
		t.Errorf("Destination = %q; want %q", got, want)
	}
	if def.Node.Kind() != LinkReferenceDefinitionKind {
		t.Errorf("Node.Kind() = %v; want %v", def.Node.Kind(), LinkReferenceDefinitionKind)
	}
	coffee, ok := refs.Lookup("CAFE")
	if !ok {
		t.Fatal("Lookup(\"CAFE\") not found")
	}
	if !coffee.TitlePresent || coffee.Title != "Coffee" {
		t.Errorf("title = %q (present=%t); want \"Coffee\"", coffee.Title, coffee.TitlePresent)
	}

	var links []string
	for n := range doc.Root().Descendants() {
		if n.Kind() == LinkKind {
			links = append(links, n.Destination()+" "+n.ReferenceType().String())
		}
	}
	want := []string{"/first ShortcutReference", "/coffee ShortcutReference"}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"foo", "foo"},
		{"  Foo\t\n Bar  ", "foo bar"},
		{"\u1e9e", "ss"},
		{"caf\u00e9", "cafe"},
		{"ΑΓΩ", "αγω"},
		{" \t\n", ""},
	}
	for _, test := range tests {
		if got := NormalizeLabel(test.label); got != test.want {
			t.Errorf("NormalizeLabel(%q) = %q; want %q", test.label, got, test.want)
		}
	}
}

func TestMaxNestingDepth(t *testing.T) {
	b := NewPipelineBuilder()
	b.MaxNestingDepth = 3
	pl, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	doc := pl.Parse("> > > > > a\n")
	depth := 0
	n := doc.Root().FirstChild()
	for ; n.Kind() == BlockQuoteKind; n = n.FirstChild() {
		depth++
	}
	if depth != 3 {
		t.Errorf("block quote depth = %d; want 3", depth)
	}
	if n.Kind() != ParagraphKind {
		t.Fatalf("innermost block = %v; want %v", n.Kind(), ParagraphKind)
	}
	if got, want := PlainText(n.Inline()), "> > a"; got != want {
		t.Errorf("paragraph text = %q; want %q", got, want)
	}
}

func TestPreciseSourceLocation(t *testing.T) {
	const source = "Hi *there*\n"
	b := NewPipelineBuilder()
	b.PreciseSourceLocation = true
	pl, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	doc := pl.Parse(source)
	type spanText struct {
		Kind Kind
		Text string
	}
	var got []spanText
	for n := range doc.Root().FirstChild().Inline().Descendants() {
		got = append(got, spanText{n.Kind(), n.Span().Slice(source)})
	}
	want := []spanText{
		{TextKind, "Hi "},
		{EmphasisKind, "*there*"},
		{TextKind, "there"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inline spans (-want +got):\n%s", diff)
	}
	for _, err := range ValidateSpans(doc.Root()) {
		t.Error(err)
	}

	// Without precise locations, only the inline root has a span.
	doc = Parse(source)
	for n := range doc.Root().FirstChild().Inline().Descendants() {
		if n.Span().IsValid() {
			t.Errorf("%v has span %v without precise source location", n.Kind(), n.Span())
		}
	}
}

func TestPathological(t *testing.T) {
	tests := []struct {
		name  string
		input func(n int) string
	}{
		{"NestedBrackets", func(n int) string { return strings.Repeat("[", n) + "a" + strings.Repeat("]", n) }},
		{"NestedBlockQuotes", func(n int) string { return strings.Repeat(">", n) + " a" }},
		{"NestedLists", func(n int) string { return strings.Repeat("- ", n) + "a" }},
		{"UnclosedEmphasis", func(n int) string { return strings.Repeat("*a ", n) }},
		{"AlternatingEmphasis", func(n int) string { return strings.Repeat("*a_ ", n) }},
		{"NestedStrong", func(n int) string { return strings.Repeat("**", n/4) + "a" + strings.Repeat("**", n/4) }},
		{"UnclosedLinks", func(n int) string { return strings.Repeat("[a](b ", n) }},
		{"UnclosedEmptyLinkParens", func(n int) string { return strings.Repeat("[](", n) }},
		{"UnclosedLinkParens", func(n int) string { return strings.Repeat("[a](", n) }},
		{"UnclosedNestedLinkParens", func(n int) string { return strings.Repeat("[a](b(", n) }},
		{"Backticks", func(n int) string { return strings.Repeat("e`", n) }},
		{"FenceInfoBackticks", func(n int) string { return "```" + strings.Repeat("`a", n) }},
		{"UnclosedHTMLComments", func(n int) string { return strings.Repeat("<!-- ", n) }},
		{"UnterminatedEntities", func(n int) string { return strings.Repeat("&#", n) }},
		{"OversizedEntities", func(n int) string { return strings.Repeat("&#x9999999999;", n) }},
		{"ManyReferences", func(n int) string { return strings.Repeat("[a]: /b\n", n) + strings.Repeat("[a] ", n) }},
	}
	const (
		small = 5000
		large = 4 * small
		// Linear growth gives a ratio near 4; quadratic near 16.
		maxRatio = 10
		slack    = 50 * time.Millisecond
	)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tSmall := timeRender(t, test.input(small))
			tLarge := timeRender(t, test.input(large))
			if tLarge > maxRatio*tSmall+slack {
				t.Errorf("n=%d took %v; n=%d took %v (more than %dx + %v)",
					small, tSmall, large, tLarge, maxRatio, slack)
			}
		})
	}
}

// timeRender returns the fastest of several parse-and-render runs over input.
// It fails the test if any run exceeds a fixed deadline.
func timeRender(tb testing.TB, input string) time.Duration {
	tb.Helper()
	const runs = 3
	best := time.Duration(-1)
	for range runs {
		done := make(chan time.Duration, 1)
		go func() {
			start := time.Now()
			doc := Parse(input)
			if err := RenderHTML(io.Discard, doc); err != nil {
				tb.Error("RenderHTML:", err)
			}
			done <- time.Since(start)
		}()
		select {
		case d := <-done:
			if best < 0 || d < best {
				best = d
			}
		case <-time.After(10 * time.Second):
			tb.Fatalf("Parse of %d bytes took too long", len(input))
		}
	}
	return best
}

// triviaPipeline returns a pipeline that tracks trivia
// and precise source locations.
func triviaPipeline(tb testing.TB) *Pipeline {
	tb.Helper()
	b := NewPipelineBuilder()
	b.TrackTrivia = true
	b.PreciseSourceLocation = true
	pl, err := b.Build()
	if err != nil {
		tb.Fatal(err)
	}
	return pl
}

// checkSourceSegments verifies that a document's lines and trivia
// cover its source without gaps or overlaps.
func checkSourceSegments(tb testing.TB, doc *Document) {
	tb.Helper()
	pos := 0
	for _, seg := range SourceSegments(doc.Root()) {
		if seg.Start != pos {
			tb.Errorf("segment %v starts at %d; want %d", seg, seg.Start, pos)
			return
		}
		pos = seg.End + 1
	}
	if pos != len(doc.Source()) {
		tb.Errorf("segments end at %d; want %d", pos, len(doc.Source()))
	}
}

func TestTrivia(t *testing.T) {
	const source = "> # Title\n>\n>     code\n\n- item\n"
	doc := triviaPipeline(t).Parse(source)
	checkSourceSegments(t, doc)

	quote := doc.Root().FirstChild()
	var markers []string
	for _, tr := range quote.Trivia() {
		if tr.Kind == TriviaMarker {
			markers = append(markers, tr.Span.Slice(source))
		}
	}
	if len(markers) == 0 {
		t.Errorf("block quote has no marker trivia: %v", quote.Trivia())
	}
	for _, m := range markers {
		if !strings.HasPrefix(m, ">") {
			t.Errorf("block quote marker trivia %q does not start with '>'", m)
		}
	}
}

func FuzzParse(f *testing.F) {
	for _, test := range loadTestSuite(f) {
		f.Add(test.Markdown)
	}

	f.Fuzz(func(t *testing.T, markdown string) {
		if !utf8.ValidString(markdown) {
			t.Skip("Invalid UTF-8")
		}
		doc := triviaPipeline(t).Parse(markdown)
		if doc.Source() != markdown {
			t.Errorf("Source() = %q; want %q", doc.Source(), markdown)
		}
		for _, err := range ValidateSpans(doc.Root()) {
			t.Error(err)
		}
		checkSourceSegments(t, doc)

		lastLine := 0
		for n := range doc.Root().Descendants() {
			if !n.Kind().IsBlock() {
				continue
			}
			if span := n.Span(); span.IsValid() && span.End >= len(markdown) {
				t.Errorf("%v span %v exceeds source length %d", n.Kind(), span, len(markdown))
			}
			if line := n.Line(); line < lastLine {
				t.Errorf("%v starts on line %d, before previous block on line %d", n.Kind(), line, lastLine)
			} else {
				lastLine = line
			}
		}
	})
}
