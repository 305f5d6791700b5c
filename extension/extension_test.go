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

package extension

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/markdown"
	"zombiezen.com/go/markdown/internal/normhtml"
)

func render(t *testing.T, exts []markdown.Extension, input string) string {
	t.Helper()
	b := markdown.NewPipelineBuilder()
	require.NoError(t, b.Use(exts...))
	pl, err := b.Build()
	require.NoError(t, err)
	doc := pl.Parse(input)
	if errs := markdown.ValidateSpans(doc.Root()); len(errs) > 0 {
		t.Errorf("invalid spans: %v", errs)
	}

	r := &markdown.HTMLRenderer{Handlers: markdown.DefaultHTMLHandlers()}
	for _, ext := range exts {
		if h, ok := ext.(markdown.HTMLExtension); ok {
			require.NoError(t, h.SetupHTML(r.Handlers))
		}
	}
	sb := new(strings.Builder)
	require.NoError(t, r.Render(sb, doc))
	return sb.String()
}

func TestStrikethrough(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"~~Hi~~ Hello, world!\n", "<p><del>Hi</del> Hello, world!</p>\n"},
		{"~one~ tilde\n", "<p><del>one</del> tilde</p>\n"},
		{"x ~~~three~~~\n", "<p>x ~~~three~~~</p>\n"},
		{"~~~three~~~\n", "<pre><code class=\"language-three~~~\"></code></pre>\n"},
		{"a ~~ b ~~\n", "<p>a ~~ b ~~</p>\n"},
		{"~~*nested*~~\n", "<p><del><em>nested</em></del></p>\n"},
		{"**~~both~~**\n", "<p><strong><del>both</del></strong></p>\n"},
	}
	for _, test := range tests {
		got := render(t, []markdown.Extension{Strikethrough}, test.input)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("render(%q) (-want +got):\n%s", test.input, diff)
		}
	}
}

func TestStrikethroughKind(t *testing.T) {
	b := markdown.NewPipelineBuilder()
	require.NoError(t, b.Use(Strikethrough))
	pl, err := b.Build()
	require.NoError(t, err)
	doc := pl.Parse("~~x~~\n")

	var found []markdown.Node
	for n := range doc.Root().Descendants() {
		if n.Kind() == StrikethroughKind {
			found = append(found, n)
		}
	}
	require.Len(t, found, 1)
	require.Equal(t, byte('~'), found[0].DelimiterChar())
	require.Equal(t, 2, found[0].DelimiterCount())
	require.Equal(t, markdown.ContainerInlineClass, StrikethroughKind.Class())
	require.Equal(t, "Strikethrough", StrikethroughKind.String())
}

func TestAutoIdentifiers(t *testing.T) {
	input := "# Hello, *World*!\n\n## Intro\n\nIntro\n-----\n\n# `code` & more\n\n#\n"
	want := `<h1 id="hello-world">Hello, <em>World</em>!</h1>` +
		`<h2 id="intro">Intro</h2>` +
		`<h2 id="intro-1">Intro</h2>` +
		`<h1 id="code-more"><code>code</code> &amp; more</h1>` +
		`<h1 id="section"></h1>`
	got := render(t, []markdown.Extension{AutoIdentifiers}, input)
	if diff := cmp.Diff(string(normhtml.NormalizeHTML([]byte(want))), string(normhtml.NormalizeHTML([]byte(got)))); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestHeadingID(t *testing.T) {
	b := markdown.NewPipelineBuilder()
	require.NoError(t, b.Use(AutoIdentifiers))
	pl, err := b.Build()
	require.NoError(t, err)
	doc := pl.Parse("# A\n\n# A\n\ntext\n")

	var ids []string
	for n := range doc.Root().Children() {
		if id, ok := HeadingID(n); ok {
			ids = append(ids, id)
		} else if n.HeadingLevel() > 0 {
			t.Errorf("heading at line %d has no id", n.Line())
		}
	}
	require.Equal(t, []string{"a", "a-1"}, ids)

	// Scratch state does not outlive the parse.
	_, ok := markdown.GetData(doc.Root(), usedIDsKey)
	require.False(t, ok)
}

func TestAutoIdentifiersWithoutHTMLExtension(t *testing.T) {
	b := markdown.NewPipelineBuilder()
	require.NoError(t, b.Use(AutoIdentifiers))
	pl, err := b.Build()
	require.NoError(t, err)
	sb := new(strings.Builder)
	require.NoError(t, markdown.RenderHTML(sb, pl.Parse("# A\n")))
	require.Equal(t, "<h1>A</h1>\n", sb.String())
}

func TestCustomContainers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Basic",
			input: "::: warning\nBe *careful*.\n:::\n",
			want:  `<div class="warning"><p>Be <em>careful</em>.</p></div>`,
		},
		{
			name:  "NoInfo",
			input: ":::\n# Title\n:::\nafter\n",
			want:  `<div><h1>Title</h1></div><p>after</p>`,
		},
		{
			name:  "Unclosed",
			input: "::: note\n- a\n- b\n",
			want:  `<div class="note"><ul><li>a</li><li>b</li></ul></div>`,
		},
		{
			name:  "Nested",
			input: ":::: outer\n::: inner\nx\n:::\n::::\n",
			want:  `<div class="outer"><div class="inner"><p>x</p></div></div>`,
		},
		{
			name:  "ShortCloseIgnored",
			input: ":::: a\n:::\n::::\n",
			want:  `<div class="a"><div></div></div>`,
		},
		{
			name:  "TooShort",
			input: ":: nope\n",
			want:  `<p>:: nope</p>`,
		},
		{
			name:  "InBlockQuote",
			input: "> ::: tip\n> hi\n> :::\n",
			want:  `<blockquote><div class="tip"><p>hi</p></div></blockquote>`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := render(t, []markdown.Extension{CustomContainers}, test.input)
			if diff := cmp.Diff(string(normhtml.NormalizeHTML([]byte(test.want))), string(normhtml.NormalizeHTML([]byte(got)))); diff != "" {
				t.Errorf("render(%q) (-want +got):\n%s", test.input, diff)
			}
		})
	}
}

func TestCustomContainerRoundTrip(t *testing.T) {
	b := markdown.NewPipelineBuilder()
	b.TrackTrivia = true
	require.NoError(t, b.Use(CustomContainers))
	pl, err := b.Build()
	require.NoError(t, err)
	const input = "::: a\n\n  text\n:::\n"
	doc := pl.Parse(input)

	sb := new(strings.Builder)
	for _, span := range markdown.SourceSegments(doc.Root()) {
		sb.WriteString(span.Slice(input))
	}
	require.Equal(t, input, sb.String())

	container := doc.Root().FirstChild()
	require.Equal(t, CustomContainerKind, container.Kind())
	require.Equal(t, "a", ContainerInfo(container))
}

func TestRegistry(t *testing.T) {
	reg := Registry()
	require.Len(t, reg, 3)
	for name, ext := range reg {
		require.Equal(t, name, ext.Name())
	}

	cfg, err := markdown.ParseConfig([]byte("extensions: [strikethrough, autoid, containers]\n"))
	require.NoError(t, err)
	pl, err := cfg.NewPipeline(reg, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"strikethrough", "autoid", "containers"}, pl.Extensions())
	r, err := cfg.HTMLRenderer(reg)
	require.NoError(t, err)

	sb := new(strings.Builder)
	require.NoError(t, r.Render(sb, pl.Parse("::: x\n# ~~Old~~\n:::\n")))
	want := `<div class="x"><h1 id="old"><del>Old</del></h1></div>`
	if diff := cmp.Diff(string(normhtml.NormalizeHTML([]byte(want))), string(normhtml.NormalizeHTML([]byte(sb.String())))); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
