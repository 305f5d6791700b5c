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
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"zombiezen.com/go/markdown/internal/normhtml"
	"zombiezen.com/go/markdown/internal/spec"
)

func TestSoftBreakBehavior(t *testing.T) {
	tests := []struct {
		name     string
		behavior SoftBreakBehavior
		input    string
		want     string
	}{
		{
			name:     "PreserveLF",
			behavior: SoftBreakPreserve,
			input:    "Hello\nWorld!",
			want:     "<p>Hello\nWorld!</p>\n",
		},
		{
			name:     "PreserveCRLF",
			behavior: SoftBreakPreserve,
			input:    "Hello\r\nWorld!",
			want:     "<p>Hello\nWorld!</p>\n",
		},
		{
			name:     "Space",
			behavior: SoftBreakSpace,
			input:    "Hello\r\nWorld!",
			want:     "<p>Hello World!</p>\n",
		},
		{
			name:     "Harden",
			behavior: SoftBreakHarden,
			input:    "Hello\r\nWorld!",
			want:     "<p>Hello<br />\nWorld!</p>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := Parse(test.input)
			r := &HTMLRenderer{
				SoftBreakBehavior: test.behavior,
			}
			buf := new(bytes.Buffer)
			if err := r.Render(buf, doc); err != nil {
				t.Error("Render:", err)
			}
			if got := buf.String(); got != test.want {
				t.Errorf("output = %q; want %q", got, test.want)
			}
		})
	}
}

func TestParseSoftBreakBehavior(t *testing.T) {
	for _, b := range []SoftBreakBehavior{SoftBreakPreserve, SoftBreakSpace, SoftBreakHarden} {
		got, err := ParseSoftBreakBehavior(b.String())
		if err != nil || got != b {
			t.Errorf("ParseSoftBreakBehavior(%q) = %v, %v; want %v, <nil>", b.String(), got, err, b)
		}
	}
	if got, err := ParseSoftBreakBehavior(""); err != nil || got != SoftBreakPreserve {
		t.Errorf("ParseSoftBreakBehavior(\"\") = %v, %v; want %v, <nil>", got, err, SoftBreakPreserve)
	}
	if _, err := ParseSoftBreakBehavior("shatter"); err == nil {
		t.Error("ParseSoftBreakBehavior(\"shatter\") did not return an error")
	}
}

func TestHTMLRendererIgnoreRaw(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "NoRaw",
			input: "Hello World!",
			want:  "<p>Hello World!</p>\n",
		},
		{
			name:  "MarkdownStrong",
			input: "Hello **World**!",
			want:  "<p>Hello <strong>World</strong>!</p>\n",
		},
		{
			name:  "HTMLStrong",
			input: "Hello <strong>World</strong>!",
			want:  "<p>Hello World!</p>\n",
		},
		{
			name:  "HTMLBlock",
			input: "<table>\n<tr><td>Hello</td></tr>\n</table>",
			want:  "",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := Parse(test.input)
			r := &HTMLRenderer{
				IgnoreRaw: true,
			}
			buf := new(bytes.Buffer)
			if err := r.Render(buf, doc); err != nil {
				t.Error("Render:", err)
			}
			if got := buf.String(); got != test.want {
				t.Errorf("output = %q; want %q", got, test.want)
			}
		})
	}
}

func TestHTMLRendererFilter(t *testing.T) {
	const input = "<strong> <title> <style> <em>\n\n" +
		"<blockquote>\n" +
		"  <xmp> is disallowed.  <XMP> is also disallowed.\n" +
		"</blockquote>\n"
	tests := []struct {
		name      string
		filterTag func(tag []byte) bool
		want      string
	}{
		{
			name:      "GFM",
			filterTag: FilterTagGFM,
			want: "<p><strong> &lt;title> &lt;style> <em></p>\n" +
				"<blockquote>\n" +
				"  &lt;xmp> is disallowed.  &lt;XMP> is also disallowed.\n" +
				"</blockquote>\n",
		},
		{
			name: "Nil",
			want: "<p><strong> <title> <style> <em></p>\n" +
				"<blockquote>\n" +
				"  <xmp> is disallowed.  <XMP> is also disallowed.\n" +
				"</blockquote>\n",
		},
		{
			name:      "AllowAll",
			filterTag: func(tag []byte) bool { return false },
			want: "<p><strong> <title> <style> <em></p>\n" +
				"<blockquote>\n" +
				"  <xmp> is disallowed.  <XMP> is also disallowed.\n" +
				"</blockquote>\n",
		},
		{
			name:      "BlockAll",
			filterTag: func(tag []byte) bool { return true },
			want: "&lt;p>&lt;strong> &lt;title> &lt;style> &lt;em>&lt;/p>\n" +
				"&lt;blockquote>\n" +
				"  &lt;xmp> is disallowed.  &lt;XMP> is also disallowed.\n" +
				"&lt;/blockquote>\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := Parse(input)
			r := &HTMLRenderer{
				FilterTag: test.filterTag,
			}
			buf := new(bytes.Buffer)
			if err := r.Render(buf, doc); err != nil {
				t.Error("Render:", err)
			}
			if diff := cmp.Diff(test.want, buf.String()); diff != "" {
				t.Errorf("-want +got:\n%s", diff)
			}
		})
	}
}

func TestFilterTagComments(t *testing.T) {
	// Tags inside comments, processing instructions, and CDATA sections
	// are left alone.
	const input = "a <!-- <script> --> <?php <title> ?> <![CDATA[ <style> ]]> <script>\n"
	const want = "<p>a <!-- <script> --> <?php <title> ?> <![CDATA[ <style> ]]> &lt;script></p>\n"
	r := &HTMLRenderer{FilterTag: FilterTagGFM}
	buf := new(bytes.Buffer)
	if err := r.Render(buf, Parse(input)); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != want {
		t.Errorf("output = %q; want %q", got, want)
	}
}

func TestRenderHTMLInsecureCharacters(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := RenderHTML(buf, Parse("Hello,\x00World")); err != nil {
		t.Fatal(err)
	}
	const want = "<p>Hello,\ufffdWorld</p>\n"
	if got := buf.String(); got != want {
		t.Errorf("RenderHTML(...) = %q; want %q", got, want)
	}
}

func TestAppendNode(t *testing.T) {
	doc := Parse("# Title\n\nSome *text*.\n")
	para := doc.Root().Child(1)
	got, err := new(HTMLRenderer).AppendNode([]byte("prefix:"), para)
	if err != nil {
		t.Fatal(err)
	}
	const want = "prefix:\n<p>Some <em>text</em>.</p>\n"
	if string(got) != want {
		t.Errorf("AppendNode(...) = %q; want %q", got, want)
	}
}

func TestDispatcher(t *testing.T) {
	record := func(name string, handled bool) HandlerFunc[*[]string] {
		return func(c *[]string, n Node) (bool, error) {
			*c = append(*c, name)
			return handled, nil
		}
	}
	doc := Parse("Hello\n")
	text := doc.Root().FirstChild().FirstChild().FirstChild()
	if text.Kind() != TextKind {
		t.Fatalf("node kind = %v; want %v", text.Kind(), TextKind)
	}

	tests := []struct {
		name     string
		handlers []Handler[*[]string]
		want     []string
	}{
		{
			name: "KindBeforeClass",
			handlers: []Handler[*[]string]{
				FallbackHandler("fallback", record("fallback", true)),
				ClassHandler("class", record("class", true), LeafInlineClass),
				KindHandler("kind", record("kind", true), TextKind),
			},
			want: []string{"kind"},
		},
		{
			name: "Defer",
			handlers: []Handler[*[]string]{
				KindHandler("kind", record("kind", false), TextKind),
				ClassHandler("class", record("class", false), LeafInlineClass),
				FallbackHandler("fallback1", record("fallback1", false)),
				FallbackHandler("fallback2", record("fallback2", true)),
			},
			want: []string{"kind", "class", "fallback1", "fallback2"},
		},
		{
			name: "ListOrderWithinRank",
			handlers: []Handler[*[]string]{
				KindHandler("first", record("first", true), TextKind),
				KindHandler("second", record("second", true), TextKind),
			},
			want: []string{"first"},
		},
		{
			name: "OtherKindsSkipped",
			handlers: []Handler[*[]string]{
				KindHandler("emphasis", record("emphasis", true), EmphasisKind),
				ClassHandler("blocks", record("blocks", true), LeafBlockClass, ContainerBlockClass),
				FallbackHandler("fallback", record("fallback", true)),
			},
			want: []string{"fallback"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := NewDispatcher(test.handlers...)
			var got []string
			if err := d.Dispatch(&got, text); err != nil {
				t.Fatal("Dispatch:", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("handlers called (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("NoHandler", func(t *testing.T) {
		d := NewDispatcher(KindHandler("kind", record("kind", false), TextKind))
		var got []string
		err := d.Dispatch(&got, text)
		if !errors.Is(err, ErrNoHandler) {
			t.Errorf("Dispatch(...) = %v; want %v", err, ErrNoHandler)
		}
	})

	t.Run("Clone", func(t *testing.T) {
		d := NewDispatcher(FallbackHandler("fallback", record("fallback", true)))
		clone := d.Clone()
		if err := clone.InsertBefore("fallback", KindHandler("kind", record("kind", true), TextKind)); err != nil {
			t.Fatal(err)
		}
		if got := d.Len(); got != 1 {
			t.Errorf("original Len() = %d; want 1", got)
		}
		var got []string
		if err := clone.Dispatch(&got, text); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"kind"}, got); diff != "" {
			t.Errorf("handlers called (-want +got):\n%s", diff)
		}
	})
}

func TestCustomHTMLHandler(t *testing.T) {
	handlers := DefaultHTMLHandlers()
	err := handlers.InsertBefore(HTMLThematicBreakHandlerName, KindHandler("fancybreak",
		func(c *HTMLContext, n Node) (bool, error) {
			c.CR()
			c.WriteString(`<hr class="fancy" />`)
			c.CR()
			return true, nil
		}, ThematicBreakKind))
	if err != nil {
		t.Fatal(err)
	}
	r := &HTMLRenderer{Handlers: handlers}
	buf := new(bytes.Buffer)
	if err := r.Render(buf, Parse("a\n\n***\n\nb\n")); err != nil {
		t.Fatal(err)
	}
	const want = "<p>a</p>\n<hr class=\"fancy\" />\n<p>b</p>\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q; want %q", got, want)
	}
}

func TestPlainText(t *testing.T) {
	doc := Parse("![*a* `b` &amp; c\nd](/x.png)\n")
	img := doc.Root().FirstChild().FirstChild().FirstChild()
	if img.Kind() != ImageKind {
		t.Fatalf("node kind = %v; want %v", img.Kind(), ImageKind)
	}
	if got, want := PlainText(img), "a b & c d"; got != want {
		t.Errorf("PlainText(...) = %q; want %q", got, want)
	}
}

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		s    string
		want string
	}{
		{"", ""},
		{"/url", "/url"},
		{"foo bar", "foo%20bar"},
		{"%20", "%20"},
		{"%zz", "%25zz"},
		{"ä", "%C3%A4"},
		{"http://example.com/?q=1&r=[2]", "http://example.com/?q=1&r=%5B2%5D"},
	}
	for _, test := range tests {
		if got := NormalizeURI(test.s); got != test.want {
			t.Errorf("NormalizeURI(%q) = %q; want %q", test.s, got, test.want)
		}
	}
}

func TestRenderExtraKinds(t *testing.T) {
	// Kinds without a handler render their children.
	wrapperKind := RegisterKind("TestWrapper", ContainerBlockClass)
	doc := Parse("Hello\n")
	para := doc.Root().FirstChild()
	para.Remove()
	wrapper := doc.NewNode(wrapperKind)
	if err := wrapper.AppendChild(para); err != nil {
		t.Fatal(err)
	}
	if err := doc.Root().AppendChild(wrapper); err != nil {
		t.Fatal(err)
	}
	buf := new(bytes.Buffer)
	if err := RenderHTML(buf, doc); err != nil {
		t.Fatal(err)
	}
	got := normhtml.NormalizeHTML(buf.Bytes())
	want := normhtml.NormalizeHTML([]byte("<p>Hello</p>"))
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("-want +got:\n%s", diff)
	}
}

func BenchmarkRenderHTML(b *testing.B) {
	examples, err := spec.Load()
	if err != nil {
		b.Fatal(err)
	}
	input := new(strings.Builder)
	for i, ex := range examples {
		if i > 0 {
			input.WriteString("\n\n")
		}
		input.WriteString(ex.Markdown)
	}
	doc := Parse(input.String())
	b.ResetTimer()
	b.SetBytes(int64(input.Len()))
	b.ReportMetric(float64(len(examples)), "examples/op")

	for i := 0; i < b.N; i++ {
		RenderHTML(io.Discard, doc)
	}
}
