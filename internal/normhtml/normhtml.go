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

// Package normhtml normalizes rendered HTML so that two renderings
// can be compared without regard to insignificant differences,
// following the rules of the [CommonMark test normalizer].
//
// [CommonMark test normalizer]: https://github.com/commonmark/commonmark-spec/blob/0.31.2/test/normalize.py
package normhtml

import (
	"bytes"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NormalizeHTML strips insignificant output differences from HTML:
// runs of whitespace outside <pre> collapse to a single space,
// whitespace around block-level tags is removed,
// attributes are sorted by name,
// and character references are decoded to a canonical escaping.
func NormalizeHTML(b []byte) []byte {
	n := &normalizer{
		tok:  html.NewTokenizerFragment(bytes.NewReader(b), "div"),
		last: html.StartTagToken,
	}
	for {
		tt := n.tok.Next()
		switch tt {
		case html.ErrorToken:
			return n.out
		case html.TextToken:
			n.text()
		case html.StartTagToken, html.SelfClosingTagToken:
			n.startTag()
		case html.EndTagToken:
			n.endTag()
		case html.CommentToken:
			n.out = append(n.out, n.tok.Raw()...)
		}
		n.last = tt
		if tt == html.SelfClosingTagToken {
			n.last = html.EndTagToken
		}
	}
}

// String is [NormalizeHTML] for strings.
func String(s string) string {
	return string(NormalizeHTML([]byte(s)))
}

// Equal reports whether a and b are the same after normalization.
func Equal(a, b []byte) bool {
	return bytes.Equal(NormalizeHTML(a), NormalizeHTML(b))
}

type normalizer struct {
	tok     *html.Tokenizer
	out     []byte
	last    html.TokenType
	lastTag atom.Atom
	inPre   bool
}

var whitespaceRE = regexp.MustCompile(`\s+`)

var textEscaper = bytereplacer.New(
	"&", "&amp;",
	`'`, "&apos;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

func (n *normalizer) text() {
	data := n.tok.Text()
	afterTag := n.last == html.StartTagToken || n.last == html.EndTagToken
	if afterTag && n.lastTag == atom.Br {
		data = bytes.TrimLeft(data, "\n")
	}
	if !n.inPre {
		data = whitespaceRE.ReplaceAll(data, []byte(" "))
		if afterTag && isBlockTag(n.lastTag) {
			if n.last == html.StartTagToken {
				data = bytes.TrimLeftFunc(data, unicode.IsSpace)
			} else {
				data = bytes.TrimSpace(data)
			}
		}
	}
	n.out = append(n.out, textEscaper.Replace(bytes.Clone(data))...)
}

func (n *normalizer) startTag() {
	name, hasAttr := n.tok.TagName()
	tag := atom.Lookup(name)
	if tag == atom.Pre {
		n.inPre = true
	}
	if isBlockTag(tag) {
		n.trimTrailingSpace()
	}
	n.out = append(n.out, '<')
	n.out = append(n.out, name...)
	if hasAttr {
		n.attrs()
	}
	n.out = append(n.out, '>')
	n.lastTag = tag
}

type attribute struct {
	key   string
	value string
}

func (n *normalizer) attrs() {
	var attrs []attribute
	for more := true; more; {
		var k, v []byte
		k, v, more = n.tok.TagAttr()
		attrs = append(attrs, attribute{string(k), string(v)})
	}
	slices.SortStableFunc(attrs, func(a, b attribute) int {
		return strings.Compare(a.key, b.key)
	})
	for _, attr := range attrs {
		n.out = append(n.out, ' ')
		n.out = append(n.out, attr.key...)
		if attr.value != "" {
			n.out = append(n.out, `="`...)
			n.out = append(n.out, html.EscapeString(attr.value)...)
			n.out = append(n.out, '"')
		}
	}
}

func (n *normalizer) endTag() {
	name, _ := n.tok.TagName()
	tag := atom.Lookup(name)
	if tag == atom.Pre {
		n.inPre = false
	} else if isBlockTag(tag) {
		n.trimTrailingSpace()
	}
	n.out = append(n.out, "</"...)
	n.out = append(n.out, name...)
	n.out = append(n.out, '>')
	n.lastTag = tag
}

func (n *normalizer) trimTrailingSpace() {
	n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
}

var blockTags = func() map[atom.Atom]struct{} {
	m := make(map[atom.Atom]struct{})
	for _, a := range []atom.Atom{
		atom.Article, atom.Aside, atom.Blockquote, atom.Body, atom.Button,
		atom.Canvas, atom.Caption, atom.Col, atom.Colgroup, atom.Dd,
		atom.Div, atom.Dl, atom.Dt, atom.Embed, atom.Fieldset,
		atom.Figcaption, atom.Figure, atom.Footer, atom.Form,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Hgroup, atom.Hr, atom.Iframe, atom.Li,
		atom.Map, atom.Object, atom.Ol, atom.Output, atom.P,
		atom.Pre, atom.Progress, atom.Script, atom.Section, atom.Style,
		atom.Table, atom.Tbody, atom.Td, atom.Textarea, atom.Tfoot,
		atom.Th, atom.Thead, atom.Tr, atom.Ul, atom.Video,
	} {
		m[a] = struct{}{}
	}
	return m
}()

func isBlockTag(tag atom.Atom) bool {
	_, ok := blockTags[tag]
	return ok
}
