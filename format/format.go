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

// Package format provides functions to write a parsed Markdown document
// back out as Markdown.
//
// [RoundTrip] reproduces the original text exactly
// from the document's lines and trivia.
// [Normalize] rewrites the block structure in a canonical style
// that is equivalent to the original Markdown.
package format

import (
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"zombiezen.com/go/markdown"
)

// ErrIncomplete is returned by [RoundTrip]
// when the document's segments do not cover its source,
// usually because it was parsed without trivia tracking.
var ErrIncomplete = errors.New("document does not account for every source byte")

// RoundTrip writes the document's source text to w,
// reassembled from the lines and trivia held by its blocks.
// The document must have been parsed by a pipeline that tracks trivia.
func RoundTrip(w io.Writer, doc *markdown.Document) error {
	ww := &errWriter{w: w}
	source := doc.Source()
	pos := 0
	for _, seg := range markdown.SourceSegments(doc.Root()) {
		if seg.Start != pos {
			return errors.Wrapf(ErrIncomplete, "round trip: byte %d", pos)
		}
		ww.WriteString(seg.Slice(source))
		pos = seg.End + 1
	}
	if pos != len(source) {
		return errors.Wrapf(ErrIncomplete, "round trip: byte %d", pos)
	}
	if ww.err != nil {
		return errors.Wrap(ww.err, "round trip")
	}
	return nil
}

// Normalize writes the given document as CommonMark to w
// using a canonical block style:
//
//   - Blocks are separated by a single blank line.
//   - Headings use the ATX style when they fit on one line.
//   - Code blocks are fenced.
//   - Thematic breaks are written as "___".
//   - Ordered lists are numbered consecutively from their start number.
//
// Inline content is written as it appeared in the source.
func Normalize(w io.Writer, doc *markdown.Document) error {
	ww := &errWriter{w: w}
	lines := blockLines(doc.Root())
	for _, line := range lines {
		ww.WriteString(line)
		ww.WriteString("\n")
	}
	if ww.err != nil {
		return errors.Wrap(ww.err, "normalize markdown")
	}
	return nil
}

// blockLines returns the lines of a block
// as they appear at the block's own indentation.
func blockLines(n markdown.Node) []string {
	switch n.Kind() {
	case markdown.DocumentKind:
		return childLines(n, false)
	case markdown.ParagraphKind, markdown.LinkReferenceDefinitionKind:
		return contentLines(n)
	case markdown.ATXHeadingKind, markdown.SetextHeadingKind:
		return headingLines(n)
	case markdown.ThematicBreakKind:
		return []string{"___"}
	case markdown.FencedCodeKind, markdown.IndentedCodeKind:
		return codeLines(n)
	case markdown.HTMLBlockKind:
		var lines []string
		for _, line := range n.Lines() {
			lines = append(lines, line.Text())
		}
		return lines
	case markdown.BlockQuoteKind:
		lines := childLines(n, false)
		if len(lines) == 0 {
			return []string{">"}
		}
		for i, line := range lines {
			if line == "" {
				lines[i] = ">"
			} else {
				lines[i] = "> " + line
			}
		}
		return lines
	case markdown.ListKind:
		return listLines(n)
	default:
		if n.Kind().IsContainer() {
			return childLines(n, false)
		}
		return contentLines(n)
	}
}

// childLines concatenates the lines of n's child blocks,
// separating them with blank lines unless tight is set.
func childLines(n markdown.Node, tight bool) []string {
	var lines []string
	first := true
	for c := range n.Children() {
		if !c.Kind().IsBlock() {
			continue
		}
		if !first && !tight {
			lines = append(lines, "")
		}
		first = false
		lines = append(lines, blockLines(c)...)
	}
	return lines
}

// contentLines returns a leaf block's lines.
// Continuation lines that could be read as the start of a block
// are indented so that they stay part of the leaf.
func contentLines(n markdown.Node) []string {
	var lines []string
	for i, line := range n.Lines() {
		text := strings.TrimLeft(line.Text(), " \t")
		if i > 0 && text != "" && strings.IndexByte(blockStartChars, text[0]) >= 0 {
			text = "    " + text
		}
		lines = append(lines, text)
	}
	return lines
}

// blockStartChars is the set of characters that can begin a block
// other than a paragraph.
const blockStartChars = "#>-+*=_`~<:|0123456789"

func headingLines(n markdown.Node) []string {
	content := contentLines(n)
	level := n.HeadingLevel()
	if len(content) > 1 {
		underline := "==="
		if level == 2 {
			underline = "---"
		}
		return append(content, underline)
	}
	sb := new(strings.Builder)
	sb.WriteString(strings.Repeat("#", level))
	if len(content) == 0 || content[0] == "" {
		return []string{sb.String()}
	}
	text := strings.TrimRight(content[0], " \t")
	sb.WriteString(" ")
	sb.WriteString(text)
	if strings.HasSuffix(text, "#") {
		// Protect the content from being read as a closing sequence.
		sb.WriteString(" #")
	}
	return []string{sb.String()}
}

func codeLines(n markdown.Node) []string {
	info := ""
	if n.Kind() == markdown.FencedCodeKind {
		info = n.Info()
		if span := n.InfoSpan(); span.IsValid() {
			info = span.Slice(n.Document().Source())
		}
	}
	fenceChar := byte('`')
	if strings.IndexByte(info, '`') >= 0 {
		fenceChar = '~'
	}
	content := make([]string, 0, len(n.Lines()))
	for _, line := range n.Lines() {
		content = append(content, line.Text())
	}
	fence := strings.Repeat(string(fenceChar), fenceLength(content, fenceChar))

	lines := make([]string, 0, len(content)+2)
	if info != "" {
		lines = append(lines, fence+info)
	} else {
		lines = append(lines, fence)
	}
	lines = append(lines, content...)
	return append(lines, fence)
}

// fenceLength returns the shortest fence of c
// that no line of content could close.
func fenceLength(content []string, c byte) int {
	n := 3
	for _, line := range content {
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) > 3 {
			continue
		}
		run := 0
		for run < len(trimmed) && trimmed[run] == c {
			run++
		}
		n = max(n, run+1)
	}
	return n
}

func listLines(list markdown.Node) []string {
	tight := list.IsTightList()
	var lines []string
	num := list.ListStart()
	first := true
	for item := range list.Children() {
		if !first && !tight {
			lines = append(lines, "")
		}
		first = false

		var marker string
		if list.IsOrderedList() {
			marker = strconv.Itoa(num) + string(item.ListMarker())
			num++
		} else {
			marker = string(item.ListMarker())
		}
		indent := strings.Repeat(" ", len(marker)+1)
		itemLines := childLines(item, tight)
		if len(itemLines) == 0 {
			lines = append(lines, marker)
			continue
		}
		for i, line := range itemLines {
			switch {
			case i == 0:
				lines = append(lines, marker+" "+line)
			case line == "":
				lines = append(lines, "")
			default:
				lines = append(lines, indent+line)
			}
		}
	}
	return lines
}

type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) WriteString(s string) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	n, w.err = io.WriteString(w.w, s)
	return n, w.err
}
