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
	"fmt"
	"slices"
)

// TriviaKind classifies a [Trivia] segment.
type TriviaKind int8

const (
	// TriviaWhitespace is indentation or other spaces and tabs
	// that carry no meaning.
	TriviaWhitespace TriviaKind = 1 + iota
	// TriviaMarker is syntax consumed by a block parser,
	// such as a block quote marker, a list marker,
	// a code fence line, or a setext heading underline.
	TriviaMarker
	// TriviaNewline is a line ending not held by a [Line].
	TriviaNewline
)

// String returns the name of the kind.
func (k TriviaKind) String() string {
	switch k {
	case TriviaWhitespace:
		return "Whitespace"
	case TriviaMarker:
		return "Marker"
	case TriviaNewline:
		return "Newline"
	default:
		return fmt.Sprintf("TriviaKind(%d)", int8(k))
	}
}

// Trivia is a segment of source text that a block consumed
// without storing it in its lines.
// Trivia is only recorded when the pipeline tracks trivia.
type Trivia struct {
	Kind TriviaKind
	Span Span
}

// Trivia returns the trivia segments attributed to a block
// in source order.
func (n Node) Trivia() []Trivia {
	if n.IsNil() {
		return nil
	}
	return n.rec().trivia
}

func (n Node) addTrivia(t Trivia) {
	r := n.rec()
	k := len(r.trivia)
	if k > 0 && t.Span.Start < r.trivia[k-1].Span.Start {
		i, _ := slices.BinarySearchFunc(r.trivia, t.Span.Start, func(a Trivia, start int) int {
			return a.Span.Start - start
		})
		r.trivia = slices.Insert(r.trivia, i, t)
		return
	}
	if k > 0 {
		last := &r.trivia[k-1]
		if last.Kind == t.Kind && last.Span.End+1 == t.Span.Start {
			last.Span.End = t.Span.End
			return
		}
	}
	r.trivia = append(r.trivia, t)
}

func classifyTrivia(source string, start, end int) TriviaKind {
	allSpace := true
	for i := start; i < end; i++ {
		switch source[i] {
		case ' ', '\t':
		case '\r', '\n':
			if allSpace && i == start {
				return TriviaNewline
			}
			allSpace = false
		default:
			allSpace = false
		}
	}
	if allSpace {
		return TriviaWhitespace
	}
	return TriviaMarker
}

// collectTrivia appends n's trivia to dst,
// along with segments covering n's lines.
func collectTrivia(dst []Trivia, n Node) []Trivia {
	r := n.rec()
	dst = append(dst, r.trivia...)
	for _, line := range r.lines {
		dst = appendLineTrivia(dst, line)
	}
	return dst
}

// appendLineTrivia appends the segments covering a line's bytes.
func appendLineTrivia(dst []Trivia, line Line) []Trivia {
	if span := line.RawSpan(); !span.IsEmpty() {
		kind := TriviaWhitespace
		if !line.Slice.IsBlank() {
			kind = TriviaMarker
		}
		dst = append(dst, Trivia{Kind: kind, Span: span})
	}
	if span := line.NewlineSpan(); !span.IsEmpty() {
		dst = append(dst, Trivia{Kind: TriviaNewline, Span: span})
	}
	return dst
}

// moveLinesToTrivia converts lines[i:] of a leaf block into trivia
// and truncates its lines.
func (n Node) moveLinesToTrivia(i int, track bool) {
	r := n.rec()
	if track {
		for _, line := range r.lines[i:] {
			for _, t := range appendLineTrivia(nil, line) {
				n.addTrivia(t)
			}
		}
	}
	r.lines = r.lines[:i:i]
}

// SourceSegments returns every trivia segment and line range in the tree
// rooted at root, sorted by source offset.
// For a document parsed with trivia tracking,
// the segments partition the source exactly.
func SourceSegments(root Node) []Span {
	var segs []Span
	add := func(n Node) {
		for _, t := range n.Trivia() {
			segs = append(segs, t.Span)
		}
		for _, line := range n.Lines() {
			if span := line.RawSpan(); !span.IsEmpty() {
				segs = append(segs, span)
			}
			if span := line.NewlineSpan(); !span.IsEmpty() {
				segs = append(segs, span)
			}
		}
	}
	add(root)
	for n := range root.Descendants() {
		if n.Kind().IsBlock() {
			add(n)
		}
	}
	slices.SortFunc(segs, func(a, b Span) int {
		return a.Start - b.Start
	})
	return segs
}
