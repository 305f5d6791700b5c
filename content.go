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
	"sort"
	"strings"
)

// lineMap is the text of a leaf block's lines joined by '\n'
// along with the information needed to map offsets in the joined text
// back to the document source.
type lineMap struct {
	content string
	segs    []lineSegment
}

type lineSegment struct {
	contentStart int
	rawStart     int
	padding      int
	sourceStart  int
	length       int
}

// newLineMap joins lines with '\n'.
// If trailingNewline is true, a '\n' is added after the last line as well.
// A single line without padding is not copied.
func newLineMap(lines []Line, trailingNewline bool) *lineMap {
	m := &lineMap{segs: make([]lineSegment, 0, len(lines))}
	if len(lines) == 1 && lines[0].Padding == 0 && !trailingNewline {
		line := lines[0]
		m.content = line.Slice.String()
		m.segs = append(m.segs, lineSegment{
			rawStart:    line.RawStart,
			sourceStart: line.Slice.Start,
			length:      line.Slice.Len(),
		})
		return m
	}
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		m.segs = append(m.segs, lineSegment{
			contentStart: sb.Len(),
			rawStart:     line.RawStart,
			padding:      line.Padding,
			sourceStart:  line.Slice.Start,
			length:       line.Slice.Len(),
		})
		for range line.Padding {
			sb.WriteByte(' ')
		}
		sb.WriteString(line.Slice.String())
	}
	if trailingNewline && len(lines) > 0 {
		sb.WriteByte('\n')
	}
	m.content = sb.String()
	return m
}

// sourceOffset returns the document offset of the content byte at i.
// Padding bytes map to the tab they were expanded from
// and joining newlines map to the end of the preceding line.
func (m *lineMap) sourceOffset(i int) int {
	if len(m.segs) == 0 {
		return -1
	}
	j := sort.Search(len(m.segs), func(j int) bool {
		return m.segs[j].contentStart > i
	}) - 1
	if j < 0 {
		j = 0
	}
	seg := m.segs[j]
	off := i - seg.contentStart
	if off < seg.padding {
		return seg.rawStart
	}
	off -= seg.padding
	return seg.sourceStart + min(off, seg.length)
}

// sourceSpan maps the content range [start, end) to a document span.
func (m *lineMap) sourceSpan(start, end int) Span {
	if len(m.segs) == 0 {
		return NullSpan()
	}
	s := m.sourceOffset(start)
	if end <= start {
		return Span{Start: s, End: s - 1}
	}
	return Span{Start: s, End: max(s, m.sourceOffset(end-1))}
}
