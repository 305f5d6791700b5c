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

import "strings"

// A Slice is a window into a string.
// Start and End are byte offsets into Text; End is inclusive.
// Slices never copy the underlying text.
type Slice struct {
	Text  string
	Start int
	End   int
}

// NewSlice returns a slice covering all of text.
func NewSlice(text string) Slice {
	return Slice{Text: text, Start: 0, End: len(text) - 1}
}

// Len returns the number of bytes in the window.
func (s Slice) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// IsEmpty reports whether the window contains no bytes.
func (s Slice) IsEmpty() bool {
	return s.End < s.Start
}

// Current returns the byte at the start of the window
// or zero if the window is empty.
func (s Slice) Current() byte {
	if s.IsEmpty() {
		return 0
	}
	return s.Text[s.Start]
}

// PeekChar returns the byte at the given offset from the start of the window
// or zero if the offset lies outside the window.
func (s Slice) PeekChar(offset int) byte {
	i := s.Start + offset
	if i < s.Start || i > s.End {
		return 0
	}
	return s.Text[i]
}

// NextChar advances the start of the window by one byte
// and returns the new current byte.
func (s *Slice) NextChar() byte {
	if s.Start <= s.End {
		s.Start++
	}
	return s.Current()
}

// SkipChar advances the start of the window by n bytes,
// stopping at the end of the window.
func (s *Slice) SkipChar(n int) {
	s.Start = min(s.Start+n, s.End+1)
}

// TrimStart advances past leading spaces and tabs
// and returns the number of bytes skipped.
func (s *Slice) TrimStart() int {
	n := 0
	for s.Start <= s.End && isSpaceOrTab(s.Text[s.Start]) {
		s.Start++
		n++
	}
	return n
}

// TrimEnd retreats past trailing spaces and tabs
// and returns the number of bytes removed.
func (s *Slice) TrimEnd() int {
	n := 0
	for s.End >= s.Start && isSpaceOrTab(s.Text[s.End]) {
		s.End--
		n++
	}
	return n
}

// Trim removes leading and trailing spaces and tabs.
func (s *Slice) Trim() {
	s.TrimStart()
	s.TrimEnd()
}

// IsBlank reports whether the window contains only spaces and tabs.
func (s Slice) IsBlank() bool {
	for i := s.Start; i <= s.End; i++ {
		if !isSpaceOrTab(s.Text[i]) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the window begins with prefix.
func (s Slice) HasPrefix(prefix string) bool {
	return strings.HasPrefix(s.String(), prefix)
}

// IndexByte returns the absolute offset of the first c in the window
// or -1 if c is not present.
func (s Slice) IndexByte(c byte) int {
	i := strings.IndexByte(s.String(), c)
	if i < 0 {
		return -1
	}
	return s.Start + i
}

// Span returns the source span of the window.
// It assumes that Text is the document source.
func (s Slice) Span() Span {
	return Span{Start: s.Start, End: s.End}
}

// String returns the bytes in the window.
func (s Slice) String() string {
	if s.IsEmpty() {
		return ""
	}
	return s.Text[s.Start : s.End+1]
}

// Newline is the line ending that terminated a line of source.
type Newline int8

const (
	// NoNewline is used for the last line of a document
	// when it is not terminated by a line ending.
	NoNewline Newline = iota
	// LineFeed is "\n".
	LineFeed
	// CarriageReturn is "\r".
	CarriageReturn
	// CarriageReturnLineFeed is "\r\n".
	CarriageReturnLineFeed
)

// Len returns the number of bytes in the line ending.
func (nl Newline) Len() int {
	switch nl {
	case LineFeed, CarriageReturn:
		return 1
	case CarriageReturnLineFeed:
		return 2
	default:
		return 0
	}
}

// String returns the line ending's characters.
func (nl Newline) String() string {
	switch nl {
	case LineFeed:
		return "\n"
	case CarriageReturn:
		return "\r"
	case CarriageReturnLineFeed:
		return "\r\n"
	default:
		return ""
	}
}

// newlineAt returns the line ending that begins at s[i].
func newlineAt(s string, i int) Newline {
	if i >= len(s) {
		return NoNewline
	}
	switch s[i] {
	case '\n':
		return LineFeed
	case '\r':
		if i+1 < len(s) && s[i+1] == '\n' {
			return CarriageReturnLineFeed
		}
		return CarriageReturn
	default:
		return NoNewline
	}
}

// A Line is one line of a leaf block's content.
type Line struct {
	// Slice is the text of the line after container prefixes,
	// up to but not including the line ending.
	Slice Slice
	// RawStart is the offset where the bytes attributed to this line begin.
	// It is less than Slice.Start only when a tab was partially consumed
	// by a container prefix.
	RawStart int
	// Padding is the number of columns of a partially consumed tab
	// that belong to the line's content.
	Padding int
	// Column is the 0-based column of Slice.Start after tab expansion.
	Column int
	// Number is the 1-based line number in the document.
	Number int
	// Newline is the line ending that follows the line.
	Newline Newline
}

// Text returns the line's content with any padding expanded to spaces.
func (line Line) Text() string {
	if line.Padding == 0 {
		return line.Slice.String()
	}
	return strings.Repeat(" ", line.Padding) + line.Slice.String()
}

// RawSpan returns the span of source bytes attributed to the line,
// excluding the line ending.
func (line Line) RawSpan() Span {
	return Span{Start: line.RawStart, End: line.Slice.End}
}

// NewlineSpan returns the span of the line's line ending.
func (line Line) NewlineSpan() Span {
	start := line.Slice.End + 1
	return SpanOf(start, start+line.Newline.Len())
}
