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

import "fmt"

// Span is a range of bytes in a document's source.
// Both Start and End are inclusive,
// so an empty span has End == Start-1.
type Span struct {
	Start int
	End   int
}

// NullSpan returns an invalid span.
func NullSpan() Span {
	return Span{Start: -1, End: -1}
}

// SpanOf returns the span covering the half-open byte range [start, end).
func SpanOf(start, end int) Span {
	return Span{Start: start, End: end - 1}
}

// IsValid reports whether the span refers to a position in the source.
func (span Span) IsValid() bool {
	return span.Start >= 0 && span.End >= span.Start-1
}

// Len returns the number of bytes in the span
// or zero if the span is invalid.
func (span Span) Len() int {
	if !span.IsValid() {
		return 0
	}
	return span.End - span.Start + 1
}

// IsEmpty reports whether the span covers no bytes.
func (span Span) IsEmpty() bool {
	return span.Len() == 0
}

// Contains reports whether other lies entirely within span.
// Invalid spans are never contained and never contain anything.
func (span Span) Contains(other Span) bool {
	if !span.IsValid() || !other.IsValid() {
		return false
	}
	if other.IsEmpty() {
		return span.Start <= other.Start && other.Start <= span.End+1
	}
	return span.Start <= other.Start && other.End <= span.End
}

// Union returns the smallest span that contains both spans.
// Invalid spans are ignored.
func (span Span) Union(other Span) Span {
	switch {
	case !span.IsValid():
		return other
	case !other.IsValid():
		return span
	}
	return Span{
		Start: min(span.Start, other.Start),
		End:   max(span.End, other.End),
	}
}

// Slice returns the bytes of source covered by the span,
// or the empty string if the span is invalid.
func (span Span) Slice(source string) string {
	if !span.IsValid() {
		return ""
	}
	return source[span.Start : span.End+1]
}

// String formats the span as "start-end".
func (span Span) String() string {
	if !span.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d-%d", span.Start, span.End)
}
