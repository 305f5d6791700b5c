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

// ExtendSpan moves the end of n's span to end (inclusive)
// if it does not already reach that far,
// then does the same for each ancestor.
// Propagation stops at the first ancestor whose span already covers end.
func (n Node) ExtendSpan(end int) {
	for curr := n; !curr.IsNil(); curr = curr.Parent() {
		r := curr.rec()
		if !r.span.IsValid() {
			r.span = Span{Start: end, End: end}
			continue
		}
		if r.span.End >= end {
			return
		}
		r.span.End = end
	}
}

// growSpan widens n and its ancestors to include span.
func (n Node) growSpan(span Span) {
	for curr := n; !curr.IsNil(); curr = curr.Parent() {
		r := curr.rec()
		if r.span.Contains(span) {
			return
		}
		r.span = r.span.Union(span)
	}
}

// UpdateSpanFromChildren recomputes the span of a container
// as the union of its current span and its children's spans.
// It does not modify ancestors.
func (n Node) UpdateSpanFromChildren() {
	if n.IsNil() || n.FirstChild().IsNil() {
		return
	}
	span := n.Span()
	for c := range n.Children() {
		span = span.Union(c.Span())
	}
	n.SetSpan(span)
}

// A SpanError describes a node whose span
// lies outside of its parent's span.
type SpanError struct {
	Node   Node
	Parent Node
}

// Error returns a description of the offending spans.
func (e *SpanError) Error() string {
	return fmt.Sprintf("%v span %v exceeds parent %v span %v",
		e.Node.Kind(), e.Node.Span(), e.Parent.Kind(), e.Parent.Span())
}

// ValidateSpans reports every descendant of root
// whose span is not contained within its parent's span.
// Nodes with null spans are not checked.
func ValidateSpans(root Node) []*SpanError {
	var errs []*SpanError
	for n := range root.Descendants() {
		span := n.Span()
		if !span.IsValid() {
			continue
		}
		parent := n.Parent()
		for !parent.IsNil() && !parent.Span().IsValid() {
			parent = parent.Parent()
		}
		if parent.IsNil() {
			continue
		}
		if !parent.Span().Contains(span) {
			errs = append(errs, &SpanError{Node: n, Parent: parent})
		}
	}
	return errs
}
