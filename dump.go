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
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// DumpOptions is the set of parameters to [DumpWith].
type DumpOptions struct {
	// Spans includes each node's source span.
	Spans bool
	// Trivia includes each block's trivia segments.
	Trivia bool
}

// Dump writes an indented description of the tree rooted at n to w,
// one node per line, including source spans.
func Dump(w io.Writer, n Node) error {
	return DumpWith(w, n, &DumpOptions{Spans: true})
}

// DumpWith writes an indented description of the tree rooted at n to w.
func DumpWith(w io.Writer, n Node, opts *DumpOptions) error {
	if opts == nil {
		opts = new(DumpOptions)
	}
	sb := new(strings.Builder)
	Walk(n, &WalkOptions{
		Pre: func(c *Cursor) bool {
			indent := strings.Repeat("  ", c.Depth())
			sb.WriteString(indent)
			dumpNode(sb, c.Node(), opts)
			sb.WriteString("\n")
			if opts.Trivia {
				for _, t := range c.Node().Trivia() {
					fmt.Fprintf(sb, "%s  ~%v %v %q\n", indent, t.Kind, t.Span, t.Span.Slice(c.Node().Document().Source()))
				}
			}
			return true
		},
	})
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return errors.Wrap(err, "dump markdown tree")
	}
	return nil
}

// DumpString returns the output of [Dump] as a string.
func DumpString(n Node) string {
	sb := new(strings.Builder)
	Dump(sb, n)
	return sb.String()
}

func dumpNode(sb *strings.Builder, n Node, opts *DumpOptions) {
	sb.WriteString(n.Kind().String())
	if span := n.Span(); opts.Spans && span.IsValid() {
		sb.WriteString(" ")
		sb.WriteString(span.String())
	}
	attr := func(key, value string) {
		sb.WriteString(" ")
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(value)
	}

	switch k := n.Kind(); k {
	case ATXHeadingKind, SetextHeadingKind:
		attr("level", strconv.Itoa(n.HeadingLevel()))
	case ListKind:
		if n.IsOrderedList() {
			attr("start", strconv.Itoa(n.ListStart()))
		}
		attr("marker", strconv.QuoteRune(rune(n.ListMarker())))
		attr("tight", strconv.FormatBool(n.IsTightList()))
	case FencedCodeKind:
		attr("fence", strings.Repeat(string(n.FenceChar()), n.FenceLength()))
		if info := n.Info(); info != "" {
			attr("info", strconv.Quote(info))
		}
	case HTMLBlockKind:
		attr("condition", strconv.Itoa(n.HTMLBlockCondition()))
	case LinkReferenceDefinitionKind:
		def := n.LinkDefinition()
		attr("label", strconv.Quote(def.Label))
		attr("dest", strconv.Quote(def.Destination))
		if def.TitlePresent {
			attr("title", strconv.Quote(def.Title))
		}
	case EmphasisKind, StrongKind:
		// Kind says it all.
	case LinkKind, ImageKind:
		attr("dest", strconv.Quote(n.Destination()))
		if n.TitlePresent() {
			attr("title", strconv.Quote(n.Title()))
		}
		if rt := n.ReferenceType(); rt != InlineLink {
			attr("ref", rt.String())
		}
	case AutolinkKind:
		attr("dest", strconv.Quote(n.Destination()))
	default:
		if k.IsInline() {
			if c := n.DelimiterChar(); c != 0 && k.IsContainer() {
				attr("delim", strings.Repeat(string(c), n.DelimiterCount()))
			}
		}
	}

	switch {
	case n.Kind().IsInline() && !n.Kind().IsContainer() && n.Text() != "":
		sb.WriteString(" ")
		sb.WriteString(strconv.Quote(n.Text()))
	case n.Kind().Class() == LeafBlockClass && !n.ProcessInlines() && n.Kind() != LinkReferenceDefinitionKind:
		lines := n.Lines()
		if len(lines) == 0 {
			break
		}
		text := new(strings.Builder)
		for _, line := range lines {
			text.WriteString(line.Text())
			text.WriteString("\n")
		}
		sb.WriteString(" ")
		sb.WriteString(strconv.Quote(text.String()))
	}
}
