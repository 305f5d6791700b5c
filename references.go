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
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"zombiezen.com/go/markdown/internal/logging"
)

// ReferenceType describes how a link or image obtained its destination.
type ReferenceType int8

const (
	// InlineLink is a link with an inline destination, like [text](/url).
	InlineLink ReferenceType = iota
	// FullReference is a link like [text][label].
	FullReference
	// CollapsedReference is a link like [label][].
	CollapsedReference
	// ShortcutReference is a link like [label].
	ShortcutReference
)

// String returns the name of the reference type.
func (typ ReferenceType) String() string {
	switch typ {
	case InlineLink:
		return "InlineLink"
	case FullReference:
		return "FullReference"
	case CollapsedReference:
		return "CollapsedReference"
	case ShortcutReference:
		return "ShortcutReference"
	default:
		return "ReferenceType(?)"
	}
}

// LinkDefinition is the data of a [link reference definition].
//
// [link reference definition]: https://spec.commonmark.org/0.31.2/#link-reference-definition
type LinkDefinition struct {
	// Label is the raw label text, not including the brackets.
	Label     string
	LabelSpan Span
	// Destination is the destination with escapes and entities decoded.
	Destination     string
	DestinationSpan Span
	Title           string
	TitleSpan       Span
	TitlePresent    bool
	// Node is the [LinkReferenceDefinitionKind] node
	// that holds the definition.
	Node Node
}

// ReferenceMap is a mapping of [normalized labels] to link definitions.
//
// [normalized labels]: https://spec.commonmark.org/0.31.2/#matches
type ReferenceMap map[string]LinkDefinition

// MatchReference reports whether the normalized label appears in the map.
func (m ReferenceMap) MatchReference(normalizedLabel string) bool {
	_, ok := m[normalizedLabel]
	return ok
}

// Lookup returns the definition that matches the given raw label.
func (m ReferenceMap) Lookup(label string) (LinkDefinition, bool) {
	key := NormalizeLabel(label)
	if key == "" {
		return LinkDefinition{}, false
	}
	def, ok := m[key]
	return def, ok
}

// NormalizeLabel returns the key used to match a link label
// against link reference definitions.
// Whitespace runs are collapsed to a single space,
// leading and trailing whitespace is removed,
// and the result is case folded with diacritics removed.
// NormalizeLabel returns the empty string for labels that contain only whitespace.
func NormalizeLabel(label string) string {
	label = strings.Join(strings.FieldsFunc(label, isUnicodeWhitespace), " ")
	if label == "" {
		return ""
	}
	if isASCII(label) {
		return strings.ToLower(label)
	}
	stripped, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), label)
	if err == nil {
		label = stripped
	}
	return cases.Fold().String(label)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// refDefMatch is the result of parsing a link reference definition.
// Offsets are relative to the parsed text and half-open.
type refDefMatch struct {
	label      string
	labelStart int
	labelEnd   int

	destination string
	destStart   int
	destEnd     int

	title        string
	titlePresent bool
	titleStart   int
	titleEnd     int

	// end is the number of bytes consumed,
	// including the line ending that follows the definition.
	end int
}

// parseLinkReferenceDefinition parses a [link reference definition]
// at the start of s.
// s must consist of whole lines, each terminated by '\n'.
//
// [link reference definition]: https://spec.commonmark.org/0.31.2/#link-reference-definition
func parseLinkReferenceDefinition(s string) (refDefMatch, bool) {
	var m refDefMatch
	labelEnd := scanLinkLabel(s, 0)
	if labelEnd < 0 || labelEnd >= len(s) || s[labelEnd] != ':' {
		return refDefMatch{}, false
	}
	m.label = s[1 : labelEnd-1]
	m.labelStart = 0
	m.labelEnd = labelEnd

	i := skipSpaceNewline(s, labelEnd+1)
	dest, destEnd, ok := scanLinkDestination(s, i)
	if !ok {
		return refDefMatch{}, false
	}
	m.destination = dest
	m.destStart = i
	m.destEnd = destEnd

	beforeTitle := destEnd
	if i := skipSpaceNewline(s, beforeTitle); i > beforeTitle {
		if title, titleEnd, ok := scanLinkTitle(s, i); ok {
			if end, ok := lineEndAfter(s, titleEnd); ok {
				m.title = title
				m.titlePresent = true
				m.titleStart = i
				m.titleEnd = titleEnd
				m.end = end
			}
		}
	}
	if !m.titlePresent {
		end, ok := lineEndAfter(s, beforeTitle)
		if !ok {
			return refDefMatch{}, false
		}
		m.end = end
	}
	if NormalizeLabel(m.label) == "" {
		return refDefMatch{}, false
	}
	return m, true
}

// lineEndAfter skips spaces and tabs starting at s[i]
// and reports whether they are followed by a line ending or the end of s.
// It returns the offset after the line ending.
func lineEndAfter(s string, i int) (end int, ok bool) {
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	switch {
	case i >= len(s):
		return i, true
	case s[i] == '\n':
		return i + 1, true
	default:
		return 0, false
	}
}

// extractLinkReferenceDefinitions removes link reference definitions
// from the start of a paragraph.
// Each definition becomes a [LinkReferenceDefinitionKind] node
// inserted before the paragraph and is added to the document's references.
func extractLinkReferenceDefinitions(p *BlockProcessor, para Node) {
	lines := para.Lines()
	if len(lines) == 0 || lines[0].Slice.Current() != '[' {
		return
	}
	doc := para.Document()
	m := newLineMap(lines, true)
	pos, used := 0, 0
	for pos < len(m.content) && m.content[pos] == '[' {
		def, ok := parseLinkReferenceDefinition(m.content[pos:])
		if !ok {
			break
		}
		k := strings.Count(m.content[pos:pos+def.end], "\n")
		defLines := lines[used : used+k : used+k]
		node := doc.NewNode(LinkReferenceDefinitionKind)
		node.rec().lines = defLines
		node.SetSpan(SpanOf(defLines[0].RawStart, defLines[k-1].Slice.End+1))
		a := node.attrs()
		a.label = def.label
		a.labelSpan = m.sourceSpan(pos+def.labelStart, pos+def.labelEnd)
		a.destination = def.destination
		a.destSpan = m.sourceSpan(pos+def.destStart, pos+def.destEnd)
		if def.titlePresent {
			a.title = def.title
			a.titleSpan = m.sourceSpan(pos+def.titleStart, pos+def.titleEnd)
			node.setFlag(flagTitlePresent, true)
		} else {
			a.titleSpan = NullSpan()
		}
		para.Parent().InsertBefore(node, para)

		key := NormalizeLabel(def.label)
		if _, exists := doc.refs[key]; !exists {
			if doc.refs == nil {
				doc.refs = make(ReferenceMap)
			}
			doc.refs[key] = *node.LinkDefinition()
		} else if logger := p.Logger(); logger != nil {
			logger.Debug("duplicate link reference definition", "label", key, logging.FieldLine, defLines[0].Number)
		}

		used += k
		pos += def.end
	}
	if used == 0 {
		return
	}
	r := para.rec()
	r.lines = lines[used:]
	if len(r.lines) > 0 {
		r.span.Start = r.lines[0].RawStart
	}
}
