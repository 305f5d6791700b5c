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
	"iter"
	"sort"

	"github.com/cockroachdb/errors"
)

// A Document is a parsed Markdown document.
// It owns the source text and every node in the tree.
type Document struct {
	source     string
	nodes      []nodeRecord
	lineStarts []int
	refs       ReferenceMap
	data       map[dataSlot]any
}

// nodeID is an index into [Document.nodes].
// Zero is never a valid node.
type nodeID int32

type nodeFlags uint16

const (
	flagOpen nodeFlags = 1 << iota
	flagBreakable
	flagAcceptsLines
	flagProcessInlines
	flagRemoveAfterInlines
	flagLastLineBlank
	flagTight
	flagTitlePresent
)

type nodeRecord struct {
	kind   Kind
	flags  nodeFlags
	parser int16 // index into the parse's block parsers plus one
	span   Span

	parent     nodeID
	firstChild nodeID
	lastChild  nodeID
	prev       nodeID
	next       nodeID
	childCount int32

	lines  []Line
	text   string
	attrs  *nodeAttrs
	trivia []Trivia
}

// nodeAttrs holds kind-specific attributes.
type nodeAttrs struct {
	level    int  // heading level, ordered list start, HTML block condition
	char     byte // list marker, fence character, delimiter character
	count    int  // fence length, delimiter count
	indent   int  // fence indent, list marker offset
	padding  int  // list item content padding
	info     string
	infoSpan Span

	destination string
	title       string
	label       string
	refType     ReferenceType
	labelSpan   Span
	destSpan    Span
	titleSpan   Span
}

func newDocument(source string) *Document {
	doc := &Document{
		source: source,
		nodes:  make([]nodeRecord, 1, 16),
	}
	doc.lineStarts = append(doc.lineStarts, 0)
	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '\r':
			if i+1 < len(source) && source[i+1] == '\n' {
				i++
			}
			doc.lineStarts = append(doc.lineStarts, i+1)
		case '\n':
			doc.lineStarts = append(doc.lineStarts, i+1)
		}
	}
	root := doc.newNode(DocumentKind)
	doc.nodes[root].span = SpanOf(0, 0)
	return doc
}

// Source returns the text the document was parsed from.
func (doc *Document) Source() string {
	return doc.source
}

// Root returns the document's root node,
// which has [DocumentKind].
func (doc *Document) Root() Node {
	return Node{doc: doc, id: 1}
}

// References returns the document's link reference definitions.
func (doc *Document) References() ReferenceMap {
	return doc.refs
}

// Position converts a byte offset in the source
// into a 1-based line and column.
// The column is measured in bytes.
func (doc *Document) Position(offset int) (line, column int) {
	if offset < 0 {
		return 0, 0
	}
	i := sort.Search(len(doc.lineStarts), func(i int) bool {
		return doc.lineStarts[i] > offset
	})
	return i, offset - doc.lineStarts[i-1] + 1
}

// NewNode returns a new detached node of the given kind
// with a null span.
// Use [Node.AppendChild] or [Node.InsertChild] to add it to the tree.
func (doc *Document) NewNode(kind Kind) Node {
	return Node{doc: doc, id: doc.newNode(kind)}
}

// NewText returns a new detached [TextKind] node.
func (doc *Document) NewText(text string, span Span) Node {
	id := doc.newNode(TextKind)
	doc.nodes[id].text = text
	doc.nodes[id].span = span
	return Node{doc: doc, id: id}
}

func (doc *Document) newNode(kind Kind) nodeID {
	doc.nodes = append(doc.nodes, nodeRecord{
		kind: kind,
		span: NullSpan(),
	})
	return nodeID(len(doc.nodes) - 1)
}

func (doc *Document) node(id nodeID) *nodeRecord {
	return &doc.nodes[id]
}

// A Node is a handle to an element of a [Document]'s tree.
// Nodes are small values that can be compared with ==.
// The zero Node is nil: its methods return zero values.
type Node struct {
	doc *Document
	id  nodeID
}

// IsNil reports whether n refers to no node.
func (n Node) IsNil() bool {
	return n.doc == nil || n.id == 0
}

func (n Node) rec() *nodeRecord {
	return &n.doc.nodes[n.id]
}

func (n Node) wrap(id nodeID) Node {
	if id == 0 {
		return Node{}
	}
	return Node{doc: n.doc, id: id}
}

// Document returns the document that owns the node.
func (n Node) Document() *Document {
	if n.IsNil() {
		return nil
	}
	return n.doc
}

// Kind returns the type of the node
// or zero if the node is nil.
func (n Node) Kind() Kind {
	if n.IsNil() {
		return 0
	}
	return n.rec().kind
}

// Span returns the source span of the node.
// Inline nodes have a null span
// unless the pipeline enables precise source locations.
func (n Node) Span() Span {
	if n.IsNil() {
		return NullSpan()
	}
	return n.rec().span
}

// SetSpan sets the node's source span without propagating it.
// Use [Node.ExtendSpan] to grow ancestors as well.
func (n Node) SetSpan(span Span) {
	if n.IsNil() {
		return
	}
	n.rec().span = span
}

// Line returns the 1-based line number where the node starts.
// Nodes without a valid span report the line of their closest ancestor that has one.
func (n Node) Line() int {
	line, _ := n.position()
	return line
}

// Column returns the 1-based byte column where the node starts.
func (n Node) Column() int {
	_, col := n.position()
	return col
}

func (n Node) position() (line, column int) {
	for curr := n; !curr.IsNil(); curr = curr.Parent() {
		if span := curr.Span(); span.IsValid() {
			return n.doc.Position(span.Start)
		}
	}
	return 0, 0
}

// Parent returns the node's parent
// or nil if the node is the root or detached.
// The parent of an [InlineRootKind] node is the leaf block that owns it.
func (n Node) Parent() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.wrap(n.rec().parent)
}

// FirstChild returns the node's first child or nil.
func (n Node) FirstChild() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.wrap(n.rec().firstChild)
}

// LastChild returns the node's last child or nil.
func (n Node) LastChild() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.wrap(n.rec().lastChild)
}

// NextSibling returns the node that follows n in its parent or nil.
func (n Node) NextSibling() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.wrap(n.rec().next)
}

// PrevSibling returns the node that precedes n in its parent or nil.
func (n Node) PrevSibling() Node {
	if n.IsNil() {
		return Node{}
	}
	return n.wrap(n.rec().prev)
}

// ChildCount returns the number of children the node has.
// Calling ChildCount on nil returns 0.
func (n Node) ChildCount() int {
	if n.IsNil() {
		return 0
	}
	return int(n.rec().childCount)
}

// Child returns the i'th child of the node
// or nil if i is out of range.
func (n Node) Child(i int) Node {
	if i < 0 || i >= n.ChildCount() {
		return Node{}
	}
	c := n.FirstChild()
	for ; i > 0; i-- {
		c = c.NextSibling()
	}
	return c
}

// Children returns an iterator over the node's direct children.
func (n Node) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for c := n.FirstChild(); !c.IsNil(); {
			// Advance before yielding so that the callback may detach c.
			next := c.NextSibling()
			if !yield(c) {
				return
			}
			c = next
		}
	}
}

// Descendants returns an iterator over the node's descendants
// (blocks and inlines) in document order, not including n itself.
func (n Node) Descendants() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if n.IsNil() {
			return
		}
		curr := n.FirstChild()
		for !curr.IsNil() {
			if !yield(curr) {
				return
			}
			if c := curr.FirstChild(); !c.IsNil() {
				curr = c
				continue
			}
			for curr != n {
				if next := curr.NextSibling(); !next.IsNil() {
					curr = next
					break
				}
				curr = curr.Parent()
			}
			if curr == n {
				return
			}
		}
	}
}

// IsOpen reports whether the block is still accepting lines.
// It is always false after parsing completes.
func (n Node) IsOpen() bool {
	return n.hasFlag(flagOpen)
}

// IsBreakable reports whether the block may be interrupted
// by the start of another block.
func (n Node) IsBreakable() bool {
	return n.hasFlag(flagBreakable)
}

// SetBreakable sets whether the block may be interrupted.
func (n Node) SetBreakable(b bool) {
	n.setFlag(flagBreakable, b)
}

// AcceptsLines reports whether the block collects lines of content.
func (n Node) AcceptsLines() bool {
	return n.hasFlag(flagAcceptsLines)
}

// SetAcceptsLines sets whether the block collects lines of content.
func (n Node) SetAcceptsLines(b bool) {
	n.setFlag(flagAcceptsLines, b)
}

// ProcessInlines reports whether the leaf block's lines
// will be parsed into inline content.
func (n Node) ProcessInlines() bool {
	return n.hasFlag(flagProcessInlines)
}

// SetProcessInlines sets whether the leaf block's lines
// will be parsed into inline content.
func (n Node) SetProcessInlines(b bool) {
	n.setFlag(flagProcessInlines, b)
}

// RemoveAfterInlineProcessing reports whether the block
// is removed from the tree once inline processing finishes.
func (n Node) RemoveAfterInlineProcessing() bool {
	return n.hasFlag(flagRemoveAfterInlines)
}

// SetRemoveAfterInlineProcessing sets whether the block
// is removed from the tree once inline processing finishes.
func (n Node) SetRemoveAfterInlineProcessing(b bool) {
	n.setFlag(flagRemoveAfterInlines, b)
}

func (n Node) hasFlag(f nodeFlags) bool {
	return !n.IsNil() && n.rec().flags&f != 0
}

func (n Node) setFlag(f nodeFlags, b bool) {
	if n.IsNil() {
		return
	}
	if b {
		n.rec().flags |= f
	} else {
		n.rec().flags &^= f
	}
}

// Lines returns the lines of a leaf block.
// The lines refer to the document source; they are not copies.
func (n Node) Lines() []Line {
	if n.IsNil() {
		return nil
	}
	return n.rec().lines
}

// Inline returns the root container inline of a leaf block
// or nil if the block has no inline content.
func (n Node) Inline() Node {
	if c := n.FirstChild(); c.Kind() == InlineRootKind {
		return c
	}
	return Node{}
}

// OwnerBlock returns the leaf block that holds an [InlineRootKind] node.
// It returns nil for all other nodes.
func (n Node) OwnerBlock() Node {
	if n.Kind() != InlineRootKind {
		return Node{}
	}
	return n.Parent()
}

// Text returns the literal content of a leaf inline,
// such as a [TextKind] or [CodeSpanKind] node.
// For other nodes, it returns the empty string.
func (n Node) Text() string {
	if n.IsNil() {
		return ""
	}
	return n.rec().text
}

// SetText sets the node's literal content.
func (n Node) SetText(s string) {
	if n.IsNil() {
		return
	}
	n.rec().text = s
}

func (n Node) attrs() *nodeAttrs {
	if n.IsNil() {
		return new(nodeAttrs)
	}
	r := n.rec()
	if r.attrs == nil {
		r.attrs = new(nodeAttrs)
	}
	return r.attrs
}

func (n Node) peekAttrs() *nodeAttrs {
	if n.IsNil() || n.rec().attrs == nil {
		return &nodeAttrs{}
	}
	return n.rec().attrs
}

// HeadingLevel returns the 1-based level of a heading
// or zero if the node is not a heading.
func (n Node) HeadingLevel() int {
	switch n.Kind() {
	case ATXHeadingKind, SetextHeadingKind:
		return n.peekAttrs().level
	default:
		return 0
	}
}

// IsOrderedList reports whether the list or list item uses ordinal markers.
func (n Node) IsOrderedList() bool {
	switch n.Kind() {
	case ListKind, ListItemKind:
		c := n.peekAttrs().char
		return c == '.' || c == ')'
	default:
		return false
	}
}

// ListMarker returns the bullet character ('-', '+', or '*')
// or ordinal delimiter ('.' or ')') of a list or list item.
func (n Node) ListMarker() byte {
	switch n.Kind() {
	case ListKind, ListItemKind:
		return n.peekAttrs().char
	default:
		return 0
	}
}

// ListStart returns the number of the first item of an ordered list.
func (n Node) ListStart() int {
	if !n.IsOrderedList() {
		return 0
	}
	return n.peekAttrs().level
}

// IsTightList reports whether the list is [tight].
//
// [tight]: https://spec.commonmark.org/0.31.2/#tight
func (n Node) IsTightList() bool {
	return n.Kind() == ListKind && n.hasFlag(flagTight)
}

// FenceChar returns the character used in a fenced code block's fence.
func (n Node) FenceChar() byte {
	if n.Kind() != FencedCodeKind {
		return 0
	}
	return n.peekAttrs().char
}

// FenceLength returns the number of characters in a fenced code block's opening fence.
func (n Node) FenceLength() int {
	if n.Kind() != FencedCodeKind {
		return 0
	}
	return n.peekAttrs().count
}

// Info returns the unescaped [info string] of a fenced code block.
// For a [CharacterReferenceKind] node, it returns the reference as written,
// such as "&amp;".
//
// [info string]: https://spec.commonmark.org/0.31.2/#info-string
func (n Node) Info() string {
	return n.peekAttrs().info
}

// InfoSpan returns the source span of the raw info string.
func (n Node) InfoSpan() Span {
	if n.Kind() != FencedCodeKind {
		return NullSpan()
	}
	return n.peekAttrs().infoSpan
}

// HTMLBlockCondition returns which of the seven [HTML block] start conditions
// opened an HTML block.
//
// [HTML block]: https://spec.commonmark.org/0.31.2/#html-blocks
func (n Node) HTMLBlockCondition() int {
	if n.Kind() != HTMLBlockKind {
		return 0
	}
	return n.peekAttrs().level
}

// DelimiterChar returns the delimiter character
// that produced an emphasis-like container inline.
func (n Node) DelimiterChar() byte {
	if !n.Kind().IsInline() {
		return 0
	}
	return n.peekAttrs().char
}

// DelimiterCount returns the number of delimiter characters consumed on each side
// of an emphasis-like container inline.
func (n Node) DelimiterCount() int {
	if !n.Kind().IsInline() {
		return 0
	}
	return n.peekAttrs().count
}

// SetDelimiter records the delimiter that produced an inline node.
// It is intended for [DelimiterRule.Create] implementations.
func (n Node) SetDelimiter(c byte, count int) {
	if n.IsNil() {
		return
	}
	a := n.attrs()
	a.char = c
	a.count = count
}

// Destination returns the destination of a link, image,
// autolink, or link reference definition.
func (n Node) Destination() string {
	return n.peekAttrs().destination
}

// Title returns the title of a link, image, or link reference definition.
func (n Node) Title() string {
	return n.peekAttrs().title
}

// TitlePresent reports whether the link, image, or link reference definition
// has a title, even an empty one.
func (n Node) TitlePresent() bool {
	return n.hasFlag(flagTitlePresent)
}

// Label returns the raw label of a reference link, image,
// or link reference definition.
func (n Node) Label() string {
	return n.peekAttrs().label
}

// ReferenceType returns how a link or image was resolved.
func (n Node) ReferenceType() ReferenceType {
	switch n.Kind() {
	case LinkKind, ImageKind:
		return n.peekAttrs().refType
	default:
		return 0
	}
}

// LinkDefinition returns the definition held by
// a [LinkReferenceDefinitionKind] node.
func (n Node) LinkDefinition() *LinkDefinition {
	if n.Kind() != LinkReferenceDefinitionKind {
		return nil
	}
	a := n.peekAttrs()
	return &LinkDefinition{
		Label:           a.label,
		LabelSpan:       a.labelSpan,
		Destination:     a.destination,
		DestinationSpan: a.destSpan,
		Title:           a.title,
		TitleSpan:       a.titleSpan,
		TitlePresent:    n.TitlePresent(),
		Node:            n,
	}
}

func (n Node) setLink(dest, title string, titlePresent bool) {
	a := n.attrs()
	a.destination = dest
	a.title = title
	n.setFlag(flagTitlePresent, titlePresent)
}

// AppendChild adds child to the end of n's children.
// child must be detached.
// The spans of n and its ancestors grow to include child's span.
func (n Node) AppendChild(child Node) error {
	if err := n.checkChild(child); err != nil {
		return errors.Wrapf(err, "append %v to %v", child.Kind(), n.Kind())
	}
	n.link(child, n.rec().lastChild, 0)
	return nil
}

// InsertChild inserts child so that it becomes the i'th child of n.
// i may be equal to [Node.ChildCount] to append.
func (n Node) InsertChild(i int, child Node) error {
	if err := n.checkChild(child); err != nil {
		return errors.Wrapf(err, "insert %v into %v", child.Kind(), n.Kind())
	}
	if i < 0 || i > n.ChildCount() {
		return errors.Wrapf(ErrIndexOutOfRange, "insert %v into %v at %d (%d children)",
			child.Kind(), n.Kind(), i, n.ChildCount())
	}
	if i == n.ChildCount() {
		n.link(child, n.rec().lastChild, 0)
		return nil
	}
	next := n.Child(i)
	n.link(child, next.rec().prev, next.id)
	return nil
}

// InsertBefore inserts child into n's children before ref.
// If ref is nil, InsertBefore appends child.
func (n Node) InsertBefore(child, ref Node) error {
	if ref.IsNil() {
		return n.AppendChild(child)
	}
	if err := n.checkChild(child); err != nil {
		return errors.Wrapf(err, "insert %v into %v", child.Kind(), n.Kind())
	}
	if ref.Parent() != n {
		return errors.Wrapf(ErrNotChild, "insert before %v in %v", ref.Kind(), n.Kind())
	}
	n.link(child, ref.rec().prev, ref.id)
	return nil
}

// RemoveChild detaches child from n.
// The detached node keeps its own children.
func (n Node) RemoveChild(child Node) error {
	if n.IsNil() || child.IsNil() {
		return errors.Wrap(ErrNilNode, "remove child")
	}
	if child.doc != n.doc || child.rec().parent != n.id {
		return errors.Wrapf(ErrNotChild, "remove %v from %v", child.Kind(), n.Kind())
	}
	child.unlink()
	return nil
}

// Remove detaches n from its parent, if any.
func (n Node) Remove() {
	if n.IsNil() {
		return
	}
	n.unlink()
}

func (n Node) checkChild(child Node) error {
	if n.IsNil() || child.IsNil() {
		return ErrNilNode
	}
	if child.doc != n.doc {
		return errors.Wrap(ErrInvalidChild, "node belongs to another document")
	}
	if child.rec().parent != 0 || child.id == 1 {
		return ErrAlreadyOwned
	}
	if !n.canHold(child.Kind()) {
		return ErrInvalidChild
	}
	for a := n; !a.IsNil(); a = a.Parent() {
		if a == child {
			return errors.Wrap(ErrInvalidChild, "node cannot contain its ancestor")
		}
	}
	return nil
}

// canHold reports whether n may have a child of the given kind.
func (n Node) canHold(kind Kind) bool {
	parent := n.Kind()
	switch parent.Class() {
	case ContainerBlockClass:
		return kind.IsBlock()
	case LeafBlockClass:
		return kind == InlineRootKind && n.ChildCount() == 0
	case ContainerInlineClass:
		return kind.IsInline() && kind != InlineRootKind
	default:
		return false
	}
}

// link inserts child between prev and next, which must be adjacent children of n.
func (n Node) link(child Node, prev, next nodeID) {
	doc := n.doc
	c := child.rec()
	c.parent = n.id
	c.prev = prev
	c.next = next
	if prev == 0 {
		doc.node(n.id).firstChild = child.id
	} else {
		doc.node(prev).next = child.id
	}
	if next == 0 {
		doc.node(n.id).lastChild = child.id
	} else {
		doc.node(next).prev = child.id
	}
	doc.node(n.id).childCount++
	if span := c.span; span.IsValid() {
		n.growSpan(span)
	}
}

func (n Node) unlink() {
	doc := n.doc
	r := n.rec()
	if r.parent == 0 {
		return
	}
	p := doc.node(r.parent)
	if r.prev == 0 {
		p.firstChild = r.next
	} else {
		doc.node(r.prev).next = r.next
	}
	if r.next == 0 {
		p.lastChild = r.prev
	} else {
		doc.node(r.next).prev = r.prev
	}
	p.childCount--
	r.parent, r.prev, r.next = 0, 0, 0
}

// insertAfter places a detached node immediately after n in n's parent.
func (n Node) insertAfter(newNode Node) {
	parent := n.Parent()
	parent.link(newNode, n.id, n.rec().next)
}

// setKind changes the kind of an existing node.
// The new kind must have the same class.
func (n Node) setKind(kind Kind) {
	n.rec().kind = kind
}
