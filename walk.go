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

// A Cursor describes a [Node] encountered during [Walk].
type Cursor struct {
	node  Node
	depth int
}

// Node returns the current [Node].
func (c *Cursor) Node() Node {
	return c.node
}

// Parent returns the parent of the current [Node]
// (as returned by [*Cursor.Node]).
func (c *Cursor) Parent() Node {
	return c.node.Parent()
}

// Depth returns the number of ancestors between the current node
// and the root passed to [Walk].
// The root itself has depth zero.
func (c *Cursor) Depth() int {
	return c.depth
}

// WalkOptions is the set of parameters to [Walk].
type WalkOptions struct {
	// If Pre is not nil, it is called for each node before the node's children are traversed (pre-order).
	// If Pre returns false, no children are traversed, and Post is not called for that node.
	Pre func(c *Cursor) bool
	// If Post is not nil, it is called for each node after the node's children are traversed (post-order).
	// If Post returns false, traversal is terminated and Walk returns immediately.
	Post func(c *Cursor) bool
}

// Walk traverses the tree rooted at root in document order,
// calling [WalkOptions.Pre] and [WalkOptions.Post].
// The callbacks must not add or remove nodes
// outside the subtree of the current node.
func Walk(root Node, opts *WalkOptions) {
	if root.IsNil() {
		return
	}
	cursor := &Cursor{node: root}
	for {
		// Descend.
		descend := true
		if opts.Pre != nil {
			descend = opts.Pre(cursor)
		}
		if descend {
			if child := cursor.node.FirstChild(); !child.IsNil() {
				cursor.node = child
				cursor.depth++
				continue
			}
			if opts.Post != nil && !opts.Post(cursor) {
				return
			}
		}

		// Ascend until a node has a next sibling.
		for {
			if cursor.depth == 0 {
				return
			}
			if next := cursor.node.NextSibling(); !next.IsNil() {
				cursor.node = next
				break
			}
			cursor.node = cursor.node.Parent()
			cursor.depth--
			if opts.Post != nil && !opts.Post(cursor) {
				return
			}
		}
	}
}
