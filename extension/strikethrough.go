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

package extension

import (
	"golang.org/x/net/html/atom"
	"zombiezen.com/go/markdown"
)

// StrikethroughKind is the kind of a [Strikethrough] node.
var StrikethroughKind = markdown.RegisterKind("Strikethrough", markdown.ContainerInlineClass)

// Strikethrough adds [GitHub strikethrough] text
// delimited by one or two tildes.
//
// [GitHub strikethrough]: https://github.github.com/gfm/#strikethrough-extension-
var Strikethrough markdown.HTMLExtension = strikethrough{}

// StrikethroughHandlerName is the name of the HTML handler
// added by [Strikethrough].
const StrikethroughHandlerName = "strikethrough"

type strikethrough struct{}

func (strikethrough) Name() string { return "strikethrough" }

func (strikethrough) Setup(b *markdown.PipelineBuilder) error {
	b.AddDelimiterRule(markdown.DelimiterRule{
		Char:       '~',
		MinRun:     1,
		MaxRun:     2,
		MaxConsume: 2,
		WithinWord: true,
		Create:     newStrikethrough,
	})
	return nil
}

func newStrikethrough(doc *markdown.Document, char byte, count int) markdown.Node {
	n := doc.NewNode(StrikethroughKind)
	n.SetDelimiter(char, count)
	return n
}

func (strikethrough) SetupHTML(handlers *markdown.Dispatcher[*markdown.HTMLContext]) error {
	return handlers.InsertBefore(markdown.HTMLChildrenHandlerName, markdown.KindHandler(
		StrikethroughHandlerName,
		renderStrikethrough,
		StrikethroughKind,
	))
}

func renderStrikethrough(c *markdown.HTMLContext, n markdown.Node) (bool, error) {
	c.OpenTag(atom.Del)
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CloseTag(atom.Del)
	return true, nil
}
