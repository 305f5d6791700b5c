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
	"strconv"

	"github.com/shurcooL/sanitized_anchor_name"
	"zombiezen.com/go/markdown"
)

// AutoIdentifiers assigns each heading an identifier
// derived from its text.
// Identifiers are unique within a document:
// repeats get a numeric suffix, as in "intro-1".
// The HTML renderer writes the identifier as the heading's id attribute.
var AutoIdentifiers markdown.HTMLExtension = autoIdentifiers{}

// AutoIdentifierHandlerName is the name of the HTML handler
// added by [AutoIdentifiers].
const AutoIdentifierHandlerName = "autoid"

var (
	headingIDKey = markdown.NewDataKey[string]("heading id")
	usedIDsKey   = markdown.NewDataKey[map[string]int]("used heading ids")
)

// HeadingID returns the identifier assigned to a heading by [AutoIdentifiers].
func HeadingID(heading markdown.Node) (id string, ok bool) {
	return markdown.GetData(heading, headingIDKey)
}

type autoIdentifiers struct{}

func (autoIdentifiers) Name() string { return "autoid" }

func (autoIdentifiers) Setup(b *markdown.PipelineBuilder) error {
	b.AddInlineObserver(markdown.InlineObserver{
		Name:          "autoid",
		AfterBlock:    assignHeadingID,
		AfterDocument: clearUsedIDs,
	})
	return nil
}

func assignHeadingID(block markdown.Node) {
	if block.HeadingLevel() == 0 {
		return
	}
	root := block.Document().Root()
	used, ok := markdown.GetData(root, usedIDsKey)
	if !ok {
		used = make(map[string]int)
		markdown.SetData(root, usedIDsKey, used)
	}
	base := sanitized_anchor_name.Create(markdown.PlainText(block))
	if base == "" {
		base = "section"
	}
	id := base
	for {
		n, taken := used[id]
		if !taken {
			break
		}
		used[id] = n + 1
		id = base + "-" + strconv.Itoa(n+1)
	}
	used[id] = 0
	markdown.SetData(block, headingIDKey, id)
}

func clearUsedIDs(doc *markdown.Document) {
	markdown.DeleteData(doc.Root(), usedIDsKey)
}

func (autoIdentifiers) SetupHTML(handlers *markdown.Dispatcher[*markdown.HTMLContext]) error {
	return handlers.InsertBefore(markdown.HTMLHeadingHandlerName, markdown.KindHandler(
		AutoIdentifierHandlerName,
		renderHeadingWithID,
		markdown.ATXHeadingKind,
		markdown.SetextHeadingKind,
	))
}

func renderHeadingWithID(c *markdown.HTMLContext, n markdown.Node) (bool, error) {
	id, ok := HeadingID(n)
	if !ok {
		return false, nil
	}
	tag := markdown.HeadingTag(n.HeadingLevel())
	c.CR()
	c.OpenTagAttr(tag)
	c.Attr("id", id)
	c.EndTag()
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CloseTag(tag)
	c.CR()
	return true, nil
}
