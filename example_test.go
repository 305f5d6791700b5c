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

package markdown_test

import (
	"fmt"
	"os"

	"zombiezen.com/go/markdown"
	"zombiezen.com/go/markdown/extension"
)

func Example() {
	// Convert CommonMark to a parse tree.
	doc := markdown.Parse("Hello, **World**!\n")
	// Render parse tree to HTML.
	markdown.RenderHTML(os.Stdout, doc)
	// Output:
	// <p>Hello, <strong>World</strong>!</p>
}

func ExampleDocument_References() {
	doc := markdown.Parse(
		"Hello, [World][]!\n" +
			"\n" +
			"[World]: https://www.example.com/\n",
	)
	def, _ := doc.References().Lookup("world")
	fmt.Println("Destination:", def.Destination)
	markdown.RenderHTML(os.Stdout, doc)
	// Output:
	// Destination: https://www.example.com/
	// <p>Hello, <a href="https://www.example.com/">World</a>!</p>
}

func ExamplePipelineBuilder() {
	b := markdown.NewPipelineBuilder()
	if err := b.Use(extension.Strikethrough); err != nil {
		panic(err)
	}
	pl, err := b.Build()
	if err != nil {
		panic(err)
	}
	doc := pl.Parse("Hello, ~~World~~!\n")

	r := &markdown.HTMLRenderer{Handlers: markdown.DefaultHTMLHandlers()}
	if err := extension.Strikethrough.SetupHTML(r.Handlers); err != nil {
		panic(err)
	}
	r.Render(os.Stdout, doc)
	// Output:
	// <p>Hello, <del>World</del>!</p>
}

func ExampleDumpWith() {
	doc := markdown.Parse("Hello, *World*!\n")
	markdown.DumpWith(os.Stdout, doc.Root(), nil)
	// Output:
	// Document
	//   Paragraph
	//     InlineRoot
	//       Text "Hello, "
	//       Emphasis
	//         Text "World"
	//       Text "!"
}

func ExampleWalk() {
	doc := markdown.Parse("# Intro\n\nSome text.\n\n## Details\n")
	markdown.Walk(doc.Root(), &markdown.WalkOptions{
		Pre: func(c *markdown.Cursor) bool {
			n := c.Node()
			switch n.Kind() {
			case markdown.ATXHeadingKind, markdown.SetextHeadingKind:
				fmt.Println(n.HeadingLevel(), markdown.PlainText(n))
				return false
			}
			return n.Kind().IsBlock()
		},
	})
	// Output:
	// 1 Intro
	// 2 Details
}

func ExampleConfig() {
	cfg, err := markdown.ParseConfig([]byte("html:\n  softBreak: space\n"))
	if err != nil {
		panic(err)
	}
	pl, err := cfg.NewPipeline(nil, nil)
	if err != nil {
		panic(err)
	}
	r, err := cfg.HTMLRenderer(nil)
	if err != nil {
		panic(err)
	}
	r.Render(os.Stdout, pl.Parse("Hello\nWorld\n"))
	// Output:
	// <p>Hello World</p>
}
