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
	"strings"

	"golang.org/x/net/html/atom"
	"zombiezen.com/go/markdown"
)

// CustomContainerKind is the kind of a [CustomContainers] block.
var CustomContainerKind = markdown.RegisterKind("CustomContainer", markdown.ContainerBlockClass)

// CustomContainers adds fenced container blocks:
//
//	::: warning
//	Contents are *Markdown*.
//	:::
//
// The fence is three or more colons.
// The container closes at a line of at least as many colons
// or at the end of its parent.
// The first word after the opening fence is the container's class,
// rendered as the class of a <div>.
var CustomContainers markdown.HTMLExtension = customContainers{}

// Names of the parser and HTML handler added by [CustomContainers].
const (
	CustomContainerParserName  = "customcontainer"
	CustomContainerHandlerName = "customcontainer"
)

type containerFence struct {
	length int
	info   string
}

var containerFenceKey = markdown.NewDataKey[containerFence]("container fence")

// ContainerInfo returns the text after the opening fence of a custom container.
func ContainerInfo(n markdown.Node) string {
	fence, _ := markdown.GetData(n, containerFenceKey)
	return fence.info
}

type customContainers struct{}

func (customContainers) Name() string { return "containers" }

func (customContainers) Setup(b *markdown.PipelineBuilder) error {
	return b.BlockParsers.InsertBefore(markdown.FencedCodeParserName, containerParser{})
}

func (customContainers) SetupHTML(handlers *markdown.Dispatcher[*markdown.HTMLContext]) error {
	return handlers.InsertBefore(markdown.HTMLChildrenHandlerName, markdown.KindHandler(
		CustomContainerHandlerName,
		renderCustomContainer,
		CustomContainerKind,
	))
}

type containerParser struct{}

func (containerParser) Name() string { return CustomContainerParserName }

func (containerParser) OpeningCharacters() []rune { return []rune{':'} }

func (containerParser) TryOpen(p *markdown.BlockProcessor) markdown.BlockState {
	if p.IsIndented() {
		return markdown.NoMatch
	}
	start := p.NextNonspace()
	rest := p.Line()
	rest.Start = start
	n := colonRun(rest.String())
	if n < 3 {
		return markdown.NoMatch
	}
	p.AdvanceNextNonspace()
	block := p.OpenBlock(CustomContainerKind, start)
	info := rest.String()[n:]
	markdown.SetData(block, containerFenceKey, containerFence{
		length: n,
		info:   strings.TrimSpace(info),
	})
	p.AdvanceToEnd()
	return markdown.MatchedEntireLine
}

func (containerParser) TryContinue(p *markdown.BlockProcessor, block markdown.Node) markdown.BlockState {
	fence, _ := markdown.GetData(block, containerFenceKey)
	if !p.IsIndented() && p.PeekNonspace(0) == ':' {
		rest := p.Line()
		rest.Start = p.NextNonspace()
		line := rest.String()
		if n := colonRun(line); n >= fence.length && strings.TrimSpace(line[n:]) == "" {
			p.AdvanceToEnd()
			p.CloseBlock(block)
			return markdown.MatchedEntireLine
		}
	}
	return markdown.Matched
}

func (containerParser) Close(p *markdown.BlockProcessor, block markdown.Node) {
	if logger := p.Logger(); logger != nil {
		logger.Debug("close custom container", "info", ContainerInfo(block), "line", p.LineNumber())
	}
}

func colonRun(s string) int {
	n := 0
	for n < len(s) && s[n] == ':' {
		n++
	}
	return n
}

func renderCustomContainer(c *markdown.HTMLContext, n markdown.Node) (bool, error) {
	c.CR()
	c.OpenTagAttr(atom.Div)
	if class, _, _ := strings.Cut(ContainerInfo(n), " "); class != "" {
		c.Attr("class", class)
	}
	c.EndTag()
	c.CR()
	if err := c.Children(n); err != nil {
		return true, err
	}
	c.CR()
	c.CloseTag(atom.Div)
	c.CR()
	return true, nil
}
