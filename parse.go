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

// Package markdown provides an extensible [CommonMark] parser.
//
// Parsing happens in two passes.
// The block pass splits the source into lines
// and feeds them through the registered [BlockParser] values
// to build the tree of blocks.
// The inline pass then runs the registered [InlineParser] values
// over the content of each leaf block that processes inlines,
// resolving emphasis with [DelimiterRule] values
// and links against the document's link reference definitions.
//
// A [Pipeline] holds the parsers and options for a parse.
// [Parse] uses a pipeline with the CommonMark defaults.
// When a pipeline tracks trivia,
// every byte of the source is accounted for
// either in a leaf block's lines or in a block's [Trivia],
// so that the original text can be reproduced exactly.
//
// [CommonMark]: https://commonmark.org/
package markdown

import (
	"sync"

	"github.com/charmbracelet/log"
)

var defaultPipeline = sync.OnceValue(func() *Pipeline {
	pl, err := NewPipelineBuilder().Build()
	if err != nil {
		panic(err)
	}
	return pl
})

// DefaultPipeline returns the pipeline used by [Parse].
func DefaultPipeline() *Pipeline {
	return defaultPipeline()
}

// Parse parses a CommonMark document
// with the default block and inline parsers.
// Line endings may be "\n", "\r\n", or "\r".
func Parse(source string) *Document {
	return defaultPipeline().Parse(source)
}

// parseContext holds the state of a single parse.
type parseContext struct {
	pipeline *Pipeline
	doc      *Document
	logger   *log.Logger
}
