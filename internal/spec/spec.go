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

// Package spec provides a corpus of CommonMark examples
// with their reference HTML output.
package spec

import (
	_ "embed"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Example is a single Markdown document and its expected HTML.
type Example struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Example  int    `json:"example"`
	Section  string `json:"section"`
}

// Name returns a name for the example suitable for a subtest.
func (ex Example) Name() string {
	return strings.ReplaceAll(ex.Section, " ", "_") + "/" + strconv.Itoa(ex.Example)
}

//go:embed commonmark.json
var specData []byte

// Load returns the corpus examples in section order.
func Load() ([]Example, error) {
	var testsuite []Example
	if err := json.Unmarshal(specData, &testsuite); err != nil {
		return nil, errors.Wrap(err, "load examples")
	}
	return testsuite, nil
}

// Sections returns the distinct section names of examples in order.
func Sections(examples []Example) []string {
	var sections []string
	for _, ex := range examples {
		if len(sections) == 0 || sections[len(sections)-1] != ex.Section {
			sections = append(sections, ex.Section)
		}
	}
	return sections
}
