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

// Package extension provides syntax extensions for the markdown parser.
//
// Each extension is a [markdown.Extension]
// that adds parsers, delimiter rules, or observers to a pipeline.
// Extensions that introduce new node kinds
// also implement [markdown.HTMLExtension]
// so that [markdown.HTMLRenderer] can display them.
package extension

import (
	"zombiezen.com/go/markdown"
)

// Registry returns the extensions in this package
// keyed by the names used in configuration files.
func Registry() markdown.ExtensionRegistry {
	exts := []markdown.Extension{
		Strikethrough,
		AutoIdentifiers,
		CustomContainers,
	}
	reg := make(markdown.ExtensionRegistry, len(exts))
	for _, ext := range exts {
		reg[ext.Name()] = ext
	}
	return reg
}
