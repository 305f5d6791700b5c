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
	"fmt"
	"sync"
)

// Kind is an enumeration of node types.
// The zero Kind is used for nil nodes.
type Kind uint16

// Block kinds.
const (
	DocumentKind Kind = 1 + iota
	BlockQuoteKind
	ListKind
	ListItemKind
	ParagraphKind
	ThematicBreakKind
	ATXHeadingKind
	SetextHeadingKind
	IndentedCodeKind
	FencedCodeKind
	HTMLBlockKind
	LinkReferenceDefinitionKind

	// Inline kinds.

	// InlineRootKind is the kind of the container inline
	// that a leaf block holds after inline processing.
	InlineRootKind
	TextKind
	SoftLineBreakKind
	HardLineBreakKind
	CodeSpanKind
	EmphasisKind
	StrongKind
	LinkKind
	ImageKind
	AutolinkKind
	RawHTMLKind
	CharacterReferenceKind

	numBuiltinKinds
)

// KindClass is the broad category of a [Kind].
type KindClass int8

const (
	ContainerBlockClass KindClass = 1 + iota
	LeafBlockClass
	ContainerInlineClass
	LeafInlineClass
)

// String returns the name of the class.
func (class KindClass) String() string {
	switch class {
	case ContainerBlockClass:
		return "ContainerBlock"
	case LeafBlockClass:
		return "LeafBlock"
	case ContainerInlineClass:
		return "ContainerInline"
	case LeafInlineClass:
		return "LeafInline"
	default:
		return fmt.Sprintf("KindClass(%d)", int8(class))
	}
}

type kindInfo struct {
	name  string
	class KindClass
}

var builtinKinds = [numBuiltinKinds]kindInfo{
	DocumentKind:                {"Document", ContainerBlockClass},
	BlockQuoteKind:              {"BlockQuote", ContainerBlockClass},
	ListKind:                    {"List", ContainerBlockClass},
	ListItemKind:                {"ListItem", ContainerBlockClass},
	ParagraphKind:               {"Paragraph", LeafBlockClass},
	ThematicBreakKind:           {"ThematicBreak", LeafBlockClass},
	ATXHeadingKind:              {"ATXHeading", LeafBlockClass},
	SetextHeadingKind:           {"SetextHeading", LeafBlockClass},
	IndentedCodeKind:            {"IndentedCode", LeafBlockClass},
	FencedCodeKind:              {"FencedCode", LeafBlockClass},
	HTMLBlockKind:               {"HTMLBlock", LeafBlockClass},
	LinkReferenceDefinitionKind: {"LinkReferenceDefinition", LeafBlockClass},
	InlineRootKind:              {"InlineRoot", ContainerInlineClass},
	TextKind:                    {"Text", LeafInlineClass},
	SoftLineBreakKind:           {"SoftLineBreak", LeafInlineClass},
	HardLineBreakKind:           {"HardLineBreak", LeafInlineClass},
	CodeSpanKind:                {"CodeSpan", LeafInlineClass},
	EmphasisKind:                {"Emphasis", ContainerInlineClass},
	StrongKind:                  {"Strong", ContainerInlineClass},
	LinkKind:                    {"Link", ContainerInlineClass},
	ImageKind:                   {"Image", ContainerInlineClass},
	AutolinkKind:                {"Autolink", LeafInlineClass},
	RawHTMLKind:                 {"RawHTML", LeafInlineClass},
	CharacterReferenceKind:      {"CharacterReference", LeafInlineClass},
}

// kindRegistry holds the kinds allocated by [RegisterKind].
// kinds[i] describes Kind(numBuiltinKinds + i).
var kindRegistry struct {
	mu    sync.RWMutex
	kinds []kindInfo
}

// RegisterKind allocates a new [Kind] for use by an extension.
// Registering the same name and class twice returns the same Kind.
// RegisterKind panics if name is empty
// or if name was previously registered with a different class.
// It is safe to call from multiple goroutines.
func RegisterKind(name string, class KindClass) Kind {
	if name == "" {
		panic("markdown: RegisterKind with empty name")
	}
	if class < ContainerBlockClass || class > LeafInlineClass {
		panic(fmt.Sprintf("markdown: RegisterKind(%q) with invalid class %v", name, class))
	}
	check := func(info kindInfo) bool {
		if info.name != name {
			return false
		}
		if info.class != class {
			panic(fmt.Sprintf("markdown: RegisterKind(%q, %v) conflicts with existing %v kind", name, class, info.class))
		}
		return true
	}
	for i, info := range builtinKinds {
		if check(info) {
			return Kind(i)
		}
	}
	kindRegistry.mu.Lock()
	defer kindRegistry.mu.Unlock()
	for i, info := range kindRegistry.kinds {
		if check(info) {
			return numBuiltinKinds + Kind(i)
		}
	}
	kindRegistry.kinds = append(kindRegistry.kinds, kindInfo{name: name, class: class})
	return numBuiltinKinds + Kind(len(kindRegistry.kinds)-1)
}

func (k Kind) info() kindInfo {
	if k < numBuiltinKinds {
		return builtinKinds[k]
	}
	kindRegistry.mu.RLock()
	defer kindRegistry.mu.RUnlock()
	i := int(k - numBuiltinKinds)
	if i >= len(kindRegistry.kinds) {
		return kindInfo{}
	}
	return kindRegistry.kinds[i]
}

// Class returns the kind's class
// or zero if the kind has not been registered.
func (k Kind) Class() KindClass {
	return k.info().class
}

// IsBlock reports whether k is a block kind.
func (k Kind) IsBlock() bool {
	c := k.Class()
	return c == ContainerBlockClass || c == LeafBlockClass
}

// IsInline reports whether k is an inline kind.
func (k Kind) IsInline() bool {
	c := k.Class()
	return c == ContainerInlineClass || c == LeafInlineClass
}

// IsContainer reports whether nodes of kind k can have children.
// Leaf blocks are not containers, even though they hold their inline root.
func (k Kind) IsContainer() bool {
	c := k.Class()
	return c == ContainerBlockClass || c == ContainerInlineClass
}

// String returns the name the kind was registered with.
func (k Kind) String() string {
	if name := k.info().name; name != "" {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// canContain reports whether a block of kind k
// can directly contain a block of kind child.
func (k Kind) canContain(child Kind) bool {
	if k == ListKind {
		return child == ListItemKind
	}
	return k.Class() == ContainerBlockClass && child != ListItemKind && child.IsBlock()
}
