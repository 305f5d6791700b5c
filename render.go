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
	"slices"

	"github.com/cockroachdb/errors"
)

// A HandlerFunc renders a node with the renderer state c.
// It reports whether it handled the node;
// a handler that returns false defers to the next matching handler.
type HandlerFunc[C any] func(c C, n Node) (handled bool, err error)

// A Handler is a named rendering function
// registered for a set of node kinds or classes.
type Handler[C any] struct {
	name    string
	kinds   []Kind
	classes []KindClass
	fn      HandlerFunc[C]
}

// KindHandler returns a handler for nodes of the given kinds.
func KindHandler[C any](name string, fn HandlerFunc[C], kinds ...Kind) Handler[C] {
	return Handler[C]{name: name, kinds: kinds, fn: fn}
}

// ClassHandler returns a handler for nodes whose kind is in one of the given classes.
func ClassHandler[C any](name string, fn HandlerFunc[C], classes ...KindClass) Handler[C] {
	return Handler[C]{name: name, classes: classes, fn: fn}
}

// FallbackHandler returns a handler for nodes of any kind.
func FallbackHandler[C any](name string, fn HandlerFunc[C]) Handler[C] {
	return Handler[C]{name: name, fn: fn}
}

// Name returns the handler's name.
func (h Handler[C]) Name() string {
	return h.name
}

type handlerRank int8

const (
	noMatch handlerRank = iota
	fallbackMatch
	classMatch
	kindMatch
)

func (h Handler[C]) rank(k Kind) handlerRank {
	switch {
	case slices.Contains(h.kinds, k):
		return kindMatch
	case slices.Contains(h.classes, k.Class()):
		return classMatch
	case len(h.kinds) == 0 && len(h.classes) == 0:
		return fallbackMatch
	default:
		return noMatch
	}
}

// A Dispatcher selects the handler for a node by its kind.
// Handlers registered for the node's exact kind are tried first,
// then handlers for its class, then fallback handlers.
// Within each group, handlers are tried in list order.
//
// The embedded [ParserList] positions handlers by name.
type Dispatcher[C any] struct {
	ParserList[Handler[C]]
}

// NewDispatcher returns a dispatcher with the given handlers.
func NewDispatcher[C any](handlers ...Handler[C]) *Dispatcher[C] {
	return &Dispatcher[C]{ParserList: *NewParserList(handlers...)}
}

// Clone returns a copy of the dispatcher
// that can be modified independently.
func (d *Dispatcher[C]) Clone() *Dispatcher[C] {
	return &Dispatcher[C]{ParserList: ParserList[Handler[C]]{items: slices.Clone(d.items)}}
}

// Dispatch calls the handlers matching n until one handles it.
// It returns an error wrapping [ErrNoHandler]
// if no handler accepts the node.
func (d *Dispatcher[C]) Dispatch(c C, n Node) error {
	k := n.Kind()
	for rank := kindMatch; rank > noMatch; rank-- {
		for _, h := range d.items {
			if h.rank(k) != rank {
				continue
			}
			handled, err := h.fn(c, n)
			if err != nil {
				return err
			}
			if handled {
				return nil
			}
		}
	}
	return errors.Wrapf(ErrNoHandler, "render %v", k)
}
