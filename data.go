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

import "sync/atomic"

var lastDataKey atomic.Uint64

// A DataKey identifies a kind of data attached to nodes.
// Each key returned by [NewDataKey] is distinct from every other key,
// so extensions can attach data without coordinating names.
type DataKey[T any] struct {
	id   uint64
	name string
}

// NewDataKey returns a new unique key.
// The name is only used for debugging.
func NewDataKey[T any](name string) DataKey[T] {
	return DataKey[T]{
		id:   lastDataKey.Add(1),
		name: name,
	}
}

// String returns the key's name.
func (key DataKey[T]) String() string {
	return key.name
}

type dataSlot struct {
	node nodeID
	key  uint64
}

// SetData attaches a value to the node, replacing any previous value for key.
func SetData[T any](n Node, key DataKey[T], value T) {
	if n.IsNil() || key.id == 0 {
		return
	}
	if n.doc.data == nil {
		n.doc.data = make(map[dataSlot]any)
	}
	n.doc.data[dataSlot{n.id, key.id}] = value
}

// GetData returns the value attached to the node for key.
func GetData[T any](n Node, key DataKey[T]) (_ T, ok bool) {
	if n.IsNil() {
		var zero T
		return zero, false
	}
	v, ok := n.doc.data[dataSlot{n.id, key.id}]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// DeleteData removes the value attached to the node for key.
func DeleteData[T any](n Node, key DataKey[T]) {
	if n.IsNil() {
		return
	}
	delete(n.doc.data, dataSlot{n.id, key.id})
}
