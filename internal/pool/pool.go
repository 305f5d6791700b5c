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

// Package pool provides a bounded free list of reusable values.
package pool

// Pool holds up to a fixed number of idle values.
// Get and Put are safe to call from multiple goroutines.
// Unlike [sync.Pool], a Pool never drops values behind the caller's back
// and never holds more than its capacity.
type Pool[T any] struct {
	c     chan T
	new   func() T
	reset func(T) T
}

// New returns a pool that holds at most size idle values.
// newFunc creates a value when the pool is empty.
// reset, if not nil, is applied to values as they are returned.
func New[T any](size int, newFunc func() T, reset func(T) T) *Pool[T] {
	return &Pool[T]{
		c:     make(chan T, size),
		new:   newFunc,
		reset: reset,
	}
}

// Get returns an idle value or a new one if the pool is empty.
func (p *Pool[T]) Get() T {
	select {
	case v := <-p.c:
		return v
	default:
		return p.new()
	}
}

// Put returns a value to the pool.
// If the pool is full, the value is dropped.
func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		v = p.reset(v)
	}
	select {
	case p.c <- v:
	default:
	}
}

// Len returns the number of idle values in the pool.
func (p *Pool[T]) Len() int {
	return len(p.c)
}
