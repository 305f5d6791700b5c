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

package pool

import (
	"sync"
	"testing"
)

func TestPool(t *testing.T) {
	allocs := 0
	p := New(2, func() []int {
		allocs++
		return make([]int, 0, 8)
	}, func(s []int) []int {
		return s[:0]
	})

	a := p.Get()
	b := p.Get()
	c := p.Get()
	if allocs != 3 {
		t.Fatalf("allocs = %d after three Gets on empty pool; want 3", allocs)
	}
	a = append(a, 1, 2, 3)
	p.Put(a)
	p.Put(b)
	p.Put(c)
	if got := p.Len(); got != 2 {
		t.Errorf("Len() = %d after overfilling; want 2", got)
	}
	for range 2 {
		if s := p.Get(); len(s) != 0 {
			t.Errorf("Get() = %v; want reset slice", s)
		}
	}
	if allocs != 3 {
		t.Errorf("allocs = %d; want pooled values reused", allocs)
	}
}

func TestPoolConcurrent(t *testing.T) {
	p := New(4, func() *int { return new(int) }, nil)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				v := p.Get()
				*v++
				p.Put(v)
			}
		}()
	}
	wg.Wait()
	if p.Len() > 4 {
		t.Errorf("Len() = %d; want <= 4", p.Len())
	}
}
