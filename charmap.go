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

import "unicode/utf8"

// CharacterEntry associates an opening character with a handler.
type CharacterEntry[T any] struct {
	Char  rune
	Value T
}

// A CharacterMap maps opening characters to the handlers registered for them.
// Handlers sharing a character are kept in registration order.
// A CharacterMap is immutable after construction
// and safe to use from multiple goroutines.
type CharacterMap[T any] struct {
	ascii    [utf8.RuneSelf][]T
	isOpen   [utf8.RuneSelf]bool
	nonASCII map[rune][]T
}

// NewCharacterMap returns a map containing the given entries.
// Entries are indexed in the order given.
func NewCharacterMap[T any](entries ...CharacterEntry[T]) *CharacterMap[T] {
	m := new(CharacterMap[T])
	for _, e := range entries {
		if e.Char < 0 {
			continue
		}
		if e.Char < utf8.RuneSelf {
			m.ascii[e.Char] = append(m.ascii[e.Char], e.Value)
			m.isOpen[e.Char] = true
			continue
		}
		if m.nonASCII == nil {
			m.nonASCII = make(map[rune][]T)
		}
		m.nonASCII[e.Char] = append(m.nonASCII[e.Char], e.Value)
	}
	return m
}

// Get returns the first handler registered for c.
func (m *CharacterMap[T]) Get(c rune) (_ T, ok bool) {
	candidates := m.Candidates(c)
	if len(candidates) == 0 {
		var zero T
		return zero, false
	}
	return candidates[0], true
}

// Candidates returns the handlers registered for c
// in registration order.
// The caller must not modify the returned slice.
func (m *CharacterMap[T]) Candidates(c rune) []T {
	if 0 <= c && c < utf8.RuneSelf {
		return m.ascii[c]
	}
	return m.nonASCII[c]
}

// IsOpeningCharacter reports whether any handler is registered for c.
func (m *CharacterMap[T]) IsOpeningCharacter(c rune) bool {
	if 0 <= c && c < utf8.RuneSelf {
		return m.isOpen[c]
	}
	return len(m.nonASCII[c]) > 0
}

// IndexOfOpeningCharacter returns the offset of the first byte in s[start:end]
// that begins a registered opening character,
// or -1 if there is none.
func (m *CharacterMap[T]) IndexOfOpeningCharacter(s string, start, end int) int {
	end = min(end, len(s))
	if m.nonASCII == nil {
		for i := start; i < end; i++ {
			if c := s[i]; c < utf8.RuneSelf && m.isOpen[c] {
				return i
			}
		}
		return -1
	}
	for i := start; i < end; {
		c := s[i]
		if c < utf8.RuneSelf {
			if m.isOpen[c] {
				return i
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:end])
		if len(m.nonASCII[r]) > 0 {
			return i
		}
		i += size
	}
	return -1
}
