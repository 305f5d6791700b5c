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

import "github.com/cockroachdb/errors"

// Errors returned by the tree mutation and pipeline APIs.
// Markdown input never produces an error;
// these only report incorrect use of the API.
// Test for them with [errors.Is].
var (
	ErrNilNode          = errors.New("nil node")
	ErrAlreadyOwned     = errors.New("node already has a parent")
	ErrIndexOutOfRange  = errors.New("child index out of range")
	ErrInvalidChild     = errors.New("node cannot contain child")
	ErrNotChild         = errors.New("node is not a child")
	ErrNotOpen          = errors.New("block is not open")
	ErrDiscardRoot      = errors.New("cannot discard document")
	ErrUnknownParser    = errors.New("unknown parser")
	ErrDuplicateParser  = errors.New("duplicate parser")
	ErrUnknownExtension = errors.New("unknown extension")
	ErrNoHandler        = errors.New("no handler for node")
)
