// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package funnel

import "errors"

// Construction errors.
var (
	ErrInvalidCapacity = errors.New("funnel: capacity must be at least 1")
	ErrInvalidDelta    = errors.New("funnel: delta must be in the open interval (0, 1)")
)

// Operation errors.
var (
	// ErrTableFull is returned by Put when the map already holds
	// MaxInserts entries. No state is modified.
	ErrTableFull = errors.New("funnel: table is full")
	// ErrNoSlot is returned by Put when the key's designated bucket in every
	// level and every slot of its overflow probe window are taken by other
	// keys. It can happen below MaxInserts and is an expected outcome of the
	// probabilistic placement, not a programming error. No state is modified.
	ErrNoSlot = errors.New("funnel: no free slot on probe path")
	// ErrNotFound is returned by Delete and Pop for an absent key.
	ErrNotFound = errors.New("funnel: key not found")
)
