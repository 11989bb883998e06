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

// option provide an interface to do work on Map while it is being created.
type option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash func(key K) uint64
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Map[K,V].
// The function does not need to be seeded: its result is mixed with random
// per-level salts.
func WithHash[K comparable, V any](hash func(key K) uint64) option[K, V] {
	return hashOption[K, V]{hash}
}

type saltOption[K comparable, V any] struct {
	src SaltSource
}

func (op saltOption[K, V]) apply(m *Map[K, V]) {
	m.salts = op.src
}

// WithSaltSource is an option to specify where the level and overflow salts
// of a Map[K,V] are drawn from. The default is the math/rand/v2 global
// generator. Passing a seeded *rand.Rand makes the slot layout reproducible.
func WithSaltSource[K comparable, V any](src SaltSource) option[K, V] {
	return saltOption[K, V]{src}
}

// Allocator specifies an interface for allocating and releasing the entry
// storage used by a Map. A Map allocates exactly once, at construction, and
// releases in Map.Close. The default allocator utilizes Go's builtin make()
// and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory then Map.Close must be called
// in order to ensure FreeEntries is called.
type Allocator[K comparable, V any] interface {
	// AllocEntries should return a slice equivalent to make([]Entry[K,V], n).
	AllocEntries(n int) []Entry[K, V]

	// FreeEntries can optional release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocEntries.
	FreeEntries(v []Entry[K, V])
}

type defaultAllocator[K comparable, V any] struct{}

func (defaultAllocator[K, V]) AllocEntries(n int) []Entry[K, V] {
	return make([]Entry[K, V], n)
}

func (defaultAllocator[K, V]) FreeEntries(v []Entry[K, V]) {
}

type allocatorOption[K comparable, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(m *Map[K, V]) {
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map[K,V].
func WithAllocator[K comparable, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
