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

// package funnel is a Go implementation of funnel hashing as described in
// "Optimal Bounds for Open Addressing Without Reordering" (Farach-Colton,
// Krapivin, Kuszmaul, 2025): https://arxiv.org/abs/2501.02305.
//
// # Funnel Hashing
//
// A funnel hash table is a fixed-capacity open-addressing table that never
// moves an element once it is placed. Given a capacity n and a slack
// fraction delta, at most n - floor(delta*n) elements are stored. The slots
// are split into two regions:
//
//   - The levels A1..Aα. Each level is an array of buckets of β =
//     ceil(2*log2(1/delta)) contiguous slots. Level sizes decay
//     geometrically by a factor of 3/4, so the first levels are large and
//     the last ones are small "funnels". There are at most α =
//     ceil(4*log2(1/delta)+10) levels; fewer are built when the bucket
//     budget runs out first.
//
//   - The overflow array A(α+1) of max(1, floor(3*delta*n/4)) slots.
//
// Each level has its own random salt. To insert a key we visit the levels in
// order, and in each level hash the key with the level's salt to select one
// bucket. The key goes into the first free slot of that bucket. If the bucket
// is full the key is rejected by the level and falls through to the next
// one; other buckets of the same level are never considered. A key rejected
// by every level is placed in the overflow array using linear probing
// bounded to ceil(ln(ln(n+1)+1)) slots. If that window is exhausted the
// insertion fails with ErrNoSlot even though the table is not full: funnel
// hashing's guarantees are expectation bounds and callers must be prepared
// for this rare outcome.
//
// Lookups and deletions follow the same path: the designated bucket of every
// level, then the overflow probe window. There are no tombstones. A deleted
// slot is simply marked unoccupied, which is sound because probing never
// stops early at an empty slot.
//
// # Implementation
//
// All slots are allocated once, at construction, as a single []Entry slice
// carved into the levels followed by the overflow array. A Map never grows;
// ErrTableFull is returned once MaxInserts entries are stored. Keys are
// hashed with the same hash function Go's builtin map uses (via
// hash/maphash), though a different hash function can be supplied with the
// WithHash option. The per-level salts are drawn from math/rand/v2 unless a
// SaltSource is supplied with WithSaltSource.
//
// Len counts successful Put calls minus successful deletions. Overwriting an
// existing key counts as a Put, so after overwrites Len can exceed the number
// of distinct keys stored (and MaxInserts is reached sooner). Clear resets the
// count.
package funnel

import (
	"fmt"
	"iter"
)

const debug = false

// Map is a fixed-capacity map from keys to values with Put, Get, Delete, and
// All operations, backed by a funnel hash table.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	// The hash function to each keys of type K.
	hash hashFn[K]
	// The source of level and overflow salts. Only used during New.
	salts SaltSource
	// The allocator to use for the entries slice.
	allocator Allocator[K, V]
	p         params
	// entries backs every level followed by the overflow array.
	entries []Entry[K, V]
	levels  []level[K, V]
	special overflow[K, V]
	// The number of successful Put calls minus the number of deletions.
	used int
}

// New constructs a new Map holding up to capacity slots, of which a fraction
// delta is left as slack. It returns an error wrapping ErrInvalidCapacity or
// ErrInvalidDelta when capacity < 1 or delta is outside (0, 1).
func New[K comparable, V any](capacity int, delta float64, options ...option[K, V]) (*Map[K, V], error) {
	p, err := deriveParams(capacity, delta)
	if err != nil {
		return nil, err
	}

	m := &Map[K, V]{
		salts:     globalSaltSource{},
		allocator: defaultAllocator[K, V]{},
		p:         p,
	}
	for _, op := range options {
		op.apply(m)
	}
	if m.hash == nil {
		m.hash = defaultHasher[K]()
	}
	if m.salts == nil {
		m.salts = globalSaltSource{}
	}
	if m.allocator == nil {
		m.allocator = defaultAllocator[K, V]{}
	}

	m.entries = m.allocator.AllocEntries(p.primarySlots() + p.specialSize)
	m.levels = make([]level[K, V], len(p.levelBuckets))
	var offset int
	for i, buckets := range p.levelBuckets {
		n := buckets * p.beta
		m.levels[i] = level[K, V]{
			bucketCount: uint32(buckets),
			salt:        drawSalt(m.salts),
			slots:       m.entries[offset : offset+n : offset+n],
		}
		offset += n
	}
	m.special = overflow[K, V]{
		salt:       drawSalt(m.salts),
		probeLimit: p.probeLimit,
		slots:      m.entries[offset : offset+p.specialSize : offset+p.specialSize],
	}

	if debug {
		fmt.Printf("new: %s\n", p)
	}
	m.checkInvariants()
	return m, nil
}

// FromSeq constructs a new Map and loads seq into it (see Load). If loading
// fails the partially loaded map is returned along with the error.
func FromSeq[K comparable, V any](
	capacity int, delta float64, seq iter.Seq2[K, V], options ...option[K, V],
) (*Map[K, V], error) {
	m, err := New[K, V](capacity, delta, options...)
	if err != nil {
		return nil, err
	}
	return m, m.Load(seq)
}

// Load inserts every pair of seq in order using Put. Loading stops at the
// first failure, whose error is returned annotated with the position of the
// failing pair; the entries inserted before it are retained.
func (m *Map[K, V]) Load(seq iter.Seq2[K, V]) error {
	if seq == nil {
		return nil
	}
	var i int
	for k, v := range seq {
		if err := m.Put(k, v); err != nil {
			return fmt.Errorf("loading entry %d (%v): %w", i, k, err)
		}
		i++
	}
	return nil
}

// Close closes the map, releasing any memory back to its configured
// allocator. It is unnecessary to close a map using the default allocator. It
// is invalid to use a Map after it has been closed, though Close itself is
// idempotent.
func (m *Map[K, V]) Close() {
	if m.entries != nil {
		m.allocator.FreeEntries(m.entries)
	}
	m.entries = nil
	m.levels = nil
	m.special.slots = nil
	m.special.used = 0
	m.used = 0
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists. It returns ErrTableFull if Len has
// reached MaxInserts and ErrNoSlot if every slot on the key's probe path is
// taken by another key. The map is unchanged when an error is returned.
func (m *Map[K, V]) Put(key K, value V) error {
	if m.used >= m.p.maxInserts {
		if debug {
			fmt.Printf("put(%v): full used=%d\n", key, m.used)
		}
		return ErrTableFull
	}

	// Put is find composed with placement. Placing without the find would
	// store a second copy of the key when a deletion has freed a slot
	// earlier on the key's probe path.
	h := m.hash(key)
	if s, special := m.find(key, h); s != nil {
		if debug {
			fmt.Printf("put(updating): key=%v special=%t\n", key, special)
		}
		s.value = value
		m.used++
		if special {
			m.special.used++
		}
		m.checkInvariants()
		return nil
	}

	for i := range m.levels {
		if s := m.levels[i].free(h, m.p.beta); s != nil {
			if debug {
				fmt.Printf("put(level): key=%v level=%d\n", key, i)
			}
			*s = Entry[K, V]{key: key, value: value, occupied: true}
			m.used++
			m.checkInvariants()
			return nil
		}
		if debug {
			fmt.Printf("put(rejected): key=%v level=%d\n", key, i)
		}
	}

	if s := m.special.free(h); s != nil {
		if debug {
			fmt.Printf("put(overflow): key=%v\n", key)
		}
		*s = Entry[K, V]{key: key, value: value, occupied: true}
		m.special.used++
		m.used++
		m.checkInvariants()
		return nil
	}

	if debug {
		fmt.Printf("put(no-slot): key=%v used=%d\n", key, m.used)
	}
	return ErrNoSlot
}

// Get retrieves the value from the map for the specified key, return ok=false
// if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	if s, _ := m.find(key, m.hash(key)); s != nil {
		return s.value, true
	}
	return value, false
}

// GetOr retrieves the value for key, or def if the key is not present.
func (m *Map[K, V]) GetOr(key K, def V) V {
	if v, ok := m.Get(key); ok {
		return v
	}
	return def
}

// Has reports whether key is present in the map.
func (m *Map[K, V]) Has(key K) bool {
	s, _ := m.find(key, m.hash(key))
	return s != nil
}

// Delete deletes the entry corresponding to the specified key from the map.
// It returns ErrNotFound if the key is not present.
func (m *Map[K, V]) Delete(key K) error {
	_, err := m.Pop(key)
	return err
}

// Pop deletes the entry for key and returns its value. It returns
// ErrNotFound if the key is not present.
func (m *Map[K, V]) Pop(key K) (value V, err error) {
	s, special := m.find(key, m.hash(key))
	if s == nil {
		if debug {
			fmt.Printf("delete(not-found): key=%v\n", key)
		}
		return value, ErrNotFound
	}
	value = s.value
	*s = Entry[K, V]{}
	m.used--
	if special {
		m.special.used--
	}
	if debug {
		fmt.Printf("delete(%v): special=%t used=%d\n", key, special, m.used)
	}
	m.checkInvariants()
	return value, nil
}

// PopOr deletes the entry for key and returns its value, or returns def if
// the key is not present.
func (m *Map[K, V]) PopOr(key K, def V) V {
	if v, err := m.Pop(key); err == nil {
		return v
	}
	return def
}

// Clear deletes every entry from the map, one key at a time, and resets Len
// to zero. The capacity is unchanged.
func (m *Map[K, V]) Clear() {
	for i := range m.entries {
		if s := &m.entries[i]; s.occupied {
			if err := m.Delete(s.key); err != nil {
				panic(fmt.Sprintf("clear: %v not found at its own slot\n%s", s.key, m.DebugString()))
			}
		}
	}
	// Overwrites advance the counters without consuming a slot, so they may
	// still be positive here.
	m.used = 0
	m.special.used = 0
	m.checkInvariants()
}

// All calls yield sequentially for each key and value present in the map. If
// yield returns false, range stops the iteration. Entries are visited level
// by level, in bucket and slot order, followed by the overflow array. The
// map must not be mutated during iteration.
//
//	for k, v := range m.All {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	entries := m.entries
	for i := range entries {
		if s := &entries[i]; s.occupied {
			if !yield(s.key, s.value) {
				return
			}
		}
	}
}

// Keys calls yield sequentially for each key present in the map, in the
// same order as All.
func (m *Map[K, V]) Keys(yield func(key K) bool) {
	m.All(func(k K, _ V) bool {
		return yield(k)
	})
}

// Values calls yield sequentially for each value present in the map, in the
// same order as All.
func (m *Map[K, V]) Values(yield func(value V) bool) {
	m.All(func(_ K, v V) bool {
		return yield(v)
	})
}

// Len returns the number of successful Put calls, including overwrites,
// minus the number of deletions since the map was created or last cleared.
func (m *Map[K, V]) Len() int {
	return m.used
}

// Cap returns the capacity the map was constructed with.
func (m *Map[K, V]) Cap() int {
	return m.p.capacity
}

// MaxInserts returns the value of Len at which Put starts returning
// ErrTableFull.
func (m *Map[K, V]) MaxInserts() int {
	return m.p.maxInserts
}

// find returns the slot holding key, and whether that slot is in the
// overflow array, or nil if the key is not present.
func (m *Map[K, V]) find(key K, h uint64) (*Entry[K, V], bool) {
	for i := range m.levels {
		if s := m.levels[i].find(key, h, m.p.beta); s != nil {
			return s, false
		}
	}
	if s := m.special.find(key, h); s != nil {
		return s, true
	}
	return nil, false
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		if n := m.p.primarySlots() + m.p.specialSize; n > m.p.capacity {
			panic(fmt.Sprintf("invariant failed: %d slots exceed capacity %d", n, m.p.capacity))
		}
		if m.entries == nil {
			return
		}

		var used, specialUsed int
		check := func(where string, i int, s *Entry[K, V]) {
			if !s.occupied {
				return
			}
			// find returns the first copy of a key on its probe path, so a
			// duplicate or misplaced key is reported here.
			if found, _ := m.find(s.key, m.hash(s.key)); found != s {
				panic(fmt.Sprintf("invariant failed: %s slot(%d): %v not found at its slot\n%s",
					where, i, s.key, m.DebugString()))
			}
			used++
		}
		for i := range m.levels {
			l := &m.levels[i]
			for j := range l.slots {
				check(fmt.Sprintf("level(%d)", i), j, &l.slots[j])
			}
		}
		for j := range m.special.slots {
			if m.special.slots[j].occupied {
				specialUsed++
			}
			check("overflow", j, &m.special.slots[j])
		}

		if used > m.used {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, m.used, m.DebugString()))
		}
		if specialUsed > m.special.used {
			panic(fmt.Sprintf("invariant failed: found %d used overflow slots, but overflow count is %d\n%s",
				specialUsed, m.special.used, m.DebugString()))
		}
	}
}
