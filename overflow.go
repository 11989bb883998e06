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

// overflow is the special array that absorbs keys rejected by every level.
// A key may only live within probeLimit slots of its base position, so
// placement can fail while the array still has free slots elsewhere.
type overflow[K comparable, V any] struct {
	salt       int32
	probeLimit int
	slots      []Entry[K, V]
	// The number of occupied slots, advanced on overwrite like Map.used.
	used int
}

// slot returns the j'th slot of the probe window starting at the base
// position for h.
func (o *overflow[K, V]) slot(h uint64, j int) *Entry[K, V] {
	n := uint32(len(o.slots))
	return &o.slots[(saltedHash(h, o.salt)+uint32(j))%n]
}

func (o *overflow[K, V]) find(key K, h uint64) *Entry[K, V] {
	if len(o.slots) == 0 {
		return nil
	}
	for j := 0; j < o.probeLimit; j++ {
		if s := o.slot(h, j); s.occupied && s.key == key {
			return s
		}
	}
	return nil
}

// free returns the first unoccupied slot of the probe window for h, or nil
// when the window is exhausted.
func (o *overflow[K, V]) free(h uint64) *Entry[K, V] {
	if len(o.slots) == 0 {
		return nil
	}
	for j := 0; j < o.probeLimit; j++ {
		if s := o.slot(h, j); !s.occupied {
			return s
		}
	}
	return nil
}
