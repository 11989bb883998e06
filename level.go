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

// Entry holds a key and value. An entry whose occupied flag is false is
// logically absent regardless of the key and value it still carries.
type Entry[K comparable, V any] struct {
	key      K
	value    V
	occupied bool
}

// level is one funnel level: bucketCount buckets of beta contiguous slots.
// Bucket b occupies slots [b*beta, b*beta+beta).
type level[K comparable, V any] struct {
	bucketCount uint32
	salt        int32
	slots       []Entry[K, V]
}

// bucket returns the beta slots of the bucket that key hash h is designated
// to in this level.
func (l *level[K, V]) bucket(h uint64, beta int) []Entry[K, V] {
	b := int(saltedHash(h, l.salt) % l.bucketCount)
	return l.slots[b*beta : b*beta+beta]
}

// find returns the slot holding key in its designated bucket, or nil.
func (l *level[K, V]) find(key K, h uint64, beta int) *Entry[K, V] {
	slots := l.bucket(h, beta)
	for i := range slots {
		if s := &slots[i]; s.occupied && s.key == key {
			return s
		}
	}
	return nil
}

// free returns the first unoccupied slot in the designated bucket for h, or
// nil if the bucket is full. A full bucket is a rejection that routes the
// caller to the next level.
func (l *level[K, V]) free(h uint64, beta int) *Entry[K, V] {
	slots := l.bucket(h, beta)
	for i := range slots {
		if !slots[i].occupied {
			return &slots[i]
		}
	}
	return nil
}
