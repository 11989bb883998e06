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

import (
	"hash/maphash"
	"math/rand/v2"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// saltMask keeps salted hashes and salts within 31 bits.
const saltMask = 0x7fffffff

// hashFn hashes a key. The result is mixed with a per-level salt, so it does
// not need to be seeded.
type hashFn[K comparable] func(key K) uint64

// defaultHasher returns a hash function for any comparable key type backed by
// the runtime's hash for that type.
func defaultHasher[K comparable]() hashFn[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}

// saltedHash combines a key hash with a salt into a non-negative 31-bit value.
func saltedHash(h uint64, salt int32) uint32 {
	return uint32((h ^ uint64(uint32(salt))) & saltMask)
}

// XXHashString hashes string keys with xxHash64. Use it with WithHash.
func XXHashString(key string) uint64 {
	return xxhash.Sum64String(key)
}

// XXH3String hashes string keys with XXH3-64.
func XXH3String(key string) uint64 {
	return xxh3.HashString(key)
}

// Murmur3String hashes string keys with the 64-bit half of MurmurHash3.
func Murmur3String(key string) uint64 {
	return murmur3.Sum64(unsafe.Slice(unsafe.StringData(key), len(key)))
}

// SaltSource produces the per-level and overflow salts drawn when a Map is
// constructed. Int32 must return a non-negative value; the sign bit is masked
// off otherwise. A *rand.Rand from math/rand/v2 satisfies the interface, which
// makes tables reproducible when the generator is seeded.
type SaltSource interface {
	Int32() int32
}

type globalSaltSource struct{}

func (globalSaltSource) Int32() int32 {
	return rand.Int32()
}

func drawSalt(src SaltSource) int32 {
	return src.Int32() & saltMask
}
