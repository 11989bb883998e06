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
	"fmt"
	"strings"

	"github.com/sugawarayuuta/sonnet"
)

// Stats is a snapshot of the structure of a Map, for diagnostics.
type Stats struct {
	Capacity    int     `json:"capacity"`
	Delta       float64 `json:"delta"`
	MaxInserts  int     `json:"max_inserts"`
	Alpha       int     `json:"alpha"`
	Beta        int     `json:"beta"`
	SpecialSize int     `json:"special_size"`
	PrimarySize int     `json:"primary_size"`
	ProbeLimit  int     `json:"probe_limit"`
	// Len is the value reported by Map.Len.
	Len int `json:"len"`
	// Occupied is the number of occupied slots, which is the number of
	// distinct keys stored.
	Occupied int `json:"occupied"`
	// SpecialOccupancy is the overflow array counter. Like Len it advances
	// on overwrites.
	SpecialOccupancy int `json:"special_occupancy"`

	Levels  []LevelStats `json:"levels"`
	Special ArrayStats   `json:"special"`
}

// LevelStats describes one level.
type LevelStats struct {
	Buckets  int    `json:"buckets"`
	Salt     int32  `json:"salt"`
	Occupied []bool `json:"occupied"`
}

// ArrayStats describes the overflow array.
type ArrayStats struct {
	Salt     int32  `json:"salt"`
	Occupied []bool `json:"occupied"`
}

// JSON encodes the snapshot.
func (s Stats) JSON() ([]byte, error) {
	return sonnet.Marshal(s)
}

// Stats returns a snapshot of the structural constants and the per-slot
// occupancy of the map.
func (m *Map[K, V]) Stats() Stats {
	s := Stats{
		Capacity:         m.p.capacity,
		Delta:            m.p.delta,
		MaxInserts:       m.p.maxInserts,
		Alpha:            m.p.alpha,
		Beta:             m.p.beta,
		SpecialSize:      m.p.specialSize,
		PrimarySize:      m.p.primarySize,
		ProbeLimit:       m.p.probeLimit,
		Len:              m.used,
		SpecialOccupancy: m.special.used,
		Levels:           make([]LevelStats, len(m.levels)),
	}
	occupancy := func(slots []Entry[K, V]) []bool {
		r := make([]bool, len(slots))
		for i := range slots {
			if slots[i].occupied {
				r[i] = true
				s.Occupied++
			}
		}
		return r
	}
	for i := range m.levels {
		l := &m.levels[i]
		s.Levels[i] = LevelStats{
			Buckets:  int(l.bucketCount),
			Salt:     l.salt,
			Occupied: occupancy(l.slots),
		}
	}
	s.Special = ArrayStats{
		Salt:     m.special.salt,
		Occupied: occupancy(m.special.slots),
	}
	return s
}

// DebugString returns a human-readable dump of the map: its parameters and
// counters followed by every slot of every level (numbered from 1) and of
// the overflow array.
func (m *Map[K, V]) DebugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  delta=%v  max-inserts=%d  len=%d  alpha=%d  beta=%d\n",
		m.p.capacity, m.p.delta, m.p.maxInserts, m.used, m.p.alpha, m.p.beta)
	slots := func(entries []Entry[K, V]) {
		for i := range entries {
			if s := &entries[i]; s.occupied {
				fmt.Fprintf(&buf, "  %4d: %v\n", i, s.key)
			} else {
				fmt.Fprintf(&buf, "  %4d: empty\n", i)
			}
		}
	}
	for i := range m.levels {
		l := &m.levels[i]
		fmt.Fprintf(&buf, "level %d: buckets=%d  salt=%d\n", i+1, l.bucketCount, l.salt)
		slots(l.slots)
	}
	fmt.Fprintf(&buf, "overflow: size=%d  salt=%d  probe-limit=%d  used=%d\n",
		len(m.special.slots), m.special.salt, m.special.probeLimit, m.special.used)
	slots(m.special.slots)
	return buf.String()
}
