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
	"math"
)

const (
	// DefaultDelta is the customary slack fraction: 10% of the capacity is
	// never filled.
	DefaultDelta = 0.1

	// levelDecay is the ratio between the bucket counts of consecutive
	// levels.
	levelDecay = 0.75
	// minLevels is added to 4*log2(1/delta) to bound the number of levels.
	minLevels = 10
)

// params holds the structural constants of a Map. They are a pure function
// of capacity and delta.
type params struct {
	capacity    int
	delta       float64
	maxInserts  int
	alpha       int
	beta        int
	specialSize int
	primarySize int
	probeLimit  int
	// levelBuckets[i] is the number of beta-wide buckets in level i.
	levelBuckets []int
}

func deriveParams(capacity int, delta float64) (params, error) {
	if capacity < 1 {
		return params{}, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	// Written so that NaN is rejected.
	if !(delta > 0 && delta < 1) {
		return params{}, fmt.Errorf("%w: %v", ErrInvalidDelta, delta)
	}

	logInvDelta := math.Log2(1 / delta)
	p := params{
		capacity:    capacity,
		delta:       delta,
		maxInserts:  capacity - int(math.Floor(delta*float64(capacity))),
		alpha:       int(math.Ceil(4*logInvDelta + minLevels)),
		beta:        max(1, int(math.Ceil(2*logInvDelta))),
		specialSize: max(1, int(math.Floor(3*delta*float64(capacity)/4))),
	}
	p.primarySize = capacity - p.specialSize
	p.probeLimit = max(1, int(math.Ceil(math.Log(math.Log(float64(capacity+1))+1))))

	totalBuckets := p.primarySize / p.beta
	// a1 is chosen so that the geometric series a1 * levelDecay^i over alpha
	// levels sums to totalBuckets.
	a1 := float64(totalBuckets) / (4 * (1 - math.Pow(levelDecay, float64(p.alpha))))

	remaining := totalBuckets
	for i := 0; i < p.alpha && remaining > 0; i++ {
		n := max(1, int(math.RoundToEven(a1*math.Pow(levelDecay, float64(i)))))
		n = min(n, remaining)
		p.levelBuckets = append(p.levelBuckets, n)
		remaining -= n
	}
	return p, nil
}

// primarySlots returns the number of slots used by the levels, which may be
// less than primarySize when primarySize is not a multiple of beta.
func (p params) primarySlots() int {
	var n int
	for _, b := range p.levelBuckets {
		n += b * p.beta
	}
	return n
}

func (p params) String() string {
	return fmt.Sprintf("capacity=%d delta=%v max-inserts=%d alpha=%d beta=%d special=%d probe-limit=%d levels=%v",
		p.capacity, p.delta, p.maxInserts, p.alpha, p.beta, p.specialSize, p.probeLimit, p.levelBuckets)
}
