// Copyright 2022 The MaxMQ Authors
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

package mocks

import "sync"

// RandomStub is responsible to simulate a random source. It returns the
// values in sequence, repeating the last one once the sequence is over.
type RandomStub struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewRandomStub creates a RandomStub which returns the given values.
func NewRandomStub(values ...float64) *RandomStub {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &RandomStub{values: values}
}

// Float64 returns the next value.
func (r *RandomStub) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.values[r.next]
	if r.next < len(r.values)-1 {
		r.next++
	}
	return v
}
