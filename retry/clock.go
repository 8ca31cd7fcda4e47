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

package retry

import (
	"math/rand"
	"time"
)

// Clock is responsible to provide the current time.
type Clock interface {
	// Now returns the current time, or an error if the time could not be
	// read.
	Now() (time.Time, error)
}

// ClockFunc is an adapter to allow the use of ordinary functions as Clock.
type ClockFunc func() (time.Time, error)

// Now calls f().
func (f ClockFunc) Now() (time.Time, error) {
	return f()
}

// SystemClock is the Clock backed by the system time.
var SystemClock Clock = ClockFunc(func() (time.Time, error) {
	return time.Now(), nil
})

// Random is responsible to provide random numbers for the jitter and random
// policies.
type Random interface {
	// Float64 returns a pseudo-random number in [0.0,1.0).
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 {
	return rand.Float64()
}

func randomOrDefault(rnd Random) Random {
	if rnd == nil {
		return globalRandom{}
	}
	return rnd
}
