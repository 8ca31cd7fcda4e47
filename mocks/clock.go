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

import (
	"errors"
	"sync"
	"time"
)

// ErrClockStub is the error returned by a failing ClockStub.
var ErrClockStub = errors.New("clock stub failure")

// ClockStub is responsible to simulate a clock which only moves when told to.
type ClockStub struct {
	mu   sync.Mutex
	now  time.Time
	fail bool
}

// NewClockStub creates a ClockStub starting at the given time.
func NewClockStub(start time.Time) *ClockStub {
	return &ClockStub{now: start}
}

// Now returns the current time of the stub, or ErrClockStub when the stub is
// failing.
func (c *ClockStub) Now() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fail {
		return time.Time{}, ErrClockStub
	}
	return c.now, nil
}

// Advance moves the clock forward.
func (c *ClockStub) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set sets the current time.
func (c *ClockStub) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SetFailing sets whether the next reads fail.
func (c *ClockStub) SetFailing(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}
