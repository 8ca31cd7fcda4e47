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

// Package retry decides, based on the elapsed time since the first and the
// last attempt, whether an operation must be retried now, later, or never.
package retry

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidArg indicates an invalid handle, option name or option value.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrClock indicates that the current time could not be read.
	ErrClock = errors.New("failed to read clock")
)

// Default values of the Controller options.
const (
	DefaultInitialWaitSecs  = 1
	DefaultMaxJitterPercent = 5
)

// Controller holds the retry state of a single connection, or a single
// message. It must not be shared between connections, and it's not safe for
// concurrent use.
type Controller struct {
	clock        Clock
	random       Random
	firstAttempt time.Time
	lastAttempt  time.Time
	wait         time.Duration
	retryCount   uint64
	params       Params
	policy       Policy
}

// Option is the function called by the New factory method to set the
// Controller collaborators.
type Option func(c *Controller)

// WithClock sets the Clock used to read the current time.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRandom sets the Random used by the jitter and random policies.
func WithRandom(rnd Random) Option {
	return func(c *Controller) { c.random = rnd }
}

// New creates a Controller for the given policy. The maxRetryDurationSecs is
// the overall time budget, where 0 means retry forever.
func New(policy Policy, maxRetryDurationSecs uint32, opts ...Option) *Controller {
	c := &Controller{
		clock:  SystemClock,
		random: globalRandom{},
		policy: policy,
		params: Params{
			MaxRetryDurationSecs: maxRetryDurationSecs,
			InitialWaitSecs:      DefaultInitialWaitSecs,
			MaxJitterPercent:     DefaultMaxJitterPercent,
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = SystemClock
	}
	c.random = randomOrDefault(c.random)

	return c
}

// Policy returns the retry policy.
func (c *Controller) Policy() Policy {
	if c == nil {
		return PolicyNone
	}
	return c.policy
}

// Params returns the current wait parameters.
func (c *Controller) Params() Params {
	if c == nil {
		return Params{}
	}
	return c.params
}

// RetryCount returns the number of attempts evaluated as RetryNow since the
// creation or the last Reset.
func (c *Controller) RetryCount() uint64 {
	if c == nil {
		return 0
	}
	return c.retryCount
}

// NextWait returns the wait required, since the last attempt, before the
// next RetryNow.
func (c *Controller) NextWait() time.Duration {
	if c == nil {
		return 0
	}
	return c.wait
}

// FirstAttempt returns the time of the first attempt, or the zero time when
// there was no attempt since the creation or the last Reset.
func (c *Controller) FirstAttempt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.firstAttempt
}

// LastAttempt returns the time of the last RetryNow, or the zero time when
// there was no attempt since the creation or the last Reset.
func (c *Controller) LastAttempt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.lastAttempt
}

// SetOption sets the named option. When it fails, the Controller is left
// unchanged.
func (c *Controller) SetOption(name string, value interface{}) error {
	if c == nil {
		return ErrInvalidArg
	}

	p := c.params
	if err := p.set(name, value); err != nil {
		return err
	}

	c.params = p
	return nil
}

// RetrieveOptions returns the options of the Controller which can be replayed
// with the saved_options option.
func (c *Controller) RetrieveOptions() (*OptionBag, error) {
	if c == nil {
		return nil, ErrInvalidArg
	}

	b := NewOptionBag()
	b.Set(OptionInitialWaitTime, c.params.InitialWaitSecs)
	b.Set(OptionMaxJitterPercent, c.params.MaxJitterPercent)
	b.Set(OptionMaxDelay, c.params.MaxDelaySecs)

	return b, nil
}

// ShouldRetry evaluates the policy against the current time and returns the
// action the caller must take.
//
// A failure to read the clock is returned as ErrClock, which is distinct from
// ActionStopRetrying, and the Controller state is left unchanged.
func (c *Controller) ShouldRetry() (Action, error) {
	if c == nil {
		return ActionStopRetrying, ErrInvalidArg
	}

	now, err := c.clock.Now()
	if err != nil {
		return ActionStopRetrying, fmt.Errorf("%w: %s", ErrClock, err.Error())
	}

	if c.policy == PolicyNone {
		return ActionStopRetrying, nil
	}

	if c.retryCount == 0 {
		c.firstAttempt = now
		c.lastAttempt = now
		c.retryCount = 1
		c.wait = RequiredWait(c.policy, c.params, c.retryCount, c.random)
		return ActionRetryNow, nil
	}

	if c.timedOut(now) {
		return ActionStopRetrying, nil
	}

	if now.Sub(c.lastAttempt) < c.wait {
		return ActionRetryLater, nil
	}

	c.lastAttempt = now
	c.retryCount++
	c.wait = RequiredWait(c.policy, c.params, c.retryCount, c.random)

	return ActionRetryNow, nil
}

// Reset returns the Controller to the state it had when it was created,
// keeping its options.
func (c *Controller) Reset() {
	if c == nil {
		return
	}

	c.retryCount = 0
	c.wait = 0
	c.firstAttempt = time.Time{}
	c.lastAttempt = time.Time{}
}

// Clone creates a new Controller with the same policy, options and
// collaborators, in the initial state.
func (c *Controller) Clone() *Controller {
	if c == nil {
		return nil
	}

	return &Controller{
		clock:  c.clock,
		random: c.random,
		policy: c.policy,
		params: c.params,
	}
}

func (c *Controller) timedOut(now time.Time) bool {
	budget := c.params.MaxRetryDurationSecs
	if budget == 0 {
		return false
	}

	return now.Sub(c.firstAttempt) >= time.Duration(budget)*time.Second
}
