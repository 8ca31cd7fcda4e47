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
	"errors"
	"math"
	"strings"
	"time"
)

// Policy represents the strategy used to compute the wait between attempts.
type Policy byte

const (
	// PolicyNone never retries.
	PolicyNone Policy = iota

	// PolicyImmediate retries without waiting.
	PolicyImmediate

	// PolicyInterval waits the initial wait time between attempts.
	PolicyInterval

	// PolicyLinearBackoff waits the initial wait time multiplied by the number
	// of attempts.
	PolicyLinearBackoff

	// PolicyExponentialBackoff doubles the wait after every attempt.
	PolicyExponentialBackoff

	// PolicyExponentialBackoffWithJitter doubles the wait after every attempt
	// and adds a random percentage of it.
	PolicyExponentialBackoffWithJitter

	// PolicyRandom waits a random time no greater than the max retry
	// duration.
	PolicyRandom
)

// ErrInvalidPolicy indicates that the policy name is not known.
var ErrInvalidPolicy = errors.New("invalid retry policy")

var policyNames = map[Policy]string{
	PolicyNone:                         "none",
	PolicyImmediate:                    "immediate",
	PolicyInterval:                     "interval",
	PolicyLinearBackoff:                "linear_backoff",
	PolicyExponentialBackoff:           "exponential_backoff",
	PolicyExponentialBackoffWithJitter: "exponential_backoff_with_jitter",
	PolicyRandom:                       "random",
}

// Policies returns all policies in their declaration order.
func Policies() []Policy {
	return []Policy{
		PolicyNone,
		PolicyImmediate,
		PolicyInterval,
		PolicyLinearBackoff,
		PolicyExponentialBackoff,
		PolicyExponentialBackoffWithJitter,
		PolicyRandom,
	}
}

// String returns the policy name.
func (p Policy) String() string {
	n, ok := policyNames[p]
	if !ok {
		return "invalid"
	}
	return n
}

// ParsePolicy converts a policy name into a Policy. The name is
// case-insensitive and accepts '-' in place of '_'.
func ParsePolicy(name string) (Policy, error) {
	n := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for p, pn := range policyNames {
		if pn == n {
			return p, nil
		}
	}

	return PolicyNone, ErrInvalidPolicy
}

// Action represents the decision taken by the Controller.
type Action byte

const (
	// ActionRetryNow indicates that the caller must retry right away.
	ActionRetryNow Action = iota

	// ActionRetryLater indicates that the caller must ask again later.
	ActionRetryLater

	// ActionStopRetrying indicates that the caller must give up.
	ActionStopRetrying
)

var actionNames = map[Action]string{
	ActionRetryNow:     "RetryNow",
	ActionRetryLater:   "RetryLater",
	ActionStopRetrying: "StopRetrying",
}

// String returns the action name.
func (a Action) String() string {
	n, ok := actionNames[a]
	if !ok {
		return "Invalid"
	}
	return n
}

// Params contains the values, in seconds, which the wait computation depends
// on.
type Params struct {
	// The overall time budget. Zero means no budget.
	MaxRetryDurationSecs uint32

	// The seed of the backoff policies.
	InitialWaitSecs uint32

	// The maximum jitter, as a percentage (0..100) of the wait.
	MaxJitterPercent uint32

	// The cap of every wait. Zero means no cap.
	MaxDelaySecs uint32
}

const maxWait = time.Duration(math.MaxInt64)

// RequiredWait returns the time the caller must wait, since the last attempt,
// before the attempt number retryCount+1. The retryCount is the number of
// attempts already made, and a value of 0 is handled as 1.
func RequiredWait(p Policy, params Params, retryCount uint64,
	rnd Random) time.Duration {

	if retryCount == 0 {
		retryCount = 1
	}

	var secs float64
	initial := float64(params.InitialWaitSecs)

	switch p {
	case PolicyInterval:
		secs = initial
	case PolicyLinearBackoff:
		secs = initial * float64(retryCount)
	case PolicyExponentialBackoff:
		secs = initial * math.Pow(2, float64(retryCount-1))
	case PolicyExponentialBackoffWithJitter:
		secs = initial * math.Pow(2, float64(retryCount-1))
		jitter := float64(params.MaxJitterPercent) / 100
		secs *= 1 + jitter*(2*randomOrDefault(rnd).Float64()-1)
	case PolicyRandom:
		upper := float64(params.MaxRetryDurationSecs)
		if upper == 0 {
			upper = initial
		}
		secs = upper * randomOrDefault(rnd).Float64()
	default:
		return 0
	}

	if params.MaxDelaySecs > 0 && secs > float64(params.MaxDelaySecs) {
		secs = float64(params.MaxDelaySecs)
	}

	return secondsToDuration(secs)
}

func secondsToDuration(secs float64) time.Duration {
	if secs <= 0 || math.IsNaN(secs) {
		return 0
	}

	ns := secs * float64(time.Second)
	if ns >= float64(maxWait) {
		return maxWait
	}

	return time.Duration(ns)
}
