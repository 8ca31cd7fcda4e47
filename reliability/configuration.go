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

package reliability

import "github.com/gsalomao/maxiot/retry"

// Configuration holds the delivery engine configuration of a connection.
type Configuration struct {
	// The policy used to decide whether an unacknowledged message is resent.
	RetryPolicy retry.Policy

	// The overall time, in seconds, a message is retried. Zero means forever.
	RetryMaxDuration uint32

	// The initial wait, in seconds, of the message retry policy.
	RetryInitialWait uint32

	// The maximum jitter, as a percentage of the wait, of the message retry
	// policy.
	RetryMaxJitterPercent uint32

	// The cap, in seconds, of every wait between resends. Zero means no cap.
	RetryMaxDelay uint32

	// The policy used to decide whether the connection must be reopened.
	ReconnectPolicy retry.Policy

	// The overall time, in seconds, the connection is reopened. Zero means
	// forever.
	ReconnectMaxDuration uint32

	// The amount of time, in seconds, a message waits for the acknowledgment
	// before it expires.
	AckTimeout int

	// The maximum number of unacknowledged messages. Zero means no limit.
	MaxInflightMessages int
}

const (
	defaultAckTimeout       = 10
	defaultRetryInitialWait = retry.DefaultInitialWaitSecs
)

func ackTimeoutOrDefault(t int) int {
	if t <= 0 {
		return defaultAckTimeout
	}
	return t
}

func retryInitialWaitOrDefault(w uint32) uint32 {
	if w == 0 {
		return defaultRetryInitialWait
	}
	return w
}

func maxInflightOrDefault(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
