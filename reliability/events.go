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

import (
	"fmt"
	"time"
)

// EventType represents the type of a delivery event.
type EventType byte

// Delivery event types.
const (
	EventAcknowledged EventType = iota
	EventRetried
	EventDeferred
	EventAbandoned
)

var eventTypeNames = map[EventType]string{
	EventAcknowledged: "Acknowledged",
	EventRetried:      "Retried",
	EventDeferred:     "Deferred",
	EventAbandoned:    "Abandoned",
}

func (t EventType) String() string {
	n, ok := eventTypeNames[t]
	if !ok {
		return fmt.Sprintf("Invalid(%d)", t)
	}
	return n
}

// Event represents a change in the delivery state of a message.
type Event struct {
	// Type is the event type.
	Type EventType

	// ConnectionID is the identifier of the connection the message belongs
	// to.
	ConnectionID string

	// PacketID is the packet identifier of the message.
	PacketID uint16

	// Time is when the event happened.
	Time time.Time

	// Err is the reason of an EventAbandoned.
	Err error
}

// EventHandler is the function called on every delivery event. It's called
// without any lock held, so it may call the Connection back.
type EventHandler func(ev Event)

type eventSink struct {
	ch      chan Event
	dropped uint64
}

func (s *eventSink) push(ev Event) {
	select {
	case s.ch <- ev:
	default:
		s.dropped++
	}
}
