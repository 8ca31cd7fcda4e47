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

import "time"

// Status represents the state of a Connection at a given moment.
type Status struct {
	ID                string          `json:"id"`
	CreatedAt         time.Time       `json:"created_at"`
	Connected         bool            `json:"connected"`
	Healthy           bool            `json:"healthy"`
	Closed            bool            `json:"closed"`
	RetryPolicy       string          `json:"retry_policy"`
	ReconnectPolicy   string          `json:"reconnect_policy"`
	ReconnectAttempts uint64          `json:"reconnect_attempts"`
	AckTimeout        int             `json:"ack_timeout"`
	InflightMessages  int             `json:"inflight_messages"`
	LostInFlight      int             `json:"lost_in_flight"`
	Messages          []MessageStatus `json:"messages,omitempty"`
}

// MessageStatus represents the state of an in-flight message.
type MessageStatus struct {
	PacketID     uint16    `json:"packet_id"`
	Topic        string    `json:"topic"`
	QoS          string    `json:"qos"`
	Duplicate    bool      `json:"duplicate"`
	Sends        int       `json:"sends"`
	SentAt       time.Time `json:"sent_at"`
	Retries      uint64    `json:"retries"`
	NextWaitSecs float64   `json:"next_wait_secs"`
}

// Status returns the current state of the Connection, including its in-flight
// messages in the order they were tracked.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		ID:                c.id,
		CreatedAt:         c.createdAt,
		Connected:         c.connected,
		Healthy:           c.healthy,
		Closed:            c.closed,
		RetryPolicy:       c.conf.RetryPolicy.String(),
		ReconnectPolicy:   c.conf.ReconnectPolicy.String(),
		ReconnectAttempts: c.reconnect.RetryCount(),
		AckTimeout:        c.conf.AckTimeout,
		InflightMessages:  c.tracker.Len(),
		LostInFlight:      c.tracker.LostInFlight(),
	}

	for _, e := range c.tracker.Snapshot() {
		st.Messages = append(st.Messages, MessageStatus{
			PacketID:     e.PacketID(),
			Topic:        e.Envelope.Topic(),
			QoS:          e.Envelope.QoS().String(),
			Duplicate:    e.Envelope.IsDuplicate(),
			Sends:        e.Sends,
			SentAt:       e.SentAt,
			Retries:      e.Retry.RetryCount(),
			NextWaitSecs: e.Retry.NextWait().Seconds(),
		})
	}

	return st
}
