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

// Package envelope contains the protocol message which travels between the
// producer, the in-flight tracker and the acknowledger.
package envelope

import (
	"errors"
	"strconv"
)

// QoS indicates the level of assurance for delivery of a message.
type QoS byte

const (
	// QoS0 indicates the at most once delivery.
	QoS0 QoS = iota

	// QoS1 indicates the at least once delivery.
	QoS1

	// QoS2 indicates the exactly once delivery.
	QoS2
)

var qosNames = map[QoS]string{
	QoS0: "AtMostOnce",
	QoS1: "AtLeastOnce",
	QoS2: "ExactlyOnce",
}

// String returns the QoS name.
func (q QoS) String() string {
	n, ok := qosNames[q]
	if !ok {
		return "Invalid(" + strconv.Itoa(int(q)) + ")"
	}

	return n
}

var (
	// ErrInvalidTopic indicates that the envelope was created without topic.
	ErrInvalidTopic = errors.New("envelope missing topic")

	// ErrInvalidQoS indicates that the envelope was created with an unknown
	// QoS level.
	ErrInvalidQoS = errors.New("envelope invalid QoS")

	// ErrNilEnvelope indicates that a setter was called on a nil envelope.
	ErrNilEnvelope = errors.New("nil envelope")
)

// Envelope represents a protocol message which has been, or is about to be,
// put on the wire.
//
// The packet ID, topic, QoS and payload never change after New. Only the
// duplicate and retained flags are mutable, as the protocol layer decides the
// retransmission semantics.
type Envelope struct {
	topic     string
	payload   []byte
	packetID  uint16
	qos       QoS
	duplicate bool
	retained  bool
}

// New creates an Envelope. The payload is copied, so the caller is free to
// reuse its buffer once New returns.
func New(packetID uint16, topic string, qos QoS, payload []byte) (*Envelope,
	error) {

	if topic == "" {
		return nil, ErrInvalidTopic
	}
	if qos > QoS2 {
		return nil, ErrInvalidQoS
	}

	env := &Envelope{
		packetID: packetID,
		topic:    topic,
		qos:      qos,
		payload:  make([]byte, len(payload)),
	}
	copy(env.payload, payload)

	return env, nil
}

// PacketID returns the packet identifier, or 0 for a nil envelope.
func (e *Envelope) PacketID() uint16 {
	if e == nil {
		return 0
	}
	return e.packetID
}

// Topic returns the topic, or an empty string for a nil envelope.
func (e *Envelope) Topic() string {
	if e == nil {
		return ""
	}
	return e.topic
}

// HasTopic returns whether the envelope has a topic. It's false for a nil, or
// released, envelope.
func (e *Envelope) HasTopic() bool {
	return e.Topic() != ""
}

// QoS returns the QoS level, or QoS0 for a nil envelope.
func (e *Envelope) QoS() QoS {
	if e == nil {
		return QoS0
	}
	return e.qos
}

// Payload returns the payload, or nil for a nil envelope. A zero-length
// payload is returned as an empty, non-nil, slice.
//
// The returned slice belongs to the envelope and it must not be modified.
func (e *Envelope) Payload() []byte {
	if e == nil {
		return nil
	}
	return e.payload
}

// IsDuplicate returns the duplicate flag, or false for a nil envelope.
func (e *Envelope) IsDuplicate() bool {
	if e == nil {
		return false
	}
	return e.duplicate
}

// IsRetained returns the retained flag, or false for a nil envelope.
func (e *Envelope) IsRetained() bool {
	if e == nil {
		return false
	}
	return e.retained
}

// SetDuplicate sets the duplicate flag.
func (e *Envelope) SetDuplicate(dup bool) error {
	if e == nil {
		return ErrNilEnvelope
	}

	e.duplicate = dup
	return nil
}

// SetRetained sets the retained flag.
func (e *Envelope) SetRetained(retained bool) error {
	if e == nil {
		return ErrNilEnvelope
	}

	e.retained = retained
	return nil
}

// Clone returns a deep copy of the envelope, including the flags. The clone of
// a nil envelope is nil.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}

	clone := *e
	clone.payload = make([]byte, len(e.payload))
	copy(clone.payload, e.payload)

	return &clone
}

// Release drops the topic and payload held by the envelope. After Release,
// Topic and Payload return the same values as for a nil envelope.
func (e *Envelope) Release() {
	if e == nil {
		return
	}

	e.topic = ""
	e.payload = nil
}
