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

// Package loopback provides a Transport which simulates a lossy link without
// any network I/O.
package loopback

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/gsalomao/maxiot/envelope"
	"github.com/gsalomao/maxiot/logger"
	"github.com/gsalomao/maxiot/retry"
)

// ErrInvalidLossRatio indicates a loss ratio out of the [0,1] range.
var ErrInvalidLossRatio = errors.New("loss ratio must be between 0 and 1")

// Acknowledger is responsible to receive the acknowledgments of the
// delivered messages.
type Acknowledger interface {
	Ack(id uint16) (*envelope.Envelope, bool)
}

// Stats contains the counters of the Transport.
type Stats struct {
	Sent      uint64
	Delivered uint64
	Dropped   uint64
	Abandoned uint64
}

// Transport delivers every message back to its Acknowledger, dropping a
// random share of them.
type Transport struct {
	mu        sync.Mutex
	ack       Acknowledger
	lossRatio float64
	random    retry.Random
	stats     Stats
	log       *logger.Logger
}

// New creates a Transport which drops messages with the given probability.
func New(lossRatio float64, rnd retry.Random,
	log *logger.Logger) (*Transport, error) {

	if lossRatio < 0 || lossRatio > 1 {
		return nil, ErrInvalidLossRatio
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Int63()))
	}

	return &Transport{lossRatio: lossRatio, random: rnd, log: log}, nil
}

// SetAcknowledger sets the Acknowledger which receives the acknowledgments.
func (t *Transport) SetAcknowledger(ack Acknowledger) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ack = ack
}

// Resend delivers the envelope, unless the link drops it. A delivered envelope
// is acknowledged before Resend returns. Envelopes with QoS 0 are never
// acknowledged.
func (t *Transport) Resend(env *envelope.Envelope) error {
	if env == nil {
		return envelope.ErrNilEnvelope
	}

	t.mu.Lock()
	t.stats.Sent++
	dropped := t.random.Float64() < t.lossRatio
	if dropped {
		t.stats.Dropped++
	} else {
		t.stats.Delivered++
	}
	ack := t.ack
	t.mu.Unlock()

	if dropped {
		t.log.Debug().
			Uint16("PacketID", env.PacketID()).
			Bool("Duplicate", env.IsDuplicate()).
			Msg("Loopback Message dropped")
		return nil
	}

	t.log.Trace().
		Uint16("PacketID", env.PacketID()).
		Str("Topic", env.Topic()).
		Int("Size", len(env.Payload())).
		Bool("Duplicate", env.IsDuplicate()).
		Msg("Loopback Message delivered")

	if ack != nil && env.QoS() > envelope.QoS0 {
		ack.Ack(env.PacketID())
	}
	return nil
}

// Abandon records that the envelope was given up.
func (t *Transport) Abandon(env *envelope.Envelope, err error) {
	t.mu.Lock()
	t.stats.Abandoned++
	t.mu.Unlock()

	msg := "Loopback Message abandoned"
	if err != nil {
		msg += ": " + err.Error()
	}
	t.log.Warn().Uint16("PacketID", env.PacketID()).Msg(msg)
}

// Stats returns the current counters.
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stats
}
