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

// Package reliability drives the delivery of the messages of a connection. It
// tracks every message until it's acknowledged, resends the expired ones, and
// gives them up once their retry policy says so.
package reliability

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gsalomao/maxiot/envelope"
	"github.com/gsalomao/maxiot/logger"
	"github.com/gsalomao/maxiot/retry"
	"github.com/gsalomao/maxiot/tracker"
	"github.com/rs/xid"
)

var (
	// ErrRetriesExhausted indicates that a message was given up because its
	// retry policy stopped retrying.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrClosed indicates that the connection was closed.
	ErrClosed = errors.New("connection closed")

	// ErrInflightLimit indicates that the maximum number of unacknowledged
	// messages was reached.
	ErrInflightLimit = errors.New("too many in-flight messages")

	// ErrNilTransport indicates that no transport was given.
	ErrNilTransport = errors.New("missing transport")
)

const (
	scopeMessage    = "message"
	scopeConnection = "connection"
)

// Transport is responsible to put messages on the wire.
type Transport interface {
	// Resend sends the envelope. It's called for the first send and for every
	// resend, and it may acknowledge the envelope before it returns.
	Resend(env *envelope.Envelope) error

	// Abandon notifies that the envelope was given up.
	Abandon(env *envelope.Envelope, err error)
}

// TickResult contains the outcome of a Tick.
type TickResult struct {
	// The number of expired messages evaluated.
	Expired int

	// The number of messages resent.
	Retried int

	// The number of messages whose resend was deferred.
	Deferred int

	// The number of messages given up.
	Abandoned int

	// The number of expired messages acknowledged before being evaluated.
	Skipped int
}

// Connection tracks the in-flight messages of a single connection and decides,
// based on the retry policies, when they must be resent or given up. It also
// decides when the connection itself must be reopened.
//
// Connection is safe for concurrent use. No lock is held while the Transport
// or the EventHandler is called.
type Connection struct {
	mu           sync.Mutex
	id           string
	conf         Configuration
	transport    Transport
	tracker      *tracker.Tracker
	reconnect    *retry.Controller
	template     *retry.Controller
	clock        retry.Clock
	random       retry.Random
	metrics      *Metrics
	log          *logger.Logger
	handler      EventHandler
	sinks        []*eventSink
	savedOptions []byte
	createdAt    time.Time
	connected    bool
	healthy      bool
	closed       bool
}

// NewConnection creates a new Connection which sends messages through the
// given Transport.
func NewConnection(tr Transport, opts ...OptionsFn) (*Connection, error) {
	if tr == nil {
		return nil, ErrNilTransport
	}

	c := &Connection{
		transport: tr,
		tracker:   tracker.New(),
		healthy:   true,
	}
	for _, fn := range opts {
		fn(c)
	}

	if c.id == "" {
		c.id = xid.New().String()
	}
	if c.clock == nil {
		c.clock = retry.SystemClock
	}
	if c.log == nil {
		log := logger.New(io.Discard)
		c.log = &log
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(false, c.log)
	}

	c.conf.AckTimeout = ackTimeoutOrDefault(c.conf.AckTimeout)
	c.conf.RetryInitialWait = retryInitialWaitOrDefault(c.conf.RetryInitialWait)
	c.conf.MaxInflightMessages = maxInflightOrDefault(c.conf.MaxInflightMessages)

	var err error
	c.template, err = c.newMessageController()
	if err != nil {
		return nil, err
	}

	c.reconnect = retry.New(c.conf.ReconnectPolicy, c.conf.ReconnectMaxDuration,
		retry.WithClock(c.clock), retry.WithRandom(c.random))
	now, err := c.clock.Now()
	if err != nil {
		c.healthy = false
		c.log.Warn().
			Str("ConnectionID", c.id).
			Msg("Reliability Failed to read clock: " + err.Error())
	}
	c.createdAt = now

	c.log.Trace().
		Str("ConnectionID", c.id).
		Str("RetryPolicy", c.conf.RetryPolicy.String()).
		Uint32("RetryMaxDuration", c.conf.RetryMaxDuration).
		Uint32("RetryInitialWait", c.conf.RetryInitialWait).
		Uint32("RetryMaxJitterPercent", c.conf.RetryMaxJitterPercent).
		Uint32("RetryMaxDelay", c.conf.RetryMaxDelay).
		Str("ReconnectPolicy", c.conf.ReconnectPolicy.String()).
		Uint32("ReconnectMaxDuration", c.conf.ReconnectMaxDuration).
		Int("AckTimeout", c.conf.AckTimeout).
		Int("MaxInflightMessages", c.conf.MaxInflightMessages).
		Msg("Reliability Connection created")

	return c, nil
}

func (c *Connection) newMessageController() (*retry.Controller, error) {
	ctrl := retry.New(c.conf.RetryPolicy, c.conf.RetryMaxDuration,
		retry.WithClock(c.clock), retry.WithRandom(c.random))

	err := ctrl.SetOption(retry.OptionInitialWaitTime, c.conf.RetryInitialWait)
	if err == nil {
		err = ctrl.SetOption(retry.OptionMaxJitterPercent,
			c.conf.RetryMaxJitterPercent)
	}
	if err == nil {
		err = ctrl.SetOption(retry.OptionMaxDelay, c.conf.RetryMaxDelay)
	}
	if err == nil && len(c.savedOptions) > 0 {
		err = ctrl.SetOption(retry.OptionSavedOptions, c.savedOptions)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid message retry options: %w", err)
	}

	return ctrl, nil
}

// ID returns the identifier of the Connection.
func (c *Connection) ID() string {
	return c.id
}

// SavedOptions returns the encoded message retry options, which can be given
// to WithSavedOptions when the connection is recreated.
func (c *Connection) SavedOptions() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bag, err := c.template.RetrieveOptions()
	if err != nil {
		return nil, err
	}
	return bag.Encode()
}

// Track tracks the envelope, already sent, until it's acknowledged.
func (c *Connection) Track(env *envelope.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.trackLocked(env)
}

func (c *Connection) trackLocked(env *envelope.Envelope) error {
	if c.closed {
		return ErrClosed
	}

	limit := c.conf.MaxInflightMessages
	if limit > 0 && c.tracker.Len() >= limit {
		return ErrInflightLimit
	}

	now, err := c.clock.Now()
	if err != nil {
		c.healthy = false
		return fmt.Errorf("%w: %s", retry.ErrClock, err.Error())
	}

	ctrl := c.template.Clone()
	err = c.tracker.Insert(env, now, ctrl)
	if err != nil {
		return err
	}

	act, err := ctrl.ShouldRetry()
	if err != nil {
		c.tracker.Remove(env.PacketID())
		c.healthy = false
		return err
	}
	c.metrics.recordDecision(scopeMessage, act)
	c.metrics.tracked()

	c.log.Trace().
		Str("ConnectionID", c.id).
		Uint16("PacketID", env.PacketID()).
		Int("InflightMessages", c.tracker.Len()).
		Msg("Reliability Message tracked")

	return nil
}

// Publish creates an envelope and sends it through the Transport. Envelopes
// with QoS greater than 0 are tracked before being sent, so an acknowledgment
// delivered during the send finds them. A failed send of a tracked envelope
// is retried once it expires.
func (c *Connection) Publish(topic string, qos envelope.QoS,
	payload []byte) (*envelope.Envelope, error) {

	if qos == envelope.QoS0 {
		env, err := envelope.New(0, topic, qos, payload)
		if err != nil {
			return nil, err
		}
		if c.isClosed() {
			return nil, ErrClosed
		}

		err = c.transport.Resend(env)
		if err != nil {
			return nil, fmt.Errorf("failed to send message: %w", err)
		}
		return env, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	id, err := c.tracker.NextPacketID()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	env, err := envelope.New(id, topic, qos, payload)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	err = c.trackLocked(env)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	err = c.transport.Resend(env)
	if err != nil {
		c.log.Warn().
			Str("ConnectionID", c.id).
			Uint16("PacketID", id).
			Msg("Reliability Failed to send message: " + err.Error())
	}

	return env, nil
}

// Ack removes the message with the given packet ID and hands its envelope over
// to the caller. An acknowledgment for a message not in flight is tolerated
// and returns false.
func (c *Connection) Ack(id uint16) (*envelope.Envelope, bool) {
	c.mu.Lock()
	e, ok := c.tracker.Get(id)
	if ok {
		c.tracker.Remove(id)
	}
	c.mu.Unlock()

	if !ok {
		c.metrics.duplicateAck()
		c.log.Debug().
			Str("ConnectionID", c.id).
			Uint16("PacketID", id).
			Msg("Reliability Received acknowledgment for unknown message")
		return nil, false
	}

	now, err := c.clock.Now()
	var latency time.Duration
	if err == nil {
		latency = now.Sub(e.SentAt)
	}
	c.metrics.acknowledged(latency)

	c.log.Trace().
		Str("ConnectionID", c.id).
		Uint16("PacketID", id).
		Int("Sends", e.Sends).
		Dur("Latency", latency).
		Msg("Reliability Message acknowledged")

	c.emit(Event{Type: EventAcknowledged, PacketID: id, Time: now})
	return e.Envelope, true
}

// Tick evaluates every expired message, in the order they were tracked, and
// resends, defers or gives up each one. Messages acknowledged during the tick
// are skipped. A failure to read the clock aborts the tick and marks the
// Connection as unhealthy.
func (c *Connection) Tick() (TickResult, error) {
	var res TickResult

	now, err := c.clock.Now()
	if err != nil {
		c.setHealthy(false)
		return res, fmt.Errorf("%w: %s", retry.ErrClock, err.Error())
	}

	timeout := time.Duration(c.conf.AckTimeout) * time.Second

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return res, ErrClosed
	}
	expired := c.tracker.FindExpired(now, timeout)
	c.mu.Unlock()

	res.Expired = len(expired)
	for _, id := range expired {
		err = c.evaluate(id, now, &res)
		if err != nil {
			c.setHealthy(false)
			c.log.Error().
				Str("ConnectionID", c.id).
				Uint16("PacketID", id).
				Msg("Reliability Failed to evaluate message: " + err.Error())
			return res, err
		}
	}

	if res.Expired > 0 {
		c.log.Debug().
			Str("ConnectionID", c.id).
			Int("Expired", res.Expired).
			Int("Retried", res.Retried).
			Int("Deferred", res.Deferred).
			Int("Abandoned", res.Abandoned).
			Int("Skipped", res.Skipped).
			Msg("Reliability Tick completed")
	}

	return res, nil
}

func (c *Connection) evaluate(id uint16, now time.Time, res *TickResult) error {
	c.mu.Lock()
	e, ok := c.tracker.Get(id)
	if !ok || c.closed {
		c.mu.Unlock()
		res.Skipped++
		return nil
	}

	act := retry.ActionStopRetrying
	if e.Retry != nil {
		var err error
		act, err = e.Retry.ShouldRetry()
		if err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.metrics.recordDecision(scopeMessage, act)

	switch act {
	case retry.ActionRetryNow:
		// The envelope of a tracked entry is never nil.
		_ = e.Envelope.SetDuplicate(true)
		c.tracker.Touch(id, now)
		c.mu.Unlock()

		res.Retried++
		c.metrics.retried()
		c.log.Debug().
			Str("ConnectionID", c.id).
			Uint16("PacketID", id).
			Int("Sends", e.Sends+1).
			Uint64("RetryCount", e.Retry.RetryCount()).
			Msg("Reliability Resending message")

		err := c.transport.Resend(e.Envelope)
		if err != nil {
			c.log.Warn().
				Str("ConnectionID", c.id).
				Uint16("PacketID", id).
				Msg("Reliability Failed to resend message: " + err.Error())
		}
		c.emit(Event{Type: EventRetried, PacketID: id, Time: now})

	case retry.ActionRetryLater:
		c.mu.Unlock()

		res.Deferred++
		c.metrics.deferred()
		c.emit(Event{Type: EventDeferred, PacketID: id, Time: now})

	default:
		env, _ := c.tracker.Remove(id)
		c.mu.Unlock()

		res.Abandoned++
		c.metrics.abandonedMessage()
		c.log.Warn().
			Str("ConnectionID", c.id).
			Uint16("PacketID", id).
			Int("Sends", e.Sends).
			Msg("Reliability Giving up message")

		c.transport.Abandon(env, ErrRetriesExhausted)
		c.emit(Event{Type: EventAbandoned, PacketID: id, Time: now,
			Err: ErrRetriesExhausted})
	}

	return nil
}

// ShouldReconnect marks the Connection as disconnected and returns whether it
// must be reopened now, later, or never, according to the reconnect policy.
func (c *Connection) ShouldReconnect() (retry.Action, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	act, err := c.reconnect.ShouldRetry()
	if err != nil {
		c.healthy = false
		return act, err
	}
	c.metrics.recordDecision(scopeConnection, act)

	c.log.Debug().
		Str("ConnectionID", c.id).
		Str("Action", act.String()).
		Uint64("RetryCount", c.reconnect.RetryCount()).
		Msg("Reliability Reconnect decision")

	return act, nil
}

// Connected marks the Connection as connected and resets the reconnect
// policy.
func (c *Connection) Connected() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = true
	c.healthy = true
	c.reconnect.Reset()

	c.log.Info().Str("ConnectionID", c.id).Msg("Reliability Connected")
}

// Events returns a channel which receives every delivery event. The channel
// has the given buffer size, and events are dropped while it's full. The
// channel is closed when the Connection is closed.
func (c *Connection) Events(size int) <-chan Event {
	if size < 1 {
		size = 1
	}
	s := &eventSink{ch: make(chan Event, size)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(s.ch)
	} else {
		c.sinks = append(c.sinks, s)
	}
	return s.ch
}

// Inflight returns the number of messages awaiting acknowledgment.
func (c *Connection) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tracker.Len()
}

// Close closes the Connection, dropping every in-flight message without
// acknowledging or abandoning it. It returns the number of messages lost in
// flight.
func (c *Connection) Close() int {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}

	lost := c.tracker.Close()
	c.closed = true
	c.connected = false
	for _, s := range c.sinks {
		close(s.ch)
	}
	c.sinks = nil
	c.mu.Unlock()

	c.metrics.lostInFlight(lost)

	ev := c.log.Info()
	if lost > 0 {
		ev = c.log.Warn()
	}
	ev.Str("ConnectionID", c.id).
		Int("LostInFlight", lost).
		Msg("Reliability Connection closed")

	return lost
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Connection) setHealthy(healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy = healthy
}

func (c *Connection) emit(ev Event) {
	ev.ConnectionID = c.id

	c.mu.Lock()
	for _, s := range c.sinks {
		s.push(ev)
	}
	c.mu.Unlock()

	if c.handler != nil {
		c.handler(ev)
	}
}
