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
	"time"

	"github.com/gsalomao/maxiot/logger"
	"github.com/gsalomao/maxiot/retry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Metrics holds the delivery engine metrics. A single Metrics can be shared by
// all connections.
type Metrics struct {
	messages  *messagesMetrics
	decisions *prometheus.CounterVec
	latencies *latenciesMetrics
	log       *logger.Logger
}

type messagesMetrics struct {
	inflight      prometheus.Gauge
	trackedTotal  prometheus.Counter
	ackedTotal    prometheus.Counter
	duplicateAcks prometheus.Counter
	retriedTotal  prometheus.Counter
	deferredTotal prometheus.Counter
	abandoned     prometheus.Counter
	lostTotal     prometheus.Counter
}

type latenciesMetrics struct {
	ackSeconds prometheus.Histogram
}

// NewMetrics creates the delivery engine metrics. When enabled, the metrics
// are registered in the Prometheus default registry.
func NewMetrics(enabled bool, log *logger.Logger) *Metrics {
	mt := &Metrics{log: log}

	mt.messages = newMessagesMetrics()
	mt.latencies = newLatenciesMetrics()
	mt.decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maxiot",
			Subsystem: "reliability",
			Name:      "retry_decisions_total",
			Help:      "Number of retry decisions",
		}, []string{"scope", "action"},
	)

	if enabled {
		err := mt.registerMessagesMetrics()
		err = multierr.Combine(err, prometheus.Register(mt.decisions))
		err = multierr.Combine(err,
			prometheus.Register(mt.latencies.ackSeconds))
		if err != nil {
			log.Error().
				Msg("Reliability Failed to register metrics: " + err.Error())
		}
	}

	return mt
}

func newMessagesMetrics() *messagesMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maxiot",
				Subsystem: "reliability",
				Name:      name,
				Help:      help,
			},
		)
	}

	return &messagesMetrics{
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "maxiot",
				Subsystem: "reliability",
				Name:      "inflight_messages",
				Help:      "Number of messages awaiting acknowledgment",
			},
		),
		trackedTotal: counter("messages_tracked_total",
			"Number of messages tracked until acknowledgment"),
		ackedTotal: counter("messages_acknowledged_total",
			"Number of messages acknowledged"),
		duplicateAcks: counter("duplicate_acks_total",
			"Number of acknowledgments for messages not in flight"),
		retriedTotal: counter("messages_retried_total",
			"Number of messages resent"),
		deferredTotal: counter("messages_deferred_total",
			"Number of expired messages whose resend was deferred"),
		abandoned: counter("messages_abandoned_total",
			"Number of messages given up after the retries were exhausted"),
		lostTotal: counter("messages_lost_in_flight_total",
			"Number of messages dropped in flight when a connection closed"),
	}
}

func newLatenciesMetrics() *latenciesMetrics {
	return &latenciesMetrics{
		ackSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "maxiot",
				Subsystem: "reliability",
				Name:      "ack_latency_seconds",
				Help: "Duration in seconds from the time the message is " +
					"last sent until the time it is acknowledged",
				Buckets: []float64{
					0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30,
				},
			},
		),
	}
}

func (m *Metrics) registerMessagesMetrics() error {
	err := prometheus.Register(m.messages.inflight)
	err = multierr.Combine(err, prometheus.Register(m.messages.trackedTotal))
	err = multierr.Combine(err, prometheus.Register(m.messages.ackedTotal))
	err = multierr.Combine(err, prometheus.Register(m.messages.duplicateAcks))
	err = multierr.Combine(err, prometheus.Register(m.messages.retriedTotal))
	err = multierr.Combine(err, prometheus.Register(m.messages.deferredTotal))
	err = multierr.Combine(err, prometheus.Register(m.messages.abandoned))
	err = multierr.Combine(err, prometheus.Register(m.messages.lostTotal))

	return err
}

func (m *Metrics) tracked() {
	m.messages.trackedTotal.Inc()
	m.messages.inflight.Inc()
}

func (m *Metrics) acknowledged(latency time.Duration) {
	m.messages.ackedTotal.Inc()
	m.messages.inflight.Dec()
	m.latencies.ackSeconds.Observe(latency.Seconds())
}

func (m *Metrics) duplicateAck() {
	m.messages.duplicateAcks.Inc()
}

func (m *Metrics) retried() {
	m.messages.retriedTotal.Inc()
}

func (m *Metrics) deferred() {
	m.messages.deferredTotal.Inc()
}

func (m *Metrics) abandonedMessage() {
	m.messages.abandoned.Inc()
	m.messages.inflight.Dec()
}

func (m *Metrics) lostInFlight(n int) {
	m.messages.lostTotal.Add(float64(n))
	m.messages.inflight.Sub(float64(n))
}

func (m *Metrics) recordDecision(scope string, act retry.Action) {
	lb := prometheus.Labels{"scope": scope, "action": act.String()}
	m.decisions.With(lb).Inc()
}
