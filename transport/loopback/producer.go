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

package loopback

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gsalomao/maxiot/envelope"
	"github.com/gsalomao/maxiot/logger"
	"github.com/gsalomao/maxiot/reliability"
)

const defaultPublishInterval = time.Second

// Publisher is responsible to publish messages.
type Publisher interface {
	Publish(topic string, qos envelope.QoS,
		payload []byte) (*envelope.Envelope, error)
}

// Producer represents a Runner responsible to publish telemetry messages of a
// device at a fixed interval.
type Producer struct {
	pub      Publisher
	topic    string
	interval time.Duration
	log      *logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
	sequence uint64
}

// NewProducer creates a Producer which publishes, through pub, the telemetry
// of the given device.
func NewProducer(pub Publisher, deviceID string, interval time.Duration,
	log *logger.Logger) *Producer {

	if interval <= 0 {
		interval = defaultPublishInterval
	}

	return &Producer{
		pub:      pub,
		topic:    EventsTopic(deviceID),
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// EventsTopic returns the topic of the device-to-cloud messages of a device.
func EventsTopic(deviceID string) string {
	return "devices/" + deviceID + "/messages/events/"
}

// Topic returns the topic the Producer publishes on.
func (p *Producer) Topic() string {
	return p.topic
}

// PublishOnce publishes a single telemetry message.
func (p *Producer) PublishOnce() (*envelope.Envelope, error) {
	p.sequence++
	payload := []byte(`{"seq":` + strconv.FormatUint(p.sequence, 10) + `}`)

	env, err := p.pub.Publish(p.topic, envelope.QoS1, payload)
	if err != nil {
		return nil, err
	}

	p.log.Trace().
		Uint16("PacketID", env.PacketID()).
		Uint64("Sequence", p.sequence).
		Msg("Loopback Telemetry published")
	return env, nil
}

// Run starts the execution of the Producer.
// Once called, it blocks publishing messages until it's stopped by the Stop
// function.
func (p *Producer) Run() error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info().
		Str("Topic", p.topic).
		Dur("Interval", p.interval).
		Msg("Loopback Producer running")

	for {
		select {
		case <-ticker.C:
			_, err := p.PublishOnce()
			if errors.Is(err, reliability.ErrClosed) {
				p.log.Debug().Msg("Loopback Connection closed, producer idle")
			} else if err != nil {
				p.log.Warn().Msg("Loopback Failed to publish: " + err.Error())
			}
		case <-p.stop:
			p.log.Debug().Msg("Loopback Producer stopped with success")
			return nil
		}
	}
}

// Stop stops the Producer.
// Once called, it unblocks the Run function.
func (p *Producer) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}
