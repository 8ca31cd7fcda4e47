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
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gsalomao/maxiot/logger"
)

// ErrDuplicateConnection indicates that a connection with the same identifier
// is already registered.
var ErrDuplicateConnection = errors.New("connection already registered")

const defaultTickInterval = time.Second

// Pump represents a Runner responsible to tick every registered connection at
// a fixed interval.
type Pump struct {
	mu       sync.RWMutex
	conns    map[string]*Connection
	interval time.Duration
	log      *logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPump creates a Pump which ticks the connections at the given interval.
func NewPump(interval time.Duration, log *logger.Logger) *Pump {
	if interval <= 0 {
		interval = defaultTickInterval
	}

	return &Pump{
		conns:    make(map[string]*Connection),
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Register adds the connection to the Pump.
func (p *Pump) Register(c *Connection) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.conns[c.ID()]; ok {
		return ErrDuplicateConnection
	}
	p.conns[c.ID()] = c

	p.log.Debug().
		Str("ConnectionID", c.ID()).
		Int("Connections", len(p.conns)).
		Msg("Reliability Connection registered")
	return nil
}

// Unregister removes the connection with the given identifier from the Pump,
// without closing it.
func (p *Pump) Unregister(id string) (*Connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.conns[id]
	if ok {
		delete(p.conns, id)
	}
	return c, ok
}

// Connection returns the registered connection with the given identifier.
func (p *Pump) Connection(id string) (*Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.conns[id]
	return c, ok
}

// Connections returns the registered connections sorted by identifier.
func (p *Pump) Connections() []*Connection {
	p.mu.RLock()
	conns := make([]*Connection, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool {
		return conns[i].ID() < conns[j].ID()
	})
	return conns
}

// TickAll ticks every registered connection once.
func (p *Pump) TickAll() {
	for _, c := range p.Connections() {
		_, err := c.Tick()
		if err != nil && !errors.Is(err, ErrClosed) {
			p.log.Error().
				Str("ConnectionID", c.ID()).
				Msg("Reliability Failed to tick connection: " + err.Error())
		}
	}
}

// Run starts the execution of the Pump.
// Once called, it blocks ticking the connections until it's stopped by the
// Stop function. Before returning, it closes every registered connection.
func (p *Pump) Run() error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info().
		Dur("Interval", p.interval).
		Msg("Reliability Pump running")

	for {
		select {
		case <-ticker.C:
			p.TickAll()
		case <-p.stop:
			p.closeAll()
			p.log.Debug().Msg("Reliability Pump stopped with success")
			return nil
		}
	}
}

// Stop stops the Pump.
// Once called, it unblocks the Run function.
func (p *Pump) Stop() {
	p.stopOnce.Do(func() {
		p.log.Debug().Msg("Reliability Stopping pump")
		close(p.stop)
	})
}

func (p *Pump) closeAll() {
	var lost int
	for _, c := range p.Connections() {
		lost += c.Close()
	}

	if lost > 0 {
		p.log.Warn().
			Int("LostInFlight", lost).
			Msg("Reliability Messages lost in flight on shutdown")
	}
}
