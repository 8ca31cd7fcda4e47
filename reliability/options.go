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
	"github.com/gsalomao/maxiot/logger"
	"github.com/gsalomao/maxiot/retry"
)

// OptionsFn represents a function which sets an option in the Connection.
type OptionsFn func(c *Connection)

// WithConfiguration sets the configuration into the Connection.
func WithConfiguration(cf Configuration) OptionsFn {
	return func(c *Connection) {
		c.conf = cf
	}
}

// WithLogger sets the given Logger into the Connection.
func WithLogger(log *logger.Logger) OptionsFn {
	return func(c *Connection) {
		c.log = log
	}
}

// WithClock sets the Clock used by the Connection and its retry controllers.
func WithClock(clock retry.Clock) OptionsFn {
	return func(c *Connection) {
		c.clock = clock
	}
}

// WithRandom sets the Random used by the retry controllers.
func WithRandom(rnd retry.Random) OptionsFn {
	return func(c *Connection) {
		c.random = rnd
	}
}

// WithMetrics sets the Metrics updated by the Connection.
func WithMetrics(mt *Metrics) OptionsFn {
	return func(c *Connection) {
		c.metrics = mt
	}
}

// WithEventHandler sets the function called on every delivery event.
func WithEventHandler(fn EventHandler) OptionsFn {
	return func(c *Connection) {
		c.handler = fn
	}
}

// WithConnectionID sets the identifier of the Connection.
func WithConnectionID(id string) OptionsFn {
	return func(c *Connection) {
		c.id = id
	}
}

// WithSavedOptions sets the message retry options previously returned by
// Connection.SavedOptions.
func WithSavedOptions(blob []byte) OptionsFn {
	return func(c *Connection) {
		c.savedOptions = blob
	}
}
