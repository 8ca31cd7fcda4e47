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

package mocks

import (
	"bytes"
	"sync"

	"github.com/gsalomao/maxiot/logger"
)

// LoggerStub is a real logger which keeps every line it writes, so tests can
// check what was logged. It's safe for concurrent use.
type LoggerStub struct {
	mu  sync.Mutex
	buf bytes.Buffer
	log logger.Logger
}

// NewLoggerStub creates a LoggerStub.
func NewLoggerStub() *LoggerStub {
	l := &LoggerStub{}
	l.log = logger.New(l)
	return l
}

// Logger returns the logger which writes into the stub.
func (l *LoggerStub) Logger() *logger.Logger {
	return &l.log
}

// Write appends p to the captured logs.
func (l *LoggerStub) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

// String returns all the captured logs.
func (l *LoggerStub) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// Reset discards the captured logs.
func (l *LoggerStub) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Reset()
}
