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
	"sync"

	"github.com/stretchr/testify/mock"
)

// RunnerMock is responsible to mock the server.Runner. Its Run blocks until
// Stop is called.
type RunnerMock struct {
	mock.Mock

	// Started is closed once Run has been called.
	Started chan struct{}

	// Err is returned by Run.
	Err error

	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRunnerMock creates a RunnerMock.
func NewRunnerMock() *RunnerMock {
	return &RunnerMock{
		Started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run marks the runner as started and waits for Stop.
func (r *RunnerMock) Run() error {
	r.Called()
	r.startOnce.Do(func() { close(r.Started) })

	<-r.stopped
	return r.Err
}

// Stop unblocks the Run function.
func (r *RunnerMock) Stop() {
	r.Called()
	r.stopOnce.Do(func() { close(r.stopped) })
}
