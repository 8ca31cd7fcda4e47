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
	"github.com/gsalomao/maxiot/envelope"
	"github.com/stretchr/testify/mock"
)

// TransportMock is responsible to mock the reliability.Transport.
type TransportMock struct {
	mock.Mock

	// OnResend, when set, is called after the mock records a Resend call.
	OnResend func(env *envelope.Envelope)
}

// Resend sends the envelope again.
func (t *TransportMock) Resend(env *envelope.Envelope) error {
	ret := t.Called(env.PacketID())
	if t.OnResend != nil {
		t.OnResend(env)
	}

	err, _ := ret.Get(0).(error)
	return err
}

// Abandon notifies that the envelope will not be sent anymore.
func (t *TransportMock) Abandon(env *envelope.Envelope, err error) {
	t.Called(env.PacketID(), err)
}
