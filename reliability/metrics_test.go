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
	"testing"
	"time"

	"github.com/gsalomao/maxiot/envelope"
	"github.com/gsalomao/maxiot/mocks"
	"github.com/gsalomao/maxiot/retry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMetrics_DeliveryLifecycle(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	mt := NewMetrics(false, logStub.Logger())

	f := newConnectionFixture(t, Configuration{
		RetryPolicy:      retry.PolicyImmediate,
		RetryMaxDuration: 20,
		AckTimeout:       10,
	}, WithMetrics(mt))
	f.tr.On("Resend", mock.Anything).Return(nil)
	f.tr.On("Abandon", mock.Anything, mock.Anything)

	for i := 0; i < 3; i++ {
		_, err := f.conn.Publish("t", envelope.QoS1, nil)
		require.Nil(t, err)
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(mt.messages.trackedTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(mt.messages.inflight))

	f.conn.Ack(1)
	f.conn.Ack(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.messages.ackedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(mt.messages.duplicateAcks))

	f.clock.Advance(10 * time.Second)
	_, err := f.conn.Tick()
	require.Nil(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(mt.messages.retriedTotal))

	f.clock.Advance(10 * time.Second)
	_, err = f.conn.Tick()
	require.Nil(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(mt.messages.abandoned))
	assert.Zero(t, testutil.ToFloat64(mt.messages.inflight))

	now := mt.decisions.WithLabelValues(scopeMessage, "RetryNow")
	stop := mt.decisions.WithLabelValues(scopeMessage, "StopRetrying")
	assert.Equal(t, float64(5), testutil.ToFloat64(now))
	assert.Equal(t, float64(2), testutil.ToFloat64(stop))
}

func TestMetrics_LostInFlight(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	mt := NewMetrics(false, logStub.Logger())

	f := newConnectionFixture(t, Configuration{}, WithMetrics(mt))
	f.tr.On("Resend", mock.Anything).Return(nil)

	for i := 0; i < 2; i++ {
		_, err := f.conn.Publish("t", envelope.QoS1, nil)
		require.Nil(t, err)
	}

	f.conn.Close()
	assert.Equal(t, float64(2), testutil.ToFloat64(mt.messages.lostTotal))
	assert.Zero(t, testutil.ToFloat64(mt.messages.inflight))
}

func TestMetrics_RegisterTwice(t *testing.T) {
	logStub := mocks.NewLoggerStub()

	_ = NewMetrics(true, logStub.Logger())
	assert.NotContains(t, logStub.String(), "Failed to register metrics")

	_ = NewMetrics(true, logStub.Logger())
	assert.Contains(t, logStub.String(), "Failed to register metrics")
}
