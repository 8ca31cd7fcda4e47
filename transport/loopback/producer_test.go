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
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gsalomao/maxiot/envelope"
	"github.com/gsalomao/maxiot/mocks"
	"github.com/gsalomao/maxiot/reliability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type publisherMock struct {
	mock.Mock
}

func (p *publisherMock) Publish(topic string, qos envelope.QoS,
	payload []byte) (*envelope.Envelope, error) {

	args := p.Called(topic, qos, payload)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return envelope.New(1, topic, qos, payload)
}

func TestProducer_Topic(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	id := gofakeit.Username()

	p := NewProducer(&publisherMock{}, id, 0, logStub.Logger())
	assert.Equal(t, "devices/"+id+"/messages/events/", p.Topic())
	assert.Equal(t, defaultPublishInterval, p.interval)
}

func TestProducer_PublishOnce(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	pub := &publisherMock{}
	pub.On("Publish", EventsTopic("dev1"), envelope.QoS1,
		[]byte(`{"seq":1}`)).Return(nil)
	pub.On("Publish", EventsTopic("dev1"), envelope.QoS1,
		[]byte(`{"seq":2}`)).Return(nil)

	p := NewProducer(pub, "dev1", time.Second, logStub.Logger())

	env, err := p.PublishOnce()
	require.Nil(t, err)
	assert.Equal(t, []byte(`{"seq":1}`), env.Payload())

	_, err = p.PublishOnce()
	require.Nil(t, err)
	pub.AssertExpectations(t)
}

func TestProducer_PublishOnceError(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("failed"))

	p := NewProducer(pub, "dev1", time.Second, logStub.Logger())
	_, err := p.PublishOnce()
	assert.NotNil(t, err)
}

func TestProducer_RunAndStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	logStub := mocks.NewLoggerStub()
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(reliability.ErrClosed)

	p := NewProducer(pub, "dev1", 5*time.Millisecond, logStub.Logger())

	done := make(chan error)
	go func() {
		done <- p.Run()
	}()

	<-time.After(20 * time.Millisecond)
	p.Stop()
	p.Stop()

	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("producer did not stop")
	}
	assert.Contains(t, logStub.String(), "Producer stopped")
}
