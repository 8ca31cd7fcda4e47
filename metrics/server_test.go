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

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gsalomao/maxiot/metrics"
	"github.com/gsalomao/maxiot/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_NewServerError(t *testing.T) {
	logStub := mocks.NewLoggerStub()

	_, err := metrics.NewServer(metrics.Configuration{Path: "/metrics"},
		logStub.Logger())
	assert.ErrorIs(t, err, metrics.ErrMissingAddress)

	_, err = metrics.NewServer(metrics.Configuration{Address: ":8888"},
		logStub.Logger())
	assert.ErrorIs(t, err, metrics.ErrMissingPath)
}

func TestServer_Handler(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	s, err := metrics.NewServer(metrics.Configuration{
		Address:   ":8888",
		Path:      "/metrics",
		Profiling: true,
	}, logStub.Logger())
	require.Nil(t, err)
	assert.Contains(t, logStub.String(), "Profiling enabled")

	testCases := []struct {
		path string
		code int
	}{
		{"/metrics", http.StatusOK},
		{"/debug/pprof/", http.StatusOK},
		{"/unknown", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rec := httptest.NewRecorder()

			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestServer_RunAndStop(t *testing.T) {
	logStub := mocks.NewLoggerStub()
	s, err := metrics.NewServer(metrics.Configuration{
		Address: "127.0.0.1:0",
		Path:    "/metrics",
	}, logStub.Logger())
	require.Nil(t, err)

	done := make(chan error)
	go func() {
		done <- s.Run()
	}()

	require.Eventually(t, func() bool { return s.Addr() != nil },
		time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/metrics")
	require.Nil(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.Stop()
	assert.Nil(t, <-done)
	assert.Contains(t, logStub.String(), "Metrics Listening on")
}
