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

package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gsalomao/maxiot/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Log(t *testing.T) {
	require.Nil(t, logger.SetSeverityLevel("trace"))
	out := bytes.NewBufferString("")
	log := logger.New(out)
	msg := gofakeit.Phrase()

	log.Info().Msg(msg)
	assert.Contains(t, out.String(), "INFO")
	assert.Contains(t, out.String(), msg)
}

func TestLogger_WithField(t *testing.T) {
	require.Nil(t, logger.SetSeverityLevel("trace"))
	out := bytes.NewBufferString("")
	log := logger.New(out)
	key := gofakeit.Word()
	val := gofakeit.Phrase()

	log.Info().Str(key, val).Msg("")
	assert.Contains(t, out.String(), key+"=")
	assert.Contains(t, out.String(), val)
}

func TestLogger_WithComponent(t *testing.T) {
	require.Nil(t, logger.SetSeverityLevel("trace"))
	out := bytes.NewBufferString("")
	log := logger.New(out)

	child := logger.WithComponent(&log, "Tracker")
	child.Debug().Msg(gofakeit.Phrase())
	assert.Contains(t, out.String(), "Component=")
	assert.Contains(t, out.String(), "Tracker")
}

func TestLogger_SetSeverity(t *testing.T) {
	out := bytes.NewBufferString("")
	log := logger.New(out)
	msg := gofakeit.Phrase()

	err := logger.SetSeverityLevel("INFO")
	require.Nil(t, err)
	defer func() { _ = logger.SetSeverityLevel("trace") }()

	log.Debug().Msg(msg)
	assert.Empty(t, out.String())
}

func TestLogger_SetInvalidSeverity(t *testing.T) {
	err := logger.SetSeverityLevel("invalid")
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, logger.ErrInvalidLevel)
	assert.False(t, logger.IsValidLevel("invalid"))
	assert.True(t, logger.IsValidLevel("Warning"))
}

func TestLogger_JSONFormat(t *testing.T) {
	require.Nil(t, logger.SetSeverityLevel("trace"))
	out := bytes.NewBufferString("")
	log := logger.NewWithFormat(out, logger.FormatJSON)
	msg := gofakeit.Phrase()

	log.Warn().Uint16("PacketID", 7).Msg(msg)

	line := map[string]interface{}{}
	require.Nil(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, msg, line["message"])
	assert.Equal(t, float64(7), line["PacketID"])
	assert.Contains(t, line, "time")
}

func TestLogger_ParseFormat(t *testing.T) {
	testCases := []struct {
		name   string
		format logger.Format
	}{
		{"pretty", logger.FormatPretty},
		{"JSON", logger.FormatJSON},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := logger.ParseFormat(tc.name)
			require.Nil(t, err)
			assert.Equal(t, tc.format, f)
		})
	}

	_, err := logger.ParseFormat("xml")
	assert.ErrorIs(t, err, logger.ErrInvalidFormat)
}
