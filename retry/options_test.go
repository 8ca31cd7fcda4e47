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

package retry_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gsalomao/maxiot/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_SetOption(t *testing.T) {
	testCases := []struct {
		name   string
		value  interface{}
		params retry.Params
	}{
		{retry.OptionInitialWaitTime, 12, retry.Params{
			MaxRetryDurationSecs: 60, InitialWaitSecs: 12,
			MaxJitterPercent: retry.DefaultMaxJitterPercent}},
		{retry.OptionMaxJitterPercent, uint8(100), retry.Params{
			MaxRetryDurationSecs: 60,
			InitialWaitSecs:      retry.DefaultInitialWaitSecs,
			MaxJitterPercent:     100}},
		{retry.OptionMaxDelay, int64(300), retry.Params{
			MaxRetryDurationSecs: 60,
			InitialWaitSecs:      retry.DefaultInitialWaitSecs,
			MaxJitterPercent:     retry.DefaultMaxJitterPercent,
			MaxDelaySecs:         300}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := retry.New(retry.PolicyExponentialBackoffWithJitter, 60)

			err := c.SetOption(tc.name, tc.value)
			require.Nil(t, err)
			assert.Equal(t, tc.params, c.Params())
		})
	}
}

func TestController_SetOptionError(t *testing.T) {
	testCases := []struct {
		name   string
		option string
		value  interface{}
	}{
		{"ZeroInitialWait", retry.OptionInitialWaitTime, 0},
		{"NegativeInitialWait", retry.OptionInitialWaitTime, -1},
		{"JitterAbove100", retry.OptionMaxJitterPercent, 101},
		{"OutOfRange", retry.OptionMaxDelay, uint64(1) << 40},
		{"InvalidType", retry.OptionMaxDelay, "30"},
		{"UnknownOption", "max_attempts", 3},
		{"InvalidSavedOptions", retry.OptionSavedOptions, 3},
		{"MalformedSavedOptions", retry.OptionSavedOptions, []byte("{")},
		{"NilSavedOptions", retry.OptionSavedOptions, (*retry.OptionBag)(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := retry.New(retry.PolicyLinearBackoff, 10)
			params := c.Params()

			err := c.SetOption(tc.option, tc.value)
			assert.ErrorIs(t, err, retry.ErrInvalidArg)
			assert.Equal(t, params, c.Params())
		})
	}
}

func TestController_SavedOptionsNoPartialUpdate(t *testing.T) {
	bag := retry.NewOptionBag()
	bag.Set(retry.OptionInitialWaitTime, 9)
	bag.Set(retry.OptionMaxJitterPercent, 200)

	c := retry.New(retry.PolicyExponentialBackoffWithJitter, 0)
	params := c.Params()

	err := c.SetOption(retry.OptionSavedOptions, bag)
	assert.ErrorIs(t, err, retry.ErrInvalidArg)
	assert.Equal(t, params, c.Params())
}

func TestController_SavedOptionsNested(t *testing.T) {
	bag := retry.NewOptionBag()
	bag.Set(retry.OptionSavedOptions, 1)

	c := retry.New(retry.PolicyInterval, 0)
	err := c.SetOption(retry.OptionSavedOptions, bag)
	assert.ErrorIs(t, err, retry.ErrInvalidArg)
}

func TestController_RetrieveAndReplayOptions(t *testing.T) {
	initial := gofakeit.Uint32()%1000 + 1
	jitter := gofakeit.Uint32() % 101
	delay := gofakeit.Uint32() % 3600

	c := retry.New(retry.PolicyExponentialBackoffWithJitter, 120)
	require.Nil(t, c.SetOption(retry.OptionInitialWaitTime, initial))
	require.Nil(t, c.SetOption(retry.OptionMaxJitterPercent, jitter))
	require.Nil(t, c.SetOption(retry.OptionMaxDelay, delay))

	bag, err := c.RetrieveOptions()
	require.Nil(t, err)
	assert.Equal(t, []string{retry.OptionInitialWaitTime,
		retry.OptionMaxDelay, retry.OptionMaxJitterPercent}, bag.Names())

	t.Run("Bag", func(t *testing.T) {
		other := retry.New(retry.PolicyExponentialBackoffWithJitter, 120)
		require.Nil(t, other.SetOption(retry.OptionSavedOptions, bag))
		assert.Equal(t, c.Params(), other.Params())
	})

	t.Run("Blob", func(t *testing.T) {
		blob, err := bag.Encode()
		require.Nil(t, err)

		other := retry.New(retry.PolicyExponentialBackoffWithJitter, 120)
		require.Nil(t, other.SetOption(retry.OptionSavedOptions, blob))
		assert.Equal(t, c.Params(), other.Params())
	})
}

func TestOptionBag_EncodeDecode(t *testing.T) {
	bag := retry.NewOptionBag()
	bag.Set(retry.OptionMaxDelay, 45)
	bag.Set(retry.OptionInitialWaitTime, 3)

	blob, err := bag.Encode()
	require.Nil(t, err)

	decoded, err := retry.DecodeOptionBag(blob)
	require.Nil(t, err)
	assert.Equal(t, bag.Len(), decoded.Len())
	assert.Equal(t, bag.Names(), decoded.Names())

	v, ok := decoded.Get(retry.OptionMaxDelay)
	assert.True(t, ok)
	assert.Equal(t, uint32(45), v)

	_, ok = decoded.Get(retry.OptionMaxJitterPercent)
	assert.False(t, ok)
}

func TestOptionBag_DecodeNull(t *testing.T) {
	bag, err := retry.DecodeOptionBag([]byte("null"))
	require.Nil(t, err)
	assert.Zero(t, bag.Len())
}

func TestOptionBag_Clone(t *testing.T) {
	bag := retry.NewOptionBag()
	bag.Set(retry.OptionMaxDelay, 10)

	clone := bag.Clone()
	clone.Set(retry.OptionMaxDelay, 20)

	v, _ := bag.Get(retry.OptionMaxDelay)
	assert.Equal(t, uint32(10), v)
}

func TestOptionBag_Nil(t *testing.T) {
	var bag *retry.OptionBag

	_, ok := bag.Get(retry.OptionMaxDelay)
	assert.False(t, ok)
	assert.Zero(t, bag.Len())
	assert.Nil(t, bag.Names())
	assert.NotNil(t, bag.Clone())

	_, err := bag.Encode()
	assert.ErrorIs(t, err, retry.ErrInvalidArg)
}
