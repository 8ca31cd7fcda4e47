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

package retry

import (
	"fmt"
	"math"
	"sort"

	"github.com/goccy/go-json"
)

// Names of the options accepted by the Controller.SetOption.
const (
	OptionInitialWaitTime  = "initial_wait_time_in_secs"
	OptionMaxJitterPercent = "max_jitter_percent"
	OptionMaxDelay         = "max_delay_in_secs"
	OptionSavedOptions     = "saved_options"
)

// OptionBag contains named option values retrieved from a Controller. It can
// be replayed onto another Controller, or encoded to be persisted across
// reconnects.
type OptionBag struct {
	values map[string]uint32
}

// NewOptionBag creates an empty OptionBag.
func NewOptionBag() *OptionBag {
	return &OptionBag{values: make(map[string]uint32)}
}

// DecodeOptionBag decodes an OptionBag previously encoded by Encode.
func DecodeOptionBag(blob []byte) (*OptionBag, error) {
	b := NewOptionBag()
	if err := json.Unmarshal(blob, &b.values); err != nil {
		return nil, fmt.Errorf("%w: malformed saved options: %s",
			ErrInvalidArg, err.Error())
	}
	if b.values == nil {
		b.values = make(map[string]uint32)
	}

	return b, nil
}

// Set sets the named value.
func (b *OptionBag) Set(name string, value uint32) {
	b.values[name] = value
}

// Get returns the named value and whether it's present.
func (b *OptionBag) Get(name string) (uint32, bool) {
	if b == nil {
		return 0, false
	}

	v, ok := b.values[name]
	return v, ok
}

// Names returns the names present in the bag, sorted.
func (b *OptionBag) Names() []string {
	if b == nil {
		return nil
	}

	names := make([]string, 0, len(b.values))
	for n := range b.values {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// Len returns the number of values in the bag.
func (b *OptionBag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.values)
}

// Clone returns a copy of the bag.
func (b *OptionBag) Clone() *OptionBag {
	c := NewOptionBag()
	if b == nil {
		return c
	}

	for n, v := range b.values {
		c.values[n] = v
	}
	return c
}

// Encode encodes the bag into an opaque blob.
func (b *OptionBag) Encode() ([]byte, error) {
	if b == nil {
		return nil, ErrInvalidArg
	}
	return json.Marshal(b.values)
}

func (p *Params) set(name string, value interface{}) error {
	switch name {
	case OptionInitialWaitTime:
		v, err := toUint32(name, value)
		if err != nil {
			return err
		}
		if v == 0 {
			return fmt.Errorf("%w: %s must be greater than 0", ErrInvalidArg,
				name)
		}
		p.InitialWaitSecs = v
	case OptionMaxJitterPercent:
		v, err := toUint32(name, value)
		if err != nil {
			return err
		}
		if v > 100 {
			return fmt.Errorf("%w: %s must be no greater than 100",
				ErrInvalidArg, name)
		}
		p.MaxJitterPercent = v
	case OptionMaxDelay:
		v, err := toUint32(name, value)
		if err != nil {
			return err
		}
		p.MaxDelaySecs = v
	case OptionSavedOptions:
		bag, err := toOptionBag(value)
		if err != nil {
			return err
		}
		for _, n := range bag.Names() {
			if n == OptionSavedOptions {
				return fmt.Errorf("%w: nested %s", ErrInvalidArg, n)
			}

			v, _ := bag.Get(n)
			if err = p.set(n, v); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown option %q", ErrInvalidArg, name)
	}

	return nil
}

func toOptionBag(value interface{}) (*OptionBag, error) {
	switch v := value.(type) {
	case *OptionBag:
		if v == nil {
			return nil, fmt.Errorf("%w: nil saved options", ErrInvalidArg)
		}
		return v, nil
	case []byte:
		return DecodeOptionBag(v)
	default:
		return nil, fmt.Errorf("%w: invalid saved options type %T",
			ErrInvalidArg, value)
	}
}

func toUint32(name string, value interface{}) (uint32, error) {
	var v int64
	var u uint64
	var signed bool

	switch n := value.(type) {
	case int:
		v, signed = int64(n), true
	case int8:
		v, signed = int64(n), true
	case int16:
		v, signed = int64(n), true
	case int32:
		v, signed = int64(n), true
	case int64:
		v, signed = n, true
	case uint:
		u = uint64(n)
	case uint8:
		u = uint64(n)
	case uint16:
		u = uint64(n)
	case uint32:
		u = uint64(n)
	case uint64:
		u = n
	default:
		return 0, fmt.Errorf("%w: %s has invalid type %T", ErrInvalidArg,
			name, value)
	}

	if signed {
		if v < 0 {
			return 0, fmt.Errorf("%w: %s must not be negative",
				ErrInvalidArg, name)
		}
		u = uint64(v)
	}
	if u > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidArg, name)
	}

	return uint32(u), nil
}
