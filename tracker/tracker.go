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

// Package tracker keeps the in-flight envelopes of a connection until they
// are acknowledged or abandoned.
package tracker

import (
	"container/list"
	"errors"
	"math"
	"time"

	"github.com/gsalomao/maxiot/envelope"
	"github.com/gsalomao/maxiot/retry"
)

var (
	// ErrInvalidArg indicates a nil envelope or nil tracker.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrDuplicateID indicates that an envelope with the same packet ID is
	// already in flight.
	ErrDuplicateID = errors.New("packet ID already in flight")

	// ErrClosed indicates that the tracker was closed.
	ErrClosed = errors.New("tracker closed")

	// ErrPacketIDExhausted indicates that every packet ID is in flight.
	ErrPacketIDExhausted = errors.New("no packet ID available")
)

// Entry represents an envelope in flight.
type Entry struct {
	// Envelope is the message awaiting acknowledgment.
	Envelope *envelope.Envelope

	// SentAt is the time of the last send.
	SentAt time.Time

	// Sends is the number of times the envelope was sent.
	Sends int

	// Retry is the controller which decides whether the envelope must be
	// resent once it expires. It may be nil.
	Retry *retry.Controller
}

// PacketID returns the packet ID of the entry.
func (e Entry) PacketID() uint16 {
	return e.Envelope.PacketID()
}

func (e Entry) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(e.SentAt) >= timeout
}

// Tracker is an ordered collection of in-flight entries, keyed by packet ID.
// It's not safe for concurrent use. Iterations run over a copy of the entries,
// so the tracker can be changed while an iteration is in progress.
type Tracker struct {
	entries   map[uint16]*list.Element
	order     *list.List
	lastID    uint16
	closed    bool
	lostCount int
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		entries: make(map[uint16]*list.Element),
		order:   list.New(),
	}
}

// Insert adds the envelope to the tracker, marking it as sent at now.
func (t *Tracker) Insert(env *envelope.Envelope, now time.Time,
	ctrl *retry.Controller) error {

	if t == nil || env == nil {
		return ErrInvalidArg
	}
	if t.closed {
		return ErrClosed
	}

	id := env.PacketID()
	if _, ok := t.entries[id]; ok {
		return ErrDuplicateID
	}

	e := &Entry{Envelope: env, SentAt: now, Sends: 1, Retry: ctrl}
	t.entries[id] = t.order.PushBack(e)

	return nil
}

// Remove removes the entry with the given packet ID and hands its envelope
// over to the caller. It returns false if there's no such entry.
func (t *Tracker) Remove(id uint16) (*envelope.Envelope, bool) {
	if t == nil {
		return nil, false
	}

	elem, ok := t.entries[id]
	if !ok {
		return nil, false
	}

	delete(t.entries, id)
	e := t.order.Remove(elem).(*Entry)

	return e.Envelope, true
}

// Get returns a copy of the entry with the given packet ID.
func (t *Tracker) Get(id uint16) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}

	elem, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}

	return *elem.Value.(*Entry), true
}

// Contains returns whether an entry with the given packet ID is in flight.
func (t *Tracker) Contains(id uint16) bool {
	if t == nil {
		return false
	}

	_, ok := t.entries[id]
	return ok
}

// Len returns the number of entries in flight.
func (t *Tracker) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Touch marks the entry as sent again at now, without changing its position.
func (t *Tracker) Touch(id uint16, now time.Time) bool {
	if t == nil {
		return false
	}

	elem, ok := t.entries[id]
	if !ok {
		return false
	}

	e := elem.Value.(*Entry)
	e.SentAt = now
	e.Sends++

	return true
}

// FindExpired returns, in insertion order, the packet ID of every entry sent
// at least timeout before now.
func (t *Tracker) FindExpired(now time.Time, timeout time.Duration) []uint16 {
	if t == nil {
		return nil
	}

	ids := make([]uint16, 0)
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*Entry)
		if e.expired(now, timeout) {
			ids = append(ids, e.PacketID())
		}
	}

	return ids
}

// Snapshot returns a copy of all entries in insertion order.
func (t *Tracker) Snapshot() []Entry {
	if t == nil {
		return nil
	}

	entries := make([]Entry, 0, t.order.Len())
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, *elem.Value.(*Entry))
	}

	return entries
}

// ForEach calls fn for each entry, in insertion order, until fn returns
// false. The fn may change the tracker. Entries removed by a previous call
// are skipped.
func (t *Tracker) ForEach(fn func(e Entry) bool) {
	if t == nil {
		return
	}

	elems := make([]*list.Element, 0, t.order.Len())
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		elems = append(elems, elem)
	}

	for _, elem := range elems {
		e := elem.Value.(*Entry)

		// An entry removed, or replaced under the same ID, is not visited.
		if cur, ok := t.entries[e.PacketID()]; !ok || cur != elem {
			continue
		}
		if !fn(*e) {
			return
		}
	}
}

// FindFirst returns the first entry, in insertion order, which satisfies the
// predicate.
func (t *Tracker) FindFirst(pred func(e Entry) bool) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}

	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*Entry)
		if pred(*e) {
			return *e, true
		}
	}

	return Entry{}, false
}

// NextPacketID returns the next packet ID not in flight. IDs run from 1 to
// 65535 and wrap around.
func (t *Tracker) NextPacketID() (uint16, error) {
	if t == nil {
		return 0, ErrInvalidArg
	}
	if t.closed {
		return 0, ErrClosed
	}

	inUse := len(t.entries)
	if _, ok := t.entries[0]; ok {
		inUse--
	}
	if inUse >= math.MaxUint16 {
		return 0, ErrPacketIDExhausted
	}

	id := t.lastID
	for {
		if id == math.MaxUint16 {
			id = 1
		} else {
			id++
		}

		if _, ok := t.entries[id]; !ok {
			t.lastID = id
			return id, nil
		}
	}
}

// Close drops every entry without acknowledging it and returns how many
// entries were lost in flight. The tracker can't be used to insert entries
// afterwards.
func (t *Tracker) Close() int {
	if t == nil || t.closed {
		return 0
	}

	lost := len(t.entries)
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		elem.Value.(*Entry).Envelope.Release()
	}

	t.entries = make(map[uint16]*list.Element)
	t.order.Init()
	t.closed = true
	t.lostCount = lost

	return lost
}

// IsClosed returns whether the tracker was closed.
func (t *Tracker) IsClosed() bool {
	return t == nil || t.closed
}

// LostInFlight returns the number of entries dropped by Close.
func (t *Tracker) LostInFlight() int {
	if t == nil {
		return 0
	}
	return t.lostCount
}
