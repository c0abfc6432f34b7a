/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package broadcast implements the fan-out from spec.md §4.6: a single
// task distributes the master PCM buffer to every active encoder
// slot's ring, holding a short mutex over the slot list and never
// blocking the real-time thread. Grounded on
// satindergrewal-InfiniteRadio's Broadcaster/Listener pattern
// (internal/stream/broadcaster.go) — a non-blocking per-subscriber
// channel fan-out — generalized from its fixed 20ms int16 mono-frame
// channel to a stereo f32 ring buffer sized for spec.md §4.6's
// "≈5 seconds of stereo float audio" per slot.
package broadcast

import (
	"sync"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/ringbuffer"
	"github.com/friendsincode/aircore/internal/telemetry"
)

const stereoChannels = 2

// slotSeconds sizes each listener's private ring for roughly 5 seconds
// of buffering, per spec.md §4.6.
const slotSeconds = 5

// Slot is one encoder consumer's entry in the fan-out list: a private
// SPSC ring it drains on its own schedule. Overflow on a slow slot
// silently drops the excess rather than blocking the broadcaster or
// other slots.
type Slot struct {
	id   string
	ring *ringbuffer.Ring
}

// ID returns the slot's label, used for metrics and logging.
func (s *Slot) ID() string { return s.id }

// Read drains up to len(dst) samples into dst, returning how many were
// read. Never blocks.
func (s *Slot) Read(dst []float32) int { return s.ring.Read(dst) }

// Broadcaster fans out the master mix to N slots. The RT thread pushes
// into it via Push and returns immediately; Push itself never blocks
// since every slot's ring write is bounded and non-blocking.
type Broadcaster struct {
	sampleRate int
	bus        *events.Bus

	mu    sync.Mutex
	slots map[string]*Slot
}

// New returns a broadcaster sized for sampleRate.
func New(sampleRate int, bus *events.Bus) *Broadcaster {
	return &Broadcaster{sampleRate: sampleRate, bus: bus, slots: make(map[string]*Slot)}
}

// AddSlot creates and registers a new slot for id, typically one per
// encoder task, removed again on Stop.
func (b *Broadcaster) AddSlot(id string) *Slot {
	capacity := b.sampleRate * stereoChannels * slotSeconds
	slot := &Slot{id: id, ring: ringbuffer.New(capacity)}

	b.mu.Lock()
	b.slots[id] = slot
	b.mu.Unlock()

	telemetry.BroadcastListenersActive.Set(float64(b.ListenerCount()))
	return slot
}

// RemoveSlot unregisters a slot, e.g. on encoder stop.
func (b *Broadcaster) RemoveSlot(id string) {
	b.mu.Lock()
	delete(b.slots, id)
	b.mu.Unlock()

	telemetry.BroadcastListenersActive.Set(float64(b.ListenerCount()))
}

// ListenerCount returns the number of currently registered slots.
func (b *Broadcaster) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// Push copies frames into every active slot's ring. This is the only
// place a per-slot copy occurs; a slot whose ring is full silently
// drops the excess, preserving delivery to healthier slots, per
// spec.md §4.6.
func (b *Broadcaster) Push(frames []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, slot := range b.slots {
		written := slot.ring.Write(frames)
		if written < len(frames) {
			dropped := len(frames) - written
			telemetry.BroadcastFramesDroppedTotal.WithLabelValues(slot.id).Add(float64(dropped))
			if b.bus != nil {
				b.bus.Publish(events.EventListenerStats, events.Payload{
					"slot":    slot.id,
					"dropped": dropped,
				})
			}
		}
	}
}
