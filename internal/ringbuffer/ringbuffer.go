/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ringbuffer implements a lock-free single-producer/single-consumer
// ring buffer of interleaved float32 PCM samples, per spec.md §4.1 and §5.
// One decoder worker goroutine is the sole producer; the RT callback
// goroutine is the sole consumer. Neither side ever blocks: the producer
// drops the tail of a write that would overrun the consumer, and the
// consumer fills with silence past what's occupied.
package ringbuffer

import "sync/atomic"

// Ring is a fixed-capacity SPSC ring buffer of float32 samples. Capacity
// must be set at construction and is not resizable.
type Ring struct {
	buf      []float32
	capacity uint64

	// writeIdx and readIdx are monotonically increasing sample counts,
	// not indices into buf — the buffer position is writeIdx % capacity.
	// Only the producer goroutine writes writeIdx; only the consumer
	// writes readIdx. Both read the other's counter via atomic load.
	writeIdx atomic.Uint64
	readIdx  atomic.Uint64
}

// New creates a ring buffer with room for capacitySamples float32 values.
func New(capacitySamples int) *Ring {
	if capacitySamples <= 0 {
		capacitySamples = 1
	}
	return &Ring{
		buf:      make([]float32, capacitySamples),
		capacity: uint64(capacitySamples),
	}
}

// Capacity returns the ring's fixed sample capacity.
func (r *Ring) Capacity() int {
	return int(r.capacity)
}

// OccupiedLen returns how many samples are currently readable.
func (r *Ring) OccupiedLen() int {
	w := r.writeIdx.Load()
	rd := r.readIdx.Load()
	return int(w - rd)
}

// VacantLen returns how much room remains for the producer to write.
func (r *Ring) VacantLen() int {
	return int(r.capacity) - r.OccupiedLen()
}

// Write copies as many samples from src into the ring as fit without
// overrunning the consumer, returning the count actually written. It
// never blocks and never allocates.
func (r *Ring) Write(src []float32) int {
	vacant := r.VacantLen()
	n := len(src)
	if n > vacant {
		n = vacant
	}
	if n == 0 {
		return 0
	}

	w := r.writeIdx.Load()
	start := int(w % r.capacity)
	tail := int(r.capacity) - start

	if n <= tail {
		copy(r.buf[start:start+n], src[:n])
	} else {
		copy(r.buf[start:], src[:tail])
		copy(r.buf[:n-tail], src[tail:n])
	}

	r.writeIdx.Store(w + uint64(n))
	return n
}

// Read copies up to len(dst) occupied samples into dst, returning the
// count actually read. It never blocks: if fewer samples are occupied
// than len(dst), only the occupied portion is copied and the remainder of
// dst is left untouched — callers that need silence-on-underrun should
// zero dst before calling Read, matching the RT callback's contract in
// spec.md §4.1.
func (r *Ring) Read(dst []float32) int {
	occupied := r.OccupiedLen()
	n := len(dst)
	if n > occupied {
		n = occupied
	}
	if n == 0 {
		return 0
	}

	rd := r.readIdx.Load()
	start := int(rd % r.capacity)
	tail := int(r.capacity) - start

	if n <= tail {
		copy(dst[:n], r.buf[start:start+n])
	} else {
		copy(dst[:tail], r.buf[start:])
		copy(dst[tail:n], r.buf[:n-tail])
	}

	r.readIdx.Store(rd + uint64(n))
	return n
}

// Reset returns the ring to empty. Only safe to call when neither the
// producer nor the consumer is concurrently active.
func (r *Ring) Reset() {
	r.writeIdx.Store(0)
	r.readIdx.Store(0)
}
