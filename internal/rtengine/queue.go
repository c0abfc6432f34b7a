/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rtengine

import "errors"

// ErrQueueFull is returned by CommandQueue.Push when the queue has no
// room, per spec.md §7's QueueFull error kind.
var ErrQueueFull = errors.New("rtengine: command queue full")

// CommandQueue is the bounded single-producer-many/single-consumer
// queue the RT thread drains each callback. Backed by a buffered Go
// channel, which already gives FIFO ordering per producer and a
// non-blocking full/empty check via select, matching spec.md §5's
// "bounded single-producer/single-consumer queue" requirement without
// a hand-rolled ring (off-thread producers are not the RT-safety
// concern; only the consumer side must never block).
type CommandQueue struct {
	ch chan Command
}

// NewCommandQueue returns a queue with the given capacity.
func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &CommandQueue{ch: make(chan Command, capacity)}
}

// Push enqueues cmd, returning ErrQueueFull immediately if there is no
// room rather than blocking the caller.
func (q *CommandQueue) Push(cmd Command) error {
	select {
	case q.ch <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Drain pops every command currently queued, in FIFO order, calling fn
// for each. Never blocks: it stops as soon as the queue is empty.
func (q *CommandQueue) Drain(fn func(Command)) {
	for {
		select {
		case cmd := <-q.ch:
			fn(cmd)
		default:
			return
		}
	}
}

// Len reports how many commands are currently queued.
func (q *CommandQueue) Len() int { return len(q.ch) }
