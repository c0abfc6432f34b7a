/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sink implements the two encoder sink kinds named in spec.md
// §6: an Icecast/SHOUTcast-style network source-protocol client
// (icecast.go) and a rotating WAV file writer (file.go), plus the
// encoder task that drains a broadcast.Slot and feeds whichever Sink
// it owns, retrying with bounded delay on failure per spec.md §7.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/telemetry"
)

// ErrPermanentFailure is returned by a Sink when no further retry
// should be attempted, e.g. a 403 from the Icecast source password.
var ErrPermanentFailure = errors.New("sink: permanent failure")

// Sink accepts interleaved stereo float32 PCM and writes it onward,
// standing in for the "no physical sound card" encoder surface spec.md
// §6 describes — decoding and sinks here are files/processes/network
// sockets, mirroring the teacher's own file/network abstraction.
type Sink interface {
	// Write delivers one buffer of PCM. A returned error is treated as
	// a connection failure and triggers the task's reconnect logic.
	Write(pcm []float32) error
	Close() error
}

// SlotReader is the narrow view of a broadcast.Slot an encoder task
// needs; satisfied structurally by *broadcast.Slot so this package
// does not import internal/broadcast and risk a cycle.
type SlotReader interface {
	Read(dst []float32) int
}

// TaskConfig configures one encoder task.
type TaskConfig struct {
	ID                   string
	Slot                 SlotReader
	Sink                 Sink
	MaxReconnectAttempts int // 0 = infinite
	ReconnectDelay       time.Duration
	PollInterval         time.Duration // how often to drain the slot when idle
	Bus                  *events.Bus
	Logger               zerolog.Logger
}

// Task owns one Sink's lifecycle: draining its slot, writing, and
// retrying on failure with a bounded-delay reconnect loop, per spec.md
// §4.6/§7 ("Encoder failure triggers bounded-delay reconnect with
// attempt counter... Permanent failure transitions the encoder to a
// terminal Failed state").
type Task struct {
	cfg   TaskConfig
	state models.EncoderState
}

// NewTask constructs a Task; defaults PollInterval/ReconnectDelay if
// left zero.
func NewTask(cfg TaskConfig) *Task {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Task{cfg: cfg, state: models.EncoderIdle}
}

// State returns the task's current connection state.
func (t *Task) State() models.EncoderState { return t.state }

// Run drains the slot and writes to the sink until ctx is cancelled or
// the sink fails permanently. It is meant to run in its own goroutine,
// one per encoder, per spec.md §5's "Broadcaster + encoder tasks"
// concurrency class.
func (t *Task) Run(ctx context.Context) error {
	t.setState(models.EncoderConnecting)

	attempts := 0
	buf := make([]float32, 4096)
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.setState(models.EncoderStopped)
			_ = t.cfg.Sink.Close()
			return ctx.Err()
		case <-ticker.C:
			n := t.cfg.Slot.Read(buf)
			if n == 0 {
				continue
			}
			if err := t.cfg.Sink.Write(buf[:n]); err != nil {
				t.cfg.Logger.Warn().Err(err).Str("sink", t.cfg.ID).Msg("encoder write failed")
				t.publishError(err)

				if errors.Is(err, ErrPermanentFailure) {
					t.setState(models.EncoderFailed)
					_ = t.cfg.Sink.Close()
					return err
				}

				attempts++
				telemetry.EncoderReconnectsTotal.WithLabelValues(t.cfg.ID).Inc()
				if t.cfg.MaxReconnectAttempts > 0 && attempts > t.cfg.MaxReconnectAttempts {
					t.setState(models.EncoderFailed)
					_ = t.cfg.Sink.Close()
					return err
				}

				t.setState(models.EncoderReconnecting)
				select {
				case <-ctx.Done():
					t.setState(models.EncoderStopped)
					return ctx.Err()
				case <-time.After(t.cfg.ReconnectDelay):
				}
				continue
			}

			if t.state != models.EncoderConnected {
				attempts = 0
				t.setState(models.EncoderConnected)
			}
		}
	}
}

func (t *Task) setState(s models.EncoderState) {
	t.state = s
	connected := 0.0
	if s == models.EncoderConnected {
		connected = 1.0
	}
	telemetry.EncoderConnectionStatus.WithLabelValues(t.cfg.ID).Set(connected)
	if t.cfg.Bus != nil {
		t.cfg.Bus.Publish(events.EventEncoderConnected, events.Payload{
			"id":     t.cfg.ID,
			"status": string(s),
		})
	}
}

func (t *Task) publishError(err error) {
	if t.cfg.Bus == nil {
		return
	}
	t.cfg.Bus.Publish(events.EventEncoderError, events.Payload{
		"id":    t.cfg.ID,
		"error": err.Error(),
	})
}
