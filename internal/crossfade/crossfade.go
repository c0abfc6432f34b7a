/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package crossfade

import (
	"time"

	"github.com/friendsincode/aircore/internal/models"
)

// State enumerates the crossfade lifecycle from spec.md §3.
type State int

const (
	Idle State = iota
	Fading
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fading:
		return "fading"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Session tracks one active or pending crossfade between two decks. It
// advances by frame count rather than wall-clock time so the RT callback
// never needs to read the system clock.
type Session struct {
	curve       Curve
	trigger     models.TriggerMode
	totalFrames int
	elapsed     int
	state       State

	FromDeck models.DeckID
	ToDeck   models.DeckID

	manual         bool
	manualProgress float64
}

// New creates an idle session. Call Arm to start it.
func New() *Session {
	return &Session{state: Idle}
}

// Arm configures and starts a crossfade of the given duration between
// from and to, sampled at sampleRate.
func (s *Session) Arm(from, to models.DeckID, curve Curve, trigger models.TriggerMode, duration time.Duration, sampleRate int) {
	s.FromDeck = from
	s.ToDeck = to
	s.curve = curve
	s.trigger = trigger
	s.totalFrames = int(duration.Seconds() * float64(sampleRate))
	if s.totalFrames <= 0 {
		s.totalFrames = 1
	}
	s.elapsed = 0
	s.manual = false
	s.state = Fading
}

// SetManualPosition drives the crossfader by hand, per spec.md §6's
// SetManualCrossfade(position): -1 is fully on from, +1 fully on to.
// Overrides any timed fade in progress; Advance becomes a no-op until
// the next Arm.
func (s *Session) SetManualPosition(from, to models.DeckID, curve Curve, position float64) {
	if position < -1 {
		position = -1
	}
	if position > 1 {
		position = 1
	}
	s.FromDeck = from
	s.ToDeck = to
	s.curve = curve
	s.manual = true
	s.manualProgress = (position + 1) / 2
	s.state = Fading
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Curve returns the fade curve the session was last armed with.
func (s *Session) Curve() Curve { return s.curve }

// Progress returns elapsed/total in [0, 1]. Returns 0 when idle and 1
// once complete.
func (s *Session) Progress() float64 {
	switch s.state {
	case Idle:
		return 0
	case Complete:
		return 1
	default:
		if s.manual {
			return s.manualProgress
		}
		return float64(s.elapsed) / float64(s.totalFrames)
	}
}

// Gains returns the current outgoing/incoming gain pair for the armed
// curve at the session's current progress.
func (s *Session) Gains() Gains {
	if s.state == Idle {
		return Gains{Out: 1, In: 0}
	}
	return Evaluate(s.curve, s.Progress())
}

// Advance moves the session forward by frames output frames and returns
// the gain pair to apply over that span. Once elapsed reaches the
// crossfade duration, the session transitions to Complete and Gains{0,1}
// is returned from then on until Reset is called.
func (s *Session) Advance(frames int) Gains {
	if s.state != Fading || s.manual {
		return s.Gains()
	}

	s.elapsed += frames
	if s.elapsed >= s.totalFrames {
		s.elapsed = s.totalFrames
		s.state = Complete
	}

	return s.Gains()
}

// Abort cancels an in-progress crossfade, snapping to fully on the
// outgoing deck. Used when a crossfade is superseded by an operator
// override or an emergency cut.
func (s *Session) Abort() {
	s.state = Idle
	s.elapsed = 0
	s.manual = false
}

// Reset returns a completed or aborted session to idle so it can be
// reused for the next transition.
func (s *Session) Reset() {
	s.state = Idle
	s.elapsed = 0
	s.manual = false
}

// AutoDetectConfig configures the AutoDetectDb trigger mode: a crossfade
// arms once the outgoing deck's level drops at or below ThresholdDBFS for
// at least HoldDuration.
type AutoDetectConfig struct {
	ThresholdDBFS float64
	HoldDuration  time.Duration
}

// AutoDetector accumulates consecutive below-threshold time for the
// AutoDetectDb trigger mode.
type AutoDetector struct {
	cfg        AutoDetectConfig
	belowSince time.Duration
	armed      bool
}

// NewAutoDetector creates a detector for cfg.
func NewAutoDetector(cfg AutoDetectConfig) *AutoDetector {
	return &AutoDetector{cfg: cfg}
}

// Observe feeds one callback period's worth of outgoing-deck level and
// returns true the first time the hold duration has been satisfied. It
// returns false on every subsequent call until Reset, so callers trigger
// exactly once per arm.
func (a *AutoDetector) Observe(levelDBFS float64, period time.Duration) bool {
	if a.armed {
		return false
	}

	if levelDBFS <= a.cfg.ThresholdDBFS {
		a.belowSince += period
	} else {
		a.belowSince = 0
	}

	if a.belowSince >= a.cfg.HoldDuration {
		a.armed = true
		return true
	}
	return false
}

// Reset clears detector state so it can watch for the next outro.
func (a *AutoDetector) Reset() {
	a.belowSince = 0
	a.armed = false
}
