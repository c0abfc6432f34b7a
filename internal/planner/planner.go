/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package planner computes the exact sample ranges for the next
// crossfade, per spec.md §4.5. It is a pure function of two track
// snapshots and a transition mode: no I/O, no clock, no RT-thread
// coupling. The caller turns its output into a LoadTrack/StartCrossfade
// command pair.
package planner

import (
	"math"

	"github.com/friendsincode/aircore/internal/models"
)

// TrackSnapshot is a deck's position/duration plus the markers its track
// was analyzed with, in the units spec.md §4.5 speaks in (milliseconds).
type TrackSnapshot struct {
	PositionMs int64
	DurationMs int64
	Markers    models.Markers
}

// Request parameterizes one planning call.
type Request struct {
	Outgoing           TrackSnapshot
	Incoming           TrackSnapshot
	Mode               models.PlanMode
	TransitionTimeSec  float64 // negative requests a gap instead of an overlap
	MinTrackDurationMs int64
	RecueWindowMs      int64
}

// resolvedMarkers holds one track's markers after the clamps of spec.md
// §4.5 step 1, in milliseconds.
type resolvedMarkers struct {
	DurationMs int64
	FirstSound int64
	IntroStart int64
	IntroEnd   int64
	OutroStart int64
	OutroEnd   int64
	LastSound  int64
}

// resolveMarkers defaults missing markers and clamps them into a
// consistent order: intro_start ≥ first_sound; intro_end ≥ intro_start;
// outro_end ≥ intro_end (defaulting to the track's duration when
// unset); outro_start ∈ [intro_end, outro_end]; last_sound ∈
// [outro_start, outro_end] (defaulting to outro_end when unset).
func resolveMarkers(m models.Markers, durationMs int64) resolvedMarkers {
	firstSound := m.FirstSound.Milliseconds()
	introStart := max64(m.IntroStart.Milliseconds(), firstSound)
	introEnd := max64(m.IntroEnd.Milliseconds(), introStart)

	outroEnd := m.OutroEnd.Milliseconds()
	if outroEnd <= 0 {
		outroEnd = durationMs
	}
	outroEnd = max64(outroEnd, introEnd)

	outroStart := clamp64(m.OutroIn.Milliseconds(), introEnd, outroEnd)

	lastSound := m.LastSound.Milliseconds()
	if lastSound <= 0 {
		lastSound = outroEnd
	}
	lastSound = clamp64(lastSound, outroStart, outroEnd)

	return resolvedMarkers{
		DurationMs: durationMs,
		FirstSound: firstSound,
		IntroStart: introStart,
		IntroEnd:   introEnd,
		OutroStart: outroStart,
		OutroEnd:   outroEnd,
		LastSound:  lastSound,
	}
}

// Plan runs spec.md §4.5's algorithm end to end.
func Plan(fromDeck, toDeck models.DeckID, req Request) models.TransitionPlan {
	mode := req.Mode
	if req.MinTrackDurationMs > 0 && req.Incoming.DurationMs < req.MinTrackDurationMs {
		// Too short to carry an intro/outro window (a liner or jingle);
		// play it whole rather than attempting a fade it can't sustain.
		mode = models.PlanFixedFullTrack
	}

	out := resolveMarkers(req.Outgoing.Markers, req.Outgoing.DurationMs)
	in := resolveMarkers(req.Incoming.Markers, req.Incoming.DurationMs)

	toStartMs, toNextFadeBeginMs := startAndFadeBegin(mode, in)

	recued := req.RecueWindowMs > 0 &&
		absI64(req.Incoming.PositionMs-toNextFadeBeginMs) <= req.RecueWindowMs

	requestedMs, gapMs := requestedFadeLength(mode, out, in, req.TransitionTimeSec)

	outgoingRemaining := req.Outgoing.DurationMs - req.Outgoing.PositionMs
	incomingWindow := toNextFadeBeginMs - toStartMs
	ceilingMs := int64(math.Abs(req.TransitionTimeSec) * 1000)

	fadeMs := max64(minI64(requestedMs, outgoingRemaining, incomingWindow, ceilingMs), 0)

	var fromFadeBeginMs, fromFadeEndMs int64
	if mode == models.PlanFadeAtOutroStart {
		fromFadeBeginMs = out.OutroStart
		fromFadeEndMs = fromFadeBeginMs + fadeMs
	} else {
		fromFadeEndMs = placeFadeEnd(mode, out)
		fromFadeBeginMs = fromFadeEndMs - fadeMs
	}

	return models.TransitionPlan{
		FromDeck:        fromDeck,
		ToDeck:          toDeck,
		Mode:            mode,
		ToStartMs:       toStartMs,
		FromFadeBeginMs: fromFadeBeginMs,
		FromFadeEndMs:   fromFadeEndMs,
		GapMs:           gapMs,
		Recued:          recued,
	}
}

// startAndFadeBegin resolves to_start_ms and to_next_fade_begin_ms from
// the incoming track's markers, per spec.md §4.5 step 2.
func startAndFadeBegin(mode models.PlanMode, in resolvedMarkers) (toStartMs, toNextFadeBeginMs int64) {
	switch mode {
	case models.PlanFullIntroOutro, models.PlanFadeAtOutroStart:
		return in.IntroStart, in.IntroEnd
	case models.PlanFixedFullTrack:
		return 0, in.DurationMs
	default: // FixedSkipSilence, FixedStartCenterSkipSilence
		return in.FirstSound, in.LastSound
	}
}

// requestedFadeLength computes the fade length before capping, per
// spec.md §4.5 step 4.
func requestedFadeLength(mode models.PlanMode, out, in resolvedMarkers, transitionTimeSec float64) (requestedMs, gapMs int64) {
	absMs := int64(math.Abs(transitionTimeSec) * 1000)

	switch mode {
	case models.PlanFullIntroOutro, models.PlanFadeAtOutroStart:
		outroLen := out.OutroEnd - out.OutroStart
		introLen := in.IntroEnd - in.IntroStart
		switch {
		case outroLen > 0 && introLen > 0:
			return minI64(outroLen, introLen), 0
		case outroLen > 0:
			return outroLen, 0
		case introLen > 0:
			return introLen, 0
		default:
			return absMs, 0
		}
	default: // FixedFullTrack, FixedSkipSilence, FixedStartCenterSkipSilence
		if transitionTimeSec < 0 {
			return 0, absMs
		}
		return absMs, 0
	}
}

// placeFadeEnd resolves the natural end point a fade is anchored to, per
// spec.md §4.5 step 6 (FadeAtOutroStart is anchored to its begin instead
// and handled by the caller).
func placeFadeEnd(mode models.PlanMode, out resolvedMarkers) int64 {
	switch mode {
	case models.PlanFixedFullTrack:
		return out.DurationMs
	case models.PlanFixedSkipSilence, models.PlanFixedStartCenterSkipSilence:
		return out.LastSound
	default: // FullIntroOutro
		return out.OutroEnd
	}
}

// Quantise snaps position (in the same units as beats, ms for every
// caller today) to the nearest point on the beat grid named by mode,
// per spec.md §8's beat-grid quantise scenario. beats is the track's
// detected beat offsets, ascending and evenly spaced; grid spacing is
// derived from the first interval. QuantiseNone or a grid with fewer
// than two beats returns position unchanged.
func Quantise(position int64, mode models.QuantiseTarget, beats []int64) int64 {
	if mode == models.QuantiseNone || len(beats) < 2 {
		return position
	}

	interval := beats[1] - beats[0]
	if interval <= 0 {
		return position
	}

	var step int64
	switch mode {
	case models.QuantiseBeatHalf:
		step = interval / 2
	case models.QuantiseBeatQuarter:
		step = interval / 4
	case models.QuantiseBar:
		step = interval * 4
	default: // QuantiseBeat
		step = interval
	}
	if step <= 0 {
		return position
	}

	anchor := beats[0]
	return anchor + roundToStep(position-anchor, step)
}

// roundToStep rounds v to the nearest multiple of step, ties rounding
// away from zero.
func roundToStep(v, step int64) int64 {
	if v < 0 {
		return -roundToStep(-v, step)
	}
	q, r := v/step, v%step
	if r*2 >= step {
		q++
	}
	return q * step
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minI64(values ...int64) int64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
