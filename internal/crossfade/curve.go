/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package crossfade implements the fade-curve algebra and crossfade state
// machine from spec.md §3/§4.2. Curve gain math is grounded on the
// teacher's calculateFadeCurveVolume in
// internal/mediaengine/crossfade.go, generalized to the full curve set
// and the unity-gain/constant-power invariants spec.md requires.
package crossfade

import "math"

// Curve selects the gain law applied across a crossfade.
type Curve string

const (
	CurveLinear        Curve = "linear"
	CurveExponential   Curve = "exponential"
	CurveSCurve        Curve = "s_curve"
	CurveLogarithmic   Curve = "logarithmic"
	CurveConstantPower Curve = "constant_power"
)

// Gains holds the outgoing and incoming gain at a point in a crossfade.
type Gains struct {
	Out float64
	In  float64
}

// Evaluate returns the outgoing/incoming gain pair at progress p in
// [0, 1], p=0 being fully on the outgoing deck and p=1 fully on the
// incoming deck. Every curve satisfies Gains{1,0} at p=0 and Gains{0,1}
// at p=1; ConstantPower additionally satisfies Out^2+In^2 == 1 for all p.
func Evaluate(curve Curve, p float64) Gains {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	switch curve {
	case CurveExponential:
		out := (1 - p) * (1 - p)
		in := 1 - out
		return Gains{Out: out, In: in}

	case CurveLogarithmic:
		// math.Log10((1-p)*9+1) maps [0,1] -> [0,1] with a fast initial
		// drop on the outgoing deck, matching the teacher's logarithmic
		// fade-out law. Incoming is the outgoing gain's complement, per
		// spec's "1 - that" row rather than its own independent log.
		out := math.Log10((1-p)*9 + 1)
		in := 1 - out
		return Gains{Out: out, In: in}

	case CurveSCurve:
		in := sCurve(p)
		out := sCurve(1 - p)
		return Gains{Out: out, In: in}

	case CurveConstantPower:
		theta := p * math.Pi / 2
		return Gains{Out: math.Cos(theta), In: math.Sin(theta)}

	case CurveLinear:
		fallthrough
	default:
		return Gains{Out: 1 - p, In: p}
	}
}

// sCurve is a cubic ease-in-out: 3t^2 - 2t^3, clamped to [0,1] endpoints
// by construction since t is already clamped by the caller.
func sCurve(t float64) float64 {
	return t * t * (3 - 2*t)
}
