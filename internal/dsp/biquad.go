/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dsp implements the allocation-free per-channel and master audio
// processing chain from spec.md §4.3: 3-band EQ, gated AGC, multiband
// compressor, dual-band compressor, and a hard clipper. No third-party
// biquad/DSP crate appears anywhere in the example pack — the teacher
// drives GStreamer LADSPA/audiodynamic elements as opaque pipeline
// strings (internal/mediaengine/dsp/graph.go) rather than processing
// samples directly, and this engine has no GStreamer subprocess to hand
// that work to. The coefficient math below follows the RBJ Audio EQ
// Cookbook formulas exactly as used by original_source's `biquad` crate
// (src-tauri/src/audio/dsp/eq.rs, compressor.rs), reimplemented on
// math.Cos/Sin/Pow since no Go package in the pack offers it.
package dsp

import "math"

// FilterType selects a biquad's RBJ cookbook design.
type FilterType int

const (
	LowShelf FilterType = iota
	HighShelf
	PeakingEQ
	LowPass
	HighPass
)

// BiquadCoeffs holds a Direct Form II Transposed biquad's normalized
// coefficients (a0 already divided out).
type BiquadCoeffs struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// DesignBiquad computes RBJ cookbook coefficients for the given filter
// type, frequency (Hz), Q, and gain (dB, ignored for LowPass/HighPass).
// freq is clamped to [20, sampleRate/2 - 1] by the caller.
func DesignBiquad(kind FilterType, sampleRate, freq, q, gainDB float64) BiquadCoeffs {
	if q <= 0 {
		q = 0.7071067811865476 // Butterworth Q
	}

	omega := 2 * math.Pi * freq / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2 * q)
	a := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64

	switch kind {
	case LowShelf:
		twoSqrtAAlpha := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cosW + twoSqrtAAlpha)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW)
		b2 = a * ((a + 1) - (a-1)*cosW - twoSqrtAAlpha)
		a0 = (a + 1) + (a-1)*cosW + twoSqrtAAlpha
		a1 = -2 * ((a - 1) + (a+1)*cosW)
		a2 = (a + 1) + (a-1)*cosW - twoSqrtAAlpha

	case HighShelf:
		twoSqrtAAlpha := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cosW + twoSqrtAAlpha)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW)
		b2 = a * ((a + 1) + (a-1)*cosW - twoSqrtAAlpha)
		a0 = (a + 1) - (a-1)*cosW + twoSqrtAAlpha
		a1 = 2 * ((a - 1) - (a+1)*cosW)
		a2 = (a + 1) - (a-1)*cosW - twoSqrtAAlpha

	case PeakingEQ:
		b0 = 1 + alpha*a
		b1 = -2 * cosW
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW
		a2 = 1 - alpha/a

	case LowPass:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
		b2 = (1 - cosW) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha

	case HighPass:
		b0 = (1 + cosW) / 2
		b1 = -(1 + cosW)
		b2 = (1 + cosW) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW
		a2 = 1 - alpha
	}

	if a0 == 0 {
		return BiquadCoeffs{B0: 1}
	}
	return BiquadCoeffs{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// ClampFreq clamps a design frequency into [20Hz, Nyquist - 1], per
// spec.md §4.3.
func ClampFreq(freq, sampleRate float64) float64 {
	nyquist := sampleRate/2 - 1
	if freq < 20 {
		return 20
	}
	if freq > nyquist {
		return nyquist
	}
	return freq
}

// Biquad is a Direct Form II Transposed filter with two state
// registers, processing one sample at a time with no allocation.
type Biquad struct {
	c      BiquadCoeffs
	z1, z2 float64
}

// NewBiquad returns a filter with the given coefficients and zeroed
// state.
func NewBiquad(c BiquadCoeffs) *Biquad {
	return &Biquad{c: c}
}

// SetCoeffs replaces the filter's coefficients without resetting state,
// so parameter changes don't click.
func (b *Biquad) SetCoeffs(c BiquadCoeffs) { b.c = c }

// Process runs one sample through the filter.
func (b *Biquad) Process(x float64) float64 {
	y := b.c.B0*x + b.z1
	b.z1 = b.c.B1*x - b.c.A1*y + b.z2
	b.z2 = b.c.B2*x - b.c.A2*y
	return y
}

// Reset clears the filter's state registers.
func (b *Biquad) Reset() {
	b.z1 = 0
	b.z2 = 0
}
