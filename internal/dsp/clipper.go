/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dsp

import "math"

// Clipper is a hard clipper: clamp(sample, -ceiling, +ceiling), the
// final stage of every pipeline per spec.md §4.3.
type Clipper struct {
	CeilingDB float64
}

// NewClipper returns a clipper at the given ceiling in dBFS.
func NewClipper(ceilingDB float64) *Clipper {
	return &Clipper{CeilingDB: ceilingDB}
}

// ProcessBuffer clamps every sample in buf to ±ceilingLinear, in place.
func (c *Clipper) ProcessBuffer(buf []float32) {
	ceiling := float32(math.Pow(10, c.CeilingDB/20))
	for i, s := range buf {
		switch {
		case s > ceiling:
			buf[i] = ceiling
		case s < -ceiling:
			buf[i] = -ceiling
		}
	}
}
