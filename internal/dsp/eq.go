/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dsp

// EQConfig holds the 3-band EQ parameters from spec.md §4.3.
type EQConfig struct {
	LowGainDB  float64
	LowFreqHz  float64
	MidGainDB  float64
	MidFreqHz  float64
	MidQ       float64
	HighGainDB float64
	HighFreqHz float64
}

// DefaultEQConfig returns a flat (0 dB) EQ at broadcast-typical corner
// frequencies, matching original_source's EqConfig::default.
func DefaultEQConfig() EQConfig {
	return EQConfig{
		LowFreqHz:  100,
		MidFreqHz:  1000,
		MidQ:       0.7071067811865476,
		HighFreqHz: 8000,
	}
}

// EQ is a per-channel/master 3-band EQ: low shelf, peaking mid, high
// shelf biquads in series, each Direct Form II transposed.
type EQ struct {
	sampleRate float64
	cfg        EQConfig
	low, mid   [2]*Biquad // one per stereo side
	high       [2]*Biquad
}

// NewEQ builds an EQ for the given sample rate and config.
func NewEQ(sampleRate float64, cfg EQConfig) *EQ {
	e := &EQ{sampleRate: sampleRate}
	for i := 0; i < 2; i++ {
		e.low[i] = NewBiquad(BiquadCoeffs{B0: 1})
		e.mid[i] = NewBiquad(BiquadCoeffs{B0: 1})
		e.high[i] = NewBiquad(BiquadCoeffs{B0: 1})
	}
	e.SetConfig(cfg)
	return e
}

// SetConfig rebuilds coefficients without resetting filter state, so a
// parameter change made live does not click.
func (e *EQ) SetConfig(cfg EQConfig) {
	e.cfg = cfg
	lowFreq := ClampFreq(cfg.LowFreqHz, e.sampleRate)
	midFreq := ClampFreq(cfg.MidFreqHz, e.sampleRate)
	highFreq := ClampFreq(cfg.HighFreqHz, e.sampleRate)
	q := cfg.MidQ
	if q < 0.1 {
		q = 0.1
	}

	lowC := DesignBiquad(LowShelf, e.sampleRate, lowFreq, 0.7071067811865476, cfg.LowGainDB)
	midC := DesignBiquad(PeakingEQ, e.sampleRate, midFreq, q, cfg.MidGainDB)
	highC := DesignBiquad(HighShelf, e.sampleRate, highFreq, 0.7071067811865476, cfg.HighGainDB)

	for i := 0; i < 2; i++ {
		e.low[i].SetCoeffs(lowC)
		e.mid[i].SetCoeffs(midC)
		e.high[i].SetCoeffs(highC)
	}
}

// Config returns the EQ's current parameters.
func (e *EQ) Config() EQConfig { return e.cfg }

// ProcessBuffer runs an interleaved stereo buffer through the three
// biquads in series, in place. Allocation-free.
func (e *EQ) ProcessBuffer(buf []float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		for ch := 0; ch < 2; ch++ {
			s := float64(buf[i+ch])
			s = e.low[ch].Process(s)
			s = e.mid[ch].Process(s)
			s = e.high[ch].Process(s)
			buf[i+ch] = float32(s)
		}
	}
}
