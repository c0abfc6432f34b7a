/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dsp

import "math"

// PreEmphasis selects the broadcast pre-emphasis characteristic applied
// to the AGC's measurement sidechain only.
type PreEmphasis int

const (
	PreEmphasisNone PreEmphasis = iota
	PreEmphasisUs50
	PreEmphasisUs75
)

func (p PreEmphasis) cornerHz() (float64, bool) {
	switch p {
	case PreEmphasisUs50:
		return 3183.1, true
	case PreEmphasisUs75:
		return 2122.1, true
	default:
		return 0, false
	}
}

// AGCConfig holds the gated AGC parameters from spec.md §4.3.
type AGCConfig struct {
	GateDB      float64
	MaxGainDB   float64
	TargetDB    float64
	AttackMS    float64
	ReleaseMS   float64
	PreEmphasis PreEmphasis
}

// DefaultAGCConfig matches original_source's AgcConfig::default.
func DefaultAGCConfig() AGCConfig {
	return AGCConfig{
		GateDB:      -31,
		MaxGainDB:   5,
		TargetDB:    -18,
		AttackMS:    100,
		ReleaseMS:   500,
		PreEmphasis: PreEmphasisUs75,
	}
}

const rmsWindowMS = 10.0

// AGC is a gated automatic gain control stage: fixed ~10ms rolling RMS
// on a mono (L+R)/2 sidechain, optionally pre-emphasised for
// measurement only, with one-pole IIR attack/release smoothing and a
// noise gate that holds gain on silence.
type AGC struct {
	sampleRate float64
	cfg        AGCConfig

	currentGain float64

	attackCoeff  float64
	releaseCoeff float64

	rmsWindow   []float64
	rmsWritePos int
	rmsSum      float64

	preEmphasis *Biquad
}

// NewAGC builds an AGC for sampleRate with the given config. The
// initial gain equals the max-gain-linear value, matching
// original_source's GatedAGC::new.
func NewAGC(sampleRate float64, cfg AGCConfig) *AGC {
	a := &AGC{sampleRate: sampleRate}
	windowSamples := int(rmsWindowMS / 1000 * sampleRate)
	if windowSamples < 1 {
		windowSamples = 1
	}
	a.rmsWindow = make([]float64, windowSamples)
	a.currentGain = dbToLinear(cfg.MaxGainDB)
	a.SetConfig(cfg)
	return a
}

// SetConfig reconfigures the AGC without resetting the smoothed gain,
// matching original_source's set_config.
func (a *AGC) SetConfig(cfg AGCConfig) {
	windowSamples := int(rmsWindowMS / 1000 * a.sampleRate)
	if windowSamples < 1 {
		windowSamples = 1
	}
	if windowSamples != len(a.rmsWindow) {
		a.rmsWindow = make([]float64, windowSamples)
		a.rmsSum = 0
		a.rmsWritePos = 0
	}
	a.attackCoeff = timeToCoeff(cfg.AttackMS, a.sampleRate)
	a.releaseCoeff = timeToCoeff(cfg.ReleaseMS, a.sampleRate)

	if corner, ok := cfg.PreEmphasis.cornerHz(); ok {
		corner = ClampFreq(corner, a.sampleRate)
		c := DesignBiquad(HighShelf, a.sampleRate, corner, 0.7071067811865476, 6)
		if a.preEmphasis == nil {
			a.preEmphasis = NewBiquad(c)
		} else {
			a.preEmphasis.SetCoeffs(c)
		}
	} else {
		a.preEmphasis = nil
	}

	a.cfg = cfg
}

// Config returns the AGC's current parameters.
func (a *AGC) Config() AGCConfig { return a.cfg }

// GainDB returns the AGC's current smoothed gain in dB, for metering.
func (a *AGC) GainDB() float64 { return linearToDB(a.currentGain) }

// ProcessBuffer applies the gated AGC to an interleaved stereo buffer,
// in place. Allocation-free.
func (a *AGC) ProcessBuffer(buf []float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		l := float64(buf[i])
		r := float64(buf[i+1])
		mono := (l + r) * 0.5
		gain := a.computeGain(mono)
		buf[i] = float32(l * gain)
		buf[i+1] = float32(r * gain)
	}
}

func (a *AGC) computeGain(sidechainMono float64) float64 {
	measured := sidechainMono
	if a.preEmphasis != nil {
		measured = a.preEmphasis.Process(sidechainMono)
	}

	oldSq := a.rmsWindow[a.rmsWritePos]
	newSq := measured * measured
	a.rmsSum = math.Max(a.rmsSum-oldSq+newSq, 0)
	a.rmsWindow[a.rmsWritePos] = newSq
	a.rmsWritePos = (a.rmsWritePos + 1) % len(a.rmsWindow)

	rms := math.Sqrt(a.rmsSum / float64(len(a.rmsWindow)))
	rmsDB := linearToDB(math.Max(rms, 1e-10))

	if rmsDB < a.cfg.GateDB {
		return a.currentGain
	}

	desiredDB := math.Min(a.cfg.TargetDB-rmsDB, a.cfg.MaxGainDB)
	desiredGain := dbToLinear(desiredDB)

	coeff := a.releaseCoeff
	if desiredGain < a.currentGain {
		coeff = a.attackCoeff
	}
	a.currentGain = coeff*a.currentGain + (1-coeff)*desiredGain
	return a.currentGain
}

func timeToCoeff(timeMS, sampleRate float64) float64 {
	if timeMS <= 0 {
		return 0
	}
	timeSamples := timeMS / 1000 * sampleRate
	return math.Exp(-1 / timeSamples)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func linearToDB(linear float64) float64 {
	return 20 * math.Log10(math.Max(math.Abs(linear), 1e-10))
}
