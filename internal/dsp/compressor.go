/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dsp

import "math"

// BandConfig holds one compressor band's soft-knee dynamics
// parameters, grounded on original_source's BandConfig.
type BandConfig struct {
	ThresholdDB float64
	Ratio       float64
	KneeDB      float64
	AttackMS    float64
	ReleaseMS   float64
	MakeupDB    float64
}

// DefaultBandConfig matches original_source's BandConfig::default.
func DefaultBandConfig() BandConfig {
	return BandConfig{ThresholdDB: -18, Ratio: 3, KneeDB: 6, AttackMS: 5, ReleaseMS: 50}
}

// band is a single soft-knee peak compressor driving a mono detector.
type band struct {
	cfg          BandConfig
	detector     float64
	attackCoeff  float64
	releaseCoeff float64
	makeupGain   float64
}

func newBand(sampleRate float64, cfg BandConfig) *band {
	b := &band{}
	b.reconfigure(sampleRate, cfg)
	return b
}

func (b *band) reconfigure(sampleRate float64, cfg BandConfig) {
	b.attackCoeff = timeToCoeff(cfg.AttackMS, sampleRate)
	b.releaseCoeff = timeToCoeff(cfg.ReleaseMS, sampleRate)
	b.makeupGain = dbToLinear(cfg.MakeupDB)
	b.cfg = cfg
}

func (b *band) process(sample float64) float64 {
	absIn := math.Abs(sample)

	coeff := b.releaseCoeff
	if absIn > b.detector {
		coeff = b.attackCoeff
	}
	b.detector = coeff*b.detector + (1-coeff)*absIn

	levelDB := linearToDB(math.Max(b.detector, 1e-10))
	gainDB := b.gainDB(levelDB)
	return sample * dbToLinear(gainDB) * b.makeupGain
}

// gainDB implements the soft-knee gain-reduction formula from
// spec.md §4.3.
func (b *band) gainDB(levelDB float64) float64 {
	t := b.cfg.ThresholdDB
	r := b.cfg.Ratio
	w := b.cfg.KneeDB
	excess := levelDB - t

	if w <= 0 {
		if excess > 0 {
			return (t + excess/r) - levelDB
		}
		return 0
	}

	halfW := w / 2
	switch {
	case excess < -halfW:
		return 0
	case excess > halfW:
		return (t + excess/r) - levelDB
	default:
		x := (excess + halfW) / w
		ratioEff := 1 + (r-1)*x
		return (t - halfW + (excess+halfW)/ratioEff) - levelDB
	}
}

// crossoverPair is a 4th-order Linkwitz-Riley crossover: two cascaded
// 2nd-order Butterworth sections per side, giving -24dB/oct slopes and
// a flat summed magnitude response at the crossover point.
type crossoverPair struct {
	lp1, lp2 *Biquad
	hp1, hp2 *Biquad
}

func newCrossoverPair(sampleRate, crossoverHz float64) *crossoverPair {
	freq := ClampFreq(crossoverHz, sampleRate)
	const q = 0.7071067811865476
	lpC := DesignBiquad(LowPass, sampleRate, freq, q, 0)
	hpC := DesignBiquad(HighPass, sampleRate, freq, q, 0)
	return &crossoverPair{
		lp1: NewBiquad(lpC), lp2: NewBiquad(lpC),
		hp1: NewBiquad(hpC), hp2: NewBiquad(hpC),
	}
}

func (c *crossoverPair) split(x float64) (lo, hi float64) {
	lo = c.lp2.Process(c.lp1.Process(x))
	hi = c.hp2.Process(c.hp1.Process(x))
	return
}

var crossoverFreqsHz = [4]float64{100, 400, 2500, 8000}

// MultibandConfig configures the 5-band multiband compressor.
type MultibandConfig struct {
	Enabled bool
	Bands   [5]BandConfig
}

// DefaultMultibandConfig matches original_source's MultibandConfig::default.
func DefaultMultibandConfig() MultibandConfig {
	return MultibandConfig{
		Bands: [5]BandConfig{
			{ThresholdDB: -20, Ratio: 2.0, KneeDB: 6, AttackMS: 5, ReleaseMS: 50},
			{ThresholdDB: -20, Ratio: 2.5, KneeDB: 6, AttackMS: 5, ReleaseMS: 50},
			{ThresholdDB: -20, Ratio: 3.0, KneeDB: 6, AttackMS: 5, ReleaseMS: 50},
			{ThresholdDB: -20, Ratio: 3.0, KneeDB: 6, AttackMS: 5, ReleaseMS: 50},
			{ThresholdDB: -20, Ratio: 2.0, KneeDB: 6, AttackMS: 5, ReleaseMS: 50},
		},
	}
}

// Multiband is a 5-band compressor split by four Linkwitz-Riley 4th
// order crossovers at 100/400/2500/8000 Hz, per spec.md §4.3.
type Multiband struct {
	cfg        MultibandConfig
	sampleRate float64
	crossovers [4]*crossoverPair
	bands      [5]*band
}

// NewMultiband builds a multiband compressor for sampleRate.
func NewMultiband(sampleRate float64, cfg MultibandConfig) *Multiband {
	m := &Multiband{sampleRate: sampleRate, cfg: cfg}
	for i, hz := range crossoverFreqsHz {
		m.crossovers[i] = newCrossoverPair(sampleRate, hz)
	}
	for i := range m.bands {
		m.bands[i] = newBand(sampleRate, cfg.Bands[i])
	}
	return m
}

// SetConfig reconfigures band dynamics without rebuilding the
// crossovers.
func (m *Multiband) SetConfig(cfg MultibandConfig) {
	for i, b := range m.bands {
		b.reconfigure(m.sampleRate, cfg.Bands[i])
	}
	m.cfg = cfg
}

// Config returns the multiband compressor's current parameters.
func (m *Multiband) Config() MultibandConfig { return m.cfg }

func (m *Multiband) processMono(x float64) float64 {
	if !m.cfg.Enabled {
		return x
	}
	b0, rest1 := m.crossovers[0].split(x)
	b1, rest2 := m.crossovers[1].split(rest1)
	b2, rest3 := m.crossovers[2].split(rest2)
	b3, b4 := m.crossovers[3].split(rest3)

	return m.bands[0].process(b0) +
		m.bands[1].process(b1) +
		m.bands[2].process(b2) +
		m.bands[3].process(b3) +
		m.bands[4].process(b4)
}

// ProcessBuffer applies the multiband compressor to every sample of an
// interleaved stereo buffer (both channels run through the same mono
// per-sample detector chain, matching original_source's process_buffer).
func (m *Multiband) ProcessBuffer(buf []float32) {
	if !m.cfg.Enabled {
		return
	}
	for i := range buf {
		buf[i] = float32(m.processMono(float64(buf[i])))
	}
}

// DualBandConfig configures the two-band LF/HF compressor.
type DualBandConfig struct {
	Enabled     bool
	CrossoverHz float64
	LFBand      BandConfig
	HFBand      BandConfig
}

// DefaultDualBandConfig matches original_source's DualBandConfig::default.
func DefaultDualBandConfig() DualBandConfig {
	return DualBandConfig{
		CrossoverHz: 800,
		LFBand:      BandConfig{ThresholdDB: -18, Ratio: 4, KneeDB: 6, AttackMS: 5, ReleaseMS: 50},
		HFBand:      BandConfig{ThresholdDB: -18, Ratio: 3, KneeDB: 6, AttackMS: 5, ReleaseMS: 50},
	}
}

// DualBand is a two-band LF/HF compressor split by a single
// Linkwitz-Riley crossover, per spec.md §4.3.
type DualBand struct {
	cfg        DualBandConfig
	sampleRate float64
	crossover  *crossoverPair
	lf, hf     *band
}

// NewDualBand builds a dual-band compressor for sampleRate.
func NewDualBand(sampleRate float64, cfg DualBandConfig) *DualBand {
	return &DualBand{
		cfg:        cfg,
		sampleRate: sampleRate,
		crossover:  newCrossoverPair(sampleRate, cfg.CrossoverHz),
		lf:         newBand(sampleRate, cfg.LFBand),
		hf:         newBand(sampleRate, cfg.HFBand),
	}
}

// SetConfig rebuilds the crossover (its frequency may have changed) and
// reconfigures both bands.
func (d *DualBand) SetConfig(cfg DualBandConfig) {
	d.crossover = newCrossoverPair(d.sampleRate, cfg.CrossoverHz)
	d.lf.reconfigure(d.sampleRate, cfg.LFBand)
	d.hf.reconfigure(d.sampleRate, cfg.HFBand)
	d.cfg = cfg
}

// Config returns the dual-band compressor's current parameters.
func (d *DualBand) Config() DualBandConfig { return d.cfg }

func (d *DualBand) processMono(x float64) float64 {
	if !d.cfg.Enabled {
		return x
	}
	lo, hi := d.crossover.split(x)
	return d.lf.process(lo) + d.hf.process(hi)
}

// ProcessBuffer applies the dual-band compressor to an interleaved
// stereo buffer, in place.
func (d *DualBand) ProcessBuffer(buf []float32) {
	if !d.cfg.Enabled {
		return
	}
	for i := range buf {
		buf[i] = float32(d.processMono(float64(buf[i])))
	}
}
