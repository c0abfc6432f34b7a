/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dsp

// PipelineConfig bundles every stage's settings. Either compressor
// stage may be disabled via its own Enabled flag without removing it
// from the chain.
type PipelineConfig struct {
	EQ        EQConfig
	AGC       AGCConfig
	Multiband MultibandConfig
	DualBand  DualBandConfig
	ClipDB    float64
}

// DefaultPipelineConfig returns a pipeline with a flat EQ, both
// compressor stages disabled, the AGC active at its defaults, and a clip
// ceiling just under full scale.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EQ:        DefaultEQConfig(),
		AGC:       DefaultAGCConfig(),
		Multiband: DefaultMultibandConfig(),
		DualBand:  DefaultDualBandConfig(),
		ClipDB:    -0.3,
	}
}

// Pipeline is the fixed-order per-channel/master chain from
// spec.md §4.3: EQ -> AGC -> multiband compressor -> dual-band
// compressor -> hard clipper. Every stage is allocation-free once
// built, so Pipeline itself never allocates in ProcessBuffer.
type Pipeline struct {
	eq        *EQ
	agc       *AGC
	multiband *Multiband
	dualBand  *DualBand
	clipper   *Clipper
}

// NewPipeline builds a pipeline for sampleRate with cfg.
func NewPipeline(sampleRate float64, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		eq:        NewEQ(sampleRate, cfg.EQ),
		agc:       NewAGC(sampleRate, cfg.AGC),
		multiband: NewMultiband(sampleRate, cfg.Multiband),
		dualBand:  NewDualBand(sampleRate, cfg.DualBand),
		clipper:   NewClipper(cfg.ClipDB),
	}
}

// SetConfig reconfigures every stage in place.
func (p *Pipeline) SetConfig(cfg PipelineConfig) {
	p.eq.SetConfig(cfg.EQ)
	p.agc.SetConfig(cfg.AGC)
	p.multiband.SetConfig(cfg.Multiband)
	p.dualBand.SetConfig(cfg.DualBand)
	p.clipper.CeilingDB = cfg.ClipDB
}

// Config returns the pipeline's current settings.
func (p *Pipeline) Config() PipelineConfig {
	return PipelineConfig{
		EQ:        p.eq.Config(),
		AGC:       p.agc.Config(),
		Multiband: p.multiband.Config(),
		DualBand:  p.dualBand.Config(),
		ClipDB:    p.clipper.CeilingDB,
	}
}

// ProcessBuffer runs buf through every stage in order, in place.
func (p *Pipeline) ProcessBuffer(buf []float32) {
	p.eq.ProcessBuffer(buf)
	p.agc.ProcessBuffer(buf)
	p.multiband.ProcessBuffer(buf)
	p.dualBand.ProcessBuffer(buf)
	p.clipper.ProcessBuffer(buf)
}
