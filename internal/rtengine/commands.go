/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rtengine implements the real-time callback loop from
// spec.md §4.3/§5: a ticker-driven "audio thread" that try-locks
// shared state, drains a bounded command queue, advances the
// crossfade, fills and processes each deck, mixes, runs the master
// DSP chain, and pushes the result to the broadcaster. Grounded on the
// teacher's ticker-loop shape in internal/playout/director.go,
// generalized from a 2-second schedule-poll cadence to the
// sub-10ms audio callback cadence spec.md §5 requires.
package rtengine

import (
	"time"

	"github.com/friendsincode/aircore/internal/crossfade"
	"github.com/friendsincode/aircore/internal/models"
)

// CommandKind tags the variant carried by a Command, per the command
// contract in spec.md §6.
type CommandKind int

const (
	CmdLoadTrack CommandKind = iota
	CmdPlay
	CmdPause
	CmdSeek
	CmdSetChannelGain
	CmdSetDeckPitch
	CmdSetDeckTempo
	CmdSetDeckLoop
	CmdClearDeckLoop
	CmdStartCrossfade
	CmdSetCrossfadeConfig
	CmdSetChannelPipeline
	CmdSetMasterPipeline
	CmdSwitchDeckTrackSource
	CmdStopWithCompletion
	CmdSetMasterLevel
	CmdSetDeckBass
	CmdSetDeckFilter
	CmdSetManualCrossfade
	CmdTriggerManualFade
)

// Command is a single tagged command accepted by the RT command queue.
// Only the fields relevant to Kind are populated.
type Command struct {
	Kind CommandKind
	Deck models.DeckID

	Track    models.PreparedTrack
	Position time.Duration

	Gain   float64 // CmdSetChannelGain
	Pct    float64 // CmdSetDeckPitch/CmdSetDeckTempo
	DB     float64 // CmdSetDeckBass: low-shelf gain in dB
	Level  float64 // CmdSetMasterLevel
	Amount float64 // CmdSetDeckFilter ([-1,1]) / CmdSetManualCrossfade position ([-1,1])

	LoopStart, LoopEnd time.Duration

	CrossfadeTo     models.DeckID // also CmdTriggerManualFade's fade direction
	CrossfadeCurve  crossfade.Curve
	CrossfadeMode   models.TriggerMode
	CrossfadeLength time.Duration // also CmdTriggerManualFade's duration_ms

	ChannelPipeline PipelineSettings
	MasterPipeline  PipelineSettings

	Path string

	// Result carries the outcome back to the caller for commands that
	// need to report one (e.g. LoadTrack's decode-start error). Callers
	// that don't care may leave this nil.
	Result chan<- error
}

// PipelineSettings is the subset of internal/dsp.PipelineConfig exposed
// through the command contract, kept decoupled from dsp's concrete type
// so rtengine can validate/store settings without importing dsp for
// every command path. The engine itself converts this into a
// dsp.PipelineConfig when applying it to a channel or master strip.
type PipelineSettings struct {
	LowGainDB, LowFreqHz              float64
	MidGainDB, MidFreqHz, MidQ        float64
	HighGainDB, HighFreqHz            float64
	AGCEnabled                        bool
	AGCTargetDB, AGCMaxGainDB         float64
	MultibandEnabled, DualBandEnabled bool
	ClipCeilingDB                     float64
}
