/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rtengine

import (
	"context"
	"errors"

	"github.com/friendsincode/aircore/internal/dsp"
	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
)

// errNoSuchDeck is returned when a command names a deck ID outside the
// fixed six-deck bus.
var errNoSuchDeck = errors.New("rtengine: no such deck")

// errDeckNotCrossfadeable is returned when a crossfade command names a
// deck outside the DeckA/DeckB musical pair, per spec.md §3's
// restriction of autoplay/crossfade to that pair.
var errDeckNotCrossfadeable = errors.New("rtengine: deck is not eligible for crossfade")

// applyCommand mutates RT state for one drained command. Called only
// from step, which already holds the try-lock.
func (e *Engine) applyCommand(cmd Command) {
	var err error
	switch cmd.Kind {
	case CmdLoadTrack:
		if d := e.deckByID(cmd.Deck); d != nil {
			err = d.Load(context.Background(), cmd.Track)
			if err == nil {
				e.bus.Publish(events.EventDeckLoaded, events.Payload{"deck": cmd.Deck.String(), "title": cmd.Track.Title})
			}
		} else {
			err = errNoSuchDeck
		}

	case CmdPlay:
		if d := e.deckByID(cmd.Deck); d != nil {
			err = d.Play()
			e.publishDeckState(cmd.Deck)
		} else {
			err = errNoSuchDeck
		}

	case CmdPause:
		if d := e.deckByID(cmd.Deck); d != nil {
			err = d.Pause()
			e.publishDeckState(cmd.Deck)
		} else {
			err = errNoSuchDeck
		}

	case CmdSeek:
		if d := e.deckByID(cmd.Deck); d != nil {
			err = d.Seek(context.Background(), cmd.Position)
			e.publishDeckState(cmd.Deck)
		} else {
			err = errNoSuchDeck
		}

	case CmdSetChannelGain:
		if idx := int(cmd.Deck); idx >= 0 && idx < len(e.mix.Channels) {
			e.mix.Channels[idx].Fader = clamp01(cmd.Gain)
		}

	case CmdSetDeckPitch, CmdSetDeckTempo:
		if d := e.deckByID(cmd.Deck); d != nil {
			d.SetPlaybackRate(1 + cmd.Pct/100)
		}

	case CmdSetDeckLoop:
		// No effect: cmd.LoopStart/LoopEnd are not stored or applied. A
		// deck's loop comes only from the loaded track's Markers, armed
		// on Load and Seek.

	case CmdClearDeckLoop:
		// See CmdSetDeckLoop.

	case CmdStartCrossfade:
		if !cmd.Deck.Autoplayable() || !cmd.CrossfadeTo.Autoplayable() {
			err = errDeckNotCrossfadeable
			break
		}
		e.crossfadeSession.Arm(cmd.Deck, cmd.CrossfadeTo, cmd.CrossfadeCurve, cmd.CrossfadeMode, cmd.CrossfadeLength, e.sampleRate)
		if d := e.deckByID(cmd.Deck); d != nil {
			d.SetCrossfading(true)
		}
		if d := e.deckByID(cmd.CrossfadeTo); d != nil {
			d.SetCrossfading(true)
		}
		e.bus.Publish(events.EventCrossfadeStarted, events.Payload{
			"from": cmd.Deck.String(), "to": cmd.CrossfadeTo.String(),
		})

	case CmdSetCrossfadeConfig:
		// No effect: the config is not stored. Each StartCrossfade and
		// TriggerManualFade carries its own curve, mode and length.

	case CmdSetChannelPipeline:
		if idx := int(cmd.Deck); idx >= 0 && idx < len(e.chPipes) {
			e.chPipes[idx].SetConfig(toDSPConfig(cmd.ChannelPipeline, e.chPipes[idx].Config()))
		}

	case CmdSetMasterPipeline:
		e.masterDSP.SetConfig(toDSPConfig(cmd.MasterPipeline, e.masterDSP.Config()))

	case CmdSwitchDeckTrackSource:
		if d := e.deckByID(cmd.Deck); d != nil {
			err = d.Load(context.Background(), cmd.Track)
		} else {
			err = errNoSuchDeck
		}

	case CmdStopWithCompletion:
		if d := e.deckByID(cmd.Deck); d != nil {
			if track := d.Track(); track != nil {
				select {
				case e.pendingCompletions <- Completion{Deck: cmd.Deck, Track: *track}:
				default:
				}
			}
			d.Stop()
		}

	case CmdSetMasterLevel:
		e.mix.MasterGain = clamp01(cmd.Level)

	case CmdSetDeckBass:
		if idx := int(cmd.Deck); idx >= 0 && idx < len(e.chPipes) {
			cfg := e.chPipes[idx].Config()
			cfg.EQ.LowGainDB = cmd.DB
			e.chPipes[idx].SetConfig(cfg)
		}

	case CmdSetDeckFilter:
		if idx := int(cmd.Deck); idx >= 0 && idx < len(e.chPipes) {
			e.chPipes[idx].SetConfig(applyFilterKnob(e.chPipes[idx].Config(), cmd.Amount))
		}

	case CmdSetManualCrossfade:
		if !cmd.Deck.Autoplayable() || !cmd.CrossfadeTo.Autoplayable() {
			err = errDeckNotCrossfadeable
			break
		}
		e.crossfadeSession.SetManualPosition(cmd.Deck, cmd.CrossfadeTo, cmd.CrossfadeCurve, cmd.Amount)

	case CmdTriggerManualFade:
		if !cmd.Deck.Autoplayable() || !cmd.CrossfadeTo.Autoplayable() {
			err = errDeckNotCrossfadeable
			break
		}
		e.crossfadeSession.Arm(cmd.Deck, cmd.CrossfadeTo, cmd.CrossfadeCurve, models.TriggerManual, cmd.CrossfadeLength, e.sampleRate)
		if d := e.deckByID(cmd.Deck); d != nil {
			d.SetCrossfading(true)
		}
		if d := e.deckByID(cmd.CrossfadeTo); d != nil {
			d.SetCrossfading(true)
		}
		e.bus.Publish(events.EventCrossfadeStarted, events.Payload{
			"from": cmd.Deck.String(), "to": cmd.CrossfadeTo.String(), "manual": true,
		})
	}

	if cmd.Result != nil {
		cmd.Result <- err
	}
}

func (e *Engine) publishDeckState(id models.DeckID) {
	d := e.deckByID(id)
	if d == nil {
		return
	}
	positionMs := int64(d.FramesPlayed()) * 1000 / int64(e.sampleRate)
	var durationMs int64
	if track := d.Track(); track != nil {
		durationMs = track.Duration.Milliseconds()
	}
	e.bus.Publish(events.EventDeckStateChanged, events.Payload{
		"deck":        id.String(),
		"state":       d.State().String(),
		"position_ms": positionMs,
		"duration_ms": durationMs,
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// applyFilterKnob approximates a DJ-style filter sweep on top of the
// fixed 3-band EQ: positive amount cuts bass (like turning toward a
// highpass), negative amount cuts highs (like turning toward a
// lowpass), scaled to a 24 dB shelf cut at the knob's extremes. There is
// no dedicated sweep filter stage in the pipeline, so the sweep rides
// the existing low/high shelves rather than adding one.
func applyFilterKnob(cfg dsp.PipelineConfig, amount float64) dsp.PipelineConfig {
	if amount > 1 {
		amount = 1
	}
	if amount < -1 {
		amount = -1
	}
	const maxCutDB = 24.0
	if amount >= 0 {
		cfg.EQ.LowGainDB = -amount * maxCutDB
		cfg.EQ.HighGainDB = 0
	} else {
		cfg.EQ.HighGainDB = amount * maxCutDB
		cfg.EQ.LowGainDB = 0
	}
	return cfg
}

func toDSPConfig(s PipelineSettings, base dsp.PipelineConfig) dsp.PipelineConfig {
	base.EQ.LowGainDB = s.LowGainDB
	base.EQ.LowFreqHz = s.LowFreqHz
	base.EQ.MidGainDB = s.MidGainDB
	base.EQ.MidFreqHz = s.MidFreqHz
	base.EQ.MidQ = s.MidQ
	base.EQ.HighGainDB = s.HighGainDB
	base.EQ.HighFreqHz = s.HighFreqHz
	base.AGC.TargetDB = s.AGCTargetDB
	base.AGC.MaxGainDB = s.AGCMaxGainDB
	base.Multiband.Enabled = s.MultibandEnabled
	base.DualBand.Enabled = s.DualBandEnabled
	base.ClipDB = s.ClipCeilingDB
	return base
}
