/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/aircore/internal/crossfade"
	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/rtengine"
)

// parseDeckName resolves a deck name (the fixed six-deck set from
// spec.md §3, case-insensitive), whether from a URL param or a JSON
// body field, to a models.DeckID.
func parseDeckName(name string) (models.DeckID, bool) {
	switch strings.ToLower(name) {
	case "a":
		return models.DeckA, true
	case "b":
		return models.DeckB, true
	case "soundfx":
		return models.SoundFx, true
	case "aux1":
		return models.Aux1, true
	case "aux2":
		return models.Aux2, true
	case "voicefx":
		return models.VoiceFx, true
	default:
		return 0, false
	}
}

func (a *API) deckFromRequest(w http.ResponseWriter, r *http.Request) (models.DeckID, bool) {
	deck, ok := parseDeckName(chi.URLParam(r, "deck"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_deck")
		return 0, false
	}
	return deck, true
}

type loadTrackRequest struct {
	TrackID    string  `json:"track_id"`
	Path       string  `json:"path"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Category   string  `json:"category"`
	DurationMs int64   `json:"duration_ms"`
	IntroEndMs int64   `json:"intro_end_ms"`
	OutroInMs  int64   `json:"outro_in_ms"`
}

func (a *API) handleLoadTrack(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req loadTrackRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	track := models.PreparedTrack{
		ID: req.TrackID,
		Source: models.TrackSource{
			Path:       req.Path,
			SampleRate: req.SampleRate,
			Channels:   req.Channels,
		},
		Markers: models.Markers{
			IntroEnd: time.Duration(req.IntroEndMs) * time.Millisecond,
			OutroIn:  time.Duration(req.OutroInMs) * time.Millisecond,
		},
		Title:    req.Title,
		Artist:   req.Artist,
		Album:    req.Album,
		Category: req.Category,
		Duration: time.Duration(req.DurationMs) * time.Millisecond,
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdLoadTrack, Deck: deck, Track: track})
}

func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdPlay, Deck: deck})
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdPause, Deck: deck})
}

type seekRequest struct {
	PositionMs int64 `json:"position_ms"`
}

func (a *API) handleSeek(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req seekRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{
		Kind:     rtengine.CmdSeek,
		Deck:     deck,
		Position: time.Duration(req.PositionMs) * time.Millisecond,
	})
}

type gainRequest struct {
	Gain float64 `json:"gain"`
}

func (a *API) handleSetChannelGain(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req gainRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSetChannelGain, Deck: deck, Gain: req.Gain})
}

type pctRequest struct {
	Pct float64 `json:"pct"`
}

func (a *API) handleSetDeckPitch(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req pctRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSetDeckPitch, Deck: deck, Pct: req.Pct})
}

func (a *API) handleSetDeckTempo(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req pctRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSetDeckTempo, Deck: deck, Pct: req.Pct})
}

type dbRequest struct {
	DB float64 `json:"db"`
}

func (a *API) handleSetDeckBass(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req dbRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSetDeckBass, Deck: deck, DB: req.DB})
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

func (a *API) handleSetDeckFilter(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSetDeckFilter, Deck: deck, Amount: req.Amount})
}

type loopRequest struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

func (a *API) handleSetDeckLoop(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req loopRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{
		Kind:      rtengine.CmdSetDeckLoop,
		Deck:      deck,
		LoopStart: time.Duration(req.StartMs) * time.Millisecond,
		LoopEnd:   time.Duration(req.EndMs) * time.Millisecond,
	})
}

func (a *API) handleClearDeckLoop(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdClearDeckLoop, Deck: deck})
}

type pipelineRequest struct {
	LowGainDB    float64 `json:"low_gain_db"`
	LowFreqHz    float64 `json:"low_freq_hz"`
	MidGainDB    float64 `json:"mid_gain_db"`
	MidFreqHz    float64 `json:"mid_freq_hz"`
	MidQ         float64 `json:"mid_q"`
	HighGainDB   float64 `json:"high_gain_db"`
	HighFreqHz   float64 `json:"high_freq_hz"`
	AGCEnabled   bool    `json:"agc_enabled"`
	AGCTargetDB  float64 `json:"agc_target_db"`
	AGCMaxGainDB float64 `json:"agc_max_gain_db"`
	Multiband    bool    `json:"multiband_enabled"`
	DualBand     bool    `json:"dual_band_enabled"`
	ClipCeiling  float64 `json:"clip_ceiling_db"`
}

func (req pipelineRequest) toSettings() rtengine.PipelineSettings {
	return rtengine.PipelineSettings{
		LowGainDB:        req.LowGainDB,
		LowFreqHz:        req.LowFreqHz,
		MidGainDB:        req.MidGainDB,
		MidFreqHz:        req.MidFreqHz,
		MidQ:             req.MidQ,
		HighGainDB:       req.HighGainDB,
		HighFreqHz:       req.HighFreqHz,
		AGCEnabled:       req.AGCEnabled,
		AGCTargetDB:      req.AGCTargetDB,
		AGCMaxGainDB:     req.AGCMaxGainDB,
		MultibandEnabled: req.Multiband,
		DualBandEnabled:  req.DualBand,
		ClipCeilingDB:    req.ClipCeiling,
	}
}

func (a *API) handleSetChannelPipeline(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req pipelineRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{
		Kind:            rtengine.CmdSetChannelPipeline,
		Deck:            deck,
		ChannelPipeline: req.toSettings(),
	})
}

func (a *API) handleSetMasterPipeline(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSetMasterPipeline, MasterPipeline: req.toSettings()})
}

func (a *API) handleStopWithCompletion(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdStopWithCompletion, Deck: deck})
}

func (a *API) handleSwitchDeckTrackSource(w http.ResponseWriter, r *http.Request) {
	deck, ok := a.deckFromRequest(w, r)
	if !ok {
		return
	}
	var req loadTrackRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	track := models.PreparedTrack{
		ID:       req.TrackID,
		Source:   models.TrackSource{Path: req.Path, SampleRate: req.SampleRate, Channels: req.Channels},
		Title:    req.Title,
		Artist:   req.Artist,
		Album:    req.Album,
		Category: req.Category,
		Duration: time.Duration(req.DurationMs) * time.Millisecond,
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSwitchDeckTrackSource, Deck: deck, Track: track})
}

func (a *API) handleSetMasterLevel(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{Kind: rtengine.CmdSetMasterLevel, Level: req.Amount})
}

type crossfadeRequest struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Curve      string  `json:"curve"`
	Mode       string  `json:"mode"`
	DurationMs int64   `json:"duration_ms"`
}

func (a *API) handleStartCrossfade(w http.ResponseWriter, r *http.Request) {
	var req crossfadeRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	from, ok := parseDeckName(req.From)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_from_deck")
		return
	}
	to, ok := parseDeckName(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_to_deck")
		return
	}
	a.pushCommand(w, r, rtengine.Command{
		Kind:            rtengine.CmdStartCrossfade,
		Deck:            from,
		CrossfadeTo:     to,
		CrossfadeCurve:  crossfade.Curve(req.Curve),
		CrossfadeMode:   models.TriggerMode(req.Mode),
		CrossfadeLength: time.Duration(req.DurationMs) * time.Millisecond,
	})
}

type crossfadeConfigRequest struct {
	Curve      string `json:"curve"`
	DurationMs int64  `json:"duration_ms"`
}

func (a *API) handleSetCrossfadeConfig(w http.ResponseWriter, r *http.Request) {
	var req crossfadeConfigRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.pushCommand(w, r, rtengine.Command{
		Kind:            rtengine.CmdSetCrossfadeConfig,
		CrossfadeCurve:  crossfade.Curve(req.Curve),
		CrossfadeLength: time.Duration(req.DurationMs) * time.Millisecond,
	})
}

type manualCrossfadeRequest struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Curve    string  `json:"curve"`
	Position float64 `json:"position"`
}

func (a *API) handleSetManualCrossfade(w http.ResponseWriter, r *http.Request) {
	var req manualCrossfadeRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	from, ok := parseDeckName(req.From)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_from_deck")
		return
	}
	to, ok := parseDeckName(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_to_deck")
		return
	}
	a.pushCommand(w, r, rtengine.Command{
		Kind:           rtengine.CmdSetManualCrossfade,
		Deck:           from,
		CrossfadeTo:    to,
		CrossfadeCurve: crossfade.Curve(req.Curve),
		Amount:         req.Position,
	})
}

type triggerManualFadeRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Curve      string `json:"curve"`
	DurationMs int64  `json:"duration_ms"`
}

func (a *API) handleTriggerManualFade(w http.ResponseWriter, r *http.Request) {
	var req triggerManualFadeRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	from, ok := parseDeckName(req.From)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_from_deck")
		return
	}
	to, ok := parseDeckName(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_to_deck")
		return
	}
	a.pushCommand(w, r, rtengine.Command{
		Kind:            rtengine.CmdTriggerManualFade,
		Deck:            from,
		CrossfadeTo:     to,
		CrossfadeCurve:  crossfade.Curve(req.Curve),
		CrossfadeLength: time.Duration(req.DurationMs) * time.Millisecond,
	})
}
