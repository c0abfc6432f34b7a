/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package director ties internal/autodj's selector and
// internal/planner's transition planner to a running
// internal/rtengine.Engine: it is the one piece of SPEC_FULL.md's
// AutoDJ loop that actually drives the two decks, the rest of the
// AutoDJ stack being pure functions over catalog/clockwheel state.
// Grounded on the teacher's internal/playout.Director ticker-loop shape
// (NewDirector/Run/tick), generalized from a schedule-entry poll to a
// two-deck selector/planner/crossfade cycle.
package director

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/aircore/internal/autodj"
	"github.com/friendsincode/aircore/internal/crossfade"
	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/planner"
	"github.com/friendsincode/aircore/internal/rtengine"
)

// tickInterval is how often Director polls deck position to decide
// whether it's time to arm the next crossfade. Short enough that the
// computed fade point is never missed by more than this much.
const tickInterval = 250 * time.Millisecond

// Director alternates AutoDJ selection across the two decks it owns,
// planning and triggering each crossfade via the engine's command
// queue — it never touches engine-internal state directly.
type Director struct {
	engine   *rtengine.Engine
	selector *autodj.Selector
	bus      *events.Bus
	logger   zerolog.Logger

	curve             crossfade.Curve
	mode              models.PlanMode
	transitionTimeSec float64
	minTrackDurationMs int64
	recueWindowMs     int64

	onAir   models.DeckID
	standby models.DeckID

	fadeBeginMs int64
	armed       bool
	preloaded   bool
}

// Config wires a Director's collaborators and transition preferences.
type Config struct {
	Engine   *rtengine.Engine
	Selector *autodj.Selector
	Bus      *events.Bus
	Logger   zerolog.Logger

	Curve              crossfade.Curve
	Mode               models.PlanMode
	TransitionTimeSec  float64
	MinTrackDurationMs int64
	RecueWindowMs      int64
}

// New builds a Director alternating between deck A and deck B.
func New(cfg Config) *Director {
	return &Director{
		engine:             cfg.Engine,
		selector:           cfg.Selector,
		bus:                cfg.Bus,
		logger:             cfg.Logger,
		curve:              cfg.Curve,
		mode:               cfg.Mode,
		transitionTimeSec:  cfg.TransitionTimeSec,
		minTrackDurationMs: cfg.MinTrackDurationMs,
		recueWindowMs:      cfg.RecueWindowMs,
		onAir:              models.DeckA,
		standby:            models.DeckB,
	}
}

// Run loads the first track onto the on-air deck and then drives the
// selector/planner/crossfade cycle until ctx is cancelled.
func (d *Director) Run(ctx context.Context) error {
	if err := d.loadNext(ctx, d.onAir); err != nil {
		return err
	}
	if err := d.pushAndWait(ctx, rtengine.Command{Kind: rtengine.CmdPlay, Deck: d.onAir}); err != nil {
		return err
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Director) tick(ctx context.Context) {
	if c, ok := d.engine.TakeCompletion(); ok && c.Deck == d.onAir {
		d.onAir, d.standby = d.standby, d.onAir
		d.armed = false
		d.preloaded = false
	}

	snap, ok := d.engine.DeckSnapshot(d.onAir)
	if !ok || snap.State != "playing" {
		return
	}

	if !d.preloaded {
		if err := d.loadNext(ctx, d.standby); err != nil {
			d.logger.Warn().Err(err).Msg("director: failed to preload standby deck")
			return
		}
		d.fadeBeginMs = d.planFadeBeginMs(snap)
		d.preloaded = true
	}

	if !d.armed && snap.PositionMs >= d.fadeBeginMs {
		d.armCrossfade(ctx)
	}
}

func (d *Director) planFadeBeginMs(onAir rtengine.DeckSnapshot) int64 {
	standbySnap, _ := d.engine.DeckSnapshot(d.standby)
	plan := planner.Plan(d.onAir, d.standby, planner.Request{
		Outgoing: planner.TrackSnapshot{
			PositionMs: onAir.PositionMs,
			DurationMs: onAir.DurationMs,
		},
		Incoming: planner.TrackSnapshot{
			PositionMs: 0,
			DurationMs: standbySnap.DurationMs,
		},
		Mode:               d.mode,
		TransitionTimeSec:  d.transitionTimeSec,
		MinTrackDurationMs: d.minTrackDurationMs,
		RecueWindowMs:      d.recueWindowMs,
	})
	d.bus.Publish(events.EventTransitionPlanned, events.Payload{
		"from": d.onAir.String(),
		"to":   d.standby.String(),
		"mode": string(plan.Mode),
	})
	return plan.FromFadeBeginMs
}

func (d *Director) armCrossfade(ctx context.Context) {
	length := time.Duration(d.transitionTimeSec*1000) * time.Millisecond
	if length < 0 {
		length = -length
	}
	if err := d.pushAndWait(ctx, rtengine.Command{
		Kind:            rtengine.CmdStartCrossfade,
		Deck:            d.onAir,
		CrossfadeTo:     d.standby,
		CrossfadeCurve:  d.curve,
		CrossfadeMode:   models.TriggerFixedPointMs,
		CrossfadeLength: length,
	}); err != nil {
		d.logger.Warn().Err(err).Msg("director: failed to start crossfade")
		return
	}
	_ = d.pushAndWait(ctx, rtengine.Command{Kind: rtengine.CmdPlay, Deck: d.standby})
	d.armed = true
}

// loadNext selects the next AutoDJ candidate and loads it onto deck.
func (d *Director) loadNext(ctx context.Context, deck models.DeckID) error {
	result, err := d.selector.Select(ctx, autodj.SelectRequest{Now: time.Now()})
	if err != nil {
		return err
	}
	track := models.PreparedTrack{
		ID:       result.Item.ID,
		Source:   models.TrackSource{Path: result.Item.Path},
		Markers:  result.Item.Markers,
		Artist:   result.Item.Artist,
		Album:    result.Item.Album,
		Title:    result.Item.Title,
		Category: result.Item.Category,
		Duration: result.Item.Duration,
	}
	return d.pushAndWait(ctx, rtengine.Command{Kind: rtengine.CmdLoadTrack, Deck: deck, Track: track})
}

func (d *Director) pushAndWait(ctx context.Context, cmd rtengine.Command) error {
	result := make(chan error, 1)
	cmd.Result = result
	if err := d.engine.Queue().Push(cmd); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return nil
	}
}
