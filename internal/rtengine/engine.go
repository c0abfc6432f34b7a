/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rtengine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/aircore/internal/crossfade"
	"github.com/friendsincode/aircore/internal/deck"
	"github.com/friendsincode/aircore/internal/dsp"
	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/mixer"
	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/telemetry"
)

const stereoChannels = 2

// MasterSink receives the engine's mixed, post-DSP master buffer every
// callback. internal/broadcast implements this to avoid an import
// cycle between rtengine and broadcast.
type MasterSink interface {
	Push(frames []float32)
}

// Completion is a take-once record of a deck finishing its track,
// surfaced to AutoDJ/analytics per spec.md §5's "pending completion is
// produced at most once per track load" guarantee.
type Completion struct {
	Deck   models.DeckID
	Track  models.PreparedTrack
	Played time.Duration
}

// Engine owns the RT state (decks, DSP pipelines, mixer, crossfade)
// and runs the simulated real-time callback on a ticker, matching the
// cadence-driven loop shape of the teacher's
// internal/playout.Director.Run, generalized from a 2-second
// schedule-poll tick to a sub-10ms audio-callback tick.
type Engine struct {
	sampleRate int
	logger     zerolog.Logger

	lock tryMutex

	decks     [mixer.NumChannels]*deck.Deck
	mix       *mixer.Mixer
	chPipes   [mixer.NumChannels]*dsp.Pipeline
	masterDSP *dsp.Pipeline

	crossfadeSession *crossfade.Session
	autoDetector     *crossfade.AutoDetector
	autoDetectOn     bool

	queue *CommandQueue
	bus   *events.Bus
	sink  MasterSink

	scratch    [mixer.NumChannels][]float32
	masterBuf  []float32
	lastFrames int

	pendingCompletions chan Completion
}

// Config bundles the parameters New needs to build an Engine.
type Config struct {
	SampleRate        int
	FFmpegBin         string
	CommandQueueDepth int
	Bus               *events.Bus
	Sink              MasterSink
	Logger            zerolog.Logger
}

// New builds an Engine with the fixed six-deck set from spec.md §3
// (DeckA, DeckB, SoundFx, Aux1, Aux2, VoiceFx) feeding mixer channels
// 0-5 one-to-one.
func New(cfg Config) *Engine {
	e := &Engine{
		sampleRate:         cfg.SampleRate,
		logger:             cfg.Logger,
		lock:               newTryMutex(),
		mix:                mixer.New(),
		masterDSP:          dsp.NewPipeline(float64(cfg.SampleRate), dsp.DefaultPipelineConfig()),
		crossfadeSession:   crossfade.New(),
		queue:              NewCommandQueue(cfg.CommandQueueDepth),
		bus:                cfg.Bus,
		sink:               cfg.Sink,
		pendingCompletions: make(chan Completion, 16),
	}
	for i, id := range []models.DeckID{models.DeckA, models.DeckB, models.SoundFx, models.Aux1, models.Aux2, models.VoiceFx} {
		e.decks[i] = deck.New(id, cfg.SampleRate, cfg.FFmpegBin, cfg.Logger)
	}
	for i := range e.chPipes {
		e.chPipes[i] = dsp.NewPipeline(float64(cfg.SampleRate), dsp.DefaultPipelineConfig())
	}
	return e
}

// Queue returns the engine's command queue for producers to push onto.
func (e *Engine) Queue() *CommandQueue { return e.queue }

// TakeCompletion returns the next pending track completion, if any,
// without blocking.
func (e *Engine) TakeCompletion() (Completion, bool) {
	select {
	case c := <-e.pendingCompletions:
		return c, true
	default:
		return Completion{}, false
	}
}

// EnableAutoDetect arms the AutoDetectDb auto-trigger evaluated each
// callback while the crossfade session is idle.
func (e *Engine) EnableAutoDetect(cfg crossfade.AutoDetectConfig) {
	e.autoDetector = crossfade.NewAutoDetector(cfg)
	e.autoDetectOn = true
}

// Run drives the callback loop on a ticker at period until ctx is
// cancelled, standing in for a hardware audio callback per
// SPEC_FULL.md §5.
func (e *Engine) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	frames := framesPerPeriod(e.sampleRate, period)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.step(frames)
		}
	}
}

func framesPerPeriod(sampleRate int, period time.Duration) int {
	frames := int(period.Seconds() * float64(sampleRate))
	if frames < 1 {
		frames = 1
	}
	return frames
}

// step runs exactly one callback invocation: try-lock, drain commands,
// advance crossfade, fill/process/mix decks, run the master chain,
// push to the sink. It never blocks.
func (e *Engine) step(frames int) {
	if !e.lock.TryLock() {
		return
	}
	defer e.lock.Unlock()

	e.ensureBuffers(frames)
	e.queue.Drain(e.applyCommand)

	gains := e.crossfadeSession.Gains()
	if e.crossfadeSession.State() == crossfade.Fading {
		gains = e.crossfadeSession.Advance(frames)
	}

	for i, d := range e.decks {
		if d == nil {
			continue
		}
		d.Poll()
		buf := e.scratch[i]
		underran := d.FillBuffer(buf, frames)
		if underran {
			telemetry.DeckUnderrunsTotal.WithLabelValues(d.ID().String()).Inc()
			e.bus.Publish(events.EventDeckUnderrun, events.Payload{"deck": d.ID().String()})
		}
		telemetry.DeckState.WithLabelValues(d.ID().String()).Set(float64(d.State()))

		e.applyCrossfadeGain(d.ID(), buf, gains)
		e.chPipes[i].ProcessBuffer(buf)
	}

	telemetry.CrossfadeProgress.Set(e.crossfadeSession.Progress())
	if e.crossfadeSession.State() == crossfade.Fading {
		e.bus.Publish(events.EventCrossfadeProgress, events.Payload{
			"progress": e.crossfadeSession.Progress(),
			"outgoing": e.crossfadeSession.FromDeck.String(),
			"incoming": e.crossfadeSession.ToDeck.String(),
		})
	}

	e.mix.Mix(e.scratch, e.masterBuf)
	e.masterDSP.ProcessBuffer(e.masterBuf)

	e.publishVU()

	if e.sink != nil {
		e.sink.Push(e.masterBuf)
	}

	if e.crossfadeSession.State() == crossfade.Complete {
		e.completeCrossfade()
	}

	if e.crossfadeSession.State() == crossfade.Idle && e.autoDetectOn {
		e.evaluateAutoTrigger(frames)
	}
}

func (e *Engine) applyCrossfadeGain(id models.DeckID, buf []float32, gains crossfade.Gains) {
	if e.crossfadeSession.State() == crossfade.Idle {
		return
	}
	var g float64
	switch id {
	case e.crossfadeSession.FromDeck:
		g = gains.Out
	case e.crossfadeSession.ToDeck:
		g = gains.In
	default:
		return
	}
	fg := float32(g)
	for i := range buf {
		buf[i] *= fg
	}
}

func (e *Engine) completeCrossfade() {
	from, to := e.crossfadeSession.FromDeck, e.crossfadeSession.ToDeck
	fromDeck := e.deckByID(from)
	if fromDeck != nil {
		if track := fromDeck.Track(); track != nil {
			select {
			case e.pendingCompletions <- Completion{Deck: from, Track: *track, Played: time.Duration(fromDeck.FramesPlayed()) * time.Second / time.Duration(e.sampleRate)}:
			default:
			}
		}
		fromDeck.Stop()
		fromDeck.SetCrossfading(false)
	}
	if toDeck := e.deckByID(to); toDeck != nil {
		toDeck.SetCrossfading(false)
	}
	telemetry.CrossfadesTotal.WithLabelValues(string(e.crossfadeSession.Curve())).Inc()
	e.crossfadeSession.Reset()
	e.bus.Publish(events.EventCrossfadeCompleted, events.Payload{
		"from": from.String(),
		"to":   to.String(),
	})
}

func (e *Engine) evaluateAutoTrigger(frames int) {
	period := time.Duration(frames) * time.Second / time.Duration(e.sampleRate)
	for i, d := range e.decks {
		if d == nil || d.State() != deck.Playing {
			continue
		}
		avg := (e.mix.Channels[i].VULeftDB() + e.mix.Channels[i].VURightDB()) / 2
		if e.autoDetector.Observe(avg, period) {
			e.bus.Publish(events.EventCrossfadeArmed, events.Payload{"deck": d.ID().String(), "trigger": "auto_detect_db"})
			return
		}
	}
}

func (e *Engine) publishVU() {
	for i := range e.mix.Channels {
		e.bus.Publish(events.EventMixerLevels, events.Payload{
			"channel": i,
			"l_db":    e.mix.Channels[i].VULeftDB(),
			"r_db":    e.mix.Channels[i].VURightDB(),
		})
		telemetry.MixerChannelLevelDBFS.WithLabelValues(deckLabel(i) + "_left").Set(e.mix.Channels[i].VULeftDB())
		telemetry.MixerChannelLevelDBFS.WithLabelValues(deckLabel(i) + "_right").Set(e.mix.Channels[i].VURightDB())
	}
	telemetry.MixerMasterLevelDBFS.Set((e.mix.MasterLeftDB() + e.mix.MasterRightDB()) / 2)
}

func deckLabel(channel int) string {
	return models.DeckID(channel).String()
}

func (e *Engine) ensureBuffers(frames int) {
	if frames == e.lastFrames {
		return
	}
	e.lastFrames = frames
	need := frames * stereoChannels
	for i := range e.scratch {
		e.scratch[i] = make([]float32, need)
	}
	e.masterBuf = make([]float32, need)
}

// DeckSnapshot reports a deck's current state/position/track for a
// non-RT caller, per spec.md §5's "held behind one mutex used
// exclusively with try-lock from the RT thread and with lock from
// command processors" — this blocks briefly rather than try-locking,
// since a caller asking for a snapshot wants an answer, not a skip.
type DeckSnapshot struct {
	State      string
	PositionMs int64
	DurationMs int64
	TrackID    string
}

func (e *Engine) DeckSnapshot(id models.DeckID) (DeckSnapshot, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()

	d := e.deckByID(id)
	if d == nil {
		return DeckSnapshot{}, false
	}
	snap := DeckSnapshot{
		State:      d.State().String(),
		PositionMs: int64(d.FramesPlayed()) * 1000 / int64(e.sampleRate),
	}
	if track := d.Track(); track != nil {
		snap.DurationMs = track.Duration.Milliseconds()
		snap.TrackID = track.ID
	}
	return snap, true
}

func (e *Engine) deckByID(id models.DeckID) *deck.Deck {
	idx := int(id)
	if idx < 0 || idx >= len(e.decks) {
		return nil
	}
	return e.decks[idx]
}
