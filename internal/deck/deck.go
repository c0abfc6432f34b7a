/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package deck implements the per-deck playback state machine described in
// spec.md §3/§4.1: state transitions, fractional-phase linear resampling,
// anti-click start/swap-out ramps, and loop-segment capture with a
// blended seam. FillBuffer is the RT-thread contract: it never blocks and
// always fills the requested frame count, falling back to silence on
// underrun.
package deck

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/aircore/internal/decoder"
	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/ringbuffer"
)

// State enumerates the deck lifecycle named in spec.md §3.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Crossfading
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Crossfading:
		return "crossfading"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	channels = 2

	// rampDurationMS bounds the anti-click start/swap-out ramps.
	rampDurationMS = 8

	// seamBlendMS bounds the cosine/sine blend applied at a loop wrap.
	seamBlendMS = 12
)

// Decoder abstracts the subset of *decoder.Handle the deck depends on, so
// tests can substitute a fake producer instead of shelling out to ffmpeg.
type Decoder interface {
	Read(dst []float32) int
	Done() bool
	Err() error
	Stop()
}

type decoderHandleAdapter struct{ h *decoder.Handle }

func (a decoderHandleAdapter) Read(dst []float32) int { return a.h.Ring.Read(dst) }
func (a decoderHandleAdapter) Done() bool             { return a.h.Done() }
func (a decoderHandleAdapter) Err() error             { return a.h.Err() }
func (a decoderHandleAdapter) Stop()                  { a.h.Stop() }

// Deck owns one playback voice feeding the mixer bus. It is only ever
// touched by the RT engine goroutine; decoder workers communicate with it
// solely through the lock-free ring buffer inside the Decoder interface.
type Deck struct {
	id               models.DeckID
	deviceSampleRate int
	logger           zerolog.Logger
	ffmpegBin        string

	state State
	track *models.PreparedTrack
	dec   Decoder

	playbackRate float64 // 1.0 = nominal speed

	// Fractional-phase linear resampler state.
	prevFrame [channels]float32
	curFrame  [channels]float32
	frac      float64
	primed    bool

	// Anti-click ramps: gain moves linearly from rampFrom to rampTo over
	// rampTotal output frames, rampPos of which have elapsed.
	rampFrom, rampTo float64
	rampPos, rampTotal int

	framesPlayed    uint64
	sourceFramesRead uint64
	underruns       uint64

	// Loop capture (spec.md "loop capture with cosine/sine-blended seam").
	loop       loopState
	cancelLoad context.CancelFunc

	// resumeState is the state to restore once a Seek-triggered reload
	// reaches Ready; Idle means no resume is pending. Poll consumes it.
	resumeState State
}

type loopState struct {
	enabled    bool
	startFrame uint64
	endFrame   uint64

	capturing bool
	captured  bool
	buf       [][channels]float32
	playPos   int

	seamFrames int
}

// New creates an idle deck bound to id, resampling to deviceSampleRate.
func New(id models.DeckID, deviceSampleRate int, ffmpegBin string, logger zerolog.Logger) *Deck {
	return &Deck{
		id:               id,
		deviceSampleRate: deviceSampleRate,
		ffmpegBin:        ffmpegBin,
		logger:           logger.With().Str("deck", id.String()).Logger(),
		state:            Idle,
		playbackRate:     1.0,
	}
}

// ID returns the deck's identifier.
func (d *Deck) ID() models.DeckID { return d.id }

// State returns the deck's current lifecycle state.
func (d *Deck) State() State { return d.state }

// Track returns the currently loaded track, or nil if none is loaded.
func (d *Deck) Track() *models.PreparedTrack { return d.track }

// FramesPlayed returns the number of output frames produced since Load.
func (d *Deck) FramesPlayed() uint64 { return d.framesPlayed }

// Underruns returns how many output frames this deck has filled with
// silence due to decoder starvation since Load.
func (d *Deck) Underruns() uint64 { return d.underruns }

// Load starts decoding track and transitions the deck to Loading. The
// next Poll moves the deck to Ready (or to Stopped if the decoder has
// already reported an error); it does not wait for decoded frames, and
// FillBuffer never changes the state.
func (d *Deck) Load(ctx context.Context, track models.PreparedTrack) error {
	ctx, cancel := context.WithCancel(ctx)
	handle, err := decoder.Start(ctx, d.ffmpegBin, track.Source, 0, ringbuffer.New(d.deviceSampleRate*channels*2), d.logger)
	if err != nil {
		cancel()
		return err
	}

	d.reset()
	d.track = &track
	d.dec = decoderHandleAdapter{h: handle}
	d.cancelLoad = cancel
	d.state = Loading

	d.armLoop(track)

	return nil
}

// Seek restarts the deck's decoder at position, implementing spec.md
// §6's Seek(deck, position_ms) command. A streaming ffmpeg pipe can't
// skip backward, so seeking reloads the current track with the input
// offset baked into the new subprocess rather than re-reading from the
// start. The deck re-enters Loading while the new decoder spins up;
// Poll carries it back to Playing/Paused once ready, so a caller that
// was mid-playback resumes there rather than stalling in Ready.
// Issuing the same seek twice lands on the same position either way,
// satisfying spec.md §8's round-trip law, since each call discards
// whatever the previous one had buffered and starts fresh.
func (d *Deck) Seek(ctx context.Context, position time.Duration) error {
	if d.track == nil {
		return errInvalidTransition(d.state, Ready)
	}
	track := *d.track
	resume := d.state
	if resume == Crossfading {
		resume = Playing
	}
	if position < 0 {
		position = 0
	}

	ctx, cancel := context.WithCancel(ctx)
	handle, err := decoder.Start(ctx, d.ffmpegBin, track.Source, position.Milliseconds(), ringbuffer.New(d.deviceSampleRate*channels*2), d.logger)
	if err != nil {
		cancel()
		return err
	}

	d.reset()
	d.track = &track
	d.dec = decoderHandleAdapter{h: handle}
	d.cancelLoad = cancel
	d.state = Loading

	startFrame := durationToFrames(position, d.deviceSampleRate)
	d.framesPlayed = startFrame
	d.sourceFramesRead = startFrame

	d.armLoop(track)

	if resume == Playing || resume == Paused {
		d.resumeState = resume
	}

	return nil
}

func (d *Deck) armLoop(track models.PreparedTrack) {
	if track.Markers.LoopStart > 0 || track.Markers.LoopEnd > track.Markers.LoopStart {
		d.loop.enabled = track.Markers.LoopEnd > track.Markers.LoopStart
		d.loop.startFrame = durationToFrames(track.Markers.LoopStart, d.deviceSampleRate)
		d.loop.endFrame = durationToFrames(track.Markers.LoopEnd, d.deviceSampleRate)
		d.loop.seamFrames = msToFrames(seamBlendMS, d.deviceSampleRate)
	}
}

// loadWithDecoder is the Load path used by tests to inject a fake Decoder
// instead of shelling out to ffmpeg.
func (d *Deck) loadWithDecoder(track models.PreparedTrack, dec Decoder) {
	d.reset()
	d.track = &track
	d.dec = dec
	d.state = Loading

	d.armLoop(track)
}

// seekWithDecoder is the Seek path used by tests to inject a fake
// Decoder instead of shelling out to ffmpeg.
func (d *Deck) seekWithDecoder(position time.Duration, dec Decoder) {
	resume := d.state
	if resume == Crossfading {
		resume = Playing
	}
	track := *d.track

	d.reset()
	d.track = &track
	d.dec = dec
	d.state = Loading

	startFrame := durationToFrames(position, d.deviceSampleRate)
	d.framesPlayed = startFrame
	d.sourceFramesRead = startFrame

	d.armLoop(track)

	if resume == Playing || resume == Paused {
		d.resumeState = resume
	}
}

// reset stops whatever decoder the deck currently owns (so a reload
// never leaves the previous one running, per spec.md §8's "Load(A, p1)
// then Load(A, p2) ends with ... p1's decoder stopped") and clears all
// per-track state back to Idle.
func (d *Deck) reset() {
	if d.dec != nil {
		d.dec.Stop()
	}
	if d.cancelLoad != nil {
		d.cancelLoad()
	}
	d.state = Idle
	d.track = nil
	d.dec = nil
	d.cancelLoad = nil
	d.prevFrame = [channels]float32{}
	d.curFrame = [channels]float32{}
	d.frac = 0
	d.primed = false
	d.rampPos, d.rampTotal = 0, 0
	d.framesPlayed = 0
	d.sourceFramesRead = 0
	d.underruns = 0
	d.loop = loopState{}
	d.playbackRate = 1.0
	d.resumeState = Idle
}

// Play transitions a Ready or Paused deck to Playing and arms the
// anti-click start ramp.
func (d *Deck) Play() error {
	switch d.state {
	case Ready, Paused:
		d.armRamp(0, 1)
		d.state = Playing
		return nil
	default:
		return errInvalidTransition(d.state, Playing)
	}
}

// Pause transitions a Playing deck to Paused, ramping the gain to zero
// first so the next FillBuffer call ends cleanly rather than clicking.
func (d *Deck) Pause() error {
	if d.state != Playing && d.state != Crossfading {
		return errInvalidTransition(d.state, Paused)
	}
	d.armRamp(1, 0)
	d.state = Paused
	return nil
}

// Stop releases the decoder and transitions the deck to Stopped.
func (d *Deck) Stop() {
	if d.dec != nil {
		d.dec.Stop()
	}
	if d.cancelLoad != nil {
		d.cancelLoad()
	}
	d.state = Stopped
}

// SetCrossfading marks the deck as participating in an active crossfade.
// The deck keeps producing audio normally; internal/crossfade applies the
// curve gain on top of what FillBuffer returns.
func (d *Deck) SetCrossfading(active bool) {
	if active && d.state == Playing {
		d.state = Crossfading
	} else if !active && d.state == Crossfading {
		d.state = Playing
	}
}

// SetPlaybackRate adjusts the resampler's phase increment, letting the
// deck run faster or slower than the captured sample rate (varispeed).
func (d *Deck) SetPlaybackRate(rate float64) {
	if rate <= 0 {
		rate = 1.0
	}
	d.playbackRate = rate
}

// Poll advances lifecycle bookkeeping that doesn't depend on producing
// audio: a Loading deck goes to Stopped if the decoder has reported an
// error and to Ready otherwise, without waiting for buffered data. Poll
// does nothing for decks in any other state, so a deck whose decoder has
// finished keeps its state (FillBuffer then reports underruns).
// A Loading deck with a resumeState pending (set by Seek) goes straight
// back to Playing or Paused instead of stopping at Ready, so a seek
// issued mid-playback resumes there rather than stalling.
func (d *Deck) Poll() {
	if d.state != Loading || d.dec == nil {
		return
	}
	if d.dec.Err() != nil {
		d.state = Stopped
		d.resumeState = Idle
		return
	}
	d.state = Ready
	switch d.resumeState {
	case Playing:
		_ = d.Play()
	case Paused:
		d.state = Paused
	}
	d.resumeState = Idle
}

// FillBuffer writes exactly frames stereo frames (2*frames float32
// samples) into out, resampling, ramping, and loop-blending as needed. It
// never blocks. Returns true if any sample in the output was silence due
// to decoder starvation.
func (d *Deck) FillBuffer(out []float32, frames int) (underran bool) {
	need := frames * channels
	if len(out) < need {
		panic("deck: FillBuffer output slice too small")
	}

	if d.state != Playing && d.state != Crossfading && d.state != Paused {
		for i := range out[:need] {
			out[i] = 0
		}
		return false
	}

	for f := 0; f < frames; f++ {
		frame, ok := d.nextFrame()
		if !ok {
			out[f*channels] = 0
			out[f*channels+1] = 0
			d.underruns++
			underran = true
			continue
		}

		gain := d.currentRampGain()
		out[f*channels] = frame[0] * float32(gain)
		out[f*channels+1] = frame[1] * float32(gain)
		d.framesPlayed++
	}

	return underran
}

func (d *Deck) armRamp(from, to float64) {
	d.rampFrom, d.rampTo = from, to
	d.rampPos = 0
	d.rampTotal = msToFrames(rampDurationMS, d.deviceSampleRate)
	if d.rampTotal <= 0 {
		d.rampTotal = 1
	}
}

func (d *Deck) currentRampGain() float64 {
	if d.rampTotal == 0 || d.rampPos >= d.rampTotal {
		return d.rampTo
	}
	t := float64(d.rampPos) / float64(d.rampTotal)
	d.rampPos++
	return d.rampFrom + (d.rampTo-d.rampFrom)*t
}

// nextFrame produces one output stereo frame via linear-interpolation
// resampling, transparently capturing and replaying a loop segment when
// one is armed.
func (d *Deck) nextFrame() ([channels]float32, bool) {
	for d.frac >= 1.0 {
		src, ok := d.advanceSource()
		if !ok {
			return [channels]float32{}, false
		}
		d.prevFrame = d.curFrame
		d.curFrame = src
		d.frac -= 1.0
	}

	if !d.primed {
		src, ok := d.advanceSource()
		if !ok {
			return [channels]float32{}, false
		}
		d.prevFrame = src
		d.curFrame = src
		d.primed = true
	}

	t := d.frac
	out := [channels]float32{
		lerp(d.prevFrame[0], d.curFrame[0], t),
		lerp(d.prevFrame[1], d.curFrame[1], t),
	}
	d.frac += d.playbackRate
	return out, true
}

// advanceSource pulls the next raw source frame, either from the live
// decoder ring or from a captured loop buffer, handling capture and seam
// blending as the track crosses its loop markers.
func (d *Deck) advanceSource() ([channels]float32, bool) {
	if d.loop.enabled && d.loop.captured {
		return d.readLoopBuf(), true
	}

	var raw [channels]float32
	buf := raw[:]
	n := d.dec.Read(buf)
	if n < channels {
		return [channels]float32{}, false
	}

	pos := d.sourceFramesRead
	d.sourceFramesRead++
	if d.loop.enabled {
		if pos >= d.loop.startFrame && pos < d.loop.endFrame {
			d.loop.capturing = true
			d.loop.buf = append(d.loop.buf, raw)
		}
		if d.loop.capturing && pos+1 >= d.loop.endFrame {
			d.loop.capturing = false
			d.loop.captured = len(d.loop.buf) > 0
			d.loop.playPos = 0
		}
	}

	return raw, true
}

// readLoopBuf replays the captured loop segment, blending the wrap seam
// with a raised-cosine fade-out on the outgoing tail and a sine fade-in on
// the incoming head, so the discontinuity at the splice is inaudible.
func (d *Deck) readLoopBuf() [channels]float32 {
	n := len(d.loop.buf)
	if n == 0 {
		return [channels]float32{}
	}

	pos := d.loop.playPos
	frame := d.loop.buf[pos]

	seam := d.loop.seamFrames
	if seam > n/2 {
		seam = n / 2
	}
	if seam > 0 && pos < seam {
		// Blend the head of the buffer with its own tail, so the loop
		// point itself never presents a raw discontinuity.
		tailIdx := n - seam + pos
		tail := d.loop.buf[tailIdx]
		theta := (math.Pi / 2) * (float64(pos) / float64(seam))
		fadeOut := math.Cos(theta)
		fadeIn := math.Sin(theta)
		frame[0] = frame[0]*float32(fadeIn) + tail[0]*float32(fadeOut)
		frame[1] = frame[1]*float32(fadeIn) + tail[1]*float32(fadeOut)
	}

	d.loop.playPos++
	if d.loop.playPos >= n {
		d.loop.playPos = 0
	}
	return frame
}

func lerp(a, b float32, t float64) float32 {
	return a + float32(t)*(b-a)
}

func msToFrames(ms int, sampleRate int) int {
	return sampleRate * ms / 1000
}

func durationToFrames(d time.Duration, sampleRate int) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Seconds() * float64(sampleRate))
}

func errInvalidTransition(from, to State) error {
	return &transitionError{from: from, to: to}
}

type transitionError struct {
	from, to State
}

func (e *transitionError) Error() string {
	return "deck: invalid transition from " + e.from.String() + " to " + e.to.String()
}
