package rtengine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
)

type fakeSink struct {
	pushed [][]float32
}

func (f *fakeSink) Push(frames []float32) {
	cp := append([]float32(nil), frames...)
	f.pushed = append(f.pushed, cp)
}

func newTestEngine(sink MasterSink) *Engine {
	return New(Config{
		SampleRate:        1000,
		FFmpegBin:         "ffmpeg",
		CommandQueueDepth: 8,
		Bus:               events.NewBus(),
		Sink:              sink,
		Logger:            zerolog.Nop(),
	})
}

func TestStepWithNoLoadedDecksProducesSilence(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	e.step(10)

	require.Len(t, sink.pushed, 1)
	for _, s := range sink.pushed[0] {
		require.Equal(t, float32(0), s)
	}
}

func TestStepDrainsQueuedCommands(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	require.NoError(t, e.Queue().Push(Command{Kind: CmdSetMasterLevel, Level: 0.5}))
	e.step(10)

	require.InDelta(t, 0.5, e.mix.MasterGain, 1e-9)
}

func TestStepIsNoOpWhileLockHeld(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)
	e.lock.Lock()

	e.step(10)
	require.Empty(t, sink.pushed)

	e.lock.Unlock()
}

func TestTakeCompletionEmptyReturnsFalse(t *testing.T) {
	e := newTestEngine(&fakeSink{})
	_, ok := e.TakeCompletion()
	require.False(t, ok)
}

func TestSetChannelGainClampsToUnitRange(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	require.NoError(t, e.Queue().Push(Command{Kind: CmdSetChannelGain, Deck: 0, Gain: 5}))
	e.step(10)

	require.Equal(t, 1.0, e.mix.Channels[0].Fader)
}

func TestSetDeckBassWritesLowShelfGain(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	require.NoError(t, e.Queue().Push(Command{Kind: CmdSetDeckBass, Deck: 0, DB: -6}))
	e.step(10)

	require.InDelta(t, -6, e.chPipes[0].Config().EQ.LowGainDB, 1e-9)
}

func TestSetDeckFilterPositiveCutsBass(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	require.NoError(t, e.Queue().Push(Command{Kind: CmdSetDeckFilter, Deck: 0, Amount: 0.5}))
	e.step(10)

	cfg := e.chPipes[0].Config()
	require.InDelta(t, -12, cfg.EQ.LowGainDB, 1e-9)
	require.Equal(t, 0.0, cfg.EQ.HighGainDB)
}

func TestSetManualCrossfadeDoesNotAdvanceOnStep(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	require.NoError(t, e.Queue().Push(Command{Kind: CmdSetManualCrossfade, Deck: 0, CrossfadeTo: 1, Amount: 0}))
	e.step(10)
	before := e.crossfadeSession.Progress()
	e.step(10)

	require.InDelta(t, before, e.crossfadeSession.Progress(), 1e-9)
	require.InDelta(t, 0.5, before, 1e-9)
}

func TestTriggerManualFadeArmsSession(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	require.NoError(t, e.Queue().Push(Command{
		Kind: CmdTriggerManualFade, Deck: 0, CrossfadeTo: 1,
		CrossfadeLength: 100 * time.Millisecond,
	}))
	e.step(10)

	require.Equal(t, crossfadeFadingState(e), true)
}

func crossfadeFadingState(e *Engine) bool {
	return e.crossfadeSession.State().String() == "fading"
}

func TestSeekOnUnloadedDeckReportsError(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	result := make(chan error, 1)
	require.NoError(t, e.Queue().Push(Command{Kind: CmdSeek, Deck: models.DeckA, Result: result}))
	e.step(10)

	require.Error(t, <-result)
}

func TestStartCrossfadeRejectsNonAutoplayableDeck(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	result := make(chan error, 1)
	require.NoError(t, e.Queue().Push(Command{
		Kind: CmdStartCrossfade, Deck: models.DeckA, CrossfadeTo: models.SoundFx,
		Result: result,
	}))
	e.step(10)

	require.ErrorIs(t, <-result, errDeckNotCrossfadeable)
	require.Equal(t, crossfadeFadingState(e), false)
}

func TestTriggerManualFadeRejectsNonAutoplayableDeck(t *testing.T) {
	sink := &fakeSink{}
	e := newTestEngine(sink)

	result := make(chan error, 1)
	require.NoError(t, e.Queue().Push(Command{
		Kind: CmdTriggerManualFade, Deck: models.VoiceFx, CrossfadeTo: models.DeckB,
		Result: result,
	}))
	e.step(10)

	require.ErrorIs(t, <-result, errDeckNotCrossfadeable)
}
