package crossfade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/models"
)

func TestArmStartsFading(t *testing.T) {
	s := New()
	s.Arm(models.DeckA, models.DeckB, CurveLinear, models.TriggerManual, time.Second, 48000)
	require.Equal(t, Fading, s.State())
	require.Equal(t, Gains{Out: 1, In: 0}, s.Gains())
}

func TestAdvanceCompletesAtDuration(t *testing.T) {
	s := New()
	s.Arm(models.DeckA, models.DeckB, CurveLinear, models.TriggerManual, 100*time.Millisecond, 1000)
	// totalFrames = 100

	g := s.Advance(50)
	require.Equal(t, Fading, s.State())
	require.InDelta(t, 0.5, g.In, 1e-9)

	g = s.Advance(60)
	require.Equal(t, Complete, s.State())
	require.InDelta(t, 1.0, g.In, 1e-9)

	// Further advances once complete are no-ops.
	g = s.Advance(10)
	require.Equal(t, Complete, s.State())
	require.InDelta(t, 1.0, g.In, 1e-9)
}

func TestAbortReturnsToIdle(t *testing.T) {
	s := New()
	s.Arm(models.DeckA, models.DeckB, CurveLinear, models.TriggerManual, time.Second, 48000)
	s.Advance(1000)
	s.Abort()
	require.Equal(t, Idle, s.State())
	require.Equal(t, Gains{Out: 1, In: 0}, s.Gains())
}

func TestResetAllowsReuse(t *testing.T) {
	s := New()
	s.Arm(models.DeckA, models.DeckB, CurveLinear, models.TriggerManual, 10*time.Millisecond, 1000)
	s.Advance(100)
	require.Equal(t, Complete, s.State())

	s.Reset()
	require.Equal(t, Idle, s.State())

	s.Arm(models.DeckB, models.DeckA, CurveConstantPower, models.TriggerAutoDetectDb, 10*time.Millisecond, 1000)
	require.Equal(t, Fading, s.State())
}

func TestAutoDetectorFiresOnceAfterHold(t *testing.T) {
	d := NewAutoDetector(AutoDetectConfig{ThresholdDBFS: -30, HoldDuration: 200 * time.Millisecond})

	require.False(t, d.Observe(-10, 50*time.Millisecond))
	require.False(t, d.Observe(-35, 50*time.Millisecond))
	require.False(t, d.Observe(-35, 50*time.Millisecond))
	require.False(t, d.Observe(-35, 50*time.Millisecond))
	require.True(t, d.Observe(-35, 50*time.Millisecond))
	// Already armed; stays quiet until Reset.
	require.False(t, d.Observe(-35, 50*time.Millisecond))

	d.Reset()
	require.False(t, d.Observe(-35, 50*time.Millisecond))
}

func TestAutoDetectorResetsAccumulatorAboveThreshold(t *testing.T) {
	d := NewAutoDetector(AutoDetectConfig{ThresholdDBFS: -30, HoldDuration: 150 * time.Millisecond})
	require.False(t, d.Observe(-35, 100*time.Millisecond))
	require.False(t, d.Observe(-10, 100*time.Millisecond)) // resets accumulator
	require.False(t, d.Observe(-35, 100*time.Millisecond))
	require.True(t, d.Observe(-35, 100*time.Millisecond))
}
