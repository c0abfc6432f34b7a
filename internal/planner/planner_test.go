package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/models"
)

// TestPlanFullIntroOutro reproduces spec.md §8 scenario 6 exactly.
func TestPlanFullIntroOutro(t *testing.T) {
	req := Request{
		Outgoing: TrackSnapshot{
			DurationMs: 100_000,
			Markers: models.Markers{
				OutroIn:  70_000 * time.Millisecond,
				OutroEnd: 90_000 * time.Millisecond,
			},
		},
		Incoming: TrackSnapshot{
			DurationMs: 90_000,
			Markers: models.Markers{
				IntroStart: 0,
				IntroEnd:   20_000 * time.Millisecond,
			},
		},
		Mode:              models.PlanFullIntroOutro,
		TransitionTimeSec: 10,
	}

	plan := Plan(models.DeckA, models.DeckB, req)

	require.Equal(t, int64(90_000), plan.FromFadeEndMs)
	require.Equal(t, int64(80_000), plan.FromFadeBeginMs)
	require.Equal(t, int64(0), plan.ToStartMs)
	require.Equal(t, int64(0), plan.GapMs)
}

func TestPlanFadeAtOutroStartBeginsAtOutroStart(t *testing.T) {
	req := Request{
		Outgoing: TrackSnapshot{
			DurationMs: 100_000,
			Markers: models.Markers{
				OutroIn:  70_000 * time.Millisecond,
				OutroEnd: 90_000 * time.Millisecond,
			},
		},
		Incoming: TrackSnapshot{
			DurationMs: 90_000,
			Markers: models.Markers{
				IntroEnd: 20_000 * time.Millisecond,
			},
		},
		Mode:              models.PlanFadeAtOutroStart,
		TransitionTimeSec: 10,
	}

	plan := Plan(models.DeckA, models.DeckB, req)

	require.Equal(t, int64(70_000), plan.FromFadeBeginMs)
	require.Equal(t, int64(80_000), plan.FromFadeEndMs)
}

func TestPlanFixedFullTrackUsesWholeDuration(t *testing.T) {
	req := Request{
		Outgoing:          TrackSnapshot{DurationMs: 60_000},
		Incoming:          TrackSnapshot{DurationMs: 60_000},
		Mode:              models.PlanFixedFullTrack,
		TransitionTimeSec: 5,
	}

	plan := Plan(models.DeckA, models.DeckB, req)

	require.Equal(t, int64(0), plan.ToStartMs)
	require.Equal(t, int64(60_000), plan.FromFadeEndMs)
	require.Equal(t, int64(55_000), plan.FromFadeBeginMs)
	require.Equal(t, int64(0), plan.GapMs)
}

func TestPlanNegativeTransitionTimeRequestsGapInsteadOfFade(t *testing.T) {
	req := Request{
		Outgoing:          TrackSnapshot{DurationMs: 60_000},
		Incoming:          TrackSnapshot{DurationMs: 60_000},
		Mode:              models.PlanFixedFullTrack,
		TransitionTimeSec: -3,
	}

	plan := Plan(models.DeckA, models.DeckB, req)

	require.Equal(t, int64(3_000), plan.GapMs)
	require.Equal(t, plan.FromFadeEndMs, plan.FromFadeBeginMs)
}

func TestPlanSkipSilenceUsesFirstAndLastSound(t *testing.T) {
	req := Request{
		Outgoing: TrackSnapshot{
			DurationMs: 60_000,
			Markers:    models.Markers{LastSound: 58_000 * time.Millisecond},
		},
		Incoming: TrackSnapshot{
			DurationMs: 60_000,
			Markers:    models.Markers{FirstSound: 500 * time.Millisecond},
		},
		Mode:              models.PlanFixedSkipSilence,
		TransitionTimeSec: 2,
	}

	plan := Plan(models.DeckA, models.DeckB, req)

	require.Equal(t, int64(500), plan.ToStartMs)
	require.Equal(t, int64(58_000), plan.FromFadeEndMs)
	require.Equal(t, int64(56_000), plan.FromFadeBeginMs)
}

func TestPlanCapsFadeLengthByOutgoingRemainingTime(t *testing.T) {
	req := Request{
		Outgoing: TrackSnapshot{
			PositionMs: 95_000,
			DurationMs: 100_000,
			Markers: models.Markers{
				OutroIn:  70_000 * time.Millisecond,
				OutroEnd: 100_000 * time.Millisecond,
			},
		},
		Incoming: TrackSnapshot{
			DurationMs: 90_000,
			Markers:    models.Markers{IntroEnd: 30_000 * time.Millisecond},
		},
		Mode:              models.PlanFullIntroOutro,
		TransitionTimeSec: 30,
	}

	plan := Plan(models.DeckA, models.DeckB, req)

	// Only 5000 ms remain in the outgoing track; the fade cannot exceed it.
	require.Equal(t, int64(5_000), plan.FromFadeEndMs-plan.FromFadeBeginMs)
}

func TestPlanForcesRecueWhenIncomingNearItsFadePoint(t *testing.T) {
	req := Request{
		Outgoing: TrackSnapshot{
			DurationMs: 100_000,
			Markers: models.Markers{
				OutroIn:  70_000 * time.Millisecond,
				OutroEnd: 90_000 * time.Millisecond,
			},
		},
		Incoming: TrackSnapshot{
			PositionMs: 19_500,
			DurationMs: 90_000,
			Markers:    models.Markers{IntroEnd: 20_000 * time.Millisecond},
		},
		Mode:              models.PlanFullIntroOutro,
		TransitionTimeSec: 10,
		RecueWindowMs:     1_000,
	}

	plan := Plan(models.DeckA, models.DeckB, req)
	require.True(t, plan.Recued)
}

// TestQuantiseBeatGrid reproduces spec.md §8 scenario 3 exactly.
func TestQuantiseBeatGrid(t *testing.T) {
	beats := []int64{0, 1000, 2000, 3000}

	require.Equal(t, int64(500), Quantise(740, models.QuantiseBeatHalf, beats))
	require.Equal(t, int64(500), Quantise(380, models.QuantiseBeatQuarter, beats))
}

func TestQuantiseIsIdempotent(t *testing.T) {
	beats := []int64{0, 1000, 2000, 3000}

	for _, mode := range []models.QuantiseTarget{models.QuantiseBeat, models.QuantiseBeatHalf, models.QuantiseBeatQuarter, models.QuantiseBar} {
		once := Quantise(740, mode, beats)
		twice := Quantise(once, mode, beats)
		require.Equal(t, once, twice, "mode %s", mode)
	}
}

func TestQuantiseNoneIsANoOp(t *testing.T) {
	require.Equal(t, int64(740), Quantise(740, models.QuantiseNone, []int64{0, 1000, 2000, 3000}))
}

func TestPlanShortTrackForcesFixedFullTrack(t *testing.T) {
	req := Request{
		Outgoing:           TrackSnapshot{DurationMs: 60_000},
		Incoming:           TrackSnapshot{DurationMs: 4_000},
		Mode:               models.PlanFullIntroOutro,
		TransitionTimeSec:  10,
		MinTrackDurationMs: 10_000,
	}

	plan := Plan(models.DeckA, models.DeckB, req)
	require.Equal(t, models.PlanFixedFullTrack, plan.Mode)
}
