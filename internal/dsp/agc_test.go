package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDbLinearRoundTrip(t *testing.T) {
	require.InDelta(t, -18.0, linearToDB(dbToLinear(-18)), 1e-4)
}

func TestAGCGateHoldsOnSilence(t *testing.T) {
	cfg := DefaultAGCConfig()
	cfg.GateDB = -20
	agc := NewAGC(44100, cfg)
	initialGain := agc.currentGain

	buf := make([]float32, 2000)
	agc.ProcessBuffer(buf)

	require.InDelta(t, initialGain, agc.currentGain, 1e-4)
}

func TestAGCAmplifiesQuietSignalTowardTarget(t *testing.T) {
	cfg := DefaultAGCConfig()
	cfg.GateDB = -40
	cfg.TargetDB = -10
	cfg.AttackMS = 5
	cfg.ReleaseMS = 5
	agc := NewAGC(44100, cfg)

	// Feed a steady quiet tone-like level long enough to settle.
	buf := make([]float32, 44100)
	for i := 0; i < len(buf); i += 2 {
		buf[i] = 0.05
		buf[i+1] = 0.05
	}
	agc.ProcessBuffer(buf)

	require.Greater(t, agc.GainDB(), 0.0)
}
