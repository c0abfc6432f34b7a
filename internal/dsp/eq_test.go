package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatEQIsNearUnity(t *testing.T) {
	eq := NewEQ(44100, DefaultEQConfig())
	buf := []float32{0.5, -0.5, 0.25, -0.25}
	eq.ProcessBuffer(buf)
	require.InDelta(t, 0.5, buf[0], 1e-3)
	require.InDelta(t, -0.5, buf[1], 1e-3)
}

func TestEQBoostIncreasesLevel(t *testing.T) {
	cfg := DefaultEQConfig()
	cfg.LowGainDB = 6
	eq := NewEQ(44100, cfg)

	buf := make([]float32, 4000)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = 0.1
		}
	}
	eq.ProcessBuffer(buf)
	require.Greater(t, buf[len(buf)-2], float32(0.1))
}
