package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBandGainZeroBelowKnee(t *testing.T) {
	b := newBand(44100, BandConfig{ThresholdDB: -18, Ratio: 4, KneeDB: 6})
	require.Equal(t, 0.0, b.gainDB(-40))
}

func TestBandGainReducesAboveThreshold(t *testing.T) {
	b := newBand(44100, BandConfig{ThresholdDB: -18, Ratio: 4, KneeDB: 0})
	g := b.gainDB(-2)
	// excess = 16, compressed = -18 + 16/4 = -14, gain = -14 - (-2) = -12
	require.InDelta(t, -12.0, g, 1e-6)
}

func TestMultibandDisabledIsPassthrough(t *testing.T) {
	cfg := DefaultMultibandConfig()
	cfg.Enabled = false
	m := NewMultiband(44100, cfg)
	buf := []float32{0.3, -0.3, 0.1, -0.1}
	want := append([]float32{}, buf...)
	m.ProcessBuffer(buf)
	require.Equal(t, want, buf)
}

func TestMultibandEnabledStaysBounded(t *testing.T) {
	cfg := DefaultMultibandConfig()
	cfg.Enabled = true
	m := NewMultiband(44100, cfg)

	buf := make([]float32, 2048)
	for i := range buf {
		buf[i] = 0.9
	}
	m.ProcessBuffer(buf)
	for _, s := range buf {
		require.False(t, s != s, "NaN produced")
		require.Less(t, s, float32(10))
		require.Greater(t, s, float32(-10))
	}
}

func TestDualBandDisabledIsPassthrough(t *testing.T) {
	cfg := DefaultDualBandConfig()
	cfg.Enabled = false
	d := NewDualBand(44100, cfg)
	buf := []float32{0.4, -0.4}
	want := append([]float32{}, buf...)
	d.ProcessBuffer(buf)
	require.Equal(t, want, buf)
}
