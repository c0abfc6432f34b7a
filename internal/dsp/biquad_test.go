package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnityShelfIsPassthrough(t *testing.T) {
	c := DesignBiquad(LowShelf, 44100, 100, 0.7071067811865476, 0)
	b := NewBiquad(c)
	out := b.Process(0.5)
	require.InDelta(t, 0.5, out, 1e-3)
}

func TestLowShelfBoostsDC(t *testing.T) {
	c := DesignBiquad(LowShelf, 44100, 100, 0.7071067811865476, 6)
	b := NewBiquad(c)
	var out float64
	for i := 0; i < 2000; i++ {
		out = b.Process(0.5)
	}
	require.Greater(t, out, 0.5)
}

func TestClampFreqBounds(t *testing.T) {
	require.Equal(t, 20.0, ClampFreq(1, 44100))
	require.InDelta(t, 22049, ClampFreq(30000, 44100), 1)
	require.InDelta(t, 1000, ClampFreq(1000, 44100), 1e-9)
}
