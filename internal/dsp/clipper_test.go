package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClipperClampsAtCeiling(t *testing.T) {
	c := NewClipper(0) // 0 dBFS ceiling = 1.0 linear
	buf := []float32{1.5, -1.5, 0.5, -0.5}
	c.ProcessBuffer(buf)
	require.InDelta(t, 1.0, buf[0], 1e-6)
	require.InDelta(t, -1.0, buf[1], 1e-6)
	require.InDelta(t, 0.5, buf[2], 1e-6)
	require.InDelta(t, -0.5, buf[3], 1e-6)
}
