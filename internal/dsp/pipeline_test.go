package dsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineProcessesWithoutPanicOrNaN(t *testing.T) {
	p := NewPipeline(48000, DefaultPipelineConfig())
	cfg := p.Config()
	cfg.Multiband.Enabled = true
	cfg.DualBand.Enabled = true
	p.SetConfig(cfg)

	buf := make([]float32, 4096)
	for i := range buf {
		buf[i] = 0.8
	}
	p.ProcessBuffer(buf)

	for _, s := range buf {
		require.False(t, s != s)
		require.LessOrEqual(t, s, float32(1.01))
		require.GreaterOrEqual(t, s, float32(-1.01))
	}
}

func TestPipelineConfigRoundTrips(t *testing.T) {
	p := NewPipeline(44100, DefaultPipelineConfig())
	cfg := p.Config()
	cfg.ClipDB = -1.0
	p.SetConfig(cfg)
	require.Equal(t, -1.0, p.Config().ClipDB)
}
