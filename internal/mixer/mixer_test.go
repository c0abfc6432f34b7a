package mixer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMixSumsUnmutedChannelsWithFader(t *testing.T) {
	m := New()
	m.Channels[0].Fader = 0.5
	m.Channels[1].Fader = 1.0

	var inputs [NumChannels][]float32
	inputs[0] = []float32{1, 1}
	inputs[1] = []float32{0.25, 0.25}

	out := make([]float32, 2)
	m.Mix(inputs, out)

	require.InDelta(t, 0.75, out[0], 1e-6)
	require.InDelta(t, 0.75, out[1], 1e-6)
}

func TestMutedChannelContributesNothingAndFloorsVU(t *testing.T) {
	m := New()
	m.Channels[0].Muted = true

	var inputs [NumChannels][]float32
	inputs[0] = []float32{1, 1}

	out := make([]float32, 2)
	m.Mix(inputs, out)

	require.Equal(t, float32(0), out[0])
	require.Equal(t, FloorDBFS, m.Channels[0].VULeftDB())
	require.Equal(t, FloorDBFS, m.Channels[0].VURightDB())
}

func TestNilChannelTreatedAsSilence(t *testing.T) {
	m := New()
	var inputs [NumChannels][]float32
	out := make([]float32, 4)
	m.Mix(inputs, out)

	for _, s := range out {
		require.Equal(t, float32(0), s)
	}
	require.Equal(t, FloorDBFS, m.MasterLeftDB())
}

func TestMasterGainAppliesAfterSum(t *testing.T) {
	m := New()
	m.MasterGain = 0.5
	var inputs [NumChannels][]float32
	inputs[0] = []float32{1, -1}

	out := make([]float32, 2)
	m.Mix(inputs, out)

	require.InDelta(t, 0.5, out[0], 1e-6)
	require.InDelta(t, -0.5, out[1], 1e-6)
}

func TestVUReflectsFullScalePeak(t *testing.T) {
	m := New()
	var inputs [NumChannels][]float32
	inputs[0] = []float32{1, 1}

	out := make([]float32, 2)
	m.Mix(inputs, out)

	require.InDelta(t, 0.0, m.Channels[0].VULeftDB(), 1e-6)
	require.InDelta(t, 0.0, m.MasterLeftDB(), 1e-6)
}
