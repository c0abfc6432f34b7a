package decoder

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/ringbuffer"
)

func TestDecodeLERoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, -0.5}
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	out := make([]float32, len(values))
	decodeLE(raw, out)
	require.Equal(t, values, out)
}

func TestWriteWithBackoffDrainsIntoRing(t *testing.T) {
	h := &Handle{
		Ring:     ringbuffer.New(16),
		Channels: 2,
	}

	h.writeWithBackoff([]float32{1, 2, 3, 4})
	require.Equal(t, uint64(2), h.FramesWritten())
	require.Equal(t, 4, h.Ring.OccupiedLen())
}

func TestWriteWithBackoffStopsOnSignal(t *testing.T) {
	h := &Handle{
		Ring:     ringbuffer.New(2),
		Channels: 2,
	}
	h.stopped.Store(true)

	// Ring has no room and the worker is stopped, so this must return
	// promptly without retrying forever.
	h.writeWithBackoff([]float32{1, 2, 3, 4, 5, 6})
	require.Equal(t, uint64(0), h.FramesWritten())
}

func TestHandleErrStartsNil(t *testing.T) {
	h := &Handle{}
	require.NoError(t, h.Err())
}
