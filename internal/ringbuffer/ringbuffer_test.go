package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	r := New(8)
	n := r.Write([]float32{1, 2, 3, 4})
	require.Equal(t, 4, n)
	require.Equal(t, 4, r.OccupiedLen())
	require.Equal(t, 4, r.VacantLen())

	dst := make([]float32, 4)
	got := r.Read(dst)
	require.Equal(t, 4, got)
	require.Equal(t, []float32{1, 2, 3, 4}, dst)
	require.Equal(t, 0, r.OccupiedLen())
}

func TestWriteWrapsAroundCapacity(t *testing.T) {
	r := New(4)
	require.Equal(t, 4, r.Write([]float32{1, 2, 3, 4}))

	dst := make([]float32, 2)
	require.Equal(t, 2, r.Read(dst))
	require.Equal(t, []float32{1, 2}, dst)

	// Two slots freed up; this write wraps past the end of buf.
	require.Equal(t, 2, r.Write([]float32{5, 6}))

	rest := make([]float32, 4)
	require.Equal(t, 4, r.Read(rest))
	require.Equal(t, []float32{3, 4, 5, 6}, rest)
}

func TestWriteDropsTailWhenFull(t *testing.T) {
	r := New(4)
	require.Equal(t, 4, r.Write([]float32{1, 2, 3, 4}))
	// No room left; producer drops the overflow instead of blocking.
	n := r.Write([]float32{5, 6})
	require.Equal(t, 0, n)
	require.Equal(t, 4, r.OccupiedLen())
}

func TestReadUnderrunLeavesRemainderUntouched(t *testing.T) {
	r := New(4)
	require.Equal(t, 2, r.Write([]float32{1, 2}))

	dst := []float32{-1, -1, -1, -1}
	got := r.Read(dst)
	require.Equal(t, 2, got)
	require.Equal(t, []float32{1, 2, -1, -1}, dst)
}

func TestReset(t *testing.T) {
	r := New(4)
	r.Write([]float32{1, 2, 3})
	r.Reset()
	require.Equal(t, 0, r.OccupiedLen())
	require.Equal(t, 4, r.VacantLen())
}
