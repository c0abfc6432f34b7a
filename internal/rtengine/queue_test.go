package rtengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueDrainsInFIFOOrder(t *testing.T) {
	q := NewCommandQueue(4)
	require.NoError(t, q.Push(Command{Kind: CmdPlay, Gain: 1}))
	require.NoError(t, q.Push(Command{Kind: CmdPlay, Gain: 2}))
	require.NoError(t, q.Push(Command{Kind: CmdPlay, Gain: 3}))

	var order []float64
	q.Drain(func(c Command) { order = append(order, c.Gain) })

	require.Equal(t, []float64{1, 2, 3}, order)
	require.Equal(t, 0, q.Len())
}

func TestQueueFullReturnsError(t *testing.T) {
	q := NewCommandQueue(1)
	require.NoError(t, q.Push(Command{Kind: CmdPlay}))
	require.ErrorIs(t, q.Push(Command{Kind: CmdPlay}), ErrQueueFull)
}

func TestDrainIsNonBlockingOnEmptyQueue(t *testing.T) {
	q := NewCommandQueue(2)
	called := false
	q.Drain(func(c Command) { called = true })
	require.False(t, called)
}
