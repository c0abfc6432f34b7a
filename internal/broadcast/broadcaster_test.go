package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/events"
)

func TestAddSlotIncreasesListenerCount(t *testing.T) {
	b := New(1000, events.NewBus())
	require.Equal(t, 0, b.ListenerCount())

	b.AddSlot("icecast-main")
	require.Equal(t, 1, b.ListenerCount())
}

func TestRemoveSlotDecreasesListenerCount(t *testing.T) {
	b := New(1000, events.NewBus())
	b.AddSlot("icecast-main")
	b.RemoveSlot("icecast-main")

	require.Equal(t, 0, b.ListenerCount())
}

func TestPushDeliversToAllSlots(t *testing.T) {
	b := New(1000, events.NewBus())
	a := b.AddSlot("a")
	c := b.AddSlot("b")

	frame := []float32{0.1, -0.1, 0.2, -0.2}
	b.Push(frame)

	dstA := make([]float32, len(frame))
	require.Equal(t, len(frame), a.Read(dstA))
	require.Equal(t, frame, dstA)

	dstB := make([]float32, len(frame))
	require.Equal(t, len(frame), c.Read(dstB))
	require.Equal(t, frame, dstB)
}

func TestPushDropsExcessOnFullSlotWithoutBlocking(t *testing.T) {
	b := New(1, events.NewBus()) // capacity = 1*2*5 = 10 samples
	slot := b.AddSlot("slow")

	big := make([]float32, 100)
	for i := range big {
		big[i] = float32(i)
	}

	b.Push(big) // should not block despite overflowing the ring

	dst := make([]float32, 100)
	n := slot.Read(dst)
	require.Equal(t, 10, n)
}

func TestPushWithNoSlotsIsNoOp(t *testing.T) {
	b := New(1000, events.NewBus())
	require.NotPanics(t, func() { b.Push([]float32{0.5, 0.5}) })
}
