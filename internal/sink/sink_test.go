package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
)

type fakeSlot struct {
	frame []float32
}

func (f *fakeSlot) Read(dst []float32) int {
	if f.frame == nil {
		return 0
	}
	return copy(dst, f.frame)
}

type fakeSink struct {
	mu        sync.Mutex
	writes    int
	failFirst int
	err       error
	closed    bool
}

func (f *fakeSink) Write(pcm []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writes <= f.failFirst {
		if f.err != nil {
			return f.err
		}
		return errors.New("transient write failure")
	}
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func TestTaskWritesUntilCancelledThenStops(t *testing.T) {
	slot := &fakeSlot{frame: []float32{0.1, 0.2}}
	sink := &fakeSink{}
	task := NewTask(TaskConfig{
		ID:           "test",
		Slot:         slot,
		Sink:         sink,
		PollInterval: time.Millisecond,
		Bus:          events.NewBus(),
		Logger:       zerolog.Nop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = task.Run(ctx)

	require.Equal(t, models.EncoderStopped, task.State())
	require.Greater(t, sink.writeCount(), 0)
}

func TestTaskRetriesOnTransientFailureThenConnects(t *testing.T) {
	slot := &fakeSlot{frame: []float32{0.1, 0.2}}
	sink := &fakeSink{failFirst: 2}
	task := NewTask(TaskConfig{
		ID:             "test",
		Slot:           slot,
		Sink:           sink,
		PollInterval:   time.Millisecond,
		ReconnectDelay: time.Millisecond,
		Bus:            events.NewBus(),
		Logger:         zerolog.Nop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = task.Run(ctx)

	require.GreaterOrEqual(t, sink.writeCount(), 3)
}

func TestTaskFailsPermanentlyOnErrPermanentFailure(t *testing.T) {
	slot := &fakeSlot{frame: []float32{0.1, 0.2}}
	sink := &fakeSink{failFirst: 1, err: ErrPermanentFailure}
	task := NewTask(TaskConfig{
		ID:             "test",
		Slot:           slot,
		Sink:           sink,
		PollInterval:   time.Millisecond,
		ReconnectDelay: time.Millisecond,
		Bus:            events.NewBus(),
		Logger:         zerolog.Nop(),
	})

	err := task.Run(context.Background())
	require.ErrorIs(t, err, ErrPermanentFailure)
	require.Equal(t, models.EncoderFailed, task.State())
	require.True(t, sink.closed)
}

func TestTaskFailsAfterMaxReconnectAttemptsExhausted(t *testing.T) {
	slot := &fakeSlot{frame: []float32{0.1, 0.2}}
	sink := &fakeSink{failFirst: 1000} // always fails
	task := NewTask(TaskConfig{
		ID:                   "test",
		Slot:                 slot,
		Sink:                 sink,
		PollInterval:         time.Millisecond,
		ReconnectDelay:       time.Millisecond,
		MaxReconnectAttempts: 2,
		Bus:                  events.NewBus(),
		Logger:               zerolog.Nop(),
	})

	err := task.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, models.EncoderFailed, task.State())
}
