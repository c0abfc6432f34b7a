/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package decoder runs one ffmpeg subprocess per deck's current track and
// feeds its normalized PCM into a ring buffer, per spec.md §4.1. It shells
// out rather than linking a codec library, mirroring the teacher's
// subprocess-per-track pattern in internal/playout/pipeline.go (GStreamer)
// and internal/playout/crossfade.go (stdout-pipe PCM reads).
package decoder

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/ringbuffer"
)

// ErrSourceUnreadable is returned when the underlying ffmpeg process exits
// before producing any frames.
var ErrSourceUnreadable = errors.New("decoder: source produced no frames")

// chunkFrames bounds how many stereo frames are decoded between ring
// writes, keeping the producer responsive to Stop without decoding the
// whole file into memory first.
const chunkFrames = 1024

// Handle is the consumer-visible state of a running decoder worker: the
// ring buffer half the deck reads from, plus progress counters the deck
// and control API read without touching the worker goroutine directly.
type Handle struct {
	Ring *ringbuffer.Ring

	SampleRate int
	Channels   int

	stopped       atomic.Bool
	done          atomic.Bool
	framesWritten atomic.Uint64
	lastErr       atomic.Value // error

	cancel context.CancelFunc
}

// Stop signals the worker to exit; it will stop after the in-flight
// ffmpeg read returns.
func (h *Handle) Stop() {
	h.stopped.Store(true)
	if h.cancel != nil {
		h.cancel()
	}
}

// Done reports whether the worker has exited, either at EOF or after Stop.
func (h *Handle) Done() bool {
	return h.done.Load()
}

// FramesWritten returns the total stereo frames successfully written to
// the ring buffer so far.
func (h *Handle) FramesWritten() uint64 {
	return h.framesWritten.Load()
}

// Err returns the error the worker exited with, if any.
func (h *Handle) Err() error {
	if v := h.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Start launches an ffmpeg subprocess decoding source to interleaved
// stereo f32le PCM at source.SampleRate (48 kHz when unset), and begins a
// background goroutine copying decoded frames into ring. offsetMs seeks
// the input before decoding starts, implementing spec.md §6's Seek by
// restarting the subprocess at a new position rather than skipping
// already-decoded frames. The returned Handle is safe to poll from any
// goroutine.
func Start(ctx context.Context, ffmpegBin string, source models.TrackSource, offsetMs int64, ring *ringbuffer.Ring, logger zerolog.Logger) (*Handle, error) {
	workerCtx, cancel := context.WithCancel(ctx)

	sampleRate := source.SampleRate
	if sampleRate == 0 {
		sampleRate = 48000
	}
	channels := 2

	args := []string{"-hide_banner", "-loglevel", "error"}
	if offsetMs > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", float64(offsetMs)/1000.0))
	}
	args = append(args,
		"-i", source.Path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"pipe:1",
	)

	cmd := exec.CommandContext(workerCtx, ffmpegBin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("decoder: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("decoder: start ffmpeg: %w", err)
	}

	h := &Handle{
		Ring:       ring,
		SampleRate: sampleRate,
		Channels:   channels,
		cancel:     cancel,
	}

	go h.pump(cmd, stdout, channels, logger)

	return h, nil
}

func (h *Handle) pump(cmd *exec.Cmd, stdout io.ReadCloser, channels int, logger zerolog.Logger) {
	defer h.done.Store(true)
	defer cancelQuietly(h.cancel)

	reader := bufio.NewReaderSize(stdout, chunkFrames*channels*4)
	frame := make([]byte, chunkFrames*channels*4)
	samples := make([]float32, chunkFrames*channels)

	var totalFrames uint64
	var readErr error

	for {
		if h.stopped.Load() {
			break
		}

		n, err := io.ReadFull(reader, frame)
		if n > 0 {
			frameCount := n / (channels * 4)
			decodeLE(frame[:frameCount*channels*4], samples[:frameCount*channels])
			h.writeWithBackoff(samples[:frameCount*channels])
			totalFrames += uint64(frameCount)
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			readErr = err
			break
		}
	}

	waitErr := cmd.Wait()

	switch {
	case readErr != nil:
		h.lastErr.Store(readErr)
	case waitErr != nil && !h.stopped.Load():
		h.lastErr.Store(fmt.Errorf("decoder: ffmpeg exited: %w", waitErr))
	case totalFrames == 0 && !h.stopped.Load():
		h.lastErr.Store(ErrSourceUnreadable)
	}

	if err := h.Err(); err != nil {
		logger.Warn().Err(err).Msg("decoder worker exited with error")
	}
}

// writeWithBackoff retries a write against ring pressure without busy
// spinning. This goroutine is not the RT thread, so yielding is fine; the
// RT consumer side never blocks regardless of what happens here.
func (h *Handle) writeWithBackoff(samples []float32) {
	remaining := samples
	for len(remaining) > 0 {
		if h.stopped.Load() {
			return
		}
		n := h.Ring.Write(remaining)
		if n > 0 {
			h.framesWritten.Add(uint64(n / h.Channels))
			remaining = remaining[n:]
			continue
		}
		runtime.Gosched()
	}
}

func decodeLE(raw []byte, out []float32) {
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
}

func cancelQuietly(cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
}
