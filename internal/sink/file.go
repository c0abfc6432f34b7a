/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sink

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/aircore/internal/models"
)

const (
	wavHeaderSize  = 44
	bytesPerSample = 2 // 16-bit PCM
	stereoChannels = 2
)

// FileSinkConfig configures the rotating WAV file sink, per spec.md
// §6's "rotating file with a header of choice (WAV header with
// deferred data size)".
type FileSinkConfig struct {
	Root        string
	Template    string // e.g. "{station}-{datetime}.wav"
	Station     string
	SampleRate  int
	Rotation    models.RotationMode
	MaxSizeMB   int // used when Rotation == RotationBySize
	BitrateKbps int // for the {bitrate} placeholder only; PCM is uncompressed
	Codec       string // for the {codec} placeholder only, e.g. "pcm16"
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FileSink writes interleaved stereo float32 PCM to a sequence of WAV
// files, opening a new segment when the configured rotation boundary
// is crossed. Grounded on the teacher's config-driven recording-root
// pattern (internal/config RecordingRoot) with the WAV deferred-size
// header technique spec.md §6 names explicitly, since no WAV-writing
// library appears anywhere in the retrieved pack.
type FileSink struct {
	cfg FileSinkConfig

	f            *os.File
	bytesWritten int64
	segmentStart time.Time
}

// NewFileSink prepares a file sink; the first segment is opened on the
// first Write.
func NewFileSink(cfg FileSinkConfig) (*FileSink, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("sink: file root is required")
	}
	if cfg.Template == "" {
		cfg.Template = "{station}-{datetime}.wav"
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sink: sample rate must be positive")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create recording root: %w", err)
	}
	return &FileSink{cfg: cfg}, nil
}

// Write appends pcm to the current segment, rotating first if the
// active rotation mode's boundary has been crossed.
func (s *FileSink) Write(pcm []float32) error {
	if s.f == nil {
		if err := s.openSegment(); err != nil {
			return err
		}
	} else if s.shouldRotate(len(pcm)) {
		if err := s.closeSegment(); err != nil {
			return err
		}
		if err := s.openSegment(); err != nil {
			return err
		}
	}

	buf := make([]byte, len(pcm)*bytesPerSample)
	for i, sample := range pcm {
		v := int16(clampSample(sample) * 32767)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	n, err := s.f.Write(buf)
	s.bytesWritten += int64(n)
	return err
}

func (s *FileSink) shouldRotate(nextSamples int) bool {
	switch s.cfg.Rotation {
	case models.RotationBySize:
		limit := int64(s.cfg.MaxSizeMB) * 1024 * 1024
		return limit > 0 && s.bytesWritten+int64(nextSamples*bytesPerSample) > limit
	case models.RotationHourly:
		return time.Since(s.segmentStart) >= time.Hour
	case models.RotationDaily:
		return time.Since(s.segmentStart) >= 24*time.Hour
	default:
		return false
	}
}

func (s *FileSink) openSegment() error {
	name := s.renderFilename(time.Now())
	path := filepath.Join(s.cfg.Root, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create segment %s: %w", path, err)
	}
	if err := writeWAVPlaceholderHeader(f, s.cfg.SampleRate); err != nil {
		f.Close()
		return err
	}

	s.f = f
	s.bytesWritten = 0
	s.segmentStart = time.Now()
	return nil
}

func (s *FileSink) closeSegment() error {
	if s.f == nil {
		return nil
	}
	err := finalizeWAVHeader(s.f, s.bytesWritten)
	closeErr := s.f.Close()
	s.f = nil
	if err != nil {
		return err
	}
	return closeErr
}

// Close finalizes and closes the currently open segment, if any.
func (s *FileSink) Close() error { return s.closeSegment() }

func (s *FileSink) renderFilename(now time.Time) string {
	r := strings.NewReplacer(
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
		"{datetime}", now.Format("20060102-150405"),
		"{station}", slugify(s.cfg.Station),
		"{bitrate}", strconv.Itoa(s.cfg.BitrateKbps),
		"{codec}", s.cfg.Codec,
	)
	return r.Replace(s.cfg.Template)
}

// writeWAVPlaceholderHeader writes a 44-byte canonical PCM WAV header
// with zeroed size fields; finalizeWAVHeader patches them in once the
// segment's total byte count is known, per spec.md §6's "deferred
// data size" requirement.
func writeWAVPlaceholderHeader(f *os.File, sampleRate int) error {
	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	// bytes 4:8 (RIFF chunk size) patched on finalize
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], stereoChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	byteRate := sampleRate * stereoChannels * bytesPerSample
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	blockAlign := stereoChannels * bytesPerSample
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bytesPerSample*8)
	copy(header[36:40], "data")
	// bytes 40:44 (data chunk size) patched on finalize
	_, err := f.Write(header)
	return err
}

func finalizeWAVHeader(f *os.File, dataBytes int64) error {
	riffSize := uint32(dataBytes + wavHeaderSize - 8)
	if _, err := f.WriteAt(uint32LE(riffSize), 4); err != nil {
		return err
	}
	if _, err := f.WriteAt(uint32LE(uint32(dataBytes)), 40); err != nil {
		return err
	}
	return nil
}

func uint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
