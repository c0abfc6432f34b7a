package sink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/models"
)

func TestRenderFilenameSubstitutesPlaceholders(t *testing.T) {
	s := &FileSink{cfg: FileSinkConfig{
		Template:    "{station}-{date}-{time}-{bitrate}-{codec}.wav",
		Station:     "Night Owl Radio!",
		BitrateKbps: 128,
		Codec:       "pcm16",
	}}

	now := time.Date(2026, 7, 31, 13, 5, 9, 0, time.UTC)
	name := s.renderFilename(now)

	require.Equal(t, "night-owl-radio-20260731-130509-128-pcm16.wav", name)
}

func TestWriteCreatesValidWAVHeader(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(FileSinkConfig{
		Root:       dir,
		Template:   "seg.wav",
		Station:    "test",
		SampleRate: 48000,
		Rotation:   models.RotationNone,
	})
	require.NoError(t, err)

	require.NoError(t, s.Write([]float32{0.1, -0.1, 0.2, -0.2}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "seg.wav"))
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "data", string(data[36:40]))
	require.Len(t, data, wavHeaderSize+4*2) // 4 samples * 2 bytes each
}

func TestBySizeRotationDisabledWhenMaxSizeIsZero(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(FileSinkConfig{
		Root:       dir,
		Template:   "{time}.wav",
		Station:    "test",
		SampleRate: 48000,
		Rotation:   models.RotationBySize,
		MaxSizeMB:  0, // 0 disables the size limit
	})
	require.NoError(t, err)

	// MaxSizeMB of 0 disables the size check (limit > 0 guard), so this
	// should never rotate regardless of how much is written.
	require.NoError(t, s.Write(make([]float32, 1000)))
	require.False(t, s.shouldRotate(1000))
}

func TestCloseWithoutWriteIsNoOp(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(FileSinkConfig{
		Root:       dir,
		SampleRate: 48000,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
