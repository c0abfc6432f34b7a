/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sink

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// IcecastConfig configures a network source-protocol sink, per
// spec.md §6's "network source protocol (sending 16-bit little-endian
// PCM framed per the selected protocol's rules)".
type IcecastConfig struct {
	URL            string // e.g. http://host:8000
	Mount          string // e.g. /stream
	SourcePassword string
	ContentType    string // default: audio/x-raw; PCM over a persistent PUT
	ConnectTimeout time.Duration
}

// icecastPCMWriter is an io.Reader the PUT body streams from: each
// Write call appends a chunk of little-endian int16 PCM that the HTTP
// client's persistent connection then drains out to the server.
type icecastPCMWriter struct {
	ch     chan []byte
	closed chan struct{}
}

func newIcecastPCMWriter() *icecastPCMWriter {
	return &icecastPCMWriter{ch: make(chan []byte, 64), closed: make(chan struct{})}
}

func (w *icecastPCMWriter) push(b []byte) error {
	select {
	case w.ch <- b:
		return nil
	case <-w.closed:
		return io.ErrClosedPipe
	}
}

// Read implements io.Reader by blocking for the next pushed chunk.
// http.Client's request body reader calls this on its own goroutine.
func (w *icecastPCMWriter) Read(p []byte) (int, error) {
	select {
	case b, ok := <-w.ch:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, b), nil
	case <-w.closed:
		return 0, io.EOF
	}
}

func (w *icecastPCMWriter) Close() error {
	select {
	case <-w.closed:
	default:
		close(w.closed)
	}
	return nil
}

// IcecastSink streams 16-bit little-endian PCM to an Icecast/SHOUTcast
// source mount over a persistent HTTP PUT connection. Grounded on the
// teacher's `IcecastURL`/`IcecastSourcePassword` config fields
// (internal/config) and its bcrypt password-hashing idiom
// (internal/web/pages_setup.go), used by VerifySourcePassword to check a
// source password against a bcrypt hash. connect does not call it: the
// configured password is sent as HTTP basic auth on every connection.
type IcecastSink struct {
	cfg       IcecastConfig
	client    *http.Client
	writer    *icecastPCMWriter
	cancel    context.CancelFunc
	connected bool
}

// NewIcecastSink validates cfg and prepares a sink; the connection
// itself is opened lazily on the first Write.
func NewIcecastSink(cfg IcecastConfig) (*IcecastSink, error) {
	if cfg.URL == "" || cfg.Mount == "" {
		return nil, fmt.Errorf("sink: icecast URL and mount are required")
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "audio/x-raw"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &IcecastSink{
		cfg:    cfg,
		client: &http.Client{},
	}, nil
}

// VerifySourcePassword compares the plaintext source password against
// an operator-distributed bcrypt hash (e.g. loaded from the station's
// persisted config), returning ErrPermanentFailure on mismatch so the
// encoder task does not retry a connection that will never succeed.
func VerifySourcePassword(plaintext, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		return fmt.Errorf("%w: source password does not match configured hash", ErrPermanentFailure)
	}
	return nil
}

func (s *IcecastSink) connect() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.writer = newIcecastPCMWriter()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.cfg.URL+s.cfg.Mount, s.writer)
	if err != nil {
		cancel()
		return err
	}
	req.SetBasicAuth("source", s.cfg.SourcePassword)
	req.Header.Set("Content-Type", s.cfg.ContentType)
	req.Header.Set("Ice-Public", "0")
	req.ContentLength = -1 // streamed, length unknown

	s.cancel = cancel

	go func() {
		resp, err := s.client.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			s.writer.Close()
		}
	}()

	s.connected = true
	return nil
}

// Write converts pcm to 16-bit little-endian frames and streams them
// to the open PUT connection, connecting lazily on first use.
func (s *IcecastSink) Write(pcm []float32) error {
	if !s.connected {
		if err := s.connect(); err != nil {
			return err
		}
	}

	buf := new(bytes.Buffer)
	buf.Grow(len(pcm) * 2)
	for _, sample := range pcm {
		v := int16(clampSample(sample) * 32767)
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
	return s.writer.push(buf.Bytes())
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Close tears down the persistent connection.
func (s *IcecastSink) Close() error {
	if s.writer != nil {
		_ = s.writer.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.connected = false
	return nil
}
