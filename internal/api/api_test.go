/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/rtengine"
)

type fakeSink struct{}

func (fakeSink) Push(frames []float32) {}

func newTestAPI(t *testing.T, queueDepth int) (*API, *rtengine.Engine, func()) {
	t.Helper()
	bus := events.NewBus()
	engine := rtengine.New(rtengine.Config{
		SampleRate:        1000,
		FFmpegBin:         "ffmpeg",
		CommandQueueDepth: queueDepth,
		Bus:               bus,
		Sink:              fakeSink{},
		Logger:            zerolog.Nop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx, time.Millisecond)
	return New(engine, bus, zerolog.Nop()), engine, cancel
}

func router(a *API) http.Handler {
	r := chi.NewRouter()
	a.Routes(r)
	return r
}

func TestHandleHealth(t *testing.T) {
	a, _, cancel := newTestAPI(t, 8)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router(a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandlePlayUnknownDeck(t *testing.T) {
	a, _, cancel := newTestAPI(t, 8)
	defer cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decks/Z/play", nil)
	rec := httptest.NewRecorder()
	router(a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePlayAppliesToRunningEngine(t *testing.T) {
	a, _, cancel := newTestAPI(t, 8)
	defer cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decks/A/play", nil)
	rec := httptest.NewRecorder()
	router(a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleSetChannelGainInvalidJSON(t *testing.T) {
	a, _, cancel := newTestAPI(t, 8)
	defer cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decks/A/gain", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router(a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushCommandReportsQueueFull(t *testing.T) {
	// The engine is never run, so nothing drains its depth-1 queue: once
	// filled it stays full, exercising the queue_full path deterministically.
	bus := events.NewBus()
	engine := rtengine.New(rtengine.Config{
		SampleRate:        1000,
		FFmpegBin:         "ffmpeg",
		CommandQueueDepth: 1,
		Bus:               bus,
		Sink:              fakeSink{},
		Logger:            zerolog.Nop(),
	})
	require.NoError(t, engine.Queue().Push(rtengine.Command{Kind: rtengine.CmdPlay, Deck: 0}))

	a := New(engine, bus, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/decks/A/play", nil)
	rec := httptest.NewRecorder()
	router(a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseEventTypesSplitsAndTrims(t *testing.T) {
	got := parseEventTypes(" deck.state_changed ,mixer.levels,, ")
	require.Equal(t, []events.EventType{events.EventDeckStateChanged, events.EventMixerLevels}, got)
}

func TestParseDeckNameCaseInsensitive(t *testing.T) {
	id, ok := parseDeckName("b")
	require.True(t, ok)
	require.Equal(t, "B", id.String())

	_, ok = parseDeckName("z")
	require.False(t, ok)
}
