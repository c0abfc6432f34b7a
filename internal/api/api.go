/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api implements the control API and event stream from
// spec.md §6: a chi-routed HTTP surface translating GUI/IPC command
// requests into rtengine.Command values pushed onto the RT command
// queue, and a Server-Sent-Events endpoint fanning the event bus back
// out. Grounded on the teacher's internal/api/api.go for its routing,
// JSON response, and event-fan-out conventions (authentication/roles
// dropped: spec.md §1 puts "authentication of remote clients" out of
// scope), rebuilt against spec.md §6's command/event contract rather
// than copied.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/rtengine"
)

// commandTimeout bounds how long a handler waits for applyCommand's
// synchronous ack before responding 202 without one. The RT thread
// drains the queue every callback period (tens of ms); 2s is several
// orders of magnitude more than that should ever take under load.
const commandTimeout = 2 * time.Second

// API exposes the control HTTP surface over one rtengine.Engine.
type API struct {
	engine *rtengine.Engine
	bus    *events.Bus
	logger zerolog.Logger
}

// New creates the API router wrapper.
func New(engine *rtengine.Engine, bus *events.Bus, logger zerolog.Logger) *API {
	return &API{engine: engine, bus: bus, logger: logger}
}

// Routes mounts the control API and event stream on r.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/events", a.handleEvents)

		r.Route("/decks/{deck}", func(r chi.Router) {
			r.Post("/load", a.handleLoadTrack)
			r.Post("/play", a.handlePlay)
			r.Post("/pause", a.handlePause)
			r.Post("/seek", a.handleSeek)
			r.Post("/gain", a.handleSetChannelGain)
			r.Post("/pitch", a.handleSetDeckPitch)
			r.Post("/tempo", a.handleSetDeckTempo)
			r.Post("/bass", a.handleSetDeckBass)
			r.Post("/filter", a.handleSetDeckFilter)
			r.Post("/loop", a.handleSetDeckLoop)
			r.Delete("/loop", a.handleClearDeckLoop)
			r.Post("/pipeline", a.handleSetChannelPipeline)
			r.Post("/stop", a.handleStopWithCompletion)
			r.Post("/source", a.handleSwitchDeckTrackSource)
		})

		r.Route("/crossfade", func(r chi.Router) {
			r.Post("/start", a.handleStartCrossfade)
			r.Post("/config", a.handleSetCrossfadeConfig)
			r.Post("/manual", a.handleSetManualCrossfade)
			r.Post("/trigger", a.handleTriggerManualFade)
		})

		r.Route("/master", func(r chi.Router) {
			r.Post("/pipeline", a.handleSetMasterPipeline)
			r.Post("/level", a.handleSetMasterLevel)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func decodeJSON(r *http.Request, dest any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return json.NewDecoder(r.Body).Decode(dest) == nil
}

// pushCommand enqueues cmd and waits up to commandTimeout for
// applyCommand's synchronous result, per spec.md §7's "surface to the
// command caller when it is a pre-flight check". A full queue is
// reported immediately (QueueFull); a timed-out wait still reports
// success since the command was accepted, just not yet drained.
func (a *API) pushCommand(w http.ResponseWriter, r *http.Request, cmd rtengine.Command) {
	result := make(chan error, 1)
	cmd.Result = result

	if err := a.engine.Queue().Push(cmd); err != nil {
		writeError(w, http.StatusServiceUnavailable, "queue_full")
		return
	}

	select {
	case err := <-result:
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "applied"})
	case <-time.After(commandTimeout):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	case <-r.Context().Done():
	}
}
