/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/friendsincode/aircore/internal/events"
)

// keepaliveInterval bounds how long a connection can sit silent before
// a comment ping is sent, keeping intermediate proxies from timing out
// the stream. Grounded on the teacher's WebSocket event handler's
// 15-second keepalive ticker in internal/api/api.go.
const keepaliveInterval = 15 * time.Second

// defaultEventTypes is streamed when the client doesn't name any
// ?types= it cares about.
var defaultEventTypes = []events.EventType{
	events.EventDeckStateChanged,
	events.EventMixerLevels,
	events.EventHealth,
}

// parseEventTypes splits a comma-separated ?types= query value into
// EventType values, trimming whitespace and dropping empties. Grounded
// on the teacher's internal/api/api.go parseEventTypes.
func parseEventTypes(raw string) []events.EventType {
	var out []events.EventType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}

// handleEvents streams the event bus as Server-Sent Events, the
// teacher's WebSocket fan-out handler adapted to text/event-stream
// (SPEC_FULL.md §11 drops the websocket dependency in favor of SSE: no
// client-to-server messages are ever needed on this channel).
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}

	types := parseEventTypes(r.URL.Query().Get("types"))
	if len(types) == 0 {
		types = defaultEventTypes
	}

	subs := make([]events.Subscriber, len(types))
	for i, t := range types {
		subs[i] = a.bus.Subscribe(t)
	}
	defer func() {
		for i, t := range types {
			a.bus.Unsubscribe(t, subs[i])
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		sent := false
		for i, t := range types {
			select {
			case payload, ok := <-subs[i]:
				if !ok {
					continue
				}
				writeEvent(w, t, payload)
				sent = true
			default:
			}
		}
		if sent {
			flusher.Flush()
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func writeEvent(w http.ResponseWriter, eventType events.EventType, payload events.Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, body)
}
