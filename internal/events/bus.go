/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events implements the in-process event bus backing the event
// contract described in spec.md §6. internal/eventbus optionally mirrors
// this bus to NATS JetStream for multi-instance deployments.
package events

import "sync"

// EventType enumerates event categories published on the bus.
type EventType string

const (
	// Deck lifecycle.
	EventDeckStateChanged EventType = "deck.state_changed"
	EventDeckLoaded       EventType = "deck.loaded"
	EventDeckEOF          EventType = "deck.eof"
	EventDeckUnderrun     EventType = "deck.underrun"

	// Crossfade lifecycle.
	EventCrossfadeArmed     EventType = "crossfade.armed"
	EventCrossfadeStarted   EventType = "crossfade.started"
	EventCrossfadeProgress  EventType = "crossfade.progress"
	EventCrossfadeCompleted EventType = "crossfade.completed"
	EventCrossfadeAborted   EventType = "crossfade.aborted"

	// AutoDJ / transition planner.
	EventNowPlaying        EventType = "now_playing"
	EventAutoDJSelected    EventType = "autodj.selected"
	EventAutoDJExhausted   EventType = "autodj.rule_exhausted"
	EventTransitionPlanned EventType = "transition.planned"
	EventTrackCompleted    EventType = "track.completed"

	// Mixer / VU.
	EventMixerLevels EventType = "mixer.levels"

	// Broadcaster and encoder sinks.
	EventListenerStats      EventType = "listener_stats"
	EventEncoderConnected   EventType = "encoder.connected"
	EventEncoderDisconnected EventType = "encoder.disconnected"
	EventEncoderReconnecting EventType = "encoder.reconnecting"
	EventEncoderError        EventType = "encoder.error"

	// Process health.
	EventHealth EventType = "health"

	// Cache invalidation events.
	EventClockwheelUpdated EventType = "cache.clockwheel_updated"
	EventCatalogUpdated    EventType = "cache.catalog_updated"

	// Leadership.
	EventLeaderAcquired EventType = "leadership.acquired"
	EventLeaderLost     EventType = "leadership.lost"

	// Audit events, for operations that need explicit audit logging.
	EventAuditConfigReload  EventType = "audit.config.reload"
	EventAuditManualCommand EventType = "audit.command.manual"
)

// Payload is a generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers of eventType. Non-blocking: a
// subscriber with a full buffer misses the event rather than stalling
// the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes sub from eventType and closes it.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
