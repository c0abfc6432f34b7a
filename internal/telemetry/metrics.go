/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Control API.
	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aircore_api_request_duration_seconds",
		Help:    "Control API request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_api_requests_total",
		Help: "Total control API requests handled.",
	}, []string{"method", "route", "status"})

	APIActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aircore_api_active_connections",
		Help: "In-flight control API connections.",
	})

	// Deck / crossfade.
	DeckState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aircore_deck_state",
		Help: "Current deck state as an enum value (see deck.State).",
	}, []string{"deck_id"})

	DeckUnderrunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_deck_underruns_total",
		Help: "Ring buffer underruns observed by the RT callback per deck.",
	}, []string{"deck_id"})

	CrossfadeProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aircore_crossfade_progress_ratio",
		Help: "Progress of the active crossfade, 0 to 1; 0 when idle.",
	})

	CrossfadesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_crossfades_total",
		Help: "Completed crossfades by curve.",
	}, []string{"curve"})

	// Mixer / VU.
	MixerChannelLevelDBFS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aircore_mixer_channel_level_dbfs",
		Help: "Per-channel VU level in dBFS, floored at -96.",
	}, []string{"channel"})

	MixerMasterLevelDBFS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aircore_mixer_master_level_dbfs",
		Help: "Master bus VU level in dBFS, floored at -96.",
	})

	// AutoDJ / planner.
	AutoDJSelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_autodj_selections_total",
		Help: "AutoDJ selections by selection method.",
	}, []string{"method"})

	AutoDJRuleExhaustionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_autodj_rule_exhaustions_total",
		Help: "Times the AutoDJ selector fell through to relaxation or fallback pools.",
	}, []string{"level"})

	// Broadcaster / encoder sinks.
	BroadcastListenersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aircore_broadcast_listeners_active",
		Help: "Currently subscribed broadcast fan-out listeners.",
	})

	BroadcastFramesDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_broadcast_frames_dropped_total",
		Help: "Frames dropped because a listener's slot ring was full.",
	}, []string{"listener"})

	EncoderConnectionStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aircore_encoder_connection_status",
		Help: "1 if the encoder sink is connected, 0 otherwise.",
	}, []string{"sink"})

	EncoderReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_encoder_reconnects_total",
		Help: "Encoder sink reconnect attempts.",
	}, []string{"sink"})

	// Persistence / coordination.
	DatabaseConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aircore_database_connections_active",
		Help: "Active connections in the persistence connection pool.",
	})

	DatabaseQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aircore_database_query_duration_seconds",
		Help:    "GORM query latency in seconds by operation and table.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_database_errors_total",
		Help: "GORM operations that returned an error, by operation and kind.",
	}, []string{"operation", "kind"})

	LeaderElectionStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aircore_leader_election_status",
		Help: "1 if this instance currently holds leadership, 0 otherwise.",
	}, []string{"instance_id"})

	LeaderElectionChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aircore_leader_election_changes_total",
		Help: "Leadership transitions observed by this instance.",
	}, []string{"instance_id", "transition"})
)

func init() {
	prometheus.MustRegister(
		APIRequestDuration,
		APIRequestsTotal,
		APIActiveConnections,
		DeckState,
		DeckUnderrunsTotal,
		CrossfadeProgress,
		CrossfadesTotal,
		MixerChannelLevelDBFS,
		MixerMasterLevelDBFS,
		AutoDJSelectionsTotal,
		AutoDJRuleExhaustionsTotal,
		BroadcastListenersActive,
		BroadcastFramesDroppedTotal,
		EncoderConnectionStatus,
		EncoderReconnectsTotal,
		DatabaseConnectionsActive,
		DatabaseQueryDuration,
		DatabaseErrorsTotal,
		LeaderElectionStatus,
		LeaderElectionChanges,
	)
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
