/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package config loads process-level configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseBackend selects the SQL backend behind the persisted KV store.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	InstanceID  string

	DBBackend DatabaseBackend
	DBDSN     string

	// Device surface (spec.md §6 Audio device surface).
	DeviceSampleRateHz int
	DeviceChannels     int
	CallbackPeriodMS   int // simulated RT callback cadence; output_frames = rate * period / 1000

	// Decoder worker.
	FFmpegBin string

	// RT command queue.
	CommandQueueDepth int

	// Broadcaster / encoder sinks.
	EncoderRingSeconds int // loaded but not consulted; broadcast slot rings use a fixed 5s capacity
	MaxReconnectAttempts int // 0 = infinite
	ReconnectDelaySecs   int

	// Icecast-style network sink.
	IcecastURL            string
	IcecastSourcePassword string
	IcecastMount          string

	// File sink.
	RecordingRoot string

	// Control API.
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	// Multi-instance coordination.
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	// Event bus mirror: "memory" (default), "nats", or "redis".
	EventBusBackend string
	NATSURL         string

	// Tracing.
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Station timezone for clockwheel slot windows (spec.md §12 supplement).
	StationTimezone string

	// AutoDJ transition defaults, applied by internal/director until a
	// per-slot override is modeled on models.ClockwheelSlot.
	TransitionMode      string
	TransitionTimeSecs  float64
	MinTrackDurationMS  int
	RecueWindowMS       int
	CrossfadeCurve      string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"AIRCORE_ENV", "GRIMNIR_ENV"}, "development"),
		InstanceID:  getEnvAny([]string{"AIRCORE_INSTANCE_ID", "GRIMNIR_INSTANCE_ID"}, ""),

		DBBackend: DatabaseBackend(getEnvAny([]string{"AIRCORE_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:     getEnvAny([]string{"AIRCORE_DB_DSN"}, ""),

		DeviceSampleRateHz: getEnvIntAny([]string{"AIRCORE_DEVICE_SAMPLE_RATE"}, 48000),
		DeviceChannels:     getEnvIntAny([]string{"AIRCORE_DEVICE_CHANNELS"}, 2),
		CallbackPeriodMS:   getEnvIntAny([]string{"AIRCORE_CALLBACK_PERIOD_MS"}, 20),

		FFmpegBin: getEnvAny([]string{"AIRCORE_FFMPEG_BIN"}, "ffmpeg"),

		CommandQueueDepth: getEnvIntAny([]string{"AIRCORE_COMMAND_QUEUE_DEPTH"}, 256),

		EncoderRingSeconds:   getEnvIntAny([]string{"AIRCORE_ENCODER_RING_SECONDS"}, 5),
		MaxReconnectAttempts: getEnvIntAny([]string{"AIRCORE_MAX_RECONNECT_ATTEMPTS"}, 0),
		ReconnectDelaySecs:   getEnvIntAny([]string{"AIRCORE_RECONNECT_DELAY_SECS"}, 5),

		IcecastURL:            getEnvAny([]string{"AIRCORE_ICECAST_URL", "ICECAST_URL"}, "http://localhost:8000"),
		IcecastSourcePassword: getEnvAny([]string{"AIRCORE_ICECAST_SOURCE_PASSWORD", "ICECAST_SOURCE_PASSWORD"}, ""),
		IcecastMount:          getEnvAny([]string{"AIRCORE_ICECAST_MOUNT"}, "/stream"),

		RecordingRoot: getEnvAny([]string{"AIRCORE_RECORDING_ROOT"}, "./recordings"),

		HTTPBind:    getEnvAny([]string{"AIRCORE_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"AIRCORE_HTTP_PORT"}, 8080),
		MetricsBind: getEnvAny([]string{"AIRCORE_METRICS_BIND"}, "127.0.0.1:9000"),

		LeaderElectionEnabled: getEnvBoolAny([]string{"AIRCORE_LEADER_ELECTION_ENABLED"}, false),
		RedisAddr:             getEnvAny([]string{"AIRCORE_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:         getEnvAny([]string{"AIRCORE_REDIS_PASSWORD"}, ""),
		RedisDB:               getEnvIntAny([]string{"AIRCORE_REDIS_DB"}, 0),

		EventBusBackend: getEnvAny([]string{"AIRCORE_EVENTBUS_BACKEND"}, "memory"),
		NATSURL:         getEnvAny([]string{"AIRCORE_NATS_URL"}, "nats://localhost:4222"),

		TracingEnabled:    getEnvBoolAny([]string{"AIRCORE_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"AIRCORE_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"AIRCORE_TRACING_SAMPLE_RATE"}, 1.0),

		StationTimezone: getEnvAny([]string{"AIRCORE_STATION_TIMEZONE"}, "UTC"),

		TransitionMode:     getEnvAny([]string{"AIRCORE_TRANSITION_MODE"}, "full_intro_outro"),
		TransitionTimeSecs: getEnvFloatAny([]string{"AIRCORE_TRANSITION_TIME_SECS"}, 4.0),
		MinTrackDurationMS: getEnvIntAny([]string{"AIRCORE_MIN_TRACK_DURATION_MS"}, 30000),
		RecueWindowMS:      getEnvIntAny([]string{"AIRCORE_RECUE_WINDOW_MS"}, 2000),
		CrossfadeCurve:     getEnvAny([]string{"AIRCORE_CROSSFADE_CURVE"}, "constant_power"),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("AIRCORE_DB_DSN must be provided")
	}
	if cfg.DeviceSampleRateHz <= 0 {
		return nil, fmt.Errorf("AIRCORE_DEVICE_SAMPLE_RATE must be positive")
	}
	if cfg.CallbackPeriodMS <= 0 {
		return nil, fmt.Errorf("AIRCORE_CALLBACK_PERIOD_MS must be positive")
	}
	switch cfg.EventBusBackend {
	case "memory", "nats", "redis":
	default:
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBusBackend)
	}

	if strings.EqualFold(cfg.Environment, "production") {
		if cfg.IcecastSourcePassword == "" || strings.EqualFold(cfg.IcecastSourcePassword, "hackme") {
			return nil, fmt.Errorf("AIRCORE_ICECAST_SOURCE_PASSWORD must be set to a non-default value in production")
		}
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()
	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"GRIMNIR_ENV":         "use AIRCORE_ENV",
		"GRIMNIR_INSTANCE_ID": "use AIRCORE_INSTANCE_ID",
		"ICECAST_URL":         "use AIRCORE_ICECAST_URL",
	}
	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// CallbackPeriod returns the simulated RT-callback cadence as a duration.
func (c *Config) CallbackPeriod() time.Duration {
	return time.Duration(c.CallbackPeriodMS) * time.Millisecond
}

// OutputFramesPerCallback returns how many stereo frames each callback produces.
func (c *Config) OutputFramesPerCallback() int {
	return c.DeviceSampleRateHz * c.CallbackPeriodMS / 1000
}

func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
