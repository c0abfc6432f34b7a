/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server bundles the control API and the background services
// that back it, grounded on the teacher's internal/server package: a
// chi router with the teacher's middleware stack, an initDependencies/
// configureRoutes/startBackgroundWorkers split, and a closers stack
// unwound in reverse on Close.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/aircore/internal/api"
	"github.com/friendsincode/aircore/internal/autodj"
	"github.com/friendsincode/aircore/internal/broadcast"
	"github.com/friendsincode/aircore/internal/cache"
	"github.com/friendsincode/aircore/internal/config"
	"github.com/friendsincode/aircore/internal/crossfade"
	"github.com/friendsincode/aircore/internal/db"
	"github.com/friendsincode/aircore/internal/director"
	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/eventbus"
	"github.com/friendsincode/aircore/internal/leadership"
	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/persist"
	"github.com/friendsincode/aircore/internal/rtengine"
	"github.com/friendsincode/aircore/internal/sink"
	"github.com/friendsincode/aircore/internal/telemetry"
)

// mirroredEventTypes lists the events worth shipping to an external bus
// for other instances in a multi-instance deployment to observe;
// high-frequency mixer/VU events stay local.
var mirroredEventTypes = []events.EventType{
	events.EventNowPlaying,
	events.EventAutoDJSelected,
	events.EventTrackCompleted,
	events.EventTransitionPlanned,
	events.EventCrossfadeStarted,
	events.EventCrossfadeCompleted,
	events.EventListenerStats,
	events.EventHealth,
	events.EventLeaderAcquired,
	events.EventLeaderLost,
}

// externalBus is the narrow view of an eventbus.NATSBus/RedisBus this
// package needs to mirror local events outward.
type externalBus interface {
	Publish(eventType events.EventType, payload events.Payload)
	Close() error
}

// Server bundles HTTP and the supporting real-time/AutoDJ/broadcast
// services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db           *gorm.DB
	bus          *events.Bus
	external     externalBus
	api          *api.API
	engine       *rtengine.Engine
	broadcaster  *broadcast.Broadcaster
	selector     *autodj.Selector
	director     *director.Director
	election     *leadership.Election
	encoderTasks []*sink.Task

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("aircore-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The SSE event stream is a long-lived connection; it manages
			// its own keepalive cadence rather than the request timeout.
			if r.URL.Path == "/api/v1/events" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming SSE manages its own deadlines
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	store := persist.NewStore(database)
	cursorStore := persist.NewCursorStore(store)
	clockwheelSource := persist.NewClockwheelSource(store)

	var catalog autodj.Catalog = autodj.NewGormCatalog(database)
	recentLog := autodj.NewGormRecentPlayLog(database)
	weights := autodj.NewGormWeightStore(database)

	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	cacheCfg.DisableOnError = true
	if cacheClient, err := cache.New(cacheCfg, s.logger); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache unavailable, serving uncached")
	} else {
		catalog = autodj.NewCachedCatalog(catalog, cacheClient)
		s.DeferClose(cacheClient.Close)
	}

	if err := s.initEventBusMirror(); err != nil {
		return err
	}

	s.broadcaster = broadcast.New(s.cfg.DeviceSampleRateHz, s.bus)

	s.engine = rtengine.New(rtengine.Config{
		SampleRate:        s.cfg.DeviceSampleRateHz,
		FFmpegBin:         s.cfg.FFmpegBin,
		CommandQueueDepth: s.cfg.CommandQueueDepth,
		Bus:               s.bus,
		Sink:              s.broadcaster,
		Logger:            s.logger,
	})

	s.selector = autodj.New(autodj.Config{
		Clockwheel: clockwheelSource,
		Catalog:    catalog,
		Recent:     recentLog,
		Cursor:     cursorStore,
		Weights:    weights,
		Seed:       time.Now().UnixNano(),
		Bus:        s.bus,
		Logger:     s.logger,
	})

	s.director = director.New(director.Config{
		Engine:             s.engine,
		Selector:           s.selector,
		Bus:                s.bus,
		Logger:             s.logger,
		Curve:              crossfade.Curve(s.cfg.CrossfadeCurve),
		Mode:               models.PlanMode(s.cfg.TransitionMode),
		TransitionTimeSec:  s.cfg.TransitionTimeSecs,
		MinTrackDurationMs: int64(s.cfg.MinTrackDurationMS),
		RecueWindowMs:      int64(s.cfg.RecueWindowMS),
	})

	if s.cfg.LeaderElectionEnabled {
		electionCfg := leadership.ElectionConfig{
			RedisAddr:       s.cfg.RedisAddr,
			RedisPassword:   s.cfg.RedisPassword,
			RedisDB:         s.cfg.RedisDB,
			ElectionKey:     "aircore:leader:director",
			LeaseDuration:   15 * time.Second,
			RenewalInterval: 5 * time.Second,
			RetryInterval:   2 * time.Second,
			InstanceID:      s.cfg.InstanceID,
		}
		election, err := leadership.NewElection(electionCfg, s.logger)
		if err != nil {
			return fmt.Errorf("create leader election: %w", err)
		}
		s.election = election
		s.DeferClose(election.Stop)
	}

	if err := s.initEncoderTasks(); err != nil {
		return err
	}

	s.api = api.New(s.engine, s.bus, s.logger)
	return nil
}

func (s *Server) initEventBusMirror() error {
	switch s.cfg.EventBusBackend {
	case "nats":
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		bus, err := eventbus.NewNATSBus(natsCfg, s.cfg.InstanceID, s.logger)
		if err != nil {
			return fmt.Errorf("create NATS event bus: %w", err)
		}
		s.external = bus
		s.DeferClose(bus.Close)
	case "redis":
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.URL = fmt.Sprintf("redis://%s", s.cfg.RedisAddr)
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		bus, err := eventbus.NewRedisBus(redisCfg, s.cfg.InstanceID, s.logger)
		if err != nil {
			return fmt.Errorf("create Redis event bus: %w", err)
		}
		s.external = bus
		s.DeferClose(bus.Close)
	}
	return nil
}

func (s *Server) initEncoderTasks() error {
	icecastSink, err := sink.NewIcecastSink(sink.IcecastConfig{
		URL:            s.cfg.IcecastURL,
		Mount:          s.cfg.IcecastMount,
		SourcePassword: s.cfg.IcecastSourcePassword,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create icecast sink: %w", err)
	}
	s.encoderTasks = append(s.encoderTasks, sink.NewTask(sink.TaskConfig{
		ID:                   "icecast",
		Slot:                 s.broadcaster.AddSlot("icecast"),
		Sink:                 icecastSink,
		MaxReconnectAttempts: s.cfg.MaxReconnectAttempts,
		ReconnectDelay:       time.Duration(s.cfg.ReconnectDelaySecs) * time.Second,
		Bus:                  s.bus,
		Logger:               s.logger,
	}))

	fileSink, err := sink.NewFileSink(sink.FileSinkConfig{
		Root:       s.cfg.RecordingRoot,
		Template:   "{station}-{datetime}.wav",
		Station:    s.cfg.InstanceID,
		SampleRate: s.cfg.DeviceSampleRateHz,
		Rotation:   models.RotationHourly,
		Codec:      "pcm16",
	})
	if err != nil {
		return fmt.Errorf("create file sink: %w", err)
	}
	s.encoderTasks = append(s.encoderTasks, sink.NewTask(sink.TaskConfig{
		ID:                   "recording",
		Slot:                 s.broadcaster.AddSlot("recording"),
		Sink:                 fileSink,
		MaxReconnectAttempts: s.cfg.MaxReconnectAttempts,
		ReconnectDelay:       time.Duration(s.cfg.ReconnectDelaySecs) * time.Second,
		Bus:                  s.bus,
		Logger:               s.logger,
	}))
	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook run by Close, in reverse
// registration order.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.engine.Run(ctx, s.cfg.CallbackPeriod()); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("rtengine loop exited")
		}
	}()

	s.bgWG.Add(1)
	go s.runDirector(ctx)

	for _, task := range s.encoderTasks {
		task := task
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := task.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("encoder task exited")
			}
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	if s.external != nil {
		s.bgWG.Add(1)
		go s.runEventMirror(ctx)
	}
}

// runDirector drives the AutoDJ director continuously in single-instance
// mode, or gates it on held leadership when leader election is enabled so
// exactly one instance in a multi-instance deployment selects tracks.
func (s *Server) runDirector(ctx context.Context) {
	defer s.bgWG.Done()

	if s.election == nil {
		if err := s.director.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("director loop exited")
		}
		return
	}

	if err := s.election.Start(ctx); err != nil {
		s.logger.Error().Err(err).Msg("leader election failed to start")
		return
	}

	var directorCancel context.CancelFunc
	stop := func() {
		if directorCancel != nil {
			directorCancel()
			directorCancel = nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case isLeader, ok := <-s.election.LeaderCh():
			if !ok {
				return
			}
			if isLeader && directorCancel == nil {
				var directorCtx context.Context
				directorCtx, directorCancel = context.WithCancel(ctx)
				go func() {
					if err := s.director.Run(directorCtx); err != nil && !errors.Is(err, context.Canceled) {
						s.logger.Error().Err(err).Msg("director loop exited")
					}
				}()
			} else if !isLeader {
				stop()
			}
		}
	}
}

func (s *Server) runEventMirror(ctx context.Context) {
	defer s.bgWG.Done()

	subs := make(map[events.EventType]events.Subscriber, len(mirroredEventTypes))
	for _, t := range mirroredEventTypes {
		subs[t] = s.bus.Subscribe(t)
	}
	defer func() {
		for t, sub := range subs {
			s.bus.Unsubscribe(t, sub)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sent := false
		for t, sub := range subs {
			select {
			case payload := <-sub:
				s.external.Publish(t, payload)
				sent = true
			default:
			}
		}
		if !sent {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := `{"status":"ok"`
		if s.election != nil {
			if s.election.IsLeader() {
				response += `,"leader":true`
			} else {
				response += `,"leader":false`
			}
		}
		response += `}`
		_, _ = w.Write([]byte(response))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
