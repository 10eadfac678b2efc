/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

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
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/jtoledo1974/atcapp/internal/api"
	"github.com/jtoledo1974/atcapp/internal/board"
	"github.com/jtoledo1974/atcapp/internal/cache"
	"github.com/jtoledo1974/atcapp/internal/config"
	"github.com/jtoledo1974/atcapp/internal/db"
	"github.com/jtoledo1974/atcapp/internal/eventbus"
	"github.com/jtoledo1974/atcapp/internal/events"
	"github.com/jtoledo1974/atcapp/internal/logbuffer"
	"github.com/jtoledo1974/atcapp/internal/palette"
	"github.com/jtoledo1974/atcapp/internal/store"
	"github.com/jtoledo1974/atcapp/internal/telemetry"
)

// connMetricsInterval is how often pool statistics are sampled.
const connMetricsInterval = 30 * time.Second

// Server wires HTTP routing, storage and background workers.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	db        *gorm.DB
	store     *store.Store
	cache     *cache.Cache
	boards    *board.Service
	api       *api.API
	bus       *events.Bus
	relay     *eventbus.Relay
	logBuffer *logbuffer.Buffer

	closers  []func() error
	bgCancel context.CancelFunc
	bgDone   chan struct{}
	bgOnce   sync.Once
}

// New builds the server. logBuf may be nil.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("atcapp-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(30 * time.Second))

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		bus:       events.NewBus(),
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one zerolog line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "http").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := logger.Debug()
			if status >= http.StatusInternalServerError {
				ev = logger.Warn()
			}
			ev.Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s.db = database
	s.store = store.New(database, s.bus, s.logger)

	var snapshots board.SnapshotCache
	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.RosterTTL = s.cfg.CacheTTL
		c, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = c
			snapshots = c
			s.DeferClose(c.Close)
		}
	}

	if s.cfg.EventRelayEnabled {
		relayCfg := eventbus.DefaultRedisConfig()
		relayCfg.Addr = s.cfg.RedisAddr
		relayCfg.Password = s.cfg.RedisPassword
		relayCfg.DB = s.cfg.RedisDB
		relay, err := eventbus.NewRelay(relayCfg, s.bus, s.logger, events.EventRosterImported)
		if err != nil {
			s.logger.Warn().Err(err).Msg("event relay unavailable, imports from other instances will not invalidate this cache")
		} else {
			s.relay = relay
			s.DeferClose(relay.Close)
		}
	}

	colors := palette.DefaultPalette
	if s.cfg.PaletteFile != "" {
		loaded, err := palette.LoadFile(s.cfg.PaletteFile)
		if err != nil {
			return err
		}
		colors = loaded
	}

	s.boards = board.NewService(s.store, snapshots, board.Options{
		DefaultUnit: s.cfg.DefaultUnit,
		Palette:     colors,
		Bus:         s.bus,
	}, s.logger)
	s.api = api.New(s.boards, s.store, s.cfg.DefaultUnit, s.logger)
	if s.logBuffer != nil {
		s.api.SetLogBuffer(s.logBuffer)
	}
	return nil
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel
	s.bgDone = make(chan struct{})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(connMetricsInterval)
		defer ticker.Stop()
		for {
			db.UpdateConnectionMetrics(s.db)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	if s.cache != nil {
		g.Go(func() error { return s.cache.Run(ctx, s.bus) })
	}

	if s.relay != nil {
		g.Go(func() error { return s.relay.Run(ctx) })
	}

	if s.cfg.PaletteFile != "" {
		g.Go(func() error {
			return palette.Watch(ctx, s.cfg.PaletteFile, s.logger, s.boards.SetPalette)
		})
	}

	go func() {
		defer close(s.bgDone)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("background worker stopped")
		}
	}()
}

func (s *Server) stopBackgroundWorkers() {
	s.bgOnce.Do(func() {
		if s.bgCancel == nil {
			return
		}
		s.bgCancel()
		<-s.bgDone
	})
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","db":false}`))
			return
		}
		cacheUp := s.cache != nil && s.cache.IsAvailable()
		_, _ = fmt.Fprintf(w, `{"status":"ok","db":true,"cache":%t}`, cacheUp)
	})

	s.router.Handle("/metrics", telemetry.Handler())
	s.api.Routes(s.router)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close stops background workers and releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
