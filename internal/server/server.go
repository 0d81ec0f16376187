/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server assembles the stream server: router, middleware, and the
// services behind the display-facing API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall_signage/internal/api"
	"github.com/friendsincode/heimdall_signage/internal/catalog"
	"github.com/friendsincode/heimdall_signage/internal/clients"
	"github.com/friendsincode/heimdall_signage/internal/config"
	"github.com/friendsincode/heimdall_signage/internal/events"
	"github.com/friendsincode/heimdall_signage/internal/mailbox"
	"github.com/friendsincode/heimdall_signage/internal/playlist"
	"github.com/friendsincode/heimdall_signage/internal/slides"
	"github.com/friendsincode/heimdall_signage/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	bus      *events.Bus
	catalog  *catalog.Service
	registry *clients.Registry
	api      *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("heimdall-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for content delivery; large videos can legitimately take
	// longer than the request middleware timeout.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/content/") {
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

	srv.initDependencies()
	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 so long content downloads are not cut off; the
		// middleware timeout covers the API routes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() {
	converter := slides.NewConverter(s.cfg.SlidesCacheDir, s.cfg.LibreOfficeBin, s.cfg.ImageMagickBin, s.cfg.ConversionTimeout, s.logger)
	resolver := playlist.NewResolver(s.cfg.VideosDir, s.cfg.PresentationsDir, s.cfg.OrderingFile, converter, s.cfg.SlideDuration, s.logger)
	prober := catalog.NewProber(s.cfg.FFProbeBin, 15*time.Second, s.logger)

	s.catalog = catalog.New(resolver, prober, s.cfg.CatalogTTL, nil, s.bus, s.logger)
	s.registry = clients.NewRegistry(s.cfg.ClientTTL, nil, s.logger)

	relay := mailbox.NewRelay(s.cfg.DisplayMailbox())
	s.api = api.New(s.cfg, s.catalog, relay, s.registry, s.logger)
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// startBackgroundWorkers keeps gauges in step with catalog changes.
func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	sub := s.bus.Subscribe(events.EventCatalogUpdated)
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		defer s.bus.Unsubscribe(events.EventCatalogUpdated, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub:
				if !ok {
					return
				}
				telemetry.ActiveDisplays.Set(float64(s.registry.ActiveCount()))
				s.logger.Info().Interface("change", payload).Msg("catalog updated")
			}
		}
	}()
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Bus exposes the server's event bus.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// Close stops background workers.
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()
	return nil
}
