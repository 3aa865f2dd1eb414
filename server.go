package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/expanova/cita-watcher/common/config"
	"github.com/expanova/cita-watcher/common/db"
	"github.com/expanova/cita-watcher/common/services"
	"github.com/expanova/cita-watcher/handler"
	"github.com/expanova/cita-watcher/middlewares"
	"github.com/expanova/cita-watcher/portals"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type AppHttpServer struct {
	router    *chi.Mux
	cfg       config.Config
	server    *http.Server
	db        *db.DB
	scheduler handler.WatcherScheduler
	registry  *portals.Registry
	events    services.EventService
	checks    map[string]handler.HealthCheck
}

func NewAppHttpServer(cfg config.Config) (*AppHttpServer, error) {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middlewares.ApiKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// one-off availability checks drive a real browser and can take a while
	r.Use(middleware.Timeout(2 * time.Minute))

	server := &AppHttpServer{
		router: r,
		cfg:    cfg,
		checks: map[string]handler.HealthCheck{},
	}
	return server, nil
}

// SetDB sets the database dependency
func (s *AppHttpServer) SetDB(db *db.DB) {
	s.db = db
}

// SetScheduler sets the watcher scheduler and the portal registry it classifies with
func (s *AppHttpServer) SetScheduler(scheduler handler.WatcherScheduler, registry *portals.Registry) {
	s.scheduler = scheduler
	s.registry = registry
}

// SetEventService enables the watcher event history routes
func (s *AppHttpServer) SetEventService(events services.EventService) {
	s.events = events
}

// AddHealthCheck registers a dependency probe under /v1/health/dependencies
func (s *AppHttpServer) AddHealthCheck(name string, check handler.HealthCheck) {
	s.checks[name] = check
}

func (s *AppHttpServer) setupRoute() {
	r := s.router

	if s.db == nil {
		log.Warn().Msg("DB dependency not set, watchers are kept in memory only")
	}
	if s.events == nil {
		log.Warn().Msg("Event service not set, event history routes are disabled")
	}

	// API Documentation with Swagger
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := handler.NewHealthHandler(s.db, s.checks)

	// Public health endpoint (no authentication required)
	r.Mount("/health", healthHandler.Router())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middlewares.ApiKey(s.cfg.Security.BackendApiKey))

		watcherHandler := handler.NewWatcherHandler(s.scheduler, s.registry, s.events)
		availabilityHandler := handler.NewAvailabilityHandler(s.scheduler, s.registry)
		portalHandler := handler.NewPortalHandler(s.registry)

		r.Mount("/watchers", watcherHandler.Router())
		r.Mount("/check-availability", availabilityHandler.Router())
		r.Mount("/portals", portalHandler.Router())
		r.Mount("/health", healthHandler.Router())
	})
}

func (s *AppHttpServer) start() error {
	r := s.router
	cfg := s.cfg
	log.Info().Msg("Starting up server...")

	s.server = &http.Server{
		Addr:         cfg.Listen.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// This starts the server in a goroutine from main
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// stop gracefully shuts down the server
func (s *AppHttpServer) stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
