// Package server provides the HTTP server and routing for Orquestra.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/upsideon/orquestra-quantum/internal/config"
	"github.com/upsideon/orquestra-quantum/internal/database"
	"github.com/upsideon/orquestra-quantum/internal/events"
	"github.com/upsideon/orquestra-quantum/internal/modules/library"
	libraryhandlers "github.com/upsideon/orquestra-quantum/internal/modules/library/handlers"
	"github.com/upsideon/orquestra-quantum/internal/modules/simulation"
	simulationhandlers "github.com/upsideon/orquestra-quantum/internal/modules/simulation/handlers"
	"github.com/upsideon/orquestra-quantum/internal/scheduler"
)

// Config holds the server configuration and wired services.
type Config struct {
	Log     zerolog.Logger
	Cfg     *config.Config
	Port    int
	DevMode bool

	LibraryDB *database.DB
	CacheDB   *database.DB

	EventBus          *events.Bus
	LibraryService    *library.Service
	SimulationService *simulation.Service

	// Optional, present when backups are enabled.
	Scheduler *scheduler.Scheduler
	BackupJob scheduler.Job
}

// Server is the HTTP server for the circuit library and simulation API.
type Server struct {
	router chi.Router
	server *http.Server
	log    zerolog.Logger

	cfg     *config.Config
	devMode bool

	libraryDB *database.DB
	cacheDB   *database.DB

	eventBus          *events.Bus
	libraryService    *library.Service
	simulationService *simulation.Service

	scheduler *scheduler.Scheduler
	backupJob scheduler.Job

	systemHandlers *SystemHandlers
}

// New creates a new server with all routes and middleware configured.
func New(cfg Config) *Server {
	s := &Server{
		router:            chi.NewRouter(),
		log:               cfg.Log.With().Str("component", "server").Logger(),
		cfg:               cfg.Cfg,
		devMode:           cfg.DevMode,
		libraryDB:         cfg.LibraryDB,
		cacheDB:           cfg.CacheDB,
		eventBus:          cfg.EventBus,
		libraryService:    cfg.LibraryService,
		simulationService: cfg.SimulationService,
		scheduler:         cfg.Scheduler,
		backupJob:         cfg.BackupJob,
	}

	s.systemHandlers = NewSystemHandlers(
		map[string]*database.DB{
			"library": cfg.LibraryDB,
			"cache":   cfg.CacheDB,
		},
		cfg.SimulationService.Simulator(),
		cfg.Cfg.DataDir,
		cfg.Log,
	)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Unified events stream (WebSocket)
		eventsStreamHandler := NewEventsStreamHandler(s.eventBus, s.devMode, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		// System monitoring
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			r.Post("/backup", s.handleTriggerBackup)
		})

		// Circuit library module
		libraryHandler := libraryhandlers.NewHandler(s.libraryService, s.log)
		libraryHandler.RegisterRoutes(r)

		// Simulation module
		simulationHandler := simulationhandlers.NewHandler(s.simulationService, s.log)
		simulationHandler.RegisterRoutes(r)
	})
}

// handleTriggerBackup handles POST /api/system/backup requests. The
// backup runs in the background; completion is reported on the events
// stream.
func (s *Server) handleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil || s.backupJob == nil {
		s.systemHandlers.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "backups are not configured",
		})
		return
	}

	go s.scheduler.RunNow(s.backupJob)

	s.systemHandlers.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "backup started",
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
