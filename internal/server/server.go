package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"papertimes/internal/config"
	"papertimes/internal/logger"
	"papertimes/internal/services"
	"papertimes/internal/templates"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	documents  services.Documents
	newspapers services.Newspapers
	catalog    *templates.Catalog
	db         Pinger
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance
func New(documents services.Documents, newspapers services.Newspapers, catalog *templates.Catalog, db Pinger, cfg config.Server) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		documents:  documents,
		newspapers: newspapers,
		catalog:    catalog,
		db:         db,
		config:     cfg,
		log:        logger.Get().With("component", "server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	timeout := s.config.WriteTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s.router.Use(middleware.Timeout(timeout))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", AccountHeader},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)

		r.Group(func(r chi.Router) {
			r.Use(requireAccount)

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", s.handleListDocuments)
				r.Post("/", s.handleUploadDocument)
				r.Get("/{id}", s.handleGetDocument)
				r.Post("/{id}/retry", s.handleRetryDocument)
				r.Delete("/{id}", s.handleDeleteDocument)
			})

			r.Route("/newspapers", func(r chi.Router) {
				r.Get("/", s.handleListNewspapers)
				r.Post("/", s.handleCreateNewspaper)
				r.Get("/{id}", s.handleGetNewspaper)
				r.Patch("/{id}", s.handleUpdateNewspaper)
				r.Delete("/{id}", s.handleDeleteNewspaper)
			})

			r.Post("/headlines", s.handleRegenerateHeadline)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
