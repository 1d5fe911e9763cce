// Package server exposes the HTTP API: the weekly digest trigger, paper
// search, and health endpoints.
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

	"paperfeed/internal/config"
	"paperfeed/internal/core"
	"paperfeed/internal/logger"
)

// DigestService generates (or fetches the cached) weekly digest for a user.
type DigestService interface {
	Generate(ctx context.Context, userID string) (*core.Digest, string, error)
}

// PaperSearcher runs keyword search over recently published papers.
type PaperSearcher interface {
	Search(ctx context.Context, query string, windowDays, limit int) ([]core.SearchResult, error)
}

// QueryRecorder persists search queries for the profile fallback tier.
// Recording is best effort.
type QueryRecorder interface {
	RecordQuery(ctx context.Context, userID, query string) error
}

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	digests    DigestService
	search     PaperSearcher
	queries    QueryRecorder // optional
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance.
func New(digests DigestService, search PaperSearcher, queries QueryRecorder, cfg config.Server) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		digests: digests,
		search:  search,
		queries: queries,
		config:  cfg,
		log:     logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser(s.config.JWTSecret))
			r.Get("/digest/weekly", s.handleWeeklyDigest)
			r.Get("/papers/search", s.handleSearch)
		})
	})
}

// Start begins serving and blocks until the context is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }
