// Package server provides the HTTP API for Lumina.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/app"
)

// maxUploadBytes bounds the multipart form kept in memory by /ingest/files.
const maxUploadBytes = 32 << 20

// WatchService manages the watched directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Lumina API.
type Server struct {
	app        *app.App
	logger     *zap.Logger
	watch      WatchService
	configPath string
	configMu   sync.Mutex
	server     *http.Server
}

// NewServer creates a server over the application context. watch may be nil, in which
// case the watch endpoints answer 501. When configPath is set, watch directory changes
// are written back to it.
func NewServer(a *app.App, watch WatchService, configPath string) *Server {
	return &Server{
		app:        a,
		logger:     a.Logger,
		watch:      watch,
		configPath: configPath,
	}
}

// Router returns the API routes with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/search", s.handleSearch)
		r.Post("/ask", s.handleAsk)
		r.Delete("/knowledge", s.handleClear)

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/urls", s.handleIngestURLs)
			r.Post("/json", s.handleIngestJSON)
			r.Post("/texts", s.handleIngestTexts)
			r.Post("/files", s.handleIngestFiles)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireWatch)
			r.Get("/watch/directories", s.handleWatchDirectoriesList)
			r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
			r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	cfg := s.app.Config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
