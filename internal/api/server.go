// Package api serves recursum over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/localrivet/recursum/internal/reducer"
	"github.com/localrivet/recursum/internal/resultstore"
	"github.com/localrivet/recursum/internal/summarizer"
	"github.com/localrivet/recursum/internal/telemetry"
)

// DefaultMaxUploadBytes bounds uploaded documents when Config leaves it unset.
const DefaultMaxUploadBytes int64 = 32 << 20

// Backend is what the HTTP handlers call into.
type Backend interface {
	DefaultOptions() reducer.Options
	Summarize(ctx context.Context, text, source string, opts reducer.Options, save bool) (*resultstore.Record, error)
	GetSummary(ctx context.Context, id string) (*resultstore.Record, error)
	ListSummaries(ctx context.Context, limit int) ([]*resultstore.Record, error)
	DeleteSummary(ctx context.Context, id string) error
	Stats() telemetry.Snapshot
	Health(ctx context.Context) (*summarizer.HealthReport, error)
}

// Config configures the HTTP server.
type Config struct {
	// APIKey enables bearer-token authentication on /api routes when set.
	APIKey         string
	MaxUploadBytes int64
}

// Server is the HTTP API server for recursum.
type Server struct {
	router  chi.Router
	backend Backend
	log     *slog.Logger
	cfg     Config
}

// NewServer creates and configures the HTTP server.
func NewServer(backend Backend, log *slog.Logger, cfg Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		backend: backend,
		log:     log.With("component", "http"),
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/summarize", s.handleSummarize)
		r.Get("/api/summaries", s.handleListSummaries)
		r.Get("/api/summaries/{id}", s.handleGetSummary)
		r.Delete("/api/summaries/{id}", s.handleDeleteSummary)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}
