// Package server exposes the engine and note store over a small JSON
// HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/notedex/notedex/internal/config"
	"github.com/notedex/notedex/internal/engine"
	"github.com/notedex/notedex/internal/store"
)

// Deps holds dependencies for the HTTP router. Engine must be set;
// Store may be nil, in which case the notes endpoints answer 503.
type Deps struct {
	Engine *engine.Engine
	Store  store.Store
	Config *config.Config
	Logger *slog.Logger
}

// NewRouter builds the chi router with panic recovery, request
// logging, and rate limiting in front of the API handlers.
func NewRouter(deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Limit(10)
	burst := 20
	if deps.Config != nil {
		if deps.Config.Server.RateLimit > 0 {
			limit = rate.Limit(deps.Config.Server.RateLimit)
		}
		if deps.Config.Server.RateBurst > 0 {
			burst = deps.Config.Server.RateBurst
		}
	}

	search := &searchHandler{engine: deps.Engine}
	status := &statusHandler{engine: deps.Engine}
	rebuild := &rebuildHandler{engine: deps.Engine}
	notes := &notesHandler{store: deps.Store}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(rateLimit(rate.NewLimiter(limit, burst)))

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/search", search)
		r.Method(http.MethodGet, "/status", status)
		r.Method(http.MethodPost, "/rebuild", rebuild)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", notes.list)
			r.Get("/{key}", notes.get)
			r.Put("/{key}", notes.put)
			r.Delete("/{key}", notes.del)
		})
	})

	return r
}

// Server wraps http.Server with the lifecycle the serve command needs.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// New creates a Server listening on addr.
func New(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Start serves requests until Shutdown is called or the listener
// fails. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http_server_started", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http_server_stopping")
	return s.http.Shutdown(ctx)
}
