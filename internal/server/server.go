// Package server exposes the engine over HTTP.
//
// The API is a thin layer: handlers decode a request, call the store and the
// pipeline, and encode the result. All domain behavior lives in pkg/.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/inkpath/plotline/pkg/cache"
	"github.com/inkpath/plotline/pkg/observability"
	"github.com/inkpath/plotline/pkg/pipeline"
	"github.com/inkpath/plotline/pkg/store"
)

// Server serves the Plotline HTTP API.
type Server struct {
	store  store.Store
	cache  cache.Cache
	logger *log.Logger
}

// Config configures the server.
type Config struct {
	Store  store.Store
	Cache  cache.Cache // nil disables caching
	Logger *log.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:  cfg.Store,
		cache:  cfg.Cache,
		logger: logger,
	}
}

// runnerFor builds a pipeline runner whose cache keys are scoped to one
// story, so entries for different stories never collide in a shared backend.
func (s *Server) runnerFor(storyID string) *pipeline.Runner {
	keyer := cache.NewScopedKeyer(nil, "story:"+storyID+":")
	return pipeline.NewRunner(s.cache, keyer, s.logger)
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/stories", func(r chi.Router) {
			r.Get("/", s.handleListStories)
			r.Route("/{storyID}", func(r chi.Router) {
				r.Get("/", s.handleGetStory)
				r.Put("/", s.handlePutStory)
				r.Delete("/", s.handleDeleteStory)

				r.Post("/analyze", s.handleAnalyze)
				r.Post("/ancestry", s.handleAncestry)
				r.Post("/suggest", s.handleSuggest)
				r.Post("/export", s.handleExport)
			})
		})
	})

	return r
}

// instrument emits request and response events and a debug log line.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ctx := req.Context()
		observability.HTTP().OnRequest(ctx, req.Method, req.URL.Path)

		ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		elapsed := time.Since(start)
		observability.HTTP().OnResponse(ctx, req.Method, req.URL.Path, ww.Status(), elapsed)
		s.logger.Debug("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"elapsed", elapsed)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
