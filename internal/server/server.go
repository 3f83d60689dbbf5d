// Package server exposes a dictionary over an HTTP JSON API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hupe1980/bigramdict"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the bigramdict HTTP API server.
type Server struct {
	dict     *bigramdict.Dictionary
	gatherer prometheus.Gatherer
	router   chi.Router
	version  string
	started  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves the gatherer's metrics at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New creates a Server for dict.
func New(dict *bigramdict.Dictionary, version string, opts ...Option) *Server {
	s := &Server{
		dict:    dict,
		version: version,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Post("/sweep", s.handleSweep)
		r.Post("/snapshots", s.handleSave)

		r.Route("/terminals/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTerminal)
			r.Put("/", s.handlePutTerminal)
			r.Delete("/", s.handleDeleteTerminal)
			r.Get("/bigrams", s.handleListBigrams)
			r.Put("/bigrams/{target}", s.handlePutBigram)
			r.Delete("/bigrams/{target}", s.handleDeleteBigram)
		})
	})

	s.router = r
}
