// Package api exposes the acquisition pipeline over HTTP for the
// prospecting dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/importer"
	"github.com/Clerks303/Scraping/internal/job"
	"github.com/Clerks303/Scraping/internal/source"
	"github.com/Clerks303/Scraping/internal/store"
)

// Server wires the HTTP routes over the orchestrator, importer, and store.
type Server struct {
	orchestrator *job.Orchestrator
	registry     *source.Registry
	importer     *importer.Importer
	store        store.Store
	cfg          config.ServerConfig
}

// NewServer creates the API server.
func NewServer(orc *job.Orchestrator, reg *source.Registry, imp *importer.Importer, st store.Store, cfg config.ServerConfig) *Server {
	return &Server{
		orchestrator: orc,
		registry:     reg,
		importer:     imp,
		store:        st,
		cfg:          cfg,
	}
}

// Router builds the chi router with the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/scraping", func(r chi.Router) {
			r.Get("/sources", s.handleListSources)
			r.Get("/status", s.handleStatusAll)
			r.Get("/status/{source}", s.handleStatus)
			r.Post("/{source}", s.handleStart)
			r.Post("/{source}/stop", s.handleStop)
		})

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Post("/upload", s.handleUpload)
		})

		r.Get("/stats", s.handleStats)
	})

	return r
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
