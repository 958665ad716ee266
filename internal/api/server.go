// Package api exposes the split, rename and merge pipeline over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lllllllleong/asodocumentflow/internal/config"
	"github.com/Lllllllleong/asodocumentflow/internal/models"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	pipeline *services.Pipeline
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(pipeline *services.Pipeline, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		pipeline: pipeline,
		log:      log,
		cfg:      cfg,
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

		r.Post("/api/info", s.handleInfo)
		r.Post("/api/preview", s.handlePreview)
		r.Post("/api/thumbnail", s.handleThumbnail)
		r.Post("/api/split", s.handleSplit)
		r.Post("/api/rename", s.handleRename)
		r.Post("/api/merge", s.handleMerge)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", AIEnabled: s.pipeline.AIEnabled()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, models.ErrorResponse{Error: msg})
}
