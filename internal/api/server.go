// Package api exposes the monitor HTTP interface for the capture loop.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fact-project/la-palma-overview/internal/metrics"
)

// FrameSource serves the most recently captured composite.
type FrameSource interface {
	Latest() (data []byte, at time.Time, ok bool)
}

// Server wires HTTP handlers to the capture loop's outputs.
type Server struct {
	router chi.Router
	frames FrameSource
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(frames FrameSource, logger *zap.Logger) *Server {
	s := &Server{
		frames: frames,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/latest.jpg", s.latest)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Ready once at least one frame was captured.
	if _, _, ok := s.frames.Latest(); !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no frame yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) latest(w http.ResponseWriter, _ *http.Request) {
	data, at, ok := s.frames.Latest()
	if !ok {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("write latest frame failed", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
