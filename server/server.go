// Package server exposes the detection pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"phishvet/detect"
	"phishvet/model"
)

// maxBatchSize caps how many URLs one batch request may submit.
const maxBatchSize = 100

// Server wires the pipeline and model bundle to HTTP handlers.
type Server struct {
	pipeline *detect.Pipeline

	// bundle is nil when no trained artifact exists; prediction endpoints
	// then answer 503.
	bundle *model.Bundle

	log zerolog.Logger
}

func New(pipeline *detect.Pipeline, bundle *model.Bundle, logger zerolog.Logger) *Server {
	return &Server{pipeline: pipeline, bundle: bundle, log: logger}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/check", s.handleCheck)
		r.Post("/batch", s.handleBatch)
		r.Get("/model/info", s.handleModelInfo)
	})

	return r
}

type checkRequest struct {
	URL string `json:"url"`

	// Optional per-request overrides of the pipeline defaults.
	UseNetwork *bool `json:"use_network,omitempty"`
	UseContent *bool `json:"use_content,omitempty"`
	Explain    *bool `json:"explain,omitempty"`
}

type batchRequest struct {
	URLs       []string `json:"urls"`
	UseNetwork *bool    `json:"use_network,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}

	opts := s.pipeline.Options()
	if req.UseNetwork != nil {
		opts.UseNetwork = *req.UseNetwork
	}
	if req.UseContent != nil {
		opts.UseContent = *req.UseContent
	}
	if req.Explain != nil && !*req.Explain {
		opts.TopK = 0
	}

	verdict, err := s.pipeline.CheckWith(r.Context(), req.URL, opts)
	if err != nil {
		switch {
		case errors.Is(err, detect.ErrMalformedURL):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, detect.ErrClassifierUnavailable):
			writeError(w, http.StatusServiceUnavailable, "model not trained")
			return
		default:
			s.log.Error().Err(err).Str("url", req.URL).Msg("check failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls required")
		return
	}
	if len(req.URLs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "batch too large")
		return
	}

	opts := s.pipeline.Options()
	if req.UseNetwork != nil {
		opts.UseNetwork = *req.UseNetwork
	}

	writeJSON(w, http.StatusOK, s.pipeline.CheckBatchWith(r.Context(), req.URLs, opts))
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if s.bundle == nil {
		writeError(w, http.StatusServiceUnavailable, "model not trained")
		return
	}
	writeJSON(w, http.StatusOK, s.bundle.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": s.bundle != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
