// Package api exposes planning runs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civigrid/evacd/core/dispatch"
	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/logger"
)

// Planner runs one planning computation per request.
type Planner interface {
	Plan(ctx context.Context, req dispatch.Request) (model.Plan, error)
}

// Server wires the HTTP routes.
type Server struct {
	planner Planner
	log     logger.Logger
	router  chi.Router
}

// NewServer builds the router around the given planner.
func NewServer(p Planner) *Server {
	s := &Server{
		planner: p,
		log:     logger.New("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/plan", s.handlePlan)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePlan triggers a planning run. The body is optional; when present it
// may narrow the run to a subset of the fleet.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	plan, err := s.planner.Plan(r.Context(), req)
	if err != nil {
		s.log.Errorf("planning run failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "planning run failed"})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
