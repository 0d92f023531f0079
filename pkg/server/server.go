// Package server exposes the diagnosis core over HTTP. The transport layer
// stays thin: it parses one query string, applies the throttle, and renders
// the engine's DiagnosisResult or a request-level error code.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wingedpig/rfdiag/pkg/inventory"
	"github.com/wingedpig/rfdiag/pkg/model"
	"github.com/wingedpig/rfdiag/pkg/throttle"
)

// Diagnoser runs one diagnosis for a query.
type Diagnoser interface {
	Diagnose(ctx context.Context, query string) (*model.DiagnosisResult, error)
}

// Server wires the core components to the HTTP API.
type Server struct {
	inv      *inventory.Handle
	engine   Diagnoser
	throttle *throttle.Throttle
	refresh  func(ctx context.Context) error
	geo      inventory.Locator
	metrics  *Metrics

	allowOrigin string
	registry    *prometheus.Registry
}

// Option configures a Server.
type Option func(*Server)

// WithGeo enables hierarchy geo enrichment.
func WithGeo(geo inventory.Locator) Option {
	return func(s *Server) { s.geo = geo }
}

// WithAllowOrigin sets the CORS origin ("*" by default).
func WithAllowOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.allowOrigin = origin
		}
	}
}

// New creates a Server. refresh reloads the inventory from its source and is
// invoked by GET /api/refresh; it may be nil when refresh is not supported
// (e.g. the one-shot CLI).
func New(inv *inventory.Handle, engine Diagnoser, th *throttle.Throttle, refresh func(ctx context.Context) error, opts ...Option) *Server {
	s := &Server{
		inv:         inv,
		engine:      engine,
		throttle:    th,
		refresh:     refresh,
		allowOrigin: "*",
		registry:    prometheus.NewRegistry(),
	}
	s.metrics = NewMetrics(s.registry)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the server's metric set, for wiring refresh results from
// the daemon.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Routes returns the HTTP handler for the full API surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/diagnose", s.handleDiagnose)
	mux.HandleFunc("GET /api/inventory", s.handleInventory)
	mux.HandleFunc("GET /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return s.cors(mux)
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search_query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing 'search_query' query parameter")
		return
	}

	// Throttle on the raw query string, before any normalization
	if !s.throttle.Allow(query) {
		s.metrics.Throttled.Inc()
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	start := time.Now()
	result, err := s.engine.Diagnose(r.Context(), query)
	switch {
	case errors.Is(err, model.ErrNotFound):
		s.metrics.NotFound.Inc()
		writeError(w, http.StatusNotFound, "Target not found")
		return
	case errors.Is(err, model.ErrNoInventory):
		writeError(w, http.StatusServiceUnavailable, "Inventory not loaded")
		return
	case err != nil:
		log.Printf("ERROR: Diagnosis for %q: %v", query, err)
		writeError(w, http.StatusInternalServerError, "Diagnosis failed")
		return
	}

	s.metrics.Diagnoses.WithLabelValues(result.RootCauseLevel).Inc()
	s.metrics.DiagnosisSeconds.Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	ix := s.inv.Current()
	if ix == nil {
		writeError(w, http.StatusServiceUnavailable, "Inventory not loaded")
		return
	}
	writeJSON(w, http.StatusOK, ix.Hierarchy(s.geo))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "Refresh not supported")
		return
	}

	if err := s.refresh(r.Context()); err != nil {
		// Best effort: the previously published index stays intact
		log.Printf("ERROR: Inventory refresh: %v", err)
		s.metrics.Refreshes.WithLabelValues("failure").Inc()
		writeError(w, http.StatusBadGateway, "Inventory reload failed")
		return
	}

	s.metrics.Refreshes.WithLabelValues("success").Inc()
	if ix := s.inv.Current(); ix != nil {
		s.metrics.InventoryRecords.Set(float64(ix.Len()))
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Inventory reloaded",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ix := s.inv.Current()
	if ix == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"reason": "inventory not loaded",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"records": ix.Len(),
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
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
