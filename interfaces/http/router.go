// Package http exposes the relay's admin surface: health, prometheus
// metrics, a read-only canvas snapshot, and the websocket entry point.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ideaboard-backend/domain/core/aggregates"
)

// RouterDeps collects what the admin router serves.
type RouterDeps struct {
	Store     *aggregates.Canvas
	Registry  *prometheus.Registry
	WebSocket http.HandlerFunc // optional; mounted at /ws when set
	Logger    *zap.Logger
}

// NewRouter builds the admin HTTP router
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	r.Get("/api/canvas", handleCanvasSnapshot(deps.Store, deps.Logger))

	if deps.WebSocket != nil {
		r.Get("/ws", deps.WebSocket)
	}

	return r
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy","service":"ideaboard-relay"}`))
}

// handleCanvasSnapshot serves a point-in-time copy of the shared state
func handleCanvasSnapshot(store *aggregates.Canvas, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := store.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			logger.Warn("failed to write canvas snapshot", zap.Error(err))
		}
	}
}
