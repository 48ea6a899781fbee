// Package api provides the HTTP handlers for the classification router.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/louaykahouli/CallCenter-Classifier/internal/agent"
	"github.com/louaykahouli/CallCenter-Classifier/internal/cache"
	"github.com/louaykahouli/CallCenter-Classifier/internal/router"
	"github.com/louaykahouli/CallCenter-Classifier/internal/store"
)

// Handler bundles the service dependencies shared by the API endpoints.
type Handler struct {
	svc    *agent.Service
	router *router.Router
	cache  *cache.Cache
	repo   store.Store
}

// NewHandler creates a Handler with its dependencies.
func NewHandler(svc *agent.Service, rt *router.Router, c *cache.Cache, repo store.Store) *Handler {
	return &Handler{
		svc:    svc,
		router: rt,
		cache:  c,
		repo:   repo,
	}
}

// RegisterRoutes registers the caller-facing API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", h.Predict)
		r.Post("/analyze", h.Analyze)
		r.Get("/sessions/{sessionID}/history", h.SessionHistory)
		r.Get("/stats", h.Stats)
		r.Post("/cache/clear", h.CacheClear)
		r.Post("/cache/cleanup", h.CacheCleanup)
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/config/threshold", h.UpdateThreshold)
		r.Post("/maintenance/purge", h.Purge)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
