package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/louaykahouli/CallCenter-Classifier/internal/classifier"
	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
	"github.com/louaykahouli/CallCenter-Classifier/internal/router"
	"github.com/louaykahouli/CallCenter-Classifier/internal/store"
	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler reports service health including both downstream classifiers.
type HealthHandler struct {
	repo       store.Store
	classifier *classifier.Client
	router     *router.Router
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Store, cl *classifier.Client, rt *router.Router) *HealthHandler {
	return &HealthHandler{repo: repo, classifier: cl, router: rt}
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}

// Health probes the store and both classifiers. The classifier probes run in
// parallel; a degraded downstream does not fail the endpoint, only the store
// being unreachable does.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	backends := []string{domain.BackendFast, domain.BackendAccurate}
	results := make([]string, len(backends))

	g, gCtx := errgroup.WithContext(ctx)
	for i, backend := range backends {
		i, backend := i, backend
		g.Go(func() error {
			if err := h.classifier.Healthy(gCtx, backend); err != nil {
				results[i] = "unreachable: " + err.Error()
			} else {
				results[i] = "healthy"
			}
			return nil // a degraded backend is reported, not fatal
		})
	}
	g.Wait() //nolint:errcheck // goroutines above never return errors

	statuses := make(map[string]string, len(backends))
	for i, backend := range backends {
		statuses[backend] = results[i]
	}

	if err := h.repo.Ping(ctx); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  "conversation store unreachable",
			"models": statuses,
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"agent":     "operational",
		"models":    statuses,
		"threshold": h.router.Threshold(),
	})
}
