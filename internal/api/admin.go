package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	defaultStatsWindowDays = 7
	defaultRetentionDays   = 30
)

// SessionHistory returns the stored conversations of one session, newest
// first.
func (h *Handler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	records, err := h.repo.SessionHistory(r.Context(), sessionID, limit)
	if err != nil {
		slog.Error("Failed to load session history", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session history")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    sessionID,
		"count":         len(records),
		"conversations": records,
	})
}

// Stats merges the router's usage counters with the store's windowed
// aggregates.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultStatsWindowDays)
	if days <= 0 {
		days = defaultStatsWindowDays
	}

	global, err := h.repo.GlobalStats(r.Context(), days)
	if err != nil {
		slog.Error("Failed to compute conversation stats", "days", days, "error", err)
		Error(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	threshold := h.router.Threshold()
	JSON(w, http.StatusOK, map[string]interface{}{
		"statistics":    h.router.Usage(),
		"conversations": global,
		"configuration": map[string]interface{}{
			"complexity_threshold": threshold,
			"routing_strategy":     routingStrategy(threshold),
		},
	})
}

// CacheClear removes every cache entry regardless of expiry.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	count := h.cache.Clear()
	slog.Info("Cache cleared", "entries_removed", count)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":         "cache cleared",
		"entries_removed": count,
	})
}

// CacheCleanup removes only expired cache entries.
func (h *Handler) CacheCleanup(w http.ResponseWriter, r *http.Request) {
	count := h.cache.CleanupExpired()
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":         "expired entries removed",
		"entries_removed": count,
	})
}

// CacheStats reports entry counts, hit/miss accounting and memory footprint.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.cache.Stats())
}

type thresholdRequest struct {
	Threshold int `json:"threshold"`
}

// UpdateThreshold changes the routing threshold at runtime. Values outside
// [0,100] are rejected and the previous threshold stays in effect.
func (h *Handler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	old := h.router.Threshold()
	if err := h.router.SetThreshold(req.Threshold); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("Routing threshold updated", "old", old, "new", req.Threshold)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":          "threshold updated",
		"old_threshold":    old,
		"new_threshold":    req.Threshold,
		"routing_strategy": routingStrategy(req.Threshold),
	})
}

type purgeRequest struct {
	Days int `json:"days"`
}

// Purge removes conversation records older than the requested age. This is
// the explicit retention-cleanup operation; nothing else deletes records.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	req := purgeRequest{Days: defaultRetentionDays}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Days <= 0 {
		Error(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	deleted, err := h.repo.PurgeOlderThan(r.Context(), req.Days)
	if err != nil {
		slog.Error("Retention purge failed", "days", req.Days, "error", err)
		Error(w, http.StatusInternalServerError, "purge failed")
		return
	}

	slog.Info("Retention purge complete", "days", req.Days, "deleted", deleted)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "purge complete",
		"days":    req.Days,
		"deleted": deleted,
	})
}

func routingStrategy(threshold int) string {
	return fmt.Sprintf("fast (< %d) / accurate (>= %d)", threshold, threshold)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
