package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/louaykahouli/CallCenter-Classifier/internal/agent"
	"github.com/louaykahouli/CallCenter-Classifier/internal/classifier"
	"github.com/louaykahouli/CallCenter-Classifier/internal/router"
)

// predictRequest is the caller-facing prediction request body.
type predictRequest struct {
	Text              string `json:"text"`
	ForceModel        string `json:"force_model,omitempty"`
	SessionID         string `json:"session_id,omitempty"`
	ConversationTitle string `json:"conversation_title,omitempty"`
}

// Predict classifies a ticket, routing it by complexity unless a backend is
// forced, and returns the fully composed result.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.svc.Predict(r.Context(), agent.Request{
		Text:       req.Text,
		ForceModel: req.ForceModel,
		SessionID:  req.SessionID,
		Title:      req.ConversationTitle,
	})
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

// writePredictError maps pipeline errors onto the caller-facing taxonomy.
func (h *Handler) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *classifier.StatusError

	switch {
	case errors.Is(err, agent.ErrEmptyText):
		Error(w, http.StatusBadRequest, "text must not be empty")
	case errors.Is(err, router.ErrUnknownBackend):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, classifier.ErrTimeout):
		Error(w, http.StatusGatewayTimeout, "classification backend did not answer in time")
	case errors.As(err, &statusErr):
		// Surface the downstream status and body, as the caller cannot be
		// answered without a classification.
		Error(w, statusErr.Status, statusErr.Error())
	case errors.Is(err, classifier.ErrUnreachable):
		Error(w, http.StatusServiceUnavailable, "classification backend unreachable")
	default:
		slog.Error("Prediction failed", "error", err, "path", r.URL.Path)
		Error(w, http.StatusInternalServerError, "prediction failed")
	}
}

// analyzeRequest is the analysis-only request body.
type analyzeRequest struct {
	Text string `json:"text"`
}

// Analyze returns the complexity breakdown and routing recommendation for a
// ticket without calling any downstream classifier.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	analysis, err := h.svc.Analyze(req.Text)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyText) {
			Error(w, http.StatusBadRequest, "text must not be empty")
			return
		}
		slog.Error("Analysis failed", "error", err)
		Error(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	JSON(w, http.StatusOK, analysis)
}
