// Package classifier calls the two downstream classification services and
// normalizes their differing response shapes into one internal form.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

var (
	// ErrTimeout marks a classification call that exceeded its deadline.
	ErrTimeout = errors.New("classifier timed out")
	// ErrUnreachable marks a transport-level failure reaching a classifier.
	ErrUnreachable = errors.New("classifier unreachable")
)

// StatusError is a non-success HTTP answer from a classifier, carrying the
// downstream status and body so the caller can surface them.
type StatusError struct {
	Backend string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classifier %s returned status %d: %s", e.Backend, e.Status, e.Body)
}

// predictRequest is the shared request body for both classifiers.
type predictRequest struct {
	Text string `json:"text"`
}

// fastResponse is the TF-IDF/SVM service's answer shape.
type fastResponse struct {
	Input         string             `json:"input"`
	Prediction    string             `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// accurateResponse is the Transformer service's answer shape.
type accurateResponse struct {
	Text              string             `json:"text"`
	PredictedCategory string             `json:"predicted_category"`
	Prediction        string             `json:"prediction"`
	Confidence        float64            `json:"confidence"`
	AllPredictions    map[string]float64 `json:"all_predictions"`
	Probabilities     map[string]float64 `json:"probabilities"`
}

// Config holds the endpoints and call budget for both classifiers.
type Config struct {
	FastBaseURL     string // TF-IDF/SVM service, POST {base}/predict
	AccurateBaseURL string // Transformer service, POST {base}/classify
	Timeout         time.Duration
}

// Client calls the classification backends over HTTP.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a classifier client. The per-call timeout lives on the request
// context rather than the http.Client so a caller cancellation aborts the
// in-flight call immediately.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (c *Client) endpoint(backend string) (string, error) {
	switch backend {
	case domain.BackendFast:
		return c.cfg.FastBaseURL + "/predict", nil
	case domain.BackendAccurate:
		return c.cfg.AccurateBaseURL + "/classify", nil
	default:
		return "", fmt.Errorf("no endpoint for backend %q", backend)
	}
}

// Classify sends text to the given backend and returns the normalized result.
// Errors are typed: deadline → ErrTimeout, transport → ErrUnreachable,
// non-2xx → *StatusError. Caller context cancellation is passed through.
func (c *Client) Classify(ctx context.Context, backend, text string) (domain.Classification, error) {
	url, err := c.endpoint(backend)
	if err != nil {
		return domain.Classification{}, err
	}

	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// The caller went away; do not reclassify as a backend failure.
			return domain.Classification{}, fmt.Errorf("classify %s: %w", backend, ctx.Err())
		case errors.Is(err, context.DeadlineExceeded):
			return domain.Classification{}, fmt.Errorf("classify %s: %w: %v", backend, ErrTimeout, err)
		default:
			return domain.Classification{}, fmt.Errorf("classify %s: %w: %v", backend, ErrUnreachable, err)
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify %s: read response: %w", backend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Classification{}, &StatusError{
			Backend: backend,
			Status:  resp.StatusCode,
			Body:    string(respBody),
		}
	}

	return normalize(backend, respBody)
}

// normalize maps either service's field names onto domain.Classification.
func normalize(backend string, body []byte) (domain.Classification, error) {
	if backend == domain.BackendFast {
		var fast fastResponse
		if err := json.Unmarshal(body, &fast); err != nil {
			return domain.Classification{}, fmt.Errorf("decode %s response: %w", backend, err)
		}
		return domain.Classification{
			Prediction:    fast.Prediction,
			Probabilities: fast.Probabilities,
		}, nil
	}

	var acc accurateResponse
	if err := json.Unmarshal(body, &acc); err != nil {
		return domain.Classification{}, fmt.Errorf("decode %s response: %w", backend, err)
	}
	prediction := acc.PredictedCategory
	if prediction == "" {
		prediction = acc.Prediction
	}
	probabilities := acc.AllPredictions
	if probabilities == nil {
		probabilities = acc.Probabilities
	}
	if probabilities == nil {
		probabilities = map[string]float64{}
	}
	return domain.Classification{
		Prediction:    prediction,
		Probabilities: probabilities,
	}, nil
}

// Healthy probes a backend's health endpoint. It returns nil on HTTP 200.
func (c *Client) Healthy(ctx context.Context, backend string) error {
	var base string
	switch backend {
	case domain.BackendFast:
		base = c.cfg.FastBaseURL
	case domain.BackendAccurate:
		base = c.cfg.AccurateBaseURL
	default:
		return fmt.Errorf("no endpoint for backend %q", backend)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe %s: %w: %v", backend, ErrUnreachable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe %s: status %d", backend, resp.StatusCode)
	}
	return nil
}
