package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

// ErrNotConfigured is returned when the completion collaborator is disabled
// or missing its credential; callers fall back to FallbackText.
var ErrNotConfigured = errors.New("completion generator not configured")

// Config holds the completion collaborator's endpoint and call budget. The
// timeout is deliberately shorter than the classifier timeout: a slow
// explanation is replaced by the fallback, never waited out.
type Config struct {
	APIURL  string
	APIKey  string
	Model   string
	Enabled bool
	Timeout time.Duration
}

// CompletionClient implements Generator against an OpenAI-style
// chat-completions endpoint.
type CompletionClient struct {
	cfg    Config
	client *http.Client
}

var _ Generator = (*CompletionClient)(nil)

// NewCompletionClient creates a completion-backed generator.
func NewCompletionClient(cfg Config) *CompletionClient {
	return &CompletionClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages    []completionMessage `json:"messages"`
	Model       string              `json:"model"`
	Stream      bool                `json:"stream"`
	Temperature float64             `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

// Explain asks the collaborator for a natural-language explanation. Any
// failure is returned to the caller, which substitutes the templated
// fallback; an explanation failure never fails the request.
func (c *CompletionClient) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	if !c.cfg.Enabled || c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(completionRequest{
		Messages: []completionMessage{
			{
				Role:    "system",
				Content: "Tu es un assistant IA professionnel pour un centre d'appels IT. Réponds de manière claire, concise et utile.",
			},
			{
				Role:    "user",
				Content: c.prompt(req),
			},
		},
		Model:       c.cfg.Model,
		Stream:      false,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API status %d: %s", resp.StatusCode, respBody)
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// prompt builds the French generation prompt from the ticket and its
// classification.
func (c *CompletionClient) prompt(req ExplainRequest) string {
	backendLabel := "Transformer (précis)"
	if req.Backend == domain.BackendFast {
		backendLabel = "TF-IDF/SVM (rapide)"
	}

	var top strings.Builder
	for _, sc := range topPredictions(req.Probabilities, 3) {
		fmt.Fprintf(&top, "- %s: %.1f%%\n", sc.Category, sc.Probability*100)
	}

	return fmt.Sprintf(`Tu es un assistant IA intelligent pour un centre d'appels IT.

Un ticket vient d'être analysé avec les résultats suivants:

TICKET: %q

RÉSULTATS DE L'ANALYSE:
- Catégorie prédite: %s
- Confiance: %.1f%%
- Modèle utilisé: %s
- Score de complexité: %d/100 (%s)

TOP 3 PRÉDICTIONS:
%s
GÉNÈRE une réponse professionnelle et utile pour l'utilisateur qui contient:
1. Une confirmation que tu as compris sa demande
2. La catégorie identifiée et pourquoi
3. Une recommandation concrète ou prochaine étape
4. Un ton sympathique et rassurant

Réponds en français, en 3-4 phrases maximum, format texte brut (pas de markdown).`,
		req.Text, req.Prediction, confidence(req), backendLabel,
		req.ComplexityScore, req.ComplexityLevel, top.String())
}
