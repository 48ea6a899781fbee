package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

var explainReq = ExplainRequest{
	Text:       "mon imprimante ne marche pas",
	Prediction: "Hardware",
	Probabilities: map[string]float64{
		"Hardware": 0.85,
		"Storage":  0.10,
		"Access":   0.05,
	},
	Backend:         domain.BackendFast,
	ComplexityScore: 30,
	ComplexityLevel: domain.LevelMedium,
}

func TestExplainNotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"disabled", Config{Enabled: false, APIKey: "k", Timeout: time.Second}},
		{"missing key", Config{Enabled: true, APIKey: "", Timeout: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompletionClient(tt.cfg).Explain(context.Background(), explainReq)
			if !errors.Is(err, ErrNotConfigured) {
				t.Errorf("error = %v, want ErrNotConfigured", err)
			}
		})
	}
}

func TestExplainSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}

		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if req.Stream {
			t.Error("stream requested, want false")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "Hardware") {
			t.Error("prompt does not carry the predicted category")
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  Votre imprimante sera réparée.  "}},
			},
		})
	}))
	defer srv.Close()

	c := NewCompletionClient(Config{
		APIURL:  srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Enabled: true,
		Timeout: 2 * time.Second,
	})

	got, err := c.Explain(context.Background(), explainReq)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got != "Votre imprimante sera réparée." {
		t.Errorf("explanation = %q, want trimmed content", got)
	}
}

func TestExplainUpstreamFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"non-200 status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
		},
		{
			"empty choices",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewCompletionClient(Config{
				APIURL:  srv.URL,
				APIKey:  "test-key",
				Enabled: true,
				Timeout: 2 * time.Second,
			})
			if _, err := c.Explain(context.Background(), explainReq); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPromptContent(t *testing.T) {
	c := NewCompletionClient(Config{Model: "m"})
	got := c.prompt(explainReq)

	for _, want := range []string{
		"mon imprimante ne marche pas",
		"Catégorie prédite: Hardware",
		"85.0%",
		"TF-IDF/SVM (rapide)",
		"30/100",
		"- Hardware: 85.0%",
		"- Storage: 10.0%",
		"- Access: 5.0%",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
