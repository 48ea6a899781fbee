package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/cache"
	"github.com/louaykahouli/CallCenter-Classifier/internal/classifier"
	"github.com/louaykahouli/CallCenter-Classifier/internal/complexity"
	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
	"github.com/louaykahouli/CallCenter-Classifier/internal/generate"
	"github.com/louaykahouli/CallCenter-Classifier/internal/router"
	"github.com/louaykahouli/CallCenter-Classifier/internal/store"
)

// scores 30 with the default calibration, below the default threshold
const simpleTicket = "Mon imprimante ne marche pas"

// memStore records saved conversations in memory and signals each save, so
// tests can wait for the background persistence consumer.
type memStore struct {
	mu      sync.Mutex
	records []domain.ConversationRecord
	saved   chan struct{}
}

func newMemStore() *memStore {
	return &memStore{saved: make(chan struct{}, 64)}
}

func (m *memStore) SaveConversation(ctx context.Context, rec *domain.ConversationRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	m.saved <- struct{}{}
	return int64(len(m.records)), nil
}

func (m *memStore) SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.ConversationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConversationRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].SessionID == sessionID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memStore) GlobalStats(ctx context.Context, days int) (*domain.GlobalStats, error) {
	return &domain.GlobalStats{PeriodDays: days}, nil
}

func (m *memStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) { return 0, nil }
func (m *memStore) Ping(ctx context.Context) error                             { return nil }
func (m *memStore) Close() error                                               { return nil }

func (m *memStore) waitForSaves(t *testing.T, n int) []domain.ConversationRecord {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.saved:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for save %d of %d", i+1, n)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ConversationRecord(nil), m.records...)
}

// stubGenerator returns a fixed explanation or error.
type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Explain(ctx context.Context, req generate.ExplainRequest) (string, error) {
	return g.text, g.err
}

// classifierServer answers both backend shapes and counts calls.
func classifierServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/predict":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"prediction":    "Hardware",
				"probabilities": map[string]float64{"Hardware": 0.8},
			})
		case "/classify":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"predicted_category": "Hardware",
				"all_predictions":    map[string]float64{"Hardware": 0.9},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestService(t *testing.T, classifierURL string, st store.Store, gen generate.Generator) *Service {
	t.Helper()
	scorer := complexity.NewScorer(complexity.DefaultCalibration())
	rt, err := router.New(scorer, router.DefaultThreshold)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	cl := classifier.New(classifier.Config{
		FastBaseURL:     classifierURL,
		AccurateBaseURL: classifierURL,
		Timeout:         2 * time.Second,
	})
	if gen == nil {
		gen = stubGenerator{err: generate.ErrNotConfigured}
	}
	svc := New(scorer, rt, cache.New(time.Minute), cl, gen, st, Config{QueueSize: 16}, nil)
	t.Cleanup(svc.Close)
	return svc
}

func TestPredictEmptyText(t *testing.T) {
	srv, _ := classifierServer(t)
	svc := newTestService(t, srv.URL, newMemStore(), nil)

	for _, text := range []string{"", "   "} {
		if _, err := svc.Predict(context.Background(), Request{Text: text}); !errors.Is(err, ErrEmptyText) {
			t.Errorf("Predict(%q) error = %v, want ErrEmptyText", text, err)
		}
	}
}

func TestPredictComposesResult(t *testing.T) {
	srv, _ := classifierServer(t)
	st := newMemStore()
	svc := newTestService(t, srv.URL, st, stubGenerator{text: "Réponse générée."})

	result, err := svc.Predict(context.Background(), Request{Text: simpleTicket})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if result.Prediction != "Hardware" {
		t.Errorf("prediction = %q, want Hardware", result.Prediction)
	}
	if result.ModelUsed != domain.BackendFast {
		t.Errorf("model = %q, want fast (score 30 below threshold)", result.ModelUsed)
	}
	if result.ComplexityAnalysis.Score != 30 || result.ComplexityAnalysis.Level != domain.LevelMedium {
		t.Errorf("complexity = %+v", result.ComplexityAnalysis)
	}
	if result.GeneratedResponse != "Réponse générée." {
		t.Errorf("generated response = %q", result.GeneratedResponse)
	}
	if result.SessionID == "" {
		t.Error("session id not generated")
	}
	if result.CacheHit {
		t.Error("first call reported as cache hit")
	}
	if !strings.Contains(result.Reasoning, "FAST") {
		t.Errorf("reasoning = %q, want the selected backend", result.Reasoning)
	}

	records := st.waitForSaves(t, 1)
	if records[0].SessionID != result.SessionID || records[0].Prediction != "Hardware" {
		t.Errorf("persisted record mismatch: %+v", records[0])
	}
}

func TestPredictCacheHitOnRepeat(t *testing.T) {
	srv, calls := classifierServer(t)
	st := newMemStore()
	svc := newTestService(t, srv.URL, st, nil)

	first, err := svc.Predict(context.Background(), Request{Text: simpleTicket, SessionID: "s1"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	second, err := svc.Predict(context.Background(), Request{Text: simpleTicket, SessionID: "s2"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if first.CacheHit {
		t.Error("first call reported as cache hit")
	}
	if !second.CacheHit {
		t.Error("second call not served from cache")
	}
	if calls.Load() != 1 {
		t.Errorf("classifier called %d times, want 1", calls.Load())
	}
	if second.SessionID != "s2" {
		t.Errorf("cached answer kept the original session id: %q", second.SessionID)
	}
	if second.Prediction != first.Prediction {
		t.Errorf("cached prediction diverged: %q vs %q", second.Prediction, first.Prediction)
	}

	// Both calls persist, cache hit included.
	records := st.waitForSaves(t, 2)
	if len(records) != 2 {
		t.Fatalf("persisted %d records, want 2", len(records))
	}
}

func TestPredictForcedBypassesCache(t *testing.T) {
	srv, calls := classifierServer(t)
	svc := newTestService(t, srv.URL, newMemStore(), nil)

	if _, err := svc.Predict(context.Background(), Request{Text: simpleTicket}); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	forced, err := svc.Predict(context.Background(), Request{Text: simpleTicket, ForceModel: "accurate"})
	if err != nil {
		t.Fatalf("Predict forced: %v", err)
	}
	if forced.CacheHit {
		t.Error("forced call served from cache")
	}
	if forced.ModelUsed != domain.BackendAccurate {
		t.Errorf("model = %q, want accurate", forced.ModelUsed)
	}
	if calls.Load() != 2 {
		t.Errorf("classifier called %d times, want 2 (forced call must not reuse cache)", calls.Load())
	}

	// The forced answer must not replace the organic cache entry.
	organic, err := svc.Predict(context.Background(), Request{Text: simpleTicket})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !organic.CacheHit {
		t.Error("organic entry lost after forced call")
	}
	if organic.ModelUsed != domain.BackendFast {
		t.Errorf("organic answer model = %q, want fast", organic.ModelUsed)
	}
}

func TestPredictUnknownOverride(t *testing.T) {
	srv, calls := classifierServer(t)
	svc := newTestService(t, srv.URL, newMemStore(), nil)

	_, err := svc.Predict(context.Background(), Request{Text: simpleTicket, ForceModel: "gpt4"})
	if !errors.Is(err, router.ErrUnknownBackend) {
		t.Fatalf("error = %v, want ErrUnknownBackend", err)
	}
	if calls.Load() != 0 {
		t.Errorf("classifier called %d times for rejected override, want 0", calls.Load())
	}
}

func TestPredictClassifierFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	st := newMemStore()
	svc := newTestService(t, srv.URL, st, nil)

	_, err := svc.Predict(context.Background(), Request{Text: simpleTicket})
	var statusErr *classifier.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}

	// Failed requests are neither cached nor persisted.
	if _, ok := svc.cache.Get(strings.TrimSpace(simpleTicket), ""); ok {
		t.Error("failed request left a cache entry")
	}
	select {
	case <-st.saved:
		t.Error("failed request persisted a record")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPredictExplanationFallback(t *testing.T) {
	srv, _ := classifierServer(t)
	svc := newTestService(t, srv.URL, newMemStore(), stubGenerator{err: errors.New("api down")})

	result, err := svc.Predict(context.Background(), Request{Text: simpleTicket})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !strings.Contains(result.GeneratedResponse, "J'ai analysé votre demande") {
		t.Errorf("generated response = %q, want templated fallback", result.GeneratedResponse)
	}
}

func TestPredictKeepsCallerSessionID(t *testing.T) {
	srv, _ := classifierServer(t)
	svc := newTestService(t, srv.URL, newMemStore(), nil)

	result, err := svc.Predict(context.Background(), Request{Text: simpleTicket, SessionID: "caller-session"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if result.SessionID != "caller-session" {
		t.Errorf("session id = %q, want caller-session", result.SessionID)
	}
}

func TestAnalyze(t *testing.T) {
	srv, calls := classifierServer(t)
	svc := newTestService(t, srv.URL, newMemStore(), nil)

	analysis, err := svc.Analyze(simpleTicket)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.ComplexityScore != 30 {
		t.Errorf("score = %d, want 30", analysis.ComplexityScore)
	}
	if analysis.RecommendedBackend != domain.BackendFast {
		t.Errorf("recommendation = %q, want fast", analysis.RecommendedBackend)
	}
	if calls.Load() != 0 {
		t.Errorf("classifier called %d times by Analyze, want 0", calls.Load())
	}

	if _, err := svc.Analyze("  "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Analyze(blank) error = %v, want ErrEmptyText", err)
	}
}

func TestAnalyzeTruncatesDisplayText(t *testing.T) {
	srv, _ := classifierServer(t)
	svc := newTestService(t, srv.URL, newMemStore(), nil)

	long := strings.Repeat("panne serveur ", 20)
	analysis, err := svc.Analyze(long)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.HasSuffix(analysis.Text, "...") {
		t.Errorf("long text not truncated: %q", analysis.Text)
	}
	if len(analysis.Text) != 103 {
		t.Errorf("display length = %d, want 100 + ellipsis", len(analysis.Text))
	}
}
