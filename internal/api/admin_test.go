package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

func getJSON(t *testing.T, env *testEnv, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)
	return w.Result()
}

func TestSessionHistoryEndpoint(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)
	env.store.history = []domain.ConversationRecord{
		{ID: 2, SessionID: "s1", Prediction: "Hardware", Timestamp: time.Now()},
		{ID: 1, SessionID: "s1", Prediction: "Access", Timestamp: time.Now().Add(-time.Minute)},
		{ID: 3, SessionID: "s2", Prediction: "Storage", Timestamp: time.Now()},
	}

	resp := getJSON(t, env, "/api/sessions/s1/history")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		SessionID     string                      `json:"session_id"`
		Count         int                         `json:"count"`
		Conversations []domain.ConversationRecord `json:"conversations"`
	}
	decodeBody(t, resp, &got)

	if got.SessionID != "s1" {
		t.Errorf("session id = %q, want s1", got.SessionID)
	}
	if got.Count != 2 || len(got.Conversations) != 2 {
		t.Errorf("count = %d with %d records, want 2", got.Count, len(got.Conversations))
	}
}

func TestSessionHistoryEndpointLimit(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)
	for i := 0; i < 5; i++ {
		env.store.history = append(env.store.history, domain.ConversationRecord{
			ID: int64(i + 1), SessionID: "s1",
		})
	}

	resp := getJSON(t, env, "/api/sessions/s1/history?limit=2")
	var got struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &got)
	if got.Count != 2 {
		t.Errorf("count = %d with limit=2, want 2", got.Count)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)

	// Route something so the usage counters are non-empty.
	resp := postJSON(t, env, "/api/predict", `{"text": "Mon imprimante ne marche pas"}`)
	resp.Body.Close()

	resp = getJSON(t, env, "/api/stats?days=14")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Statistics struct {
			TotalRequests int64 `json:"total_requests"`
		} `json:"statistics"`
		Conversations struct {
			PeriodDays         int   `json:"period_days"`
			TotalConversations int64 `json:"total_conversations"`
		} `json:"conversations"`
		Configuration struct {
			ComplexityThreshold int    `json:"complexity_threshold"`
			RoutingStrategy     string `json:"routing_strategy"`
		} `json:"configuration"`
	}
	decodeBody(t, resp, &got)

	if got.Statistics.TotalRequests != 1 {
		t.Errorf("total requests = %d, want 1", got.Statistics.TotalRequests)
	}
	if got.Conversations.PeriodDays != 14 {
		t.Errorf("period = %d, want the requested 14", got.Conversations.PeriodDays)
	}
	if got.Conversations.TotalConversations != 12 {
		t.Errorf("total conversations = %d, want the store's 12", got.Conversations.TotalConversations)
	}
	if got.Configuration.ComplexityThreshold != 35 {
		t.Errorf("threshold = %d, want 35", got.Configuration.ComplexityThreshold)
	}
	if got.Configuration.RoutingStrategy == "" {
		t.Error("routing strategy missing")
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)

	// Populate the cache through a prediction.
	resp := postJSON(t, env, "/api/predict", `{"text": "Mon imprimante ne marche pas"}`)
	resp.Body.Close()

	resp = getJSON(t, env, "/api/cache/stats")
	var stats struct {
		TotalEntries int `json:"total_entries"`
	}
	decodeBody(t, resp, &stats)
	if stats.TotalEntries != 1 {
		t.Errorf("total entries = %d, want 1", stats.TotalEntries)
	}

	resp = postJSON(t, env, "/api/cache/cleanup", "")
	var cleanup struct {
		EntriesRemoved int `json:"entries_removed"`
	}
	decodeBody(t, resp, &cleanup)
	if cleanup.EntriesRemoved != 0 {
		t.Errorf("cleanup removed %d fresh entries, want 0", cleanup.EntriesRemoved)
	}

	resp = postJSON(t, env, "/api/cache/clear", "")
	var clear struct {
		EntriesRemoved int `json:"entries_removed"`
	}
	decodeBody(t, resp, &clear)
	if clear.EntriesRemoved != 1 {
		t.Errorf("clear removed %d, want 1", clear.EntriesRemoved)
	}

	if env.cache.Stats().TotalEntries != 0 {
		t.Error("cache not empty after clear")
	}
}

func TestUpdateThresholdEndpoint(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)

	resp := postJSON(t, env, "/api/config/threshold", `{"threshold": 60}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		OldThreshold int `json:"old_threshold"`
		NewThreshold int `json:"new_threshold"`
	}
	decodeBody(t, resp, &got)
	if got.OldThreshold != 35 || got.NewThreshold != 60 {
		t.Errorf("thresholds = %d -> %d, want 35 -> 60", got.OldThreshold, got.NewThreshold)
	}
	if env.router.Threshold() != 60 {
		t.Errorf("router threshold = %d, want 60", env.router.Threshold())
	}
}

func TestUpdateThresholdEndpointRejectsOutOfRange(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)

	for _, body := range []string{`{"threshold": -1}`, `{"threshold": 101}`} {
		resp := postJSON(t, env, "/api/config/threshold", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d for %s, want 400", resp.StatusCode, body)
		}
		resp.Body.Close()
	}
	if env.router.Threshold() != 35 {
		t.Errorf("threshold = %d after rejected updates, want 35", env.router.Threshold())
	}
}

func TestPurgeEndpoint(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)

	resp := postJSON(t, env, "/api/maintenance/purge", `{"days": 90}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Days    int   `json:"days"`
		Deleted int64 `json:"deleted"`
	}
	decodeBody(t, resp, &got)
	if got.Days != 90 || got.Deleted != 7 {
		t.Errorf("days/deleted = %d/%d, want 90/7", got.Days, got.Deleted)
	}
	if env.store.purgeDays != 90 {
		t.Errorf("store purged %d days, want 90", env.store.purgeDays)
	}
}

func TestPurgeEndpointDefaultsDays(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)

	resp := postJSON(t, env, "/api/maintenance/purge", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got struct {
		Days int `json:"days"`
	}
	decodeBody(t, resp, &got)
	if got.Days != 30 {
		t.Errorf("days = %d, want the default 30", got.Days)
	}
}

func TestPurgeEndpointRejectsNonPositiveDays(t *testing.T) {
	srv := newClassifierStub(t)
	env := newTestEnv(t, srv.URL)

	resp := postJSON(t, env, "/api/maintenance/purge", `{"days": 0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
