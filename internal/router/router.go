// Package router selects which classification backend serves a ticket.
package router

import (
	"fmt"
	"strings"
	"sync"

	"github.com/louaykahouli/CallCenter-Classifier/internal/complexity"
	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

// DefaultThreshold is the complexity score at which routing switches from the
// fast to the accurate backend.
const DefaultThreshold = 35

// ErrUnknownBackend is returned when a forced override names neither backend.
var ErrUnknownBackend = fmt.Errorf("unknown backend")

// ErrThresholdRange is returned when a threshold update falls outside [0,100].
var ErrThresholdRange = fmt.Errorf("threshold must be between 0 and 100")

// Usage is a snapshot of routing counters since process start.
type Usage struct {
	TotalRequests int64                 `json:"total_requests"`
	ByBackend     map[string]UsageEntry `json:"by_backend"`
	ByComplexity  map[string]UsageEntry `json:"by_complexity"`
}

// UsageEntry is one counter with its share of the total.
type UsageEntry struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Router decides between the fast and accurate backends from a complexity
// score and keeps process-lifetime usage counters. Counters are instance
// state, not globals, so tests can build isolated routers.
type Router struct {
	scorer *complexity.Scorer

	mu           sync.Mutex
	threshold    int
	total        int64
	byBackend    map[string]int64
	byComplexity map[string]int64
}

// New creates a Router with the given scorer and initial threshold.
func New(scorer *complexity.Scorer, threshold int) (*Router, error) {
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("%w, got %d", ErrThresholdRange, threshold)
	}
	return &Router{
		scorer:       scorer,
		threshold:    threshold,
		byBackend:    make(map[string]int64),
		byComplexity: make(map[string]int64),
	}, nil
}

// Decide scores text and selects a backend. A non-empty override naming a
// known backend is used verbatim and marks the decision as forced; an unknown
// override fails with ErrUnknownBackend before any downstream work.
func (r *Router) Decide(text, override string) (domain.RoutingDecision, error) {
	score, breakdown := r.scorer.Score(text)
	level := r.scorer.Level(score)
	reasoning := r.scorer.Reasoning(score, level, breakdown)

	decision := domain.RoutingDecision{
		Score:     score,
		Level:     level,
		Breakdown: breakdown,
	}

	if override != "" {
		backend := strings.ToLower(strings.TrimSpace(override))
		if !domain.KnownBackend(backend) {
			return domain.RoutingDecision{}, fmt.Errorf("%w: %q", ErrUnknownBackend, override)
		}
		decision.Backend = backend
		decision.Forced = true
		decision.Reasoning = fmt.Sprintf("Modèle forcé par l'appelant → %s", backend)
		r.record(backend, level)
		return decision, nil
	}

	threshold := r.Threshold()
	if score < threshold {
		decision.Backend = domain.BackendFast
	} else {
		decision.Backend = domain.BackendAccurate
	}
	decision.Reasoning = fmt.Sprintf("%s → Modèle utilisé: %s", reasoning, strings.ToUpper(decision.Backend))

	r.record(decision.Backend, level)
	return decision, nil
}

// Threshold returns the current routing threshold.
func (r *Router) Threshold() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// SetThreshold updates the routing threshold. Values outside [0,100] are
// rejected and leave the previous threshold in effect.
func (r *Router) SetThreshold(n int) error {
	if n < 0 || n > 100 {
		return fmt.Errorf("%w, got %d", ErrThresholdRange, n)
	}
	r.mu.Lock()
	r.threshold = n
	r.mu.Unlock()
	return nil
}

func (r *Router) record(backend, level string) {
	r.mu.Lock()
	r.total++
	r.byBackend[backend]++
	r.byComplexity[level]++
	r.mu.Unlock()
}

// Usage returns a snapshot of the routing counters with percentages.
func (r *Router) Usage() Usage {
	r.mu.Lock()
	defer r.mu.Unlock()

	usage := Usage{
		TotalRequests: r.total,
		ByBackend:     make(map[string]UsageEntry, len(r.byBackend)),
		ByComplexity:  make(map[string]UsageEntry, len(r.byComplexity)),
	}
	for backend, count := range r.byBackend {
		usage.ByBackend[backend] = usageEntry(count, r.total)
	}
	for level, count := range r.byComplexity {
		usage.ByComplexity[level] = usageEntry(count, r.total)
	}
	return usage
}

func usageEntry(count, total int64) UsageEntry {
	entry := UsageEntry{Count: count}
	if total > 0 {
		entry.Percentage = float64(count) / float64(total) * 100
		entry.Percentage = float64(int(entry.Percentage*100)) / 100
	}
	return entry
}
