// Package agent orchestrates the full prediction pipeline: cache lookup,
// routing, downstream classification, explanation generation, write-through
// caching and background persistence.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/louaykahouli/CallCenter-Classifier/internal/cache"
	"github.com/louaykahouli/CallCenter-Classifier/internal/classifier"
	"github.com/louaykahouli/CallCenter-Classifier/internal/complexity"
	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
	"github.com/louaykahouli/CallCenter-Classifier/internal/generate"
	"github.com/louaykahouli/CallCenter-Classifier/internal/router"
	"github.com/louaykahouli/CallCenter-Classifier/internal/store"
)

// ErrEmptyText rejects requests carrying no ticket text. It is surfaced to
// the caller as a client error before any downstream work.
var ErrEmptyText = errors.New("text must not be empty")

// Request is one prediction request as received from the caller.
type Request struct {
	Text       string
	ForceModel string
	SessionID  string
	Title      string
}

// Analysis is the answer of the analysis-only operation: complexity and a
// routing recommendation, with no downstream classifier involved.
type Analysis struct {
	Text               string                     `json:"text"`
	ComplexityScore    int                        `json:"complexity_score"`
	ComplexityLevel    string                     `json:"complexity_level"`
	RecommendedBackend string                     `json:"recommended_model"`
	Details            domain.ComplexityBreakdown `json:"details"`
	Reasoning          string                     `json:"reasoning"`
}

// Service wires the pipeline's collaborators together. All state it touches
// (cache, router counters) is owned by the injected components, so tests can
// build fully isolated instances.
type Service struct {
	scorer     *complexity.Scorer
	router     *router.Router
	cache      *cache.Cache
	classifier *classifier.Client
	generator  generate.Generator
	queue      *persistQueue
}

// Config bounds the background persistence queue.
type Config struct {
	QueueSize int
}

// New creates the orchestrator service and starts its persistence consumer.
func New(scorer *complexity.Scorer, rt *router.Router, c *cache.Cache, cl *classifier.Client, gen generate.Generator, st store.Store, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Service{
		scorer:     scorer,
		router:     rt,
		cache:      c,
		classifier: cl,
		generator:  gen,
		queue:      newPersistQueue(st, queueSize, logger),
	}
}

// Predict runs the full pipeline for one ticket. Upstream classifier failures
// are returned typed so the handler can map them; explanation and persistence
// failures are recovered locally and never surface.
func (s *Service) Predict(ctx context.Context, req Request) (*domain.PredictionResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	start := time.Now()

	// Forced routing bypasses the cache in both directions: it must be
	// freshly computed and must not pollute organic traffic.
	if req.ForceModel == "" {
		if cached, ok := s.cache.Get(text, ""); ok {
			result := *cached
			result.SessionID = sessionID
			result.CacheHit = true
			result.ResponseTime = time.Since(start).Seconds()
			s.persist(&result, req.Title)
			return &result, nil
		}
	}

	decision, err := s.router.Decide(text, req.ForceModel)
	if err != nil {
		return nil, err
	}

	classification, err := s.classifier.Classify(ctx, decision.Backend, text)
	if err != nil {
		slog.Error("Classification failed",
			"session_id", sessionID,
			"backend", decision.Backend,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, err
	}

	explainReq := generate.ExplainRequest{
		Text:            text,
		Prediction:      classification.Prediction,
		Probabilities:   classification.Probabilities,
		Backend:         decision.Backend,
		ComplexityScore: decision.Score,
		ComplexityLevel: decision.Level,
	}
	explanation, err := s.generator.Explain(ctx, explainReq)
	if err != nil {
		if !errors.Is(err, generate.ErrNotConfigured) {
			slog.Warn("Explanation generation failed, using fallback",
				"session_id", sessionID,
				"backend", decision.Backend,
				"error", err)
		}
		explanation = generate.FallbackText(explainReq)
	}

	result := &domain.PredictionResult{
		Input:         text,
		Prediction:    classification.Prediction,
		Probabilities: classification.Probabilities,
		ModelUsed:     decision.Backend,
		ComplexityAnalysis: domain.ComplexityAnalysis{
			Score:     decision.Score,
			Level:     decision.Level,
			Breakdown: decision.Breakdown,
		},
		Reasoning:         decision.Reasoning,
		GeneratedResponse: explanation,
		SessionID:         sessionID,
		ResponseTime:      time.Since(start).Seconds(),
	}

	if !decision.Forced {
		s.cache.Set(text, result, "")
	}

	s.persist(result, req.Title)
	return result, nil
}

// Analyze scores a ticket and reports which backend routing would pick,
// without calling any downstream service or touching usage counters.
func (s *Service) Analyze(text string) (*Analysis, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil, ErrEmptyText
	}

	score, breakdown := s.scorer.Score(clean)
	level := s.scorer.Level(score)

	recommended := domain.BackendAccurate
	if score < s.router.Threshold() {
		recommended = domain.BackendFast
	}

	display := clean
	if len(display) > 100 {
		display = display[:100] + "..."
	}

	return &Analysis{
		Text:               display,
		ComplexityScore:    score,
		ComplexityLevel:    level,
		RecommendedBackend: recommended,
		Details:            breakdown,
		Reasoning:          s.scorer.Reasoning(score, level, breakdown),
	}, nil
}

// persist enqueues one conversation record. Every served request, cache hit
// or not, produces exactly one record unless the queue is saturated.
func (s *Service) persist(result *domain.PredictionResult, title string) {
	s.queue.Enqueue(&domain.ConversationRecord{
		SessionID:         result.SessionID,
		Title:             title,
		Timestamp:         time.Now(),
		InputText:         result.Input,
		Prediction:        result.Prediction,
		ModelUsed:         result.ModelUsed,
		ComplexityScore:   result.ComplexityAnalysis.Score,
		ComplexityLevel:   result.ComplexityAnalysis.Level,
		Probabilities:     result.Probabilities,
		ResponseTime:      result.ResponseTime,
		GeneratedResponse: result.GeneratedResponse,
	})
}

// Close drains the persistence queue. Call once, after the HTTP server has
// stopped accepting requests.
func (s *Service) Close() {
	s.queue.Close()
}

// QueueDepth exposes the pending persistence backlog, for the health surface.
func (s *Service) QueueDepth() int {
	return s.queue.Depth()
}
