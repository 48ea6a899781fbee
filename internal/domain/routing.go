package domain

// Backend identifiers for the two downstream classification services.
const (
	BackendFast     = "fast"     // TF-IDF/SVM, lightweight lexical classifier
	BackendAccurate = "accurate" // Transformer, deep-learning classifier
)

// KnownBackend reports whether name identifies one of the two classifiers.
func KnownBackend(name string) bool {
	return name == BackendFast || name == BackendAccurate
}

// RoutingDecision is the outcome of routing one request. It lives for the
// duration of that request only.
type RoutingDecision struct {
	Backend   string              `json:"backend"`
	Score     int                 `json:"score"`
	Level     string              `json:"level"`
	Forced    bool                `json:"forced"`
	Reasoning string              `json:"reasoning"`
	Breakdown ComplexityBreakdown `json:"breakdown"`
}
