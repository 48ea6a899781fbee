package domain

// Classification is the normalized answer from either downstream classifier.
// The two services name their fields differently; the classifier client maps
// both shapes onto this one.
type Classification struct {
	Prediction    string             `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Confidence returns the probability of the predicted label, or the highest
// probability when the prediction is missing from the distribution.
func (c Classification) Confidence() float64 {
	if p, ok := c.Probabilities[c.Prediction]; ok {
		return p
	}
	var max float64
	for _, p := range c.Probabilities {
		if p > max {
			max = p
		}
	}
	return max
}

// ComplexityAnalysis groups the score, level and breakdown as returned to
// callers alongside a prediction.
type ComplexityAnalysis struct {
	Score     int                 `json:"score"`
	Level     string              `json:"level"`
	Breakdown ComplexityBreakdown `json:"details"`
}

// PredictionResult is the full composed answer for one ticket. It is what the
// response cache stores and what the predict endpoint serializes.
type PredictionResult struct {
	Input              string             `json:"input"`
	Prediction         string             `json:"prediction"`
	Probabilities      map[string]float64 `json:"probabilities"`
	ModelUsed          string             `json:"model_used"`
	ComplexityAnalysis ComplexityAnalysis `json:"complexity_analysis"`
	Reasoning          string             `json:"reasoning"`
	GeneratedResponse  string             `json:"generated_response"`
	SessionID          string             `json:"session_id"`
	CacheHit           bool               `json:"cache_hit"`
	ResponseTime       float64            `json:"response_time"`
}
