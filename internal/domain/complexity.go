// Package domain defines the core value types shared across the service.
package domain

// ComplexityBreakdown holds the per-criterion sub-scores behind a global
// complexity score. It is computed fresh for every request and never mutated.
type ComplexityBreakdown struct {
	LengthScore     float64 `json:"length_score"`
	VocabularyScore float64 `json:"vocabulary_score"`
	StructureScore  float64 `json:"structure_score"`
	AmbiguityScore  float64 `json:"ambiguity_score"`
	GlobalScore     int     `json:"global_score"`
	WordCount       int     `json:"word_count"`
	TextLength      int     `json:"text_length"`
	Empty           bool    `json:"empty,omitempty"`
}

// Complexity levels as exposed to callers and persisted with each record.
const (
	LevelSimple  = "simple"
	LevelMedium  = "medium"
	LevelComplex = "complex"
)
