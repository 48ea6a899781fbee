// Package complexity estimates how linguistically demanding a support ticket
// is on a 0-100 scale. Scoring is pure and deterministic: no I/O, no state,
// identical input always yields an identical score and breakdown.
package complexity

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

var sentenceRe = regexp.MustCompile(`[.!?]+`)

// Punctuation counted as "complex" by the structure criterion.
const complexPunctuation = `,;:()«»"`

// Scorer computes complexity scores from a fixed calibration.
type Scorer struct {
	cal Calibration
}

// NewScorer creates a scorer. A zero-value calibration is rejected by
// Calibration.Validate at load time, so cal is assumed usable here.
func NewScorer(cal Calibration) *Scorer {
	return &Scorer{cal: cal}
}

// Score analyzes text and returns the weighted global score with its
// breakdown. Empty or whitespace-only input scores 0 with the breakdown
// flagged Empty; it never returns an error that would abort the pipeline.
func (s *Scorer) Score(text string) (int, domain.ComplexityBreakdown) {
	clean := strings.TrimSpace(strings.ToLower(text))
	if clean == "" {
		return 0, domain.ComplexityBreakdown{Empty: true}
	}

	words := strings.Fields(clean)

	length := s.lengthScore(len(words))
	vocab := s.vocabularyScore(words)
	structure := s.structureScore(clean)
	ambiguity := s.ambiguityScore(clean, words)

	w := s.cal.Weights
	global := length*w.Length + vocab*w.Vocabulary + structure*w.Structure + ambiguity*w.Ambiguity
	score := int(math.Round(clampScore(global)))

	return score, domain.ComplexityBreakdown{
		LengthScore:     round2(length),
		VocabularyScore: round2(vocab),
		StructureScore:  round2(structure),
		AmbiguityScore:  round2(ambiguity),
		GlobalScore:     score,
		WordCount:       len(words),
		TextLength:      len(clean),
	}
}

// Level maps a score to its complexity level using the calibrated boundaries.
func (s *Scorer) Level(score int) string {
	switch {
	case score < s.cal.SimpleMax:
		return domain.LevelSimple
	case score < s.cal.MediumMax:
		return domain.LevelMedium
	default:
		return domain.LevelComplex
	}
}

// Reasoning renders a human-readable justification for a score. The service
// answers in French, matching the classifiers' ticket corpus.
func (s *Scorer) Reasoning(score int, level string, b domain.ComplexityBreakdown) string {
	var reasons []string

	switch level {
	case domain.LevelSimple:
		reasons = append(reasons,
			fmt.Sprintf("Texte simple (score %d/100)", score),
			"Requête courte et directe")
	case domain.LevelMedium:
		reasons = append(reasons,
			fmt.Sprintf("Texte de complexité moyenne (score %d/100)", score),
			fmt.Sprintf("%d mots avec vocabulaire modéré", b.WordCount))
	default:
		reasons = append(reasons,
			fmt.Sprintf("Texte complexe (score %d/100)", score),
			"Requête longue avec contexte détaillé")
	}

	if b.VocabularyScore > 70 {
		reasons = append(reasons, "Vocabulaire technique important")
	}
	if b.StructureScore > 70 {
		reasons = append(reasons, "Structure grammaticale complexe")
	}

	return strings.Join(reasons, " | ")
}

// lengthScore is a monotone piecewise-linear function of word count with
// breakpoints at 5, 15, 30 and 50 words.
func (s *Scorer) lengthScore(wordCount int) float64 {
	wc := float64(wordCount)
	switch {
	case wordCount < 5:
		return 10
	case wordCount < 15:
		return 20 + (wc-5)*2
	case wordCount < 30:
		return 40 + (wc-15)*1.33
	case wordCount < 50:
		return 60 + (wc - 30)
	default:
		return math.Min(100, 80+(wc-50)*0.5)
	}
}

// vocabularyScore counts words containing any calibrated technical keyword
// as a substring, then maps count and density to a score.
func (s *Scorer) vocabularyScore(words []string) float64 {
	technical := 0
	for _, word := range words {
		for _, kw := range s.cal.TechnicalKeywords {
			if strings.Contains(word, kw) {
				technical++
				break
			}
		}
	}

	var base float64
	switch {
	case technical == 0:
		base = 20
	case technical <= 2:
		base = 40
	case technical <= 4:
		base = 60
	default:
		base = 80 + math.Min(20, float64(technical)*2)
	}

	if float64(technical)/float64(len(words)) > 0.3 {
		base += 10
	}

	return math.Min(100, base)
}

// structureScore scores sentence count, complex punctuation and connective
// phrases.
func (s *Scorer) structureScore(text string) float64 {
	sentences := len(sentenceRe.FindAllString(text, -1))

	punct := 0
	for _, r := range text {
		if strings.ContainsRune(complexPunctuation, r) {
			punct++
		}
	}

	connectives := 0
	for _, phrase := range s.cal.ConnectivePhrases {
		if strings.Contains(text, phrase) {
			connectives++
		}
	}

	var base float64
	switch {
	case sentences <= 1:
		base = 20
	case sentences == 2:
		base = 40
	case sentences == 3:
		base = 60
	default:
		base = 70 + math.Min(30, float64(sentences)*5)
	}

	punctBonus := math.Min(20, float64(punct)*3)
	connectiveBonus := math.Min(15, float64(connectives)*10)

	return math.Min(100, base+punctBonus+connectiveBonus)
}

// ambiguityScore scores questions, negations, conditions and hedging.
func (s *Scorer) ambiguityScore(text string, words []string) float64 {
	score := 10.0

	if strings.Contains(text, "?") || containsAny(text, s.cal.Interrogatives) {
		score += 40
	}

	negations := countMarkers(text, words, s.cal.NegationMarkers)
	score += math.Min(30, float64(negations)*15)

	conditions := countMarkers(text, words, s.cal.ConditionMarkers)
	score += math.Min(30, float64(conditions)*20)

	hedges := countMarkers(text, words, s.cal.HedgeMarkers)
	score += math.Min(20, float64(hedges)*15)

	return math.Min(100, score)
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// countMarkers counts marker occurrences. Single-word markers must match a
// whole word (punctuation trimmed); markers carrying spaces, hyphens or an
// elision apostrophe are counted as substrings of the full text, since word
// splitting cannot see them.
func countMarkers(text string, words []string, markers []string) int {
	count := 0
	for _, m := range markers {
		if strings.ContainsAny(m, " -'") {
			count += strings.Count(text, m)
			continue
		}
		for _, word := range words {
			if strings.Trim(word, complexPunctuation+".!?'") == m {
				count++
			}
		}
	}
	return count
}

func clampScore(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
