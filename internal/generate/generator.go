// Package generate produces the natural-language explanation attached to
// every prediction, either through a text-completion collaborator or through
// a local templated fallback.
package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

// ExplainRequest carries everything the generator needs to describe one
// classified ticket.
type ExplainRequest struct {
	Text            string
	Prediction      string
	Probabilities   map[string]float64
	Backend         string
	ComplexityScore int
	ComplexityLevel string
}

// Generator produces an explanation for a classified ticket. Implementations
// may fail; callers recover with FallbackText and never surface the error.
type Generator interface {
	Explain(ctx context.Context, req ExplainRequest) (string, error)
}

// categoryDescriptions maps predicted labels to French descriptions used by
// the templated fallback.
var categoryDescriptions = map[string]string{
	"Hardware":              "un problème matériel",
	"Access":                "une demande d'accès ou de permissions",
	"HR Support":            "une question RH",
	"Administrative rights": "une demande de droits administratifs",
	"Storage":               "un problème de stockage",
	"Purchase":              "une demande d'achat",
	"Internal Project":      "une question de projet interne",
	"Miscellaneous":         "une demande diverse",
}

func backendDescription(backend string) string {
	if backend == domain.BackendFast {
		return "TF-IDF/SVM (analyse rapide)"
	}
	return "Transformer (analyse approfondie)"
}

// topPredictions returns up to n (category, probability) pairs sorted by
// probability, ties broken by name for determinism.
func topPredictions(probabilities map[string]float64, n int) []scoredCategory {
	ranked := make([]scoredCategory, 0, len(probabilities))
	for category, p := range probabilities {
		ranked = append(ranked, scoredCategory{category, p})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Probability != ranked[j].Probability {
			return ranked[i].Probability > ranked[j].Probability
		}
		return ranked[i].Category < ranked[j].Category
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

type scoredCategory struct {
	Category    string
	Probability float64
}

func confidence(req ExplainRequest) float64 {
	if p, ok := req.Probabilities[req.Prediction]; ok {
		return p * 100
	}
	if top := topPredictions(req.Probabilities, 1); len(top) > 0 {
		return top[0].Probability * 100
	}
	return 0
}

// FallbackText synthesizes a templated explanation from the label, confidence
// and backend name. It is used whenever the completion collaborator is
// disabled, unconfigured or failing.
func FallbackText(req ExplainRequest) string {
	desc, ok := categoryDescriptions[req.Prediction]
	if !ok {
		desc = "une demande"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "J'ai analysé votre demande et identifié %s (catégorie: %s).\n\n", desc, req.Prediction)
	fmt.Fprintf(&b, "Ma confiance dans cette classification est de %.1f%%.\n\n", confidence(req))
	fmt.Fprintf(&b, "Modèle utilisé: %s.\n\n", backendDescription(req.Backend))
	b.WriteString("Votre demande a été correctement catégorisée et sera traitée par le service approprié.")
	return b.String()
}
