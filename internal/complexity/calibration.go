package complexity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights controls how the four sub-scores combine into the global score.
type Weights struct {
	Length     float64 `yaml:"length"`
	Vocabulary float64 `yaml:"vocabulary"`
	Structure  float64 `yaml:"structure"`
	Ambiguity  float64 `yaml:"ambiguity"`
}

// Calibration holds everything the scorer treats as tunable: weights, level
// boundaries and the keyword/marker sets. Values are configuration, not
// business logic, so test calibration never requires a code change.
type Calibration struct {
	Weights Weights `yaml:"weights"`

	// Level boundaries: score < SimpleMax is "simple", score < MediumMax is
	// "medium", anything else is "complex".
	SimpleMax int `yaml:"simple_max"`
	MediumMax int `yaml:"medium_max"`

	TechnicalKeywords []string `yaml:"technical_keywords"`
	ConnectivePhrases []string `yaml:"connective_phrases"`
	Interrogatives    []string `yaml:"interrogatives"`
	NegationMarkers   []string `yaml:"negation_markers"`
	ConditionMarkers  []string `yaml:"condition_markers"`
	HedgeMarkers      []string `yaml:"hedge_markers"`
}

// DefaultCalibration returns the built-in French IT-support calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		Weights: Weights{
			Length:     0.25,
			Vocabulary: 0.35,
			Structure:  0.25,
			Ambiguity:  0.15,
		},
		SimpleMax: 30,
		MediumMax: 60,
		TechnicalKeywords: []string{
			// Hardware
			"ordinateur", "écran", "clavier", "souris", "imprimante", "serveur",
			"disque", "ram", "processeur", "carte", "câble", "périphérique",
			// Software
			"logiciel", "application", "système", "programme", "base de données",
			"mise à jour", "installation", "configuration", "paramètre",
			// Network
			"réseau", "connexion", "wifi", "internet", "vpn", "firewall",
			"proxy", "dns", "routeur", "switch", "port",
			// Access / security
			"mot de passe", "accès", "droits", "permission", "compte",
			"authentification", "sécurité", "token", "certificat",
			// HR / admin
			"congé", "absence", "salaire", "formation", "contrat",
			"badge", "horaire", "pointage", "rh",
			// General IT
			"bug", "erreur", "problème", "incident", "ticket",
			"support", "maintenance", "dépannage",
		},
		ConnectivePhrases: []string{
			"cependant", "néanmoins", "toutefois", "en revanche", "malgré",
			"bien que", "quoique", "à condition que", "pourvu que", "afin que",
			"de sorte que", "ainsi que", "tandis que", "alors que", "dès lors que",
		},
		Interrogatives: []string{
			"comment", "pourquoi", "quoi", "où", "quand", "quel",
		},
		NegationMarkers: []string{
			"ne", "n'", "pas", "jamais", "rien", "aucun", "personne",
		},
		ConditionMarkers: []string{
			"si", "sauf", "excepté", "à condition", "en cas",
		},
		HedgeMarkers: []string{
			"peut-être", "probablement", "possiblement", "semble", "paraît",
		},
	}
}

// LoadCalibration reads a YAML calibration file. Fields absent from the file
// keep their default values, so a file can override just the weights or just
// one keyword set.
func LoadCalibration(path string) (Calibration, error) {
	cal := DefaultCalibration()
	data, err := os.ReadFile(path)
	if err != nil {
		return cal, fmt.Errorf("read calibration file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return cal, fmt.Errorf("parse calibration file: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return cal, fmt.Errorf("invalid calibration: %w", err)
	}
	return cal, nil
}

// Validate checks the calibration for values the scorer cannot work with.
func (c Calibration) Validate() error {
	sum := c.Weights.Length + c.Weights.Vocabulary + c.Weights.Structure + c.Weights.Ambiguity
	if sum <= 0 {
		return fmt.Errorf("weights must sum to a positive value, got %.2f", sum)
	}
	if c.SimpleMax < 0 || c.SimpleMax > 100 {
		return fmt.Errorf("simple_max must be in [0,100], got %d", c.SimpleMax)
	}
	if c.MediumMax < c.SimpleMax || c.MediumMax > 100 {
		return fmt.Errorf("medium_max must be in [simple_max,100], got %d", c.MediumMax)
	}
	return nil
}
