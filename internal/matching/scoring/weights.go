package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights defines the points awarded per compatibility factor. The defaults
// encode the production scoring model; deployments can override them from a
// YAML file for tuning without a rebuild.
type Weights struct {
	// Expertise factor (0 to ExactDomain).
	ExactDomain      float64 `yaml:"exactDomain"`      // case type found in provider expertise
	TagBase          float64 `yaml:"tagBase"`          // base credit once any tag matches
	TagBonus         float64 `yaml:"tagBonus"`         // scaled by matched/total tags
	ExpertiseUnknown float64 `yaml:"expertiseUnknown"` // provider has no stated expertise
	ExpertiseNeutral float64 `yaml:"expertiseNeutral"` // case carries nothing to match against
	ExpertiseMiss    float64 `yaml:"expertiseMiss"`    // nothing matched

	// Location factor (0 to LocationExact).
	LocationExact   float64 `yaml:"locationExact"`
	LocationPartial float64 `yaml:"locationPartial"` // shared city/state token
	LocationUnknown float64 `yaml:"locationUnknown"` // provider has no location
	LocationMiss    float64 `yaml:"locationMiss"`
	LocationNeutral float64 `yaml:"locationNeutral"` // case has no location

	// Language factor (0 to LanguageMatch).
	LanguageMatch   float64 `yaml:"languageMatch"`
	LanguageUnknown float64 `yaml:"languageUnknown"` // provider has no languages
	LanguageMiss    float64 `yaml:"languageMiss"`
	LanguageNeutral float64 `yaml:"languageNeutral"` // case has no preferred language

	// Flat bonus for verified providers.
	VerifiedBonus float64 `yaml:"verifiedBonus"`

	// MaxScore caps the summed score.
	MaxScore float64 `yaml:"maxScore"`
}

// DefaultWeights returns the standard scoring model.
func DefaultWeights() Weights {
	return Weights{
		ExactDomain:      40,
		TagBase:          20,
		TagBonus:         20,
		ExpertiseUnknown: 10,
		ExpertiseNeutral: 20,
		ExpertiseMiss:    10,

		LocationExact:   30,
		LocationPartial: 20,
		LocationUnknown: 10,
		LocationMiss:    5,
		LocationNeutral: 15,

		LanguageMatch:   20,
		LanguageUnknown: 5,
		LanguageMiss:    5,
		LanguageNeutral: 10,

		VerifiedBonus: 10,

		MaxScore: 100,
	}
}

// LoadWeights reads weight overrides from a YAML file. Fields omitted from
// the file keep their default values.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read scoring weights: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("parse scoring weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}

	return w, nil
}

// Validate checks that the weights keep scores inside [0, MaxScore].
func (w Weights) Validate() error {
	if w.MaxScore <= 0 {
		return fmt.Errorf("maxScore must be positive")
	}
	for name, value := range map[string]float64{
		"exactDomain":      w.ExactDomain,
		"tagBase":          w.TagBase,
		"tagBonus":         w.TagBonus,
		"expertiseUnknown": w.ExpertiseUnknown,
		"expertiseNeutral": w.ExpertiseNeutral,
		"expertiseMiss":    w.ExpertiseMiss,
		"locationExact":    w.LocationExact,
		"locationPartial":  w.LocationPartial,
		"locationUnknown":  w.LocationUnknown,
		"locationMiss":     w.LocationMiss,
		"locationNeutral":  w.LocationNeutral,
		"languageMatch":    w.LanguageMatch,
		"languageUnknown":  w.LanguageUnknown,
		"languageMiss":     w.LanguageMiss,
		"languageNeutral":  w.LanguageNeutral,
		"verifiedBonus":    w.VerifiedBonus,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
