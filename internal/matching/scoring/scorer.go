// Package scoring computes compatibility scores between cases and providers.
// Scoring is a pure function of the two projections: no clock, no storage,
// no side effects, so the same inputs always produce the same score.
package scoring

import (
	"fmt"
	"strings"

	"legalaid_backend/internal/directory/repository"
)

// Scorer evaluates (case, provider) compatibility on a 0-100 scale.
type Scorer struct {
	w Weights
}

// New creates a scorer with the given weights.
func New(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Score returns the weighted compatibility score and a human-readable
// explanation. The reason string is explanatory only, never authoritative.
func (s *Scorer) Score(c repository.CaseView, p repository.ProviderView) (float64, string) {
	var reasons []string

	expertise, expertiseReason := s.scoreExpertise(c, p)
	reasons = append(reasons, expertiseReason)

	location, locationReason := s.scoreLocation(c, p)
	reasons = append(reasons, locationReason)

	language, languageReason := s.scoreLanguage(c, p)
	reasons = append(reasons, languageReason)

	total := expertise + location + language
	if p.Verified {
		total += s.w.VerifiedBonus
		reasons = append(reasons, "verified provider")
	}

	if total > s.w.MaxScore {
		total = s.w.MaxScore
	}
	if total < 0 {
		total = 0
	}

	return total, strings.Join(reasons, "; ")
}

func (s *Scorer) scoreExpertise(c repository.CaseView, p repository.ProviderView) (float64, string) {
	expertise := strings.ToLower(strings.TrimSpace(p.Expertise()))
	if expertise == "" {
		return s.w.ExpertiseUnknown, "provider has no stated expertise"
	}

	caseType := strings.ToLower(strings.TrimSpace(c.CaseType))
	if caseType != "" && strings.Contains(expertise, caseType) {
		return s.w.ExactDomain, fmt.Sprintf("expertise covers %s", strings.TrimSpace(c.CaseType))
	}

	tags := nonEmptyTags(c.ExpertiseTags)
	if len(tags) > 0 {
		matched := 0
		for _, tag := range tags {
			if strings.Contains(expertise, strings.ToLower(tag)) {
				matched++
			}
		}
		if matched > 0 {
			score := s.w.TagBase + s.w.TagBonus*float64(matched)/float64(len(tags))
			return score, fmt.Sprintf("expertise matches %d of %d case tags", matched, len(tags))
		}
		return s.w.ExpertiseMiss, "expertise does not match the case"
	}

	// Nothing on the case to match against.
	if caseType == "" {
		return s.w.ExpertiseNeutral, "case has no expertise requirements"
	}
	return s.w.ExpertiseMiss, "expertise does not match the case"
}

func (s *Scorer) scoreLocation(c repository.CaseView, p repository.ProviderView) (float64, string) {
	caseLocation := strings.TrimSpace(c.Location)
	if caseLocation == "" {
		return s.w.LocationNeutral, "case has no location preference"
	}

	providerLocation := strings.TrimSpace(p.Location)
	if providerLocation == "" {
		return s.w.LocationUnknown, "provider location unknown"
	}

	if strings.EqualFold(caseLocation, providerLocation) {
		return s.w.LocationExact, "same location"
	}

	if segmentsOverlap(caseLocation, providerLocation) {
		return s.w.LocationPartial, "nearby location"
	}

	return s.w.LocationMiss, "different location"
}

func (s *Scorer) scoreLanguage(c repository.CaseView, p repository.ProviderView) (float64, string) {
	preferred := strings.TrimSpace(c.PreferredLanguage)
	if preferred == "" {
		return s.w.LanguageNeutral, "case has no language preference"
	}

	languages := strings.TrimSpace(p.Languages)
	if languages == "" {
		return s.w.LanguageUnknown, "provider languages unknown"
	}

	if strings.Contains(strings.ToLower(languages), strings.ToLower(preferred)) {
		return s.w.LanguageMatch, fmt.Sprintf("speaks %s", preferred)
	}

	return s.w.LanguageMiss, fmt.Sprintf("does not speak %s", preferred)
}

// segmentsOverlap is a crude city/state comparison: both locations are split
// on commas and any pairwise segment equality counts as overlap.
func segmentsOverlap(a, b string) bool {
	for _, left := range strings.Split(a, ",") {
		left = strings.TrimSpace(left)
		if left == "" {
			continue
		}
		for _, right := range strings.Split(b, ",") {
			if strings.EqualFold(left, strings.TrimSpace(right)) {
				return true
			}
		}
	}
	return false
}

func nonEmptyTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
