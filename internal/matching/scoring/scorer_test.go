package scoring

import (
	"strings"
	"testing"

	"legalaid_backend/internal/directory/repository"
)

func newTestScorer() *Scorer {
	return New(DefaultWeights())
}

func TestScore_PerfectMatchCapsAtHundred(t *testing.T) {
	c := repository.CaseView{
		CaseType:          "family law",
		Location:          "Lahore",
		PreferredLanguage: "Urdu",
	}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "family law and divorce proceedings",
		Location:       "Lahore",
		Languages:      "Urdu, English",
		Verified:       true,
	}

	score, reason := newTestScorer().Score(c, p)

	if score != 100 {
		t.Fatalf("expected score 100, got %v", score)
	}
	if !strings.Contains(reason, "verified provider") {
		t.Fatalf("expected verified provider in reason, got %q", reason)
	}
}

func TestScore_CompleteMismatch(t *testing.T) {
	c := repository.CaseView{
		CaseType:          "tax law",
		Location:          "Karachi",
		PreferredLanguage: "Sindhi",
	}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "criminal defense",
		Location:       "Islamabad",
		Languages:      "English",
	}

	score, _ := newTestScorer().Score(c, p)

	// expertise miss 10 + location miss 5 + language miss 5
	if score != 20 {
		t.Fatalf("expected score 20, got %v", score)
	}
}

func TestScore_ExactDomainOutweighsTags(t *testing.T) {
	c := repository.CaseView{
		CaseType:      "labor law",
		ExpertiseTags: []string{"labor", "contracts"},
	}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "labor law disputes",
	}

	score, reason := newTestScorer().Score(c, p)

	// exact domain 40 + location neutral 15 + language neutral 10
	if score != 65 {
		t.Fatalf("expected score 65, got %v", score)
	}
	if !strings.Contains(reason, "expertise covers labor law") {
		t.Fatalf("unexpected reason %q", reason)
	}
}

func TestScore_TagFractionScalesBonus(t *testing.T) {
	c := repository.CaseView{
		CaseType:      "civil dispute",
		ExpertiseTags: []string{"property", "inheritance"},
	}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "property rights",
	}

	score, _ := newTestScorer().Score(c, p)

	// tags 20 + 20*(1/2) + location neutral 15 + language neutral 10
	if score != 55 {
		t.Fatalf("expected score 55, got %v", score)
	}
}

func TestScore_NGOUsesFocusArea(t *testing.T) {
	c := repository.CaseView{CaseType: "domestic violence"}
	p := repository.ProviderView{
		Kind:      repository.KindNGO,
		FocusArea: "domestic violence support",
	}

	score, _ := newTestScorer().Score(c, p)

	// exact domain 40 + neutrals 15 + 10
	if score != 65 {
		t.Fatalf("expected score 65, got %v", score)
	}
}

func TestScore_UnknownExpertiseGetsBenefitOfDoubt(t *testing.T) {
	c := repository.CaseView{CaseType: "tax law"}
	p := repository.ProviderView{Kind: repository.KindLawyer}

	score, reason := newTestScorer().Score(c, p)

	// unknown expertise 10 + location neutral 15 + language neutral 10
	if score != 35 {
		t.Fatalf("expected score 35, got %v", score)
	}
	if !strings.Contains(reason, "no stated expertise") {
		t.Fatalf("unexpected reason %q", reason)
	}
}

func TestScore_NeutralWhenCaseHasNoRequirements(t *testing.T) {
	c := repository.CaseView{}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "criminal defense",
	}

	score, _ := newTestScorer().Score(c, p)

	// expertise neutral 20 + location neutral 15 + language neutral 10
	if score != 45 {
		t.Fatalf("expected score 45, got %v", score)
	}
}

func TestScore_PartialLocationOverlap(t *testing.T) {
	c := repository.CaseView{Location: "Gulberg, Lahore"}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "x",
		Location:       "Model Town, Lahore",
	}

	score, reason := newTestScorer().Score(c, p)

	// expertise neutral... case has no caseType and no tags -> neutral 20,
	// location partial 20, language neutral 10
	if score != 50 {
		t.Fatalf("expected score 50, got %v", score)
	}
	if !strings.Contains(reason, "nearby location") {
		t.Fatalf("unexpected reason %q", reason)
	}
}

func TestScore_DeterministicForSameInputs(t *testing.T) {
	c := repository.CaseView{
		CaseType:          "family law",
		ExpertiseTags:     []string{"divorce", "custody"},
		Location:          "Lahore",
		PreferredLanguage: "Urdu",
	}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "custody and divorce",
		Location:       "Lahore",
		Languages:      "Urdu",
		Verified:       true,
	}

	s := newTestScorer()
	first, firstReason := s.Score(c, p)
	for i := 0; i < 10; i++ {
		score, reason := s.Score(c, p)
		if score != first || reason != firstReason {
			t.Fatalf("score not deterministic: %v/%q vs %v/%q", first, firstReason, score, reason)
		}
	}
}

func TestScore_NeverExceedsMaxEvenWithInflatedWeights(t *testing.T) {
	w := DefaultWeights()
	w.ExactDomain = 90
	w.LocationExact = 90

	c := repository.CaseView{CaseType: "family law", Location: "Lahore"}
	p := repository.ProviderView{
		Kind:           repository.KindLawyer,
		Specialization: "family law",
		Location:       "Lahore",
		Verified:       true,
	}

	score, _ := New(w).Score(c, p)

	if score != w.MaxScore {
		t.Fatalf("expected score capped at %v, got %v", w.MaxScore, score)
	}
}
