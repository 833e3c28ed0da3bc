package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWeights_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := os.WriteFile(path, []byte("exactDomain: 50\nverifiedBonus: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.ExactDomain != 50 {
		t.Fatalf("expected exactDomain 50, got %v", w.ExactDomain)
	}
	if w.VerifiedBonus != 5 {
		t.Fatalf("expected verifiedBonus 5, got %v", w.VerifiedBonus)
	}
	if w.LocationExact != 30 {
		t.Fatalf("expected untouched locationExact 30, got %v", w.LocationExact)
	}
}

func TestLoadWeights_RejectsNegativeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := os.WriteFile(path, []byte("languageMatch: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadWeights(path); err == nil {
		t.Fatal("expected validation error for negative weight")
	}
}

func TestValidate_RejectsNonPositiveMax(t *testing.T) {
	w := DefaultWeights()
	w.MaxScore = 0
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for zero maxScore")
	}
}
