package email

import (
	"strings"
	"testing"
)

func TestRenderMatchOffersTemplate(t *testing.T) {
	content, err := renderEmailTemplate("match_offers.html", matchOffersEmailData{
		baseEmailData: baseEmailData{
			Title:    "New matches",
			Heading:  "New matches for your case",
			CTALabel: "Review matches",
			CTAURL:   "https://app.example.com/matches",
		},
		CitizenName: "Fatima",
		CaseType:    "family law",
		NewOffers:   3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Fatima", "family law", "3", "https://app.example.com/matches"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected rendered email to contain %q", want)
		}
	}
}

func TestRenderMatchAcceptedTemplate(t *testing.T) {
	content, err := renderEmailTemplate("match_accepted.html", matchAcceptedEmailData{
		baseEmailData: baseEmailData{Title: "Accepted", Heading: "Your case has a provider"},
		CitizenName:   "Fatima",
		ProviderName:  "Aisha Khan",
		ProviderPhone: "+923001234567",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Aisha Khan", "+923001234567"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected rendered email to contain %q", want)
		}
	}
}

func TestRenderMatchDeclinedEscapesReason(t *testing.T) {
	content, err := renderEmailTemplate("match_declined.html", matchDeclinedEmailData{
		baseEmailData: baseEmailData{Title: "Declined", Heading: "A provider declined your case"},
		CitizenName:   "Fatima",
		ProviderName:  "Aisha Khan",
		Reason:        "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(content, "<script>") {
		t.Fatal("expected HTML in the reason to be escaped")
	}
}

func TestRenderAllMatchTemplates(t *testing.T) {
	cases := []struct {
		name string
		data any
	}{
		{"match_offers.html", matchOffersEmailData{CitizenName: "A", CaseType: "x", NewOffers: 1}},
		{"match_selected.html", matchSelectedEmailData{ProviderName: "A", CaseType: "x"}},
		{"match_accepted.html", matchAcceptedEmailData{CitizenName: "A", ProviderName: "B"}},
		{"match_declined.html", matchDeclinedEmailData{CitizenName: "A", ProviderName: "B", Reason: "x"}},
		{"match_expired.html", matchExpiredEmailData{ProviderName: "A", CaseType: "x"}},
	}
	for _, tc := range cases {
		if _, err := renderEmailTemplate(tc.name, tc.data); err != nil {
			t.Fatalf("render %s: %v", tc.name, err)
		}
	}
}
