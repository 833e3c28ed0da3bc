package domain

import (
	"strings"
	"testing"

	"legalaid_backend/platform/apperr"
)

func TestCanTransition_LegalMoves(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusSelectedByCitizen},
		{StatusPending, StatusRejectedByCitizen},
		{StatusSelectedByCitizen, StatusAcceptedByProvider},
		{StatusSelectedByCitizen, StatusRejectedByProvider},
		{StatusSelectedByCitizen, StatusExpired},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}
}

func TestCanTransition_IllegalMoves(t *testing.T) {
	illegal := []struct{ from, to Status }{
		{StatusPending, StatusAcceptedByProvider},
		{StatusPending, StatusExpired},
		{StatusSelectedByCitizen, StatusRejectedByCitizen},
		{StatusSelectedByCitizen, StatusPending},
		{StatusAcceptedByProvider, StatusExpired},
		{StatusAcceptedByProvider, StatusSelectedByCitizen},
		{StatusRejectedByCitizen, StatusSelectedByCitizen},
		{StatusRejectedByProvider, StatusSelectedByCitizen},
		{StatusExpired, StatusSelectedByCitizen},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusAcceptedByProvider, StatusRejectedByCitizen, StatusRejectedByProvider, StatusExpired}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusSelectedByCitizen} {
		if s.IsTerminal() {
			t.Fatalf("expected %s not to be terminal", s)
		}
	}
}

func TestValidateTransition_NilForLegalMove(t *testing.T) {
	if err := ValidateTransition(StatusPending, StatusSelectedByCitizen); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTransition_AcceptedMatchIsImmutable(t *testing.T) {
	err := ValidateTransition(StatusAcceptedByProvider, StatusExpired)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition kind, got %v", apperr.GetKind(err))
	}
	if !strings.Contains(err.Error(), "already accepted by a provider") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateTransition_TerminalNamesCurrentStatus(t *testing.T) {
	err := ValidateTransition(StatusExpired, StatusSelectedByCitizen)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition kind, got %v", apperr.GetKind(err))
	}
	if !strings.Contains(err.Error(), string(StatusExpired)) {
		t.Fatalf("expected message to name current status, got %v", err)
	}
}

func TestValidateTransition_NonTerminalIllegalMove(t *testing.T) {
	err := ValidateTransition(StatusPending, StatusExpired)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "cannot move match from PENDING to EXPIRED") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusSelectedByCitizen, StatusAcceptedByProvider, StatusRejectedByCitizen, StatusRejectedByProvider, StatusExpired} {
		if !s.IsValid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Status("CANCELLED").IsValid() {
		t.Fatal("expected unknown status to be invalid")
	}
}
