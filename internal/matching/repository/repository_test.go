package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsPgError_MatchesWrappedUniqueViolation(t *testing.T) {
	base := &pgconn.PgError{Code: pgUniqueViolation}
	wrapped := fmt.Errorf("accept match: %w", base)

	if !isPgError(wrapped, pgUniqueViolation) {
		t.Fatal("expected wrapped 23505 to be recognized")
	}
	if isPgError(wrapped, pgLockNotAvailable) {
		t.Fatal("expected code mismatch to be rejected")
	}
}

func TestIsPgError_IgnoresPlainErrors(t *testing.T) {
	if isPgError(errors.New("connection reset"), pgUniqueViolation) {
		t.Fatal("expected non-postgres error to be rejected")
	}
	if isPgError(nil, pgUniqueViolation) {
		t.Fatal("expected nil error to be rejected")
	}
}
