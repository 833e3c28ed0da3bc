package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"legalaid_backend/internal/matching/domain"
)

// CreateParams contains parameters for creating a match offer.
type CreateParams struct {
	CaseID     uuid.UUID
	ProviderID uuid.UUID
	Score      float64
	Reason     string
}

// UpdateStatusParams describes a guarded status transition. The update only
// applies while the match is still in From; anything else leaves the row
// untouched so concurrent writers cannot clobber each other.
type UpdateStatusParams struct {
	MatchID uuid.UUID
	From    domain.Status
	To      domain.Status
	// Reason is stamped into rejection_reason (with rejected_at) for
	// rejecting and expiring transitions.
	Reason *string
}

// Reader provides read operations for matches.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Match, error)
	// ListByCase returns every match for the case ranked by descending
	// score, ties broken by earlier creation.
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.Match, error)
	ListByCaseAndStatus(ctx context.Context, caseID uuid.UUID, status domain.Status) ([]domain.Match, error)
	ListByProviderAndStatuses(ctx context.Context, providerID uuid.UUID, statuses []domain.Status) ([]domain.Match, error)
}

// Writer provides write operations for matches.
type Writer interface {
	// Create inserts a new PENDING match. When a match for the same
	// (case, provider) pair already exists the insert is skipped and
	// created is false; generation is idempotent under concurrency.
	Create(ctx context.Context, params CreateParams) (match domain.Match, created bool, err error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (domain.Match, error)
	// Accept runs the race-safe acceptance protocol: row lock, guard
	// re-validation, accepted-sibling check, then the accept commit,
	// all in one transaction.
	Accept(ctx context.Context, matchID uuid.UUID, lockTimeout time.Duration) (domain.Match, error)
}

// Repository combines all match repository operations.
type Repository interface {
	Reader
	Writer
}
