// Package repository provides read-only access to the case/provider directory.
// The matching engine consumes these projections and never writes to the
// underlying tables; case intake and provider registration live elsewhere.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"legalaid_backend/platform/apperr"
)

const (
	caseNotFoundMessage     = "case not found"
	providerNotFoundMessage = "provider not found"
	userNotFoundMessage     = "user not found"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new directory repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetCase retrieves a case projection by ID.
func (r *Repo) GetCase(ctx context.Context, id uuid.UUID) (CaseView, error) {
	query := `
		SELECT id, citizen_id, case_type, expertise_tags, location, preferred_language, priority, status
		FROM cases
		WHERE id = $1`

	var cv CaseView
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&cv.ID, &cv.CitizenID, &cv.CaseType, &cv.ExpertiseTags,
		&cv.Location, &cv.PreferredLanguage, &cv.Priority, &cv.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CaseView{}, apperr.NotFound(caseNotFoundMessage)
		}
		return CaseView{}, fmt.Errorf("get case: %w", err)
	}

	return cv, nil
}

// GetProvider retrieves a provider projection by ID.
func (r *Repo) GetProvider(ctx context.Context, id uuid.UUID) (ProviderView, error) {
	query := `
		SELECT id, user_id, kind, name, specialization, focus_area, location, languages, verified
		FROM providers
		WHERE id = $1`

	var pv ProviderView
	var kind string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&pv.ID, &pv.UserID, &kind, &pv.Name, &pv.Specialization,
		&pv.FocusArea, &pv.Location, &pv.Languages, &pv.Verified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProviderView{}, apperr.NotFound(providerNotFoundMessage)
		}
		return ProviderView{}, fmt.Errorf("get provider: %w", err)
	}
	pv.Kind = ProviderKind(kind)

	return pv, nil
}

// GetProviderByUserID retrieves the provider profile owned by a user account.
func (r *Repo) GetProviderByUserID(ctx context.Context, userID uuid.UUID) (ProviderView, error) {
	query := `
		SELECT id, user_id, kind, name, specialization, focus_area, location, languages, verified
		FROM providers
		WHERE user_id = $1`

	var pv ProviderView
	var kind string
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&pv.ID, &pv.UserID, &kind, &pv.Name, &pv.Specialization,
		&pv.FocusArea, &pv.Location, &pv.Languages, &pv.Verified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProviderView{}, apperr.NotFound(providerNotFoundMessage)
		}
		return ProviderView{}, fmt.Errorf("get provider by user: %w", err)
	}
	pv.Kind = ProviderKind(kind)

	return pv, nil
}

// ListApprovedProviders retrieves approved providers, optionally filtered by
// kind. Approval gates candidacy; the verified badge only influences scoring.
func (r *Repo) ListApprovedProviders(ctx context.Context, kind *ProviderKind) ([]ProviderView, error) {
	query := `
		SELECT id, user_id, kind, name, specialization, focus_area, location, languages, verified
		FROM providers
		WHERE status = 'APPROVED'
			AND ($1::text IS NULL OR kind = $1)
		ORDER BY name ASC`

	var kindParam interface{}
	if kind != nil {
		kindParam = string(*kind)
	}

	rows, err := r.pool.Query(ctx, query, kindParam)
	if err != nil {
		return nil, fmt.Errorf("list approved providers: %w", err)
	}
	defer rows.Close()

	var results []ProviderView
	for rows.Next() {
		var pv ProviderView
		var k string
		if err := rows.Scan(
			&pv.ID, &pv.UserID, &k, &pv.Name, &pv.Specialization,
			&pv.FocusArea, &pv.Location, &pv.Languages, &pv.Verified,
		); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		pv.Kind = ProviderKind(k)
		results = append(results, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}

	return results, nil
}

// GetContact resolves the delivery contact for a user.
func (r *Repo) GetContact(ctx context.Context, userID uuid.UUID) (Contact, error) {
	query := `SELECT id, full_name, email, COALESCE(phone, '') FROM users WHERE id = $1`

	var contact Contact
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&contact.UserID, &contact.Name, &contact.Email, &contact.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound(userNotFoundMessage)
		}
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}

	return contact, nil
}
