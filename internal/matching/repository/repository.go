package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"legalaid_backend/internal/matching/domain"
	"legalaid_backend/platform/apperr"
)

const matchNotFoundMessage = "match not found"

const matchColumns = `id, case_id, provider_id, score, reason, status, created_at, accepted_at, rejected_at, rejection_reason`

// SQLSTATE codes the acceptance protocol has to recognize.
const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new match repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a new PENDING match. The unique constraint on
// (case_id, provider_id) backstops concurrent generation: a conflicting
// insert is treated as "already exists" and the existing row is returned.
func (r *Repo) Create(ctx context.Context, params CreateParams) (domain.Match, bool, error) {
	query := `
		INSERT INTO matches (case_id, provider_id, score, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + matchColumns

	match, err := scanMatch(r.pool.QueryRow(ctx, query,
		params.CaseID, params.ProviderID, params.Score, params.Reason, string(domain.StatusPending),
	))
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			existing, getErr := r.getByCaseAndProvider(ctx, params.CaseID, params.ProviderID)
			if getErr != nil {
				return domain.Match{}, false, getErr
			}
			return existing, false, nil
		}
		return domain.Match{}, false, fmt.Errorf("create match: %w", err)
	}

	return match, true, nil
}

// GetByID retrieves a match by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Match{}, apperr.NotFound(matchNotFoundMessage)
		}
		return domain.Match{}, fmt.Errorf("get match: %w", err)
	}

	return match, nil
}

// ListByCase returns all matches for a case, ranked by descending score with
// ties broken by earlier creation. The order is stable across regeneration
// because creation timestamps never change.
func (r *Repo) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE case_id = $1
		ORDER BY score DESC, created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("list matches by case: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// ListByCaseAndStatus returns the case's matches in the given status, ranked.
func (r *Repo) ListByCaseAndStatus(ctx context.Context, caseID uuid.UUID, status domain.Status) ([]domain.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE case_id = $1 AND status = $2
		ORDER BY score DESC, created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, caseID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list matches by case and status: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// ListByProviderAndStatuses returns the provider's matches in any of the
// given statuses, newest first.
func (r *Repo) ListByProviderAndStatuses(ctx context.Context, providerID uuid.UUID, statuses []domain.Status) ([]domain.Match, error) {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE provider_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC, id ASC`

	rows, err := r.pool.Query(ctx, query, providerID, values)
	if err != nil {
		return nil, fmt.Errorf("list matches by provider: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// UpdateStatus applies a guarded transition. When the guard fails because a
// concurrent writer got there first, the error names the status the match
// actually holds now.
func (r *Repo) UpdateStatus(ctx context.Context, params UpdateStatusParams) (domain.Match, error) {
	stampsRejection := params.To == domain.StatusRejectedByCitizen ||
		params.To == domain.StatusRejectedByProvider ||
		params.To == domain.StatusExpired

	var query string
	args := []interface{}{params.MatchID, string(params.From), string(params.To)}
	if stampsRejection {
		query = `
			UPDATE matches
			SET status = $3, rejected_at = now(), rejection_reason = $4, updated_at = now()
			WHERE id = $1 AND status = $2
			RETURNING ` + matchColumns
		args = append(args, params.Reason)
	} else {
		query = `
			UPDATE matches
			SET status = $3, updated_at = now()
			WHERE id = $1 AND status = $2
			RETURNING ` + matchColumns
	}

	match, err := scanMatch(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return match, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Match{}, fmt.Errorf("update match status: %w", err)
	}

	// Guard failed: distinguish a missing match from a concurrent change.
	current, getErr := r.GetByID(ctx, params.MatchID)
	if getErr != nil {
		return domain.Match{}, getErr
	}
	return domain.Match{}, domain.ValidateTransition(current.Status, params.To)
}

// Accept runs the acceptance protocol for a single match:
//
//  1. lock the match row (bounded by lockTimeout),
//  2. re-validate the SELECTED_BY_CITIZEN guard under the lock,
//  3. check no sibling already holds ACCEPTED_BY_PROVIDER; if one does,
//     expire this match and report the conflict,
//  4. otherwise flip to ACCEPTED_BY_PROVIDER and stamp accepted_at.
//
// All four steps share one transaction, so of two racing acceptors only the
// first commit can win; the loser observes either the pre-expired row or the
// accepted sibling and gets a clean conflict error.
func (r *Repo) Accept(ctx context.Context, matchID uuid.UUID, lockTimeout time.Duration) (domain.Match, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Match{}, fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback(ctx)

	if lockTimeout > 0 {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, timeout); err != nil {
			return domain.Match{}, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	lockQuery := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	match, err := scanMatch(tx.QueryRow(ctx, lockQuery, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Match{}, apperr.NotFound(matchNotFoundMessage)
		}
		if isPgError(err, pgLockNotAvailable) {
			return domain.Match{}, apperr.Concurrency("timed out waiting for the match lock")
		}
		return domain.Match{}, fmt.Errorf("lock match: %w", err)
	}

	if match.Status != domain.StatusSelectedByCitizen {
		// A racing winner already expired this offer.
		if match.Status == domain.StatusExpired {
			return domain.Match{}, apperr.Concurrency(domain.ExpiredSiblingReason)
		}
		return domain.Match{}, domain.ValidateTransition(match.Status, domain.StatusAcceptedByProvider)
	}

	var siblingAccepted bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM matches WHERE case_id = $1 AND status = $2)`,
		match.CaseID, string(domain.StatusAcceptedByProvider),
	).Scan(&siblingAccepted)
	if err != nil {
		return domain.Match{}, fmt.Errorf("check accepted sibling: %w", err)
	}

	if siblingAccepted {
		_, err = tx.Exec(ctx,
			`UPDATE matches SET status = $2, rejected_at = now(), rejection_reason = $3, updated_at = now() WHERE id = $1`,
			match.ID, string(domain.StatusExpired), domain.ExpiredSiblingReason,
		)
		if err != nil {
			return domain.Match{}, fmt.Errorf("expire losing match: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.Match{}, fmt.Errorf("commit expire: %w", err)
		}
		return domain.Match{}, apperr.Concurrency(domain.ExpiredSiblingReason)
	}

	accepted, err := scanMatch(tx.QueryRow(ctx,
		`UPDATE matches SET status = $2, accepted_at = now(), updated_at = now() WHERE id = $1 RETURNING `+matchColumns,
		match.ID, string(domain.StatusAcceptedByProvider),
	))
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			// A racing accept on a sibling match committed between the
			// EXISTS check and this update, and the one-accepted-per-case
			// index rejected the second winner. The transaction is
			// aborted; expire this offer in a fresh statement.
			_ = tx.Rollback(ctx)
			r.expireLoser(ctx, match.ID)
			return domain.Match{}, apperr.Concurrency(domain.ExpiredSiblingReason)
		}
		return domain.Match{}, fmt.Errorf("accept match: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Match{}, fmt.Errorf("commit accept: %w", err)
	}

	return accepted, nil
}

// expireLoser stamps a match EXPIRED after it lost the accept race. Guarded
// on SELECTED_BY_CITIZEN so it never clobbers the winner's cascade; a failed
// update is tolerable because that cascade expires the row anyway.
func (r *Repo) expireLoser(ctx context.Context, matchID uuid.UUID) {
	_, _ = r.pool.Exec(ctx,
		`UPDATE matches SET status = $2, rejected_at = now(), rejection_reason = $3, updated_at = now()
		 WHERE id = $1 AND status = $4`,
		matchID, string(domain.StatusExpired), domain.ExpiredSiblingReason, string(domain.StatusSelectedByCitizen),
	)
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func (r *Repo) getByCaseAndProvider(ctx context.Context, caseID, providerID uuid.UUID) (domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE case_id = $1 AND provider_id = $2`

	match, err := scanMatch(r.pool.QueryRow(ctx, query, caseID, providerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Match{}, apperr.NotFound(matchNotFoundMessage)
		}
		return domain.Match{}, fmt.Errorf("get match by case and provider: %w", err)
	}

	return match, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (domain.Match, error) {
	var m domain.Match
	var status string
	err := row.Scan(
		&m.ID, &m.CaseID, &m.ProviderID, &m.Score, &m.Reason, &status,
		&m.CreatedAt, &m.AcceptedAt, &m.RejectedAt, &m.RejectionReason,
	)
	if err != nil {
		return domain.Match{}, err
	}
	m.Status = domain.Status(strings.TrimSpace(status))
	return m, nil
}

func scanMatches(rows pgx.Rows) ([]domain.Match, error) {
	var results []domain.Match

	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		results = append(results, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	return results, nil
}
