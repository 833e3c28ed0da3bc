// Package service implements the match allocation engine: offer generation,
// the citizen/provider lifecycle, and race-safe acceptance coordination.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	directoryrepo "legalaid_backend/internal/directory/repository"
	"legalaid_backend/internal/events"
	"legalaid_backend/internal/matching/domain"
	"legalaid_backend/internal/matching/repository"
	"legalaid_backend/internal/matching/scoring"
	"legalaid_backend/internal/matching/transport"
	"legalaid_backend/platform/apperr"
	"legalaid_backend/platform/logger"
)

const notCaseOwnerMessage = "only the case owner can manage matches for this case"
const notMatchProviderMessage = "only the matched provider can act on this assignment"

// Directory is the read-only port to the case/provider directory collaborator.
// The engine never mutates directory records.
type Directory interface {
	GetCase(ctx context.Context, id uuid.UUID) (directoryrepo.CaseView, error)
	GetProvider(ctx context.Context, id uuid.UUID) (directoryrepo.ProviderView, error)
	GetProviderByUserID(ctx context.Context, userID uuid.UUID) (directoryrepo.ProviderView, error)
	ListApprovedProviders(ctx context.Context, kind *directoryrepo.ProviderKind) ([]directoryrepo.ProviderView, error)
}

// Service provides business logic for match allocation.
type Service struct {
	repo        repository.Repository
	directory   Directory
	scorer      *scoring.Scorer
	bus         events.Bus
	log         *logger.Logger
	threshold   float64
	lockTimeout time.Duration
}

// Options tune the engine.
type Options struct {
	// ScoreThreshold is the minimum score (exclusive) a candidate needs
	// before a match offer is created.
	ScoreThreshold float64
	// LockTimeout bounds how long an accept waits for the match row lock.
	LockTimeout time.Duration
}

// New creates a new matching service.
func New(repo repository.Repository, directory Directory, scorer *scoring.Scorer, bus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 3 * time.Second
	}
	return &Service{
		repo:        repo,
		directory:   directory,
		scorer:      scorer,
		bus:         bus,
		log:         log,
		threshold:   opts.ScoreThreshold,
		lockTimeout: opts.LockTimeout,
	}
}

// GenerateMatches scores every approved provider against the case and creates
// a PENDING match for each candidate above the threshold. Existing matches
// are never re-scored or overwritten, so repeated calls only add offers for
// genuinely new candidates. Returns the full ranked match set for the case.
func (s *Service) GenerateMatches(ctx context.Context, caseID, actorID uuid.UUID) (transport.MatchListResponse, error) {
	caseView, err := s.directory.GetCase(ctx, caseID)
	if err != nil {
		return transport.MatchListResponse{}, err
	}
	if caseView.CitizenID != actorID {
		return transport.MatchListResponse{}, apperr.Forbidden(notCaseOwnerMessage)
	}

	candidates, err := s.directory.ListApprovedProviders(ctx, nil)
	if err != nil {
		return transport.MatchListResponse{}, err
	}

	existing, err := s.repo.ListByCase(ctx, caseID)
	if err != nil {
		return transport.MatchListResponse{}, err
	}
	matchedProviders := make(map[uuid.UUID]bool, len(existing))
	for _, match := range existing {
		matchedProviders[match.ProviderID] = true
	}

	providers := make(map[uuid.UUID]directoryrepo.ProviderView, len(candidates))
	var newMatchIDs []uuid.UUID
	for _, candidate := range candidates {
		providers[candidate.ID] = candidate
		if matchedProviders[candidate.ID] {
			continue
		}

		score, reason := s.scorer.Score(caseView, candidate)
		if score <= s.threshold {
			continue
		}

		match, created, err := s.repo.Create(ctx, repository.CreateParams{
			CaseID:     caseID,
			ProviderID: candidate.ID,
			Score:      score,
			Reason:     reason,
		})
		if err != nil {
			return transport.MatchListResponse{}, err
		}
		if created {
			newMatchIDs = append(newMatchIDs, match.ID)
		}
	}

	matches, err := s.repo.ListByCase(ctx, caseID)
	if err != nil {
		return transport.MatchListResponse{}, err
	}

	if len(newMatchIDs) > 0 {
		s.log.Info("matches generated", "caseId", caseID, "new", len(newMatchIDs), "total", len(matches))
		s.bus.Publish(ctx, events.MatchGenerated{
			BaseEvent:  events.NewBaseEvent(),
			CaseID:     caseID,
			CitizenID:  actorID,
			MatchIDs:   newMatchIDs,
			NewMatches: len(newMatchIDs),
		})
	}

	return s.toListResponse(ctx, matches, providers)
}

// ListPendingMatches returns the case's open offers, ranked. Decided matches
// are hidden from this citizen-facing list; GenerateMatches returns the full
// historical set.
func (s *Service) ListPendingMatches(ctx context.Context, caseID, actorID uuid.UUID) (transport.MatchListResponse, error) {
	caseView, err := s.directory.GetCase(ctx, caseID)
	if err != nil {
		return transport.MatchListResponse{}, err
	}
	if caseView.CitizenID != actorID {
		return transport.MatchListResponse{}, apperr.Forbidden(notCaseOwnerMessage)
	}

	matches, err := s.repo.ListByCaseAndStatus(ctx, caseID, domain.StatusPending)
	if err != nil {
		return transport.MatchListResponse{}, err
	}

	return s.toListResponse(ctx, matches, nil)
}

// ListAssignedCases returns the provider's active assignments: offers
// awaiting their answer plus cases they are bound to.
func (s *Service) ListAssignedCases(ctx context.Context, actorID uuid.UUID) (transport.MatchListResponse, error) {
	provider, err := s.directory.GetProviderByUserID(ctx, actorID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return transport.MatchListResponse{}, apperr.Forbidden("no provider profile for this account")
		}
		return transport.MatchListResponse{}, err
	}

	matches, err := s.repo.ListByProviderAndStatuses(ctx, provider.ID, []domain.Status{
		domain.StatusSelectedByCitizen,
		domain.StatusAcceptedByProvider,
	})
	if err != nil {
		return transport.MatchListResponse{}, err
	}

	providers := map[uuid.UUID]directoryrepo.ProviderView{provider.ID: provider}
	return s.toListResponse(ctx, matches, providers)
}

// toListResponse converts matches to summaries, resolving provider details
// not already present in the supplied cache.
func (s *Service) toListResponse(ctx context.Context, matches []domain.Match, providers map[uuid.UUID]directoryrepo.ProviderView) (transport.MatchListResponse, error) {
	if providers == nil {
		providers = make(map[uuid.UUID]directoryrepo.ProviderView)
	}

	items := make([]transport.MatchSummary, 0, len(matches))
	for _, match := range matches {
		provider, ok := providers[match.ProviderID]
		if !ok {
			view, err := s.directory.GetProvider(ctx, match.ProviderID)
			if err != nil {
				return transport.MatchListResponse{}, err
			}
			providers[match.ProviderID] = view
			provider = view
		}
		items = append(items, toSummary(match, provider))
	}

	return transport.MatchListResponse{Items: items, Total: len(items)}, nil
}

func (s *Service) toSummaryWithLookup(ctx context.Context, match domain.Match) (transport.MatchSummary, error) {
	provider, err := s.directory.GetProvider(ctx, match.ProviderID)
	if err != nil {
		return transport.MatchSummary{}, err
	}
	return toSummary(match, provider), nil
}

func toSummary(match domain.Match, provider directoryrepo.ProviderView) transport.MatchSummary {
	return transport.MatchSummary{
		ID:              match.ID,
		CaseID:          match.CaseID,
		ProviderID:      match.ProviderID,
		ProviderName:    provider.Name,
		ProviderKind:    string(provider.Kind),
		Score:           match.Score,
		Reason:          match.Reason,
		Status:          string(match.Status),
		CreatedAt:       match.CreatedAt.UTC().Format(time.RFC3339),
		AcceptedAt:      formatTimePtr(match.AcceptedAt),
		RejectedAt:      formatTimePtr(match.RejectedAt),
		RejectionReason: match.RejectionReason,
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}
