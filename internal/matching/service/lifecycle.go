package service

import (
	"context"

	"github.com/google/uuid"

	directoryrepo "legalaid_backend/internal/directory/repository"
	"legalaid_backend/internal/events"
	"legalaid_backend/internal/matching/domain"
	"legalaid_backend/internal/matching/repository"
	"legalaid_backend/internal/matching/transport"
	"legalaid_backend/platform/apperr"
)

// SelectMatch moves a pending match to SELECTED_BY_CITIZEN, putting it in
// front of the provider for acceptance.
func (s *Service) SelectMatch(ctx context.Context, matchID, actorID uuid.UUID) (transport.MatchSummary, error) {
	match, err := s.getOwnedMatch(ctx, matchID, actorID)
	if err != nil {
		return transport.MatchSummary{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, repository.UpdateStatusParams{
		MatchID: match.ID,
		From:    domain.StatusPending,
		To:      domain.StatusSelectedByCitizen,
	})
	if err != nil {
		return transport.MatchSummary{}, err
	}

	s.log.MatchTransition(updated.ID.String(), updated.CaseID.String(),
		string(domain.StatusPending), string(updated.Status), actorID.String())
	s.bus.Publish(ctx, events.MatchSelected{
		BaseEvent:  events.NewBaseEvent(),
		CaseID:     updated.CaseID,
		MatchID:    updated.ID,
		ProviderID: updated.ProviderID,
		ActorID:    actorID,
	})

	return s.toSummaryWithLookup(ctx, updated)
}

// RejectMatch moves a pending match to REJECTED_BY_CITIZEN. The reason
// defaults when the citizen gives none.
func (s *Service) RejectMatch(ctx context.Context, matchID, actorID uuid.UUID, reason *string) (transport.MatchSummary, error) {
	match, err := s.getOwnedMatch(ctx, matchID, actorID)
	if err != nil {
		return transport.MatchSummary{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, repository.UpdateStatusParams{
		MatchID: match.ID,
		From:    domain.StatusPending,
		To:      domain.StatusRejectedByCitizen,
		Reason:  reasonOrDefault(reason, domain.DefaultCitizenRejectReason),
	})
	if err != nil {
		return transport.MatchSummary{}, err
	}

	s.log.MatchTransition(updated.ID.String(), updated.CaseID.String(),
		string(domain.StatusPending), string(updated.Status), actorID.String())
	s.publishRejected(ctx, updated, actorID)

	return s.toSummaryWithLookup(ctx, updated)
}

// DeclineAssignment moves a selected match to REJECTED_BY_PROVIDER. Sibling
// matches for the case are untouched; the citizen can select another offer.
func (s *Service) DeclineAssignment(ctx context.Context, matchID, actorID uuid.UUID, reason *string) (transport.MatchSummary, error) {
	match, provider, err := s.getProviderMatch(ctx, matchID, actorID)
	if err != nil {
		return transport.MatchSummary{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, repository.UpdateStatusParams{
		MatchID: match.ID,
		From:    domain.StatusSelectedByCitizen,
		To:      domain.StatusRejectedByProvider,
		Reason:  reasonOrDefault(reason, domain.DefaultProviderDeclineReason),
	})
	if err != nil {
		return transport.MatchSummary{}, err
	}

	s.log.MatchTransition(updated.ID.String(), updated.CaseID.String(),
		string(domain.StatusSelectedByCitizen), string(updated.Status), actorID.String())
	s.publishRejected(ctx, updated, actorID)

	return toSummary(updated, provider), nil
}

func (s *Service) publishRejected(ctx context.Context, match domain.Match, actorID uuid.UUID) {
	reason := ""
	if match.RejectionReason != nil {
		reason = *match.RejectionReason
	}
	s.bus.Publish(ctx, events.MatchRejected{
		BaseEvent:  events.NewBaseEvent(),
		CaseID:     match.CaseID,
		MatchID:    match.ID,
		ProviderID: match.ProviderID,
		ActorID:    actorID,
		Reason:     reason,
	})
}

// getOwnedMatch loads a match and verifies the actor owns its case.
func (s *Service) getOwnedMatch(ctx context.Context, matchID, actorID uuid.UUID) (domain.Match, error) {
	match, err := s.repo.GetByID(ctx, matchID)
	if err != nil {
		return domain.Match{}, err
	}

	caseView, err := s.directory.GetCase(ctx, match.CaseID)
	if err != nil {
		return domain.Match{}, err
	}
	if caseView.CitizenID != actorID {
		return domain.Match{}, apperr.Forbidden(notCaseOwnerMessage)
	}

	return match, nil
}

// getProviderMatch loads a match and verifies the actor is its provider.
func (s *Service) getProviderMatch(ctx context.Context, matchID, actorID uuid.UUID) (domain.Match, directoryrepo.ProviderView, error) {
	match, err := s.repo.GetByID(ctx, matchID)
	if err != nil {
		return domain.Match{}, directoryrepo.ProviderView{}, err
	}

	provider, err := s.directory.GetProvider(ctx, match.ProviderID)
	if err != nil {
		return domain.Match{}, directoryrepo.ProviderView{}, err
	}
	if provider.UserID != actorID {
		return domain.Match{}, directoryrepo.ProviderView{}, apperr.Forbidden(notMatchProviderMessage)
	}

	return match, provider, nil
}

func reasonOrDefault(reason *string, fallback string) *string {
	if reason != nil && *reason != "" {
		return reason
	}
	return &fallback
}
