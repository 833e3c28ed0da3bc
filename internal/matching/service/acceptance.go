package service

import (
	"context"

	"github.com/google/uuid"

	"legalaid_backend/internal/events"
	"legalaid_backend/internal/matching/domain"
	"legalaid_backend/internal/matching/repository"
	"legalaid_backend/internal/matching/transport"
)

// AcceptAssignment binds the case to this provider. Concurrent accepts on
// sibling matches are serialized by the repository's row-locked protocol so
// at most one match per case ever reaches ACCEPTED_BY_PROVIDER; every losing
// caller gets a conflict error and their offer is expired. After the winning
// commit, the remaining selected siblings are expired one by one; a sibling
// failure is logged and skipped, never propagated, because the accepted
// match must stand regardless.
func (s *Service) AcceptAssignment(ctx context.Context, matchID, actorID uuid.UUID) (transport.MatchSummary, error) {
	match, provider, err := s.getProviderMatch(ctx, matchID, actorID)
	if err != nil {
		return transport.MatchSummary{}, err
	}

	// Cheap pre-check; the repository re-validates under the row lock.
	if err := domain.ValidateTransition(match.Status, domain.StatusAcceptedByProvider); err != nil {
		return transport.MatchSummary{}, err
	}

	accepted, err := s.repo.Accept(ctx, match.ID, s.lockTimeout)
	if err != nil {
		return transport.MatchSummary{}, err
	}

	s.log.MatchTransition(accepted.ID.String(), accepted.CaseID.String(),
		string(domain.StatusSelectedByCitizen), string(accepted.Status), actorID.String())

	s.expireSelectedSiblings(ctx, accepted)

	s.bus.Publish(ctx, events.MatchAccepted{
		BaseEvent:  events.NewBaseEvent(),
		CaseID:     accepted.CaseID,
		MatchID:    accepted.ID,
		ProviderID: accepted.ProviderID,
		ActorID:    actorID,
	})

	return toSummary(accepted, provider), nil
}

// expireSelectedSiblings cascades expiration to every other match for the
// case still awaiting provider action. Each sibling is its own guarded
// update, keeping lock scope to a single row at a time.
func (s *Service) expireSelectedSiblings(ctx context.Context, winner domain.Match) {
	siblings, err := s.repo.ListByCaseAndStatus(ctx, winner.CaseID, domain.StatusSelectedByCitizen)
	if err != nil {
		s.log.Error("list siblings for expiration failed", "caseId", winner.CaseID, "error", err)
		return
	}

	reason := domain.ExpiredSiblingReason
	for _, sibling := range siblings {
		if sibling.ID == winner.ID {
			continue
		}

		expired, err := s.repo.UpdateStatus(ctx, repository.UpdateStatusParams{
			MatchID: sibling.ID,
			From:    domain.StatusSelectedByCitizen,
			To:      domain.StatusExpired,
			Reason:  &reason,
		})
		if err != nil {
			s.log.Error("expire sibling match failed",
				"caseId", winner.CaseID, "matchId", sibling.ID, "error", err)
			continue
		}

		s.bus.Publish(ctx, events.MatchExpired{
			BaseEvent:  events.NewBaseEvent(),
			CaseID:     expired.CaseID,
			MatchID:    expired.ID,
			ProviderID: expired.ProviderID,
			Reason:     reason,
		})
	}
}
