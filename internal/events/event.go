// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"legalaid_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Matching Domain Events
// =============================================================================

// MatchGenerated is published once per generation run that created new matches.
type MatchGenerated struct {
	BaseEvent
	CaseID     uuid.UUID   `json:"caseId"`
	CitizenID  uuid.UUID   `json:"citizenId"`
	MatchIDs   []uuid.UUID `json:"matchIds"`
	NewMatches int         `json:"newMatches"`
}

func (e MatchGenerated) EventName() string { return "matching.match.generated" }

// MatchSelected is published when a citizen selects a match for provider review.
type MatchSelected struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	MatchID    uuid.UUID `json:"matchId"`
	ProviderID uuid.UUID `json:"providerId"`
	ActorID    uuid.UUID `json:"actorId"`
}

func (e MatchSelected) EventName() string { return "matching.match.selected" }

// MatchAccepted is published when a provider accepts an assignment. This is
// the sole signal that unlocks appointment scheduling and chat for the
// (case, provider) pair.
type MatchAccepted struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	MatchID    uuid.UUID `json:"matchId"`
	ProviderID uuid.UUID `json:"providerId"`
	ActorID    uuid.UUID `json:"actorId"`
}

func (e MatchAccepted) EventName() string { return "matching.match.accepted" }

// MatchRejected is published when a citizen rejects a pending match or a
// provider declines a selected one.
type MatchRejected struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	MatchID    uuid.UUID `json:"matchId"`
	ProviderID uuid.UUID `json:"providerId"`
	ActorID    uuid.UUID `json:"actorId"`
	Reason     string    `json:"reason"`
}

func (e MatchRejected) EventName() string { return "matching.match.rejected" }

// MatchExpired is published for each sibling match expired after a winning accept.
type MatchExpired struct {
	BaseEvent
	CaseID     uuid.UUID `json:"caseId"`
	MatchID    uuid.UUID `json:"matchId"`
	ProviderID uuid.UUID `json:"providerId"`
	Reason     string    `json:"reason"`
}

func (e MatchExpired) EventName() string { return "matching.match.expired" }

// NotificationOutboxDue is published by the scheduler worker when a claimed
// outbox record is ready for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
