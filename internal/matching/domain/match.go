// Package domain provides core business rules for the matching bounded context.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"legalaid_backend/platform/apperr"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusPending            Status = "PENDING"
	StatusSelectedByCitizen  Status = "SELECTED_BY_CITIZEN"
	StatusAcceptedByProvider Status = "ACCEPTED_BY_PROVIDER"
	StatusRejectedByCitizen  Status = "REJECTED_BY_CITIZEN"
	StatusRejectedByProvider Status = "REJECTED_BY_PROVIDER"
	StatusExpired            Status = "EXPIRED"
)

// Default reasons stamped when the caller provides none.
const (
	DefaultCitizenRejectReason   = "citizen declined this match"
	DefaultProviderDeclineReason = "provider is unable to take this case"
	// ExpiredSiblingReason is stamped on matches expired because a sibling
	// match for the same case was accepted first.
	ExpiredSiblingReason = "another provider has accepted this case"
)

// Match is a scored, stateful offer linking exactly one case to exactly one
// provider. The (CaseID, ProviderID) pair is unique; the score is immutable
// after creation and only status and timestamps mutate.
type Match struct {
	ID              uuid.UUID
	CaseID          uuid.UUID
	ProviderID      uuid.UUID
	Score           float64
	Reason          string
	Status          Status
	CreatedAt       time.Time
	AcceptedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
}

// transitions enumerates every legal state change. Anything not listed here
// is rejected, which also makes all terminal states immutable.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusSelectedByCitizen: true,
		StatusRejectedByCitizen: true,
	},
	StatusSelectedByCitizen: {
		StatusAcceptedByProvider: true,
		StatusRejectedByProvider: true,
		StatusExpired:            true,
	},
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSelectedByCitizen, StatusAcceptedByProvider,
		StatusRejectedByCitizen, StatusRejectedByProvider, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// ValidateTransition returns a typed error when from -> to is illegal. The
// message always names the current status so callers can refresh their view.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if from == StatusAcceptedByProvider {
		return apperr.InvalidTransition("match already accepted by a provider")
	}
	if from.IsTerminal() {
		return apperr.InvalidTransition(fmt.Sprintf("match is already %s", from))
	}
	return apperr.InvalidTransition(fmt.Sprintf("cannot move match from %s to %s", from, to))
}
