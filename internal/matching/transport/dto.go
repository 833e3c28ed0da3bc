package transport

import "github.com/google/uuid"

// RejectMatchRequest carries the optional reason a citizen gives when
// rejecting a pending match.
type RejectMatchRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,min=1,max=500"`
}

// DeclineAssignmentRequest carries the optional reason a provider gives when
// declining a selected assignment.
type DeclineAssignmentRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,min=1,max=500"`
}

// MatchSummary represents a match offer in API responses.
type MatchSummary struct {
	ID              uuid.UUID `json:"id"`
	CaseID          uuid.UUID `json:"caseId"`
	ProviderID      uuid.UUID `json:"providerId"`
	ProviderName    string    `json:"providerName"`
	ProviderKind    string    `json:"providerKind"`
	Score           float64   `json:"score"`
	Reason          string    `json:"reason"`
	Status          string    `json:"status"`
	CreatedAt       string    `json:"createdAt"`
	AcceptedAt      *string   `json:"acceptedAt,omitempty"`
	RejectedAt      *string   `json:"rejectedAt,omitempty"`
	RejectionReason *string   `json:"rejectionReason,omitempty"`
}

// MatchListResponse wraps a ranked list of matches.
type MatchListResponse struct {
	Items []MatchSummary `json:"items"`
	Total int            `json:"total"`
}
