package repository

import (
	"context"

	"github.com/google/uuid"
)

// ProviderKind distinguishes the two provider variants in the directory.
type ProviderKind string

const (
	KindLawyer ProviderKind = "LAWYER"
	KindNGO    ProviderKind = "NGO"
)

// CaseView is a read-only projection of a legal-aid case. The matching
// engine never mutates cases; status updates happen in the intake system.
type CaseView struct {
	ID                uuid.UUID
	CitizenID         uuid.UUID
	CaseType          string
	ExpertiseTags     []string
	Location          string
	PreferredLanguage string
	Priority          string
	Status            string
}

// ProviderView is a read-only projection of a lawyer or NGO profile.
// Specialization is set for lawyers, FocusArea for NGOs; use Expertise()
// instead of branching on kind.
type ProviderView struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Kind           ProviderKind
	Name           string
	Specialization string
	FocusArea      string
	Location       string
	Languages      string
	Verified       bool
}

// Expertise returns the provider's expertise string regardless of kind.
func (p ProviderView) Expertise() string {
	if p.Kind == KindNGO {
		return p.FocusArea
	}
	return p.Specialization
}

// Contact holds the delivery details for a directory user.
type Contact struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Phone  string
}

// CaseReader provides read access to cases.
type CaseReader interface {
	GetCase(ctx context.Context, id uuid.UUID) (CaseView, error)
}

// ProviderReader provides read access to provider profiles.
type ProviderReader interface {
	GetProvider(ctx context.Context, id uuid.UUID) (ProviderView, error)
	// GetProviderByUserID resolves the provider profile owned by a user
	// account, used to map an authenticated actor onto their profile.
	GetProviderByUserID(ctx context.Context, userID uuid.UUID) (ProviderView, error)
	// ListApprovedProviders returns verified providers, optionally filtered
	// by kind (nil means both lawyers and NGOs).
	ListApprovedProviders(ctx context.Context, kind *ProviderKind) ([]ProviderView, error)
}

// ContactReader resolves delivery contact details for users.
type ContactReader interface {
	GetContact(ctx context.Context, userID uuid.UUID) (Contact, error)
}

// Repository combines all directory read operations.
type Repository interface {
	CaseReader
	ProviderReader
	ContactReader
}
