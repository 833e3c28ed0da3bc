package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	directoryrepo "legalaid_backend/internal/directory/repository"
	"legalaid_backend/internal/email"
	"legalaid_backend/internal/events"
	"legalaid_backend/platform/apperr"
	"legalaid_backend/platform/logger"
)

type fakeDirectory struct {
	caseView directoryrepo.CaseView
	provider directoryrepo.ProviderView
	contact  directoryrepo.Contact

	providerLookups int
	contactLookups  int
}

func (f *fakeDirectory) GetCase(context.Context, uuid.UUID) (directoryrepo.CaseView, error) {
	if f.caseView.ID == uuid.Nil {
		return directoryrepo.CaseView{}, apperr.NotFound("case not found")
	}
	return f.caseView, nil
}

func (f *fakeDirectory) GetProvider(context.Context, uuid.UUID) (directoryrepo.ProviderView, error) {
	f.providerLookups++
	return f.provider, nil
}

func (f *fakeDirectory) GetContact(context.Context, uuid.UUID) (directoryrepo.Contact, error) {
	f.contactLookups++
	return f.contact, nil
}

func newTestModule(dir Directory) *Module {
	return New(dir, email.NoopSender{}, nil, logger.New("production"))
}

func TestHandle_CitizenRejectionSendsNothing(t *testing.T) {
	citizenID := uuid.New()
	dir := &fakeDirectory{
		caseView: directoryrepo.CaseView{ID: uuid.New(), CitizenID: citizenID},
	}
	m := newTestModule(dir)

	err := m.Handle(context.Background(), events.MatchRejected{
		BaseEvent: events.NewBaseEvent(),
		CaseID:    dir.caseView.ID,
		MatchID:   uuid.New(),
		ActorID:   citizenID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.providerLookups != 0 || dir.contactLookups != 0 {
		t.Fatal("citizen rejection must not resolve recipients")
	}
}

func TestHandle_ProviderDeclineNotifiesCitizen(t *testing.T) {
	dir := &fakeDirectory{
		caseView: directoryrepo.CaseView{ID: uuid.New(), CitizenID: uuid.New()},
		provider: directoryrepo.ProviderView{ID: uuid.New(), Name: "Aisha Khan"},
		contact:  directoryrepo.Contact{Name: "Fatima", Email: "fatima@example.com"},
	}
	m := newTestModule(dir)

	err := m.Handle(context.Background(), events.MatchRejected{
		BaseEvent: events.NewBaseEvent(),
		CaseID:    dir.caseView.ID,
		MatchID:   uuid.New(),
		ActorID:   uuid.New(),
		Reason:    "conflict of interest",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.providerLookups != 1 || dir.contactLookups != 1 {
		t.Fatalf("expected recipient resolution, got %d/%d lookups", dir.providerLookups, dir.contactLookups)
	}
}

type unknownEvent struct{ events.BaseEvent }

func (unknownEvent) EventName() string { return "matching.unknown" }

func TestHandle_UnknownEventIsIgnored(t *testing.T) {
	m := newTestModule(&fakeDirectory{})
	if err := m.Handle(context.Background(), unknownEvent{BaseEvent: events.BaseEvent{Timestamp: time.Now()}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
