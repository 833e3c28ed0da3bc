package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	directoryrepo "legalaid_backend/internal/directory/repository"
	"legalaid_backend/internal/events"
	"legalaid_backend/internal/matching/domain"
	"legalaid_backend/internal/matching/repository"
	"legalaid_backend/internal/matching/scoring"
	"legalaid_backend/platform/apperr"
	"legalaid_backend/platform/logger"
)

// fakeRepo is an in-memory Repository that mirrors the row-guarded update
// semantics of the real one, including the acceptance protocol.
type fakeRepo struct {
	mu      sync.Mutex
	matches map[uuid.UUID]domain.Match
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{matches: make(map[uuid.UUID]domain.Match)}
}

func (f *fakeRepo) put(m domain.Match) domain.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	f.matches[m.ID] = m
	return m
}

func (f *fakeRepo) get(t *testing.T, id uuid.UUID) domain.Match {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		t.Fatalf("match %s not found in fake repo", id)
	}
	return m
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (domain.Match, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.CaseID == params.CaseID && m.ProviderID == params.ProviderID {
			return m, false, nil
		}
	}
	m := domain.Match{
		ID:         uuid.New(),
		CaseID:     params.CaseID,
		ProviderID: params.ProviderID,
		Score:      params.Score,
		Reason:     params.Reason,
		Status:     domain.StatusPending,
		CreatedAt:  time.Now(),
	}
	f.matches[m.ID] = m
	return m, true, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return domain.Match{}, apperr.NotFound("match not found")
	}
	return m, nil
}

func (f *fakeRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []domain.Match
	for _, m := range f.matches {
		if m.CaseID == caseID {
			results = append(results, m)
		}
	}
	sortRanked(results)
	return results, nil
}

func (f *fakeRepo) ListByCaseAndStatus(_ context.Context, caseID uuid.UUID, status domain.Status) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []domain.Match
	for _, m := range f.matches {
		if m.CaseID == caseID && m.Status == status {
			results = append(results, m)
		}
	}
	sortRanked(results)
	return results, nil
}

func (f *fakeRepo) ListByProviderAndStatuses(_ context.Context, providerID uuid.UUID, statuses []domain.Status) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []domain.Match
	for _, m := range f.matches {
		if m.ProviderID != providerID {
			continue
		}
		for _, status := range statuses {
			if m.Status == status {
				results = append(results, m)
				break
			}
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, params repository.UpdateStatusParams) (domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[params.MatchID]
	if !ok {
		return domain.Match{}, apperr.NotFound("match not found")
	}
	if m.Status != params.From {
		return domain.Match{}, domain.ValidateTransition(m.Status, params.To)
	}
	m.Status = params.To
	if params.To == domain.StatusRejectedByCitizen ||
		params.To == domain.StatusRejectedByProvider ||
		params.To == domain.StatusExpired {
		now := time.Now()
		m.RejectedAt = &now
		m.RejectionReason = params.Reason
	}
	f.matches[m.ID] = m
	return m, nil
}

func (f *fakeRepo) Accept(_ context.Context, matchID uuid.UUID, _ time.Duration) (domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return domain.Match{}, apperr.NotFound("match not found")
	}

	if m.Status != domain.StatusSelectedByCitizen {
		if m.Status == domain.StatusExpired {
			return domain.Match{}, apperr.Concurrency(domain.ExpiredSiblingReason)
		}
		return domain.Match{}, domain.ValidateTransition(m.Status, domain.StatusAcceptedByProvider)
	}

	for _, sibling := range f.matches {
		if sibling.CaseID == m.CaseID && sibling.Status == domain.StatusAcceptedByProvider {
			now := time.Now()
			reason := domain.ExpiredSiblingReason
			m.Status = domain.StatusExpired
			m.RejectedAt = &now
			m.RejectionReason = &reason
			f.matches[m.ID] = m
			return domain.Match{}, apperr.Concurrency(domain.ExpiredSiblingReason)
		}
	}

	now := time.Now()
	m.Status = domain.StatusAcceptedByProvider
	m.AcceptedAt = &now
	f.matches[m.ID] = m
	return m, nil
}

func sortRanked(matches []domain.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
}

var _ repository.Repository = (*fakeRepo)(nil)

type fakeDirectory struct {
	cases     map[uuid.UUID]directoryrepo.CaseView
	providers map[uuid.UUID]directoryrepo.ProviderView
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		cases:     make(map[uuid.UUID]directoryrepo.CaseView),
		providers: make(map[uuid.UUID]directoryrepo.ProviderView),
	}
}

func (f *fakeDirectory) addCase(c directoryrepo.CaseView) directoryrepo.CaseView {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CitizenID == uuid.Nil {
		c.CitizenID = uuid.New()
	}
	f.cases[c.ID] = c
	return c
}

func (f *fakeDirectory) addProvider(p directoryrepo.ProviderView) directoryrepo.ProviderView {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UserID == uuid.Nil {
		p.UserID = uuid.New()
	}
	if p.Kind == "" {
		p.Kind = directoryrepo.KindLawyer
	}
	f.providers[p.ID] = p
	return p
}

func (f *fakeDirectory) GetCase(_ context.Context, id uuid.UUID) (directoryrepo.CaseView, error) {
	c, ok := f.cases[id]
	if !ok {
		return directoryrepo.CaseView{}, apperr.NotFound("case not found")
	}
	return c, nil
}

func (f *fakeDirectory) GetProvider(_ context.Context, id uuid.UUID) (directoryrepo.ProviderView, error) {
	p, ok := f.providers[id]
	if !ok {
		return directoryrepo.ProviderView{}, apperr.NotFound("provider not found")
	}
	return p, nil
}

func (f *fakeDirectory) GetProviderByUserID(_ context.Context, userID uuid.UUID) (directoryrepo.ProviderView, error) {
	for _, p := range f.providers {
		if p.UserID == userID {
			return p, nil
		}
	}
	return directoryrepo.ProviderView{}, apperr.NotFound("provider not found")
}

func (f *fakeDirectory) ListApprovedProviders(_ context.Context, kind *directoryrepo.ProviderKind) ([]directoryrepo.ProviderView, error) {
	var results []directoryrepo.ProviderView
	for _, p := range f.providers {
		if kind != nil && p.Kind != *kind {
			continue
		}
		results = append(results, p)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

var _ Directory = (*fakeDirectory)(nil)

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var results []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			results = append(results, e)
		}
	}
	return results
}

var _ events.Bus = (*recordingBus)(nil)

func newTestService(repo *fakeRepo, directory *fakeDirectory, bus *recordingBus, opts Options) *Service {
	return New(repo, directory, scoring.New(scoring.DefaultWeights()), bus, logger.New("production"), opts)
}

func TestGenerateMatches_CreatesOffersAboveThreshold(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{ScoreThreshold: 30})

	caseView := dir.addCase(directoryrepo.CaseView{
		CaseType:          "family law",
		Location:          "Lahore",
		PreferredLanguage: "Urdu",
	})
	strong := dir.addProvider(directoryrepo.ProviderView{
		Name:           "Aisha Khan",
		Specialization: "family law",
		Location:       "Lahore",
		Languages:      "Urdu",
		Verified:       true,
	})
	weak := dir.addProvider(directoryrepo.ProviderView{
		Name:           "Bilal Ahmed",
		Specialization: "corporate tax",
		Location:       "Karachi",
		Languages:      "English",
	})

	result, err := svc.GenerateMatches(context.Background(), caseView.ID, caseView.CitizenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != 1 {
		t.Fatalf("expected 1 match, got %d", result.Total)
	}
	if result.Items[0].ProviderID != strong.ID {
		t.Fatalf("expected match for strong provider, got %s", result.Items[0].ProviderID)
	}
	if result.Items[0].Score != 100 {
		t.Fatalf("expected score 100, got %v", result.Items[0].Score)
	}
	if result.Items[0].Status != string(domain.StatusPending) {
		t.Fatalf("expected PENDING, got %s", result.Items[0].Status)
	}
	for _, m := range repo.matches {
		if m.ProviderID == weak.ID {
			t.Fatal("expected no match for the weak provider")
		}
	}

	generated := bus.named(events.MatchGenerated{}.EventName())
	if len(generated) != 1 {
		t.Fatalf("expected 1 generated event, got %d", len(generated))
	}
	if e := generated[0].(events.MatchGenerated); e.NewMatches != 1 || e.CaseID != caseView.ID {
		t.Fatalf("unexpected event payload: %+v", e)
	}
}

func TestGenerateMatches_RanksByScore(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{ScoreThreshold: 30})

	caseView := dir.addCase(directoryrepo.CaseView{
		CaseType: "family law",
		Location: "Lahore",
	})
	dir.addProvider(directoryrepo.ProviderView{
		Name:           "Exact Everything",
		Specialization: "family law",
		Location:       "Lahore",
		Verified:       true,
	})
	dir.addProvider(directoryrepo.ProviderView{
		Name:           "Right Domain Only",
		Specialization: "family law",
		Location:       "Karachi",
	})

	result, err := svc.GenerateMatches(context.Background(), caseView.ID, caseView.CitizenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 matches, got %d", result.Total)
	}
	if result.Items[0].Score < result.Items[1].Score {
		t.Fatalf("expected descending score order, got %v then %v", result.Items[0].Score, result.Items[1].Score)
	}
	if result.Items[0].ProviderName != "Exact Everything" {
		t.Fatalf("expected best provider first, got %s", result.Items[0].ProviderName)
	}
}

func TestGenerateMatches_IdempotentAcrossRuns(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{ScoreThreshold: 30})

	caseView := dir.addCase(directoryrepo.CaseView{CaseType: "family law"})
	dir.addProvider(directoryrepo.ProviderView{Name: "A", Specialization: "family law"})

	first, err := svc.GenerateMatches(context.Background(), caseView.ID, caseView.CitizenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.GenerateMatches(context.Background(), caseView.ID, caseView.CitizenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Total != 1 || second.Total != 1 {
		t.Fatalf("expected totals 1/1, got %d/%d", first.Total, second.Total)
	}
	if first.Items[0].ID != second.Items[0].ID {
		t.Fatal("expected the same match across runs")
	}
	if got := len(bus.named(events.MatchGenerated{}.EventName())); got != 1 {
		t.Fatalf("expected 1 generated event across both runs, got %d", got)
	}
}

func TestGenerateMatches_ThresholdIsExclusive(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	// Neutral case against a provider with any specialization scores
	// exactly 45 (20 + 15 + 10).
	svc := newTestService(repo, dir, bus, Options{ScoreThreshold: 45})

	caseView := dir.addCase(directoryrepo.CaseView{})
	dir.addProvider(directoryrepo.ProviderView{Name: "A", Specialization: "anything"})

	result, err := svc.GenerateMatches(context.Background(), caseView.ID, caseView.CitizenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("expected no matches at exactly the threshold, got %d", result.Total)
	}
}

func TestGenerateMatches_OnlyCaseOwner(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{ScoreThreshold: 30})

	caseView := dir.addCase(directoryrepo.CaseView{CaseType: "family law"})

	_, err := svc.GenerateMatches(context.Background(), caseView.ID, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSelectMatch_MovesToSelected(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusPending})

	result, err := svc.SelectMatch(context.Background(), match.ID, caseView.CitizenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != string(domain.StatusSelectedByCitizen) {
		t.Fatalf("expected SELECTED_BY_CITIZEN, got %s", result.Status)
	}
	if got := len(bus.named(events.MatchSelected{}.EventName())); got != 1 {
		t.Fatalf("expected 1 selected event, got %d", got)
	}
}

func TestSelectMatch_AlreadySelected(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusSelectedByCitizen})

	_, err := svc.SelectMatch(context.Background(), match.ID, caseView.CitizenID)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSelectMatch_OnlyCaseOwner(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusPending})

	_, err := svc.SelectMatch(context.Background(), match.ID, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRejectMatch_DefaultsReason(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusPending})

	result, err := svc.RejectMatch(context.Background(), match.ID, caseView.CitizenID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != string(domain.StatusRejectedByCitizen) {
		t.Fatalf("expected REJECTED_BY_CITIZEN, got %s", result.Status)
	}
	if result.RejectionReason == nil || *result.RejectionReason != domain.DefaultCitizenRejectReason {
		t.Fatalf("expected default rejection reason, got %v", result.RejectionReason)
	}
	if result.RejectedAt == nil {
		t.Fatal("expected rejectedAt to be stamped")
	}
}

func TestRejectMatch_LeavesSiblingsUntouched(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	providerA := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	providerB := dir.addProvider(directoryrepo.ProviderView{Name: "B"})
	rejected := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: providerA.ID, Status: domain.StatusPending})
	sibling := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: providerB.ID, Status: domain.StatusPending})

	if _, err := svc.RejectMatch(context.Background(), rejected.ID, caseView.CitizenID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := repo.get(t, sibling.ID).Status; got != domain.StatusPending {
		t.Fatalf("expected sibling to stay PENDING, got %s", got)
	}
}

func TestDeclineAssignment_StoresProvidedReason(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusSelectedByCitizen})

	reason := "conflict of interest"
	result, err := svc.DeclineAssignment(context.Background(), match.ID, provider.UserID, &reason)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != string(domain.StatusRejectedByProvider) {
		t.Fatalf("expected REJECTED_BY_PROVIDER, got %s", result.Status)
	}
	if result.RejectionReason == nil || *result.RejectionReason != reason {
		t.Fatalf("expected provided reason, got %v", result.RejectionReason)
	}

	rejectedEvents := bus.named(events.MatchRejected{}.EventName())
	if len(rejectedEvents) != 1 {
		t.Fatalf("expected 1 rejected event, got %d", len(rejectedEvents))
	}
	if e := rejectedEvents[0].(events.MatchRejected); e.ActorID != provider.UserID || e.Reason != reason {
		t.Fatalf("unexpected event payload: %+v", e)
	}
}

func TestDeclineAssignment_OnlyMatchedProvider(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	other := dir.addProvider(directoryrepo.ProviderView{Name: "B"})
	match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusSelectedByCitizen})

	_, err := svc.DeclineAssignment(context.Background(), match.ID, other.UserID, nil)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAcceptAssignment_ExpiresSelectedSiblings(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	winner := dir.addProvider(directoryrepo.ProviderView{Name: "Winner"})
	loser := dir.addProvider(directoryrepo.ProviderView{Name: "Loser"})
	winnerMatch := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: winner.ID, Status: domain.StatusSelectedByCitizen})
	loserMatch := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: loser.ID, Status: domain.StatusSelectedByCitizen})
	pendingMatch := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: uuid.New(), Status: domain.StatusPending})

	result, err := svc.AcceptAssignment(context.Background(), winnerMatch.ID, winner.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != string(domain.StatusAcceptedByProvider) {
		t.Fatalf("expected ACCEPTED_BY_PROVIDER, got %s", result.Status)
	}
	if result.AcceptedAt == nil {
		t.Fatal("expected acceptedAt to be stamped")
	}

	expired := repo.get(t, loserMatch.ID)
	if expired.Status != domain.StatusExpired {
		t.Fatalf("expected sibling to be EXPIRED, got %s", expired.Status)
	}
	if expired.RejectionReason == nil || *expired.RejectionReason != domain.ExpiredSiblingReason {
		t.Fatalf("expected sibling expiry reason, got %v", expired.RejectionReason)
	}
	// Pending offers the citizen never selected are left alone.
	if got := repo.get(t, pendingMatch.ID).Status; got != domain.StatusPending {
		t.Fatalf("expected pending sibling untouched, got %s", got)
	}

	if got := len(bus.named(events.MatchAccepted{}.EventName())); got != 1 {
		t.Fatalf("expected 1 accepted event, got %d", got)
	}
	if got := len(bus.named(events.MatchExpired{}.EventName())); got != 1 {
		t.Fatalf("expected 1 expired event, got %d", got)
	}
}

func TestAcceptAssignment_RequiresSelectedStatus(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusPending})

	_, err := svc.AcceptAssignment(context.Background(), match.ID, provider.UserID)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestAcceptAssignment_ConcurrentAcceptsHaveOneWinner(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	bus := &recordingBus{}
	svc := newTestService(repo, dir, bus, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})

	const contenders = 8
	type contender struct {
		matchID uuid.UUID
		userID  uuid.UUID
	}
	racers := make([]contender, 0, contenders)
	for i := 0; i < contenders; i++ {
		provider := dir.addProvider(directoryrepo.ProviderView{Name: string(rune('A' + i))})
		match := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: provider.ID, Status: domain.StatusSelectedByCitizen})
		racers = append(racers, contender{matchID: match.ID, userID: provider.UserID})
	}

	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i, racer := range racers {
		wg.Add(1)
		go func(i int, racer contender) {
			defer wg.Done()
			_, errs[i] = svc.AcceptAssignment(context.Background(), racer.matchID, racer.userID)
		}(i, racer)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if !apperr.Is(err, apperr.KindConcurrency) && !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}

	accepted, expired := 0, 0
	repo.mu.Lock()
	for _, m := range repo.matches {
		switch m.Status {
		case domain.StatusAcceptedByProvider:
			accepted++
		case domain.StatusExpired:
			expired++
		default:
			repo.mu.Unlock()
			t.Fatalf("unexpected final status %s", m.Status)
		}
	}
	repo.mu.Unlock()
	if accepted != 1 || expired != contenders-1 {
		t.Fatalf("expected 1 accepted and %d expired, got %d/%d", contenders-1, accepted, expired)
	}
}

func TestListPendingMatches_HidesDecidedOffers(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	caseView := dir.addCase(directoryrepo.CaseView{})
	providerA := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	providerB := dir.addProvider(directoryrepo.ProviderView{Name: "B"})
	providerC := dir.addProvider(directoryrepo.ProviderView{Name: "C"})
	pending := repo.put(domain.Match{CaseID: caseView.ID, ProviderID: providerA.ID, Status: domain.StatusPending})
	repo.put(domain.Match{CaseID: caseView.ID, ProviderID: providerB.ID, Status: domain.StatusSelectedByCitizen})
	repo.put(domain.Match{CaseID: caseView.ID, ProviderID: providerC.ID, Status: domain.StatusRejectedByCitizen})

	result, err := svc.ListPendingMatches(context.Background(), caseView.ID, caseView.CitizenID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected 1 pending match, got %d", result.Total)
	}
	if result.Items[0].ID != pending.ID {
		t.Fatalf("expected the pending match, got %s", result.Items[0].ID)
	}
}

func TestListAssignedCases_ReturnsActiveAssignments(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	caseA := dir.addCase(directoryrepo.CaseView{})
	caseB := dir.addCase(directoryrepo.CaseView{})
	caseC := dir.addCase(directoryrepo.CaseView{})
	provider := dir.addProvider(directoryrepo.ProviderView{Name: "A"})
	repo.put(domain.Match{CaseID: caseA.ID, ProviderID: provider.ID, Status: domain.StatusSelectedByCitizen})
	repo.put(domain.Match{CaseID: caseB.ID, ProviderID: provider.ID, Status: domain.StatusAcceptedByProvider})
	repo.put(domain.Match{CaseID: caseC.ID, ProviderID: provider.ID, Status: domain.StatusPending})

	result, err := svc.ListAssignedCases(context.Background(), provider.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 assignments, got %d", result.Total)
	}
	for _, item := range result.Items {
		if item.Status == string(domain.StatusPending) {
			t.Fatal("pending offers must not appear in assignments")
		}
	}
}

func TestListAssignedCases_NoProviderProfile(t *testing.T) {
	repo := newFakeRepo()
	dir := newFakeDirectory()
	svc := newTestService(repo, dir, &recordingBus{}, Options{})

	_, err := svc.ListAssignedCases(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
