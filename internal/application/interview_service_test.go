package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/interview-scheduler/internal/interview"
	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/testfixtures"
)

type proposalStoreStub struct {
	mu        sync.Mutex
	proposals map[string]interview.Proposal
	conflicts int
	alwaysErr error
	updates   int
	creates   int
	attempts  int
}

func newProposalStoreStub(proposals ...interview.Proposal) *proposalStoreStub {
	store := &proposalStoreStub{proposals: make(map[string]interview.Proposal)}
	for _, p := range proposals {
		store.proposals[p.ApplicationID] = p.Clone()
	}
	return store
}

func (s *proposalStoreStub) CreateProposal(ctx context.Context, proposal interview.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if _, ok := s.proposals[proposal.ApplicationID]; ok {
		return persistence.ErrDuplicate
	}
	s.creates++
	s.proposals[proposal.ApplicationID] = proposal.Clone()
	return nil
}

func (s *proposalStoreStub) GetProposal(ctx context.Context, applicationID string) (interview.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[applicationID]
	if !ok {
		return interview.Proposal{}, persistence.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *proposalStoreStub) UpdateProposal(ctx context.Context, proposal interview.Proposal, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.alwaysErr != nil {
		return s.alwaysErr
	}
	if s.conflicts > 0 {
		s.conflicts--
		return persistence.ErrVersionConflict
	}
	current, ok := s.proposals[proposal.ApplicationID]
	if !ok {
		return persistence.ErrNotFound
	}
	if current.Version != expectedVersion {
		return persistence.ErrVersionConflict
	}
	s.updates++
	s.proposals[proposal.ApplicationID] = proposal.Clone()
	return nil
}

func (s *proposalStoreStub) ListProposals(ctx context.Context, query ProposalQuery) ([]interview.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []interview.Proposal
	for _, p := range s.proposals {
		if query.EmployerID != "" && p.EmployerID != query.EmployerID {
			continue
		}
		if query.CandidateID != "" && p.CandidateID != query.CandidateID {
			continue
		}
		if len(query.Statuses) > 0 {
			found := false
			for _, status := range query.Statuses {
				if status == p.Status {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		if query.DeadlineBefore != nil && (p.VotingDeadline == nil || !p.VotingDeadline.Before(*query.DeadlineBefore)) {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicationID < out[j].ApplicationID })
	return out, nil
}

func (s *proposalStoreStub) stored(t *testing.T, applicationID string) interview.Proposal {
	t.Helper()
	p, err := s.GetProposal(context.Background(), applicationID)
	if err != nil {
		t.Fatalf("stored proposal %s: %v", applicationID, err)
	}
	return p
}

type directoryStub struct {
	refs map[string]interview.ProposalRef
}

func (d *directoryStub) LookupApplication(ctx context.Context, applicationID string) (interview.ProposalRef, error) {
	ref, ok := d.refs[applicationID]
	if !ok {
		return interview.ProposalRef{}, persistence.ErrNotFound
	}
	return ref, nil
}

type notifierStub struct {
	mu     sync.Mutex
	events []Event
}

func (n *notifierStub) Notify(ctx context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *notifierStub) types() []interview.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]interview.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type oracleStub struct {
	suggestions []interview.Suggestion
	err         error
	block       bool
	request     interview.SuggestionRequest
}

func (o *oracleStub) Suggest(ctx context.Context, request interview.SuggestionRequest) ([]interview.Suggestion, error) {
	o.request = request
	if o.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return o.suggestions, o.err
}

type linkStub struct {
	link string
	err  error
}

func (l linkStub) MeetingLink(ctx context.Context, proposal interview.Proposal) (string, error) {
	return l.link, l.err
}

type metricsStub struct {
	mu        sync.Mutex
	events    map[interview.EventType]int
	conflicts int
	exhausted int
	oracle    []string
}

func (m *metricsStub) TransitionApplied(event interview.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[interview.EventType]int)
	}
	m.events[event]++
}

func (m *metricsStub) WriteConflict(string) {
	m.mu.Lock()
	m.conflicts++
	m.mu.Unlock()
}

func (m *metricsStub) WriteExhausted(string) {
	m.mu.Lock()
	m.exhausted++
	m.mu.Unlock()
}

func (m *metricsStub) OracleResult(outcome string) {
	m.mu.Lock()
	m.oracle = append(m.oracle, outcome)
	m.mu.Unlock()
}

var (
	employer  = Principal{UserID: "emp-1", Role: RoleEmployer}
	candidate = Principal{UserID: "cand-1", Role: RoleCandidate}
)

func newTestService(t *testing.T, deps InterviewDependencies, now time.Time) (*InterviewService, *testfixtures.Clock) {
	t.Helper()
	clock := testfixtures.NewClock(now)
	ids := testfixtures.NewIDGenerator("evt")
	engine := interview.NewEngine(clock.NowFunc())
	return NewInterviewService(deps, engine, ids.NextFunc(), InterviewServiceConfig{OracleTimeout: 20 * time.Millisecond}), clock
}

func votingFixture(now time.Time, slots ...interview.Slot) interview.Proposal {
	return testfixtures.NewProposal(
		testfixtures.WithApplicationID("app-1"),
		testfixtures.WithParties("emp-1", "cand-1"),
		testfixtures.WithSlots(slots...),
		testfixtures.WithVoting(now.Add(48*time.Hour)),
		testfixtures.WithVersion(1),
	)
}

func TestInterviewService_AddSlot_CreatesFromDirectory(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	store := newProposalStoreStub()
	notifier := &notifierStub{}
	directory := &directoryStub{refs: map[string]interview.ProposalRef{
		"app-1": {EmployerID: "emp-1", CandidateID: "cand-1", JobID: "job-9"},
	}}
	svc, _ := newTestService(t, InterviewDependencies{Proposals: store, Applications: directory, Notifier: notifier}, now)

	deadline := now.Add(24 * time.Hour)
	view, err := svc.AddSlot(context.Background(), AddSlotParams{
		Principal:      employer,
		ApplicationID:  "app-1",
		Slot:           testfixtures.SlotInput(testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 70)),
		VotingDeadline: &deadline,
	})
	if err != nil {
		t.Fatalf("AddSlot failed: %v", err)
	}
	if view.Status != interview.StatusVoting || view.Proposal.Version != 1 {
		t.Fatalf("expected voting proposal at version 1, got %s/%d", view.Status, view.Proposal.Version)
	}

	stored := store.stored(t, "app-1")
	if stored.CandidateID != "cand-1" || stored.JobID != "job-9" || stored.ApplicationID != "app-1" {
		t.Fatalf("expected parties from directory, got %#v", stored.Ref())
	}
	if got := notifier.types(); len(got) != 2 || got[0] != interview.EventSlotAdded || got[1] != interview.EventProposed {
		t.Fatalf("unexpected events %v", got)
	}
	if notifier.events[0].ID != "evt-1" {
		t.Fatalf("expected generated event id, got %q", notifier.events[0].ID)
	}
}

func TestInterviewService_AddSlot_Authorization(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	directory := &directoryStub{refs: map[string]interview.ProposalRef{
		"app-1": {EmployerID: "emp-1", CandidateID: "cand-1"},
	}}
	slot := testfixtures.SlotInput(testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 70))

	tests := []struct {
		name      string
		principal Principal
		appID     string
		wantErr   error
	}{
		{name: "other employer", principal: Principal{UserID: "emp-2", Role: RoleEmployer}, appID: "app-1", wantErr: ErrUnauthorized},
		{name: "candidate", principal: Principal{UserID: "cand-1", Role: RoleCandidate}, appID: "app-1", wantErr: ErrUnauthorized},
		{name: "unknown application", principal: employer, appID: "app-404", wantErr: ErrApplicationNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newProposalStoreStub()
			svc, _ := newTestService(t, InterviewDependencies{Proposals: store, Applications: directory}, now)
			_, err := svc.AddSlot(context.Background(), AddSlotParams{Principal: tt.principal, ApplicationID: tt.appID, Slot: slot})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if store.creates != 0 {
				t.Fatalf("expected no proposal to be created")
			}
		})
	}
}

func TestInterviewService_AddSlot_RequiresCandidateWithoutDirectory(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	svc, _ := newTestService(t, InterviewDependencies{Proposals: newProposalStoreStub()}, now)
	slot := testfixtures.SlotInput(testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 70))

	_, err := svc.AddSlot(context.Background(), AddSlotParams{Principal: employer, ApplicationID: "app-1", Slot: slot})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["candidate_id"] == "" {
		t.Fatalf("expected candidate_id validation error, got %v", err)
	}

	view, err := svc.AddSlot(context.Background(), AddSlotParams{Principal: employer, ApplicationID: "app-1", CandidateID: "cand-1", Slot: slot})
	if err != nil {
		t.Fatalf("AddSlot failed: %v", err)
	}
	if view.Proposal.EmployerID != "emp-1" || view.Proposal.CandidateID != "cand-1" || view.Status != interview.StatusDraft {
		t.Fatalf("unexpected proposal %#v", view.Proposal.Ref())
	}
}

func TestInterviewService_AddSlot_ConcurrentCallsGetDistinctIndices(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	store := newProposalStoreStub()
	clock := testfixtures.NewClock(now)
	svc := NewInterviewService(InterviewDependencies{Proposals: store}, interview.NewEngine(clock.NowFunc()), nil, InterviewServiceConfig{MaxAttempts: 100})

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slot := testfixtures.VideoSlot(now.Add(time.Duration(24+i)*time.Hour), time.Hour, 50)
			_, err := svc.AddSlot(context.Background(), AddSlotParams{
				Principal:     employer,
				ApplicationID: "app-race",
				CandidateID:   "cand-1",
				Slot:          testfixtures.SlotInput(slot),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddSlot failed: %v", err)
		}
	}

	stored := store.stored(t, "app-race")
	if len(stored.Slots) != writers || stored.NextSlotIndex != writers {
		t.Fatalf("expected %d slots, got %d (next index %d)", writers, len(stored.Slots), stored.NextSlotIndex)
	}
	seen := make(map[int]bool)
	for _, slot := range stored.Slots {
		if seen[slot.Index] || slot.Index < 0 || slot.Index >= writers {
			t.Fatalf("unexpected index %d in %v", slot.Index, stored.Slots)
		}
		seen[slot.Index] = true
	}
	if stored.Version != writers {
		t.Fatalf("expected version %d, got %d", writers, stored.Version)
	}
}

func TestInterviewService_RetriesVersionConflicts(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	base := votingFixture(now, testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 90))

	t.Run("recovers after a conflict", func(t *testing.T) {
		t.Parallel()
		store := newProposalStoreStub(base)
		store.conflicts = 2
		metrics := &metricsStub{}
		svc, _ := newTestService(t, InterviewDependencies{Proposals: store, Metrics: metrics}, now)

		view, err := svc.CastVote(context.Background(), CastVoteParams{
			Principal:     candidate,
			ApplicationID: "app-1",
			Vote:          interview.VoteInput{SlotIndex: 0, Rank: 1, Availability: interview.AvailabilityMaybe},
		})
		if err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
		if store.attempts != 3 || metrics.conflicts != 2 {
			t.Fatalf("expected 3 attempts and 2 conflicts, got %d/%d", store.attempts, metrics.conflicts)
		}
		if view.Proposal.Version != 2 {
			t.Fatalf("expected version 2, got %d", view.Proposal.Version)
		}
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		t.Parallel()
		store := newProposalStoreStub(base)
		store.alwaysErr = persistence.ErrVersionConflict
		metrics := &metricsStub{}
		svc, _ := newTestService(t, InterviewDependencies{Proposals: store, Metrics: metrics}, now)

		_, err := svc.CastVote(context.Background(), CastVoteParams{
			Principal:     candidate,
			ApplicationID: "app-1",
			Vote:          interview.VoteInput{SlotIndex: 0, Rank: 1, Availability: interview.AvailabilityMaybe},
		})
		if !errors.Is(err, ErrConcurrentModification) {
			t.Fatalf("expected ErrConcurrentModification, got %v", err)
		}
		if store.attempts != DefaultMaxAttempts || metrics.exhausted != 1 {
			t.Fatalf("expected %d attempts and one exhaustion, got %d/%d", DefaultMaxAttempts, store.attempts, metrics.exhausted)
		}
		if stored := store.stored(t, "app-1"); len(stored.Votes) != 0 {
			t.Fatalf("expected no vote to be stored")
		}
	})
}

func TestInterviewService_CastVote_AutoConfirmAttachesMeetingLink(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	store := newProposalStoreStub(votingFixture(now,
		testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 60),
		testfixtures.VideoSlot(now.Add(77*time.Hour), time.Hour, 90),
	))
	notifier := &notifierStub{}
	metrics := &metricsStub{}
	svc, _ := newTestService(t, InterviewDependencies{
		Proposals: store,
		Notifier:  notifier,
		Links:     linkStub{link: "https://meet.example.com/abc"},
		Metrics:   metrics,
	}, now)

	ctx := context.Background()
	if _, err := svc.CastVote(ctx, CastVoteParams{Principal: candidate, ApplicationID: "app-1", Vote: interview.VoteInput{SlotIndex: 0, Rank: 2, Availability: interview.AvailabilityMaybe}}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	view, err := svc.CastVote(ctx, CastVoteParams{Principal: candidate, ApplicationID: "app-1", Vote: interview.VoteInput{SlotIndex: 1, Rank: 1, Availability: interview.AvailabilityAvailable}})
	if err != nil {
		t.Fatalf("second vote failed: %v", err)
	}

	if view.Status != interview.StatusConfirmed || view.Proposal.ConfirmedSlot == nil {
		t.Fatalf("expected automatic confirmation, got %s", view.Status)
	}
	confirmed := store.stored(t, "app-1").ConfirmedSlot
	if confirmed == nil || confirmed.SlotIndex != 1 || !confirmed.Automatic || confirmed.MeetingLink != "https://meet.example.com/abc" {
		t.Fatalf("unexpected confirmed slot %#v", confirmed)
	}

	var confirmEvent *Event
	for i := range notifier.events {
		if notifier.events[i].Type == interview.EventConfirmed {
			confirmEvent = &notifier.events[i]
		}
	}
	if confirmEvent == nil || confirmEvent.Actor != interview.ActorSystem || confirmEvent.SlotIndex == nil || *confirmEvent.SlotIndex != 1 {
		t.Fatalf("unexpected confirmation event %#v", confirmEvent)
	}
	if metrics.events[interview.EventVoted] != 2 || metrics.events[interview.EventConfirmed] != 1 {
		t.Fatalf("unexpected transition counts %v", metrics.events)
	}
}

func TestInterviewService_CastVote_RedeliveryDoesNotWrite(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	store := newProposalStoreStub(votingFixture(now,
		testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 10),
		testfixtures.VideoSlot(now.Add(80*time.Hour), time.Hour, 10),
	))
	notifier := &notifierStub{}
	svc, _ := newTestService(t, InterviewDependencies{Proposals: store, Notifier: notifier}, now)

	params := CastVoteParams{Principal: candidate, ApplicationID: "app-1", Vote: interview.VoteInput{SlotIndex: 1, Rank: 2, Availability: interview.AvailabilityMaybe}}
	for i := 0; i < 3; i++ {
		if _, err := svc.CastVote(context.Background(), params); err != nil {
			t.Fatalf("CastVote %d failed: %v", i, err)
		}
	}
	if store.updates != 1 || len(notifier.types()) != 1 {
		t.Fatalf("expected a single write and event, got %d writes and %v", store.updates, notifier.types())
	}
}

func TestInterviewService_CastVote_RequiresCandidate(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	store := newProposalStoreStub(votingFixture(now, testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 10)))
	svc, _ := newTestService(t, InterviewDependencies{Proposals: store}, now)

	for _, principal := range []Principal{employer, {UserID: "cand-2", Role: RoleCandidate}, {}} {
		_, err := svc.CastVote(context.Background(), CastVoteParams{Principal: principal, ApplicationID: "app-1", Vote: interview.VoteInput{SlotIndex: 0, Rank: 1, Availability: interview.AvailabilityAvailable}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("principal %+v: expected ErrUnauthorized, got %v", principal, err)
		}
	}

	_, err := svc.CastVote(context.Background(), CastVoteParams{Principal: candidate, ApplicationID: "missing", Vote: interview.VoteInput{SlotIndex: 0, Rank: 1, Availability: interview.AvailabilityAvailable}})
	if !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
}

func TestInterviewService_GetSlots_DerivesExpiryWithoutWriting(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	store := newProposalStoreStub(votingFixture(now, testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 10)))
	svc, clock := newTestService(t, InterviewDependencies{Proposals: store}, now)

	clock.Advance(48*time.Hour + time.Second)
	view, err := svc.GetSlots(context.Background(), GetSlotsParams{Principal: candidate, ApplicationID: "app-1"})
	if err != nil {
		t.Fatalf("GetSlots failed: %v", err)
	}
	if view.Status != interview.StatusExpired {
		t.Fatalf("expected derived expired status, got %s", view.Status)
	}
	if stored := store.stored(t, "app-1"); stored.Status != interview.StatusVoting || store.updates != 0 {
		t.Fatalf("expected no write, stored status %s with %d updates", stored.Status, store.updates)
	}
	if len(view.Tally) != 1 {
		t.Fatalf("expected tally for one slot, got %d", len(view.Tally))
	}

	if _, err := svc.GetSlots(context.Background(), GetSlotsParams{Principal: Principal{UserID: "intruder", Role: RoleCandidate}, ApplicationID: "app-1"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestInterviewService_ConfirmAndCancel(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	start := now.Add(72 * time.Hour)
	store := newProposalStoreStub(votingFixture(now, testfixtures.VideoSlot(start, time.Hour, 10)))
	notifier := &notifierStub{}
	svc, clock := newTestService(t, InterviewDependencies{Proposals: store, Notifier: notifier, Links: linkStub{err: errors.New("oauth down")}}, now)
	ctx := context.Background()

	view, err := svc.ConfirmSlot(ctx, ConfirmSlotParams{Principal: employer, ApplicationID: "app-1", SlotIndex: 0})
	if err != nil {
		t.Fatalf("ConfirmSlot failed: %v", err)
	}
	if view.Proposal.ConfirmedSlot.ConfirmedBy != interview.ActorEmployer || view.Proposal.ConfirmedSlot.MeetingLink != "" {
		t.Fatalf("unexpected confirmed slot %#v", view.Proposal.ConfirmedSlot)
	}

	clock.Set(start.Add(-4*time.Hour + time.Second))
	if _, err := svc.CancelInterview(ctx, CancelInterviewParams{Principal: candidate, ApplicationID: "app-1"}); !errors.Is(err, interview.ErrCancellationWindowClosed) {
		t.Fatalf("expected ErrCancellationWindowClosed, got %v", err)
	}

	clock.Set(start.Add(-4 * time.Hour))
	view, err = svc.CancelInterview(ctx, CancelInterviewParams{Principal: candidate, ApplicationID: "app-1"})
	if err != nil {
		t.Fatalf("CancelInterview failed: %v", err)
	}
	if view.Proposal.Cancellation.CancelledBy != interview.ActorCandidate || view.Proposal.Cancellation.Reason != interview.DefaultCancellationReason {
		t.Fatalf("unexpected cancellation %#v", view.Proposal.Cancellation)
	}
	if view.Proposal.ConfirmedSlot == nil {
		t.Fatalf("expected confirmed slot to be retained")
	}

	if _, err := svc.CancelInterview(ctx, CancelInterviewParams{Principal: employer, ApplicationID: "app-1", Reason: "again"}); err != nil {
		t.Fatalf("expected repeated cancel to be a no-op, got %v", err)
	}
	if got := notifier.types(); len(got) != 2 || got[1] != interview.EventCancelled {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestInterviewService_ListSlotsFiltersByDerivedStatus(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	slot := testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 10)
	expiring := testfixtures.NewProposal(
		testfixtures.WithApplicationID("app-a"),
		testfixtures.WithParties("emp-1", "cand-1"),
		testfixtures.WithSlots(slot),
		testfixtures.WithVoting(now.Add(time.Hour)),
	)
	open := testfixtures.NewProposal(
		testfixtures.WithApplicationID("app-b"),
		testfixtures.WithParties("emp-1", "cand-2"),
		testfixtures.WithSlots(slot),
		testfixtures.WithVoting(now.Add(48*time.Hour)),
	)
	foreign := testfixtures.NewProposal(
		testfixtures.WithApplicationID("app-c"),
		testfixtures.WithParties("emp-2", "cand-1"),
		testfixtures.WithSlots(slot),
	)
	store := newProposalStoreStub(expiring, open, foreign)
	svc, clock := newTestService(t, InterviewDependencies{Proposals: store}, now)
	clock.Advance(2 * time.Hour)
	ctx := context.Background()

	expired, err := svc.ListEmployerSlots(ctx, ListInterviewsParams{Principal: employer, PartyID: "emp-1", Statuses: []interview.Status{interview.StatusExpired}})
	if err != nil {
		t.Fatalf("ListEmployerSlots failed: %v", err)
	}
	if len(expired) != 1 || expired[0].Proposal.ApplicationID != "app-a" {
		t.Fatalf("expected only app-a expired, got %d views", len(expired))
	}

	all, err := svc.ListCandidateSlots(ctx, ListInterviewsParams{Principal: candidate, PartyID: "cand-1"})
	if err != nil {
		t.Fatalf("ListCandidateSlots failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 candidate interviews, got %d", len(all))
	}

	if _, err := svc.ListEmployerSlots(ctx, ListInterviewsParams{Principal: employer, PartyID: "emp-2"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var vErr *ValidationError
	if _, err := svc.ListCandidateSlots(ctx, ListInterviewsParams{Principal: candidate, PartyID: "cand-1", Statuses: []interview.Status{"pending"}}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.updates != 0 {
		t.Fatalf("expected listing to be read-only")
	}
}

func TestInterviewService_GetAISuggestions(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	windowStart := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(5 * 24 * time.Hour)
	busyStart := windowStart.Add(10 * time.Hour)
	confirmed := testfixtures.NewProposal(
		testfixtures.WithApplicationID("app-busy"),
		testfixtures.WithParties("emp-1", "cand-9"),
		testfixtures.WithSlots(testfixtures.VideoSlot(busyStart, time.Hour, 50)),
		testfixtures.WithVoting(now.Add(time.Hour)),
		testfixtures.WithConfirmed(0, interview.ActorEmployer, now),
	)
	params := SuggestionsParams{Principal: employer, EmployerID: "emp-1", StartDate: windowStart, EndDate: windowEnd, DurationMinutes: 60}

	t.Run("passes busy intervals and filters results", func(t *testing.T) {
		t.Parallel()
		oracle := &oracleStub{suggestions: []interview.Suggestion{
			{StartTime: windowStart.Add(9 * time.Hour), EndTime: windowStart.Add(10 * time.Hour), Score: 80},
			{StartTime: windowStart.Add(-time.Hour), EndTime: windowStart, Score: 99},
			{StartTime: windowStart.Add(11 * time.Hour), EndTime: windowStart.Add(11*time.Hour + 30*time.Minute), Score: 70},
		}}
		metrics := &metricsStub{}
		svc, _ := newTestService(t, InterviewDependencies{Proposals: newProposalStoreStub(confirmed), Oracle: oracle, Metrics: metrics}, now)

		suggestions, err := svc.GetAISuggestions(context.Background(), params)
		if err != nil {
			t.Fatalf("GetAISuggestions failed: %v", err)
		}
		if len(suggestions) != 1 || suggestions[0].Score != 80 {
			t.Fatalf("unexpected suggestions %#v", suggestions)
		}
		if len(oracle.request.Busy) != 1 || !oracle.request.Busy[0].Start.Equal(busyStart) {
			t.Fatalf("expected busy interval at %v, got %#v", busyStart, oracle.request.Busy)
		}
		if oracle.request.Duration != time.Hour || oracle.request.Timezone != "UTC" {
			t.Fatalf("unexpected request %#v", oracle.request)
		}
		if len(metrics.oracle) != 1 || metrics.oracle[0] != "ok" {
			t.Fatalf("unexpected oracle metrics %v", metrics.oracle)
		}
	})

	t.Run("degrades on timeout", func(t *testing.T) {
		t.Parallel()
		metrics := &metricsStub{}
		svc, _ := newTestService(t, InterviewDependencies{Proposals: newProposalStoreStub(), Oracle: &oracleStub{block: true}, Metrics: metrics}, now)

		suggestions, err := svc.GetAISuggestions(context.Background(), params)
		if err != nil {
			t.Fatalf("expected degradation without error, got %v", err)
		}
		if suggestions == nil || len(suggestions) != 0 {
			t.Fatalf("expected empty non-nil suggestions, got %#v", suggestions)
		}
		if len(metrics.oracle) != 1 || metrics.oracle[0] != "timeout" {
			t.Fatalf("expected timeout outcome, got %v", metrics.oracle)
		}
	})

	t.Run("degrades on error", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, InterviewDependencies{Oracle: &oracleStub{err: errors.New("quota exceeded")}}, now)
		suggestions, err := svc.GetAISuggestions(context.Background(), params)
		if err != nil || len(suggestions) != 0 {
			t.Fatalf("expected empty result, got %v, %v", suggestions, err)
		}
	})

	t.Run("validates input and authorization", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, InterviewDependencies{Oracle: &oracleStub{}}, now)

		bad := params
		bad.EndDate = bad.StartDate
		bad.DurationMinutes = 0
		bad.Timezone = "Mars/Olympus"
		_, err := svc.GetAISuggestions(context.Background(), bad)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"end_date", "duration_minutes", "timezone"} {
			if vErr.FieldErrors[field] == "" {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}

		other := params
		other.Principal = candidate
		if _, err := svc.GetAISuggestions(context.Background(), other); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestInterviewService_SweepExpired(t *testing.T) {
	t.Parallel()

	now := testfixtures.ReferenceTime()
	slot := testfixtures.VideoSlot(now.Add(72*time.Hour), time.Hour, 10)
	overdue := testfixtures.NewProposal(
		testfixtures.WithApplicationID("app-old"),
		testfixtures.WithSlots(slot),
		testfixtures.WithVoting(now.Add(time.Hour)),
		testfixtures.WithVersion(3),
	)
	current := testfixtures.NewProposal(
		testfixtures.WithApplicationID("app-new"),
		testfixtures.WithSlots(slot),
		testfixtures.WithVoting(now.Add(10*time.Hour)),
		testfixtures.WithVersion(1),
	)
	store := newProposalStoreStub(overdue, current)
	notifier := &notifierStub{}
	svc, clock := newTestService(t, InterviewDependencies{Proposals: store, Notifier: notifier}, now)
	clock.Advance(2 * time.Hour)

	count, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one expired proposal, got %d", count)
	}
	if stored := store.stored(t, "app-old"); stored.Status != interview.StatusExpired || stored.Version != 4 {
		t.Fatalf("expected persisted expiry at version 4, got %s/%d", stored.Status, stored.Version)
	}
	if stored := store.stored(t, "app-new"); stored.Status != interview.StatusVoting {
		t.Fatalf("expected open proposal untouched, got %s", stored.Status)
	}
	if got := notifier.types(); len(got) != 1 || got[0] != interview.EventExpired || notifier.events[0].Actor != interview.ActorSystem {
		t.Fatalf("unexpected events %#v", notifier.events)
	}

	again, err := svc.SweepExpired(context.Background())
	if err != nil || again != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %d, %v", again, err)
	}
}

func TestMapProposalRepoError(t *testing.T) {
	t.Parallel()

	if !errors.Is(mapProposalRepoError(persistence.ErrNotFound), ErrProposalNotFound) {
		t.Fatalf("expected not found mapping")
	}
	if !errors.Is(mapProposalRepoError(persistence.ErrVersionConflict), ErrConcurrentModification) {
		t.Fatalf("expected conflict mapping")
	}
	var vErr *ValidationError
	if !errors.As(mapProposalRepoError(persistence.ErrConstraintViolation), &vErr) {
		t.Fatalf("expected constraint mapping to validation error")
	}
	other := errors.New("boom")
	if mapProposalRepoError(other) != other {
		t.Fatalf("expected passthrough")
	}
	if mapProposalRepoError(nil) != nil {
		t.Fatalf("expected nil")
	}
}
