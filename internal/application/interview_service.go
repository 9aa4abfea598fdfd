package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/interview-scheduler/internal/interview"
	"github.com/example/interview-scheduler/internal/persistence"
)

const (
	// DefaultMaxAttempts bounds the read, transition, write retry loop.
	DefaultMaxAttempts = 3
	// DefaultOracleTimeout bounds a single suggestion request.
	DefaultOracleTimeout = 3 * time.Second

	maxSuggestionWindow = 31 * 24 * time.Hour
)

// InterviewDependencies groups the collaborators of the interview service.
// Only Proposals is required.
type InterviewDependencies struct {
	Proposals    ProposalStore
	Applications ApplicationDirectory
	Notifier     Notifier
	Oracle       Oracle
	Links        MeetingLinkProvider
	Metrics      Metrics
}

// InterviewServiceConfig tunes retry and timeout behaviour.
type InterviewServiceConfig struct {
	MaxAttempts   int
	OracleTimeout time.Duration
}

// InterviewService orchestrates authorization, the scheduling engine and
// optimistic persistence for interview proposals.
type InterviewService struct {
	proposals     ProposalStore
	applications  ApplicationDirectory
	notifier      Notifier
	oracle        Oracle
	links         MeetingLinkProvider
	metrics       Metrics
	engine        *interview.Engine
	idGenerator   func() string
	maxAttempts   int
	oracleTimeout time.Duration
	logger        *slog.Logger
}

// NewInterviewService wires the interview service with the provided dependencies.
func NewInterviewService(deps InterviewDependencies, engine *interview.Engine, idGenerator func() string, cfg InterviewServiceConfig) *InterviewService {
	return NewInterviewServiceWithLogger(deps, engine, idGenerator, cfg, nil)
}

// NewInterviewServiceWithLogger wires the interview service with a specified logger.
func NewInterviewServiceWithLogger(deps InterviewDependencies, engine *interview.Engine, idGenerator func() string, cfg InterviewServiceConfig, logger *slog.Logger) *InterviewService {
	if engine == nil {
		engine = interview.NewEngine(nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = DefaultOracleTimeout
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &InterviewService{
		proposals:     deps.Proposals,
		applications:  deps.Applications,
		notifier:      deps.Notifier,
		oracle:        deps.Oracle,
		links:         deps.Links,
		metrics:       metrics,
		engine:        engine,
		idGenerator:   idGenerator,
		maxAttempts:   cfg.MaxAttempts,
		oracleTimeout: cfg.OracleTimeout,
		logger:        defaultLogger(logger),
	}
}

func (s *InterviewService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InterviewService", operation, attrs...)
}

// AddSlot appends one slot, creating the proposal on first use. A supplied
// deadline opens voting or replaces the current deadline.
func (s *InterviewService) AddSlot(ctx context.Context, params AddSlotParams) (view ProposalView, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddSlot",
		"principal_id", params.Principal.UserID,
		"application_id", params.ApplicationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_count", len(view.Proposal.Slots), "status", view.Status).InfoContext(ctx, "slot added")
	}()

	create := s.creator(params.Principal, params.ApplicationID, params.CandidateID, params.JobID)
	tr, err := s.mutate(ctx, "AddSlot", params.ApplicationID, create, s.requireEmployer(params.Principal),
		func(p interview.Proposal) (interview.Transition, error) {
			return s.engine.AddSlot(p, params.Slot, params.VotingDeadline)
		})
	if err != nil {
		return ProposalView{}, err
	}
	view = s.view(tr.Proposal)
	return view, nil
}

// ProposeSlots replaces the slot list of a draft and opens voting.
func (s *InterviewService) ProposeSlots(ctx context.Context, params ProposeSlotsParams) (view ProposalView, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ProposeSlots",
		"principal_id", params.Principal.UserID,
		"application_id", params.ApplicationID,
		"slot_count", len(params.Slots),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to propose slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", view.Status).InfoContext(ctx, "slots proposed")
	}()

	create := s.creator(params.Principal, params.ApplicationID, params.CandidateID, params.JobID)
	tr, err := s.mutate(ctx, "ProposeSlots", params.ApplicationID, create, s.requireEmployer(params.Principal),
		func(p interview.Proposal) (interview.Transition, error) {
			return s.engine.ProposeSlots(p, params.Slots, params.VotingDeadline, params.MeetingType)
		})
	if err != nil {
		return ProposalView{}, err
	}
	view = s.view(tr.Proposal)
	return view, nil
}

// RemoveSlot drops a slot from a draft proposal.
func (s *InterviewService) RemoveSlot(ctx context.Context, params RemoveSlotParams) (view ProposalView, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RemoveSlot",
		"principal_id", params.Principal.UserID,
		"application_id", params.ApplicationID,
		"slot_index", params.SlotIndex,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot removed")
	}()

	tr, err := s.mutate(ctx, "RemoveSlot", params.ApplicationID, nil, s.requireEmployer(params.Principal),
		func(p interview.Proposal) (interview.Transition, error) {
			return s.engine.RemoveSlot(p, params.SlotIndex)
		})
	if err != nil {
		return ProposalView{}, err
	}
	view = s.view(tr.Proposal)
	return view, nil
}

// GetSlots returns the proposal with its derived status and tally. Expiry is
// derived on read and never written here.
func (s *InterviewService) GetSlots(ctx context.Context, params GetSlotsParams) (view ProposalView, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}
	if s.proposals == nil {
		err = fmt.Errorf("proposal store not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetSlots",
		"principal_id", params.Principal.UserID,
		"application_id", params.ApplicationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get slots", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	proposal, err := s.proposals.GetProposal(ctx, params.ApplicationID)
	if err != nil {
		return ProposalView{}, mapProposalRepoError(err)
	}
	if _, err = partyActor(params.Principal, proposal); err != nil {
		return ProposalView{}, err
	}
	view = s.view(proposal)
	return view, nil
}

// CastVote records the candidate's vote and may confirm automatically.
func (s *InterviewService) CastVote(ctx context.Context, params CastVoteParams) (view ProposalView, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CastVote",
		"principal_id", params.Principal.UserID,
		"application_id", params.ApplicationID,
		"slot_index", params.Vote.SlotIndex,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cast vote", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", view.Status).InfoContext(ctx, "vote cast")
	}()

	authorize := func(p interview.Proposal) (interview.Actor, error) {
		if params.Principal.Role != RoleCandidate || params.Principal.UserID != p.CandidateID {
			return "", ErrUnauthorized
		}
		return interview.ActorCandidate, nil
	}
	tr, err := s.mutate(ctx, "CastVote", params.ApplicationID, nil, authorize,
		func(p interview.Proposal) (interview.Transition, error) {
			return s.engine.CastVote(p, params.Vote)
		})
	if err != nil {
		return ProposalView{}, err
	}
	view = s.view(tr.Proposal)
	return view, nil
}

// ConfirmSlot confirms a slot on behalf of either party.
func (s *InterviewService) ConfirmSlot(ctx context.Context, params ConfirmSlotParams) (view ProposalView, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ConfirmSlot",
		"principal_id", params.Principal.UserID,
		"application_id", params.ApplicationID,
		"slot_index", params.SlotIndex,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot confirmed")
	}()

	var actor interview.Actor
	authorize := func(p interview.Proposal) (interview.Actor, error) {
		a, err := partyActor(params.Principal, p)
		actor = a
		return a, err
	}
	tr, err := s.mutate(ctx, "ConfirmSlot", params.ApplicationID, nil, authorize,
		func(p interview.Proposal) (interview.Transition, error) {
			return s.engine.ConfirmSlot(p, params.SlotIndex, actor)
		})
	if err != nil {
		return ProposalView{}, err
	}
	view = s.view(tr.Proposal)
	return view, nil
}

// CancelInterview cancels a confirmed interview on behalf of either party.
func (s *InterviewService) CancelInterview(ctx context.Context, params CancelInterviewParams) (view ProposalView, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CancelInterview",
		"principal_id", params.Principal.UserID,
		"application_id", params.ApplicationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel interview", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "interview cancelled")
	}()

	var actor interview.Actor
	authorize := func(p interview.Proposal) (interview.Actor, error) {
		a, err := partyActor(params.Principal, p)
		actor = a
		return a, err
	}
	tr, err := s.mutate(ctx, "CancelInterview", params.ApplicationID, nil, authorize,
		func(p interview.Proposal) (interview.Transition, error) {
			return s.engine.CancelInterview(p, actor, params.Reason)
		})
	if err != nil {
		return ProposalView{}, err
	}
	view = s.view(tr.Proposal)
	return view, nil
}

// ListEmployerSlots lists the employer's proposals filtered by derived status.
func (s *InterviewService) ListEmployerSlots(ctx context.Context, params ListInterviewsParams) ([]ProposalView, error) {
	if s == nil {
		return nil, fmt.Errorf("InterviewService is nil")
	}
	if params.Principal.Role != RoleEmployer || params.Principal.UserID != params.PartyID {
		return nil, ErrUnauthorized
	}
	return s.list(ctx, "ListEmployerSlots", ProposalQuery{EmployerID: params.PartyID}, params)
}

// ListCandidateSlots lists the candidate's proposals filtered by derived status.
func (s *InterviewService) ListCandidateSlots(ctx context.Context, params ListInterviewsParams) ([]ProposalView, error) {
	if s == nil {
		return nil, fmt.Errorf("InterviewService is nil")
	}
	if params.Principal.Role != RoleCandidate || params.Principal.UserID != params.PartyID {
		return nil, ErrUnauthorized
	}
	return s.list(ctx, "ListCandidateSlots", ProposalQuery{CandidateID: params.PartyID}, params)
}

func (s *InterviewService) list(ctx context.Context, operation string, query ProposalQuery, params ListInterviewsParams) (views []ProposalView, err error) {
	if s.proposals == nil {
		return nil, fmt.Errorf("proposal store not configured")
	}

	logger := s.loggerWith(ctx, operation,
		"principal_id", params.Principal.UserID,
		"status_filter", params.Statuses,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list interviews", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(views)).InfoContext(ctx, "interviews listed")
	}()

	vErr := &ValidationError{}
	wanted := make(map[interview.Status]struct{}, len(params.Statuses))
	for _, status := range params.Statuses {
		if !status.IsValid() {
			vErr.Add("status", fmt.Sprintf("unknown status %q", status))
			continue
		}
		wanted[status] = struct{}{}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	proposals, err := s.proposals.ListProposals(ctx, query)
	if err != nil {
		return nil, mapProposalRepoError(err)
	}

	views = make([]ProposalView, 0, len(proposals))
	for _, proposal := range proposals {
		view := s.view(proposal)
		if len(wanted) > 0 {
			if _, ok := wanted[view.Status]; !ok {
				continue
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// GetAISuggestions returns oracle suggestions for the employer. Oracle
// failures and timeouts degrade to an empty list.
func (s *InterviewService) GetAISuggestions(ctx context.Context, params SuggestionsParams) (suggestions []interview.Suggestion, err error) {
	if s == nil {
		err = fmt.Errorf("InterviewService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetAISuggestions",
		"principal_id", params.Principal.UserID,
		"employer_id", params.EmployerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get suggestions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(suggestions)).InfoContext(ctx, "suggestions produced")
	}()

	if params.Principal.Role != RoleEmployer || params.Principal.UserID != params.EmployerID {
		return nil, ErrUnauthorized
	}

	request, vErr := buildSuggestionRequest(params)
	if vErr.HasErrors() {
		return nil, vErr
	}

	if s.oracle == nil {
		return []interview.Suggestion{}, nil
	}

	if s.proposals != nil {
		busy, err := s.busyIntervals(ctx, params.EmployerID, request.WindowStart, request.WindowEnd)
		if err != nil {
			return nil, err
		}
		request.Busy = busy
	}

	oracleCtx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	result, oracleErr := s.oracle.Suggest(oracleCtx, request)
	if oracleErr != nil {
		outcome := "error"
		if errors.Is(oracleErr, context.DeadlineExceeded) || errors.Is(oracleCtx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.metrics.OracleResult(outcome)
		wrapped := fmt.Errorf("%w: %v", ErrOracleUnavailable, oracleErr)
		logger.WarnContext(ctx, "availability oracle degraded", "error", wrapped, "error_kind", ErrorKind(wrapped), "outcome", outcome)
		return []interview.Suggestion{}, nil
	}
	s.metrics.OracleResult("ok")

	suggestions = make([]interview.Suggestion, 0, len(result))
	for _, suggestion := range result {
		if suggestion.EndTime.Sub(suggestion.StartTime) < request.Duration {
			continue
		}
		if suggestion.StartTime.Before(request.WindowStart) || suggestion.EndTime.After(request.WindowEnd) {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

func buildSuggestionRequest(params SuggestionsParams) (interview.SuggestionRequest, *ValidationError) {
	vErr := &ValidationError{}
	request := interview.SuggestionRequest{
		EmployerID:  params.EmployerID,
		WindowStart: params.StartDate.UTC(),
		WindowEnd:   params.EndDate.UTC(),
		Duration:    time.Duration(params.DurationMinutes) * time.Minute,
		Timezone:    strings.TrimSpace(params.Timezone),
	}

	switch {
	case params.StartDate.IsZero():
		vErr.Add("start_date", "start_date is required")
	case params.EndDate.IsZero():
		vErr.Add("end_date", "end_date is required")
	case !params.EndDate.After(params.StartDate):
		vErr.Add("end_date", "end_date must be after start_date")
	case params.EndDate.Sub(params.StartDate) > maxSuggestionWindow:
		vErr.Add("end_date", "range cannot exceed 31 days")
	}

	if params.DurationMinutes <= 0 || params.DurationMinutes > 8*60 {
		vErr.Add("duration_minutes", "duration_minutes must be between 1 and 480")
	}

	if request.Timezone == "" {
		request.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(request.Timezone); err != nil {
		vErr.Add("timezone", "timezone must be a valid IANA zone name")
	}
	return request, vErr
}

func (s *InterviewService) busyIntervals(ctx context.Context, employerID string, from, to time.Time) ([]interview.Interval, error) {
	proposals, err := s.proposals.ListProposals(ctx, ProposalQuery{
		EmployerID: employerID,
		Statuses:   []interview.Status{interview.StatusConfirmed},
	})
	if err != nil {
		return nil, mapProposalRepoError(err)
	}

	window := interview.Interval{Start: from, End: to}
	busy := make([]interview.Interval, 0, len(proposals))
	for _, proposal := range proposals {
		if proposal.ConfirmedSlot == nil {
			continue
		}
		interval := interview.Interval{Start: proposal.ConfirmedSlot.StartTime, End: proposal.ConfirmedSlot.EndTime}
		if interval.Overlaps(window) {
			busy = append(busy, interval)
		}
	}
	return busy, nil
}

// SweepExpired persists the expired status for voting proposals whose
// deadline has passed. It returns the number of proposals transitioned.
func (s *InterviewService) SweepExpired(ctx context.Context) (expired int, err error) {
	if s == nil {
		return 0, fmt.Errorf("InterviewService is nil")
	}
	if s.proposals == nil {
		return 0, fmt.Errorf("proposal store not configured")
	}

	logger := s.loggerWith(ctx, "SweepExpired")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sweep failed", "error", err, "error_kind", ErrorKind(err), "expired", expired)
			return
		}
		logger.With("expired", expired).InfoContext(ctx, "sweep completed")
	}()

	now := s.engine.Now()
	overdue, err := s.proposals.ListProposals(ctx, ProposalQuery{
		Statuses:       []interview.Status{interview.StatusVoting},
		DeadlineBefore: &now,
	})
	if err != nil {
		return 0, mapProposalRepoError(err)
	}

	system := func(interview.Proposal) (interview.Actor, error) { return interview.ActorSystem, nil }
	for _, proposal := range overdue {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		tr, err := s.mutate(ctx, "SweepExpired", proposal.ApplicationID, nil, system,
			func(p interview.Proposal) (interview.Transition, error) {
				return s.engine.ExpireIfPastDeadline(p), nil
			})
		if err != nil {
			return expired, err
		}
		if tr.Has(interview.EventExpired) {
			expired++
		}
	}
	return expired, nil
}

type authorizer func(interview.Proposal) (interview.Actor, error)

type applier func(interview.Proposal) (interview.Transition, error)

type creatorFunc func(ctx context.Context) (interview.Proposal, error)

// mutate runs read, transition and compare-and-swap write until the write
// lands or the attempt budget is spent. create builds the initial proposal
// when none exists; a nil create reports ErrProposalNotFound instead.
func (s *InterviewService) mutate(ctx context.Context, operation, applicationID string, create creatorFunc, authorize authorizer, apply applier) (interview.Transition, error) {
	if s.proposals == nil {
		return interview.Transition{}, fmt.Errorf("proposal store not configured")
	}
	if strings.TrimSpace(applicationID) == "" {
		return interview.Transition{}, newValidationError("application_id", "application_id is required")
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.proposals.GetProposal(ctx, applicationID)
		exists := err == nil
		switch {
		case exists:
		case errors.Is(err, persistence.ErrNotFound) && create != nil:
			if current, err = create(ctx); err != nil {
				return interview.Transition{}, err
			}
		default:
			return interview.Transition{}, mapProposalRepoError(err)
		}

		actor, err := authorize(current)
		if err != nil {
			return interview.Transition{}, err
		}

		tr, err := apply(current)
		if err != nil {
			return interview.Transition{}, err
		}
		if !tr.Changed {
			return tr, nil
		}
		if tr.Has(interview.EventConfirmed) {
			s.attachMeetingLink(ctx, &tr)
		}

		next := tr.Proposal
		if exists {
			next.Version = current.Version + 1
			err = s.proposals.UpdateProposal(ctx, next, current.Version)
		} else {
			next.Version = 1
			err = s.proposals.CreateProposal(ctx, next)
		}
		if err == nil {
			tr.Proposal = next
			s.publish(ctx, tr, actor)
			return tr, nil
		}
		if errors.Is(err, persistence.ErrVersionConflict) || errors.Is(err, persistence.ErrDuplicate) {
			s.metrics.WriteConflict(operation)
			s.loggerWith(ctx, operation, "application_id", applicationID, "attempt", attempt).
				DebugContext(ctx, "concurrent write detected, retrying")
			continue
		}
		return interview.Transition{}, mapProposalRepoError(err)
	}

	s.metrics.WriteExhausted(operation)
	return interview.Transition{}, fmt.Errorf("%w: %d attempts", ErrConcurrentModification, s.maxAttempts)
}

// creator resolves the parties of a new proposal from the application
// directory, falling back to the request when no directory is configured.
func (s *InterviewService) creator(principal Principal, applicationID, candidateID, jobID string) creatorFunc {
	return func(ctx context.Context) (interview.Proposal, error) {
		ref := interview.ProposalRef{
			ApplicationID: applicationID,
			EmployerID:    principal.UserID,
			CandidateID:   strings.TrimSpace(candidateID),
			JobID:         strings.TrimSpace(jobID),
		}
		if s.applications != nil {
			resolved, err := s.applications.LookupApplication(ctx, applicationID)
			if err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					return interview.Proposal{}, ErrApplicationNotFound
				}
				return interview.Proposal{}, err
			}
			ref = resolved
			ref.ApplicationID = applicationID
		} else if ref.CandidateID == "" {
			return interview.Proposal{}, newValidationError("candidate_id", "candidate_id is required for a new proposal")
		}
		return interview.NewProposal(ref, s.engine.Now()), nil
	}
}

func (s *InterviewService) requireEmployer(principal Principal) authorizer {
	return func(p interview.Proposal) (interview.Actor, error) {
		if principal.Role != RoleEmployer || principal.UserID == "" || principal.UserID != p.EmployerID {
			return "", ErrUnauthorized
		}
		return interview.ActorEmployer, nil
	}
}

// partyActor maps the principal to the side of the proposal it represents.
func partyActor(principal Principal, p interview.Proposal) (interview.Actor, error) {
	switch {
	case principal.UserID == "":
		return "", ErrUnauthorized
	case principal.Role == RoleEmployer && principal.UserID == p.EmployerID:
		return interview.ActorEmployer, nil
	case principal.Role == RoleCandidate && principal.UserID == p.CandidateID:
		return interview.ActorCandidate, nil
	}
	return "", ErrUnauthorized
}

func (s *InterviewService) attachMeetingLink(ctx context.Context, tr *interview.Transition) {
	confirmed := tr.Proposal.ConfirmedSlot
	if s.links == nil || confirmed == nil || confirmed.MeetingType != interview.MeetingTypeVideo || confirmed.MeetingLink != "" {
		return
	}
	link, err := s.links.MeetingLink(ctx, tr.Proposal)
	if err != nil {
		s.loggerWith(ctx, "attachMeetingLink", "application_id", tr.Proposal.ApplicationID).
			WarnContext(ctx, "meeting link unavailable", "error", err)
		return
	}
	updated := *confirmed
	updated.MeetingLink = link
	tr.Proposal.ConfirmedSlot = &updated
}

func (s *InterviewService) publish(ctx context.Context, tr interview.Transition, actor interview.Actor) {
	for _, eventType := range tr.Events {
		s.metrics.TransitionApplied(eventType)
	}
	if s.notifier == nil {
		return
	}

	p := tr.Proposal
	for _, eventType := range tr.Events {
		event := Event{
			ID:            s.idGenerator(),
			Type:          eventType,
			ApplicationID: p.ApplicationID,
			EmployerID:    p.EmployerID,
			CandidateID:   p.CandidateID,
			Status:        p.Status,
			Actor:         actor,
			Version:       p.Version,
			OccurredAt:    p.UpdatedAt,
		}
		if eventType == interview.EventConfirmed && p.ConfirmedSlot != nil {
			idx := p.ConfirmedSlot.SlotIndex
			event.SlotIndex = &idx
			event.Actor = p.ConfirmedSlot.ConfirmedBy
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.loggerWith(ctx, "publish", "application_id", p.ApplicationID, "event", eventType).
				WarnContext(ctx, "failed to enqueue notification", "error", err)
		}
	}
}

func (s *InterviewService) view(p interview.Proposal) ProposalView {
	return ProposalView{
		Proposal: p,
		Status:   s.engine.EffectiveStatus(p),
		Tally:    s.engine.Tally(p),
	}
}

func mapProposalRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrProposalNotFound
	}
	if errors.Is(err, persistence.ErrVersionConflict) {
		return ErrConcurrentModification
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return newValidationError("proposal", "proposal violates a storage constraint")
	}
	return err
}
