package application

import (
	"context"
	"time"

	"github.com/example/interview-scheduler/internal/interview"
)

// Role identifies which side of an application the principal acts for.
type Role string

const (
	RoleEmployer  Role = "employer"
	RoleCandidate Role = "candidate"
)

// Principal is the authenticated caller as resolved by the transport layer.
type Principal struct {
	UserID string
	Role   Role
}

// ProposalQuery narrows proposal listings. Empty fields are ignored.
type ProposalQuery struct {
	EmployerID     string
	CandidateID    string
	Statuses       []interview.Status
	DeadlineBefore *time.Time
}

// ProposalStore persists proposals with optimistic concurrency. Implementations
// return persistence sentinels (ErrNotFound, ErrDuplicate, ErrVersionConflict).
type ProposalStore interface {
	CreateProposal(ctx context.Context, proposal interview.Proposal) error
	GetProposal(ctx context.Context, applicationID string) (interview.Proposal, error)
	UpdateProposal(ctx context.Context, proposal interview.Proposal, expectedVersion int64) error
	ListProposals(ctx context.Context, query ProposalQuery) ([]interview.Proposal, error)
}

// ApplicationDirectory resolves job applications owned by the external CRUD system.
type ApplicationDirectory interface {
	LookupApplication(ctx context.Context, applicationID string) (interview.ProposalRef, error)
}

// Event is a state change relayed to the notification channel.
type Event struct {
	ID            string
	Type          interview.EventType
	ApplicationID string
	EmployerID    string
	CandidateID   string
	Status        interview.Status
	Actor         interview.Actor
	SlotIndex     *int
	Version       int64
	OccurredAt    time.Time
}

// Notifier delivers events. Delivery failures never fail the originating operation.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Oracle produces scored slot suggestions for an employer.
type Oracle interface {
	Suggest(ctx context.Context, request interview.SuggestionRequest) ([]interview.Suggestion, error)
}

// MeetingLinkProvider issues conference links for confirmed video interviews.
type MeetingLinkProvider interface {
	MeetingLink(ctx context.Context, proposal interview.Proposal) (string, error)
}

// Metrics receives service level counters.
type Metrics interface {
	TransitionApplied(event interview.EventType)
	WriteConflict(operation string)
	WriteExhausted(operation string)
	OracleResult(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) TransitionApplied(interview.EventType) {}
func (nopMetrics) WriteConflict(string)                 {}
func (nopMetrics) WriteExhausted(string)                {}
func (nopMetrics) OracleResult(string)                  {}

// ProposalView is a proposal as presented to readers: the derived status and
// the current tally ranking.
type ProposalView struct {
	Proposal interview.Proposal
	Status   interview.Status
	Tally    []interview.SlotScore
}

// AddSlotParams captures the input for appending a slot.
type AddSlotParams struct {
	Principal     Principal
	ApplicationID string
	// CandidateID and JobID are used when no ApplicationDirectory is configured.
	CandidateID    string
	JobID          string
	Slot           interview.SlotInput
	VotingDeadline *time.Time
}

// ProposeSlotsParams captures the input for replacing the slot list of a draft.
type ProposeSlotsParams struct {
	Principal      Principal
	ApplicationID  string
	CandidateID    string
	JobID          string
	Slots          []interview.SlotInput
	VotingDeadline time.Time
	MeetingType    interview.MeetingType
}

// RemoveSlotParams identifies a slot to drop from a draft.
type RemoveSlotParams struct {
	Principal     Principal
	ApplicationID string
	SlotIndex     int
}

// GetSlotsParams identifies the proposal to read.
type GetSlotsParams struct {
	Principal     Principal
	ApplicationID string
}

// CastVoteParams captures a candidate vote.
type CastVoteParams struct {
	Principal     Principal
	ApplicationID string
	Vote          interview.VoteInput
}

// ConfirmSlotParams captures a manual confirmation.
type ConfirmSlotParams struct {
	Principal     Principal
	ApplicationID string
	SlotIndex     int
}

// CancelInterviewParams captures a cancellation request.
type CancelInterviewParams struct {
	Principal     Principal
	ApplicationID string
	Reason        string
}

// ListInterviewsParams lists the proposals of one party.
type ListInterviewsParams struct {
	Principal Principal
	PartyID   string
	Statuses  []interview.Status
}

// SuggestionsParams captures an AI suggestion request.
type SuggestionsParams struct {
	Principal       Principal
	EmployerID      string
	StartDate       time.Time
	EndDate         time.Time
	DurationMinutes int
	Timezone        string
}
