package interview

import "time"

// Status enumerates the lifecycle states of an interview proposal.
type Status string

const (
	// StatusDraft indicates the employer is still curating slots and no deadline exists.
	StatusDraft Status = "draft"
	// StatusVoting indicates a deadline is set and the candidate may vote.
	StatusVoting Status = "voting"
	// StatusConfirmed indicates a slot has been confirmed.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled indicates a confirmed interview was cancelled.
	StatusCancelled Status = "cancelled"
	// StatusExpired indicates the voting deadline passed without a confirmation.
	StatusExpired Status = "expired"
)

// IsValid reports whether the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusVoting, StatusConfirmed, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// MeetingType describes how an interview is held.
type MeetingType string

const (
	MeetingTypeVideo    MeetingType = "video"
	MeetingTypePhone    MeetingType = "phone"
	MeetingTypeInPerson MeetingType = "in-person"
)

// IsValid reports whether the meeting type is supported.
func (m MeetingType) IsValid() bool {
	switch m {
	case MeetingTypeVideo, MeetingTypePhone, MeetingTypeInPerson:
		return true
	default:
		return false
	}
}

// Availability is the candidate's availability signal for a slot.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityMaybe       Availability = "maybe"
	AvailabilityUnavailable Availability = "unavailable"
)

// IsValid reports whether the availability value is supported.
func (a Availability) IsValid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityMaybe, AvailabilityUnavailable:
		return true
	default:
		return false
	}
}

// Actor identifies which party initiated a transition.
type Actor string

const (
	ActorEmployer  Actor = "employer"
	ActorCandidate Actor = "candidate"
	// ActorSystem is recorded for automatic confirmations.
	ActorSystem Actor = "system"
)

// IsParty reports whether the actor is one of the two negotiating parties.
func (a Actor) IsParty() bool {
	return a == ActorEmployer || a == ActorCandidate
}

// DefaultAIScore is assigned to slots submitted without an oracle score.
const DefaultAIScore = 50

// DefaultCancellationReason is recorded when a cancellation omits a reason.
const DefaultCancellationReason = "No reason provided"

// Slot is a single proposed interview time window. Index is assigned at append
// time and never reused.
type Slot struct {
	Index       int
	StartTime   time.Time
	EndTime     time.Time
	Timezone    string
	MeetingType MeetingType
	MeetingLink string
	Location    string
	Notes       string
	AIScore     int
}

// Duration returns the length of the slot.
func (s Slot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// SlotInput captures caller provided slot fields before an index is assigned.
type SlotInput struct {
	StartTime   time.Time
	EndTime     time.Time
	Timezone    string
	MeetingType MeetingType
	MeetingLink string
	Location    string
	Notes       string
	AIScore     *int
}

// Vote is the candidate's preference for a single slot.
type Vote struct {
	SlotIndex    int
	Rank         int
	Availability Availability
	Notes        string
	CastAt       time.Time
}

// VoteInput captures a vote submitted by the candidate.
type VoteInput struct {
	SlotIndex    int
	Rank         int
	Availability Availability
	Notes        string
}

// ConfirmedSlot records the slot chosen on confirmation. It is never cleared.
type ConfirmedSlot struct {
	SlotIndex   int
	StartTime   time.Time
	EndTime     time.Time
	Timezone    string
	MeetingType MeetingType
	MeetingLink string
	Location    string
	ConfirmedBy Actor
	ConfirmedAt time.Time
	Automatic   bool
}

// Cancellation records who cancelled a confirmed interview and why.
type Cancellation struct {
	Reason      string
	CancelledBy Actor
	CancelledAt time.Time
}

// ProposalRef holds the immutable foreign references of a proposal.
type ProposalRef struct {
	ApplicationID string
	EmployerID    string
	CandidateID   string
	JobID         string
}

// Proposal is the scheduling aggregate for one job application.
type Proposal struct {
	ApplicationID  string
	EmployerID     string
	CandidateID    string
	JobID          string
	Slots          []Slot
	NextSlotIndex  int
	VotingDeadline *time.Time
	Status         Status
	Votes          []Vote
	ConfirmedSlot  *ConfirmedSlot
	Cancellation   *Cancellation
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProposal returns an empty draft proposal for the referenced application.
func NewProposal(ref ProposalRef, createdAt time.Time) Proposal {
	return Proposal{
		ApplicationID: ref.ApplicationID,
		EmployerID:    ref.EmployerID,
		CandidateID:   ref.CandidateID,
		JobID:         ref.JobID,
		Status:        StatusDraft,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// Ref returns the immutable references of the proposal.
func (p Proposal) Ref() ProposalRef {
	return ProposalRef{
		ApplicationID: p.ApplicationID,
		EmployerID:    p.EmployerID,
		CandidateID:   p.CandidateID,
		JobID:         p.JobID,
	}
}

// Slot returns the slot with the given index.
func (p Proposal) Slot(index int) (Slot, bool) {
	for _, slot := range p.Slots {
		if slot.Index == index {
			return slot, true
		}
	}
	return Slot{}, false
}

// Vote returns the vote recorded for the given slot index.
func (p Proposal) Vote(slotIndex int) (Vote, bool) {
	for _, vote := range p.Votes {
		if vote.SlotIndex == slotIndex {
			return vote, true
		}
	}
	return Vote{}, false
}

// Clone returns a deep copy so transitions never alias the caller's slices.
func (p Proposal) Clone() Proposal {
	out := p
	if p.Slots != nil {
		out.Slots = make([]Slot, len(p.Slots))
		copy(out.Slots, p.Slots)
	}
	if p.Votes != nil {
		out.Votes = make([]Vote, len(p.Votes))
		copy(out.Votes, p.Votes)
	}
	if p.VotingDeadline != nil {
		deadline := *p.VotingDeadline
		out.VotingDeadline = &deadline
	}
	if p.ConfirmedSlot != nil {
		confirmed := *p.ConfirmedSlot
		out.ConfirmedSlot = &confirmed
	}
	if p.Cancellation != nil {
		cancellation := *p.Cancellation
		out.Cancellation = &cancellation
	}
	return out
}

// EventType names a state transition relayed to the notifier.
type EventType string

const (
	EventSlotAdded       EventType = "slot_added"
	EventSlotRemoved     EventType = "slot_removed"
	EventProposed        EventType = "proposed"
	EventDeadlineChanged EventType = "deadline_changed"
	EventVoted           EventType = "voted"
	EventConfirmed       EventType = "confirmed"
	EventCancelled       EventType = "cancelled"
	EventExpired         EventType = "expired"
)

// Transition is the result of applying an operation to a proposal. When
// Changed is false the proposal is returned untouched and must not be written.
type Transition struct {
	Proposal Proposal
	Events   []EventType
	Changed  bool
}

// Has reports whether the transition emitted the given event.
func (t Transition) Has(event EventType) bool {
	for _, e := range t.Events {
		if e == event {
			return true
		}
	}
	return false
}
