package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/interview-scheduler/internal/interview"
)

var proposalCounter uint64

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ProposalOption configures a generated proposal.
type ProposalOption func(*interview.Proposal)

// NewProposal returns a draft proposal with unique references. Options are
// applied in order, so WithSlots should precede WithVoting.
func NewProposal(opts ...ProposalOption) interview.Proposal {
	idx := atomic.AddUint64(&proposalCounter, 1)
	p := interview.NewProposal(interview.ProposalRef{
		ApplicationID: fmt.Sprintf("app-%03d", idx),
		EmployerID:    fmt.Sprintf("employer-%03d", idx),
		CandidateID:   fmt.Sprintf("candidate-%03d", idx),
		JobID:         fmt.Sprintf("job-%03d", idx),
	}, referenceTime)
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithApplicationID overrides the application reference.
func WithApplicationID(id string) ProposalOption {
	return func(p *interview.Proposal) {
		p.ApplicationID = id
	}
}

// WithParties overrides the employer and candidate references.
func WithParties(employerID, candidateID string) ProposalOption {
	return func(p *interview.Proposal) {
		p.EmployerID = employerID
		p.CandidateID = candidateID
	}
}

// WithSlots appends slots, assigning indices from NextSlotIndex.
func WithSlots(slots ...interview.Slot) ProposalOption {
	return func(p *interview.Proposal) {
		for _, slot := range slots {
			slot.Index = p.NextSlotIndex
			p.NextSlotIndex++
			p.Slots = append(p.Slots, slot)
		}
	}
}

// WithVoting opens voting with the given deadline.
func WithVoting(deadline time.Time) ProposalOption {
	return func(p *interview.Proposal) {
		d := deadline.UTC()
		p.VotingDeadline = &d
		p.Status = interview.StatusVoting
	}
}

// WithVersion sets the persisted version.
func WithVersion(version int64) ProposalOption {
	return func(p *interview.Proposal) {
		p.Version = version
	}
}

// WithConfirmed marks the slot with the given index as confirmed by actor.
func WithConfirmed(slotIndex int, actor interview.Actor, at time.Time) ProposalOption {
	return func(p *interview.Proposal) {
		slot, ok := p.Slot(slotIndex)
		if !ok {
			return
		}
		p.Status = interview.StatusConfirmed
		p.ConfirmedSlot = &interview.ConfirmedSlot{
			SlotIndex:   slot.Index,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			Timezone:    slot.Timezone,
			MeetingType: slot.MeetingType,
			MeetingLink: slot.MeetingLink,
			Location:    slot.Location,
			ConfirmedBy: actor,
			ConfirmedAt: at,
		}
	}
}

// VideoSlot returns a UTC video slot starting at start.
func VideoSlot(start time.Time, length time.Duration, aiScore int) interview.Slot {
	return interview.Slot{
		StartTime:   start.UTC(),
		EndTime:     start.Add(length).UTC(),
		Timezone:    "UTC",
		MeetingType: interview.MeetingTypeVideo,
		AIScore:     aiScore,
	}
}

// SlotInput converts a slot into the input form accepted by the engine.
func SlotInput(slot interview.Slot) interview.SlotInput {
	score := slot.AIScore
	return interview.SlotInput{
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Timezone:    slot.Timezone,
		MeetingType: slot.MeetingType,
		MeetingLink: slot.MeetingLink,
		Location:    slot.Location,
		Notes:       slot.Notes,
		AIScore:     &score,
	}
}
