package interview

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultCancellationNotice is the minimum lead time for cancelling a confirmed interview.
const DefaultCancellationNotice = 4 * time.Hour

// Engine applies scheduling transitions to proposals. It holds no state of its
// own and performs no I/O; callers persist the returned proposal.
type Engine struct {
	now                func() time.Time
	policy             ConfirmationPolicy
	cancellationNotice time.Duration
}

// Option customises an Engine.
type Option func(*Engine)

// WithPolicy overrides the confirmation policy.
func WithPolicy(policy ConfirmationPolicy) Option {
	return func(e *Engine) {
		if policy != nil {
			e.policy = policy
		}
	}
}

// WithCancellationNotice overrides the minimum cancellation notice.
func WithCancellationNotice(notice time.Duration) Option {
	return func(e *Engine) {
		if notice > 0 {
			e.cancellationNotice = notice
		}
	}
}

// NewEngine constructs an Engine reading time from now. A nil clock falls back to time.Now.
func NewEngine(now func() time.Time, opts ...Option) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		now:                now,
		policy:             DefaultPolicy(),
		cancellationNotice: DefaultCancellationNotice,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

// CancellationNotice returns the configured minimum notice.
func (e *Engine) CancellationNotice() time.Duration {
	return e.cancellationNotice
}

// EffectiveStatus derives expiry from the deadline without mutating the proposal.
func (e *Engine) EffectiveStatus(p Proposal) Status {
	if p.Status == StatusVoting && p.ConfirmedSlot == nil && p.VotingDeadline != nil && e.now().After(*p.VotingDeadline) {
		return StatusExpired
	}
	return p.Status
}

// ExpireIfPastDeadline returns the proposal as it should be presented to
// readers. The result is only persisted by the maintenance sweep.
func (e *Engine) ExpireIfPastDeadline(p Proposal) Transition {
	if e.EffectiveStatus(p) != StatusExpired || p.Status == StatusExpired {
		return Transition{Proposal: p}
	}
	next := p.Clone()
	next.Status = StatusExpired
	return e.finish(p, next, []EventType{EventExpired})
}

// Tally ranks slots under the configured policy.
func (e *Engine) Tally(p Proposal) []SlotScore {
	return e.policy.Rank(p)
}

// AddSlot appends a single slot. A supplied deadline moves a draft into voting
// or replaces the deadline of a proposal already in voting.
func (e *Engine) AddSlot(p Proposal, input SlotInput, deadline *time.Time) (Transition, error) {
	status := e.EffectiveStatus(p)
	if status != StatusDraft && status != StatusVoting {
		if addSlotApplied(p, input, deadline) {
			return Transition{Proposal: p}, nil
		}
		return Transition{}, fmt.Errorf("%w: cannot add a slot while %s", ErrInvalidStateTransition, status)
	}

	now := e.now()
	vErr := &ValidationError{}
	slot := normalizeSlot(input, "", vErr)
	if deadline != nil {
		validateDeadline(*deadline, now, vErr)
	}
	if vErr.HasErrors() {
		return Transition{}, vErr
	}

	next := p.Clone()
	var events []EventType

	if !containsContent(next.Slots, slot) {
		slot.Index = next.NextSlotIndex
		next.NextSlotIndex++
		next.Slots = append(next.Slots, slot)
		events = append(events, EventSlotAdded)
	}

	if deadline != nil {
		d := deadline.UTC()
		if next.VotingDeadline == nil || !next.VotingDeadline.Equal(d) {
			next.VotingDeadline = &d
			if next.Status == StatusVoting {
				events = append(events, EventDeadlineChanged)
			}
		}
		if next.Status == StatusDraft {
			next.Status = StatusVoting
			events = append(events, EventProposed)
		}
	}

	return e.finish(p, next, events), nil
}

// ProposeSlots replaces the whole slot list of a draft and opens voting.
// Re-delivery of an identical request after voting opened is a no-op.
func (e *Engine) ProposeSlots(p Proposal, inputs []SlotInput, deadline time.Time, meetingType MeetingType) (Transition, error) {
	status := e.EffectiveStatus(p)
	if status != StatusDraft && status != StatusVoting {
		return Transition{}, fmt.Errorf("%w: cannot propose slots while %s", ErrInvalidStateTransition, status)
	}

	now := e.now()
	vErr := &ValidationError{}
	if len(inputs) == 0 {
		vErr.Add("slots", "at least one slot is required")
	}
	if meetingType != "" && !meetingType.IsValid() {
		vErr.Add("meeting_type", fmt.Sprintf("meeting_type must be one of %s, %s, %s", MeetingTypeVideo, MeetingTypePhone, MeetingTypeInPerson))
	}

	slots := make([]Slot, 0, len(inputs))
	for i, input := range inputs {
		if input.MeetingType == "" {
			input.MeetingType = meetingType
		}
		slot := normalizeSlot(input, fmt.Sprintf("slots[%d]", i), vErr)
		if containsContent(slots, slot) {
			continue
		}
		slots = append(slots, slot)
	}

	if status == StatusVoting {
		if !vErr.HasErrors() && sameSlotSet(p.Slots, slots) && p.VotingDeadline != nil && p.VotingDeadline.Equal(deadline) {
			return Transition{Proposal: p}, nil
		}
		return Transition{}, fmt.Errorf("%w: slots can only be replaced while draft", ErrInvalidStateTransition)
	}

	validateDeadline(deadline, now, vErr)
	if vErr.HasErrors() {
		return Transition{}, vErr
	}

	next := p.Clone()
	for i := range slots {
		slots[i].Index = next.NextSlotIndex
		next.NextSlotIndex++
	}
	next.Slots = slots
	next.Votes = nil
	d := deadline.UTC()
	next.VotingDeadline = &d
	next.Status = StatusVoting

	return e.finish(p, next, []EventType{EventProposed}), nil
}

// RemoveSlot drops a slot from a draft. The index is retired and never reused.
func (e *Engine) RemoveSlot(p Proposal, slotIndex int) (Transition, error) {
	status := e.EffectiveStatus(p)
	if status != StatusDraft {
		return Transition{}, fmt.Errorf("%w: slots can only be removed while draft", ErrInvalidStateTransition)
	}

	pos := -1
	for i, slot := range p.Slots {
		if slot.Index == slotIndex {
			pos = i
			break
		}
	}
	if pos < 0 {
		if slotIndex >= 0 && slotIndex < p.NextSlotIndex {
			return Transition{Proposal: p}, nil
		}
		return Transition{}, fmt.Errorf("%w: index %d", ErrSlotNotFound, slotIndex)
	}

	next := p.Clone()
	next.Slots = append(next.Slots[:pos], next.Slots[pos+1:]...)
	return e.finish(p, next, []EventType{EventSlotRemoved}), nil
}

// CastVote records or replaces the candidate's vote for a slot, recomputes the
// tally and confirms automatically when the policy allows it.
func (e *Engine) CastVote(p Proposal, input VoteInput) (Transition, error) {
	notes := strings.TrimSpace(input.Notes)
	if existing, ok := p.Vote(input.SlotIndex); ok &&
		existing.Rank == input.Rank && existing.Availability == input.Availability && existing.Notes == notes {
		return Transition{Proposal: p}, nil
	}

	switch p.Status {
	case StatusConfirmed, StatusCancelled, StatusExpired:
		return Transition{}, fmt.Errorf("%w: proposal is %s", ErrVotingClosed, p.Status)
	case StatusDraft:
		return Transition{}, fmt.Errorf("%w: voting has not opened", ErrInvalidStateTransition)
	}

	now := e.now()
	if p.VotingDeadline == nil || !now.Before(*p.VotingDeadline) {
		return Transition{}, fmt.Errorf("%w: deadline passed", ErrVotingClosed)
	}

	if _, ok := p.Slot(input.SlotIndex); !ok {
		return Transition{}, fmt.Errorf("%w: index %d", ErrSlotNotFound, input.SlotIndex)
	}

	vErr := &ValidationError{}
	if input.Rank < 1 || input.Rank > len(p.Slots) {
		vErr.Add("rank", fmt.Sprintf("rank must be between 1 and %d", len(p.Slots)))
	}
	if !input.Availability.IsValid() {
		vErr.Add("availability", fmt.Sprintf("availability must be one of %s, %s, %s", AvailabilityAvailable, AvailabilityMaybe, AvailabilityUnavailable))
	}
	if vErr.HasErrors() {
		return Transition{}, vErr
	}

	next := p.Clone()
	vote := Vote{
		SlotIndex:    input.SlotIndex,
		Rank:         input.Rank,
		Availability: input.Availability,
		Notes:        notes,
		CastAt:       now,
	}
	replaced := false
	for i := range next.Votes {
		if next.Votes[i].SlotIndex == vote.SlotIndex {
			next.Votes[i] = vote
			replaced = true
			break
		}
	}
	if !replaced {
		next.Votes = append(next.Votes, vote)
		sort.Slice(next.Votes, func(i, j int) bool { return next.Votes[i].SlotIndex < next.Votes[j].SlotIndex })
	}

	events := []EventType{EventVoted}
	if ranked := e.policy.Rank(next); len(ranked) > 0 && e.policy.ShouldConfirm(ranked[0]) {
		slot, _ := next.Slot(ranked[0].SlotIndex)
		confirm(&next, slot, ActorSystem, true, now)
		events = append(events, EventConfirmed)
	}

	return e.finish(p, next, events), nil
}

// addSlotApplied reports whether an AddSlot request already took effect: the
// slot content is present and the deadline, when given, is the stored one.
func addSlotApplied(p Proposal, input SlotInput, deadline *time.Time) bool {
	vErr := &ValidationError{}
	slot := normalizeSlot(input, "", vErr)
	if vErr.HasErrors() || !containsContent(p.Slots, slot) {
		return false
	}
	if deadline == nil {
		return true
	}
	return p.VotingDeadline != nil && p.VotingDeadline.Equal(*deadline)
}

// ConfirmSlot records a manual confirmation by either party.
func (e *Engine) ConfirmSlot(p Proposal, slotIndex int, actor Actor) (Transition, error) {
	if !actor.IsParty() {
		vErr := &ValidationError{}
		vErr.Add("actor", "actor must be employer or candidate")
		return Transition{}, vErr
	}

	if p.ConfirmedSlot != nil {
		if p.Status == StatusConfirmed && p.ConfirmedSlot.SlotIndex == slotIndex {
			return Transition{Proposal: p}, nil
		}
		if p.Status == StatusConfirmed {
			return Transition{}, fmt.Errorf("%w: slot %d is confirmed", ErrAlreadyConfirmed, p.ConfirmedSlot.SlotIndex)
		}
	}

	status := e.EffectiveStatus(p)
	if status != StatusVoting {
		return Transition{}, fmt.Errorf("%w: cannot confirm while %s", ErrInvalidStateTransition, status)
	}

	slot, ok := p.Slot(slotIndex)
	if !ok {
		return Transition{}, fmt.Errorf("%w: index %d", ErrSlotNotFound, slotIndex)
	}

	next := p.Clone()
	confirm(&next, slot, actor, false, e.now())
	return e.finish(p, next, []EventType{EventConfirmed}), nil
}

// CancelInterview cancels a confirmed interview while enough notice remains.
func (e *Engine) CancelInterview(p Proposal, actor Actor, reason string) (Transition, error) {
	if p.Status == StatusCancelled {
		return Transition{Proposal: p}, nil
	}
	if !actor.IsParty() {
		vErr := &ValidationError{}
		vErr.Add("actor", "actor must be employer or candidate")
		return Transition{}, vErr
	}
	if p.Status != StatusConfirmed || p.ConfirmedSlot == nil {
		return Transition{}, fmt.Errorf("%w: cannot cancel while %s", ErrInvalidStateTransition, e.EffectiveStatus(p))
	}

	now := e.now()
	remaining := p.ConfirmedSlot.StartTime.Sub(now)
	if remaining < e.cancellationNotice {
		return Transition{}, fmt.Errorf("%w: %s notice required", ErrCancellationWindowClosed, e.cancellationNotice)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}

	next := p.Clone()
	next.Status = StatusCancelled
	next.Cancellation = &Cancellation{
		Reason:      reason,
		CancelledBy: actor,
		CancelledAt: now,
	}
	return e.finish(p, next, []EventType{EventCancelled}), nil
}

func confirm(p *Proposal, slot Slot, actor Actor, automatic bool, at time.Time) {
	p.Status = StatusConfirmed
	p.ConfirmedSlot = &ConfirmedSlot{
		SlotIndex:   slot.Index,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Timezone:    slot.Timezone,
		MeetingType: slot.MeetingType,
		MeetingLink: slot.MeetingLink,
		Location:    slot.Location,
		ConfirmedBy: actor,
		ConfirmedAt: at,
		Automatic:   automatic,
	}
}

func (e *Engine) finish(original, next Proposal, events []EventType) Transition {
	if len(events) == 0 {
		return Transition{Proposal: original}
	}
	next.UpdatedAt = e.now()
	return Transition{Proposal: next, Events: events, Changed: true}
}
