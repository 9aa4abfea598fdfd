package main

import (
	"context"
	"time"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/interview"
	"github.com/example/interview-scheduler/internal/persistence"
)

type proposalStoreAdapter struct {
	repo persistence.ProposalRepository
}

func newProposalStoreAdapter(repo persistence.ProposalRepository) *proposalStoreAdapter {
	return &proposalStoreAdapter{repo: repo}
}

func (a *proposalStoreAdapter) CreateProposal(ctx context.Context, proposal interview.Proposal) error {
	return a.repo.CreateProposal(ctx, toPersistenceProposal(proposal))
}

func (a *proposalStoreAdapter) GetProposal(ctx context.Context, applicationID string) (interview.Proposal, error) {
	stored, err := a.repo.GetProposal(ctx, applicationID)
	if err != nil {
		return interview.Proposal{}, err
	}
	return toInterviewProposal(stored), nil
}

func (a *proposalStoreAdapter) UpdateProposal(ctx context.Context, proposal interview.Proposal, expectedVersion int64) error {
	return a.repo.UpdateProposal(ctx, toPersistenceProposal(proposal), expectedVersion)
}

func (a *proposalStoreAdapter) ListProposals(ctx context.Context, query application.ProposalQuery) ([]interview.Proposal, error) {
	filter := persistence.ProposalFilter{
		EmployerID:     query.EmployerID,
		CandidateID:    query.CandidateID,
		DeadlineBefore: query.DeadlineBefore,
	}
	for _, status := range query.Statuses {
		filter.Statuses = append(filter.Statuses, string(status))
	}
	models, err := a.repo.ListProposals(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	proposals := make([]interview.Proposal, 0, len(models))
	for _, model := range models {
		proposals = append(proposals, toInterviewProposal(model))
	}
	return proposals, nil
}

type applicationDirectoryAdapter struct {
	repo persistence.ApplicationRepository
}

func newApplicationDirectoryAdapter(repo persistence.ApplicationRepository) *applicationDirectoryAdapter {
	return &applicationDirectoryAdapter{repo: repo}
}

// LookupApplication passes persistence.ErrNotFound through so the service can
// report a missing application.
func (a *applicationDirectoryAdapter) LookupApplication(ctx context.Context, applicationID string) (interview.ProposalRef, error) {
	stored, err := a.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return interview.ProposalRef{}, err
	}
	return interview.ProposalRef{
		ApplicationID: stored.ID,
		EmployerID:    stored.EmployerID,
		CandidateID:   stored.CandidateID,
		JobID:         stored.JobID,
	}, nil
}

func toPersistenceProposal(p interview.Proposal) persistence.Proposal {
	model := persistence.Proposal{
		ApplicationID:  p.ApplicationID,
		EmployerID:     p.EmployerID,
		CandidateID:    p.CandidateID,
		JobID:          p.JobID,
		Status:         string(p.Status),
		NextSlotIndex:  p.NextSlotIndex,
		VotingDeadline: copyTime(p.VotingDeadline),
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	for _, slot := range p.Slots {
		model.Slots = append(model.Slots, persistence.Slot{
			Index:       slot.Index,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			Timezone:    slot.Timezone,
			MeetingType: string(slot.MeetingType),
			MeetingLink: slot.MeetingLink,
			Location:    slot.Location,
			Notes:       slot.Notes,
			AIScore:     slot.AIScore,
		})
	}
	for _, vote := range p.Votes {
		model.Votes = append(model.Votes, persistence.Vote{
			SlotIndex:    vote.SlotIndex,
			Rank:         vote.Rank,
			Availability: string(vote.Availability),
			Notes:        vote.Notes,
			CastAt:       vote.CastAt,
		})
	}
	if c := p.ConfirmedSlot; c != nil {
		model.ConfirmedSlot = &persistence.ConfirmedSlot{
			SlotIndex:   c.SlotIndex,
			StartTime:   c.StartTime,
			EndTime:     c.EndTime,
			Timezone:    c.Timezone,
			MeetingType: string(c.MeetingType),
			MeetingLink: c.MeetingLink,
			Location:    c.Location,
			ConfirmedBy: string(c.ConfirmedBy),
			ConfirmedAt: c.ConfirmedAt,
			Automatic:   c.Automatic,
		}
	}
	if c := p.Cancellation; c != nil {
		model.Cancellation = &persistence.Cancellation{
			Reason:      c.Reason,
			CancelledBy: string(c.CancelledBy),
			CancelledAt: c.CancelledAt,
		}
	}
	return model
}

func toInterviewProposal(model persistence.Proposal) interview.Proposal {
	p := interview.Proposal{
		ApplicationID:  model.ApplicationID,
		EmployerID:     model.EmployerID,
		CandidateID:    model.CandidateID,
		JobID:          model.JobID,
		Status:         interview.Status(model.Status),
		NextSlotIndex:  model.NextSlotIndex,
		VotingDeadline: copyTime(model.VotingDeadline),
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	for _, slot := range model.Slots {
		p.Slots = append(p.Slots, interview.Slot{
			Index:       slot.Index,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			Timezone:    slot.Timezone,
			MeetingType: interview.MeetingType(slot.MeetingType),
			MeetingLink: slot.MeetingLink,
			Location:    slot.Location,
			Notes:       slot.Notes,
			AIScore:     slot.AIScore,
		})
	}
	for _, vote := range model.Votes {
		p.Votes = append(p.Votes, interview.Vote{
			SlotIndex:    vote.SlotIndex,
			Rank:         vote.Rank,
			Availability: interview.Availability(vote.Availability),
			Notes:        vote.Notes,
			CastAt:       vote.CastAt,
		})
	}
	if c := model.ConfirmedSlot; c != nil {
		p.ConfirmedSlot = &interview.ConfirmedSlot{
			SlotIndex:   c.SlotIndex,
			StartTime:   c.StartTime,
			EndTime:     c.EndTime,
			Timezone:    c.Timezone,
			MeetingType: interview.MeetingType(c.MeetingType),
			MeetingLink: c.MeetingLink,
			Location:    c.Location,
			ConfirmedBy: interview.Actor(c.ConfirmedBy),
			ConfirmedAt: c.ConfirmedAt,
			Automatic:   c.Automatic,
		}
	}
	if c := model.Cancellation; c != nil {
		p.Cancellation = &interview.Cancellation{
			Reason:      c.Reason,
			CancelledBy: interview.Actor(c.CancelledBy),
			CancelledAt: c.CancelledAt,
		}
	}
	return p
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	value := *t
	return &value
}
