package http

import (
	"time"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/interview"
)

type slotRequest struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Timezone    string    `json:"timezone"`
	MeetingType string    `json:"meeting_type"`
	MeetingLink string    `json:"meeting_link"`
	Location    string    `json:"location"`
	Notes       string    `json:"notes"`
	AIScore     *int      `json:"ai_score"`
}

func (r slotRequest) toInput() interview.SlotInput {
	return interview.SlotInput{
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Timezone:    r.Timezone,
		MeetingType: interview.MeetingType(r.MeetingType),
		MeetingLink: r.MeetingLink,
		Location:    r.Location,
		Notes:       r.Notes,
		AIScore:     r.AIScore,
	}
}

type addSlotRequest struct {
	CandidateID    string      `json:"candidate_id"`
	JobID          string      `json:"job_id"`
	Slot           slotRequest `json:"slot"`
	VotingDeadline *time.Time  `json:"voting_deadline"`
}

type proposeSlotsRequest struct {
	CandidateID    string        `json:"candidate_id"`
	JobID          string        `json:"job_id"`
	Slots          []slotRequest `json:"slots"`
	VotingDeadline time.Time     `json:"voting_deadline"`
	MeetingType    string        `json:"meeting_type"`
}

type voteRequest struct {
	SlotIndex    *int   `json:"slot_index"`
	Rank         int    `json:"rank"`
	Availability string `json:"availability"`
	Notes        string `json:"notes"`
}

type confirmRequest struct {
	SlotIndex *int `json:"slot_index"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type slotDTO struct {
	Index       int       `json:"index"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Timezone    string    `json:"timezone"`
	MeetingType string    `json:"meeting_type"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	Location    string    `json:"location,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	AIScore     int       `json:"ai_score"`
}

type voteDTO struct {
	SlotIndex    int       `json:"slot_index"`
	Rank         int       `json:"rank"`
	Availability string    `json:"availability"`
	Notes        string    `json:"notes,omitempty"`
	CastAt       time.Time `json:"cast_at"`
}

type confirmedSlotDTO struct {
	SlotIndex   int       `json:"slot_index"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Timezone    string    `json:"timezone"`
	MeetingType string    `json:"meeting_type"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	Location    string    `json:"location,omitempty"`
	ConfirmedBy string    `json:"confirmed_by"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	Automatic   bool      `json:"automatic"`
}

type cancellationDTO struct {
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type slotScoreDTO struct {
	SlotIndex      int     `json:"slot_index"`
	Confidence     float64 `json:"confidence"`
	FirstRankVotes int     `json:"first_rank_votes"`
	Availability   string  `json:"availability,omitempty"`
	Disqualified   bool    `json:"disqualified"`
}

type proposalDTO struct {
	ApplicationID  string            `json:"application_id"`
	EmployerID     string            `json:"employer_id"`
	CandidateID    string            `json:"candidate_id"`
	JobID          string            `json:"job_id,omitempty"`
	Status         string            `json:"status"`
	Slots          []slotDTO         `json:"slots"`
	VotingDeadline *time.Time        `json:"voting_deadline,omitempty"`
	Votes          []voteDTO         `json:"votes"`
	ConfirmedSlot  *confirmedSlotDTO `json:"confirmed_slot,omitempty"`
	Cancellation   *cancellationDTO  `json:"cancellation,omitempty"`
	Tally          []slotScoreDTO    `json:"tally"`
	Version        int64             `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type listInterviewsResponse struct {
	Interviews []proposalDTO `json:"interviews"`
}

type suggestionDTO struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Score     int       `json:"score"`
	Reason    string    `json:"reason"`
}

type suggestionsResponse struct {
	Suggestions []suggestionDTO `json:"suggestions"`
}

func toProposalDTO(view application.ProposalView) proposalDTO {
	p := view.Proposal
	dto := proposalDTO{
		ApplicationID: p.ApplicationID,
		EmployerID:    p.EmployerID,
		CandidateID:   p.CandidateID,
		JobID:         p.JobID,
		Status:        string(view.Status),
		Slots:         make([]slotDTO, 0, len(p.Slots)),
		Votes:         make([]voteDTO, 0, len(p.Votes)),
		Tally:         make([]slotScoreDTO, 0, len(view.Tally)),
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.VotingDeadline != nil {
		deadline := p.VotingDeadline.UTC()
		dto.VotingDeadline = &deadline
	}
	for _, slot := range p.Slots {
		dto.Slots = append(dto.Slots, slotDTO{
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
		dto.Votes = append(dto.Votes, voteDTO{
			SlotIndex:    vote.SlotIndex,
			Rank:         vote.Rank,
			Availability: string(vote.Availability),
			Notes:        vote.Notes,
			CastAt:       vote.CastAt,
		})
	}
	if c := p.ConfirmedSlot; c != nil {
		dto.ConfirmedSlot = &confirmedSlotDTO{
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
		dto.Cancellation = &cancellationDTO{
			Reason:      c.Reason,
			CancelledBy: string(c.CancelledBy),
			CancelledAt: c.CancelledAt,
		}
	}
	for _, score := range view.Tally {
		dto.Tally = append(dto.Tally, slotScoreDTO{
			SlotIndex:      score.SlotIndex,
			Confidence:     score.Confidence,
			FirstRankVotes: score.FirstRankVotes,
			Availability:   string(score.Availability),
			Disqualified:   score.Disqualified,
		})
	}
	return dto
}

func toProposalDTOs(views []application.ProposalView) []proposalDTO {
	out := make([]proposalDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toProposalDTO(view))
	}
	return out
}

func toSuggestionDTOs(suggestions []interview.Suggestion) []suggestionDTO {
	out := make([]suggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, suggestionDTO{
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Score:     s.Score,
			Reason:    s.Reason,
		})
	}
	return out
}
