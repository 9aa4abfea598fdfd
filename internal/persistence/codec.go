package persistence

import (
	"encoding/json"
	"fmt"
)

// Documents holds the JSON encoded collections of a proposal.
type Documents struct {
	Slots         []byte
	Votes         []byte
	ConfirmedSlot []byte
	Cancellation  []byte
}

// EncodeDocuments serialises the nested collections of a proposal. Nil
// optional fields encode to nil so they can be stored as SQL NULL.
func EncodeDocuments(p Proposal) (Documents, error) {
	var docs Documents
	var err error

	slots := p.Slots
	if slots == nil {
		slots = []Slot{}
	}
	if docs.Slots, err = json.Marshal(slots); err != nil {
		return Documents{}, fmt.Errorf("encode slots: %w", err)
	}

	votes := p.Votes
	if votes == nil {
		votes = []Vote{}
	}
	if docs.Votes, err = json.Marshal(votes); err != nil {
		return Documents{}, fmt.Errorf("encode votes: %w", err)
	}

	if p.ConfirmedSlot != nil {
		if docs.ConfirmedSlot, err = json.Marshal(p.ConfirmedSlot); err != nil {
			return Documents{}, fmt.Errorf("encode confirmed slot: %w", err)
		}
	}
	if p.Cancellation != nil {
		if docs.Cancellation, err = json.Marshal(p.Cancellation); err != nil {
			return Documents{}, fmt.Errorf("encode cancellation: %w", err)
		}
	}
	return docs, nil
}

// DecodeDocuments populates the nested collections of p from docs.
func DecodeDocuments(p *Proposal, docs Documents) error {
	if len(docs.Slots) > 0 {
		if err := json.Unmarshal(docs.Slots, &p.Slots); err != nil {
			return fmt.Errorf("decode slots: %w", err)
		}
	}
	if len(p.Slots) == 0 {
		p.Slots = nil
	}
	if len(docs.Votes) > 0 {
		if err := json.Unmarshal(docs.Votes, &p.Votes); err != nil {
			return fmt.Errorf("decode votes: %w", err)
		}
	}
	if len(p.Votes) == 0 {
		p.Votes = nil
	}
	if len(docs.ConfirmedSlot) > 0 {
		var confirmed ConfirmedSlot
		if err := json.Unmarshal(docs.ConfirmedSlot, &confirmed); err != nil {
			return fmt.Errorf("decode confirmed slot: %w", err)
		}
		p.ConfirmedSlot = &confirmed
	}
	if len(docs.Cancellation) > 0 {
		var cancellation Cancellation
		if err := json.Unmarshal(docs.Cancellation, &cancellation); err != nil {
			return fmt.Errorf("decode cancellation: %w", err)
		}
		p.Cancellation = &cancellation
	}
	return nil
}

// Clone returns a deep copy of the proposal record.
func (p Proposal) Clone() Proposal {
	out := p
	if p.Slots != nil {
		out.Slots = append([]Slot(nil), p.Slots...)
	}
	if p.Votes != nil {
		out.Votes = append([]Vote(nil), p.Votes...)
	}
	if p.VotingDeadline != nil {
		d := *p.VotingDeadline
		out.VotingDeadline = &d
	}
	if p.ConfirmedSlot != nil {
		c := *p.ConfirmedSlot
		out.ConfirmedSlot = &c
	}
	if p.Cancellation != nil {
		c := *p.Cancellation
		out.Cancellation = &c
	}
	return out
}

// Matches reports whether the proposal satisfies the filter.
func (f ProposalFilter) Matches(p Proposal) bool {
	if f.EmployerID != "" && p.EmployerID != f.EmployerID {
		return false
	}
	if f.CandidateID != "" && p.CandidateID != f.CandidateID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, status := range f.Statuses {
			if status == p.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DeadlineBefore != nil {
		if p.VotingDeadline == nil || !p.VotingDeadline.Before(*f.DeadlineBefore) {
			return false
		}
	}
	return true
}
