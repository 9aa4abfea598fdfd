package persistence

import (
	"context"
	"time"
)

// ProposalFilter narrows proposal listings. Empty fields are ignored.
type ProposalFilter struct {
	EmployerID     string
	CandidateID    string
	Statuses       []string
	DeadlineBefore *time.Time
}

// ProposalRepository stores one proposal per application with optimistic concurrency.
type ProposalRepository interface {
	// CreateProposal inserts a new proposal and returns ErrDuplicate when one exists.
	CreateProposal(ctx context.Context, proposal Proposal) error
	GetProposal(ctx context.Context, applicationID string) (Proposal, error)
	// UpdateProposal writes proposal only when the stored version equals
	// expectedVersion, returning ErrVersionConflict otherwise.
	UpdateProposal(ctx context.Context, proposal Proposal, expectedVersion int64) error
	ListProposals(ctx context.Context, filter ProposalFilter) ([]Proposal, error)
}

// ApplicationRepository resolves job applications to their parties.
type ApplicationRepository interface {
	GetApplication(ctx context.Context, id string) (Application, error)
}
