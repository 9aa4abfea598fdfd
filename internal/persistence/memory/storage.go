package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/example/interview-scheduler/internal/persistence"
)

// Storage provides an in-process persistence layer for development and tests.
type Storage struct {
	mu           sync.RWMutex
	proposals    map[string]persistence.Proposal
	applications map[string]persistence.Application
}

// New returns an empty Storage instance.
func New() *Storage {
	return &Storage{
		proposals:    make(map[string]persistence.Proposal),
		applications: make(map[string]persistence.Application),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// Ping reports storage health. The in-memory implementation is always healthy.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// --- ProposalRepository implementation ---

// CreateProposal stores a new proposal.
func (s *Storage) CreateProposal(ctx context.Context, proposal persistence.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.proposals[proposal.ApplicationID]; ok {
		return persistence.ErrDuplicate
	}
	s.proposals[proposal.ApplicationID] = proposal.Clone()
	return nil
}

// GetProposal retrieves the proposal for an application.
func (s *Storage) GetProposal(ctx context.Context, applicationID string) (persistence.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proposal, ok := s.proposals[applicationID]
	if !ok {
		return persistence.Proposal{}, persistence.ErrNotFound
	}
	return proposal.Clone(), nil
}

// UpdateProposal replaces the stored proposal when its version matches.
func (s *Storage) UpdateProposal(ctx context.Context, proposal persistence.Proposal, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.proposals[proposal.ApplicationID]
	if !ok {
		return persistence.ErrNotFound
	}
	if current.Version != expectedVersion {
		return persistence.ErrVersionConflict
	}
	s.proposals[proposal.ApplicationID] = proposal.Clone()
	return nil
}

// ListProposals returns matching proposals ordered by CreatedAt ascending.
func (s *Storage) ListProposals(ctx context.Context, filter persistence.ProposalFilter) ([]persistence.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proposals := make([]persistence.Proposal, 0)
	for _, proposal := range s.proposals {
		if filter.Matches(proposal) {
			proposals = append(proposals, proposal.Clone())
		}
	}

	sort.Slice(proposals, func(i, j int) bool {
		if proposals[i].CreatedAt.Equal(proposals[j].CreatedAt) {
			return proposals[i].ApplicationID < proposals[j].ApplicationID
		}
		return proposals[i].CreatedAt.Before(proposals[j].CreatedAt)
	})
	return proposals, nil
}

// --- ApplicationRepository implementation ---

// PutApplication registers an application projection.
func (s *Storage) PutApplication(ctx context.Context, application persistence.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applications[application.ID] = application
	return nil
}

// GetApplication retrieves an application projection by ID.
func (s *Storage) GetApplication(ctx context.Context, id string) (persistence.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	application, ok := s.applications[id]
	if !ok {
		return persistence.Application{}, persistence.ErrNotFound
	}
	return application, nil
}
