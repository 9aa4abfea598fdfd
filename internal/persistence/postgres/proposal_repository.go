package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/example/interview-scheduler/internal/persistence"
)

const proposalColumns = `application_id, employer_id, candidate_id, job_id, status, slots, next_slot_index,
	voting_deadline, votes, confirmed_slot, cancellation, version, created_at, updated_at`

// CreateProposal inserts a new proposal row.
func (s *Storage) CreateProposal(ctx context.Context, proposal persistence.Proposal) error {
	docs, err := persistence.EncodeDocuments(proposal)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO interview_proposals (`+proposalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		proposal.ApplicationID,
		proposal.EmployerID,
		proposal.CandidateID,
		proposal.JobID,
		proposal.Status,
		docs.Slots,
		proposal.NextSlotIndex,
		nullableTime(proposal.VotingDeadline),
		docs.Votes,
		nullableDocument(docs.ConfirmedSlot),
		nullableDocument(docs.Cancellation),
		proposal.Version,
		proposal.CreatedAt.UTC(),
		proposal.UpdatedAt.UTC(),
	)
	return mapError(err)
}

// GetProposal loads the proposal for an application.
func (s *Storage) GetProposal(ctx context.Context, applicationID string) (persistence.Proposal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM interview_proposals WHERE application_id = $1`, applicationID)
	proposal, err := scanProposal(row)
	if err != nil {
		return persistence.Proposal{}, mapError(err)
	}
	return proposal, nil
}

// UpdateProposal performs a compare-and-swap on the version column. A zero row
// update is disambiguated with an existence probe.
func (s *Storage) UpdateProposal(ctx context.Context, proposal persistence.Proposal, expectedVersion int64) error {
	docs, err := persistence.EncodeDocuments(proposal)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `UPDATE interview_proposals SET
			status = $1, slots = $2, next_slot_index = $3, voting_deadline = $4, votes = $5,
			confirmed_slot = $6, cancellation = $7, version = $8, updated_at = $9
		WHERE application_id = $10 AND version = $11`,
		proposal.Status,
		docs.Slots,
		proposal.NextSlotIndex,
		nullableTime(proposal.VotingDeadline),
		docs.Votes,
		nullableDocument(docs.ConfirmedSlot),
		nullableDocument(docs.Cancellation),
		proposal.Version,
		proposal.UpdatedAt.UTC(),
		proposal.ApplicationID,
		expectedVersion,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM interview_proposals WHERE application_id = $1)`, proposal.ApplicationID).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return persistence.ErrNotFound
	}
	return persistence.ErrVersionConflict
}

// ListProposals returns proposals matching the filter ordered by creation time.
func (s *Storage) ListProposals(ctx context.Context, filter persistence.ProposalFilter) ([]persistence.Proposal, error) {
	query, args := buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	proposals := make([]persistence.Proposal, 0)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, mapError(err)
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return proposals, nil
}

func buildListQuery(filter persistence.ProposalFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.EmployerID != "" {
		clauses = append(clauses, "employer_id = "+next(filter.EmployerID))
	}
	if filter.CandidateID != "" {
		clauses = append(clauses, "candidate_id = "+next(filter.CandidateID))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status = ANY("+next(pq.Array(filter.Statuses))+")")
	}
	if filter.DeadlineBefore != nil {
		clauses = append(clauses, "voting_deadline < "+next(filter.DeadlineBefore.UTC()))
	}

	query := `SELECT ` + proposalColumns + ` FROM interview_proposals`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, application_id ASC"
	return query, args
}

// GetApplication resolves an application from the shared applications table.
func (s *Storage) GetApplication(ctx context.Context, id string) (persistence.Application, error) {
	var application persistence.Application
	err := s.db.QueryRowContext(ctx,
		`SELECT id, employer_id, candidate_id, job_id FROM applications WHERE id = $1`, id,
	).Scan(&application.ID, &application.EmployerID, &application.CandidateID, &application.JobID)
	if err != nil {
		return persistence.Application{}, mapError(err)
	}
	return application, nil
}

// PutApplication upserts an application projection for seeding.
func (s *Storage) PutApplication(ctx context.Context, application persistence.Application) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, employer_id, candidate_id, job_id) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET employer_id = EXCLUDED.employer_id, candidate_id = EXCLUDED.candidate_id, job_id = EXCLUDED.job_id`,
		application.ID, application.EmployerID, application.CandidateID, application.JobID,
	)
	return mapError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (persistence.Proposal, error) {
	var (
		proposal                persistence.Proposal
		slots, votes            []byte
		confirmed, cancellation []byte
		deadline                sql.NullTime
	)
	if err := row.Scan(
		&proposal.ApplicationID,
		&proposal.EmployerID,
		&proposal.CandidateID,
		&proposal.JobID,
		&proposal.Status,
		&slots,
		&proposal.NextSlotIndex,
		&deadline,
		&votes,
		&confirmed,
		&cancellation,
		&proposal.Version,
		&proposal.CreatedAt,
		&proposal.UpdatedAt,
	); err != nil {
		return persistence.Proposal{}, err
	}

	proposal.CreatedAt = proposal.CreatedAt.UTC()
	proposal.UpdatedAt = proposal.UpdatedAt.UTC()
	if deadline.Valid {
		d := deadline.Time.UTC()
		proposal.VotingDeadline = &d
	}

	docs := persistence.Documents{Slots: slots, Votes: votes, ConfirmedSlot: confirmed, Cancellation: cancellation}
	if err := persistence.DecodeDocuments(&proposal, docs); err != nil {
		return persistence.Proposal{}, err
	}
	return proposal, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullableDocument(doc []byte) any {
	if doc == nil {
		return nil
	}
	return doc
}
