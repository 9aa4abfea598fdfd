package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
)

// timeLayout is fixed width so stored instants compare lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const proposalColumns = `application_id, employer_id, candidate_id, job_id, status, slots, next_slot_index,
	voting_deadline, votes, confirmed_slot, cancellation, version, created_at, updated_at`

// CreateProposal inserts a new proposal row.
func (s *Storage) CreateProposal(ctx context.Context, proposal persistence.Proposal) error {
	docs, err := persistence.EncodeDocuments(proposal)
	if err != nil {
		return err
	}

	query := `INSERT INTO interview_proposals (` + proposalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.pool.DB().ExecContext(ctx, query,
		proposal.ApplicationID,
		proposal.EmployerID,
		proposal.CandidateID,
		proposal.JobID,
		proposal.Status,
		string(docs.Slots),
		proposal.NextSlotIndex,
		formatNullableTime(proposal.VotingDeadline),
		string(docs.Votes),
		nullableDocument(docs.ConfirmedSlot),
		nullableDocument(docs.Cancellation),
		proposal.Version,
		formatTime(proposal.CreatedAt),
		formatTime(proposal.UpdatedAt),
	)
	return s.mapper.MapError(err)
}

// GetProposal loads the proposal for an application.
func (s *Storage) GetProposal(ctx context.Context, applicationID string) (persistence.Proposal, error) {
	row := s.pool.DB().QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM interview_proposals WHERE application_id = ?`, applicationID)
	proposal, err := scanProposal(row)
	if err != nil {
		return persistence.Proposal{}, s.mapper.MapError(err)
	}
	return proposal, nil
}

// UpdateProposal performs a compare-and-swap on the version column.
func (s *Storage) UpdateProposal(ctx context.Context, proposal persistence.Proposal, expectedVersion int64) error {
	docs, err := persistence.EncodeDocuments(proposal)
	if err != nil {
		return err
	}

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE interview_proposals SET
				status = ?, slots = ?, next_slot_index = ?, voting_deadline = ?, votes = ?,
				confirmed_slot = ?, cancellation = ?, version = ?, updated_at = ?
			WHERE application_id = ? AND version = ?`,
			proposal.Status,
			string(docs.Slots),
			proposal.NextSlotIndex,
			formatNullableTime(proposal.VotingDeadline),
			string(docs.Votes),
			nullableDocument(docs.ConfirmedSlot),
			nullableDocument(docs.Cancellation),
			proposal.Version,
			formatTime(proposal.UpdatedAt),
			proposal.ApplicationID,
			expectedVersion,
		)
		if err != nil {
			return s.mapper.MapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return s.mapper.MapError(err)
		}
		if affected == 1 {
			return nil
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM interview_proposals WHERE application_id = ?`, proposal.ApplicationID).Scan(&exists)
		if err != nil {
			return s.mapper.MapError(err)
		}
		return persistence.ErrVersionConflict
	})
}

// ListProposals returns proposals matching the filter ordered by creation time.
func (s *Storage) ListProposals(ctx context.Context, filter persistence.ProposalFilter) ([]persistence.Proposal, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.EmployerID != "" {
		clauses = append(clauses, "employer_id = ?")
		args = append(args, filter.EmployerID)
	}
	if filter.CandidateID != "" {
		clauses = append(clauses, "candidate_id = ?")
		args = append(args, filter.CandidateID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.DeadlineBefore != nil {
		clauses = append(clauses, "voting_deadline IS NOT NULL AND voting_deadline < ?")
		args = append(args, formatTime(*filter.DeadlineBefore))
	}

	query := `SELECT ` + proposalColumns + ` FROM interview_proposals`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, application_id ASC"

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	proposals := make([]persistence.Proposal, 0)
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, s.mapper.MapError(err)
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapper.MapError(err)
	}
	return proposals, nil
}

// GetApplication resolves an application from the shared applications table.
func (s *Storage) GetApplication(ctx context.Context, id string) (persistence.Application, error) {
	var application persistence.Application
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT id, employer_id, candidate_id, job_id FROM applications WHERE id = ?`, id,
	).Scan(&application.ID, &application.EmployerID, &application.CandidateID, &application.JobID)
	if err != nil {
		return persistence.Application{}, s.mapper.MapError(err)
	}
	return application, nil
}

// PutApplication upserts an application projection. The applications table is
// owned by the external CRUD system; this exists for seeding and tests.
func (s *Storage) PutApplication(ctx context.Context, application persistence.Application) error {
	_, err := s.pool.DB().ExecContext(ctx,
		`INSERT INTO applications (id, employer_id, candidate_id, job_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET employer_id = excluded.employer_id, candidate_id = excluded.candidate_id, job_id = excluded.job_id`,
		application.ID, application.EmployerID, application.CandidateID, application.JobID,
	)
	return s.mapper.MapError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (persistence.Proposal, error) {
	var (
		proposal                persistence.Proposal
		slots, votes            string
		deadline                sql.NullString
		confirmed, cancellation sql.NullString
		createdAt, updatedAt    string
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
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Proposal{}, err
	}

	var err error
	if proposal.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Proposal{}, err
	}
	if proposal.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Proposal{}, err
	}
	if deadline.Valid {
		parsed, err := parseTime(deadline.String)
		if err != nil {
			return persistence.Proposal{}, err
		}
		proposal.VotingDeadline = &parsed
	}

	docs := persistence.Documents{Slots: []byte(slots), Votes: []byte(votes)}
	if confirmed.Valid {
		docs.ConfirmedSlot = []byte(confirmed.String)
	}
	if cancellation.Valid {
		docs.Cancellation = []byte(cancellation.String)
	}
	if err := persistence.DecodeDocuments(&proposal, docs); err != nil {
		return persistence.Proposal{}, err
	}
	return proposal, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", value, err)
		}
	}
	return parsed.UTC(), nil
}

func nullableDocument(doc []byte) sql.NullString {
	if len(doc) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(doc), Valid: true}
}
