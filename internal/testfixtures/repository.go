package testfixtures

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/interview-scheduler/internal/persistence"
)

// NewProposalRecord returns a stored-form proposal with two slots in voting.
func NewProposalRecord(applicationID, employerID, candidateID string, createdAt time.Time) persistence.Proposal {
	deadline := createdAt.Add(48 * time.Hour).UTC()
	start := createdAt.Add(72 * time.Hour).UTC()
	return persistence.Proposal{
		ApplicationID: applicationID,
		EmployerID:    employerID,
		CandidateID:   candidateID,
		JobID:         "job-" + applicationID,
		Status:        "voting",
		Slots: []persistence.Slot{
			{Index: 0, StartTime: start, EndTime: start.Add(time.Hour), Timezone: "UTC", MeetingType: "video", AIScore: 60},
			{Index: 1, StartTime: start.Add(5 * time.Hour), EndTime: start.Add(6 * time.Hour), Timezone: "Asia/Tokyo", MeetingType: "in-person", Location: "HQ", AIScore: 90},
		},
		NextSlotIndex:  2,
		VotingDeadline: &deadline,
		Version:        1,
		CreatedAt:      createdAt.UTC(),
		UpdatedAt:      createdAt.UTC(),
	}
}

// RunProposalRepositoryContract exercises the behaviour every ProposalRepository
// implementation must share. newRepo must return an empty, ready repository.
func RunProposalRepositoryContract(t *testing.T, newRepo func(t *testing.T) persistence.ProposalRepository) {
	t.Helper()

	t.Run("creates and reads proposals", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		record := NewProposalRecord("app-1", "emp-1", "cand-1", ReferenceTime())
		record.Votes = []persistence.Vote{{SlotIndex: 1, Rank: 1, Availability: "maybe", Notes: "late", CastAt: ReferenceTime().Add(time.Minute)}}

		if err := repo.CreateProposal(ctx, record); err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}

		fetched, err := repo.GetProposal(ctx, "app-1")
		if err != nil {
			t.Fatalf("GetProposal failed: %v", err)
		}
		if fetched.Status != "voting" || fetched.Version != 1 || fetched.NextSlotIndex != 2 {
			t.Fatalf("unexpected proposal %#v", fetched)
		}
		if len(fetched.Slots) != 2 || fetched.Slots[1].Location != "HQ" || fetched.Slots[1].Timezone != "Asia/Tokyo" {
			t.Fatalf("unexpected slots %#v", fetched.Slots)
		}
		if !fetched.Slots[0].StartTime.Equal(record.Slots[0].StartTime) {
			t.Fatalf("expected start %v, got %v", record.Slots[0].StartTime, fetched.Slots[0].StartTime)
		}
		if len(fetched.Votes) != 1 || fetched.Votes[0].Notes != "late" {
			t.Fatalf("unexpected votes %#v", fetched.Votes)
		}
		if fetched.VotingDeadline == nil || !fetched.VotingDeadline.Equal(*record.VotingDeadline) {
			t.Fatalf("expected deadline %v, got %v", record.VotingDeadline, fetched.VotingDeadline)
		}
		if fetched.ConfirmedSlot != nil || fetched.Cancellation != nil {
			t.Fatalf("expected no confirmation or cancellation, got %#v", fetched)
		}

		if _, err := repo.GetProposal(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects duplicate proposals", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		record := NewProposalRecord("app-dup", "emp-1", "cand-1", ReferenceTime())

		if err := repo.CreateProposal(ctx, record); err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}
		if err := repo.CreateProposal(ctx, record); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("updates with compare-and-swap", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		record := NewProposalRecord("app-cas", "emp-1", "cand-1", ReferenceTime())
		if err := repo.CreateProposal(ctx, record); err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}

		confirmedAt := ReferenceTime().Add(time.Hour)
		next := record.Clone()
		next.Status = "confirmed"
		next.Version = 2
		next.UpdatedAt = confirmedAt
		next.ConfirmedSlot = &persistence.ConfirmedSlot{
			SlotIndex: 1, StartTime: record.Slots[1].StartTime, EndTime: record.Slots[1].EndTime,
			Timezone: "Asia/Tokyo", MeetingType: "in-person", Location: "HQ",
			ConfirmedBy: "system", ConfirmedAt: confirmedAt, Automatic: true,
		}
		if err := repo.UpdateProposal(ctx, next, 1); err != nil {
			t.Fatalf("UpdateProposal failed: %v", err)
		}

		stale := record.Clone()
		stale.Version = 2
		stale.Status = "cancelled"
		if err := repo.UpdateProposal(ctx, stale, 1); !errors.Is(err, persistence.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		fetched, err := repo.GetProposal(ctx, "app-cas")
		if err != nil {
			t.Fatalf("GetProposal failed: %v", err)
		}
		if fetched.Status != "confirmed" || fetched.Version != 2 {
			t.Fatalf("expected confirmed version 2, got %s/%d", fetched.Status, fetched.Version)
		}
		if fetched.ConfirmedSlot == nil || !fetched.ConfirmedSlot.Automatic || fetched.ConfirmedSlot.SlotIndex != 1 {
			t.Fatalf("unexpected confirmed slot %#v", fetched.ConfirmedSlot)
		}

		missing := NewProposalRecord("app-missing", "emp-1", "cand-1", ReferenceTime())
		if err := repo.UpdateProposal(ctx, missing, 1); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("admits exactly one concurrent writer per version", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		record := NewProposalRecord("app-race", "emp-1", "cand-1", ReferenceTime())
		if err := repo.CreateProposal(ctx, record); err != nil {
			t.Fatalf("CreateProposal failed: %v", err)
		}

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := record.Clone()
				next.Version = 2
				next.JobID = fmt.Sprintf("writer-%d", i)
				err := repo.UpdateProposal(ctx, next, 1)
				switch {
				case err == nil:
					mu.Lock()
					succeeded++
					mu.Unlock()
				case !errors.Is(err, persistence.ErrVersionConflict):
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if succeeded != 1 {
			t.Fatalf("expected exactly one successful writer, got %d", succeeded)
		}
	})

	t.Run("lists by party, status and deadline", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		base := ReferenceTime()

		first := NewProposalRecord("app-a", "emp-1", "cand-1", base)
		second := NewProposalRecord("app-b", "emp-1", "cand-2", base.Add(time.Minute))
		second.Status = "draft"
		second.VotingDeadline = nil
		third := NewProposalRecord("app-c", "emp-2", "cand-1", base.Add(2*time.Minute))
		for _, record := range []persistence.Proposal{third, first, second} {
			if err := repo.CreateProposal(ctx, record); err != nil {
				t.Fatalf("CreateProposal failed: %v", err)
			}
		}

		byEmployer, err := repo.ListProposals(ctx, persistence.ProposalFilter{EmployerID: "emp-1"})
		if err != nil {
			t.Fatalf("ListProposals failed: %v", err)
		}
		if len(byEmployer) != 2 || byEmployer[0].ApplicationID != "app-a" || byEmployer[1].ApplicationID != "app-b" {
			t.Fatalf("unexpected employer listing %#v", byEmployer)
		}

		byCandidate, err := repo.ListProposals(ctx, persistence.ProposalFilter{CandidateID: "cand-1", Statuses: []string{"voting"}})
		if err != nil {
			t.Fatalf("ListProposals failed: %v", err)
		}
		if len(byCandidate) != 2 {
			t.Fatalf("expected 2 candidate proposals, got %d", len(byCandidate))
		}

		cutoff := base.Add(48*time.Hour + 90*time.Second)
		overdue, err := repo.ListProposals(ctx, persistence.ProposalFilter{Statuses: []string{"voting"}, DeadlineBefore: &cutoff})
		if err != nil {
			t.Fatalf("ListProposals failed: %v", err)
		}
		if len(overdue) != 1 || overdue[0].ApplicationID != "app-a" {
			t.Fatalf("expected only app-a overdue, got %#v", overdue)
		}
	})
}
