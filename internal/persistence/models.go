package persistence

import "time"

// Proposal is the stored form of an interview proposal. Slot and vote
// collections are persisted as JSON documents alongside the scalar columns.
type Proposal struct {
	ApplicationID  string
	EmployerID     string
	CandidateID    string
	JobID          string
	Status         string
	Slots          []Slot
	NextSlotIndex  int
	VotingDeadline *time.Time
	Votes          []Vote
	ConfirmedSlot  *ConfirmedSlot
	Cancellation   *Cancellation
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Slot is the stored form of a proposed time window.
type Slot struct {
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

// Vote is the stored form of a candidate vote.
type Vote struct {
	SlotIndex    int       `json:"slot_index"`
	Rank         int       `json:"rank"`
	Availability string    `json:"availability"`
	Notes        string    `json:"notes,omitempty"`
	CastAt       time.Time `json:"cast_at"`
}

// ConfirmedSlot is the stored form of the confirmed slot snapshot.
type ConfirmedSlot struct {
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

// Cancellation is the stored form of a cancellation record.
type Cancellation struct {
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Application is the read-only projection of a job application owned by the
// external application CRUD system.
type Application struct {
	ID          string
	EmployerID  string
	CandidateID string
	JobID       string
}
