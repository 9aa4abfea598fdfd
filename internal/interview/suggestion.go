package interview

import "time"

// Interval is a half-open busy range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two intervals share any instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// SuggestionRequest asks an availability oracle for candidate slots.
type SuggestionRequest struct {
	EmployerID  string
	WindowStart time.Time
	WindowEnd   time.Time
	Duration    time.Duration
	// Timezone is the IANA zone used for business-hour reasoning.
	Timezone string
	Busy     []Interval
}

// Suggestion is a scored slot recommendation. Score is 0..100.
type Suggestion struct {
	StartTime time.Time
	EndTime   time.Time
	Score     int
	Reason    string
}
