package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/example/interview-scheduler/internal/interview"
)

// Heuristic suggests weekday slots inside business hours that avoid the
// employer's busy intervals. Scores favour mid-morning and mid-afternoon.
type Heuristic struct {
	DayStartHour int
	DayEndHour   int
	Step         time.Duration
	Limit        int
}

// NewHeuristic returns a heuristic covering 09:00 to 18:00 in 30 minute steps.
func NewHeuristic() *Heuristic {
	return &Heuristic{DayStartHour: 9, DayEndHour: 18, Step: 30 * time.Minute, Limit: 10}
}

// Suggest implements Oracle.
func (h *Heuristic) Suggest(ctx context.Context, request interview.SuggestionRequest) ([]interview.Suggestion, error) {
	if request.Duration <= 0 {
		return nil, fmt.Errorf("oracle: duration must be positive")
	}
	loc := time.UTC
	if request.Timezone != "" {
		l, err := time.LoadLocation(request.Timezone)
		if err != nil {
			return nil, fmt.Errorf("oracle: load timezone %q: %w", request.Timezone, err)
		}
		loc = l
	}
	step := h.Step
	if step <= 0 {
		step = 30 * time.Minute
	}

	var suggestions []interview.Suggestion
	y, m, d := request.WindowStart.In(loc).Date()
	for day := time.Date(y, m, d, 0, 0, 0, 0, loc); day.Before(request.WindowEnd); day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		open := time.Date(day.Year(), day.Month(), day.Day(), h.DayStartHour, 0, 0, 0, loc)
		closing := time.Date(day.Year(), day.Month(), day.Day(), h.DayEndHour, 0, 0, 0, loc)
		for start := open; !start.Add(request.Duration).After(closing); start = start.Add(step) {
			end := start.Add(request.Duration)
			if start.Before(request.WindowStart) || end.After(request.WindowEnd) {
				continue
			}
			candidate := interview.Interval{Start: start, End: end}
			if overlapsAny(candidate, request.Busy) {
				continue
			}
			score, reason := timeOfDayScore(start)
			suggestions = append(suggestions, interview.Suggestion{
				StartTime: start.UTC(),
				EndTime:   end.UTC(),
				Score:     score,
				Reason:    reason,
			})
		}
	}
	return rank(suggestions, h.Limit), nil
}

func timeOfDayScore(start time.Time) (int, string) {
	minutes := start.Hour()*60 + start.Minute()
	switch {
	case minutes >= 10*60 && minutes < 12*60:
		return 90, "mid-morning focus time"
	case minutes >= 14*60 && minutes < 16*60:
		return 85, "mid-afternoon availability"
	case minutes >= 12*60 && minutes < 13*60:
		return 50, "overlaps lunch"
	case minutes >= 13*60 && minutes < 14*60:
		return 75, "early afternoon"
	case minutes < 10*60:
		return 70, "start of the working day"
	default:
		return 65, "late in the working day"
	}
}
