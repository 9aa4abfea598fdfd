// Package oracle produces scored interview slot suggestions for employers.
package oracle

import (
	"context"
	"errors"
	"sort"

	"github.com/example/interview-scheduler/internal/interview"
)

// Oracle produces scored slot suggestions.
type Oracle interface {
	Suggest(ctx context.Context, request interview.SuggestionRequest) ([]interview.Suggestion, error)
}

// ErrNoOracle is returned by an empty Chain.
var ErrNoOracle = errors.New("oracle: no oracle configured")

// Chain asks each oracle in turn and returns the first successful answer.
type Chain []Oracle

// Suggest implements Oracle.
func (c Chain) Suggest(ctx context.Context, request interview.SuggestionRequest) ([]interview.Suggestion, error) {
	var errs []error
	for _, o := range c {
		if o == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		suggestions, err := o.Suggest(ctx, request)
		if err == nil {
			return suggestions, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoOracle
	}
	return nil, errors.Join(errs...)
}

// rank orders suggestions by score then start time and trims to limit.
func rank(suggestions []interview.Suggestion, limit int) []interview.Suggestion {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].StartTime.Before(suggestions[j].StartTime)
	})
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

func overlapsAny(candidate interview.Interval, busy []interview.Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
