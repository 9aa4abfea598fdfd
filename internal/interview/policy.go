package interview

import (
	"errors"
	"sort"
	"time"
)

const confidenceEpsilon = 1e-9

// SlotScore is the computed standing of a single slot after a tally.
type SlotScore struct {
	SlotIndex      int
	Confidence     float64
	FirstRankVotes int
	HasVote        bool
	Availability   Availability
	AIScore        int
	StartTime      time.Time
	Disqualified   bool
}

// ConfirmationPolicy scores slots and decides whether the leader should be
// confirmed without employer action.
type ConfirmationPolicy interface {
	Rank(p Proposal) []SlotScore
	ShouldConfirm(top SlotScore) bool
}

// WeightedPolicy blends rank preference, availability and the oracle score
// into a single confidence value.
type WeightedPolicy struct {
	RankWeight         float64
	AvailabilityWeight float64
	AIWeight           float64
	MaybeFactor        float64
	Threshold          float64
	ExpectedVoters     int
}

// DefaultPolicy returns the production weights.
func DefaultPolicy() WeightedPolicy {
	return WeightedPolicy{
		RankWeight:         0.5,
		AvailabilityWeight: 0.3,
		AIWeight:           0.2,
		MaybeFactor:        0.4,
		Threshold:          0.75,
		ExpectedVoters:     1,
	}
}

// ErrInvalidPolicy is returned by Validate for unusable weights.
var ErrInvalidPolicy = errors.New("interview: invalid confirmation policy")

// Validate checks that weights are usable.
func (w WeightedPolicy) Validate() error {
	if w.RankWeight < 0 || w.AvailabilityWeight < 0 || w.AIWeight < 0 {
		return ErrInvalidPolicy
	}
	if w.RankWeight+w.AvailabilityWeight+w.AIWeight <= 0 {
		return ErrInvalidPolicy
	}
	if w.MaybeFactor < 0 || w.MaybeFactor > 1 {
		return ErrInvalidPolicy
	}
	if w.Threshold <= 0 || w.Threshold > 1 {
		return ErrInvalidPolicy
	}
	if w.ExpectedVoters < 1 {
		return ErrInvalidPolicy
	}
	return nil
}

// Rank recomputes every slot score from the current votes and orders them by
// confidence desc, aiScore desc, start time asc, then slot index asc.
func (w WeightedPolicy) Rank(p Proposal) []SlotScore {
	if len(p.Slots) == 0 {
		return nil
	}

	voters := w.ExpectedVoters
	if voters < 1 {
		voters = 1
	}

	scores := make([]SlotScore, 0, len(p.Slots))
	for _, slot := range p.Slots {
		score := SlotScore{
			SlotIndex: slot.Index,
			AIScore:   slot.AIScore,
			StartTime: slot.StartTime,
		}

		availabilityFactor := 0.0
		if vote, ok := p.Vote(slot.Index); ok {
			score.HasVote = true
			score.Availability = vote.Availability
			if vote.Rank == 1 {
				score.FirstRankVotes = 1
			}
			switch vote.Availability {
			case AvailabilityAvailable:
				availabilityFactor = 1
			case AvailabilityMaybe:
				availabilityFactor = w.MaybeFactor
			case AvailabilityUnavailable:
				score.Disqualified = true
			}
		}

		if !score.Disqualified {
			rankFactor := float64(score.FirstRankVotes) / float64(voters)
			if rankFactor > 1 {
				rankFactor = 1
			}
			score.Confidence = w.RankWeight*rankFactor +
				w.AvailabilityWeight*availabilityFactor +
				w.AIWeight*float64(clampScore(slot.AIScore))/100
		}

		scores = append(scores, score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scoreLess(scores[i], scores[j])
	})
	return scores
}

// ShouldConfirm reports whether the leading slot crosses the threshold.
func (w WeightedPolicy) ShouldConfirm(top SlotScore) bool {
	if !top.HasVote || top.Disqualified || top.Availability == AvailabilityUnavailable {
		return false
	}
	return top.Confidence+confidenceEpsilon >= w.Threshold
}

func scoreLess(a, b SlotScore) bool {
	if a.Disqualified != b.Disqualified {
		return !a.Disqualified
	}
	if diff := a.Confidence - b.Confidence; diff > confidenceEpsilon || diff < -confidenceEpsilon {
		return diff > 0
	}
	if a.AIScore != b.AIScore {
		return a.AIScore > b.AIScore
	}
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.SlotIndex < b.SlotIndex
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
