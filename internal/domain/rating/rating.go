// Package rating holds the play-rating formula and the player rating
// aggregate. Both are pure; persistence never leaks in here.
package rating

import "math"

// Score thresholds of the piecewise rating formula.
const (
	perfectScore = 10_000_000
	exScore      = 9_800_000
	pivotScore   = 9_500_000

	exDivisor   = 200_000.0
	baseDivisor = 300_000.0
)

// Scale converts the combined mean into the stored integer rating unit.
const Scale = 100

// TopBests is how many personal-best ratings feed the aggregate.
const TopBests = 30

// Play converts a chart's base rating and a play's score into the play rating.
//
//	score >= 10,000,000            -> base + 2
//	9,800,000 <= score < 10,000,000 -> base + 1 + (score-9,800,000)/200,000
//	score < 9,800,000              -> base + (score-9,500,000)/300,000, floored at 0
func Play(base float64, score int64) float64 {
	switch {
	case score >= perfectScore:
		return base + 2
	case score >= exScore:
		return base + 1 + float64(score-exScore)/exDivisor
	default:
		r := base + float64(score-pivotScore)/baseDivisor
		if r < 0 {
			r = 0
		}
		return r
	}
}

// Aggregate combines the top personal-best ratings with the flagged recent
// ratings into the scaled player rating: the arithmetic mean over both sets,
// times Scale, rounded. An empty input yields 0.
func Aggregate(best, recent []float64) int64 {
	var sum float64
	for _, r := range best {
		sum += r
	}
	for _, r := range recent {
		sum += r
	}
	n := len(best) + len(recent)
	if n == 0 {
		n = 1
	}
	return int64(math.Round(sum / float64(n) * Scale))
}
