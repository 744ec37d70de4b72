// Package grades turns a full set of twelve subject scores into the derived
// result fields: total, average, percentage, letter grade, and PASSED/FAILED
// status. Everything here is pure — no I/O, no state — so the same scores
// always produce the same summary.
package grades

import (
	"math"

	"github.com/aanand-mishra/exam-results-api/internal/types"
)

// PassMark is the minimum percentage for a PASSED status. It is also the
// D+ boundary, so every passing student holds at least a D+.
const PassMark = 45.0

// maxTotal is twelve subjects at 100 marks each.
const maxTotal = types.SubjectCount * types.MaxScore

// Summary holds the derived fields computed from one set of scores.
// The fields are only ever produced together; callers must not update one
// without the others.
type Summary struct {
	Total      int
	Average    float64
	Percentage float64
	Grade      string
	Status     string
}

// Summarize computes the derived fields for a complete scores map.
// It assumes the map has already passed validation (exactly twelve known
// subjects, each score 0–100); unknown keys would silently skew the total,
// which is why the validator runs first.
func Summarize(scores map[types.Subject]int) Summary {
	total := 0
	for _, subject := range types.Subjects {
		total += scores[subject]
	}

	percentage := round2(float64(total) / maxTotal * 100)

	return Summary{
		Total:      total,
		Average:    float64(total) / types.SubjectCount,
		Percentage: percentage,
		Grade:      GradeFromPercentage(percentage),
		Status:     StatusFromPercentage(percentage),
	}
}

// GradeFromPercentage maps a percentage to a letter grade using the fixed
// twelve-step scale. The input is clamped to 0–100 first, so the mapping is
// total over all float inputs.
func GradeFromPercentage(percentage float64) string {
	p := math.Max(0, math.Min(100, percentage))

	switch {
	case p >= 95:
		return "A+"
	case p >= 90:
		return "A"
	case p >= 80:
		return "A-"
	case p >= 75:
		return "B+"
	case p >= 70:
		return "B"
	case p >= 65:
		return "B-"
	case p >= 60:
		return "C+"
	case p >= 55:
		return "C"
	case p >= 50:
		return "C-"
	case p >= PassMark:
		return "D+"
	case p >= 40:
		return "D"
	case p >= 35:
		return "D-"
	default:
		return "E"
	}
}

// StatusFromPercentage reports PASSED at or above the pass mark, FAILED below.
func StatusFromPercentage(percentage float64) string {
	if percentage >= PassMark {
		return types.StatusPassed
	}
	return types.StatusFailed
}

// round2 rounds to two decimal places, halves away from zero (45.005 → 45.01).
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
