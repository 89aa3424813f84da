// Package performance computes rolling statistical profiles from a
// learner's recent attempt history.
package performance

import "math"

// Trend describes the direction of recent performance.
type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

// Profile is a derived, ephemeral view of a learner's recent attempts.
// It is recomputed on demand and never persisted.
type Profile struct {
	LearnerID       string
	WindowDays      int
	TotalActivities int

	// OverallAccuracy is total score over total max score in the window.
	OverallAccuracy float64

	// SkillAccuracy is mean per-attempt accuracy grouped by skill area
	// (the activity-type key of the attempt records).
	SkillAccuracy map[string]float64

	// TierAccuracy is mean per-attempt accuracy grouped by difficulty tier.
	TierAccuracy map[string]float64

	// TimeEfficiency is mean accuracy-per-second over timed attempts.
	TimeEfficiency float64

	// Consistency is 1 - min(stddev(accuracy), 1): higher means more
	// stable performance, always in [0, 1].
	Consistency float64

	Trend Trend
}

// Consistency maps a score series to a [0, 1] stability scalar using the
// variance normalization shared by the analyzer and the mastery tracker.
func Consistency(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	dev := math.Sqrt(variance(scores))
	if dev > 1 {
		dev = 1
	}
	return 1 - dev
}

func variance(scores []float64) float64 {
	mean := Mean(scores)
	sum := 0.0
	for _, s := range scores {
		d := s - mean
		sum += d * d
	}
	return sum / float64(len(scores))
}

// Mean returns the arithmetic mean of scores, or 0 for an empty slice.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
