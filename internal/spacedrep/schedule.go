// Package spacedrep computes review schedules from last-practice metadata.
// Everything here is a pure function of its inputs: no state, no side
// effects, safe for concurrent calls.
package spacedrep

import (
	"math"
	"time"

	"github.com/rkodali/adept/internal/config"
)

// Decision is the answer to "when should this concept be reviewed next".
type Decision struct {
	DueNow         bool
	NextReviewAt   time.Time
	RemainingHours float64
}

// NextReview maps last-practice metadata to a next-due time.
//
// The base interval comes from the performance bucket at last practice;
// the interval only begins expanding after the configured repetition count
// (default 3), giving early repetitions a fixed cadence and later ones an
// exponential backoff. A zero lastPracticedAt means never practiced:
// due immediately.
func NextReview(lastPracticedAt time.Time, performanceLevel float64, repetitionCount int, now time.Time, cfg config.ReviewTunables) Decision {
	if lastPracticedAt.IsZero() {
		return Decision{DueNow: true, NextReviewAt: now, RemainingHours: 0}
	}

	interval := IntervalHours(performanceLevel, repetitionCount, cfg)
	next := lastPracticedAt.Add(time.Duration(interval * float64(time.Hour)))
	elapsed := now.Sub(lastPracticedAt).Hours()

	remaining := interval - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		DueNow:         elapsed >= interval,
		NextReviewAt:   next,
		RemainingHours: remaining,
	}
}

// IntervalHours returns the adjusted review interval in hours.
func IntervalHours(performanceLevel float64, repetitionCount int, cfg config.ReviewTunables) float64 {
	base := baseHours(performanceLevel, cfg)

	growth := repetitionCount - cfg.GrowthAfter
	if growth <= 0 {
		return base
	}
	return base * math.Pow(cfg.GrowthFactor, float64(growth))
}

// baseHours buckets a performance level into its base interval.
func baseHours(performanceLevel float64, cfg config.ReviewTunables) float64 {
	switch {
	case performanceLevel >= 0.9:
		return cfg.HighHours
	case performanceLevel >= 0.8:
		return cfg.GoodHours
	case performanceLevel >= 0.7:
		return cfg.ModerateHours
	default:
		return cfg.LowHours
	}
}
