// Package config holds every policy threshold the decision components use.
// The values are product policy, not derived invariants: in particular the
// retry cap and the (struggle, mastery) hysteresis band are tunable knobs,
// and nothing in the decision logic hard-codes them.
package config

import "time"

// Tunables is the consolidated threshold configuration injected into each
// engine component. Zero-value fields are filled in by Default.
type Tunables struct {
	// MasteryThreshold is the rolling-average accuracy at or above which a
	// concept can be considered mastered (and a tier promotion considered).
	MasteryThreshold float64 `mapstructure:"mastery_threshold"`

	// ProficiencyThreshold is the rolling-average accuracy at or above
	// which a concept is proficient but not yet mastered.
	ProficiencyThreshold float64 `mapstructure:"proficiency_threshold"`

	// StruggleThreshold is the accuracy below which a learner is
	// struggling. Together with MasteryThreshold it bounds the hysteresis
	// band in which the difficulty machine makes no change.
	StruggleThreshold float64 `mapstructure:"struggle_threshold"`

	// MinAttemptsForAssessment is how many attempts a concept needs before
	// an assessment returns a definitive status.
	MinAttemptsForAssessment int `mapstructure:"min_attempts_for_assessment"`

	// MaxRetriesPerConcept caps consecutive struggling retries on one
	// concept before the planner forces progression at a lowered tier.
	// A policy constant, not a hard law: tune it per deployment.
	MaxRetriesPerConcept int `mapstructure:"max_retries_per_concept"`

	// ScoreHistorySize bounds the per-concept score history.
	ScoreHistorySize int `mapstructure:"score_history_size"`

	// ConfidenceCap limits assessment confidence so small samples never
	// report near-certainty.
	ConfidenceCap float64 `mapstructure:"confidence_cap"`

	// AnalysisWindowDays is the default attempt window for analysis.
	AnalysisWindowDays int `mapstructure:"analysis_window_days"`

	// TrendMinAttempts is the minimum score-series length for a trend
	// judgment; shorter series read as insufficient data.
	TrendMinAttempts int `mapstructure:"trend_min_attempts"`

	// TrendDelta is how far the recent-half average must move from the
	// older-half average to register as improving or declining.
	TrendDelta float64 `mapstructure:"trend_delta"`

	Monitor MonitorTunables `mapstructure:"monitor"`
	Review  ReviewTunables  `mapstructure:"review"`
}

// MonitorTunables configures the real-time session monitor's intervention
// rules.
type MonitorTunables struct {
	// SlowResponseSecs is the mean response time above which a hint is
	// suggested.
	SlowResponseSecs float64 `mapstructure:"slow_response_secs"`

	// ReductionAccuracy is the running accuracy below which a difficulty
	// reduction is emitted on top of a targeted explanation.
	ReductionAccuracy float64 `mapstructure:"reduction_accuracy"`

	// BreakAccuracy is the running accuracy below which a long session
	// earns a break suggestion.
	BreakAccuracy float64 `mapstructure:"break_accuracy"`

	// BreakAfter is the session duration beyond which a break is
	// considered.
	BreakAfter time.Duration `mapstructure:"break_after"`

	// AttentionGap is the idle time between interactions that triggers an
	// engagement boost.
	AttentionGap time.Duration `mapstructure:"attention_gap"`

	// ErrorHistorySize bounds the per-session (skill, error type) history.
	ErrorHistorySize int `mapstructure:"error_history_size"`

	// ConsecutiveIncorrect is the streak of wrong answers that triggers a
	// method change.
	ConsecutiveIncorrect int `mapstructure:"consecutive_incorrect"`

	// RepeatedErrorCount is how often a (skill, error type) pair must
	// recur before a targeted explanation fires.
	RepeatedErrorCount int `mapstructure:"repeated_error_count"`
}

// ReviewTunables configures the spaced repetition schedule.
type ReviewTunables struct {
	// Base interval hours by performance bucket, highest bucket first.
	HighHours     float64 `mapstructure:"high_hours"`     // performance >= 0.9
	GoodHours     float64 `mapstructure:"good_hours"`     // performance >= 0.8
	ModerateHours float64 `mapstructure:"moderate_hours"` // performance >= 0.7
	LowHours      float64 `mapstructure:"low_hours"`      // everything else

	// GrowthFactor expands intervals once GrowthAfter repetitions are
	// behind the learner: interval = base * factor^(count - after).
	GrowthFactor float64 `mapstructure:"growth_factor"`
	GrowthAfter  int     `mapstructure:"growth_after"`
}

// Default returns the Tunables with the stock policy values.
func Default() Tunables {
	return Tunables{
		MasteryThreshold:         0.85,
		ProficiencyThreshold:     0.70,
		StruggleThreshold:        0.50,
		MinAttemptsForAssessment: 3,
		MaxRetriesPerConcept:     5,
		ScoreHistorySize:         10,
		ConfidenceCap:            0.95,
		AnalysisWindowDays:       7,
		TrendMinAttempts:         3,
		TrendDelta:               0.1,
		Monitor: MonitorTunables{
			SlowResponseSecs:     60,
			ReductionAccuracy:    0.30,
			BreakAccuracy:        0.60,
			BreakAfter:           30 * time.Minute,
			AttentionGap:         2 * time.Minute,
			ErrorHistorySize:     20,
			ConsecutiveIncorrect: 3,
			RepeatedErrorCount:   2,
		},
		Review: ReviewTunables{
			HighHours:     72,
			GoodHours:     48,
			ModerateHours: 24,
			LowHours:      8,
			GrowthFactor:  1.5,
			GrowthAfter:   3,
		},
	}
}
