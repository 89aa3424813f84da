package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads tunables from an optional YAML config file plus ADEPT_-prefixed
// environment variables, layered over the defaults. An empty path means
// env-plus-defaults only; a missing file at an explicit path is an error.
func Load(path string) (Tunables, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("ADEPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Tunables{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var t Tunables
	if err := v.Unmarshal(&t); err != nil {
		return Tunables{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tunables{}, err
	}
	return t, nil
}

// Validate checks that the thresholds are ordered and in range.
func (t Tunables) Validate() error {
	switch {
	case t.StruggleThreshold <= 0 || t.MasteryThreshold > 1:
		return fmt.Errorf("thresholds must lie in (0, 1]: struggle=%.2f mastery=%.2f",
			t.StruggleThreshold, t.MasteryThreshold)
	case t.StruggleThreshold >= t.ProficiencyThreshold:
		return fmt.Errorf("struggle threshold %.2f must be below proficiency threshold %.2f",
			t.StruggleThreshold, t.ProficiencyThreshold)
	case t.ProficiencyThreshold >= t.MasteryThreshold:
		return fmt.Errorf("proficiency threshold %.2f must be below mastery threshold %.2f",
			t.ProficiencyThreshold, t.MasteryThreshold)
	case t.MinAttemptsForAssessment < 1:
		return fmt.Errorf("min attempts for assessment must be at least 1, got %d", t.MinAttemptsForAssessment)
	case t.MaxRetriesPerConcept < 1:
		return fmt.Errorf("max retries per concept must be at least 1, got %d", t.MaxRetriesPerConcept)
	case t.ScoreHistorySize < t.MinAttemptsForAssessment:
		return fmt.Errorf("score history size %d cannot be below min attempts %d",
			t.ScoreHistorySize, t.MinAttemptsForAssessment)
	case t.TrendMinAttempts < 2:
		return fmt.Errorf("trend min attempts must be at least 2, got %d", t.TrendMinAttempts)
	case t.TrendDelta <= 0 || t.TrendDelta >= 1:
		return fmt.Errorf("trend delta must lie in (0, 1), got %.2f", t.TrendDelta)
	case t.Review.GrowthFactor < 1:
		return fmt.Errorf("review growth factor must be at least 1, got %.2f", t.Review.GrowthFactor)
	}
	return nil
}

func setDefaults(v *viper.Viper, d Tunables) {
	v.SetDefault("mastery_threshold", d.MasteryThreshold)
	v.SetDefault("proficiency_threshold", d.ProficiencyThreshold)
	v.SetDefault("struggle_threshold", d.StruggleThreshold)
	v.SetDefault("min_attempts_for_assessment", d.MinAttemptsForAssessment)
	v.SetDefault("max_retries_per_concept", d.MaxRetriesPerConcept)
	v.SetDefault("score_history_size", d.ScoreHistorySize)
	v.SetDefault("confidence_cap", d.ConfidenceCap)
	v.SetDefault("analysis_window_days", d.AnalysisWindowDays)
	v.SetDefault("trend_min_attempts", d.TrendMinAttempts)
	v.SetDefault("trend_delta", d.TrendDelta)

	v.SetDefault("monitor.slow_response_secs", d.Monitor.SlowResponseSecs)
	v.SetDefault("monitor.reduction_accuracy", d.Monitor.ReductionAccuracy)
	v.SetDefault("monitor.break_accuracy", d.Monitor.BreakAccuracy)
	v.SetDefault("monitor.break_after", d.Monitor.BreakAfter)
	v.SetDefault("monitor.attention_gap", d.Monitor.AttentionGap)
	v.SetDefault("monitor.error_history_size", d.Monitor.ErrorHistorySize)
	v.SetDefault("monitor.consecutive_incorrect", d.Monitor.ConsecutiveIncorrect)
	v.SetDefault("monitor.repeated_error_count", d.Monitor.RepeatedErrorCount)

	v.SetDefault("review.high_hours", d.Review.HighHours)
	v.SetDefault("review.good_hours", d.Review.GoodHours)
	v.SetDefault("review.moderate_hours", d.Review.ModerateHours)
	v.SetDefault("review.low_hours", d.Review.LowHours)
	v.SetDefault("review.growth_factor", d.Review.GrowthFactor)
	v.SetDefault("review.growth_after", d.Review.GrowthAfter)
}
