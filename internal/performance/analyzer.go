package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/store"
)

const (
	// defaultAccuracy and defaultConsistency are the fixed neutral profile
	// values returned when a learner has no attempts in the window.
	// "No data" is a valid answer here, never an error.
	defaultAccuracy    = 0.5
	defaultConsistency = 0.5
)

// Analyzer computes performance profiles over a learner's attempt window.
type Analyzer struct {
	attempts store.AttemptRepo
	cfg      config.Tunables
	now      func() time.Time
}

// NewAnalyzer creates an analyzer reading from the given attempt repo.
func NewAnalyzer(attempts store.AttemptRepo, cfg config.Tunables) *Analyzer {
	return &Analyzer{attempts: attempts, cfg: cfg, now: time.Now}
}

// WithClock overrides the analyzer's clock. For tests.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Analyze computes the profile from attempts in [now - windowDays, now].
// A windowDays of 0 uses the configured default window.
func (a *Analyzer) Analyze(ctx context.Context, learnerID string, windowDays int) (*Profile, error) {
	if windowDays <= 0 {
		windowDays = a.cfg.AnalysisWindowDays
	}
	since := a.now().AddDate(0, 0, -windowDays)

	attempts, err := a.attempts.ListSince(ctx, learnerID, since)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	if len(attempts) == 0 {
		return defaultProfile(learnerID, windowDays), nil
	}

	p := &Profile{
		LearnerID:       learnerID,
		WindowDays:      windowDays,
		TotalActivities: len(attempts),
		SkillAccuracy:   make(map[string]float64),
		TierAccuracy:    make(map[string]float64),
	}

	var totalScore, totalMax float64
	ratios := make([]float64, 0, len(attempts))
	skillRatios := make(map[string][]float64)
	tierRatios := make(map[string][]float64)
	var effSum float64
	var effCount int

	for i := range attempts {
		rec := &attempts[i]
		ratio := rec.AccuracyRatio()
		ratios = append(ratios, ratio)
		totalScore += rec.Score
		totalMax += rec.MaxScore

		skillRatios[rec.SkillArea] = append(skillRatios[rec.SkillArea], ratio)
		if rec.Tier != "" {
			tierRatios[rec.Tier] = append(tierRatios[rec.Tier], ratio)
		}

		if rec.TimeSpentSecs > 0 {
			effSum += ratio / float64(rec.TimeSpentSecs)
			effCount++
		}
	}

	if totalMax > 0 {
		p.OverallAccuracy = totalScore / totalMax
	}
	for skill, rs := range skillRatios {
		p.SkillAccuracy[skill] = Mean(rs)
	}
	for tier, rs := range tierRatios {
		p.TierAccuracy[tier] = Mean(rs)
	}
	if effCount > 0 {
		p.TimeEfficiency = effSum / float64(effCount)
	}
	p.Consistency = Consistency(ratios)
	p.Trend = TrendOf(ratios, a.cfg.TrendMinAttempts, a.cfg.TrendDelta)

	return p, nil
}

// defaultProfile is what callers get for an empty window: neutral accuracy
// and consistency so downstream thresholds behave sensibly.
func defaultProfile(learnerID string, windowDays int) *Profile {
	return &Profile{
		LearnerID:       learnerID,
		WindowDays:      windowDays,
		TotalActivities: 0,
		OverallAccuracy: defaultAccuracy,
		SkillAccuracy:   map[string]float64{},
		TierAccuracy:    map[string]float64{},
		Consistency:     defaultConsistency,
		Trend:           TrendInsufficientData,
	}
}

// TrendOf compares the recent half of a score series against the older
// half, with a dead band of delta so small wobbles read as stable. Series
// shorter than minAttempts read as insufficient data. ratios are ordered
// oldest first; both knobs come from config.Tunables.
func TrendOf(ratios []float64, minAttempts int, delta float64) Trend {
	if len(ratios) < minAttempts {
		return TrendInsufficientData
	}

	half := len(ratios) / 2
	older := Mean(ratios[:len(ratios)-half])
	recent := Mean(ratios[len(ratios)-half:])

	switch {
	case recent-older > delta:
		return TrendImproving
	case older-recent > delta:
		return TrendDeclining
	default:
		return TrendStable
	}
}
