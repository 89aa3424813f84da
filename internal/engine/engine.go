// Package engine composes the decision components behind one facade and
// enforces the concurrency contract: reads run freely, writes to any one
// learner's state are serialized through a per-learner lock.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/curriculum"
	"github.com/rkodali/adept/internal/difficulty"
	"github.com/rkodali/adept/internal/mastery"
	"github.com/rkodali/adept/internal/monitor"
	"github.com/rkodali/adept/internal/performance"
	"github.com/rkodali/adept/internal/planner"
	"github.com/rkodali/adept/internal/spacedrep"
	"github.com/rkodali/adept/internal/store"
)

// Attempt is one completed learning activity as reported by a caller.
type Attempt struct {
	LearnerID     string
	ActivityID    string
	SkillArea     string
	ConceptID     string
	Tier          difficulty.Tier
	Score         float64
	MaxScore      float64
	TimeSpentSecs int
	CompletedAt   time.Time // zero means "now"
}

// AttemptResult is what recording an attempt produced: the persisted
// record, the updated mastery state, and the difficulty decision for the
// activity's tier.
type AttemptResult struct {
	Record     *store.AttemptRecord
	Mastery    *mastery.ConceptMastery
	Adjustment difficulty.Decision
}

// Options wires an Engine. Store, Curricula and Config are required;
// Logger defaults to a nop logger, Clock to time.Now.
type Options struct {
	Store     *store.Store
	Curricula map[string]*curriculum.Path
	Config    config.Tunables
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Engine is the single entry point callers use. All methods are safe for
// concurrent use.
type Engine struct {
	attempts store.AttemptRepo
	analyzer *performance.Analyzer
	machine  *difficulty.Machine
	tracker  *mastery.Tracker
	planner  *planner.Planner
	monitor  *monitor.Monitor

	cfg   config.Tunables
	log   *zap.Logger
	now   func() time.Time
	locks *lockRegistry
}

// New builds an engine from the given options.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	attempts := opts.Store.AttemptRepo()
	tracker := mastery.NewTracker(opts.Store.MasteryRepo(), opts.Config).WithClock(now)

	return &Engine{
		attempts: attempts,
		analyzer: performance.NewAnalyzer(attempts, opts.Config).WithClock(now),
		machine:  difficulty.NewMachine(opts.Config),
		tracker:  tracker,
		planner:  planner.New(opts.Store.PathRepo(), tracker, opts.Curricula, opts.Config).WithClock(now),
		monitor:  monitor.New(attempts, opts.Config, log).WithClock(now),
		cfg:      opts.Config,
		log:      log,
		now:      now,
		locks:    newLockRegistry(),
	}, nil
}

// Analyze computes the learner's performance profile over the window.
// windowDays 0 uses the configured default.
func (e *Engine) Analyze(ctx context.Context, learnerID string, windowDays int) (*performance.Profile, error) {
	return e.analyzer.Analyze(ctx, learnerID, windowDays)
}

// Adjust evaluates a difficulty tier change for the activity given the
// observed accuracy of the learner's latest work on it.
func (e *Engine) Adjust(ctx context.Context, learnerID string, activity difficulty.Activity, observed float64) (difficulty.Decision, error) {
	profile, err := e.analyzer.Analyze(ctx, learnerID, 0)
	if err != nil {
		return difficulty.Decision{}, err
	}
	return e.machine.Adjust(profile, activity, observed), nil
}

// RecordAttempt persists the attempt, updates the concept's mastery state,
// and returns the difficulty decision for the activity's tier. Writes for
// the learner are serialized.
func (e *Engine) RecordAttempt(ctx context.Context, attempt Attempt) (*AttemptResult, error) {
	if attempt.MaxScore <= 0 {
		return nil, fmt.Errorf("record attempt: max score must be positive, got %g", attempt.MaxScore)
	}

	lock := e.locks.get(attempt.LearnerID)
	lock.Lock()
	defer lock.Unlock()

	completedAt := attempt.CompletedAt
	if completedAt.IsZero() {
		completedAt = e.now()
	}

	rec := &store.AttemptRecord{
		LearnerID:     attempt.LearnerID,
		ActivityID:    attempt.ActivityID,
		SkillArea:     attempt.SkillArea,
		ConceptID:     attempt.ConceptID,
		Tier:          attempt.Tier.String(),
		Score:         attempt.Score,
		MaxScore:      attempt.MaxScore,
		TimeSpentSecs: attempt.TimeSpentSecs,
		CompletedAt:   completedAt,
	}
	if err := e.attempts.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append attempt: %w", err)
	}

	ratio := rec.AccuracyRatio()
	result := &AttemptResult{Record: rec}

	if attempt.ConceptID != "" {
		cm, err := e.tracker.RecordAttempt(ctx, attempt.LearnerID, attempt.SkillArea, attempt.ConceptID, ratio)
		if err != nil {
			return nil, err
		}
		result.Mastery = cm
	}

	profile, err := e.analyzer.Analyze(ctx, attempt.LearnerID, 0)
	if err != nil {
		return nil, err
	}
	result.Adjustment = e.machine.Adjust(profile, difficulty.Activity{
		ID:        attempt.ActivityID,
		SkillArea: attempt.SkillArea,
		Tier:      attempt.Tier,
	}, ratio)

	e.log.Debug("attempt recorded",
		zap.String("learner_id", attempt.LearnerID),
		zap.String("concept_id", attempt.ConceptID),
		zap.Float64("ratio", ratio),
		zap.Bool("tier_changed", result.Adjustment.Changed))
	return result, nil
}

// Assess answers the mastery status and confidence for one concept.
func (e *Engine) Assess(ctx context.Context, learnerID, skillArea, conceptID string) (mastery.Assessment, error) {
	return e.tracker.Assess(ctx, learnerID, skillArea, conceptID)
}

// MasteryStates returns every stored mastery state for the learner.
func (e *Engine) MasteryStates(ctx context.Context, learnerID string) ([]*mastery.ConceptMastery, error) {
	return e.tracker.AllStates(ctx, learnerID)
}

// NextAction decides the learner's next unit of work on a path. Writes to
// the learner's path state are serialized with the learner's other writes.
func (e *Engine) NextAction(ctx context.Context, learnerID, pathID string, lastPerformance *float64) (planner.Decision, error) {
	lock := e.locks.get(learnerID)
	lock.Lock()
	defer lock.Unlock()
	return e.planner.NextAction(ctx, learnerID, pathID, lastPerformance)
}

// NextReview computes when one concept is next due for review.
func (e *Engine) NextReview(lastPracticedAt time.Time, performanceLevel float64, repetitionCount int) spacedrep.Decision {
	return spacedrep.NextReview(lastPracticedAt, performanceLevel, repetitionCount, e.now(), e.cfg.Review)
}

// DueReviews derives the learner's review queue from the full attempt
// history: every practiced concept currently due, most overdue first. The
// whole history must be read here, not an analysis window: the most
// overdue concepts are exactly the ones whose last practice predates any
// recency cutoff.
func (e *Engine) DueReviews(ctx context.Context, learnerID string) ([]spacedrep.Entry, error) {
	attempts, err := e.attempts.ListSince(ctx, learnerID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	entries := spacedrep.BuildEntries(attempts)
	return spacedrep.Due(entries, e.now(), e.cfg.Review), nil
}

// StartSession opens a monitored session for the learner.
func (e *Engine) StartSession(learnerID, activityID string) (string, error) {
	return e.monitor.Start(learnerID, activityID)
}

// TrackSession folds one interaction into the learner's active session.
func (e *Engine) TrackSession(learnerID string, ev monitor.Event) (*monitor.TrackResult, error) {
	return e.monitor.Track(learnerID, ev)
}

// EndSession closes the learner's session and reconciles it into the
// attempt history.
func (e *Engine) EndSession(ctx context.Context, learnerID string) (*monitor.Summary, error) {
	lock := e.locks.get(learnerID)
	lock.Lock()
	defer lock.Unlock()
	return e.monitor.End(ctx, learnerID)
}
