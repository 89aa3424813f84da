package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/performance"
	"github.com/rkodali/adept/internal/store"
)

// Assessment is the answer to "how well does this learner know this
// concept right now".
type Assessment struct {
	Status     Status
	Confidence float64
}

// Tracker records attempts and assesses concept mastery. Callers must
// serialize writes per learner (the engine facade holds that lock).
type Tracker struct {
	repo store.MasteryRepo
	cfg  config.Tunables
	now  func() time.Time
}

// NewTracker creates a mastery tracker over the given repo.
func NewTracker(repo store.MasteryRepo, cfg config.Tunables) *Tracker {
	return &Tracker{repo: repo, cfg: cfg, now: time.Now}
}

// WithClock overrides the tracker's clock. For tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// RecordAttempt folds one score ratio into the concept's state machine and
// persists the result. State is created on the first attempt of a concept
// and never deleted afterwards.
func (t *Tracker) RecordAttempt(ctx context.Context, learnerID, skillArea, conceptID string, scoreRatio float64) (*ConceptMastery, error) {
	cm, err := t.load(ctx, learnerID, skillArea, conceptID)
	if err != nil {
		return nil, err
	}

	cm.AttemptCount++
	cm.ScoreHistory = append(cm.ScoreHistory, clampRatio(scoreRatio))
	if len(cm.ScoreHistory) > t.cfg.ScoreHistorySize {
		cm.ScoreHistory = cm.ScoreHistory[len(cm.ScoreHistory)-t.cfg.ScoreHistorySize:]
	}
	cm.LastAttemptAt = t.now()

	prev := cm.Status
	cm.Status = t.statusOf(cm)
	if cm.Status == StatusStruggling {
		// Each attempt that leaves the concept struggling counts as a
		// retry toward the planner's escape hatch.
		cm.RetryCount++
	} else if prev == StatusStruggling {
		cm.RetryCount = 0
	}

	if err := t.repo.Save(ctx, cm.toData()); err != nil {
		return nil, fmt.Errorf("save mastery state: %w", err)
	}
	return cm, nil
}

// Assess returns the current status and a confidence score for a concept.
// Deterministic: the same stored history always yields the same answer.
// Below the minimum attempt count the status is insufficient_data with
// confidence 0.
func (t *Tracker) Assess(ctx context.Context, learnerID, skillArea, conceptID string) (Assessment, error) {
	data, err := t.repo.Load(ctx, learnerID, skillArea, conceptID)
	if errors.Is(err, store.ErrNotFound) {
		return Assessment{Status: StatusNotStarted, Confidence: 0}, nil
	}
	if err != nil {
		return Assessment{}, fmt.Errorf("load mastery state: %w", err)
	}

	cm := fromData(data)
	if cm.AttemptCount < t.cfg.MinAttemptsForAssessment {
		return Assessment{Status: StatusInsufficientData, Confidence: 0}, nil
	}

	return Assessment{
		Status:     t.statusOf(cm),
		Confidence: t.confidenceOf(cm),
	}, nil
}

// State returns the stored mastery state for one concept, or a fresh
// not_started record if none exists.
func (t *Tracker) State(ctx context.Context, learnerID, skillArea, conceptID string) (*ConceptMastery, error) {
	return t.load(ctx, learnerID, skillArea, conceptID)
}

// AllStates returns every stored mastery state for a learner.
func (t *Tracker) AllStates(ctx context.Context, learnerID string) ([]*ConceptMastery, error) {
	rows, err := t.repo.LoadAll(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load mastery states: %w", err)
	}
	states := make([]*ConceptMastery, len(rows))
	for i := range rows {
		states[i] = fromData(&rows[i])
	}
	return states, nil
}

func (t *Tracker) load(ctx context.Context, learnerID, skillArea, conceptID string) (*ConceptMastery, error) {
	data, err := t.repo.Load(ctx, learnerID, skillArea, conceptID)
	if errors.Is(err, store.ErrNotFound) {
		return &ConceptMastery{
			LearnerID: learnerID,
			SkillArea: skillArea,
			ConceptID: conceptID,
			Status:    StatusNotStarted,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load mastery state: %w", err)
	}
	return fromData(data), nil
}

// statusOf derives the lifecycle status from the bounded score history.
// Until the minimum attempt count is reached every started concept reads
// as learning: a definitive judgment needs enough history, and the retry
// counter must not tick on a single bad first attempt.
func (t *Tracker) statusOf(cm *ConceptMastery) Status {
	if cm.AttemptCount == 0 {
		return StatusNotStarted
	}
	if cm.AttemptCount < t.cfg.MinAttemptsForAssessment {
		return StatusLearning
	}

	avg := cm.RollingAverage()
	// Mastery needs a non-declining history on top of the average: the
	// recent half must sit within the dead band of, or above, the older
	// half.
	trend := performance.TrendOf(cm.ScoreHistory, t.cfg.TrendMinAttempts, t.cfg.TrendDelta)
	switch {
	case avg >= t.cfg.MasteryThreshold && trend != performance.TrendDeclining:
		return StatusMastered
	case avg >= t.cfg.ProficiencyThreshold:
		return StatusProficient
	case avg < t.cfg.StruggleThreshold:
		return StatusStruggling
	default:
		return StatusLearning
	}
}

// confidenceOf scales average accuracy by history consistency, capped so
// small samples never report near-certainty.
func (t *Tracker) confidenceOf(cm *ConceptMastery) float64 {
	conf := cm.RollingAverage() * performance.Consistency(cm.ScoreHistory)
	if conf > t.cfg.ConfidenceCap {
		conf = t.cfg.ConfidenceCap
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
