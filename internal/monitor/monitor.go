package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/store"
)

// Session lifecycle errors. Both are caller mistakes, surfaced
// synchronously and never retried internally.
var (
	// ErrSessionActive is returned by Start when the learner already has
	// an active session. A second start must fail rather than silently
	// overwrite live state.
	ErrSessionActive = errors.New("learner already has an active session")

	// ErrNoActiveSession is returned by Track and End without a
	// preceding Start.
	ErrNoActiveSession = errors.New("learner has no active session")
)

// Metrics is the running view returned after every tracked interaction.
type Metrics struct {
	SessionID        string
	Interactions     int
	Correct          int
	Incorrect        int
	Accuracy         float64
	MeanResponseSecs float64
	SessionMinutes   float64
}

// TrackResult bundles the updated metrics with any interventions the
// event triggered (possibly none).
type TrackResult struct {
	Metrics       Metrics
	Interventions []Intervention
}

// Summary is computed when a session ends, just before its state is
// discarded.
type Summary struct {
	SessionID          string
	LearnerID          string
	ActivityID         string
	StartedAt          time.Time
	EndedAt            time.Time
	DurationMinutes    float64
	Interactions       int
	Accuracy           float64
	InterventionsFired int
	DominantErrorSkill string
	DominantErrorType  string
	Recommendations    []string
}

// Monitor tracks live sessions, one per learner at most. All access to the
// session map is serialized through a single mutex; each session is
// therefore strictly single-writer.
type Monitor struct {
	mu       sync.Mutex
	sessions map[string]*session

	attempts store.AttemptRepo // reconciliation target; may be nil
	cfg      config.Tunables
	log      *zap.Logger
	now      func() time.Time
}

// New creates a session monitor. attempts may be nil, in which case ended
// sessions are not reconciled into the attempt history.
func New(attempts store.AttemptRepo, cfg config.Tunables, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		sessions: make(map[string]*session),
		attempts: attempts,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the monitor's clock. For tests.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Start opens a session for the learner and returns its ID.
// Returns ErrSessionActive if one is already open.
func (m *Monitor) Start(learnerID, activityID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, active := m.sessions[learnerID]; active {
		return "", fmt.Errorf("learner %s: %w", learnerID, ErrSessionActive)
	}

	now := m.now()
	s := &session{
		id:          uuid.New().String(),
		learnerID:   learnerID,
		activityID:  activityID,
		startedAt:   now,
		lastEventAt: now,
		skillCounts: make(map[string]int),
	}
	m.sessions[learnerID] = s

	m.log.Debug("session started",
		zap.String("learner_id", learnerID),
		zap.String("session_id", s.id),
		zap.String("activity_id", activityID))
	return s.id, nil
}

// Track folds one interaction event into the learner's active session and
// evaluates the intervention rules in fixed priority order. Multiple
// interventions may fire on a single call.
func (m *Monitor) Track(learnerID string, ev Event) (*TrackResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, active := m.sessions[learnerID]
	if !active {
		return nil, fmt.Errorf("learner %s: %w", learnerID, ErrNoActiveSession)
	}

	at := ev.At
	if at.IsZero() {
		at = m.now()
	}
	gap := at.Sub(s.lastEventAt)

	s.interactions++
	s.skillCounts[ev.SkillArea]++
	s.responseTimes = append(s.responseTimes, ev.ResponseTimeSecs)
	if ev.Correct {
		s.correct++
		s.incorrectRun = 0
	} else {
		s.incorrect++
		s.incorrectRun++
		s.recordError(errorTuple{SkillArea: ev.SkillArea, ErrorType: ev.ErrorType},
			m.cfg.Monitor.ErrorHistorySize)
	}
	s.lastEventAt = at

	interventions := m.evaluate(s, gap, at)
	s.fired = append(s.fired, interventions...)

	if len(interventions) > 0 {
		m.log.Debug("interventions fired",
			zap.String("learner_id", learnerID),
			zap.Int("count", len(interventions)))
	}

	return &TrackResult{
		Metrics:       m.metricsOf(s, at),
		Interventions: interventions,
	}, nil
}

// End closes the learner's session, computes its summary, reconciles one
// attempt record into the history store, and discards the in-memory state.
// When reconciliation fails the session stays active so the caller can
// retry the end. No further events are legal for the learner after a
// successful End until a new Start.
func (m *Monitor) End(ctx context.Context, learnerID string) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, active := m.sessions[learnerID]
	if !active {
		return nil, fmt.Errorf("learner %s: %w", learnerID, ErrNoActiveSession)
	}

	now := m.now()
	summary := m.summarize(s, now)

	if m.attempts != nil && s.interactions > 0 {
		rec := &store.AttemptRecord{
			LearnerID:     s.learnerID,
			ActivityID:    s.activityID,
			SkillArea:     s.dominantSkill(),
			Score:         float64(s.correct),
			MaxScore:      float64(s.interactions),
			TimeSpentSecs: int(now.Sub(s.startedAt).Seconds()),
			CompletedAt:   now,
		}
		if err := m.attempts.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("reconcile session attempt: %w", err)
		}
	}

	delete(m.sessions, learnerID)

	m.log.Info("session ended",
		zap.String("learner_id", learnerID),
		zap.String("session_id", s.id),
		zap.Int("interactions", summary.Interactions),
		zap.Float64("accuracy", summary.Accuracy))
	return summary, nil
}

// Active reports whether the learner currently has an open session.
func (m *Monitor) Active(learnerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, active := m.sessions[learnerID]
	return active
}

// evaluate applies the intervention rules in fixed priority order.
func (m *Monitor) evaluate(s *session, gap time.Duration, at time.Time) []Intervention {
	var out []Intervention
	mc := m.cfg.Monitor
	accuracy := s.accuracy()

	// a. Low accuracy: look for a recurring (skill, error type) pair.
	if accuracy < m.cfg.StruggleThreshold {
		if t, ok := s.repeatedError(mc.RepeatedErrorCount); ok {
			out = append(out, Intervention{
				Type:      InterventionTargetedExplanation,
				Priority:  PriorityHigh,
				SkillArea: t.SkillArea,
				ErrorType: t.ErrorType,
				Message:   fmt.Sprintf("repeated %s errors in %s", t.ErrorType, t.SkillArea),
			})
		}
		if accuracy < mc.ReductionAccuracy {
			out = append(out, Intervention{
				Type:     InterventionDifficultyReduction,
				Priority: PriorityHigh,
				Message:  fmt.Sprintf("running accuracy %.2f", accuracy),
			})
		}
	}

	// b. Slow responses.
	if s.meanResponseSecs() > mc.SlowResponseSecs {
		out = append(out, Intervention{
			Type:     InterventionHintSuggestion,
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("mean response time %.0fs", s.meanResponseSecs()),
		})
	}

	// c. Consecutive incorrect streak.
	if s.incorrectRun >= mc.ConsecutiveIncorrect {
		out = append(out, Intervention{
			Type:     InterventionMethodChange,
			Priority: PriorityMedium,
			Message:  fmt.Sprintf("%d incorrect in a row", s.incorrectRun),
		})
	}

	// d. Idle gap.
	if s.interactions > 1 && gap > mc.AttentionGap {
		out = append(out, Intervention{
			Type:     InterventionEngagementBoost,
			Priority: PriorityLow,
			Message:  fmt.Sprintf("%.0fs since previous interaction", gap.Seconds()),
		})
	}

	// e. Long session at low accuracy.
	if at.Sub(s.startedAt) > mc.BreakAfter && accuracy < mc.BreakAccuracy {
		out = append(out, Intervention{
			Type:     InterventionBreakSuggestion,
			Priority: PriorityLow,
			Message:  fmt.Sprintf("session over %.0f minutes at accuracy %.2f", mc.BreakAfter.Minutes(), accuracy),
		})
	}

	return out
}

func (m *Monitor) metricsOf(s *session, at time.Time) Metrics {
	return Metrics{
		SessionID:        s.id,
		Interactions:     s.interactions,
		Correct:          s.correct,
		Incorrect:        s.incorrect,
		Accuracy:         s.accuracy(),
		MeanResponseSecs: s.meanResponseSecs(),
		SessionMinutes:   at.Sub(s.startedAt).Minutes(),
	}
}

func (m *Monitor) summarize(s *session, endedAt time.Time) *Summary {
	summary := &Summary{
		SessionID:          s.id,
		LearnerID:          s.learnerID,
		ActivityID:         s.activityID,
		StartedAt:          s.startedAt,
		EndedAt:            endedAt,
		DurationMinutes:    endedAt.Sub(s.startedAt).Minutes(),
		Interactions:       s.interactions,
		Accuracy:           s.accuracy(),
		InterventionsFired: len(s.fired),
	}

	if t, ok := s.dominantError(); ok {
		summary.DominantErrorSkill = t.SkillArea
		summary.DominantErrorType = t.ErrorType
		summary.Recommendations = recommendations(t, s.accuracy())
	} else if s.interactions > 0 && s.accuracy() >= m.cfg.MasteryThreshold {
		summary.Recommendations = []string{"consider a higher difficulty tier next session"}
	}

	return summary
}

// recommendations derives next-session advice from the dominant error
// pattern.
func recommendations(t errorTuple, accuracy float64) []string {
	recs := []string{
		fmt.Sprintf("review %s fundamentals in %s before new material", t.ErrorType, t.SkillArea),
	}
	if accuracy < 0.5 {
		recs = append(recs, "start the next session one difficulty tier lower")
	}
	recs = append(recs, fmt.Sprintf("request activities targeting %s errors", t.ErrorType))
	return recs
}
