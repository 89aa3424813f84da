package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockAttemptRepo implements store.AttemptRepo for testing.
type mockAttemptRepo struct {
	appended  []store.AttemptRecord
	appendErr error
}

func (m *mockAttemptRepo) Append(_ context.Context, rec *store.AttemptRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, *rec)
	return nil
}

func (m *mockAttemptRepo) ListSince(_ context.Context, _ string, _ time.Time) ([]store.AttemptRecord, error) {
	return nil, nil
}

var monitorStart = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testClock is a manually advanced clock shared by monitor tests.
type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

func newTestMonitor(repo store.AttemptRepo) (*Monitor, *testClock) {
	clock := &testClock{t: monitorStart}
	m := New(repo, config.Default(), zap.NewNop()).WithClock(clock.now)
	return m, clock
}

func hasIntervention(list []Intervention, typ InterventionType) bool {
	for _, iv := range list {
		if iv.Type == typ {
			return true
		}
	}
	return false
}

func correctEvent(clock *testClock, skill string) Event {
	return Event{SkillArea: skill, Correct: true, ResponseTimeSecs: 5, At: clock.advance(10 * time.Second)}
}

func wrongEvent(clock *testClock, skill, errType string) Event {
	return Event{SkillArea: skill, Correct: false, ResponseTimeSecs: 5, ErrorType: errType, At: clock.advance(10 * time.Second)}
}

func TestStart_SecondStartFails(t *testing.T) {
	m, _ := newTestMonitor(nil)

	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.Start("kid-1", "act-2"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start err = %v, want ErrSessionActive", err)
	}

	// A different learner is unaffected.
	if _, err := m.Start("kid-2", "act-1"); err != nil {
		t.Errorf("Start for other learner: %v", err)
	}
}

func TestTrack_WithoutStartFails(t *testing.T) {
	m, clock := newTestMonitor(nil)

	_, err := m.Track("kid-1", correctEvent(clock, "fractions"))
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestEnd_WithoutStartFails(t *testing.T) {
	m, _ := newTestMonitor(nil)

	_, err := m.End(context.Background(), "kid-1")
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestTrack_UpdatesRunningMetrics(t *testing.T) {
	m, clock := newTestMonitor(nil)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m.Track("kid-1", correctEvent(clock, "fractions"))
	m.Track("kid-1", correctEvent(clock, "fractions"))
	res, err := m.Track("kid-1", wrongEvent(clock, "fractions", "sign"))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	if res.Metrics.Interactions != 3 {
		t.Errorf("Interactions = %d, want 3", res.Metrics.Interactions)
	}
	if res.Metrics.Correct != 2 || res.Metrics.Incorrect != 1 {
		t.Errorf("Correct/Incorrect = %d/%d, want 2/1", res.Metrics.Correct, res.Metrics.Incorrect)
	}
}

func TestTrack_ThreeConsecutiveIncorrectTriggersMethodChange(t *testing.T) {
	m, clock := newTestMonitor(nil)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Pad with correct answers so accuracy stays above the struggle
	// threshold and rule (a) stays quiet.
	for i := 0; i < 6; i++ {
		m.Track("kid-1", correctEvent(clock, "fractions"))
	}

	var res *TrackResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = m.Track("kid-1", wrongEvent(clock, "fractions", "sign"))
		if err != nil {
			t.Fatalf("Track: %v", err)
		}
	}
	if !hasIntervention(res.Interventions, InterventionMethodChange) {
		t.Errorf("no method_change after 3 consecutive incorrect: %+v", res.Interventions)
	}

	// A correct answer resets the streak.
	res, _ = m.Track("kid-1", correctEvent(clock, "fractions"))
	if hasIntervention(res.Interventions, InterventionMethodChange) {
		t.Error("method_change fired after the streak was broken")
	}
}

func TestTrack_RepeatedErrorTriggersTargetedExplanation(t *testing.T) {
	m, clock := newTestMonitor(nil)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m.Track("kid-1", wrongEvent(clock, "fractions", "denominator"))
	res, err := m.Track("kid-1", wrongEvent(clock, "fractions", "denominator"))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	if !hasIntervention(res.Interventions, InterventionTargetedExplanation) {
		t.Fatalf("no targeted_explanation: %+v", res.Interventions)
	}
	for _, iv := range res.Interventions {
		if iv.Type == InterventionTargetedExplanation {
			if iv.SkillArea != "fractions" || iv.ErrorType != "denominator" {
				t.Errorf("targeted at %s/%s, want fractions/denominator", iv.SkillArea, iv.ErrorType)
			}
			if iv.Priority != PriorityHigh {
				t.Errorf("Priority = %s, want high", iv.Priority)
			}
		}
	}
	// Accuracy is 0 here, below the reduction cutoff too.
	if !hasIntervention(res.Interventions, InterventionDifficultyReduction) {
		t.Errorf("no difficulty_reduction at zero accuracy: %+v", res.Interventions)
	}
}

func TestTrack_SlowResponsesSuggestHint(t *testing.T) {
	m, clock := newTestMonitor(nil)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	res, err := m.Track("kid-1", Event{
		SkillArea:        "fractions",
		Correct:          true,
		ResponseTimeSecs: 90,
		At:               clock.advance(90 * time.Second),
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if !hasIntervention(res.Interventions, InterventionHintSuggestion) {
		t.Errorf("no hint_suggestion with 90s mean response: %+v", res.Interventions)
	}
}

func TestTrack_IdleGapTriggersEngagementBoost(t *testing.T) {
	m, clock := newTestMonitor(nil)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m.Track("kid-1", correctEvent(clock, "fractions"))
	res, err := m.Track("kid-1", Event{
		SkillArea: "fractions",
		Correct:   true,
		At:        clock.advance(3 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if !hasIntervention(res.Interventions, InterventionEngagementBoost) {
		t.Errorf("no engagement_boost after 3m idle gap: %+v", res.Interventions)
	}
}

func TestTrack_LongLowAccuracySessionSuggestsBreak(t *testing.T) {
	m, clock := newTestMonitor(nil)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Alternate right and wrong for ~31 minutes: accuracy 0.5, below the
	// break cutoff of 0.6 but above the struggle threshold.
	var res *TrackResult
	var err error
	for i := 0; i < 32; i++ {
		ev := Event{
			SkillArea: "fractions",
			Correct:   i%2 == 0,
			At:        clock.advance(time.Minute),
		}
		res, err = m.Track("kid-1", ev)
		if err != nil {
			t.Fatalf("Track: %v", err)
		}
	}
	if !hasIntervention(res.Interventions, InterventionBreakSuggestion) {
		t.Errorf("no break_suggestion after long low-accuracy session: %+v", res.Interventions)
	}
}

func TestEnd_SummaryAndReconciliation(t *testing.T) {
	repo := &mockAttemptRepo{}
	m, clock := newTestMonitor(repo)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m.Track("kid-1", correctEvent(clock, "fractions"))
	m.Track("kid-1", wrongEvent(clock, "fractions", "sign"))
	m.Track("kid-1", wrongEvent(clock, "fractions", "sign"))
	m.Track("kid-1", correctEvent(clock, "decimals"))

	summary, err := m.End(context.Background(), "kid-1")
	if err != nil {
		t.Fatalf("End: %v", err)
	}

	if summary.Interactions != 4 {
		t.Errorf("Interactions = %d, want 4", summary.Interactions)
	}
	if summary.Accuracy != 0.5 {
		t.Errorf("Accuracy = %f, want 0.5", summary.Accuracy)
	}
	if summary.DominantErrorType != "sign" {
		t.Errorf("DominantErrorType = %s, want sign", summary.DominantErrorType)
	}
	if len(summary.Recommendations) == 0 {
		t.Error("expected recommendations from dominant error pattern")
	}

	if len(repo.appended) != 1 {
		t.Fatalf("appended %d attempts, want 1", len(repo.appended))
	}
	rec := repo.appended[0]
	if rec.LearnerID != "kid-1" || rec.ActivityID != "act-1" {
		t.Errorf("reconciled record = %s/%s, want kid-1/act-1", rec.LearnerID, rec.ActivityID)
	}
	if rec.Score != 2 || rec.MaxScore != 4 {
		t.Errorf("Score/MaxScore = %g/%g, want 2/4", rec.Score, rec.MaxScore)
	}
	if rec.SkillArea != "fractions" {
		t.Errorf("SkillArea = %s, want dominant skill fractions", rec.SkillArea)
	}

	// State is gone: a new session may start, tracking the old one fails.
	if m.Active("kid-1") {
		t.Error("session still active after End")
	}
	if _, err := m.Track("kid-1", correctEvent(clock, "fractions")); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Track after End err = %v, want ErrNoActiveSession", err)
	}
	if _, err := m.Start("kid-1", "act-2"); err != nil {
		t.Errorf("restart after End: %v", err)
	}
	if _, err := m.End(context.Background(), "kid-1"); err != nil {
		t.Errorf("End of restarted session: %v", err)
	}
}

// A failed reconciliation must not destroy the session: the caller gets
// the error and can end again once the store recovers.
func TestEnd_FailedReconciliationKeepsSessionRetryable(t *testing.T) {
	repo := &mockAttemptRepo{appendErr: errors.New("disk full")}
	m, clock := newTestMonitor(repo)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Track("kid-1", correctEvent(clock, "fractions"))

	if _, err := m.End(context.Background(), "kid-1"); err == nil {
		t.Fatal("expected reconciliation error")
	}
	if !m.Active("kid-1") {
		t.Fatal("session discarded after failed reconciliation")
	}

	repo.appendErr = nil
	summary, err := m.End(context.Background(), "kid-1")
	if err != nil {
		t.Fatalf("retried End: %v", err)
	}
	if summary.Interactions != 1 {
		t.Errorf("Interactions = %d, want 1", summary.Interactions)
	}
	if len(repo.appended) != 1 {
		t.Errorf("appended %d attempts, want 1", len(repo.appended))
	}
	if m.Active("kid-1") {
		t.Error("session still active after successful End")
	}
}

func TestEnd_EmptySessionDoesNotReconcile(t *testing.T) {
	repo := &mockAttemptRepo{}
	m, _ := newTestMonitor(repo)
	if _, err := m.Start("kid-1", "act-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := m.End(context.Background(), "kid-1"); err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(repo.appended) != 0 {
		t.Errorf("appended %d attempts for an empty session, want 0", len(repo.appended))
	}
}
