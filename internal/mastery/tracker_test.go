package mastery

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/store"
)

const epsilon = 0.001

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// mockMasteryRepo implements store.MasteryRepo for testing.
type mockMasteryRepo struct {
	rows map[string]*store.ConceptMasteryData
}

func newMockMasteryRepo() *mockMasteryRepo {
	return &mockMasteryRepo{rows: make(map[string]*store.ConceptMasteryData)}
}

func repoKey(learnerID, skillArea, conceptID string) string {
	return learnerID + "|" + skillArea + "|" + conceptID
}

func (m *mockMasteryRepo) Load(_ context.Context, learnerID, skillArea, conceptID string) (*store.ConceptMasteryData, error) {
	row, ok := m.rows[repoKey(learnerID, skillArea, conceptID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *row
	cp.ScoreHistory = append([]float64(nil), row.ScoreHistory...)
	return &cp, nil
}

func (m *mockMasteryRepo) LoadAll(_ context.Context, learnerID string) ([]store.ConceptMasteryData, error) {
	var out []store.ConceptMasteryData
	for _, row := range m.rows {
		if row.LearnerID == learnerID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *mockMasteryRepo) Save(_ context.Context, data *store.ConceptMasteryData) error {
	cp := *data
	cp.ScoreHistory = append([]float64(nil), data.ScoreHistory...)
	m.rows[repoKey(data.LearnerID, data.SkillArea, data.ConceptID)] = &cp
	return nil
}

func newTestTracker(repo store.MasteryRepo) *Tracker {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return NewTracker(repo, config.Default()).WithClock(func() time.Time { return now })
}

func record(t *testing.T, tr *Tracker, ratios ...float64) *ConceptMastery {
	t.Helper()
	var cm *ConceptMastery
	var err error
	for _, r := range ratios {
		cm, err = tr.RecordAttempt(context.Background(), "kid-1", "fractions", "equivalence", r)
		if err != nil {
			t.Fatalf("RecordAttempt(%f): %v", r, err)
		}
	}
	return cm
}

func TestAssess_UnknownConceptIsNotStarted(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())

	a, err := tr.Assess(context.Background(), "kid-1", "fractions", "equivalence")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Status != StatusNotStarted {
		t.Errorf("Status = %s, want not_started", a.Status)
	}
	if a.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0", a.Confidence)
	}
}

func TestAssess_BelowMinAttemptsIsInsufficientData(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	record(t, tr, 0.9, 0.9)

	a, err := tr.Assess(context.Background(), "kid-1", "fractions", "equivalence")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Status != StatusInsufficientData {
		t.Errorf("Status = %s, want insufficient_data", a.Status)
	}
	if a.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0", a.Confidence)
	}
}

func TestRecordAttempt_HighStableHistoryMasters(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	cm := record(t, tr, 0.90, 0.88, 0.87)

	if cm.Status != StatusMastered {
		t.Errorf("Status = %s, want mastered (avg %.3f)", cm.Status, cm.RollingAverage())
	}
}

func TestRecordAttempt_DecliningHistoryDoesNotMaster(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	// Average stays above the mastery threshold but the trend is a slide.
	cm := record(t, tr, 1.0, 1.0, 1.0, 0.78, 0.77)

	if cm.Status == StatusMastered {
		t.Errorf("mastered on a declining history (avg %.3f)", cm.RollingAverage())
	}
	if cm.Status != StatusProficient {
		t.Errorf("Status = %s, want proficient", cm.Status)
	}
}

func TestRecordAttempt_LowHistoryStruggles(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	cm := record(t, tr, 0.30, 0.20, 0.40)

	if cm.Status != StatusStruggling {
		t.Errorf("Status = %s, want struggling", cm.Status)
	}
	if cm.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", cm.RetryCount)
	}
}

func TestRecordAttempt_RetryCountWaitsForDefinitiveStatus(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())

	// First two bad attempts are still "learning": no retries counted.
	cm := record(t, tr, 0.3, 0.3)
	if cm.Status != StatusLearning {
		t.Fatalf("Status after 2 attempts = %s, want learning", cm.Status)
	}
	if cm.RetryCount != 0 {
		t.Errorf("RetryCount after 2 attempts = %d, want 0", cm.RetryCount)
	}

	// Attempt three makes the struggle definitive and starts the counter.
	cm = record(t, tr, 0.3)
	if cm.Status != StatusStruggling {
		t.Fatalf("Status after 3 attempts = %s, want struggling", cm.Status)
	}
	if cm.RetryCount != 1 {
		t.Errorf("RetryCount after 3 attempts = %d, want 1", cm.RetryCount)
	}
}

func TestRecordAttempt_RetryCountResetsOnRecovery(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	record(t, tr, 0.3, 0.3, 0.3, 0.3)

	// A run of strong attempts lifts the average out of struggling.
	cm := record(t, tr, 1.0, 1.0, 1.0, 1.0, 1.0)
	if cm.Status == StatusStruggling {
		t.Fatalf("still struggling after recovery (avg %.3f)", cm.RollingAverage())
	}
	if cm.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0 after recovery", cm.RetryCount)
	}
}

func TestRecordAttempt_HistoryIsBounded(t *testing.T) {
	cfg := config.Default()
	tr := newTestTracker(newMockMasteryRepo())

	var cm *ConceptMastery
	for i := 0; i < cfg.ScoreHistorySize+5; i++ {
		cm = record(t, tr, 0.8)
	}
	if len(cm.ScoreHistory) != cfg.ScoreHistorySize {
		t.Errorf("history length = %d, want %d", len(cm.ScoreHistory), cfg.ScoreHistorySize)
	}
	if cm.AttemptCount != cfg.ScoreHistorySize+5 {
		t.Errorf("AttemptCount = %d, want %d", cm.AttemptCount, cfg.ScoreHistorySize+5)
	}
}

func TestRecordAttempt_ClampsRatio(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	cm := record(t, tr, 1.7, -0.5)

	if cm.ScoreHistory[0] != 1.0 {
		t.Errorf("ScoreHistory[0] = %f, want 1.0", cm.ScoreHistory[0])
	}
	if cm.ScoreHistory[1] != 0.0 {
		t.Errorf("ScoreHistory[1] = %f, want 0.0", cm.ScoreHistory[1])
	}
}

func TestAssess_Deterministic(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	record(t, tr, 0.9, 0.85, 0.92, 0.88)

	first, err := tr.Assess(context.Background(), "kid-1", "fractions", "equivalence")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := tr.Assess(context.Background(), "kid-1", "fractions", "equivalence")
		if err != nil {
			t.Fatalf("Assess: %v", err)
		}
		if again != first {
			t.Fatalf("assessment changed between identical calls: %+v vs %+v", again, first)
		}
	}
}

func TestAssess_ConfidenceIsCapped(t *testing.T) {
	cfg := config.Default()
	tr := newTestTracker(newMockMasteryRepo())
	record(t, tr, 1.0, 1.0, 1.0, 1.0, 1.0)

	a, err := tr.Assess(context.Background(), "kid-1", "fractions", "equivalence")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Confidence > cfg.ConfidenceCap+epsilon {
		t.Errorf("Confidence = %f, want <= %f", a.Confidence, cfg.ConfidenceCap)
	}
	if !almostEqual(a.Confidence, cfg.ConfidenceCap) {
		t.Errorf("perfect history should hit the cap, got %f", a.Confidence)
	}
}

func TestAllStates(t *testing.T) {
	tr := newTestTracker(newMockMasteryRepo())
	record(t, tr, 0.8)

	states, err := tr.AllStates(context.Background(), "kid-1")
	if err != nil {
		t.Fatalf("AllStates: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("len(states) = %d, want 1", len(states))
	}
	if states[0].ConceptID != "equivalence" {
		t.Errorf("ConceptID = %s, want equivalence", states[0].ConceptID)
	}
}
