// Package mastery maintains per-(learner, skill, concept) mastery state
// machines driven by score history and thresholds. Status is never set
// directly by a caller; it is fully determined by recorded attempts.
package mastery

import (
	"time"

	"github.com/rkodali/adept/internal/performance"
	"github.com/rkodali/adept/internal/store"
)

// Status represents a concept's position in the mastery lifecycle.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusLearning   Status = "learning"
	StatusProficient Status = "proficient"
	StatusStruggling Status = "struggling"
	StatusMastered   Status = "mastered"

	// StatusInsufficientData is an assessment-only status for concepts
	// with too few attempts for a definitive judgment. A valid terminal
	// answer, not an error.
	StatusInsufficientData Status = "insufficient_data"
)

// ConceptMastery holds the mastery state for one concept.
type ConceptMastery struct {
	LearnerID     string
	SkillArea     string
	ConceptID     string
	AttemptCount  int
	ScoreHistory  []float64 // bounded most-recent score ratios, oldest first
	Status        Status
	RetryCount    int
	LastAttemptAt time.Time
}

// RollingAverage returns the mean of the bounded score history.
func (cm *ConceptMastery) RollingAverage() float64 {
	return performance.Mean(cm.ScoreHistory)
}

func fromData(data *store.ConceptMasteryData) *ConceptMastery {
	return &ConceptMastery{
		LearnerID:     data.LearnerID,
		SkillArea:     data.SkillArea,
		ConceptID:     data.ConceptID,
		AttemptCount:  data.AttemptCount,
		ScoreHistory:  append([]float64(nil), data.ScoreHistory...),
		Status:        Status(data.Status),
		RetryCount:    data.RetryCount,
		LastAttemptAt: data.LastAttemptAt,
	}
}

func (cm *ConceptMastery) toData() *store.ConceptMasteryData {
	return &store.ConceptMasteryData{
		LearnerID:     cm.LearnerID,
		SkillArea:     cm.SkillArea,
		ConceptID:     cm.ConceptID,
		AttemptCount:  cm.AttemptCount,
		ScoreHistory:  append([]float64(nil), cm.ScoreHistory...),
		Status:        string(cm.Status),
		RetryCount:    cm.RetryCount,
		LastAttemptAt: cm.LastAttemptAt,
	}
}
