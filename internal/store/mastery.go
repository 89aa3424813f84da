package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ConceptMasteryData is the persisted form of a concept mastery state,
// keyed by learner, skill area, and concept. Rows are never deleted by the
// decision logic: the history of struggle informs later remediation.
type ConceptMasteryData struct {
	LearnerID     string
	SkillArea     string
	ConceptID     string
	AttemptCount  int
	ScoreHistory  []float64 // bounded most-recent score ratios, oldest first
	Status        string
	RetryCount    int
	LastAttemptAt time.Time
}

// MasteryRepo persists per-concept mastery state.
type MasteryRepo interface {
	// Load returns the state for one concept, or ErrNotFound.
	Load(ctx context.Context, learnerID, skillArea, conceptID string) (*ConceptMasteryData, error)

	// LoadAll returns every mastery state for a learner.
	LoadAll(ctx context.Context, learnerID string) ([]ConceptMasteryData, error)

	// Save creates or replaces the state for one concept.
	Save(ctx context.Context, data *ConceptMasteryData) error
}

type masteryRepo struct {
	db *sql.DB
}

func (r *masteryRepo) Load(ctx context.Context, learnerID, skillArea, conceptID string) (*ConceptMasteryData, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT attempt_count, score_history, status, retry_count, last_attempt
		 FROM concept_mastery
		 WHERE learner_id = ? AND skill_area = ? AND concept_id = ?`,
		learnerID, skillArea, conceptID)

	data := &ConceptMasteryData{
		LearnerID: learnerID,
		SkillArea: skillArea,
		ConceptID: conceptID,
	}
	var history, lastAttempt string
	err := row.Scan(&data.AttemptCount, &history, &data.Status, &data.RetryCount, &lastAttempt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("concept mastery %s/%s/%s: %w", learnerID, skillArea, conceptID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load concept mastery: %w", err)
	}
	if err := decodeMasteryRow(data, history, lastAttempt); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *masteryRepo) LoadAll(ctx context.Context, learnerID string) ([]ConceptMasteryData, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT skill_area, concept_id, attempt_count, score_history, status, retry_count, last_attempt
		 FROM concept_mastery
		 WHERE learner_id = ?
		 ORDER BY skill_area, concept_id`,
		learnerID)
	if err != nil {
		return nil, fmt.Errorf("query concept mastery: %w", err)
	}
	defer rows.Close()

	var result []ConceptMasteryData
	for rows.Next() {
		data := ConceptMasteryData{LearnerID: learnerID}
		var history, lastAttempt string
		if err := rows.Scan(&data.SkillArea, &data.ConceptID, &data.AttemptCount,
			&history, &data.Status, &data.RetryCount, &lastAttempt); err != nil {
			return nil, fmt.Errorf("scan concept mastery: %w", err)
		}
		if err := decodeMasteryRow(&data, history, lastAttempt); err != nil {
			return nil, err
		}
		result = append(result, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concept mastery: %w", err)
	}
	return result, nil
}

func (r *masteryRepo) Save(ctx context.Context, data *ConceptMasteryData) error {
	history, err := json.Marshal(data.ScoreHistory)
	if err != nil {
		return fmt.Errorf("marshal score history: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO concept_mastery
			(learner_id, skill_area, concept_id, attempt_count, score_history, status, retry_count, last_attempt)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (learner_id, skill_area, concept_id) DO UPDATE SET
			attempt_count = excluded.attempt_count,
			score_history = excluded.score_history,
			status = excluded.status,
			retry_count = excluded.retry_count,
			last_attempt = excluded.last_attempt`,
		data.LearnerID, data.SkillArea, data.ConceptID, data.AttemptCount,
		string(history), data.Status, data.RetryCount,
		data.LastAttemptAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save concept mastery: %w", err)
	}
	return nil
}

func decodeMasteryRow(data *ConceptMasteryData, history, lastAttempt string) error {
	if err := json.Unmarshal([]byte(history), &data.ScoreHistory); err != nil {
		return fmt.Errorf("unmarshal score history: %w", err)
	}
	t, err := time.Parse(time.RFC3339, lastAttempt)
	if err != nil {
		return fmt.Errorf("parse last_attempt %q: %w", lastAttempt, err)
	}
	data.LastAttemptAt = t
	return nil
}
