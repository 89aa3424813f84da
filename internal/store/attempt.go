package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AttemptRecord is one completed activity. Records are append-only: created
// once per completed activity and never mutated.
type AttemptRecord struct {
	ID            int64
	LearnerID     string
	ActivityID    string
	SkillArea     string
	ConceptID     string // empty when the activity is not concept-scoped
	Tier          string // difficulty tier at attempt time; may be empty
	Score         float64
	MaxScore      float64
	TimeSpentSecs int
	CompletedAt   time.Time
}

// AccuracyRatio returns score/max_score, or 0 when max_score is 0.
func (a *AttemptRecord) AccuracyRatio() float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return a.Score / a.MaxScore
}

// AttemptRepo provides append and read access to the attempt history.
type AttemptRepo interface {
	// Append stores a new attempt record. The record's ID is ignored.
	Append(ctx context.Context, rec *AttemptRecord) error

	// ListSince returns a learner's attempts completed at or after since,
	// ordered oldest first.
	ListSince(ctx context.Context, learnerID string, since time.Time) ([]AttemptRecord, error)
}

type attemptRepo struct {
	db *sql.DB
}

func (r *attemptRepo) Append(ctx context.Context, rec *AttemptRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attempts
			(learner_id, activity_id, skill_area, concept_id, tier, score, max_score, time_spent_s, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LearnerID, rec.ActivityID, rec.SkillArea, rec.ConceptID, rec.Tier,
		rec.Score, rec.MaxScore, rec.TimeSpentSecs, rec.CompletedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) ListSince(ctx context.Context, learnerID string, since time.Time) ([]AttemptRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, learner_id, activity_id, skill_area, concept_id, tier, score, max_score, time_spent_s, completed_at
		 FROM attempts
		 WHERE learner_id = ? AND completed_at >= ?
		 ORDER BY completed_at ASC, id ASC`,
		learnerID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var rec AttemptRecord
		var completed string
		if err := rows.Scan(&rec.ID, &rec.LearnerID, &rec.ActivityID, &rec.SkillArea,
			&rec.ConceptID, &rec.Tier, &rec.Score, &rec.MaxScore, &rec.TimeSpentSecs, &completed); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		t, err := time.Parse(time.RFC3339, completed)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at %q: %w", completed, err)
		}
		rec.CompletedAt = t
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return records, nil
}
