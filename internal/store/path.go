package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PathStateData is the persisted walk position through a learning path.
// The module and concept ordering itself lives in the curriculum definition;
// only the learner's position and completion flag are stored here.
type PathStateData struct {
	LearnerID string `json:"-"`
	PathID    string `json:"-"`

	// ModuleIndex is the index of the current skill module.
	ModuleIndex int `json:"module_index"`

	// ConceptIndex holds the current concept index per module, parallel to
	// the curriculum's module list.
	ConceptIndex []int `json:"concept_index"`

	// Completed is set when every module's index has moved past its
	// concept list.
	Completed bool `json:"completed"`

	UpdatedAt time.Time `json:"-"`
}

// PathRepo persists learning path walk state.
type PathRepo interface {
	// Load returns the state for one learner and path, or ErrNotFound.
	Load(ctx context.Context, learnerID, pathID string) (*PathStateData, error)

	// Save creates or replaces the state.
	Save(ctx context.Context, data *PathStateData) error
}

type pathRepo struct {
	db *sql.DB
}

func (r *pathRepo) Load(ctx context.Context, learnerID, pathID string) (*PathStateData, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM learning_paths WHERE learner_id = ? AND path_id = ?`,
		learnerID, pathID)

	var state, updated string
	err := row.Scan(&state, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("learning path %s/%s: %w", learnerID, pathID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load learning path: %w", err)
	}

	data := &PathStateData{LearnerID: learnerID, PathID: pathID}
	if err := json.Unmarshal([]byte(state), data); err != nil {
		return nil, fmt.Errorf("unmarshal path state: %w", err)
	}
	t, err := time.Parse(time.RFC3339, updated)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	data.UpdatedAt = t
	return data, nil
}

func (r *pathRepo) Save(ctx context.Context, data *PathStateData) error {
	state, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal path state: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO learning_paths (learner_id, path_id, state, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (learner_id, path_id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`,
		data.LearnerID, data.PathID, string(state), data.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save learning path: %w", err)
	}
	return nil
}
