// Package store provides the persistence collaborator: append-only attempt
// history plus mutable mastery and path state, backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates a Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema if needed.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Debug("store opened", zap.String("dsn", dsn))
	return &Store{db: db, log: log}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AttemptRepo returns an AttemptRepo backed by this store.
func (s *Store) AttemptRepo() AttemptRepo {
	return &attemptRepo{db: s.db}
}

// MasteryRepo returns a MasteryRepo backed by this store.
func (s *Store) MasteryRepo() MasteryRepo {
	return &masteryRepo{db: s.db}
}

// PathRepo returns a PathRepo backed by this store.
func (s *Store) PathRepo() PathRepo {
	return &pathRepo{db: s.db}
}

// DeleteLearner removes every row belonging to a learner. Used by the
// reset command; decision components never delete state.
func (s *Store) DeleteLearner(ctx context.Context, learnerID string) error {
	for _, table := range []string{"attempts", "concept_mastery", "learning_paths"} {
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE learner_id = ?", table), learnerID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	s.log.Info("learner data deleted", zap.String("learner_id", learnerID))
	return nil
}

// applyPragmas configures SQLite for reliable concurrent access.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// migrate creates the schema. Statements are idempotent so Open can run
// them unconditionally.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			learner_id    TEXT NOT NULL,
			activity_id   TEXT NOT NULL,
			skill_area    TEXT NOT NULL,
			concept_id    TEXT NOT NULL DEFAULT '',
			tier          TEXT NOT NULL DEFAULT '',
			score         REAL NOT NULL,
			max_score     REAL NOT NULL,
			time_spent_s  INTEGER NOT NULL,
			completed_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_learner_time
			ON attempts (learner_id, completed_at)`,
		`CREATE TABLE IF NOT EXISTS concept_mastery (
			learner_id     TEXT NOT NULL,
			skill_area     TEXT NOT NULL,
			concept_id     TEXT NOT NULL,
			attempt_count  INTEGER NOT NULL,
			score_history  TEXT NOT NULL,
			status         TEXT NOT NULL,
			retry_count    INTEGER NOT NULL,
			last_attempt   TEXT NOT NULL,
			PRIMARY KEY (learner_id, skill_area, concept_id)
		)`,
		`CREATE TABLE IF NOT EXISTS learning_paths (
			learner_id  TEXT NOT NULL,
			path_id     TEXT NOT NULL,
			state       TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			PRIMARY KEY (learner_id, path_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. ADEPT_DB environment variable
// 2. $XDG_DATA_HOME/adept/adept.db
// 3. ~/.local/share/adept/adept.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ADEPT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "adept", "adept.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
