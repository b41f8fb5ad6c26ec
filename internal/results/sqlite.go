package results

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/needlebench/needlebench/pkg/models"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore keeps trial results in a single SQLite database. The
// primary key is the full trial identity, so concurrent writers target
// disjoint rows and reruns upsert rather than duplicate.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trial_results (
			model_name            TEXT    NOT NULL,
			context_length        INTEGER NOT NULL,
			depth_bp              INTEGER NOT NULL,
			version               INTEGER NOT NULL,
			depth_percent         REAL    NOT NULL,
			evaluator             TEXT,
			needle                TEXT,
			model_response        TEXT,
			score                 INTEGER NOT NULL,
			error                 TEXT,
			test_duration_seconds REAL,
			test_timestamp_utc    TEXT,
			PRIMARY KEY (model_name, context_length, depth_bp, version)
		)
	`)
	if err != nil {
		return fmt.Errorf("create trial_results table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trial_contexts (
			model_name     TEXT    NOT NULL,
			context_length INTEGER NOT NULL,
			depth_bp       INTEGER NOT NULL,
			version        INTEGER NOT NULL,
			context        TEXT    NOT NULL,
			PRIMARY KEY (model_name, context_length, depth_bp, version)
		)
	`)
	if err != nil {
		return fmt.Errorf("create trial_contexts table: %w", err)
	}
	return nil
}

// Put upserts the result record (last-write-wins on the trial identity).
func (s *SQLiteStore) Put(ctx context.Context, result *models.TrialResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trial_results (
			model_name, context_length, depth_bp, version, depth_percent,
			evaluator, needle, model_response, score, error,
			test_duration_seconds, test_timestamp_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.Model, result.ContextLength, result.Point().DepthBasisPoints(), result.Version,
		result.DepthPercent, result.Evaluator, result.Needle, result.ModelResponse,
		result.Score, result.Error, result.TestDurationSeconds, result.TestTimestampUTC,
	)
	if err != nil {
		return fmt.Errorf("insert trial result: %w", err)
	}
	return nil
}

// PutContext upserts the raw assembled context for the trial.
func (s *SQLiteStore) PutContext(ctx context.Context, result *models.TrialResult, contextText string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trial_contexts (
			model_name, context_length, depth_bp, version, context
		) VALUES (?, ?, ?, ?, ?)`,
		result.Model, result.ContextLength, result.Point().DepthBasisPoints(), result.Version, contextText,
	)
	if err != nil {
		return fmt.Errorf("insert trial context: %w", err)
	}
	return nil
}

// Exists reports whether a result row for this trial identity is present.
func (s *SQLiteStore) Exists(ctx context.Context, model string, point models.TestPoint, version int) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM trial_results
		WHERE model_name = ? AND context_length = ? AND depth_bp = ? AND version = ?`,
		model, point.ContextLength, point.DepthBasisPoints(), version,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query trial result: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
