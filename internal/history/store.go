// Package history persists completed run summaries so a watch session can
// expose recent builds over its status endpoint.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lowsky/happo.io/internal/errors"
	"github.com/lowsky/happo.io/internal/report"
)

// Entry is one recorded run.
type Entry struct {
	ID        int64     `json:"id"`
	BuildID   string    `json:"buildId"`
	Project   string    `json:"project"`
	SHA       string    `json:"sha"`
	Status    string    `json:"status"` // success | failed
	Targets   []string  `json:"targets"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store records run history in SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (or creates) the history database.
// Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.StorageError(err, "failed to open history database")
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError(err, "failed to initialize history schema")
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		project TEXT NOT NULL,
		sha TEXT NOT NULL,
		status TEXT NOT NULL,
		targets TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_sha ON runs(sha);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSuccess stores a completed run's report summary.
func (s *Store) RecordSuccess(ctx context.Context, buildID string, r *report.Report) error {
	return s.record(ctx, buildID, r.Project, r.SHA, "success", r.TargetNames())
}

// RecordFailure stores a failed run.
func (s *Store) RecordFailure(ctx context.Context, buildID, project, sha string) error {
	return s.record(ctx, buildID, project, sha, "failed", nil)
}

func (s *Store) record(ctx context.Context, buildID, project, sha, status string, targets []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return errors.StorageError(err, "failed to encode run targets")
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (build_id, project, sha, status, targets, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		buildID, project, sha, status, string(targetsJSON), time.Now().Unix(),
	)
	if err != nil {
		return errors.StorageError(err, "failed to insert run")
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, project, sha, status, targets, created_at FROM runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.StorageError(err, "failed to query runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var targetsJSON string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.BuildID, &e.Project, &e.SHA, &e.Status, &targetsJSON, &createdAt); err != nil {
			return nil, errors.StorageError(err, "failed to scan run row")
		}
		if err := json.Unmarshal([]byte(targetsJSON), &e.Targets); err != nil {
			return nil, errors.StorageError(err, "failed to decode run targets")
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
