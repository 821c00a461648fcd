// Package history persists acceptance attempts in a local SQLite database
// so past verdicts survive across invocations.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Status values for recorded acceptance attempts.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Entry is one recorded acceptance attempt.
type Entry struct {
	ID             int64
	RunID          string
	NewRunID       string
	Status         string
	Error          string
	StepsCompleted int
	StartedAt      time.Time
	FinishedAt     time.Time
	Duration       time.Duration
}

// Store wraps the acceptance history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default history database path.
func DefaultPath() string {
	return filepath.Join(".rungate", "history.db")
}

// Open opens (creating if needed) the history database at path.
// ":memory:" is supported for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" && !strings.Contains(path, "mode=memory") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// In-memory SQLite gives each connection its own database; keep one
	// connection so the schema stays visible.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS acceptances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			new_run_id TEXT,
			status TEXT NOT NULL,
			error TEXT,
			steps_completed INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_acceptances_started ON acceptances(started_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts an acceptance attempt and sets e.ID.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO acceptances
			(run_id, new_run_id, status, error, steps_completed, started_at, finished_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.NewRunID, e.Status, e.Error, e.StepsCompleted,
		e.StartedAt.UTC(), e.FinishedAt.UTC(), e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record acceptance: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// List returns up to limit attempts, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	q := `SELECT id, run_id, new_run_id, status, error, steps_completed,
			started_at, finished_at, duration_ms
		  FROM acceptances ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list acceptances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.NewRunID, &e.Status, &e.Error,
			&e.StepsCompleted, &e.StartedAt, &e.FinishedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan acceptance: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
