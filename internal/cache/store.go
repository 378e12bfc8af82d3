// Package cache persists fingerprints of successfully completed tasks in a
// SQLite database, implementing the engine's cache oracle. The engine only
// looks fingerprints up; recording after a successful run is done by the
// CLI layer once the run has finished.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_cache (
	fingerprint TEXT PRIMARY KEY,
	task_name   TEXT NOT NULL,
	recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_task_cache_name ON task_cache(task_name);
`

// Store is a fingerprint → prior-success lookup backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db %q: %w", path, err)
	}

	// WAL and a busy timeout so a concurrent watch run doesn't error out.
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Lookup reports whether a successful result was recorded for fingerprint.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM task_cache WHERE fingerprint = ?", fingerprint).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying cache: %w", err)
	}
	return true, nil
}

// Record stores the fingerprint of a task that just succeeded, replacing any
// earlier fingerprint recorded for the same task name. A task whose inputs
// changed gets a new fingerprint; the stale one must not keep matching.
func (s *Store) Record(ctx context.Context, taskName, fingerprint string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_cache WHERE task_name = ?", taskName); err != nil {
		return fmt.Errorf("clearing prior fingerprint: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO task_cache (fingerprint, task_name) VALUES (?, ?)",
		fingerprint, taskName); err != nil {
		return fmt.Errorf("recording fingerprint: %w", err)
	}
	return tx.Commit()
}

// Forget drops any recorded fingerprint for the given task name.
func (s *Store) Forget(ctx context.Context, taskName string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM task_cache WHERE task_name = ?", taskName); err != nil {
		return fmt.Errorf("forgetting task %q: %w", taskName, err)
	}
	return nil
}

// Clear drops all recorded fingerprints.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM task_cache"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
