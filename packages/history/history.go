// Package history persists harness runs to SQLite so soak results can be
// compared across invocations.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/paywire/packages/harness"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TIMESTAMP NOT NULL,
	backend TEXT NOT NULL,
	concurrency INTEGER NOT NULL,
	requests INTEGER NOT NULL,
	unique_responses INTEGER NOT NULL,
	errors INTEGER NOT NULL,
	p99_us INTEGER NOT NULL,
	passed INTEGER NOT NULL
)`

// Store records harness runs.
type Store struct {
	db *sql.DB
}

// Run is one persisted harness result.
type Run struct {
	ID          int64
	StartedAt   time.Time
	Backend     string
	Concurrency int
	Requests    int
	Unique      int
	Errors      int
	P99         time.Duration
	Passed      bool
}

// Open opens (creating if needed) the run database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores one harness result.
func (s *Store) Record(startedAt time.Time, backend string, concurrency int, res *harness.Result) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (started_at, backend, concurrency, requests, unique_responses, errors, p99_us, passed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		startedAt, backend, concurrency, res.Requests, res.Unique, res.Errors,
		res.P99.Microseconds(), res.Passed,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns the most recent n runs, newest first.
func (s *Store) Recent(n int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, backend, concurrency, requests, unique_responses, errors, p99_us, passed
		 FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var p99us int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Backend, &r.Concurrency,
			&r.Requests, &r.Unique, &r.Errors, &p99us, &r.Passed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.P99 = time.Duration(p99us) * time.Microsecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
