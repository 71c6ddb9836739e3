// Package history persists an append-only record of mutating engine
// operations in a local SQLite database. It is diagnostic only: the
// journal remains the authoritative install record, and a history write
// failure never fails the operation it describes.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpStatus is the terminal status of a recorded operation.
type OpStatus string

const (
	StatusRunning   OpStatus = "running"
	StatusCompleted OpStatus = "completed"
	StatusFailed    OpStatus = "failed"
)

// Operation is one row of the history log.
type Operation struct {
	ID          string
	Op          string
	Package     string
	Version     string
	Status      OpStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Store is the history persistence layer.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path and runs
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history db: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Begin records the start of an operation and returns its id.
func (s *Store) Begin(ctx context.Context, op, pkg, version string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (id, op, package, version, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, op, pkg, version, StatusRunning, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("recording operation start: %w", err)
	}
	return id, nil
}

// Finish records the terminal status of an operation. A nil opErr marks
// completion; anything else marks failure with the error text.
func (s *Store) Finish(ctx context.Context, id string, opErr error) error {
	status := StatusCompleted
	msg := ""
	if opErr != nil {
		status = StatusFailed
		msg = opErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE operations SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		status, msg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("recording operation end: %w", err)
	}
	return nil
}

// List returns the most recent operations, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, op, package, version, status, error, started_at, completed_at
		 FROM operations ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Operation
	for rows.Next() {
		var o Operation
		var errText sql.NullString
		var completed sql.NullTime
		if err := rows.Scan(&o.ID, &o.Op, &o.Package, &o.Version, &o.Status,
			&errText, &o.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		o.Error = errText.String
		if completed.Valid {
			t := completed.Time
			o.CompletedAt = &t
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
