// Package storage persists subjects, items and their progress in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

const driverName = "sqlite"

// Store is a handle on one SQLite database holding the three collections.
type Store struct {
	conn   *sql.DB
	path   string
	now    func() time.Time
	logger *slog.Logger

	closeOnce sync.Once
	release   func()
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for created and studied timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens or creates the database at path and ensures the schema is up to date.
// Opening an existing database again is safe.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	conn, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to connect to database: %w", ErrStorageUnavailable, err)
	}

	// One connection keeps the pragmas in effect and serializes writers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to apply pragmas: %w", ErrStorageUnavailable, err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		conn:   conn,
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		if s.release != nil {
			s.release()
		}
	})
	return err
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

func applyPragmas(ctx context.Context, conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
