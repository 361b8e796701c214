// Package store implements the data access layer: transactional
// upserts and lookups over the catalog schema, with manual-override
// protection on every write path that touches a match_method column.
package store

import (
	"context"
	"database/sql"
	"time"
)

// dbConn is the subset of *sql.DB that every entity file uses. *sql.Tx
// satisfies it too, which lets WithTx hand entity methods a
// transaction-scoped Store without duplicating any upsert logic.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps the catalog database connection. All entity-specific
// operations are methods on Store, grouped one file per entity
// (song.go, recording.go, release.go, performer.go).
type Store struct {
	db *sql.DB
	tx dbConn
}

// New creates a Store over an already-opened, already-migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// conn returns whichever connection this Store should issue queries
// against: the enclosing transaction if WithTx produced this Store, the
// pooled *sql.DB otherwise.
func (s *Store) conn() dbConn {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// WithTx runs fn against a Store scoped to a single transaction, per the
// importer's "one transaction per recording" ordering guarantee. fn's
// error rolls the transaction back; a nil error commits it.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	scoped := &Store{db: s.db, tx: tx}
	if err := fn(scoped); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullableIntPtr(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string in either RFC3339 or the SQLite
// default datetime format.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

type scannable interface {
	Scan(...any) error
}
