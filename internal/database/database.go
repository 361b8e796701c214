// Package database opens jazzref's SQLite store and runs its goose
// migrations (songs, recordings, releases, performers and their join
// tables).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens jazzref's SQLite database at dbPath with WAL mode enabled. It
// creates the parent directory if it does not exist.
func Open(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// The importer writes one recording per transaction and never needs
	// more than one in-flight write; a single connection
	// avoids SQLITE_BUSY churn from writers racing each other for the
	// file lock that SQLite would serialize anyway.
	db.SetMaxOpenConns(1)

	return db, nil
}
