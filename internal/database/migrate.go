package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate runs every pending migration against jazzref's schema and, when
// logger is non-nil, reports the version transition so a deploy's logs show
// whether any schema change actually ran.
func Migrate(db *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	before, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	after, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("reading migrated schema version: %w", err)
	}

	if logger != nil {
		logger.Info("database migrations applied", "from_version", before, "to_version", after)
	}
	return nil
}
