package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dprodger/jazzref/internal/config"
	"github.com/dprodger/jazzref/internal/database"
	"github.com/dprodger/jazzref/internal/importer"
	"github.com/dprodger/jazzref/internal/logging"
	"github.com/dprodger/jazzref/internal/store"
)

// runRepair dispatches the maintenance operations supplementing the
// enrichment pipeline: re-validating streaming links, relinking
// orphaned recordings, and backfilling performer sort names. These are
// natural siblings of the enrich command rather than a separate binary,
// since they share its config, database and provider wiring wholesale.
//
// Usage:
//
//	jazzref repair streaming-links
//	jazzref repair orphaned-recordings
//	jazzref repair performer-sort-names
func runRepair(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: usage: jazzref repair <streaming-links|orphaned-recordings|performer-sort-names>")
		return 1
	}

	fs := flag.NewFlagSet("jazzref repair", flag.ContinueOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	configPath := fs.String("config", os.Getenv("JAZZREF_CONFIG_PATH"), "path to config YAML")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	cfg, db, logger, cleanup, ok := setupRuntime(*configPath, *debug)
	if !ok {
		return 1
	}
	defer cleanup()

	imp, err := buildImporter(cfg, db, logger)
	if err != nil {
		logger.Error("building importer", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stats *importer.RepairStats
	switch args[0] {
	case "streaming-links":
		stats, err = imp.RepairStreamingLinks(ctx)
	case "orphaned-recordings":
		stats, err = imp.RepairOrphanedRecordings(ctx)
	case "performer-sort-names":
		stats, err = imp.BackfillPerformerSortNames(ctx)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown repair operation %q\n", args[0])
		return 1
	}
	if err != nil {
		logger.Error("repair operation failed", "operation", args[0], "error", err)
		return 1
	}

	logger.Info("repair finished", "operation", args[0], "examined", stats.Examined, "updated", stats.Updated, "errors", len(stats.Errors))
	for _, e := range stats.Errors {
		logger.Warn("repair row failed", "operation", args[0], "error", e)
	}
	return 0
}

// runMerge folds one song into another via store.MergeSongs.
//
// Usage:
//
//	jazzref merge --keep <song-id> --into <song-id-to-remove>
func runMerge(args []string) int {
	fs := flag.NewFlagSet("jazzref merge", flag.ContinueOnError)
	keep := fs.String("keep", "", "id of the song to keep")
	extra := fs.String("into", "", "id of the song to merge into --keep and delete")
	debug := fs.Bool("debug", false, "enable debug logging")
	configPath := fs.String("config", os.Getenv("JAZZREF_CONFIG_PATH"), "path to config YAML")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *keep == "" || *extra == "" {
		fmt.Fprintln(os.Stderr, "error: --keep and --into are both required")
		return 1
	}

	_, db, logger, cleanup, ok := setupRuntime(*configPath, *debug)
	if !ok {
		return 1
	}
	defer cleanup()

	st := store.New(db)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.MergeSongs(ctx, *keep, *extra); err != nil {
		logger.Error("merge failed", "keep", *keep, "into", *extra, "error", err)
		return 1
	}
	logger.Info("merge finished", "keep", *keep, "into", *extra)
	return 0
}

// runVerifyReferences scores every entry in a song's external_references
// map against the reference verifier and reports each verdict.
//
// Usage:
//
//	jazzref verify-references --id <song-id>
func runVerifyReferences(args []string) int {
	fs := flag.NewFlagSet("jazzref verify-references", flag.ContinueOnError)
	id := fs.String("id", "", "song id whose external references should be verified")
	debug := fs.Bool("debug", false, "enable debug logging")
	configPath := fs.String("config", os.Getenv("JAZZREF_CONFIG_PATH"), "path to config YAML")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "error: --id is required")
		return 1
	}

	cfg, db, logger, cleanup, ok := setupRuntime(*configPath, *debug)
	if !ok {
		return 1
	}
	defer cleanup()

	imp, err := buildImporter(cfg, db, logger)
	if err != nil {
		logger.Error("building importer", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := imp.VerifyExternalReferences(ctx, *id)
	if err != nil {
		logger.Error("verifying references failed", "error", err)
		return 1
	}

	invalid := 0
	for name, result := range results {
		logger.Info("reference verdict", "reference", name, "valid", result.Valid, "confidence", result.Confidence, "score", result.Score)
		if !result.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		return 1
	}
	return 0
}

// setupRuntime loads config, builds a logger, and opens+migrates the
// database — the setup shared by every subcommand. The returned cleanup
// closes the log manager and the database; callers defer it.
func setupRuntime(configPath string, debug bool) (cfg *config.Config, db *sql.DB, logger *slog.Logger, cleanup func(), ok bool) {
	loaded, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		return nil, nil, nil, func() {}, false
	}
	if debug {
		loaded.Logging.Level = "debug"
	}

	logManager, l := logging.NewManager(logging.Config{
		Level:  loaded.Logging.Level,
		Format: loaded.Logging.Format,
	})
	slog.SetDefault(l)

	conn, err := database.Open(loaded.Database.Path)
	if err != nil {
		l.Error("opening database", "error", err)
		logManager.Close() //nolint:errcheck
		return nil, nil, nil, func() {}, false
	}
	if err := database.Migrate(conn, l); err != nil {
		l.Error("running migrations", "error", err)
		conn.Close() //nolint:errcheck
		logManager.Close() //nolint:errcheck
		return nil, nil, nil, func() {}, false
	}

	cleanup = func() {
		conn.Close()       //nolint:errcheck
		logManager.Close() //nolint:errcheck
	}
	return loaded, conn, l, cleanup, true
}
