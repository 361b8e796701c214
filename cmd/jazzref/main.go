// Command jazzref runs the jazz-discography ingestion and enrichment
// pipeline for a single seed: a song title or an existing song id.
//
// Usage:
//
//	jazzref --name "Take Five" [--limit 10] [--dry-run] [--debug] [--force-refresh]
//	jazzref --id <song-uuid> --match-streaming
//	jazzref repair {streaming-links|orphaned-recordings|performer-sort-names}
//	jazzref merge --keep <song-uuid> --into <song-uuid>
//	jazzref verify-references --id <song-uuid>
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

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/config"
	"github.com/dprodger/jazzref/internal/database"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/importer"
	"github.com/dprodger/jazzref/internal/logging"
	"github.com/dprodger/jazzref/internal/provider/coverartarchive"
	"github.com/dprodger/jazzref/internal/provider/itunes"
	"github.com/dprodger/jazzref/internal/provider/jazzstandards"
	"github.com/dprodger/jazzref/internal/provider/musicbrainz"
	"github.com/dprodger/jazzref/internal/provider/spotify"
	"github.com/dprodger/jazzref/internal/provider/wikiimages"
	"github.com/dprodger/jazzref/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "repair":
			return runRepair(args[1:])
		case "merge":
			return runMerge(args[1:])
		case "verify-references":
			return runVerifyReferences(args[1:])
		}
	}

	fs := flag.NewFlagSet("jazzref", flag.ContinueOnError)
	var (
		name           = fs.String("name", "", "seed song title")
		id             = fs.String("id", "", "seed song id (re-enriches an existing row)")
		limit          = fs.Int("limit", 0, "max recordings to import (0 = unbounded)")
		dryRun         = fs.Bool("dry-run", false, "perform reads and scoring but no writes")
		debug          = fs.Bool("debug", false, "enable debug logging")
		forceRefresh   = fs.Bool("force-refresh", false, "bypass cache reads for this run")
		matchStreaming = fs.Bool("match-streaming", false, "also run streaming-link matching for each release")
		configPath     = fs.String("config", os.Getenv("JAZZREF_CONFIG_PATH"), "path to config YAML")
	)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *name == "" && *id == "" {
		fmt.Fprintln(os.Stderr, "error: one of --name or --id is required")
		return 1
	}
	if *name != "" && *id != "" {
		fmt.Fprintln(os.Stderr, "error: --name and --id are mutually exclusive")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		return 1
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("opening database", "error", err)
		return 1
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db, logger); err != nil {
		logger.Error("running migrations", "error", err)
		return 1
	}

	imp, err := buildImporter(cfg, db, logger)
	if err != nil {
		logger.Error("building importer", "error", err)
		return 1
	}

	req := importer.EnrichRequest{
		SongID:         *id,
		SongTitle:      *name,
		Limit:          *limit,
		DryRun:         *dryRun,
		ForceRefresh:   *forceRefresh || cfg.Cache.ForceRefresh,
		MatchStreaming: *matchStreaming,
	}
	if req.Limit == 0 {
		req.Limit = cfg.Importer.DefaultLimit
	}

	result, err := imp.EnrichSong(ctx, req)
	if err != nil {
		logger.Error("enrichment aborted", "error", err)
		return 1
	}

	logger.Info("enrichment finished",
		"song", result.Song.Title,
		"success", result.Success,
		"recordings_found", result.Stats.RecordingsFound,
		"recordings_skipped", result.Stats.RecordingsSkipped,
		"releases_imported", result.Stats.ReleasesImported,
		"releases_updated", result.Stats.ReleasesUpdated,
		"performers_linked", result.Stats.PerformersLinked,
		"errors", result.Stats.Errors,
	)
	for _, e := range result.Errors {
		logger.Warn("recording error", "error", e)
	}

	if req.MatchStreaming && result.Success {
		if err := matchStreamingForSong(ctx, imp, db, result, logger); err != nil {
			logger.Error("streaming-link matching failed", "error", err)
			return 1
		}
	}

	if !result.Success {
		return 1
	}
	return 0
}

// buildImporter wires the cache, HTTP clients, provider adapters and
// store into one Importer, in dependency order: leaf infrastructure
// (cache, clients) first, adapters next, the store layer, then the
// importer that ties them together. No two concurrent imports may
// share a provider client instance; this importer, and everything it
// wires here, belongs to this one process.
func buildImporter(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*importer.Importer, error) {
	cacheStore := cache.NewFSStore(cfg.Cache.Dir, logger)

	providerCfgs := httpclient.DefaultProviderConfigs()

	newClient := func(provider string) *httpclient.Client {
		return httpclient.New(provider, providerCfgs[provider], logger)
	}

	encyclopedia := musicbrainz.New(newClient("musicbrainz"), cacheStore)
	coverArt := coverartarchive.New(newClient("coverartarchive"), cacheStore)
	editorial := jazzstandards.New(newClient("jazzstandards"), cacheStore)
	consumerA := itunes.New(newClient("itunes"), cacheStore)
	images := wikiimages.New(newClient("wikiimages"), cacheStore)

	var consumerB *spotify.Adapter
	if cfg.Providers.SpotifyClientID != "" && cfg.Providers.SpotifyClientSecret != "" {
		consumerB = spotify.New(context.Background(), newClient("spotify"), cacheStore,
			cfg.Providers.SpotifyClientID, cfg.Providers.SpotifyClientSecret)
	} else {
		logger.Warn("consumer service B credentials not set, skipping streaming-link matching against it")
	}

	st := store.New(db)

	return importer.New(st, encyclopedia, coverArt, editorial, consumerA, consumerB, images, logger), nil
}

// matchStreamingForSong runs the streaming-link matching pass over every
// release touched by this seed, respecting the manual-override rule at
// the store layer.
func matchStreamingForSong(ctx context.Context, imp *importer.Importer, db *sql.DB, result *importer.EnrichResult, logger *slog.Logger) error {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT rr.release_id
		FROM recording_releases rr
		JOIN recordings r ON r.id = rr.recording_id
		WHERE r.song_id = ?
	`, result.Song.ID)
	if err != nil {
		return fmt.Errorf("listing releases for song: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var releaseIDs []string
	for rows.Next() {
		var releaseID string
		if err := rows.Scan(&releaseID); err != nil {
			return err
		}
		releaseIDs = append(releaseIDs, releaseID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, releaseID := range releaseIDs {
		if err := imp.MatchStreamingLinks(ctx, releaseID); err != nil {
			logger.Warn("streaming-link match failed for release, continuing", "release_id", releaseID, "error", err)
		}
	}
	return nil
}
