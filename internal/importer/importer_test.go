package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/database"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/provider/jazzstandards"
	"github.com/dprodger/jazzref/internal/provider/musicbrainz"
	"github.com/dprodger/jazzref/internal/store"
)

// takeFiveMusicBrainz fakes just enough of the encyclopedia's work search,
// work-recordings, and recording-detail endpoints to carry "Take Five"
// through the pipeline: one work, one recording, one release, and the
// quartet's artist-rels.
func takeFiveMusicBrainz(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/work":
			fmt.Fprint(w, `{"works":[{"id":"work-1","title":"Take Five","score":100}]}`)
		case r.URL.Path == "/work/work-1":
			fmt.Fprint(w, `{"id":"work-1","title":"Take Five","relations":[{"recording":{"id":"rec-1","title":"Take Five"}}]}`)
		case r.URL.Path == "/recording/rec-1":
			fmt.Fprint(w, `{
				"id":"rec-1","title":"Take Five",
				"artist-credit":[{"name":"Dave Brubeck Quartet"}],
				"releases":[{"id":"rel-1","title":"Time Out","date":"1959-12-14","media":[{"position":1,"tracks":[{"position":3,"title":"Take Five","recording":{"id":"rec-1"}}]}]}],
				"relations":[
					{"type":"instrument","attributes":["piano"],"artist":{"id":"a1","name":"Dave Brubeck"}},
					{"type":"instrument","attributes":["alto saxophone"],"artist":{"id":"a2","name":"Paul Desmond"}}
				]
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// takeFiveJazzstandards fakes the editorial index (10 paginated pages,
// only the first carrying a hit) and the song page scrape so resolveSong's
// stub-creation branch can populate Composer from it.
func takeFiveJazzstandards(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/songs-1.htm":
			fmt.Fprintf(w, `<html><body><a class="song-title" href="%s/songs/take-five.htm">Take Five</a></body></html>`, srv.URL)
		case "/songs/take-five.htm":
			fmt.Fprint(w, `<html><body><div class="entry-content"><p>A cool, unhurried 5/4 standard.</p></div><dt>Composer:</dt><dd>Paul Desmond</dd></body></html>`)
		default:
			fmt.Fprint(w, `<html><body></body></html>`)
		}
	}))
	return srv
}

func newTestImporterStore(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "jazzref-importer-test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db, nil); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return store.New(db)
}

func testHTTPClient(providerName string) *httpclient.Client {
	cfg := httpclient.ProviderConfig{MinInterval: 0, MaxRetries: 1, BaseBackoff: time.Millisecond, Cooldown: time.Millisecond, Timeout: 5 * time.Second}
	return httpclient.New(providerName, cfg, slog.New(slog.DiscardHandler))
}

func TestEnrichSong_TakeFiveEndToEnd(t *testing.T) {
	mb := takeFiveMusicBrainz(t)
	defer mb.Close()
	js := takeFiveJazzstandards(t)
	defer js.Close()

	encyclopedia := musicbrainz.NewWithBaseURL(testHTTPClient("musicbrainz"), cache.NewMemoryStore(), mb.URL)
	editorial := jazzstandards.NewWithBaseURL(testHTTPClient("jazzstandards"), cache.NewMemoryStore(), js.URL)

	st := newTestImporterStore(t)
	imp := New(st, encyclopedia, nil, editorial, nil, nil, nil, slog.New(slog.DiscardHandler))

	ctx := context.Background()
	result, err := imp.EnrichSong(ctx, EnrichRequest{SongTitle: "Take Five"})
	if err != nil {
		t.Fatalf("EnrichSong: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if result.Song.Composer != "Paul Desmond" {
		t.Errorf("song.Composer = %q, want %q (editorial stub)", result.Song.Composer, "Paul Desmond")
	}
	if result.Stats.ReleasesImported != 1 {
		t.Errorf("first run ReleasesImported = %d, want 1", result.Stats.ReleasesImported)
	}
	if result.Stats.PerformersLinked != 2 {
		t.Errorf("first run PerformersLinked = %d, want 2", result.Stats.PerformersLinked)
	}

	// Re-running the same seed must resolve the already-created song
	// (exact title match) rather than creating a second one, and must not
	// re-count the release as newly imported (the round-trip law).
	second, err := imp.EnrichSong(ctx, EnrichRequest{SongTitle: "Take Five"})
	if err != nil {
		t.Fatalf("second EnrichSong: %v", err)
	}
	if !second.Success {
		t.Fatalf("expected second run to succeed, got errors: %v", second.Errors)
	}
	if second.Song.ID != result.Song.ID {
		t.Fatalf("second run resolved a different song: %q vs %q", second.Song.ID, result.Song.ID)
	}
	if second.Stats.ReleasesImported != 0 {
		t.Errorf("second run ReleasesImported = %d, want 0 (idempotent re-import)", second.Stats.ReleasesImported)
	}
	if second.Stats.ReleasesUpdated != 1 {
		t.Errorf("second run ReleasesUpdated = %d, want 1", second.Stats.ReleasesUpdated)
	}

	recordings, err := st.ListRecordingsBySong(ctx, result.Song.ID)
	if err != nil {
		t.Fatalf("ListRecordingsBySong: %v", err)
	}
	if len(recordings) != 1 {
		t.Fatalf("recordings after two runs = %d, want 1 (no duplicate row)", len(recordings))
	}
}

func TestEnrichSong_DryRunPerformsNoWrites(t *testing.T) {
	mb := takeFiveMusicBrainz(t)
	defer mb.Close()
	js := takeFiveJazzstandards(t)
	defer js.Close()

	encyclopedia := musicbrainz.NewWithBaseURL(testHTTPClient("musicbrainz"), cache.NewMemoryStore(), mb.URL)
	editorial := jazzstandards.NewWithBaseURL(testHTTPClient("jazzstandards"), cache.NewMemoryStore(), js.URL)

	st := newTestImporterStore(t)
	imp := New(st, encyclopedia, nil, editorial, nil, nil, nil, slog.New(slog.DiscardHandler))

	ctx := context.Background()
	result, err := imp.EnrichSong(ctx, EnrichRequest{SongTitle: "Take Five", DryRun: true})
	if err != nil {
		t.Fatalf("EnrichSong: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if result.Stats.ReleasesImported != 1 {
		t.Errorf("ReleasesImported = %d, want 1 (planRecording should still report as-if stats)", result.Stats.ReleasesImported)
	}

	got, err := st.GetSong(ctx, result.Song.ID)
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got != nil {
		t.Errorf("dry run wrote a song row: %+v", got)
	}
}

// TestEnrichSong_FallsBackToReleaseDetailForArtistRels covers the case
// where a recording's own payload carries no artist-rels: the release's
// own detail (inc=artist-rels) supplies the performers instead.
func TestEnrichSong_FallsBackToReleaseDetailForArtistRels(t *testing.T) {
	mb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/work":
			fmt.Fprint(w, `{"works":[{"id":"work-1","title":"Naima","score":100}]}`)
		case r.URL.Path == "/work/work-1":
			fmt.Fprint(w, `{"id":"work-1","title":"Naima","relations":[{"recording":{"id":"rec-1","title":"Naima"}}]}`)
		case r.URL.Path == "/recording/rec-1":
			fmt.Fprint(w, `{
				"id":"rec-1","title":"Naima",
				"artist-credit":[{"name":"John Coltrane Quartet"}],
				"releases":[{"id":"rel-1","title":"Giant Steps","date":"1960-01-27"}],
				"relations":[]
			}`)
		case r.URL.Path == "/release/rel-1":
			fmt.Fprint(w, `{
				"id":"rel-1","title":"Giant Steps","date":"1960-01-27",
				"relations":[{"type":"instrument","attributes":["tenor saxophone"],"artist":{"id":"a1","name":"John Coltrane"}}]
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mb.Close()

	encyclopedia := musicbrainz.NewWithBaseURL(testHTTPClient("musicbrainz"), cache.NewMemoryStore(), mb.URL)
	st := newTestImporterStore(t)
	imp := New(st, encyclopedia, nil, nil, nil, nil, nil, slog.New(slog.DiscardHandler))

	result, err := imp.EnrichSong(context.Background(), EnrichRequest{SongTitle: "Naima"})
	if err != nil {
		t.Fatalf("EnrichSong: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if result.Stats.PerformersLinked != 1 {
		t.Fatalf("PerformersLinked = %d, want 1 (release-detail fallback)", result.Stats.PerformersLinked)
	}
}
