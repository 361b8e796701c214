package jazzstandards

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.DiscardHandler)
	cfg := httpclient.ProviderConfig{MinInterval: 0, MaxRetries: 1, BaseBackoff: time.Millisecond, Cooldown: time.Millisecond, Timeout: 5 * time.Second}
	client := httpclient.New(ProviderName, cfg, logger)
	return NewWithBaseURL(client, cache.NewMemoryStore(), srv.URL)
}

const songPageHTML = `<html><body>
<div class="entry-content"><p>A description of the tune.</p></div>
<dt>Composer:</dt><dd>Paul Desmond</dd>
<h2>Recommended Recordings</h2>
<ul>
  <li>Dave Brubeck - Time Out (1959)</li>
  <li>Miles Davis - Someday My Prince Will Come (1961)</li>
</ul>
</body></html>`

func TestSongPage_SectionHeaderHeuristic(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(songPageHTML)) //nolint:errcheck
	})

	page, err := adapter.SongPage(context.Background(), "https://example.com/take-five.htm")
	if err != nil {
		t.Fatalf("SongPage: %v", err)
	}
	if page.Composer != "Paul Desmond" {
		t.Fatalf("composer = %q", page.Composer)
	}
	if len(page.RecommendedRecordings) != 2 {
		t.Fatalf("got %d recommended recordings, want 2: %+v", len(page.RecommendedRecordings), page.RecommendedRecordings)
	}
	if page.RecommendedRecordings[0].Artist != "Dave Brubeck" || page.RecommendedRecordings[0].Year != 1959 {
		t.Fatalf("first recording = %+v", page.RecommendedRecordings[0])
	}
}

const songPageBoldOnlyHTML = `<html><body>
<div class="entry-content"><p>Another tune.</p></div>
<p><b>John Coltrane - Giant Steps (1960)</b></p>
</body></html>`

func TestSongPage_FallsBackToBoldScanWhenHeaderHeuristicIsEmpty(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(songPageBoldOnlyHTML)) //nolint:errcheck
	})

	page, err := adapter.SongPage(context.Background(), "https://example.com/giant-steps.htm")
	if err != nil {
		t.Fatalf("SongPage: %v", err)
	}
	if len(page.RecommendedRecordings) != 1 || page.RecommendedRecordings[0].Artist != "John Coltrane" {
		t.Fatalf("got %+v", page.RecommendedRecordings)
	}
}

func TestListAll_FetchesAllTenPages(t *testing.T) {
	calls := 0
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`<html><body><a class="song-title" href="/song.htm">A Song</a></body></html>`)) //nolint:errcheck
	})

	entries, err := adapter.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if calls != IndexPages {
		t.Fatalf("made %d requests, want %d", calls, IndexPages)
	}
	if len(entries) != IndexPages {
		t.Fatalf("got %d entries, want %d", len(entries), IndexPages)
	}
}
