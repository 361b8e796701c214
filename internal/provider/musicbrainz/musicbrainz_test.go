package musicbrainz

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

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *cache.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.DiscardHandler)
	cfg := httpclient.ProviderConfig{MinInterval: 0, MaxRetries: 1, BaseBackoff: time.Millisecond, Cooldown: time.Millisecond, Timeout: 5 * time.Second}
	client := httpclient.New(ProviderName, cfg, logger)
	store := cache.NewMemoryStore()
	return NewWithBaseURL(client, store, srv.URL), store
}

func TestSearchWork_ReturnsHighestScoringHit(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"works":[{"id":"w1","title":"Take Five","score":80},{"id":"w2","title":"Take Five","score":100}]}`)) //nolint:errcheck
	})

	work, err := adapter.SearchWork(context.Background(), "Take Five")
	if err != nil {
		t.Fatalf("SearchWork: %v", err)
	}
	if work == nil || work.ExternalWorkID != "w2" {
		t.Fatalf("got %+v, want the score-100 hit", work)
	}
}

func TestSearchWork_EmptyResultReturnsNilNotError(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"works":[]}`)) //nolint:errcheck
	})

	work, err := adapter.SearchWork(context.Background(), "Nonexistent Song XYZ")
	if err != nil {
		t.Fatalf("SearchWork: %v", err)
	}
	if work != nil {
		t.Fatalf("got %+v, want nil", work)
	}
}

func TestRecordingDetail_MapsArtistRelsAndTrackPlacement(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id":"rec1","title":"Take Five",
			"artist-credit":[{"name":"Dave Brubeck Quartet"}],
			"releases":[{"id":"rel1","title":"Time Out","date":"1959-12-14","media":[{"position":1,"tracks":[{"position":3,"title":"Take Five","recording":{"id":"rec1"}}]}]}],
			"relations":[
				{"type":"instrument","attributes":["piano"],"artist":{"id":"a1","name":"Dave Brubeck"}},
				{"type":"instrument","attributes":["alto saxophone"],"artist":{"id":"a2","name":"Paul Desmond"}},
				{"type":"engineer","artist":{"id":"a3","name":"Some Engineer"}}
			]
		}`)) //nolint:errcheck
	})

	rec, err := adapter.RecordingDetail(context.Background(), "rec1")
	if err != nil {
		t.Fatalf("RecordingDetail: %v", err)
	}
	if rec.ArtistCredit != "Dave Brubeck Quartet" {
		t.Fatalf("artist credit = %q", rec.ArtistCredit)
	}
	if len(rec.ArtistRels) != 3 {
		t.Fatalf("got %d artist rels, want 3", len(rec.ArtistRels))
	}
	if len(rec.Releases) != 1 || rec.Releases[0].TrackNumber == nil || *rec.Releases[0].TrackNumber != 3 {
		t.Fatalf("track placement not mapped: %+v", rec.Releases)
	}
	if rec.Releases[0].Year != 1959 {
		t.Fatalf("year = %d, want 1959", rec.Releases[0].Year)
	}
}

func TestGetCached_NegativeHitAvoidsSecondNetworkCall(t *testing.T) {
	calls := 0
	adapter, store := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})

	key := cache.Key{Provider: ProviderName, Subkind: "recordings", ID: "missing"}
	urlFn := func() (string, error) { return adapter.baseURL + "/recording/missing", nil }
	var resp MBRecording

	err := adapter.getCached(context.Background(), key, cache.TTLMetadata, urlFn, &resp)
	if !isNotFound(err) {
		t.Fatalf("expected ProviderNotFound, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 network call, got %d", calls)
	}

	err = adapter.getCached(context.Background(), key, cache.TTLMetadata, urlFn, &resp)
	if !isNotFound(err) {
		t.Fatalf("expected ProviderNotFound on cached negative, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("negative cache hit made a second network call: %d calls", calls)
	}

	_, outcome, err := store.Load(context.Background(), key, cache.TTLMetadata)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != cache.NegativeHit {
		t.Fatalf("outcome = %v, want NegativeHit", outcome)
	}
}
