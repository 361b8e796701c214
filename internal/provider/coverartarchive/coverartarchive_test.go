package coverartarchive

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
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

func TestImages_NormalizesToHTTPSAndKeepsFrontBackOnly(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"release":"rel1","images":[
			{"id":"1","image":"http://example.com/full.jpg","front":true,"thumbnails":{"250":"http://example.com/250.jpg","500":"http://example.com/500.jpg"}},
			{"id":"2","image":"http://example.com/medallion.jpg","types":["Medallion"]}
		]}`)) //nolint:errcheck
	})

	result, err := adapter.Images(context.Background(), "rel1")
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if !result.Checked || len(result.Images) != 1 {
		t.Fatalf("got %+v, want exactly one Front image", result)
	}
	img := result.Images[0]
	if img.Type != model.ImageryFront {
		t.Fatalf("type = %v", img.Type)
	}
	if img.SmallURL != "https://example.com/250.jpg" {
		t.Fatalf("small url not normalized to https: %q", img.SmallURL)
	}
}

func TestImages_404IsCheckedWithNoArt(t *testing.T) {
	adapter, store := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	result, err := adapter.Images(context.Background(), "rel-no-art")
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if !result.Checked || len(result.Images) != 0 {
		t.Fatalf("got %+v, want Checked=true with zero images", result)
	}

	key := cache.Key{Provider: ProviderName, Subkind: "releases", ID: "rel-no-art"}
	_, outcome, _ := store.Load(context.Background(), key, cache.TTLMetadata)
	if outcome != cache.NegativeHit {
		t.Fatalf("outcome = %v, want NegativeHit", outcome)
	}
}
