package cache

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFSStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir, slog.Default())
	key := Key{Provider: "musicbrainz", Subkind: "works", ID: "take five"}

	if err := store.Store(context.Background(), key, []byte(`{"title":"Take Five"}`), false); err != nil {
		t.Fatalf("Store: %v", err)
	}

	entry, outcome, err := store.Load(context.Background(), key, TTLMetadata)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != Hit {
		t.Fatalf("outcome = %v, want Hit", outcome)
	}
	if string(entry.Data) != `{"title":"Take Five"}` {
		t.Errorf("Data = %s", entry.Data)
	}
}

func TestFSStore_Miss(t *testing.T) {
	store := NewFSStore(t.TempDir(), slog.Default())
	_, outcome, err := store.Load(context.Background(), Key{Provider: "x", Subkind: "y", ID: "z"}, TTLMetadata)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != Miss {
		t.Fatalf("outcome = %v, want Miss", outcome)
	}
}

func TestFSStore_Expired(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir, slog.Default())
	key := Key{Provider: "p", Subkind: "s", ID: "k"}
	if err := store.Store(context.Background(), key, []byte("1"), false); err != nil {
		t.Fatalf("Store: %v", err)
	}

	_, outcome, err := store.Load(context.Background(), key, 1*time.Nanosecond)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != Expired {
		t.Fatalf("outcome = %v, want Expired", outcome)
	}
}

func TestFSStore_NegativeCache(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir, slog.Default())
	key := Key{Provider: "coverartarchive", Subkind: "releases", ID: "missing-release"}

	if err := store.Store(context.Background(), key, []byte("null"), true); err != nil {
		t.Fatalf("Store: %v", err)
	}

	_, outcome, err := store.Load(context.Background(), key, TTLMetadata)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != NegativeHit {
		t.Fatalf("outcome = %v, want NegativeHit", outcome)
	}
}

func TestFSStore_CorruptFileTreatedAsMiss(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir, slog.Default())
	key := Key{Provider: "p", Subkind: "s", ID: "corrupt"}

	p := store.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, outcome, err := store.Load(context.Background(), key, TTLMetadata)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != Miss {
		t.Fatalf("outcome = %v, want Miss", outcome)
	}
	if _, statErr := os.Stat(p); !os.IsNotExist(statErr) {
		t.Errorf("corrupt file should have been deleted")
	}
}

func TestFSStore_ForceRefreshBypassesRead(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir, slog.Default())
	key := Key{Provider: "p", Subkind: "s", ID: "k"}
	if err := store.Store(context.Background(), key, []byte("1"), false); err != nil {
		t.Fatalf("Store: %v", err)
	}

	ctx := WithForceRefresh(context.Background())
	_, outcome, err := store.Load(ctx, key, TTLMetadata)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != Miss {
		t.Fatalf("outcome = %v, want Miss under force-refresh", outcome)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	key := Key{Provider: "p", Subkind: "s", ID: "k"}
	if err := store.Store(context.Background(), key, []byte("v"), false); err != nil {
		t.Fatalf("Store: %v", err)
	}
	entry, outcome, err := store.Load(context.Background(), key, TTLMetadata)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if outcome != Hit || string(entry.Data) != "v" {
		t.Fatalf("got %v %s", outcome, entry.Data)
	}
}
