// Package cache implements the on-disk content-addressed cache for provider
// responses described by the core's caching contract: three-way read
// outcomes (miss / hit / negative-hit), per-provider TTLs, and a
// force-refresh flag that bypasses reads but never writes.
package cache

import (
	"context"
	"time"
)

// Outcome is the three-way (plus expired) read result the cache contract
// requires callers to distinguish.
type Outcome int

// Possible load outcomes.
const (
	Miss Outcome = iota
	Hit
	NegativeHit
	Expired
)

// Entry is a cached payload plus its envelope metadata.
type Entry struct {
	Data     []byte
	CachedAt time.Time
	Negative bool
}

// Store is the cache interface. It has at least two implementations:
// FSStore (the default, disk-backed) and MemoryStore (for tests).
type Store interface {
	// Load returns the cached entry for key, or a Miss/Expired outcome.
	// A force-refresh context (see WithForceRefresh) always returns Miss,
	// regardless of what is stored.
	Load(ctx context.Context, key Key, ttl time.Duration) (Entry, Outcome, error)

	// Store writes value under key, recording cachedAt as now. Store is
	// never bypassed by force-refresh: the cache is advisory, and a
	// fresh fetch should still update it for the next caller.
	Store(ctx context.Context, key Key, value []byte, negative bool) error
}

// Key identifies one cache entry: a provider, a subkind ("searches",
// "works", "recordings", ...), and an opaque identifier that the caller
// has already normalized (e.g. a normalized search query or an external
// ID). The Store implementation is responsible for turning this into a
// filesystem-safe filename.
type Key struct {
	Provider string
	Subkind  string
	ID       string
}

type forceRefreshKey struct{}

// WithForceRefresh returns a context that causes Load to always report Miss,
// without affecting Store. This is the CLI surface's --force-refresh flag.
func WithForceRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceRefreshKey{}, true)
}

// ForceRefresh reports whether ctx was produced by WithForceRefresh.
func ForceRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(forceRefreshKey{}).(bool)
	return v
}
