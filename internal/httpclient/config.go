package httpclient

import "time"

// ProviderConfig holds the per-provider rate, retry, and cooldown policy
// used to build that provider's Client. The CLI builds every Client from
// DefaultProviderConfigs; the YAML configuration has no fields that
// override these values.
type ProviderConfig struct {
	// MinInterval is the minimum spacing between two requests, enforced
	// via a rate.Limiter with burst 1.
	MinInterval time.Duration

	// MaxRetries is the number of retry attempts after the initial try.
	MaxRetries uint64

	// BaseBackoff seeds the exponential backoff between retries.
	BaseBackoff time.Duration

	// Cooldown is how long the client refuses new requests to a provider
	// after it has exhausted retries on a rate-limit response, so a
	// single 429 does not cascade into a retry storm across the run.
	Cooldown time.Duration

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// ForbiddenIsRateLimit routes HTTP 403 into the rate-limit/cooldown
	// path instead of AuthFailure. Consumer service A has no
	// authentication at all and signals rate limiting with 403 instead
	// of 429.
	ForbiddenIsRateLimit bool
}

// DefaultProviderConfigs returns the baked-in policy for each known
// provider, tuned to the documented or observed rate limits of the
// editorial jazz-standards site, the encyclopedia, the cover art
// archive, and the two consumer streaming services.
func DefaultProviderConfigs() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"jazzstandards": {
			MinInterval: 1 * time.Second,
			MaxRetries:  5,
			BaseBackoff: 1 * time.Second,
			Cooldown:    120 * time.Second,
			Timeout:     10 * time.Second,
		},
		"musicbrainz": {
			MinInterval: 1 * time.Second,
			MaxRetries:  3,
			BaseBackoff: 1 * time.Second,
			Cooldown:    120 * time.Second,
			Timeout:     10 * time.Second,
		},
		"coverartarchive": {
			MinInterval: 500 * time.Millisecond,
			MaxRetries:  3,
			BaseBackoff: 1 * time.Second,
			Cooldown:    120 * time.Second,
			Timeout:     10 * time.Second,
		},
		"itunes": {
			MinInterval:          500 * time.Millisecond,
			MaxRetries:           3,
			BaseBackoff:          1 * time.Second,
			Cooldown:             120 * time.Second,
			Timeout:              10 * time.Second,
			ForbiddenIsRateLimit: true,
		},
		"spotify": {
			MinInterval: 200 * time.Millisecond,
			MaxRetries:  3,
			BaseBackoff: 1 * time.Second,
			Cooldown:    120 * time.Second,
			Timeout:     10 * time.Second,
		},
		"wikiimages": {
			MinInterval: 1 * time.Second,
			MaxRetries:  3,
			BaseBackoff: 1 * time.Second,
			Cooldown:    120 * time.Second,
			Timeout:     10 * time.Second,
		},
	}
}
