package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// MaxBodyBytes bounds how much of a response body is read into memory.
// Providers in this pipeline return JSON or HTML documents, never media.
const MaxBodyBytes = 2 << 20 // 2 MiB

// Client is a single provider's rate-limited, retrying HTTP client. One
// Client is built per provider at startup and handed to that provider's
// adapter; it must never be shared across adapters or reused for a
// different provider's traffic, since its limiter and cooldown state
// are provider-specific.
//
// Client is safe for concurrent use by multiple workers, but each worker
// should still use its own *http.Request per call.
type Client struct {
	provider string
	http     *http.Client
	limiter  *rate.Limiter
	cfg      ProviderConfig
	logger   *slog.Logger

	mu            sync.Mutex
	cooldownUntil time.Time

	// sf coalesces concurrent requests for the same URL into one round
	// trip, so two callers racing to resolve the same external id (e.g.
	// a repair pass running alongside a seed that references the same
	// release) don't each spend a slot of the provider's rate limit.
	sf singleflight.Group
}

// New builds a Client for provider using cfg's policy.
func New(providerName string, cfg ProviderConfig, logger *slog.Logger) *Client {
	return &Client{
		provider: providerName,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cfg:      cfg,
		logger:   logger.With(slog.String("provider", providerName)),
	}
}

// inCooldown reports whether the provider is currently in a post-429
// cooldown window, and if so returns the remaining duration.
func (c *Client) inCooldown() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cooldownUntil.IsZero() {
		return 0, false
	}
	remaining := time.Until(c.cooldownUntil)
	if remaining <= 0 {
		c.cooldownUntil = time.Time{}
		return 0, false
	}
	return remaining, true
}

func (c *Client) startCooldown(after time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.cfg.Cooldown
	if after > d {
		d = after
	}
	c.cooldownUntil = time.Now().Add(d)
}

// Do executes req, applying the provider's rate limit, retry, and
// cooldown policy. The request's body, if any, must be re-creatable
// across retries (GetBody set), since go-retry may invoke the round
// trip more than once.
//
// On success Do returns the response body bytes and the final status
// code. Non-2xx responses are classified into the provider error
// taxonomy rather than returned as a raw status.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	sfKey := req.Method + " " + req.URL.String()
	v, err, _ := c.sf.Do(sfKey, func() (any, error) {
		body, status, err := c.doOnce(ctx, req)
		if err != nil {
			return nil, err
		}
		return doResult{body: body, status: status}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	r := v.(doResult)
	return r.body, r.status, nil
}

type doResult struct {
	body   []byte
	status int
}

func (c *Client) doOnce(ctx context.Context, req *http.Request) ([]byte, int, error) {
	if remaining, cooling := c.inCooldown(); cooling {
		return nil, 0, &ProviderRateLimited{Provider: c.provider, RetryAfter: remaining}
	}

	backoff := retry.NewExponential(c.cfg.BaseBackoff)
	backoff = retry.WithMaxRetries(c.cfg.MaxRetries, backoff)
	backoff = retry.WithJitterPercent(10, backoff)

	var body []byte
	var status int
	var rateLimited bool
	var rateLimitRetryAfter time.Duration

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		attempt := req.Clone(ctx)
		resp, err := c.http.Do(attempt)
		if err != nil {
			c.logger.Debug("request failed, will retry", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
		if readErr != nil {
			return retry.RetryableError(fmt.Errorf("reading response body: %w", readErr))
		}

		status = resp.StatusCode

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = raw
			return nil

		case resp.StatusCode == http.StatusNotFound:
			body = raw
			return nil

		case resp.StatusCode == http.StatusForbidden && c.cfg.ForbiddenIsRateLimit:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			rateLimited, rateLimitRetryAfter = true, retryAfter
			return retry.RetryableError(&ProviderRateLimited{Provider: c.provider, RetryAfter: retryAfter})

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &AuthFailure{Provider: c.provider, Cause: fmt.Errorf("HTTP %d", resp.StatusCode)}

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			rateLimited, rateLimitRetryAfter = true, retryAfter
			return retry.RetryableError(&ProviderRateLimited{Provider: c.provider, RetryAfter: retryAfter})

		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("HTTP %d", resp.StatusCode))

		default:
			return &ProviderError{Provider: c.provider, Status: resp.StatusCode, Body: string(raw)}
		}
	})

	if err != nil {
		if rateLimited {
			c.startCooldown(rateLimitRetryAfter)
		}
		return nil, status, classifyFinal(c.provider, err)
	}

	if status == http.StatusNotFound {
		return nil, status, &ProviderNotFound{Provider: c.provider, Key: req.URL.String()}
	}

	return body, status, nil
}

// classifyFinal wraps an error that survived every retry attempt. Sentinel
// provider errors produced inside the retry loop pass through unchanged;
// anything else (context deadline, a plain network error) becomes a
// ProviderTransient.
func classifyFinal(providerName string, err error) error {
	var rl *ProviderRateLimited
	if errors.As(err, &rl) {
		return rl
	}
	var af *AuthFailure
	if errors.As(err, &af) {
		return af
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderTransient{Provider: providerName, Cause: err}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return secs
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
