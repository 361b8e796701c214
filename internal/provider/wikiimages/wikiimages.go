// Package wikiimages implements the editorial image archive adapter:
// performer portrait search over the MediaWiki
// action=query&prop=imageinfo API, with license text normalized to a
// closed set.
//
// Unlike a plain Wikidata SPARQL query over structured artist metadata
// (formed/disbanded/genres), imageinfo has no such concept, so the HTTP
// call shape here is its own; the provider lifecycle (rate-limited GET,
// cache envelope, response mapping) matches every other adapter in this
// package tree.
package wikiimages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
)

const defaultBaseURL = "https://commons.wikimedia.org/w/api.php"
const userAgent = "jazzref/1.0 (+https://github.com/dprodger/jazzref)"

// ProviderName is the cache/config key for this provider.
const ProviderName = "wikiimages"

// Adapter is the editorial image archive provider adapter.
type Adapter struct {
	http    *httpclient.Client
	cache   cache.Store
	baseURL string
}

// New creates an Adapter against the default Wikimedia Commons API.
func New(client *httpclient.Client, store cache.Store) *Adapter {
	return NewWithBaseURL(client, store, defaultBaseURL)
}

// NewWithBaseURL creates an Adapter against a custom base URL, for tests.
func NewWithBaseURL(client *httpclient.Client, store cache.Store, baseURL string) *Adapter {
	return &Adapter{http: client, cache: store, baseURL: baseURL}
}

// SearchImages looks up the imageinfo for a Commons page title (typically
// "File:<name>.jpg" or a category member resolved upstream) and returns
// every image found on that page with license/attribution metadata.
func (a *Adapter) SearchImages(ctx context.Context, pageTitle string) ([]model.ArtistImageResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "images", ID: pageTitle}

	entry, outcome, err := a.cache.Load(ctx, key, cache.TTLMetadata)
	if err != nil {
		return nil, err
	}
	if outcome == cache.Hit {
		var resp queryResponse
		if err := json.Unmarshal(entry.Data, &resp); err != nil {
			return nil, err
		}
		return mapResults(resp, pageTitle), nil
	}
	if outcome == cache.NegativeHit {
		return nil, nil
	}

	params := url.Values{
		"action":    {"query"},
		"titles":    {pageTitle},
		"prop":      {"imageinfo"},
		"iiprop":    {"url|extmetadata"},
		"format":    {"json"},
		"formatversion": {"2"},
	}
	reqURL := a.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	body, status, err := a.http.Do(ctx, req)
	var notFound *httpclient.ProviderNotFound
	if errors.As(err, &notFound) {
		status, err = http.StatusNotFound, nil
	}
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		_ = a.cache.Store(ctx, key, []byte("null"), true)
		return nil, nil
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	results := mapResults(resp, pageTitle)
	if len(results) == 0 {
		_ = a.cache.Store(ctx, key, []byte("null"), true)
		return nil, nil
	}
	_ = a.cache.Store(ctx, key, body, false)
	return results, nil
}

func mapResults(resp queryResponse, pageTitle string) []model.ArtistImageResult {
	var out []model.ArtistImageResult
	for _, p := range resp.Query.Pages {
		if p.Missing {
			continue
		}
		for _, info := range p.ImageInfo {
			out = append(out, model.ArtistImageResult{
				URL:         info.URL,
				License:     normalizeLicense(info.ExtMetadata.LicenseShortName.Value),
				Attribution: stripHTML(info.ExtMetadata.Artist.Value),
				SourcePage:  firstNonEmpty(info.DescriptionURL, pageTitle),
			})
		}
	}
	return out
}

// normalizeLicense maps the free-text LicenseShortName field to the
// closed set {public-domain, CC0, CC-BY, CC-BY-SA, GFDL, unknown}.
func normalizeLicense(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "public domain"):
		return "public-domain"
	case strings.Contains(lower, "cc0"):
		return "CC0"
	case strings.Contains(lower, "cc-by-sa") || strings.Contains(lower, "by-sa"):
		return "CC-BY-SA"
	case strings.Contains(lower, "cc-by") || (strings.Contains(lower, "by") && strings.Contains(lower, "attribution")):
		return "CC-BY"
	case strings.Contains(lower, "gfdl") || strings.Contains(lower, "gnu free documentation"):
		return "GFDL"
	default:
		return "unknown"
	}
}

// stripHTML removes the simple <a>...</a> wrapper MediaWiki puts around
// the Artist extmetadata field, keeping just the link text.
func stripHTML(s string) string {
	start := strings.Index(s, ">")
	end := strings.LastIndex(s, "<")
	if start >= 0 && end > start {
		return s[start+1 : end]
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
