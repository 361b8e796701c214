// Package itunes implements the consumer-service-A adapter:
// unauthenticated album/track search and album lookup against the
// public iTunes Search API, with artwork URLs derived by size
// substitution on the 100x100 artwork URL.
package itunes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
)

const defaultBaseURL = "https://itunes.apple.com"

// ProviderName is the cache/config key for this provider.
const ProviderName = "itunes"

// Adapter is the consumer-service-A provider adapter.
type Adapter struct {
	http    *httpclient.Client
	cache   cache.Store
	baseURL string
}

// New creates an Adapter against the default iTunes Search API base URL.
func New(client *httpclient.Client, store cache.Store) *Adapter {
	return NewWithBaseURL(client, store, defaultBaseURL)
}

// NewWithBaseURL creates an Adapter against a custom base URL, for tests.
func NewWithBaseURL(client *httpclient.Client, store cache.Store, baseURL string) *Adapter {
	return &Adapter{http: client, cache: store, baseURL: strings.TrimRight(baseURL, "/")}
}

// SearchTracks searches /search for entity=song matches to term.
func (a *Adapter) SearchTracks(ctx context.Context, term string) ([]model.TrackSearchResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "searches", ID: "track:" + term}

	var resp searchResponse
	if err := a.getCached(ctx, key, func() string {
		params := url.Values{"term": {term}, "entity": {"song"}, "limit": {"25"}}
		return a.baseURL + "/search?" + params.Encode()
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.TrackSearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, model.TrackSearchResult{
			ServiceTrackID: strconv.FormatInt(r.TrackID, 10),
			ServiceURL:     r.TrackViewURL,
			Title:          r.TrackName,
			ArtistName:     r.ArtistName,
			AlbumTitle:     r.CollectionName,
			ServiceAlbumID: strconv.FormatInt(r.CollectionID, 10),
		})
	}
	return out, nil
}

// SearchAlbums searches /search for entity=album matches to term.
func (a *Adapter) SearchAlbums(ctx context.Context, term string) ([]model.AlbumSearchResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "searches", ID: "album:" + term}

	var resp searchResponse
	if err := a.getCached(ctx, key, func() string {
		params := url.Values{"term": {term}, "entity": {"album"}, "limit": {"25"}}
		return a.baseURL + "/search?" + params.Encode()
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.AlbumSearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		small, medium, large := artworkFamily(r.ArtworkURL100)
		out = append(out, model.AlbumSearchResult{
			ServiceAlbumID: strconv.FormatInt(r.CollectionID, 10),
			ServiceURL:     r.CollectionViewURL,
			Title:          r.CollectionName,
			ArtistName:     r.ArtistName,
			ArtworkSmall:   small,
			ArtworkMedium:  medium,
			ArtworkLarge:   large,
		})
	}
	return out, nil
}

// LookupAlbum fetches a single album by its service id via /lookup.
func (a *Adapter) LookupAlbum(ctx context.Context, serviceAlbumID string) (*model.AlbumSearchResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "albums", ID: serviceAlbumID}

	var resp searchResponse
	if err := a.getCached(ctx, key, func() string {
		params := url.Values{"id": {serviceAlbumID}, "entity": {"album"}}
		return a.baseURL + "/lookup?" + params.Encode()
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	small, medium, large := artworkFamily(r.ArtworkURL100)
	return &model.AlbumSearchResult{
		ServiceAlbumID: strconv.FormatInt(r.CollectionID, 10),
		ServiceURL:     r.CollectionViewURL,
		Title:          r.CollectionName,
		ArtistName:     r.ArtistName,
		ArtworkSmall:   small,
		ArtworkMedium:  medium,
		ArtworkLarge:   large,
	}, nil
}

// artworkFamily derives the medium/large artwork URLs from the 100x100
// URL by substring substitution; the 100x100 URL is kept as-is for
// small, never substituted to itself.
func artworkFamily(artwork100 string) (small, medium, large string) {
	if artwork100 == "" {
		return "", "", ""
	}
	small = artwork100
	medium = strings.Replace(artwork100, "100x100", "300x300", 1)
	large = strings.Replace(artwork100, "100x100", "600x600", 1)
	return small, medium, large
}

// getCached serves a GET request through the cache, falling through to
// urlFn+HTTP on a miss or expired entry, and writing the (possibly
// negative) result back.
func (a *Adapter) getCached(ctx context.Context, key cache.Key, urlFn func() string, target any) error {
	entry, outcome, err := a.cache.Load(ctx, key, cache.TTLMetadata)
	if err != nil {
		return err
	}
	switch outcome {
	case cache.Hit:
		return json.Unmarshal(entry.Data, target)
	case cache.NegativeHit:
		return &httpclient.ProviderNotFound{Provider: ProviderName, Key: key.ID}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlFn(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := a.http.Do(ctx, req)
	if isNotFound(err) {
		status, err = http.StatusNotFound, nil
	}
	if err != nil {
		return err
	}
	if status == http.StatusNotFound || len(body) == 0 {
		_ = a.cache.Store(ctx, key, []byte("null"), true)
		return &httpclient.ProviderNotFound{Provider: ProviderName, Key: key.ID}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if resp.ResultCount == 0 {
		_ = a.cache.Store(ctx, key, []byte("null"), true)
		return &httpclient.ProviderNotFound{Provider: ProviderName, Key: key.ID}
	}

	_ = a.cache.Store(ctx, key, body, false)
	return json.Unmarshal(body, target)
}

func isNotFound(err error) bool {
	var nf *httpclient.ProviderNotFound
	return errors.As(err, &nf)
}
