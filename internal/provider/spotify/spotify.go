// Package spotify implements the consumer-service-B adapter: OAuth2
// client-credentials token management plus track search with
// progressive query strategies and album lookup for artwork.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
)

// ProviderName is the cache/config key for this provider.
const ProviderName = "spotify"

// Adapter is the consumer-service-B provider adapter. Unlike the other
// adapters it holds a token source in addition to the shared
// rate-limited httpclient.Client, since every network request needs a
// bearer token. The client-credentials source that New installs fetches
// a new token for every network request; tokens are not cached between
// requests.
type Adapter struct {
	http    *httpclient.Client
	cache   cache.Store
	tokens  tokenSource
	baseURL string
}

// tokenSource is the subset of oauth2.TokenSource this adapter needs,
// narrowed for testability.
type tokenSource interface {
	Token() (accessToken string, err error)
}

type ccTokenSource struct {
	cfg *clientcredentials.Config
	ctx context.Context
}

func (s ccTokenSource) Token() (string, error) {
	tok, err := s.cfg.Token(s.ctx)
	if err != nil {
		return "", fmt.Errorf("fetching client-credentials token: %w", err)
	}
	return tok.AccessToken, nil
}

// New builds an Adapter using the client-credentials flow against the
// real Spotify accounts/API endpoints.
func New(ctx context.Context, client *httpclient.Client, store cache.Store, clientID, clientSecret string) *Adapter {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     defaultTokenURL,
	}
	return &Adapter{
		http:    client,
		cache:   store,
		tokens:  ccTokenSource{cfg: cfg, ctx: ctx},
		baseURL: defaultBaseURL,
	}
}

// NewWithTokenSource builds an Adapter against a custom base URL and
// token source, for tests.
func NewWithTokenSource(client *httpclient.Client, store cache.Store, baseURL string, tokens tokenSource) *Adapter {
	return &Adapter{http: client, cache: store, tokens: tokens, baseURL: strings.TrimRight(baseURL, "/")}
}

// SearchTrack runs the progressive query strategies (artist+title+album,
// then artist+title, then title only) against /search, returning the
// first strategy that produces any hits.
func (a *Adapter) SearchTrack(ctx context.Context, artist, title, album string) ([]model.TrackSearchResult, error) {
	queries := progressiveQueries(artist, title, album)
	for _, q := range queries {
		results, err := a.searchTracks(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return nil, nil
}

func progressiveQueries(artist, title, album string) []string {
	var queries []string
	if artist != "" && title != "" && album != "" {
		queries = append(queries, fmt.Sprintf("artist:%s track:%s album:%s", artist, title, album))
	}
	if artist != "" && title != "" {
		queries = append(queries, fmt.Sprintf("artist:%s track:%s", artist, title))
	}
	if title != "" {
		queries = append(queries, fmt.Sprintf("track:%s", title))
	}
	return queries
}

func (a *Adapter) searchTracks(ctx context.Context, query string) ([]model.TrackSearchResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "searches", ID: "track:" + query}

	var resp searchResponse
	if err := a.getCached(ctx, key, func() string {
		params := url.Values{"q": {query}, "type": {"track"}, "limit": {"10"}}
		return a.baseURL + "/search?" + params.Encode()
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Tracks == nil {
		return nil, nil
	}

	out := make([]model.TrackSearchResult, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		out = append(out, model.TrackSearchResult{
			ServiceTrackID: t.ID,
			ServiceURL:     t.ExternalURLs.Spotify,
			Title:          t.Name,
			ArtistName:     artistNames(t.Artists),
			AlbumTitle:     t.Album.Name,
			ServiceAlbumID: t.Album.ID,
		})
	}
	return out, nil
}

// GetAlbum fetches an album by id for its artwork images.
func (a *Adapter) GetAlbum(ctx context.Context, serviceAlbumID string) (*model.AlbumSearchResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "albums", ID: serviceAlbumID}

	var resp album
	if err := a.getCached(ctx, key, func() string {
		return a.baseURL + "/albums/" + url.PathEscape(serviceAlbumID)
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	small, medium, large := artworkFamily(resp.Images)
	return &model.AlbumSearchResult{
		ServiceAlbumID: resp.ID,
		ServiceURL:     resp.ExternalURLs.Spotify,
		Title:          resp.Name,
		ArtistName:     artistNames(resp.Artists),
		ArtworkSmall:   small,
		ArtworkMedium:  medium,
		ArtworkLarge:   large,
	}, nil
}

// artworkFamily picks small/medium/large from Spotify's width-sorted
// image list (the API returns images from largest to smallest, but this
// sorts defensively rather than trusting response order).
func artworkFamily(images []image) (small, medium, large string) {
	if len(images) == 0 {
		return "", "", ""
	}
	sorted := append([]image(nil), images...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Width < sorted[j].Width })

	small = sorted[0].URL
	large = sorted[len(sorted)-1].URL
	medium = sorted[len(sorted)/2].URL
	return small, medium, large
}

func artistNames(artists []artistRef) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// getCached serves a GET request through the cache, attaching a bearer
// token from a.tokens on the network path. Cache hits need no token.
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

	accessToken, err := a.tokens.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlFn(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
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

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	_ = a.cache.Store(ctx, key, body, false)
	return nil
}

func isNotFound(err error) bool {
	var nf *httpclient.ProviderNotFound
	return errors.As(err, &nf)
}
