// Package coverartarchive implements the cover-art archive adapter:
// per-release-id images with front/back type, small/
// medium/large thumbnail URLs normalized to https. A 404 from the archive
// is reported as "checked, none present"; the adapter has no separate
// result for a release the archive does not know.
package coverartarchive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
)

const defaultBaseURL = "https://coverartarchive.org"

// ProviderName is the cache/config key for this provider.
const ProviderName = "coverartarchive"

// Adapter is the cover-art archive provider adapter.
type Adapter struct {
	http    *httpclient.Client
	cache   cache.Store
	baseURL string
}

// New creates an Adapter against the default base URL.
func New(client *httpclient.Client, store cache.Store) *Adapter {
	return NewWithBaseURL(client, store, defaultBaseURL)
}

// NewWithBaseURL creates an Adapter against a custom base URL, for tests.
func NewWithBaseURL(client *httpclient.Client, store cache.Store, baseURL string) *Adapter {
	return &Adapter{http: client, cache: store, baseURL: strings.TrimRight(baseURL, "/")}
}

// Images fetches the cover art for a release by its encyclopedia
// external_release_id. A 404 is a valid "checked, no art" result, not an
// error: the caller still marks the release checked.
func (a *Adapter) Images(ctx context.Context, externalReleaseID string) (model.CoverArtResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "releases", ID: externalReleaseID}

	entry, outcome, err := a.cache.Load(ctx, key, cache.TTLMetadata)
	if err != nil {
		return model.CoverArtResult{}, err
	}
	if outcome == cache.Hit {
		var resp CAAResponse
		if err := json.Unmarshal(entry.Data, &resp); err != nil {
			return model.CoverArtResult{}, err
		}
		return model.CoverArtResult{Checked: true, Images: mapImages(resp.Images)}, nil
	}
	if outcome == cache.NegativeHit {
		return model.CoverArtResult{Checked: true}, nil
	}

	reqURL := a.baseURL + "/release/" + externalReleaseID + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.CoverArtResult{}, fmt.Errorf("building request: %w", err)
	}

	body, status, err := a.http.Do(ctx, req)
	var notFound *httpclient.ProviderNotFound
	if errors.As(err, &notFound) {
		status, err = http.StatusNotFound, nil
	}
	if err != nil {
		return model.CoverArtResult{}, err
	}
	if status == http.StatusNotFound {
		_ = a.cache.Store(ctx, key, []byte("null"), true)
		return model.CoverArtResult{Checked: true}, nil
	}

	var resp CAAResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.CoverArtResult{}, fmt.Errorf("parsing cover art response: %w", err)
	}
	_ = a.cache.Store(ctx, key, body, false)
	return model.CoverArtResult{Checked: true, Images: mapImages(resp.Images)}, nil
}

// mapImages keeps only Front/Back images and normalizes thumbnail URLs
// to https.
func mapImages(images []CAAImage) []model.CoverArtImage {
	var out []model.CoverArtImage
	for _, img := range images {
		t, ok := imageType(img)
		if !ok {
			continue
		}
		out = append(out, model.CoverArtImage{
			Type:      t,
			SmallURL:  toHTTPS(img.Thumbnails["250"]),
			MediumURL: toHTTPS(img.Thumbnails["500"]),
			LargeURL:  toHTTPS(firstNonEmpty(img.Thumbnails["1200"], img.Image)),
			SourceID:  img.ID,
			SourceURL: toHTTPS(img.Image),
		})
	}
	return out
}

func imageType(img CAAImage) (model.ImageryType, bool) {
	if img.Front {
		return model.ImageryFront, true
	}
	if img.Back {
		return model.ImageryBack, true
	}
	for _, t := range img.Types {
		switch t {
		case "Front":
			return model.ImageryFront, true
		case "Back":
			return model.ImageryBack, true
		}
	}
	return "", false
}

func toHTTPS(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
