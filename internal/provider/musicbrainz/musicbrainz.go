// Package musicbrainz implements the encyclopedia adapter: work search,
// work-with-recording-rels, recording detail with releases and
// artist-rels, release detail, and artist search/detail. Instrument
// information is read from the `attributes` field of artist-rels whose
// type is "instrument".
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"
const userAgent = "jazzref/1.0 (+https://github.com/dprodger/jazzref)"

// ProviderName is the cache/config key for this provider.
const ProviderName = "musicbrainz"

// Adapter is the encyclopedia provider adapter.
type Adapter struct {
	http    *httpclient.Client
	cache   cache.Store
	baseURL string
}

// New creates an Adapter against the default MusicBrainz base URL.
func New(client *httpclient.Client, store cache.Store) *Adapter {
	return NewWithBaseURL(client, store, defaultBaseURL)
}

// NewWithBaseURL creates an Adapter against a custom base URL, for tests.
func NewWithBaseURL(client *httpclient.Client, store cache.Store, baseURL string) *Adapter {
	return &Adapter{http: client, cache: store, baseURL: strings.TrimRight(baseURL, "/")}
}

// SearchWork searches for works matching title and returns the
// best-scoring hit, or nil if the search came back empty.
func (a *Adapter) SearchWork(ctx context.Context, title string) (*model.Work, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "searches", ID: "work:" + title}

	var resp MBWorkSearchResponse
	if err := a.getCached(ctx, key, cache.TTLMetadata, func() (string, error) {
		params := url.Values{"query": {title}, "fmt": {"json"}, "limit": {"10"}}
		return a.baseURL + "/work?" + params.Encode(), nil
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if len(resp.Works) == 0 {
		return nil, nil
	}
	best := resp.Works[0]
	for _, w := range resp.Works {
		if w.Score > best.Score {
			best = w
		}
	}
	return &model.Work{ExternalWorkID: best.ID, Title: best.Title}, nil
}

// WorkRecordings returns the recordings related to a work, via
// inc=recording-rels.
func (a *Adapter) WorkRecordings(ctx context.Context, externalWorkID string) ([]model.EncReleaseRef, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "works", ID: externalWorkID}

	var resp MBWork
	if err := a.getCached(ctx, key, cache.TTLMetadata, func() (string, error) {
		params := url.Values{"inc": {"recording-rels"}, "fmt": {"json"}}
		return a.baseURL + "/work/" + url.PathEscape(externalWorkID) + "?" + params.Encode(), nil
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var recs []model.EncReleaseRef
	for _, rel := range resp.Relations {
		if rel.Recording == nil {
			continue
		}
		recs = append(recs, model.EncReleaseRef{
			ExternalReleaseID: rel.Recording.ID,
			Title:             rel.Recording.Title,
		})
	}
	return recs, nil
}

// RecordingDetail fetches a recording by id with its releases and
// artist-rels (inc=releases+artist-rels+media).
func (a *Adapter) RecordingDetail(ctx context.Context, externalRecordingID string) (*model.EncRecording, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "recordings", ID: externalRecordingID}

	var resp MBRecording
	if err := a.getCached(ctx, key, cache.TTLMetadata, func() (string, error) {
		params := url.Values{"inc": {"releases+artist-rels+media"}, "fmt": {"json"}}
		return a.baseURL + "/recording/" + url.PathEscape(externalRecordingID) + "?" + params.Encode(), nil
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	rec := &model.EncRecording{
		ExternalRecordingID: resp.ID,
		Title:               resp.Title,
		ArtistCredit:        artistCreditString(resp.ArtistCredit),
		ArtistRels:          mapArtistRels(resp.Relations),
	}
	for _, rel := range resp.Releases {
		ref := model.EncReleaseRef{
			ExternalReleaseID: rel.ID,
			Title:             rel.Title,
			Year:              yearOf(rel.Date),
		}
		for _, medium := range rel.Media {
			for _, track := range medium.Tracks {
				if track.Recording.ID != resp.ID {
					continue
				}
				disc := medium.Position
				trackNum := track.Position
				ref.DiscNumber = &disc
				ref.TrackNumber = &trackNum
				ref.TrackTitle = track.Title
			}
		}
		rec.Releases = append(rec.Releases, ref)
	}
	return rec, nil
}

// ReleaseDetail fetches a release by id with its artist-rels, used as a
// fallback when recording detail carries no artist-rels for a release.
func (a *Adapter) ReleaseDetail(ctx context.Context, externalReleaseID string) (*model.EncRelease, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "releases", ID: externalReleaseID}

	var resp MBRelease
	if err := a.getCached(ctx, key, cache.TTLMetadata, func() (string, error) {
		params := url.Values{"inc": {"artist-rels"}, "fmt": {"json"}}
		return a.baseURL + "/release/" + url.PathEscape(externalReleaseID) + "?" + params.Encode(), nil
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return &model.EncRelease{
		ExternalReleaseID: resp.ID,
		Title:             resp.Title,
		ArtistCredit:      artistCreditString(resp.ArtistCredit),
		Year:              yearOf(resp.Date),
		ArtistRels:        mapArtistRels(resp.Relations),
	}, nil
}

// SearchArtist searches for artists matching name.
func (a *Adapter) SearchArtist(ctx context.Context, name string) ([]model.ArtistSearchResult, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "searches", ID: "artist:" + name}

	var resp MBArtistSearchResponse
	if err := a.getCached(ctx, key, cache.TTLMetadata, func() (string, error) {
		params := url.Values{"query": {name}, "fmt": {"json"}, "limit": {"25"}}
		return a.baseURL + "/artist?" + params.Encode(), nil
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]model.ArtistSearchResult, 0, len(resp.Artists))
	for _, ar := range resp.Artists {
		results = append(results, model.ArtistSearchResult{
			ExternalArtistID: ar.ID,
			Name:             ar.Name,
			SortName:         ar.SortName,
			Disambiguation:   ar.Disambiguation,
		})
	}
	return results, nil
}

// ArtistDetail fetches full metadata for an artist by id.
func (a *Adapter) ArtistDetail(ctx context.Context, externalArtistID string) (*model.ArtistDetail, error) {
	key := cache.Key{Provider: ProviderName, Subkind: "artists", ID: externalArtistID}

	var resp MBArtist
	if err := a.getCached(ctx, key, cache.TTLMetadata, func() (string, error) {
		params := url.Values{"fmt": {"json"}}
		return a.baseURL + "/artist/" + url.PathEscape(externalArtistID) + "?" + params.Encode(), nil
	}, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	detail := &model.ArtistDetail{
		ExternalArtistID: resp.ID,
		Name:             resp.Name,
		SortName:         resp.SortName,
		Disambiguation:   resp.Disambiguation,
		ArtistType:       mapArtistType(resp.Type),
		Biography:        resp.Annotation,
	}
	if resp.LifeSpan != nil {
		detail.BirthDate = resp.LifeSpan.Begin
		detail.DeathDate = resp.LifeSpan.End
	}
	return detail, nil
}

// getCached serves a GET request through the cache, falling through to
// urlFn+HTTP on a miss or expired entry, and writing the (possibly
// negative) result back. target is decoded into on a cache hit or a
// fresh fetch alike.
func (a *Adapter) getCached(ctx context.Context, key cache.Key, ttl time.Duration, urlFn func() (string, error), target any) error {
	entry, outcome, err := a.cache.Load(ctx, key, ttl)
	if err != nil {
		return err
	}
	switch outcome {
	case cache.Hit:
		return json.Unmarshal(entry.Data, target)
	case cache.NegativeHit:
		return &httpclient.ProviderNotFound{Provider: ProviderName, Key: key.ID}
	}

	reqURL, err := urlFn()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
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

// mapArtistRels classifies each relation per the role-assignment rule's
// relation-type taxonomy: engineer/producer/mix/mastering
// become role=other with no instrument at the caller; everything else
// is carried through as a candidate leader/sideman with its instruments.
func mapArtistRels(rels []MBRelation) []model.ArtistRef {
	var out []model.ArtistRef
	for _, rel := range rels {
		if rel.Artist == nil {
			continue
		}
		ref := model.ArtistRef{
			ExternalArtistID: rel.Artist.ID,
			Name:             rel.Artist.Name,
			SortName:         rel.Artist.SortName,
			Disambiguation:   rel.Artist.Disambiguation,
			RelationType:     rel.Type,
			Instruments:      rel.Attributes,
		}
		if rel.Artist.LifeSpan != nil {
			ref.BirthYear = yearOf(rel.Artist.LifeSpan.Begin)
		}
		out = append(out, ref)
	}
	return out
}

func artistCreditString(credits []MBArtistCredit) string {
	if len(credits) == 0 {
		return ""
	}
	names := make([]string, 0, len(credits))
	for _, c := range credits {
		names = append(names, c.Name)
	}
	return strings.Join(names, " & ")
}

func mapArtistType(t string) model.ArtistType {
	switch t {
	case "Person":
		return model.ArtistTypePerson
	case "Group", "Orchestra", "Choir":
		return model.ArtistTypeGroup
	default:
		return model.ArtistTypeOther
	}
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
