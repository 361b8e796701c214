package importer

import (
	"context"

	"github.com/dprodger/jazzref/internal/model"
	"github.com/dprodger/jazzref/internal/normalize"
)

// matchStreamingLinks runs the progressive query strategies against both
// consumer services for one release and, on a scored hit, returns the
// candidate to upsert. It never writes; callers apply the
// manual-override rule at the store layer.
func (imp *Importer) matchStreamingLinks(ctx context.Context, release *model.Release) []streamingMatch {
	var matches []streamingMatch

	if imp.consumerA != nil {
		if m := imp.matchConsumerA(ctx, release); m != nil {
			matches = append(matches, *m)
		}
	}
	if imp.consumerB != nil {
		if m := imp.matchConsumerB(ctx, release); m != nil {
			matches = append(matches, *m)
		}
	}
	return matches
}

type streamingMatch struct {
	service    model.StreamingService
	serviceID  string
	serviceURL string
}

func (imp *Importer) matchConsumerA(ctx context.Context, release *model.Release) *streamingMatch {
	results, err := imp.consumerA.SearchAlbums(ctx, queryFor(release))
	if err != nil {
		imp.logger.Warn("consumer service A search failed", "release", release.ID, "error", err)
		return nil
	}
	for _, r := range results {
		if scoreAlbumMatch(release, r.Title, r.ArtistName) {
			return &streamingMatch{service: model.ServiceA, serviceID: r.ServiceAlbumID, serviceURL: r.ServiceURL}
		}
	}
	return nil
}

func (imp *Importer) matchConsumerB(ctx context.Context, release *model.Release) *streamingMatch {
	tracks, err := imp.consumerB.SearchTrack(ctx, release.ArtistCredit, release.Title, release.Title)
	if err != nil {
		imp.logger.Warn("consumer service B search failed", "release", release.ID, "error", err)
		return nil
	}
	for _, t := range tracks {
		if scoreAlbumMatch(release, t.AlbumTitle, t.ArtistName) {
			return &streamingMatch{service: model.ServiceB, serviceID: t.ServiceAlbumID}
		}
	}
	return nil
}

func queryFor(release *model.Release) string {
	if release.ArtistCredit == "" {
		return release.Title
	}
	return release.ArtistCredit + " " + release.Title
}

// scoreAlbumMatch applies the streaming-match threshold: a token-sort
// score at or above normalize.StreamingThreshold, or a substring
// containment in either direction on the title.
func scoreAlbumMatch(release *model.Release, candidateTitle, candidateArtist string) bool {
	titleScore := normalize.Score(release.Title, candidateTitle)
	if titleScore < normalize.StreamingThreshold && !normalize.ContainsEither(release.Title, candidateTitle) {
		return false
	}
	if release.ArtistCredit == "" || candidateArtist == "" {
		return true
	}
	return normalize.Score(release.ArtistCredit, candidateArtist) >= normalize.StreamingThreshold ||
		normalize.ContainsEither(release.ArtistCredit, candidateArtist)
}
