package importer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dprodger/jazzref/internal/verify"
)

// referenceHTTPClient is a plain, unrated client for verifier fetches:
// the reference verifier hits editorial pages directly, not through a
// rate-limited provider adapter, since it isn't tied to any one
// provider's cooldown policy.
var referenceHTTPClient = &http.Client{Timeout: 15 * time.Second}

// VerifyExternalReferences scores every entry in a song's freeform
// external_references map against the reference verifier, using the
// song's title as verification context (entity name and sample title);
// the composer is not passed to the verifier. It performs no
// writes; callers decide what to do with a low-confidence or invalid
// verdict — a failed verification just means "do not persist the
// reference," nothing more.
func (imp *Importer) VerifyExternalReferences(ctx context.Context, songID string) (map[string]verify.Result, error) {
	song, err := imp.store.GetSong(ctx, songID)
	if err != nil {
		return nil, fmt.Errorf("loading song: %w", err)
	}
	if song == nil {
		return nil, fmt.Errorf("no song with id %q", songID)
	}

	results := make(map[string]verify.Result, len(song.ExternalReferences))
	vctx := verify.Context{EntityName: song.Title}
	if song.Title != "" {
		vctx.SampleTitles = []string{song.Title}
	}

	for name, url := range song.ExternalReferences {
		result, err := verify.Verify(ctx, referenceHTTPClient, url, vctx)
		if err != nil {
			imp.logger.Warn("reference verification request failed", "song_id", songID, "reference", name, "url", url, "error", err)
			continue
		}
		results[name] = result
		if !result.Valid {
			imp.logger.Info("reference failed verification", "song_id", songID, "reference", name, "url", url, "confidence", result.Confidence, "reason", result.Reason)
		}
	}
	return results, nil
}
