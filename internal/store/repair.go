package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dprodger/jazzref/internal/model"
)

// ListReleaseStreamingLinksMissingURL returns release-level streaming
// links for a service that carry no service_url, excluding rows a human
// has claimed with match_method=manual. Grounded on repair_apple_links.py,
// which re-queries exactly this set: links the pipeline matched but never
// backfilled artwork/URL for, because the provider search result it used
// at match time didn't carry one.
func (s *Store) ListReleaseStreamingLinksMissingURL(ctx context.Context, service model.StreamingService) ([]model.ReleaseStreamingLink, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT id, release_id, service, service_id, service_url, match_method, matched_at
		FROM release_streaming_links
		WHERE service = ? AND (service_url IS NULL OR service_url = '') AND match_method != 'manual'
	`, service)
	if err != nil {
		return nil, fmt.Errorf("listing streaming links missing url: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var links []model.ReleaseStreamingLink
	for rows.Next() {
		var l model.ReleaseStreamingLink
		var serviceURL sql.NullString
		var matchedAt string
		if err := rows.Scan(&l.ID, &l.ReleaseID, &l.Service, &l.ServiceID, &serviceURL, &l.MatchMethod, &matchedAt); err != nil {
			return nil, fmt.Errorf("scanning streaming link: %w", err)
		}
		l.ServiceURL = serviceURL.String
		l.MatchedAt = parseTime(matchedAt)
		links = append(links, l)
	}
	return links, rows.Err()
}

// ListOrphanedRecordings returns recordings that carry an
// external_recording_id (so the encyclopedia adapter can re-fetch them)
// but have no recording_releases rows, the condition
// repair_orphaned_recordings.py calls an orphan: a recording written
// before its release reconciliation completed, typically by a seed run
// that failed partway through an older schema version's non-transactional
// write path.
func (s *Store) ListOrphanedRecordings(ctx context.Context) ([]model.Recording, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings r
		WHERE r.external_recording_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM recording_releases rr WHERE rr.recording_id = r.id)
	`)
	if err != nil {
		return nil, fmt.Errorf("listing orphaned recordings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var recs []model.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recording: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// ListPerformersMissingSortName returns performers that have an
// external_artist_id (so the encyclopedia adapter can look them up) but
// no sort_name, the condition backfill_performer_sort_names.py targets:
// performers created via an artist-rel that didn't carry a sort name at
// import time.
func (s *Store) ListPerformersMissingSortName(ctx context.Context) ([]model.Performer, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT `+performerColumns+` FROM performers
		WHERE external_artist_id IS NOT NULL AND (sort_name IS NULL OR sort_name = '')
	`)
	if err != nil {
		return nil, fmt.Errorf("listing performers missing sort name: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var performers []model.Performer
	for rows.Next() {
		p, err := scanPerformer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning performer: %w", err)
		}
		performers = append(performers, *p)
	}
	return performers, rows.Err()
}
