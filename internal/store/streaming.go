package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dprodger/jazzref/internal/model"
)

// ErrManualOverrideConflict is returned when a pipeline write would have
// overwritten a row whose match_method is manual.
type ErrManualOverrideConflict struct {
	Table string
	ID    string
}

func (e *ErrManualOverrideConflict) Error() string {
	return fmt.Sprintf("%s %s: refusing to overwrite manual match", e.Table, e.ID)
}

// UpsertReleaseStreamingLink upserts a release-level streaming link,
// keyed by (release_id, service). Rows with match_method=manual are
// never overwritten by the pipeline; link.MatchMethod must not itself be
// manual (manual links are created only through the contributions
// surface, not the importer).
func (s *Store) UpsertReleaseStreamingLink(ctx context.Context, link *model.ReleaseStreamingLink) error {
	if link.MatchMethod == model.MatchMethodManual {
		return fmt.Errorf("pipeline writes must not claim match_method=manual")
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.MatchedAt.IsZero() {
		link.MatchedAt = time.Now().UTC()
	}

	var existingMethod string
	err := s.conn().QueryRowContext(ctx,
		`SELECT match_method FROM release_streaming_links WHERE release_id = ? AND service = ?`,
		link.ReleaseID, link.Service).Scan(&existingMethod)
	if err == nil && existingMethod == string(model.MatchMethodManual) {
		return &ErrManualOverrideConflict{Table: "release_streaming_links", ID: link.ReleaseID}
	}

	_, err = s.conn().ExecContext(ctx, `
		INSERT INTO release_streaming_links (id, release_id, service, service_id, service_url, match_method, matched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(release_id, service) DO UPDATE SET
			service_id = excluded.service_id,
			service_url = excluded.service_url,
			match_method = excluded.match_method,
			matched_at = excluded.matched_at
		WHERE release_streaming_links.match_method != 'manual'
	`,
		link.ID, link.ReleaseID, link.Service, link.ServiceID, nullableString(link.ServiceURL),
		link.MatchMethod, link.MatchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting release streaming link: %w", err)
	}
	return nil
}

// UpsertTrackStreamingLink upserts a track-level (recording+release
// pair) streaming link, keyed by (recording_release_id, service), with
// the same manual-override protection as UpsertReleaseStreamingLink.
func (s *Store) UpsertTrackStreamingLink(ctx context.Context, link *model.RecordingReleaseStreamingLink) error {
	if link.MatchMethod == model.MatchMethodManual {
		return fmt.Errorf("pipeline writes must not claim match_method=manual")
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.MatchedAt.IsZero() {
		link.MatchedAt = time.Now().UTC()
	}

	var existingMethod string
	err := s.conn().QueryRowContext(ctx,
		`SELECT match_method FROM recording_release_streaming_links WHERE recording_release_id = ? AND service = ?`,
		link.RecordingReleaseID, link.Service).Scan(&existingMethod)
	if err == nil && existingMethod == string(model.MatchMethodManual) {
		return &ErrManualOverrideConflict{Table: "recording_release_streaming_links", ID: link.RecordingReleaseID}
	}

	_, err = s.conn().ExecContext(ctx, `
		INSERT INTO recording_release_streaming_links (id, recording_release_id, service, service_id, service_url, match_method, matched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recording_release_id, service) DO UPDATE SET
			service_id = excluded.service_id,
			service_url = excluded.service_url,
			match_method = excluded.match_method,
			matched_at = excluded.matched_at
		WHERE recording_release_streaming_links.match_method != 'manual'
	`,
		link.ID, link.RecordingReleaseID, link.Service, link.ServiceID, nullableString(link.ServiceURL),
		link.MatchMethod, link.MatchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting track streaming link: %w", err)
	}
	return nil
}
