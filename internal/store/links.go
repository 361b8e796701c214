package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dprodger/jazzref/internal/model"
)

// LinkRecordingRelease upserts the recording-to-release link, keyed by
// the (recording_id, release_id) pair.
func (s *Store) LinkRecordingRelease(ctx context.Context, link *model.RecordingRelease) error {
	if link.RecordingID == "" || link.ReleaseID == "" {
		return fmt.Errorf("recording_id and release_id are required")
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO recording_releases (id, recording_id, release_id, disc_number, track_number, track_title)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(recording_id, release_id) DO UPDATE SET
			disc_number = excluded.disc_number,
			track_number = excluded.track_number,
			track_title = excluded.track_title
	`,
		link.ID, link.RecordingID, link.ReleaseID,
		nullableIntPtr(link.DiscNumber), nullableIntPtr(link.TrackNumber), nullableString(link.TrackTitle),
	)
	if err != nil {
		return fmt.Errorf("linking recording to release: %w", err)
	}
	return nil
}

// GetRecordingRelease returns the recording_releases row id for a given
// (recording, release) pair, used when writing track-level streaming
// links. Returns "" if the pair is not linked.
func (s *Store) GetRecordingRelease(ctx context.Context, recordingID, releaseID string) (string, error) {
	var id string
	err := s.conn().QueryRowContext(ctx,
		`SELECT id FROM recording_releases WHERE recording_id = ? AND release_id = ?`,
		recordingID, releaseID).Scan(&id)
	if err != nil {
		return "", nil //nolint:nilerr // absent link is a valid "not yet placed" state, not an error
	}
	return id, nil
}

// LinkRecordingPerformer upserts the recording-performer-instrument-role
// credit, keyed by (recording_id, performer_id, instrument_id).
func (s *Store) LinkRecordingPerformer(ctx context.Context, link *model.RecordingPerformer) error {
	if link.RecordingID == "" || link.PerformerID == "" {
		return fmt.Errorf("recording_id and performer_id are required")
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO recording_performers (id, recording_id, performer_id, instrument_id, role)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(recording_id, performer_id, instrument_id) DO UPDATE SET
			role = excluded.role
	`,
		link.ID, link.RecordingID, link.PerformerID, nullableInstrumentID(link.InstrumentID), link.Role,
	)
	if err != nil {
		return fmt.Errorf("linking recording to performer: %w", err)
	}
	return nil
}

func nullableInstrumentID(id *string) any {
	if id == nil || *id == "" {
		return "" // part of the composite unique key; normalized to empty string rather than NULL
	}
	return *id
}

// UpsertUserContribution creates, updates, or deletes a community
// annotation depending on whether its optional fields are all empty.
func (s *Store) UpsertUserContribution(ctx context.Context, c *model.UserContribution) error {
	if c.IsEmpty() {
		_, err := s.conn().ExecContext(ctx,
			`DELETE FROM user_contributions WHERE recording_id = ? AND user_id = ?`,
			c.RecordingID, c.UserID)
		if err != nil {
			return fmt.Errorf("deleting emptied contribution: %w", err)
		}
		return nil
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO user_contributions (id, recording_id, user_id, performance_key, tempo_bpm, is_instrumental, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recording_id, user_id) DO UPDATE SET
			performance_key = excluded.performance_key,
			tempo_bpm = excluded.tempo_bpm,
			is_instrumental = excluded.is_instrumental,
			updated_at = excluded.updated_at
	`,
		c.ID, c.RecordingID, c.UserID,
		nullableStringPtr(c.PerformanceKey), nullableIntPtr(c.TempoBPM), nullableBoolPtr(c.IsInstrumental),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting user contribution: %w", err)
	}
	return nil
}

func nullableStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableBoolPtr(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
