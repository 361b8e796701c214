package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dprodger/jazzref/internal/model"
)

const recordingColumns = `id, song_id, album_title, recording_year, recording_date, external_recording_id, is_canonical, default_release_id, created_at, updated_at`

// UpsertRecording creates or updates a recording by ID.
func (s *Store) UpsertRecording(ctx context.Context, rec *model.Recording) error {
	if rec.SongID == "" {
		return fmt.Errorf("recording song_id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO recordings (id, song_id, album_title, recording_year, recording_date, external_recording_id, is_canonical, default_release_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			album_title = excluded.album_title,
			recording_year = excluded.recording_year,
			recording_date = excluded.recording_date,
			external_recording_id = excluded.external_recording_id,
			is_canonical = excluded.is_canonical,
			default_release_id = excluded.default_release_id,
			updated_at = excluded.updated_at
	`,
		rec.ID, rec.SongID, nullableString(rec.AlbumTitle), nullableInt(rec.RecordingYear),
		nullableString(rec.RecordingDate), nullableString(rec.ExternalRecordingID), rec.IsCanonical,
		nullableString(rec.DefaultReleaseID),
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting recording: %w", err)
	}
	return nil
}

// GetRecording retrieves a recording by primary key. Returns nil, nil if absent.
func (s *Store) GetRecording(ctx context.Context, id string) (*model.Recording, error) {
	row := s.conn().QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	return scanRecordingOrNil(row)
}

// FindRecordingByExternalID looks up a recording by its provider-assigned
// external recording id.
func (s *Store) FindRecordingByExternalID(ctx context.Context, id string) (*model.Recording, error) {
	if id == "" {
		return nil, nil
	}
	row := s.conn().QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE external_recording_id = ?`, id)
	return scanRecordingOrNil(row)
}

// ListRecordingsBySong returns every recording belonging to a song.
func (s *Store) ListRecordingsBySong(ctx context.Context, songID string) ([]model.Recording, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE song_id = ?`, songID)
	if err != nil {
		return nil, fmt.Errorf("listing recordings for song: %w", err)
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

// SetDefaultRelease sets a recording's default_release_id. The caller is
// responsible for ensuring releaseID already appears in the recording's
// release link set, per the invariant on Recording.
func (s *Store) SetDefaultRelease(ctx context.Context, recordingID, releaseID string) error {
	_, err := s.conn().ExecContext(ctx,
		`UPDATE recordings SET default_release_id = ?, updated_at = ? WHERE id = ?`,
		releaseID, time.Now().UTC().Format(time.RFC3339), recordingID)
	if err != nil {
		return fmt.Errorf("setting default release: %w", err)
	}
	return nil
}

func scanRecordingOrNil(row scannable) (*model.Recording, error) {
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func scanRecording(row scannable) (*model.Recording, error) {
	var rec model.Recording
	var albumTitle, recordingDate, externalRecordingID, defaultReleaseID sql.NullString
	var recordingYear sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(
		&rec.ID, &rec.SongID, &albumTitle, &recordingYear, &recordingDate,
		&externalRecordingID, &rec.IsCanonical, &defaultReleaseID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.AlbumTitle = albumTitle.String
	rec.RecordingYear = int(recordingYear.Int64)
	rec.RecordingDate = recordingDate.String
	rec.ExternalRecordingID = externalRecordingID.String
	rec.DefaultReleaseID = defaultReleaseID.String
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)

	return &rec, nil
}
