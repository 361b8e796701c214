package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dprodger/jazzref/internal/model"
	"github.com/dprodger/jazzref/internal/normalize"
	"github.com/dprodger/jazzref/internal/resolve"
)

const songColumns = `id, title, composer, external_work_id, secondary_work_id, structure, created_at, updated_at`

// UpsertSong creates or updates a song by ID. Callers resolve the row
// via the resolve package first; UpsertSong never performs matching
// itself, it only persists.
func (s *Store) UpsertSong(ctx context.Context, song *model.Song) error {
	if song.Title == "" {
		return fmt.Errorf("song title is required")
	}
	if song.ID == "" {
		song.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if song.CreatedAt.IsZero() {
		song.CreatedAt = now
	}
	song.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO songs (id, title, composer, external_work_id, secondary_work_id, structure, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			composer = excluded.composer,
			external_work_id = excluded.external_work_id,
			secondary_work_id = excluded.secondary_work_id,
			structure = excluded.structure,
			updated_at = excluded.updated_at
	`,
		song.ID, song.Title, song.Composer,
		nullableString(song.ExternalWorkID), nullableString(song.SecondaryWorkID), nullableString(song.Structure),
		song.CreatedAt.Format(time.RFC3339), song.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting song: %w", err)
	}
	if song.ExternalReferences != nil {
		if err := s.replaceExternalReferences(ctx, song.ID, song.ExternalReferences); err != nil {
			return fmt.Errorf("saving external references: %w", err)
		}
	}
	return nil
}

// replaceExternalReferences overwrites a song's freeform name->url
// external-reference map. It is a full replace rather than a merge: the
// caller is expected to have read the existing map first if it wants to
// add to it incrementally.
func (s *Store) replaceExternalReferences(ctx context.Context, songID string, refs map[string]string) error {
	if _, err := s.conn().ExecContext(ctx, `DELETE FROM song_external_references WHERE song_id = ?`, songID); err != nil {
		return err
	}
	for name, url := range refs {
		if name == "" || url == "" {
			continue
		}
		if _, err := s.conn().ExecContext(ctx, `
			INSERT INTO song_external_references (song_id, name, url) VALUES (?, ?, ?)
		`, songID, name, url); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadExternalReferences(ctx context.Context, songID string) (map[string]string, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT name, url FROM song_external_references WHERE song_id = ?`, songID)
	if err != nil {
		return nil, fmt.Errorf("loading external references: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	refs := make(map[string]string)
	for rows.Next() {
		var name, url string
		if err := rows.Scan(&name, &url); err != nil {
			return nil, err
		}
		refs[name] = url
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}

// GetSong retrieves a song by primary key. Returns nil, nil if absent.
func (s *Store) GetSong(ctx context.Context, id string) (*model.Song, error) {
	row := s.conn().QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	song, err := scanSongOrNil(row)
	if err != nil || song == nil {
		return song, err
	}
	refs, err := s.loadExternalReferences(ctx, song.ID)
	if err != nil {
		return nil, err
	}
	song.ExternalReferences = refs
	return song, nil
}

// DeleteSong removes a song and, via the schema's ON DELETE CASCADE
// foreign keys, every recording, recording_release, recording_performer,
// and external reference hanging off it — the cascade order
// (recording_performers -> recordings -> song) is enforced at the
// database layer rather than re-implemented row by row here.
func (s *Store) DeleteSong(ctx context.Context, id string) error {
	_, err := s.conn().ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting song: %w", err)
	}
	return nil
}

// MergeSongs folds extraID into keepID: every recording belonging to the
// extra song is repointed at the keep song, the extra song's external
// work id (if the keep song has none) is preserved as the keep song's
// secondary_work_id, external references are unioned, and the extra
// song row is deleted. Grounded on original_source's merge_songs.py,
// generalized from a human-confirmed interactive script into a single
// transactional operation the repair CLI drives non-interactively.
func (s *Store) MergeSongs(ctx context.Context, keepID, extraID string) error {
	if keepID == extraID {
		return fmt.Errorf("cannot merge a song into itself")
	}
	keep, err := s.GetSong(ctx, keepID)
	if err != nil {
		return err
	}
	if keep == nil {
		return fmt.Errorf("no song with id %q", keepID)
	}
	extra, err := s.GetSong(ctx, extraID)
	if err != nil {
		return err
	}
	if extra == nil {
		return fmt.Errorf("no song with id %q", extraID)
	}

	if keep.SecondaryWorkID == "" && extra.ExternalWorkID != "" && extra.ExternalWorkID != keep.ExternalWorkID {
		keep.SecondaryWorkID = extra.ExternalWorkID
	}
	merged := make(map[string]string, len(keep.ExternalReferences)+len(extra.ExternalReferences))
	for k, v := range extra.ExternalReferences {
		merged[k] = v
	}
	for k, v := range keep.ExternalReferences {
		merged[k] = v
	}
	if len(merged) > 0 {
		keep.ExternalReferences = merged
	}
	if err := s.UpsertSong(ctx, keep); err != nil {
		return fmt.Errorf("updating keep song: %w", err)
	}

	// A recording sharing an external_recording_id with one already on
	// the keep song is a true duplicate, not a new recording to move:
	// delete it rather than let the repointing UPDATE violate the
	// external_recording_id unique index.
	if _, err := s.conn().ExecContext(ctx, `
		DELETE FROM recordings
		WHERE song_id = ?
		  AND external_recording_id IS NOT NULL
		  AND external_recording_id IN (
			SELECT external_recording_id FROM recordings
			WHERE song_id = ? AND external_recording_id IS NOT NULL
		  )
	`, extraID, keepID); err != nil {
		return fmt.Errorf("removing duplicate recordings: %w", err)
	}

	if _, err := s.conn().ExecContext(ctx, `
		UPDATE recordings SET song_id = ?, updated_at = ? WHERE song_id = ?
	`, keepID, time.Now().UTC().Format(time.RFC3339), extraID); err != nil {
		return fmt.Errorf("repointing recordings: %w", err)
	}

	if err := s.DeleteSong(ctx, extraID); err != nil {
		return fmt.Errorf("deleting merged song: %w", err)
	}
	return nil
}

// FindSongByExternalWorkID implements resolve.SongLookup.
func (s *Store) FindSongByExternalWorkID(ctx context.Context, id string) (*model.Song, error) {
	if id == "" {
		return nil, nil
	}
	row := s.conn().QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE external_work_id = ?`, id)
	return scanSongOrNil(row)
}

// FindSongByNormalizedTitle implements resolve.SongLookup. It compares
// against songs.title normalized at query time, since the schema stores
// the display title, not a precomputed normalized column.
func (s *Store) FindSongByNormalizedTitle(ctx context.Context, normalizedTitle string) (*model.Song, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT `+songColumns+` FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("scanning songs for exact-title match: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		if normalize.Title(song.Title) == normalizedTitle {
			return song, nil
		}
	}
	return nil, rows.Err()
}

// FuzzySongCandidates implements resolve.SongLookup.
func (s *Store) FuzzySongCandidates(ctx context.Context, _ string) ([]resolve.Candidate, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT id, title FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("listing song candidates: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var candidates []resolve.Candidate
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scanning song candidate: %w", err)
		}
		candidates = append(candidates, resolve.Candidate{ID: id, Name: title})
	}
	return candidates, rows.Err()
}

func scanSongOrNil(row scannable) (*model.Song, error) {
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

func scanSong(row scannable) (*model.Song, error) {
	var song model.Song
	var composer, externalWorkID, secondaryWorkID, structure sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&song.ID, &song.Title, &composer, &externalWorkID, &secondaryWorkID, &structure,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	song.Composer = composer.String
	song.ExternalWorkID = externalWorkID.String
	song.SecondaryWorkID = secondaryWorkID.String
	song.Structure = structure.String
	song.CreatedAt = parseTime(createdAt)
	song.UpdatedAt = parseTime(updatedAt)

	return &song, nil
}
