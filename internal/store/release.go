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

const releaseColumns = `id, title, artist_credit, release_year, external_release_id, cover_art_checked_at, created_at, updated_at`

// UpsertRelease creates or updates a release by ID.
func (s *Store) UpsertRelease(ctx context.Context, rel *model.Release) error {
	if rel.Title == "" {
		return fmt.Errorf("release title is required")
	}
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = now
	}
	rel.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO releases (id, title, artist_credit, release_year, external_release_id, cover_art_checked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist_credit = excluded.artist_credit,
			release_year = excluded.release_year,
			external_release_id = excluded.external_release_id,
			updated_at = excluded.updated_at
	`,
		rel.ID, rel.Title, nullableString(rel.ArtistCredit), nullableInt(rel.ReleaseYear),
		nullableString(rel.ExternalReleaseID), nullableTime(rel.CoverArtCheckedAt),
		rel.CreatedAt.Format(time.RFC3339), rel.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting release: %w", err)
	}
	return nil
}

// GetRelease retrieves a release by primary key. Returns nil, nil if absent.
func (s *Store) GetRelease(ctx context.Context, id string) (*model.Release, error) {
	row := s.conn().QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id)
	return scanReleaseOrNil(row)
}

// FindReleaseByExternalReleaseID implements resolve.ReleaseLookup.
func (s *Store) FindReleaseByExternalReleaseID(ctx context.Context, id string) (*model.Release, error) {
	if id == "" {
		return nil, nil
	}
	row := s.conn().QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM releases WHERE external_release_id = ?`, id)
	return scanReleaseOrNil(row)
}

// FindReleaseByNormalizedTitle implements resolve.ReleaseLookup, scoped to
// releases already linked to recordingID.
func (s *Store) FindReleaseByNormalizedTitle(ctx context.Context, recordingID, normalizedTitle string) (*model.Release, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT r.id, r.title, r.artist_credit, r.release_year, r.external_release_id, r.cover_art_checked_at, r.created_at, r.updated_at
		FROM releases r
		JOIN recording_releases rr ON rr.release_id = r.id
		WHERE rr.recording_id = ?
	`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("scanning linked releases for exact-title match: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning release: %w", err)
		}
		if normalize.Title(rel.Title) == normalizedTitle {
			return rel, nil
		}
	}
	return nil, rows.Err()
}

// FuzzyReleaseCandidates implements resolve.ReleaseLookup.
func (s *Store) FuzzyReleaseCandidates(ctx context.Context, recordingID, _ string, year int) ([]resolve.Candidate, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT r.id, r.title, r.release_year
		FROM releases r
		JOIN recording_releases rr ON rr.release_id = r.id
		WHERE rr.recording_id = ?
	`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("listing release candidates: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var candidates []resolve.Candidate
	for rows.Next() {
		var id, title string
		var releaseYear sql.NullInt64
		if err := rows.Scan(&id, &title, &releaseYear); err != nil {
			return nil, fmt.Errorf("scanning release candidate: %w", err)
		}
		candidates = append(candidates, resolve.Candidate{
			ID:             id,
			Name:           title,
			SecondaryYear:  int(releaseYear.Int64),
			SecondaryMatch: year != 0 && int(releaseYear.Int64) == year,
		})
	}
	return candidates, rows.Err()
}

// MarkReleaseChecked sets cover_art_checked_at to now, the sentinel that
// distinguishes "release has been polled for cover art, none present"
// from "release not yet checked".
func (s *Store) MarkReleaseChecked(ctx context.Context, releaseID string) error {
	now := time.Now().UTC()
	_, err := s.conn().ExecContext(ctx,
		`UPDATE releases SET cover_art_checked_at = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339), now.Format(time.RFC3339), releaseID)
	if err != nil {
		return fmt.Errorf("marking release checked: %w", err)
	}
	return nil
}

func scanReleaseOrNil(row scannable) (*model.Release, error) {
	rel, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func scanRelease(row scannable) (*model.Release, error) {
	var rel model.Release
	var artistCredit, externalReleaseID, coverArtCheckedAt sql.NullString
	var releaseYear sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(
		&rel.ID, &rel.Title, &artistCredit, &releaseYear, &externalReleaseID,
		&coverArtCheckedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rel.ArtistCredit = artistCredit.String
	rel.ReleaseYear = int(releaseYear.Int64)
	rel.ExternalReleaseID = externalReleaseID.String
	rel.CoverArtCheckedAt = parseTimePtr(coverArtCheckedAt)
	rel.CreatedAt = parseTime(createdAt)
	rel.UpdatedAt = parseTime(updatedAt)

	return &rel, nil
}
