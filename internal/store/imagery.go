package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dprodger/jazzref/internal/model"
)

// UpsertReleaseImagery upserts one piece of cover art, keyed by
// (release_id, source, type).
func (s *Store) UpsertReleaseImagery(ctx context.Context, img *model.ReleaseImagery) error {
	if img.ReleaseID == "" {
		return fmt.Errorf("release_id is required")
	}
	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if img.CreatedAt.IsZero() {
		img.CreatedAt = now
	}
	img.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO release_imagery (id, release_id, source, type, small_url, medium_url, large_url, source_id, source_url, checksum, approved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(release_id, source, type) DO UPDATE SET
			small_url = excluded.small_url,
			medium_url = excluded.medium_url,
			large_url = excluded.large_url,
			source_id = excluded.source_id,
			source_url = excluded.source_url,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`,
		img.ID, img.ReleaseID, img.Source, img.Type,
		nullableString(img.SmallURL), nullableString(img.MediumURL), nullableString(img.LargeURL),
		nullableString(img.SourceID), nullableString(img.SourceURL), nullableString(img.Checksum), img.Approved,
		img.CreatedAt.Format(time.RFC3339), img.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting release imagery: %w", err)
	}
	return nil
}

// UpsertArtistImage stores a licensed performer portrait and links it to
// a performer. Images are content-addressed by URL: re-discovering the
// same URL updates the existing row instead of duplicating it.
func (s *Store) UpsertArtistImage(ctx context.Context, performerID string, img *model.ArtistImage) error {
	if img.URL == "" {
		return fmt.Errorf("image url is required")
	}
	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO artist_images (id, url, license, attribution, source_page, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			license = excluded.license,
			attribution = excluded.attribution,
			source_page = excluded.source_page
	`,
		img.ID, img.URL, img.License, nullableString(img.Attribution), nullableString(img.SourcePage),
		img.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting artist image: %w", err)
	}

	var imageID string
	if err := s.conn().QueryRowContext(ctx, `SELECT id FROM artist_images WHERE url = ?`, img.URL).Scan(&imageID); err != nil {
		return fmt.Errorf("resolving artist image id: %w", err)
	}

	_, err = s.conn().ExecContext(ctx, `
		INSERT INTO artist_image_links (performer_id, image_id) VALUES (?, ?)
		ON CONFLICT(performer_id, image_id) DO NOTHING
	`, performerID, imageID)
	if err != nil {
		return fmt.Errorf("linking artist image to performer: %w", err)
	}
	return nil
}
