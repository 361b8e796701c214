package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dprodger/jazzref/internal/model"
	"github.com/dprodger/jazzref/internal/normalize"
	"github.com/dprodger/jazzref/internal/resolve"
)

const performerColumns = `id, name, sort_name, biography, birth_date, death_date, external_artist_id, disambiguation, artist_type, created_at, updated_at`

// UpsertPerformer creates or updates a performer by ID.
func (s *Store) UpsertPerformer(ctx context.Context, p *model.Performer) error {
	if p.Name == "" {
		return fmt.Errorf("performer name is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.ArtistType == "" {
		p.ArtistType = model.ArtistTypePerson
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.conn().ExecContext(ctx, `
		INSERT INTO performers (id, name, sort_name, biography, birth_date, death_date, external_artist_id, disambiguation, artist_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sort_name = excluded.sort_name,
			biography = excluded.biography,
			birth_date = excluded.birth_date,
			death_date = excluded.death_date,
			external_artist_id = excluded.external_artist_id,
			disambiguation = excluded.disambiguation,
			artist_type = excluded.artist_type,
			updated_at = excluded.updated_at
	`,
		p.ID, p.Name, nullableString(p.SortName), nullableString(p.Biography),
		nullableString(p.BirthDate), nullableString(p.DeathDate), nullableString(p.ExternalArtistID),
		nullableString(p.Disambiguation), p.ArtistType,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting performer: %w", err)
	}
	return nil
}

// GetPerformer retrieves a performer by primary key. Returns nil, nil if absent.
func (s *Store) GetPerformer(ctx context.Context, id string) (*model.Performer, error) {
	row := s.conn().QueryRowContext(ctx, `SELECT `+performerColumns+` FROM performers WHERE id = ?`, id)
	return scanPerformerOrNil(row)
}

// FindPerformerByExternalArtistID implements resolve.PerformerLookup.
func (s *Store) FindPerformerByExternalArtistID(ctx context.Context, id string) (*model.Performer, error) {
	if id == "" {
		return nil, nil
	}
	row := s.conn().QueryRowContext(ctx, `SELECT `+performerColumns+` FROM performers WHERE external_artist_id = ?`, id)
	return scanPerformerOrNil(row)
}

// FindPerformerByNormalizedName implements resolve.PerformerLookup.
func (s *Store) FindPerformerByNormalizedName(ctx context.Context, normalizedName string) (*model.Performer, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT `+performerColumns+` FROM performers`)
	if err != nil {
		return nil, fmt.Errorf("scanning performers for exact-name match: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		p, err := scanPerformer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning performer: %w", err)
		}
		if normalize.Title(p.Name) == normalizedName {
			return p, nil
		}
	}
	return nil, rows.Err()
}

// FuzzyPerformerCandidates implements resolve.PerformerLookup. birthYear,
// when nonzero, is compared against each candidate's birth_date year to
// set SecondaryMatch.
func (s *Store) FuzzyPerformerCandidates(ctx context.Context, _ string, birthYear int) ([]resolve.Candidate, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT id, name, birth_date FROM performers`)
	if err != nil {
		return nil, fmt.Errorf("listing performer candidates: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var candidates []resolve.Candidate
	for rows.Next() {
		var id, name string
		var birthDate sql.NullString
		if err := rows.Scan(&id, &name, &birthDate); err != nil {
			return nil, fmt.Errorf("scanning performer candidate: %w", err)
		}
		year := yearOf(birthDate.String)
		candidates = append(candidates, resolve.Candidate{
			ID:             id,
			Name:           name,
			SecondaryYear:  year,
			SecondaryMatch: birthYear != 0 && year == birthYear,
		})
	}
	return candidates, rows.Err()
}

func yearOf(dateStr string) int {
	if len(dateStr) < 4 {
		return 0
	}
	y, err := strconv.Atoi(dateStr[:4])
	if err != nil {
		return 0
	}
	return y
}

func scanPerformerOrNil(row scannable) (*model.Performer, error) {
	p, err := scanPerformer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPerformer(row scannable) (*model.Performer, error) {
	var p model.Performer
	var sortName, biography, birthDate, deathDate, externalArtistID, disambiguation sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&p.ID, &p.Name, &sortName, &biography, &birthDate, &deathDate,
		&externalArtistID, &disambiguation, &p.ArtistType,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SortName = sortName.String
	p.Biography = biography.String
	p.BirthDate = birthDate.String
	p.DeathDate = deathDate.String
	p.ExternalArtistID = externalArtistID.String
	p.Disambiguation = disambiguation.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	return &p, nil
}
