package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dprodger/jazzref/internal/model"
)

// UpsertInstrument finds an instrument by case-insensitive name or
// creates it. Instruments are unique by name, so this is a
// find-or-create rather than a true upsert.
func (s *Store) UpsertInstrument(ctx context.Context, name string) (*model.Instrument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("instrument name is required")
	}

	row := s.conn().QueryRowContext(ctx,
		`SELECT id, name, created_at FROM instruments WHERE LOWER(name) = LOWER(?)`, name)
	inst, err := scanInstrument(row)
	if err == nil {
		return inst, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up instrument: %w", err)
	}

	inst = &model.Instrument{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	_, err = s.conn().ExecContext(ctx,
		`INSERT INTO instruments (id, name, created_at) VALUES (?, ?, ?)`,
		inst.ID, inst.Name, inst.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating instrument: %w", err)
	}
	return inst, nil
}

func scanInstrument(row scannable) (*model.Instrument, error) {
	var inst model.Instrument
	var createdAt string
	if err := row.Scan(&inst.ID, &inst.Name, &createdAt); err != nil {
		return nil, err
	}
	inst.CreatedAt = parseTime(createdAt)
	return &inst, nil
}
