package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/statgraph/internal/stat"
)

// ErrModifierSetNotFound is returned when no set has the requested name.
var ErrModifierSetNotFound = errors.New("modifier set not found")

// ModifierSetRepository stores named modifier sets (items, buffs, skills).
// Values are stored as text: literals in shortest round-trip form, formulas
// as written.
type ModifierSetRepository struct {
	db *pgxpool.Pool
}

// NewModifierSetRepository creates a new ModifierSetRepository.
func NewModifierSetRepository(db *pgxpool.Pool) *ModifierSetRepository {
	return &ModifierSetRepository{db: db}
}

// Save stores a set under its name, replacing any previous set with that
// name, and returns the new identifier.
func (r *ModifierSetRepository) Save(ctx context.Context, ms *stat.ModifierSet) (uuid.UUID, error) {
	id := uuid.Must(uuid.NewV7())

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM modifier_sets WHERE name = $1`, ms.Name); err != nil {
		return uuid.Nil, fmt.Errorf("replacing modifier set %q: %w", ms.Name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO modifier_sets (id, name) VALUES ($1, $2)`, id, ms.Name); err != nil {
		return uuid.Nil, fmt.Errorf("inserting modifier set %q: %w", ms.Name, err)
	}
	for i, e := range ms.Entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO modifier_set_entries (set_id, position, path, value) VALUES ($1, $2, $3, $4)`,
			id, i, e.Path, e.Modifier.String(),
		); err != nil {
			return uuid.Nil, fmt.Errorf("inserting entry %d of %q: %w", i, ms.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing modifier set %q: %w", ms.Name, err)
	}
	return id, nil
}

// Get loads a set by name. Formulas are compiled on load.
func (r *ModifierSetRepository) Get(ctx context.Context, name string) (*stat.ModifierSet, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM modifier_sets WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrModifierSetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying modifier set %q: %w", name, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT path, value
		FROM modifier_set_entries
		WHERE set_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying entries of %q: %w", name, err)
	}
	defer rows.Close()

	ms := stat.NewModifierSet(name)
	for rows.Next() {
		var path, value string
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		if err := ms.AddText(path, value); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry rows: %w", err)
	}
	return ms, nil
}

// List returns every set name, sorted.
func (r *ModifierSetRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM modifier_sets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying modifier sets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning modifier set row: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating modifier set rows: %w", err)
	}
	return names, nil
}

// Delete removes a set and its entries.
func (r *ModifierSetRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM modifier_sets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting modifier set %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrModifierSetNotFound, name)
	}
	return nil
}
