package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/statgraph/internal/config"
)

const settingDefaultKind = "default_kind"

// StatConfigRepository stores stat types and relationships.
type StatConfigRepository struct {
	db *pgxpool.Pool
}

// NewStatConfigRepository creates a new StatConfigRepository.
func NewStatConfigRepository(db *pgxpool.Pool) *StatConfigRepository {
	return &StatConfigRepository{db: db}
}

// Load reads the whole stats section. Types keep their saved order.
func (r *StatConfigRepository) Load(ctx context.Context) (config.StatsSection, error) {
	var s config.StatsSection

	err := r.db.QueryRow(ctx,
		`SELECT value FROM catalog_settings WHERE key = $1`, settingDefaultKind,
	).Scan(&s.DefaultKind)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return s, fmt.Errorf("querying default kind: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(name, ''), COALESCE(pattern, ''), kind, total
		FROM stat_types
		ORDER BY position
	`)
	if err != nil {
		return s, fmt.Errorf("querying stat types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t config.StatType
		if err := rows.Scan(&t.Name, &t.Pattern, &t.Kind, &t.Total); err != nil {
			return s, fmt.Errorf("scanning stat type row: %w", err)
		}
		s.Types = append(s.Types, t)
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("iterating stat type rows: %w", err)
	}

	relRows, err := r.db.Query(ctx, `SELECT scope, target, relationship FROM stat_relationships ORDER BY scope, target`)
	if err != nil {
		return s, fmt.Errorf("querying stat relationships: %w", err)
	}
	defer relRows.Close()

	for relRows.Next() {
		var scope, target, rel string
		if err := relRows.Scan(&scope, &target, &rel); err != nil {
			return s, fmt.Errorf("scanning relationship row: %w", err)
		}
		switch scope {
		case "part":
			if s.Parts == nil {
				s.Parts = make(map[string]string)
			}
			s.Parts[target] = rel
		default:
			if s.Relationships == nil {
				s.Relationships = make(map[string]string)
			}
			s.Relationships[target] = rel
		}
	}
	if err := relRows.Err(); err != nil {
		return s, fmt.Errorf("iterating relationship rows: %w", err)
	}

	return s, nil
}

// Save replaces the stored stats section in one transaction.
func (r *StatConfigRepository) Save(ctx context.Context, s config.StatsSection) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, q := range []string{`DELETE FROM stat_types`, `DELETE FROM stat_relationships`} {
		if _, err := tx.Exec(ctx, q); err != nil {
			return fmt.Errorf("clearing stat catalog: %w", err)
		}
	}

	if s.DefaultKind == "" {
		_, err = tx.Exec(ctx, `DELETE FROM catalog_settings WHERE key = $1`, settingDefaultKind)
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO catalog_settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			settingDefaultKind, s.DefaultKind)
	}
	if err != nil {
		return fmt.Errorf("saving default kind: %w", err)
	}

	for i, t := range s.Types {
		if _, err := tx.Exec(ctx,
			`INSERT INTO stat_types (position, name, pattern, kind, total) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)`,
			i, t.Name, t.Pattern, t.Kind, t.Total,
		); err != nil {
			return fmt.Errorf("inserting stat type %d: %w", i, err)
		}
	}

	insertRel := `INSERT INTO stat_relationships (scope, target, relationship) VALUES ($1, $2, $3)`
	for target, rel := range s.Relationships {
		if _, err := tx.Exec(ctx, insertRel, "stat", target, rel); err != nil {
			return fmt.Errorf("inserting relationship %q: %w", target, err)
		}
	}
	for target, rel := range s.Parts {
		if _, err := tx.Exec(ctx, insertRel, "part", target, rel); err != nil {
			return fmt.Errorf("inserting part relationship %q: %w", target, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing stat catalog: %w", err)
	}
	return nil
}
