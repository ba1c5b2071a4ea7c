package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/statgraph/internal/config"
)

const settingTagPolicy = "tag_policy"

// TagRepository stores tag groups. Bits are assigned when the registry is
// built, so the stored order of groups and tags is significant.
type TagRepository struct {
	db *pgxpool.Pool
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db *pgxpool.Pool) *TagRepository {
	return &TagRepository{db: db}
}

// Load reads every group in registration order.
func (r *TagRepository) Load(ctx context.Context) (config.TagsSection, error) {
	var s config.TagsSection

	err := r.db.QueryRow(ctx,
		`SELECT value FROM catalog_settings WHERE key = $1`, settingTagPolicy,
	).Scan(&s.Policy)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return s, fmt.Errorf("querying tag policy: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT g.name, t.name, t.members
		FROM tag_groups g
		LEFT JOIN tags t ON t.group_name = g.name
		ORDER BY g.position, t.position
	`)
	if err != nil {
		return s, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var group string
		var tag *string
		var members []string
		if err := rows.Scan(&group, &tag, &members); err != nil {
			return s, fmt.Errorf("scanning tag row: %w", err)
		}

		i, ok := index[group]
		if !ok {
			i = len(s.Groups)
			index[group] = i
			s.Groups = append(s.Groups, config.TagGroup{Name: group})
		}
		if tag == nil {
			continue
		}
		g := &s.Groups[i]
		if len(members) > 0 {
			g.Composites = append(g.Composites, config.Composite{Name: *tag, Members: members})
		} else {
			g.Tags = append(g.Tags, *tag)
		}
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("iterating tag rows: %w", err)
	}

	return s, nil
}

// Save replaces every stored group in one transaction.
func (r *TagRepository) Save(ctx context.Context, s config.TagsSection) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM tag_groups`); err != nil {
		return fmt.Errorf("clearing tag groups: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO catalog_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		settingTagPolicy, s.Policy,
	); err != nil {
		return fmt.Errorf("saving tag policy: %w", err)
	}

	for gi, g := range s.Groups {
		if _, err := tx.Exec(ctx, `INSERT INTO tag_groups (name, position) VALUES ($1, $2)`, g.Name, gi); err != nil {
			return fmt.Errorf("inserting tag group %q: %w", g.Name, err)
		}

		pos := 0
		for _, tag := range g.Tags {
			if _, err := tx.Exec(ctx,
				`INSERT INTO tags (group_name, name, position) VALUES ($1, $2, $3)`,
				g.Name, tag, pos,
			); err != nil {
				return fmt.Errorf("inserting tag %q: %w", tag, err)
			}
			pos++
		}
		for _, c := range g.Composites {
			if _, err := tx.Exec(ctx,
				`INSERT INTO tags (group_name, name, members, position) VALUES ($1, $2, $3, $4)`,
				g.Name, c.Name, c.Members, pos,
			); err != nil {
				return fmt.Errorf("inserting composite %q: %w", c.Name, err)
			}
			pos++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tags: %w", err)
	}
	return nil
}
