package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/statgraph/internal/config"
	"github.com/udisondev/statgraph/internal/stat"
)

// Catalog is the stored stat configuration, in the same shape as the YAML
// sections so both sources build through the same code.
type Catalog struct {
	Stats config.StatsSection
	Tags  config.TagsSection
}

// LoadCatalog reads stat types and tags concurrently.
func LoadCatalog(ctx context.Context, pool *pgxpool.Pool) (Catalog, error) {
	var c Catalog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := NewStatConfigRepository(pool).Load(gctx)
		if err != nil {
			return fmt.Errorf("loading stat types: %w", err)
		}
		c.Stats = s
		return nil
	})
	g.Go(func() error {
		t, err := NewTagRepository(pool).Load(gctx)
		if err != nil {
			return fmt.Errorf("loading tags: %w", err)
		}
		c.Tags = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return Catalog{}, err
	}

	slog.Debug("stat catalog loaded", "types", len(c.Stats.Types), "tag_groups", len(c.Tags.Groups))
	return c, nil
}

// SaveCatalog stores both sections.
func SaveCatalog(ctx context.Context, pool *pgxpool.Pool, c Catalog) error {
	if err := NewStatConfigRepository(pool).Save(ctx, c.Stats); err != nil {
		return err
	}
	return NewTagRepository(pool).Save(ctx, c.Tags)
}

// Build turns the catalog into the objects the stat engine consumes.
func (c Catalog) Build() (*stat.Config, *stat.TagRegistry, stat.BitPolicy, error) {
	cfg, err := c.Stats.Build()
	if err != nil {
		return nil, nil, stat.Permissive, err
	}
	reg, policy, err := c.Tags.Build()
	if err != nil {
		return nil, nil, policy, err
	}
	return cfg, reg, policy, nil
}
