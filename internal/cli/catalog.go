package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/udisondev/statgraph/internal/db"
	"github.com/udisondev/statgraph/internal/scenario"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the stored stat catalog",
	}
	cmd.AddCommand(newCatalogImportCommand(rootOpts))
	return cmd
}

func newCatalogImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Store the stats and tags sections of the config file",
		Long: `Validate the stats and tags sections of the config file and replace
the stored catalog with them.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := rootOpts.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cat := db.Catalog{Stats: app.Stats, Tags: app.Tags}
			if _, _, _, err := cat.Build(); err != nil {
				return WrapExitError(ExitCommandError, "invalid catalog", err)
			}

			d, err := db.New(ctx, app.Database.DSN())
			if err != nil {
				return WrapExitError(ExitCommandError, "opening database", err)
			}
			defer d.Close()

			if err := db.SaveCatalog(ctx, d.Pool(), cat); err != nil {
				return WrapExitError(ExitCommandError, "saving catalog", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %d stat types, %d tag groups\n",
				len(cat.Stats.Types), len(cat.Tags.Groups))
			return err
		},
	}
}

// NewSetsCommand creates the sets command group.
func NewSetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Manage stored modifier sets",
	}
	cmd.AddCommand(newSetsImportCommand(rootOpts))
	cmd.AddCommand(newSetsListCommand(rootOpts))
	cmd.AddCommand(newSetsDeleteCommand(rootOpts))
	return cmd
}

func newSetsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "import <scenario>",
		Short:        "Store the modifier sets declared by a scenario",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, rootOpts, func(ctx context.Context, d *db.DB, env scenario.Env) error {
				sc, err := scenario.Load(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "loading scenario", err)
				}
				env, err = env.With(sc)
				if err != nil {
					return WrapExitError(ExitCommandError, "building catalog", err)
				}
				sets, err := env.ModifierSets(sc.Sets)
				if err != nil {
					return WrapExitError(ExitCommandError, "building modifier sets", err)
				}
				for _, ms := range sets {
					id, err := d.ModifierSets().Save(ctx, ms)
					if err != nil {
						return WrapExitError(ExitCommandError, "saving modifier set", err)
					}
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d entries)\n", id, ms.Name, ms.Len()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newSetsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List stored modifier sets",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, rootOpts, func(ctx context.Context, d *db.DB, _ scenario.Env) error {
				names, err := d.ModifierSets().List(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "listing modifier sets", err)
				}
				for _, n := range names {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), n); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newSetsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "delete <name>",
		Short:        "Delete a stored modifier set",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, rootOpts, func(ctx context.Context, d *db.DB, _ scenario.Env) error {
				if err := d.ModifierSets().Delete(ctx, args[0]); err != nil {
					return WrapExitError(ExitFailure, "deleting modifier set", err)
				}
				return nil
			})
		},
	}
}

// withDB loads config, opens the database and hands both to fn. The env is
// built from the config file.
func withDB(cmd *cobra.Command, rootOpts *RootOptions, fn func(context.Context, *db.DB, scenario.Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := rootOpts.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	env, err := scenario.NewEnv(app.Stats, app.Tags)
	if err != nil {
		return WrapExitError(ExitCommandError, "building catalog", err)
	}

	d, err := db.New(ctx, app.Database.DSN())
	if err != nil {
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer d.Close()

	return fn(ctx, d, env)
}
