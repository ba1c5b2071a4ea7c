package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/udisondev/statgraph/internal/db"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply database migrations",
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

			dsn := app.Database.DSN()
			if err := db.RunMigrations(ctx, dsn); err != nil {
				return WrapExitError(ExitCommandError, "migrating", err)
			}
			v, err := db.MigrationVersion(ctx, dsn)
			if err != nil {
				return WrapExitError(ExitCommandError, "reading schema version", err)
			}
			slog.Info("database migrated", "version", v)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return err
		},
	}
}
