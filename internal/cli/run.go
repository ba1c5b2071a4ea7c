package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/udisondev/statgraph/internal/config"
	"github.com/udisondev/statgraph/internal/db"
	"github.com/udisondev/statgraph/internal/scenario"
	"github.com/udisondev/statgraph/internal/stat"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	UseDB bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a stat scenario and print its report",
		Long: `Run a scripted stat scenario and print one line per observation.

The scenario may be a local file or any URL the storage layer understands
(file://, mem://, s3://, gs://). Stat and tag sections embedded in the
scenario override the catalog.

Example:
  statcalc run testdata/tagged.yaml
  statcalc run --db s3://bucket/scenarios/raid.yaml`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.UseDB, "db", false, "load the catalog and modifier sets from the database")

	return cmd
}

func runScenario(ctx context.Context, opts *RunOptions, location string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := opts.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	env, err := loadEnv(ctx, app, opts.UseDB)
	if err != nil {
		return err
	}

	sc, err := scenario.Load(ctx, location)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading scenario", err)
	}
	slog.Info("running scenario", "name", sc.Name, "steps", len(sc.Steps))

	rep, err := scenario.Run(sc, env)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario failed", err)
	}
	return rep.Render(cmd.OutOrStdout())
}

// loadEnv builds the scenario environment from the config file, or from the
// stored catalog when useDB is set.
func loadEnv(ctx context.Context, app config.App, useDB bool) (scenario.Env, error) {
	if !useDB {
		env, err := scenario.NewEnv(app.Stats, app.Tags)
		if err != nil {
			return env, WrapExitError(ExitCommandError, "building catalog", err)
		}
		return env, nil
	}

	d, err := db.New(ctx, app.Database.DSN())
	if err != nil {
		return scenario.Env{}, WrapExitError(ExitCommandError, "opening database", err)
	}
	defer d.Close()

	cat, err := db.LoadCatalog(ctx, d.Pool())
	if err != nil {
		return scenario.Env{}, WrapExitError(ExitCommandError, "loading catalog", err)
	}
	cfg, reg, policy, err := cat.Build()
	if err != nil {
		return scenario.Env{}, WrapExitError(ExitCommandError, "building catalog", err)
	}

	repo := d.ModifierSets()
	names, err := repo.List(ctx)
	if err != nil {
		return scenario.Env{}, WrapExitError(ExitCommandError, "listing modifier sets", err)
	}
	sets := make(map[string]*stat.ModifierSet, len(names))
	for _, n := range names {
		ms, err := repo.Get(ctx, n)
		if err != nil {
			return scenario.Env{}, WrapExitError(ExitCommandError, "loading modifier set", err)
		}
		sets[n] = ms
	}
	slog.Debug("catalog loaded from database", "modifier_sets", len(sets))

	return scenario.Env{Config: cfg, Tags: reg, Policy: policy, Sets: sets}, nil
}
