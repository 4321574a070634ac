package cmd

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/Togather-Foundation/ewm/internal/jobs"
	"github.com/Togather-Foundation/ewm/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(global *globalOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Long: `Manage the PostgreSQL schema.

Migrations compiled into the binary are used unless --path points at a
directory of *.sql files.`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: embedded)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := migrateUp(cmd.Context(), cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last --steps migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be > 0")
			}
			cfg, err := global.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			migrator, err := postgres.NewMigrator(cfg.Database.URL, path)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }()
			if err := migrator.Down(steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			migrator, err := postgres.NewMigrator(cfg.Database.URL, path)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }()

			version, err := migrator.Version()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), describeSchemaVersion(version))
			if version.Dirty {
				return fmt.Errorf("schema is dirty at version %d, fix it by hand and force the version", version.Version)
			}
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

// migrateUp applies the schema and, when jobs are enabled, River's tables.
func migrateUp(ctx context.Context, cfg config.Config, path string) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if err := postgres.MigrateUp(cfg.Database.URL, path); err != nil {
		return err
	}
	if !cfg.Jobs.Enabled {
		return nil
	}

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	return jobs.Migrate(ctx, pool)
}

func describeSchemaVersion(v postgres.SchemaVersion) string {
	switch {
	case v.Empty:
		return "no migrations applied"
	case v.Dirty:
		return fmt.Sprintf("version %d (dirty)", v.Version)
	default:
		return fmt.Sprintf("version %d", v.Version)
	}
}
