package cmd

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/ewm/internal/api"
	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/Togather-Foundation/ewm/internal/storage/postgres"
	"github.com/Togather-Foundation/ewm/internal/telemetry"
	"github.com/spf13/cobra"
)

func newStatsCommand(global *globalOptions) *cobra.Command {
	opts := &serverOptions{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Start the stats service",
		Long: `Start the endpoint hit statistics service.

It stores hits posted to /hit and answers /stats queries. The main service
reaches it at STATS_URL; it listens on STATS_PORT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			opts.apply(&cfg.Server.Host, &cfg.Stats.Port)
			return runStatsServer(cmd.Context(), cfg, opts.migrate)
		},
	}
	addServerFlags(cmd, opts, 9090)
	return cmd
}

func runStatsServer(ctx context.Context, cfg config.Config, migrateFirst bool) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Logging, "ewm-stats")
	logger.Info().Str("version", Version).Msg("starting stats service")
	metrics.Init(Version, GitCommit, BuildDate, "stats")

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, "stats", Version)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer shutdownWithTimeout(shutdownTracing, logger, "tracing")

	if migrateFirst {
		if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
			return err
		}
	}

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := metrics.RegisterPool(pool); err != nil {
		return fmt.Errorf("pool metrics: %w", err)
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return err
	}

	router := api.NewStatsRouter(cfg, logger, stats.NewService(repo.Hits(), logger), pool, buildInfo())
	return listenAndServe(newHTTPServer(cfg.Server.Host, cfg.Stats.Port, router.Handler), logger)
}
