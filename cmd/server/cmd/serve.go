package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/ewm/internal/api"
	"github.com/Togather-Foundation/ewm/internal/audit"
	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/Togather-Foundation/ewm/internal/domain/annotation"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/requests"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
	"github.com/Togather-Foundation/ewm/internal/jobs"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/Togather-Foundation/ewm/internal/storage/postgres"
	"github.com/Togather-Foundation/ewm/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// serverOptions are flags shared by serve and stats.
type serverOptions struct {
	host    string
	port    int
	migrate bool
}

func (o serverOptions) apply(host *string, port *int) {
	if o.host != "" {
		*host = o.host
	}
	if o.port != 0 {
		*port = o.port
	}
}

func addServerFlags(cmd *cobra.Command, o *serverOptions, defaultPort int) {
	cmd.Flags().StringVar(&o.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&o.port, "port", 0, fmt.Sprintf("server port (default: %d)", defaultPort))
	cmd.Flags().BoolVar(&o.migrate, "migrate", false, "apply pending database migrations before serving")
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serverOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the main API server",
		Long: `Start the main Explore With Me API.

The server will:
- Load configuration from env vars (and the --config file if given)
- Connect to PostgreSQL and, with --migrate, apply pending migrations
- Start the River workers that deliver view hits to the stats service
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9000

  # Start with custom config file
  server serve --config /etc/ewm/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			opts.apply(&cfg.Server.Host, &cfg.Server.Port)
			return runServer(cmd.Context(), cfg, opts.migrate)
		},
	}
	addServerFlags(cmd, opts, 8080)
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, migrateFirst bool) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Logging, "ewm-main")
	logger.Info().Str("version", Version).Msg("starting main service")
	metrics.Init(Version, GitCommit, BuildDate, "main")

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, "main", Version)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer shutdownWithTimeout(shutdownTracing, logger, "tracing")

	if migrateFirst {
		if err := migrateUp(ctx, cfg, ""); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
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

	auditLogger := audit.NewLogger(logger)
	statsClient := stats.NewClient(cfg.Stats.URL, stats.WithRateLimit(cfg.Stats.RequestsPerSecond))
	counter := requests.NewCounter(repo.Requests())
	annotator := annotation.NewService(counter, statsClient, cfg.Stats.UniqueViews)

	var inserter jobs.Inserter
	if cfg.Jobs.Enabled {
		riverClient, err := jobs.NewClient(pool, cfg.Jobs, jobs.ClientOptions{
			Workers: jobs.NewWorkers(statsClient),
			Logger:  config.NewSlogLogger(cfg.Logging, "river"),
			Hooks:   []rivertype.Hook{metrics.NewJobMetricsHook()},
		})
		if err != nil {
			return fmt.Errorf("river client init failed: %w", err)
		}
		if err := riverClient.Start(ctx); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Msg("river workers started")
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("river workers shutdown error")
			}
		}()
		inserter = riverClient
	} else {
		logger.Warn().Msg("jobs disabled, hits are delivered inline")
	}
	hits := jobs.NewHitRecorder(cfg.Server.App, statsClient, inserter, logger)

	router := api.NewRouter(cfg, logger, api.Services{
		Events:     events.NewService(repo.EventStore(), annotator, hits, auditLogger, logger),
		Requests:   requests.NewService(repo.RequestStore(), logger),
		Users:      users.NewService(repo.Users(), auditLogger, logger),
		Categories: categories.NewService(repo.Categories(), auditLogger, logger),
		DB:         pool,
	}, buildInfo())
	defer router.Close()

	return listenAndServe(newHTTPServer(cfg.Server.Host, cfg.Server.Port, router.Handler), logger)
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}

	poolCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(poolCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return pool, nil
}

func newHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// listenAndServe serves until SIGINT/SIGTERM, then drains in-flight requests.
func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-stop:
	}
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}

func shutdownWithTimeout(fn func(context.Context) error, logger zerolog.Logger, what string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error().Err(err).Str("component", what).Msg("shutdown error")
	}
}
