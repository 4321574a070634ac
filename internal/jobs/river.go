package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindRecordHit = "record_hit"

	// QueueStats holds stats deliveries apart from other work so a slow
	// stats service only backs up its own queue.
	QueueStats = "stats"
)

// Backoff doubles the wait after each failed attempt, starting at Base and
// never exceeding Max. It is River's ClientRetryPolicy.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

var _ river.ClientRetryPolicy = Backoff{}

func (b Backoff) NextRetry(job *rivertype.JobRow) time.Time {
	from := time.Now()
	if job.AttemptedAt != nil {
		from = *job.AttemptedAt
	}
	return from.Add(b.delay(job.Attempt))
}

func (b Backoff) delay(attempt int) time.Duration {
	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			return b.Max
		}
	}
	return min(delay, b.Max)
}

// ClientOptions are the parts of a River client that vary between the
// service and its tests.
type ClientOptions struct {
	Workers *river.Workers
	Logger  *slog.Logger
	Hooks   []rivertype.Hook
}

// NewClientConfig maps the jobs settings onto a River configuration.
func NewClientConfig(cfg config.JobsConfig, opts ClientOptions) *river.Config {
	rc := &river.Config{
		Workers:     opts.Workers,
		MaxAttempts: cfg.MaxAttempts,
		RetryPolicy: Backoff{Base: cfg.RetryBase, Max: cfg.RetryMax},
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			QueueStats:         {MaxWorkers: cfg.StatsWorkers},
		},
		Hooks: opts.Hooks,
	}
	if opts.Logger != nil {
		rc.Logger = opts.Logger
		rc.ErrorHandler = &errorHandler{logger: opts.Logger}
	}
	return rc
}

func NewClient(pool *pgxpool.Pool, cfg config.JobsConfig, opts ClientOptions) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(cfg, opts))
}

// Migrate brings River's own tables up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("init river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	return nil
}

// errorHandler logs failed attempts. Returning nil leaves retries to the
// Backoff policy.
type errorHandler struct {
	logger *slog.Logger
}

func (h *errorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	level, msg := slog.LevelWarn, "job attempt failed, will retry"
	if job.Attempt >= job.MaxAttempts {
		level, msg = slog.LevelError, "job failed, giving up"
	}
	h.logger.Log(ctx, level, msg, "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempt, "error", err)
	return nil
}

func (h *errorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	h.logger.ErrorContext(ctx, "job panicked", "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempt,
		"panic", fmt.Sprint(panicVal), "trace", trace)
	return nil
}
