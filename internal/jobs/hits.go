package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

type RecordHitArgs struct {
	Hit stats.Hit `json:"hit"`
}

func (RecordHitArgs) Kind() string { return JobKindRecordHit }

func (RecordHitArgs) InsertOpts() river.InsertOpts { return river.InsertOpts{Queue: QueueStats} }

// RecordHitWorker delivers a queued hit to the stats service.
type RecordHitWorker struct {
	river.WorkerDefaults[RecordHitArgs]
	Gateway stats.Gateway
}

// Timeout bounds one delivery attempt; a hung stats call is retried later.
func (w RecordHitWorker) Timeout(*river.Job[RecordHitArgs]) time.Duration {
	return 10 * time.Second
}

func (w RecordHitWorker) Work(ctx context.Context, job *river.Job[RecordHitArgs]) error {
	if job == nil {
		return fmt.Errorf("record hit job missing")
	}
	if err := w.Gateway.RecordHit(ctx, job.Args.Hit); err != nil {
		return fmt.Errorf("record hit %s: %w", job.Args.Hit.URI, err)
	}
	return nil
}

// NewWorkers registers every worker of this service.
func NewWorkers(gateway stats.Gateway) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[RecordHitArgs](workers, RecordHitWorker{Gateway: gateway})
	return workers
}

// Inserter is the part of a River client HitRecorder needs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

var _ events.HitRecorder = (*HitRecorder)(nil)

// HitRecorder hands hits to the stats service without ever failing the
// caller. With an Inserter it queues a record_hit job; otherwise, or when the
// insert fails, it calls the gateway inline and only logs errors.
type HitRecorder struct {
	app      string
	gateway  stats.Gateway
	inserter Inserter
	logger   zerolog.Logger
	now      func() time.Time
}

// NewHitRecorder builds a HitRecorder for app. inserter may be nil.
func NewHitRecorder(app string, gateway stats.Gateway, inserter Inserter, logger zerolog.Logger) *HitRecorder {
	return &HitRecorder{
		app:      app,
		gateway:  gateway,
		inserter: inserter,
		logger:   logger.With().Str("component", "hits").Logger(),
		now:      time.Now,
	}
}

func (r *HitRecorder) RecordHit(ctx context.Context, uri, ip string) {
	hit := stats.Hit{App: r.app, URI: uri, IP: ip, Timestamp: timestamp.New(r.now())}

	if r.inserter != nil {
		_, err := r.inserter.Insert(ctx, RecordHitArgs{Hit: hit}, nil)
		if err == nil {
			metrics.HitsRecorded.WithLabelValues("queued", "success").Inc()
			return
		}
		metrics.HitsRecorded.WithLabelValues("queued", "error").Inc()
		r.logger.Warn().Err(err).Str("uri", uri).Msg("enqueue hit failed, delivering inline")
	}

	if err := r.gateway.RecordHit(ctx, hit); err != nil {
		metrics.HitsRecorded.WithLabelValues("direct", "error").Inc()
		r.logger.Error().Err(err).Str("uri", uri).Msg("record hit failed")
		return
	}
	metrics.HitsRecorded.WithLabelValues("direct", "success").Inc()
}
