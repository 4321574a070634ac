package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Job metrics, labelled by job kind and queue.
var (
	JobsInserted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_inserted_total",
			Help:      "Total number of background jobs inserted",
		},
		[]string{"kind", "queue"},
	)

	JobsInFlight = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Background jobs currently being worked",
		},
		[]string{"kind"},
	)

	JobDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job attempt duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// JobAttempts counts finished attempts; result "retry" means a later
	// attempt is still allowed, "discard" means the job gave up.
	JobAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_attempts_total",
			Help:      "Total number of background job attempts by result",
		},
		[]string{"kind", "result"},
	)
)

// JobMetricsHook reports River job activity. Attempt durations come from the
// job row itself, so the hook keeps no state.
type JobMetricsHook struct {
	river.HookDefaults
	now func() time.Time
}

func NewJobMetricsHook() *JobMetricsHook {
	return &JobMetricsHook{now: time.Now}
}

func (h *JobMetricsHook) InsertBegin(ctx context.Context, params *rivertype.JobInsertParams) error {
	JobsInserted.WithLabelValues(params.Kind, params.Queue).Inc()
	return nil
}

func (h *JobMetricsHook) WorkBegin(ctx context.Context, job *rivertype.JobRow) error {
	JobsInFlight.WithLabelValues(job.Kind).Inc()
	return nil
}

func (h *JobMetricsHook) WorkEnd(ctx context.Context, job *rivertype.JobRow, err error) error {
	JobsInFlight.WithLabelValues(job.Kind).Dec()
	if job.AttemptedAt != nil {
		JobDuration.WithLabelValues(job.Kind).Observe(h.now().Sub(*job.AttemptedAt).Seconds())
	}

	result := "success"
	if err != nil {
		result = "retry"
		if job.Attempt >= job.MaxAttempts {
			result = "discard"
		}
	}
	JobAttempts.WithLabelValues(job.Kind, result).Inc()
	return nil
}
