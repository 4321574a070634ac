package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
)

func TestBackoffNextRetry(t *testing.T) {
	backoff := Backoff{Base: 5 * time.Second, Max: 10 * time.Minute}
	attempted := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first attempt", 1, 5 * time.Second},
		{"third attempt", 3, 20 * time.Second},
		{"capped", 20, 10 * time.Minute},
		{"zero attempt treated as first", 0, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &rivertype.JobRow{Kind: JobKindRecordHit, Attempt: tt.attempt, AttemptedAt: &attempted}
			require.Equal(t, tt.want, backoff.NextRetry(job).Sub(attempted))
		})
	}
}

func TestBackoffWithoutAttemptTime(t *testing.T) {
	backoff := Backoff{Base: time.Minute, Max: time.Hour}
	before := time.Now()

	next := backoff.NextRetry(&rivertype.JobRow{Attempt: 1})

	require.WithinDuration(t, before.Add(time.Minute), next, time.Second)
}

func TestNewClientConfig(t *testing.T) {
	jobs := config.JobsConfig{Enabled: true, StatsWorkers: 3, MaxAttempts: 6, RetryBase: time.Second, RetryMax: time.Minute}
	workers := river.NewWorkers()

	rc := NewClientConfig(jobs, ClientOptions{Workers: workers, Logger: slog.Default()})

	require.Same(t, workers, rc.Workers)
	require.Equal(t, 6, rc.MaxAttempts)
	require.Equal(t, Backoff{Base: time.Second, Max: time.Minute}, rc.RetryPolicy)
	require.Equal(t, 3, rc.Queues[QueueStats].MaxWorkers)
	require.Contains(t, rc.Queues, river.QueueDefault)
	require.NotNil(t, rc.ErrorHandler)

	rc = NewClientConfig(jobs, ClientOptions{Workers: workers})
	require.Nil(t, rc.ErrorHandler)
}

func TestErrorHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	handler := &errorHandler{logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	ctx := context.Background()

	handler.HandleError(ctx, &rivertype.JobRow{ID: 1, Kind: JobKindRecordHit, Attempt: 1, MaxAttempts: 3}, errors.New("stats down"))
	require.Contains(t, buf.String(), `"level":"WARN"`)
	require.Contains(t, buf.String(), "will retry")

	buf.Reset()
	handler.HandleError(ctx, &rivertype.JobRow{ID: 1, Kind: JobKindRecordHit, Attempt: 3, MaxAttempts: 3}, errors.New("stats down"))
	require.Contains(t, buf.String(), `"level":"ERROR"`)
	require.Contains(t, buf.String(), "giving up")
}
