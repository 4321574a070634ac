package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	hits []stats.Hit
	err  error
}

func (g *fakeGateway) RecordHit(_ context.Context, hit stats.Hit) error {
	if g.err != nil {
		return g.err
	}
	g.hits = append(g.hits, hit)
	return nil
}

func (g *fakeGateway) QueryHits(context.Context, stats.Query) ([]stats.ViewStats, error) {
	return nil, nil
}

type fakeInserter struct {
	args []river.JobArgs
	err  error
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.args = append(f.args, args)
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{Kind: args.Kind()}}, nil
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newRecorder(gateway stats.Gateway, inserter Inserter) *HitRecorder {
	r := NewHitRecorder("ewm-main-service", gateway, inserter, zerolog.Nop())
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestRecordHitEnqueuesWhenQueueAvailable(t *testing.T) {
	gateway := &fakeGateway{}
	inserter := &fakeInserter{}
	before := testutil.ToFloat64(metrics.HitsRecorded.WithLabelValues("queued", "success"))

	newRecorder(gateway, inserter).RecordHit(context.Background(), "/events/1", "10.0.0.1")

	require.Len(t, inserter.args, 1)
	args, ok := inserter.args[0].(RecordHitArgs)
	require.True(t, ok)
	require.Equal(t, "ewm-main-service", args.Hit.App)
	require.Equal(t, "/events/1", args.Hit.URI)
	require.Equal(t, "10.0.0.1", args.Hit.IP)
	require.Equal(t, "2026-05-01 12:00:00", args.Hit.Timestamp.String())
	require.Empty(t, gateway.hits)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.HitsRecorded.WithLabelValues("queued", "success")))
}

func TestRecordHitDeliversInlineWithoutQueue(t *testing.T) {
	gateway := &fakeGateway{}

	newRecorder(gateway, nil).RecordHit(context.Background(), "/events", "10.0.0.2")

	require.Len(t, gateway.hits, 1)
	require.Equal(t, "/events", gateway.hits[0].URI)
}

func TestRecordHitFallsBackWhenEnqueueFails(t *testing.T) {
	gateway := &fakeGateway{}
	inserter := &fakeInserter{err: errors.New("queue down")}

	newRecorder(gateway, inserter).RecordHit(context.Background(), "/events/2", "10.0.0.3")

	require.Len(t, gateway.hits, 1)
	require.Equal(t, "/events/2", gateway.hits[0].URI)
}

func TestRecordHitSwallowsGatewayErrors(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("stats unavailable")}
	before := testutil.ToFloat64(metrics.HitsRecorded.WithLabelValues("direct", "error"))

	require.NotPanics(t, func() {
		newRecorder(gateway, nil).RecordHit(context.Background(), "/events/3", "10.0.0.4")
	})
	require.Equal(t, before+1, testutil.ToFloat64(metrics.HitsRecorded.WithLabelValues("direct", "error")))
}

func TestRecordHitWorker(t *testing.T) {
	gateway := &fakeGateway{}
	worker := RecordHitWorker{Gateway: gateway}
	hit := stats.Hit{App: "ewm-main-service", URI: "/events/4", IP: "10.0.0.5"}

	err := worker.Work(context.Background(), &river.Job[RecordHitArgs]{Args: RecordHitArgs{Hit: hit}})
	require.NoError(t, err)
	require.Equal(t, []stats.Hit{hit}, gateway.hits)

	require.Error(t, worker.Work(context.Background(), nil))
}

func TestRecordHitWorkerReturnsGatewayErrorForRetry(t *testing.T) {
	boom := errors.New("stats unavailable")
	worker := RecordHitWorker{Gateway: &fakeGateway{err: boom}}

	err := worker.Work(context.Background(), &river.Job[RecordHitArgs]{Args: RecordHitArgs{Hit: stats.Hit{URI: "/events/5"}}})
	require.ErrorIs(t, err, boom)
}

func TestRecordHitArgs(t *testing.T) {
	args := RecordHitArgs{}
	require.Equal(t, JobKindRecordHit, args.Kind())
	require.Equal(t, QueueStats, args.InsertOpts().Queue)
	require.NotNil(t, NewWorkers(&fakeGateway{}))
}
