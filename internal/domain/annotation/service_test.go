package annotation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type counterFunc func(ctx context.Context, evts []events.Event) (map[string]int64, error)

func (f counterFunc) CountConfirmed(ctx context.Context, evts []events.Event) (map[string]int64, error) {
	return f(ctx, evts)
}

type fakeGateway struct {
	queries []stats.Query
	rows    []stats.ViewStats
	err     error
}

func (f *fakeGateway) RecordHit(context.Context, stats.Hit) error { return nil }

func (f *fakeGateway) QueryHits(_ context.Context, query stats.Query) ([]stats.ViewStats, error) {
	f.queries = append(f.queries, query)
	return f.rows, f.err
}

func published(id string, at time.Time) events.Event {
	return events.Event{ID: id, State: events.StatePublished, PublishedOn: &at}
}

func newTestService(counts map[string]int64, gateway *fakeGateway) *Service {
	svc := NewService(counterFunc(func(context.Context, []events.Event) (map[string]int64, error) {
		return counts, nil
	}), gateway, false)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestAnnotateJoinsCounts(t *testing.T) {
	gateway := &fakeGateway{rows: []stats.ViewStats{
		{App: "ewm-main-service", URI: "/events/b", Hits: 9},
		{App: "ewm-main-service", URI: "/events/a", Hits: 4},
	}}
	svc := newTestService(map[string]int64{"a": 2}, gateway)

	views, err := svc.Annotate(context.Background(), []events.Event{
		published("a", testNow.Add(-time.Hour)),
		published("b", testNow.Add(-3*time.Hour)),
	})

	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "a", views[0].ID)
	require.Equal(t, int64(2), views[0].ConfirmedRequests)
	require.Equal(t, int64(4), views[0].Views)
	require.Equal(t, int64(0), views[1].ConfirmedRequests)
	require.Equal(t, int64(9), views[1].Views)

	require.Len(t, gateway.queries, 1)
	query := gateway.queries[0]
	require.Equal(t, testNow.Add(-3*time.Hour), query.Start)
	require.Equal(t, testNow, query.End)
	require.Equal(t, []string{"/events/a", "/events/b"}, query.URIs)
	require.False(t, query.Unique)
}

func TestAnnotateUnpublishedIsZero(t *testing.T) {
	gateway := &fakeGateway{rows: []stats.ViewStats{{URI: "/events/p", Hits: 5}}}
	svc := newTestService(map[string]int64{"p": 3}, gateway)

	views, err := svc.Annotate(context.Background(), []events.Event{{ID: "p", State: events.StatePending}})

	require.NoError(t, err)
	require.Zero(t, views[0].ConfirmedRequests)
	require.Zero(t, views[0].Views)
	require.Empty(t, gateway.queries)
}

func TestAnnotateEmptyInput(t *testing.T) {
	svc := newTestService(nil, &fakeGateway{})

	views, err := svc.Annotate(context.Background(), nil)

	require.NoError(t, err)
	require.NotNil(t, views)
	require.Empty(t, views)
}

func TestAnnotateIgnoresForeignURIs(t *testing.T) {
	gateway := &fakeGateway{rows: []stats.ViewStats{{URI: "/events", Hits: 100}, {URI: "/events/a", Hits: 1}}}
	svc := newTestService(nil, gateway)

	views, err := svc.Annotate(context.Background(), []events.Event{published("a", testNow.Add(-time.Minute))})

	require.NoError(t, err)
	require.Equal(t, int64(1), views[0].Views)
}

func TestAnnotatePropagatesErrors(t *testing.T) {
	boom := errors.New("stats down")
	svc := newTestService(nil, &fakeGateway{err: boom})

	_, err := svc.Annotate(context.Background(), []events.Event{published("a", testNow.Add(-time.Minute))})

	require.ErrorIs(t, err, boom)
}
