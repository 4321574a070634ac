// Package annotation joins events with their confirmed participant counts and
// their view counts from the stats service.
package annotation

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/ids"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/Togather-Foundation/ewm/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = telemetry.Tracer("ewm/annotation")

var _ events.Annotator = (*Service)(nil)

type Service struct {
	counter     events.ConfirmedCounter
	gateway     stats.Gateway
	uniqueViews bool
	now         func() time.Time
}

// NewService builds an annotator. uniqueViews selects distinct-IP view counts.
func NewService(counter events.ConfirmedCounter, gateway stats.Gateway, uniqueViews bool) *Service {
	return &Service{
		counter:     counter,
		gateway:     gateway,
		uniqueViews: uniqueViews,
		now:         time.Now,
	}
}

// Annotate returns one View per event in input order. Unpublished events
// always carry zero confirmed requests and zero views.
func (s *Service) Annotate(ctx context.Context, evts []events.Event) ([]events.View, error) {
	if len(evts) == 0 {
		return []events.View{}, nil
	}

	ctx, span := tracer.Start(ctx, "annotation.Annotate")
	defer span.End()
	span.SetAttributes(attribute.Int("events.count", len(evts)))

	var confirmed map[string]int64
	var views map[string]int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.counter.CountConfirmed(gctx, evts)
		if err != nil {
			return fmt.Errorf("count confirmed requests: %w", err)
		}
		confirmed = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.views(gctx, evts)
		if err != nil {
			return fmt.Errorf("fetch views: %w", err)
		}
		views = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]events.View, 0, len(evts))
	for _, event := range evts {
		view := events.View{Event: event}
		if event.IsPublished() {
			view.ConfirmedRequests = confirmed[event.ID]
			view.Views = views[event.ID]
		}
		out = append(out, view)
	}
	return out, nil
}

// views queries the stats service for the published events, over the window
// starting at the earliest publication time.
func (s *Service) views(ctx context.Context, evts []events.Event) (map[string]int64, error) {
	var start *time.Time
	var published []string
	for _, event := range evts {
		if !event.IsPublished() || event.PublishedOn == nil {
			continue
		}
		published = append(published, event.ID)
		if start == nil || event.PublishedOn.Before(*start) {
			start = event.PublishedOn
		}
	}
	if len(published) == 0 {
		return map[string]int64{}, nil
	}

	end := s.now().UTC()
	if start.After(end) {
		end = *start
	}
	rows, err := s.gateway.QueryHits(ctx, stats.Query{
		Start:  *start,
		End:    end,
		URIs:   ids.EventURIs(published),
		Unique: s.uniqueViews,
	})
	if err != nil {
		return nil, err
	}

	views := make(map[string]int64, len(rows))
	for _, row := range rows {
		id, err := ids.ParseEventURI(row.URI)
		if err != nil {
			continue
		}
		views[id] += row.Hits
	}
	return views, nil
}
