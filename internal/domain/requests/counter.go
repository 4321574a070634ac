package requests

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/ewm/internal/domain/events"
)

// Counter computes confirmed participation counts. Only published events can
// hold requests, so unpublished events are never queried and are absent from
// the result.
type Counter struct {
	repo CountRepository
}

func NewCounter(repo CountRepository) *Counter {
	return &Counter{repo: repo}
}

// CountConfirmed returns CONFIRMED request counts keyed by event id. Events
// without confirmed requests are absent from the map.
func (c *Counter) CountConfirmed(ctx context.Context, evts []events.Event) (map[string]int64, error) {
	ids := make([]string, 0, len(evts))
	for _, event := range evts {
		if event.IsPublished() {
			ids = append(ids, event.ID)
		}
	}
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}

	counts, err := c.repo.CountConfirmed(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count confirmed requests: %w", err)
	}
	return counts, nil
}
