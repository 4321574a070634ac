// Package stats records endpoint hits and reports view counts.
//
// Client talks to a remote stats service over HTTP; Service is that service's
// own logic on top of a HitRepository.
package stats

import (
	"context"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
)

// Hit is one request to a tracked URI.
type Hit struct {
	ID        int64               `json:"id,omitempty"`
	App       string              `json:"app" validate:"required,max=255"`
	URI       string              `json:"uri" validate:"required,max=2048"`
	IP        string              `json:"ip" validate:"required,max=64"`
	Timestamp timestamp.Timestamp `json:"timestamp"`
}

// ViewStats is the hit count of one URI of one application.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// Query selects hits recorded between Start and End inclusive. An empty URIs
// list matches every URI; Unique counts distinct IPs only.
type Query struct {
	Start  time.Time
	End    time.Time
	URIs   []string
	Unique bool
}

func (q Query) Validate() error {
	if q.Start.After(q.End) {
		return errs.ValidationError{Field: "end", Message: "must not be before start"}
	}
	return nil
}

// Gateway is the stats surface the main service depends on.
type Gateway interface {
	RecordHit(ctx context.Context, hit Hit) error
	QueryHits(ctx context.Context, query Query) ([]ViewStats, error)
}
