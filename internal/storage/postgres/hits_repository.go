package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/Togather-Foundation/ewm/internal/stats"
)

var _ stats.HitRepository = (*HitRepository)(nil)

// HitRepository backs the stats service.
type HitRepository struct {
	conn
}

func (r *HitRepository) Save(ctx context.Context, hit stats.Hit) (stats.Hit, error) {
	err := r.queryer().QueryRow(ctx,
		`INSERT INTO endpoint_hits (app, uri, ip, timestamp) VALUES ($1, $2, $3, $4) RETURNING id`,
		hit.App, hit.URI, hit.IP, hit.Timestamp).Scan(&hit.ID)
	if err != nil {
		return stats.Hit{}, fmt.Errorf("insert hit: %w", err)
	}
	return hit, nil
}

// Aggregate counts hits per (app, uri) between query.Start and query.End
// inclusive, counting each ip once when query.Unique is set.
func (r *HitRepository) Aggregate(ctx context.Context, query stats.Query) ([]stats.ViewStats, error) {
	count := "COUNT(h.ip)"
	if query.Unique {
		count = "COUNT(DISTINCT h.ip)"
	}

	start := time.Now()
	rows, err := r.queryer().Query(ctx, `
SELECT h.app, h.uri, `+count+` AS hits
  FROM endpoint_hits h
 WHERE h.timestamp BETWEEN $1 AND $2
   AND (cardinality($3::text[]) = 0 OR h.uri = ANY($3))
 GROUP BY h.app, h.uri
 ORDER BY hits DESC, h.app, h.uri
`, query.Start, query.End, nonNil(query.URIs))
	if err != nil {
		metrics.RecordQuery("hits.aggregate", start, err)
		return nil, fmt.Errorf("aggregate hits: %w", err)
	}
	defer rows.Close()

	items := make([]stats.ViewStats, 0)
	for rows.Next() {
		var item stats.ViewStats
		if err := rows.Scan(&item.App, &item.URI, &item.Hits); err != nil {
			return nil, fmt.Errorf("scan hits: %w", err)
		}
		items = append(items, item)
	}
	err = rows.Err()
	metrics.RecordQuery("hits.aggregate", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return items, nil
}
