package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/requests"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/jackc/pgx/v5"
)

var _ requests.Repository = (*RequestRepository)(nil)

type RequestRepository struct {
	conn
}

const selectRequests = `SELECT id, event_id, requester_id, created, status FROM requests`

func scanRequest(row pgx.Row) (requests.Request, error) {
	var (
		request requests.Request
		status  string
	)
	if err := row.Scan(&request.ID, &request.EventID, &request.RequesterID, &request.Created, &status); err != nil {
		return requests.Request{}, err
	}
	request.Created = request.Created.UTC()
	request.Status = requests.Status(status)
	return request, nil
}

func (r *RequestRepository) list(ctx context.Context, op, query string, args ...any) ([]requests.Request, error) {
	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]requests.Request, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requests: %w", err)
		}
		items = append(items, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return items, nil
}

func (r *RequestRepository) Create(ctx context.Context, request requests.Request) error {
	_, err := r.queryer().Exec(ctx,
		`INSERT INTO requests (id, event_id, requester_id, created, status) VALUES ($1, $2, $3, $4, $5)`,
		request.ID, request.EventID, request.RequesterID, request.Created, string(request.Status))
	if err != nil {
		return fmt.Errorf("create request: %w", conflict(err, "request"))
	}
	return nil
}

func (r *RequestRepository) Get(ctx context.Context, id string) (requests.Request, error) {
	request, err := scanRequest(r.queryer().QueryRow(ctx, selectRequests+` WHERE id = $1`, id))
	if err != nil {
		return requests.Request{}, fmt.Errorf("get request: %w", notFound(err, "request", id))
	}
	return request, nil
}

func (r *RequestRepository) Update(ctx context.Context, request requests.Request) error {
	tag, err := r.queryer().Exec(ctx, `UPDATE requests SET status = $2 WHERE id = $1`, request.ID, string(request.Status))
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update request: %w", notFound(pgx.ErrNoRows, "request", request.ID))
	}
	return nil
}

func (r *RequestRepository) Exists(ctx context.Context, eventID, requesterID string) (bool, error) {
	var exists bool
	err := r.queryer().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM requests WHERE event_id = $1 AND requester_id = $2)`,
		eventID, requesterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check request: %w", err)
	}
	return exists, nil
}

func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]requests.Request, error) {
	return r.list(ctx, "list requests by requester",
		selectRequests+` WHERE requester_id = $1 ORDER BY created, id`, requesterID)
}

func (r *RequestRepository) ListByEvent(ctx context.Context, eventID string) ([]requests.Request, error) {
	return r.list(ctx, "list requests by event",
		selectRequests+` WHERE event_id = $1 ORDER BY created, id`, eventID)
}

func (r *RequestRepository) ListByEventAndIDs(ctx context.Context, eventID string, requestIDs []string) ([]requests.Request, error) {
	if len(requestIDs) == 0 {
		return []requests.Request{}, nil
	}
	return r.list(ctx, "list requests by ids",
		selectRequests+` WHERE event_id = $1 AND id = ANY($2) ORDER BY created, id`, eventID, requestIDs)
}

func (r *RequestRepository) SetStatus(ctx context.Context, requestIDs []string, status requests.Status) error {
	if len(requestIDs) == 0 {
		return nil
	}
	if _, err := r.queryer().Exec(ctx, `UPDATE requests SET status = $2 WHERE id = ANY($1)`,
		requestIDs, string(status)); err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	return nil
}

func (r *RequestRepository) RejectPending(ctx context.Context, eventID string) ([]requests.Request, error) {
	rejected, err := r.list(ctx, "reject pending requests", `
UPDATE requests
   SET status = 'REJECTED'
 WHERE event_id = $1 AND status = 'PENDING'
RETURNING id, event_id, requester_id, created, status
`, eventID)
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// CountConfirmed counts CONFIRMED requests per event in one grouped query.
// Events without confirmed requests are absent from the result.
func (r *RequestRepository) CountConfirmed(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	start := time.Now()
	rows, err := r.queryer().Query(ctx, `
SELECT event_id, COUNT(*)
  FROM requests
 WHERE event_id = ANY($1) AND status = 'CONFIRMED'
 GROUP BY event_id
`, eventIDs)
	if err != nil {
		metrics.RecordQuery("requests.count_confirmed", start, err)
		return nil, fmt.Errorf("count confirmed requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID string
			count   int64
		)
		if err := rows.Scan(&eventID, &count); err != nil {
			return nil, fmt.Errorf("scan confirmed counts: %w", err)
		}
		counts[eventID] = count
	}
	err = rows.Err()
	metrics.RecordQuery("requests.count_confirmed", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate confirmed counts: %w", err)
	}
	return counts, nil
}
