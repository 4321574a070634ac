package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/ids"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	conn
}

const selectEvents = `
SELECT e.id, e.title, e.annotation, e.description,
       c.id, c.name,
       l.id, l.lat, l.lon,
       e.paid, e.participant_limit, e.event_date, e.created_on, e.published_on, e.state,
       u.id, u.name, u.email,
       e.request_moderation
  FROM events e
  JOIN categories c ON c.id = e.category_id
  JOIN locations l ON l.id = e.location_id
  JOIN users u ON u.id = e.initiator_id
`

func scanEvent(row pgx.Row) (events.Event, error) {
	var (
		event       events.Event
		publishedOn pgtype.Timestamptz
		state       string
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Annotation,
		&event.Description,
		&event.Category.ID,
		&event.Category.Name,
		&event.Location.ID,
		&event.Location.Lat,
		&event.Location.Lon,
		&event.Paid,
		&event.ParticipantLimit,
		&event.EventDate,
		&event.CreatedOn,
		&publishedOn,
		&state,
		&event.Initiator.ID,
		&event.Initiator.Name,
		&event.Initiator.Email,
		&event.RequestModeration,
	); err != nil {
		return events.Event{}, err
	}
	event.EventDate = event.EventDate.UTC()
	event.CreatedOn = event.CreatedOn.UTC()
	event.PublishedOn = timePtr(publishedOn)
	event.State = events.State(state)
	return event, nil
}

func (r *EventRepository) list(ctx context.Context, op, query string, args ...any) ([]events.Event, error) {
	start := time.Now()
	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		metrics.RecordQuery(op, start, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]events.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		items = append(items, event)
	}
	err = rows.Err()
	metrics.RecordQuery(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) Create(ctx context.Context, event events.Event) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO events (id, title, annotation, description, category_id, location_id, paid,
                    participant_limit, event_date, created_on, published_on, state,
                    initiator_id, request_moderation)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`,
		event.ID,
		event.Title,
		event.Annotation,
		event.Description,
		event.Category.ID,
		event.Location.ID,
		event.Paid,
		event.ParticipantLimit,
		event.EventDate,
		event.CreatedOn,
		timestamptz(event.PublishedOn),
		string(event.State),
		event.Initiator.ID,
		event.RequestModeration,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", conflict(err, "event"))
	}
	return nil
}

func (r *EventRepository) Update(ctx context.Context, event events.Event) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE events
   SET title = $2,
       annotation = $3,
       description = $4,
       category_id = $5,
       location_id = $6,
       paid = $7,
       participant_limit = $8,
       event_date = $9,
       published_on = $10,
       state = $11,
       request_moderation = $12
 WHERE id = $1
`,
		event.ID,
		event.Title,
		event.Annotation,
		event.Description,
		event.Category.ID,
		event.Location.ID,
		event.Paid,
		event.ParticipantLimit,
		event.EventDate,
		timestamptz(event.PublishedOn),
		string(event.State),
		event.RequestModeration,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event: %w", notFound(pgx.ErrNoRows, "event", event.ID))
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (events.Event, error) {
	event, err := scanEvent(r.queryer().QueryRow(ctx, selectEvents+` WHERE e.id = $1`, id))
	if err != nil {
		return events.Event{}, fmt.Errorf("get event: %w", notFound(err, "event", id))
	}
	return event, nil
}

// GetForUpdate locks the event row only; the joined rows stay unlocked.
func (r *EventRepository) GetForUpdate(ctx context.Context, id string) (events.Event, error) {
	start := time.Now()
	event, err := scanEvent(r.queryer().QueryRow(ctx, selectEvents+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	metrics.RecordQuery("events.get_for_update", start, err)
	if err != nil {
		return events.Event{}, fmt.Errorf("lock event: %w", notFound(err, "event", id))
	}
	return event, nil
}

func (r *EventRepository) GetByInitiator(ctx context.Context, initiatorID, eventID string) (events.Event, error) {
	event, err := scanEvent(r.queryer().QueryRow(ctx,
		selectEvents+` WHERE e.id = $1 AND e.initiator_id = $2`, eventID, initiatorID))
	if err != nil {
		return events.Event{}, fmt.Errorf("get event: %w", notFound(err, "event", eventID))
	}
	return event, nil
}

func (r *EventRepository) ListByIDs(ctx context.Context, eventIDs []string) ([]events.Event, error) {
	if len(eventIDs) == 0 {
		return []events.Event{}, nil
	}
	return r.list(ctx, "events.list_by_ids", selectEvents+` WHERE e.id = ANY($1) ORDER BY e.id`, eventIDs)
}

func (r *EventRepository) ListByInitiator(ctx context.Context, initiatorID string, page pagination.Page) ([]events.Event, error) {
	return r.list(ctx, "events.list_by_initiator",
		selectEvents+` WHERE e.initiator_id = $1 ORDER BY e.created_on, e.id OFFSET $2 LIMIT $3`,
		initiatorID, page.Offset(), page.Limit())
}

func (r *EventRepository) ListForAdmin(ctx context.Context, filter events.AdminFilter, page pagination.Page) ([]events.Event, error) {
	states := make([]string, 0, len(filter.States))
	for _, state := range filter.States {
		states = append(states, string(state))
	}
	return r.list(ctx, "events.list_for_admin", selectEvents+`
 WHERE (cardinality($1::text[]) = 0 OR e.initiator_id = ANY($1))
   AND (cardinality($2::text[]) = 0 OR e.state = ANY($2))
   AND (cardinality($3::text[]) = 0 OR e.category_id = ANY($3))
   AND ($4::timestamptz IS NULL OR e.event_date >= $4)
   AND ($5::timestamptz IS NULL OR e.event_date <= $5)
 ORDER BY e.created_on, e.id
 OFFSET $6 LIMIT $7
`,
		nonNil(filter.UserIDs),
		states,
		nonNil(filter.CategoryIDs),
		timestamptz(filter.Range.Start),
		timestamptz(filter.Range.End),
		page.Offset(),
		page.Limit(),
	)
}

func (r *EventRepository) ListForPublic(ctx context.Context, filter events.PublicFilter, page pagination.Page) ([]events.Event, error) {
	return r.list(ctx, "events.list_for_public", selectEvents+`
 WHERE e.state = 'PUBLISHED'
   AND ($1::text = '' OR e.title ILIKE '%' || $1 || '%' OR e.annotation ILIKE '%' || $1 || '%')
   AND (cardinality($2::text[]) = 0 OR e.category_id = ANY($2))
   AND ($3::boolean IS NULL OR e.paid = $3)
   AND ($4::timestamptz IS NULL OR e.event_date >= $4)
   AND ($5::timestamptz IS NULL OR e.event_date <= $5)
 ORDER BY e.created_on, e.id
 OFFSET $6 LIMIT $7
`,
		escapeLike(strings.TrimSpace(filter.Text)),
		nonNil(filter.CategoryIDs),
		filter.Paid,
		timestamptz(filter.Range.Start),
		timestamptz(filter.Range.End),
		page.Offset(),
		page.Limit(),
	)
}

// FindOrCreateLocation returns the stored location at (Lat, Lon), inserting
// it first when absent. Concurrent callers converge on one row.
func (r *EventRepository) FindOrCreateLocation(ctx context.Context, location events.Location) (events.Location, error) {
	id, err := ids.NewULID()
	if err != nil {
		return events.Location{}, fmt.Errorf("location id: %w", err)
	}
	q := r.queryer()
	if _, err := q.Exec(ctx, `INSERT INTO locations (id, lat, lon) VALUES ($1, $2, $3) ON CONFLICT (lat, lon) DO NOTHING`,
		id, location.Lat, location.Lon); err != nil {
		return events.Location{}, fmt.Errorf("insert location: %w", err)
	}

	var stored events.Location
	err = q.QueryRow(ctx, `SELECT id, lat, lon FROM locations WHERE lat = $1 AND lon = $2`, location.Lat, location.Lon).
		Scan(&stored.ID, &stored.Lat, &stored.Lon)
	if err != nil {
		return events.Location{}, fmt.Errorf("get location: %w", err)
	}
	return stored, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes value match literally inside an ILIKE pattern.
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
