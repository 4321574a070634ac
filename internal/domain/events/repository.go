package events

import (
	"context"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
)

// Repository persists events and their locations. Lookups return an error
// wrapping errs.ErrNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, event Event) error
	Update(ctx context.Context, event Event) error
	Get(ctx context.Context, id string) (Event, error)
	// GetForUpdate loads the event and holds its row lock until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (Event, error)
	GetByInitiator(ctx context.Context, initiatorID, eventID string) (Event, error)
	ListByIDs(ctx context.Context, ids []string) ([]Event, error)
	ListByInitiator(ctx context.Context, initiatorID string, page pagination.Page) ([]Event, error)
	ListForAdmin(ctx context.Context, filter AdminFilter, page pagination.Page) ([]Event, error)
	// ListForPublic returns published events matching the text, category,
	// paid and range criteria of filter in storage order.
	ListForPublic(ctx context.Context, filter PublicFilter, page pagination.Page) ([]Event, error)
	FindOrCreateLocation(ctx context.Context, location Location) (Location, error)
}

type UserReader interface {
	Get(ctx context.Context, id string) (users.User, error)
}

type CategoryReader interface {
	Get(ctx context.Context, id string) (categories.Category, error)
}

// ConfirmedCounts reads stored CONFIRMED request counts keyed by event id.
type ConfirmedCounts interface {
	CountConfirmed(ctx context.Context, eventIDs []string) (map[string]int64, error)
}

// Store is the unit of work the event lifecycle runs in.
type Store interface {
	Events() Repository
	Users() UserReader
	Categories() CategoryReader
	Confirmed() ConfirmedCounts
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// ConfirmedCounter reports CONFIRMED request counts keyed by event id.
type ConfirmedCounter interface {
	CountConfirmed(ctx context.Context, events []Event) (map[string]int64, error)
}

// Annotator joins events with confirmed counts and view counts.
type Annotator interface {
	Annotate(ctx context.Context, events []Event) ([]View, error)
}

// HitRecorder delivers a view of uri by ip to the stats service. It never
// fails the caller.
type HitRecorder interface {
	RecordHit(ctx context.Context, uri, ip string)
}
