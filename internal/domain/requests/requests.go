package requests

import (
	"context"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
)

// Status is the participation request state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCanceled  Status = "CANCELED"
)

// Request is one user's application to attend one event. At most one request
// exists per (EventID, RequesterID).
type Request struct {
	ID          string
	EventID     string
	RequesterID string
	Created     time.Time
	Status      Status
}

// UpdateResult lists the requests confirmed and rejected by a bulk decision.
type UpdateResult struct {
	Confirmed []Request
	Rejected  []Request
}

// Repository persists participation requests. Create returns an error
// wrapping errs.ErrConflict when (EventID, RequesterID) already exists.
type Repository interface {
	Create(ctx context.Context, request Request) error
	Get(ctx context.Context, id string) (Request, error)
	Update(ctx context.Context, request Request) error
	Exists(ctx context.Context, eventID, requesterID string) (bool, error)
	ListByRequester(ctx context.Context, requesterID string) ([]Request, error)
	ListByEvent(ctx context.Context, eventID string) ([]Request, error)
	// ListByEventAndIDs resolves ids that belong to eventID; ids of other
	// events are not returned.
	ListByEventAndIDs(ctx context.Context, eventID string, ids []string) ([]Request, error)
	// SetStatus moves every listed request to status.
	SetStatus(ctx context.Context, ids []string, status Status) error
	// RejectPending moves every PENDING request of eventID to REJECTED and
	// returns them with their new status.
	RejectPending(ctx context.Context, eventID string) ([]Request, error)
	CountRepository
}

// CountRepository runs the grouped confirmed-request count.
type CountRepository interface {
	CountConfirmed(ctx context.Context, eventIDs []string) (map[string]int64, error)
}

type EventReader interface {
	Get(ctx context.Context, id string) (events.Event, error)
	GetForUpdate(ctx context.Context, id string) (events.Event, error)
}

type UserReader interface {
	Get(ctx context.Context, id string) (users.User, error)
}

// Store is the unit of work the request lifecycle runs in.
type Store interface {
	Requests() Repository
	Events() EventReader
	Users() UserReader
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
