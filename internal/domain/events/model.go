package events

import (
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
)

// State is the moderation state of an event.
type State string

const (
	StatePending   State = "PENDING"
	StatePublished State = "PUBLISHED"
	StateRejected  State = "REJECTED"
	StateCanceled  State = "CANCELED"
)

func (s State) Valid() bool {
	switch s {
	case StatePending, StatePublished, StateRejected, StateCanceled:
		return true
	}
	return false
}

// OwnerStateAction is a state change an initiator may request.
type OwnerStateAction string

const (
	SendToReview OwnerStateAction = "SEND_TO_REVIEW"
	CancelReview OwnerStateAction = "CANCEL_REVIEW"
)

func (a OwnerStateAction) Valid() bool {
	return a == SendToReview || a == CancelReview
}

// AdminStateAction is a moderation decision.
type AdminStateAction string

const (
	PublishEvent AdminStateAction = "PUBLISH_EVENT"
	RejectEvent  AdminStateAction = "REJECT_EVENT"
)

func (a AdminStateAction) Valid() bool {
	return a == PublishEvent || a == RejectEvent
}

// Location is a venue point, unique per (Lat, Lon).
type Location struct {
	ID  string
	Lat float64
	Lon float64
}

// Event is the aggregate moderated by admins and requested by participants.
//
// PublishedOn is non-nil exactly when State is StatePublished.
type Event struct {
	ID                string
	Title             string
	Annotation        string
	Description       string
	Category          categories.Category
	Location          Location
	Paid              bool
	ParticipantLimit  int
	EventDate         time.Time
	CreatedOn         time.Time
	PublishedOn       *time.Time
	State             State
	Initiator         users.User
	RequestModeration bool
}

func (e Event) IsPublished() bool {
	return e.State == StatePublished
}

// IsOwnedBy reports whether userID initiated the event.
func (e Event) IsOwnedBy(userID string) bool {
	return e.Initiator.ID == userID
}

// Unlimited reports whether the event accepts any number of participants.
func (e Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// HasFreeSlots reports whether one more participant fits next to confirmed.
func (e Event) HasFreeSlots(confirmed int64) bool {
	return e.Unlimited() || confirmed < int64(e.ParticipantLimit)
}

// AutoConfirms reports whether new requests skip owner moderation.
func (e Event) AutoConfirms() bool {
	return !e.RequestModeration || e.Unlimited()
}

func (e *Event) publish(now time.Time) {
	published := now
	e.State = StatePublished
	e.PublishedOn = &published
}

func (e *Event) moveTo(state State) {
	if state == StatePublished {
		return
	}
	e.State = state
	e.PublishedOn = nil
}

// NewEvent holds the fields of an event submitted by its initiator.
type NewEvent struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        string
	Location          Location
	Paid              bool
	ParticipantLimit  int
	EventDate         time.Time
	RequestModeration bool
}

// View is an event annotated with its live counters.
type View struct {
	Event
	ConfirmedRequests int64
	Views             int64
}
