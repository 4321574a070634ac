package handlers

import (
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/optional"
	"github.com/Togather-Foundation/ewm/internal/domain/requests"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
	"github.com/Togather-Foundation/ewm/internal/sanitize"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
)

type LocationDTO struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

func (l LocationDTO) toDomain() events.Location {
	return events.Location{Lat: l.Lat, Lon: l.Lon}
}

// NewEventRequest is the body of POST /users/{userId}/events.
type NewEventRequest struct {
	Title             string              `json:"title" validate:"notblank,min=3,max=120"`
	Annotation        string              `json:"annotation" validate:"notblank,min=20,max=2000"`
	Description       string              `json:"description" validate:"notblank,min=20,max=7000"`
	Category          string              `json:"category" validate:"notblank"`
	EventDate         timestamp.Timestamp `json:"eventDate" validate:"required"`
	Location          *LocationDTO        `json:"location" validate:"required"`
	Paid              *bool               `json:"paid"`
	ParticipantLimit  *int                `json:"participantLimit" validate:"omitnil,gte=0"`
	RequestModeration *bool               `json:"requestModeration"`
}

func (r *NewEventRequest) clean() {
	r.Title = sanitize.Text(r.Title)
	r.Annotation = sanitize.Text(r.Annotation)
	r.Description = sanitize.HTML(r.Description)
}

// toDomain applies the defaults of an omitted field: unpaid, unlimited and
// moderated.
func (r NewEventRequest) toDomain() events.NewEvent {
	params := events.NewEvent{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		EventDate:         r.EventDate.Time,
		Paid:              optional.FromPtr(r.Paid).OrElse(false),
		ParticipantLimit:  optional.FromPtr(r.ParticipantLimit).OrElse(0),
		RequestModeration: optional.FromPtr(r.RequestModeration).OrElse(true),
	}
	if r.Location != nil {
		params.Location = r.Location.toDomain()
	}
	return params
}

// EventPatch lists the editable event fields. A field that is absent or null
// leaves the stored value unchanged.
type EventPatch struct {
	Title             *string              `json:"title" validate:"omitnil,notblank,min=3,max=120"`
	Annotation        *string              `json:"annotation" validate:"omitnil,notblank,min=20,max=2000"`
	Description       *string              `json:"description" validate:"omitnil,notblank,min=20,max=7000"`
	Category          *string              `json:"category" validate:"omitnil,notblank"`
	EventDate         *timestamp.Timestamp `json:"eventDate"`
	Location          *LocationDTO         `json:"location"`
	Paid              *bool                `json:"paid"`
	ParticipantLimit  *int                 `json:"participantLimit" validate:"omitnil,gte=0"`
	RequestModeration *bool                `json:"requestModeration"`
}

func (p *EventPatch) clean() {
	if p.Title != nil {
		*p.Title = sanitize.Text(*p.Title)
	}
	if p.Annotation != nil {
		*p.Annotation = sanitize.Text(*p.Annotation)
	}
	if p.Description != nil {
		*p.Description = sanitize.HTML(*p.Description)
	}
}

func (p EventPatch) toDomain() events.Patch {
	patch := events.Patch{
		Title:             optional.FromPtr(p.Title),
		Annotation:        optional.FromPtr(p.Annotation),
		Description:       optional.FromPtr(p.Description),
		CategoryID:        optional.FromPtr(p.Category),
		Paid:              optional.FromPtr(p.Paid),
		ParticipantLimit:  optional.FromPtr(p.ParticipantLimit),
		RequestModeration: optional.FromPtr(p.RequestModeration),
	}
	if p.EventDate != nil {
		patch.EventDate = optional.Of(p.EventDate.Time)
	}
	if p.Location != nil {
		patch.Location = optional.Of(p.Location.toDomain())
	}
	return patch
}

// UpdateEventUserRequest is the body of PATCH /users/{userId}/events/{eventId}.
type UpdateEventUserRequest struct {
	EventPatch
	StateAction *string `json:"stateAction" validate:"omitnil,oneof=SEND_TO_REVIEW CANCEL_REVIEW"`
}

func (r UpdateEventUserRequest) toDomain() events.OwnerPatch {
	patch := events.OwnerPatch{Patch: r.EventPatch.toDomain()}
	if r.StateAction != nil {
		patch.StateAction = optional.Of(events.OwnerStateAction(*r.StateAction))
	}
	return patch
}

// UpdateEventAdminRequest is the body of PATCH /admin/events/{eventId}.
type UpdateEventAdminRequest struct {
	EventPatch
	StateAction *string `json:"stateAction" validate:"omitnil,oneof=PUBLISH_EVENT REJECT_EVENT"`
}

func (r UpdateEventAdminRequest) toDomain() events.AdminPatch {
	patch := events.AdminPatch{Patch: r.EventPatch.toDomain()}
	if r.StateAction != nil {
		patch.StateAction = optional.Of(events.AdminStateAction(*r.StateAction))
	}
	return patch
}

type EventFullResponse struct {
	ID                string               `json:"id"`
	Title             string               `json:"title"`
	Annotation        string               `json:"annotation"`
	Description       string               `json:"description"`
	Category          categories.Category  `json:"category"`
	ConfirmedRequests int64                `json:"confirmedRequests"`
	CreatedOn         timestamp.Timestamp  `json:"createdOn"`
	EventDate         timestamp.Timestamp  `json:"eventDate"`
	Initiator         users.Short          `json:"initiator"`
	Location          LocationDTO          `json:"location"`
	Paid              bool                 `json:"paid"`
	ParticipantLimit  int                  `json:"participantLimit"`
	PublishedOn       *timestamp.Timestamp `json:"publishedOn"`
	RequestModeration bool                 `json:"requestModeration"`
	State             events.State         `json:"state"`
	Views             int64                `json:"views"`
}

type EventShortResponse struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Annotation        string              `json:"annotation"`
	Category          categories.Category `json:"category"`
	ConfirmedRequests int64               `json:"confirmedRequests"`
	EventDate         timestamp.Timestamp `json:"eventDate"`
	Initiator         users.Short         `json:"initiator"`
	Paid              bool                `json:"paid"`
	Views             int64               `json:"views"`
}

func toFullResponse(view events.View) EventFullResponse {
	out := EventFullResponse{
		ID:                view.ID,
		Title:             view.Title,
		Annotation:        view.Annotation,
		Description:       view.Description,
		Category:          view.Category,
		ConfirmedRequests: view.ConfirmedRequests,
		CreatedOn:         timestamp.New(view.CreatedOn),
		EventDate:         timestamp.New(view.EventDate),
		Initiator:         view.Initiator.Short(),
		Location:          LocationDTO{Lat: view.Location.Lat, Lon: view.Location.Lon},
		Paid:              view.Paid,
		ParticipantLimit:  view.ParticipantLimit,
		RequestModeration: view.RequestModeration,
		State:             view.State,
		Views:             view.Views,
	}
	if view.PublishedOn != nil {
		published := timestamp.New(*view.PublishedOn)
		out.PublishedOn = &published
	}
	return out
}

func toShortResponse(view events.View) EventShortResponse {
	return EventShortResponse{
		ID:                view.ID,
		Title:             view.Title,
		Annotation:        view.Annotation,
		Category:          view.Category,
		ConfirmedRequests: view.ConfirmedRequests,
		EventDate:         timestamp.New(view.EventDate),
		Initiator:         view.Initiator.Short(),
		Paid:              view.Paid,
		Views:             view.Views,
	}
}

func toFullResponses(views []events.View) []EventFullResponse {
	out := make([]EventFullResponse, 0, len(views))
	for _, view := range views {
		out = append(out, toFullResponse(view))
	}
	return out
}

func toShortResponses(views []events.View) []EventShortResponse {
	out := make([]EventShortResponse, 0, len(views))
	for _, view := range views {
		out = append(out, toShortResponse(view))
	}
	return out
}

type ParticipationRequestResponse struct {
	ID        string              `json:"id"`
	Event     string              `json:"event"`
	Requester string              `json:"requester"`
	Created   timestamp.Timestamp `json:"created"`
	Status    requests.Status     `json:"status"`
}

func toRequestResponse(request requests.Request) ParticipationRequestResponse {
	return ParticipationRequestResponse{
		ID:        request.ID,
		Event:     request.EventID,
		Requester: request.RequesterID,
		Created:   timestamp.New(request.Created),
		Status:    request.Status,
	}
}

func toRequestResponses(list []requests.Request) []ParticipationRequestResponse {
	out := make([]ParticipationRequestResponse, 0, len(list))
	for _, request := range list {
		out = append(out, toRequestResponse(request))
	}
	return out
}

// StatusUpdateRequest is the initiator's bulk decision on requests.
type StatusUpdateRequest struct {
	RequestIDs []string `json:"requestIds" validate:"dive,notblank"`
	Status     string   `json:"status" validate:"required,oneof=CONFIRMED REJECTED"`
}

type StatusUpdateResponse struct {
	ConfirmedRequests []ParticipationRequestResponse `json:"confirmedRequests"`
	RejectedRequests  []ParticipationRequestResponse `json:"rejectedRequests"`
}

type NewUserRequest struct {
	Name  string `json:"name" validate:"notblank,min=2,max=250"`
	Email string `json:"email" validate:"required,email,min=6,max=254"`
}

type NewCategoryRequest struct {
	Name string `json:"name" validate:"notblank,min=1,max=50"`
}
