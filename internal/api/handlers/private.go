package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/api/problem"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/requests"
	"github.com/Togather-Foundation/ewm/internal/validation"
)

// OwnerEvents is the initiator side of the event lifecycle.
type OwnerEvents interface {
	CreateByOwner(ctx context.Context, initiatorID string, params events.NewEvent) (events.View, error)
	EditByOwner(ctx context.Context, userID, eventID string, patch events.OwnerPatch) (events.View, error)
	GetByOwner(ctx context.Context, userID, eventID string) (events.View, error)
	ListByOwner(ctx context.Context, userID string, page pagination.Page) ([]events.View, error)
}

// Requests is the participation request lifecycle.
type Requests interface {
	Create(ctx context.Context, requesterID, eventID string) (requests.Request, error)
	Cancel(ctx context.Context, requesterID, requestID string) (requests.Request, error)
	ListByRequester(ctx context.Context, requesterID string) ([]requests.Request, error)
	ListByEventOwner(ctx context.Context, ownerID, eventID string) ([]requests.Request, error)
	BulkUpdateStatus(ctx context.Context, ownerID, eventID string, requestIDs []string, target requests.Status) (requests.UpdateResult, error)
}

// PrivateHandler serves /users/{userId}/...: a user's own events, the
// requests filed for them and the user's own participation requests.
type PrivateHandler struct {
	events   OwnerEvents
	requests Requests
	env      string
}

func NewPrivateHandler(events OwnerEvents, requests Requests, env string) *PrivateHandler {
	return &PrivateHandler{events: events, requests: requests, env: env}
}

func (h *PrivateHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	var input NewEventRequest
	if err := decodeJSON(r, &input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	input.clean()
	if err := validation.Struct(input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	view, err := h.events.CreateByOwner(r.Context(), userID, input.toDomain())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, toFullResponse(view))
}

func (h *PrivateHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	views, err := h.events.ListByOwner(r.Context(), userID, page)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toShortResponses(views))
}

func (h *PrivateHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	view, err := h.events.GetByOwner(r.Context(), userID, eventID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toFullResponse(view))
}

func (h *PrivateHandler) EditEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	var input UpdateEventUserRequest
	if err := decodeJSON(r, &input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	input.clean()
	if err := validation.Struct(input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	view, err := h.events.EditByOwner(r.Context(), userID, eventID, input.toDomain())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toFullResponse(view))
}

func (h *PrivateHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	list, err := h.requests.ListByEventOwner(r.Context(), userID, eventID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(list))
}

func (h *PrivateHandler) UpdateEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	var input StatusUpdateRequest
	if err := decodeJSON(r, &input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if err := validation.Struct(input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	result, err := h.requests.BulkUpdateStatus(r.Context(), userID, eventID, input.RequestIDs, requests.Status(input.Status))
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, StatusUpdateResponse{
		ConfirmedRequests: toRequestResponses(result.Confirmed),
		RejectedRequests:  toRequestResponses(result.Rejected),
	})
}

func (h *PrivateHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	list, err := h.requests.ListByRequester(r.Context(), userID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(list))
}

// CreateRequest files a participation request; the event comes from the
// eventId query parameter.
func (h *PrivateHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	eventID := strings.TrimSpace(r.URL.Query().Get("eventId"))
	if eventID == "" {
		problem.FromError(w, r, errs.ValidationError{Field: "eventId", Message: "is required"}, h.env)
		return
	}

	request, err := h.requests.Create(r.Context(), userID, eventID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(request))
}

func (h *PrivateHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	requestID, err := pathParam(r, "requestId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	request, err := h.requests.Cancel(r.Context(), userID, requestID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(request))
}

func userAndEvent(r *http.Request) (string, string, error) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		return "", "", err
	}
	eventID, err := pathParam(r, "eventId")
	if err != nil {
		return "", "", err
	}
	return userID, eventID, nil
}
