package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/api/problem"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
	"github.com/Togather-Foundation/ewm/internal/sanitize"
	"github.com/Togather-Foundation/ewm/internal/validation"
)

// ModerationEvents is the admin side of the event lifecycle.
type ModerationEvents interface {
	EditByAdmin(ctx context.Context, eventID string, patch events.AdminPatch) (events.View, error)
	ListForAdmin(ctx context.Context, filter events.AdminFilter, page pagination.Page) ([]events.View, error)
}

type Users interface {
	Create(ctx context.Context, params users.NewUser) (users.User, error)
	List(ctx context.Context, ids []string, page pagination.Page) ([]users.User, error)
}

type Categories interface {
	Create(ctx context.Context, name string) (categories.Category, error)
	Get(ctx context.Context, id string) (categories.Category, error)
	List(ctx context.Context, page pagination.Page) ([]categories.Category, error)
}

// AdminHandler serves /admin/...: event moderation plus user and category
// registration.
type AdminHandler struct {
	events     ModerationEvents
	users      Users
	categories Categories
	env        string
}

func NewAdminHandler(events ModerationEvents, users Users, categories Categories, env string) *AdminHandler {
	return &AdminHandler{events: events, users: users, categories: categories, env: env}
}

func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := events.ParseAdminFilter(r.URL.Query())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	views, err := h.events.ListForAdmin(r.Context(), filter, page)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toFullResponses(views))
}

func (h *AdminHandler) EditEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathParam(r, "eventId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	var input UpdateEventAdminRequest
	if err := decodeJSON(r, &input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	input.clean()
	if err := validation.Struct(input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	view, err := h.events.EditByAdmin(r.Context(), eventID, input.toDomain())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toFullResponse(view))
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input NewUserRequest
	if err := decodeJSON(r, &input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	input.Name = sanitize.Text(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validation.Struct(input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	user, err := h.users.Create(r.Context(), users.NewUser{Name: input.Name, Email: input.Email})
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// ListUsers returns the users named by ids, or every user when ids is absent.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	list, err := h.users.List(r.Context(), listParam(r, "ids"), page)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if list == nil {
		list = []users.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input NewCategoryRequest
	if err := decodeJSON(r, &input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	input.Name = sanitize.Text(input.Name)
	if err := validation.Struct(input); err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	category, err := h.categories.Create(r.Context(), input.Name)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// listParam accepts repeated and comma separated values.
func listParam(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
