package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/api/problem"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
)

// CatalogueEvents is the public, published-only view of events.
type CatalogueEvents interface {
	GetPublic(ctx context.Context, eventID, clientIP string) (events.View, error)
	ListForPublic(ctx context.Context, filter events.PublicFilter, page pagination.Page, clientIP string) ([]events.View, error)
}

// PublicHandler serves the anonymous catalogue: /events and /categories.
type PublicHandler struct {
	events     CatalogueEvents
	categories Categories
	env        string
}

func NewPublicHandler(events CatalogueEvents, categories Categories, env string) *PublicHandler {
	return &PublicHandler{events: events, categories: categories, env: env}
}

func (h *PublicHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := events.ParsePublicFilter(r.URL.Query())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	views, err := h.events.ListForPublic(r.Context(), filter, page, clientIP(r))
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toShortResponses(views))
}

func (h *PublicHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathParam(r, "id")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	view, err := h.events.GetPublic(r.Context(), eventID, clientIP(r))
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, toFullResponse(view))
}

func (h *PublicHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	list, err := h.categories.List(r.Context(), page)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	if list == nil {
		list = []categories.Category{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PublicHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathParam(r, "catId")
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}

	category, err := h.categories.Get(r.Context(), categoryID)
	if err != nil {
		problem.FromError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, category)
}
