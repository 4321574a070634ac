package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/requests"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
	"github.com/Togather-Foundation/ewm/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	createFn     func(initiatorID string, params events.NewEvent) (events.View, error)
	editOwnerFn  func(userID, eventID string, patch events.OwnerPatch) (events.View, error)
	getOwnerFn   func(userID, eventID string) (events.View, error)
	listOwnerFn  func(userID string, page pagination.Page) ([]events.View, error)
	getPublicFn  func(eventID, clientIP string) (events.View, error)
	listPublicFn func(filter events.PublicFilter, page pagination.Page, clientIP string) ([]events.View, error)
	editAdminFn  func(eventID string, patch events.AdminPatch) (events.View, error)
	listAdminFn  func(filter events.AdminFilter, page pagination.Page) ([]events.View, error)
}

func (f fakeEvents) CreateByOwner(_ context.Context, initiatorID string, params events.NewEvent) (events.View, error) {
	return f.createFn(initiatorID, params)
}

func (f fakeEvents) EditByOwner(_ context.Context, userID, eventID string, patch events.OwnerPatch) (events.View, error) {
	return f.editOwnerFn(userID, eventID, patch)
}

func (f fakeEvents) GetByOwner(_ context.Context, userID, eventID string) (events.View, error) {
	return f.getOwnerFn(userID, eventID)
}

func (f fakeEvents) ListByOwner(_ context.Context, userID string, page pagination.Page) ([]events.View, error) {
	return f.listOwnerFn(userID, page)
}

func (f fakeEvents) GetPublic(_ context.Context, eventID, clientIP string) (events.View, error) {
	return f.getPublicFn(eventID, clientIP)
}

func (f fakeEvents) ListForPublic(_ context.Context, filter events.PublicFilter, page pagination.Page, clientIP string) ([]events.View, error) {
	return f.listPublicFn(filter, page, clientIP)
}

func (f fakeEvents) EditByAdmin(_ context.Context, eventID string, patch events.AdminPatch) (events.View, error) {
	return f.editAdminFn(eventID, patch)
}

func (f fakeEvents) ListForAdmin(_ context.Context, filter events.AdminFilter, page pagination.Page) ([]events.View, error) {
	return f.listAdminFn(filter, page)
}

type fakeRequests struct {
	createFn      func(requesterID, eventID string) (requests.Request, error)
	cancelFn      func(requesterID, requestID string) (requests.Request, error)
	byRequesterFn func(requesterID string) ([]requests.Request, error)
	byOwnerFn     func(ownerID, eventID string) ([]requests.Request, error)
	bulkFn        func(ownerID, eventID string, ids []string, target requests.Status) (requests.UpdateResult, error)
}

func (f fakeRequests) Create(_ context.Context, requesterID, eventID string) (requests.Request, error) {
	return f.createFn(requesterID, eventID)
}

func (f fakeRequests) Cancel(_ context.Context, requesterID, requestID string) (requests.Request, error) {
	return f.cancelFn(requesterID, requestID)
}

func (f fakeRequests) ListByRequester(_ context.Context, requesterID string) ([]requests.Request, error) {
	return f.byRequesterFn(requesterID)
}

func (f fakeRequests) ListByEventOwner(_ context.Context, ownerID, eventID string) ([]requests.Request, error) {
	return f.byOwnerFn(ownerID, eventID)
}

func (f fakeRequests) BulkUpdateStatus(_ context.Context, ownerID, eventID string, ids []string, target requests.Status) (requests.UpdateResult, error) {
	return f.bulkFn(ownerID, eventID, ids, target)
}

type fakeUsers struct {
	createFn func(params users.NewUser) (users.User, error)
	listFn   func(ids []string, page pagination.Page) ([]users.User, error)
}

func (f fakeUsers) Create(_ context.Context, params users.NewUser) (users.User, error) {
	return f.createFn(params)
}

func (f fakeUsers) List(_ context.Context, ids []string, page pagination.Page) ([]users.User, error) {
	return f.listFn(ids, page)
}

type fakeCategories struct {
	createFn func(name string) (categories.Category, error)
	getFn    func(id string) (categories.Category, error)
	listFn   func(page pagination.Page) ([]categories.Category, error)
}

func (f fakeCategories) Create(_ context.Context, name string) (categories.Category, error) {
	return f.createFn(name)
}

func (f fakeCategories) Get(_ context.Context, id string) (categories.Category, error) {
	return f.getFn(id)
}

func (f fakeCategories) List(_ context.Context, page pagination.Page) ([]categories.Category, error) {
	return f.listFn(page)
}

type fakeHits struct {
	saveFn  func(hit stats.Hit) (stats.Hit, error)
	statsFn func(query stats.Query) ([]stats.ViewStats, error)
}

func (f fakeHits) Save(_ context.Context, hit stats.Hit) (stats.Hit, error) {
	return f.saveFn(hit)
}

func (f fakeHits) Stats(_ context.Context, query stats.Query) ([]stats.ViewStats, error) {
	return f.statsFn(query)
}

// newRequest builds a request with chi URL parameters already resolved.
func newRequest(method, target, body string, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

var (
	futureDate = time.Date(2031, 5, 1, 18, 0, 0, 0, time.UTC)
	createdOn  = time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
)

func sampleView() events.View {
	return events.View{
		Event: events.Event{
			ID:                "evt-1",
			Title:             "Jazz night",
			Annotation:        "An evening of improvised music",
			Description:       "Bring friends and enjoy live jazz all night",
			Category:          categories.Category{ID: "cat-1", Name: "Music"},
			Location:          events.Location{ID: "loc-1", Lat: 55.75, Lon: 37.61},
			ParticipantLimit:  10,
			EventDate:         futureDate,
			CreatedOn:         createdOn,
			State:             events.StatePending,
			Initiator:         users.User{ID: "user-1", Name: "Ann", Email: "ann@example.com"},
			RequestModeration: true,
		},
		ConfirmedRequests: 3,
		Views:             7,
	}
}
