package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
	"github.com/stretchr/testify/require"
)

func TestAdminListEventsParsesFilter(t *testing.T) {
	h := NewAdminHandler(fakeEvents{
		listAdminFn: func(filter events.AdminFilter, page pagination.Page) ([]events.View, error) {
			require.Equal(t, []string{"u1", "u2"}, filter.UserIDs)
			require.Equal(t, []events.State{events.StatePending, events.StatePublished}, filter.States)
			require.Equal(t, []string{"c1"}, filter.CategoryIDs)
			require.NotNil(t, filter.Range.Start)
			require.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), *filter.Range.Start)
			require.Nil(t, filter.Range.End)
			require.Equal(t, pagination.Default(), page)
			return []events.View{sampleView()}, nil
		},
	}, fakeUsers{}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.ListEvents(res, newRequest(http.MethodGet,
		"/admin/events?users=u1,u2&states=PENDING&states=PUBLISHED&categories=c1&rangeStart=2030-01-01%2000:00:00", "", nil))

	require.Equal(t, http.StatusOK, res.Code)
	body := decodeBody[[]EventFullResponse](t, res)
	require.Len(t, body, 1)
	require.Equal(t, "Bring friends and enjoy live jazz all night", body[0].Description)
}

func TestAdminListEventsRejectsInvertedRange(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.ListEvents(res, newRequest(http.MethodGet,
		"/admin/events?rangeStart=2030-02-01%2000:00:00&rangeEnd=2030-01-01%2000:00:00", "", nil))

	require.Equal(t, http.StatusConflict, res.Code)
}

func TestAdminEditEventPublishes(t *testing.T) {
	published := sampleView()
	publishedOn := createdOn.Add(time.Hour)
	published.State = events.StatePublished
	published.PublishedOn = &publishedOn

	h := NewAdminHandler(fakeEvents{
		editAdminFn: func(eventID string, patch events.AdminPatch) (events.View, error) {
			require.Equal(t, "evt-1", eventID)
			action, ok := patch.StateAction.Get()
			require.True(t, ok)
			require.Equal(t, events.PublishEvent, action)
			return published, nil
		},
	}, fakeUsers{}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.EditEvent(res, newRequest(http.MethodPatch, "/admin/events/evt-1", `{"stateAction":"PUBLISH_EVENT"}`, map[string]string{"eventId": "evt-1"}))

	require.Equal(t, http.StatusOK, res.Code)
	body := decodeBody[EventFullResponse](t, res)
	require.Equal(t, events.StatePublished, body.State)
	require.NotNil(t, body.PublishedOn)
	require.Equal(t, "2030-01-01 10:00:00", body.PublishedOn.String())
}

func TestAdminEditEventRejectsOwnerAction(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.EditEvent(res, newRequest(http.MethodPatch, "/admin/events/e", `{"stateAction":"CANCEL_REVIEW"}`, map[string]string{"eventId": "e"}))

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAdminEditEventStateConflict(t *testing.T) {
	h := NewAdminHandler(fakeEvents{
		editAdminFn: func(string, events.AdminPatch) (events.View, error) {
			return events.View{}, errs.Forbidden("stateAction", "event is not pending")
		},
	}, fakeUsers{}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.EditEvent(res, newRequest(http.MethodPatch, "/admin/events/e", `{"stateAction":"REJECT_EVENT"}`, map[string]string{"eventId": "e"}))

	require.Equal(t, http.StatusConflict, res.Code)
}

func TestAdminCreateUser(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{
		createFn: func(params users.NewUser) (users.User, error) {
			require.Equal(t, "Ann", params.Name)
			require.Equal(t, "ann@example.com", params.Email)
			return users.User{ID: "user-1", Name: params.Name, Email: params.Email}, nil
		},
	}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.CreateUser(res, newRequest(http.MethodPost, "/admin/users", `{"name":" Ann ","email":" ann@example.com "}`, nil))

	require.Equal(t, http.StatusCreated, res.Code)
	require.Equal(t, "user-1", decodeBody[users.User](t, res).ID)
}

func TestAdminCreateUserValidation(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.CreateUser(res, newRequest(http.MethodPost, "/admin/users", `{"name":"Ann","email":"not-an-email"}`, nil))

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestAdminCreateUserDuplicateEmail(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{
		createFn: func(users.NewUser) (users.User, error) {
			return users.User{}, errs.Conflict("user", "email already registered")
		},
	}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.CreateUser(res, newRequest(http.MethodPost, "/admin/users", `{"name":"Ann","email":"ann@example.com"}`, nil))

	require.Equal(t, http.StatusConflict, res.Code)
}

func TestAdminListUsers(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{
		listFn: func(ids []string, page pagination.Page) ([]users.User, error) {
			require.Equal(t, []string{"a", "b", "c"}, ids)
			require.Equal(t, pagination.Page{From: 0, Size: 2}, page)
			return nil, nil
		},
	}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.ListUsers(res, newRequest(http.MethodGet, "/admin/users?ids=a,b&ids=c&size=2", "", nil))

	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `[]`, res.Body.String())
}

func TestAdminCreateCategory(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{}, fakeCategories{
		createFn: func(name string) (categories.Category, error) {
			require.Equal(t, "Music", name)
			return categories.Category{ID: "cat-1", Name: name}, nil
		},
	}, "test")

	res := httptest.NewRecorder()
	h.CreateCategory(res, newRequest(http.MethodPost, "/admin/categories", `{"name":"<i>Music</i>"}`, nil))

	require.Equal(t, http.StatusCreated, res.Code)
	require.Equal(t, "cat-1", decodeBody[categories.Category](t, res).ID)
}

func TestAdminCreateCategoryBlankName(t *testing.T) {
	h := NewAdminHandler(fakeEvents{}, fakeUsers{}, fakeCategories{}, "test")

	res := httptest.NewRecorder()
	h.CreateCategory(res, newRequest(http.MethodPost, "/admin/categories", `{"name":"   "}`, nil))

	require.Equal(t, http.StatusBadRequest, res.Code)
}
