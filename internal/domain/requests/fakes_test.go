package requests

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
	"github.com/rs/zerolog"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type memStore struct {
	requests   map[string]Request
	order      []string
	events     map[string]events.Event
	users      map[string]users.User
	locked     []string
	countCalls int
	createErr  error
}

func newMemStore() *memStore {
	return &memStore{
		requests: map[string]Request{},
		events:   map[string]events.Event{},
		users:    map[string]users.User{},
	}
}

func (m *memStore) Requests() Repository { return memRequests{m} }
func (m *memStore) Events() EventReader { return memEvents{m} }
func (m *memStore) Users() UserReader { return memUsers{m} }

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	requests := maps.Clone(m.requests)
	order := slices.Clone(m.order)
	if err := fn(ctx, m); err != nil {
		m.requests, m.order = requests, order
		return err
	}
	return nil
}

func (m *memStore) addUser(id string) {
	m.users[id] = users.User{ID: id, Name: id, Email: id + "@example.com"}
}

func (m *memStore) addEvent(id, owner string, state events.State, limit int, moderation bool) {
	m.events[id] = events.Event{
		ID:                id,
		Initiator:         m.users[owner],
		State:             state,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		EventDate:         testNow.Add(48 * time.Hour),
	}
}

func (m *memStore) addRequest(id, eventID, requesterID string, status Status) {
	m.requests[id] = Request{ID: id, EventID: eventID, RequesterID: requesterID, Created: testNow, Status: status}
	m.order = append(m.order, id)
}

func (m *memStore) statusOf(id string) Status {
	return m.requests[id].Status
}

func (m *memStore) confirmed(eventID string) int {
	n := 0
	for _, r := range m.requests {
		if r.EventID == eventID && r.Status == StatusConfirmed {
			n++
		}
	}
	return n
}

type memRequests struct{ m *memStore }

func (r memRequests) Create(_ context.Context, request Request) error {
	if r.m.createErr != nil {
		return r.m.createErr
	}
	for _, existing := range r.m.requests {
		if existing.EventID == request.EventID && existing.RequesterID == request.RequesterID {
			return errs.Conflict("request", "duplicate")
		}
	}
	r.m.requests[request.ID] = request
	r.m.order = append(r.m.order, request.ID)
	return nil
}

func (r memRequests) Get(_ context.Context, id string) (Request, error) {
	request, ok := r.m.requests[id]
	if !ok {
		return Request{}, errs.NotFound("request", id)
	}
	return request, nil
}

func (r memRequests) Update(_ context.Context, request Request) error {
	r.m.requests[request.ID] = request
	return nil
}

func (r memRequests) Exists(_ context.Context, eventID, requesterID string) (bool, error) {
	for _, request := range r.m.requests {
		if request.EventID == eventID && request.RequesterID == requesterID {
			return true, nil
		}
	}
	return false, nil
}

func (r memRequests) ListByRequester(_ context.Context, requesterID string) ([]Request, error) {
	return r.list(func(req Request) bool { return req.RequesterID == requesterID }), nil
}

func (r memRequests) ListByEvent(_ context.Context, eventID string) ([]Request, error) {
	return r.list(func(req Request) bool { return req.EventID == eventID }), nil
}

func (r memRequests) ListByEventAndIDs(_ context.Context, eventID string, ids []string) ([]Request, error) {
	return r.list(func(req Request) bool { return req.EventID == eventID && slices.Contains(ids, req.ID) }), nil
}

func (r memRequests) SetStatus(_ context.Context, ids []string, status Status) error {
	for _, id := range ids {
		request := r.m.requests[id]
		request.Status = status
		r.m.requests[id] = request
	}
	return nil
}

func (r memRequests) RejectPending(_ context.Context, eventID string) ([]Request, error) {
	pending := r.list(func(req Request) bool { return req.EventID == eventID && req.Status == StatusPending })
	for i := range pending {
		pending[i].Status = StatusRejected
		r.m.requests[pending[i].ID] = pending[i]
	}
	return pending, nil
}

func (r memRequests) CountConfirmed(_ context.Context, eventIDs []string) (map[string]int64, error) {
	r.m.countCalls++
	out := map[string]int64{}
	for _, request := range r.m.requests {
		if request.Status == StatusConfirmed && slices.Contains(eventIDs, request.EventID) {
			out[request.EventID]++
		}
	}
	return out, nil
}

func (r memRequests) list(keep func(Request) bool) []Request {
	var out []Request
	for _, id := range r.m.order {
		if request := r.m.requests[id]; keep(request) {
			out = append(out, request)
		}
	}
	return out
}

type memEvents struct{ m *memStore }

func (r memEvents) Get(_ context.Context, id string) (events.Event, error) {
	event, ok := r.m.events[id]
	if !ok {
		return events.Event{}, errs.NotFound("event", id)
	}
	return event, nil
}

func (r memEvents) GetForUpdate(ctx context.Context, id string) (events.Event, error) {
	r.m.locked = append(r.m.locked, id)
	return r.Get(ctx, id)
}

type memUsers struct{ m *memStore }

func (r memUsers) Get(_ context.Context, id string) (users.User, error) {
	user, ok := r.m.users[id]
	if !ok {
		return users.User{}, errs.NotFound("user", id)
	}
	return user, nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	for _, id := range []string{"owner", "alice", "bob", "carol", "dave"} {
		store.addUser(id)
	}
	svc := NewService(store, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	next := 0
	svc.newID = func() string {
		next++
		return fmt.Sprintf("req-%d", next)
	}
	return svc, store
}
