package events

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/audit"
	"github.com/Togather-Foundation/ewm/internal/domain/categories"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/users"
	"github.com/rs/zerolog"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory Store; WithTx restores the previous contents when
// fn fails.
type memStore struct {
	events     map[string]Event
	order      []string
	locations  map[[2]float64]Location
	users      map[string]users.User
	categories map[string]categories.Category
	confirmed  map[string]int64
	locked     []string
	writes     int

	inTx bool
	// countReads records, per CountConfirmed call, whether it ran inside WithTx.
	countReads []bool
}

func newMemStore() *memStore {
	return &memStore{
		events:     map[string]Event{},
		locations:  map[[2]float64]Location{},
		users:      map[string]users.User{},
		categories: map[string]categories.Category{},
		confirmed:  map[string]int64{},
	}
}

func (m *memStore) Events() Repository { return memEvents{m} }
func (m *memStore) Users() UserReader { return memUsers{m} }
func (m *memStore) Categories() CategoryReader { return memCategories{m} }
func (m *memStore) Confirmed() ConfirmedCounts { return memConfirmed{m} }

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	events := maps.Clone(m.events)
	order := slices.Clone(m.order)
	locations := maps.Clone(m.locations)
	m.inTx = true
	defer func() { m.inTx = false }()
	if err := fn(ctx, m); err != nil {
		m.events, m.order, m.locations = events, order, locations
		return err
	}
	return nil
}

func (m *memStore) addUser(id string) users.User {
	user := users.User{ID: id, Name: "user " + id, Email: id + "@example.com"}
	m.users[id] = user
	return user
}

func (m *memStore) addCategory(id string) categories.Category {
	category := categories.Category{ID: id, Name: "category " + id}
	m.categories[id] = category
	return category
}

func (m *memStore) put(event Event) Event {
	if _, ok := m.events[event.ID]; !ok {
		m.order = append(m.order, event.ID)
	}
	m.events[event.ID] = event
	return event
}

type memEvents struct{ m *memStore }

func (r memEvents) Create(_ context.Context, event Event) error {
	r.m.writes++
	r.m.put(event)
	return nil
}

func (r memEvents) Update(_ context.Context, event Event) error {
	if _, ok := r.m.events[event.ID]; !ok {
		return errs.NotFound("event", event.ID)
	}
	r.m.writes++
	r.m.events[event.ID] = event
	return nil
}

func (r memEvents) Get(_ context.Context, id string) (Event, error) {
	event, ok := r.m.events[id]
	if !ok {
		return Event{}, errs.NotFound("event", id)
	}
	return event, nil
}

func (r memEvents) GetForUpdate(ctx context.Context, id string) (Event, error) {
	r.m.locked = append(r.m.locked, id)
	return r.Get(ctx, id)
}

func (r memEvents) GetByInitiator(_ context.Context, initiatorID, eventID string) (Event, error) {
	event, ok := r.m.events[eventID]
	if !ok || event.Initiator.ID != initiatorID {
		return Event{}, errs.NotFound("event", eventID)
	}
	return event, nil
}

func (r memEvents) ListByIDs(_ context.Context, ids []string) ([]Event, error) {
	var out []Event
	for _, id := range r.m.order {
		if slices.Contains(ids, id) {
			out = append(out, r.m.events[id])
		}
	}
	return out, nil
}

func (r memEvents) ListByInitiator(_ context.Context, initiatorID string, page pagination.Page) ([]Event, error) {
	return r.filter(page, func(e Event) bool { return e.Initiator.ID == initiatorID }), nil
}

func (r memEvents) ListForAdmin(_ context.Context, filter AdminFilter, page pagination.Page) ([]Event, error) {
	return r.filter(page, func(e Event) bool {
		return (len(filter.UserIDs) == 0 || slices.Contains(filter.UserIDs, e.Initiator.ID)) &&
			(len(filter.States) == 0 || slices.Contains(filter.States, e.State)) &&
			(len(filter.CategoryIDs) == 0 || slices.Contains(filter.CategoryIDs, e.Category.ID)) &&
			inRange(e, filter.Range)
	}), nil
}

func (r memEvents) ListForPublic(_ context.Context, filter PublicFilter, page pagination.Page) ([]Event, error) {
	text := strings.ToLower(filter.Text)
	return r.filter(page, func(e Event) bool {
		return e.IsPublished() &&
			(text == "" || strings.Contains(strings.ToLower(e.Title), text) || strings.Contains(strings.ToLower(e.Annotation), text)) &&
			(len(filter.CategoryIDs) == 0 || slices.Contains(filter.CategoryIDs, e.Category.ID)) &&
			(filter.Paid == nil || *filter.Paid == e.Paid) &&
			inRange(e, filter.Range)
	}), nil
}

func (r memEvents) FindOrCreateLocation(_ context.Context, location Location) (Location, error) {
	key := [2]float64{location.Lat, location.Lon}
	if existing, ok := r.m.locations[key]; ok {
		return existing, nil
	}
	location.ID = fmt.Sprintf("loc-%d", len(r.m.locations)+1)
	r.m.locations[key] = location
	r.m.writes++
	return location, nil
}

func (r memEvents) filter(page pagination.Page, keep func(Event) bool) []Event {
	var out []Event
	for _, id := range r.m.order {
		if event := r.m.events[id]; keep(event) {
			out = append(out, event)
		}
	}
	return pagination.Slice(out, page)
}

func inRange(e Event, r DateRange) bool {
	if r.Start != nil && e.EventDate.Before(*r.Start) {
		return false
	}
	if r.End != nil && e.EventDate.After(*r.End) {
		return false
	}
	return true
}

type memUsers struct{ m *memStore }

func (r memUsers) Get(_ context.Context, id string) (users.User, error) {
	user, ok := r.m.users[id]
	if !ok {
		return users.User{}, errs.NotFound("user", id)
	}
	return user, nil
}

type memCategories struct{ m *memStore }

func (r memCategories) Get(_ context.Context, id string) (categories.Category, error) {
	category, ok := r.m.categories[id]
	if !ok {
		return categories.Category{}, errs.NotFound("category", id)
	}
	return category, nil
}

type memConfirmed struct{ m *memStore }

func (r memConfirmed) CountConfirmed(_ context.Context, eventIDs []string) (map[string]int64, error) {
	r.m.countReads = append(r.m.countReads, r.m.inTx)
	out := map[string]int64{}
	for _, id := range eventIDs {
		if n, ok := r.m.confirmed[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

// fakeCounts serves Annotator from fixed maps.
type fakeCounts struct {
	confirmed map[string]int64
	views     map[string]int64
}

func (f *fakeCounts) CountConfirmed(_ context.Context, events []Event) (map[string]int64, error) {
	out := map[string]int64{}
	for _, e := range events {
		if e.IsPublished() {
			if n, ok := f.confirmed[e.ID]; ok {
				out[e.ID] = n
			}
		}
	}
	return out, nil
}

func (f *fakeCounts) Annotate(ctx context.Context, events []Event) ([]View, error) {
	confirmed, _ := f.CountConfirmed(ctx, events)
	views := make([]View, 0, len(events))
	for _, e := range events {
		views = append(views, View{Event: e, ConfirmedRequests: confirmed[e.ID], Views: f.views[e.ID]})
	}
	return views, nil
}

type hit struct{ uri, ip string }

type fakeHits struct{ hits []hit }

func (f *fakeHits) RecordHit(_ context.Context, uri, ip string) {
	f.hits = append(f.hits, hit{uri: uri, ip: ip})
}

type fixture struct {
	svc    *Service
	store  *memStore
	counts *fakeCounts
	hits   *fakeHits
}

func newFixture() fixture {
	store := newMemStore()
	counts := &fakeCounts{confirmed: store.confirmed, views: map[string]int64{}}
	hits := &fakeHits{}
	svc := NewService(store, counts, hits, audit.Nop(), zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	next := 0
	svc.newID = func() string {
		next++
		return fmt.Sprintf("evt-%d", next)
	}
	store.addUser("owner")
	store.addUser("other")
	store.addCategory("cat")
	return fixture{svc: svc, store: store, counts: counts, hits: hits}
}

// seed stores an event owned by "owner" in state.
func (f fixture) seed(id string, state State, mutate ...func(*Event)) Event {
	event := Event{
		ID:                id,
		Title:             "Event " + id,
		Annotation:        "An annotation long enough for " + id,
		Description:       "A description long enough for " + id,
		Category:          f.store.categories["cat"],
		Location:          Location{ID: "loc-seed", Lat: 1, Lon: 1},
		ParticipantLimit:  0,
		EventDate:         testNow.Add(48 * time.Hour),
		CreatedOn:         testNow.Add(-time.Hour),
		State:             state,
		Initiator:         f.store.users["owner"],
		RequestModeration: true,
	}
	if state == StatePublished {
		published := testNow.Add(-30 * time.Minute)
		event.PublishedOn = &published
	}
	for _, fn := range mutate {
		fn(&event)
	}
	return f.store.put(event)
}
