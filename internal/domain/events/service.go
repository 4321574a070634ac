package events

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/audit"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/ids"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// OwnerLeadTime is the minimum distance between now and the event date
	// for events created or edited by their initiator.
	OwnerLeadTime = 2 * time.Hour
	// AdminLeadTime is the same minimum for moderator edits.
	AdminLeadTime = time.Hour
)

// Service runs the event lifecycle: owner submission and edits, admin
// moderation and the public catalogue.
type Service struct {
	store       Store
	annotator   Annotator
	hits        HitRecorder
	auditLogger *audit.Logger
	logger      zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(
	store Store,
	annotator Annotator,
	hits HitRecorder,
	auditLogger *audit.Logger,
	logger zerolog.Logger,
) *Service {
	return &Service{
		store:       store,
		annotator:   annotator,
		hits:        hits,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "events").Logger(),
		now:         time.Now,
		newID:       ids.MustULID,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// CreateByOwner stores a new PENDING event submitted by initiatorID.
func (s *Service) CreateByOwner(ctx context.Context, initiatorID string, params NewEvent) (View, error) {
	now := s.clock()
	if err := checkLeadTime(params.EventDate, now, OwnerLeadTime); err != nil {
		return View{}, s.violation("create", err)
	}
	if params.ParticipantLimit < 0 {
		return View{}, errs.ValidationError{Field: "participantLimit", Message: "must not be negative"}
	}

	var created Event
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		initiator, err := tx.Users().Get(ctx, initiatorID)
		if err != nil {
			return fmt.Errorf("resolve initiator: %w", err)
		}
		category, err := tx.Categories().Get(ctx, params.CategoryID)
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
		location, err := tx.Events().FindOrCreateLocation(ctx, params.Location)
		if err != nil {
			return fmt.Errorf("resolve location: %w", err)
		}

		event := Event{
			ID:                s.newID(),
			Title:             params.Title,
			Annotation:        params.Annotation,
			Description:       params.Description,
			Category:          category,
			Location:          location,
			Paid:              params.Paid,
			ParticipantLimit:  params.ParticipantLimit,
			EventDate:         params.EventDate.UTC(),
			CreatedOn:         now,
			State:             StatePending,
			Initiator:         initiator,
			RequestModeration: params.RequestModeration,
		}
		if err := tx.Events().Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		created = event
		return nil
	})
	if err != nil {
		return View{}, err
	}

	s.logger.Info().
		Str("event_id", created.ID).
		Str("initiator_id", initiatorID).
		Msg("event created")
	return s.annotateOne(ctx, created)
}

// EditByOwner applies an initiator's patch. Published events are frozen for
// their owner regardless of the patch content.
func (s *Service) EditByOwner(ctx context.Context, userID, eventID string, patch OwnerPatch) (View, error) {
	now := s.clock()
	if err := patch.checkEventDate(now, OwnerLeadTime); err != nil {
		return View{}, s.violation("owner_edit", err)
	}
	if err := validatePatch(patch.Patch); err != nil {
		return View{}, err
	}
	action, hasAction := patch.StateAction.Get()
	if hasAction && !action.Valid() {
		return View{}, errs.ValidationError{Field: "stateAction", Message: "unknown action " + string(action)}
	}

	var updated Event
	var from State
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		event, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		if !event.IsOwnedBy(userID) {
			return errs.NotFound("event", eventID)
		}
		if event.IsPublished() {
			return errs.Forbidden("state", "only pending or canceled events can be changed")
		}

		from = event.State
		if err := patch.apply(ctx, tx, &event); err != nil {
			return err
		}
		if hasAction {
			switch action {
			case SendToReview:
				event.moveTo(StatePending)
			case CancelReview:
				event.moveTo(StateCanceled)
			}
		}

		if err := tx.Events().Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = event
		return nil
	})
	if err != nil {
		return View{}, s.violation("owner_edit", err)
	}

	s.recordTransition("owner", from, updated.State)
	s.logger.Info().
		Str("event_id", eventID).
		Str("state", string(updated.State)).
		Msg("event updated by owner")
	return s.annotateOne(ctx, updated)
}

// GetByOwner returns one of userID's events.
func (s *Service) GetByOwner(ctx context.Context, userID, eventID string) (View, error) {
	event, err := s.store.Events().GetByInitiator(ctx, userID, eventID)
	if err != nil {
		return View{}, fmt.Errorf("get event: %w", err)
	}
	return s.annotateOne(ctx, event)
}

// ListByOwner returns a page of userID's events.
func (s *Service) ListByOwner(ctx context.Context, userID string, page pagination.Page) ([]View, error) {
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	events, err := s.store.Events().ListByInitiator(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return s.annotator.Annotate(ctx, events)
}

// GetPublic returns a published event and records the view.
func (s *Service) GetPublic(ctx context.Context, eventID, clientIP string) (View, error) {
	event, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return View{}, fmt.Errorf("get event: %w", err)
	}
	if !event.IsPublished() {
		return View{}, errs.NotFound("published event", eventID)
	}

	s.hits.RecordHit(ctx, ids.EventURI(event.ID), clientIP)
	return s.annotateOne(ctx, event)
}

// ListForPublic searches published events. Without a date range only
// upcoming events are returned. A hit on the listing is recorded only when
// the page holds events. Availability filtering and sorting apply to the
// fetched page.
func (s *Service) ListForPublic(ctx context.Context, filter PublicFilter, page pagination.Page, clientIP string) ([]View, error) {
	if err := filter.Range.validate(); err != nil {
		return nil, s.violation("public_list", err)
	}
	if filter.Range.IsZero() {
		now := s.clock()
		filter.Range.Start = &now
	}

	events, err := s.store.Events().ListForPublic(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return []View{}, nil
	}
	s.hits.RecordHit(ctx, ids.EventsPath, clientIP)

	views, err := s.annotator.Annotate(ctx, events)
	if err != nil {
		return nil, err
	}

	if filter.OnlyAvailable {
		views = slices.DeleteFunc(views, func(v View) bool {
			return !v.HasFreeSlots(v.ConfirmedRequests)
		})
	}
	switch filter.Sort {
	case SortViews:
		slices.SortStableFunc(views, func(a, b View) int { return cmp.Compare(a.Views, b.Views) })
	case SortEventDate:
		slices.SortStableFunc(views, func(a, b View) int { return a.EventDate.Compare(b.EventDate) })
	}
	return views, nil
}

func (s *Service) annotateOne(ctx context.Context, event Event) (View, error) {
	views, err := s.annotator.Annotate(ctx, []Event{event})
	if err != nil {
		return View{}, err
	}
	if len(views) != 1 {
		return View{}, fmt.Errorf("annotate event %s: got %d views", event.ID, len(views))
	}
	return views[0], nil
}

func validatePatch(p Patch) error {
	if limit, ok := p.ParticipantLimit.Get(); ok && limit < 0 {
		return errs.ValidationError{Field: "participantLimit", Message: "must not be negative"}
	}
	return nil
}

// violation counts rule violations by field and passes err through.
func (s *Service) violation(operation string, err error) error {
	var v *errs.Violation
	if errors.As(err, &v) {
		metrics.RuleViolations.WithLabelValues(operation, v.Field).Inc()
	}
	return err
}

func (s *Service) recordTransition(actor string, from, to State) {
	if from != to {
		metrics.EventTransitions.WithLabelValues(actor, string(from), string(to)).Inc()
	}
}
