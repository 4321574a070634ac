package events

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
)

// EditByAdmin applies a moderator's patch and decision. The event row stays
// locked while the confirmed count, read in the same transaction, is compared
// to a new participant limit.
func (s *Service) EditByAdmin(ctx context.Context, eventID string, patch AdminPatch) (View, error) {
	now := s.clock()
	if err := patch.checkEventDate(now, AdminLeadTime); err != nil {
		s.auditLogger.LogFailure(ctx, "admin.event.update", "admin", "event", eventID, err)
		return View{}, s.violation("admin_edit", err)
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
		if hasAction && event.State != StatePending {
			return errs.Forbidden("stateAction", "only pending events can be published or rejected, current state: %s", event.State)
		}
		if limit, ok := patch.ParticipantLimit.Get(); ok {
			if err := checkLimit(ctx, tx, event, limit); err != nil {
				return err
			}
		}

		from = event.State
		if err := patch.apply(ctx, tx, &event); err != nil {
			return err
		}
		if hasAction {
			switch action {
			case PublishEvent:
				event.publish(now)
			case RejectEvent:
				event.moveTo(StateRejected)
			}
		}

		if err := tx.Events().Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = event
		return nil
	})
	if err != nil {
		s.auditLogger.LogFailure(ctx, "admin.event.update", "admin", "event", eventID, err)
		return View{}, s.violation("admin_edit", err)
	}

	s.recordTransition("admin", from, updated.State)
	s.auditLogger.LogSuccess(ctx, adminAction(action, hasAction), "admin", "event", eventID, map[string]string{
		"from": string(from),
		"to":   string(updated.State),
	})
	s.logger.Info().
		Str("event_id", eventID).
		Str("from", string(from)).
		Str("to", string(updated.State)).
		Msg("event updated by admin")
	return s.annotateOne(ctx, updated)
}

// checkLimit rejects a nonzero limit below the number of already confirmed
// participants. Only published events can hold confirmed requests.
func checkLimit(ctx context.Context, tx Store, event Event, limit int) error {
	if limit == 0 || !event.IsPublished() {
		return nil
	}
	counts, err := tx.Confirmed().CountConfirmed(ctx, []string{event.ID})
	if err != nil {
		return fmt.Errorf("count confirmed requests: %w", err)
	}
	confirmed := counts[event.ID]
	if confirmed != 0 && int64(limit) < confirmed {
		return errs.Forbidden("participantLimit", "new limit %d is below the %d confirmed participants", limit, confirmed)
	}
	return nil
}

// ListForAdmin returns events matching filter in any state.
func (s *Service) ListForAdmin(ctx context.Context, filter AdminFilter, page pagination.Page) ([]View, error) {
	if err := filter.Range.validate(); err != nil {
		return nil, s.violation("admin_list", err)
	}
	events, err := s.store.Events().ListForAdmin(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return s.annotator.Annotate(ctx, events)
}

func adminAction(action AdminStateAction, hasAction bool) string {
	if !hasAction {
		return "admin.event.update"
	}
	switch action {
	case PublishEvent:
		return "admin.event.publish"
	default:
		return "admin.event.reject"
	}
}
