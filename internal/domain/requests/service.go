package requests

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/ids"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/Togather-Foundation/ewm/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.Tracer("ewm/requests")

// Service runs the participation request lifecycle. Every mutation locks the
// event row first, so confirmations for one event are serialized and the
// confirmed count read inside the transaction cannot go stale.
type Service struct {
	store  Store
	logger zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "requests").Logger(),
		now:    time.Now,
		newID:  ids.MustULID,
	}
}

// Create files requesterID's request for eventID. Requests for events without
// moderation or without a limit are confirmed immediately.
func (s *Service) Create(ctx context.Context, requesterID, eventID string) (Request, error) {
	ctx, span := tracer.Start(ctx, "requests.Create")
	defer span.End()

	var created Request
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.Users().Get(ctx, requesterID); err != nil {
			return fmt.Errorf("resolve requester: %w", err)
		}
		event, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}

		if event.IsOwnedBy(requesterID) {
			return errs.Forbidden("", "cannot request participation in your own event")
		}
		if !event.IsPublished() {
			return errs.Forbidden("", "cannot request participation in an unpublished event")
		}
		exists, err := tx.Requests().Exists(ctx, eventID, requesterID)
		if err != nil {
			return fmt.Errorf("check existing request: %w", err)
		}
		if exists {
			return errs.Forbidden("", "a request for this event already exists")
		}

		confirmed, err := confirmedFor(ctx, tx, event)
		if err != nil {
			return err
		}
		if !event.Unlimited() && confirmed+1 > int64(event.ParticipantLimit) {
			return errs.Forbidden("participantLimit", "participant limit %d has been reached", event.ParticipantLimit)
		}

		request := Request{
			ID:          s.newID(),
			EventID:     eventID,
			RequesterID: requesterID,
			Created:     s.now().UTC().Truncate(time.Second),
			Status:      StatusPending,
		}
		if event.AutoConfirms() {
			request.Status = StatusConfirmed
		}
		if err := tx.Requests().Create(ctx, request); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		created = request
		return nil
	})
	if err != nil {
		return Request{}, s.violation("create", err)
	}

	metrics.RequestDecisions.WithLabelValues(string(created.Status), "create").Inc()
	s.logger.Info().
		Str("request_id", created.ID).
		Str("event_id", eventID).
		Str("status", string(created.Status)).
		Msg("participation request created")
	return created, nil
}

// Cancel withdraws requesterID's own request from any status.
func (s *Service) Cancel(ctx context.Context, requesterID, requestID string) (Request, error) {
	var canceled Request
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.Users().Get(ctx, requesterID); err != nil {
			return fmt.Errorf("resolve requester: %w", err)
		}
		request, err := tx.Requests().Get(ctx, requestID)
		if err != nil {
			return fmt.Errorf("load request: %w", err)
		}
		if request.RequesterID != requesterID {
			return errs.Forbidden("", "only the requester can cancel a request")
		}

		request.Status = StatusCanceled
		if err := tx.Requests().Update(ctx, request); err != nil {
			return fmt.Errorf("cancel request: %w", err)
		}
		canceled = request
		return nil
	})
	if err != nil {
		return Request{}, s.violation("cancel", err)
	}

	metrics.RequestDecisions.WithLabelValues(string(StatusCanceled), "cancel").Inc()
	return canceled, nil
}

// ListByRequester returns every request filed by requesterID.
func (s *Service) ListByRequester(ctx context.Context, requesterID string) ([]Request, error) {
	if _, err := s.store.Users().Get(ctx, requesterID); err != nil {
		return nil, fmt.Errorf("resolve requester: %w", err)
	}
	requests, err := s.store.Requests().ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// ListByEventOwner returns the requests filed for ownerID's event.
func (s *Service) ListByEventOwner(ctx context.Context, ownerID, eventID string) ([]Request, error) {
	event, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if !event.IsOwnedBy(ownerID) {
		return nil, errs.Forbidden("", "only the event initiator can view its requests")
	}
	requests, err := s.store.Requests().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// BulkUpdateStatus applies the initiator's decision to PENDING requests of
// eventID. Confirming is all-or-nothing against the participant limit; when
// the limit is reached every other PENDING request is rejected.
func (s *Service) BulkUpdateStatus(ctx context.Context, ownerID, eventID string, requestIDs []string, target Status) (UpdateResult, error) {
	ctx, span := tracer.Start(ctx, "requests.BulkUpdateStatus")
	defer span.End()

	if target != StatusConfirmed && target != StatusRejected {
		return UpdateResult{}, errs.ValidationError{Field: "status", Message: "must be CONFIRMED or REJECTED"}
	}
	requestIDs = dedupe(requestIDs)
	span.SetAttributes(attribute.String("event.id", eventID), attribute.Int("requests.count", len(requestIDs)))

	var result UpdateResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		event, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		if !event.IsOwnedBy(ownerID) {
			return errs.Forbidden("", "only the event initiator can decide on its requests")
		}
		if event.AutoConfirms() || len(requestIDs) == 0 {
			return nil
		}

		pending, err := tx.Requests().ListByEventAndIDs(ctx, eventID, requestIDs)
		if err != nil {
			return fmt.Errorf("resolve requests: %w", err)
		}
		if len(pending) != len(requestIDs) {
			return errs.NotFound("request", missingIDs(requestIDs, pending))
		}
		for _, request := range pending {
			if request.Status != StatusPending {
				return errs.Forbidden("status", "request %s is %s, only PENDING requests can be decided", request.ID, request.Status)
			}
		}

		if target == StatusRejected {
			rejected, err := rejectBatch(ctx, tx, pending)
			if err != nil {
				return err
			}
			result.Rejected = rejected
			return nil
		}

		confirmed, err := confirmedFor(ctx, tx, event)
		if err != nil {
			return err
		}
		projected := confirmed + int64(len(pending))
		if projected > int64(event.ParticipantLimit) {
			return errs.Forbidden("participantLimit", "participant limit %d has been reached", event.ParticipantLimit)
		}

		if result.Confirmed, err = confirmBatch(ctx, tx, pending); err != nil {
			return err
		}
		if projected >= int64(event.ParticipantLimit) {
			if result.Rejected, err = rejectRemainingPending(ctx, tx, eventID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return UpdateResult{}, s.violation("bulk_update", err)
	}

	rejectSource := "cascade"
	if target == StatusRejected {
		rejectSource = "bulk"
	}
	metrics.RequestDecisions.WithLabelValues(string(StatusConfirmed), "bulk").Add(float64(len(result.Confirmed)))
	metrics.RequestDecisions.WithLabelValues(string(StatusRejected), rejectSource).Add(float64(len(result.Rejected)))
	s.logger.Info().
		Str("event_id", eventID).
		Int("confirmed", len(result.Confirmed)).
		Int("rejected", len(result.Rejected)).
		Msg("participation requests updated")
	return result, nil
}

// confirmBatch confirms the given PENDING requests.
func confirmBatch(ctx context.Context, tx Store, pending []Request) ([]Request, error) {
	return setStatus(ctx, tx, pending, StatusConfirmed)
}

func rejectBatch(ctx context.Context, tx Store, pending []Request) ([]Request, error) {
	return setStatus(ctx, tx, pending, StatusRejected)
}

// rejectRemainingPending rejects whatever is still PENDING once the limit is
// reached.
func rejectRemainingPending(ctx context.Context, tx Store, eventID string) ([]Request, error) {
	rejected, err := tx.Requests().RejectPending(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("reject remaining requests: %w", err)
	}
	return rejected, nil
}

func setStatus(ctx context.Context, tx Store, requests []Request, status Status) ([]Request, error) {
	ids := make([]string, 0, len(requests))
	updated := make([]Request, 0, len(requests))
	for _, request := range requests {
		ids = append(ids, request.ID)
		request.Status = status
		updated = append(updated, request)
	}
	if err := tx.Requests().SetStatus(ctx, ids, status); err != nil {
		return nil, fmt.Errorf("set request status %s: %w", status, err)
	}
	return updated, nil
}

func confirmedFor(ctx context.Context, tx Store, event events.Event) (int64, error) {
	counts, err := NewCounter(tx.Requests()).CountConfirmed(ctx, []events.Event{event})
	if err != nil {
		return 0, err
	}
	return counts[event.ID], nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func missingIDs(wanted []string, found []Request) string {
	var missing []string
	for _, id := range wanted {
		if !slices.ContainsFunc(found, func(r Request) bool { return r.ID == id }) {
			missing = append(missing, id)
		}
	}
	return fmt.Sprint(missing)
}

func (s *Service) violation(operation string, err error) error {
	var v *errs.Violation
	if errors.As(err, &v) {
		field := v.Field
		if field == "" {
			field = "none"
		}
		metrics.RuleViolations.WithLabelValues("request_"+operation, field).Inc()
	}
	return err
}
