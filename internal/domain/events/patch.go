package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/optional"
)

// Patch lists the event fields shared by owner and admin edits. Unset fields
// leave the stored value unchanged.
type Patch struct {
	Title             optional.Value[string]
	Annotation        optional.Value[string]
	Description       optional.Value[string]
	CategoryID        optional.Value[string]
	Location          optional.Value[Location]
	Paid              optional.Value[bool]
	ParticipantLimit  optional.Value[int]
	EventDate         optional.Value[time.Time]
	RequestModeration optional.Value[bool]
}

// OwnerPatch is an initiator's edit.
type OwnerPatch struct {
	Patch
	StateAction optional.Value[OwnerStateAction]
}

// AdminPatch is a moderator's edit.
type AdminPatch struct {
	Patch
	StateAction optional.Value[AdminStateAction]
}

// checkEventDate rejects a patched event date closer than lead to now.
func (p Patch) checkEventDate(now time.Time, lead time.Duration) error {
	date, ok := p.EventDate.Get()
	if !ok {
		return nil
	}
	return checkLeadTime(date, now, lead)
}

func checkLeadTime(date, now time.Time, lead time.Duration) error {
	earliest := now.Add(lead)
	if date.Before(earliest) {
		return errs.Forbidden("eventDate", "must be at least %s after now, got %s", lead, date.UTC().Format(time.DateTime))
	}
	return nil
}

// apply copies every set field onto event. Category and location references
// are resolved through store so an unknown category fails before any write.
func (p Patch) apply(ctx context.Context, store Store, event *Event) error {
	p.Title.Apply(&event.Title)
	p.Annotation.Apply(&event.Annotation)
	p.Description.Apply(&event.Description)
	p.Paid.Apply(&event.Paid)
	p.ParticipantLimit.Apply(&event.ParticipantLimit)
	p.EventDate.Apply(&event.EventDate)
	p.RequestModeration.Apply(&event.RequestModeration)

	if categoryID, ok := p.CategoryID.Get(); ok {
		category, err := store.Categories().Get(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
		event.Category = category
	}
	if location, ok := p.Location.Get(); ok {
		resolved, err := store.Events().FindOrCreateLocation(ctx, location)
		if err != nil {
			return fmt.Errorf("resolve location: %w", err)
		}
		event.Location = resolved
	}
	return nil
}
