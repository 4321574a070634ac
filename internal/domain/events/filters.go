package events

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
)

// Sort orders public listings after annotation.
type Sort string

const (
	SortNone      Sort = ""
	SortViews     Sort = "VIEWS"
	SortEventDate Sort = "EVENT_DATE"
)

// DateRange bounds eventDate; either end may be open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// validate refuses a range whose start is after its end. The refusal is a
// rule violation (409), not malformed input.
func (r DateRange) validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return errs.Forbidden("rangeStart", "rangeStart %s is after rangeEnd %s",
			timestamp.New(*r.Start), timestamp.New(*r.End))
	}
	return nil
}

// AdminFilter narrows the moderation listing. Empty slices match everything.
type AdminFilter struct {
	UserIDs     []string
	States      []State
	CategoryIDs []string
	Range       DateRange
}

// PublicFilter narrows the public catalogue, which only ever shows published
// events.
type PublicFilter struct {
	Text          string
	CategoryIDs   []string
	Paid          *bool
	Range         DateRange
	OnlyAvailable bool
	Sort          Sort
}

// ParseAdminFilter reads users, states, categories, rangeStart and rangeEnd.
func ParseAdminFilter(values url.Values) (AdminFilter, error) {
	filter := AdminFilter{
		UserIDs:     listParam(values, "users"),
		CategoryIDs: listParam(values, "categories"),
	}
	for _, raw := range listParam(values, "states") {
		state := State(strings.ToUpper(raw))
		if !state.Valid() {
			return AdminFilter{}, errs.ValidationError{Field: "states", Message: "unknown state " + raw}
		}
		filter.States = append(filter.States, state)
	}

	dateRange, err := parseRange(values)
	if err != nil {
		return AdminFilter{}, err
	}
	filter.Range = dateRange
	return filter, nil
}

// ParsePublicFilter reads text, categories, paid, rangeStart, rangeEnd,
// onlyAvailable and sort.
func ParsePublicFilter(values url.Values) (PublicFilter, error) {
	filter := PublicFilter{
		Text:        strings.TrimSpace(values.Get("text")),
		CategoryIDs: listParam(values, "categories"),
	}

	if raw := strings.TrimSpace(values.Get("paid")); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			return PublicFilter{}, errs.ValidationError{Field: "paid", Message: "must be true or false"}
		}
		filter.Paid = &paid
	}
	if raw := strings.TrimSpace(values.Get("onlyAvailable")); raw != "" {
		onlyAvailable, err := strconv.ParseBool(raw)
		if err != nil {
			return PublicFilter{}, errs.ValidationError{Field: "onlyAvailable", Message: "must be true or false"}
		}
		filter.OnlyAvailable = onlyAvailable
	}

	switch sort := Sort(strings.ToUpper(strings.TrimSpace(values.Get("sort")))); sort {
	case SortNone, SortViews, SortEventDate:
		filter.Sort = sort
	default:
		return PublicFilter{}, errs.ValidationError{Field: "sort", Message: "must be VIEWS or EVENT_DATE"}
	}

	dateRange, err := parseRange(values)
	if err != nil {
		return PublicFilter{}, err
	}
	filter.Range = dateRange
	return filter, nil
}

func parseRange(values url.Values) (DateRange, error) {
	start, err := timestamp.ParseOptional(values.Get("rangeStart"))
	if err != nil {
		return DateRange{}, errs.ValidationError{Field: "rangeStart", Message: "expected format " + timestamp.Layout}
	}
	end, err := timestamp.ParseOptional(values.Get("rangeEnd"))
	if err != nil {
		return DateRange{}, errs.ValidationError{Field: "rangeEnd", Message: "expected format " + timestamp.Layout}
	}
	dateRange := DateRange{Start: start.Ptr(), End: end.Ptr()}
	if err := dateRange.validate(); err != nil {
		return DateRange{}, err
	}
	return dateRange, nil
}

// listParam accepts both repeated (?a=1&a=2) and comma separated (?a=1,2) values.
func listParam(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
