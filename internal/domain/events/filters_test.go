package events

import (
	"net/url"
	"testing"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/stretchr/testify/require"
)

func TestParsePublicFilter(t *testing.T) {
	values := url.Values{
		"text":          {" jazz "},
		"categories":    {"a,b", "c"},
		"paid":          {"true"},
		"rangeStart":    {"2026-05-01 10:00:00"},
		"rangeEnd":      {"2026-05-02 10:00:00"},
		"onlyAvailable": {"true"},
		"sort":          {"views"},
	}

	filter, err := ParsePublicFilter(values)

	require.NoError(t, err)
	require.Equal(t, "jazz", filter.Text)
	require.Equal(t, []string{"a", "b", "c"}, filter.CategoryIDs)
	require.NotNil(t, filter.Paid)
	require.True(t, *filter.Paid)
	require.True(t, filter.OnlyAvailable)
	require.Equal(t, SortViews, filter.Sort)
	require.Equal(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), *filter.Range.Start)
}

func TestParsePublicFilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		field  string
	}{
		{name: "bad paid", values: url.Values{"paid": {"maybe"}}, field: "paid"},
		{name: "bad sort", values: url.Values{"sort": {"TITLE"}}, field: "sort"},
		{name: "bad date", values: url.Values{"rangeStart": {"2026-05-01T10:00:00Z"}}, field: "rangeStart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicFilter(tt.values)

			var validation errs.ValidationError
			require.ErrorAs(t, err, &validation)
			require.Equal(t, tt.field, validation.Field)
		})
	}
}

func TestParsePublicFilterInvertedRange(t *testing.T) {
	_, err := ParsePublicFilter(url.Values{"rangeStart": {"2026-05-02 10:00:00"}, "rangeEnd": {"2026-05-01 10:00:00"}})

	var violation *errs.Violation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, "rangeStart", violation.Field)
	require.Contains(t, violation.Message, "2026-05-02 10:00:00")
}

func TestParseAdminFilter(t *testing.T) {
	filter, err := ParseAdminFilter(url.Values{"users": {"u1,u2"}, "states": {"pending,PUBLISHED"}})

	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u2"}, filter.UserIDs)
	require.Equal(t, []State{StatePending, StatePublished}, filter.States)
	require.True(t, filter.Range.IsZero())

	_, err = ParseAdminFilter(url.Values{"states": {"DRAFT"}})
	require.Error(t, err)
}
