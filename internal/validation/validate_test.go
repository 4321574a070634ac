package validation

import (
	"testing"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string `json:"title" validate:"notblank,min=3,max=10"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Limit int    `json:"participantLimit" validate:"gte=0"`
}

func TestStructPasses(t *testing.T) {
	require.NoError(t, Struct(sample{Title: "Gig", Email: "a@b.co"}))
}

func TestStructReportsJSONFieldName(t *testing.T) {
	tests := []struct {
		name  string
		in    sample
		field string
	}{
		{"blank title", sample{Title: "   "}, "title"},
		{"short title", sample{Title: "ab"}, "title"},
		{"long title", sample{Title: "abcdefghijk"}, "title"},
		{"bad email", sample{Title: "Gig", Email: "nope"}, "email"},
		{"negative limit", sample{Title: "Gig", Limit: -1}, "participantLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr errs.ValidationError
			require.ErrorAs(t, Struct(tt.in), &verr)
			require.Equal(t, tt.field, verr.Field)
			require.NotEmpty(t, verr.Message)
		})
	}
}

type patchSample struct {
	Title *string `json:"title" validate:"omitnil,notblank,min=3,max=10"`
	Limit *int    `json:"participantLimit" validate:"omitnil,gte=0"`
}

func TestStructSkipsAbsentPatchFields(t *testing.T) {
	title, limit := "Gig", 0
	require.NoError(t, Struct(patchSample{}))
	require.NoError(t, Struct(patchSample{Title: &title, Limit: &limit}))

	blank, negative := "  ", -1
	var verr errs.ValidationError
	require.ErrorAs(t, Struct(patchSample{Title: &blank}), &verr)
	require.Equal(t, "title", verr.Field)

	require.ErrorAs(t, Struct(patchSample{Limit: &negative}), &verr)
	require.Equal(t, "participantLimit", verr.Field)
}
