// Package problem renders errors as RFC 7807 application/problem+json.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const (
	TypeNotFound     = "/problems/not-found"
	TypeRuleViolated = "/problems/rule-violated"
	TypeConflict     = "/problems/conflict"
	TypeValidation   = "/problems/validation-error"
	TypeTooLarge     = "/problems/payload-too-large"
	TypeServerError  = "/problems/server-error"
)

const (
	titleRuleViolated = "For the requested operation the conditions are not met."
	titleNotFound     = "The required object was not found."
	titleConflict     = "Integrity constraint has been violated."
	titleValidation   = "Incorrectly made request."
	titleTooLarge     = "Request body too large."
	titleServerError  = "Internal server error."
)

// ProblemDetails is the response body. Errors maps a field to what is wrong
// with it; Timestamp uses the API's "2006-01-02 15:04:05" layout.
type ProblemDetails struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Status    int            `json:"status"`
	Detail    string         `json:"detail,omitempty"`
	Instance  string         `json:"instance,omitempty"`
	Errors    map[string]any `json:"errors,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Write renders a problem for err. Server error details are only exposed in
// development and test; client error details are always shown.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string) {
	write(w, r, ProblemDetails{Type: typ, Title: title, Status: status}, err, env)
}

// FromError maps a domain error onto its status and writes it. Rule
// violations answer 409 like integrity conflicts.
func FromError(w http.ResponseWriter, r *http.Request, err error, env string) {
	write(w, r, classify(err), err, env)
}

func classify(err error) ProblemDetails {
	var (
		violation  *errs.Violation
		validation errs.ValidationError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &violation):
		return ProblemDetails{Type: TypeRuleViolated, Title: titleRuleViolated, Status: http.StatusConflict, Errors: fieldError(violation.Field, violation.Message)}
	case errors.Is(err, errs.ErrForbidden):
		return ProblemDetails{Type: TypeRuleViolated, Title: titleRuleViolated, Status: http.StatusConflict}
	case errors.Is(err, errs.ErrNotFound):
		return ProblemDetails{Type: TypeNotFound, Title: titleNotFound, Status: http.StatusNotFound}
	case errors.Is(err, errs.ErrConflict):
		return ProblemDetails{Type: TypeConflict, Title: titleConflict, Status: http.StatusConflict}
	case errors.As(err, &validation):
		return ProblemDetails{Type: TypeValidation, Title: titleValidation, Status: http.StatusBadRequest, Errors: fieldError(validation.Field, validation.Message)}
	case errors.Is(err, pagination.ErrInvalidPage):
		return ProblemDetails{Type: TypeValidation, Title: titleValidation, Status: http.StatusBadRequest}
	case errors.As(err, &tooLarge):
		return ProblemDetails{Type: TypeTooLarge, Title: titleTooLarge, Status: http.StatusRequestEntityTooLarge}
	}
	return ProblemDetails{Type: TypeServerError, Title: titleServerError, Status: http.StatusInternalServerError}
}

func fieldError(field, message string) map[string]any {
	if field == "" {
		return nil
	}
	return map[string]any{field: message}
}

func write(w http.ResponseWriter, r *http.Request, p ProblemDetails, err error, env string) {
	serverError := p.Status >= http.StatusInternalServerError
	if err != nil {
		p.Detail = err.Error()
		if serverError && env != "development" && env != "test" {
			p.Detail = http.StatusText(p.Status)
		}
	}
	if r != nil {
		p.Instance = r.URL.Path
	}
	p.Timestamp = timestamp.Now().String()

	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if serverError {
			event = logger.Error()
		}
		event.Err(err).Int("status", p.Status).Str("type", p.Type).Str("method", r.Method).Str("path", r.URL.Path).Msg(p.Title)
	}

	payload, marshalErr := json.Marshal(p)
	if marshalErr != nil {
		p = ProblemDetails{Type: TypeServerError, Title: titleServerError, Status: http.StatusInternalServerError}
		payload, _ = json.Marshal(p)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
