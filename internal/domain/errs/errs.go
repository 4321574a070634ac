// Package errs defines the error kinds shared by the domain services.
//
// Services return errors that wrap one of the sentinels so the transport layer
// can map them with errors.Is without knowing which aggregate produced them.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates a business rule violation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a storage-level uniqueness violation.
	ErrConflict = errors.New("conflict")
)

// NotFound reports a missing entity of the given kind.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Conflict reports a uniqueness violation.
func Conflict(entity, detail string) error {
	return fmt.Errorf("%s %s: %w", entity, detail, ErrConflict)
}

// Violation is a Forbidden error that names the rule that was broken.
type Violation struct {
	Field   string
	Message string
}

// Forbidden builds a Violation for field.
func Forbidden(field, format string, args ...any) error {
	return &Violation{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (v *Violation) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("Field: %s. Error: %s", v.Field, v.Message)
}

func (v *Violation) Unwrap() error {
	return ErrForbidden
}

// ValidationError is a malformed-input error (bad filter, bad range).
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
