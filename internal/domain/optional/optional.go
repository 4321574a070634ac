// Package optional provides an explicit presence wrapper for partial updates.
//
// A patch field that is absent from the request body stays unset; a field that
// is present is applied, even when it carries the zero value of its type.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a T together with whether it was supplied.
type Value[T any] struct {
	value T
	set   bool
}

// Of returns a supplied value.
func Of[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

// None returns an unset value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// FromPtr returns a supplied value for a non-nil p and an unset one otherwise.
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return Value[T]{}
	}
	return Of(*p)
}

// IsSet reports whether a value was supplied.
func (v Value[T]) IsSet() bool {
	return v.set
}

// Get returns the value and whether it was supplied.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.set
}

// OrElse returns the supplied value or fallback.
func (v Value[T]) OrElse(fallback T) T {
	if v.set {
		return v.value
	}
	return fallback
}

// Apply stores the supplied value into dst and reports whether it did.
func (v Value[T]) Apply(dst *T) bool {
	if !v.set {
		return false
	}
	*dst = v.value
	return true
}

// UnmarshalJSON marks the value as supplied. An explicit JSON null is treated
// the same as an absent field.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value[T]{}
		return nil
	}
	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*v = Of(decoded)
	return nil
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}
