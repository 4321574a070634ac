package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON document into dst. Syntax and type errors
// come back as errs.ValidationError; an oversized body keeps its
// *http.MaxBytesError so it maps to 413.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errs.ValidationError{Message: "request body is required"}
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var (
		tooLarge  *http.MaxBytesError
		typeError *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return err
	case errors.Is(err, io.EOF):
		return errs.ValidationError{Message: "request body is required"}
	case errors.As(err, &typeError):
		return errs.ValidationError{Field: typeError.Field, Message: "has the wrong type"}
	default:
		return errs.ValidationError{Message: "malformed JSON: " + err.Error()}
	}
}

// pathParam returns a trimmed chi URL parameter, rejecting empty values.
func pathParam(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", errs.ValidationError{Field: name, Message: "is required"}
	}
	return value, nil
}

// clientIP is the caller address without port. Proxy headers are resolved
// into RemoteAddr by chi's RealIP middleware before handlers run.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
