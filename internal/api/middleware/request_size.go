package middleware

import (
	"net/http"
)

const (
	// DefaultMaxBodySize bounds public and private API bodies.
	DefaultMaxBodySize int64 = 1 << 20
	// AdminMaxBodySize bounds moderation bodies, which may carry long descriptions.
	AdminMaxBodySize int64 = 5 << 20
)

// RequestSize wraps the request body with http.MaxBytesReader. Handlers see a
// *http.MaxBytesError when they read past maxBytes and answer 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PublicRequestSize() func(http.Handler) http.Handler {
	return RequestSize(DefaultMaxBodySize)
}

func AdminRequestSize() func(http.Handler) http.Handler {
	return RequestSize(AdminMaxBodySize)
}
