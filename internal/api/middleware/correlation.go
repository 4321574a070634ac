package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/ewm/internal/audit"
	"github.com/Togather-Foundation/ewm/internal/domain/ids"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 128
)

type requestIDKey struct{}

// CorrelationID tags each request with an id, echoed in X-Request-ID. An id
// sent by a proxy is kept when it looks sane, otherwise a ULID is minted.
// The id is attached to a request scoped zerolog logger and the caller
// address is captured for audit entries.
func CorrelationID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := incomingRequestID(r.Header.Get(requestIDHeader))
			if id == "" {
				id = ids.MustULID()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := audit.WithRequest(r)
			ctx = context.WithValue(ctx, requestIDKey{}, id)
			ctx = logger.With().Str("request_id", id).Logger().WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the correlation id of the request, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func incomingRequestID(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > maxRequestIDLength {
		return ""
	}
	for _, c := range value {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return value
}

// isOpsPath reports the probe and scrape endpoints, which skip rate limiting
// and tracing.
func isOpsPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}
