package ids

import (
	"crypto/rand"
	"errors"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidRegex = regexp.MustCompile(`(?i)^[0-9A-HJKMNP-TV-Z]{26}$`)

	ErrInvalidULID     = errors.New("invalid ULID")
	ErrInvalidEventURI = errors.New("invalid event URI")
)

// EventsPath is the public path prefix of an event; stats hits for an event are
// recorded against EventsPath + "/" + id.
const EventsPath = "/events"

// NewULID generates a new ULID string.
func NewULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// MustULID is NewULID for callers that cannot fail (tests, seeds).
func MustULID() string {
	return ulid.Make().String()
}

// IsULID returns true when value is a valid ULID (case-insensitive Crockford Base32).
func IsULID(value string) bool {
	return ulidRegex.MatchString(strings.TrimSpace(value))
}

// ValidateULID validates a ULID string.
func ValidateULID(value string) error {
	if !IsULID(value) {
		return ErrInvalidULID
	}
	return nil
}

// Normalize trims and upper-cases a ULID.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// EventURI returns the stats URI of an event.
func EventURI(eventID string) string {
	return EventsPath + "/" + eventID
}

// EventURIs maps event ids to their stats URIs, preserving order.
func EventURIs(eventIDs []string) []string {
	uris := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		uris = append(uris, EventURI(id))
	}
	return uris
}

// ParseEventURI extracts the event id from "/events/{id}".
func ParseEventURI(uri string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(uri))
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if len(parts) != 2 || "/"+parts[0] != EventsPath || parts[1] == "" {
		return "", ErrInvalidEventURI
	}
	return parts[1], nil
}
