// Package timestamp binds the wire date-time pattern shared by the event API
// and the stats service ("yyyy-MM-dd HH:mm:ss") to a single value type.
package timestamp

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layout is the Go reference layout for the yyyy-MM-dd HH:mm:ss pattern.
const Layout = "2006-01-02 15:04:05"

// Timestamp is a UTC instant with second precision that parses and formats
// with Layout at every boundary (JSON, query strings, SQL).
type Timestamp struct {
	time.Time
}

// New truncates t to whole seconds and normalizes it to UTC.
func New(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// Now returns the current instant as a Timestamp.
func Now() Timestamp {
	return New(time.Now())
}

// Parse reads a value written with Layout. Values carry no zone and are read as UTC.
func Parse(value string) (Timestamp, error) {
	parsed, err := time.ParseInLocation(Layout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: want %s", value, Layout)
	}
	return Timestamp{Time: parsed}, nil
}

// ParseOptional returns nil for an empty value.
func ParseOptional(value string) (*Timestamp, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	ts, err := Parse(value)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(Layout)
}

// Ptr returns the underlying time as a pointer, nil for a nil receiver.
func (t *Timestamp) Ptr() *time.Time {
	if t == nil {
		return nil
	}
	value := t.Time
	return &value
}

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Timestamp) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	return t.UnmarshalText([]byte(raw))
}

// Value stores the instant as a timestamp column.
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.UTC(), nil
}

// Scan accepts time.Time values from the database driver.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Timestamp{}
		return nil
	case time.Time:
		*t = New(v)
		return nil
	case string:
		return t.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("timestamp: cannot scan %T", src)
	}
}
