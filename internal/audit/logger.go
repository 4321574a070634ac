// Package audit records administrative decisions: user and category
// creation and every admin edit of an event, accepted or refused.
package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

// Entry is one audited decision.
type Entry struct {
	ID           uuid.UUID         `json:"id"`
	Time         time.Time         `json:"time"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	ClientIP     string            `json:"client_ip,omitempty"`
	Outcome      Outcome           `json:"outcome"`
	Details      map[string]string `json:"details,omitempty"`
}

// Logger writes entries, each under a fresh id, as zerolog lines tagged
// component=audit. When the context carries a request logger, entries go
// through it so they share the request and trace ids.
type Logger struct {
	base zerolog.Logger
	now  func() time.Time
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{base: logger, now: time.Now}
}

// Nop discards every entry.
func Nop() *Logger {
	return NewLogger(zerolog.Nop())
}

func (l *Logger) Record(ctx context.Context, entry Entry) {
	if l == nil {
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Time.IsZero() {
		entry.Time = l.now().UTC()
	}
	if entry.ClientIP == "" {
		entry.ClientIP = ClientIP(ctx)
	}

	out := &l.base
	if reqLogger := zerolog.Ctx(ctx); reqLogger.GetLevel() != zerolog.Disabled {
		out = reqLogger
	}
	out.Info().Str("component", "audit").Interface("audit", entry).Msg(entry.Action)
}

func (l *Logger) LogSuccess(ctx context.Context, action, actor, resourceType, resourceID string, details map[string]string) {
	l.Record(ctx, Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      Success,
		Details:      details,
	})
}

// LogFailure records a refused action with err as the reason.
func (l *Logger) LogFailure(ctx context.Context, action, actor, resourceType, resourceID string, err error) {
	entry := Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      Failure,
	}
	if err != nil {
		entry.Details = map[string]string{"error": err.Error()}
	}
	l.Record(ctx, entry)
}

type clientIPKey struct{}

// WithRequest stores the caller's address, without port, so entries logged
// deeper in the call chain can carry it. Forwarded headers are expected to
// be resolved into RemoteAddr already.
func WithRequest(r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return context.WithValue(r.Context(), clientIPKey{}, ip)
}

// ClientIP returns the address stored by WithRequest.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
