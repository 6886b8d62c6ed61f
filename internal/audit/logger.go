// Package audit records administrative changes (resolving contact messages,
// locking accounts) as structured log lines.
package audit

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one administrative action.
type Entry struct {
	Timestamp    time.Time
	Action       string
	Actor        string
	ResourceType string
	ResourceID   string
	Status       string
	Details      map[string]string
}

type Logger struct {
	out zerolog.Logger
	now func() time.Time
}

func NewLogger(base zerolog.Logger) *Logger {
	return &Logger{
		out: base.With().Bool("audit", true).Logger(),
		now: time.Now,
	}
}

func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	if entry.Actor == "" {
		entry.Actor = "unknown"
	}

	event := l.out.Info()
	if entry.Status == StatusFailure {
		event = l.out.Warn()
	}
	event = event.
		Time("at", entry.Timestamp).
		Str("action", entry.Action).
		Str("actor", entry.Actor).
		Str("status", entry.Status)
	if entry.ResourceType != "" {
		event = event.Str("resource_type", entry.ResourceType)
	}
	if entry.ResourceID != "" {
		event = event.Str("resource_id", entry.ResourceID)
	}
	if len(entry.Details) > 0 {
		dict := zerolog.Dict()
		for k, v := range entry.Details {
			dict = dict.Str(k, v)
		}
		event = event.Dict("details", dict)
	}
	event.Msg("audit")
}

func (l *Logger) LogSuccess(action, actor, resourceType, resourceID string, details map[string]string) {
	l.Log(Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       StatusSuccess,
		Details:      details,
	})
}

// LogFailure records an attempted action. The error text goes into details.
func (l *Logger) LogFailure(action, actor, resourceType, resourceID string, err error) {
	var details map[string]string
	if err != nil {
		details = map[string]string{"error": err.Error()}
	}
	l.Log(Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       StatusFailure,
		Details:      details,
	})
}
