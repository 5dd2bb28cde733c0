package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventID identifies a captured event. An empty EventID means the capture
// was a no-op (e.g. no client bound when the event was captured).
type EventID string

// EmptyEventID is the identifier returned by no-op captures.
const EmptyEventID = EventID("")

// NewEventID generates a new unique event ID.
func NewEventID() EventID {
	return EventID(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}

// Level is the severity of an event or breadcrumb.
type Level string

const (
	// LevelDebug is the debug severity.
	LevelDebug Level = "debug"
	// LevelInfo is the info severity.
	LevelInfo Level = "info"
	// LevelWarning is the warning severity.
	LevelWarning Level = "warning"
	// LevelError is the error severity.
	LevelError Level = "error"
	// LevelFatal is the fatal severity.
	LevelFatal Level = "fatal"
)

// Exception describes an error condition attached to an event.
type Exception struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// User is the user context attached to events.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Event is a single captured occurrence (error, message or crash report).
type Event struct {
	ID          EventID                `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Level       Level                  `json:"level"`
	Message     string                 `json:"message,omitempty"`
	Exceptions  []Exception            `json:"exceptions,omitempty"`
	Tags        map[string]string      `json:"tags,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
	Breadcrumbs []Breadcrumb           `json:"breadcrumbs,omitempty"`
	User        User                   `json:"user,omitempty"`
	Release     string                 `json:"release,omitempty"`
	Environment string                 `json:"environment,omitempty"`
}

// NewMessageEvent creates an info event from a plain message.
func NewMessageEvent(message string) Event {
	return Event{
		Level:   LevelInfo,
		Message: message,
	}
}

// NewErrorEvent creates an error event from a Go error.
func NewErrorEvent(err error) Event {
	return Event{
		Level: LevelError,
		Exceptions: []Exception{
			{Type: "error", Value: err.Error()},
		},
	}
}
