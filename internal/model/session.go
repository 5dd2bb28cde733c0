package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionStatus represents the status of a monitoring session.
type SessionStatus string

const (
	// SessionStatusOK indicates a session that ended without errors.
	SessionStatusOK SessionStatus = "ok"
	// SessionStatusErrored indicates a session that recorded errors.
	SessionStatusErrored SessionStatus = "errored"
	// SessionStatusCrashed indicates a session terminated by a crash.
	SessionStatusCrashed SessionStatus = "crashed"
)

// Session represents a single usage period of the host application, from
// SDK start (or explicit session start) until end.
type Session struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	Status      SessionStatus `json:"status"`
	ErrorCount  int           `json:"error_count"`
	Release     string        `json:"release,omitempty"`
	Environment string        `json:"environment,omitempty"`
}

// NewSession creates a new running session.
func NewSession(release, environment string) Session {
	return Session{
		ID:          ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		StartedAt:   time.Now().UTC(),
		Status:      SessionStatusOK,
		Release:     release,
		Environment: environment,
	}
}

// End marks the session as finished at the current instant.
func (s *Session) End() {
	now := time.Now().UTC()
	s.EndedAt = &now
}
