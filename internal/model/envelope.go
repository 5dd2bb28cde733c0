package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EnvelopeKind discriminates the payload carried by an envelope.
type EnvelopeKind string

const (
	// EnvelopeKindEvent carries a captured event.
	EnvelopeKindEvent EnvelopeKind = "event"
	// EnvelopeKindSession carries a finished session.
	EnvelopeKindSession EnvelopeKind = "session"
)

// Envelope is the durable unit the client hands to the offline store. It
// wraps a serialized payload so the store doesn't need to know event
// internals.
type Envelope struct {
	ID        string       `json:"id"`
	EventID   EventID      `json:"event_id,omitempty"`
	Kind      EnvelopeKind `json:"kind"`
	Payload   []byte       `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewEventEnvelope wraps an event into an envelope.
func NewEventEnvelope(ev Event) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("could not serialize event: %w", err)
	}

	return Envelope{
		ID:        string(NewEventID()),
		EventID:   ev.ID,
		Kind:      EnvelopeKindEvent,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewSessionEnvelope wraps a session into an envelope.
func NewSessionEnvelope(s Session) (Envelope, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return Envelope{}, fmt.Errorf("could not serialize session: %w", err)
	}

	return Envelope{
		ID:        string(NewEventID()),
		Kind:      EnvelopeKindSession,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}
