package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Event is a one-shot, fire-and-forget notification.
type Event interface {
	EventType() EventType
	// Payload is the serialisable view used when the event leaves the process.
	Payload() map[string]interface{}
}

// Handler consumes events. Returned errors are logged by the dispatcher and never reach the
// code that emitted the event.
type Handler func(ctx context.Context, e Event) error

// Envelope is the wire form of an Event.
type Envelope struct {
	ID         uuid.UUID              `json:"id"`
	EventType  EventType              `json:"event_type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

func NewEnvelope(e Event, at time.Time) Envelope {
	return Envelope{
		ID:         uuid.New(),
		EventType:  e.EventType(),
		OccurredAt: at.UTC(),
		Payload:    e.Payload(),
	}
}
