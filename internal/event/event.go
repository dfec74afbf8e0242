package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeCarCreated Type = "car.created"
	TypeCarUpdated Type = "car.updated"
	TypeCarDeleted Type = "car.deleted"

	TypeAdditionalServiceCreated Type = "additional_service.created"
	TypeAdditionalServiceUpdated Type = "additional_service.updated"
	TypeAdditionalServiceDeleted Type = "additional_service.deleted"

	TypeBookingQuoted Type = "booking.quoted"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"` // Who triggered the event
}

// New stamps an event with a fresh id and the current time.
func New(typ Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// IsCatalogChange reports whether e alters data served by the public
// catalog endpoints.
func (e Event) IsCatalogChange() bool {
	return strings.HasPrefix(string(e.Type), "car.") || strings.HasPrefix(string(e.Type), "additional_service.")
}

type Publisher interface {
	Publish(e Event)
}

type Bus interface {
	Publisher
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
