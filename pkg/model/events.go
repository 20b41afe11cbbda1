package model

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event wrapper published to NATS.
type Envelope struct {
	ID            uuid.UUID `json:"id"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	ClientID      string    `json:"client_id"`
	Topic         string    `json:"topic"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	Payload       any       `json:"payload"`
}

// Event types emitted by this service.
const (
	EventOrderPlaced    = "order.placed"
	EventOrderCancelled = "order.cancelled"
	EventConnectionTest = "connection.tested"
)
