package history

import (
	"context"
	"time"
)

// EventType defines the kind of audit event.
type EventType string

const (
	// EventToggle records one addressed-flag flip.
	EventToggle EventType = "toggle"
	// EventReload records a catalog rebuild.
	EventReload EventType = "reload"
)

// Event is one tracker action exported to external audit/statistics
// systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	RecordID   string    `json:"record_id,omitempty"`
	Addressed  bool      `json:"addressed"`
}

// Sink is a destination for audit events. Implementations must be
// safe for concurrent use. Send failures are logged by the caller and
// never fail the user-facing operation.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
