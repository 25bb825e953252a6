// Package history persists an audit trail of connectivity checks and restart
// attempts so outages can be reconstructed after the fact.
package history

import (
	"context"
	"time"
)

// EventType defines the kind of watchdog event.
type EventType string

const (
	EventCheck   EventType = "check"
	EventRestart EventType = "restart"
)

// Event is one row of the audit trail. Outcome carries "up"/"down" for
// checks and the restart outcome for restart attempts.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Outcome    string    `json:"outcome"`
	Failures   int       `json:"failures"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for watchdog events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
