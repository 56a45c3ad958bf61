package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType classifies engine events.
type EventType string

const (
	// EventSessionCreated fires after a session record becomes durable
	EventSessionCreated EventType = "session.created"
	// EventMoveCommitted fires after an accepted move's CAS commit
	EventMoveCommitted EventType = "move.committed"
	// EventSessionExpired fires when a sweep expires an inactive session
	EventSessionExpired EventType = "session.expired"
	// EventSessionArchived fires when a sweep archives an expired session
	EventSessionArchived EventType = "session.archived"
	// EventSweepRequested asks the lifecycle manager for an immediate pass
	EventSweepRequested EventType = "sweep.requested"
)

// Event is one engine state-change notification. Delivery is
// fire-and-forget; consumers must tolerate loss and duplication.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Version   int64           `json:"version,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Time      time.Time       `json:"time"`
}

// NewEvent builds an event stamped with a fresh ID and the current time.
func NewEvent(t EventType, sessionID string, version int64) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: sessionID,
		Version:   version,
		Time:      time.Now(),
	}
}

// Notifier defines the interface for engine event notification
type Notifier interface {
	// Watch returns a channel that receives engine events
	Watch(ctx context.Context) (<-chan *Event, error)

	// Notify publishes an engine event
	Notify(ctx context.Context, event *Event) error

	// CanReceive returns true if the notifier can receive events
	CanReceive() bool

	// CanSend returns true if the notifier can send events
	CanSend() bool
}
