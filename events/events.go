package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/glimte/procflow-go/process"
)

// Event is a lifecycle event emitted when a process component reaches a
// terminal state.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
}

// BaseEvent provides the common fields of all lifecycle events.
type BaseEvent struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Source        string    `json:"source,omitempty"`
}

// NewBaseEvent creates a base event with a generated ID and the current UTC
// timestamp.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
	}
}

// EventID returns the unique event identifier.
func (e BaseEvent) EventID() string { return e.ID }

// EventType returns the event type name.
func (e BaseEvent) EventType() string { return e.Type }

// OccurredAt returns the event timestamp.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// ProcessSucceededEvent is emitted when a component completes successfully.
type ProcessSucceededEvent struct {
	BaseEvent

	ComponentID   string        `json:"componentId"`
	ComponentName string        `json:"componentName,omitempty"`
	State         process.State `json:"state"`
	Progress      float64       `json:"progress"`
}

// ProcessFailedEvent is emitted when a component has been rolled back.
type ProcessFailedEvent struct {
	BaseEvent

	ComponentID   string        `json:"componentId"`
	ComponentName string        `json:"componentName,omitempty"`
	State         process.State `json:"state"`

	// TriggeredBy identifies the component whose failure started the
	// rollback, which is not necessarily the component this event is about.
	TriggeredBy string `json:"triggeredBy,omitempty"`
	Hint        string `json:"hint"`
	Cause       string `json:"cause,omitempty"`
}

// NewProcessSucceededEvent builds the success event for a component.
func NewProcessSucceededEvent(c process.Component) *ProcessSucceededEvent {
	return &ProcessSucceededEvent{
		BaseEvent:     NewBaseEvent("ProcessSucceededEvent"),
		ComponentID:   c.ID(),
		ComponentName: c.Name(),
		State:         process.StateSucceeded,
		Progress:      c.Progress(),
	}
}

// NewProcessFailedEvent builds the failure event for a component and the
// reason its subtree was rolled back.
func NewProcessFailedEvent(c process.Component, reason *process.RollbackReason) *ProcessFailedEvent {
	event := &ProcessFailedEvent{
		BaseEvent:     NewBaseEvent("ProcessFailedEvent"),
		ComponentID:   c.ID(),
		ComponentName: c.Name(),
		State:         process.StateFailed,
	}
	if reason != nil {
		event.Hint = reason.Hint()
		if cause := reason.Cause(); cause != nil {
			event.Cause = cause.Error()
		}
		if trigger := reason.Component(); trigger != nil {
			event.TriggeredBy = trigger.ID()
		}
	}
	return event
}
