package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimte/procflow-go/process"
)

// Publisher delivers lifecycle events to an external destination.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Emitter is a process.Listener that converts the terminal outcome of a
// component into a lifecycle event and hands it to a Publisher. Publishing
// failures are logged and never affect the process outcome.
type Emitter struct {
	component process.Component
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
	source    string
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithEmitterLogger sets the logger used for publish failures.
func WithEmitterLogger(logger *slog.Logger) EmitterOption {
	return func(e *Emitter) {
		e.logger = logger
	}
}

// WithPublishTimeout bounds the time a single publish may take.
func WithPublishTimeout(timeout time.Duration) EmitterOption {
	return func(e *Emitter) {
		e.timeout = timeout
	}
}

// WithSource stamps every emitted event with an originating service name.
func WithSource(source string) EmitterOption {
	return func(e *Emitter) {
		e.source = source
	}
}

// NewEmitter creates an emitter for the given component. The caller still
// has to attach it: component.AttachListener(emitter).
func NewEmitter(component process.Component, publisher Publisher, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		component: component,
		publisher: publisher,
		logger:    slog.Default(),
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnSucceeded implements process.Listener.
func (e *Emitter) OnSucceeded() {
	event := NewProcessSucceededEvent(e.component)
	event.Source = e.source
	event.CorrelationID = e.component.ID()
	e.publish(event)
}

// OnFailed implements process.Listener.
func (e *Emitter) OnFailed(reason *process.RollbackReason) {
	event := NewProcessFailedEvent(e.component, reason)
	event.Source = e.source
	event.CorrelationID = e.component.ID()
	e.publish(event)
}

func (e *Emitter) publish(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Error("failed to publish process lifecycle event",
			"error", err,
			"eventType", event.EventType(),
			"componentId", e.component.ID())
	}
}
