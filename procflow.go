// Package procflow is the entry point for building observable process trees.
//
// The core machinery lives in the process package; procflow wires it to the
// RabbitMQ event transport so every observed tree reports its terminal
// outcome as a published lifecycle event.
package procflow

import (
	"fmt"
	"log/slog"

	"github.com/glimte/procflow-go/events"
	"github.com/glimte/procflow-go/process"
	"github.com/glimte/procflow-go/transports/rabbitmq"
)

// Client publishes the terminal outcomes of observed process trees.
type Client struct {
	publisher   events.Publisher
	transport   *rabbitmq.Publisher
	logger      *slog.Logger
	serviceName string
}

// NewClient connects to RabbitMQ and returns a client that can observe
// process components.
func NewClient(connectionString string, options ...ClientOption) (*Client, error) {
	cfg := newClientConfig(options)

	transportOpts := []rabbitmq.PublisherOption{
		rabbitmq.WithLogger(cfg.logger),
	}
	if cfg.exchange != "" {
		transportOpts = append(transportOpts, rabbitmq.WithExchange(cfg.exchange))
	}
	transport, err := rabbitmq.NewPublisher(connectionString, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	client := newClient(transport, cfg)
	client.transport = transport
	return client, nil
}

// NewClientWithPublisher returns a client on top of a custom event
// publisher. Useful for tests and for non-AMQP destinations.
func NewClientWithPublisher(publisher events.Publisher, options ...ClientOption) *Client {
	return newClient(publisher, newClientConfig(options))
}

func newClient(publisher events.Publisher, cfg *clientConfig) *Client {
	return &Client{
		publisher:   publisher,
		logger:      cfg.logger,
		serviceName: cfg.serviceName,
	}
}

// Observe attaches a lifecycle event emitter to the component. The returned
// emitter can later be detached again.
func (c *Client) Observe(component process.Component) *events.Emitter {
	emitter := events.NewEmitter(component, c.publisher,
		events.WithEmitterLogger(c.logger),
		events.WithSource(c.serviceName),
	)
	component.AttachListener(emitter)
	return emitter
}

// Publisher exposes the underlying event publisher.
func (c *Client) Publisher() events.Publisher {
	return c.publisher
}

// Close releases the transport, if the client owns one.
func (c *Client) Close() error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}
