// Package rabbitmq publishes process lifecycle events to a RabbitMQ topic
// exchange. Events are JSON encoded and routed as
// "<prefix><event-type>", e.g. "procflow.ProcessFailedEvent", so consumers
// can bind to exactly the outcomes they care about.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/procflow-go/events"
)

// ErrClosed is returned when publishing on a closed publisher.
var ErrClosed = errors.New("rabbitmq: publisher is closed")

// ErrNotConnected is returned while the connection is being re-established.
var ErrNotConnected = errors.New("rabbitmq: not connected")

const defaultExchange = "procflow.events"

// Publisher implements events.Publisher on top of an AMQP connection. The
// connection is re-established automatically when the broker closes it.
type Publisher struct {
	url            string
	exchange       string
	routingPrefix  string
	reconnectDelay time.Duration
	logger         *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
	done    chan struct{}
}

// PublisherOption configures the publisher.
type PublisherOption func(*Publisher)

// WithExchange sets the topic exchange events are published to.
func WithExchange(exchange string) PublisherOption {
	return func(p *Publisher) {
		p.exchange = exchange
	}
}

// WithRoutingPrefix sets the routing key prefix.
func WithRoutingPrefix(prefix string) PublisherOption {
	return func(p *Publisher) {
		p.routingPrefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithReconnectDelay sets the delay between reconnection attempts.
func WithReconnectDelay(delay time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.reconnectDelay = delay
	}
}

// NewPublisher connects to the broker and declares the event exchange.
func NewPublisher(url string, opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{
		url:            url,
		exchange:       defaultExchange,
		routingPrefix:  "procflow.",
		reconnectDelay: 5 * time.Second,
		logger:         slog.Default(),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = channel
	p.mu.Unlock()

	go p.monitor(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

// monitor watches for a broker-side close and reconnects until Close is
// called.
func (p *Publisher) monitor(closed <-chan *amqp.Error) {
	select {
	case <-p.done:
		return
	case amqpErr := <-closed:
		if amqpErr == nil {
			return
		}
		p.logger.Warn("connection lost, reconnecting", "error", amqpErr)
	}

	p.mu.Lock()
	p.conn = nil
	p.channel = nil
	p.mu.Unlock()

	for {
		select {
		case <-p.done:
			return
		case <-time.After(p.reconnectDelay):
		}
		if err := p.connect(); err != nil {
			p.logger.Error("reconnect failed", "error", err)
			continue
		}
		p.logger.Info("reconnected")
		return
	}
}

// Publish implements events.Publisher. Events are published persistent so a
// broker restart does not lose recorded outcomes.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	channel := p.channel
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if channel == nil {
		return ErrNotConnected
	}

	msg, err := buildPublishing(event)
	if err != nil {
		return err
	}
	if err := channel.PublishWithContext(ctx, p.exchange, p.routingKey(event), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}
	return nil
}

// Close shuts the connection down. The publisher cannot be reused.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.conn = nil
	p.channel = nil
	p.mu.Unlock()

	close(p.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (p *Publisher) routingKey(event events.Event) string {
	return p.routingPrefix + event.EventType()
}

func buildPublishing(event events.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode %s: %w", event.EventType(), err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID(),
		Type:         event.EventType(),
		Timestamp:    event.OccurredAt(),
		Body:         body,
	}, nil
}
