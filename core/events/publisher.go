package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel to the broker and returns a closer for the connection.
type dialFunc func(url string) (channel, func() error, error)

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn.Close, nil
}

// Publisher sends JSON notifications to a durable queue. The connection is
// opened lazily and reopened after a failed publish.
type Publisher struct {
	cfg    Config
	logger *zap.Logger
	dial   dialFunc
	now    func() time.Time

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

// NewPublisher connects to the broker and declares the queue.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	p := newPublisher(cfg, logger, dialAMQP)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewLazyPublisher returns a publisher that connects on its first Publish.
func NewLazyPublisher(cfg Config, logger *zap.Logger) *Publisher {
	return newPublisher(cfg, logger, dialAMQP)
}

func newPublisher(cfg Config, logger *zap.Logger, dial dialFunc) *Publisher {
	return &Publisher{cfg: cfg, logger: logger, dial: dial, now: time.Now}
}

// connect must be called with mu held.
func (p *Publisher) connect() error {
	ch, closeConn, err := p.dial(p.cfg.URL)
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return fmt.Errorf("declare queue %s: %w", p.cfg.Queue, err)
	}
	p.ch = ch
	p.closeConn = closeConn
	return nil
}

// reset must be called with mu held.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch = nil
	p.closeConn = nil
}

// Publish sends payload under topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := BuildPublishing(topic, payload, p.now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}

	if err := p.ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, msg); err != nil {
		p.logger.Warn("Broker publish failed", zap.String("topic", topic), zap.Error(err))
		p.reset()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// BuildPublishing encodes payload as a persistent JSON message.
func BuildPublishing(topic string, payload any, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         topic,
		Timestamp:    at.UTC(),
		Body:         body,
	}, nil
}

// Nop discards every notification.
type Nop struct{}

// Publish implements reconcile.Publisher.
func (Nop) Publish(context.Context, string, any) error { return nil }
