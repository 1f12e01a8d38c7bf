// Package messaging publishes domain events to a RabbitMQ topic exchange.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/observability"
)

const defaultExchange = "pipeline.events"

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements port.EventPublisher. amqp channels are not safe for
// concurrent publishing, so calls are serialised.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// Dial connects, opens a channel and declares a durable topic exchange.
func Dial(url, exchange string, metrics *observability.Metrics, logger *zap.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = defaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare exchange %q: %w", exchange, err)
	}
	logger.Info("event publisher connected", zap.String("exchange", exchange))
	return &Publisher{conn: conn, ch: ch, exchange: exchange, metrics: metrics, logger: logger}, nil
}

func newPublisher(ch channel, exchange string, metrics *observability.Metrics, logger *zap.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, metrics: metrics, logger: logger}
}

// Publish sends e with its type as routing key.
func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && p.conn.IsClosed() {
		p.metrics.IncrEventPublished(e.Type, "error")
		return domain.Provider("amqp", "Publish", fmt.Errorf("connection closed"))
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg); err != nil {
		p.metrics.IncrEventPublished(e.Type, "error")
		return domain.Provider("amqp", "Publish", err)
	}
	p.metrics.IncrEventPublished(e.Type, "ok")
	p.logger.Debug("event published", zap.String("type", e.Type), zap.String("subject_id", e.SubjectID))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func encode(e domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         e.Type,
		Timestamp:    ts,
		Body:         body,
	}, nil
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.Event) error { return nil }
