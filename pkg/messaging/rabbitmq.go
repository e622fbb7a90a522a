package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// deadLetterExchange receives messages rejected past their retry budget.
const deadLetterExchange = "dlx.pipeline"

// RabbitMQ owns the broker connection and one shared channel. amqp091
// serializes writes on a channel, so publishers and consumers can use
// it concurrently.
type RabbitMQ struct {
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
	logger  *logger.Logger
	closed  bool
}

// New dials the broker and opens the shared channel.
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{cfg: cfg, logger: log}

	conn, ch, err := r.dial()
	if err != nil {
		return nil, err
	}
	r.conn = conn
	r.channel = ch
	r.logger.Info().Msg("connected to RabbitMQ")
	return r, nil
}

func (r *RabbitMQ) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}
	return conn, ch, nil
}

// Channel returns the shared channel. Callers must not cache it across
// a Reconnect.
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close shuts down the channel and connection. A closed RabbitMQ never
// reconnects.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports broker reachability for the health endpoint.
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.conn == nil || r.conn.IsClosed() {
		return map[string]string{"status": "down", "error": "connection closed"}
	}
	return map[string]string{"status": "up"}
}

// Reconnect re-dials the broker, retrying up to the configured limit.
// Consumers call this when their delivery channel dies; the old
// connection is abandoned, not closed, since it is already gone.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return fmt.Errorf("connection is permanently closed")
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		r.logger.Info().Int("attempt", attempt).Msg("reconnecting to RabbitMQ")

		conn, ch, err := r.dial()
		if err == nil {
			r.mu.Lock()
			r.conn = conn
			r.channel = ch
			r.mu.Unlock()
			r.logger.Info().Msg("reconnected to RabbitMQ")
			return nil
		}
		lastErr = err
		r.logger.Warn().Err(err).Msg("reconnection attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.ReconnectDelay):
		}
	}
	return fmt.Errorf("reconnect after %d attempts: %w", r.cfg.MaxRetries, lastErr)
}

// DeclareTopicExchange declares a durable topic exchange.
func (r *RabbitMQ) DeclareTopicExchange(name string) error {
	return r.Channel().ExchangeDeclare(name, "topic", true, false, false, false, nil)
}

// declareWorkQueue declares a quorum queue whose rejected messages
// dead-letter into dlq.<name> via the shared DLX. Quorum queues carry
// the broker-maintained x-delivery-count header consumers use to bound
// redelivery. The x-dead-letter-routing-key override routes a reject to
// the queue's own parking queue rather than wherever the original
// routing key would land it.
func (r *RabbitMQ) declareWorkQueue(name string) (amqp.Queue, error) {
	ch := r.Channel()

	if err := ch.ExchangeDeclare(deadLetterExchange, "topic", true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare dead letter exchange: %w", err)
	}

	q, err := ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-queue-type":              "quorum",
		"x-dead-letter-exchange":    deadLetterExchange,
		"x-dead-letter-routing-key": name,
	})
	if err != nil {
		return amqp.Queue{}, err
	}

	dlq := "dlq." + name
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, name, deadLetterExchange, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("bind %s: %w", dlq, err)
	}
	return q, nil
}
