package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// maxDeliveries bounds redelivery of a failing message. Once the
// broker's x-delivery-count reaches it, the message is rejected without
// requeue and parks in the queue's dead-letter pair.
const maxDeliveries = 3

// EventHandler processes one decoded event. A returned error requeues
// the message until maxDeliveries is exhausted.
type EventHandler func(ctx context.Context, event *Event) error

type binding struct {
	exchange   string
	routingKey string
}

// Consumer reads events from one queue and dispatches them to handlers
// keyed by event type.
type Consumer struct {
	rabbitmq *RabbitMQ
	queue    string
	bindings []binding
	handlers map[string]EventHandler
	logger   *logger.Logger
}

// NewConsumer declares the work queue together with its dead-letter
// pair and returns a consumer attached to it.
func NewConsumer(rmq *RabbitMQ, queue string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.declareWorkQueue(queue); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &Consumer{
		rabbitmq: rmq,
		queue:    queue,
		handlers: make(map[string]EventHandler),
		logger:   log.WithComponent("consumer"),
	}, nil
}

// Subscribe binds the queue to a topic exchange with a routing key
// pattern. The binding is remembered so it can be re-established after
// a reconnect.
func (c *Consumer) Subscribe(exchange, routingKey string) error {
	b := binding{exchange: exchange, routingKey: routingKey}
	if err := c.bind(b); err != nil {
		return err
	}
	c.bindings = append(c.bindings, b)

	c.logger.Info().
		Str("queue", c.queue).
		Str("exchange", exchange).
		Str("routing_key", routingKey).
		Msg("subscribed to exchange")
	return nil
}

func (c *Consumer) bind(b binding) error {
	if err := c.rabbitmq.DeclareTopicExchange(b.exchange); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
	}
	if err := c.rabbitmq.Channel().QueueBind(c.queue, b.routingKey, b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", c.queue, b.exchange, err)
	}
	return nil
}

// RegisterHandler installs the handler for one event type. Events with
// no registered handler are acked and dropped.
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.handlers[eventType] = handler
}

// Start begins consuming in a background goroutine. If the delivery
// channel dies the consumer reconnects and resumes; it stops for good
// only when ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.rabbitmq.Channel().Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info().Str("queue", c.queue).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queue).Msg("consumer stopped")
				return
			case msg, ok := <-deliveries:
				if !ok {
					c.restart(ctx)
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()
	return nil
}

// restart re-dials the broker, redeclares the queue topology and
// resumes consumption. Declarations are idempotent, so repeating them
// against a broker that kept its state is harmless.
func (c *Consumer) restart(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	c.logger.Warn().Str("queue", c.queue).Msg("delivery channel closed, reconnecting")

	if err := c.rabbitmq.Reconnect(ctx); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queue).Msg("consumer reconnect failed")
		return
	}
	if _, err := c.rabbitmq.declareWorkQueue(c.queue); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queue).Msg("queue redeclare failed")
		return
	}
	for _, b := range c.bindings {
		if err := c.bind(b); err != nil {
			c.logger.Error().Err(err).Str("queue", c.queue).Msg("rebind failed")
			return
		}
	}
	if err := c.Start(ctx); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queue).Msg("consumer restart failed")
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queue).Msg("dropping malformed event")
		if err := msg.Reject(false); err != nil {
			c.logger.Error().Err(err).Msg("failed to reject message")
		}
		return
	}

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("no handler for event type, dropping")
		if err := msg.Ack(false); err != nil {
			c.logger.Error().Err(err).Msg("failed to ack message")
		}
		return
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("event handler failed")

		if deliveries := deliveryCount(msg) + 1; deliveries >= maxDeliveries {
			c.logger.Warn().
				Str("event_id", event.ID).
				Int("deliveries", deliveries).
				Msg("delivery budget exhausted, dead-lettering event")
			if err := msg.Reject(false); err != nil {
				c.logger.Error().Err(err).Msg("failed to reject message")
			}
			return
		}
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error().Err(err).Msg("failed to nack message")
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error().Err(err).Msg("failed to ack message")
	}
}

// deliveryCount reads the broker-maintained redelivery counter. Quorum
// queues stamp x-delivery-count on every redelivery; the header is
// absent on the first attempt.
func deliveryCount(msg amqp.Delivery) int {
	switch v := msg.Headers["x-delivery-count"].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	}
	return 0
}
