// Package consumers holds the in-process subscribers on the pipeline
// event stream.
package consumers

import (
	"context"

	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/messaging"
)

// AlertBatchConsumer consumes dispatched alert batches and writes them
// to the notification log. It is the default delivery channel; external
// channel integrations (mail, chat) subscribe to the same routing keys
// on their own queues.
type AlertBatchConsumer struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewAlertBatchConsumer creates a new alert batch consumer
func NewAlertBatchConsumer(rmq *messaging.RabbitMQ, log *logger.Logger) (*AlertBatchConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "pipeline-service.alert-batches", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangePipelineEvents, "alerts.#"); err != nil {
		return nil, err
	}

	c := &AlertBatchConsumer{
		consumer: consumer,
		logger:   log.WithComponent("notifications"),
	}

	consumer.RegisterHandler(messaging.EventAlertsGenerated, c.handleAlertsGenerated)
	consumer.RegisterHandler(messaging.EventAlertAcknowledged, c.handleAlertAcknowledged)

	return c, nil
}

// Start starts consuming messages
func (c *AlertBatchConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *AlertBatchConsumer) handleAlertsGenerated(ctx context.Context, event *messaging.Event) error {
	var data messaging.AlertsGeneratedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("mode", data.Mode).
		Int("created", data.Created).
		Int("suppressed", data.Suppressed).
		Time("generated_at", data.GeneratedAt).
		Msg("alert batch received")

	for _, alert := range data.Alerts {
		c.logger.Warn().
			Str("severity", alert.Severity).
			Str("location", alert.Location).
			Str("item", alert.ItemName).
			Float64("recommended_qty", alert.RecommendedQty).
			Msg(alert.Message)
	}
	return nil
}

func (c *AlertBatchConsumer) handleAlertAcknowledged(ctx context.Context, event *messaging.Event) error {
	var data messaging.AlertAcknowledgedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Int64("alert_id", data.AlertID).
		Str("alert_type", data.AlertType).
		Str("location", data.Location).
		Str("item", data.ItemName).
		Msg("alert acknowledged")
	return nil
}
