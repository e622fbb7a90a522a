// Package events publishes pipeline lifecycle events to the message
// broker. Publishing is best-effort: the store is the source of truth
// and a failed publish never fails the run that produced it.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/messaging"
)

// PipelineEventPublisher publishes pipeline and alert events
type PipelineEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPipelineEventPublisher creates a new pipeline event publisher
func NewPipelineEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PipelineEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePipelineEvents, "pipeline-service", log)
	if err != nil {
		return nil, err
	}

	return &PipelineEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishMovementsIngested publishes the outcome of one ingestion batch
func (p *PipelineEventPublisher) PublishMovementsIngested(ctx context.Context, source string, accepted, skipped, rejected int) {
	if p == nil {
		return
	}

	data := messaging.MovementsIngestedEvent{
		Source:   source,
		Accepted: accepted,
		Skipped:  skipped,
		Rejected: rejected,
	}

	if err := p.publisher.Publish(ctx, messaging.EventMovementsIngested, data); err != nil {
		p.logger.Error().Err(err).Str("source", source).Msg("failed to publish movements ingested event")
	}
}

// PublishRefreshCompleted publishes a successful task run
func (p *PipelineEventPublisher) PublishRefreshCompleted(ctx context.Context, runID, task string, duration time.Duration, counts map[string]int) {
	if p == nil {
		return
	}

	data := messaging.RefreshCompletedEvent{
		RunID:      runID,
		Task:       task,
		DurationMS: duration.Milliseconds(),
		Counts:     counts,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRefreshCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("task", task).Msg("failed to publish refresh completed event")
	}
}

// PublishRefreshFailed publishes a failed task run
func (p *PipelineEventPublisher) PublishRefreshFailed(ctx context.Context, runID, task string, runErr error) {
	if p == nil {
		return
	}

	data := messaging.RefreshFailedEvent{
		RunID: runID,
		Task:  task,
		Error: runErr.Error(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventRefreshFailed, data); err != nil {
		p.logger.Error().Err(err).Str("task", task).Msg("failed to publish refresh failed event")
	}
}

// PublishAlertsGenerated publishes one dispatched alert batch for the
// notification consumer
func (p *PipelineEventPublisher) PublishAlertsGenerated(ctx context.Context, mode string, suppressed int, alerts []messaging.AlertPayload, byType map[string]int, generatedAt time.Time) {
	if p == nil {
		return
	}

	data := messaging.AlertsGeneratedEvent{
		Mode:        mode,
		Created:     len(alerts),
		Suppressed:  suppressed,
		ByType:      byType,
		Alerts:      alerts,
		GeneratedAt: generatedAt,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertsGenerated, data); err != nil {
		p.logger.Error().Err(err).Str("mode", mode).Msg("failed to publish alerts generated event")
	}
}

// PublishAlertAcknowledged publishes a single acknowledgement
func (p *PipelineEventPublisher) PublishAlertAcknowledged(ctx context.Context, alertID int64, alertType, location, itemName string) {
	if p == nil {
		return
	}

	data := messaging.AlertAcknowledgedEvent{
		AlertID:   alertID,
		AlertType: alertType,
		Location:  location,
		ItemName:  itemName,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertAcknowledged, data); err != nil {
		p.logger.Error().Err(err).Int64("alert_id", alertID).Msg("failed to publish alert acknowledged event")
	}
}

// PublishQualityScanCompleted publishes the finding counts of one scan
func (p *PipelineEventPublisher) PublishQualityScanCompleted(ctx context.Context, runID string, findings int, bySeverity map[string]int) {
	if p == nil {
		return
	}

	data := messaging.QualityScanCompletedEvent{
		RunID:      runID,
		Findings:   findings,
		BySeverity: bySeverity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventQualityScanCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("run_id", runID).Msg("failed to publish quality scan completed event")
	}
}

// PublishPurchaseOrdersReplaced publishes the outcome of a purchase
// order rebuild
func (p *PipelineEventPublisher) PublishPurchaseOrdersReplaced(ctx context.Context, orders, urgentOrders int, totalCost decimal.Decimal) {
	if p == nil {
		return
	}

	data := messaging.PurchaseOrdersReplacedEvent{
		Orders:       orders,
		UrgentOrders: urgentOrders,
		TotalCost:    totalCost,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPurchaseOrdersReplaced, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish purchase orders replaced event")
	}
}
