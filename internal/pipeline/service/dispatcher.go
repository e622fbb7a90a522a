package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/messaging"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
	"github.com/stockpulse/stockpulse-backend/pkg/runlock"
)

// Alert dispatch modes
const (
	AlertModeImmediate = "immediate"
	AlertModeDaily     = "daily"
)

// AlertDispatcher turns health records into deduplicated alert rows.
// Immediate mode covers OUT_OF_STOCK, daily mode covers CRITICAL and
// WARNING; the two sets stay disjoint so overlapping cycles can never
// produce same-type duplicates. Within the dedup window at most one
// unacknowledged alert exists per (location, item, alert_type).
type AlertDispatcher struct {
	taskRunner
	healthRepo  *repository.HealthRepository
	reorderRepo *repository.ReorderRepository
	alertRepo   *repository.AlertRepository
	cfg         config.AlertsConfig
}

// NewAlertDispatcher creates a new alert dispatcher
func NewAlertDispatcher(
	healthRepo *repository.HealthRepository,
	reorderRepo *repository.ReorderRepository,
	alertRepo *repository.AlertRepository,
	runRepo *repository.RunRepository,
	locker *runlock.Locker,
	publisher *events.PipelineEventPublisher,
	cfg config.AlertsConfig,
	log *logger.Logger,
) *AlertDispatcher {
	return &AlertDispatcher{
		taskRunner: taskRunner{
			runRepo: runRepo,
			locker:  locker,
			events:  publisher,
			logger:  log.WithComponent("alerts"),
		},
		healthRepo:  healthRepo,
		reorderRepo: reorderRepo,
		alertRepo:   alertRepo,
		cfg:         cfg,
	}
}

// RunImmediate dispatches out-of-stock alerts.
func (d *AlertDispatcher) RunImmediate(ctx context.Context) (*repository.RefreshRun, error) {
	return d.run(ctx, TaskImmediateAlerts, func(ctx context.Context) (int, map[string]int, error) {
		return d.dispatch(ctx, AlertModeImmediate, []string{StatusOutOfStock})
	})
}

// RunDaily dispatches the morning digest for critical and warning stock.
func (d *AlertDispatcher) RunDaily(ctx context.Context) (*repository.RefreshRun, error) {
	return d.run(ctx, TaskDailyAlerts, func(ctx context.Context) (int, map[string]int, error) {
		return d.dispatch(ctx, AlertModeDaily, []string{StatusCritical, StatusWarning})
	})
}

func (d *AlertDispatcher) dispatch(ctx context.Context, mode string, statuses []string) (int, map[string]int, error) {
	health, err := d.healthRepo.ByStatuses(ctx, statuses)
	if err != nil {
		return 0, nil, fmt.Errorf("load health records: %w", err)
	}
	if len(health) == 0 {
		return 0, map[string]int{"created": 0, "suppressed": 0}, nil
	}

	qtyByPair, err := d.reorderQuantities(ctx)
	if err != nil {
		return 0, nil, err
	}

	cutoff := time.Now().UTC().Add(-d.cfg.DedupWindow)
	suppressed := 0
	batch := []messaging.AlertPayload{}
	byType := map[string]int{}
	for _, h := range health {
		qty := qtyByPair[pairKey(h.Location, h.ItemName)]
		rec := &repository.AlertRecord{
			Location:       h.Location,
			ItemName:       h.ItemName,
			AlertType:      h.StockStatus,
			Message:        alertMessage(h, qty),
			DaysLeft:       h.DaysUntilStockout,
			RecommendedQty: qty,
		}

		inserted, err := d.alertRepo.CreateIfAbsent(ctx, rec, cutoff)
		if err != nil {
			d.logger.Error().Err(err).
				Str("location", h.Location).
				Str("item", h.ItemName).
				Str("alert_type", h.StockStatus).
				Msg("failed to create alert, continuing")
			continue
		}
		if !inserted {
			suppressed++
			continue
		}
		byType[h.StockStatus]++
		batch = append(batch, messaging.AlertPayload{
			Location:       rec.Location,
			ItemName:       rec.ItemName,
			Severity:       rec.AlertType,
			Message:        rec.Message,
			DaysLeft:       rec.DaysLeft,
			RecommendedQty: rec.RecommendedQty,
		})
	}

	for alertType, n := range byType {
		metrics.RecordAlertsCreated(mode, alertType, n)
	}
	metrics.RecordAlertsSuppressed(mode, suppressed)

	if len(batch) > 0 {
		d.events.PublishAlertsGenerated(ctx, mode, suppressed, batch, byType, time.Now().UTC())
	}

	counts := map[string]int{"created": len(batch), "suppressed": suppressed}
	for alertType, n := range byType {
		counts[alertType] = n
	}
	return len(batch), counts, nil
}

// reorderQuantities indexes the current recommendations so alerts can
// carry the quantity to order.
func (d *AlertDispatcher) reorderQuantities(ctx context.Context) (map[string]float64, error) {
	recs, err := d.reorderRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}
	byPair := make(map[string]float64, len(recs))
	for _, rec := range recs {
		byPair[pairKey(rec.Location, rec.ItemName)] = rec.ReorderQuantity
	}
	return byPair, nil
}

// alertMessage renders the notification text. Days of supply uses the
// 999 sentinel when usage is zero so channels never format a null.
func alertMessage(h repository.HealthRecord, recommendedQty float64) string {
	if h.StockStatus == StatusOutOfStock {
		msg := fmt.Sprintf("OUT OF STOCK: %s at %s (current stock %.0f)", h.ItemName, h.Location, h.CurrentStock)
		if recommendedQty > 0 {
			msg += fmt.Sprintf(", reorder %.0f units immediately", recommendedQty)
		}
		return msg
	}

	days := 999.0
	if h.DaysUntilStockout != nil {
		days = *h.DaysUntilStockout
	}
	msg := fmt.Sprintf("%s: %s at %s has %.0f units left, about %.1f days of supply",
		h.StockStatus, h.ItemName, h.Location, h.CurrentStock, days)
	if recommendedQty > 0 {
		msg += fmt.Sprintf(", recommended reorder %.0f units", recommendedQty)
	}
	return msg
}

// Acknowledge marks an alert as handled and publishes the
// acknowledgement. Re-acknowledging an already handled alert is a
// conflict, not a no-op: the pair becomes eligible for a fresh alert
// the moment the first acknowledgement lands.
func (d *AlertDispatcher) Acknowledge(ctx context.Context, id int64, acknowledgedBy string) (*repository.AlertRecord, error) {
	rec, err := d.alertRepo.Acknowledge(ctx, id, acknowledgedBy)
	if err != nil {
		return nil, err
	}

	d.events.PublishAlertAcknowledged(ctx, rec.ID, rec.AlertType, rec.Location, rec.ItemName)
	return rec, nil
}

// List returns alerts filtered by type, location and acknowledgement.
func (d *AlertDispatcher) List(ctx context.Context, alertType, location string, acknowledged *bool, limit, offset int) ([]repository.AlertRecord, int, error) {
	return d.alertRepo.List(ctx, alertType, location, acknowledged, limit, offset)
}

// Get returns a single alert by id.
func (d *AlertDispatcher) Get(ctx context.Context, id int64) (*repository.AlertRecord, error) {
	return d.alertRepo.Get(ctx, id)
}

// Summary aggregates alert counts per type since the given time.
func (d *AlertDispatcher) Summary(ctx context.Context, since time.Time) ([]repository.AlertSummaryRow, error) {
	return d.alertRepo.Summary(ctx, since)
}
