package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
	"github.com/stockpulse/stockpulse-backend/pkg/runlock"
)

// Task names, used for run locks, run bookkeeping and metrics labels
const (
	TaskStatsRefresh         = "stats_refresh"
	TaskHealthRefresh        = "health_refresh"
	TaskReorderRefresh       = "reorder_refresh"
	TaskPurchaseOrderRefresh = "purchase_order_refresh"
	TaskImmediateAlerts      = "immediate_alerts"
	TaskDailyAlerts          = "daily_alerts"
	TaskQualityScan          = "quality_scan"
	TaskAlertArchive         = "alert_archive"
)

// RefreshService recomputes the derived tables from the movement
// ledger: stats, health classification, reorder recommendations and
// purchase orders. Every task runs under a distributed run lock and
// leaves a refresh_runs audit row.
type RefreshService struct {
	taskRunner
	statsRepo    *repository.StatsRepository
	healthRepo   *repository.HealthRepository
	reorderRepo  *repository.ReorderRepository
	poRepo       *repository.PurchaseOrderRepository
	supplierRepo *repository.SupplierRepository
	classifier   *Classifier
	cfg          config.PipelineConfig
}

// NewRefreshService creates a new refresh service
func NewRefreshService(
	statsRepo *repository.StatsRepository,
	healthRepo *repository.HealthRepository,
	reorderRepo *repository.ReorderRepository,
	poRepo *repository.PurchaseOrderRepository,
	supplierRepo *repository.SupplierRepository,
	runRepo *repository.RunRepository,
	locker *runlock.Locker,
	publisher *events.PipelineEventPublisher,
	cfg config.PipelineConfig,
	log *logger.Logger,
) *RefreshService {
	return &RefreshService{
		taskRunner: taskRunner{
			runRepo: runRepo,
			locker:  locker,
			events:  publisher,
			logger:  log.WithComponent("refresh"),
		},
		statsRepo:    statsRepo,
		healthRepo:   healthRepo,
		reorderRepo:  reorderRepo,
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		classifier:   NewClassifier(cfg.SafetyMultiplier, cfg.CriticalRatio, cfg.WarningRatio, cfg.LowRatio),
		cfg:          cfg,
	}
}

// RefreshStats rebuilds the stats snapshots over the configured
// trailing window.
func (s *RefreshService) RefreshStats(ctx context.Context) (*repository.RefreshRun, error) {
	return s.run(ctx, TaskStatsRefresh, s.computeStats)
}

// RefreshHealth reclassifies every stats snapshot.
func (s *RefreshService) RefreshHealth(ctx context.Context) (*repository.RefreshRun, error) {
	return s.run(ctx, TaskHealthRefresh, s.computeHealth)
}

// RefreshReorders rebuilds reorder recommendations from the health
// records inside the configured status cutoff.
func (s *RefreshService) RefreshReorders(ctx context.Context) (*repository.RefreshRun, error) {
	return s.run(ctx, TaskReorderRefresh, s.computeReorders)
}

// RefreshPurchaseOrders rebuilds purchase orders by matching each
// recommendation with its best active supplier.
func (s *RefreshService) RefreshPurchaseOrders(ctx context.Context) (*repository.RefreshRun, error) {
	return s.run(ctx, TaskPurchaseOrderRefresh, s.computePurchaseOrders)
}

// RefreshAll runs the derived chain in dependency order. A step losing
// its run lock is skipped; other step failures are logged and the chain
// continues, so a single bad step degrades to one-cycle staleness
// downstream instead of halting the pipeline.
func (s *RefreshService) RefreshAll(ctx context.Context) ([]*repository.RefreshRun, error) {
	steps := []struct {
		name string
		fn   func(context.Context) (*repository.RefreshRun, error)
	}{
		{TaskStatsRefresh, s.RefreshStats},
		{TaskHealthRefresh, s.RefreshHealth},
		{TaskReorderRefresh, s.RefreshReorders},
		{TaskPurchaseOrderRefresh, s.RefreshPurchaseOrders},
	}

	runs := []*repository.RefreshRun{}
	var lastErr error
	for _, step := range steps {
		run, err := step.fn(ctx)
		if err != nil {
			if errors.Is(err, errors.ErrRunInProgress) {
				s.logger.Info().Str("task", step.name).Msg("run already in progress, skipping")
				continue
			}
			s.logger.Error().Err(err).Str("task", step.name).Msg("refresh step failed")
			lastErr = err
			continue
		}
		runs = append(runs, run)
	}
	return runs, lastErr
}

// Simulate recomputes recommendations in memory for an arbitrary
// target horizon without touching the stored tables. Out-of-range
// horizons are clamped; the applied value is returned.
func (s *RefreshService) Simulate(ctx context.Context, targetDays int) ([]repository.ReorderRecommendation, int, error) {
	days := ClampTargetDays(targetDays)

	health, err := s.healthRepo.ByStatuses(ctx, s.cfg.ReorderStatuses)
	if err != nil {
		return nil, 0, fmt.Errorf("simulate: load health records: %w", err)
	}

	now := time.Now().UTC()
	recs := []repository.ReorderRecommendation{}
	for _, h := range health {
		if rec := BuildRecommendation(h, s.cfg.ReorderStatuses, days, s.cfg.ReferenceUnitPrice, now); rec != nil {
			recs = append(recs, *rec)
		}
	}
	return recs, days, nil
}

func (s *RefreshService) computeStats(ctx context.Context) (int, map[string]int, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.cfg.StatsWindowDays)
	written, err := s.statsRepo.Rebuild(ctx, since)
	if err != nil {
		return 0, nil, fmt.Errorf("rebuild stats: %w", err)
	}
	return written, map[string]int{"snapshots": written}, nil
}

func (s *RefreshService) computeHealth(ctx context.Context) (int, map[string]int, error) {
	stats, err := s.statsRepo.All(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load stats snapshots: %w", err)
	}

	now := time.Now().UTC()
	records := make([]repository.HealthRecord, 0, len(stats))
	for _, snap := range stats {
		records = append(records, s.classifier.Classify(snap, now))
	}

	if err := s.healthRepo.ReplaceAll(ctx, records); err != nil {
		return 0, nil, fmt.Errorf("replace health records: %w", err)
	}

	counts := map[string]int{}
	for _, rec := range records {
		counts[rec.StockStatus]++
	}
	for _, status := range []string{StatusOutOfStock, StatusCritical, StatusWarning, StatusLow, StatusHealthy} {
		metrics.SetHealthStatusCount(status, counts[status])
	}
	return len(records), counts, nil
}

func (s *RefreshService) computeReorders(ctx context.Context) (int, map[string]int, error) {
	health, err := s.healthRepo.ByStatuses(ctx, s.cfg.ReorderStatuses)
	if err != nil {
		return 0, nil, fmt.Errorf("load health records: %w", err)
	}

	now := time.Now().UTC()
	recs := []repository.ReorderRecommendation{}
	urgent := 0
	for _, h := range health {
		rec := BuildRecommendation(h, s.cfg.ReorderStatuses, s.cfg.TargetDaysOfSupply, s.cfg.ReferenceUnitPrice, now)
		if rec == nil {
			continue
		}
		if rec.Priority == PriorityUrgent {
			urgent++
		}
		recs = append(recs, *rec)
	}

	if err := s.reorderRepo.ReplaceAll(ctx, recs); err != nil {
		return 0, nil, fmt.Errorf("replace recommendations: %w", err)
	}
	return len(recs), map[string]int{"recommendations": len(recs), "urgent": urgent}, nil
}

func (s *RefreshService) computePurchaseOrders(ctx context.Context) (int, map[string]int, error) {
	recs, err := s.reorderRepo.All(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load recommendations: %w", err)
	}
	if len(recs) == 0 {
		if err := s.poRepo.ReplaceAll(ctx, nil); err != nil {
			return 0, nil, fmt.Errorf("replace purchase orders: %w", err)
		}
		return 0, map[string]int{"orders": 0}, nil
	}

	items := make([]string, 0, len(recs))
	seen := map[string]bool{}
	for _, rec := range recs {
		if !seen[rec.ItemName] {
			seen[rec.ItemName] = true
			items = append(items, rec.ItemName)
		}
	}

	suppliers, err := s.supplierRepo.ActiveByItems(ctx, items)
	if err != nil {
		return 0, nil, fmt.Errorf("load suppliers: %w", err)
	}
	byItem := map[string][]repository.Supplier{}
	for _, sup := range suppliers {
		byItem[sup.ItemName] = append(byItem[sup.ItemName], sup)
	}

	statusByPair, err := s.healthStatusIndex(ctx)
	if err != nil {
		return 0, nil, err
	}

	orderDate := time.Now().UTC().Truncate(24 * time.Hour)
	orders := []repository.PurchaseOrder{}
	urgent := 0
	withoutSupplier := 0
	totalCost := decimal.Zero
	for _, rec := range recs {
		best := SelectSupplier(byItem[rec.ItemName])
		if best == nil {
			// No active supplier: the recommendation stands on its own.
			withoutSupplier++
			continue
		}
		status, ok := statusByPair[pairKey(rec.Location, rec.ItemName)]
		if !ok {
			status = statusFromPriority(rec.Priority)
		}
		po := BuildPurchaseOrder(rec, *best, status, orderDate)
		if po.OrderPriority == OrderPriorityUrgent {
			urgent++
		}
		totalCost = totalCost.Add(po.TotalCost)
		orders = append(orders, po)
	}

	if err := s.poRepo.ReplaceAll(ctx, orders); err != nil {
		return 0, nil, fmt.Errorf("replace purchase orders: %w", err)
	}

	s.events.PublishPurchaseOrdersReplaced(ctx, len(orders), urgent, totalCost)
	return len(orders), map[string]int{
		"orders":           len(orders),
		"urgent":           urgent,
		"without_supplier": withoutSupplier,
	}, nil
}

// healthStatusIndex loads every health record's status keyed by pair.
func (s *RefreshService) healthStatusIndex(ctx context.Context) (map[string]string, error) {
	all, err := s.healthRepo.ByStatuses(ctx, []string{
		StatusOutOfStock, StatusCritical, StatusWarning, StatusLow, StatusHealthy,
	})
	if err != nil {
		return nil, fmt.Errorf("load health statuses: %w", err)
	}
	index := make(map[string]string, len(all))
	for _, h := range all {
		index[pairKey(h.Location, h.ItemName)] = h.StockStatus
	}
	return index, nil
}

func pairKey(location, item string) string {
	return location + "\x00" + item
}

func statusFromPriority(priority string) string {
	switch priority {
	case PriorityUrgent:
		return StatusOutOfStock
	case PriorityHigh:
		return StatusCritical
	case PriorityMedium:
		return StatusWarning
	default:
		return StatusLow
	}
}
