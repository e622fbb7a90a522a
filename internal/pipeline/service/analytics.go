package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// Budget statuses
const (
	BudgetOverBudget = "OVER_BUDGET"
	BudgetWarning    = "WARNING"
	BudgetModerate   = "MODERATE"
	BudgetHealthy    = "HEALTHY"
)

// BudgetReport compares projected procurement spend against the
// configured monthly budget. EstimatedSpend is the cost of the current
// purchase order plan; PendingReorderCost also counts recommendations
// that found no supplier.
type BudgetReport struct {
	MonthlyBudget      decimal.Decimal `json:"monthly_budget"`
	EstimatedSpend     decimal.Decimal `json:"estimated_spend"`
	PendingReorderCost decimal.Decimal `json:"pending_reorder_cost"`
	RemainingBudget    decimal.Decimal `json:"remaining_budget"`
	UtilizationPct     float64         `json:"utilization_pct"`
	Status             string          `json:"status"`
}

// AnalyticsService serves the cross-entity rollups: location health
// summaries, item performance and budget tracking.
type AnalyticsService struct {
	analyticsRepo *repository.AnalyticsRepository
	poRepo        *repository.PurchaseOrderRepository
	reorderRepo   *repository.ReorderRepository
	budget        config.BudgetConfig
	logger        *logger.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(
	analyticsRepo *repository.AnalyticsRepository,
	poRepo *repository.PurchaseOrderRepository,
	reorderRepo *repository.ReorderRepository,
	budget config.BudgetConfig,
	log *logger.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		analyticsRepo: analyticsRepo,
		poRepo:        poRepo,
		reorderRepo:   reorderRepo,
		budget:        budget,
		logger:        log.WithComponent("analytics"),
	}
}

// LocationSummaries returns the per-location health rollup, worst
// average health first.
func (s *AnalyticsService) LocationSummaries(ctx context.Context) ([]repository.LocationSummary, error) {
	return s.analyticsRepo.LocationSummaries(ctx)
}

// ItemPerformances returns the per-item cross-location rollup.
func (s *AnalyticsService) ItemPerformances(ctx context.Context) ([]repository.ItemPerformance, error) {
	return s.analyticsRepo.ItemPerformances(ctx)
}

// Budget reports projected spend against the configured monthly budget.
func (s *AnalyticsService) Budget(ctx context.Context) (*BudgetReport, error) {
	spend, err := s.poRepo.TotalCost(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum purchase order cost: %w", err)
	}
	pending, err := s.reorderRepo.TotalEstimatedCost(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum recommendation cost: %w", err)
	}

	budget := decimal.NewFromFloat(s.budget.Monthly)
	utilization := 0.0
	if budget.IsPositive() {
		utilization, _ = spend.Div(budget).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	}

	return &BudgetReport{
		MonthlyBudget:      budget,
		EstimatedSpend:     spend,
		PendingReorderCost: pending,
		RemainingBudget:    budget.Sub(spend),
		UtilizationPct:     utilization,
		Status:             BudgetStatus(spend, budget),
	}, nil
}

// BudgetStatus grades spend against budget: over 100% is OVER_BUDGET,
// over 90% WARNING, over 75% MODERATE, else HEALTHY.
func BudgetStatus(spend, budget decimal.Decimal) string {
	if !budget.IsPositive() {
		if spend.IsPositive() {
			return BudgetOverBudget
		}
		return BudgetHealthy
	}
	switch {
	case spend.GreaterThan(budget):
		return BudgetOverBudget
	case spend.GreaterThan(budget.Mul(decimal.NewFromFloat(0.9))):
		return BudgetWarning
	case spend.GreaterThan(budget.Mul(decimal.NewFromFloat(0.75))):
		return BudgetModerate
	default:
		return BudgetHealthy
	}
}
