package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
)

// ReorderQuantity is the shortfall against the target days of supply,
// rounded to whole units and floored at zero.
func ReorderQuantity(avgDailyUsage, currentStock float64, targetDays int) float64 {
	qty := math.Round(avgDailyUsage*float64(targetDays) - currentStock)
	if qty < 0 {
		return 0
	}
	return qty
}

// ReorderPriority maps a stock status onto an order priority.
func ReorderPriority(status string) string {
	switch status {
	case StatusOutOfStock:
		return PriorityUrgent
	case StatusCritical:
		return PriorityHigh
	case StatusWarning:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// EstimatedCost prices a quantity at the configured reference unit
// price. Real supplier prices replace this when a purchase order is
// built.
func EstimatedCost(quantity, referenceUnitPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(referenceUnitPrice).Mul(decimal.NewFromFloat(quantity)).Round(2)
}

// StatusInCutoff reports whether a status is in the configured set of
// statuses that warrant a recommendation.
func StatusInCutoff(status string, cutoff []string) bool {
	for _, s := range cutoff {
		if s == status {
			return true
		}
	}
	return false
}

// BuildRecommendation derives the reorder recommendation for one
// health record. Returns nil when the record's status is outside the
// cutoff set.
func BuildRecommendation(h repository.HealthRecord, cutoff []string, targetDays int, referenceUnitPrice float64, now time.Time) *repository.ReorderRecommendation {
	if !StatusInCutoff(h.StockStatus, cutoff) {
		return nil
	}
	qty := ReorderQuantity(h.AvgDailyUsage, h.CurrentStock, targetDays)
	return &repository.ReorderRecommendation{
		Location:          h.Location,
		ItemName:          h.ItemName,
		CurrentStock:      h.CurrentStock,
		AvgDailyUsage:     h.AvgDailyUsage,
		DaysUntilStockout: h.DaysUntilStockout,
		ReorderQuantity:   qty,
		Priority:          ReorderPriority(h.StockStatus),
		EstimatedCost:     EstimatedCost(qty, referenceUnitPrice),
		CalculatedAt:      now,
	}
}

// Simulation bounds for the what-if target horizon
const (
	SimulateMinTargetDays = 14
	SimulateMaxTargetDays = 120
)

// ClampTargetDays forces a what-if horizon into the supported range.
func ClampTargetDays(days int) int {
	if days < SimulateMinTargetDays {
		return SimulateMinTargetDays
	}
	if days > SimulateMaxTargetDays {
		return SimulateMaxTargetDays
	}
	return days
}
