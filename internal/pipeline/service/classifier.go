// Package service implements the pipeline's recomputation stages and
// their scheduling. Every stage is a stateless pass over the shared
// store: read upstream table, compute, replace downstream table. The
// formulas live in pure functions so they can be tested without a
// database.
package service

import (
	"math"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
)

// Stock status classification, worst first
const (
	StatusOutOfStock = "OUT_OF_STOCK"
	StatusCritical   = "CRITICAL"
	StatusWarning    = "WARNING"
	StatusLow        = "LOW"
	StatusHealthy    = "HEALTHY"
)

// Reorder priorities
const (
	PriorityUrgent = "URGENT"
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Purchase order priorities
const (
	OrderPriorityUrgent  = "URGENT"
	OrderPriorityNormal  = "NORMAL"
	OrderPriorityPlanned = "PLANNED"
)

// Classifier computes health records from usage statistics. The ratio
// thresholds are multiples of lead-time demand (avg_daily_usage ×
// lead_time_days); classification compares current stock against them
// with strict less-than, first match winning.
type Classifier struct {
	SafetyMultiplier float64
	CriticalRatio    float64
	WarningRatio     float64
	LowRatio         float64
}

// NewClassifier builds a classifier with the given threshold
// multipliers.
func NewClassifier(safetyMultiplier, criticalRatio, warningRatio, lowRatio float64) *Classifier {
	return &Classifier{
		SafetyMultiplier: safetyMultiplier,
		CriticalRatio:    criticalRatio,
		WarningRatio:     warningRatio,
		LowRatio:         lowRatio,
	}
}

// Classify derives the health record for one stats snapshot.
func (c *Classifier) Classify(s repository.StatsSnapshot, now time.Time) repository.HealthRecord {
	return repository.HealthRecord{
		Location:          s.Location,
		ItemName:          s.ItemName,
		CurrentStock:      s.CurrentStock,
		AvgDailyUsage:     s.AvgDailyUsage,
		LeadTimeDays:      s.LeadTimeDays,
		SafetyStock:       c.SafetyStock(s.AvgDailyUsage, s.LeadTimeDays),
		DaysUntilStockout: DaysUntilStockout(s.CurrentStock, s.AvgDailyUsage),
		StockStatus:       c.StockStatus(s.CurrentStock, s.AvgDailyUsage, s.LeadTimeDays),
		HealthScore:       c.HealthScore(s.CurrentStock, s.AvgDailyUsage, s.LeadTimeDays),
		CalculatedAt:      now,
	}
}

// SafetyStock is the buffer to hold below which stock is considered
// low: lead-time demand times the safety multiplier.
func (c *Classifier) SafetyStock(avgDailyUsage float64, leadTimeDays int) float64 {
	return avgDailyUsage * float64(leadTimeDays) * c.SafetyMultiplier
}

// StockStatus classifies current stock against the lead-time demand
// thresholds.
func (c *Classifier) StockStatus(currentStock, avgDailyUsage float64, leadTimeDays int) string {
	leadDemand := avgDailyUsage * float64(leadTimeDays)
	switch {
	case currentStock <= 0:
		return StatusOutOfStock
	case currentStock < leadDemand*c.CriticalRatio:
		return StatusCritical
	case currentStock < leadDemand*c.WarningRatio:
		return StatusWarning
	case currentStock < leadDemand*c.LowRatio:
		return StatusLow
	default:
		return StatusHealthy
	}
}

// HealthScore maps the stock-to-safety ratio onto 0..100. Zero stock
// scores 0; zero usage scores 100; anything else is the percentage of
// the safety level held, capped at 100.
func (c *Classifier) HealthScore(currentStock, avgDailyUsage float64, leadTimeDays int) int {
	if currentStock <= 0 {
		return 0
	}
	if avgDailyUsage == 0 {
		return 100
	}
	safety := avgDailyUsage * float64(leadTimeDays) * c.SafetyMultiplier
	score := math.Round(currentStock / safety * 100)
	if score > 100 {
		return 100
	}
	return int(score)
}

// DaysUntilStockout is current stock divided by daily usage, or nil
// when usage is zero (no projected stockout).
func DaysUntilStockout(currentStock, avgDailyUsage float64) *float64 {
	if avgDailyUsage <= 0 {
		return nil
	}
	days := currentStock / avgDailyUsage
	return &days
}

// StatusRank orders statuses worst first for sorting and worst-of
// rollups.
func StatusRank(status string) int {
	switch status {
	case StatusOutOfStock:
		return 1
	case StatusCritical:
		return 2
	case StatusWarning:
		return 3
	case StatusLow:
		return 4
	default:
		return 5
	}
}
