package service_test

import (
	"testing"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
)

// defaultClassifier mirrors the production defaults: safety multiplier
// 2.0 and status ratios 0.5 / 1.0 / 2.0 of lead-time demand.
func defaultClassifier() *service.Classifier {
	return service.NewClassifier(2.0, 0.5, 1.0, 2.0)
}

func TestClassifier_StockStatus(t *testing.T) {
	c := defaultClassifier()

	// avg usage 10 over lead time 3 gives lead-time demand 30, so the
	// thresholds sit at 15 (critical), 30 (warning) and 60 (low).
	tests := []struct {
		name     string
		stock    float64
		usage    float64
		leadDays int
		want     string
	}{
		{"zero stock", 0, 10, 3, service.StatusOutOfStock},
		{"negative stock", -5, 10, 3, service.StatusOutOfStock},
		{"below critical threshold", 14.9, 10, 3, service.StatusCritical},
		{"at critical threshold", 15, 10, 3, service.StatusWarning},
		{"below warning threshold", 29.9, 10, 3, service.StatusWarning},
		{"at warning threshold", 30, 10, 3, service.StatusLow},
		{"below low threshold", 59.9, 10, 3, service.StatusLow},
		{"at low threshold", 60, 10, 3, service.StatusHealthy},
		{"well stocked", 1000, 10, 3, service.StatusHealthy},
		{"no usage with stock", 5, 0, 3, service.StatusHealthy},
		{"no usage without stock", 0, 0, 3, service.StatusOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.StockStatus(tt.stock, tt.usage, tt.leadDays)
			if got != tt.want {
				t.Errorf("StockStatus(%v, %v, %d) = %s, want %s",
					tt.stock, tt.usage, tt.leadDays, got, tt.want)
			}
		})
	}
}

func TestClassifier_StockStatus_ThresholdsAreStrict(t *testing.T) {
	// Stock exactly on a boundary belongs to the better bucket; only a
	// strictly smaller stock falls into the worse one.
	c := defaultClassifier()

	boundaries := []struct {
		stock     float64
		at, below string
	}{
		{15, service.StatusWarning, service.StatusCritical},
		{30, service.StatusLow, service.StatusWarning},
		{60, service.StatusHealthy, service.StatusLow},
	}

	for _, b := range boundaries {
		if got := c.StockStatus(b.stock, 10, 3); got != b.at {
			t.Errorf("StockStatus(%v) = %s, want %s", b.stock, got, b.at)
		}
		if got := c.StockStatus(b.stock-0.01, 10, 3); got != b.below {
			t.Errorf("StockStatus(%v) = %s, want %s", b.stock-0.01, got, b.below)
		}
	}
}

func TestClassifier_HealthScore(t *testing.T) {
	c := defaultClassifier()

	// Safety stock for usage 10 over lead time 3 is 60 units.
	tests := []struct {
		name     string
		stock    float64
		usage    float64
		leadDays int
		want     int
	}{
		{"zero stock scores zero", 0, 10, 3, 0},
		{"negative stock scores zero", -3, 10, 3, 0},
		{"zero usage scores full", 7, 0, 3, 100},
		{"half of safety", 30, 10, 3, 50},
		{"rounds down", 50, 10, 3, 83},
		{"rounds up", 52, 10, 3, 87},
		{"at safety level", 60, 10, 3, 100},
		{"capped above safety", 90, 10, 3, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.HealthScore(tt.stock, tt.usage, tt.leadDays)
			if got != tt.want {
				t.Errorf("HealthScore(%v, %v, %d) = %d, want %d",
					tt.stock, tt.usage, tt.leadDays, got, tt.want)
			}
		})
	}
}

func TestClassifier_SafetyStock(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
		usage      float64
		leadDays   int
		want       float64
	}{
		{"default multiplier", 2.0, 10, 3, 60},
		{"zero usage", 2.0, 0, 5, 0},
		{"fractional usage", 1.5, 4, 5, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := service.NewClassifier(tt.multiplier, 0.5, 1.0, 2.0)
			if got := c.SafetyStock(tt.usage, tt.leadDays); got != tt.want {
				t.Errorf("SafetyStock(%v, %d) = %v, want %v", tt.usage, tt.leadDays, got, tt.want)
			}
		})
	}
}

func TestDaysUntilStockout(t *testing.T) {
	tests := []struct {
		name  string
		stock float64
		usage float64
		want  *float64
	}{
		{"normal consumption", 50, 10, ptr(5.0)},
		{"fractional result", 7, 2, ptr(3.5)},
		{"already out", 0, 10, ptr(0.0)},
		{"zero usage has no projection", 100, 0, nil},
		{"negative usage has no projection", 100, -2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.DaysUntilStockout(tt.stock, tt.usage)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("DaysUntilStockout(%v, %v) = %v, want nil", tt.stock, tt.usage, *got)
			case tt.want != nil && got == nil:
				t.Errorf("DaysUntilStockout(%v, %v) = nil, want %v", tt.stock, tt.usage, *tt.want)
			case tt.want != nil && got != nil && *got != *tt.want:
				t.Errorf("DaysUntilStockout(%v, %v) = %v, want %v", tt.stock, tt.usage, *got, *tt.want)
			}
		})
	}
}

func TestStatusRank_WorstFirst(t *testing.T) {
	ordered := []string{
		service.StatusOutOfStock,
		service.StatusCritical,
		service.StatusWarning,
		service.StatusLow,
		service.StatusHealthy,
	}

	for i := 1; i < len(ordered); i++ {
		if service.StatusRank(ordered[i-1]) >= service.StatusRank(ordered[i]) {
			t.Errorf("StatusRank(%s) = %d, want less than StatusRank(%s) = %d",
				ordered[i-1], service.StatusRank(ordered[i-1]),
				ordered[i], service.StatusRank(ordered[i]))
		}
	}

	if got := service.StatusRank("SOMETHING_ELSE"); got != service.StatusRank(service.StatusHealthy) {
		t.Errorf("StatusRank(unknown) = %d, want same as healthy", got)
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := defaultClassifier()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	snap := repository.StatsSnapshot{
		Location:      "Chennai",
		ItemName:      "Paracetamol",
		CurrentStock:  50,
		AvgDailyUsage: 10,
		LeadTimeDays:  3,
	}

	rec := c.Classify(snap, now)

	if rec.Location != "Chennai" || rec.ItemName != "Paracetamol" {
		t.Errorf("Classify kept wrong identity: %s/%s", rec.Location, rec.ItemName)
	}
	if rec.CurrentStock != 50 || rec.AvgDailyUsage != 10 || rec.LeadTimeDays != 3 {
		t.Errorf("Classify changed inputs: stock=%v usage=%v lead=%d",
			rec.CurrentStock, rec.AvgDailyUsage, rec.LeadTimeDays)
	}
	if rec.SafetyStock != 60 {
		t.Errorf("SafetyStock = %v, want 60", rec.SafetyStock)
	}
	if rec.DaysUntilStockout == nil || *rec.DaysUntilStockout != 5 {
		t.Errorf("DaysUntilStockout = %v, want 5", rec.DaysUntilStockout)
	}
	if rec.StockStatus != service.StatusLow {
		t.Errorf("StockStatus = %s, want %s", rec.StockStatus, service.StatusLow)
	}
	if rec.HealthScore != 83 {
		t.Errorf("HealthScore = %d, want 83", rec.HealthScore)
	}
	if !rec.CalculatedAt.Equal(now) {
		t.Errorf("CalculatedAt = %v, want %v", rec.CalculatedAt, now)
	}
}

func ptr(f float64) *float64 { return &f }
