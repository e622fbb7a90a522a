package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/service"
)

func TestReorderQuantity(t *testing.T) {
	tests := []struct {
		name       string
		usage      float64
		stock      float64
		targetDays int
		want       float64
	}{
		{"shortfall against target", 10, 50, 30, 250},
		{"already above target", 10, 400, 30, 0},
		{"exactly at target", 10, 300, 30, 0},
		{"rounds up", 3.33, 50, 30, 50},
		{"rounds down", 3.34, 80, 30, 20},
		{"zero usage needs nothing", 0, 10, 30, 0},
		{"empty shelf", 10, 0, 30, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.ReorderQuantity(tt.usage, tt.stock, tt.targetDays)
			if got != tt.want {
				t.Errorf("ReorderQuantity(%v, %v, %d) = %v, want %v",
					tt.usage, tt.stock, tt.targetDays, got, tt.want)
			}
		})
	}
}

func TestReorderPriority(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{service.StatusOutOfStock, service.PriorityUrgent},
		{service.StatusCritical, service.PriorityHigh},
		{service.StatusWarning, service.PriorityMedium},
		{service.StatusLow, service.PriorityLow},
		{service.StatusHealthy, service.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := service.ReorderPriority(tt.status); got != tt.want {
				t.Errorf("ReorderPriority(%s) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestEstimatedCost(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		price    float64
		want     string
	}{
		{"whole units", 250, 50, "12500.00"},
		{"fractional price", 33, 0.75, "24.75"},
		{"zero quantity", 0, 50, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.EstimatedCost(tt.quantity, tt.price)
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("EstimatedCost(%v, %v) = %s, want %s", tt.quantity, tt.price, got, want)
			}
		})
	}
}

func TestStatusInCutoff(t *testing.T) {
	cutoff := []string{
		service.StatusOutOfStock,
		service.StatusCritical,
		service.StatusWarning,
		service.StatusLow,
	}

	for _, status := range cutoff {
		if !service.StatusInCutoff(status, cutoff) {
			t.Errorf("StatusInCutoff(%s) = false, want true", status)
		}
	}
	if service.StatusInCutoff(service.StatusHealthy, cutoff) {
		t.Error("StatusInCutoff(HEALTHY) = true, want false")
	}
	if service.StatusInCutoff(service.StatusCritical, nil) {
		t.Error("StatusInCutoff with empty cutoff = true, want false")
	}
}

func TestBuildRecommendation(t *testing.T) {
	cutoff := []string{service.StatusOutOfStock, service.StatusCritical, service.StatusWarning, service.StatusLow}
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	h := repository.HealthRecord{
		Location:          "Chennai",
		ItemName:          "ORS Packets",
		CurrentStock:      20,
		AvgDailyUsage:     10,
		LeadTimeDays:      3,
		DaysUntilStockout: ptr(2.0),
		StockStatus:       service.StatusCritical,
	}

	rec := service.BuildRecommendation(h, cutoff, 30, 50.0, now)
	if rec == nil {
		t.Fatal("BuildRecommendation returned nil for a critical record")
	}

	if rec.Location != "Chennai" || rec.ItemName != "ORS Packets" {
		t.Errorf("recommendation identity = %s/%s, want Chennai/ORS Packets", rec.Location, rec.ItemName)
	}
	if rec.ReorderQuantity != 280 {
		t.Errorf("ReorderQuantity = %v, want 280", rec.ReorderQuantity)
	}
	if rec.Priority != service.PriorityHigh {
		t.Errorf("Priority = %s, want %s", rec.Priority, service.PriorityHigh)
	}
	if want := decimal.RequireFromString("14000.00"); !rec.EstimatedCost.Equal(want) {
		t.Errorf("EstimatedCost = %s, want %s", rec.EstimatedCost, want)
	}
	if rec.DaysUntilStockout == nil || *rec.DaysUntilStockout != 2 {
		t.Errorf("DaysUntilStockout = %v, want 2", rec.DaysUntilStockout)
	}
	if !rec.CalculatedAt.Equal(now) {
		t.Errorf("CalculatedAt = %v, want %v", rec.CalculatedAt, now)
	}
}

func TestBuildRecommendation_OutsideCutoff(t *testing.T) {
	cutoff := []string{service.StatusOutOfStock, service.StatusCritical}
	h := repository.HealthRecord{
		Location:    "Pune",
		ItemName:    "Gloves",
		StockStatus: service.StatusLow,
	}

	if rec := service.BuildRecommendation(h, cutoff, 30, 50.0, time.Now()); rec != nil {
		t.Errorf("BuildRecommendation for LOW outside cutoff = %+v, want nil", rec)
	}
}

func TestClampTargetDays(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, service.SimulateMinTargetDays},
		{0, service.SimulateMinTargetDays},
		{13, service.SimulateMinTargetDays},
		{14, 14},
		{60, 60},
		{120, 120},
		{121, service.SimulateMaxTargetDays},
		{1000, service.SimulateMaxTargetDays},
	}

	for _, tt := range tests {
		if got := service.ClampTargetDays(tt.in); got != tt.want {
			t.Errorf("ClampTargetDays(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
