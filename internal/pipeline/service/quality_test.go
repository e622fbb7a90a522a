package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
)

func TestValueFinding(t *testing.T) {
	date := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		row         repository.ValueCheckRow
		wantCheck   string
		wantDetails string
	}{
		{
			name: "negative stock",
			row: repository.ValueCheckRow{
				OpeningStock: -5, ClosingStock: -12, Issue: CheckNegativeStock,
			},
			wantCheck:   CheckNegativeStock,
			wantDetails: "negative stock level: opening -5.00, closing -12.00",
		},
		{
			name: "negative receipt",
			row: repository.ValueCheckRow{
				ReceivedQty: -8, Issue: CheckNegativeReceipt,
			},
			wantCheck:   CheckNegativeReceipt,
			wantDetails: "received_qty -8.00 is negative",
		},
		{
			name: "negative usage",
			row: repository.ValueCheckRow{
				IssuedQty: -3, Issue: CheckNegativeUsage,
			},
			wantCheck:   CheckNegativeUsage,
			wantDetails: "issued_qty -3.00 is negative",
		},
		{
			name: "over issued",
			row: repository.ValueCheckRow{
				OpeningStock: 10, ReceivedQty: 5, IssuedQty: 20, Issue: CheckOverIssued,
			},
			wantCheck:   CheckOverIssued,
			wantDetails: "issued 20.00 exceeds available 15.00 (opening 10.00 + received 5.00)",
		},
		{
			name: "calculation mismatch",
			row: repository.ValueCheckRow{
				OpeningStock: 100, ReceivedQty: 20, IssuedQty: 10, ClosingStock: 80,
				Issue: CheckCalculationMismatch,
			},
			wantCheck:   CheckCalculationMismatch,
			wantDetails: "opening 100.00 + received 20.00 - issued 10.00 = 110.00, but closing reported as 80.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.Location = "Chennai"
			tt.row.ItemName = "Insulin"
			tt.row.RecordDate = date

			got := valueFinding(tt.row)
			if got.CheckName != tt.wantCheck {
				t.Errorf("CheckName = %s, want %s", got.CheckName, tt.wantCheck)
			}
			if got.Severity != SeverityHigh {
				t.Errorf("Severity = %s, want %s", got.Severity, SeverityHigh)
			}
			if got.Details != tt.wantDetails {
				t.Errorf("Details = %q, want %q", got.Details, tt.wantDetails)
			}
			if got.RecordDate == nil || !got.RecordDate.Equal(date) {
				t.Errorf("RecordDate = %v, want %v", got.RecordDate, date)
			}
		})
	}
}

func TestStockoutFinding(t *testing.T) {
	tests := []struct {
		name         string
		rate         float64
		wantSeverity string
	}{
		{"rare stockouts", 5, SeverityLow},
		{"at medium threshold", 10, SeverityLow},
		{"frequent stockouts", 10.1, SeverityMedium},
		{"at high threshold", 20, SeverityMedium},
		{"chronic stockouts", 20.1, SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := repository.StockoutPatternRow{
				Location:        "Mumbai",
				ItemName:        "ORS Packets",
				DaysTracked:     30,
				StockoutDays:    6,
				StockoutRatePct: tt.rate,
			}

			got := stockoutFinding(row)
			if got.Severity != tt.wantSeverity {
				t.Errorf("Severity for %.1f%% = %s, want %s", tt.rate, got.Severity, tt.wantSeverity)
			}
			if got.CheckName != CheckStockoutPattern {
				t.Errorf("CheckName = %s, want %s", got.CheckName, CheckStockoutPattern)
			}
			if got.RecordDate != nil {
				t.Errorf("RecordDate = %v, want nil for pattern findings", got.RecordDate)
			}
		})
	}
}

func TestStockoutFinding_LastDate(t *testing.T) {
	last := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	row := repository.StockoutPatternRow{
		Location:         "Delhi",
		ItemName:         "Masks",
		DaysTracked:      30,
		StockoutDays:     3,
		StockoutRatePct:  10,
		LastStockoutDate: &last,
	}

	got := stockoutFinding(row)
	if !strings.Contains(got.Details, "3 of 30 tracked days at zero stock (10.0%)") {
		t.Errorf("Details = %q, want the stockout ratio", got.Details)
	}
	if !strings.Contains(got.Details, "last on 2025-05-20") {
		t.Errorf("Details = %q, want the last stockout date", got.Details)
	}
}
