package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// procurementColumns is the export header the procurement tooling
// expects, in this exact order.
var procurementColumns = []string{
	"Location", "Item Name", "Current Stock", "Quantity to Order",
	"Priority", "Order-Within-Days", "Estimated Cost",
}

// exportDaysSentinel stands in for an undefined stockout horizon in
// rendered exports, mirroring the alert text sentinel. The stored
// column stays null.
const exportDaysSentinel = 999

// ExportService renders the current procurement plan for download.
type ExportService struct {
	reorderRepo   *repository.ReorderRepository
	analyticsRepo *repository.AnalyticsRepository
	logger        *logger.Logger
}

// NewExportService creates a new export service
func NewExportService(
	reorderRepo *repository.ReorderRepository,
	analyticsRepo *repository.AnalyticsRepository,
	log *logger.Logger,
) *ExportService {
	return &ExportService{
		reorderRepo:   reorderRepo,
		analyticsRepo: analyticsRepo,
		logger:        log.WithComponent("export"),
	}
}

// ProcurementCSV renders the reorder recommendations as CSV.
func (s *ExportService) ProcurementCSV(ctx context.Context) ([]byte, error) {
	recs, err := s.reorderRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(procurementColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range recs {
		row := []string{
			rec.Location,
			rec.ItemName,
			formatQty(rec.CurrentStock),
			formatQty(rec.ReorderQuantity),
			rec.Priority,
			formatDays(rec.DaysUntilStockout),
			rec.EstimatedCost.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ProcurementXLSX renders the recommendations as a workbook with a
// Procurement sheet and a Locations summary sheet.
func (s *ExportService) ProcurementXLSX(ctx context.Context) ([]byte, error) {
	recs, err := s.reorderRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}
	summaries, err := s.analyticsRepo.LocationSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load location summaries: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const procurementSheet = "Procurement"
	if err := f.SetSheetName("Sheet1", procurementSheet); err != nil {
		return nil, err
	}
	header := make([]interface{}, len(procurementColumns))
	for i, col := range procurementColumns {
		header[i] = col
	}
	if err := writeSheetRow(f, procurementSheet, 1, header); err != nil {
		return nil, err
	}
	for i, rec := range recs {
		days := float64(exportDaysSentinel)
		if rec.DaysUntilStockout != nil {
			days = *rec.DaysUntilStockout
		}
		cost, _ := rec.EstimatedCost.Float64()
		row := []interface{}{
			rec.Location, rec.ItemName, rec.CurrentStock, rec.ReorderQuantity,
			rec.Priority, days, cost,
		}
		if err := writeSheetRow(f, procurementSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	const locationsSheet = "Locations"
	if _, err := f.NewSheet(locationsSheet); err != nil {
		return nil, err
	}
	locationHeader := []interface{}{
		"Location", "Items Tracked", "Out of Stock", "Critical", "Warning",
		"Low", "Healthy", "Avg Health Score", "Pending Reorder Cost",
	}
	if err := writeSheetRow(f, locationsSheet, 1, locationHeader); err != nil {
		return nil, err
	}
	for i, sum := range summaries {
		cost, _ := sum.PendingReorderCost.Float64()
		row := []interface{}{
			sum.Location, sum.ItemsTracked, sum.OutOfStock, sum.Critical,
			sum.Warning, sum.Low, sum.Healthy, sum.AvgHealthScore, cost,
		}
		if err := writeSheetRow(f, locationsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDays(days *float64) string {
	if days == nil {
		return strconv.Itoa(exportDaysSentinel)
	}
	return strconv.FormatFloat(*days, 'f', 1, 64)
}
