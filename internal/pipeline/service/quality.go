package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/runlock"
)

// Quality check names
const (
	CheckNegativeStock       = "NEGATIVE_STOCK"
	CheckNegativeReceipt     = "NEGATIVE_RECEIPT"
	CheckNegativeUsage       = "NEGATIVE_USAGE"
	CheckCalculationMismatch = "CALCULATION_MISMATCH"
	CheckOverIssued          = "OVER_ISSUED"
	CheckSuddenUsageSpike    = "SUDDEN_USAGE_SPIKE"
	CheckUsageOutlier        = "USAGE_OUTLIER"
	CheckStockoutPattern     = "STOCKOUT_PATTERN"
)

// Finding severities
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// Scan thresholds. The sudden-change and outlier bands come from the
// feed's historical noise profile; stockout rates grade how often a
// pair sat at zero inside the window.
const (
	suddenChangeThresholdPct = 50.0
	outlierWarnSigma         = 2.0
	outlierHighSigma         = 2.5
	stockoutHighRatePct      = 20.0
	stockoutMediumRatePct    = 10.0
)

// QualityService runs the periodic anomaly scan over the movement
// ledger. Findings are advisory: the pipeline keeps computing on raw
// values no matter what the scan turns up.
type QualityService struct {
	taskRunner
	qualityRepo *repository.QualityRepository
	cfg         config.PipelineConfig
}

// NewQualityService creates a new quality service
func NewQualityService(
	qualityRepo *repository.QualityRepository,
	runRepo *repository.RunRepository,
	locker *runlock.Locker,
	publisher *events.PipelineEventPublisher,
	cfg config.PipelineConfig,
	log *logger.Logger,
) *QualityService {
	return &QualityService{
		taskRunner: taskRunner{
			runRepo: runRepo,
			locker:  locker,
			events:  publisher,
			logger:  log.WithComponent("quality"),
		},
		qualityRepo: qualityRepo,
		cfg:         cfg,
	}
}

// RunScan executes all ledger checks over the trailing stats window and
// appends the findings.
func (s *QualityService) RunScan(ctx context.Context) (*repository.RefreshRun, error) {
	var total int
	var bySeverity map[string]int

	run, err := s.run(ctx, TaskQualityScan, func(ctx context.Context) (int, map[string]int, error) {
		n, counts, err := s.scan(ctx)
		if err != nil {
			return 0, nil, err
		}
		total = n
		bySeverity = counts
		return n, counts, nil
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishQualityScanCompleted(ctx, run.ID, total, bySeverity)
	return run, nil
}

// ListFindings returns stored findings matching the filters.
func (s *QualityService) ListFindings(ctx context.Context, checkName, severity, location string, limit, offset int) ([]repository.QualityFinding, int, error) {
	return s.qualityRepo.List(ctx, checkName, severity, location, limit, offset)
}

func (s *QualityService) scan(ctx context.Context) (int, map[string]int, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.cfg.StatsWindowDays)
	findings := []repository.QualityFinding{}

	values, err := s.qualityRepo.ScanValues(ctx, since)
	if err != nil {
		return 0, nil, fmt.Errorf("scan values: %w", err)
	}
	for _, row := range values {
		findings = append(findings, valueFinding(row))
	}

	changes, err := s.qualityRepo.ScanSuddenChanges(ctx, since, suddenChangeThresholdPct)
	if err != nil {
		return 0, nil, fmt.Errorf("scan sudden changes: %w", err)
	}
	for _, row := range changes {
		date := row.RecordDate
		findings = append(findings, repository.QualityFinding{
			Location:   row.Location,
			ItemName:   row.ItemName,
			RecordDate: &date,
			CheckName:  CheckSuddenUsageSpike,
			Severity:   SeverityMedium,
			Details: fmt.Sprintf("issued_qty %.2f vs %.2f the day before (%.1f%% change)",
				row.IssuedQty, row.PrevIssued, row.ChangePct),
		})
	}

	outliers, err := s.qualityRepo.ScanOutliers(ctx, since, outlierWarnSigma)
	if err != nil {
		return 0, nil, fmt.Errorf("scan outliers: %w", err)
	}
	for _, row := range outliers {
		severity := SeverityMedium
		if row.ZScore >= outlierHighSigma || row.ZScore <= -outlierHighSigma {
			severity = SeverityHigh
		}
		date := row.RecordDate
		findings = append(findings, repository.QualityFinding{
			Location:   row.Location,
			ItemName:   row.ItemName,
			RecordDate: &date,
			CheckName:  CheckUsageOutlier,
			Severity:   severity,
			Details: fmt.Sprintf("issued_qty %.2f deviates %.1f sigma from mean %.2f",
				row.IssuedQty, row.ZScore, row.AvgUsage),
		})
	}

	patterns, err := s.qualityRepo.ScanStockoutPatterns(ctx, since)
	if err != nil {
		return 0, nil, fmt.Errorf("scan stockout patterns: %w", err)
	}
	for _, row := range patterns {
		findings = append(findings, stockoutFinding(row))
	}

	if err := s.qualityRepo.InsertBatch(ctx, findings); err != nil {
		return 0, nil, fmt.Errorf("store findings: %w", err)
	}

	counts := map[string]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return len(findings), counts, nil
}

// valueFinding maps one failed sign or balance check onto a finding.
// All value checks are HIGH: they mean the feed reported something
// physically impossible.
func valueFinding(row repository.ValueCheckRow) repository.QualityFinding {
	var details string
	switch row.Issue {
	case CheckNegativeStock:
		details = fmt.Sprintf("negative stock level: opening %.2f, closing %.2f", row.OpeningStock, row.ClosingStock)
	case CheckNegativeReceipt:
		details = fmt.Sprintf("received_qty %.2f is negative", row.ReceivedQty)
	case CheckNegativeUsage:
		details = fmt.Sprintf("issued_qty %.2f is negative", row.IssuedQty)
	case CheckOverIssued:
		details = fmt.Sprintf("issued %.2f exceeds available %.2f (opening %.2f + received %.2f)",
			row.IssuedQty, row.OpeningStock+row.ReceivedQty, row.OpeningStock, row.ReceivedQty)
	default: // CALCULATION_MISMATCH
		details = fmt.Sprintf("opening %.2f + received %.2f - issued %.2f = %.2f, but closing reported as %.2f",
			row.OpeningStock, row.ReceivedQty, row.IssuedQty,
			row.OpeningStock+row.ReceivedQty-row.IssuedQty, row.ClosingStock)
	}

	date := row.RecordDate
	return repository.QualityFinding{
		Location:   row.Location,
		ItemName:   row.ItemName,
		RecordDate: &date,
		CheckName:  row.Issue,
		Severity:   SeverityHigh,
		Details:    details,
	}
}

func stockoutFinding(row repository.StockoutPatternRow) repository.QualityFinding {
	severity := SeverityLow
	switch {
	case row.StockoutRatePct > stockoutHighRatePct:
		severity = SeverityHigh
	case row.StockoutRatePct > stockoutMediumRatePct:
		severity = SeverityMedium
	}

	details := fmt.Sprintf("%d of %d tracked days at zero stock (%.1f%%)",
		row.StockoutDays, row.DaysTracked, row.StockoutRatePct)
	if row.LastStockoutDate != nil {
		details += ", last on " + row.LastStockoutDate.Format(dateLayout)
	}

	return repository.QualityFinding{
		Location:  row.Location,
		ItemName:  row.ItemName,
		CheckName: CheckStockoutPattern,
		Severity:  severity,
		Details:   details,
	}
}
