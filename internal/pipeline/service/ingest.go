package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/events"
	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/httputil"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
)

// DefaultLeadTimeDays is assumed for feeds that do not report a
// replenishment lead time, such as the CSV upload.
const DefaultLeadTimeDays = 3

// balanceEpsilon is the tolerance for the stock balance equation
// closing = opening + received - issued.
const balanceEpsilon = 0.01

const dateLayout = "2006-01-02"

// MovementInput is one submitted ledger row. Opening stock is optional:
// feeds that only report the end-of-day level omit it and ingestion
// derives it from the balance equation.
type MovementInput struct {
	Location     string   `json:"location" validate:"required,max=200"`
	ItemName     string   `json:"item_name" validate:"required,max=200"`
	OpeningStock *float64 `json:"opening_stock"`
	ReceivedQty  float64  `json:"received_qty" validate:"gte=0"`
	IssuedQty    float64  `json:"issued_qty" validate:"gte=0"`
	ClosingStock float64  `json:"closing_stock"`
	LeadTimeDays int      `json:"lead_time_days" validate:"omitempty,gt=0"`
	RecordDate   string   `json:"record_date" validate:"required,datetime=2006-01-02"`
}

// RowError reports why one submitted row was rejected.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// IngestResult summarizes one ingestion batch. Skipped rows are
// duplicates of an already-ingested (location, item, date); rejected
// rows failed validation. Findings are inline quality flags on rows
// that were still accepted.
type IngestResult struct {
	Source   string                      `json:"source"`
	Accepted int                         `json:"accepted"`
	Skipped  int                         `json:"skipped"`
	Rejected int                         `json:"rejected"`
	Errors   []RowError                  `json:"errors,omitempty"`
	Findings []repository.QualityFinding `json:"findings,omitempty"`
}

// IngestionService is the validated append path into the movement
// ledger. Rows are immutable once written; a bad row is rejected or
// flagged, never fixed up.
type IngestionService struct {
	movementRepo *repository.MovementRepository
	qualityRepo  *repository.QualityRepository
	events       *events.PipelineEventPublisher
	logger       *logger.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	movementRepo *repository.MovementRepository,
	qualityRepo *repository.QualityRepository,
	publisher *events.PipelineEventPublisher,
	log *logger.Logger,
) *IngestionService {
	return &IngestionService{
		movementRepo: movementRepo,
		qualityRepo:  qualityRepo,
		events:       publisher,
		logger:       log.WithComponent("ingestion"),
	}
}

type inputRow struct {
	n  int
	in MovementInput
}

// IngestBatch appends a JSON batch of movement rows.
func (s *IngestionService) IngestBatch(ctx context.Context, source string, inputs []MovementInput) (*IngestResult, error) {
	if len(inputs) == 0 {
		return nil, errors.BadRequest("batch is empty")
	}
	if source == "" {
		source = "api"
	}

	rows := make([]inputRow, len(inputs))
	for i, in := range inputs {
		rows[i] = inputRow{n: i + 1, in: in}
	}
	return s.ingest(ctx, source, rows, nil)
}

// IngestCSV appends rows from the original feed format. Required
// headers are LOCATION, ITEM, CURRENT_STOCK, RECEIVED_QTY, ISSUED_QTY
// and LAST_UPDATED_DATE, case-insensitive and order-free. CURRENT_STOCK
// is the end-of-day closing level.
func (s *IngestionService) IngestCSV(ctx context.Context, r io.Reader) (*IngestResult, error) {
	rows, rowErrs, err := parseMovementCSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && len(rowErrs) == 0 {
		return nil, errors.BadRequest("csv contains no data rows")
	}
	return s.ingest(ctx, "csv", rows, rowErrs)
}

func (s *IngestionService) ingest(ctx context.Context, source string, rows []inputRow, parseErrs []RowError) (*IngestResult, error) {
	res := &IngestResult{
		Source:   source,
		Rejected: len(parseErrs),
		Errors:   parseErrs,
	}
	findings := []repository.QualityFinding{}

	for _, row := range rows {
		in := row.in
		if err := httputil.Validate(&in); err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, RowError{Row: row.n, Message: validationMessage(err)})
			continue
		}

		recordDate, err := time.Parse(dateLayout, in.RecordDate)
		if err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, RowError{Row: row.n, Message: "record_date must be YYYY-MM-DD"})
			continue
		}

		opening, finding := resolveOpening(in, recordDate)
		if finding != nil {
			findings = append(findings, *finding)
		}

		lead := in.LeadTimeDays
		if lead == 0 {
			lead = DefaultLeadTimeDays
		}

		rec := &repository.MovementRecord{
			Location:     in.Location,
			ItemName:     in.ItemName,
			OpeningStock: opening,
			ReceivedQty:  in.ReceivedQty,
			IssuedQty:    in.IssuedQty,
			ClosingStock: in.ClosingStock,
			LeadTimeDays: lead,
			RecordDate:   recordDate,
			Source:       source,
		}

		inserted, err := s.movementRepo.Insert(ctx, rec)
		if err != nil {
			var appErr *errors.AppError
			if errors.As(err, &appErr) && appErr.StatusCode < 500 {
				res.Rejected++
				res.Errors = append(res.Errors, RowError{Row: row.n, Message: appErr.Message})
				continue
			}
			return nil, fmt.Errorf("insert movement: %w", err)
		}
		if inserted {
			res.Accepted++
		} else {
			res.Skipped++
		}
	}

	if len(findings) > 0 {
		if err := s.qualityRepo.InsertBatch(ctx, findings); err != nil {
			// Findings never block ingestion.
			s.logger.Error().Err(err).Int("findings", len(findings)).Msg("failed to store inline quality findings")
		} else {
			res.Findings = findings
		}
	}

	metrics.RecordMovementsIngested(source, res.Accepted)
	s.events.PublishMovementsIngested(ctx, source, res.Accepted, res.Skipped, res.Rejected)
	s.logger.Info().
		Str("source", source).
		Int("accepted", res.Accepted).
		Int("skipped", res.Skipped).
		Int("rejected", res.Rejected).
		Int("findings", len(findings)).
		Msg("movement batch ingested")

	return res, nil
}

// resolveOpening returns the opening stock for the row, deriving it
// from the balance equation when absent. A supplied opening that does
// not balance raises a CALCULATION_MISMATCH finding; the reported
// values are stored as-is.
func resolveOpening(in MovementInput, recordDate time.Time) (float64, *repository.QualityFinding) {
	derived := in.ClosingStock - in.ReceivedQty + in.IssuedQty
	if in.OpeningStock == nil {
		return derived, nil
	}

	opening := *in.OpeningStock
	diff := opening + in.ReceivedQty - in.IssuedQty - in.ClosingStock
	if diff > balanceEpsilon || diff < -balanceEpsilon {
		date := recordDate
		return opening, &repository.QualityFinding{
			Location:   in.Location,
			ItemName:   in.ItemName,
			RecordDate: &date,
			CheckName:  CheckCalculationMismatch,
			Severity:   SeverityHigh,
			Details: fmt.Sprintf("opening %.2f + received %.2f - issued %.2f = %.2f, but closing reported as %.2f",
				opening, in.ReceivedQty, in.IssuedQty, opening+in.ReceivedQty-in.IssuedQty, in.ClosingStock),
		}
	}
	return opening, nil
}

// csvColumns maps the feed's header names to required-ness.
var csvColumns = []string{"LOCATION", "ITEM", "CURRENT_STOCK", "RECEIVED_QTY", "ISSUED_QTY", "LAST_UPDATED_DATE"}

func parseMovementCSV(r io.Reader) ([]inputRow, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errors.BadRequest("csv is empty")
	}
	if err != nil {
		return nil, nil, errors.BadRequest("failed to read csv header")
	}

	idx := map[string]int{}
	for i, name := range header {
		name = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		idx[name] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, nil, errors.BadRequest("missing required column: " + col)
		}
	}

	rows := []inputRow{}
	rowErrs := []RowError{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: "malformed csv row"})
			continue
		}

		field := func(col string) string {
			i := idx[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		closing, err := strconv.ParseFloat(field("CURRENT_STOCK"), 64)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: "CURRENT_STOCK must be numeric"})
			continue
		}
		received, err := strconv.ParseFloat(field("RECEIVED_QTY"), 64)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: "RECEIVED_QTY must be numeric"})
			continue
		}
		issued, err := strconv.ParseFloat(field("ISSUED_QTY"), 64)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: "ISSUED_QTY must be numeric"})
			continue
		}

		rows = append(rows, inputRow{
			n: line,
			in: MovementInput{
				Location:     field("LOCATION"),
				ItemName:     field("ITEM"),
				ReceivedQty:  received,
				IssuedQty:    issued,
				ClosingStock: closing,
				RecordDate:   field("LAST_UPDATED_DATE"),
			},
		})
	}
	return rows, rowErrs, nil
}

// validationMessage flattens a validation AppError into one row message.
func validationMessage(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) && len(appErr.Details) > 0 {
		parts := make([]string, 0, len(appErr.Details))
		for field, msg := range appErr.Details {
			parts = append(parts, field+": "+msg)
		}
		sort.Strings(parts)
		return strings.Join(parts, "; ")
	}
	return "validation failed"
}
