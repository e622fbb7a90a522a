package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
)

// QualityFinding is one detected data-quality issue. Findings never
// block the pipeline; they are an audit trail for the feed.
type QualityFinding struct {
	ID         int64      `db:"id" json:"id"`
	Location   string     `db:"location" json:"location"`
	ItemName   string     `db:"item_name" json:"item_name"`
	RecordDate *time.Time `db:"record_date" json:"record_date,omitempty"`
	CheckName  string     `db:"check_name" json:"check_name"`
	Severity   string     `db:"severity" json:"severity"`
	Details    string     `db:"details" json:"details"`
	DetectedAt time.Time  `db:"detected_at" json:"detected_at"`
}

// ValueCheckRow is a ledger row that failed the balance or sign checks.
// Issue carries which check tripped first, in severity order.
type ValueCheckRow struct {
	Location     string    `db:"location"`
	ItemName     string    `db:"item_name"`
	RecordDate   time.Time `db:"record_date"`
	OpeningStock float64   `db:"opening_stock"`
	ReceivedQty  float64   `db:"received_qty"`
	IssuedQty    float64   `db:"issued_qty"`
	ClosingStock float64   `db:"closing_stock"`
	Issue        string    `db:"issue"`
}

// SuddenChangeRow is a day whose issued_qty swung more than the
// threshold against the prior day.
type SuddenChangeRow struct {
	Location   string    `db:"location"`
	ItemName   string    `db:"item_name"`
	RecordDate time.Time `db:"record_date"`
	IssuedQty  float64   `db:"issued_qty"`
	PrevIssued float64   `db:"prev_issued"`
	ChangePct  float64   `db:"change_pct"`
}

// OutlierRow is a day whose issued_qty deviated from the pair's mean by
// at least the warning z-score band.
type OutlierRow struct {
	Location    string    `db:"location"`
	ItemName    string    `db:"item_name"`
	RecordDate  time.Time `db:"record_date"`
	IssuedQty   float64   `db:"issued_qty"`
	AvgUsage    float64   `db:"avg_usage"`
	StddevUsage float64   `db:"stddev_usage"`
	ZScore      float64   `db:"z_score"`
}

// StockoutPatternRow summarizes how often a pair sat at zero closing
// stock inside the window.
type StockoutPatternRow struct {
	Location         string     `db:"location"`
	ItemName         string     `db:"item_name"`
	DaysTracked      int        `db:"days_tracked"`
	StockoutDays     int        `db:"stockout_days"`
	StockoutRatePct  float64    `db:"stockout_rate_pct"`
	LastStockoutDate *time.Time `db:"last_stockout_date"`
}

// QualityRepository handles the quality_findings log and the scan
// queries that feed it
type QualityRepository struct {
	db *database.DB
}

// NewQualityRepository creates a new quality repository
func NewQualityRepository(db *database.DB) *QualityRepository {
	return &QualityRepository{db: db}
}

// InsertBatch appends findings in one transaction.
func (r *QualityRepository) InsertBatch(ctx context.Context, findings []QualityFinding) error {
	if len(findings) == 0 {
		return nil
	}
	query := `
		INSERT INTO quality_findings (location, item_name, record_date, check_name, severity, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		for i := range findings {
			f := &findings[i]
			_, err := tx.ExecContext(ctx, query,
				f.Location, f.ItemName, f.RecordDate, f.CheckName, f.Severity, f.Details)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns findings matching the filters, newest first, with the
// total match count.
func (r *QualityRepository) List(ctx context.Context, checkName, severity, location string, limit, offset int) ([]QualityFinding, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if checkName != "" {
		where += " AND check_name = $" + itoa(argIdx)
		args = append(args, checkName)
		argIdx++
	}
	if severity != "" {
		where += " AND severity = $" + itoa(argIdx)
		args = append(args, severity)
		argIdx++
	}
	if location != "" {
		where += " AND location = $" + itoa(argIdx)
		args = append(args, location)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM quality_findings " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, location, item_name, record_date, check_name, severity, details, detected_at
		FROM quality_findings ` + where + `
		ORDER BY detected_at DESC, id DESC
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	findings := []QualityFinding{}
	if err := r.db.SelectContext(ctx, &findings, query, args...); err != nil {
		return nil, 0, err
	}
	return findings, total, nil
}

// ScanValues returns ledger rows since the cutoff that fail the sign or
// balance checks. One issue per row, first match in the CASE wins.
func (r *QualityRepository) ScanValues(ctx context.Context, since time.Time) ([]ValueCheckRow, error) {
	rows := []ValueCheckRow{}
	query := `
		SELECT location, item_name, record_date, opening_stock, received_qty,
			issued_qty, closing_stock, issue
		FROM (
			SELECT location, item_name, record_date, opening_stock, received_qty,
				issued_qty, closing_stock,
				CASE
					WHEN closing_stock < 0 OR opening_stock < 0 THEN 'NEGATIVE_STOCK'
					WHEN received_qty < 0 THEN 'NEGATIVE_RECEIPT'
					WHEN issued_qty < 0 THEN 'NEGATIVE_USAGE'
					WHEN ABS((opening_stock + received_qty - issued_qty) - closing_stock) > 0.01
					THEN 'CALCULATION_MISMATCH'
					WHEN issued_qty > (opening_stock + received_qty) THEN 'OVER_ISSUED'
					ELSE 'OK'
				END AS issue
			FROM movement_records
			WHERE record_date >= $1
		) checked
		WHERE issue <> 'OK'
		ORDER BY record_date DESC, location, item_name
	`
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, err
	}
	return rows, nil
}

// ScanSuddenChanges returns days whose issued_qty moved more than
// thresholdPct percent against the prior day for the same pair. Days
// with a zero prior value are excluded rather than divided by.
func (r *QualityRepository) ScanSuddenChanges(ctx context.Context, since time.Time, thresholdPct float64) ([]SuddenChangeRow, error) {
	rows := []SuddenChangeRow{}
	query := `
		SELECT location, item_name, record_date, issued_qty, prev_issued, change_pct
		FROM (
			SELECT location, item_name, record_date, issued_qty,
				LAG(issued_qty) OVER (
					PARTITION BY location, item_name
					ORDER BY record_date
				) AS prev_issued,
				ABS((issued_qty - LAG(issued_qty) OVER (
					PARTITION BY location, item_name
					ORDER BY record_date
				)) / NULLIF(LAG(issued_qty) OVER (
					PARTITION BY location, item_name
					ORDER BY record_date
				), 0)) * 100 AS change_pct
			FROM movement_records
			WHERE record_date >= $1
		) changes
		WHERE change_pct > $2
		ORDER BY change_pct DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, since, thresholdPct); err != nil {
		return nil, err
	}
	return rows, nil
}

// ScanOutliers returns days whose issued_qty sits at least warnSigma
// standard deviations from the pair's mean over the window. Pairs with
// zero variance are skipped.
func (r *QualityRepository) ScanOutliers(ctx context.Context, since time.Time, warnSigma float64) ([]OutlierRow, error) {
	rows := []OutlierRow{}
	query := `
		SELECT location, item_name, record_date, issued_qty, avg_usage, stddev_usage, z_score
		FROM (
			SELECT location, item_name, record_date, issued_qty,
				AVG(issued_qty) OVER (PARTITION BY location, item_name) AS avg_usage,
				COALESCE(STDDEV(issued_qty) OVER (PARTITION BY location, item_name), 0) AS stddev_usage,
				CASE
					WHEN COALESCE(STDDEV(issued_qty) OVER (PARTITION BY location, item_name), 0) > 0
					THEN (issued_qty - AVG(issued_qty) OVER (PARTITION BY location, item_name))
						/ STDDEV(issued_qty) OVER (PARTITION BY location, item_name)
					ELSE 0
				END AS z_score
			FROM movement_records
			WHERE record_date >= $1
		) scored
		WHERE stddev_usage > 0 AND ABS(z_score) >= $2
		ORDER BY ABS(z_score) DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, since, warnSigma); err != nil {
		return nil, err
	}
	return rows, nil
}

// ScanStockoutPatterns returns pairs that hit zero closing stock at
// least once inside the window, with their stockout rate.
func (r *QualityRepository) ScanStockoutPatterns(ctx context.Context, since time.Time) ([]StockoutPatternRow, error) {
	rows := []StockoutPatternRow{}
	query := `
		SELECT
			location,
			item_name,
			COUNT(*) AS days_tracked,
			SUM(is_stockout) AS stockout_days,
			ROUND((SUM(is_stockout) * 100.0 / COUNT(*))::numeric, 2) AS stockout_rate_pct,
			MAX(CASE WHEN is_stockout = 1 THEN record_date END) AS last_stockout_date
		FROM (
			SELECT location, item_name, record_date,
				CASE WHEN closing_stock <= 0 THEN 1 ELSE 0 END AS is_stockout
			FROM movement_records
			WHERE record_date >= $1
		) stockout_history
		GROUP BY location, item_name
		HAVING SUM(is_stockout) > 0
		ORDER BY stockout_rate_pct DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, err
	}
	return rows, nil
}
