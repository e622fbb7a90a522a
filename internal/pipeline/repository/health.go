package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
)

// HealthRecord classifies one (location, item) pair. DaysUntilStockout
// is nil when average usage is zero.
type HealthRecord struct {
	Location          string    `db:"location" json:"location"`
	ItemName          string    `db:"item_name" json:"item_name"`
	CurrentStock      float64   `db:"current_stock" json:"current_stock"`
	AvgDailyUsage     float64   `db:"avg_daily_usage" json:"avg_daily_usage"`
	LeadTimeDays      int       `db:"lead_time_days" json:"lead_time_days"`
	SafetyStock       float64   `db:"safety_stock" json:"safety_stock"`
	DaysUntilStockout *float64  `db:"days_until_stockout" json:"days_until_stockout"`
	StockStatus       string    `db:"stock_status" json:"stock_status"`
	HealthScore       int       `db:"health_score" json:"health_score"`
	CalculatedAt      time.Time `db:"calculated_at" json:"calculated_at"`
}

// HealthRepository handles the derived health_records table
type HealthRepository struct {
	db *database.DB
}

// NewHealthRepository creates a new health repository
func NewHealthRepository(db *database.DB) *HealthRepository {
	return &HealthRepository{db: db}
}

// ReplaceAll swaps the table contents for the given records in a single
// transaction. Readers keep seeing the previous refresh until commit.
func (r *HealthRepository) ReplaceAll(ctx context.Context, records []HealthRecord) error {
	defer metrics.TrackDBOperation("health_replace")(time.Now())

	query := `
		INSERT INTO health_records (
			location, item_name, current_stock, avg_daily_usage, lead_time_days,
			safety_stock, days_until_stockout, stock_status, health_score, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM health_records`); err != nil {
			return err
		}
		for i := range records {
			rec := &records[i]
			_, err := tx.ExecContext(ctx, query,
				rec.Location, rec.ItemName, rec.CurrentStock, rec.AvgDailyUsage,
				rec.LeadTimeDays, rec.SafetyStock, rec.DaysUntilStockout,
				rec.StockStatus, rec.HealthScore, rec.CalculatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns health records matching the filters, worst status first,
// with the total match count.
func (r *HealthRepository) List(ctx context.Context, status, location string, limit, offset int) ([]HealthRecord, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if status != "" {
		where += " AND stock_status = $" + itoa(argIdx)
		args = append(args, status)
		argIdx++
	}
	if location != "" {
		where += " AND location = $" + itoa(argIdx)
		args = append(args, location)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM health_records " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT location, item_name, current_stock, avg_daily_usage, lead_time_days,
			safety_stock, days_until_stockout, stock_status, health_score, calculated_at
		FROM health_records ` + where + `
		ORDER BY
			CASE stock_status
				WHEN 'OUT_OF_STOCK' THEN 1
				WHEN 'CRITICAL' THEN 2
				WHEN 'WARNING' THEN 3
				WHEN 'LOW' THEN 4
				ELSE 5
			END,
			days_until_stockout ASC NULLS LAST,
			location, item_name
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	records := []HealthRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ByStatuses returns all records whose status is in the given set,
// worst first. Used by the alert dispatcher.
func (r *HealthRepository) ByStatuses(ctx context.Context, statuses []string) ([]HealthRecord, error) {
	records := []HealthRecord{}
	query := `
		SELECT location, item_name, current_stock, avg_daily_usage, lead_time_days,
			safety_stock, days_until_stockout, stock_status, health_score, calculated_at
		FROM health_records
		WHERE stock_status = ANY($1)
		ORDER BY
			CASE stock_status
				WHEN 'OUT_OF_STOCK' THEN 1
				WHEN 'CRITICAL' THEN 2
				WHEN 'WARNING' THEN 3
				WHEN 'LOW' THEN 4
				ELSE 5
			END,
			days_until_stockout ASC NULLS LAST,
			location, item_name
	`
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(statuses)); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the health record for one (location, item) pair.
func (r *HealthRepository) Get(ctx context.Context, location, item string) (*HealthRecord, error) {
	var rec HealthRecord
	query := `
		SELECT location, item_name, current_stock, avg_daily_usage, lead_time_days,
			safety_stock, days_until_stockout, stock_status, health_score, calculated_at
		FROM health_records
		WHERE location = $1 AND item_name = $2
	`
	if err := r.db.GetContext(ctx, &rec, query, location, item); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("health record")
		}
		return nil, err
	}
	return &rec, nil
}

// StatusCounts returns the number of records per stock status.
func (r *HealthRepository) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows := []struct {
		Status string `db:"stock_status"`
		Count  int    `db:"count"`
	}{}
	query := `SELECT stock_status, COUNT(*) AS count FROM health_records GROUP BY stock_status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
