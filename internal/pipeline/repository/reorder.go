package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
)

// ReorderRecommendation is the suggested order for one (location, item)
// pair. Only pairs whose status falls inside the configured cutoff get
// a row.
type ReorderRecommendation struct {
	Location          string          `db:"location" json:"location"`
	ItemName          string          `db:"item_name" json:"item_name"`
	CurrentStock      float64         `db:"current_stock" json:"current_stock"`
	AvgDailyUsage     float64         `db:"avg_daily_usage" json:"avg_daily_usage"`
	DaysUntilStockout *float64        `db:"days_until_stockout" json:"days_until_stockout"`
	ReorderQuantity   float64         `db:"reorder_quantity" json:"reorder_quantity"`
	Priority          string          `db:"priority" json:"priority"`
	EstimatedCost     decimal.Decimal `db:"estimated_cost" json:"estimated_cost"`
	CalculatedAt      time.Time       `db:"calculated_at" json:"calculated_at"`
}

// ReorderRepository handles the derived reorder_recommendations table
type ReorderRepository struct {
	db *database.DB
}

// NewReorderRepository creates a new reorder repository
func NewReorderRepository(db *database.DB) *ReorderRepository {
	return &ReorderRepository{db: db}
}

// ReplaceAll swaps the table contents in a single transaction.
func (r *ReorderRepository) ReplaceAll(ctx context.Context, recs []ReorderRecommendation) error {
	defer metrics.TrackDBOperation("reorder_replace")(time.Now())

	query := `
		INSERT INTO reorder_recommendations (
			location, item_name, current_stock, avg_daily_usage, days_until_stockout,
			reorder_quantity, priority, estimated_cost, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reorder_recommendations`); err != nil {
			return err
		}
		for i := range recs {
			rec := &recs[i]
			_, err := tx.ExecContext(ctx, query,
				rec.Location, rec.ItemName, rec.CurrentStock, rec.AvgDailyUsage,
				rec.DaysUntilStockout, rec.ReorderQuantity, rec.Priority,
				rec.EstimatedCost, rec.CalculatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns recommendations matching the filters, most urgent first,
// with the total match count.
func (r *ReorderRepository) List(ctx context.Context, priority, location string, limit, offset int) ([]ReorderRecommendation, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if priority != "" {
		where += " AND priority = $" + itoa(argIdx)
		args = append(args, priority)
		argIdx++
	}
	if location != "" {
		where += " AND location = $" + itoa(argIdx)
		args = append(args, location)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM reorder_recommendations " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT location, item_name, current_stock, avg_daily_usage, days_until_stockout,
			reorder_quantity, priority, estimated_cost, calculated_at
		FROM reorder_recommendations ` + where + `
		ORDER BY
			CASE priority
				WHEN 'URGENT' THEN 1
				WHEN 'HIGH' THEN 2
				WHEN 'MEDIUM' THEN 3
				ELSE 4
			END,
			days_until_stockout ASC NULLS LAST,
			location, item_name
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	recs := []ReorderRecommendation{}
	if err := r.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// All returns every recommendation, most urgent first. Used by the
// supplier matcher and the procurement export.
func (r *ReorderRepository) All(ctx context.Context) ([]ReorderRecommendation, error) {
	recs := []ReorderRecommendation{}
	query := `
		SELECT location, item_name, current_stock, avg_daily_usage, days_until_stockout,
			reorder_quantity, priority, estimated_cost, calculated_at
		FROM reorder_recommendations
		ORDER BY
			CASE priority
				WHEN 'URGENT' THEN 1
				WHEN 'HIGH' THEN 2
				WHEN 'MEDIUM' THEN 3
				ELSE 4
			END,
			days_until_stockout ASC NULLS LAST,
			location, item_name
	`
	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, err
	}
	return recs, nil
}

// TotalEstimatedCost sums estimated_cost across all recommendations.
// Feeds the budget tracking view.
func (r *ReorderRepository) TotalEstimatedCost(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(estimated_cost), 0) FROM reorder_recommendations`
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
