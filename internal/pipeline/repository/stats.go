package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
)

// StatsSnapshot holds per (location, item) usage statistics over the
// trailing window. current_stock is the closing stock of the most
// recent movement inside the window.
type StatsSnapshot struct {
	Location         string    `db:"location" json:"location"`
	ItemName         string    `db:"item_name" json:"item_name"`
	CurrentStock     float64   `db:"current_stock" json:"current_stock"`
	LeadTimeDays     int       `db:"lead_time_days" json:"lead_time_days"`
	AvgDailyUsage    float64   `db:"avg_daily_usage" json:"avg_daily_usage"`
	MinDailyUsage    float64   `db:"min_daily_usage" json:"min_daily_usage"`
	MaxDailyUsage    float64   `db:"max_daily_usage" json:"max_daily_usage"`
	StddevDailyUsage float64   `db:"stddev_daily_usage" json:"stddev_daily_usage"`
	AvgReceived      float64   `db:"avg_received" json:"avg_received"`
	TotalReceived    float64   `db:"total_received" json:"total_received"`
	TotalIssued      float64   `db:"total_issued" json:"total_issued"`
	DaysTracked      int       `db:"days_tracked" json:"days_tracked"`
	LastMovementDate time.Time `db:"last_movement_date" json:"last_movement_date"`
	CalculatedAt     time.Time `db:"calculated_at" json:"calculated_at"`
}

// StatsRepository handles the derived stats_snapshots table
type StatsRepository struct {
	db *database.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Rebuild recomputes every snapshot from ledger rows on or after since,
// replacing the table contents in a single transaction. Pairs with no
// movement inside the window age out of the derived tables; their
// history stays in the ledger. Returns the number of snapshots written.
func (r *StatsRepository) Rebuild(ctx context.Context, since time.Time) (int, error) {
	defer metrics.TrackDBOperation("stats_rebuild")(time.Now())

	query := `
		WITH windowed AS (
			SELECT location, item_name, closing_stock, received_qty, issued_qty,
				lead_time_days, record_date
			FROM movement_records
			WHERE record_date >= $1
		),
		latest AS (
			SELECT DISTINCT ON (location, item_name)
				location, item_name, closing_stock, lead_time_days
			FROM windowed
			ORDER BY location, item_name, record_date DESC
		),
		aggregated AS (
			SELECT
				location,
				item_name,
				AVG(issued_qty) AS avg_daily_usage,
				MIN(issued_qty) AS min_daily_usage,
				MAX(issued_qty) AS max_daily_usage,
				COALESCE(STDDEV(issued_qty), 0) AS stddev_daily_usage,
				AVG(received_qty) AS avg_received,
				SUM(received_qty) AS total_received,
				SUM(issued_qty) AS total_issued,
				COUNT(*) AS days_tracked,
				MAX(record_date) AS last_movement_date
			FROM windowed
			GROUP BY location, item_name
		)
		INSERT INTO stats_snapshots (
			location, item_name, current_stock, lead_time_days,
			avg_daily_usage, min_daily_usage, max_daily_usage, stddev_daily_usage,
			avg_received, total_received, total_issued, days_tracked,
			last_movement_date, calculated_at
		)
		SELECT
			l.location, l.item_name, l.closing_stock, l.lead_time_days,
			a.avg_daily_usage, a.min_daily_usage, a.max_daily_usage, a.stddev_daily_usage,
			a.avg_received, a.total_received, a.total_issued, a.days_tracked,
			a.last_movement_date, NOW()
		FROM latest l
		JOIN aggregated a ON a.location = l.location AND a.item_name = l.item_name
	`

	var written int64
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM stats_snapshots`); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, since)
		if err != nil {
			return err
		}
		written, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(written), nil
}

// List returns snapshots matching the filters with the total match count.
func (r *StatsRepository) List(ctx context.Context, location, item string, limit, offset int) ([]StatsSnapshot, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if location != "" {
		where += " AND location = $" + itoa(argIdx)
		args = append(args, location)
		argIdx++
	}
	if item != "" {
		where += " AND item_name = $" + itoa(argIdx)
		args = append(args, item)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM stats_snapshots " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT location, item_name, current_stock, lead_time_days,
			avg_daily_usage, min_daily_usage, max_daily_usage, stddev_daily_usage,
			avg_received, total_received, total_issued, days_tracked,
			last_movement_date, calculated_at
		FROM stats_snapshots ` + where + `
		ORDER BY location, item_name
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	snapshots := []StatsSnapshot{}
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, 0, err
	}
	return snapshots, total, nil
}

// All returns every snapshot, ordered by location and item. Used by the
// refresh to derive health records in one pass.
func (r *StatsRepository) All(ctx context.Context) ([]StatsSnapshot, error) {
	snapshots := []StatsSnapshot{}
	query := `
		SELECT location, item_name, current_stock, lead_time_days,
			avg_daily_usage, min_daily_usage, max_daily_usage, stddev_daily_usage,
			avg_received, total_received, total_issued, days_tracked,
			last_movement_date, calculated_at
		FROM stats_snapshots
		ORDER BY location, item_name
	`
	if err := r.db.SelectContext(ctx, &snapshots, query); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Get returns the snapshot for one (location, item) pair.
func (r *StatsRepository) Get(ctx context.Context, location, item string) (*StatsSnapshot, error) {
	var snapshot StatsSnapshot
	query := `
		SELECT location, item_name, current_stock, lead_time_days,
			avg_daily_usage, min_daily_usage, max_daily_usage, stddev_daily_usage,
			avg_received, total_received, total_issued, days_tracked,
			last_movement_date, calculated_at
		FROM stats_snapshots
		WHERE location = $1 AND item_name = $2
	`
	if err := r.db.GetContext(ctx, &snapshot, query, location, item); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stats snapshot")
		}
		return nil, err
	}
	return &snapshot, nil
}
