// Package repository persists the pipeline's ledger, derived tables and
// registries in PostgreSQL. Derived tables (stats, health, reorders,
// purchase orders) are replaced wholesale inside a transaction on every
// refresh; the movement ledger and the alert/quality logs are append-only.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
)

// MovementRecord is one day of stock movement for a (location, item) pair.
// closing_stock should equal opening_stock + received_qty - issued_qty;
// violations are logged as quality findings, not rejected.
type MovementRecord struct {
	ID           string    `db:"id" json:"id"`
	Location     string    `db:"location" json:"location"`
	ItemName     string    `db:"item_name" json:"item_name"`
	OpeningStock float64   `db:"opening_stock" json:"opening_stock"`
	ReceivedQty  float64   `db:"received_qty" json:"received_qty"`
	IssuedQty    float64   `db:"issued_qty" json:"issued_qty"`
	ClosingStock float64   `db:"closing_stock" json:"closing_stock"`
	LeadTimeDays int       `db:"lead_time_days" json:"lead_time_days"`
	RecordDate   time.Time `db:"record_date" json:"record_date"`
	Source       string    `db:"source" json:"source"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// MovementRepository handles the append-only movement ledger
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Insert appends one ledger row. Returns false when a row for the same
// (location, item, record_date) already exists; existing days are
// skipped, never updated.
func (r *MovementRepository) Insert(ctx context.Context, rec *MovementRecord) (bool, error) {
	defer metrics.TrackDBOperation("movement_insert")(time.Now())

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Source == "" {
		rec.Source = "api"
	}

	query := `
		INSERT INTO movement_records (
			id, location, item_name, opening_stock, received_qty, issued_qty,
			closing_stock, lead_time_days, record_date, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT movement_records_location_item_record_date DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Location, rec.ItemName, rec.OpeningStock, rec.ReceivedQty,
		rec.IssuedQty, rec.ClosingStock, rec.LeadTimeDays, rec.RecordDate, rec.Source,
	)
	if err != nil {
		return false, mapDBError(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// List returns ledger rows matching the filters, newest day first,
// together with the total match count for pagination.
func (r *MovementRepository) List(ctx context.Context, location, item string, from, to *time.Time, limit, offset int) ([]MovementRecord, int, error) {
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
	if from != nil {
		where += " AND record_date >= $" + itoa(argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		where += " AND record_date <= $" + itoa(argIdx)
		args = append(args, *to)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM movement_records " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, location, item_name, opening_stock, received_qty, issued_qty,
			closing_stock, lead_time_days, record_date, source, created_at
		FROM movement_records ` + where + `
		ORDER BY record_date DESC, location, item_name
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	records := []MovementRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// LatestDate returns the most recent record_date in the ledger, or nil
// when the ledger is empty.
func (r *MovementRepository) LatestDate(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	if err := r.db.GetContext(ctx, &latest, `SELECT MAX(record_date) FROM movement_records`); err != nil {
		return nil, err
	}
	return latest, nil
}

// Count returns the total number of ledger rows.
func (r *MovementRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM movement_records`); err != nil {
		return 0, err
	}
	return count, nil
}

// mapDBError surfaces constraint violations as API errors and passes
// everything else through untouched.
func mapDBError(err error) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}
