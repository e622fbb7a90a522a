package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
)

// AlertRecord is one dispatched stock alert. Rows are append-only;
// acknowledgement is the only mutation and the retention sweep the only
// deletion.
type AlertRecord struct {
	ID             int64      `db:"id" json:"id"`
	Location       string     `db:"location" json:"location"`
	ItemName       string     `db:"item_name" json:"item_name"`
	AlertType      string     `db:"alert_type" json:"alert_type"`
	Message        string     `db:"message" json:"message"`
	DaysLeft       *float64   `db:"days_left" json:"days_left"`
	RecommendedQty float64    `db:"recommended_qty" json:"recommended_qty"`
	AlertTimestamp time.Time  `db:"alert_timestamp" json:"alert_timestamp"`
	Acknowledged   bool       `db:"acknowledged" json:"acknowledged"`
	AcknowledgedBy *string    `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
}

// AlertSummaryRow aggregates alerts of one type over a reporting window.
type AlertSummaryRow struct {
	AlertType    string `db:"alert_type" json:"alert_type"`
	Total        int    `db:"total" json:"total"`
	Acknowledged int    `db:"acknowledged" json:"acknowledged"`
	Pending      int    `db:"pending" json:"pending"`
}

// AlertRepository handles the append-only alert log
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateIfAbsent inserts the alert unless an unacknowledged alert for
// the same (location, item, alert_type) exists after dedupCutoff. Check
// and insert are one statement, so overlapping dispatchers cannot both
// pass the window check against the same committed state. Returns false
// when the alert was suppressed.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, rec *AlertRecord, dedupCutoff time.Time) (bool, error) {
	query := `
		INSERT INTO alert_records (location, item_name, alert_type, message, days_left, recommended_qty)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM alert_records
			WHERE location = $1 AND item_name = $2 AND alert_type = $3
				AND NOT acknowledged
				AND alert_timestamp > $7
		)
		RETURNING id, alert_timestamp
	`

	err := r.db.QueryRowxContext(ctx, query,
		rec.Location, rec.ItemName, rec.AlertType, rec.Message,
		rec.DaysLeft, rec.RecommendedQty, dedupCutoff,
	).Scan(&rec.ID, &rec.AlertTimestamp)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapDBError(err)
	}
	return true, nil
}

// List returns alerts matching the filters, most severe type first and
// newest within a type, with the total match count.
func (r *AlertRepository) List(ctx context.Context, alertType, location string, acknowledged *bool, limit, offset int) ([]AlertRecord, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if alertType != "" {
		where += " AND alert_type = $" + itoa(argIdx)
		args = append(args, alertType)
		argIdx++
	}
	if location != "" {
		where += " AND location = $" + itoa(argIdx)
		args = append(args, location)
		argIdx++
	}
	if acknowledged != nil {
		where += " AND acknowledged = $" + itoa(argIdx)
		args = append(args, *acknowledged)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM alert_records " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, location, item_name, alert_type, message, days_left,
			recommended_qty, alert_timestamp, acknowledged, acknowledged_by, acknowledged_at
		FROM alert_records ` + where + `
		ORDER BY
			CASE alert_type
				WHEN 'OUT_OF_STOCK' THEN 1
				WHEN 'CRITICAL' THEN 2
				WHEN 'WARNING' THEN 3
				ELSE 4
			END,
			alert_timestamp DESC
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	alerts := []AlertRecord{}
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// Get returns one alert by id.
func (r *AlertRepository) Get(ctx context.Context, id int64) (*AlertRecord, error) {
	var rec AlertRecord
	query := `
		SELECT id, location, item_name, alert_type, message, days_left,
			recommended_qty, alert_timestamp, acknowledged, acknowledged_by, acknowledged_at
		FROM alert_records
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("alert")
		}
		return nil, err
	}
	return &rec, nil
}

// Acknowledge marks a pending alert as acknowledged. Acknowledging an
// alert twice is a conflict; the first acknowledgement stands.
func (r *AlertRepository) Acknowledge(ctx context.Context, id int64, by string) (*AlertRecord, error) {
	var rec AlertRecord
	query := `
		UPDATE alert_records
		SET acknowledged = TRUE, acknowledged_by = $2, acknowledged_at = NOW()
		WHERE id = $1 AND NOT acknowledged
		RETURNING id, location, item_name, alert_type, message, days_left,
			recommended_qty, alert_timestamp, acknowledged, acknowledged_by, acknowledged_at
	`
	err := r.db.QueryRowxContext(ctx, query, id, by).StructScan(&rec)
	if err == sql.ErrNoRows {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errors.Conflict("alert already acknowledged")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteOldAcknowledged removes acknowledged alerts with a timestamp
// before cutoff and returns the number deleted. Pending alerts are
// never touched.
func (r *AlertRepository) DeleteOldAcknowledged(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM alert_records WHERE acknowledged AND alert_timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Summary returns per-type alert counts since the given time, most
// severe type first.
func (r *AlertRepository) Summary(ctx context.Context, since time.Time) ([]AlertSummaryRow, error) {
	rows := []AlertSummaryRow{}
	query := `
		SELECT
			alert_type,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE acknowledged) AS acknowledged,
			COUNT(*) FILTER (WHERE NOT acknowledged) AS pending
		FROM alert_records
		WHERE alert_timestamp >= $1
		GROUP BY alert_type
		ORDER BY
			CASE alert_type
				WHEN 'OUT_OF_STOCK' THEN 1
				WHEN 'CRITICAL' THEN 2
				WHEN 'WARNING' THEN 3
				ELSE 4
			END
	`
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, err
	}
	return rows, nil
}
