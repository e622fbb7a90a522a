package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
)

// Supplier is a registry entry for one vendor of one item. The pipeline
// only reads it; maintenance happens through the upsert endpoint.
type Supplier struct {
	SupplierID       string          `db:"supplier_id" json:"supplier_id"`
	Name             string          `db:"name" json:"name"`
	ItemName         string          `db:"item_name" json:"item_name"`
	AvgLeadTimeDays  int             `db:"avg_lead_time_days" json:"avg_lead_time_days"`
	ReliabilityScore float64         `db:"reliability_score" json:"reliability_score"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	ContactEmail     *string         `db:"contact_email" json:"contact_email,omitempty"`
	Phone            *string         `db:"phone" json:"phone,omitempty"`
	LastDeliveryDate *time.Time      `db:"last_delivery_date" json:"last_delivery_date,omitempty"`
	TotalOrders      int             `db:"total_orders" json:"total_orders"`
	OnTimeDeliveries int             `db:"on_time_deliveries" json:"on_time_deliveries"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// SupplierRepository handles the supplier registry
type SupplierRepository struct {
	db *database.DB
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *database.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Upsert inserts or fully replaces the registry entry for s.SupplierID.
func (r *SupplierRepository) Upsert(ctx context.Context, s *Supplier) error {
	query := `
		INSERT INTO suppliers (
			supplier_id, name, item_name, avg_lead_time_days, reliability_score,
			unit_price, contact_email, phone, last_delivery_date, total_orders,
			on_time_deliveries, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (supplier_id) DO UPDATE SET
			name = EXCLUDED.name,
			item_name = EXCLUDED.item_name,
			avg_lead_time_days = EXCLUDED.avg_lead_time_days,
			reliability_score = EXCLUDED.reliability_score,
			unit_price = EXCLUDED.unit_price,
			contact_email = EXCLUDED.contact_email,
			phone = EXCLUDED.phone,
			last_delivery_date = EXCLUDED.last_delivery_date,
			total_orders = EXCLUDED.total_orders,
			on_time_deliveries = EXCLUDED.on_time_deliveries,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.SupplierID, s.Name, s.ItemName, s.AvgLeadTimeDays, s.ReliabilityScore,
		s.UnitPrice, s.ContactEmail, s.Phone, s.LastDeliveryDate, s.TotalOrders,
		s.OnTimeDeliveries, s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

// List returns registry entries matching the filters with the total
// match count.
func (r *SupplierRepository) List(ctx context.Context, item string, activeOnly bool, limit, offset int) ([]Supplier, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if item != "" {
		where += " AND item_name = $" + itoa(argIdx)
		args = append(args, item)
		argIdx++
	}
	if activeOnly {
		where += " AND is_active"
	}

	countQuery := "SELECT COUNT(*) FROM suppliers " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT supplier_id, name, item_name, avg_lead_time_days, reliability_score,
			unit_price, contact_email, phone, last_delivery_date, total_orders,
			on_time_deliveries, is_active, created_at, updated_at
		FROM suppliers ` + where + `
		ORDER BY item_name, supplier_id
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	suppliers := []Supplier{}
	if err := r.db.SelectContext(ctx, &suppliers, query, args...); err != nil {
		return nil, 0, err
	}
	return suppliers, total, nil
}

// Get returns one registry entry by id.
func (r *SupplierRepository) Get(ctx context.Context, supplierID string) (*Supplier, error) {
	var s Supplier
	query := `
		SELECT supplier_id, name, item_name, avg_lead_time_days, reliability_score,
			unit_price, contact_email, phone, last_delivery_date, total_orders,
			on_time_deliveries, is_active, created_at, updated_at
		FROM suppliers
		WHERE supplier_id = $1
	`
	if err := r.db.GetContext(ctx, &s, query, supplierID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("supplier")
		}
		return nil, err
	}
	return &s, nil
}

// ActiveByItems returns all active suppliers for the given items,
// ordered by item then id. Input to the supplier matcher.
func (r *SupplierRepository) ActiveByItems(ctx context.Context, items []string) ([]Supplier, error) {
	suppliers := []Supplier{}
	query := `
		SELECT supplier_id, name, item_name, avg_lead_time_days, reliability_score,
			unit_price, contact_email, phone, last_delivery_date, total_orders,
			on_time_deliveries, is_active, created_at, updated_at
		FROM suppliers
		WHERE is_active AND item_name = ANY($1)
		ORDER BY item_name, supplier_id
	`
	if err := r.db.SelectContext(ctx, &suppliers, query, pq.Array(items)); err != nil {
		return nil, err
	}
	return suppliers, nil
}
