package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/metrics"
)

// PurchaseOrder is a draft order produced by joining a reorder
// recommendation with the best-ranked active supplier for the item.
type PurchaseOrder struct {
	ID                   string          `db:"id" json:"id"`
	Location             string          `db:"location" json:"location"`
	ItemName             string          `db:"item_name" json:"item_name"`
	SupplierID           string          `db:"supplier_id" json:"supplier_id"`
	SupplierName         string          `db:"supplier_name" json:"supplier_name"`
	OrderQuantity        float64         `db:"order_quantity" json:"order_quantity"`
	UnitPrice            decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalCost            decimal.Decimal `db:"total_cost" json:"total_cost"`
	LeadTimeDays         int             `db:"lead_time_days" json:"lead_time_days"`
	OrderDate            time.Time       `db:"order_date" json:"order_date"`
	ExpectedDeliveryDate time.Time       `db:"expected_delivery_date" json:"expected_delivery_date"`
	OrderPriority        string          `db:"order_priority" json:"order_priority"`
	StockStatus          string          `db:"stock_status" json:"stock_status"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// PurchaseOrderRepository handles the derived purchase_orders table
type PurchaseOrderRepository struct {
	db *database.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *database.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// ReplaceAll swaps the table contents in a single transaction. Order
// ids are generated here for rows that lack one.
func (r *PurchaseOrderRepository) ReplaceAll(ctx context.Context, orders []PurchaseOrder) error {
	defer metrics.TrackDBOperation("purchase_order_replace")(time.Now())

	query := `
		INSERT INTO purchase_orders (
			id, location, item_name, supplier_id, supplier_name, order_quantity,
			unit_price, total_cost, lead_time_days, order_date,
			expected_delivery_date, order_priority, stock_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_orders`); err != nil {
			return err
		}
		for i := range orders {
			po := &orders[i]
			if po.ID == "" {
				po.ID = uuid.New().String()
			}
			_, err := tx.ExecContext(ctx, query,
				po.ID, po.Location, po.ItemName, po.SupplierID, po.SupplierName,
				po.OrderQuantity, po.UnitPrice, po.TotalCost, po.LeadTimeDays,
				po.OrderDate, po.ExpectedDeliveryDate, po.OrderPriority, po.StockStatus,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns orders matching the filters, most urgent first, with the
// total match count.
func (r *PurchaseOrderRepository) List(ctx context.Context, priority, location, supplierID string, limit, offset int) ([]PurchaseOrder, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if priority != "" {
		where += " AND order_priority = $" + itoa(argIdx)
		args = append(args, priority)
		argIdx++
	}
	if location != "" {
		where += " AND location = $" + itoa(argIdx)
		args = append(args, location)
		argIdx++
	}
	if supplierID != "" {
		where += " AND supplier_id = $" + itoa(argIdx)
		args = append(args, supplierID)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM purchase_orders " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, location, item_name, supplier_id, supplier_name, order_quantity,
			unit_price, total_cost, lead_time_days, order_date,
			expected_delivery_date, order_priority, stock_status, created_at
		FROM purchase_orders ` + where + `
		ORDER BY
			CASE order_priority
				WHEN 'URGENT' THEN 1
				WHEN 'NORMAL' THEN 2
				ELSE 3
			END,
			expected_delivery_date, location, item_name
		LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	orders := []PurchaseOrder{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// All returns every order, most urgent first. Used by the procurement
// export.
func (r *PurchaseOrderRepository) All(ctx context.Context) ([]PurchaseOrder, error) {
	orders := []PurchaseOrder{}
	query := `
		SELECT id, location, item_name, supplier_id, supplier_name, order_quantity,
			unit_price, total_cost, lead_time_days, order_date,
			expected_delivery_date, order_priority, stock_status, created_at
		FROM purchase_orders
		ORDER BY
			CASE order_priority
				WHEN 'URGENT' THEN 1
				WHEN 'NORMAL' THEN 2
				ELSE 3
			END,
			expected_delivery_date, location, item_name
	`
	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, err
	}
	return orders, nil
}

// TotalCost sums total_cost across all orders.
func (r *PurchaseOrderRepository) TotalCost(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(total_cost), 0) FROM purchase_orders`
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
