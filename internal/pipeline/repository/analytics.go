package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
)

// LocationSummary rolls up health and pending reorder spend for one
// location.
type LocationSummary struct {
	Location           string          `db:"location" json:"location"`
	ItemsTracked       int             `db:"items_tracked" json:"items_tracked"`
	OutOfStock         int             `db:"out_of_stock" json:"out_of_stock"`
	Critical           int             `db:"critical" json:"critical"`
	Warning            int             `db:"warning" json:"warning"`
	Low                int             `db:"low" json:"low"`
	Healthy            int             `db:"healthy" json:"healthy"`
	AvgHealthScore     float64         `db:"avg_health_score" json:"avg_health_score"`
	PendingReorderCost decimal.Decimal `db:"pending_reorder_cost" json:"pending_reorder_cost"`
}

// ItemPerformance rolls up one item across every location tracking it.
type ItemPerformance struct {
	ItemName          string  `db:"item_name" json:"item_name"`
	LocationsTracked  int     `db:"locations_tracked" json:"locations_tracked"`
	TotalUsage        float64 `db:"total_usage" json:"total_usage"`
	AvgDailyUsage     float64 `db:"avg_daily_usage" json:"avg_daily_usage"`
	StockoutLocations int     `db:"stockout_locations" json:"stockout_locations"`
	WorstRank         int     `db:"worst_rank" json:"-"`
	WorstStatus       string  `db:"-" json:"worst_status"`
}

// AnalyticsRepository serves read-only rollups over the derived tables
type AnalyticsRepository struct {
	db *database.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *database.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// LocationSummaries returns one rollup per location, worst average
// health first.
func (r *AnalyticsRepository) LocationSummaries(ctx context.Context) ([]LocationSummary, error) {
	summaries := []LocationSummary{}
	query := `
		SELECT
			h.location,
			COUNT(*) AS items_tracked,
			COUNT(*) FILTER (WHERE h.stock_status = 'OUT_OF_STOCK') AS out_of_stock,
			COUNT(*) FILTER (WHERE h.stock_status = 'CRITICAL') AS critical,
			COUNT(*) FILTER (WHERE h.stock_status = 'WARNING') AS warning,
			COUNT(*) FILTER (WHERE h.stock_status = 'LOW') AS low,
			COUNT(*) FILTER (WHERE h.stock_status = 'HEALTHY') AS healthy,
			ROUND(AVG(h.health_score)::numeric, 1) AS avg_health_score,
			COALESCE(rc.pending_reorder_cost, 0) AS pending_reorder_cost
		FROM health_records h
		LEFT JOIN (
			SELECT location, SUM(estimated_cost) AS pending_reorder_cost
			FROM reorder_recommendations
			GROUP BY location
		) rc ON rc.location = h.location
		GROUP BY h.location, rc.pending_reorder_cost
		ORDER BY avg_health_score ASC, h.location
	`
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, err
	}
	return summaries, nil
}

// ItemPerformances returns one rollup per item, worst status first.
func (r *AnalyticsRepository) ItemPerformances(ctx context.Context) ([]ItemPerformance, error) {
	items := []ItemPerformance{}
	query := `
		SELECT
			h.item_name,
			COUNT(*) AS locations_tracked,
			COALESCE(SUM(s.total_issued), 0) AS total_usage,
			ROUND(COALESCE(AVG(s.avg_daily_usage), 0)::numeric, 2) AS avg_daily_usage,
			COUNT(*) FILTER (WHERE h.stock_status = 'OUT_OF_STOCK') AS stockout_locations,
			MIN(CASE h.stock_status
				WHEN 'OUT_OF_STOCK' THEN 1
				WHEN 'CRITICAL' THEN 2
				WHEN 'WARNING' THEN 3
				WHEN 'LOW' THEN 4
				ELSE 5
			END) AS worst_rank
		FROM health_records h
		JOIN stats_snapshots s ON s.location = h.location AND s.item_name = h.item_name
		GROUP BY h.item_name
		ORDER BY worst_rank, h.item_name
	`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].WorstStatus = statusFromRank(items[i].WorstRank)
	}
	return items, nil
}

func statusFromRank(rank int) string {
	switch rank {
	case 1:
		return "OUT_OF_STOCK"
	case 2:
		return "CRITICAL"
	case 3:
		return "WARNING"
	case 4:
		return "LOW"
	default:
		return "HEALTHY"
	}
}
