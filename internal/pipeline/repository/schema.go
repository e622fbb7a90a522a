package repository

// Migrations returns the DDL for all pipeline tables in apply order.
// Every statement is idempotent so the list can run at every service
// start and against fresh test schemas.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS movement_records (
			id UUID PRIMARY KEY,
			location TEXT NOT NULL,
			item_name TEXT NOT NULL,
			opening_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
			received_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
			issued_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
			closing_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
			lead_time_days INTEGER NOT NULL DEFAULT 3,
			record_date DATE NOT NULL,
			source TEXT NOT NULL DEFAULT 'api',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT movement_records_location_item_record_date UNIQUE (location, item_name, record_date),
			CONSTRAINT movement_records_qty_non_negative CHECK (received_qty >= 0 AND issued_qty >= 0),
			CONSTRAINT movement_records_lead_time_positive CHECK (lead_time_days > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movement_records_record_date ON movement_records(record_date)`,
		`CREATE INDEX IF NOT EXISTS idx_movement_records_pair ON movement_records(location, item_name, record_date DESC)`,

		`CREATE TABLE IF NOT EXISTS stats_snapshots (
			location TEXT NOT NULL,
			item_name TEXT NOT NULL,
			current_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
			lead_time_days INTEGER NOT NULL DEFAULT 3,
			avg_daily_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
			min_daily_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_daily_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
			stddev_daily_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
			avg_received DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_received DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_issued DOUBLE PRECISION NOT NULL DEFAULT 0,
			days_tracked INTEGER NOT NULL DEFAULT 0,
			last_movement_date DATE NOT NULL,
			calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (location, item_name)
		)`,

		`CREATE TABLE IF NOT EXISTS health_records (
			location TEXT NOT NULL,
			item_name TEXT NOT NULL,
			current_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
			avg_daily_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
			lead_time_days INTEGER NOT NULL DEFAULT 3,
			safety_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
			days_until_stockout DOUBLE PRECISION,
			stock_status TEXT NOT NULL,
			health_score INTEGER NOT NULL DEFAULT 0,
			calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (location, item_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_health_records_status ON health_records(stock_status)`,

		`CREATE TABLE IF NOT EXISTS reorder_recommendations (
			location TEXT NOT NULL,
			item_name TEXT NOT NULL,
			current_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
			avg_daily_usage DOUBLE PRECISION NOT NULL DEFAULT 0,
			days_until_stockout DOUBLE PRECISION,
			reorder_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
			priority TEXT NOT NULL,
			estimated_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (location, item_name),
			CONSTRAINT reorder_recommendations_qty_non_negative CHECK (reorder_quantity >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reorder_recommendations_priority ON reorder_recommendations(priority)`,

		`CREATE TABLE IF NOT EXISTS suppliers (
			supplier_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			item_name TEXT NOT NULL,
			avg_lead_time_days INTEGER NOT NULL DEFAULT 3,
			reliability_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			unit_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			contact_email TEXT,
			phone TEXT,
			last_delivery_date DATE,
			total_orders INTEGER NOT NULL DEFAULT 0,
			on_time_deliveries INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT suppliers_lead_time_positive CHECK (avg_lead_time_days > 0),
			CONSTRAINT suppliers_reliability_range CHECK (reliability_score >= 0 AND reliability_score <= 100)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suppliers_item ON suppliers(item_name) WHERE is_active`,

		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id UUID PRIMARY KEY,
			location TEXT NOT NULL,
			item_name TEXT NOT NULL,
			supplier_id TEXT NOT NULL,
			supplier_name TEXT NOT NULL,
			order_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
			unit_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			lead_time_days INTEGER NOT NULL DEFAULT 3,
			order_date DATE NOT NULL,
			expected_delivery_date DATE NOT NULL,
			order_priority TEXT NOT NULL,
			stock_status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT purchase_orders_qty_non_negative CHECK (order_quantity >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchase_orders_priority ON purchase_orders(order_priority)`,

		`CREATE TABLE IF NOT EXISTS alert_records (
			id BIGSERIAL PRIMARY KEY,
			location TEXT NOT NULL,
			item_name TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			message TEXT NOT NULL,
			days_left DOUBLE PRECISION,
			recommended_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
			alert_timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
			acknowledged_by TEXT,
			acknowledged_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_records_dedup ON alert_records(location, item_name, alert_type, alert_timestamp) WHERE NOT acknowledged`,
		`CREATE INDEX IF NOT EXISTS idx_alert_records_timestamp ON alert_records(alert_timestamp)`,

		`CREATE TABLE IF NOT EXISTS quality_findings (
			id BIGSERIAL PRIMARY KEY,
			location TEXT NOT NULL,
			item_name TEXT NOT NULL,
			record_date DATE,
			check_name TEXT NOT NULL,
			severity TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quality_findings_detected ON quality_findings(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_quality_findings_check ON quality_findings(check_name, severity)`,

		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id UUID PRIMARY KEY,
			task TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running',
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ,
			rows_written INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_runs_task ON refresh_runs(task, started_at DESC)`,
	}
}
