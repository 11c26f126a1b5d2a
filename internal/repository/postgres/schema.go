package postgres

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sales_history (
	product_id           TEXT NOT NULL,
	date                 DATE NOT NULL,
	sales_quantity       DOUBLE PRECISION NOT NULL,
	stock_level          DOUBLE PRECISION NOT NULL,
	day_of_week          INTEGER NOT NULL,
	month                INTEGER NOT NULL,
	year                 INTEGER NOT NULL,
	is_weekend           INTEGER NOT NULL,
	sales_7d_avg         DOUBLE PRECISION NOT NULL,
	stock_to_sales_ratio DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (product_id, date)
);

CREATE TABLE IF NOT EXISTS current_stock (
	product_id    TEXT PRIMARY KEY,
	current_stock DOUBLE PRECISION NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS advisory_runs (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT NOT NULL,
	status            TEXT NOT NULL,
	horizon           INTEGER NOT NULL,
	lead_time_days    INTEGER NOT NULL,
	safety_stock_days INTEGER NOT NULL,
	min_order_qty     INTEGER NOT NULL,
	max_order_qty     INTEGER NOT NULL,
	total_products    INTEGER NOT NULL DEFAULT 0,
	advised_products  INTEGER NOT NULL DEFAULT 0,
	skipped_products  INTEGER NOT NULL DEFAULT 0,
	order_products    INTEGER NOT NULL DEFAULT 0,
	started_at        TIMESTAMPTZ NOT NULL,
	completed_at      TIMESTAMPTZ,
	error_message     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS advisory_skips (
	run_id     BIGINT NOT NULL REFERENCES advisory_runs(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	error_kind TEXT NOT NULL,
	message    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS forecast_points (
	run_id              BIGINT NOT NULL,
	product_id          TEXT NOT NULL,
	date                DATE NOT NULL,
	seasonal_prediction DOUBLE PRECISION NOT NULL,
	feature_prediction  DOUBLE PRECISION NOT NULL,
	combined_prediction DOUBLE PRECISION NOT NULL,
	lower_bound         DOUBLE PRECISION NOT NULL,
	upper_bound         DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, product_id, date)
);

CREATE TABLE IF NOT EXISTS inventory_advice (
	run_id           BIGINT NOT NULL,
	product_id       TEXT NOT NULL,
	current_stock    DOUBLE PRECISION NOT NULL,
	reorder_point    DOUBLE PRECISION NOT NULL,
	order_quantity   INTEGER NOT NULL,
	avg_daily_demand DOUBLE PRECISION NOT NULL,
	days_of_stock    DOUBLE PRECISION,
	urgency          TEXT NOT NULL,
	confidence_width DOUBLE PRECISION NOT NULL,
	needs_order      BOOLEAN NOT NULL,
	advice           TEXT NOT NULL,
	reason           TEXT NOT NULL,
	PRIMARY KEY (run_id, product_id)
);

CREATE TABLE IF NOT EXISTS inventory_advice_summary (
	run_id                 BIGINT PRIMARY KEY,
	total_products         INTEGER NOT NULL,
	products_to_order      INTEGER NOT NULL,
	high_urgency           INTEGER NOT NULL,
	medium_urgency         INTEGER NOT NULL,
	low_urgency            INTEGER NOT NULL,
	total_order_quantity   INTEGER NOT NULL,
	avg_days_of_stock      DOUBLE PRECISION NOT NULL,
	infinite_days_of_stock INTEGER NOT NULL,
	skipped_products       INTEGER NOT NULL
);
`
