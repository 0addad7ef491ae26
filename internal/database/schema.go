package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the pharmacy catalog and order tables. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS pharmacies (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
	distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating      DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
	hours       TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS medicine_offers (
	pharmacy_id  TEXT NOT NULL REFERENCES pharmacies(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	name         TEXT NOT NULL,
	price        DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	status       TEXT NOT NULL CHECK (status IN ('In Stock', 'Low Stock', 'Out of Stock')),
	quantity     INTEGER NOT NULL DEFAULT 0,
	category     TEXT NOT NULL DEFAULT '',
	generic_name TEXT NOT NULL DEFAULT '',
	manufacturer TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (pharmacy_id, position)
);

CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	group_id         TEXT NOT NULL,
	group_position   INTEGER NOT NULL DEFAULT 0,
	pharmacy_id      TEXT NOT NULL,
	pharmacy_name    TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	subtotal         DOUBLE PRECISION NOT NULL,
	payment_method   TEXT NOT NULL,
	customer_name    TEXT NOT NULL,
	customer_phone   TEXT NOT NULL,
	customer_address TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	cancelled_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_orders_group_id ON orders(group_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_lines (
	order_id      TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position      INTEGER NOT NULL,
	requested     TEXT NOT NULL,
	medicine_name TEXT NOT NULL,
	price         DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (order_id, position)
);
`

// Migrate applies Schema to the given pool.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
