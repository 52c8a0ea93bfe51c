package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Schema is the canonical database schema. Every statement is idempotent so
// Migrate can run on each startup.
const Schema = `
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		price DECIMAL(10,2) NOT NULL CHECK (price > 0),
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		reserved INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
		image_key TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (reserved <= stock)
	);

	CREATE TABLE IF NOT EXISTS inventory_movements (
		id UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		mvt_type TEXT NOT NULL CHECK (mvt_type IN ('IN', 'OUT')),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS carts (
		id UUID PRIMARY KEY,
		user_id UUID,
		session_key TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK ((user_id IS NOT NULL AND session_key IS NULL) OR (user_id IS NULL AND session_key IS NOT NULL))
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user ON carts(user_id) WHERE user_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_session ON carts(session_key) WHERE session_key IS NOT NULL;

	CREATE TABLE IF NOT EXISTS cart_items (
		id UUID PRIMARY KEY,
		cart_id UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (cart_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_id UUID,
		session_key TEXT,
		total_amount DECIMAL(50,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at);

	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price DECIMAL(10,2) NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		transaction_id TEXT NOT NULL UNIQUE,
		order_id UUID NOT NULL UNIQUE REFERENCES orders(id),
		amount DECIMAL(10,2) NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// Migrate applies the schema to the connected database.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info().Msg("database schema applied")
	return nil
}
