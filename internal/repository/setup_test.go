package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a disposable Postgres container with the full schema.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, pool.Ping(ctx))

	_, err = pool.Exec(ctx, database.Schema)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return pool
}

// seedProduct inserts a product with the given counters and returns it.
func seedProduct(t *testing.T, pool *pgxpool.Pool, name string, price float64, stock, reserved int) *model.Product {
	t.Helper()

	p := &model.Product{
		ID:        uuid.New(),
		Name:      name,
		Category:  "test",
		Price:     price,
		Stock:     stock,
		Reserved:  reserved,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, description, category, price, stock, reserved, is_active, created_at, updated_at)
		VALUES ($1, $2, '', $3, $4, $5, $6, TRUE, $7, $8)
	`, p.ID, p.Name, p.Category, p.Price, p.Stock, p.Reserved, p.CreatedAt, p.UpdatedAt)
	require.NoError(t, err)

	return p
}

// seedOrder inserts an order with one item and returns both.
func seedOrder(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID, qty int, unitPrice float64, status model.OrderStatus, createdAt time.Time) *model.Order {
	t.Helper()

	o := &model.Order{
		ID:          uuid.New(),
		TotalAmount: float64(qty) * unitPrice,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, session_key, total_amount, status, created_at, updated_at)
		VALUES ($1, NULL, 'seed-session', $2, $3, $4, $5)
	`, o.ID, o.TotalAmount, o.Status, o.CreatedAt, o.UpdatedAt)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), o.ID, productID, qty, unitPrice)
	require.NoError(t, err)

	return o
}
