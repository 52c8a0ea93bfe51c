package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/images"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSecret = "integration-test-secret"

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the full schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
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

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, pool.Ping(ctx))

	_, err = pool.Exec(ctx, database.Schema)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// App bundles the wired services so workflow tests can drive them directly
// alongside the HTTP handler.
type App struct {
	Handler  http.Handler
	Products service.ProductService
	Carts    service.CartService
	Orders   service.OrderService
	Payments service.PaymentService

	OrderRepo   repository.OrderRepository
	ProductRepo repository.ProductRepository
	Cache       *cache.Cache
}

// SetupApp wires real repositories and services against the test database.
// Redis points at an unreachable address; every cache path fails open.
func SetupApp(t *testing.T, testDB *TestDB) *App {
	t.Helper()

	logger := zerolog.Nop()

	// Nothing listens here. The cache degrades gracefully, which is exactly
	// the behaviour these tests should run under.
	redisCache := cache.New("127.0.0.1:1", logger)
	t.Cleanup(func() { _ = redisCache.Close() })

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	paymentRepo := repository.NewPaymentRepository(testDB.Pool, logger)

	imageStore := images.NewFileStore(t.TempDir(), logger)

	productService := service.NewProductService(productRepo, imageStore, nil, logger)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, cartRepo, paymentRepo, redisCache, nil, logger)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, productRepo, redisCache, nil, logger)

	mux := router.New(router.Deps{
		Products: handler.NewProductHandler(productService, logger),
		Carts:    handler.NewCartHandler(cartService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Payments: handler.NewPaymentHandler(paymentService, logger),
		Verifier: auth.NewVerifier(testSecret),
		Cache:    redisCache,
		Logger:   logger,
	})

	return &App{
		Handler:     mux,
		Products:    productService,
		Carts:       cartService,
		Orders:      orderService,
		Payments:    paymentService,
		OrderRepo:   orderRepo,
		ProductRepo: productRepo,
		Cache:       redisCache,
	}
}

// signToken issues a bearer token the way the external identity provider would.
func signToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// SeedProduct inserts an active product and returns its ID.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name string, price float64, stock int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, description, category, price, stock, reserved, is_active)
		VALUES ($1, $2, '', 'test', $3, $4, 0, TRUE)
	`, id, name, price, stock)
	require.NoError(t, err)

	return id
}

// ProductCounters reads the stock and reserved counters for a product.
func ProductCounters(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) (stock, reserved int) {
	t.Helper()

	err := pool.QueryRow(context.Background(),
		"SELECT stock, reserved FROM products WHERE id = $1", id).Scan(&stock, &reserved)
	require.NoError(t, err)
	return stock, reserved
}

// OrderStatus reads the current status of an order.
func OrderStatus(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) string {
	t.Helper()

	var status string
	err := pool.QueryRow(context.Background(),
		"SELECT status FROM orders WHERE id = $1", id).Scan(&status)
	require.NoError(t, err)
	return status
}

// CleanupDB removes all rows between subtests.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"payments", "order_items", "orders", "cart_items", "carts", "inventory_movements", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
