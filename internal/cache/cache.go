package cache

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// Cache of order status: order_status:{order_id} -> status string
	keyOrderStatus = "order_status:%s"

	// Dedup of processed payment transactions: txn:seen:{transaction_id}
	keyTxnSeen = "txn:seen:%s"

	// Rate limit window counter: ratelimit:order_now:{caller}
	keyOrderNowLimit = "ratelimit:order_now:%s"
)

var (
	ttlStatusCache = 5 * time.Minute
	ttlTxnSeen     = 48 * time.Hour
)

// Cache wraps the redis client with the application's key catalogue. Redis is
// an accelerator only: every answer it gives is re-checkable against Postgres.
type Cache struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// New creates a redis-backed cache.
func New(addr string, logger zerolog.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &Cache{
		rdb:    rdb,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Close releases the underlying redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Ping verifies connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetOrderStatus caches an order's status. Failures are logged, never returned;
// the database remains the source of truth.
func (c *Cache) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) {
	key := fmt.Sprintf(keyOrderStatus, orderID)
	if err := c.rdb.Set(ctx, key, string(status), ttlStatusCache).Err(); err != nil {
		c.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to cache order status")
	}
}

// GetOrderStatus returns the cached status, or "" on miss.
func (c *Cache) GetOrderStatus(ctx context.Context, orderID uuid.UUID) model.OrderStatus {
	key := fmt.Sprintf(keyOrderStatus, orderID)
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to read order status cache")
		}
		return ""
	}
	return model.OrderStatus(val)
}

// MarkTransactionSeen records a processed gateway transaction. Called after the
// confirming transaction commits; the unique DB constraint is the backstop.
func (c *Cache) MarkTransactionSeen(ctx context.Context, transactionID string) {
	key := fmt.Sprintf(keyTxnSeen, transactionID)
	if err := c.rdb.Set(ctx, key, "1", ttlTxnSeen).Err(); err != nil {
		c.logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("failed to mark transaction seen")
	}
}

// TransactionSeen reports whether a transaction was already processed. A redis
// failure reads as "unseen" so the request falls through to the database check.
func (c *Cache) TransactionSeen(ctx context.Context, transactionID string) bool {
	key := fmt.Sprintf(keyTxnSeen, transactionID)
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("failed to check transaction dedup")
		return false
	}
	return n > 0
}

// AllowOrderNow implements a fixed-window rate limit for the direct-buy route.
// Returns true when the caller is within budget. Redis failures fail open.
func (c *Cache) AllowOrderNow(ctx context.Context, caller string, limit int, window time.Duration) bool {
	key := fmt.Sprintf(keyOrderNowLimit, caller)

	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("caller", caller).Msg("rate limit check failed, allowing request")
		return true
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			c.logger.Warn().Err(err).Str("caller", caller).Msg("failed to set rate limit window")
		}
	}

	return count <= int64(limit)
}
