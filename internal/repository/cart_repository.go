package repository

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// GetOrCreateByUser returns the user's cart, creating it on first access.
// The insert races are absorbed by the unique index on user_id.
func (r *cartRepository) GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	query := `
		INSERT INTO carts (id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) WHERE user_id IS NOT NULL DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, session_key, created_at
	`

	var c model.Cart
	err := r.pool.QueryRow(ctx, query, uuid.New(), userID).
		Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get or create user cart")
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	return &c, nil
}

// GetOrCreateBySession returns the session cart, creating it on first access.
func (r *cartRepository) GetOrCreateBySession(ctx context.Context, sessionKey string) (*model.Cart, error) {
	query := `
		INSERT INTO carts (id, session_key, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_key) WHERE session_key IS NOT NULL DO UPDATE SET session_key = EXCLUDED.session_key
		RETURNING id, user_id, session_key, created_at
	`

	var c model.Cart
	err := r.pool.QueryRow(ctx, query, uuid.New(), sessionKey).
		Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("session_key", sessionKey).Msg("failed to get or create session cart")
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	return &c, nil
}

// GetByUser returns the user's cart, or nil if it does not exist.
func (r *cartRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	query := `SELECT id, user_id, session_key, created_at FROM carts WHERE user_id = $1`

	var c model.Cart
	err := r.pool.QueryRow(ctx, query, userID).
		Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query user cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	return &c, nil
}

// GetBySession returns the session cart, or nil if it does not exist.
func (r *cartRepository) GetBySession(ctx context.Context, sessionKey string) (*model.Cart, error) {
	query := `SELECT id, user_id, session_key, created_at FROM carts WHERE session_key = $1`

	var c model.Cart
	err := r.pool.QueryRow(ctx, query, sessionKey).
		Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("session_key", sessionKey).Msg("failed to query session cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	return &c, nil
}

// GetItems retrieves all items in a cart.
func (r *cartRepository) GetItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// GetItem retrieves a single cart item, or nil if it does not exist.
func (r *cartRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	query := `SELECT id, cart_id, product_id, quantity, created_at FROM cart_items WHERE id = $1`

	var item model.CartItem
	err := r.pool.QueryRow(ctx, query, itemID).
		Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to query cart item")
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}

	return &item, nil
}

// UpsertItem adds quantity to the (cart, product) line, creating it if absent.
func (r *cartRepository) UpsertItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID, quantity int) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	_, err := tx.Exec(ctx, query, uuid.New(), cartID, productID, quantity)
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", cartID.String()).
			Str("product_id", productID.String()).
			Msg("failed to upsert cart item")
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return nil
}

// UpdateItemQuantity sets the quantity of an item.
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to update cart item")
		return false, fmt.Errorf("failed to update cart item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// DeleteItem removes an item.
func (r *cartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to delete cart item")
		return false, fmt.Errorf("failed to delete cart item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// DeleteItems removes every item from a cart within tx.
func (r *cartRepository) DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart items")
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	return nil
}

// DeleteCart removes a cart and its items within tx.
func (r *cartRepository) DeleteCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart items")
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to delete cart")
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
