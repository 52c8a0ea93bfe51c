package repository

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `id, name, description, category, price, stock, reserved, image_key, is_active, created_at, updated_at`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *productRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Price,
		&p.Stock,
		&p.Reserved,
		&p.ImageKey,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// GetAll retrieves products matching the filter, with pagination.
func (r *productRepository) GetAll(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		  AND ($3 OR is_active)
		ORDER BY name
		LIMIT $4 OFFSET $5
	`

	rows, err := r.pool.Query(ctx, query,
		filter.Category, filter.Query, filter.IncludeInactive, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Str("category", filter.Category).
			Int("limit", filter.Limit).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, query, id), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY name`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Create inserts a new product.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, name, description, category, price, stock, reserved, image_key, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Category, p.Price,
		p.Stock, p.Reserved, p.ImageKey, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug().Str("product_id", p.ID.String()).Msg("product created")
	return nil
}

// Update rewrites the mutable catalogue fields of a product.
func (r *productRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, category = $4, price = $5, updated_at = $6
		WHERE id = $1
	`

	ct, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Description, p.Category, p.Price, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to update product")
		return fmt.Errorf("failed to update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}

	return nil
}

// Deactivate soft-deletes a product.
func (r *productRepository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to deactivate product")
		return false, fmt.Errorf("failed to deactivate product: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// SetImageKey records the stored image key for a product.
func (r *productRepository) SetImageKey(ctx context.Context, id uuid.UUID, key string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE products SET image_key = $2, updated_at = NOW() WHERE id = $1`, id, key)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to set image key")
		return fmt.Errorf("failed to set image key: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

// LockForUpdate loads a product row under FOR UPDATE within tx.
func (r *productRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	var p model.Product
	err := scanProduct(tx.QueryRow(ctx, query, id), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to lock product row")
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	return &p, nil
}

// AdjustReserved adds delta to the reserved counter within tx.
func (r *productRepository) AdjustReserved(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET reserved = reserved + $2, updated_at = NOW() WHERE id = $1`, id, delta)
	if err != nil {
		r.logger.Error().Err(err).
			Str("product_id", id.String()).
			Int("delta", delta).
			Msg("failed to adjust reserved")
		return fmt.Errorf("failed to adjust reserved: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return model.ErrProductNotFound
	}
	return nil
}

// ReleaseReserved subtracts quantity from the reserved counter, flooring at zero.
func (r *productRepository) ReleaseReserved(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET reserved = GREATEST(reserved - $2, 0), updated_at = NOW() WHERE id = $1`,
		id, quantity)
	if err != nil {
		r.logger.Error().Err(err).
			Str("product_id", id.String()).
			Int("quantity", quantity).
			Msg("failed to release reserved")
		return fmt.Errorf("failed to release reserved: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return model.ErrProductNotFound
	}
	return nil
}

// AdjustStock adds delta to the stock counter within tx.
func (r *productRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, delta)
	if err != nil {
		r.logger.Error().Err(err).
			Str("product_id", id.String()).
			Int("delta", delta).
			Msg("failed to adjust stock")
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return model.ErrProductNotFound
	}
	return nil
}

// InsertMovement records an inventory movement within tx.
func (r *productRepository) InsertMovement(ctx context.Context, tx pgx.Tx, m *model.InventoryMovement) error {
	query := `
		INSERT INTO inventory_movements (id, product_id, mvt_type, quantity, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query, m.ID, m.ProductID, m.MvtType, m.Quantity, m.Note, m.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("product_id", m.ProductID.String()).
			Str("mvt_type", string(m.MvtType)).
			Msg("failed to insert inventory movement")
		return fmt.Errorf("failed to insert inventory movement: %w", err)
	}

	return nil
}

// ListMovements retrieves the movement ledger for a product, newest first.
func (r *productRepository) ListMovements(ctx context.Context, productID uuid.UUID) ([]model.InventoryMovement, error) {
	query := `
		SELECT id, product_id, mvt_type, quantity, note, created_at
		FROM inventory_movements
		WHERE product_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID.String()).Msg("failed to query movements")
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []model.InventoryMovement
	for rows.Next() {
		var m model.InventoryMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.MvtType, &m.Quantity, &m.Note, &m.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan movement row")
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating movement rows")
		return nil, fmt.Errorf("error iterating movements: %w", err)
	}

	return movements, nil
}
