package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

// Create inserts a payment within tx. The unique index on transaction_id is
// the idempotency backstop: a duplicate yields model.ErrDuplicateTransaction.
func (r *paymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (id, transaction_id, order_id, amount, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query,
		p.ID, p.TransactionID, p.OrderID, p.Amount, p.Method, p.Status, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Warn().
				Str("transaction_id", p.TransactionID).
				Str("order_id", p.OrderID.String()).
				Msg("duplicate payment rejected")
			return model.ErrDuplicateTransaction
		}
		r.logger.Error().Err(err).
			Str("transaction_id", p.TransactionID).
			Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}

	r.logger.Debug().
		Str("payment_id", p.ID.String()).
		Str("order_id", p.OrderID.String()).
		Msg("payment created")

	return nil
}

// ExistsByTransactionID reports whether a transaction has been recorded.
func (r *paymentRepository) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE transaction_id = $1)`, transactionID).
		Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to check transaction")
		return false, fmt.Errorf("failed to check transaction: %w", err)
	}
	return exists, nil
}

// GetByOrderID retrieves the payment for an order, or nil if none exists.
func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	query := `
		SELECT id, transaction_id, order_id, amount, payment_method, status, created_at
		FROM payments
		WHERE order_id = $1
	`

	var p model.Payment
	err := r.pool.QueryRow(ctx, query, orderID).
		Scan(&p.ID, &p.TransactionID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query payment")
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}

	return &p, nil
}

// UpdateStatusByOrder sets the payment status for an order within tx.
func (r *paymentRepository) UpdateStatusByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.PaymentStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE payments SET status = $2 WHERE order_id = $1`, orderID, status)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Str("status", string(status)).
			Msg("failed to update payment status")
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}
