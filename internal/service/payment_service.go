package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// paymentService implements the PaymentService interface. Confirmation is
// idempotent: a repeated transaction ID is rejected by the redis dedup fast
// path, then by the existence check, and finally by the unique constraint on
// payments.transaction_id inside the transaction.
type paymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cache       *cache.Cache
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	c *cache.Cache,
	publisher events.Publisher,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cache:       c,
		publisher:   publisher,
		logger:      logger.With().Str("service", "payment").Logger(),
	}
}

// Confirm finalises an order after the gateway reports payment. Within one
// transaction it records the payment, completes the order and converts each
// line's reservation into a physical stock decrement with an OUT movement.
func (s *paymentService) Confirm(ctx context.Context, req *model.ConfirmPaymentRequest) (*model.ConfirmPaymentResponse, error) {
	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "transaction_id is required")
	}
	if req.OrderID == uuid.Nil {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "order_id is required")
	}
	if !req.PaymentMethod.Valid() {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "payment_method must be one of card, mpesa, paypal")
	}

	if s.cache != nil && s.cache.TransactionSeen(ctx, req.TransactionID) {
		return nil, model.ErrDuplicateTransaction
	}
	seen, err := s.paymentRepo.ExistsByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, model.ErrDuplicateTransaction
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}
	if order.Status != model.OrderPending {
		err = model.ErrOrderNotPending
		return nil, err
	}

	payment := &model.Payment{
		ID:            uuid.New(),
		TransactionID: req.TransactionID,
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Method:        req.PaymentMethod,
		Status:        model.PaymentConfirmed,
		CreatedAt:     time.Now(),
	}
	if err = s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, err
	}

	ok, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderPending, model.OrderCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = model.ErrOrderNotPending
		return nil, err
	}

	items, err := s.orderRepo.GetItems(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if _, err = s.productRepo.LockForUpdate(ctx, tx, item.ProductID); err != nil {
			return nil, err
		}
		if err = s.productRepo.ReleaseReserved(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
		if err = s.productRepo.AdjustStock(ctx, tx, item.ProductID, -item.Quantity); err != nil {
			return nil, err
		}
		mvt := &model.InventoryMovement{
			ID:        uuid.New(),
			ProductID: item.ProductID,
			MvtType:   model.MovementOut,
			Quantity:  item.Quantity,
			Note:      fmt.Sprintf("order %s", order.ID),
			CreatedAt: time.Now(),
		}
		if err = s.productRepo.InsertMovement(ctx, tx, mvt); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment confirmation: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("transaction_id", req.TransactionID).
		Float64("amount", payment.Amount).
		Msg("payment confirmed")

	if s.cache != nil {
		s.cache.MarkTransactionSeen(ctx, req.TransactionID)
		s.cache.SetOrderStatus(ctx, order.ID, model.OrderCompleted)
	}
	if s.publisher != nil {
		s.publisher.Publish(events.TopicPaymentConfirmation, order.ID.String(), events.PaymentConfirmation{
			PaymentID:     payment.ID,
			OrderID:       order.ID,
			TransactionID: payment.TransactionID,
			Amount:        payment.Amount,
			Method:        string(payment.Method),
		})
	}

	return &model.ConfirmPaymentResponse{
		Message:   "Payment confirmed",
		PaymentID: payment.ID,
		OrderID:   order.ID,
	}, nil
}
