package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements the OrderService interface. Order creation reserves
// stock all-or-nothing inside a single transaction: every product row is
// locked FOR UPDATE in ascending ID order so concurrent orders for the same
// products cannot deadlock, and a single failed availability check rolls the
// whole order back.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	paymentRepo repository.PaymentRepository
	cache       *cache.Cache
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	paymentRepo repository.PaymentRepository,
	c *cache.Cache,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		paymentRepo: paymentRepo,
		cache:       c,
		publisher:   publisher,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// orderLine is a validated, deduplicated requested line before reservation.
type orderLine struct {
	productID uuid.UUID
	quantity  int
}

// normaliseLines validates quantities and merges duplicate product IDs.
func normaliseLines(items []model.OrderItemRequest) ([]orderLine, error) {
	if len(items) == 0 {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Order must contain at least one item")
	}

	merged := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		merged[item.ProductID] += item.Quantity
	}

	lines := make([]orderLine, 0, len(merged))
	for id, qty := range merged {
		lines = append(lines, orderLine{productID: id, quantity: qty})
	}
	// Ascending ID lock order prevents deadlocks between concurrent orders.
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].productID[:], lines[j].productID[:]) < 0
	})

	return lines, nil
}

// reserveLines locks each product, checks availability and bumps reserved.
// Prices come from the locked rows, never from the request.
func (s *orderService) reserveLines(ctx context.Context, tx pgx.Tx, lines []orderLine) ([]model.OrderItem, float64, error) {
	items := make([]model.OrderItem, 0, len(lines))
	var total float64

	for _, line := range lines {
		p, err := s.productRepo.LockForUpdate(ctx, tx, line.productID)
		if err != nil {
			return nil, 0, err
		}
		if p == nil || !p.IsActive {
			return nil, 0, model.ErrProductNotFound
		}
		if !p.CanSell(line.quantity) {
			s.logger.Debug().
				Str("product_id", p.ID.String()).
				Int("requested", line.quantity).
				Int("available", p.Available()).
				Msg("insufficient stock for order line")
			return nil, 0, model.ErrInsufficientStock
		}
		if err := s.productRepo.AdjustReserved(ctx, tx, p.ID, line.quantity); err != nil {
			return nil, 0, err
		}

		items = append(items, model.OrderItem{
			ID:        uuid.New(),
			ProductID: p.ID,
			Quantity:  line.quantity,
			UnitPrice: p.Price,
		})
		total += float64(line.quantity) * p.Price
	}

	return items, total, nil
}

// createOrder writes the order and its items within tx.
func (s *orderService) createOrder(ctx context.Context, tx pgx.Tx, ident *auth.Identity, items []model.OrderItem, total float64) (*model.Order, error) {
	now := time.Now()
	order := &model.Order{
		ID:          uuid.New(),
		TotalAmount: total,
		Status:      model.OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ident.Anonymous {
		key := ident.SessionKey
		order.SessionKey = &key
	} else {
		userID := ident.UserID
		order.UserID = &userID
	}

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := s.orderRepo.CreateItems(ctx, tx, items); err != nil {
		return nil, err
	}

	return order, nil
}

// afterOrderCreated caches the status and queues the confirmation email.
func (s *orderService) afterOrderCreated(ctx context.Context, order *model.Order) {
	if s.cache != nil {
		s.cache.SetOrderStatus(ctx, order.ID, order.Status)
	}
	if s.publisher != nil {
		s.publisher.Publish(events.TopicOrderConfirmation, order.ID.String(), events.OrderConfirmation{
			OrderID:     order.ID,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
			CreatedAt:   order.CreatedAt,
		})
	}
}

func orderResponse(order *model.Order, items []model.OrderItem) *model.OrderResponse {
	if items == nil {
		items = []model.OrderItem{}
	}
	return &model.OrderResponse{
		ID:          order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       items,
		CreatedAt:   order.CreatedAt,
	}
}

// OrderNow reserves stock and creates a pending order for a direct buy.
func (s *orderService) OrderNow(ctx context.Context, ident *auth.Identity, req *model.OrderNowRequest) (*model.OrderResponse, error) {
	lines, err := normaliseLines(req.Items)
	if err != nil {
		return nil, err
	}
	if ident.Anonymous && ident.SessionKey == "" {
		return nil, model.ErrForbidden
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

	items, total, err := s.reserveLines(ctx, tx, lines)
	if err != nil {
		return nil, err
	}

	order, err := s.createOrder(ctx, tx, ident, items, total)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Float64("total", order.TotalAmount).
		Int("items", len(items)).
		Msg("order created")

	s.afterOrderCreated(ctx, order)
	return orderResponse(order, items), nil
}

// Checkout converts the caller's cart into a pending order and clears the
// cart in the same transaction.
func (s *orderService) Checkout(ctx context.Context, ident *auth.Identity) (*model.OrderResponse, error) {
	var cart *model.Cart
	var err error
	if !ident.Anonymous {
		cart, err = s.cartRepo.GetByUser(ctx, ident.UserID)
	} else if ident.SessionKey != "" {
		cart, err = s.cartRepo.GetBySession(ctx, ident.SessionKey)
	}
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, model.ErrCartNotFound
	}

	cartItems, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, model.ErrCartEmpty
	}

	reqItems := make([]model.OrderItemRequest, 0, len(cartItems))
	for _, item := range cartItems {
		reqItems = append(reqItems, model.OrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	lines, err := normaliseLines(reqItems)
	if err != nil {
		return nil, err
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

	items, total, err := s.reserveLines(ctx, tx, lines)
	if err != nil {
		return nil, err
	}

	order, err := s.createOrder(ctx, tx, ident, items, total)
	if err != nil {
		return nil, err
	}

	if err = s.cartRepo.DeleteItems(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("cart_id", cart.ID.String()).
		Float64("total", order.TotalAmount).
		Msg("cart checked out")

	s.afterOrderCreated(ctx, order)
	return orderResponse(order, items), nil
}

// owns reports whether the caller may act on the order.
func owns(ident *auth.Identity, order *model.Order) bool {
	if ident.IsAdmin() {
		return true
	}
	if !ident.Anonymous && order.UserID != nil && *order.UserID == ident.UserID {
		return true
	}
	if ident.Anonymous && order.SessionKey != nil && ident.SessionKey != "" && *order.SessionKey == ident.SessionKey {
		return true
	}
	return false
}

// Cancel releases a pending order's reservations and marks it cancelled.
// Only the order's owner or an admin may cancel, and only while pending.
func (s *orderService) Cancel(ctx context.Context, ident *auth.Identity, orderID uuid.UUID) (*model.OrderResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}
	if !owns(ident, order) {
		err = model.ErrForbidden
		return nil, err
	}
	if order.Status != model.OrderPending {
		err = model.ErrOrderNotCancellable
		return nil, err
	}

	ok, err := s.orderRepo.UpdateStatus(ctx, tx, orderID, model.OrderPending, model.OrderCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = model.ErrOrderNotCancellable
		return nil, err
	}

	items, err := s.orderRepo.GetItems(ctx, tx, orderID)
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
	}

	if err = s.paymentRepo.UpdateStatusByOrder(ctx, tx, orderID, model.PaymentCancelled); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	order.Status = model.OrderCancelled
	if s.cache != nil {
		s.cache.SetOrderStatus(ctx, orderID, model.OrderCancelled)
	}

	s.logger.Info().Str("order_id", orderID.String()).Msg("order cancelled")
	return orderResponse(order, items), nil
}

// List returns the orders visible to the caller.
func (s *orderService) List(ctx context.Context, ident *auth.Identity, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var orders []model.Order
	var err error
	switch {
	case ident.IsAdmin():
		orders, err = s.orderRepo.ListAll(ctx, limit, offset)
	case !ident.Anonymous:
		orders, err = s.orderRepo.ListByUser(ctx, ident.UserID, limit, offset)
	default:
		return []model.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// GetByID retrieves an order visible to the caller.
func (s *orderService) GetByID(ctx context.Context, ident *auth.Identity, orderID uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !owns(ident, order) {
		return nil, model.ErrForbidden
	}
	return orderResponse(order, items), nil
}
