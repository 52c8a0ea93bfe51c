package service

import (
	"context"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cartService implements the CartService interface. Carts belong to a user
// when the caller is authenticated and to the session key otherwise; adding
// to the cart never reserves stock, availability is only enforced at order
// creation.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// resolveCart returns the caller's cart, creating it on first access.
func (s *cartService) resolveCart(ctx context.Context, ident *auth.Identity) (*model.Cart, error) {
	if !ident.Anonymous {
		return s.cartRepo.GetOrCreateByUser(ctx, ident.UserID)
	}
	if ident.SessionKey == "" {
		return nil, model.ErrCartNotFound
	}
	return s.cartRepo.GetOrCreateBySession(ctx, ident.SessionKey)
}

// findCart returns the caller's cart without creating one, or nil.
func (s *cartService) findCart(ctx context.Context, ident *auth.Identity) (*model.Cart, error) {
	if !ident.Anonymous {
		return s.cartRepo.GetByUser(ctx, ident.UserID)
	}
	if ident.SessionKey == "" {
		return nil, nil
	}
	return s.cartRepo.GetBySession(ctx, ident.SessionKey)
}

// buildResponse joins cart items with their live products and totals them.
func (s *cartService) buildResponse(ctx context.Context, cart *model.Cart) (*model.CartResponse, error) {
	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	resp := &model.CartResponse{ID: cart.ID, Lines: []model.CartLine{}}
	if len(items) == 0 {
		return resp, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			// Product removed since it was added; skip the stale line.
			continue
		}
		subtotal := float64(item.Quantity) * p.Price
		resp.Lines = append(resp.Lines, model.CartLine{
			Item:     item,
			Product:  p,
			Subtotal: subtotal,
		})
		resp.TotalPrice += subtotal
	}

	return resp, nil
}

// GetCart returns the caller's cart, creating it on first access.
func (s *cartService) GetCart(ctx context.Context, ident *auth.Identity) (*model.CartResponse, error) {
	cart, err := s.resolveCart(ctx, ident)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, cart)
}

// AddItem adds a product to the cart, merging quantities on repeat adds.
func (s *cartService) AddItem(ctx context.Context, ident *auth.Identity, req *model.CartItemRequest) (*model.CartResponse, error) {
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, model.ErrProductNotFound
	}

	cart, err := s.resolveCart(ctx, ident)
	if err != nil {
		return nil, err
	}

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = s.cartRepo.UpsertItem(ctx, tx, cart.ID, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cart update: %w", err)
	}

	s.logger.Debug().
		Str("cart_id", cart.ID.String()).
		Str("product_id", req.ProductID.String()).
		Int("quantity", req.Quantity).
		Msg("cart item added")

	return s.buildResponse(ctx, cart)
}

// ownedItem loads a cart item and verifies it belongs to the caller's cart.
func (s *cartService) ownedItem(ctx context.Context, ident *auth.Identity, itemID uuid.UUID) (*model.Cart, *model.CartItem, error) {
	cart, err := s.findCart(ctx, ident)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, model.ErrCartItemNotFound
	}

	item, err := s.cartRepo.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || item.CartID != cart.ID {
		return nil, nil, model.ErrCartItemNotFound
	}

	return cart, item, nil
}

// UpdateItem sets the quantity of a cart item.
func (s *cartService) UpdateItem(ctx context.Context, ident *auth.Identity, itemID uuid.UUID, quantity int) (*model.CartResponse, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	cart, _, err := s.ownedItem(ctx, ident, itemID)
	if err != nil {
		return nil, err
	}

	ok, err := s.cartRepo.UpdateItemQuantity(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrCartItemNotFound
	}

	return s.buildResponse(ctx, cart)
}

// RemoveItem deletes a cart item.
func (s *cartService) RemoveItem(ctx context.Context, ident *auth.Identity, itemID uuid.UUID) (*model.CartResponse, error) {
	cart, _, err := s.ownedItem(ctx, ident, itemID)
	if err != nil {
		return nil, err
	}

	ok, err := s.cartRepo.DeleteItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrCartItemNotFound
	}

	return s.buildResponse(ctx, cart)
}

// Merge folds the caller's session cart into their user cart after login.
// Quantities for the same product are summed; the session cart is deleted.
func (s *cartService) Merge(ctx context.Context, ident *auth.Identity) (*model.CartResponse, error) {
	if ident.Anonymous {
		return nil, model.ErrForbidden
	}

	userCart, err := s.cartRepo.GetOrCreateByUser(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}

	if ident.SessionKey == "" {
		return s.buildResponse(ctx, userCart)
	}

	sessionCart, err := s.cartRepo.GetBySession(ctx, ident.SessionKey)
	if err != nil {
		return nil, err
	}
	if sessionCart == nil {
		return s.buildResponse(ctx, userCart)
	}

	items, err := s.cartRepo.GetItems(ctx, sessionCart.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, item := range items {
		if err = s.cartRepo.UpsertItem(ctx, tx, userCart.ID, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}
	if err = s.cartRepo.DeleteCart(ctx, tx, sessionCart.ID); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cart merge: %w", err)
	}

	s.logger.Info().
		Str("user_cart_id", userCart.ID.String()).
		Str("session_cart_id", sessionCart.ID.String()).
		Int("merged_items", len(items)).
		Msg("session cart merged into user cart")

	return s.buildResponse(ctx, userCart)
}
