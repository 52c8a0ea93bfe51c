package service

import (
	"context"
	"io"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// ProductService defines operations for the catalogue and inventory ledger.
type ProductService interface {
	// GetAll retrieves products matching the filter.
	GetAll(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// Create adds a product to the catalogue.
	Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error)

	// Update rewrites the catalogue fields of a product.
	Update(ctx context.Context, id uuid.UUID, req *model.ProductRequest) (*model.Product, error)

	// Deactivate soft-deletes a product.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// ApplyMovement records an IN/OUT inventory movement and adjusts stock.
	ApplyMovement(ctx context.Context, id uuid.UUID, req *model.StockMovementRequest) (*model.StockMovementResponse, error)

	// ListMovements retrieves the movement ledger for a product.
	ListMovements(ctx context.Context, id uuid.UUID) ([]model.InventoryMovement, error)

	// AttachImage stores a product image and records its key.
	AttachImage(ctx context.Context, id uuid.UUID, filename string, data io.Reader) (string, error)
}

// CartService defines operations on the caller's cart. The cart is resolved
// from the identity: by user when authenticated, by session key otherwise.
type CartService interface {
	// GetCart returns the caller's cart, creating it on first access.
	GetCart(ctx context.Context, ident *auth.Identity) (*model.CartResponse, error)

	// AddItem adds a product to the cart, merging quantities on repeat adds.
	AddItem(ctx context.Context, ident *auth.Identity, req *model.CartItemRequest) (*model.CartResponse, error)

	// UpdateItem sets the quantity of a cart item.
	UpdateItem(ctx context.Context, ident *auth.Identity, itemID uuid.UUID, quantity int) (*model.CartResponse, error)

	// RemoveItem deletes a cart item.
	RemoveItem(ctx context.Context, ident *auth.Identity, itemID uuid.UUID) (*model.CartResponse, error)

	// Merge folds the caller's session cart into their user cart after login.
	Merge(ctx context.Context, ident *auth.Identity) (*model.CartResponse, error)
}

// OrderService defines the order workflow: direct buy, checkout, cancel and
// listing scoped by the caller's role.
type OrderService interface {
	// OrderNow reserves stock and creates a pending order for a direct buy.
	OrderNow(ctx context.Context, ident *auth.Identity, req *model.OrderNowRequest) (*model.OrderResponse, error)

	// Checkout converts the caller's cart into a pending order.
	Checkout(ctx context.Context, ident *auth.Identity) (*model.OrderResponse, error)

	// Cancel releases a pending order's reservations and marks it cancelled.
	Cancel(ctx context.Context, ident *auth.Identity, orderID uuid.UUID) (*model.OrderResponse, error)

	// List returns the orders visible to the caller: admins see all,
	// authenticated users their own, anonymous callers none.
	List(ctx context.Context, ident *auth.Identity, limit, offset int) ([]model.Order, error)

	// GetByID retrieves an order visible to the caller.
	GetByID(ctx context.Context, ident *auth.Identity, orderID uuid.UUID) (*model.OrderResponse, error)
}

// PaymentService processes payment-gateway webhooks.
type PaymentService interface {
	// Confirm finalises an order after the gateway reports payment.
	Confirm(ctx context.Context, req *model.ConfirmPaymentRequest) (*model.ConfirmPaymentResponse, error)
}
