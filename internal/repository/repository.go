package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category        string
	Query           string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ProductRepository defines the interface for product and inventory data access.
// Methods taking a pgx.Tx participate in a caller-managed transaction; the
// reservation workflow relies on LockForUpdate to serialise concurrent
// mutations of the same product row.
type ProductRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetAll retrieves products matching the filter, with pagination.
	GetAll(ctx context.Context, filter ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product, or nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	// Create inserts a new product.
	Create(ctx context.Context, p *model.Product) error

	// Update rewrites the mutable catalogue fields of a product.
	Update(ctx context.Context, p *model.Product) error

	// Deactivate soft-deletes a product. Returns false if it does not exist.
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)

	// SetImageKey records the stored image key for a product.
	SetImageKey(ctx context.Context, id uuid.UUID, key string) error

	// LockForUpdate loads a product row under FOR UPDATE within tx,
	// or nil if it does not exist.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error)

	// AdjustReserved adds delta to the reserved counter within tx.
	AdjustReserved(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error

	// ReleaseReserved subtracts quantity from the reserved counter within tx,
	// flooring at zero.
	ReleaseReserved(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error

	// AdjustStock adds delta to the stock counter within tx.
	AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error

	// InsertMovement records an inventory movement within tx.
	InsertMovement(ctx context.Context, tx pgx.Tx, m *model.InventoryMovement) error

	// ListMovements retrieves the movement ledger for a product, newest first.
	ListMovements(ctx context.Context, productID uuid.UUID) ([]model.InventoryMovement, error)
}

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetOrCreateByUser returns the user's cart, creating it on first access.
	GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error)

	// GetByUser returns the user's cart, or nil if it does not exist.
	GetByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error)

	// GetOrCreateBySession returns the session cart, creating it on first access.
	GetOrCreateBySession(ctx context.Context, sessionKey string) (*model.Cart, error)

	// GetBySession returns the session cart, or nil if it does not exist.
	GetBySession(ctx context.Context, sessionKey string) (*model.Cart, error)

	// GetItems retrieves all items in a cart.
	GetItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error)

	// GetItem retrieves a single cart item, or nil if it does not exist.
	GetItem(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error)

	// UpsertItem adds quantity to the (cart, product) line, creating it if absent.
	UpsertItem(ctx context.Context, tx pgx.Tx, cartID, productID uuid.UUID, quantity int) error

	// UpdateItemQuantity sets the quantity of an item. Returns false if missing.
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (bool, error)

	// DeleteItem removes an item. Returns false if missing.
	DeleteItem(ctx context.Context, itemID uuid.UUID) (bool, error)

	// DeleteItems removes every item from a cart within tx.
	DeleteItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error

	// DeleteCart removes a cart and its items within tx.
	DeleteCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateItems inserts order items within the provided transaction.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items, or nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetForUpdate loads an order row under FOR UPDATE within tx, or nil.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// GetItems retrieves the items of an order within tx.
	GetItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.OrderItem, error)

	// UpdateStatus moves an order from one status to another within tx.
	// Returns false when the order was not in the expected status.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.OrderStatus) (bool, error)

	// ListAll retrieves all orders, newest first.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// ListByUser retrieves a user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, error)

	// ListPendingBefore retrieves pending orders created before the cutoff.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]model.Order, error)
}

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	// Create inserts a payment within tx. A duplicate transaction_id yields
	// model.ErrDuplicateTransaction.
	Create(ctx context.Context, tx pgx.Tx, p *model.Payment) error

	// ExistsByTransactionID reports whether a transaction has been recorded.
	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)

	// GetByOrderID retrieves the payment for an order, or nil if none exists.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)

	// UpdateStatusByOrder sets the payment status for an order within tx.
	UpdateStatusByOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.PaymentStatus) error
}
