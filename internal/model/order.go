package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderShipped   OrderStatus = "shipped"
	OrderExpired   OrderStatus = "expired"
	OrderCancelled OrderStatus = "cancelled"
)

// validNext maps each status to the set of states reachable from it.
// There is no re-entry to pending.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderCompleted: true, OrderCancelled: true, OrderExpired: true},
	OrderCompleted: {OrderShipped: true},
	OrderShipped:   {},
	OrderExpired:   {},
	OrderCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Order is an immutable-once-created commitment to purchase.
// TotalAmount is frozen at creation and never recomputed.
type Order struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      *uuid.UUID  `json:"userId,omitempty" db:"user_id"`
	SessionKey  *string     `json:"-" db:"session_key"`
	TotalAmount float64     `json:"totalAmount" db:"total_amount"`
	Status      OrderStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line item with the unit price frozen at order creation.
type OrderItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unitPrice" db:"unit_price"`
}

// Subtotal returns the frozen line total for the item.
func (i *OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// OrderNowRequest represents the payload for a direct buy.
type OrderNowRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	ID          uuid.UUID   `json:"id"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"createdAt"`
}
