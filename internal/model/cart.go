package model

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a mutable pre-order line-item collection. Exactly one of UserID
// or SessionKey identifies the owner; the database enforces the XOR.
type Cart struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     *uuid.UUID `json:"userId,omitempty" db:"user_id"`
	SessionKey *string    `json:"-" db:"session_key"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// CartItem is one (product, quantity) pair; unique per (cart, product).
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"-" db:"cart_id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CartItemRequest represents the payload for adding or updating a cart item.
type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CartLine is a cart item joined with its live product for display.
type CartLine struct {
	Item     CartItem `json:"item"`
	Product  Product  `json:"product"`
	Subtotal float64  `json:"subtotal"`
}

// CartResponse represents the cart view returned to clients.
type CartResponse struct {
	ID         uuid.UUID  `json:"id"`
	Lines      []CartLine `json:"lines"`
	TotalPrice float64    `json:"totalPrice"`
}
