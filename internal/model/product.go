package model

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalogue product with its stock ledger counters.
// Invariant: Reserved never exceeds Stock.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	Reserved    int       `json:"reserved" db:"reserved"`
	ImageKey    *string   `json:"imageKey,omitempty" db:"image_key"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Available returns the sellable quantity: stock minus outstanding reservations.
func (p *Product) Available() int {
	return p.Stock - p.Reserved
}

// CanSell reports whether quantity units can be reserved right now.
func (p *Product) CanSell(quantity int) bool {
	return quantity > 0 && p.Available() >= quantity
}

// MovementType classifies an inventory movement.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// Valid reports whether the movement type is a known value.
func (m MovementType) Valid() bool {
	return m == MovementIn || m == MovementOut
}

// InventoryMovement is a ledger entry adjusting Product.Stock.
type InventoryMovement struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	ProductID uuid.UUID    `json:"productId" db:"product_id"`
	MvtType   MovementType `json:"mvtType" db:"mvt_type"`
	Quantity  int          `json:"quantity" db:"quantity"`
	Note      string       `json:"note,omitempty" db:"note"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
}

// ProductRequest represents the payload for creating or updating a product.
type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// StockMovementRequest represents the payload for an admin stock adjustment.
type StockMovementRequest struct {
	MvtType  MovementType `json:"mvt_type"`
	Quantity int          `json:"quantity"`
	Note     string       `json:"note"`
}

// StockMovementResponse reports the result of a stock adjustment.
type StockMovementResponse struct {
	Message  string       `json:"message"`
	MvtType  MovementType `json:"mvtType"`
	OldStock int          `json:"oldStock"`
	NewStock int          `json:"newStock"`
}
