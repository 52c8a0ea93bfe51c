// Package events publishes notification messages to Kafka for the external
// email workers. Publishing is fire-and-forget: the order/payment workflows
// never block on or depend on delivery.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics consumed by the notification workers.
const (
	TopicOrderConfirmation   = "notifications.order-confirmation"
	TopicPaymentConfirmation = "notifications.payment-confirmation"
	TopicOrderExpired        = "notifications.order-expired"
	TopicLowStock            = "notifications.low-stock"
)

// OrderConfirmation asks the worker to send an order confirmation email.
type OrderConfirmation struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentConfirmation asks the worker to send a payment receipt.
type PaymentConfirmation struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"payment_method"`
}

// OrderExpired notifies that a pending order was swept.
type OrderExpired struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	ExpiredAt time.Time `json:"expired_at"`
}

// LowStock alerts the shop admin about a product running low.
type LowStock struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
}

// Publisher enqueues a message on a topic without waiting for delivery.
type Publisher interface {
	Publish(topic string, key string, payload any)
}
