package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// PaymentMethod identifies the gateway the payment came through.
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodMpesa  PaymentMethod = "mpesa"
	MethodPaypal PaymentMethod = "paypal"
)

// Valid reports whether the payment method is a known value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodMpesa, MethodPaypal:
		return true
	}
	return false
}

// Payment records a gateway transaction against an order. TransactionID is
// unique; a duplicate confirmation attempt is rejected by that constraint.
type Payment struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	TransactionID string        `json:"transactionId" db:"transaction_id"`
	OrderID       uuid.UUID     `json:"orderId" db:"order_id"`
	Amount        float64       `json:"amount" db:"amount"`
	Method        PaymentMethod `json:"paymentMethod" db:"payment_method"`
	Status        PaymentStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
}

// ConfirmPaymentRequest is the webhook payload from the payment gateway.
type ConfirmPaymentRequest struct {
	TransactionID string        `json:"transaction_id"`
	OrderID       uuid.UUID     `json:"order_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// ConfirmPaymentResponse acknowledges a confirmed payment.
type ConfirmPaymentResponse struct {
	Message   string    `json:"message"`
	PaymentID uuid.UUID `json:"paymentId"`
	OrderID   uuid.UUID `json:"orderId"`
}
