package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeCartNotFound         = "CART_NOT_FOUND"
	ErrCodeCartItemNotFound     = "CART_ITEM_NOT_FOUND"
	ErrCodeCartEmpty            = "CART_EMPTY"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInsufficientStock    = "INSUFFICIENT_STOCK"
	ErrCodeOrderNotCancellable  = "ORDER_NOT_CANCELLABLE"
	ErrCodeOrderNotPending      = "ORDER_NOT_PENDING"
	ErrCodeDuplicateTransaction = "DUPLICATE_TRANSACTION"
	ErrCodeInvalidMovement      = "INVALID_MOVEMENT"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// DomainError is a business-rule violation carrying a stable error code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "Product does not exist")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order does not exist")
	ErrCartNotFound         = NewDomainError(ErrCodeCartNotFound, "Please add items to cart before checkout")
	ErrCartItemNotFound     = NewDomainError(ErrCodeCartItemNotFound, "Cart item does not exist")
	ErrCartEmpty            = NewDomainError(ErrCodeCartEmpty, "Cart is empty")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInsufficientStock    = NewDomainError(ErrCodeInsufficientStock, "Not enough stock available")
	ErrOrderNotCancellable  = NewDomainError(ErrCodeOrderNotCancellable, "Only pending orders can be cancelled")
	ErrOrderNotPending      = NewDomainError(ErrCodeOrderNotPending, "Order is not awaiting payment")
	ErrDuplicateTransaction = NewDomainError(ErrCodeDuplicateTransaction, "Transaction has already been processed")
	ErrInvalidMovement      = NewDomainError(ErrCodeInvalidMovement, "Movement would take stock below reserved quantity")
	ErrForbidden            = NewDomainError(ErrCodeForbidden, "You do not have permission to perform this action")
)
