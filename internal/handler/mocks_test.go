package handler

import (
	"context"
	"io"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of service.ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id uuid.UUID, req *model.ProductRequest) (*model.Product, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductService) ApplyMovement(ctx context.Context, id uuid.UUID, req *model.StockMovementRequest) (*model.StockMovementResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StockMovementResponse), args.Error(1)
}

func (m *MockProductService) ListMovements(ctx context.Context, id uuid.UUID) ([]model.InventoryMovement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InventoryMovement), args.Error(1)
}

func (m *MockProductService) AttachImage(ctx context.Context, id uuid.UUID, filename string, data io.Reader) (string, error) {
	args := m.Called(ctx, id, filename, data)
	return args.String(0), args.Error(1)
}

// MockCartService is a mock implementation of service.CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, ident *auth.Identity) (*model.CartResponse, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, ident *auth.Identity, req *model.CartItemRequest) (*model.CartResponse, error) {
	args := m.Called(ctx, ident, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, ident *auth.Identity, itemID uuid.UUID, quantity int) (*model.CartResponse, error) {
	args := m.Called(ctx, ident, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, ident *auth.Identity, itemID uuid.UUID) (*model.CartResponse, error) {
	args := m.Called(ctx, ident, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

func (m *MockCartService) Merge(ctx context.Context, ident *auth.Identity) (*model.CartResponse, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartResponse), args.Error(1)
}

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) OrderNow(ctx context.Context, ident *auth.Identity, req *model.OrderNowRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, ident, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Checkout(ctx context.Context, ident *auth.Identity) (*model.OrderResponse, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, ident *auth.Identity, orderID uuid.UUID) (*model.OrderResponse, error) {
	args := m.Called(ctx, ident, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, ident *auth.Identity, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, ident, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, ident *auth.Identity, orderID uuid.UUID) (*model.OrderResponse, error) {
	args := m.Called(ctx, ident, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

// MockPaymentService is a mock implementation of service.PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Confirm(ctx context.Context, req *model.ConfirmPaymentRequest) (*model.ConfirmPaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConfirmPaymentResponse), args.Error(1)
}
