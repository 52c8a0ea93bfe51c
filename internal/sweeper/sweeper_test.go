package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeClock pins time for deterministic cutoffs.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *mockOrderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *mockOrderRepo) GetItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.OrderItem, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderItem), args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	args := m.Called(ctx, tx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *mockOrderRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]model.Order, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *mockProductRepo) ReleaseReserved(ctx context.Context, tx pgx.Tx, id uuid.UUID, quantity int) error {
	args := m.Called(ctx, tx, id, quantity)
	return args.Error(0)
}

// The sweeper only touches the locking and release methods; the rest of the
// interface is satisfied with stubs.
func (m *mockProductRepo) BeginTx(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *mockProductRepo) GetAll(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	return nil, nil
}
func (m *mockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return nil, nil
}
func (m *mockProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	return nil, nil
}
func (m *mockProductRepo) Create(ctx context.Context, p *model.Product) error { return nil }
func (m *mockProductRepo) Update(ctx context.Context, p *model.Product) error { return nil }
func (m *mockProductRepo) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}
func (m *mockProductRepo) SetImageKey(ctx context.Context, id uuid.UUID, key string) error {
	return nil
}
func (m *mockProductRepo) AdjustReserved(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	return nil
}
func (m *mockProductRepo) AdjustStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	return nil
}
func (m *mockProductRepo) InsertMovement(ctx context.Context, tx pgx.Tx, mvt *model.InventoryMovement) error {
	return nil
}
func (m *mockProductRepo) ListMovements(ctx context.Context, productID uuid.UUID) ([]model.InventoryMovement, error) {
	return nil, nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(topic string, key string, payload any) {
	m.Called(topic, key, payload)
}

type mockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *mockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *mockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *mockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *mockTx) Conn() *pgx.Conn                                               { return nil }

func TestSweeper_SweepOnce_ExpiresStaleOrders(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	maxAge := 6 * time.Hour
	cutoff := now.Add(-maxAge)

	productID := uuid.New()
	order := model.Order{
		ID:        uuid.New(),
		Status:    model.OrderPending,
		CreatedAt: now.Add(-7 * time.Hour),
	}
	items := []model.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, ProductID: productID, Quantity: 2, UnitPrice: 10.00},
	}

	orderRepo := new(mockOrderRepo)
	productRepo := new(mockProductRepo)
	publisher := new(mockPublisher)
	tx := new(mockTx)

	s := New(orderRepo, productRepo, nil, publisher, clock, time.Hour, maxAge, logger)

	orderRepo.On("ListPendingBefore", ctx, cutoff).Return([]model.Order{order}, nil)
	orderRepo.On("BeginTx", ctx).Return(tx, nil)
	orderRepo.On("GetForUpdate", ctx, tx, order.ID).Return(&order, nil)
	orderRepo.On("UpdateStatus", ctx, tx, order.ID, model.OrderPending, model.OrderExpired).Return(true, nil)
	orderRepo.On("GetItems", ctx, tx, order.ID).Return(items, nil)
	productRepo.On("LockForUpdate", ctx, tx, productID).Return(&model.Product{ID: productID, Stock: 5, Reserved: 2}, nil)
	productRepo.On("ReleaseReserved", ctx, tx, productID, 2).Return(nil)
	tx.On("Commit", ctx).Return(nil)
	publisher.On("Publish", events.TopicOrderExpired, order.ID.String(), mock.MatchedBy(func(p events.OrderExpired) bool {
		return p.OrderID == order.ID && p.ExpiredAt.Equal(now)
	})).Return()

	err := s.SweepOnce(ctx)

	require.NoError(t, err)
	orderRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestSweeper_SweepOnce_NothingStale(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	clock := &fakeClock{now: time.Now()}
	orderRepo := new(mockOrderRepo)

	s := New(orderRepo, new(mockProductRepo), nil, nil, clock, time.Hour, 6*time.Hour, logger)

	orderRepo.On("ListPendingBefore", ctx, mock.Anything).Return([]model.Order{}, nil)

	require.NoError(t, s.SweepOnce(ctx))
	orderRepo.AssertNotCalled(t, "BeginTx")
}

func TestSweeper_SweepOnce_SkipsOrderPaidDuringSweep(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	now := time.Now()
	clock := &fakeClock{now: now}

	order := model.Order{ID: uuid.New(), Status: model.OrderPending, CreatedAt: now.Add(-8 * time.Hour)}
	paid := order
	paid.Status = model.OrderCompleted

	orderRepo := new(mockOrderRepo)
	publisher := new(mockPublisher)
	tx := new(mockTx)

	s := New(orderRepo, new(mockProductRepo), nil, publisher, clock, time.Hour, 6*time.Hour, logger)

	orderRepo.On("ListPendingBefore", ctx, mock.Anything).Return([]model.Order{order}, nil)
	orderRepo.On("BeginTx", ctx).Return(tx, nil)
	// Payment confirmed between the listing and the row lock.
	orderRepo.On("GetForUpdate", ctx, tx, order.ID).Return(&paid, nil)
	tx.On("Rollback", ctx).Return(nil)

	require.NoError(t, s.SweepOnce(ctx))

	assert.True(t, tx.rolledBack)
	orderRepo.AssertNotCalled(t, "UpdateStatus")
	publisher.AssertNotCalled(t, "Publish")
}

func TestSweeper_SweepOnce_OneFailureDoesNotBlockRest(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	now := time.Now()
	clock := &fakeClock{now: now}

	first := model.Order{ID: uuid.New(), Status: model.OrderPending, CreatedAt: now.Add(-8 * time.Hour)}
	second := model.Order{ID: uuid.New(), Status: model.OrderPending, CreatedAt: now.Add(-9 * time.Hour)}

	orderRepo := new(mockOrderRepo)
	productRepo := new(mockProductRepo)
	txFail := new(mockTx)
	txOK := new(mockTx)

	s := New(orderRepo, productRepo, nil, nil, clock, time.Hour, 6*time.Hour, logger)

	orderRepo.On("ListPendingBefore", ctx, mock.Anything).Return([]model.Order{first, second}, nil)

	orderRepo.On("BeginTx", ctx).Return(txFail, nil).Once()
	orderRepo.On("GetForUpdate", ctx, txFail, first.ID).Return(nil, errors.New("lock timeout"))
	txFail.On("Rollback", ctx).Return(nil)

	orderRepo.On("BeginTx", ctx).Return(txOK, nil).Once()
	orderRepo.On("GetForUpdate", ctx, txOK, second.ID).Return(&second, nil)
	orderRepo.On("UpdateStatus", ctx, txOK, second.ID, model.OrderPending, model.OrderExpired).Return(true, nil)
	orderRepo.On("GetItems", ctx, txOK, second.ID).Return([]model.OrderItem{}, nil)
	txOK.On("Commit", ctx).Return(nil)

	require.NoError(t, s.SweepOnce(ctx))

	assert.True(t, txFail.rolledBack)
	assert.True(t, txOK.committed)
}

func TestSweeper_Run_StopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()

	clock := &fakeClock{now: time.Now()}
	orderRepo := new(mockOrderRepo)

	s := New(orderRepo, new(mockProductRepo), nil, nil, clock, 50*time.Millisecond, 6*time.Hour, logger)

	orderRepo.On("ListPendingBefore", mock.Anything, mock.Anything).Return([]model.Order{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	// The initial sweep plus at least one tick.
	require.GreaterOrEqual(t, len(orderRepo.Calls), 2)
}
