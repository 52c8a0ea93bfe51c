package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/events"
	"storefront/internal/images"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// lowStockThreshold triggers an admin alert when stock drops to or below it.
const lowStockThreshold = 5

// productService implements the ProductService interface.
type productService struct {
	repo       repository.ProductRepository
	imageStore images.Store
	publisher  events.Publisher
	logger     zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, imageStore images.Store, publisher events.Publisher, logger zerolog.Logger) ProductService {
	return &productService{
		repo:       repo,
		imageStore: imageStore,
		publisher:  publisher,
		logger:     logger.With().Str("service", "product").Logger(),
	}
}

// GetAll retrieves products matching the filter.
func (s *productService) GetAll(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.repo.GetAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrProductNotFound
	}
	return p, nil
}

func validateProductRequest(req *model.ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "Product name is required")
	}
	if req.Price < 0 {
		return model.NewDomainError(model.ErrCodeMissingField, "Price cannot be negative")
	}
	if req.Stock < 0 {
		return model.NewDomainError(model.ErrCodeMissingField, "Stock cannot be negative")
	}
	return nil
}

// Create adds a product to the catalogue.
func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		Reserved:    0,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", p.ID.String()).
		Str("name", p.Name).
		Msg("product created")

	return p, nil
}

// Update rewrites the catalogue fields of a product. Stock is not touched
// here; it only moves through the inventory ledger.
func (s *productService) Update(ctx context.Context, id uuid.UUID, req *model.ProductRequest) (*model.Product, error) {
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrProductNotFound
	}

	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Category = req.Category
	p.Price = req.Price

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Deactivate soft-deletes a product.
func (s *productService) Deactivate(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrProductNotFound
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product deactivated")
	return nil
}

// ApplyMovement records an inventory movement and adjusts the physical stock
// under a row lock. An OUT movement may not take stock below the quantity
// still reserved for pending orders.
func (s *productService) ApplyMovement(ctx context.Context, id uuid.UUID, req *model.StockMovementRequest) (*model.StockMovementResponse, error) {
	if !req.MvtType.Valid() {
		return nil, model.NewDomainError(model.ErrCodeInvalidMovement, "Movement type must be IN or OUT")
	}
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	p, err := s.repo.LockForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		err = model.ErrProductNotFound
		return nil, err
	}

	delta := req.Quantity
	if req.MvtType == model.MovementOut {
		delta = -req.Quantity
	}
	newStock := p.Stock + delta
	if newStock < p.Reserved {
		err = model.ErrInvalidMovement
		return nil, err
	}

	if err = s.repo.AdjustStock(ctx, tx, id, delta); err != nil {
		return nil, err
	}

	mvt := &model.InventoryMovement{
		ID:        uuid.New(),
		ProductID: id,
		MvtType:   req.MvtType,
		Quantity:  req.Quantity,
		Note:      req.Note,
		CreatedAt: time.Now(),
	}
	if err = s.repo.InsertMovement(ctx, tx, mvt); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit movement: %w", err)
	}

	s.logger.Info().
		Str("product_id", id.String()).
		Str("mvt_type", string(req.MvtType)).
		Int("quantity", req.Quantity).
		Int("new_stock", newStock).
		Msg("stock movement applied")

	if newStock <= lowStockThreshold && s.publisher != nil {
		s.publisher.Publish(events.TopicLowStock, id.String(), events.LowStock{
			ProductID: id,
			Name:      p.Name,
			Stock:     newStock,
		})
	}

	return &model.StockMovementResponse{
		Message:  "Stock updated",
		MvtType:  req.MvtType,
		OldStock: p.Stock,
		NewStock: newStock,
	}, nil
}

// ListMovements retrieves the movement ledger for a product.
func (s *productService) ListMovements(ctx context.Context, id uuid.UUID) ([]model.InventoryMovement, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrProductNotFound
	}

	movements, err := s.repo.ListMovements(ctx, id)
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []model.InventoryMovement{}
	}
	return movements, nil
}

// AttachImage stores a product image and records its key on the product.
func (s *productService) AttachImage(ctx context.Context, id uuid.UUID, filename string, data io.Reader) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", model.ErrProductNotFound
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	key := fmt.Sprintf("products/%s%s", id, ext)

	if err := s.imageStore.Put(ctx, key, data); err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to store product image")
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	if err := s.repo.SetImageKey(ctx, id, key); err != nil {
		return "", err
	}

	s.logger.Info().Str("product_id", id.String()).Str("image_key", key).Msg("product image attached")
	return key, nil
}
