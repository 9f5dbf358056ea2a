package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductSource supplies products for bulk import
type ProductSource interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
}

// ProductService handles catalog business logic
type ProductService struct {
	store          store.CatalogStore
	source         ProductSource
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewProductService creates a new product service. source and
// eventPublisher may be nil.
func NewProductService(store store.CatalogStore, source ProductSource, eventPublisher EventPublisher) *ProductService {
	return &ProductService{
		store:          store,
		source:         source,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Title       string           `json:"title" binding:"required"`
	SKU         string           `json:"sku" binding:"required"`
	Image       string           `json:"image"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Description string           `json:"description"`
}

// ProductPatch carries the optional fields of a product update. The SKU is
// immutable and therefore absent.
type ProductPatch struct {
	Title       *string          `json:"title,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// ImportResult summarises a bulk import
type ImportResult struct {
	Message     string   `json:"message"`
	Inserted    int      `json:"inserted"`
	Skipped     int      `json:"skipped"`
	SkippedSKUs []string `json:"skippedSKUs"`
}

// List returns one page of products with stock, optionally filtered by a
// search term matched against title and SKU
func (s *ProductService) List(ctx context.Context, page, limit int, search string) (models.Page[models.ProductWithStock], error) {
	ctx, span := util.StartSpan(ctx, "ProductService.List")
	defer span.End()

	page, limit = models.NormalizePage(page, limit)
	rows, total, err := s.store.ListProducts(ctx, store.ListFilter{
		Search: search,
		Limit:  limit,
		Offset: models.Offset(page, limit),
	})
	if err != nil {
		return models.Page[models.ProductWithStock]{}, err
	}
	return models.NewPage(rows, total, page, limit), nil
}

// Get retrieves a product and its current stock
func (s *ProductService) Get(ctx context.Context, sku string) (*models.ProductWithStock, error) {
	ctx, span := util.StartSKUSpan(ctx, "ProductService.Get", sku)
	defer span.End()

	product, err := s.store.GetProductWithStock(ctx, sku)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// Create adds a product to the catalog
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSKUSpan(ctx, "ProductService.Create", req.SKU)
	defer span.End()

	if req.Price == nil || req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	product := &models.Product{
		SKU:         req.SKU,
		Title:       req.Title,
		Image:       req.Image,
		Price:       *req.Price,
		Description: req.Description,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrDuplicateSKU) {
			return nil, ErrSKUExists
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("sku", product.SKU), zap.Int64("product_id", product.ID))
	s.publish(ctx, models.EventTypeProductCreated, product)
	return product, nil
}

// Update merges patch into the stored product and saves it
func (s *ProductService) Update(ctx context.Context, sku string, patch ProductPatch) (*models.Product, error) {
	ctx, span := util.StartSKUSpan(ctx, "ProductService.Update", sku)
	defer span.End()

	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	product, err := s.store.GetProductBySKU(ctx, sku)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if patch.Title != nil {
		product.Title = *patch.Title
	}
	if patch.Image != nil {
		product.Image = *patch.Image
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info("Product updated", zap.String("sku", sku))
	s.publish(ctx, models.EventTypeProductUpdated, product)
	return product, nil
}

// Delete removes a product together with its adjustments
func (s *ProductService) Delete(ctx context.Context, sku string) (bool, error) {
	ctx, span := util.StartSKUSpan(ctx, "ProductService.Delete", sku)
	defer span.End()

	deleted, err := s.store.DeleteProduct(ctx, sku)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	if deleted {
		s.logger.Info("Product deleted", zap.String("sku", sku))
		s.publish(ctx, models.EventTypeProductDeleted, &models.Product{SKU: sku})
	}
	return deleted, nil
}

// Import pulls products from the configured source and inserts those whose
// SKU is not in the catalog yet
func (s *ProductService) Import(ctx context.Context) (*ImportResult, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.Import")
	defer span.End()

	if s.source == nil {
		return nil, errors.New("no product source configured")
	}

	products, err := s.source.FetchProducts(ctx)
	if err != nil {
		util.RecordSpanError(span, err)
		return nil, fmt.Errorf("failed to fetch products from external API: %w", err)
	}

	result := &ImportResult{Message: "Import completed", SkippedSKUs: []string{}}
	for i := range products {
		product := &products[i]

		inserted, err := s.store.InsertProductIfAbsent(ctx, product)
		if err != nil {
			s.logger.Error("Failed to import product", zap.String("sku", product.SKU), zap.Error(err))
		}
		if err != nil || !inserted {
			result.Skipped++
			result.SkippedSKUs = append(result.SkippedSKUs, product.SKU)
			util.ProductsImportedTotal.WithLabelValues("skipped").Inc()
			continue
		}

		result.Inserted++
		util.ProductsImportedTotal.WithLabelValues("inserted").Inc()
		s.publish(ctx, models.EventTypeProductCreated, product)
	}

	s.logger.Info("Product import completed",
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *ProductService) publish(ctx context.Context, eventType string, product *models.Product) {
	if s.eventPublisher == nil {
		return
	}

	event := &models.ProductEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		SKU:   product.SKU,
		Title: product.Title,
	}
	if eventType != models.EventTypeProductDeleted {
		event.Price = product.Price.StringFixed(2)
	}

	if err := s.eventPublisher.PublishProductEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish product event",
			zap.String("event_type", eventType),
			zap.String("sku", product.SKU),
			zap.Error(err))
	}
}
