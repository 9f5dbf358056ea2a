package store

import (
	"context"

	"inventory-service/internal/models"
)

// ListFilter narrows and pages a listing query
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

// LedgerTx is the set of queries available inside a locking ledger transaction
type LedgerTx interface {
	// LockProduct loads the product and holds its row lock until the
	// transaction ends. Returns ErrNotFound if the SKU does not exist.
	LockProduct(ctx context.Context, sku string) (*models.Product, error)
	LockAdjustment(ctx context.Context, id int64) (*models.Adjustment, error)
	SumQty(ctx context.Context, sku string, excludeID int64) (int64, error)
	InsertAdjustment(ctx context.Context, adj *models.Adjustment) error
	UpdateAdjustment(ctx context.Context, adj *models.Adjustment) error
}

// LedgerStore persists adjustment transactions
type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error
	SumQty(ctx context.Context, sku string, excludeID int64) (int64, error)
	GetAdjustment(ctx context.Context, id int64) (*models.AdjustmentView, error)
	ListAdjustments(ctx context.Context, filter ListFilter) ([]models.AdjustmentView, int, error)
	DeleteAdjustment(ctx context.Context, id int64) (*models.Adjustment, error)
}

// CatalogStore persists products
type CatalogStore interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]models.ProductWithStock, int, error)
	GetProductWithStock(ctx context.Context, sku string) (*models.ProductWithStock, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, sku string) (bool, error)
	InsertProductIfAbsent(ctx context.Context, product *models.Product) (bool, error)
	ListSKUs(ctx context.Context) ([]string, error)
}

var (
	_ LedgerStore  = (*Store)(nil)
	_ CatalogStore = (*Store)(nil)
	_ LedgerTx     = (*Tx)(nil)
)
