package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	SKU         string          `db:"sku" json:"sku"`
	Title       string          `db:"title" json:"title"`
	Image       string          `db:"image" json:"image"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductWithStock is a product enriched with its current stock
type ProductWithStock struct {
	Product
	Stock int64 `db:"stock" json:"stock"`
}

// Adjustment is a single stock ledger entry. Positive qty is stock in,
// negative qty is stock out.
type Adjustment struct {
	ID        int64           `db:"id" json:"id"`
	SKU       string          `db:"sku" json:"sku"`
	Qty       int64           `db:"qty" json:"qty"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// AdjustmentView is an adjustment joined with the product's current price
type AdjustmentView struct {
	Adjustment
	Price decimal.Decimal `db:"price" json:"price"`
}

// AdjustmentAmount returns price * |qty|
func AdjustmentAmount(price decimal.Decimal, qty int64) decimal.Decimal {
	if qty < 0 {
		qty = -qty
	}
	return price.Mul(decimal.NewFromInt(qty))
}
