package service

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSKUExists           = errors.New("sku already exists")
	ErrInvalidPrice        = errors.New("price must not be negative")
	ErrRequestInProgress   = errors.New("a request with this idempotency key is still in progress")
	ErrQtyOutOfRange       = fmt.Errorf("qty must be between %d and %d", MinQty, MaxQty)
)

// Quantities are stored in a 32-bit INTEGER column.
const (
	MinQty = math.MinInt32
	MaxQty = math.MaxInt32
)

func validateQty(qty int64) error {
	if qty < MinQty || qty > MaxQty {
		return ErrQtyOutOfRange
	}
	return nil
}

// NegativeStockError is returned when a mutation would drive the summed
// stock of a SKU below zero.
type NegativeStockError struct {
	SKU          string
	CurrentStock int64
	RequestedQty int64
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("transaction would result in negative stock for %s: current=%d, requested=%d",
		e.SKU, e.CurrentStock, e.RequestedQty)
}

// IsNegativeStock reports whether err is a NegativeStockError and returns it
func IsNegativeStock(err error) (*NegativeStockError, bool) {
	var nse *NegativeStockError
	if errors.As(err, &nse) {
		return nse, true
	}
	return nil, false
}
