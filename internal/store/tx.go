package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Tx is a ledger transaction. Row locks taken through it are held until
// RunInTx commits or rolls back.
type Tx struct {
	tx *sqlx.Tx
}

// RunInTx runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockProduct loads a product with FOR UPDATE
func (t *Tx) LockProduct(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product,
		fmt.Sprintf("SELECT %s FROM products p WHERE p.sku = $1 FOR UPDATE", productColumns), sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", sku, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %s: %w", sku, err)
	}
	return &product, nil
}

// LockAdjustment loads an adjustment with FOR UPDATE
func (t *Tx) LockAdjustment(ctx context.Context, id int64) (*models.Adjustment, error) {
	var adj models.Adjustment
	err := t.tx.GetContext(ctx, &adj,
		"SELECT "+adjustmentColumns+" FROM adjustment_transactions a WHERE a.id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjustment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock adjustment %d: %w", id, err)
	}
	return &adj, nil
}

// SumQty returns the stock for a SKU as seen inside the transaction
func (t *Tx) SumQty(ctx context.Context, sku string, excludeID int64) (int64, error) {
	return sumQty(ctx, t.tx, sku, excludeID)
}

// InsertAdjustment inserts a ledger row and fills in its id and timestamps
func (t *Tx) InsertAdjustment(ctx context.Context, adj *models.Adjustment) error {
	query := `
		INSERT INTO adjustment_transactions (sku, qty, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	if err := t.tx.GetContext(ctx, adj, query, adj.SKU, adj.Qty, adj.Amount); err != nil {
		return fmt.Errorf("failed to insert adjustment: %w", err)
	}
	return nil
}

// UpdateAdjustment overwrites sku, qty and amount of an existing ledger row
func (t *Tx) UpdateAdjustment(ctx context.Context, adj *models.Adjustment) error {
	query := `
		UPDATE adjustment_transactions
		SET sku = $1, qty = $2, amount = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING created_at, updated_at`

	err := t.tx.GetContext(ctx, adj, query, adj.SKU, adj.Qty, adj.Amount, adj.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("adjustment %d: %w", adj.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update adjustment %d: %w", adj.ID, err)
	}
	return nil
}
