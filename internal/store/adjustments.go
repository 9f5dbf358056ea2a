package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const adjustmentColumns = "a.id, a.sku, a.qty, a.amount, a.created_at, a.updated_at"

// SumQty returns the current stock for a SKU: the sum of all adjustment
// quantities, skipping excludeID when it is non-zero.
func (s *Store) SumQty(ctx context.Context, sku string, excludeID int64) (int64, error) {
	return sumQty(ctx, s.db, sku, excludeID)
}

func sumQty(ctx context.Context, q sqlx.QueryerContext, sku string, excludeID int64) (int64, error) {
	query := "SELECT COALESCE(SUM(qty), 0) FROM adjustment_transactions WHERE sku = $1"
	args := []interface{}{sku}
	if excludeID != 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var stock int64
	if err := sqlx.GetContext(ctx, q, &stock, query, args...); err != nil {
		return 0, fmt.Errorf("failed to sum stock for %s: %w", sku, err)
	}
	return stock, nil
}

// GetAdjustment retrieves an adjustment joined with its product's price
func (s *Store) GetAdjustment(ctx context.Context, id int64) (*models.AdjustmentView, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.price
		FROM adjustment_transactions a
		JOIN products p ON p.sku = a.sku
		WHERE a.id = $1`, adjustmentColumns)

	var adj models.AdjustmentView
	err := s.db.GetContext(ctx, &adj, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjustment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &adj, nil
}

// ListAdjustments returns one page of adjustments, newest first.
// Search matches the SKU case-insensitively as a substring.
func (s *Store) ListAdjustments(ctx context.Context, filter ListFilter) ([]models.AdjustmentView, int, error) {
	where := ""
	countWhere := ""
	args := []interface{}{filter.Limit, filter.Offset}
	countArgs := []interface{}{}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = "WHERE a.sku ILIKE $3"
		countWhere = "WHERE a.sku ILIKE $1"
		args = append(args, pattern)
		countArgs = append(countArgs, pattern)
	}

	query := fmt.Sprintf(`
		SELECT %s, p.price
		FROM adjustment_transactions a
		JOIN products p ON p.sku = a.sku
		%s
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $1 OFFSET $2`, adjustmentColumns, where)

	var adjustments []models.AdjustmentView
	if err := s.db.SelectContext(ctx, &adjustments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list adjustments: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM adjustment_transactions a " + countWhere
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count adjustments: %w", err)
	}

	return adjustments, total, nil
}

// DeleteAdjustment removes an adjustment and returns the deleted row
func (s *Store) DeleteAdjustment(ctx context.Context, id int64) (*models.Adjustment, error) {
	query := `
		DELETE FROM adjustment_transactions a
		WHERE a.id = $1
		RETURNING ` + adjustmentColumns

	var adj models.Adjustment
	err := s.db.GetContext(ctx, &adj, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjustment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &adj, nil
}
