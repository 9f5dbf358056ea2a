package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const productColumns = `p.id, p.sku, p.title, COALESCE(p.image, '') AS image, p.price,
	COALESCE(p.description, '') AS description, p.created_at, p.updated_at`

// ListProducts returns one page of products with their current stock,
// newest first. Search matches title or SKU case-insensitively.
func (s *Store) ListProducts(ctx context.Context, filter ListFilter) ([]models.ProductWithStock, int, error) {
	where := ""
	args := []interface{}{filter.Limit, filter.Offset}
	countArgs := []interface{}{}
	countWhere := ""

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = "WHERE p.title ILIKE $3 OR p.sku ILIKE $3"
		countWhere = "WHERE p.title ILIKE $1 OR p.sku ILIKE $1"
		args = append(args, pattern)
		countArgs = append(countArgs, pattern)
	}

	query := fmt.Sprintf(`
		SELECT %s, COALESCE(SUM(a.qty), 0) AS stock
		FROM products p
		LEFT JOIN adjustment_transactions a ON a.sku = p.sku
		%s
		GROUP BY p.id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2`, productColumns, where)

	var products []models.ProductWithStock
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM products p " + countWhere
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, total, nil
}

// GetProductWithStock retrieves a product and its current stock
func (s *Store) GetProductWithStock(ctx context.Context, sku string) (*models.ProductWithStock, error) {
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(SUM(a.qty), 0) AS stock
		FROM products p
		LEFT JOIN adjustment_transactions a ON a.sku = p.sku
		WHERE p.sku = $1
		GROUP BY p.id`, productColumns)

	var product models.ProductWithStock
	err := s.db.GetContext(ctx, &product, query, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", sku, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		fmt.Sprintf("SELECT %s FROM products p WHERE p.sku = $1", productColumns), sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", sku, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (title, sku, image, price, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, product, query,
		product.Title, product.SKU, product.Image, product.Price, product.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %s: %w", product.SKU, ErrDuplicateSKU)
	}
	return err
}

// UpdateProduct overwrites the mutable fields of the product identified by SKU
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET title = $1, image = $2, price = $3, description = $4, updated_at = NOW()
		WHERE sku = $5
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, product, query,
		product.Title, product.Image, product.Price, product.Description, product.SKU)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %s: %w", product.SKU, ErrNotFound)
	}
	return err
}

// DeleteProduct removes a product; its adjustments go with it (ON DELETE CASCADE)
func (s *Store) DeleteProduct(ctx context.Context, sku string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		// Adjustments before the product, the same order Update takes them.
		var ids []int64
		if err := tx.SelectContext(ctx, &ids,
			"SELECT id FROM adjustment_transactions WHERE sku = $1 ORDER BY id FOR UPDATE", sku); err != nil {
			return fmt.Errorf("failed to lock adjustments of %s: %w", sku, err)
		}

		var id int64
		err := tx.GetContext(ctx, &id, "SELECT id FROM products WHERE sku = $1 FOR UPDATE", sku)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock product %s: %w", sku, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// InsertProductIfAbsent inserts the product unless its SKU already exists.
// Reports whether a row was inserted.
func (s *Store) InsertProductIfAbsent(ctx context.Context, product *models.Product) (bool, error) {
	query := `
		INSERT INTO products (title, sku, image, price, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sku) DO NOTHING
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, product, query,
		product.Title, product.SKU, product.Image, product.Price, product.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListSKUs returns every product SKU
func (s *Store) ListSKUs(ctx context.Context) ([]string, error) {
	var skus []string
	err := s.db.SelectContext(ctx, &skus, "SELECT sku FROM products ORDER BY id")
	return skus, err
}
