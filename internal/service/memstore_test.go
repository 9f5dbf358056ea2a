package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory LedgerStore and CatalogStore. RunInTx holds a
// single lock for the whole transaction, so it says nothing about the row
// locks of the Postgres store; ledger_postgres_test.go covers those.
type memStore struct {
	txMu sync.Mutex

	mu          sync.Mutex
	products    map[string]*models.Product
	adjustments map[int64]*models.Adjustment
	nextProduct int64
	nextAdj     int64

	failSum error
}

var (
	_ store.LedgerStore  = (*memStore)(nil)
	_ store.CatalogStore = (*memStore)(nil)
	_ StockReader        = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		products:    make(map[string]*models.Product),
		adjustments: make(map[int64]*models.Adjustment),
	}
}

func (m *memStore) addProduct(sku, price string) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProduct++
	p := &models.Product{ID: m.nextProduct, SKU: sku, Title: "Product " + sku, Price: decimal.RequireFromString(price)}
	m.products[sku] = p
	return p
}

func (m *memStore) sum(sku string, excludeID int64) int64 {
	var total int64
	for id, adj := range m.adjustments {
		if adj.SKU == sku && id != excludeID {
			total += adj.Qty
		}
	}
	return total
}

func (m *memStore) RunInTx(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{m: m})
}

func (m *memStore) SumQty(_ context.Context, sku string, excludeID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSum != nil {
		return 0, m.failSum
	}
	return m.sum(sku, excludeID), nil
}

func (m *memStore) GetAdjustment(_ context.Context, id int64) (*models.AdjustmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	adj, ok := m.adjustments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.AdjustmentView{Adjustment: *adj, Price: m.products[adj.SKU].Price}, nil
}

func (m *memStore) ListAdjustments(_ context.Context, filter store.ListFilter) ([]models.AdjustmentView, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []models.AdjustmentView
	for _, adj := range m.adjustments {
		if filter.Search != "" && !strings.Contains(strings.ToLower(adj.SKU), strings.ToLower(filter.Search)) {
			continue
		}
		rows = append(rows, models.AdjustmentView{Adjustment: *adj, Price: m.products[adj.SKU].Price})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return page(rows, filter), len(rows), nil
}

func (m *memStore) DeleteAdjustment(_ context.Context, id int64) (*models.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	adj, ok := m.adjustments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.adjustments, id)
	return adj, nil
}

func (m *memStore) ListProducts(_ context.Context, filter store.ListFilter) ([]models.ProductWithStock, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	term := strings.ToLower(filter.Search)
	var rows []models.ProductWithStock
	for _, p := range m.products {
		if term != "" && !strings.Contains(strings.ToLower(p.SKU), term) && !strings.Contains(strings.ToLower(p.Title), term) {
			continue
		}
		rows = append(rows, models.ProductWithStock{Product: *p, Stock: m.sum(p.SKU, 0)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return page(rows, filter), len(rows), nil
}

func (m *memStore) GetProductWithStock(_ context.Context, sku string) (*models.ProductWithStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.ProductWithStock{Product: *p, Stock: m.sum(sku, 0)}, nil
}

func (m *memStore) GetProductBySKU(_ context.Context, sku string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreateProduct(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.SKU]; ok {
		return store.ErrDuplicateSKU
	}
	m.nextProduct++
	product.ID = m.nextProduct
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	cp := *product
	m.products[product.SKU] = &cp
	return nil
}

func (m *memStore) UpdateProduct(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.SKU]; !ok {
		return store.ErrNotFound
	}
	product.UpdatedAt = time.Now()
	cp := *product
	m.products[product.SKU] = &cp
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, sku string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[sku]; !ok {
		return false, nil
	}
	delete(m.products, sku)
	for id, adj := range m.adjustments {
		if adj.SKU == sku {
			delete(m.adjustments, id)
		}
	}
	return true, nil
}

func (m *memStore) InsertProductIfAbsent(ctx context.Context, product *models.Product) (bool, error) {
	err := m.CreateProduct(ctx, product)
	if errors.Is(err, store.ErrDuplicateSKU) {
		return false, nil
	}
	return err == nil, err
}

func (m *memStore) ListSKUs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	skus := make([]string, 0, len(m.products))
	for sku := range m.products {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus, nil
}

func page[T any](rows []T, filter store.ListFilter) []T {
	if filter.Offset >= len(rows) {
		return nil
	}
	end := filter.Offset + filter.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[filter.Offset:end]
}

type memTx struct {
	m *memStore
}

func (t *memTx) LockProduct(_ context.Context, sku string) (*models.Product, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	p, ok := t.m.products[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) LockAdjustment(_ context.Context, id int64) (*models.Adjustment, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	adj, ok := t.m.adjustments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *adj
	return &cp, nil
}

func (t *memTx) SumQty(ctx context.Context, sku string, excludeID int64) (int64, error) {
	return t.m.SumQty(ctx, sku, excludeID)
}

func (t *memTx) InsertAdjustment(_ context.Context, adj *models.Adjustment) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.nextAdj++
	adj.ID = t.m.nextAdj
	adj.CreatedAt = time.Now()
	adj.UpdatedAt = adj.CreatedAt
	cp := *adj
	t.m.adjustments[adj.ID] = &cp
	return nil
}

func (t *memTx) UpdateAdjustment(_ context.Context, adj *models.Adjustment) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	existing, ok := t.m.adjustments[adj.ID]
	if !ok {
		return store.ErrNotFound
	}
	adj.CreatedAt = existing.CreatedAt
	adj.UpdatedAt = time.Now()
	cp := *adj
	t.m.adjustments[adj.ID] = &cp
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu          sync.Mutex
	adjustments []*models.AdjustmentEvent
	products    []*models.ProductEvent
	err         error
}

func (p *fakePublisher) PublishAdjustmentEvent(_ context.Context, event *models.AdjustmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adjustments = append(p.adjustments, event)
	return p.err
}

func (p *fakePublisher) PublishProductEvent(_ context.Context, event *models.ProductEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.products = append(p.products, event)
	return p.err
}

// fakeIdempotency mimics the Redis claim script
type fakeIdempotency struct {
	mu       sync.Mutex
	values   map[string]string
	err      error
	released []string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{values: make(map[string]string)}
}

func (f *fakeIdempotency) ClaimIdempotencyKey(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	if v, ok := f.values[key]; ok {
		return v, false, nil
	}
	f.values[key] = redisclient.PendingMarker
	return "", true, nil
}

func (f *fakeIdempotency) CompleteIdempotencyKey(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeIdempotency) ReleaseIdempotencyKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	f.released = append(f.released, key)
	return nil
}
