package service

import (
	"context"
	"sync"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// StockReader is the read side the monitor needs
type StockReader interface {
	SumQty(ctx context.Context, sku string, excludeID int64) (int64, error)
	ListSKUs(ctx context.Context) ([]string, error)
}

// StockMonitor tracks stock levels from ledger events and warns when a SKU
// drops below the configured threshold
type StockMonitor struct {
	reader    StockReader
	threshold int64
	logger    *zap.Logger

	mu  sync.Mutex
	low map[string]bool
}

// NewStockMonitor creates a new stock monitor
func NewStockMonitor(reader StockReader, threshold int64) *StockMonitor {
	return &StockMonitor{
		reader:    reader,
		threshold: threshold,
		logger:    util.GetLogger(),
		low:       make(map[string]bool),
	}
}

// HandleAdjustmentEvent refreshes every SKU the event touched
func (m *StockMonitor) HandleAdjustmentEvent(ctx context.Context, event *models.AdjustmentEvent) error {
	for _, sku := range event.AffectedSKUs() {
		if _, err := m.Refresh(ctx, sku); err != nil {
			return err
		}
	}
	return nil
}

// HandleProductEvent starts tracking new products and forgets deleted ones
func (m *StockMonitor) HandleProductEvent(ctx context.Context, event *models.ProductEvent) error {
	if event.EventType == models.EventTypeProductDeleted {
		m.Forget(event.SKU)
		return nil
	}
	_, err := m.Refresh(ctx, event.SKU)
	return err
}

// Refresh reads the current stock of sku and updates the gauge. An alert is
// raised only when the SKU crosses from at-or-above to below the threshold.
func (m *StockMonitor) Refresh(ctx context.Context, sku string) (int64, error) {
	stock, err := m.reader.SumQty(ctx, sku, 0)
	if err != nil {
		m.logger.Error("Failed to read stock", zap.String("sku", sku), zap.Error(err))
		return 0, err
	}

	util.StockLevel.WithLabelValues(sku).Set(float64(stock))

	m.mu.Lock()
	wasLow := m.low[sku]
	isLow := stock < m.threshold
	m.low[sku] = isLow
	m.mu.Unlock()

	if isLow && !wasLow {
		util.LowStockAlertsTotal.WithLabelValues(sku).Inc()
		m.logger.Warn("Low stock",
			zap.String("sku", sku),
			zap.Int64("stock", stock),
			zap.Int64("threshold", m.threshold))
	}
	return stock, nil
}

// Forget drops all state kept for sku
func (m *StockMonitor) Forget(sku string) {
	m.mu.Lock()
	delete(m.low, sku)
	m.mu.Unlock()

	util.StockLevel.DeleteLabelValues(sku)
}

// IsLow reports whether sku was below the threshold at its last refresh
func (m *StockMonitor) IsLow(sku string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.low[sku]
}

// SyncAll refreshes every SKU in the catalog. Used at startup so the gauges
// are populated before the first event arrives.
func (m *StockMonitor) SyncAll(ctx context.Context) error {
	skus, err := m.reader.ListSKUs(ctx)
	if err != nil {
		return err
	}

	for _, sku := range skus {
		if _, err := m.Refresh(ctx, sku); err != nil {
			return err
		}
	}

	m.logger.Info("Stock levels synced", zap.Int("skus", len(skus)))
	return nil
}
