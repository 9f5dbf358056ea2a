package worker

import (
	"context"
	"time"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource delivers broker messages to a handler until ctx ends
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// StockTracker reacts to inventory events and can rebuild its view from
// the store
type StockTracker interface {
	HandleAdjustmentEvent(ctx context.Context, event *models.AdjustmentEvent) error
	HandleProductEvent(ctx context.Context, event *models.ProductEvent) error
	SyncAll(ctx context.Context) error
}

// StockWorker feeds inventory events into the stock tracker
type StockWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewStockWorker creates a new stock worker
func NewStockWorker(consumer MessageSource, tracker StockTracker) *StockWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnAdjustmentEvent(tracker.HandleAdjustmentEvent)
	eventHandler.OnProductEvent(tracker.HandleProductEvent)

	return &StockWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes events until ctx is cancelled
func (w *StockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the underlying consumer
func (w *StockWorker) Stop() error {
	w.logger.Info("Stopping stock worker")
	return w.consumer.Close()
}

// ReconcileWorker periodically rebuilds stock levels from the store so
// gauges recover from events that were never delivered
type ReconcileWorker struct {
	tracker  StockTracker
	interval time.Duration
	logger   *zap.Logger
}

// DefaultReconcileInterval is used when a non-positive interval is given
const DefaultReconcileInterval = 5 * time.Minute

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(tracker StockTracker, interval time.Duration) *ReconcileWorker {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &ReconcileWorker{
		tracker:  tracker,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs one sync per interval until ctx is cancelled
func (rw *ReconcileWorker) Start(ctx context.Context) error {
	rw.logger.Info("Starting reconcile worker", zap.Duration("interval", rw.interval))

	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("Stopping reconcile worker")
			return ctx.Err()
		case <-ticker.C:
			if err := rw.tracker.SyncAll(ctx); err != nil {
				rw.logger.Error("Stock reconciliation failed", zap.Error(err))
			}
		}
	}
}
