package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes inventory events
type EventPublisher interface {
	PublishAdjustmentEvent(ctx context.Context, event *models.AdjustmentEvent) error
	PublishProductEvent(ctx context.Context, event *models.ProductEvent) error
}

// IdempotencyStore remembers which request produced which adjustment
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// LedgerService maintains per-SKU stock as the running sum of adjustment
// quantities and rejects every mutation that would make it negative.
type LedgerService struct {
	store          store.LedgerStore
	idempotency    IdempotencyStore
	eventPublisher EventPublisher
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewLedgerService creates a new ledger service. idempotency and
// eventPublisher may be nil.
func NewLedgerService(
	store store.LedgerStore,
	idempotency IdempotencyStore,
	eventPublisher EventPublisher,
	idempotencyTTL time.Duration,
) *LedgerService {
	return &LedgerService{
		store:          store,
		idempotency:    idempotency,
		eventPublisher: eventPublisher,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// CreateAdjustmentRequest represents a request to create an adjustment
type CreateAdjustmentRequest struct {
	SKU            string `json:"sku" binding:"required"`
	Qty            *int64 `json:"qty" binding:"required,min=-2147483648,max=2147483647"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AdjustmentPatch carries the optional fields of an adjustment update.
// Nil fields keep their current value.
type AdjustmentPatch struct {
	SKU *string `json:"sku,omitempty"`
	Qty *int64  `json:"qty,omitempty" binding:"omitempty,min=-2147483648,max=2147483647"`
}

// Create records a stock change for sku
func (s *LedgerService) Create(ctx context.Context, sku string, qty int64) (*models.Adjustment, error) {
	ctx, span := util.StartSKUSpan(ctx, "LedgerService.Create", sku)
	defer span.End()

	start := time.Now()
	defer func() {
		util.LedgerOperationLatency.WithLabelValues("create").Observe(time.Since(start).Seconds())
	}()

	if err := validateQty(qty); err != nil {
		s.recordRejection("create", err)
		return nil, err
	}

	var adj *models.Adjustment
	err := s.store.RunInTx(ctx, func(tx store.LedgerTx) error {
		product, err := tx.LockProduct(ctx, sku)
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}

		currentStock, err := tx.SumQty(ctx, sku, 0)
		if err != nil {
			return err
		}
		if currentStock+qty < 0 {
			return &NegativeStockError{SKU: sku, CurrentStock: currentStock, RequestedQty: qty}
		}

		adj = &models.Adjustment{
			SKU:    sku,
			Qty:    qty,
			Amount: models.AdjustmentAmount(product.Price, qty),
		}
		return tx.InsertAdjustment(ctx, adj)
	})
	if err != nil {
		s.recordRejection("create", err)
		util.RecordSpanError(span, err)
		return nil, s.wrap("create adjustment", err)
	}

	util.AdjustmentsCreatedTotal.Inc()
	s.logger.Info("Adjustment created",
		zap.Int64("adjustment_id", adj.ID),
		zap.String("sku", adj.SKU),
		zap.Int64("qty", adj.Qty),
		zap.String("amount", adj.Amount.String()))

	s.publish(ctx, models.EventTypeAdjustmentCreated, adj, nil)
	return adj, nil
}

// CreateWithKey is Create guarded by an idempotency key. A key that already
// produced an adjustment returns it again with replayed=true.
func (s *LedgerService) CreateWithKey(ctx context.Context, key, sku string, qty int64) (*models.Adjustment, bool, error) {
	if key == "" || s.idempotency == nil {
		adj, err := s.Create(ctx, sku, qty)
		return adj, false, err
	}

	existing, claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, key, s.idempotencyTTL)
	if err != nil {
		// Redis being down must not block stock movements.
		s.logger.Warn("Idempotency check failed, creating without key",
			zap.String("idempotency_key", key),
			zap.Error(err))
		adj, err := s.Create(ctx, sku, qty)
		return adj, false, err
	}

	if !claimed {
		return s.replay(ctx, key, existing)
	}

	adj, err := s.Create(ctx, sku, qty)
	if err != nil {
		if relErr := s.idempotency.ReleaseIdempotencyKey(ctx, key); relErr != nil {
			s.logger.Error("Failed to release idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(relErr))
		}
		return nil, false, err
	}

	if err := s.idempotency.CompleteIdempotencyKey(ctx, key, strconv.FormatInt(adj.ID, 10), s.idempotencyTTL); err != nil {
		s.logger.Error("Failed to store idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
	return adj, false, nil
}

func (s *LedgerService) replay(ctx context.Context, key, existing string) (*models.Adjustment, bool, error) {
	if existing == redisclient.PendingMarker {
		return nil, false, ErrRequestInProgress
	}

	id, err := strconv.ParseInt(existing, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency record for key %s: %w", key, err)
	}

	view, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	util.IdempotentReplaysTotal.Inc()
	s.logger.Info("Duplicate adjustment request detected",
		zap.String("idempotency_key", key),
		zap.Int64("adjustment_id", id))
	return &view.Adjustment, true, nil
}

// Update changes the SKU and/or quantity of an adjustment. The new quantity
// is validated against the destination SKU's stock without this
// adjustment's own previous contribution.
func (s *LedgerService) Update(ctx context.Context, id int64, patch AdjustmentPatch) (*models.Adjustment, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Update")
	defer span.End()

	start := time.Now()
	defer func() {
		util.LedgerOperationLatency.WithLabelValues("update").Observe(time.Since(start).Seconds())
	}()

	if patch.Qty != nil {
		if err := validateQty(*patch.Qty); err != nil {
			s.recordRejection("update", err)
			return nil, err
		}
	}

	var previous, updated models.Adjustment
	err := s.store.RunInTx(ctx, func(tx store.LedgerTx) error {
		current, err := tx.LockAdjustment(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrTransactionNotFound
		}
		if err != nil {
			return err
		}
		previous = *current

		newSKU := current.SKU
		if patch.SKU != nil && *patch.SKU != "" {
			newSKU = *patch.SKU
		}
		newQty := current.Qty
		if patch.Qty != nil {
			newQty = *patch.Qty
		}

		product, err := tx.LockProduct(ctx, newSKU)
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}

		currentStock, err := tx.SumQty(ctx, newSKU, id)
		if err != nil {
			return err
		}
		if currentStock+newQty < 0 {
			return &NegativeStockError{SKU: newSKU, CurrentStock: currentStock, RequestedQty: newQty}
		}

		updated = *current
		updated.SKU = newSKU
		updated.Qty = newQty
		updated.Amount = models.AdjustmentAmount(product.Price, newQty)
		return tx.UpdateAdjustment(ctx, &updated)
	})
	if err != nil {
		s.recordRejection("update", err)
		util.RecordSpanError(span, err)
		return nil, s.wrap("update adjustment", err)
	}

	util.AdjustmentsUpdatedTotal.Inc()
	s.logger.Info("Adjustment updated",
		zap.Int64("adjustment_id", id),
		zap.String("sku", updated.SKU),
		zap.Int64("qty", updated.Qty),
		zap.String("previous_sku", previous.SKU),
		zap.Int64("previous_qty", previous.Qty))

	s.publish(ctx, models.EventTypeAdjustmentUpdated, &updated, &previous)
	return &updated, nil
}

// Delete removes an adjustment without re-checking the stock invariant.
// It reports false when no adjustment has the given id.
func (s *LedgerService) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Delete")
	defer span.End()

	deleted, err := s.store.DeleteAdjustment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete adjustment: %w", err)
	}

	util.AdjustmentsDeletedTotal.Inc()
	s.logger.Info("Adjustment deleted",
		zap.Int64("adjustment_id", id),
		zap.String("sku", deleted.SKU),
		zap.Int64("qty", deleted.Qty))

	s.publish(ctx, models.EventTypeAdjustmentDeleted, deleted, nil)
	return true, nil
}

// CurrentStock returns the summed quantity for sku, skipping excludeID when
// it is non-zero. A SKU without adjustments has stock 0.
func (s *LedgerService) CurrentStock(ctx context.Context, sku string, excludeID int64) (int64, error) {
	ctx, span := util.StartSKUSpan(ctx, "LedgerService.CurrentStock", sku)
	defer span.End()

	return s.store.SumQty(ctx, sku, excludeID)
}

// Get retrieves one adjustment
func (s *LedgerService) Get(ctx context.Context, id int64) (*models.AdjustmentView, error) {
	adj, err := s.store.GetAdjustment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustment: %w", err)
	}
	return adj, nil
}

// List returns one page of adjustments, optionally filtered by SKU substring
func (s *LedgerService) List(ctx context.Context, page, limit int, sku string) (models.Page[models.AdjustmentView], error) {
	page, limit = models.NormalizePage(page, limit)

	rows, total, err := s.store.ListAdjustments(ctx, store.ListFilter{
		Search: sku,
		Limit:  limit,
		Offset: models.Offset(page, limit),
	})
	if err != nil {
		return models.Page[models.AdjustmentView]{}, err
	}
	return models.NewPage(rows, total, page, limit), nil
}

func (s *LedgerService) publish(ctx context.Context, eventType string, adj, previous *models.Adjustment) {
	if s.eventPublisher == nil {
		return
	}

	event := &models.AdjustmentEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		AdjustmentID: adj.ID,
		SKU:          adj.SKU,
		Qty:          adj.Qty,
		Amount:       adj.Amount.StringFixed(2),
	}
	if previous != nil {
		event.PreviousSKU = previous.SKU
		event.PreviousQty = previous.Qty
	}

	if err := s.eventPublisher.PublishAdjustmentEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish adjustment event",
			zap.String("event_type", eventType),
			zap.Int64("adjustment_id", adj.ID),
			zap.Error(err))
	}
}

func (s *LedgerService) recordRejection(op string, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		util.AdjustmentsRejectedTotal.WithLabelValues("product_not_found").Inc()
	case errors.Is(err, ErrTransactionNotFound):
		util.AdjustmentsRejectedTotal.WithLabelValues("transaction_not_found").Inc()
	case errors.Is(err, ErrQtyOutOfRange):
		util.AdjustmentsRejectedTotal.WithLabelValues("qty_out_of_range").Inc()
	default:
		if nse, ok := IsNegativeStock(err); ok {
			util.AdjustmentsRejectedTotal.WithLabelValues("negative_stock").Inc()
			s.logger.Info("Adjustment rejected: negative stock",
				zap.String("operation", op),
				zap.String("sku", nse.SKU),
				zap.Int64("current_stock", nse.CurrentStock),
				zap.Int64("requested_qty", nse.RequestedQty))
		}
	}
}

// wrap passes domain errors through untouched and wraps storage failures
func (s *LedgerService) wrap(op string, err error) error {
	if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrTransactionNotFound) {
		return err
	}
	if _, ok := IsNegativeStock(err); ok {
		return err
	}
	s.logger.Error("Ledger storage failure", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("failed to %s: %w", op, err)
}
