package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inventory-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*LedgerService, *memStore, *fakePublisher) {
	t.Helper()
	ms := newMemStore()
	pub := &fakePublisher{}
	return NewLedgerService(ms, nil, pub, time.Hour), ms, pub
}

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(v string) *string { return &v }

func TestCreateStockInOverdrawAndDrain(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "100")
	ctx := context.Background()

	// 10 units in at 100 each
	adj, err := ledger.Create(ctx, "P", 10)
	require.NoError(t, err)
	assert.Equal(t, "1000", adj.Amount.String())
	stock, err := ledger.CurrentStock(ctx, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stock)

	// withdrawing more than is on hand leaves stock untouched
	_, err = ledger.Create(ctx, "P", -15)
	nse, ok := IsNegativeStock(err)
	require.True(t, ok, "expected NegativeStockError, got %v", err)
	assert.Equal(t, int64(10), nse.CurrentStock)
	assert.Equal(t, int64(-15), nse.RequestedQty)
	stock, _ = ledger.CurrentStock(ctx, "P", 0)
	assert.Equal(t, int64(10), stock)

	// taking out everything is allowed
	adj, err = ledger.Create(ctx, "P", -10)
	require.NoError(t, err)
	assert.Equal(t, "1000", adj.Amount.String())
	stock, _ = ledger.CurrentStock(ctx, "P", 0)
	assert.Equal(t, int64(0), stock)
}

func TestCreateUnknownSKU(t *testing.T) {
	ledger, ms, pub := newTestLedger(t)

	_, err := ledger.Create(context.Background(), "UNKNOWN-SKU", 5)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, ms.adjustments)
	assert.Empty(t, pub.adjustments)
}

func TestCreateZeroQty(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("Z", "12.50")

	adj, err := ledger.Create(context.Background(), "Z", 0)
	require.NoError(t, err)
	assert.True(t, adj.Amount.IsZero())
	assert.Len(t, ms.adjustments, 1)
}

func TestQtyOutsideIntegerRangeIsRejected(t *testing.T) {
	ledger, ms, pub := newTestLedger(t)
	ms.addProduct("P", "1")

	for _, qty := range []int64{math.MaxInt64, MaxQty + 1, MinQty - 1} {
		_, err := ledger.Create(context.Background(), "P", qty)
		assert.ErrorIs(t, err, ErrQtyOutOfRange)
	}
	assert.Empty(t, ms.adjustments)

	adj, err := ledger.Create(context.Background(), "P", MaxQty)
	require.NoError(t, err)

	_, err = ledger.Update(context.Background(), adj.ID, AdjustmentPatch{Qty: int64Ptr(MaxQty + 1)})
	assert.ErrorIs(t, err, ErrQtyOutOfRange)
	assert.Equal(t, int64(MaxQty), ms.adjustments[adj.ID].Qty)
	assert.Len(t, pub.adjustments, 1)
}

func TestCreateStorageFailureIsWrapped(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "1")
	storageErr := errors.New("connection reset")
	ms.failSum = storageErr

	_, err := ledger.Create(context.Background(), "P", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, storageErr)
	_, ok := IsNegativeStock(err)
	assert.False(t, ok)
}

func TestUpdateExcludesOwnContribution(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "10")
	ctx := context.Background()

	x, err := ledger.Create(ctx, "P", 5)
	require.NoError(t, err)

	// Counting X itself would allow -5 (5 + -5 = 0); excluding it must not.
	_, err = ledger.Update(ctx, x.ID, AdjustmentPatch{Qty: int64Ptr(-3)})
	nse, ok := IsNegativeStock(err)
	require.True(t, ok, "expected NegativeStockError, got %v", err)
	assert.Equal(t, int64(0), nse.CurrentStock)
	assert.Equal(t, int64(-3), nse.RequestedQty)

	// Raising X is validated against 0, not 5.
	updated, err := ledger.Update(ctx, x.ID, AdjustmentPatch{Qty: int64Ptr(8)})
	require.NoError(t, err)
	assert.Equal(t, int64(8), updated.Qty)
	assert.Equal(t, "80", updated.Amount.String())

	stock, _ := ledger.CurrentStock(ctx, "P", 0)
	assert.Equal(t, int64(8), stock)
}

func TestUpdateWithOtherAdjustments(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "2")
	ctx := context.Background()

	_, err := ledger.Create(ctx, "P", 10)
	require.NoError(t, err)
	x, err := ledger.Create(ctx, "P", -2)
	require.NoError(t, err)

	updated, err := ledger.Update(ctx, x.ID, AdjustmentPatch{Qty: int64Ptr(-10)})
	require.NoError(t, err)
	assert.Equal(t, "20", updated.Amount.String())

	_, err = ledger.Update(ctx, x.ID, AdjustmentPatch{Qty: int64Ptr(-11)})
	_, ok := IsNegativeStock(err)
	assert.True(t, ok)
}

func TestUpdateMovesToAnotherSKU(t *testing.T) {
	ledger, ms, pub := newTestLedger(t)
	ms.addProduct("A", "1")
	ms.addProduct("B", "3")
	ctx := context.Background()

	x, err := ledger.Create(ctx, "A", 4)
	require.NoError(t, err)

	updated, err := ledger.Update(ctx, x.ID, AdjustmentPatch{SKU: stringPtr("B")})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.SKU)
	assert.Equal(t, int64(4), updated.Qty)
	assert.Equal(t, "12", updated.Amount.String())

	stockA, _ := ledger.CurrentStock(ctx, "A", 0)
	stockB, _ := ledger.CurrentStock(ctx, "B", 0)
	assert.Equal(t, int64(0), stockA)
	assert.Equal(t, int64(4), stockB)

	last := pub.adjustments[len(pub.adjustments)-1]
	assert.Equal(t, models.EventTypeAdjustmentUpdated, last.EventType)
	assert.Equal(t, "A", last.PreviousSKU)
	assert.ElementsMatch(t, []string{"A", "B"}, last.AffectedSKUs())
}

func TestUpdateEmptySKUKeepsCurrent(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "1")
	ctx := context.Background()

	x, err := ledger.Create(ctx, "P", 1)
	require.NoError(t, err)

	updated, err := ledger.Update(ctx, x.ID, AdjustmentPatch{SKU: stringPtr(""), Qty: int64Ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, "P", updated.SKU)
}

func TestUpdateNotFound(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "1")
	ctx := context.Background()

	_, err := ledger.Update(ctx, 404, AdjustmentPatch{Qty: int64Ptr(1)})
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	x, err := ledger.Create(ctx, "P", 1)
	require.NoError(t, err)
	_, err = ledger.Update(ctx, x.ID, AdjustmentPatch{SKU: stringPtr("MISSING")})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteAdjustment(t *testing.T) {
	ledger, ms, pub := newTestLedger(t)
	ms.addProduct("P", "1")
	ctx := context.Background()

	x, err := ledger.Create(ctx, "P", 3)
	require.NoError(t, err)

	deleted, err := ledger.Delete(ctx, x.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = ledger.Delete(ctx, x.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = ledger.Get(ctx, x.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	last := pub.adjustments[len(pub.adjustments)-1]
	assert.Equal(t, models.EventTypeAdjustmentDeleted, last.EventType)
	assert.Equal(t, x.ID, last.AdjustmentID)
}

func TestCurrentStockIsStable(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "1")
	ctx := context.Background()

	stock, err := ledger.CurrentStock(ctx, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)

	_, err = ledger.Create(ctx, "P", 7)
	require.NoError(t, err)

	first, err := ledger.CurrentStock(ctx, "P", 0)
	require.NoError(t, err)
	second, err := ledger.CurrentStock(ctx, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAmountIsPriceTimesAbsQty(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "19.99")
	ctx := context.Background()

	in, err := ledger.Create(ctx, "P", 3)
	require.NoError(t, err)
	out, err := ledger.Create(ctx, "P", -2)
	require.NoError(t, err)

	assert.True(t, in.Amount.Equal(decimal.RequireFromString("59.97")))
	assert.True(t, out.Amount.Equal(decimal.RequireFromString("39.98")))
}

func TestStockNeverNegativeAcrossOperations(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "1")
	ctx := context.Background()

	ops := []int64{5, -3, -3, 4, -6, -1, 2, -2}
	var ids []int64
	for _, qty := range ops {
		adj, err := ledger.Create(ctx, "P", qty)
		if err == nil {
			ids = append(ids, adj.ID)
		}
		stock, _ := ledger.CurrentStock(ctx, "P", 0)
		assert.GreaterOrEqual(t, stock, int64(0))
	}

	for _, id := range ids {
		_, _ = ledger.Update(ctx, id, AdjustmentPatch{Qty: int64Ptr(-4)})
		stock, _ := ledger.CurrentStock(ctx, "P", 0)
		assert.GreaterOrEqual(t, stock, int64(0))
	}
}

func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("P", "1")
	ctx := context.Background()

	_, err := ledger.Create(ctx, "P", 5)
	require.NoError(t, err)

	const workers = 20
	var succeeded int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Create(ctx, "P", -1); err == nil {
				atomic.AddInt64(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), succeeded)
	stock, err := ledger.CurrentStock(ctx, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)
}

func TestCreateWithKeyReplays(t *testing.T) {
	ms := newMemStore()
	ms.addProduct("P", "2")
	idem := newFakeIdempotency()
	ledger := NewLedgerService(ms, idem, nil, time.Hour)
	ctx := context.Background()

	first, replayed, err := ledger.CreateWithKey(ctx, "key-1", "P", 4)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := ledger.CreateWithKey(ctx, "key-1", "P", 4)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	stock, _ := ledger.CurrentStock(ctx, "P", 0)
	assert.Equal(t, int64(4), stock)
}

func TestCreateWithKeyPending(t *testing.T) {
	ms := newMemStore()
	ms.addProduct("P", "2")
	idem := newFakeIdempotency()
	ledger := NewLedgerService(ms, idem, nil, time.Hour)
	ctx := context.Background()

	_, claimed, err := idem.ClaimIdempotencyKey(ctx, "busy", time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	_, _, err = ledger.CreateWithKey(ctx, "busy", "P", 1)
	assert.ErrorIs(t, err, ErrRequestInProgress)
	assert.Empty(t, ms.adjustments)
}

func TestCreateWithKeyReleasesOnFailure(t *testing.T) {
	ms := newMemStore()
	ms.addProduct("P", "2")
	idem := newFakeIdempotency()
	ledger := NewLedgerService(ms, idem, nil, time.Hour)
	ctx := context.Background()

	_, _, err := ledger.CreateWithKey(ctx, "retry-me", "P", -1)
	_, ok := IsNegativeStock(err)
	require.True(t, ok)
	assert.Equal(t, []string{"retry-me"}, idem.released)

	// The same key can be used again once the first attempt failed.
	adj, replayed, err := ledger.CreateWithKey(ctx, "retry-me", "P", 1)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(1), adj.Qty)
}

func TestCreateWithKeyFallsBackWhenCacheDown(t *testing.T) {
	ms := newMemStore()
	ms.addProduct("P", "2")
	idem := newFakeIdempotency()
	idem.err = errors.New("redis: connection refused")
	ledger := NewLedgerService(ms, idem, nil, time.Hour)

	adj, replayed, err := ledger.CreateWithKey(context.Background(), "k", "P", 1)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotZero(t, adj.ID)
}

func TestPublishFailureDoesNotFailCreate(t *testing.T) {
	ms := newMemStore()
	ms.addProduct("P", "2")
	pub := &fakePublisher{err: errors.New("kafka down")}
	ledger := NewLedgerService(ms, nil, pub, time.Hour)

	adj, err := ledger.Create(context.Background(), "P", 1)
	require.NoError(t, err)
	assert.NotNil(t, adj)
	require.Len(t, pub.adjustments, 1)
	assert.Equal(t, models.EventTypeAdjustmentCreated, pub.adjustments[0].EventType)
	assert.Equal(t, "2.00", pub.adjustments[0].Amount)
}

func TestListAdjustments(t *testing.T) {
	ledger, ms, _ := newTestLedger(t)
	ms.addProduct("ABC-1", "5")
	ms.addProduct("XYZ-1", "5")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ledger.Create(ctx, "ABC-1", 1)
		require.NoError(t, err)
	}
	_, err := ledger.Create(ctx, "XYZ-1", 1)
	require.NoError(t, err)

	result, err := ledger.List(ctx, 1, 2, "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.TotalPages)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "5", result.Data[0].Price.String())

	result, err = ledger.List(ctx, 5, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Pagination.Total)
	assert.Equal(t, 10, result.Pagination.Limit)
	assert.Empty(t, result.Data)
	assert.NotNil(t, result.Data)
}
