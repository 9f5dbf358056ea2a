package models

import "time"

// Event types
const (
	EventTypeAdjustmentCreated = "ADJUSTMENT_CREATED"
	EventTypeAdjustmentUpdated = "ADJUSTMENT_UPDATED"
	EventTypeAdjustmentDeleted = "ADJUSTMENT_DELETED"
	EventTypeProductCreated    = "PRODUCT_CREATED"
	EventTypeProductUpdated    = "PRODUCT_UPDATED"
	EventTypeProductDeleted    = "PRODUCT_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// AdjustmentEvent is published for every ledger mutation.
// PreviousSKU and PreviousQty are set on updates only.
type AdjustmentEvent struct {
	BaseEvent
	AdjustmentID int64  `json:"adjustment_id"`
	SKU          string `json:"sku"`
	Qty          int64  `json:"qty"`
	Amount       string `json:"amount"`
	PreviousSKU  string `json:"previous_sku,omitempty"`
	PreviousQty  int64  `json:"previous_qty,omitempty"`
}

// AffectedSKUs lists the SKUs whose stock may have changed
func (e *AdjustmentEvent) AffectedSKUs() []string {
	if e.PreviousSKU != "" && e.PreviousSKU != e.SKU {
		return []string{e.SKU, e.PreviousSKU}
	}
	return []string{e.SKU}
}

// ProductEvent is published for catalog changes
type ProductEvent struct {
	BaseEvent
	SKU   string `json:"sku"`
	Title string `json:"title,omitempty"`
	Price string `json:"price,omitempty"`
}
