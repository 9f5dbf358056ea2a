package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishAdjustmentEvent publishes a ledger event keyed by SKU
func (ep *EventPublisher) PublishAdjustmentEvent(ctx context.Context, event *models.AdjustmentEvent) error {
	return ep.producer.PublishEvent(ctx, skuKey(event.SKU), event.EventType, event)
}

// PublishProductEvent publishes a catalog event keyed by SKU
func (ep *EventPublisher) PublishProductEvent(ctx context.Context, event *models.ProductEvent) error {
	return ep.producer.PublishEvent(ctx, skuKey(event.SKU), event.EventType, event)
}

func skuKey(sku string) string {
	return fmt.Sprintf("sku-%s", sku)
}

// EventHandler handles incoming events
type EventHandler struct {
	onAdjustment func(context.Context, *models.AdjustmentEvent) error
	onProduct    func(context.Context, *models.ProductEvent) error
	logger       *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnAdjustmentEvent registers a handler for every ADJUSTMENT_* event
func (eh *EventHandler) OnAdjustmentEvent(handler func(context.Context, *models.AdjustmentEvent) error) {
	eh.onAdjustment = handler
}

// OnProductEvent registers a handler for every PRODUCT_* event
func (eh *EventHandler) OnProductEvent(handler func(context.Context, *models.ProductEvent) error) {
	eh.onProduct = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("%w: failed to unmarshal base event: %v", ErrMalformedMessage, err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeAdjustmentCreated, models.EventTypeAdjustmentUpdated, models.EventTypeAdjustmentDeleted:
		if eh.onAdjustment != nil {
			var event models.AdjustmentEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: failed to unmarshal %s event: %v", ErrMalformedMessage, baseEvent.EventType, err)
			}
			return eh.onAdjustment(ctx, &event)
		}

	case models.EventTypeProductCreated, models.EventTypeProductUpdated, models.EventTypeProductDeleted:
		if eh.onProduct != nil {
			var event models.ProductEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: failed to unmarshal %s event: %v", ErrMalformedMessage, baseEvent.EventType, err)
			}
			return eh.onProduct(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
