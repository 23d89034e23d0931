package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

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

func (ep *EventPublisher) publish(ctx context.Context, eventType, key string, event interface{}) error {
	err := ep.producer.PublishEvent(ctx, key, event)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	util.EventsPublishedTotal.WithLabelValues(eventType, outcome).Inc()
	return err
}

// PublishTransactionCreated publishes TransactionCreated event
func (ep *EventPublisher) PublishTransactionCreated(ctx context.Context, event *models.TransactionCreatedEvent) error {
	return ep.publish(ctx, event.EventType, "transaction-"+event.TransactionID, event)
}

// PublishTransactionStatusChanged publishes TransactionStatusChanged event
func (ep *EventPublisher) PublishTransactionStatusChanged(ctx context.Context, event *models.TransactionStatusChangedEvent) error {
	return ep.publish(ctx, event.EventType, "transaction-"+event.TransactionID, event)
}

// PublishCatalogChanged publishes CatalogChanged event
func (ep *EventPublisher) PublishCatalogChanged(ctx context.Context, event *models.CatalogChangedEvent) error {
	return ep.publish(ctx, event.EventType, event.Entity+"-"+event.EntityID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onTransactionCreated       func(context.Context, *models.TransactionCreatedEvent) error
	onTransactionStatusChanged func(context.Context, *models.TransactionStatusChangedEvent) error
	onCatalogChanged           func(context.Context, *models.CatalogChangedEvent) error
	logger                     *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnTransactionCreated registers a handler for TransactionCreated events
func (eh *EventHandler) OnTransactionCreated(handler func(context.Context, *models.TransactionCreatedEvent) error) {
	eh.onTransactionCreated = handler
}

// OnTransactionStatusChanged registers a handler for TransactionStatusChanged events
func (eh *EventHandler) OnTransactionStatusChanged(handler func(context.Context, *models.TransactionStatusChangedEvent) error) {
	eh.onTransactionStatusChanged = handler
}

// OnCatalogChanged registers a handler for CatalogChanged events
func (eh *EventHandler) OnCatalogChanged(handler func(context.Context, *models.CatalogChangedEvent) error) {
	eh.onCatalogChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event", zap.String("type", baseEvent.EventType), zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeTransactionCreated:
		if eh.onTransactionCreated != nil {
			var event models.TransactionCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionCreated event: %w", err)
			}
			return eh.onTransactionCreated(ctx, &event)
		}

	case models.EventTypeTransactionStatusChanged:
		if eh.onTransactionStatusChanged != nil {
			var event models.TransactionStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TransactionStatusChanged event: %w", err)
			}
			return eh.onTransactionStatusChanged(ctx, &event)
		}

	case models.EventTypeCatalogChanged:
		if eh.onCatalogChanged != nil {
			var event models.CatalogChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CatalogChanged event: %w", err)
			}
			return eh.onCatalogChanged(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
