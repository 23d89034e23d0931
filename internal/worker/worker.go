package worker

import (
	"context"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Broadcaster fans a typed message out to live subscribers
type Broadcaster interface {
	Broadcast(msgType string, v interface{}) error
}

// FeedWorker relays transaction events to the admin live feed.
// Each instance needs its own consumer group so every hub sees every event.
type FeedWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	hub          Broadcaster
	logger       *zap.Logger
}

// NewFeedWorker creates a new feed worker
func NewFeedWorker(consumer *broker.Consumer, hub Broadcaster) *FeedWorker {
	w := &FeedWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		hub:          hub,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnTransactionCreated(w.handleCreated)
	w.eventHandler.OnTransactionStatusChanged(w.handleStatusChanged)
	return w
}

func (w *FeedWorker) handleCreated(ctx context.Context, event *models.TransactionCreatedEvent) error {
	util.EventsConsumedTotal.WithLabelValues("feed", event.EventType).Inc()
	w.broadcast(event.EventType, event)
	return nil
}

func (w *FeedWorker) handleStatusChanged(ctx context.Context, event *models.TransactionStatusChangedEvent) error {
	util.EventsConsumedTotal.WithLabelValues("feed", event.EventType).Inc()
	w.broadcast(event.EventType, event)
	return nil
}

// broadcast never fails the message; a feed that missed an update refreshes on reload
func (w *FeedWorker) broadcast(msgType string, v interface{}) {
	if err := w.hub.Broadcast(msgType, v); err != nil {
		w.logger.Warn("Failed to broadcast feed message", zap.Error(err), zap.String("type", msgType))
	}
}

// Start starts the worker
func (w *FeedWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting feed worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *FeedWorker) Stop() error {
	w.logger.Info("Stopping feed worker...")
	return w.consumer.Close()
}

// CatalogWorker drops cached catalog views when any instance changes reference data
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	caches       []service.Invalidator
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, caches ...service.Invalidator) *CatalogWorker {
	w := &CatalogWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		caches:       caches,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnCatalogChanged(w.handleCatalogChanged)
	return w
}

func (w *CatalogWorker) handleCatalogChanged(ctx context.Context, event *models.CatalogChangedEvent) error {
	util.EventsConsumedTotal.WithLabelValues("catalog", event.EventType).Inc()

	for _, c := range w.caches {
		if err := c.Invalidate(ctx); err != nil {
			return err
		}
	}

	w.logger.Debug("Catalog caches invalidated",
		zap.String("entity", event.Entity),
		zap.String("entity_id", event.EntityID),
		zap.String("action", event.Action))
	return nil
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker...")
	return w.consumer.Close()
}
