package worker

import (
	"context"
	"log"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// StatsWorker consumes order events and keeps derived shop statistics
// current without widening the submission transaction. The average-order-size
// update is idempotent, so at-least-once delivery is harmless.
type StatsWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	logger       *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(consumer *broker.Consumer, st *store.Store) *StatsWorker {
	w := &StatsWorker{
		consumer: consumer,
		store:    st,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderSubmitted(w.handleOrderSubmitted)
	eventHandler.OnSessionCreated(w.handleSessionCreated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *StatsWorker) Start(ctx context.Context) error {
	log.Println("Starting stats worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StatsWorker) Stop() error {
	log.Println("Stopping stats worker...")
	return w.consumer.Close()
}

func (w *StatsWorker) handleOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	if err := w.store.UpdateShopAverageOrderSize(ctx, event.ShopID); err != nil {
		w.logger.Error("Failed to update shop average order size",
			zap.String("shop_id", event.ShopID),
			zap.Error(err))
		return err
	}

	w.logger.Debug("Shop stats refreshed",
		zap.String("shop_id", event.ShopID),
		zap.String("order_id", event.OrderID))
	return nil
}

func (w *StatsWorker) handleSessionCreated(ctx context.Context, event *models.SessionCreatedEvent) error {
	w.logger.Info("Procurement session observed",
		zap.String("session_id", event.SessionID),
		zap.Int("orders_processed", event.OrdersProcessed))
	return nil
}
