package worker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"
)

// SalesStore is the slice of the persistence layer the sales worker needs.
type SalesStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	AddMonthlySales(ctx context.Context, month string, amount decimal.Decimal) error
}

// SalesWorker consumes OrderPaid events and maintains the monthly sales
// summary used by the admin dashboard. Events are deduplicated through
// the processed_events table so redeliveries never double-count.
type SalesWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        SalesStore
	logger       *zap.Logger
}

// NewSalesWorker creates a new sales worker
func NewSalesWorker(consumer *broker.Consumer, store SalesStore) *SalesWorker {
	w := &SalesWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPaid(w.handleOrderPaid)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *SalesWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sales worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SalesWorker) Stop() error {
	w.logger.Info("Stopping sales worker")
	return w.consumer.Close()
}

func (w *SalesWorker) handleOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	amount, err := decimal.NewFromString(event.TotalPrice)
	if err != nil {
		// A malformed event can never succeed; drop it instead of
		// blocking the partition.
		w.logger.Error("Discarding OrderPaid event with bad total",
			zap.String("event_id", event.EventID),
			zap.String("total_price", event.TotalPrice))
		return nil
	}

	month := event.PaidAt.Format("2006-01")
	if err := w.store.AddMonthlySales(ctx, month, amount); err != nil {
		return fmt.Errorf("failed to record sales for %s: %w", month, err)
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	w.logger.Info("Sales recorded",
		zap.String("order_id", event.OrderID),
		zap.String("month", month))
	return nil
}
