package service

import (
	"context"

	"storefront/internal/models"
)

// Publisher is the event boundary the workflows publish through.
// Satisfied by broker.EventPublisher.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
	PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error
	PublishCartMigrated(ctx context.Context, event *models.CartMigratedEvent) error
}
