package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/paypal"
	"storefront/internal/util"
)

// PaymentStore is the slice of the persistence layer the payment service needs.
type PaymentStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderPaymentResult(ctx context.Context, orderID string, result models.PaymentResult) error
	MarkOrderPaidTx(ctx context.Context, orderID string, result models.PaymentResult) (*models.Order, error)
	MarkOrderDeliveredTx(ctx context.Context, orderID string) (*models.Order, error)
}

// PayPalAPI is the external payment provider boundary.
// Satisfied by paypal.Client.
type PayPalAPI interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal) (*paypal.CreatedOrder, error)
	CaptureOrder(ctx context.Context, providerOrderID string) (*paypal.CaptureResult, error)
}

// PaymentService runs the payment settlement workflow: the external
// capture path, manual cash-on-delivery settlement, and delivery
// confirmation. Paid and delivered are one-way transitions.
type PaymentService struct {
	store     PaymentStore
	paypal    PayPalAPI
	publisher Publisher
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store PaymentStore, paypalClient PayPalAPI, publisher Publisher) *PaymentService {
	return &PaymentService{
		store:     store,
		paypal:    paypalClient,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreatePayPalOrder creates the provider-side order for an unpaid order
// and returns the provider's reference in Data. The reference is persisted
// on the order so the approve path can only settle against this exact
// provider order.
func (ps *PaymentService) CreatePayPalOrder(ctx context.Context, orderID string) ActionResult {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePayPalOrder")
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return failure(formatError(err))
	}
	if order.IsPaid {
		return failure("Order is already paid")
	}
	if order.PaymentMethod != models.PaymentMethodPayPal {
		return failure("Order is not payable with PayPal")
	}

	created, err := ps.paypal.CreateOrder(ctx, order.TotalPrice)
	if err != nil {
		ps.logger.Error("Failed to create PayPal order",
			zap.String("order_id", orderID),
			zap.Error(err))
		return failure("Failed to create PayPal order")
	}

	pending := models.PaymentResult{ID: created.ID, Status: created.Status}
	if err := ps.store.UpdateOrderPaymentResult(ctx, orderID, pending); err != nil {
		ps.logger.Error("Failed to store PayPal reference",
			zap.String("order_id", orderID),
			zap.String("paypal_order_id", created.ID),
			zap.Error(err))
		return failure(formatError(err))
	}

	ps.logger.Info("PayPal order created",
		zap.String("order_id", orderID),
		zap.String("paypal_order_id", created.ID))

	return ActionResult{
		Success: true,
		Message: "PayPal order created",
		Data:    created.ID,
	}
}

// ApprovePayPalOrder settles an order through the external capture path.
// The capture is performed and verified server-side with the provider;
// the client-supplied approval alone is never trusted. The capture must
// match the provider reference stored at create time and the order total,
// so a capture of some other (or cheaper) provider order can never settle
// this one. An already-paid order is rejected before any capture attempt.
func (ps *PaymentService) ApprovePayPalOrder(ctx context.Context, orderID, providerOrderID string) ActionResult {
	ctx, span := util.StartSpan(ctx, "PaymentService.ApprovePayPalOrder")
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return failure(formatError(err))
	}
	if order.IsPaid {
		util.PaymentCapturesFailedTotal.WithLabelValues("already_paid").Inc()
		return failure("Order is already paid")
	}
	if order.PaymentMethod != models.PaymentMethodPayPal {
		util.PaymentCapturesFailedTotal.WithLabelValues("wrong_method").Inc()
		return failure("Order is not payable with PayPal")
	}
	if order.PaymentResult.ID == "" || providerOrderID != order.PaymentResult.ID {
		util.PaymentCapturesFailedTotal.WithLabelValues("reference_mismatch").Inc()
		ps.logger.Warn("PayPal reference does not belong to this order",
			zap.String("order_id", orderID),
			zap.String("paypal_order_id", providerOrderID))
		return failure("Error in PayPal payment")
	}

	util.PaymentCapturesTotal.Inc()
	start := time.Now()
	capture, err := ps.paypal.CaptureOrder(ctx, providerOrderID)
	util.PaymentCaptureLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.PaymentCapturesFailedTotal.WithLabelValues("capture_error").Inc()
		ps.logger.Error("PayPal capture failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		return failure("Payment could not be captured")
	}

	if !capture.Completed() || capture.ID != order.PaymentResult.ID {
		util.PaymentCapturesFailedTotal.WithLabelValues("not_completed").Inc()
		ps.logger.Warn("PayPal capture not confirmed",
			zap.String("order_id", orderID),
			zap.String("paypal_order_id", providerOrderID),
			zap.String("status", capture.Status))
		return failure("Error in PayPal payment")
	}

	captured, err := decimal.NewFromString(capture.Amount)
	if err != nil || !captured.Equal(order.TotalPrice) {
		util.PaymentCapturesFailedTotal.WithLabelValues("amount_mismatch").Inc()
		ps.logger.Warn("PayPal capture amount does not match order total",
			zap.String("order_id", orderID),
			zap.String("captured", capture.Amount),
			zap.String("expected", order.TotalPrice.StringFixed(2)))
		return failure("Error in PayPal payment")
	}

	result := models.PaymentResult{
		ID:           capture.ID,
		Status:       capture.Status,
		EmailAddress: capture.PayerEmail,
		PricePaid:    capture.Amount,
	}

	paid, err := ps.store.MarkOrderPaidTx(ctx, orderID, result)
	if err != nil {
		ps.logger.Error("Failed to mark order paid after capture",
			zap.String("order_id", orderID),
			zap.String("capture_id", capture.ID),
			zap.Error(err))
		return failure(formatError(err))
	}

	util.OrdersPaidTotal.WithLabelValues("paypal").Inc()
	ps.publishOrderPaid(ctx, paid, capture.ID)

	return success("Your order has been paid")
}

// MarkOrderPaidCOD settles a cash-on-delivery order manually. Admin only;
// no external payment result exists for this path. A second call observes
// the paid flag and is rejected, never double-stamped.
func (ps *PaymentService) MarkOrderPaidCOD(ctx context.Context, identity models.Identity, orderID string) ActionResult {
	ctx, span := util.StartSpan(ctx, "PaymentService.MarkOrderPaidCOD")
	defer span.End()

	if !identity.IsAdmin() {
		return failure("Not authorized")
	}

	paid, err := ps.store.MarkOrderPaidTx(ctx, orderID, models.PaymentResult{})
	if err != nil {
		return failure(formatError(err))
	}

	util.OrdersPaidTotal.WithLabelValues("cod").Inc()
	ps.logger.Info("Order marked paid manually",
		zap.String("order_id", orderID),
		zap.String("admin_id", identity.UserID))
	ps.publishOrderPaid(ctx, paid, "")

	return success("Order marked as paid")
}

// MarkOrderDelivered confirms delivery of a paid order. Admin only;
// one-way, no reversal exists.
func (ps *PaymentService) MarkOrderDelivered(ctx context.Context, identity models.Identity, orderID string) ActionResult {
	ctx, span := util.StartSpan(ctx, "PaymentService.MarkOrderDelivered")
	defer span.End()

	if !identity.IsAdmin() {
		return failure("Not authorized")
	}

	delivered, err := ps.store.MarkOrderDeliveredTx(ctx, orderID)
	if err != nil {
		return failure(formatError(err))
	}

	util.OrdersDeliveredTotal.Inc()
	ps.logger.Info("Order marked delivered",
		zap.String("order_id", orderID),
		zap.String("admin_id", identity.UserID))

	if ps.publisher != nil && delivered.DeliveredAt != nil {
		event := &models.OrderDeliveredEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderDelivered,
				Timestamp: time.Now(),
			},
			OrderID:     delivered.ID,
			UserID:      delivered.UserID,
			DeliveredAt: *delivered.DeliveredAt,
		}
		if err := ps.publisher.PublishOrderDelivered(ctx, event); err != nil {
			ps.logger.Error("Failed to publish OrderDelivered event", zap.Error(err))
		}
	}

	return success("Order marked as delivered")
}

func (ps *PaymentService) publishOrderPaid(ctx context.Context, order *models.Order, providerTxID string) {
	if ps.publisher == nil || order.PaidAt == nil {
		return
	}

	event := &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaid,
			Timestamp: time.Now(),
		},
		OrderID:      order.ID,
		UserID:       order.UserID,
		TotalPrice:   order.TotalPrice.StringFixed(2),
		PaidAt:       *order.PaidAt,
		ProviderTxID: providerTxID,
	}
	if err := ps.publisher.PublishOrderPaid(ctx, event); err != nil {
		ps.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}
}
