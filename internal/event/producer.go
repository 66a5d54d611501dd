// Package event publishes storefront domain events to Kafka. Cart changes
// are the notification channel for other surfaces (no polling of the cart),
// and payment.reconciliation_needed feeds server-side alerting.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	pkgkafka "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/kafka"
)

// Kafka topics for storefront domain events.
const (
	TopicCartUpdated          = "storefront.cart.updated"
	TopicCartCleared          = "storefront.cart.cleared"
	TopicCheckoutCompleted    = "storefront.checkout.completed"
	TopicOrderStatusChanged   = "storefront.order.status_changed"
	TopicReconciliationNeeded = "storefront.payment.reconciliation_needed"
	TopicLoyaltyAdjusted      = "storefront.loyalty.adjusted"
)

// Aggregate types.
const (
	AggregateTypeCart    = "cart"
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
	AggregateTypeLoyalty = "loyalty"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// CartLineData is the line payload within cart events.
type CartLineData struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID    string         `json:"user_id"`
	Lines     []CartLineData `json:"lines"`
	ItemCount int            `json:"item_count"`
	Total     int64          `json:"total"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// CheckoutCompletedData is the payload for a checkout.completed event.
type CheckoutCompletedData struct {
	UserID          string `json:"user_id"`
	OrderID         int64  `json:"order_id"`
	GatewayIntentID string `json:"gateway_intent_id"`
	Total           int64  `json:"total"`
	PointsEarned    int    `json:"points_earned"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID    int64  `json:"order_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ChangedBy  string `json:"changed_by"`
}

// ReconciliationNeededData is the payload for the
// payment.reconciliation_needed alert.
type ReconciliationNeededData struct {
	ReconciliationID string `json:"reconciliation_id"`
	UserID           string `json:"user_id"`
	GatewayIntentID  string `json:"gateway_intent_id"`
	Amount           int64  `json:"amount"`
	FailureReason    string `json:"failure_reason"`
}

// LoyaltyAdjustedData is the payload for a loyalty.adjusted event.
type LoyaltyAdjustedData struct {
	UserID     string `json:"user_id"`
	Points     int    `json:"points"`
	NewBalance int    `json:"new_balance"`
	AdjustedBy string `json:"adjusted_by"`
}

// Producer publishes storefront domain events.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	lines := make([]CartLineData, len(cart.Lines))
	for i, line := range cart.Lines {
		lines[i] = CartLineData{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Notes:     line.Notes,
		}
	}

	data := CartUpdatedData{
		UserID:    cart.UserID,
		Lines:     lines,
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
	}

	evt, err := pkgkafka.NewEvent(TopicCartUpdated, cart.UserID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, evt); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", cart.UserID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	evt, err := pkgkafka.NewEvent(TopicCartCleared, userID, AggregateTypeCart, SourceStorefront, CartClearedData{UserID: userID})
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, evt); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishCheckoutCompleted publishes a checkout.completed event keyed by the
// created order.
func (p *Producer) PublishCheckoutCompleted(ctx context.Context, userID string, conf *domain.OrderConfirmation) error {
	data := CheckoutCompletedData{
		UserID:          userID,
		OrderID:         conf.Order.ID,
		GatewayIntentID: conf.GatewayIntentID,
		Total:           conf.Order.Total,
		PointsEarned:    conf.PointsEarned,
	}

	aggregateID := strconv.FormatInt(conf.Order.ID, 10)
	evt, err := pkgkafka.NewEvent(TopicCheckoutCompleted, aggregateID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create checkout.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCheckoutCompleted, evt); err != nil {
		return fmt.Errorf("publish checkout.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published checkout.completed event",
		slog.Int64("order_id", conf.Order.ID),
		slog.String("user_id", userID),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID int64, fromStatus, toStatus, changedBy string) error {
	data := OrderStatusChangedData{
		OrderID:    orderID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		ChangedBy:  changedBy,
	}

	aggregateID := strconv.FormatInt(orderID, 10)
	evt, err := pkgkafka.NewEvent(TopicOrderStatusChanged, aggregateID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, evt); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.Int64("order_id", orderID),
		slog.String("to_status", toStatus),
	)

	return nil
}

// PublishReconciliationNeeded publishes the charged-but-not-ordered alert.
func (p *Producer) PublishReconciliationNeeded(ctx context.Context, rec *domain.Reconciliation) error {
	data := ReconciliationNeededData{
		ReconciliationID: rec.ID.String(),
		UserID:           rec.UserID,
		GatewayIntentID:  rec.GatewayIntentID,
		Amount:           rec.Amount,
		FailureReason:    rec.FailureReason,
	}

	evt, err := pkgkafka.NewEvent(TopicReconciliationNeeded, rec.GatewayIntentID, AggregateTypePayment, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create payment.reconciliation_needed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReconciliationNeeded, evt); err != nil {
		return fmt.Errorf("publish payment.reconciliation_needed event: %w", err)
	}

	p.logger.WarnContext(ctx, "published payment.reconciliation_needed event",
		slog.String("reconciliation_id", rec.ID.String()),
		slog.String("gateway_intent_id", rec.GatewayIntentID),
		slog.Int64("amount", rec.Amount),
	)

	return nil
}

// PublishLoyaltyAdjusted publishes a loyalty.adjusted event.
func (p *Producer) PublishLoyaltyAdjusted(ctx context.Context, userID string, points, newBalance int, adjustedBy string) error {
	data := LoyaltyAdjustedData{
		UserID:     userID,
		Points:     points,
		NewBalance: newBalance,
		AdjustedBy: adjustedBy,
	}

	evt, err := pkgkafka.NewEvent(TopicLoyaltyAdjusted, userID, AggregateTypeLoyalty, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create loyalty.adjusted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicLoyaltyAdjusted, evt); err != nil {
		return fmt.Errorf("publish loyalty.adjusted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published loyalty.adjusted event",
		slog.String("user_id", userID),
		slog.Int("points", points),
	)

	return nil
}
