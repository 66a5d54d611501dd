package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/backend"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/event"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/gateway"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/repository"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

// PaymentBackend is the slice of the backend client checkout needs.
type PaymentBackend interface {
	CreatePaymentIntent(ctx context.Context, token string, in backend.CreateIntentInput) (string, error)
	ConfirmOrder(ctx context.Context, token string, in backend.ConfirmOrderInput) (*domain.OrderConfirmation, error)
	GetPaymentStatus(ctx context.Context, token, intentID string) (string, error)
}

// CheckoutTimeouts holds per-step timeout configuration. A zero value means
// no per-step timeout.
type CheckoutTimeouts struct {
	Intent      time.Duration
	Capture     time.Duration
	Materialize time.Duration
}

// CheckoutInput holds the parameters for a checkout attempt.
type CheckoutInput struct {
	Email string      `json:"email" validate:"required,email"`
	Card  domain.Card `json:"card"`
}

// CheckoutService drives the payment-then-materialize flow: open an intent
// for the cart total, capture it with the card, then turn the paid cart into
// a backend order. Each failure point maps to exactly one sentinel so the
// handler, the cart and the reconciliation journal all agree on what
// happened to the money.
type CheckoutService struct {
	carts    repository.CartRepository
	loyalty  repository.LoyaltyRepository
	journal  repository.ReconciliationRepository
	backend  PaymentBackend
	gateway  gateway.Gateway
	producer *event.Producer
	logger   *slog.Logger
	timeouts CheckoutTimeouts
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	loyalty repository.LoyaltyRepository,
	journal repository.ReconciliationRepository,
	paymentBackend PaymentBackend,
	gw gateway.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
	timeouts CheckoutTimeouts,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		loyalty:  loyalty,
		journal:  journal,
		backend:  paymentBackend,
		gateway:  gw,
		producer: producer,
		logger:   logger,
		timeouts: timeouts,
	}
}

// Checkout runs the full flow for the user's current cart. On success the
// cart is cleared and the confirmation carries the created order plus earned
// points. The cart survives every failure except success: a declined card,
// an unknown outcome and even a captured-but-unmaterialized payment all
// leave it intact.
func (s *CheckoutService) Checkout(ctx context.Context, userID, token string, input CheckoutInput) (*domain.OrderConfirmation, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.EmptyCart()
		}
		return nil, fmt.Errorf("load cart for checkout: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}

	// The snapshot taken here prices the intent AND materializes the order.
	// Concurrent cart edits after this point do not change what is charged.
	snapshot := cart.Copy()
	total := snapshot.Total()

	clientSecret, err := s.createIntent(ctx, token, snapshot, input.Email, total)
	if err != nil {
		return nil, apperrors.IntentCreationFailed(err)
	}

	// From here on the caller hanging up must not abandon an in-flight
	// charge, so the remaining steps run detached from its cancellation
	// under their own deadlines.
	detached := context.WithoutCancel(ctx)

	result, err := s.captureIntent(detached, clientSecret, input.Card)
	if err != nil {
		intentID := gateway.IntentIDFromSecret(clientSecret)
		s.logger.ErrorContext(ctx, "payment confirmation outcome unknown, checking backend",
			slog.String("user_id", userID),
			slog.String("gateway_intent_id", intentID),
			slog.String("error", err.Error()),
		)
		result = s.resolvePaymentStatus(detached, token, intentID)
		if result == nil {
			return nil, apperrors.PaymentStatusUnknown()
		}
	}
	if result.Status == domain.PaymentDeclined {
		s.logger.InfoContext(ctx, "checkout declined",
			slog.String("user_id", userID),
			slog.String("gateway_intent_id", result.IntentID),
		)
		return nil, apperrors.PaymentDeclined(result.Message)
	}

	conf, err := s.materialize(detached, token, snapshot, result.IntentID)
	if err != nil {
		s.journalFailure(detached, userID, input.Email, result.IntentID, total, snapshot.Lines, err)
		return nil, apperrors.ReconciliationRequired(result.IntentID)
	}

	s.finishCheckout(detached, userID, conf)
	return conf, nil
}

// createIntent opens a payment intent for the snapshot total.
func (s *CheckoutService) createIntent(ctx context.Context, token string, snapshot *domain.Cart, email string, total int64) (string, error) {
	if s.timeouts.Intent > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Intent)
		defer cancel()
	}

	return s.backend.CreatePaymentIntent(ctx, token, backend.CreateIntentInput{
		Amount:      total,
		Email:       email,
		Description: fmt.Sprintf("Pedido Crepa Urbana (%d articulos)", snapshot.ItemCount()),
	})
}

// captureIntent confirms the intent with the card. An error means the
// outcome is unknown; a declined card is a result.
func (s *CheckoutService) captureIntent(ctx context.Context, clientSecret string, card domain.Card) (*domain.PaymentResult, error) {
	if s.timeouts.Capture > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Capture)
		defer cancel()
	}

	return s.gateway.ConfirmIntent(ctx, clientSecret, card)
}

// resolvePaymentStatus asks the backend for its view of an intent whose
// gateway confirmation failed. "succeeded" resumes the flow as a capture; a
// status meaning the charge never stuck reads as a decline so the customer
// can retry safely; anything else stays unknown and returns nil.
func (s *CheckoutService) resolvePaymentStatus(ctx context.Context, token, intentID string) *domain.PaymentResult {
	if s.timeouts.Capture > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Capture)
		defer cancel()
	}

	status, err := s.backend.GetPaymentStatus(ctx, token, intentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment status check failed",
			slog.String("gateway_intent_id", intentID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	switch status {
	case domain.PaymentSucceeded:
		s.logger.InfoContext(ctx, "backend confirms intent captured",
			slog.String("gateway_intent_id", intentID),
		)
		return &domain.PaymentResult{IntentID: intentID, Status: domain.PaymentSucceeded}
	case "requires_payment_method", "canceled":
		return &domain.PaymentResult{
			IntentID: intentID,
			Status:   domain.PaymentDeclined,
			Message:  "The payment was not completed.",
		}
	default:
		return nil
	}
}

// materialize turns the paid snapshot into a backend order. The gateway
// intent ID rides along as the idempotency hint.
func (s *CheckoutService) materialize(ctx context.Context, token string, snapshot *domain.Cart, gatewayIntentID string) (*domain.OrderConfirmation, error) {
	if s.timeouts.Materialize > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Materialize)
		defer cancel()
	}

	return s.backend.ConfirmOrder(ctx, token, backend.ConfirmOrderInput{
		GatewayIntentID: gatewayIntentID,
		Lines:           snapshot.Lines,
	})
}

// journalFailure durably records a captured payment whose order never
// materialized and raises the alerting event. Never retried automatically;
// an operator resolves it from the reconciliation queue.
func (s *CheckoutService) journalFailure(ctx context.Context, userID, email, gatewayIntentID string, amount int64, lines []domain.CartLine, cause error) {
	rec := &domain.Reconciliation{
		ID:              uuid.New(),
		UserID:          userID,
		Email:           email,
		GatewayIntentID: gatewayIntentID,
		Amount:          amount,
		Lines:           lines,
		FailureReason:   cause.Error(),
		Status:          domain.ReconciliationOpen,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.journal.Create(ctx, rec); err != nil {
		// Worst case: charged, unmaterialized AND unjournaled. The log line
		// carries everything support needs to find the charge.
		s.logger.ErrorContext(ctx, "failed to journal reconciliation record",
			slog.String("user_id", userID),
			slog.String("gateway_intent_id", gatewayIntentID),
			slog.Int64("amount", amount),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishReconciliationNeeded(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.reconciliation_needed event",
			slog.String("gateway_intent_id", gatewayIntentID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.ErrorContext(ctx, "payment captured but order not materialized",
		slog.String("user_id", userID),
		slog.String("gateway_intent_id", gatewayIntentID),
		slog.Int64("amount", amount),
		slog.String("cause", cause.Error()),
	)
}

// finishCheckout clears the cart, patches the loyalty cache optimistically
// and publishes the completion events. All best-effort: the order exists,
// so nothing here may fail the checkout.
func (s *CheckoutService) finishCheckout(ctx context.Context, userID string, conf *domain.OrderConfirmation) {
	if err := s.carts.Delete(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if err := s.producer.PublishCartCleared(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.patchLoyalty(ctx, userID, conf.PointsEarned)

	if err := s.producer.PublishCheckoutCompleted(ctx, userID, conf); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.completed event",
			slog.Int64("order_id", conf.Order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("user_id", userID),
		slog.Int64("order_id", conf.Order.ID),
		slog.Int64("total", conf.Order.Total),
		slog.Int("points_earned", conf.PointsEarned),
	)
}

// patchLoyalty bumps the cached balance by the earned points, flagged
// unconfirmed until the backend's own number is read back.
func (s *CheckoutService) patchLoyalty(ctx context.Context, userID string, earned int) {
	if earned == 0 {
		return
	}

	balance, err := s.loyalty.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read loyalty cache",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return
		}
		balance = &domain.LoyaltyBalance{UserID: userID}
	}

	balance.Points += earned
	balance.Unconfirmed = true
	balance.UpdatedAt = time.Now().UTC()

	if err := s.loyalty.Save(ctx, balance); err != nil {
		s.logger.WarnContext(ctx, "failed to patch loyalty cache",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
