package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/event"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

// OrderBackend is the slice of the backend client order operations need.
type OrderBackend interface {
	ListOrders(ctx context.Context, token string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, token string, orderID int64, status string) (*domain.Order, error)
}

// OrderService advances orders along the fulfillment sequence. The next
// state is always computed server-side from the current backend state and
// the shared transition table; local state updates only after the backend
// confirms.
type OrderService struct {
	backend  OrderBackend
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orderBackend OrderBackend, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		backend:  orderBackend,
		producer: producer,
		logger:   logger,
	}
}

// Advance moves an order to its next fulfillment state. Terminal orders are
// rejected without touching the backend.
func (s *OrderService) Advance(ctx context.Context, token, actorID string, orderID int64) (*domain.Order, error) {
	order, err := s.findOrder(ctx, token, orderID)
	if err != nil {
		return nil, err
	}

	next, err := domain.NextStatus(order.Status)
	if err != nil {
		return nil, err
	}

	updated, err := s.backend.UpdateOrderStatus(ctx, token, orderID, next)
	if err != nil {
		return nil, fmt.Errorf("advance order %d: %w", orderID, err)
	}

	s.notifyStatusChanged(ctx, orderID, order.Status, updated.Status, actorID)

	s.logger.InfoContext(ctx, "order advanced",
		slog.Int64("order_id", orderID),
		slog.String("from_status", order.Status),
		slog.String("to_status", updated.Status),
	)

	return updated, nil
}

// Cancel moves a non-terminal order to cancelado.
func (s *OrderService) Cancel(ctx context.Context, token, actorID string, orderID int64) (*domain.Order, error) {
	order, err := s.findOrder(ctx, token, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanCancel(order.Status) {
		return nil, apperrors.InvalidTransition(order.Status)
	}

	updated, err := s.backend.UpdateOrderStatus(ctx, token, orderID, domain.StatusCanceled)
	if err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", orderID, err)
	}

	s.notifyStatusChanged(ctx, orderID, order.Status, domain.StatusCanceled, actorID)

	s.logger.InfoContext(ctx, "order canceled",
		slog.Int64("order_id", orderID),
		slog.String("from_status", order.Status),
	)

	return updated, nil
}

// findOrder fetches the backend's current view of one order. The backend
// exposes no single-order read, so this scans the listing it does expose.
func (s *OrderService) findOrder(ctx context.Context, token string, orderID int64) (*domain.Order, error) {
	orders, err := s.backend.ListOrders(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}

	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}

	return nil, apperrors.NotFound("order", fmt.Sprintf("%d", orderID))
}

func (s *OrderService) notifyStatusChanged(ctx context.Context, orderID int64, from, to, actorID string) {
	if err := s.producer.PublishOrderStatusChanged(ctx, orderID, from, to, actorID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}
