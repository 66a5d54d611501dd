package domain

import (
	"time"

	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

// Fulfillment states, using the backend's wire values.
const (
	StatusPending   = "pendiente"
	StatusPreparing = "en_preparacion"
	StatusReady     = "listo"
	StatusDelivered = "entregado"
	StatusCanceled  = "cancelado"
)

// Order is a materialized order as reported by the backend order store.
type Order struct {
	ID           int64       `json:"id"`
	UserID       string      `json:"user_id,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	Status       string      `json:"status"`
	Items        []OrderItem `json:"items"`
	Total        int64       `json:"total"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// OrderItem is a single line of a materialized order.
type OrderItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Notes     string `json:"notes,omitempty"`
}

// OrderConfirmation is the result of a successful checkout.
type OrderConfirmation struct {
	Order           Order  `json:"order"`
	PointsEarned    int    `json:"points_earned"`
	GatewayIntentID string `json:"gateway_intent_id"`
}

// FulfillmentSequence is the happy-path progression shown on the customer
// timeline. Cancellation branches off it and is not part of the sequence.
func FulfillmentSequence() []string {
	return []string{StatusPending, StatusPreparing, StatusReady, StatusDelivered}
}

// IsValidStatus reports whether the status is one of the five known states.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusCanceled
}

// NextStatus returns the single next state in the fulfillment progression.
// It is total over the three non-terminal states; terminal or unknown states
// return ErrInvalidTransition.
func NextStatus(status string) (string, error) {
	switch status {
	case StatusPending:
		return StatusPreparing, nil
	case StatusPreparing:
		return StatusReady, nil
	case StatusReady:
		return StatusDelivered, nil
	default:
		return "", apperrors.InvalidTransition(status)
	}
}

// CanCancel reports whether an order in the given state may be canceled.
// Cancellation is a staff action reachable from any non-terminal state.
func CanCancel(status string) bool {
	return IsValidStatus(status) && !IsTerminal(status)
}

// ActionLabel returns the kitchen board button label for the given state,
// or "" for terminal states. Labels come from the same transition table that
// drives NextStatus, so the board can never offer an impossible action.
func ActionLabel(status string) string {
	switch status {
	case StatusPending:
		return "Empezar a Cocinar"
	case StatusPreparing:
		return "Terminar Pedido"
	case StatusReady:
		return "Entregar a Cliente"
	default:
		return ""
	}
}

// IsActive reports whether the order should appear on the kitchen board.
// Delivered and canceled orders are history, not work.
func (o *Order) IsActive() bool {
	return !IsTerminal(o.Status)
}
