package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Generic sentinel errors shared by every layer.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Order-lifecycle sentinel errors. Every network boundary in the checkout and
// tracking flow maps its failure onto exactly one of these, so callers handle
// the "charged but not ordered" branch explicitly instead of catching a
// generic error.
var (
	// ErrProductUnavailable rejects adding an out-of-stock product to the cart.
	ErrProductUnavailable = errors.New("product unavailable")

	// ErrEmptyCart rejects checkout of a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrIntentCreationFailed means the payment intent could not be created.
	// No charge exists yet, so the caller may retry freely.
	ErrIntentCreationFailed = errors.New("payment intent creation failed")

	// ErrPaymentDeclined means the gateway rejected the card. Terminal for this
	// attempt; the cart is preserved so the user can retry with another card.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrPaymentStatusUnknown means the gateway confirmation timed out or the
	// outcome could not be determined. The charge may still complete
	// server-side, so the cart must not be cleared.
	ErrPaymentStatusUnknown = errors.New("payment status unknown")

	// ErrReconciliationRequired means funds were captured but the order could
	// not be materialized. Never retried automatically, always journaled for
	// operator follow-up.
	ErrReconciliationRequired = errors.New("payment captured but order not created")

	// ErrInvalidTransition rejects advancing an order already in a terminal
	// fulfillment state.
	ErrInvalidTransition = errors.New("invalid fulfillment transition")

	// ErrPollFailed marks a transient order poll failure. The previous
	// snapshot is retained and the poll retries on the next tick.
	ErrPollFailed = errors.New("order poll failed")
)

// AppError is a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error wrapping an unexpected failure.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// ProductUnavailable creates a 409 error for adding an unavailable product.
func ProductUnavailable(name string) *AppError {
	return &AppError{
		Code:    "PRODUCT_UNAVAILABLE",
		Message: fmt.Sprintf("%q is not available right now", name),
		Status:  http.StatusConflict,
		Err:     ErrProductUnavailable,
	}
}

// EmptyCart creates a 400 error for checking out an empty cart.
func EmptyCart() *AppError {
	return &AppError{
		Code:    "EMPTY_CART",
		Message: "cannot check out an empty cart",
		Status:  http.StatusBadRequest,
		Err:     ErrEmptyCart,
	}
}

// IntentCreationFailed creates a 502 error. Safe to retry: no charge exists.
func IntentCreationFailed(err error) *AppError {
	return &AppError{
		Code:    "INTENT_CREATION_FAILED",
		Message: "could not start the payment, please try again",
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrIntentCreationFailed, err),
	}
}

// PaymentDeclined creates a 402 error carrying the gateway's decline message.
func PaymentDeclined(gatewayMessage string) *AppError {
	return &AppError{
		Code:    "PAYMENT_DECLINED",
		Message: gatewayMessage,
		Status:  http.StatusPaymentRequired,
		Err:     ErrPaymentDeclined,
	}
}

// PaymentStatusUnknown creates a 504 error for an ambiguous confirmation
// outcome. Distinct from PaymentDeclined: the charge may still land.
func PaymentStatusUnknown() *AppError {
	return &AppError{
		Code:    "PAYMENT_STATUS_UNKNOWN",
		Message: "we could not confirm your payment; check your order history before retrying",
		Status:  http.StatusGatewayTimeout,
		Err:     ErrPaymentStatusUnknown,
	}
}

// ReconciliationRequired creates a 502 error for the charged-but-not-ordered
// case. The gateway intent ID is surfaced so support can locate the charge.
func ReconciliationRequired(gatewayIntentID string) *AppError {
	return &AppError{
		Code:    "RECONCILIATION_REQUIRED",
		Message: fmt.Sprintf("your payment succeeded but the order could not be created; contact support with reference %s", gatewayIntentID),
		Status:  http.StatusBadGateway,
		Err:     ErrReconciliationRequired,
	}
}

// InvalidTransition creates a 409 error for advancing a terminal order.
func InvalidTransition(from string) *AppError {
	return &AppError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("order in state %q cannot be advanced", from),
		Status:  http.StatusConflict,
		Err:     ErrInvalidTransition,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrProductUnavailable), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrPaymentStatusUnknown):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrIntentCreationFailed), errors.Is(err, ErrReconciliationRequired):
		return http.StatusBadGateway
	case errors.Is(err, ErrServiceUnavail), errors.Is(err, ErrPollFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
