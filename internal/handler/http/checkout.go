package http

import (
	"log/slog"
	"net/http"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/service"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httputil"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/middleware"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/validator"
)

// CheckoutHandler handles HTTP requests for the checkout endpoint.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// CheckoutRequest is the JSON request body for a checkout attempt. The card
// fields are forwarded to the gateway and never stored or logged.
type CheckoutRequest struct {
	Email string      `json:"email" validate:"required,email"`
	Card  CardRequest `json:"card" validate:"required"`
}

// CardRequest carries the card details collected at checkout.
type CardRequest struct {
	Number     string `json:"number" validate:"required,numeric,min=12,max=19"`
	ExpMonth   int    `json:"exp_month" validate:"required,gte=1,lte=12"`
	ExpYear    int    `json:"exp_year" validate:"required,gte=2020"`
	CVC        string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	PostalCode string `json:"postal_code" validate:"max=10"`
}

// Checkout handles POST /api/v1/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req CheckoutRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	conf, err := h.service.Checkout(r.Context(), userID, bearerToken(r), service.CheckoutInput{
		Email: req.Email,
		Card: domain.Card{
			Number:     req.Card.Number,
			ExpMonth:   req.Card.ExpMonth,
			ExpYear:    req.Card.ExpYear,
			CVC:        req.Card.CVC,
			PostalCode: req.Card.PostalCode,
		},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: conf})
}
