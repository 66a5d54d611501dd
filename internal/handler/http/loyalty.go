package http

import (
	"log/slog"
	"net/http"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/service"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httputil"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/middleware"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/validator"
)

// LoyaltyHandler handles HTTP requests for loyalty endpoints.
type LoyaltyHandler struct {
	service *service.LoyaltyService
	logger  *slog.Logger
}

// NewLoyaltyHandler creates a new loyalty HTTP handler.
func NewLoyaltyHandler(svc *service.LoyaltyService, logger *slog.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		service: svc,
		logger:  logger,
	}
}

// AdjustRequest is the JSON request body for a staff point adjustment. Points
// are a signed delta; zero is rejected.
type AdjustRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Points int    `json:"points" validate:"required"`
}

// Balance handles GET /api/v1/loyalty/balance.
func (h *LoyaltyHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: balance})
}

// Adjust handles POST /api/v1/loyalty/adjust.
func (h *LoyaltyHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.UserIDFromContext(r.Context())

	var req AdjustRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	balance, err := h.service.Adjust(r.Context(), bearerToken(r), staffID, service.AdjustInput{
		UserID: req.UserID,
		Points: req.Points,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: balance})
}
