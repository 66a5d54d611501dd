package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/service"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httputil"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/middleware"
)

// ReconciliationHandler serves the operator queue of captured payments that
// never materialized into orders.
type ReconciliationHandler struct {
	service *service.ReconciliationService
	logger  *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation HTTP handler.
func NewReconciliationHandler(svc *service.ReconciliationService, logger *slog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: svc,
		logger:  logger,
	}
}

// List handles GET /api/v1/reconciliations.
func (h *ReconciliationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	recs, total, err := h.service.ListOpen(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page := offset/limit + 1
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(recs, total, page, limit))
}

// Resolve handles POST /api/v1/reconciliations/{id}/resolve.
func (h *ReconciliationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	resolvedBy := middleware.UserIDFromContext(r.Context())

	if err := h.service.Resolve(r.Context(), id, resolvedBy); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
