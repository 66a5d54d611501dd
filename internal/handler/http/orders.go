package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/service"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/tracker"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httputil"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/middleware"
)

// OrderHandler handles HTTP requests for order endpoints. Reads come from
// tracker snapshots, never from a per-request backend call; mutations go
// through the order service.
type OrderHandler struct {
	service *service.OrderService
	mine    *tracker.Manager
	active  *tracker.Tracker
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, mine *tracker.Manager, active *tracker.Tracker, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		mine:    mine,
		active:  active,
		logger:  logger,
	}
}

// OrderView is an order annotated with the staff action label for its
// current state. Terminal orders carry no label.
type OrderView struct {
	domain.Order
	ActionLabel string `json:"action_label,omitempty"`
}

// SnapshotView is a tracker snapshot with annotated orders.
type SnapshotView struct {
	Scope     string      `json:"scope"`
	Orders    []OrderView `json:"orders"`
	Stale     bool        `json:"stale"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func snapshotView(snap tracker.Snapshot) SnapshotView {
	orders := make([]OrderView, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		orders = append(orders, OrderView{Order: o, ActionLabel: domain.ActionLabel(o.Status)})
	}
	return SnapshotView{
		Scope:     snap.Scope,
		Orders:    orders,
		Stale:     snap.Stale,
		UpdatedAt: snap.UpdatedAt,
	}
}

// Mine handles GET /api/v1/orders/mine. The first call starts the user's
// tracker, so the very first snapshot may still be empty.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	tr := h.mine.Tracker(r.Context(), userID, bearerToken(r))
	h.writeSnapshot(w, r, tr)
}

// Active handles GET /api/v1/orders/active, the kitchen board view.
func (h *OrderHandler) Active(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, r, h.active)
}

// writeSnapshot serves the tracker's latest snapshot. A stale snapshot with
// last-known-good orders still serves; only a scope that has never polled
// successfully reports the poll failure instead of an empty view.
func (h *OrderHandler) writeSnapshot(w http.ResponseWriter, r *http.Request, tr *tracker.Tracker) {
	snap := tr.Snapshot()
	if snap.UpdatedAt.IsZero() {
		if err := tr.Err(); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snapshotView(snap)})
}

// Advance handles POST /api/v1/orders/{id}/advance.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actorID := middleware.UserIDFromContext(r.Context())

	order, err := h.service.Advance(r.Context(), bearerToken(r), actorID, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: OrderView{Order: *order, ActionLabel: domain.ActionLabel(order.Status)},
	})
}

// Cancel handles POST /api/v1/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	actorID := middleware.UserIDFromContext(r.Context())

	order, err := h.service.Cancel(r.Context(), bearerToken(r), actorID, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: OrderView{Order: *order}})
}
