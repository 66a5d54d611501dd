package http

import (
	"log/slog"
	"net/http"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/service"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httputil"
)

// CatalogHandler serves the backend product catalog to the menu surface.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  logger,
	}
}

// List handles GET /api/v1/products.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context(), bearerToken(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}
