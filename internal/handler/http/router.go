package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/health"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig collects the handlers and cross-cutting pieces the router
// mounts.
type RouterConfig struct {
	Cart            *CartHandler
	Checkout        *CheckoutHandler
	Orders          *OrderHandler
	Loyalty         *LoyaltyHandler
	Catalog         *CatalogHandler
	Reconciliations *ReconciliationHandler
	Health          *health.Handler

	TokenValidator middleware.TokenValidator
	CORS           middleware.CORSConfig
	RateLimitRPS   int
	RateLimitBurst int
	Logger         *slog.Logger
}

// NewRouter builds the HTTP router with all middleware and routes. Staff
// routes sit behind a role gate; everything under /api/v1 requires a valid
// token.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Logger))
	}

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.TokenValidator))
		r.Use(middleware.RequestLogger(cfg.Logger))

		r.Get("/products", cfg.Catalog.List)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.Get)
			r.Delete("/", cfg.Cart.Clear)
			r.Post("/items", cfg.Cart.AddItem)
			r.Put("/items/{productID}", cfg.Cart.UpdateItem)
			r.Delete("/items/{productID}", cfg.Cart.RemoveItem)
		})

		r.Post("/checkout", cfg.Checkout.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/mine", cfg.Orders.Mine)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleStaff))
				r.Get("/active", cfg.Orders.Active)
				r.Post("/{id}/advance", cfg.Orders.Advance)
				r.Post("/{id}/cancel", cfg.Orders.Cancel)
			})
		})

		r.Route("/loyalty", func(r chi.Router) {
			r.Get("/balance", cfg.Loyalty.Balance)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleStaff))
				r.Post("/adjust", cfg.Loyalty.Adjust)
			})
		})

		r.Route("/reconciliations", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleStaff))
			r.Get("/", cfg.Reconciliations.List)
			r.Post("/{id}/resolve", cfg.Reconciliations.Resolve)
		})
	})

	return r
}
