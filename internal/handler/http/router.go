package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velora/storefront/pkg/health"
	"github.com/velora/storefront/pkg/middleware"
)

// RouterConfig carries the facade tuning knobs the router needs.
type RouterConfig struct {
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter creates a chi router with all storefront facade routes registered.
func NewRouter(
	sessionHandler *SessionHandler,
	cartHandler *CartHandler,
	wishlistHandler *WishlistHandler,
	badgeHandler *BadgeHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Post("/login", sessionHandler.Login)
			r.Post("/logout", sessionHandler.Logout)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.List)
			r.Post("/sync", cartHandler.Sync)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.List)
			r.Post("/sync", wishlistHandler.Sync)
			r.Post("/items", wishlistHandler.AddItem)
			r.Post("/items/{productId}/toggle", wishlistHandler.Toggle)
			r.Delete("/items/{productId}", wishlistHandler.RemoveItem)
		})

		r.Get("/badges", badgeHandler.Get)
	})

	return r
}
