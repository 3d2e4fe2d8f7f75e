package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeronDaniel/E-commerce-project/internal/sandbox/service"
	"github.com/MeronDaniel/E-commerce-project/pkg/health"
	"github.com/MeronDaniel/E-commerce-project/pkg/middleware"
)

const serviceName = "sandbox"

// RateLimit configures the per-caller token bucket on /api routes.
type RateLimit struct {
	RPS   float64
	Burst int
}

// NewRouter creates a chi router with all sandbox routes registered. ctx
// bounds background work started by middleware.
func NewRouter(
	ctx context.Context,
	cartService *service.CartService,
	productService *service.ProductService,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	limit RateLimit,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(cartService, logger)
	productHandler := NewProductHandler(productService)

	r.Route("/api/products", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, limit.RPS, limit.Burst, logger))
		r.Get("/", productHandler.List)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(middleware.Auth(validate))
		r.Use(middleware.RateLimit(ctx, limit.RPS, limit.Burst, logger))
		r.Use(middleware.RequestLogger(logger))

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)
		r.Get("/count", cartHandler.Count)
		r.Post("/add", cartHandler.AddItem)
		r.Put("/update", cartHandler.UpdateQuantity)
		r.Delete("/remove", cartHandler.RemoveItem)
		r.Post("/apply-promo", cartHandler.ApplyPromo)
	})

	return r
}
