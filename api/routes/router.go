package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Services are the domain dependencies served by the router.
type Services struct {
	Catalog  catalog.Service
	Carts    controllers.CartSessions
	Feedback controllers.FeedbackRegistry
	Checkout *checkout.Service
}

// Infra are the shared clients used by middleware and health checks. Nil
// members disable the features that need them.
type Infra struct {
	Idempotency pkgredis.IdempotencyStore
	RateLimits  middleware.RateLimitStore
	Gatherer    prometheus.Gatherer
	Readiness   map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services, infra Infra) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.Checkout.RateLimitWindow,
		cfg.Checkout.RateLimitPerSession,
		cfg.Checkout.RateLimitPerIP,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Readiness))
	})

	if infra.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(svc.Catalog, logg))
			r.Get("/{productID}", controllers.GetProduct(svc.Catalog, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(svc.Catalog, logg))
			r.Get("/{category}/products", controllers.ListProductsByCategory(svc.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(svc.Carts, svc.Feedback, svc.Checkout, logg))
				r.Delete("/", controllers.ClearCart(svc.Carts, svc.Feedback, svc.Checkout, logg))
				r.Post("/items", controllers.AddCartItem(svc.Carts, svc.Feedback, svc.Catalog, svc.Checkout, logg))
				r.Patch("/items/{productID}", controllers.UpdateCartItem(svc.Carts, svc.Feedback, svc.Checkout, logg))
				r.Delete("/items/{productID}", controllers.RemoveCartItem(svc.Carts, svc.Feedback, svc.Checkout, logg))
				r.Get("/feedback", controllers.GetFeedback(svc.Feedback, logg))
				r.Get("/feedback/stream", controllers.StreamFeedback(svc.Feedback, logg))
			})

			r.Get("/checkout/quote", controllers.GetCheckoutQuote(svc.Carts, svc.Checkout, logg))
			r.Post("/checkout/shipping", controllers.ValidateShipping(logg))
			r.With(
				middleware.RateLimit(checkoutPolicy, infra.RateLimits, logg),
				middleware.Idempotency(infra.Idempotency, logg),
			).Post("/checkout", controllers.SubmitCheckout(svc.Carts, svc.Checkout, logg))
		})
	})

	return r
}
