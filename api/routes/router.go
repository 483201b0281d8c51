package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderflow/orderflow-backend/api/controllers"
	"github.com/orderflow/orderflow-backend/api/middleware"
	authsvc "github.com/orderflow/orderflow-backend/internal/auth"
	cartsvc "github.com/orderflow/orderflow-backend/internal/cart"
	"github.com/orderflow/orderflow-backend/internal/catalog"
	ordersvc "github.com/orderflow/orderflow-backend/internal/orders"
	"github.com/orderflow/orderflow-backend/pkg/config"
	"github.com/orderflow/orderflow-backend/pkg/db"
	"github.com/orderflow/orderflow-backend/pkg/enums"
	"github.com/orderflow/orderflow-backend/pkg/logger"
	"github.com/orderflow/orderflow-backend/pkg/metrics"
	"github.com/orderflow/orderflow-backend/pkg/redis"
)

// NewRouter wires the HTTP surface: public catalog reads, authenticated
// cart/order routes, admin catalog writes, health and metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	httpMetrics *metrics.HTTPMetrics,
	authService authsvc.Service,
	catalogService catalog.Service,
	cartService cartsvc.Service,
	orderService ordersvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/login", controllers.AuthLogin(authService, logg))
	})

	// Catalog reads are public; browsing needs no account.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(catalogService, logg))
		r.Get("/{productId}", controllers.GetProduct(catalogService, logg))
	})
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", controllers.ListCategories(catalogService, logg))
		r.Get("/{categoryId}/products", controllers.ListProductsByCategory(catalogService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(orderService, logg))
			r.Get("/", controllers.OrderList(orderService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(orderService, logg))
			r.Post("/{orderId}/confirm-cod", controllers.OrderConfirmCOD(orderService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, string(enums.UserRoleAdmin)))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(catalogService, logg))
			r.Put("/{productId}", controllers.AdminUpdateProduct(catalogService, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(catalogService, logg))
		})
	})

	return r
}
