package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mateoreyes/storefront-pos/api/controllers"
	"github.com/mateoreyes/storefront-pos/api/middleware"
	cartsvc "github.com/mateoreyes/storefront-pos/internal/cart"
	catalogsvc "github.com/mateoreyes/storefront-pos/internal/catalog"
	checkoutsvc "github.com/mateoreyes/storefront-pos/internal/checkout"
	inventorysvc "github.com/mateoreyes/storefront-pos/internal/inventory"
	salessvc "github.com/mateoreyes/storefront-pos/internal/sales"
	"github.com/mateoreyes/storefront-pos/pkg/config"
	"github.com/mateoreyes/storefront-pos/pkg/db"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
	"github.com/mateoreyes/storefront-pos/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	catalogService catalogsvc.Service,
	inventoryService inventorysvc.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	salesService salessvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(catalogService, logg))
			r.Post("/", controllers.CategoryCreate(catalogService, logg))
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(catalogService, logg))
			r.Post("/", controllers.ProductCreate(catalogService, logg))
			r.Get("/{productId}", controllers.ProductFetch(catalogService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(catalogService, logg))
			r.Put("/{productId}/stock", controllers.StockAdjust(inventoryService, logg))
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartCreate(cartService, logg))
			r.Get("/{cartId}", controllers.CartFetch(cartService, logg))
			r.Post("/{cartId}/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/{cartId}/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/{cartId}/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
		})
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SaleList(salesService, logg))
			r.Post("/", controllers.SaleCreate(salesService, logg))
			r.Get("/{saleId}", controllers.SaleFetch(salesService, logg))
			r.Delete("/{saleId}", controllers.SaleDelete(salesService, logg))
			r.Post("/{saleId}/items", controllers.SaleItemCreate(salesService, logg))
			r.Patch("/items/{itemId}", controllers.SaleItemUpdate(salesService, logg))
			r.Delete("/items/{itemId}", controllers.SaleItemDelete(salesService, logg))
		})
	})

	return r
}
