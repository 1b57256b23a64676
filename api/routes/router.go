package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amendoza/storefront-backend/api/controllers"
	"github.com/amendoza/storefront-backend/api/middleware"
	"github.com/amendoza/storefront-backend/internal/accounts"
	"github.com/amendoza/storefront-backend/internal/addresses"
	"github.com/amendoza/storefront-backend/internal/cart"
	"github.com/amendoza/storefront-backend/internal/catalog"
	"github.com/amendoza/storefront-backend/internal/orders"
	"github.com/amendoza/storefront-backend/pkg/auth/session"
	"github.com/amendoza/storefront-backend/pkg/config"
	"github.com/amendoza/storefront-backend/pkg/enums"
	"github.com/amendoza/storefront-backend/pkg/logger"
	"github.com/amendoza/storefront-backend/pkg/metrics"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the router mounts. Nil entries disable the
// corresponding routes' backing checks rather than panic.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              pinger
	Cache           pinger
	Sessions        session.AccessSessionChecker
	Metrics         *metrics.HTTPMetrics
	MetricsRegistry prometheus.Gatherer

	Accounts  accounts.Service
	Addresses addresses.Service
	Catalog   catalog.Service
	Cart      cart.Service
	Orders    orders.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, d.Cache, logg))
	})

	if d.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(d.Accounts, logg))
		r.Post("/login", controllers.AuthLogin(d.Accounts, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Accounts, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

		r.Post("/auth/logout", controllers.AuthLogout(d.Accounts, logg))
		r.Get("/auth/me", controllers.AuthMe(d.Accounts, logg))

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(d.Addresses, logg))
			r.Post("/", controllers.AddressCreate(d.Addresses, logg))
			r.Get("/{addressId}", controllers.AddressGet(d.Addresses, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(d.Addresses, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(d.Addresses, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", controllers.CategoryList(d.Catalog, logg))
			r.Get("/categories/{categoryId}/products", controllers.CategoryProducts(d.Catalog, logg))
			r.Get("/products/{productId}", controllers.ProductDetail(d.Catalog, logg))
			r.Post("/products/{productId}/reviews", controllers.ProductReviewCreate(d.Catalog, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(d.Cart, logg))
			r.Post("/add", controllers.CartAddItem(d.Cart, logg))
			r.Get("/items/{itemId}", controllers.CartItemGet(d.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartItemUpdate(d.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartItemRemove(d.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(d.Orders, logg))
			r.Post("/place", controllers.OrderPlaceFromCart(d.Orders, logg))
			r.Post("/direct-place", controllers.OrderPlaceDirect(d.Orders, logg))
			r.Delete("/{orderId}", controllers.OrderDelete(d.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Post("/categories", controllers.AdminCategoryCreate(d.Catalog, logg))
			r.Put("/categories/{categoryId}", controllers.AdminCategoryUpdate(d.Catalog, logg))
			r.Delete("/categories/{categoryId}", controllers.AdminCategoryDelete(d.Catalog, logg))
			r.Post("/products", controllers.AdminProductCreate(d.Catalog, logg))
			r.Put("/products/{productId}", controllers.AdminProductUpdate(d.Catalog, logg))
			r.Delete("/products/{productId}", controllers.AdminProductDelete(d.Catalog, logg))
			r.Post("/products/{productId}/variants", controllers.AdminVariantCreate(d.Catalog, logg))
			r.Put("/variants/{variantId}", controllers.AdminVariantUpdate(d.Catalog, logg))
			r.Delete("/variants/{variantId}", controllers.AdminVariantDelete(d.Catalog, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(d.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderGet(d.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderSetStatus(d.Orders, logg))
			r.Delete("/{orderId}", controllers.AdminOrderDelete(d.Orders, logg))
		})
	})

	return r
}
