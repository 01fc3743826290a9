package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/operations"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies bundles everything the HTTP surface calls into.
type Dependencies struct {
	DB               controllers.Pinger
	Redis            controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	Sessions         session.Checker
	Gatherer         prometheus.Gatherer

	Auth       auth.Service
	Register   auth.RegisterService
	Catalog    catalog.Service
	Cart       cart.Service
	Addresses  addresses.Service
	Discounts  discounts.Service
	Orders     orders.Service
	Customers  orders.CustomerDirectory
	Inventory  inventory.Service
	Operations operations.Service
	Payments   payments.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	authenticate := middleware.Auth(cfg.JWT, deps.Sessions, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.AuthRegister(deps.Register, logg))
			if !cfg.App.IsProd() {
				r.Post("/admin/register", controllers.AdminRegister(deps.Register, logg))
			}
			r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.With(authenticate).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		})

		r.Get("/products", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/products/{id}", controllers.GetProduct(deps.Catalog, logg))

		r.Post("/webhooks/paystack", webhookcontrollers.PaystackWebhook(deps.Payments, cfg.Paystack.SecretKey, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Post("/items/batch", controllers.CartAddItems(deps.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(deps.Addresses, logg))
				r.Post("/", controllers.AddressCreate(deps.Addresses, logg))
				r.Patch("/{id}/default", controllers.AddressSetDefault(deps.Addresses, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderListMine(deps.Orders, logg))
				r.Post("/", controllers.OrderCreate(deps.Orders, logg))
				r.Get("/code/{code}", controllers.OrderGetByCode(deps.Orders, logg))
				r.Get("/{id}", controllers.OrderGet(deps.Orders, logg))
				r.Post("/{id}/cancel", controllers.OrderCancel(deps.Orders, logg))
				r.Post("/{id}/payments/initialize", controllers.PaymentInitialize(deps.Payments, deps.Customers, logg))
			})

			r.Post("/discounts/validate", controllers.DiscountValidate(deps.Discounts, deps.Cart, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
					r.Get("/overview", controllers.AdminOrderOverview(deps.Orders, logg))
					r.Get("/revenue", controllers.AdminOrderRevenue(deps.Orders, logg))
					r.Get("/{id}", controllers.OrderGet(deps.Orders, logg))
					r.Patch("/{id}/status", controllers.AdminOrderUpdateStatus(deps.Orders, logg))
					r.Patch("/{id}/payment", controllers.AdminOrderUpdatePayment(deps.Orders, logg))
					r.Post("/{id}/cancel", controllers.OrderCancel(deps.Orders, logg))
				})

				r.Route("/products", func(r chi.Router) {
					r.Post("/", controllers.AdminCreateProduct(deps.Catalog, logg))
					r.Patch("/{id}", controllers.AdminUpdateProduct(deps.Catalog, logg))
					r.Post("/{id}/variants", controllers.AdminCreateVariant(deps.Catalog, logg))
				})

				r.Route("/inventory", func(r chi.Router) {
					r.Post("/", controllers.AdminInventoryRecord(deps.Inventory, logg))
					r.Get("/overview", controllers.AdminInventoryOverview(deps.Inventory, logg))
					r.Get("/products/{id}", controllers.AdminInventoryByProduct(deps.Inventory, logg))
					r.Get("/{id}", controllers.AdminInventoryGet(deps.Inventory, logg))
					r.Delete("/{id}", controllers.AdminInventoryReverse(deps.Inventory, logg))
				})

				r.Route("/discounts", func(r chi.Router) {
					r.Get("/", controllers.AdminDiscountList(deps.Discounts, logg))
					r.Post("/", controllers.AdminDiscountCreate(deps.Discounts, logg))
					r.Delete("/", controllers.AdminDiscountDelete(deps.Discounts, logg))
					r.Get("/code/{code}", controllers.AdminDiscountGetByCode(deps.Discounts, logg))
					r.Get("/{id}", controllers.AdminDiscountGet(deps.Discounts, logg))
					r.Patch("/{id}", controllers.AdminDiscountUpdate(deps.Discounts, logg))
				})

				r.Route("/operations", func(r chi.Router) {
					r.Get("/", controllers.AdminOperationsList(deps.Operations, logg))
					r.Put("/{key}", controllers.AdminOperationsSet(deps.Operations, logg))
				})
			})
		})
	})

	return r
}
