package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/operations"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/paystack"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const paystackCallbackScope = "paystack"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	commerceMetrics := metrics.NewCommerceMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		JWTConfig:      cfg.JWT,
		RateLimit:      cfg.AuthRateLimit,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "register service", err)

	catalogService, err := catalog.NewService(catalog.NewRepository(gormDB))
	requireResource(ctx, logg, "catalog service", err)

	cartService, err := cart.NewService(cart.NewRepository(gormDB), dbClient)
	requireResource(ctx, logg, "cart service", err)

	discountService, err := discounts.NewService(discounts.NewRepository(gormDB))
	requireResource(ctx, logg, "discount service", err)

	addressService, err := addresses.NewService(addresses.NewRepository(gormDB), dbClient)
	requireResource(ctx, logg, "address service", err)

	// Shipping reads settings through an invalidator-free view; the admin
	// service writes through shipping so cached fees are dropped on change.
	operationsRepo := operations.NewRepository(gormDB)
	operationsReader, err := operations.NewService(operationsRepo, nil)
	requireResource(ctx, logg, "operations reader", err)

	shippingService, err := shipping.NewService(shipping.Params{
		Operations:  operationsReader,
		Cache:       redisClient,
		TTL:         cfg.Checkout.ShippingCacheTTL,
		LocalRegion: cfg.Checkout.LocalRegion,
		Logger:      logg,
	})
	requireResource(ctx, logg, "shipping service", err)

	operationsService, err := operations.NewService(operationsRepo, shippingService)
	requireResource(ctx, logg, "operations service", err)

	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	notifier, err := notifications.NewNotifier(dbClient, outboxService, commerceMetrics)
	requireResource(ctx, logg, "notifier", err)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repository:  inventory.NewRepository(gormDB),
		Catalog:     catalogService,
		TxRunner:    dbClient,
		Notifier:    notifier,
		Logger:      logg,
		Metrics:     commerceMetrics,
		AdminEmail:  cfg.Mailer.AdminEmail,
		AuditRepair: cfg.Inventory.AuditRepair,
	})
	requireResource(ctx, logg, "inventory service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(gormDB),
		TxRunner:   dbClient,
		Cart:       cartService,
		Discounts:  discountService,
		Shipping:   shippingService,
		Addresses:  addressService,
		Inventory:  inventoryService,
		Customers:  userRepo,
		Notifier:   notifier,
		Logger:     logg,
		Metrics:    commerceMetrics,
		CodePrefix: cfg.Checkout.OrderCodePrefix,
		Currency:   cfg.Checkout.Currency,
		Location:   cfg.Checkout.Location(),
	})
	requireResource(ctx, logg, "order service", err)

	paymentService := buildPayments(ctx, cfg, logg, paymentDeps{
		db:       dbClient,
		redis:    redisClient,
		orders:   orderService,
		users:    userRepo,
		notifier: notifier,
		metrics:  commerceMetrics,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:               dbClient,
			Redis:            redisClient,
			IdempotencyStore: redisClient,
			Sessions:         sessionManager,
			Gatherer:         registry,
			Auth:             authService,
			Register:         registerService,
			Catalog:          catalogService,
			Cart:             cartService,
			Addresses:        addressService,
			Discounts:        discountService,
			Orders:           orderService,
			Customers:        userRepo,
			Inventory:        inventoryService,
			Operations:       operationsService,
			Payments:         paymentService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

type paymentDeps struct {
	db       *db.Client
	redis    *redis.Client
	orders   orders.Service
	users    *users.Repository
	notifier notifications.Notifier
	metrics  *metrics.CommerceMetrics
}

// buildPayments returns nil when Paystack is not configured so local
// environments can run without provider credentials.
func buildPayments(ctx context.Context, cfg *config.Config, logg *logger.Logger, deps paymentDeps) payments.Service {
	client, err := paystack.NewClient(cfg.Paystack, nil, logg)
	if err != nil {
		if cfg.App.IsProd() {
			requireResource(ctx, logg, "paystack client", err)
		}
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "paystack disabled")
		return nil
	}

	guard, err := payments.NewCallbackGuard(deps.redis, cfg.Eventing.IdempotencyTTL, paystackCallbackScope)
	requireResource(ctx, logg, "paystack callback guard", err)

	svc, err := payments.NewService(payments.ServiceParams{
		Repository:  payments.NewRepository(deps.db.DB()),
		Orders:      deps.orders,
		Provider:    payments.NewPaystackProvider(client),
		TxRunner:    deps.db,
		Guard:       guard,
		Customers:   deps.users,
		Notifier:    deps.notifier,
		Logger:      logg,
		Metrics:     deps.metrics,
		Currency:    cfg.Checkout.Currency,
		InitTimeout: cfg.Paystack.Timeout,
	})
	requireResource(ctx, logg, "payment service", err)
	return svc
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
