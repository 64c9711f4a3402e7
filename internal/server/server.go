// Package server boots the storefront: configuration, database, cache,
// background workers, event listeners and the HTTP stack, all wired
// through constructors.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/controllers"
	"github.com/elmesiashu/tenseishitara/app/jobs"
	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/app/routes"
	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/config"
	"github.com/elmesiashu/tenseishitara/pkg/cache"
	"github.com/elmesiashu/tenseishitara/pkg/database"
	"github.com/elmesiashu/tenseishitara/pkg/event"
	"github.com/elmesiashu/tenseishitara/pkg/logger"
	"github.com/elmesiashu/tenseishitara/pkg/metrics"
	"github.com/elmesiashu/tenseishitara/pkg/middleware"
	"github.com/elmesiashu/tenseishitara/pkg/migration"
	"github.com/elmesiashu/tenseishitara/pkg/queue"
	"github.com/elmesiashu/tenseishitara/pkg/reqid"
	"github.com/elmesiashu/tenseishitara/pkg/router"
	"github.com/elmesiashu/tenseishitara/pkg/session"
	"github.com/elmesiashu/tenseishitara/pkg/storage"
	"github.com/elmesiashu/tenseishitara/pkg/workerpool"
	"github.com/elmesiashu/tenseishitara/pkg/ws"
)

const (
	shutdownTimeout = 15 * time.Second
	queueWorkers    = 4
	eventPoolSize   = 16
)

// Start boots everything and serves until SIGINT or SIGTERM.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	if uri := config.LogMongoURI(); uri != "" {
		if err := logger.EnableMongoSink(uri, config.LogMongoDatabase(), "logs"); err != nil {
			logger.Warn("mongo log sink disabled", "error", err)
		}
	}

	db, err := database.Connect()
	if err != nil {
		return err
	}

	if err := migration.New(db).Run(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := cache.Connect(ctx)
	if err != nil {
		logger.Warn("redis unavailable, cache and sessions degrade to no-ops", "error", err)
	}

	storage.Connect()

	if config.QueueDriver() == "redis" && c.Client() != nil {
		queue.SetDriver(queue.NewRedisDriver(c.Client()))
	}
	queue.UseDB(db)
	jobs.Init(db)
	queue.StartWorkers(ctx, queueWorkers)

	orderHub := ws.NewHub()
	go orderHub.Run()
	registerOrderListeners(orderHub)

	r := buildRouter(db, c, orderHub)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildRouter wires repositories, services, controllers and middleware.
func buildRouter(db *gorm.DB, c *cache.Cache, orderHub *ws.Hub) *router.Router {
	users := repositories.NewUserRepository(db)
	products := repositories.NewProductRepository(db)
	addresses := repositories.NewAddressRepository(db)
	payments := repositories.NewPaymentRepository(db)
	orders := repositories.NewOrderRepository(db)

	authSvc := services.NewAuthService(users)
	catalogSvc := services.NewCatalogService(products, c)
	cartSvc := services.NewCartService(products)
	addressSvc := services.NewAddressService(addresses)
	paymentSvc := services.NewPaymentService(payments)
	checkoutSvc := services.NewCheckoutService(db, products, addresses, payments, orders, config.TaxRate())
	orderSvc := services.NewOrderService(orders, addresses, payments)

	sessions := session.NewStore(c, session.DefaultOptions())

	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(middleware.RateLimit(300, time.Minute))

	routes.RegisterAPI(r, routes.Deps{
		Auth:     controllers.NewAuthController(authSvc),
		Products: controllers.NewProductController(catalogSvc),
		Cart:     controllers.NewCartController(cartSvc),
		Address:  controllers.NewAddressController(addressSvc),
		Payment:  controllers.NewPaymentController(paymentSvc),
		Checkout: controllers.NewCheckoutController(checkoutSvc),
		Orders:   controllers.NewOrderController(orderSvc),
		Session:  sessions.Middleware(),
		OrderHub: orderHub,
	})

	return r
}

// registerOrderListeners hooks the post-commit order event to the
// confirmation email job and the admin live feed. Handlers run on a
// bounded pool so a burst of orders cannot spawn unbounded goroutines.
func registerOrderListeners(orderHub *ws.Hub) {
	pool := workerpool.New(eventPoolSize)

	event.Listen(services.EventOrderPlaced, func(payload interface{}) {
		order, ok := payload.(models.Order)
		if !ok {
			return
		}

		if err := pool.Submit(func() {
			if err := queue.Dispatch(&jobs.OrderConfirmationJob{OrderID: order.ID}); err != nil {
				logger.Error("dispatch order confirmation", "order_no", order.OrderNo, "error", err)
			}

			summary, err := json.Marshal(map[string]interface{}{
				"event":    services.EventOrderPlaced,
				"order_no": order.OrderNo,
				"total":    order.Total,
				"items":    len(order.Items),
			})
			if err == nil {
				orderHub.Broadcast <- summary
			}
		}); err != nil {
			logger.Warn("order listener pool full, handling inline", "order_no", order.OrderNo)
			if err := queue.Dispatch(&jobs.OrderConfirmationJob{OrderID: order.ID}); err != nil {
				logger.Error("dispatch order confirmation", "order_no", order.OrderNo, "error", err)
			}
		}
	})
}
