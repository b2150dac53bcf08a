package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-gateway/api/routes"
	"github.com/angelmondragon/storefront-gateway/internal/admin"
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/catalog"
	"github.com/angelmondragon/storefront-gateway/internal/checkout"
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/internal/delivery"
	"github.com/angelmondragon/storefront-gateway/internal/errorlog"
	"github.com/angelmondragon/storefront-gateway/internal/messages"
	"github.com/angelmondragon/storefront-gateway/internal/notifications"
	"github.com/angelmondragon/storefront-gateway/internal/preferences"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/internal/vendor"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/config"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/angelmondragon/storefront-gateway/pkg/events"
	"github.com/angelmondragon/storefront-gateway/pkg/geo"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/metrics"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/angelmondragon/storefront-gateway/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-gateway"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-gateway",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     strings.EqualFold(cfg.App.LogFormat, "console"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "gateway stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var redisClient *redis.Client
	var store profile.Store
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		store = profile.NewRedisStore(redisClient, cfg.Visitor.ProfileTTL)
	} else {
		logg.Warn(ctx, "redis not configured, visitor profiles kept in memory")
		store = profile.NewMemoryStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewStorefrontMetrics(registry)

	bus := events.NewBus()
	be, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout,
		backend.WithUnauthorizedSignal(bus),
		backend.WithRecorder(recorder),
	)
	if err != nil {
		return err
	}
	geoClient := geo.NewClient(cfg.Geo.PrimaryURL, cfg.Geo.FallbackURL, cfg.Geo.Timeout, geo.WithRecorder(recorder))

	baseCurrency, err := enums.ParseCurrency(cfg.Storefront.BaseCurrency)
	if err != nil {
		return err
	}

	// one locker per process so the session and cart services serialize on
	// the same visitor keys
	locker := profile.NewLocker()

	notificationSvc, err := notifications.NewService(store)
	if err != nil {
		return err
	}
	currencySvc, err := currency.NewService(store, geoClient, baseCurrency, logg)
	if err != nil {
		return err
	}
	preferencesSvc, err := preferences.NewService(store)
	if err != nil {
		return err
	}
	errorSvc, err := errorlog.NewService(store)
	if err != nil {
		return err
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Store:    store,
		Locker:   locker,
		Backend:  be,
		Notices:  notificationSvc,
		Recorder: recorder,
		Logger:   logg,
		Shipping: cart.ShippingPolicy{
			FreeThreshold: decimal.NewFromFloat(cfg.Storefront.FreeShippingThreshold),
			FeePerVendor:  decimal.NewFromFloat(cfg.Storefront.ShippingFeePerVendor),
		},
	})
	if err != nil {
		return err
	}
	sessionSvc, err := session.NewService(session.ServiceParams{
		Store:     store,
		Locker:    locker,
		Backend:   be,
		Logger:    logg,
		Recorder:  recorder,
		Listeners: []session.LoginListener{cartSvc},
	})
	if err != nil {
		return err
	}
	session.Subscribe(sessionSvc, bus)

	catalogSvc, err := catalog.NewService(be, catalog.DefaultRotationInterval)
	if err != nil {
		return err
	}
	messagesSvc, err := messages.NewService(be)
	if err != nil {
		return err
	}
	vendorSvc, err := vendor.NewService(be, cfg.Uploads.MaxBytes(), logg)
	if err != nil {
		return err
	}
	deliverySvc, err := delivery.NewService(be)
	if err != nil {
		return err
	}
	checkoutSvc, err := checkout.NewService(cartSvc, be, baseCurrency, logg)
	if err != nil {
		return err
	}
	adminSvc, err := admin.NewService(be)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Redis:         redisClient,
		Gatherer:      registry,
		Session:       sessionSvc,
		Cart:          cartSvc,
		Currency:      currencySvc,
		Preferences:   preferencesSvc,
		Notifications: notificationSvc,
		ErrorLog:      errorSvc,
		Catalog:       catalogSvc,
		Messages:      messagesSvc,
		Vendor:        vendorSvc,
		Delivery:      deliverySvc,
		Checkout:      checkoutSvc,
		Admin:         adminSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"backend": cfg.Backend.BaseURL,
		"redis":   redisClient != nil,
	})
	logg.Info(logCtx, "starting storefront gateway")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down storefront gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
