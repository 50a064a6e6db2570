package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/payment/stripe"
	analyticsrepo "storefront/internal/repository/analytics"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	analyticssvc "storefront/internal/service/analytics"
	authsvc "storefront/internal/service/auth"
	checkoutsvc "storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/storage"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.Named("api")
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	m := metrics.New()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	productOpts := []productsvc.Option{productsvc.WithLogger(logger)}
	if cfg.S3.Bucket != "" {
		images, err := storage.NewS3(ctx, storage.Config{
			Bucket:     cfg.S3.Bucket,
			Region:     cfg.S3.Region,
			Endpoint:   cfg.S3.Endpoint,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			PublicHost: cfg.FileURLHost,
		}, logger)
		if err != nil {
			logger.Fatal("init image storage", zap.Error(err))
		}
		productOpts = append(productOpts, productsvc.WithImageStore(images))
	} else {
		logger.Info("S3_BUCKET not set, product image uploads disabled")
	}
	productService := productsvc.New(productRepo, productOpts...)

	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	orderService := ordersvc.New(orderRepo, ordersvc.WithLogger(logger))

	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
		logger.Warn("stripe keys are not fully configured; checkout sessions or webhooks will fail")
	}
	gateway := stripe.New(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, logger)
	checkoutService := checkoutsvc.New(productRepo, orderRepo, gateway, checkoutsvc.Config{
		FrontendURL:      cfg.FrontendURL,
		Currency:         cfg.Currency,
		AllowedCountries: []string{"US", "CA"},
	}, m, logger)

	analyticsOpts := []analyticssvc.Option{analyticssvc.WithLogger(logger), analyticssvc.WithCacheObserver(m.CacheLookup)}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, "storefront:analytics:")
		if err != nil {
			logger.Warn("redis unavailable, analytics caching disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer rc.Close()
			analyticsOpts = append(analyticsOpts, analyticssvc.WithCache(rc, cfg.AnalyticsCacheTTL))
		}
	}
	analyticsService := analyticssvc.New(analyticsrepo.NewPostgres(dbpool, logger), analyticsOpts...)

	if cfg.JWTSecret == "change-me" && cfg.Environment == "production" {
		logger.Fatal("JWT_SECRET must be set in production")
	}
	authService := authsvc.New(userrepo.NewPostgres(dbpool, logger), cfg.JWTSecret, cfg.JWTTTL, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Products:    productService,
		Orders:      orderService,
		Checkout:    checkoutService,
		Analytics:   analyticsService,
		Auth:        authService,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
