package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	httpHandlers "github.com/Supreme070/marketsage-fe-sub019/internal/adapters/http/handlers"
	httpMiddleware "github.com/Supreme070/marketsage-fe-sub019/internal/adapters/http/middleware"
	memorystorage "github.com/Supreme070/marketsage-fe-sub019/internal/adapters/storage/memory"
	redisstorage "github.com/Supreme070/marketsage-fe-sub019/internal/adapters/storage/redis"
	"github.com/Supreme070/marketsage-fe-sub019/internal/config"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/ports"
	"github.com/Supreme070/marketsage-fe-sub019/internal/core/services"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	store, pool, closeStorage, err := initStorage(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}
	defer closeStorage()

	limiterOpts := services.Options{
		DisableThrottling: cfg.RateLimiter.Disabled,
		Logger:            logger,
	}

	ipLimiter, err := services.NewSlidingWindowLimiter(store, cfg.RateLimiter.IP, limiterOpts)
	if err != nil {
		logger.Fatal("failed to create ip limiter", zap.Error(err))
	}

	policyLimiters := make(map[string]ports.Limiter, len(cfg.RateLimiter.Policies))

	for name, policy := range cfg.RateLimiter.Policies {
		limiter, err := services.NewSlidingWindowLimiter(store, policy, limiterOpts)
		if err != nil {
			logger.Fatal("failed to create limiter", zap.String("policy", name), zap.Error(err))
		}

		policyLimiters[name] = limiter
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	guard := httpMiddleware.NewLocalGuard(cfg.LocalGuard.RPS, cfg.LocalGuard.Burst)
	guard.StartJanitor(ctx)

	r := chi.NewRouter()
	r.Use(guard.Middleware())
	r.Use(httpMiddleware.NewRateLimiterMiddleware(httpMiddleware.RateLimitOptions{
		IPLimiter:    ipLimiter,
		TokenLimiter: policyLimiters["api"],
		Logger:       logger,
	}))

	r.Get("/test", httpHandlers.TestHandler)

	// Product policies guard their own routes, keyed by client address.
	for name, limiter := range policyLimiters {
		if name == "api" {
			continue
		}

		r.With(httpMiddleware.NewRateLimiterMiddleware(httpMiddleware.RateLimitOptions{
			IPLimiter: limiter,
			Logger:    logger,
		})).Post("/"+name+"/test", httpHandlers.TestHandler)
	}

	healthHandler := httpHandlers.NewHealthHandler(nil)
	if pool != nil {
		healthHandler = httpHandlers.NewHealthHandler(pool)
	}
	r.Get("/healthz", healthHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))

		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func initStorage(cfg config.StorageConfig, logger *zap.Logger) (ports.WindowStore, *redisstorage.Pool, func(), error) {
	switch cfg.Type {
	case "redis":
		pool, err := redisstorage.NewPool(redisstorage.PoolConfig{
			Addr:           cfg.Redis.Addr(),
			Password:       cfg.Redis.Password,
			DB:             cfg.Redis.DB,
			PoolSize:       cfg.Redis.PoolSize,
			MaxRetries:     cfg.Redis.MaxRetries,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
			LazyConnect:    cfg.Redis.LazyConnect,
			SkipConnect:    cfg.Redis.SkipConnect,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}

		store, err := redisstorage.NewWindowStore(pool)
		if err != nil {
			return nil, nil, nil, err
		}

		return store, pool, func() {
			if err := pool.Disconnect(); err != nil {
				logger.Warn("failed to disconnect redis pool", zap.Error(err))
			}
		}, nil
	case "memory":
		return memorystorage.NewWindowStore(), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
