package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "stock-engine/internal/adapters/web"
	"stock-engine/internal/app"
	"stock-engine/internal/config"
	"stock-engine/internal/core"
	"stock-engine/internal/db"
	"stock-engine/internal/idempotency"
	"stock-engine/internal/logging"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.RequireJWTSecret(); err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	idem := idempotency.Noop()
	if cfg.RedisURL != "" {
		client, err := idempotency.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer client.Close()
		idem = idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
		logger.Info("idempotency keys enabled", zap.Duration("ttl", cfg.IdempotencyTTL))
	} else {
		logger.Warn("REDIS_URL not set, Idempotency-Key header is ignored")
	}

	docService := core.NewDocumentService(pool)
	svc := app.NewAppService(
		core.NewCatalogService(pool),
		core.NewInventoryService(pool),
		core.NewInvoiceService(pool, docService),
		core.NewProductionService(pool),
		core.NewUserService(pool),
		core.NewWarehouseAccessChecker(pool),
	)

	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, logger, idem, cfg.SecureCookies)
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("port", cfg.ServerPort))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("server stopped")
}
