package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"userapi/internal/api"
	"userapi/internal/cache"
	"userapi/internal/database"
	"userapi/internal/shared"
	"userapi/internal/user"
	"userapi/pkg/config"
)

func main() {
	cfg := config.Load()

	logger, err := shared.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	telemetry, err := shared.InitTelemetry(shared.TelemetryConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		MetricsPort:    cfg.MetricsPort,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	}, logger.Logger)

	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	var store cache.Store
	if cfg.CacheBackend == "memory" {
		store = cache.NewMemoryStore()
	} else {
		store = cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, logger)
	}

	metrics := shared.NewAppMetrics(telemetry.PrometheusRegistry)

	repo := user.NewSQLRepository(db, database.Builder())
	service := user.NewService(repo, store, metrics, logger, cfg.CacheReadTTL)
	handler := user.NewHandler(service)

	tracer := otel.Tracer(cfg.ServiceName)
	router := api.SetupRouter(handler, tracer, metrics, logger, api.RouterOptions{
		EnforceHTTPS: cfg.EnforceHTTPS,
	})
	server := api.NewServer(cfg.Port, router, logger)

	go server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	if err := telemetry.Shutdown(ctx); err != nil {
		logger.Error("Telemetry shutdown failed", zap.Error(err))
	}
}
