package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pierre/cmd/consumers/jobs"
	"pierre/internal/config"
	"pierre/internal/consumers"
	"pierre/internal/logger"
	"pierre/internal/metrics"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	// Each process gets its own streaming client id.
	cfg.NATS.ClientID = "pierre-consumers"

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	expiry := jobs.NewExpiryJob(consumerService.Reservations(), cfg.Expiry.Schedule)
	if err := expiry.Start(ctx); err != nil {
		logger.Fatal("Failed to schedule expiry job", "schedule", cfg.Expiry.Schedule, "error", err)
	}

	settlement := jobs.NewSettlementJob(consumerService.Settlement(), cfg.Settlement.Schedule, cfg.Settlement.Grace)
	if err := settlement.Start(ctx); err != nil {
		logger.Fatal("Failed to schedule settlement job", "schedule", cfg.Settlement.Schedule, "error", err)
	}

	var metricsSrv *http.Server
	if cfg.MetricsEnabled {
		if err := metrics.RegisterDB(consumerService.DB(), cfg.Database.DBName); err != nil {
			log.Warn("Failed to export database pool metrics", "error", err)
		}
		metricsSrv = metrics.Serve(":" + cfg.MetricsPort)
		log.Info("Serving metrics", "port", cfg.MetricsPort)
	}

	log.Info("Consumers service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	expiry.Stop(shutdownCtx)
	settlement.Stop(shutdownCtx)

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("Consumers service stopped")
}
