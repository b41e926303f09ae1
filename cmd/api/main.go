package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pierre/internal/api"
	"pierre/internal/config"
	"pierre/internal/logger"
	"pierre/internal/validation"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "validate":
			creds := validation.Credentials{Email: os.Getenv("PIERRE_EMAIL"), Password: os.Getenv("PIERRE_PASSWORD")}
			if err := validation.Run(cfg.API, creds); err != nil {
				logger.Fatal("Validation failed", "error", err)
			}
			return
		case "reindex":
			server := api.NewServer(cfg)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			n, err := server.Reindex(ctx)
			cancel()
			_ = server.Cleanup()
			if err != nil {
				logger.Fatal("Reindex failed", "error", err)
			}
			log.Info("Reindexed events", "count", n)
			return
		}
	}

	server := api.NewServer(cfg)

	if cfg.PprofEnabled {
		go func() {
			log.Info("Starting pprof server", "port", cfg.PprofPort)
			if err := http.ListenAndServe("localhost:"+cfg.PprofPort, nil); err != nil {
				log.Error("pprof server stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.GetRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := server.Cleanup(); err != nil {
		log.Error("Error during cleanup", "error", err)
	}

	log.Info("Server stopped")
}
