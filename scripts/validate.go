package main

import (
	"flag"
	"os"

	"pierre/internal/config"
	"pierre/internal/logger"
	"pierre/internal/validation"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")

	flag.StringVar(&cfg.API.BaseURL, "url", cfg.API.BaseURL, "Base URL of the reservation API")
	email := flag.String("email", os.Getenv("PIERRE_EMAIL"), "account used for the signed-in checks")
	password := flag.String("password", os.Getenv("PIERRE_PASSWORD"), "password of that account")
	flag.Parse()

	if err := validation.Run(cfg.API, validation.Credentials{Email: *email, Password: *password}); err != nil {
		logger.Fatal("Validation failed", "error", err)
	}
	logger.Get().Info("Validation passed")
}
