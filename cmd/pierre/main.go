// Command pierre browses events and manages shared-table reservations
// against a running reservation API.
package main

import (
	"context"
	"os"
	"os/signal"

	"pierre/internal/config"
	"pierre/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.InitWithWriter(os.Stderr, getLevel(), "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// The CLI stays quiet unless asked.
func getLevel() string {
	if lvl := os.Getenv("PIERRE_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "warn"
}
