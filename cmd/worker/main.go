// Package main runs the moderation worker: it consumes moderation requests,
// scores the referenced ads and records the verdicts. It also runs the
// sweep that re-enqueues stale tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/redact"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker: %s", redact.Error(err))
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %w", err)
	}
	defer app.cleanup()

	return app.Run(ctx)
}
