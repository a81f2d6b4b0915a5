// Package main runs the moderation API server: it accepts ads for
// asynchronous moderation, publishes moderation requests, reports results
// and scores ads synchronously.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/platform/postgres"
	"github.com/phrazzld/ad-moderation/internal/redact"
)

func main() {
	migrate := flag.String("migrate", "", "run a migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	if err := run(*migrate); err != nil {
		log.Fatalf("server: %s", redact.Error(err))
	}
}

func run(migrateCommand string) error {
	// A missing .env file is normal outside local development.
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

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}

	if migrateCommand != "" {
		defer closeDB(db, l)
		return postgres.Migrate(ctx, db, migrateCommand, l)
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		closeDB(db, l)
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return app.Run(ctx)
}

func closeDB(db *sql.DB, l *slog.Logger) {
	if err := db.Close(); err != nil {
		l.Error("failed to close database", "error", err)
	}
}
