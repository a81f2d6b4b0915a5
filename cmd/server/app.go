package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/platform/postgres"
	"github.com/phrazzld/ad-moderation/internal/queue"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// model is the scoring surface the server needs.
type model interface {
	scoring.Scorer
	Loaded() bool
}

// application holds the server's dependencies for the lifetime of the
// process and releases them in cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	tasks    store.TaskStore
	ads      store.AdStore
	model    model
	producer *queue.Producer
}

// newApplication loads the model, builds the stores and starts the
// producer. Any failure is fatal: the server does not start half-wired.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	manager := scoring.NewManager(cfg.Model, logger)
	if err := manager.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize model: %w", err)
	}

	publisher, err := queue.NewPublisher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	producer := queue.NewProducer(publisher, cfg.Kafka.ModerationTopic, cfg.Kafka.DLQTopic, logger)
	if err := producer.Start(ctx); err != nil {
		_ = producer.Stop()
		return nil, fmt.Errorf("failed to start producer: %w", err)
	}

	logger.Info("application initialized",
		"queue_driver", cfg.Queue.Driver,
		"moderation_topic", cfg.Kafka.ModerationTopic)

	return &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		tasks:    postgres.NewPostgresTaskStore(db),
		ads:      postgres.NewPostgresAdStore(db),
		model:    manager,
		producer: producer,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the producer and closes the database, in that order.
func (app *application) cleanup() {
	if app.producer != nil {
		if err := app.producer.Stop(); err != nil {
			app.logger.Error("failed to stop producer", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
