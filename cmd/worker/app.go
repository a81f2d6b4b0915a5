package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/platform/postgres"
	"github.com/phrazzld/ad-moderation/internal/queue"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/phrazzld/ad-moderation/internal/task"
)

// reconcileLockKey identifies the advisory lock that lets one worker
// instance sweep at a time.
const reconcileLockKey int64 = 0x6d6f645f7377 // "mod_sw"

// application owns the worker's resources. cleanup releases them in
// reverse order of acquisition: consumer, producer, database.
type application struct {
	logger *slog.Logger

	db         *sql.DB
	producer   *queue.Producer
	consumer   queue.Consumer
	worker     *task.Worker
	reconciler *task.Reconciler
}

// newApplication acquires every resource the worker needs. If any step
// fails, what was already acquired is released and the error returned.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app *application, err error) {
	app = &application{logger: logger}
	defer func() {
		if err != nil {
			app.cleanup()
			app = nil
		}
	}()

	manager := scoring.NewManager(cfg.Model, logger)
	if err = manager.Initialize(ctx); err != nil {
		return app, fmt.Errorf("failed to initialize model: %w", err)
	}

	app.db, err = postgres.Open(ctx, cfg.Database)
	if err != nil {
		return app, err
	}

	publisher, err := queue.NewPublisher(cfg, logger)
	if err != nil {
		return app, fmt.Errorf("failed to create publisher: %w", err)
	}
	app.producer = queue.NewProducer(publisher, cfg.Kafka.ModerationTopic, cfg.Kafka.DLQTopic, logger)
	if err = app.producer.Start(ctx); err != nil {
		return app, fmt.Errorf("failed to start producer: %w", err)
	}

	app.consumer, err = queue.NewConsumer(cfg, logger)
	if err != nil {
		app.consumer = nil
		return app, fmt.Errorf("failed to create consumer: %w", err)
	}

	tasks := postgres.NewPostgresTaskStore(app.db)
	ads := postgres.NewPostgresAdStore(app.db)

	app.worker = task.NewWorker(
		app.consumer,
		tasks,
		ads,
		manager,
		app.producer,
		task.WorkerConfigFrom(cfg.Worker),
		logger,
	)
	app.reconciler = task.NewReconciler(
		tasks,
		postgres.NewAdvisoryLock(app.db, reconcileLockKey),
		app.producer,
		task.ReconcilerConfigFrom(cfg.Worker),
		logger,
	)

	logger.Info("worker initialized",
		"queue_driver", cfg.Queue.Driver,
		"topic", cfg.Kafka.ModerationTopic,
		"group_id", cfg.Kafka.GroupID)
	return app, nil
}

// Run consumes until ctx is cancelled. The reconciler runs alongside and
// is stopped before Run returns.
func (app *application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reconciler.Run(ctx)
	}()

	err := app.worker.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

func (app *application) cleanup() {
	if app.consumer != nil {
		if err := app.consumer.Close(); err != nil {
			app.logger.Error("failed to close consumer", "error", err)
		}
	}
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
	app.logger.Info("worker shutdown completed")
}
