package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"feed_ingestor/internal/fetcher"
	"feed_ingestor/internal/publisher"
	"feed_ingestor/internal/queue"
	"feed_ingestor/internal/service"
	"feed_ingestor/internal/storage/postgres"
	"feed_ingestor/internal/task"
)

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func connectDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	return db, nil
}

func connectTaskBroker() (*queue.RabbitMQ, error) {
	return queue.NewRabbitMQ(queue.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Tasks.Exchange,
		RoutingKey: cfg.RabbitMQ.Tasks.RoutingKey,
		QueueName:  cfg.RabbitMQ.Tasks.QueueName,
		Prefetch:   cfg.Worker.Concurrency,
	}, logger)
}

func connectEventPublisher() (*publisher.RabbitMQ, error) {
	return publisher.NewRabbitMQ(publisher.Config{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Events.Exchange,
	}, logger)
}

func retryPolicy() task.RetryPolicy {
	return task.RetryPolicy{
		MaxRetries: *cfg.Worker.Retry.MaxRetries,
		Backoff:    cfg.Worker.Retry.InitialBackoff,
		MaxBackoff: cfg.Worker.Retry.MaxBackoff,
		Jitter:     cfg.Worker.Retry.Jitter,
	}
}

func newIngestService(db *sqlx.DB, events service.Publisher) *service.IngestService {
	return service.NewIngestService(
		postgres.NewFeedSourceStore(db),
		fetcher.New(fetcher.Config{
			Timeout:      cfg.Fetch.Timeout,
			UserAgent:    cfg.Fetch.UserAgent,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		}, logger),
		service.NewReconciler(
			postgres.NewChannelStore(db),
			postgres.NewCategoryStore(db),
			postgres.NewItemStore(db),
		),
		postgres.NewTransactionManager(db),
		events,
		service.EventConfig{
			Queue:     cfg.RabbitMQ.Events.QueueName,
			EventType: cfg.RabbitMQ.Events.EventType,
		},
		logger,
	)
}

func newRefreshSweep(db *sqlx.DB, tasks service.TaskQueue) *service.RefreshSweep {
	return service.NewRefreshSweep(
		postgres.NewFeedSourceStore(db),
		postgres.NewChannelStore(db),
		tasks,
		cfg.Sweep.OrphanGrace,
		logger,
	)
}
