package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"feed_ingestor/internal/service"
	"feed_ingestor/internal/task"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume and run ingestion and sweep tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if workerConcurrency > 0 {
			cfg.Worker.Concurrency = workerConcurrency
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		db, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		broker, err := connectTaskBroker()
		if err != nil {
			return err
		}
		defer broker.Close()

		events, err := connectEventPublisher()
		if err != nil {
			return err
		}
		defer events.Close()

		worker := task.NewWorker(broker, retryPolicy(), cfg.Worker.Concurrency, logger)
		worker.Register(
			service.IngestTask(newIngestService(db, events), cfg.Worker.IngestTimeLimit),
			service.RefreshTask(
				newRefreshSweep(db, task.NewClient(broker)),
				cfg.Sweep.SoftTimeLimit,
				cfg.Sweep.TimeLimit,
			),
		)

		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "number of tasks run in parallel (default from config)")
	rootCmd.AddCommand(workerCmd)
}
