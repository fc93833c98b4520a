package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"feed_ingestor/internal/scheduler"
	"feed_ingestor/internal/service"
	"feed_ingestor/internal/task"
)

var beatCmd = &cobra.Command{
	Use:   "beat",
	Short: "Enqueue the refresh sweep on a fixed interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		broker, err := connectTaskBroker()
		if err != nil {
			return err
		}
		defer broker.Close()

		sched := scheduler.NewScheduler(task.NewClient(broker), service.TaskRefreshFeeds, cfg.Sweep.Interval, logger)
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(beatCmd)
}
