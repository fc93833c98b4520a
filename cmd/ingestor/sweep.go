package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"feed_ingestor/internal/service"
	"feed_ingestor/internal/task"
)

var sweepEnqueueOnly bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the refresh sweep once",
	Long: `Enqueues an ingestion for every feed with a channel and prunes feeds
that never produced one. With --enqueue the sweep itself is queued for a
worker instead of running here.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		broker, err := connectTaskBroker()
		if err != nil {
			return err
		}
		defer broker.Close()

		client := task.NewClient(broker)

		if sweepEnqueueOnly {
			id, err := client.Enqueue(ctx, service.TaskRefreshFeeds)
			if err != nil {
				return err
			}
			color.Green("Enqueued %s (%s)", service.TaskRefreshFeeds, id)
			return nil
		}

		db, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, runErr := newRefreshSweep(db, client).Run(ctx)
		if stats != nil {
			fmt.Printf("  sources:  %d\n", stats.Sources)
			fmt.Printf("  enqueued: %d\n", stats.Enqueued)
			fmt.Printf("  pruned:   %d\n", stats.Pruned)
			if stats.Errors > 0 {
				color.Red("  errors:   %d", stats.Errors)
			}
		}
		if runErr != nil {
			return runErr
		}

		color.Green("Sweep completed in %s", stats.Duration)
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepEnqueueOnly, "enqueue", false, "queue the sweep for a worker instead of running it")
	rootCmd.AddCommand(sweepCmd)
}
