package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"feed_ingestor/internal/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <url>",
	Short: "Ingest one registered feed immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		db, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		events, err := connectEventPublisher()
		if err != nil {
			return err
		}
		defer events.Close()

		result, err := newIngestService(db, events).Ingest(ctx, args[0])
		if err != nil {
			return err
		}

		switch result.Status {
		case domain.StatusUnchanged:
			color.Yellow("Channel %d unchanged", result.ChannelID)
		default:
			color.Green("Channel %d %s", result.ChannelID, result.Status)
		}
		fmt.Printf("  parsed:   %d\n", result.Parsed)
		fmt.Printf("  inserted: %d\n", result.Inserted)
		fmt.Printf("  event:    %t\n", result.Published)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
