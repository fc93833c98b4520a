package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"feed_ingestor/internal/service"
	"feed_ingestor/internal/storage/postgres"
	"feed_ingestor/internal/task"
)

var registerKind string

var registerCmd = &cobra.Command{
	Use:   "register <url>",
	Short: "Register a feed and schedule its first ingestion",
	Example: `  ingestor register https://example.com/podcast.xml --kind podcast
  ingestor register https://example.com/news.rss --kind news`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

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

		registrar := service.NewRegistrar(postgres.NewFeedSourceStore(db), task.NewClient(broker), logger)
		source, err := registrar.Register(ctx, args[0], registerKind)
		if err != nil {
			return err
		}

		color.Green("Accepted %s", source.URL)
		fmt.Printf("  id:   %d\n", source.ID)
		fmt.Printf("  kind: %s\n", source.Kind)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerKind, "kind", "", "feed kind: podcast or news")
	_ = registerCmd.MarkFlagRequired("kind")
	rootCmd.AddCommand(registerCmd)
}
