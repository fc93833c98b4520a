package service

import (
	"context"
	"errors"
	"time"

	"feed_ingestor/internal/task"
)

const (
	TaskIngestFeed   = "ingest_feed"
	TaskRefreshFeeds = "refresh_feeds"
)

// IngestTask wraps Ingest as a task taking the feed url as its only argument.
func IngestTask(svc *IngestService, timeLimit time.Duration) task.Definition {
	return task.Definition{
		Name:      TaskIngestFeed,
		TimeLimit: timeLimit,
		Run: func(ctx context.Context, args []string) (any, error) {
			if len(args) != 1 {
				return nil, errors.New("ingest_feed expects exactly one argument")
			}
			return svc.Ingest(ctx, args[0])
		},
	}
}

func RefreshTask(sweep *RefreshSweep, softTimeLimit, timeLimit time.Duration) task.Definition {
	return task.Definition{
		Name:          TaskRefreshFeeds,
		SoftTimeLimit: softTimeLimit,
		TimeLimit:     timeLimit,
		Run: func(ctx context.Context, _ []string) (any, error) {
			return sweep.Run(ctx)
		},
	}
}
