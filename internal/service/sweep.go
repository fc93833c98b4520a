package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feed_ingestor/internal/domain"
)

// RefreshSweep enqueues an ingestion for every feed source that has a
// channel and prunes sources that never produced one.
type RefreshSweep struct {
	sources  FeedSourceStore
	channels ChannelStore
	tasks    TaskQueue
	grace    time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewRefreshSweep creates a sweep. Sources younger than grace are enqueued
// even without a channel, since their first ingestion may still be pending.
func NewRefreshSweep(sources FeedSourceStore, channels ChannelStore, tasks TaskQueue, grace time.Duration, logger *slog.Logger) *RefreshSweep {
	return &RefreshSweep{
		sources:  sources,
		channels: channels,
		tasks:    tasks,
		grace:    grace,
		now:      time.Now,
		logger:   logger.With("component", "sweep"),
	}
}

func (s *RefreshSweep) Run(ctx context.Context) (*domain.SweepStats, error) {
	start := time.Now()

	sources, err := s.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feed sources: %w", err)
	}

	ids := make([]int64, len(sources))
	for i, src := range sources {
		ids[i] = src.ID
	}

	hasChannel, err := s.channels.HasChannel(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}

	stats := &domain.SweepStats{Sources: len(sources)}
	now := s.now()

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if !hasChannel[src.ID] && now.Sub(src.CreatedAt) >= s.grace {
			if err := s.sources.Delete(ctx, src.ID); err != nil {
				stats.Errors++
				s.logger.Error("failed to prune feed source", "feed_source_id", src.ID, "url", src.URL, "error", err)
				continue
			}
			stats.Pruned++
			s.logger.Info("pruned orphan feed source", "feed_source_id", src.ID, "url", src.URL)
			continue
		}

		if _, err := s.tasks.Enqueue(ctx, TaskIngestFeed, src.URL); err != nil {
			stats.Errors++
			s.logger.Error("failed to enqueue ingestion", "url", src.URL, "error", err)
			continue
		}
		stats.Enqueued++
	}

	stats.Duration = time.Since(start)

	s.logger.Info("sweep completed",
		"sources", stats.Sources,
		"enqueued", stats.Enqueued,
		"pruned", stats.Pruned,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	if stats.Errors > 0 {
		return stats, fmt.Errorf("sweep finished with %d errors", stats.Errors)
	}
	return stats, nil
}
