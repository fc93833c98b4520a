package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"feed_ingestor/internal/domain"
)

var ErrInvalidFeed = errors.New("invalid feed")

// Registrar adds feed sources and schedules their first ingestion.
type Registrar struct {
	sources FeedSourceStore
	tasks   TaskQueue
	logger  *slog.Logger
}

func NewRegistrar(sources FeedSourceStore, tasks TaskQueue, logger *slog.Logger) *Registrar {
	return &Registrar{
		sources: sources,
		tasks:   tasks,
		logger:  logger.With("component", "registrar"),
	}
}

// Register records rawURL as a feed of the given kind and enqueues its
// ingestion. Registering a known url again only re-enqueues it.
func (r *Registrar) Register(ctx context.Context, rawURL string, kind string) (*domain.FeedSource, error) {
	feedKind, err := domain.ParseFeedKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeed, err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidFeed, rawURL)
	}

	source, created, err := r.sources.Create(ctx, rawURL, feedKind)
	if err != nil {
		return nil, fmt.Errorf("create feed source: %w", err)
	}
	if !created && source.Kind != feedKind {
		r.logger.Warn("feed already registered with another kind",
			"url", rawURL,
			"kind", source.Kind,
			"requested_kind", feedKind,
		)
	}

	taskID, err := r.tasks.Enqueue(ctx, TaskIngestFeed, source.URL)
	if err != nil {
		return nil, fmt.Errorf("enqueue ingestion: %w", err)
	}

	r.logger.Info("feed registered",
		"feed_source_id", source.ID,
		"url", source.URL,
		"kind", source.Kind,
		"created", created,
		"task_id", taskID,
	)

	return source, nil
}
