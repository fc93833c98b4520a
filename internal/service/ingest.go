package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feed_ingestor/internal/domain"
	"feed_ingestor/internal/parser"
)

var ErrFeedSourceNotFound = errors.New("feed source not found")

type IngestState string

const (
	StatePending     IngestState = "pending"
	StateFetching    IngestState = "fetching"
	StateParsing     IngestState = "parsing"
	StateReconciling IngestState = "reconciling"
	StatePublishing  IngestState = "publishing"
	StateDone        IngestState = "done"
	StateFailed      IngestState = "failed"
)

// EventConfig names the queue and event type of channel update events.
type EventConfig struct {
	Queue     string
	EventType string
}

// IngestService fetches one registered feed, parses it and merges the result
// into storage.
type IngestService struct {
	sources    FeedSourceStore
	fetcher    Fetcher
	reconciler *Reconciler
	txManager  TransactionManager
	publisher  Publisher
	events     EventConfig
	logger     *slog.Logger
}

func NewIngestService(
	sources FeedSourceStore,
	fetcher Fetcher,
	reconciler *Reconciler,
	txManager TransactionManager,
	publisher Publisher,
	events EventConfig,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		sources:    sources,
		fetcher:    fetcher,
		reconciler: reconciler,
		txManager:  txManager,
		publisher:  publisher,
		events:     events,
		logger:     logger.With("component", "ingest"),
	}
}

type ingestRun struct {
	state  IngestState
	logger *slog.Logger
}

func (r *ingestRun) enter(state IngestState) {
	r.state = state
	r.logger.Debug("ingest state", "state", state)
}

func (r *ingestRun) fail(err error) error {
	failed := r.state
	r.state = StateFailed
	r.logger.Debug("ingest state", "state", StateFailed, "failed_in", failed, "error", err)
	return fmt.Errorf("%s: %w", failed, err)
}

// Ingest runs one ingestion of the feed registered under feedURL.
func (s *IngestService) Ingest(ctx context.Context, feedURL string) (*domain.IngestResult, error) {
	start := time.Now()
	run := &ingestRun{logger: s.logger.With("feed_url", feedURL)}
	run.enter(StatePending)

	source, err := s.sources.GetByURL(ctx, feedURL)
	if err != nil {
		return nil, run.fail(fmt.Errorf("load feed source: %w", err))
	}
	if source == nil {
		return nil, run.fail(fmt.Errorf("%w: %s", ErrFeedSourceNotFound, feedURL))
	}

	run.enter(StateFetching)
	body, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, run.fail(fmt.Errorf("fetch feed: %w", err))
	}

	run.enter(StateParsing)
	p, err := parser.ForKind(source.Kind, s.logger)
	if err != nil {
		return nil, run.fail(err)
	}
	feed, err := parser.Parse(p, body)
	if err != nil {
		return nil, run.fail(fmt.Errorf("parse feed: %w", err))
	}

	run.enter(StateReconciling)
	result := &domain.IngestResult{
		FeedURL: feedURL,
		Parsed:  len(feed.Items),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		categoryIDs, err := s.reconciler.UpsertCategories(txCtx, feed.Channel.Categories)
		if err != nil {
			return err
		}

		ch, status, err := s.reconciler.Reconcile(txCtx, source, &feed.Channel)
		if err != nil {
			return err
		}
		result.ChannelID = ch.ID
		result.Status = status

		if status == domain.StatusUnchanged {
			return nil
		}

		if err := s.reconciler.AssignCategories(txCtx, ch, categoryIDs); err != nil {
			return err
		}

		inserted, err := s.reconciler.InsertNew(txCtx, ch, feed.Items)
		if err != nil {
			return err
		}
		result.Inserted = inserted

		// A run abandoned at its time limit must not publish or commit; the
		// retry that replaces it owns the feed from here.
		if err := txCtx.Err(); err != nil {
			return err
		}

		// Publishing before commit keeps a failed publish retryable: the
		// rollback leaves last_update stale, so the retry sees the change again.
		run.enter(StatePublishing)
		event := domain.ChannelUpdatedEvent{
			ChannelID: ch.ID,
			Data:      fmt.Sprintf("%s has been updated", ch.Title),
		}
		if err := s.publisher.Publish(txCtx, s.events.Queue, s.events.EventType, event); err != nil {
			return fmt.Errorf("publish %s: %w", s.events.EventType, err)
		}
		result.Published = true
		return nil
	})
	if err != nil {
		return nil, run.fail(err)
	}

	run.enter(StateDone)
	result.Duration = time.Since(start)

	run.logger.Info("feed ingested",
		"channel_id", result.ChannelID,
		"status", result.Status,
		"parsed", result.Parsed,
		"inserted", result.Inserted,
		"published", result.Published,
		"duration", result.Duration,
	)

	return result, nil
}
