package domain

import "time"

// IngestResult describes one completed ingestion of a feed.
type IngestResult struct {
	FeedURL   string          `json:"feed_url"`
	ChannelID int64           `json:"channel_id"`
	Status    ReconcileStatus `json:"status"`
	Parsed    int             `json:"parsed"`
	Inserted  int             `json:"inserted"`
	Published bool            `json:"published"`
	Duration  time.Duration   `json:"duration"`
}

// SweepStats holds statistics about a refresh sweep.
type SweepStats struct {
	Sources  int           `json:"sources"`
	Enqueued int           `json:"enqueued"`
	Pruned   int           `json:"pruned"`
	Errors   int           `json:"errors"`
	Duration time.Duration `json:"duration"`
}

// ChannelUpdatedEvent is published after a channel was created or updated.
type ChannelUpdatedEvent struct {
	ChannelID int64  `json:"channel_id"`
	Data      string `json:"data"`
}
