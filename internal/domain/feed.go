package domain

import (
	"fmt"
	"time"
)

// FeedKind is decided when a feed is registered and never inferred from stored items.
type FeedKind string

const (
	KindPodcast FeedKind = "podcast"
	KindNews    FeedKind = "news"
)

func ParseFeedKind(s string) (FeedKind, error) {
	switch FeedKind(s) {
	case KindPodcast, KindNews:
		return FeedKind(s), nil
	default:
		return "", fmt.Errorf("unknown feed kind %q", s)
	}
}

type FeedSource struct {
	ID        int64     `db:"id"`
	URL       string    `db:"url"`
	Kind      FeedKind  `db:"kind"`
	CreatedAt time.Time `db:"created_at"`
}

type Channel struct {
	ID           int64      `db:"id"`
	FeedSourceID int64      `db:"feed_source_id"`
	Kind         FeedKind   `db:"kind"`
	Title        string     `db:"title"`
	Description  string     `db:"description"`
	LastUpdate   *time.Time `db:"last_update"`
	Language     string     `db:"language"`
	Subtitle     string     `db:"subtitle"`
	Image        string     `db:"image"`
	Author       string     `db:"author"`
	Owner        string     `db:"owner"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// ChannelRecord is the channel-level data parsed from one feed document.
type ChannelRecord struct {
	Title       string
	Description string
	LastUpdate  *time.Time
	Language    string
	Subtitle    string
	Image       string
	Author      string
	Owner       string
	Categories  []CategoryNode
}

// Apply overwrites every scalar field of c with the values from r.
func (r *ChannelRecord) Apply(c *Channel) {
	c.Title = r.Title
	c.Description = r.Description
	c.LastUpdate = r.LastUpdate
	c.Language = r.Language
	c.Subtitle = r.Subtitle
	c.Image = r.Image
	c.Author = r.Author
	c.Owner = r.Owner
}

// CategoryNode is one entry of a flattened category forest. Parent is the
// index of the parent node in the same slice, or -1 for a root.
type CategoryNode struct {
	Name   string
	Parent int
}

const NoParent = -1

type Category struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	ParentID *int64 `db:"parent_id"`
}

type ReconcileStatus string

const (
	StatusCreated   ReconcileStatus = "created"
	StatusUpdated   ReconcileStatus = "updated"
	StatusUnchanged ReconcileStatus = "unchanged"
)

// ParsedFeed is everything a parser extracts from one document.
type ParsedFeed struct {
	Kind    FeedKind
	Channel ChannelRecord
	Items   []Item
}
