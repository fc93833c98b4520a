package domain

import "time"

// Item is either a *PodcastItem or a *NewsItem.
type Item interface {
	Kind() FeedKind
	Base() *ItemBase
}

type ItemBase struct {
	Title   string
	GUID    string
	Link    string
	Image   string
	PubDate *time.Time
}

func (b *ItemBase) Base() *ItemBase { return b }

type PodcastItem struct {
	ItemBase
	Subtitle    string
	Description string
	Duration    string
	AudioURL    string
	Explicit    bool
}

func (*PodcastItem) Kind() FeedKind { return KindPodcast }

type NewsItem struct {
	ItemBase
	SourceURL string
}

func (*NewsItem) Kind() FeedKind { return KindNews }
