package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"feed_ingestor/internal/domain"
)

// PodcastParser parses iTunes-style podcast feeds.
type PodcastParser struct {
	base
}

func NewPodcastParser(logger *slog.Logger) *PodcastParser {
	return &PodcastParser{base: base{logger: logger, event: "parser.podcast"}}
}

func (p *PodcastParser) Kind() domain.FeedKind {
	return domain.KindPodcast
}

// ParseItems keeps every episode that has an audio enclosure or a guid.
func (p *PodcastParser) ParseItems(doc *Document) []domain.Item {
	return p.collect(doc, p.parseItem)
}

func (p *PodcastParser) parseItem(it *gofeed.Item) (domain.Item, error) {
	b, err := itemBase(it)
	if err != nil {
		return nil, err
	}

	item := &domain.PodcastItem{
		ItemBase:    b,
		Description: strings.TrimSpace(it.Description),
	}
	if len(it.Enclosures) > 0 && it.Enclosures[0] != nil {
		item.AudioURL = strings.TrimSpace(it.Enclosures[0].URL)
	}
	if ie := it.ITunesExt; ie != nil {
		item.Subtitle = strings.TrimSpace(ie.Subtitle)
		item.Duration = strings.TrimSpace(ie.Duration)
		item.Image = strings.TrimSpace(ie.Image)
		item.Explicit = isExplicit(ie.Explicit)
	}
	if item.Image == "" && it.Image != nil {
		item.Image = strings.TrimSpace(it.Image.URL)
	}

	if item.AudioURL == "" && item.GUID == "" {
		return nil, fmt.Errorf("%w: audio url or guid", errMissingIdentifier)
	}
	// The enclosure is the only stable identity an episode without a guid has.
	if item.GUID == "" {
		item.GUID = item.AudioURL
	}

	return item, nil
}

func isExplicit(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "explicit":
		return true
	default:
		return false
	}
}
