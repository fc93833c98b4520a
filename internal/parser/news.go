package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"feed_ingestor/internal/domain"
)

// NewsParser parses generic RSS and Atom news feeds.
type NewsParser struct {
	base
}

func NewNewsParser(logger *slog.Logger) *NewsParser {
	return &NewsParser{base: base{logger: logger, event: "parser.news"}}
}

func (p *NewsParser) Kind() domain.FeedKind {
	return domain.KindNews
}

// ParseItems keeps every article that has a guid.
func (p *NewsParser) ParseItems(doc *Document) []domain.Item {
	return p.collect(doc, p.parseItem)
}

func (p *NewsParser) parseItem(it *gofeed.Item) (domain.Item, error) {
	b, err := itemBase(it)
	if err != nil {
		return nil, err
	}

	item := &domain.NewsItem{
		ItemBase:  b,
		SourceURL: it.Custom[customSource],
	}
	item.Image = mediaImage(it)

	if item.GUID == "" {
		return nil, fmt.Errorf("%w: guid", errMissingIdentifier)
	}

	return item, nil
}

func mediaImage(it *gofeed.Item) string {
	for _, name := range []string{"content", "thumbnail"} {
		for _, m := range it.Extensions[mediaNS][name] {
			if u := strings.TrimSpace(m.Attrs["url"]); u != "" {
				return u
			}
			if v := strings.TrimSpace(m.Value); v != "" {
				return v
			}
		}
	}
	if it.Image != nil {
		return strings.TrimSpace(it.Image.URL)
	}
	return ""
}
