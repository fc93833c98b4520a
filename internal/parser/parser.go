// Package parser turns RSS and Atom documents into channel records, category
// forests and podcast or news items.
package parser

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"

	"feed_ingestor/internal/domain"
)

// ErrMalformedDocument is returned when the body is not a parseable feed.
var ErrMalformedDocument = errors.New("malformed feed document")

var errMissingIdentifier = errors.New("missing required identifier")

const (
	itunesNS     = "itunes"
	mediaNS      = "media"
	customSource = "source"
)

// Parser parses one decoded feed document for a specific feed kind.
type Parser interface {
	Kind() domain.FeedKind
	ParseChannel(doc *Document) (*domain.ChannelRecord, error)
	ParseItems(doc *Document) []domain.Item
}

// ForKind returns the parser for kind.
func ForKind(kind domain.FeedKind, logger *slog.Logger) (Parser, error) {
	switch kind {
	case domain.KindPodcast:
		return NewPodcastParser(logger), nil
	case domain.KindNews:
		return NewNewsParser(logger), nil
	default:
		return nil, fmt.Errorf("no parser for feed kind %q", kind)
	}
}

// Parse decodes body and runs p over it.
func Parse(p Parser, body []byte) (*domain.ParsedFeed, error) {
	doc, err := Decode(body)
	if err != nil {
		return nil, err
	}

	channel, err := p.ParseChannel(doc)
	if err != nil {
		return nil, err
	}

	return &domain.ParsedFeed{
		Kind:    p.Kind(),
		Channel: *channel,
		Items:   p.ParseItems(doc),
	}, nil
}

// Document is a decoded RSS or Atom feed.
type Document struct {
	feed *gofeed.Feed
}

// Decode parses body as RSS or Atom. Any failure is fatal for the whole
// document and wraps ErrMalformedDocument.
func Decode(body []byte) (*Document, error) {
	fp := gofeed.NewParser()
	fp.RSSTranslator = &rssTranslator{}

	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return &Document{feed: feed}, nil
}

func (d *Document) Title() string {
	return strings.TrimSpace(d.feed.Title)
}

// rssTranslator keeps the per-item <source url="..."> that the default
// translator drops.
type rssTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *rssTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}

	src, ok := feed.(*rss.Feed)
	if !ok || len(src.Items) != len(out.Items) {
		return out, nil
	}

	for i, it := range src.Items {
		if it.Source == nil || strings.TrimSpace(it.Source.URL) == "" {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = make(map[string]string)
		}
		out.Items[i].Custom[customSource] = strings.TrimSpace(it.Source.URL)
	}
	return out, nil
}

type base struct {
	logger *slog.Logger
	event  string
}

func (b *base) ParseChannel(doc *Document) (*domain.ChannelRecord, error) {
	f := doc.feed

	dateText := f.Published
	if strings.TrimSpace(dateText) == "" {
		dateText = f.Updated
	}
	lastUpdate, err := ParseDate(dateText)
	if err != nil {
		return nil, fmt.Errorf("channel date: %w", err)
	}

	rec := &domain.ChannelRecord{
		Title:       doc.Title(),
		Description: strings.TrimSpace(f.Description),
		LastUpdate:  lastUpdate,
		Language:    strings.TrimSpace(f.Language),
	}

	if it := f.ITunesExt; it != nil {
		rec.Subtitle = strings.TrimSpace(it.Subtitle)
		rec.Image = strings.TrimSpace(it.Image)
		rec.Author = strings.TrimSpace(it.Author)
		if it.Owner != nil {
			rec.Owner = strings.TrimSpace(it.Owner.Name)
		}
	}
	if rec.Image == "" && f.Image != nil {
		rec.Image = strings.TrimSpace(f.Image.URL)
	}
	if rec.Author == "" && f.Author != nil {
		rec.Author = strings.TrimSpace(f.Author.Name)
	}

	rec.Categories = ExtractCategories(f.Extensions[itunesNS][categoryElement], nil, domain.NoParent)

	return rec, nil
}

// collect runs parse over every item, dropping the ones it rejects with a
// warning, and returns the rest ordered by publish date.
func (b *base) collect(doc *Document, parse func(*gofeed.Item) (domain.Item, error)) []domain.Item {
	items := make([]domain.Item, 0, len(doc.feed.Items))

	for _, it := range doc.feed.Items {
		item, err := parse(it)
		if err != nil {
			b.logger.Warn("skipping feed item",
				"event", b.event,
				"feed", doc.Title(),
				"item", strings.TrimSpace(it.Title),
				"error", err,
			)
			continue
		}
		items = append(items, item)
	}

	SortByPubDate(items)
	return items
}

// SortByPubDate orders items by ascending publish date; items without a date
// come first. Items with equal dates keep their document order.
func SortByPubDate(items []domain.Item) {
	slices.SortStableFunc(items, func(a, b domain.Item) int {
		return comparePubDate(a.Base().PubDate, b.Base().PubDate)
	})
}

func comparePubDate(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(a.UnixNano(), b.UnixNano())
	}
}

func itemBase(it *gofeed.Item) (domain.ItemBase, error) {
	dateText := it.Published
	if strings.TrimSpace(dateText) == "" {
		dateText = it.Updated
	}
	pubDate, err := ParseDate(dateText)
	if err != nil {
		return domain.ItemBase{}, err
	}

	return domain.ItemBase{
		Title:   strings.TrimSpace(it.Title),
		GUID:    strings.TrimSpace(it.GUID),
		Link:    strings.TrimSpace(it.Link),
		PubDate: pubDate,
	}, nil
}
