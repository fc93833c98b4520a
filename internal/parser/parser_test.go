package parser

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed_ingestor/internal/domain"
	"feed_ingestor/internal/testutil"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func guids(items []domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Base().GUID
	}
	return out
}

func TestPodcastParser_Channel(t *testing.T) {
	logger, _ := testutil.NewLogger()

	feed, err := Parse(NewPodcastParser(logger), readFixture(t, "podcast.xml"))
	require.NoError(t, err)

	ch := feed.Channel
	assert.Equal(t, domain.KindPodcast, feed.Kind)
	assert.Equal(t, "Gadget Hour", ch.Title)
	assert.Equal(t, "Weekly talk about devices.", ch.Description)
	require.NotNil(t, ch.LastUpdate)
	assert.True(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC).Equal(*ch.LastUpdate))
	assert.Equal(t, "en-us", ch.Language)
	assert.Equal(t, "Devices, weekly", ch.Subtitle)
	assert.Equal(t, "https://cdn.example.com/gadget-hour.jpg", ch.Image)
	assert.Equal(t, "Gadget Hour Crew", ch.Author)
	assert.Equal(t, "Jordan Example", ch.Owner)
	assert.Equal(t, []domain.CategoryNode{
		{Name: "Technology", Parent: domain.NoParent},
		{Name: "Gadgets", Parent: 0},
		{Name: "Arts", Parent: domain.NoParent},
		{Name: "Design", Parent: 2},
		{Name: "Industrial", Parent: 3},
	}, ch.Categories)
}

func TestPodcastParser_Items(t *testing.T) {
	logger, logs := testutil.NewLogger()

	feed, err := Parse(NewPodcastParser(logger), readFixture(t, "podcast.xml"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"trailer",
		"ep-1",
		"https://cdn.example.com/ep2.mp3",
		"ep-3",
	}, guids(feed.Items))

	trailer := feed.Items[0].(*domain.PodcastItem)
	assert.Nil(t, trailer.PubDate)
	assert.False(t, trailer.Explicit)

	guidOnly := feed.Items[1].(*domain.PodcastItem)
	assert.Empty(t, guidOnly.AudioURL)

	audioOnly := feed.Items[2].(*domain.PodcastItem)
	assert.Equal(t, "https://cdn.example.com/ep2.mp3", audioOnly.AudioURL)

	ep3 := feed.Items[3].(*domain.PodcastItem)
	assert.Equal(t, "Episode 3", ep3.Title)
	assert.Equal(t, "Phones again", ep3.Subtitle)
	assert.Equal(t, "Third episode.", ep3.Description)
	assert.Equal(t, "00:42:10", ep3.Duration)
	assert.Equal(t, "https://cdn.example.com/ep3.mp3", ep3.AudioURL)
	assert.Equal(t, "https://cdn.example.com/ep3.jpg", ep3.Image)
	assert.True(t, ep3.Explicit)

	warnings := logs.Records("skipping feed item")
	require.Len(t, warnings, 1)
	assert.Equal(t, slog.LevelWarn, warnings[0].Level)
	item, _ := testutil.Attr(warnings[0], "item")
	assert.Equal(t, "Broken Episode", item.String())
	feedTitle, _ := testutil.Attr(warnings[0], "feed")
	assert.Equal(t, "Gadget Hour", feedTitle.String())
	event, _ := testutil.Attr(warnings[0], "event")
	assert.Equal(t, "parser.podcast", event.String())
}

func TestNewsParser(t *testing.T) {
	logger, logs := testutil.NewLogger()

	feed, err := Parse(NewNewsParser(logger), readFixture(t, "news.xml"))
	require.NoError(t, err)

	assert.Equal(t, "Daily Wire Service", feed.Channel.Title)
	assert.Equal(t, "https://news.example.com/logo.png", feed.Channel.Image)
	require.NotNil(t, feed.Channel.LastUpdate)
	assert.True(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC).Equal(*feed.Channel.LastUpdate))
	assert.Empty(t, feed.Channel.Categories)

	assert.Equal(t, []string{"https://news.example.com/1", "https://news.example.com/2"}, guids(feed.Items))

	first := feed.Items[0].(*domain.NewsItem)
	assert.Equal(t, "https://news.example.com/1-thumb.jpg", first.Image)
	assert.Empty(t, first.SourceURL)

	second := feed.Items[1].(*domain.NewsItem)
	assert.Equal(t, "Second story", second.Title)
	assert.Equal(t, "https://news.example.com/2", second.Link)
	assert.Equal(t, "https://agency.example.com/feed", second.SourceURL)
	assert.Equal(t, "https://news.example.com/2.jpg", second.Image)

	assert.Equal(t, 2, logs.Count(slog.LevelWarn, "skipping feed item"))
}

func TestNewsParser_Atom(t *testing.T) {
	logger, _ := testutil.NewLogger()

	feed, err := Parse(NewNewsParser(logger), readFixture(t, "atom.xml"))
	require.NoError(t, err)

	assert.Equal(t, "Atom Desk", feed.Channel.Title)
	assert.Equal(t, "Desk Editor", feed.Channel.Author)
	require.NotNil(t, feed.Channel.LastUpdate)
	assert.True(t, time.Date(2006, 1, 2, 14, 4, 5, 0, time.UTC).Equal(*feed.Channel.LastUpdate))

	require.Len(t, feed.Items, 1)
	entry := feed.Items[0].(*domain.NewsItem)
	assert.Equal(t, "urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a", entry.GUID)
	assert.Equal(t, "https://atom.example.com/entry", entry.Link)
	require.NotNil(t, entry.PubDate)
}

func TestParse_ImageFallback(t *testing.T) {
	logger, _ := testutil.NewLogger()
	body := []byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Plain</title>
  <image><url>https://example.com/secondary.png</url></image>
</channel></rss>`)

	feed, err := Parse(NewPodcastParser(logger), body)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/secondary.png", feed.Channel.Image)
	assert.Nil(t, feed.Channel.LastUpdate)
	assert.Empty(t, feed.Items)
}

func TestParse_MalformedDocument(t *testing.T) {
	logger, _ := testutil.NewLogger()

	_, err := Parse(NewNewsParser(logger), []byte("this is not a feed"))
	assert.ErrorIs(t, err, ErrMalformedDocument)

	_, err = Parse(NewNewsParser(logger), nil)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestParse_MalformedChannelDate(t *testing.T) {
	logger, _ := testutil.NewLogger()
	body := []byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Broken clock</title>
  <pubDate>yesterday-ish</pubDate>
</channel></rss>`)

	_, err := Parse(NewNewsParser(logger), body)
	assert.ErrorIs(t, err, ErrMalformedDate)
}

func TestForKind(t *testing.T) {
	logger, _ := testutil.NewLogger()

	p, err := ForKind(domain.KindPodcast, logger)
	require.NoError(t, err)
	assert.IsType(t, &PodcastParser{}, p)

	p, err = ForKind(domain.KindNews, logger)
	require.NoError(t, err)
	assert.IsType(t, &NewsParser{}, p)

	_, err = ForKind(domain.FeedKind("video"), logger)
	assert.Error(t, err)
}

func TestSortByPubDate(t *testing.T) {
	t1 := time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2006, 1, 3, 0, 0, 0, 0, time.UTC)

	items := []domain.Item{
		&domain.NewsItem{ItemBase: domain.ItemBase{GUID: "none"}},
		&domain.NewsItem{ItemBase: domain.ItemBase{GUID: "t3", PubDate: &t3}},
		&domain.NewsItem{ItemBase: domain.ItemBase{GUID: "t1", PubDate: &t1}},
	}

	SortByPubDate(items)

	assert.Equal(t, []string{"none", "t1", "t3"}, guids(items))
}
