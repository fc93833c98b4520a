package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"feed_ingestor/internal/domain"
)

const insertChunkSize = 500

var (
	podcastItemColumns = []string{
		"channel_id", "guid", "title", "link", "image", "pub_date",
		"subtitle", "description", "duration", "audio_url", "explicit",
	}
	newsItemColumns = []string{
		"channel_id", "guid", "title", "link", "image", "pub_date", "source_url",
	}
)

type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

func itemTable(kind domain.FeedKind) (string, []string, error) {
	switch kind {
	case domain.KindPodcast:
		return "podcast_items", podcastItemColumns, nil
	case domain.KindNews:
		return "news_items", newsItemColumns, nil
	default:
		return "", nil, fmt.Errorf("unknown feed kind %q", kind)
	}
}

// ExistingGUIDs returns which of guids are already stored for the channel.
func (s *ItemStore) ExistingGUIDs(ctx context.Context, kind domain.FeedKind, channelID int64, guids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(guids) == 0 {
		return result, nil
	}

	table, _, err := itemTable(kind)
	if err != nil {
		return nil, err
	}

	var found []string
	err = sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &found,
		"SELECT guid FROM "+table+" WHERE channel_id = $1 AND guid = ANY($2)",
		channelID, pq.Array(guids),
	)
	if err != nil {
		return nil, err
	}

	for _, g := range found {
		result[g] = true
	}
	return result, nil
}

// Insert stores items for the channel in chunks. Items whose guid is already
// stored are left untouched. It returns the number of rows inserted.
func (s *ItemStore) Insert(ctx context.Context, kind domain.FeedKind, channelID int64, items []domain.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	table, columns, err := itemTable(kind)
	if err != nil {
		return 0, err
	}

	q := GetExecutor(ctx, s.db)
	inserted := 0

	for start := 0; start < len(items); start += insertChunkSize {
		end := min(start+insertChunkSize, len(items))

		query, args, err := buildItemInsert(table, columns, kind, channelID, items[start:end])
		if err != nil {
			return inserted, err
		}

		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", table, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}

	return inserted, nil
}

func buildItemInsert(table string, columns []string, kind domain.FeedKind, channelID int64, items []domain.Item) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(items)*len(columns))

	for i, item := range items {
		row, err := itemRow(kind, channelID, item)
		if err != nil {
			return "", nil, err
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder(len(args) + j + 1))
		}
		sb.WriteString(")")
		args = append(args, row...)
	}
	sb.WriteString(" ON CONFLICT (channel_id, guid) DO NOTHING")

	return sb.String(), args, nil
}

func itemRow(kind domain.FeedKind, channelID int64, item domain.Item) ([]any, error) {
	switch it := item.(type) {
	case *domain.PodcastItem:
		if kind != domain.KindPodcast {
			break
		}
		return []any{
			channelID, it.GUID, it.Title, it.Link, it.Image, it.PubDate,
			it.Subtitle, it.Description, it.Duration, it.AudioURL, it.Explicit,
		}, nil
	case *domain.NewsItem:
		if kind != domain.KindNews {
			break
		}
		return []any{
			channelID, it.GUID, it.Title, it.Link, it.Image, it.PubDate, it.SourceURL,
		}, nil
	}
	return nil, fmt.Errorf("item %q of kind %s cannot be stored as %s", item.Base().GUID, item.Kind(), kind)
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
