package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"feed_ingestor/internal/domain"
)

const channelColumns = `id, feed_source_id, kind, title, description, last_update, language,
	subtitle, image, author, owner, created_at, updated_at`

type ChannelStore struct {
	db *sqlx.DB
}

func NewChannelStore(db *sqlx.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

// GetOrCreate inserts ch unless its feed source already has a channel, in
// which case the stored channel is returned and created is false.
func (s *ChannelStore) GetOrCreate(ctx context.Context, ch *domain.Channel) (*domain.Channel, bool, error) {
	q := GetExecutor(ctx, s.db)

	var stored domain.Channel
	err := sqlx.GetContext(ctx, q, &stored, `
		INSERT INTO channels (
			feed_source_id, kind, title, description, last_update, language,
			subtitle, image, author, owner
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (feed_source_id) DO NOTHING
		RETURNING `+channelColumns,
		ch.FeedSourceID,
		ch.Kind,
		ch.Title,
		ch.Description,
		ch.LastUpdate,
		ch.Language,
		ch.Subtitle,
		ch.Image,
		ch.Author,
		ch.Owner,
	)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	err = sqlx.GetContext(ctx, q, &stored,
		"SELECT "+channelColumns+" FROM channels WHERE feed_source_id = $1",
		ch.FeedSourceID,
	)
	if err != nil {
		return nil, false, err
	}
	return &stored, false, nil
}

// Update overwrites every scalar field of the stored channel with ch.
func (s *ChannelStore) Update(ctx context.Context, ch *domain.Channel) error {
	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, `
		UPDATE channels SET
			title = $2,
			description = $3,
			last_update = $4,
			language = $5,
			subtitle = $6,
			image = $7,
			author = $8,
			owner = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		ch.ID,
		ch.Title,
		ch.Description,
		ch.LastUpdate,
		ch.Language,
		ch.Subtitle,
		ch.Image,
		ch.Author,
		ch.Owner,
	).Scan(&ch.UpdatedAt)
}

// HasChannel reports which of the given feed sources already have a channel.
func (s *ChannelStore) HasChannel(ctx context.Context, sourceIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool)
	if len(sourceIDs) == 0 {
		return result, nil
	}

	var ids []int64
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids,
		"SELECT feed_source_id FROM channels WHERE feed_source_id = ANY($1)",
		pq.Array(sourceIDs),
	)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// SetCategories replaces the full category set of a channel.
func (s *ChannelStore) SetCategories(ctx context.Context, channelID int64, categoryIDs []int64) error {
	q := GetExecutor(ctx, s.db)

	_, err := q.ExecContext(ctx,
		"DELETE FROM channel_categories WHERE channel_id = $1",
		channelID,
	)
	if err != nil {
		return err
	}

	if len(categoryIDs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO channel_categories (channel_id, category_id) VALUES ")
	valueArgs := make([]any, 0, len(categoryIDs)+1)
	valueArgs = append(valueArgs, channelID)

	for i, id := range categoryIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, ")
		sb.WriteString(placeholder(i + 2))
		sb.WriteString(")")
		valueArgs = append(valueArgs, id)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	_, err = q.ExecContext(ctx, sb.String(), valueArgs...)
	return err
}
