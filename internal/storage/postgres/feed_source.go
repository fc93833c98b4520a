package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"feed_ingestor/internal/domain"
)

type FeedSourceStore struct {
	db *sqlx.DB
}

func NewFeedSourceStore(db *sqlx.DB) *FeedSourceStore {
	return &FeedSourceStore{db: db}
}

// Create registers url. When the url is already registered the stored source
// is returned with created set to false.
func (s *FeedSourceStore) Create(ctx context.Context, url string, kind domain.FeedKind) (*domain.FeedSource, bool, error) {
	q := GetExecutor(ctx, s.db)

	var source domain.FeedSource
	err := sqlx.GetContext(ctx, q, &source, `
		INSERT INTO feed_sources (url, kind) VALUES ($1, $2)
		ON CONFLICT (url) DO NOTHING
		RETURNING id, url, kind, created_at`,
		url, kind,
	)
	if err == nil {
		return &source, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	existing, err := s.GetByURL(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("feed source vanished after conflict")
	}
	return existing, false, nil
}

// GetByURL returns nil without error when no source has url.
func (s *FeedSourceStore) GetByURL(ctx context.Context, url string) (*domain.FeedSource, error) {
	var source domain.FeedSource
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &source,
		"SELECT id, url, kind, created_at FROM feed_sources WHERE url = $1",
		url,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func (s *FeedSourceStore) List(ctx context.Context) ([]domain.FeedSource, error) {
	var sources []domain.FeedSource
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &sources,
		"SELECT id, url, kind, created_at FROM feed_sources ORDER BY id",
	)
	return sources, err
}

func (s *FeedSourceStore) Delete(ctx context.Context, id int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM feed_sources WHERE id = $1", id)
	return err
}
