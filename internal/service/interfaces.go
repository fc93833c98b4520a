package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"feed_ingestor/internal/domain"
)

type FeedSourceStore interface {
	Create(ctx context.Context, url string, kind domain.FeedKind) (*domain.FeedSource, bool, error)
	GetByURL(ctx context.Context, url string) (*domain.FeedSource, error)
	List(ctx context.Context) ([]domain.FeedSource, error)
	Delete(ctx context.Context, id int64) error
}

type ChannelStore interface {
	GetOrCreate(ctx context.Context, ch *domain.Channel) (*domain.Channel, bool, error)
	Update(ctx context.Context, ch *domain.Channel) error
	HasChannel(ctx context.Context, sourceIDs []int64) (map[int64]bool, error)
	SetCategories(ctx context.Context, channelID int64, categoryIDs []int64) error
}

type CategoryStore interface {
	Upsert(ctx context.Context, name string, parentID *int64) (int64, error)
}

type ItemStore interface {
	ExistingGUIDs(ctx context.Context, kind domain.FeedKind, channelID int64, guids []string) (map[string]bool, error)
	Insert(ctx context.Context, kind domain.FeedKind, channelID int64, items []domain.Item) (int, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, queue, eventType string, payload any) error
}

type TaskQueue interface {
	Enqueue(ctx context.Context, name string, args ...string) (string, error)
}
