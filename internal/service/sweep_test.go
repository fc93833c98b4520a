package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"feed_ingestor/internal/domain"
	"feed_ingestor/internal/service/mocks"
	"feed_ingestor/internal/testutil"
)

type RefreshSweepTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	sources  *mocks.MockFeedSourceStore
	channels *mocks.MockChannelStore
	tasks    *mocks.MockTaskQueue

	logs  *testutil.LogRecorder
	sweep *RefreshSweep
	now   time.Time
}

func (s *RefreshSweepTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.sources = mocks.NewMockFeedSourceStore(s.ctrl)
	s.channels = mocks.NewMockChannelStore(s.ctrl)
	s.tasks = mocks.NewMockTaskQueue(s.ctrl)

	var logger *slog.Logger
	logger, s.logs = testutil.NewLogger()

	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.sweep = NewRefreshSweep(s.sources, s.channels, s.tasks, time.Hour, logger)
	s.sweep.now = func() time.Time { return s.now }
}

func (s *RefreshSweepTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRefreshSweepTestSuite(t *testing.T) {
	suite.Run(t, new(RefreshSweepTestSuite))
}

func (s *RefreshSweepTestSuite) TestRun_EnqueuesAndPrunes() {
	ctx := context.Background()
	sources := []domain.FeedSource{
		{ID: 1, URL: "https://a.example.com/feed", CreatedAt: s.now.Add(-48 * time.Hour)},
		{ID: 2, URL: "https://b.example.com/feed", CreatedAt: s.now.Add(-48 * time.Hour)},
		{ID: 3, URL: "https://c.example.com/feed", CreatedAt: s.now.Add(-10 * time.Minute)},
	}

	s.sources.EXPECT().List(gomock.Any()).Return(sources, nil)
	s.channels.EXPECT().HasChannel(gomock.Any(), []int64{1, 2, 3}).Return(map[int64]bool{1: true}, nil)
	s.tasks.EXPECT().Enqueue(gomock.Any(), TaskIngestFeed, "https://a.example.com/feed").Return("t1", nil)
	s.sources.EXPECT().Delete(gomock.Any(), int64(2)).Return(nil)
	s.tasks.EXPECT().Enqueue(gomock.Any(), TaskIngestFeed, "https://c.example.com/feed").Return("t3", nil)

	stats, err := s.sweep.Run(ctx)
	s.Require().NoError(err)

	s.Equal(3, stats.Sources)
	s.Equal(2, stats.Enqueued)
	s.Equal(1, stats.Pruned)
	s.Zero(stats.Errors)
	s.Equal(1, s.logs.Count(slog.LevelInfo, "pruned orphan feed source"))
}

func (s *RefreshSweepTestSuite) TestRun_EmptyStore() {
	s.sources.EXPECT().List(gomock.Any()).Return(nil, nil)
	s.channels.EXPECT().HasChannel(gomock.Any(), []int64{}).Return(map[int64]bool{}, nil)

	stats, err := s.sweep.Run(context.Background())
	s.Require().NoError(err)
	s.Zero(stats.Sources)
	s.Zero(stats.Enqueued)
}

func (s *RefreshSweepTestSuite) TestRun_EnqueueFailuresAreCounted() {
	sources := []domain.FeedSource{
		{ID: 1, URL: "https://a.example.com/feed"},
		{ID: 2, URL: "https://b.example.com/feed"},
	}

	s.sources.EXPECT().List(gomock.Any()).Return(sources, nil)
	s.channels.EXPECT().HasChannel(gomock.Any(), gomock.Any()).Return(map[int64]bool{1: true, 2: true}, nil)
	s.tasks.EXPECT().Enqueue(gomock.Any(), TaskIngestFeed, "https://a.example.com/feed").Return("", errors.New("broker down"))
	s.tasks.EXPECT().Enqueue(gomock.Any(), TaskIngestFeed, "https://b.example.com/feed").Return("t2", nil)

	stats, err := s.sweep.Run(context.Background())
	s.ErrorContains(err, "sweep finished with 1 errors")
	s.Require().NotNil(stats)
	s.Equal(1, stats.Enqueued)
	s.Equal(1, stats.Errors)
	s.Equal(1, s.logs.Count(slog.LevelError, "failed to enqueue ingestion"))
}

func (s *RefreshSweepTestSuite) TestRun_ListError() {
	s.sources.EXPECT().List(gomock.Any()).Return(nil, errors.New("db down"))

	_, err := s.sweep.Run(context.Background())
	s.ErrorContains(err, "list feed sources: db down")
}

func (s *RefreshSweepTestSuite) TestRun_StopsWhenCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.sources.EXPECT().List(gomock.Any()).Return([]domain.FeedSource{{ID: 1}}, nil)
	s.channels.EXPECT().HasChannel(gomock.Any(), gomock.Any()).Return(map[int64]bool{1: true}, nil)

	_, err := s.sweep.Run(ctx)
	s.ErrorIs(err, context.Canceled)
}
