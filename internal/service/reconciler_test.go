package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"feed_ingestor/internal/domain"
	"feed_ingestor/internal/service/mocks"
	"feed_ingestor/internal/testutil"
)

type ReconcilerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	ctx  context.Context

	channels   *mocks.MockChannelStore
	categories *mocks.MockCategoryStore
	items      *mocks.MockItemStore

	reconciler *Reconciler
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()

	s.channels = mocks.NewMockChannelStore(s.ctrl)
	s.categories = mocks.NewMockCategoryStore(s.ctrl)
	s.items = mocks.NewMockItemStore(s.ctrl)

	s.reconciler = NewReconciler(s.channels, s.categories, s.items)
}

func (s *ReconcilerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestReconcilerTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (s *ReconcilerTestSuite) TestReconcile_ParsedDateMissingIsUpdate() {
	stored := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.channels.EXPECT().GetOrCreate(gomock.Any(), gomock.Any()).
		Return(&domain.Channel{ID: 1, LastUpdate: &stored}, false, nil)
	s.channels.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	ch, status, err := s.reconciler.Reconcile(s.ctx,
		&domain.FeedSource{ID: 1, Kind: domain.KindNews},
		&domain.ChannelRecord{Title: "Wire"},
	)
	s.Require().NoError(err)
	s.Equal(domain.StatusUpdated, status)
	s.Nil(ch.LastUpdate)
	s.Equal("Wire", ch.Title)
}

func (s *ReconcilerTestSuite) TestReconcile_SameInstantDifferentZone() {
	stored := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	parsed := stored.In(time.FixedZone("CET", 3600))
	s.channels.EXPECT().GetOrCreate(gomock.Any(), gomock.Any()).
		Return(&domain.Channel{ID: 1, LastUpdate: &stored}, false, nil)

	_, status, err := s.reconciler.Reconcile(s.ctx,
		&domain.FeedSource{ID: 1, Kind: domain.KindNews},
		&domain.ChannelRecord{LastUpdate: &parsed},
	)
	s.Require().NoError(err)
	s.Equal(domain.StatusUnchanged, status)
}

func (s *ReconcilerTestSuite) TestUpsertCategories_ParentsResolveFirst() {
	nodes := []domain.CategoryNode{
		{Name: "Arts", Parent: domain.NoParent},
		{Name: "Design", Parent: 0},
		{Name: "Industrial", Parent: 1},
		{Name: "Technology", Parent: domain.NoParent},
	}

	gomock.InOrder(
		s.categories.EXPECT().Upsert(gomock.Any(), "Arts", nil).Return(int64(1), nil),
		s.categories.EXPECT().Upsert(gomock.Any(), "Design", testutil.Ptr(int64(1))).Return(int64(2), nil),
		s.categories.EXPECT().Upsert(gomock.Any(), "Industrial", testutil.Ptr(int64(2))).Return(int64(3), nil),
		s.categories.EXPECT().Upsert(gomock.Any(), "Technology", nil).Return(int64(4), nil),
	)

	ids, err := s.reconciler.UpsertCategories(s.ctx, nodes)
	s.Require().NoError(err)
	s.Equal([]int64{1, 2, 3, 4}, ids)
}

func (s *ReconcilerTestSuite) TestUpsertCategories_RejectsForwardParent() {
	_, err := s.reconciler.UpsertCategories(s.ctx, []domain.CategoryNode{
		{Name: "Orphan", Parent: 1},
		{Name: "Root", Parent: domain.NoParent},
	})
	s.ErrorContains(err, "not yet resolved")
}

func (s *ReconcilerTestSuite) TestAssignCategories_Dedupes() {
	s.channels.EXPECT().SetCategories(gomock.Any(), int64(5), []int64{4, 2}).Return(nil)

	err := s.reconciler.AssignCategories(s.ctx, &domain.Channel{ID: 5}, []int64{4, 2, 4, 2})
	s.NoError(err)
}

func (s *ReconcilerTestSuite) TestAssignCategories_EmptyClears() {
	s.channels.EXPECT().SetCategories(gomock.Any(), int64(5), []int64{}).Return(nil)

	s.NoError(s.reconciler.AssignCategories(s.ctx, &domain.Channel{ID: 5}, nil))
}

func (s *ReconcilerTestSuite) TestInsertNew_EmptyIsNoop() {
	n, err := s.reconciler.InsertNew(s.ctx, &domain.Channel{ID: 5, Kind: domain.KindNews}, nil)
	s.NoError(err)
	s.Zero(n)
}

func (s *ReconcilerTestSuite) TestInsertNew_AllKnown() {
	ch := &domain.Channel{ID: 5, Kind: domain.KindNews}
	items := []domain.Item{
		&domain.NewsItem{ItemBase: domain.ItemBase{GUID: "a"}},
		&domain.NewsItem{ItemBase: domain.ItemBase{GUID: "a"}},
	}
	s.items.EXPECT().ExistingGUIDs(gomock.Any(), domain.KindNews, int64(5), []string{"a"}).
		Return(map[string]bool{"a": true}, nil)

	n, err := s.reconciler.InsertNew(s.ctx, ch, items)
	s.NoError(err)
	s.Zero(n)
}
