package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/topple/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) snapshot(id model.MatchID) *model.MatchSnapshot {
	return &model.MatchSnapshot{
		ID: id,
		State: model.MatchState{
			Phase:       model.PhasePlay,
			RoundNumber: 1,
			ActiveSide:  model.SidePlayer,
		},
		Structure: model.NewStructure(2, [][]int{{1, 1}, {2, 0}, {1, 1}}),
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *StorageSuite) TestSaveAndGetMatch() {
	err := s.storage.SaveMatch(s.ctx, s.snapshot("match-1"))
	s.Require().NoError(err)

	got, err := s.storage.GetMatch(s.ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(model.MatchID("match-1"), got.ID)
	s.Equal(model.PhasePlay, got.State.Phase)
	s.Equal(2, got.Structure.ID)
}

func (s *StorageSuite) TestGetMatchNotFound() {
	_, err := s.storage.GetMatch(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestStoredSnapshotIsIsolated() {
	snap := s.snapshot("match-1")
	s.Require().NoError(s.storage.SaveMatch(s.ctx, snap))

	snap.State.PlayerScore = 99
	snap.Structure.Layers[0][0] = model.BrickEmpty

	got, err := s.storage.GetMatch(s.ctx, "match-1")
	s.Require().NoError(err)
	s.Equal(0, got.State.PlayerScore)
	s.Equal(model.BrickVertical, got.Structure.Layers[0][0])
}

func (s *StorageSuite) TestDeleteMatch() {
	s.Require().NoError(s.storage.SaveMatch(s.ctx, s.snapshot("match-1")))

	s.Require().NoError(s.storage.DeleteMatch(s.ctx, "match-1"))

	_, err := s.storage.GetMatch(s.ctx, "match-1")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestListMatches() {
	s.Require().NoError(s.storage.SaveMatch(s.ctx, s.snapshot("a")))
	s.Require().NoError(s.storage.SaveMatch(s.ctx, s.snapshot("b")))

	ids, err := s.storage.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]model.MatchID{"a", "b"}, ids)
}
