package catalog

import (
	"testing"

	"github.com/mcoot/topple/internal/dependencies/mocks"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type CatalogSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	catalog *Catalog
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.catalog = NewDefault()
}

func (s *CatalogSuite) TestBuiltinStructuresAreValid() {
	s.Equal(9, s.catalog.Len())
	for _, st := range s.catalog.All() {
		s.NoError(st.Validate(), "structure %d", st.ID)
	}
}

func (s *CatalogSuite) TestGet() {
	st, err := s.catalog.Get(2)
	s.Require().NoError(err)
	s.Equal(3, st.LayerCount())
	s.Equal(5, st.BrickCount())

	_, err = s.catalog.Get(99)
	s.ErrorIs(err, model.ErrStructureNotFound)
}

func (s *CatalogSuite) TestGetReturnsCopy() {
	st, err := s.catalog.Get(2)
	s.Require().NoError(err)
	st.Layers[0][0] = model.BrickEmpty

	again, err := s.catalog.Get(2)
	s.Require().NoError(err)
	s.Equal(model.BrickVertical, again.Layers[0][0])
}

func (s *CatalogSuite) TestNewRejectsInvalid() {
	_, err := New(nil)
	s.ErrorIs(err, model.ErrEmptyCatalog)

	_, err = New([]model.Structure{model.NewStructure(1, [][]int{{0, 0}})})
	s.ErrorIs(err, model.ErrInvalidStructure)

	_, err = New([]model.Structure{
		model.NewStructure(1, [][]int{{1}}),
		model.NewStructure(1, [][]int{{2}}),
	})
	s.ErrorIs(err, model.ErrInvalidStructure)
}

func (s *CatalogSuite) TestDrawRemovesFromPool() {
	pool := NewPool(s.catalog, s.random, testutil.NopLogger())
	s.random.QueueIntn(3, 0)

	first := pool.Draw()
	s.Equal(4, first.ID)
	s.Equal(8, pool.Remaining())

	second := pool.Draw()
	s.Equal(1, second.ID)
	s.Equal(7, pool.Remaining())
}

func (s *CatalogSuite) TestDrawNeverRepeatsAcrossRecycle() {
	c, err := New([]model.Structure{
		model.NewStructure(1, [][]int{{1}}),
		model.NewStructure(2, [][]int{{1, 1}}),
	})
	s.Require().NoError(err)
	pool := NewPool(c, s.random, testutil.NopLogger())

	// Mock returns 0 each time: always takes the first remaining entry
	seen := []int{}
	for i := 0; i < 6; i++ {
		seen = append(seen, pool.Draw().ID)
	}

	for i := 1; i < len(seen); i++ {
		s.NotEqual(seen[i-1], seen[i], "draws %v", seen)
	}
}

func (s *CatalogSuite) TestSingleStructureCatalogRecycles() {
	c, err := New([]model.Structure{model.NewStructure(7, [][]int{{1}})})
	s.Require().NoError(err)
	pool := NewPool(c, s.random, testutil.NopLogger())

	s.Equal(7, pool.Draw().ID)
	s.Equal(7, pool.Draw().ID)
}

func (s *CatalogSuite) TestResetRefills() {
	pool := NewPool(s.catalog, s.random, testutil.NopLogger())
	pool.Draw()
	pool.Draw()

	pool.Reset()

	s.Equal(9, pool.Remaining())
}
