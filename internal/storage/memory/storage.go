package memory

import (
	"context"
	"sync"

	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu      sync.RWMutex
	matches map[model.MatchID]*model.MatchSnapshot
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		matches: make(map[model.MatchID]*model.MatchSnapshot),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveMatch(ctx context.Context, match *model.MatchSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = cloneSnapshot(match)
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return cloneSnapshot(match), nil
}

func (s *Storage) DeleteMatch(ctx context.Context, id model.MatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
	return nil
}

func (s *Storage) ListMatches(ctx context.Context) ([]model.MatchID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.MatchID, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	return ids, nil
}

// cloneSnapshot copies the slices so callers cannot mutate stored state
func cloneSnapshot(m *model.MatchSnapshot) *model.MatchSnapshot {
	c := *m
	c.Structure = m.Structure.Clone()
	c.Turns = append([]model.TurnResult(nil), m.Turns...)
	return &c
}
