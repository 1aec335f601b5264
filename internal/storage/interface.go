package storage

import (
	"context"

	"github.com/mcoot/topple/internal/model"
)

// Storage defines the interface for match snapshot persistence
type Storage interface {
	SaveMatch(ctx context.Context, match *model.MatchSnapshot) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error)
	DeleteMatch(ctx context.Context, id model.MatchID) error
	// ListMatches returns the IDs of all stored matches in no particular order
	ListMatches(ctx context.Context) ([]model.MatchID, error)
}
