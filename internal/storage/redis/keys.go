package redis

import (
	"fmt"

	"github.com/mcoot/topple/internal/model"
)

// Key prefix for all match data
const keyPrefix = "topple"

// matchKey returns the Redis key for a match snapshot
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// matchIndexKey returns the Redis key for the SET of known match IDs
func matchIndexKey() string {
	return fmt.Sprintf("%s:idx:matches", keyPrefix)
}
