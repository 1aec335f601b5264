package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/topple/internal/model"
)

// Broadcaster publishes engine events to the hub of their match
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Broadcast sends the event as JSON under its type name. Matches with no
// listening hub are skipped.
func (b *Broadcaster) Broadcast(ev model.Event) {
	hub := b.hubManager.GetHub(ev.MatchID)
	if hub == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("match_id", string(ev.MatchID)),
			slog.String("type", string(ev.Type)),
			slog.Any("error", err))
		return
	}
	hub.BroadcastEvent(string(ev.Type), string(data))
}

// Close shuts down the hub of a match that is no longer hosted
func (b *Broadcaster) Close(matchID model.MatchID) {
	b.hubManager.RemoveHub(matchID)
}
