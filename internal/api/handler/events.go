package handler

import (
	"net/http"

	"github.com/mcoot/topple/internal/sse"
)

// EventsHandler streams match events over SSE
type EventsHandler struct {
	matches    MatchService
	hubManager *sse.HubManager
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(matches MatchService, hubManager *sse.HubManager) *EventsHandler {
	return &EventsHandler{matches: matches, hubManager: hubManager}
}

// Stream handles GET /api/v1/matches/{id}/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := matchID(r)
	if _, err := h.matches.GetMatch(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	if !h.matches.IsLive(id) {
		WriteError(w, NewGoneError())
		return
	}

	hub := h.hubManager.GetOrCreateHub(id)
	// The match may have ended while the hub was being created
	if !h.matches.IsLive(id) {
		h.hubManager.RemoveHub(id)
		WriteError(w, NewGoneError())
		return
	}
	sse.ServeSSE(w, r, hub)
}
