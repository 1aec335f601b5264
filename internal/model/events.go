package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventGameStarted  EventType = "game_started"
	EventRoundStarted EventType = "round_started"
	EventTurnStarted  EventType = "turn_started"
	EventTurnEnded    EventType = "turn_ended"
	EventGameEnded    EventType = "game_ended"
)

// Event is the base structure for all engine events
type Event struct {
	Type      EventType  `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	MatchID   MatchID    `json:"match_id"`
	State     MatchState `json:"state"`             // State after the event was applied
	Payload   any        `json:"payload,omitempty"` // Type-specific data
}

// RoundStartedPayload contains data for round started events
type RoundStartedPayload struct {
	Round     int       `json:"round"`
	Structure Structure `json:"structure"`
}

// TurnStartedPayload contains data for turn started events
type TurnStartedPayload struct {
	Side Side        `json:"side"`
	Aim  AimDecision `json:"aim"`
}

// TurnEndedPayload contains data for turn ended events
type TurnEndedPayload struct {
	Result TurnResult `json:"result"`
}

// GameEndedPayload contains data for game ended events
type GameEndedPayload struct {
	PlayerScore int  `json:"player_score"`
	BotScore    int  `json:"bot_score"`
	Winner      Side `json:"winner,omitempty"` // Empty if draw
}
