package model

import "time"

// MatchID uniquely identifies a hosted match
type MatchID string

// Phase is the lifecycle stage of a match
type Phase string

const (
	PhaseInvalid Phase = "invalid"
	PhaseStart   Phase = "start" // Created, not yet started
	PhasePlay    Phase = "play"  // Turns are being taken
	PhaseEnd     Phase = "end"   // Scores frozen
)

// Side identifies who is taking a turn
type Side string

const (
	SidePlayer Side = "player"
	SideBot    Side = "bot"
)

// Other returns the opposing side
func (s Side) Other() Side {
	if s == SidePlayer {
		return SideBot
	}
	return SidePlayer
}

// EndReason records why a turn was judged over
type EndReason string

const (
	EndStructureSettled  EndReason = "structure_settled"
	EndProjectileSettled EndReason = "projectile_settled"
	EndOutOfBounds       EndReason = "out_of_bounds"
	EndTimeout           EndReason = "timeout"
	EndBoundaryHit       EndReason = "boundary_hit"
)

// MatchState is the engine-owned state of one match
type MatchState struct {
	Phase          Phase `json:"phase"`
	RoundNumber    int   `json:"round_number"`
	ActiveSide     Side  `json:"active_side"`
	TurnInProgress bool  `json:"turn_in_progress"`
	PlayerScore    int   `json:"player_score"`
	BotScore       int   `json:"bot_score"`
}

// Winner returns the leading side, or an empty Side on a draw
func (m MatchState) Winner() Side {
	switch {
	case m.PlayerScore > m.BotScore:
		return SidePlayer
	case m.BotScore > m.PlayerScore:
		return SideBot
	default:
		return ""
	}
}

// AimDecision is a launch request from either side
type AimDecision struct {
	Direction Vec3    `json:"direction"`
	Power     float64 `json:"power"`
}

// TurnRecord lives only while a turn is in progress
type TurnRecord struct {
	Side                  Side
	StartTime             time.Time
	InitialBrickPositions []Vec3
}

// TurnResult is the outcome of a completed turn
type TurnResult struct {
	Round     int           `json:"round"`
	Side      Side          `json:"side"`
	Aim       AimDecision   `json:"aim"`
	Score     int           `json:"score"`
	Reason    EndReason     `json:"reason"`
	HitTarget bool          `json:"hit_structure"`
	Duration  time.Duration `json:"duration"`
}

// MatchSnapshot is the persisted view of a hosted match
type MatchSnapshot struct {
	ID        MatchID      `json:"id"`
	State     MatchState   `json:"state"`
	Structure Structure    `json:"structure"`
	Turns     []TurnResult `json:"turns"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
