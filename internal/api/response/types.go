package response

import (
	"time"

	"github.com/mcoot/topple/internal/model"
)

// Structure represents a structure layout in API responses
type Structure struct {
	ID     int     `json:"id"`
	Layers [][]int `json:"layers"`
	Bricks int     `json:"bricks"`
	Render string  `json:"render"`
}

// StructureFromModel converts a model.Structure
func StructureFromModel(s model.Structure) Structure {
	layers := make([][]int, len(s.Layers))
	for i, l := range s.Layers {
		layers[i] = make([]int, len(l))
		for j, o := range l {
			layers[i][j] = int(o)
		}
	}
	return Structure{
		ID:     s.ID,
		Layers: layers,
		Bricks: s.BrickCount(),
		Render: s.Render(),
	}
}

// StructuresResponse lists the catalog
type StructuresResponse struct {
	Structures []Structure `json:"structures"`
}

// StructuresFromModel converts the catalog's layouts
func StructuresFromModel(ss []model.Structure) StructuresResponse {
	out := make([]Structure, len(ss))
	for i, s := range ss {
		out[i] = StructureFromModel(s)
	}
	return StructuresResponse{Structures: out}
}

// Turn represents a completed turn
type Turn struct {
	Round        int        `json:"round"`
	Side         string     `json:"side"`
	Direction    model.Vec3 `json:"direction"`
	Power        float64    `json:"power"`
	Score        int        `json:"score"`
	Reason       string     `json:"reason"`
	HitStructure bool       `json:"hit_structure"`
	DurationMS   int64      `json:"duration_ms"`
}

// TurnFromModel converts a model.TurnResult
func TurnFromModel(t model.TurnResult) Turn {
	return Turn{
		Round:        t.Round,
		Side:         string(t.Side),
		Direction:    t.Aim.Direction,
		Power:        t.Aim.Power,
		Score:        t.Score,
		Reason:       string(t.Reason),
		HitStructure: t.HitTarget,
		DurationMS:   t.Duration.Milliseconds(),
	}
}

// Match represents a hosted match in API responses
type Match struct {
	ID             string    `json:"id"`
	Phase          string    `json:"phase"`
	Round          int       `json:"round"`
	ActiveSide     string    `json:"active_side"`
	TurnInProgress bool      `json:"turn_in_progress"`
	PlayerScore    int       `json:"player_score"`
	BotScore       int       `json:"bot_score"`
	Winner         *string   `json:"winner,omitempty"` // Set once the match ends; "draw" on a tie
	Structure      Structure `json:"structure"`
	Turns          []Turn    `json:"turns"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MatchFromModel converts a model.MatchSnapshot
func MatchFromModel(m *model.MatchSnapshot) Match {
	turns := make([]Turn, len(m.Turns))
	for i, t := range m.Turns {
		turns[i] = TurnFromModel(t)
	}

	var winner *string
	if m.State.Phase == model.PhaseEnd {
		w := string(m.State.Winner())
		if w == "" {
			w = "draw"
		}
		winner = &w
	}

	return Match{
		ID:             string(m.ID),
		Phase:          string(m.State.Phase),
		Round:          m.State.RoundNumber,
		ActiveSide:     string(m.State.ActiveSide),
		TurnInProgress: m.State.TurnInProgress,
		PlayerScore:    m.State.PlayerScore,
		BotScore:       m.State.BotScore,
		Winner:         winner,
		Structure:      StructureFromModel(m.Structure),
		Turns:          turns,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// MatchListResponse lists stored match IDs
type MatchListResponse struct {
	Matches []string `json:"matches"`
}

// MatchListFromModel converts match IDs
func MatchListFromModel(ids []model.MatchID) MatchListResponse {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return MatchListResponse{Matches: out}
}

// HealthResponse is the response for the health endpoint
type HealthResponse struct {
	Status        string `json:"status"`
	ActiveMatches int    `json:"active_matches"`
}
