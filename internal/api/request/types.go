package request

import "github.com/mcoot/topple/internal/model"

// LaunchRequest is the request body for taking the player's turn.
// Exactly one of Direction and AngleDeg, and exactly one of Power and
// HoldMS, must be set.
type LaunchRequest struct {
	Direction *model.Vec3 `json:"direction,omitempty"`
	AngleDeg  *float64    `json:"angle_deg,omitempty"`
	Power     *float64    `json:"power,omitempty"`
	// HoldMS is how long the launch control was held, converted to power server side
	HoldMS *int64 `json:"hold_ms,omitempty"`
}
