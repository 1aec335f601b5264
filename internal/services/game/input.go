package game

import (
	"math"
	"time"
)

// PowerFromHold converts how long the launch control was held into power.
// Power climbs one unit per HoldStep and wraps back to zero at MaxPower, so a
// player has to release at the right moment to launch at full strength.
func PowerFromHold(held time.Duration, cfg Config) float64 {
	if held <= 0 || cfg.HoldStep <= 0 || cfg.MaxPower <= 0 {
		return cfg.MinPower
	}
	steps := math.Floor(float64(held) / float64(cfg.HoldStep))
	return math.Max(cfg.MinPower, math.Mod(steps, cfg.MaxPower))
}

// ClampPower restricts power to the configured range. NaN maps to MinPower.
func ClampPower(power float64, cfg Config) float64 {
	if math.IsNaN(power) {
		return cfg.MinPower
	}
	return math.Max(cfg.MinPower, math.Min(cfg.MaxPower, power))
}
