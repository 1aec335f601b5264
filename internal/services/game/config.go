package game

import (
	"fmt"
	"time"

	"github.com/mcoot/topple/internal/model"
)

// Config holds the turn engine's rules and timings
type Config struct {
	MaxRounds int     `mapstructure:"max_rounds"`
	MinPower  float64 `mapstructure:"min_power"`
	MaxPower  float64 `mapstructure:"max_power"`

	// PollInterval is how often quiescence is checked while a turn is in progress
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// StructureSettle is how long the structure must stay at rest after being hit
	StructureSettle time.Duration `mapstructure:"structure_settle"`
	// ProjectileSettle is how long a projectile that missed must stay at rest
	ProjectileSettle time.Duration `mapstructure:"projectile_settle"`
	// MaxTurnLength force-ends turns whose physics never settles
	MaxTurnLength time.Duration `mapstructure:"max_turn_length"`
	// BotDelay separates the bot's launch from the previous turn
	BotDelay time.Duration `mapstructure:"bot_delay"`

	ScoreMultiplier float64 `mapstructure:"score_multiplier"`
	// OutOfBoundsY is the height below which a missed projectile ends the turn
	// and below which brick heights are clamped for scoring
	OutOfBoundsY float64 `mapstructure:"out_of_bounds_y"`

	// HoldStep is the hold duration worth one unit of power
	HoldStep time.Duration `mapstructure:"hold_step"`
}

// DefaultConfig returns the standard game rules
func DefaultConfig() Config {
	return Config{
		MaxRounds:        3,
		MinPower:         0,
		MaxPower:         50,
		PollInterval:     100 * time.Millisecond,
		StructureSettle:  2 * time.Second,
		ProjectileSettle: 2 * time.Second,
		MaxTurnLength:    20 * time.Second,
		BotDelay:         2 * time.Second,
		ScoreMultiplier:  10,
		OutOfBoundsY:     -10,
		HoldStep:         40 * time.Millisecond,
	}
}

// Validate checks the configuration for values the engine cannot run with
func (c Config) Validate() error {
	switch {
	case c.MaxRounds < 1:
		return fmt.Errorf("%w: max rounds must be at least 1", model.ErrInvalidConfig)
	case c.MinPower < 0 || c.MaxPower <= c.MinPower:
		return fmt.Errorf("%w: power range must satisfy 0 <= min < max", model.ErrInvalidConfig)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", model.ErrInvalidConfig)
	case c.StructureSettle < 0 || c.ProjectileSettle < 0:
		return fmt.Errorf("%w: settle durations must not be negative", model.ErrInvalidConfig)
	case c.MaxTurnLength <= 0:
		return fmt.Errorf("%w: max turn length must be positive", model.ErrInvalidConfig)
	case c.BotDelay < 0:
		return fmt.Errorf("%w: bot delay must not be negative", model.ErrInvalidConfig)
	case c.ScoreMultiplier < 0:
		return fmt.Errorf("%w: score multiplier must not be negative", model.ErrInvalidConfig)
	case c.HoldStep <= 0:
		return fmt.Errorf("%w: hold step must be positive", model.ErrInvalidConfig)
	}
	return nil
}
