package physics

import (
	"fmt"
	"time"

	"github.com/mcoot/topple/internal/model"
)

// Config holds the dimensions and material constants of the simulated scene
type Config struct {
	Gravity float64 `mapstructure:"gravity"`

	// Step is the fixed simulation timestep
	Step time.Duration `mapstructure:"step"`
	// RestEpsilon is the velocity magnitude below which a body counts as at rest
	RestEpsilon float64 `mapstructure:"rest_epsilon"`

	ProjectileMass     float64    `mapstructure:"projectile_mass"`
	ProjectileRadius   float64    `mapstructure:"projectile_radius"`
	ProjectileOrigin   model.Vec3 `mapstructure:"projectile_origin"`
	ProjectileDrag     float64    `mapstructure:"projectile_drag"`     // Rolling deceleration per second on the ground
	ProjectileBounce   float64    `mapstructure:"projectile_bounce"`   // Fraction of speed kept when bouncing off a brick
	ProjectileCooldown float64    `mapstructure:"projectile_cooldown"` // Seconds between repeated hits of the same brick

	BrickMass   float64 `mapstructure:"brick_mass"`
	BrickWidth  float64 `mapstructure:"brick_width"`
	BrickHeight float64 `mapstructure:"brick_height"`
	BrickDepth  float64 `mapstructure:"brick_depth"`

	// StructureX is the x coordinate of the structure's rightmost column centre
	StructureX float64 `mapstructure:"structure_x"`

	GroundHalfWidth float64 `mapstructure:"ground_half_width"` // Ground spans [-GroundHalfWidth, GroundHalfWidth]
	GroundFriction  float64 `mapstructure:"ground_friction"`   // Sliding deceleration per second

	// Boundary is the box outside which the projectile triggers a boundary collision
	BoundaryX    float64 `mapstructure:"boundary_x"`
	BoundaryMinY float64 `mapstructure:"boundary_min_y"`
}

// DefaultConfig returns the scene used by the game
func DefaultConfig() Config {
	return Config{
		Gravity:            9.81,
		Step:               time.Second / 60,
		RestEpsilon:        0.05,
		ProjectileMass:     0.5,
		ProjectileRadius:   0.75,
		ProjectileOrigin:   model.Vec3{X: 0, Y: 0.75, Z: 0},
		ProjectileDrag:     6,
		ProjectileBounce:   0.3,
		ProjectileCooldown: 0.25,
		BrickMass:          3.5,
		BrickWidth:         1.25,
		BrickHeight:        6,
		BrickDepth:         1.25,
		StructureX:         40,
		GroundHalfWidth:    60,
		GroundFriction:     4,
		BoundaryX:          90,
		BoundaryMinY:       -20,
	}
}

// Validate checks the configuration for values the simulation cannot use
func (c Config) Validate() error {
	switch {
	case c.Gravity <= 0:
		return fmt.Errorf("%w: gravity must be positive", model.ErrInvalidConfig)
	case c.Step <= 0:
		return fmt.Errorf("%w: step must be positive", model.ErrInvalidConfig)
	case c.ProjectileMass <= 0 || c.BrickMass <= 0:
		return fmt.Errorf("%w: masses must be positive", model.ErrInvalidConfig)
	case c.BrickWidth <= 0 || c.BrickHeight <= 0 || c.BrickDepth <= 0:
		return fmt.Errorf("%w: brick dimensions must be positive", model.ErrInvalidConfig)
	case c.ProjectileRadius <= 0:
		return fmt.Errorf("%w: projectile radius must be positive", model.ErrInvalidConfig)
	}
	return nil
}
