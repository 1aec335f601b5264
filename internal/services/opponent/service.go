package opponent

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/mcoot/topple/internal/dependencies/random"
	"github.com/mcoot/topple/internal/model"
)

// FallbackAngle is used whenever the ballistic solve has no real solution
const FallbackAngle = math.Pi / 4

// Config holds the opponent's tuning constants
type Config struct {
	// Error is the fraction of the power range and of the vertical aim
	// component that is randomized. 0 plays perfectly.
	Error float64 `mapstructure:"error"`
	// TallLayers is the minimum layer count for a structure to count as tall
	TallLayers int `mapstructure:"tall_layers"`

	// The remaining fields mirror the game's power range and the world's
	// physics. They are filled in by the match config, never read from file.
	Gravity        float64 `mapstructure:"-"`
	ProjectileMass float64 `mapstructure:"-"`
	MinPower       float64 `mapstructure:"-"`
	MaxPower       float64 `mapstructure:"-"`
}

// DefaultConfig returns the opponent used by the game
func DefaultConfig() Config {
	return Config{
		Error:          0.5,
		TallLayers:     5,
		Gravity:        9.81,
		ProjectileMass: 0.5,
		MinPower:       0,
		MaxPower:       50,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	switch {
	case c.Error < 0 || c.Error > 1:
		return fmt.Errorf("%w: opponent error must be within [0, 1]", model.ErrInvalidConfig)
	case c.TallLayers < 1:
		return fmt.Errorf("%w: tall layers must be at least 1", model.ErrInvalidConfig)
	case c.Gravity <= 0 || c.ProjectileMass <= 0:
		return fmt.Errorf("%w: gravity and projectile mass must be positive", model.ErrInvalidConfig)
	case c.MaxPower < c.MinPower:
		return fmt.Errorf("%w: max power below min power", model.ErrInvalidConfig)
	}
	return nil
}

// Service decides the bot's launch
type Service struct {
	cfg    Config
	random random.Random
	logger *slog.Logger
}

// New creates a new opponent Service
func New(cfg Config, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		random: rnd,
		logger: logger.With(slog.String("component", "opponent")),
	}
}

// Aim chooses a launch for the given structure. origin is the projectile's
// position and bricks the current brick centres in flattened order.
func (s *Service) Aim(structure model.Structure, origin model.Vec3, bricks []model.Vec3) model.AimDecision {
	strategy := SelectStrategy(structure, s.cfg.TallLayers)
	power := s.ChoosePower()

	idx := strategy.TargetIndex(structure)
	if idx < 0 || idx >= len(bricks) {
		s.logger.Warn("target brick missing, using fallback angle",
			slog.String("strategy", strategy.Name()),
			slog.Int("index", idx),
			slog.Int("bricks", len(bricks)),
		)
		return model.AimDecision{Direction: model.DirectionFromAngle(FallbackAngle), Power: power}
	}

	target := bricks[idx]
	angle, solved := s.LaunchAngle(target.Sub(origin), power)
	direction := s.perturb(model.DirectionFromAngle(angle))

	s.logger.Debug("opponent aimed",
		slog.String("strategy", strategy.Name()),
		slog.Int("structure_id", structure.ID),
		slog.Float64("power", power),
		slog.Float64("angle", angle),
		slog.Bool("solved", solved),
	)

	return model.AimDecision{Direction: direction, Power: power}
}

// ChoosePower draws uniformly from the top Error fraction of the power range
func (s *Service) ChoosePower() float64 {
	lower := math.Max(s.cfg.MinPower, s.cfg.MaxPower-s.cfg.MaxPower*s.cfg.Error)
	if lower >= s.cfg.MaxPower {
		return s.cfg.MaxPower
	}
	return lower + s.random.Float64()*(s.cfg.MaxPower-lower)
}

// LaunchAngle solves the low-arc launch angle that reaches offset at the
// speed produced by power. The second result is false when the target is out
// of range and FallbackAngle was returned.
func (s *Service) LaunchAngle(offset model.Vec3, power float64) (float64, bool) {
	g := s.cfg.Gravity
	x, y := offset.X, offset.Y
	vSq := power * power / s.cfg.ProjectileMass * 2

	disc := vSq*vSq - g*(g*x*x+2*y*vSq)
	if disc < 0 || (x == 0 && y == 0) {
		return FallbackAngle, false
	}
	angle := math.Atan2(vSq-math.Sqrt(disc), g*x)
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return FallbackAngle, false
	}
	return angle, true
}

// perturb offsets the vertical component by up to +/- Error of its value and
// renormalizes
func (s *Service) perturb(direction model.Vec3) model.Vec3 {
	spread := direction.Y * s.cfg.Error
	lo := direction.Y - spread
	hi := direction.Y + spread
	direction.Y = lo + s.random.Float64()*(hi-lo)

	unit, ok := direction.Normalize()
	if !ok {
		return model.DirectionFromAngle(FallbackAngle)
	}
	return unit
}
