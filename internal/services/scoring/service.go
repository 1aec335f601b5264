package scoring

import (
	"math"

	"github.com/mcoot/topple/internal/model"
)

// Config holds scoring constants
type Config struct {
	// Multiplier scales the mean brick displacement into points
	Multiplier float64 `mapstructure:"multiplier"`
	// OutOfBoundsY is the floor applied to brick heights before measuring
	OutOfBoundsY float64 `mapstructure:"out_of_bounds_y"`
}

// DefaultConfig returns the scoring constants used by the game
func DefaultConfig() Config {
	return Config{
		Multiplier:   10,
		OutOfBoundsY: -10,
	}
}

// Service converts brick displacement into a score
type Service struct {
	cfg Config
}

// New creates a new scoring Service
func New(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Score returns floor(mean planar displacement * multiplier) over the bricks
// in initial. Heights below OutOfBoundsY are clamped on both sides so falling
// bricks cannot inflate the score. Bricks missing from final count as unmoved.
func (s *Service) Score(initial, final []model.Vec3) int {
	if len(initial) == 0 {
		return 0
	}

	total := 0.0
	for i, before := range initial {
		if i >= len(final) {
			break
		}
		d := s.clamp(before).PlanarDistance(s.clamp(final[i]))
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		total += d
	}

	score := math.Floor(total / float64(len(initial)) * s.cfg.Multiplier)
	if score < 0 {
		return 0
	}
	return int(score)
}

func (s *Service) clamp(p model.Vec3) model.Vec3 {
	if p.Y < s.cfg.OutOfBoundsY {
		p.Y = s.cfg.OutOfBoundsY
	}
	return p
}
