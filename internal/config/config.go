// Package config loads server configuration from an optional file and
// TOPPLE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/mcoot/topple/internal/api"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/physics"
	"github.com/mcoot/topple/internal/services/game"
	"github.com/mcoot/topple/internal/services/match"
	"github.com/mcoot/topple/internal/services/opponent"
	redisstorage "github.com/mcoot/topple/internal/storage/redis"
)

// EnvPrefix is prepended to every environment override, e.g. TOPPLE_SERVER_PORT
const EnvPrefix = "TOPPLE"

// StorageConfig selects the snapshot store
type StorageConfig struct {
	Type string `mapstructure:"type"` // "memory" or "redis"
}

// Config is the root server configuration
type Config struct {
	LogLevel string              `mapstructure:"log_level"`
	Server   api.ServerConfig    `mapstructure:"server"`
	Storage  StorageConfig       `mapstructure:"storage"`
	Redis    redisstorage.Config `mapstructure:"redis"`
	Game     game.Config         `mapstructure:"game"`
	Opponent opponent.Config     `mapstructure:"opponent"`
	Physics  physics.Config      `mapstructure:"physics"`
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: storage type must be memory or redis, got %q", model.ErrInvalidConfig, c.Storage.Type)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return c.Match().Validate()
}

// Match returns the per-match settings
func (c *Config) Match() match.Config {
	return match.Config{Game: c.Game, Opponent: c.Opponent, Physics: c.Physics}.Derive()
}

// Level returns the configured log level
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", model.ErrInvalidConfig, s)
	}
	return level, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	server := api.DefaultServerConfig()
	v.SetDefault("server.host", server.Host)
	v.SetDefault("server.port", server.Port)
	v.SetDefault("server.read_timeout", server.ReadTimeout)
	v.SetDefault("server.write_timeout", server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", server.ShutdownTimeout)

	v.SetDefault("storage.type", "memory")

	redis := redisstorage.DefaultConfig()
	v.SetDefault("redis.url", redis.URL)
	v.SetDefault("redis.pool_size", redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", redis.MinIdleConns)
	v.SetDefault("redis.match_ttl", redis.MatchTTL)

	g := game.DefaultConfig()
	v.SetDefault("game.max_rounds", g.MaxRounds)
	v.SetDefault("game.min_power", g.MinPower)
	v.SetDefault("game.max_power", g.MaxPower)
	v.SetDefault("game.poll_interval", g.PollInterval)
	v.SetDefault("game.structure_settle", g.StructureSettle)
	v.SetDefault("game.projectile_settle", g.ProjectileSettle)
	v.SetDefault("game.max_turn_length", g.MaxTurnLength)
	v.SetDefault("game.bot_delay", g.BotDelay)
	v.SetDefault("game.score_multiplier", g.ScoreMultiplier)
	v.SetDefault("game.out_of_bounds_y", g.OutOfBoundsY)
	v.SetDefault("game.hold_step", g.HoldStep)

	o := opponent.DefaultConfig()
	v.SetDefault("opponent.error", o.Error)
	v.SetDefault("opponent.tall_layers", o.TallLayers)

	p := physics.DefaultConfig()
	v.SetDefault("physics.gravity", p.Gravity)
	v.SetDefault("physics.step", p.Step)
	v.SetDefault("physics.rest_epsilon", p.RestEpsilon)
	v.SetDefault("physics.projectile_mass", p.ProjectileMass)
	v.SetDefault("physics.projectile_radius", p.ProjectileRadius)
	v.SetDefault("physics.projectile_origin.x", p.ProjectileOrigin.X)
	v.SetDefault("physics.projectile_origin.y", p.ProjectileOrigin.Y)
	v.SetDefault("physics.projectile_origin.z", p.ProjectileOrigin.Z)
	v.SetDefault("physics.projectile_drag", p.ProjectileDrag)
	v.SetDefault("physics.projectile_bounce", p.ProjectileBounce)
	v.SetDefault("physics.projectile_cooldown", p.ProjectileCooldown)
	v.SetDefault("physics.brick_mass", p.BrickMass)
	v.SetDefault("physics.brick_width", p.BrickWidth)
	v.SetDefault("physics.brick_height", p.BrickHeight)
	v.SetDefault("physics.brick_depth", p.BrickDepth)
	v.SetDefault("physics.structure_x", p.StructureX)
	v.SetDefault("physics.ground_half_width", p.GroundHalfWidth)
	v.SetDefault("physics.ground_friction", p.GroundFriction)
	v.SetDefault("physics.boundary_x", p.BoundaryX)
	v.SetDefault("physics.boundary_min_y", p.BoundaryMinY)
}
