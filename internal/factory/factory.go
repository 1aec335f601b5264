package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/topple/internal/dependencies/clock"
	"github.com/mcoot/topple/internal/dependencies/random"
	"github.com/mcoot/topple/internal/services/catalog"
	"github.com/mcoot/topple/internal/services/game"
	"github.com/mcoot/topple/internal/services/match"
	"github.com/mcoot/topple/internal/sse"
	"github.com/mcoot/topple/internal/storage"
	"github.com/mcoot/topple/internal/storage/memory"
	redisstorage "github.com/mcoot/topple/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Catalog     *catalog.Catalog
	Metrics     *game.Metrics
	Matches     *match.Manager
	HubManager  *sse.HubManager
	Broadcaster *sse.Broadcaster

	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// Match holds engine, opponent and physics settings.
	// If zero value, defaults to match.DefaultConfig()
	Match match.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var (
		store   storage.Storage
		closers []func() error
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	matchCfg := cfg.Match
	if matchCfg.Game.MaxRounds == 0 {
		matchCfg = match.DefaultConfig()
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), matchCfg, logger)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	matchCfg match.Config,
	logger *slog.Logger,
) (*App, error) {
	metrics, err := game.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	cat := catalog.NewDefault()
	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)

	matches, err := match.New(matchCfg, store, cat, clk, rnd, logger,
		match.WithBroadcaster(broadcaster),
		match.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("creating match manager: %w", err)
	}

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Catalog:     cat,
		Metrics:     metrics,
		Matches:     matches,
		HubManager:  hubManager,
		Broadcaster: broadcaster,
	}, nil
}

// Close stops every hosted match and releases storage connections
func (a *App) Close() error {
	a.Matches.Shutdown()
	a.HubManager.CloseAll()

	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
