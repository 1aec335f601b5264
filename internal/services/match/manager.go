// Package match hosts concurrent matches, each with its own engine, simulated
// world and opponent, and persists a snapshot of every match after each event.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcoot/topple/internal/dependencies/clock"
	"github.com/mcoot/topple/internal/dependencies/random"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/physics"
	"github.com/mcoot/topple/internal/services/catalog"
	"github.com/mcoot/topple/internal/services/game"
	"github.com/mcoot/topple/internal/services/opponent"
	"github.com/mcoot/topple/internal/storage"
)

const (
	// MatchIDLength is the length of generated match IDs
	MatchIDLength = 12
	// MatchIDAlphabet is the characters used in match IDs (avoid confusing chars)
	MatchIDAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

	instrumentationName = "github.com/mcoot/topple/internal/services/match"
)

// Config bundles the settings each hosted match is built from
type Config struct {
	Game     game.Config
	Opponent opponent.Config
	Physics  physics.Config
}

// DefaultConfig returns the settings used by the game
func DefaultConfig() Config {
	return Config{
		Game:     game.DefaultConfig(),
		Opponent: opponent.DefaultConfig(),
		Physics:  physics.DefaultConfig(),
	}
}

// Derive copies the settings the opponent shares with the engine and the
// world into its section, so the bot aims with the same power range, gravity
// and projectile mass the match is played with
func (c Config) Derive() Config {
	c.Opponent.MinPower = c.Game.MinPower
	c.Opponent.MaxPower = c.Game.MaxPower
	c.Opponent.Gravity = c.Physics.Gravity
	c.Opponent.ProjectileMass = c.Physics.ProjectileMass
	return c
}

// Validate checks every section
func (c Config) Validate() error {
	if err := c.Game.Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	if err := c.Opponent.Validate(); err != nil {
		return fmt.Errorf("opponent: %w", err)
	}
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	return nil
}

// Broadcaster fans engine events out to remote listeners
type Broadcaster interface {
	Broadcast(ev model.Event)
	Close(id model.MatchID)
}

type hosted struct {
	engine *game.Engine
	world  *physics.SimWorld

	// life guards closed. Restart holds it so a game that is just finishing
	// cannot unhost the match halfway through the restart.
	life   sync.Mutex
	closed bool

	mu       sync.Mutex
	snapshot model.MatchSnapshot
}

// Manager owns the live matches
type Manager struct {
	cfg         Config
	storage     storage.Storage
	catalog     *catalog.Catalog
	clock       clock.Clock
	random      random.Random
	broadcaster Broadcaster
	metrics     *game.Metrics
	meter       metric.Meter
	logger      *slog.Logger

	mu   sync.RWMutex
	live map[model.MatchID]*hosted

	activeGauge metric.Int64ObservableGauge
}

// Option configures a Manager
type Option func(*Manager)

// WithBroadcaster publishes every engine event through b
func WithBroadcaster(b Broadcaster) Option {
	return func(m *Manager) { m.broadcaster = b }
}

// WithMetrics records turns of every hosted engine on mt
func WithMetrics(mt *game.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithMeter creates the manager's instruments on meter instead of the global
// meter provider
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) { m.meter = meter }
}

// New creates a Manager
func New(
	cfg Config,
	store storage.Storage,
	cat *catalog.Catalog,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
	opts ...Option,
) (*Manager, error) {
	cfg = cfg.Derive()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:     cfg,
		storage: store,
		catalog: cat,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("component", "match-manager")),
		live:    make(map[model.MatchID]*hosted),
		meter:   otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(m)
	}

	gauge, err := m.meter.Int64ObservableGauge(
		"topple.matches.active",
		metric.WithDescription("Matches hosted with a game in progress"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(m.ActiveCount()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active matches gauge: %w", err)
	}
	m.activeGauge = gauge

	return m, nil
}

// CreateMatch hosts a new match and starts it with the player to move
func (m *Manager) CreateMatch(ctx context.Context) (*model.MatchSnapshot, error) {
	id, err := m.newID(ctx)
	if err != nil {
		return nil, err
	}

	snap, _ := m.host(id, m.clock.Now())
	m.logger.Info("match created", slog.String("match_id", string(id)))
	return snap, nil
}

// host builds a fresh engine, world and opponent for id and starts a game.
// It returns false, along with the snapshot of the existing match, when id is
// already hosted.
func (m *Manager) host(id model.MatchID, createdAt time.Time) (*model.MatchSnapshot, bool) {
	logger := m.logger.With(slog.String("match_id", string(id)))
	h := &hosted{
		world: physics.NewSimWorld(m.cfg.Physics, m.clock, logger),
		snapshot: model.MatchSnapshot{
			ID:        id,
			Turns:     []model.TurnResult{},
			CreatedAt: createdAt,
			UpdatedAt: m.clock.Now(),
		},
	}

	opts := []game.Option{game.WithListener(func(ev model.Event) { m.onEvent(h, ev) })}
	if m.metrics != nil {
		opts = append(opts, game.WithMetrics(m.metrics))
	}
	h.engine = game.NewEngine(
		id,
		m.cfg.Game,
		h.world,
		catalog.NewPool(m.catalog, m.random, logger),
		opponent.New(m.cfg.Opponent, m.random, logger),
		m.clock,
		logger,
		opts...,
	)
	h.snapshot.State = h.engine.State()

	m.mu.Lock()
	if existing, ok := m.live[id]; ok {
		m.mu.Unlock()
		h.engine.Close()
		return existing.copySnapshot(), false
	}
	m.live[id] = h
	m.mu.Unlock()

	h.world.Start()
	h.engine.StartGame()
	return h.copySnapshot(), true
}

// GetMatch returns the snapshot of a live match, falling back to storage for
// matches that are no longer hosted
func (m *Manager) GetMatch(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error) {
	if h := m.get(id); h != nil {
		return h.copySnapshot(), nil
	}
	return m.storage.GetMatch(ctx, id)
}

// Launch takes the player's turn
func (m *Manager) Launch(ctx context.Context, id model.MatchID, aim model.AimDecision) (*model.MatchSnapshot, error) {
	h, err := m.require(ctx, id)
	if err != nil {
		return nil, err
	}

	if h.engine.TakeTurnFor(model.SidePlayer, aim.Direction, aim.Power) {
		return h.copySnapshot(), nil
	}

	state := h.engine.State()
	switch {
	case state.Phase == model.PhaseEnd:
		return nil, model.ErrMatchOver
	case state.ActiveSide != model.SidePlayer:
		return nil, fmt.Errorf("%w: waiting for the bot", model.ErrTurnRejected)
	}
	return nil, model.ErrTurnRejected
}

// Restart starts a fresh game in an existing match. A match that is no
// longer hosted is hosted again under the same ID.
func (m *Manager) Restart(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error) {
	if h := m.get(id); h != nil {
		h.life.Lock()
		if !h.closed {
			h.world.Start()
			h.engine.StartGame()
			h.life.Unlock()
			m.logger.Info("match restarted", slog.String("match_id", string(id)))
			return h.copySnapshot(), nil
		}
		h.life.Unlock()
	}

	prev, err := m.storage.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, _ := m.host(id, prev.CreatedAt)
	m.logger.Info("match restarted", slog.String("match_id", string(id)), slog.Bool("rehosted", true))
	return snap, nil
}

// EndMatch ends the game and stops hosting the match. The final snapshot
// stays in storage until it expires.
func (m *Manager) EndMatch(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error) {
	h := m.get(id)
	if h == nil || !m.unhost(id, h, false) {
		if _, err := m.storage.GetMatch(ctx, id); err != nil {
			return nil, err
		}
		return nil, model.ErrMatchOver
	}

	h.engine.EndGame()
	m.teardown(id, h)

	m.logger.Info("match ended", slog.String("match_id", string(id)))
	return h.copySnapshot(), nil
}

// ListMatches returns the IDs of all stored matches, sorted
func (m *Manager) ListMatches(ctx context.Context) ([]model.MatchID, error) {
	ids, err := m.storage.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Structures returns the catalog's layouts
func (m *Manager) Structures() []model.Structure {
	return m.catalog.All()
}

// IsLive reports whether the match is hosted and can still emit events
func (m *Manager) IsLive(id model.MatchID) bool {
	return m.get(id) != nil
}

// ActiveCount returns the number of hosted matches
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// Shutdown stops every hosted match without ending its game
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := m.live
	m.live = make(map[model.MatchID]*hosted)
	m.mu.Unlock()

	for id, h := range live {
		h.life.Lock()
		h.closed = true
		h.life.Unlock()
		m.teardown(id, h)
	}
	m.logger.Info("match manager shut down", slog.Int("matches", len(live)))
}

// unhost stops hosting h. With finished set it only does so while the game
// is over, so a game ended before a concurrent restart stays hosted. It
// reports whether h was unhosted by this call.
func (m *Manager) unhost(id model.MatchID, h *hosted, finished bool) bool {
	h.life.Lock()
	defer h.life.Unlock()
	if h.closed || (finished && h.engine.State().Phase != model.PhaseEnd) {
		return false
	}
	h.closed = true

	m.mu.Lock()
	if m.live[id] == h {
		delete(m.live, id)
	}
	m.mu.Unlock()
	return true
}

func (m *Manager) teardown(id model.MatchID, h *hosted) {
	h.engine.Close()
	h.world.Stop()
	if m.broadcaster != nil {
		m.broadcaster.Close(id)
	}
}

func (m *Manager) get(id model.MatchID) *hosted {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live[id]
}

// require returns the live match, or ErrMatchOver for one that only exists
// in storage
func (m *Manager) require(ctx context.Context, id model.MatchID) (*hosted, error) {
	if h := m.get(id); h != nil {
		return h, nil
	}
	if _, err := m.storage.GetMatch(ctx, id); err != nil {
		return nil, err
	}
	return nil, model.ErrMatchOver
}

func (m *Manager) newID(ctx context.Context) (model.MatchID, error) {
	for {
		id := model.MatchID(m.random.String(MatchIDLength, MatchIDAlphabet))
		if m.get(id) != nil {
			continue
		}
		_, err := m.storage.GetMatch(ctx, id)
		if errors.Is(err, model.ErrMatchNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking match id: %w", err)
		}
	}
}

// onEvent folds an engine event into the snapshot, persists it and
// publishes the event
func (m *Manager) onEvent(h *hosted, ev model.Event) {
	h.mu.Lock()
	s := &h.snapshot
	s.State = ev.State
	s.UpdatedAt = ev.Timestamp
	switch p := ev.Payload.(type) {
	case model.RoundStartedPayload:
		s.Structure = p.Structure
	case model.TurnEndedPayload:
		s.Turns = append(s.Turns, p.Result)
	}
	if ev.Type == model.EventGameStarted {
		s.Turns = []model.TurnResult{}
	}
	snapshot := cloneSnapshot(s)
	h.mu.Unlock()

	if err := m.storage.SaveMatch(context.Background(), snapshot); err != nil {
		m.logger.Error("failed to save match",
			slog.String("match_id", string(ev.MatchID)),
			slog.String("event", string(ev.Type)),
			slog.Any("error", err),
		)
	}

	if m.broadcaster != nil {
		m.broadcaster.Broadcast(ev)
	}

	// A game that finished on its own frees its match; Restart hosts it again
	if ev.Type == model.EventGameEnded && m.unhost(ev.MatchID, h, true) {
		m.teardown(ev.MatchID, h)
		m.logger.Info("match finished", slog.String("match_id", string(ev.MatchID)))
	}
}

func (h *hosted) copySnapshot() *model.MatchSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneSnapshot(&h.snapshot)
}

func cloneSnapshot(s *model.MatchSnapshot) *model.MatchSnapshot {
	c := *s
	c.Structure = s.Structure.Clone()
	c.Turns = append([]model.TurnResult{}, s.Turns...)
	return &c
}

// GameConfig returns the engine settings matches are created with
func (m *Manager) GameConfig() game.Config {
	return m.cfg.Game
}
