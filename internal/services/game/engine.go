package game

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mcoot/topple/internal/dependencies/clock"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/physics"
	"github.com/mcoot/topple/internal/services/scoring"
)

// Opponent chooses the bot's launch
type Opponent interface {
	Aim(structure model.Structure, origin model.Vec3, bricks []model.Vec3) model.AimDecision
}

// StructureSource supplies a structure for each new round
type StructureSource interface {
	Draw() model.Structure
}

// Listener receives engine events. It is never called with the engine lock held.
type Listener func(model.Event)

// EngineInterface is the surface the presentation layer drives
type EngineInterface interface {
	StartGame()
	EndGame()
	TakeTurn(direction model.Vec3, power float64) bool
	EndTurn(reason model.EndReason)
	HandleProjectileCollision(tag physics.ObjectTag)

	State() model.MatchState
	IsPlayerTurn() bool
	IsTurnInProgress() bool
	RoundNumber() int
	PlayerScore() int
	BotScore() int
	Structure() model.Structure
}

// Ensure Engine implements EngineInterface
var _ EngineInterface = (*Engine)(nil)

// Engine owns one match's state machine: turn flow, quiescence polling,
// scoring and round transitions
type Engine struct {
	mu sync.Mutex

	id         model.MatchID
	cfg        Config
	world      physics.World
	structures StructureSource
	scorer     *scoring.Service
	opponent   Opponent
	clock      clock.Clock
	metrics    *Metrics
	listener   Listener
	logger     *slog.Logger

	state     model.MatchState
	structure model.Structure
	turn      *model.TurnRecord
	aim       model.AimDecision
	hit       bool

	structureStill  time.Duration
	projectileStill time.Duration

	// generation invalidates timer callbacks scheduled before the last transition
	generation uint64
	pollTimer  clock.Timer
	botTimer   clock.Timer

	pending     []model.Event
	unsubscribe func()
}

// Option configures an Engine
type Option func(*Engine)

// WithListener registers the event listener
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithMetrics sets the instruments turns are recorded on
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine in the Start phase and subscribes it to the
// world's collision notifications
func NewEngine(
	id model.MatchID,
	cfg Config,
	world physics.World,
	structures StructureSource,
	opponent Opponent,
	clk clock.Clock,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		id:         id,
		cfg:        cfg,
		world:      world,
		structures: structures,
		scorer: scoring.New(scoring.Config{
			Multiplier:   cfg.ScoreMultiplier,
			OutOfBoundsY: cfg.OutOfBoundsY,
		}),
		opponent: opponent,
		clock:    clk,
		logger:   logger.With(slog.String("component", "engine"), slog.String("match_id", string(id))),
		state: model.MatchState{
			Phase:       model.PhaseStart,
			RoundNumber: 1,
			ActiveSide:  model.SidePlayer,
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.unsubscribe = world.SubscribeCollisions(func(ev physics.CollisionEvent) {
		if ev.Subject == physics.TagProjectile {
			e.HandleProjectileCollision(ev.Other)
		}
	})
	return e
}

// ID returns the match this engine runs
func (e *Engine) ID() model.MatchID {
	return e.id
}

// StartGame resets the match to round 1 with the player to move and
// materializes a freshly drawn structure
func (e *Engine) StartGame() {
	e.mu.Lock()
	e.cancelTimersLocked()

	e.state = model.MatchState{
		Phase:       model.PhasePlay,
		RoundNumber: 1,
		ActiveSide:  model.SidePlayer,
	}
	e.turn = nil
	e.hit = false
	e.structure = e.structures.Draw()
	e.world.InitializeRound(e.structure)

	e.logger.Info("game started", slog.Int("structure_id", e.structure.ID))
	e.queueLocked(model.EventGameStarted, nil)
	e.queueLocked(model.EventRoundStarted, model.RoundStartedPayload{Round: 1, Structure: e.structure.Clone()})
	e.flushUnlock()
}

// EndGame moves the match to the End phase and cancels pending timers.
// Calling it again has no further effect.
func (e *Engine) EndGame() {
	e.mu.Lock()
	e.endGameLocked()
	e.flushUnlock()
}

// TakeTurn launches the projectile for the active side. It returns false and
// does nothing when the match is not in play or a turn is already running.
// Power is clamped to the configured range and a malformed direction is
// replaced by a 45 degree forward launch.
func (e *Engine) TakeTurn(direction model.Vec3, power float64) bool {
	e.mu.Lock()
	ok := e.takeTurnLocked(direction, power)
	e.flushUnlock()
	return ok
}

// TakeTurnFor is TakeTurn for callers that act on behalf of one side. It
// returns false without launching when side is not the active side.
func (e *Engine) TakeTurnFor(side model.Side, direction model.Vec3, power float64) bool {
	e.mu.Lock()
	ok := e.state.ActiveSide == side && e.takeTurnLocked(direction, power)
	e.flushUnlock()
	return ok
}

// EndTurn finishes the running turn, if any, with the given reason
func (e *Engine) EndTurn(reason model.EndReason) {
	e.mu.Lock()
	e.endTurnLocked(reason)
	e.flushUnlock()
}

// HandleProjectileCollision records what the projectile touched. A structure
// hit is latched for the quiescence rules; a boundary hit ends the turn.
func (e *Engine) HandleProjectileCollision(tag physics.ObjectTag) {
	e.mu.Lock()
	if e.state.TurnInProgress {
		switch tag {
		case physics.TagStructure:
			e.hit = true
		case physics.TagBoundary:
			e.endTurnLocked(model.EndBoundaryHit)
		}
	}
	e.flushUnlock()
}

// Close cancels timers and detaches from the world
func (e *Engine) Close() {
	e.mu.Lock()
	e.cancelTimersLocked()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns a copy of the match state
func (e *Engine) State() model.MatchState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsPlayerTurn reports whether the human side is active
func (e *Engine) IsPlayerTurn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ActiveSide == model.SidePlayer
}

// IsTurnInProgress reports whether a launch is being simulated
func (e *Engine) IsTurnInProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.TurnInProgress
}

// RoundNumber returns the current round
func (e *Engine) RoundNumber() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.RoundNumber
}

// PlayerScore returns the human side's total
func (e *Engine) PlayerScore() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PlayerScore
}

// BotScore returns the bot's total
func (e *Engine) BotScore() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.BotScore
}

// Structure returns a copy of the current round's structure
func (e *Engine) Structure() model.Structure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.structure.Clone()
}

func (e *Engine) takeTurnLocked(direction model.Vec3, power float64) bool {
	if e.state.Phase != model.PhasePlay || e.state.TurnInProgress {
		e.logger.Debug("turn ignored",
			slog.String("phase", string(e.state.Phase)),
			slog.Bool("turn_in_progress", e.state.TurnInProgress),
		)
		return false
	}

	e.cancelTimersLocked()

	aim := model.AimDecision{
		Direction: sanitizeDirection(direction),
		Power:     ClampPower(power, e.cfg),
	}

	e.turn = &model.TurnRecord{
		Side:                  e.state.ActiveSide,
		StartTime:             e.clock.Now(),
		InitialBrickPositions: e.world.BrickPositions(),
	}
	e.aim = aim
	e.hit = false
	e.structureStill = 0
	e.projectileStill = 0

	e.world.ApplyLaunchImpulse(aim.Direction, aim.Power)
	e.state.TurnInProgress = true

	gen := e.generation
	e.pollTimer = clock.Repeat(e.clock, e.cfg.PollInterval, func() { e.poll(gen) })

	e.logger.Info("turn started",
		slog.String("side", string(e.turn.Side)),
		slog.Int("round", e.state.RoundNumber),
		slog.Float64("power", aim.Power),
	)
	e.queueLocked(model.EventTurnStarted, model.TurnStartedPayload{Side: e.turn.Side, Aim: aim})
	return true
}

func (e *Engine) poll(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || !e.state.TurnInProgress || e.turn == nil {
		e.mu.Unlock()
		return
	}

	if e.world.IsStructureAtRest() {
		e.structureStill += e.cfg.PollInterval
	} else {
		e.structureStill = 0
	}
	if e.world.IsProjectileAtRest() {
		e.projectileStill += e.cfg.PollInterval
	} else {
		e.projectileStill = 0
	}

	var reason model.EndReason
	switch {
	case e.hit && e.structureStill >= e.cfg.StructureSettle:
		reason = model.EndStructureSettled
	case !e.hit && e.projectileStill >= e.cfg.ProjectileSettle:
		reason = model.EndProjectileSettled
	case !e.hit && e.world.ProjectilePosition().Y < e.cfg.OutOfBoundsY:
		reason = model.EndOutOfBounds
	case e.clock.Now().Sub(e.turn.StartTime) > e.cfg.MaxTurnLength:
		reason = model.EndTimeout
		e.logger.Warn("turn exceeded max length, forcing end",
			slog.Duration("max_turn_length", e.cfg.MaxTurnLength),
		)
	}
	if reason != "" {
		e.endTurnLocked(reason)
	}
	e.flushUnlock()
}

func (e *Engine) endTurnLocked(reason model.EndReason) {
	if !e.state.TurnInProgress || e.turn == nil {
		return
	}
	e.cancelTimersLocked()

	now := e.clock.Now()
	side := e.turn.Side
	score := e.scorer.Score(e.turn.InitialBrickPositions, e.world.BrickPositions())
	if side == model.SidePlayer {
		e.state.PlayerScore += score
	} else {
		e.state.BotScore += score
	}

	result := model.TurnResult{
		Round:     e.state.RoundNumber,
		Side:      side,
		Aim:       e.aim,
		Score:     score,
		Reason:    reason,
		HitTarget: e.hit,
		Duration:  now.Sub(e.turn.StartTime),
	}
	e.metrics.RecordTurn(context.Background(), result)
	e.logger.Info("turn ended",
		slog.String("side", string(side)),
		slog.Int("round", result.Round),
		slog.Int("score", score),
		slog.String("reason", string(reason)),
		slog.Bool("hit_structure", e.hit),
	)

	e.turn = nil
	e.state.TurnInProgress = false

	newRound := side == model.SideBot
	if newRound {
		e.state.RoundNumber++
	}

	if e.state.RoundNumber > e.cfg.MaxRounds {
		e.queueLocked(model.EventTurnEnded, model.TurnEndedPayload{Result: result})
		e.endGameLocked()
		return
	}

	e.state.ActiveSide = side.Other()
	if newRound {
		e.structure = e.structures.Draw()
	}
	e.world.InitializeRound(e.structure)

	e.queueLocked(model.EventTurnEnded, model.TurnEndedPayload{Result: result})
	if newRound {
		e.queueLocked(model.EventRoundStarted, model.RoundStartedPayload{
			Round:     e.state.RoundNumber,
			Structure: e.structure.Clone(),
		})
	}

	if e.state.ActiveSide == model.SideBot {
		gen := e.generation
		e.botTimer = e.clock.AfterFunc(e.cfg.BotDelay, func() { e.botTurn(gen) })
	}
}

func (e *Engine) botTurn(gen uint64) {
	e.mu.Lock()
	if gen != e.generation ||
		e.state.Phase != model.PhasePlay ||
		e.state.TurnInProgress ||
		e.state.ActiveSide != model.SideBot {
		e.mu.Unlock()
		return
	}

	aim := e.opponent.Aim(e.structure.Clone(), e.world.ProjectilePosition(), e.world.BrickPositions())
	e.takeTurnLocked(aim.Direction, aim.Power)
	e.flushUnlock()
}

func (e *Engine) endGameLocked() {
	e.cancelTimersLocked()
	if e.state.Phase == model.PhaseEnd {
		return
	}

	e.state.Phase = model.PhaseEnd
	e.state.TurnInProgress = false
	e.turn = nil

	winner := e.state.Winner()
	e.logger.Info("game ended",
		slog.Int("player_score", e.state.PlayerScore),
		slog.Int("bot_score", e.state.BotScore),
		slog.String("winner", string(winner)),
	)
	e.queueLocked(model.EventGameEnded, model.GameEndedPayload{
		PlayerScore: e.state.PlayerScore,
		BotScore:    e.state.BotScore,
		Winner:      winner,
	})
}

// cancelTimersLocked stops the poll and bot timers and bumps the generation
// so callbacks that already fired become no-ops
func (e *Engine) cancelTimersLocked() {
	e.generation++
	if e.pollTimer != nil {
		e.pollTimer.Stop()
		e.pollTimer = nil
	}
	if e.botTimer != nil {
		e.botTimer.Stop()
		e.botTimer = nil
	}
}

func (e *Engine) queueLocked(t model.EventType, payload any) {
	if e.listener == nil {
		return
	}
	e.pending = append(e.pending, model.Event{
		Type:      t,
		Timestamp: e.clock.Now(),
		MatchID:   e.id,
		State:     e.state,
		Payload:   payload,
	})
}

// flushUnlock releases the lock and then delivers queued events
func (e *Engine) flushUnlock() {
	events := e.pending
	e.pending = nil
	listener := e.listener
	e.mu.Unlock()

	for _, ev := range events {
		listener(ev)
	}
}

// sanitizeDirection returns a unit vector, or the 45 degree forward launch
// when direction has no usable heading
func sanitizeDirection(direction model.Vec3) model.Vec3 {
	if unit, ok := direction.Normalize(); ok {
		return unit
	}
	return model.DirectionFromAngle(math.Pi / 4)
}
