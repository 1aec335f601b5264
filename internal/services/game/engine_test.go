package game

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/mcoot/topple/internal/dependencies/mocks"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/physics"
	"github.com/mcoot/topple/internal/testutil"
	"github.com/stretchr/testify/suite"
)

// fakeWorld is a scripted physics.World
type fakeWorld struct {
	mu sync.Mutex

	handler physics.CollisionHandler

	inits    []model.Structure
	launches []model.AimDecision

	bricks      []model.Vec3
	afterLaunch []model.Vec3
	projectile  model.Vec3

	projectileAtRest bool
	structureAtRest  bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{projectileAtRest: true, structureAtRest: true}
}

func (w *fakeWorld) InitializeRound(s model.Structure) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inits = append(w.inits, s)
	w.bricks = make([]model.Vec3, s.BrickCount())
	for i := range w.bricks {
		w.bricks[i] = model.Vec3{X: 40, Y: float64(i)}
	}
}

func (w *fakeWorld) ApplyLaunchImpulse(direction model.Vec3, power float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.launches = append(w.launches, model.AimDecision{Direction: direction, Power: power})
	if w.afterLaunch != nil {
		w.bricks = append([]model.Vec3(nil), w.afterLaunch...)
	}
}

func (w *fakeWorld) ProjectilePosition() model.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.projectile
}

func (w *fakeWorld) BrickPositions() []model.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.Vec3(nil), w.bricks...)
}

func (w *fakeWorld) IsProjectileAtRest() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.projectileAtRest
}

func (w *fakeWorld) IsStructureAtRest() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.structureAtRest
}

func (w *fakeWorld) SubscribeCollisions(h physics.CollisionHandler) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = h
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.handler = nil
	}
}

func (w *fakeWorld) collide(tag physics.ObjectTag) {
	w.mu.Lock()
	h := w.handler
	w.mu.Unlock()
	if h != nil {
		h(physics.CollisionEvent{Subject: physics.TagProjectile, Other: tag})
	}
}

func (w *fakeWorld) set(fn func(w *fakeWorld)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

func (w *fakeWorld) launchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.launches)
}

// sequenceSource hands out structures with increasing IDs
type sequenceSource struct {
	draws int
}

func (s *sequenceSource) Draw() model.Structure {
	s.draws++
	return model.NewStructure(s.draws, [][]int{{1, 1}, {2, 0}})
}

type fixedOpponent struct {
	aim   model.AimDecision
	calls int
}

func (o *fixedOpponent) Aim(model.Structure, model.Vec3, []model.Vec3) model.AimDecision {
	o.calls++
	return o.aim
}

type EngineSuite struct {
	suite.Suite
	clock    *mocks.MockClock
	world    *fakeWorld
	source   *sequenceSource
	opponent *fixedOpponent
	cfg      Config
	engine   *Engine

	events []model.Event
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.world = newFakeWorld()
	s.source = &sequenceSource{}
	s.opponent = &fixedOpponent{aim: model.AimDecision{Direction: model.Vec3{X: 1}, Power: 40}}
	s.cfg = DefaultConfig()
	s.events = nil
	s.engine = NewEngine("match-1", s.cfg, s.world, s.source, s.opponent, s.clock, testutil.NopLogger(),
		WithListener(func(ev model.Event) { s.events = append(s.events, ev) }),
	)
}

func (s *EngineSuite) eventTypes() []model.EventType {
	types := make([]model.EventType, len(s.events))
	for i, ev := range s.events {
		types[i] = ev.Type
	}
	return types
}

// playTurn launches and lets the projectile settle without touching the structure
func (s *EngineSuite) playTurn() {
	s.Require().True(s.engine.TakeTurn(model.Vec3{X: 1}, 50))
	s.clock.Advance(s.cfg.ProjectileSettle)
	s.Require().False(s.engine.IsTurnInProgress())
}

// StartGame

func (s *EngineSuite) TestNewEngineIsInStartPhase() {
	s.Equal(model.PhaseStart, s.engine.State().Phase)
	s.False(s.engine.TakeTurn(model.Vec3{X: 1}, 10))
	s.Equal(0, s.world.launchCount())
}

func (s *EngineSuite) TestStartGameResetsState() {
	s.engine.StartGame()

	state := s.engine.State()
	s.Equal(model.PhasePlay, state.Phase)
	s.Equal(1, state.RoundNumber)
	s.Equal(model.SidePlayer, state.ActiveSide)
	s.False(state.TurnInProgress)
	s.Equal(0, state.PlayerScore)
	s.Equal(0, state.BotScore)
	s.True(s.engine.IsPlayerTurn())

	s.Equal(1, s.source.draws)
	s.Len(s.world.inits, 1)
	s.Equal([]model.EventType{model.EventGameStarted, model.EventRoundStarted}, s.eventTypes())
}

func (s *EngineSuite) TestStartGameMidTurnDiscardsTurn() {
	s.engine.StartGame()
	s.world.set(func(w *fakeWorld) { w.afterLaunch = []model.Vec3{{X: 50}, {X: 50}, {X: 50}} })
	s.Require().True(s.engine.TakeTurn(model.Vec3{X: 1}, 50))

	s.engine.StartGame()
	s.clock.Advance(time.Minute)

	state := s.engine.State()
	s.Equal(0, state.PlayerScore)
	s.Equal(model.SidePlayer, state.ActiveSide)
	s.False(state.TurnInProgress)
	s.Equal(0, s.clock.PendingTimers())
}

// TakeTurn

func (s *EngineSuite) TestTakeTurnTwiceAppliesOneImpulse() {
	s.engine.StartGame()

	s.True(s.engine.TakeTurn(model.Vec3{X: 1}, 30))
	s.False(s.engine.TakeTurn(model.Vec3{X: 1}, 30))

	s.Equal(1, s.world.launchCount())
	s.True(s.engine.IsTurnInProgress())
}

func (s *EngineSuite) TestTakeTurnForRejectsInactiveSide() {
	s.engine.StartGame()
	s.playTurn()

	s.False(s.engine.TakeTurnFor(model.SidePlayer, model.Vec3{X: 1}, 30))
	s.Equal(1, s.world.launchCount())

	// The bot still plays its own turn once the delay passes
	s.clock.Advance(s.cfg.BotDelay)
	s.Equal(1, s.opponent.calls)
}

func (s *EngineSuite) TestTakeTurnForActiveSide() {
	s.engine.StartGame()

	s.True(s.engine.TakeTurnFor(model.SidePlayer, model.Vec3{X: 1}, 30))
	s.False(s.engine.TakeTurnFor(model.SidePlayer, model.Vec3{X: 1}, 30))
	s.Equal(1, s.world.launchCount())
}

func (s *EngineSuite) TestTakeTurnClampsPower() {
	s.engine.StartGame()

	s.engine.TakeTurn(model.Vec3{X: 1}, 500)

	s.Equal(50.0, s.world.launches[0].Power)
}

func (s *EngineSuite) TestTakeTurnClampsNegativeAndNaNPower() {
	s.engine.StartGame()
	s.engine.TakeTurn(model.Vec3{X: 1}, -5)
	s.Equal(0.0, s.world.launches[0].Power)

	s.engine.EndTurn(model.EndTimeout)
	s.engine.EndTurn(model.EndTimeout)
	s.engine.StartGame()
	s.engine.TakeTurn(model.Vec3{X: 1}, math.NaN())
	s.Equal(0.0, s.world.launches[1].Power)
}

func (s *EngineSuite) TestTakeTurnNormalizesDirection() {
	s.engine.StartGame()

	s.engine.TakeTurn(model.Vec3{X: 3, Y: 4}, 10)

	d := s.world.launches[0].Direction
	s.InDelta(0.6, d.X, 1e-12)
	s.InDelta(0.8, d.Y, 1e-12)
}

func (s *EngineSuite) TestHugeDirectionKeepsHeading() {
	s.engine.StartGame()

	s.engine.TakeTurn(model.Vec3{X: 1e200}, 10)

	d := s.world.launches[0].Direction
	s.InDelta(1.0, d.X, 1e-12)
	s.InDelta(0.0, d.Y, 1e-12)
}

func (s *EngineSuite) TestMalformedDirectionFallsBackTo45Degrees() {
	s.engine.StartGame()

	s.engine.TakeTurn(model.Vec3{X: math.NaN()}, 10)

	d := s.world.launches[0].Direction
	s.InDelta(math.Sqrt2/2, d.X, 1e-12)
	s.InDelta(math.Sqrt2/2, d.Y, 1e-12)
}

func (s *EngineSuite) TestTakeTurnAfterEndGameIgnored() {
	s.engine.StartGame()
	s.engine.EndGame()

	s.False(s.engine.TakeTurn(model.Vec3{X: 1}, 10))
	s.Equal(0, s.world.launchCount())
}

// Quiescence

func (s *EngineSuite) TestMissEndsAfterProjectileSettles() {
	s.engine.StartGame()
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)

	s.clock.Advance(s.cfg.ProjectileSettle - s.cfg.PollInterval)
	s.True(s.engine.IsTurnInProgress())

	s.clock.Advance(s.cfg.PollInterval)
	s.False(s.engine.IsTurnInProgress())
	s.Equal(model.SideBot, s.engine.State().ActiveSide)
	s.Equal(model.EndProjectileSettled, s.lastResult().Reason)
}

func (s *EngineSuite) TestMovingProjectileResetsSettleCounter() {
	s.engine.StartGame()
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)

	s.clock.Advance(1500 * time.Millisecond)
	// A momentary bounce resets the counter
	s.world.set(func(w *fakeWorld) { w.projectileAtRest = false })
	s.clock.Advance(s.cfg.PollInterval)
	s.world.set(func(w *fakeWorld) { w.projectileAtRest = true })

	s.clock.Advance(1900 * time.Millisecond)
	s.True(s.engine.IsTurnInProgress())

	s.clock.Advance(s.cfg.PollInterval)
	s.False(s.engine.IsTurnInProgress())
}

func (s *EngineSuite) TestHitWaitsForStructureToSettle() {
	s.engine.StartGame()
	s.world.set(func(w *fakeWorld) { w.structureAtRest = false })
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)
	s.world.collide(physics.TagStructure)

	// The projectile resting does not end a turn that hit the structure
	s.clock.Advance(5 * time.Second)
	s.True(s.engine.IsTurnInProgress())

	s.world.set(func(w *fakeWorld) { w.structureAtRest = true })
	s.clock.Advance(s.cfg.StructureSettle)

	s.False(s.engine.IsTurnInProgress())
	result := s.lastResult()
	s.Equal(model.EndStructureSettled, result.Reason)
	s.True(result.HitTarget)
}

func (s *EngineSuite) TestProjectileBelowOutOfBoundsEndsTurn() {
	s.engine.StartGame()
	s.world.set(func(w *fakeWorld) {
		w.projectileAtRest = false
		w.projectile = model.Vec3{X: 70, Y: -11}
	})
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)

	s.clock.Advance(s.cfg.PollInterval)

	s.False(s.engine.IsTurnInProgress())
	s.Equal(model.EndOutOfBounds, s.lastResult().Reason)
}

func (s *EngineSuite) TestSafetyValveForcesEnd() {
	s.engine.StartGame()
	s.world.set(func(w *fakeWorld) {
		w.projectileAtRest = false
		w.structureAtRest = false
	})
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)

	s.clock.Advance(s.cfg.MaxTurnLength)
	s.True(s.engine.IsTurnInProgress())

	s.clock.Advance(s.cfg.PollInterval)
	s.False(s.engine.IsTurnInProgress())
	s.Equal(model.EndTimeout, s.lastResult().Reason)
}

func (s *EngineSuite) TestBoundaryCollisionEndsTurnOnce() {
	s.engine.StartGame()
	s.world.set(func(w *fakeWorld) { w.projectileAtRest = false })
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)

	s.world.collide(physics.TagBoundary)
	s.world.collide(physics.TagBoundary)
	s.engine.EndTurn(model.EndTimeout)

	s.Equal(model.SideBot, s.engine.State().ActiveSide)
	s.Equal(1, s.countEvents(model.EventTurnEnded))
	s.Equal(model.EndBoundaryHit, s.lastResult().Reason)
}

func (s *EngineSuite) TestCollisionBetweenTurnsIgnored() {
	s.engine.StartGame()
	s.world.collide(physics.TagStructure)
	s.world.collide(physics.TagBoundary)

	s.engine.TakeTurn(model.Vec3{X: 1}, 50)
	s.clock.Advance(s.cfg.ProjectileSettle)

	s.False(s.lastResult().HitTarget)
	s.Equal(1, s.countEvents(model.EventTurnEnded))
}

// Scoring and round flow

func (s *EngineSuite) TestScoreAttributedToActiveSide() {
	s.engine.StartGame()
	// Initial bricks sit at (40,0), (40,1), (40,2); move each by 3 in x
	s.world.set(func(w *fakeWorld) { w.afterLaunch = []model.Vec3{{X: 43, Y: 0}, {X: 43, Y: 1}, {X: 43, Y: 2}} })

	s.playTurn()

	s.Equal(30, s.engine.PlayerScore())
	s.Equal(0, s.engine.BotScore())

	s.clock.Advance(s.cfg.BotDelay)
	s.clock.Advance(s.cfg.ProjectileSettle)

	s.Equal(30, s.engine.PlayerScore())
	s.Equal(30, s.engine.BotScore())
}

func (s *EngineSuite) TestBotPlaysAfterDelay() {
	s.engine.StartGame()
	s.playTurn()

	s.clock.Advance(s.cfg.BotDelay - time.Millisecond)
	s.Equal(0, s.opponent.calls)

	s.clock.Advance(time.Millisecond)
	s.Equal(1, s.opponent.calls)
	s.True(s.engine.IsTurnInProgress())
	s.Equal(40.0, s.world.launches[1].Power)
}

func (s *EngineSuite) TestRoundIncrementsOnlyAfterBotTurn() {
	s.engine.StartGame()

	s.playTurn()
	s.Equal(1, s.engine.RoundNumber())

	s.clock.Advance(s.cfg.BotDelay)
	s.clock.Advance(s.cfg.ProjectileSettle)

	s.Equal(2, s.engine.RoundNumber())
	s.True(s.engine.IsPlayerTurn())
}

func (s *EngineSuite) TestStructureRedrawnOnlyOnNewRound() {
	s.engine.StartGame()

	s.playTurn()
	s.Equal(1, s.source.draws)
	s.Len(s.world.inits, 2)
	s.Equal(s.world.inits[0].ID, s.world.inits[1].ID)

	s.clock.Advance(s.cfg.BotDelay)
	s.clock.Advance(s.cfg.ProjectileSettle)
	s.Equal(2, s.source.draws)
	s.Len(s.world.inits, 3)
	s.Equal(2, s.engine.Structure().ID)
}

func (s *EngineSuite) TestGameEndsAfterMaxRounds() {
	s.engine.StartGame()

	for round := 1; round <= s.cfg.MaxRounds; round++ {
		s.Equal(model.PhasePlay, s.engine.State().Phase, "round %d", round)
		s.playTurn()
		s.Equal(model.PhasePlay, s.engine.State().Phase)
		s.clock.Advance(s.cfg.BotDelay)
		s.clock.Advance(s.cfg.ProjectileSettle)
	}

	state := s.engine.State()
	s.Equal(model.PhaseEnd, state.Phase)
	s.Equal(s.cfg.MaxRounds+1, state.RoundNumber)
	s.False(state.TurnInProgress)
	s.Equal(1, s.countEvents(model.EventGameEnded))
	s.Equal(0, s.clock.PendingTimers())
	s.Equal(2*s.cfg.MaxRounds, s.world.launchCount())
}

func (s *EngineSuite) TestEventOrderAcrossRound() {
	s.engine.StartGame()
	s.playTurn()
	s.clock.Advance(s.cfg.BotDelay)
	s.clock.Advance(s.cfg.ProjectileSettle)

	s.Equal([]model.EventType{
		model.EventGameStarted,
		model.EventRoundStarted,
		model.EventTurnStarted,
		model.EventTurnEnded,
		model.EventTurnStarted,
		model.EventTurnEnded,
		model.EventRoundStarted,
	}, s.eventTypes())
}

// Cancellation

func (s *EngineSuite) TestEndGameCancelsBotDelay() {
	s.engine.StartGame()
	s.playTurn()
	s.Equal(1, s.clock.PendingTimers())

	s.engine.EndGame()
	s.engine.EndGame()

	s.Equal(0, s.clock.PendingTimers())
	s.clock.Advance(time.Minute)
	s.Equal(0, s.opponent.calls)
	s.Equal(1, s.countEvents(model.EventGameEnded))
	s.Equal(model.PhaseEnd, s.engine.State().Phase)
}

func (s *EngineSuite) TestEndGameMidTurnStopsPolling() {
	s.engine.StartGame()
	s.world.set(func(w *fakeWorld) { w.afterLaunch = []model.Vec3{{X: 50}, {X: 50}, {X: 50}} })
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)

	s.engine.EndGame()
	s.clock.Advance(time.Minute)

	s.Equal(0, s.engine.PlayerScore())
	s.False(s.engine.IsTurnInProgress())
	s.Equal(0, s.countEvents(model.EventTurnEnded))
}

func (s *EngineSuite) TestPlayerLaunchDuringBotDelayCancelsBot() {
	s.engine.StartGame()
	s.playTurn()

	// Launching through the engine while the bot waits supersedes the bot timer
	s.True(s.engine.TakeTurn(model.Vec3{X: 1}, 10))
	s.clock.Advance(s.cfg.BotDelay)

	s.Equal(0, s.opponent.calls)
}

func (s *EngineSuite) TestCloseDetachesFromWorld() {
	s.engine.StartGame()
	s.engine.TakeTurn(model.Vec3{X: 1}, 50)

	s.engine.Close()
	s.world.collide(physics.TagBoundary)

	s.True(s.engine.IsTurnInProgress())
	s.Equal(0, s.clock.PendingTimers())
}

func (s *EngineSuite) lastResult() model.TurnResult {
	for i := len(s.events) - 1; i >= 0; i-- {
		if p, ok := s.events[i].Payload.(model.TurnEndedPayload); ok {
			return p.Result
		}
	}
	s.FailNow("no turn ended event")
	return model.TurnResult{}
}

func (s *EngineSuite) countEvents(t model.EventType) int {
	n := 0
	for _, ev := range s.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}
