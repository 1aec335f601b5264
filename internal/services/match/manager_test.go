package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mcoot/topple/internal/dependencies/mocks"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/services/catalog"
	"github.com/mcoot/topple/internal/storage/memory"
	"github.com/mcoot/topple/internal/testutil"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []model.Event
	closed []model.MatchID
}

func (b *recordingBroadcaster) Broadcast(ev model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBroadcaster) Close(id model.MatchID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, id)
}

func (b *recordingBroadcaster) types() []model.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.EventType, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.Type
	}
	return out
}

type ManagerSuite struct {
	suite.Suite
	ctx         context.Context
	clock       *mocks.MockClock
	random      *mocks.MockRandom
	storage     *memory.Storage
	broadcaster *recordingBroadcaster
	manager     *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.storage = memory.New()
	s.broadcaster = &recordingBroadcaster{}

	m, err := New(DefaultConfig(), s.storage, catalog.NewDefault(), s.clock, s.random, testutil.NopLogger(),
		WithBroadcaster(s.broadcaster))
	s.Require().NoError(err)
	s.manager = m
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Shutdown()
}

func (s *ManagerSuite) create(id string) *model.MatchSnapshot {
	s.random.QueueString(id)
	snap, err := s.manager.CreateMatch(s.ctx)
	s.Require().NoError(err)
	return snap
}

// advanceUntil steps the clock a second at a time until cond holds
func (s *ManagerSuite) advanceUntil(cond func() bool) {
	for i := 0; i < 120; i++ {
		if cond() {
			return
		}
		s.clock.Advance(time.Second)
	}
	s.Require().True(cond(), "condition not reached after 120s")
}

func (s *ManagerSuite) state(id model.MatchID) model.MatchState {
	snap, err := s.manager.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	return snap.State
}

func (s *ManagerSuite) playerLaunch(id model.MatchID) {
	_, err := s.manager.Launch(s.ctx, id, model.AimDecision{
		Direction: model.DirectionFromAngle(0.3),
		Power:     50,
	})
	s.Require().NoError(err)
}

func (s *ManagerSuite) TestCreateMatchStartsGame() {
	snap := s.create("match1")

	s.Equal(model.MatchID("match1"), snap.ID)
	s.Equal(model.PhasePlay, snap.State.Phase)
	s.Equal(1, snap.State.RoundNumber)
	s.Equal(model.SidePlayer, snap.State.ActiveSide)
	s.NotZero(snap.Structure.BrickCount())
	s.Empty(snap.Turns)
	s.Equal(1, s.manager.ActiveCount())

	stored, err := s.storage.GetMatch(s.ctx, "match1")
	s.Require().NoError(err)
	s.Equal(model.PhasePlay, stored.State.Phase)
	s.Equal(snap.Structure.ID, stored.Structure.ID)

	s.Equal([]model.EventType{model.EventGameStarted, model.EventRoundStarted}, s.broadcaster.types())
}

func (s *ManagerSuite) TestCreateMatchSkipsTakenIDs() {
	s.create("taken")
	s.random.QueueString("taken", "fresh")

	snap, err := s.manager.CreateMatch(s.ctx)

	s.Require().NoError(err)
	s.Equal(model.MatchID("fresh"), snap.ID)
}

func (s *ManagerSuite) TestLaunchStartsTurn() {
	snap := s.create("m")

	got, err := s.manager.Launch(s.ctx, snap.ID, model.AimDecision{Direction: model.Vec3{X: 1, Y: 1}, Power: 30})

	s.Require().NoError(err)
	s.True(got.State.TurnInProgress)
	s.Contains(s.broadcaster.types(), model.EventTurnStarted)
}

func (s *ManagerSuite) TestLaunchRejectedWhileTurnInProgress() {
	snap := s.create("m")
	s.playerLaunch(snap.ID)

	_, err := s.manager.Launch(s.ctx, snap.ID, model.AimDecision{Direction: model.Vec3{X: 1}, Power: 10})

	s.ErrorIs(err, model.ErrTurnRejected)
}

func (s *ManagerSuite) TestLaunchRejectedOnBotTurn() {
	snap := s.create("m")
	s.playerLaunch(snap.ID)
	s.advanceUntil(func() bool { return !s.state(snap.ID).TurnInProgress })

	_, err := s.manager.Launch(s.ctx, snap.ID, model.AimDecision{Direction: model.Vec3{X: 1}, Power: 10})

	s.ErrorIs(err, model.ErrTurnRejected)
}

func (s *ManagerSuite) TestTurnEndedIsRecordedInSnapshot() {
	snap := s.create("m")
	s.playerLaunch(snap.ID)
	s.advanceUntil(func() bool { return !s.state(snap.ID).TurnInProgress })

	got, err := s.manager.GetMatch(s.ctx, snap.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Turns, 1)
	s.Equal(model.SidePlayer, got.Turns[0].Side)
	s.Equal(model.SideBot, got.State.ActiveSide)

	stored, err := s.storage.GetMatch(s.ctx, snap.ID)
	s.Require().NoError(err)
	s.Len(stored.Turns, 1)
}

func (s *ManagerSuite) TestFullMatchEndsAfterThreeRounds() {
	snap := s.create("m")

	for round := 1; round <= 3; round++ {
		s.Require().Equal(round, s.state(snap.ID).RoundNumber)
		s.playerLaunch(snap.ID)
		// Wait for the bot to take and finish its turn
		s.advanceUntil(func() bool {
			st := s.state(snap.ID)
			return st.Phase == model.PhaseEnd || (st.ActiveSide == model.SidePlayer && !st.TurnInProgress)
		})
	}

	got, err := s.manager.GetMatch(s.ctx, snap.ID)
	s.Require().NoError(err)
	s.Equal(model.PhaseEnd, got.State.Phase)
	s.Len(got.Turns, 6)
	s.Equal(model.EventGameEnded, s.broadcaster.types()[len(s.broadcaster.types())-1])

	_, err = s.manager.Launch(s.ctx, snap.ID, model.AimDecision{Direction: model.Vec3{X: 1}, Power: 10})
	s.ErrorIs(err, model.ErrMatchOver)

	// A finished game no longer counts as hosted
	s.Equal(0, s.manager.ActiveCount())
	s.False(s.manager.IsLive(snap.ID))
	s.Equal([]model.MatchID{"m"}, s.broadcaster.closed)
}

func (s *ManagerSuite) TestRestartAfterFinishedGameHostsAgain() {
	snap := s.create("m")
	_, err := s.manager.EndMatch(s.ctx, snap.ID)
	s.Require().NoError(err)

	got, err := s.manager.Restart(s.ctx, snap.ID)

	s.Require().NoError(err)
	s.Equal(snap.ID, got.ID)
	s.Equal(snap.CreatedAt, got.CreatedAt)
	s.Equal(model.PhasePlay, got.State.Phase)
	s.Equal(1, got.State.RoundNumber)
	s.Empty(got.Turns)
	s.True(s.manager.IsLive(snap.ID))
	s.Equal(1, s.manager.ActiveCount())

	s.playerLaunch(snap.ID)
}

func (s *ManagerSuite) TestRestartResetsMatch() {
	snap := s.create("m")
	s.playerLaunch(snap.ID)
	s.advanceUntil(func() bool { return !s.state(snap.ID).TurnInProgress })

	got, err := s.manager.Restart(s.ctx, snap.ID)

	s.Require().NoError(err)
	s.Equal(model.PhasePlay, got.State.Phase)
	s.Equal(1, got.State.RoundNumber)
	s.Equal(model.SidePlayer, got.State.ActiveSide)
	s.Zero(got.State.PlayerScore)
	s.Empty(got.Turns)
}

func (s *ManagerSuite) TestEndMatchKeepsStoredSnapshot() {
	snap := s.create("m")

	got, err := s.manager.EndMatch(s.ctx, snap.ID)

	s.Require().NoError(err)
	s.Equal(model.PhaseEnd, got.State.Phase)
	s.Equal(0, s.manager.ActiveCount())
	s.Equal([]model.MatchID{"m"}, s.broadcaster.closed)

	stored, err := s.manager.GetMatch(s.ctx, snap.ID)
	s.Require().NoError(err)
	s.Equal(model.PhaseEnd, stored.State.Phase)

	_, err = s.manager.Launch(s.ctx, snap.ID, model.AimDecision{Direction: model.Vec3{X: 1}, Power: 10})
	s.ErrorIs(err, model.ErrMatchOver)
	_, err = s.manager.EndMatch(s.ctx, snap.ID)
	s.ErrorIs(err, model.ErrMatchOver)
}

func (s *ManagerSuite) TestUnknownMatch() {
	_, err := s.manager.GetMatch(s.ctx, "nope")
	s.ErrorIs(err, model.ErrMatchNotFound)

	_, err = s.manager.Launch(s.ctx, "nope", model.AimDecision{})
	s.ErrorIs(err, model.ErrMatchNotFound)

	_, err = s.manager.EndMatch(s.ctx, "nope")
	s.ErrorIs(err, model.ErrMatchNotFound)

	_, err = s.manager.Restart(s.ctx, "nope")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *ManagerSuite) TestListMatchesSorted() {
	s.create("b")
	s.create("a")

	ids, err := s.manager.ListMatches(s.ctx)

	s.Require().NoError(err)
	s.Equal([]model.MatchID{"a", "b"}, ids)
}

func (s *ManagerSuite) TestStructures() {
	s.Len(s.manager.Structures(), 9)
}

func (s *ManagerSuite) TestNewRejectsInvalidConfig() {
	cfg := DefaultConfig()
	cfg.Opponent.Error = 2

	_, err := New(cfg, s.storage, catalog.NewDefault(), s.clock, s.random, testutil.NopLogger())

	s.ErrorIs(err, model.ErrInvalidConfig)
}

func (s *ManagerSuite) TestNewDerivesOpponentSettings() {
	cfg := DefaultConfig()
	cfg.Game.MaxPower = 80
	cfg.Physics.Gravity = 12

	m, err := New(cfg, s.storage, catalog.NewDefault(), s.clock, s.random, testutil.NopLogger())

	s.Require().NoError(err)
	s.Equal(80.0, m.cfg.Opponent.MaxPower)
	s.Equal(12.0, m.cfg.Opponent.Gravity)
}

func (s *ManagerSuite) TestActiveGaugeReportsHostedMatches() {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(s.ctx) }()

	m, err := New(DefaultConfig(), s.storage, catalog.NewDefault(), s.clock, s.random, testutil.NopLogger(),
		WithMeter(provider.Meter("test")))
	s.Require().NoError(err)
	defer m.Shutdown()

	for _, id := range []string{"a", "b"} {
		s.random.QueueString(id)
		_, err := m.CreateMatch(s.ctx)
		s.Require().NoError(err)
	}
	s.Equal(int64(2), s.collectGauge(reader))

	_, err = m.EndMatch(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(int64(1), s.collectGauge(reader))
}

func (s *ManagerSuite) collectGauge(reader *sdkmetric.ManualReader) int64 {
	var rm metricdata.ResourceMetrics
	s.Require().NoError(reader.Collect(s.ctx, &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			if mt.Name != "topple.matches.active" {
				continue
			}
			gauge, ok := mt.Data.(metricdata.Gauge[int64])
			s.Require().True(ok)
			s.Require().Len(gauge.DataPoints, 1)
			return gauge.DataPoints[0].Value
		}
	}
	s.FailNow("gauge not collected")
	return 0
}
