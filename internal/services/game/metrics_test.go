package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mcoot/topple/internal/dependencies/mocks"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/testutil"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetricsRecordCompletedTurns(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	metrics, err := NewMetricsWithMeter(provider.Meter("test"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	engine := NewEngine("m", cfg, newFakeWorld(), &sequenceSource{},
		&fixedOpponent{aim: model.AimDecision{Direction: model.Vec3{X: 1}, Power: 40}},
		clk, testutil.NopLogger(), WithMetrics(metrics))
	defer engine.Close()

	engine.StartGame()
	require.True(t, engine.TakeTurn(model.Vec3{X: 1}, 50))
	clk.Advance(cfg.ProjectileSettle)
	require.False(t, engine.IsTurnInProgress())

	data := collect(t, reader)

	turns, ok := data["topple.turns"].(metricdata.Sum[int64])
	require.True(t, ok, "topple.turns not collected")
	require.Len(t, turns.DataPoints, 1)
	dp := turns.DataPoints[0]
	assert.Equal(t, int64(1), dp.Value)
	side, _ := dp.Attributes.Value(attribute.Key("side"))
	reason, _ := dp.Attributes.Value(attribute.Key("reason"))
	assert.Equal(t, string(model.SidePlayer), side.AsString())
	assert.Equal(t, string(model.EndProjectileSettled), reason.AsString())

	duration, ok := data["topple.turn.duration"].(metricdata.Histogram[float64])
	require.True(t, ok, "topple.turn.duration not collected")
	require.Len(t, duration.DataPoints, 1)
	assert.Equal(t, uint64(1), duration.DataPoints[0].Count)

	score, ok := data["topple.turn.score"].(metricdata.Histogram[int64])
	require.True(t, ok, "topple.turn.score not collected")
	require.Len(t, score.DataPoints, 1)
	assert.Equal(t, uint64(1), score.DataPoints[0].Count)
}

func TestRecordTurnOnNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTurn(context.Background(), model.TurnResult{Side: model.SideBot})
	})
}
