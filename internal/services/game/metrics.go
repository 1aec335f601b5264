package game

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcoot/topple/internal/model"
)

const instrumentationName = "github.com/mcoot/topple/internal/services/game"

// Metrics holds the engine's instruments
type Metrics struct {
	turns    metric.Int64Counter
	duration metric.Float64Histogram
	score    metric.Int64Histogram
}

// NewMetrics creates the engine instruments on the global meter provider,
// which is a no-op unless one has been installed
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(instrumentationName))
}

// NewMetricsWithMeter creates the engine instruments on m
func NewMetricsWithMeter(m metric.Meter) (*Metrics, error) {
	var (
		mt  Metrics
		err error
	)

	mt.turns, err = m.Int64Counter(
		"topple.turns",
		metric.WithDescription("Completed turns by side and end reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turns counter: %w", err)
	}

	mt.duration, err = m.Float64Histogram(
		"topple.turn.duration",
		metric.WithDescription("Time from launch to turn end"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turn duration histogram: %w", err)
	}

	mt.score, err = m.Int64Histogram(
		"topple.turn.score",
		metric.WithDescription("Points awarded per turn"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turn score histogram: %w", err)
	}

	return &mt, nil
}

// RecordTurn records a completed turn
func (m *Metrics) RecordTurn(ctx context.Context, result model.TurnResult) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("side", string(result.Side)),
		attribute.String("reason", string(result.Reason)),
	)
	m.turns.Add(ctx, 1, attrs)
	m.duration.Record(ctx, result.Duration.Seconds(), attrs)
	m.score.Record(ctx, int64(result.Score), metric.WithAttributes(attribute.String("side", string(result.Side))))
}
