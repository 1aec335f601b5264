package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/topple/internal/dependencies/mocks"
	"github.com/mcoot/topple/internal/services/match"
	"github.com/mcoot/topple/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(match.DefaultConfig())
}

// NewTestAppWithConfig creates a test App with custom match settings.
// It panics if the settings are invalid.
func NewTestAppWithConfig(cfg match.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app, err := newWithDependencies(store, mockClock, mockRandom, cfg, logger)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// AdvanceUntil steps the mock clock in increments of step until cond holds
// or limit has elapsed. It reports whether cond held.
func (t *TestApp) AdvanceUntil(step, limit time.Duration, cond func() bool) bool {
	for elapsed := time.Duration(0); elapsed <= limit; elapsed += step {
		if cond() {
			return true
		}
		t.MockClock.Advance(step)
	}
	return cond()
}
