package factory

import (
	"time"

	"github.com/mcoot/bingoroom/internal/dependencies/mocks"
	memorybus "github.com/mcoot/bingoroom/internal/notify/memory"
	"github.com/mcoot/bingoroom/internal/services/results"
	"github.com/mcoot/bingoroom/internal/storage/memory"
	"github.com/mcoot/bingoroom/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Concrete backends for inspection
	MemoryStorage *memory.Storage
	MemoryBus     *memorybus.Bus

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithResults(results.DefaultConfig())
}

// NewTestAppWithResults creates a test App with the given leaderboard settings
func NewTestAppWithResults(resultsCfg results.Config) *TestApp {
	store := memory.New()
	logger := testutil.NopLogger()
	bus := memorybus.New(logger)
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, bus, mockClock, mockRandom, resultsCfg, logger)

	return &TestApp{
		App:           app,
		MemoryStorage: store,
		MemoryBus:     bus,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
	}
}
