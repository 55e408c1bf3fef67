package factory

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/shadowtag/internal/dependencies/mocks"
	"github.com/mcoot/shadowtag/internal/services/board"
	"github.com/mcoot/shadowtag/internal/services/rooms"
	"github.com/mcoot/shadowtag/internal/services/session"
	"github.com/mcoot/shadowtag/internal/similarity/similaritytest"
	"github.com/mcoot/shadowtag/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	StubOracle *similaritytest.StubOracle
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Phase timers only advance when MockClock.Tick is called.
func NewTestApp(ctx context.Context) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	oracle := similaritytest.NewStubOracle()

	app := newWithDependencies(ctx, dependencies{
		store:       memory.New(),
		oracle:      oracle,
		clock:       mockClock,
		random:      mockRandom,
		sessionCfg:  session.DefaultConfig(),
		roomsCfg:    rooms.DefaultConfig(),
		boardCfg:    board.DefaultConfig(),
		concurrency: 4,
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		StubOracle: oracle,
	}
}
