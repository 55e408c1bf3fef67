package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/shadowtag/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Tickers it creates only fire when Tick is called.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	tickers     []*MockTicker
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

// NewTicker returns a manually driven ticker
func (c *MockClock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTicker{
		Interval: d,
		c:        make(chan time.Time),
		stopped:  make(chan struct{}),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick advances the clock by each live ticker's interval and delivers one
// tick to it, blocking until the tick is received or the ticker is stopped.
// Returns the number of tickers that received the tick.
func (c *MockClock) Tick() int {
	c.mu.Lock()
	live := make([]*MockTicker, 0, len(c.tickers))
	for _, t := range c.tickers {
		if !t.Stopped() {
			live = append(live, t)
		}
	}
	c.tickers = live
	c.mu.Unlock()

	delivered := 0
	for _, t := range live {
		c.Advance(t.Interval)
		if t.fire(c.Now()) {
			delivered++
		}
	}
	return delivered
}

// ActiveTickers returns the number of tickers not yet stopped
func (c *MockClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

// MockTicker is a ticker driven by MockClock.Tick
type MockTicker struct {
	Interval time.Duration
	c        chan time.Time
	stopped  chan struct{}
	once     sync.Once
}

// C returns the tick channel
func (t *MockTicker) C() <-chan time.Time {
	return t.c
}

// Stop stops the ticker; safe to call more than once
func (t *MockTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

// Stopped reports whether Stop has been called
func (t *MockTicker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

func (t *MockTicker) fire(now time.Time) bool {
	select {
	case t.c <- now:
		return true
	case <-t.stopped:
		return false
	}
}
