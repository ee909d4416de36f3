package testutil

import (
	"io"
	"log/slog"
	"sync"
)

// SceneClock is a fixed-step scene time source for tests.
//
// Each Step advances the time by the configured interval, so a sequence of
// ticks lands on exactly reproducible timestamps (0.25, 0.5, ...) instead of
// wall-clock readings.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SceneClock struct {
	mu    sync.Mutex
	start float64
	step  float64
	steps int64
}

// NewSceneClock creates a clock at start advancing by step per Step.
func NewSceneClock(start, step float64) *SceneClock {
	return &SceneClock{start: start, step: step}
}

// Now returns the current scene time.
func (c *SceneClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}

// Step advances by one interval and returns the new time.
//
// The time is computed as start + steps*step rather than accumulated, so
// long runs do not drift.
func (c *SceneClock) Step() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps++
	return c.now()
}

// Steps returns how many times Step has been called.
func (c *SceneClock) Steps() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps
}

// Reset returns the clock to its start time.
func (c *SceneClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = 0
}

func (c *SceneClock) now() float64 {
	return c.start + float64(c.steps)*c.step
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
