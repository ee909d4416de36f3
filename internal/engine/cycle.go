package engine

import (
	"sync"

	"github.com/roach88/scenecore/internal/node"
)

// LoopBreaker enforces the VRML97 loop rule: an emitter fires at most once
// per timestamp. History is kept for the current timestamp only.
type LoopBreaker struct {
	mu      sync.Mutex
	ts      float64
	history map[*node.Emitter]bool
}

// NewLoopBreaker creates an empty breaker.
func NewLoopBreaker() *LoopBreaker {
	return &LoopBreaker{history: make(map[*node.Emitter]bool)}
}

// WouldLoop reports whether e already fired at ts.
func (c *LoopBreaker) WouldLoop(e *node.Emitter, ts float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts == ts && c.history[e]
}

// Record notes that e fired at ts. A new timestamp forgets the old history.
func (c *LoopBreaker) Record(e *node.Emitter, ts float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts != c.ts {
		c.ts = ts
		clear(c.history)
	}
	c.history[e] = true
}

// Clear forgets all history.
func (c *LoopBreaker) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.history)
}

// HistorySize returns the number of emitters that fired at the current
// timestamp.
func (c *LoopBreaker) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}
