package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokens generates numbered cascade tokens: cascade-0001,
// cascade-0002, and so on.
//
// The same scenario run with a fresh SequentialTokens produces byte-identical
// traces, which golden snapshots rely on. Unlike engine.FixedGenerator it
// never runs out.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator with the given prefix.
// An empty prefix means "cascade".
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "cascade"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token.
//
// Implements engine.TokenGenerator.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
