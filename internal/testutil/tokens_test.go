package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialTokens_Numbered(t *testing.T) {
	gen := NewSequentialTokens("scene")

	assert.Equal(t, "scene-0001", gen.Generate())
	assert.Equal(t, "scene-0002", gen.Generate())
	assert.Equal(t, "scene-0003", gen.Generate())
}

func TestSequentialTokens_DefaultPrefix(t *testing.T) {
	gen := NewSequentialTokens("")

	assert.Equal(t, "cascade-0001", gen.Generate())
}

func TestSequentialTokens_Reset(t *testing.T) {
	gen := NewSequentialTokens("")
	gen.Generate()
	gen.Generate()

	gen.Reset()

	assert.Equal(t, "cascade-0001", gen.Generate())
}

func TestSequentialTokens_ThreadSafe(t *testing.T) {
	gen := NewSequentialTokens("")

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				token := gen.Generate()
				mu.Lock()
				seen[token] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every token must be unique")
	assert.Equal(t, "cascade-1001", gen.Generate())
}
