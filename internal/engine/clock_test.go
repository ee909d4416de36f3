package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Next(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_ResumeAt(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(42), c.Next())
}

func TestClock_AdvanceIsMonotonic(t *testing.T) {
	c := NewClock()

	c.Advance(2)
	assert.Equal(t, 2.0, c.Now())

	c.Advance(1)
	assert.Equal(t, 2.0, c.Now(), "time never moves backwards")

	c.Advance(3.5)
	assert.Equal(t, 3.5, c.Now())
}

func TestClock_ConcurrentNext(t *testing.T) {
	c := NewClock()
	const goroutines, calls = 50, 100

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := c.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), c.Current())
}

func TestClock_ConcurrentAdvance(t *testing.T) {
	c := NewClock()

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(ts float64) {
			defer wg.Done()
			c.Advance(ts)
		}(float64(i))
	}
	wg.Wait()

	assert.Equal(t, 100.0, c.Now())
}
