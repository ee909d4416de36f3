package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/field"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(Event{Type: EventTypeSend, Node: "A", Name: "set_x", Value: field.SFBool(true)})
	require.True(t, ok)

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, EventTypeSend, got.Type)
	assert.Equal(t, "A", got.Node)
	assert.Equal(t, field.SFBool(true), got.Value)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()
	for _, name := range []string{"A", "B", "C"} {
		q.Enqueue(Event{Type: EventTypeTick, Node: name})
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Node)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Event{Type: EventTypeTick})
	}()

	select {
	case <-q.Wait():
		assert.Equal(t, 1, q.Len())
	case <-time.After(5 * time.Second):
		t.Fatal("no signal after enqueue")
	}
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Type: EventTypeTick})

	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(Event{Type: EventTypeTick}), "closed queue rejects events")
	_, ok := q.TryDequeue()
	assert.True(t, ok, "pending events survive close")

	<-q.Wait() // pending signal
	_, open := <-q.Wait()
	assert.False(t, open)
}

func TestEventQueue_ConcurrentProducers(t *testing.T) {
	q := newEventQueue()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Enqueue(Event{Type: EventTypeTick, Time: float64(j)})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "send", EventTypeSend.String())
	assert.Equal(t, "emit", EventTypeEmit.String())
	assert.Equal(t, "tick", EventTypeTick.String())
	assert.Equal(t, "mutation", EventTypeMutation.String())
	assert.Equal(t, "unknown", EventType(0).String())
}
