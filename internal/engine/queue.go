package engine

import (
	"sync"

	"github.com/roach88/scenecore/internal/field"
)

// EventType discriminates queued events.
type EventType int

const (
	// EventTypeSend delivers Value to the eventIn Name of node Node.
	EventTypeSend EventType = iota + 1

	// EventTypeEmit stores Value in the output Name of node Node and fires it.
	EventTypeEmit

	// EventTypeTick advances time-dependent nodes to Time.
	EventTypeTick

	// EventTypeMutation runs Mutate between cascades.
	EventTypeMutation
)

func (t EventType) String() string {
	switch t {
	case EventTypeSend:
		return "send"
	case EventTypeEmit:
		return "emit"
	case EventTypeTick:
		return "tick"
	case EventTypeMutation:
		return "mutation"
	}
	return "unknown"
}

// Event is a unit of work for the Run loop.
type Event struct {
	Type  EventType
	Node  string // DEF name
	Name  string // event name
	Value field.Value
	Time  float64

	// Mutate changes the graph (load a scene, add routes, collect).
	Mutate func(*Engine) error
	// Label describes a mutation in logs.
	Label string
}

// eventQueue is a thread-safe FIFO for events.
//
// Enqueue never blocks. Consumers use TryDequeue with Wait, so the Run loop
// can also select on context cancellation.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	// non-blocking: if a signal is already pending the consumer will see
	// this event on its next TryDequeue
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the oldest event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	q.events[0] = Event{} // release references held by the old slot
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that receives when events may be available. It is
// closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting events and wakes waiters. Idempotent.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
