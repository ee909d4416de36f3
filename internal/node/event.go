package node

import (
	"fmt"

	"github.com/roach88/scenecore/internal/field"
)

// Dispatcher propagates an output's current value along routes. The event
// engine installs itself on the arena; without one, emitting only records
// the firing.
type Dispatcher interface {
	EmitEvent(e *Emitter, ts float64) error
}

// Emitter is a node output: an eventOut with its own value buffer, or the
// output side of an exposedField reading the field's storage.
type Emitter struct {
	node  *Node
	iface Interface
	slot  int
	value field.Value

	fired    bool
	lastTime float64
}

// Node returns the owning node.
func (e *Emitter) Node() *Node { return e.node }

// Interface returns the kind interface the emitter belongs to.
func (e *Emitter) Interface() Interface { return e.iface }

// Type returns the tag of emitted values.
func (e *Emitter) Type() field.Type { return e.iface.Type }

// Value returns the value the next emission will deliver.
func (e *Emitter) Value() field.Value {
	if e.slot >= 0 {
		return e.node.values[e.slot]
	}
	return e.value
}

// LastFired returns the timestamp of the most recent emission.
func (e *Emitter) LastFired() (float64, bool) { return e.lastTime, e.fired }

// Emit fires the emitter at ts, delivering its current value to every
// route from it.
func (e *Emitter) Emit(ts float64) error {
	e.fired = true
	e.lastTime = ts
	if d := e.node.arena.dispatcher(); d != nil {
		return d.EmitEvent(e, ts)
	}
	return nil
}

// EmitValue stores v as the emitter's value and fires it at ts. For an
// exposedField output the field is assigned and the node becomes modified.
func (e *Emitter) EmitValue(v field.Value, ts float64) error {
	if err := e.set(v); err != nil {
		return err
	}
	return e.Emit(ts)
}

func (e *Emitter) set(v field.Value) error {
	if e.slot >= 0 {
		return e.node.setSlot(e.slot, v)
	}
	if err := field.Check(e.iface.Type, v); err != nil {
		return fmt.Errorf("%s.%s: %w", e.node, e.iface.Name, err)
	}
	e.value = field.Clone(v)
	return nil
}

// Listener is a node input: an eventIn backed by a handler, or the input
// side of an exposedField.
type Listener struct {
	node    *Node
	iface   Interface
	slot    int
	handler Handler
	out     *Emitter
}

// Node returns the owning node.
func (l *Listener) Node() *Node { return l.node }

// Interface returns the kind interface the listener belongs to.
func (l *Listener) Interface() Interface { return l.iface }

// Type returns the tag of accepted values.
func (l *Listener) Type() field.Type { return l.iface.Type }

// ProcessEvent delivers v at ts.
//
// For an exposedField the default cascade runs: assign the field, run the
// kind's hook, mark the node modified, then emit the paired eventOut with
// the same timestamp. For an eventIn the kind's handler runs and the node
// becomes modified.
func (l *Listener) ProcessEvent(v field.Value, ts float64) error {
	if err := field.Check(l.iface.Type, v); err != nil {
		return fmt.Errorf("%s.%s: %w", l.node, l.iface.Name, err)
	}
	if !l.node.Alive() {
		return fmt.Errorf("%s.%s: node has been collected", l.node, l.iface.Name)
	}

	if l.iface.Category == CategoryExposedField {
		l.node.values[l.slot] = field.Clone(v)
		if l.handler != nil {
			if err := l.handler(l.node, v, ts); err != nil {
				return err
			}
		}
		l.node.SetModified(true)
		return l.out.Emit(ts)
	}

	if l.handler != nil {
		if err := l.handler(l.node, v, ts); err != nil {
			return err
		}
	}
	l.node.SetModified(true)
	return nil
}
