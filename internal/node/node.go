package node

import (
	"fmt"
	"sync"

	"github.com/roach88/scenecore/internal/bounds"
	"github.com/roach88/scenecore/internal/field"
)

// Node is a live instance of a Type.
type Node struct {
	id    field.NodeID
	typ   *Type
	arena *Arena
	scope *Scope
	name  string
	dead  bool

	values  []field.Value
	outputs []*Emitter
	inputs  []*Listener

	modified bool

	mu          sync.Mutex
	boundsCache bounds.Box
	boundsValid bool

	state any
}

// ID returns the node's stable handle.
func (n *Node) ID() field.NodeID { return n.id }

// Type returns the node's type.
func (n *Node) Type() *Type { return n.typ }

// Scope returns the scope the node was created in.
func (n *Node) Scope() *Scope { return n.scope }

// Arena returns the arena owning the node.
func (n *Node) Arena() *Arena { return n.arena }

// Name returns the first DEF name given to the node, or "".
func (n *Node) Name() string { return n.name }

// Alive reports whether the node has not been collected.
func (n *Node) Alive() bool { return !n.dead }

// String identifies the node for logs: its DEF name or its handle.
func (n *Node) String() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("#%d", n.id)
}

// State and SetState hold kind-private runtime state.
func (n *Node) State() any     { return n.state }
func (n *Node) SetState(s any) { n.state = s }

// Field returns the current value of a field or exposedField visible on the
// node's type.
func (n *Node) Field(name string) (field.Value, error) {
	idx, ok := n.typ.fields[name]
	if !ok {
		return nil, n.unsupported(CategoryField, name)
	}
	return field.Clone(n.values[idx]), nil
}

// SetField assigns a visible field directly. The node becomes modified; no
// event is emitted.
func (n *Node) SetField(name string, v field.Value) error {
	idx, ok := n.typ.fields[name]
	if !ok {
		return n.unsupported(CategoryField, name)
	}
	return n.setSlot(idx, v)
}

// EventListener returns the input called name, including the implicit
// set_x and x inputs of an exposedField x. Aliases return the same listener.
func (n *Node) EventListener(name string) (*Listener, error) {
	idx, ok := n.typ.inputs[name]
	if !ok {
		return nil, n.unsupported(CategoryEventIn, name)
	}
	return n.inputs[idx], nil
}

// EventEmitter returns the output called name, including the implicit
// x_changed and x outputs of an exposedField x. Aliases return the same
// emitter.
func (n *Node) EventEmitter(name string) (*Emitter, error) {
	idx, ok := n.typ.outputs[name]
	if !ok {
		return nil, n.unsupported(CategoryEventOut, name)
	}
	return n.outputs[idx], nil
}

// Modified reports whether the node (or, for kinds that say so, any of its
// descendants) changed since the flag was last cleared.
func (n *Node) Modified() bool {
	return n.modifiedWalk(newWalk(n))
}

func (n *Node) modifiedWalk(w *Walk) bool {
	if n.modified {
		return true
	}
	if f := n.typ.kind.modified; f != nil {
		return f(n, w)
	}
	return false
}

// SetModified sets or clears the node's own flag. Setting it invalidates the
// cached bounding volume.
func (n *Node) SetModified(m bool) {
	n.modified = m
	if m {
		n.mu.Lock()
		n.boundsValid = false
		n.mu.Unlock()
	}
}

// BoundingVolume returns the node's bounds, recomputing them when the node is
// modified or the cache is empty. Kinds without bounds return an empty box.
//
// The modified flag belongs to the renderer: once it has consumed a change
// it clears the flag with SetModified(false) on the node and the descendants
// it drew. Until then every call recomputes.
func (n *Node) BoundingVolume() bounds.Box {
	return n.boundsWalk(newWalk(n))
}

func (n *Node) boundsWalk(w *Walk) bounds.Box {
	modified := n.modifiedWalk(w)
	n.mu.Lock()
	if n.boundsValid && !modified {
		b := n.boundsCache
		n.mu.Unlock()
		return b
	}
	n.mu.Unlock()

	b := bounds.Empty()
	if f := n.typ.kind.bounds; f != nil {
		b = f(n, w)
	}

	n.mu.Lock()
	n.boundsCache = b
	n.boundsValid = true
	n.mu.Unlock()
	return b
}

// Value reads kind storage by field name regardless of type visibility. It
// is meant for kind implementations; unknown names return nil.
func (n *Node) Value(name string) field.Value {
	idx, ok := n.typ.kind.slotIdx[name]
	if !ok {
		return nil
	}
	return n.values[idx]
}

// Set writes kind storage by field name regardless of type visibility and
// marks the node modified.
func (n *Node) Set(name string, v field.Value) error {
	idx, ok := n.typ.kind.slotIdx[name]
	if !ok {
		return n.unsupported(CategoryField, name)
	}
	return n.setSlot(idx, v)
}

// Output returns a kind output by name regardless of type visibility.
func (n *Node) Output(name string) (*Emitter, error) {
	idx, ok := n.typ.kind.outIdx[name]
	if !ok {
		return nil, n.unsupported(CategoryEventOut, name)
	}
	return n.outputs[idx], nil
}

// Emit stores v in the named output and fires it at ts. For an exposedField
// output the field itself is assigned and the node becomes modified.
func (n *Node) Emit(name string, v field.Value, ts float64) error {
	e, err := n.Output(name)
	if err != nil {
		return err
	}
	return e.EmitValue(v, ts)
}

// Tick runs the kind's time hook, if any.
func (n *Node) Tick(ts float64) error {
	if f := n.typ.kind.tick; f != nil && n.Alive() {
		return f(n, ts)
	}
	return nil
}

func (n *Node) setSlot(idx int, v field.Value) error {
	if err := field.Check(n.typ.kind.slots[idx].Type, v); err != nil {
		return fmt.Errorf("%s.%s: %w", n, n.typ.kind.slots[idx].Name, err)
	}
	n.values[idx] = field.Clone(v)
	n.SetModified(true)
	return nil
}

func (n *Node) unsupported(c Category, name string) error {
	return &UnsupportedInterfaceError{
		Interface: Interface{Category: c, Name: name},
		Reason:    fmt.Sprintf("not visible on %s (type %s)", n, n.typ.id),
	}
}

// nodeRefs returns the handles held by the node's node-valued storage.
func (n *Node) nodeRefs() []field.NodeID {
	var ids []field.NodeID
	for i, iface := range n.typ.kind.slots {
		if iface.Type.Elem() == field.TypeSFNode {
			ids = append(ids, field.NodeIDs(n.values[i])...)
		}
	}
	return ids
}
