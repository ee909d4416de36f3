package node

import "github.com/roach88/scenecore/internal/field"

// Type is a named, validated subset of a kind's interfaces. Types are
// immutable once created and may be shared by any number of nodes.
type Type struct {
	id     string
	kind   *Kind
	ifaces InterfaceSet

	// visible names -> kind storage, input and output indexes
	fields  map[string]int
	inputs  map[string]int
	outputs map[string]int
}

// ID returns the type identifier given to CreateType.
func (t *Type) ID() string { return t.id }

// Kind returns the kind the type was created from.
func (t *Type) Kind() *Kind { return t.kind }

// Interfaces returns exactly the requested interface set.
func (t *Type) Interfaces() InterfaceSet { return t.ifaces }

// expose makes req visible, backed by the supported interface sup. A name
// requested as an interface's own name wins over an implied set_x or
// x_changed alias; own names (in, out) are tracked across calls.
func (t *Type) expose(req, sup Interface, ownIn, ownOut map[string]bool) {
	k := t.kind
	switch req.Category {
	case CategoryField:
		t.fields[req.Name] = k.slotIdx[sup.Name]
	case CategoryExposedField:
		t.fields[req.Name] = k.slotIdx[sup.Name]
		bindNames(t.inputs, ownIn, k.inOf[sup], req.Name, []string{"set_" + req.Name})
		bindNames(t.outputs, ownOut, k.outOf[sup], req.Name, []string{req.Name + "_changed"})
	case CategoryEventIn:
		bindNames(t.inputs, ownIn, k.inOf[sup], req.Name, nil)
	case CategoryEventOut:
		bindNames(t.outputs, ownOut, k.outOf[sup], req.Name, nil)
	}
}

// CreateNode instantiates the type in scope's arena. Storage for every
// field and exposedField of the kind is bound to its default, the kind's
// Init runs, and the node starts modified. scope must not be nil.
func (t *Type) CreateNode(scope *Scope) *Node {
	k := t.kind
	n := &Node{
		typ:      t,
		scope:    scope,
		arena:    scope.arena,
		values:   make([]field.Value, len(k.slots)),
		outputs:  make([]*Emitter, len(k.outs)),
		inputs:   make([]*Listener, len(k.ins)),
		modified: true,
	}
	for i, iface := range k.slots {
		n.values[i] = field.Clone(k.defaults[iface.Name])
	}
	for i, iface := range k.outs {
		e := &Emitter{node: n, iface: iface, slot: -1}
		if iface.Category == CategoryExposedField {
			e.slot = k.slotIdx[iface.Name]
		} else {
			e.value = field.Clone(k.outDefs[i])
		}
		n.outputs[i] = e
	}
	for i, iface := range k.ins {
		l := &Listener{node: n, iface: iface, slot: -1, handler: k.handlers[iface]}
		if iface.Category == CategoryExposedField {
			l.slot = k.slotIdx[iface.Name]
			l.out = n.outputs[k.outOf[iface]]
		}
		n.inputs[i] = l
	}

	scope.arena.insert(n)
	if k.init != nil {
		k.init(n)
	}
	return n
}
