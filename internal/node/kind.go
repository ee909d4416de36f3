package node

import (
	"errors"
	"fmt"

	"github.com/roach88/scenecore/internal/bounds"
	"github.com/roach88/scenecore/internal/field"
)

// Handler reacts to an event delivered to a node. For eventIns it is the
// whole behavior; for exposedFields it is the side-effect hook run after
// the new value is stored and before the paired eventOut fires.
type Handler func(n *Node, v field.Value, ts float64) error

// BoundsFunc computes a node's bounding volume. Child volumes must be
// obtained through w so that cyclic graphs terminate.
type BoundsFunc func(n *Node, w *Walk) bounds.Box

// ModifiedFunc extends the modified check, typically by consulting
// children through w.
type ModifiedFunc func(n *Node, w *Walk) bool

// InitFunc runs once when a node is created, after storage is bound.
type InitFunc func(n *Node)

// TickFunc advances time-dependent nodes.
type TickFunc func(n *Node, ts float64) error

// Kind is the immutable description of one category of node: its maximal
// interface set and the closures that bind each interface to behavior.
type Kind struct {
	name      string
	supported InterfaceSet
	defaults  map[string]field.Value
	handlers  map[Interface]Handler

	// storage layout shared by every instance
	slots   []Interface
	slotIdx map[string]int
	outs    []Interface
	outDefs []field.Value
	outIdx  map[string]int
	outOwn  map[string]bool
	outOf   map[Interface]int
	ins     []Interface
	inOf    map[Interface]int

	init     InitFunc
	tick     TickFunc
	bounds   BoundsFunc
	modified ModifiedFunc
}

// Name returns the kind name.
func (k *Kind) Name() string { return k.name }

// Supported returns the maximal interface set.
func (k *Kind) Supported() InterfaceSet { return k.supported }

// Ticks reports whether instances need Tick calls.
func (k *Kind) Ticks() bool { return k.tick != nil }

// CreateType returns a type exposing requested, which must be a subset of
// the supported interfaces by name and tag. Any mismatch fails the whole
// call and no type is returned.
func (k *Kind) CreateType(id string, requested []Interface) (*Type, error) {
	ifaces, err := NewInterfaceSet(requested...)
	if err != nil {
		return nil, fmt.Errorf("create type %q of kind %s: %w", id, k.name, err)
	}

	t := &Type{
		id:      id,
		kind:    k,
		ifaces:  ifaces,
		fields:  make(map[string]int),
		inputs:  make(map[string]int),
		outputs: make(map[string]int),
	}
	ownIn, ownOut := make(map[string]bool), make(map[string]bool)
	for _, req := range requested {
		sup, err := k.supported.Match(req)
		if err != nil {
			return nil, fmt.Errorf("create type %q of kind %s: %w", id, k.name, err)
		}
		t.expose(req, sup, ownIn, ownOut)
	}
	return t, nil
}

// KindBuilder assembles a Kind. Errors are collected and reported together
// by Build.
type KindBuilder struct {
	kind *Kind
	errs []error
}

// NewKind starts a kind called name.
func NewKind(name string) *KindBuilder {
	return &KindBuilder{kind: &Kind{
		name:     name,
		defaults: make(map[string]field.Value),
		handlers: make(map[Interface]Handler),
		slotIdx:  make(map[string]int),
		outIdx:   make(map[string]int),
		outOwn:   make(map[string]bool),
		outOf:    make(map[Interface]int),
		inOf:     make(map[Interface]int),
	}}
}

func (b *KindBuilder) storageTaken(name string) bool {
	if _, ok := b.kind.slotIdx[name]; ok {
		b.errs = append(b.errs, fmt.Errorf("field %q declared twice", name))
		return true
	}
	return false
}

func (b *KindBuilder) add(i Interface) bool {
	if err := b.kind.supported.Add(i); err != nil {
		b.errs = append(b.errs, err)
		return false
	}
	return true
}

// Field declares a field initialized to def.
func (b *KindBuilder) Field(name string, def field.Value) *KindBuilder {
	if def == nil {
		b.errs = append(b.errs, fmt.Errorf("field %q: nil default", name))
		return b
	}
	i := FieldOf(name, def.Type())
	if b.storageTaken(name) {
		return b
	}
	if b.add(i) {
		b.kind.addSlot(i, def)
	}
	return b
}

// ExposedField declares an exposedField initialized to def. hook may be nil.
func (b *KindBuilder) ExposedField(name string, def field.Value, hook Handler) *KindBuilder {
	if def == nil {
		b.errs = append(b.errs, fmt.Errorf("exposedField %q: nil default", name))
		return b
	}
	i := ExposedFieldOf(name, def.Type())
	if b.storageTaken(name) {
		return b
	}
	if b.add(i) {
		b.kind.addSlot(i, def)
		b.kind.addInput(i)
		b.kind.addOutput(i, nil, name+"_changed")
		if hook != nil {
			b.kind.handlers[i] = hook
		}
	}
	return b
}

// EventIn declares an eventIn handled by h. h may be nil for inputs whose
// only effect is marking the node modified.
func (b *KindBuilder) EventIn(name string, t field.Type, h Handler) *KindBuilder {
	i := EventInOf(name, t)
	if b.add(i) {
		b.kind.addInput(i)
		if h != nil {
			b.kind.handlers[i] = h
		}
	}
	return b
}

// EventOut declares an eventOut. Its buffer starts at the tag's default.
func (b *KindBuilder) EventOut(name string, t field.Type) *KindBuilder {
	i := EventOutOf(name, t)
	if b.add(i) {
		b.kind.addOutput(i, field.Default(t))
	}
	return b
}

func (b *KindBuilder) Init(f InitFunc) *KindBuilder         { b.kind.init = f; return b }
func (b *KindBuilder) Tick(f TickFunc) *KindBuilder         { b.kind.tick = f; return b }
func (b *KindBuilder) Bounds(f BoundsFunc) *KindBuilder     { b.kind.bounds = f; return b }
func (b *KindBuilder) Modified(f ModifiedFunc) *KindBuilder { b.kind.modified = f; return b }

// Build returns the kind, or every declaration error joined.
func (b *KindBuilder) Build() (*Kind, error) {
	if b.kind.name == "" {
		b.errs = append(b.errs, errors.New("kind has empty name"))
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("kind %q: %w", b.kind.name, errors.Join(b.errs...))
	}
	return b.kind, nil
}

// MustBuild is Build for statically declared kinds; it panics on error.
func (b *KindBuilder) MustBuild() *Kind {
	k, err := b.Build()
	if err != nil {
		panic(err)
	}
	return k
}

func (k *Kind) addSlot(i Interface, def field.Value) {
	k.slotIdx[i.Name] = len(k.slots)
	k.slots = append(k.slots, i)
	k.defaults[i.Name] = field.Clone(def)
}

func (k *Kind) addInput(i Interface) {
	k.inOf[i] = len(k.ins)
	k.ins = append(k.ins, i)
}

func (k *Kind) addOutput(i Interface, def field.Value, aliases ...string) {
	idx := len(k.outs)
	k.outs = append(k.outs, i)
	k.outDefs = append(k.outDefs, def)
	k.outOf[i] = idx
	bindNames(k.outIdx, k.outOwn, idx, i.Name, aliases)
}

// bindNames maps an interface's own name and its implied aliases to idx.
// An own name takes over a name earlier bound only as an alias; otherwise
// the first binding of a name wins.
func bindNames(index map[string]int, own map[string]bool, idx int, name string, aliases []string) {
	if !own[name] {
		index[name] = idx
		own[name] = true
	}
	for _, a := range aliases {
		if _, taken := index[a]; !taken {
			index[a] = idx
		}
	}
}
