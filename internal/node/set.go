package node

import (
	"github.com/roach88/scenecore/internal/field"
)

// InterfaceSet is an ordered set of interfaces with no conflicting names.
// The zero value is an empty set ready to use.
type InterfaceSet struct {
	items []Interface
	bound map[binding]field.Type
}

// NewInterfaceSet builds a set from ifaces in order, failing on the first
// conflict.
func NewInterfaceSet(ifaces ...Interface) (InterfaceSet, error) {
	var s InterfaceSet
	for _, i := range ifaces {
		if err := s.Add(i); err != nil {
			return InterfaceSet{}, err
		}
	}
	return s, nil
}

// Add inserts i. It fails with *UnsupportedInterfaceError when i is already
// present, or when any name i would bind (including the implicit set_x and
// x_changed of an exposedField) is already bound to a different tag. On
// failure the set is unchanged.
func (s *InterfaceSet) Add(i Interface) error {
	if err := i.validate(); err != nil {
		return &UnsupportedInterfaceError{Interface: i, Reason: err.Error()}
	}
	for _, have := range s.items {
		if have == i {
			return &UnsupportedInterfaceError{Interface: i, Conflict: &have, Reason: "declared twice"}
		}
	}
	for _, b := range i.bindings() {
		if t, ok := s.bound[b]; ok && t != i.Type {
			conflict := s.owner(b)
			return &UnsupportedInterfaceError{Interface: i, Conflict: conflict, Reason: "name bound to a different type"}
		}
	}

	if s.bound == nil {
		s.bound = make(map[binding]field.Type)
	}
	for _, b := range i.bindings() {
		if _, ok := s.bound[b]; !ok {
			s.bound[b] = i.Type
		}
	}
	s.items = append(s.items, i)
	return nil
}

func (s *InterfaceSet) owner(b binding) *Interface {
	for _, have := range s.items {
		for _, hb := range have.bindings() {
			if hb == b {
				return &have
			}
		}
	}
	return nil
}

// Len returns the number of interfaces.
func (s InterfaceSet) Len() int { return len(s.items) }

// All returns the interfaces in insertion order.
func (s InterfaceSet) All() []Interface {
	out := make([]Interface, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports whether i itself is a member.
func (s InterfaceSet) Contains(i Interface) bool {
	for _, have := range s.items {
		if have == i {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold the same interfaces, ignoring order.
func (s InterfaceSet) Equal(o InterfaceSet) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for _, i := range s.items {
		if !o.Contains(i) {
			return false
		}
	}
	return true
}

// Match finds the member that serves the requested interface. Members are
// scanned in insertion order; the first whose name matches decides the
// result: with an equal tag it is returned, otherwise the lookup fails. A
// requested eventIn set_x or eventOut x_changed is served by an
// exposedField x.
func (s InterfaceSet) Match(req Interface) (Interface, error) {
	for _, sup := range s.items {
		if !nameMatches(req, sup) {
			continue
		}
		if sup.Type != req.Type {
			return Interface{}, &UnsupportedInterfaceError{
				Interface: req,
				Conflict:  &sup,
				Reason:    "type mismatch",
			}
		}
		return sup, nil
	}
	return Interface{}, &UnsupportedInterfaceError{Interface: req, Reason: "not supported"}
}

// FindField returns the field or exposedField called name.
func (s InterfaceSet) FindField(name string) (Interface, bool) {
	return s.find(roleField, name)
}

// FindEventIn returns the interface accepting events under name.
func (s InterfaceSet) FindEventIn(name string) (Interface, bool) {
	return s.find(roleIn, name)
}

// FindEventOut returns the interface emitting events under name.
func (s InterfaceSet) FindEventOut(name string) (Interface, bool) {
	return s.find(roleOut, name)
}

func (s InterfaceSet) find(r role, name string) (Interface, bool) {
	if i := s.owner(binding{r, name}); i != nil {
		return *i, true
	}
	return Interface{}, false
}
