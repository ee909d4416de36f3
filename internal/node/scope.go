package node

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/scenecore/internal/field"
)

// Scope is a DEF/USE naming context. Names never keep a node alive; a
// collected node's names disappear from every scope.
type Scope struct {
	arena  *Arena
	parent *Scope

	mu    sync.RWMutex
	names map[string]field.NodeID
}

// NewChild returns a scope that falls back to s for lookups, as used by
// inlined scenes and prototype bodies.
func (s *Scope) NewChild() *Scope {
	return s.arena.newScope(s)
}

// Arena returns the arena the scope creates nodes in.
func (s *Scope) Arena() *Arena { return s.arena }

// Parent returns the enclosing scope, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// Define binds name to n, replacing an earlier binding of the same name.
func (s *Scope) Define(name string, n *Node) error {
	if name == "" {
		return fmt.Errorf("define: empty name")
	}
	if n == nil || !n.Alive() {
		return fmt.Errorf("define %q: node is not alive", name)
	}
	if n.arena != s.arena {
		return fmt.Errorf("define %q: node belongs to another arena", name)
	}
	s.mu.Lock()
	s.names[name] = n.id
	s.mu.Unlock()
	if n.name == "" {
		n.name = name
	}
	return nil
}

// Lookup resolves name in s and then its parents.
func (s *Scope) Lookup(name string) (*Node, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		sc.mu.RLock()
		id, ok := sc.names[name]
		sc.mu.RUnlock()
		if ok {
			return s.arena.Node(id)
		}
	}
	return nil, false
}

// Names returns the names defined directly in s, sorted.
func (s *Scope) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (s *Scope) forget(dead map[field.NodeID]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, id := range s.names {
		if dead[id] {
			delete(s.names, name)
		}
	}
}
