package node

import (
	"errors"
	"slices"
	"sync"

	"github.com/roach88/scenecore/internal/field"
)

// Arena owns every node of one scene graph and hands out stable handles.
type Arena struct {
	mu     sync.RWMutex
	nodes  map[field.NodeID]*Node
	next   field.NodeID
	roots  map[field.NodeID]int
	scopes []*Scope
	disp   Dispatcher
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{
		nodes: make(map[field.NodeID]*Node),
		roots: make(map[field.NodeID]int),
	}
}

// NewScope returns a top-level scope creating nodes in the arena.
func (a *Arena) NewScope() *Scope {
	return a.newScope(nil)
}

func (a *Arena) newScope(parent *Scope) *Scope {
	s := &Scope{arena: a, parent: parent, names: make(map[string]field.NodeID)}
	a.mu.Lock()
	a.scopes = append(a.scopes, s)
	a.mu.Unlock()
	return s
}

// DropScope stops tracking s. Collect no longer removes dead names from it.
func (a *Arena) DropScope(s *Scope) {
	a.mu.Lock()
	a.scopes = slices.DeleteFunc(a.scopes, func(have *Scope) bool { return have == s })
	a.mu.Unlock()
}

// SetDispatcher installs the route engine.
func (a *Arena) SetDispatcher(d Dispatcher) {
	a.mu.Lock()
	a.disp = d
	a.mu.Unlock()
}

func (a *Arena) dispatcher() Dispatcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.disp
}

func (a *Arena) insert(n *Node) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	n.id = a.next
	a.nodes[n.id] = n
}

// Node returns the live node with handle id.
func (a *Arena) Node(id field.NodeID) (*Node, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n, ok := a.nodes[id]
	return n, ok
}

// Nodes returns every live node in handle order.
func (a *Arena) Nodes() []*Node {
	a.mu.RLock()
	out := make([]*Node, 0, len(a.nodes))
	for _, n := range a.nodes {
		out = append(out, n)
	}
	a.mu.RUnlock()
	slices.SortFunc(out, func(x, y *Node) int {
		switch {
		case x.id < y.id:
			return -1
		case x.id > y.id:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of live nodes.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes)
}

// AddRoot makes n a root; roots and everything they reach survive Collect.
// Roots are counted: each AddRoot needs a matching RemoveRoot.
func (a *Arena) AddRoot(n *Node) error {
	if n == nil || n.arena != a || !n.Alive() {
		return errors.New("add root: node is not a live member of this arena")
	}
	a.mu.Lock()
	a.roots[n.id]++
	a.mu.Unlock()
	return nil
}

// RemoveRoot releases one AddRoot of n. Releasing a non-root is a no-op.
func (a *Arena) RemoveRoot(n *Node) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.roots[n.id] <= 1 {
		delete(a.roots, n.id)
		return
	}
	a.roots[n.id]--
}

// IsRoot reports whether n is currently a root.
func (a *Arena) IsRoot(n *Node) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.roots[n.id] > 0
}

// Roots returns the root nodes in handle order.
func (a *Arena) Roots() []*Node {
	var out []*Node
	for _, n := range a.Nodes() {
		if a.IsRoot(n) {
			out = append(out, n)
		}
	}
	return out
}

// Collect destroys every node not reachable from a root through SFNode or
// MFNode storage, including unreachable cycles. It returns the destroyed
// handles in order. Collect must not run while events are being delivered.
func (a *Arena) Collect() []field.NodeID {
	a.mu.Lock()
	defer a.mu.Unlock()

	marked := make(map[field.NodeID]bool, len(a.nodes))
	stack := make([]field.NodeID, 0, len(a.roots))
	for id := range a.roots {
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if marked[id] {
			continue
		}
		n, ok := a.nodes[id]
		if !ok {
			continue
		}
		marked[id] = true
		stack = append(stack, n.nodeRefs()...)
	}

	var dead []field.NodeID
	deadSet := make(map[field.NodeID]bool)
	for id, n := range a.nodes {
		if marked[id] {
			continue
		}
		n.dead = true
		dead = append(dead, id)
		deadSet[id] = true
		delete(a.nodes, id)
	}
	slices.Sort(dead)

	if len(dead) > 0 {
		for _, s := range a.scopes {
			s.forget(deadSet)
		}
	}
	return dead
}
