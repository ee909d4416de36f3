package node

import (
	"github.com/roach88/scenecore/internal/bounds"
	"github.com/roach88/scenecore/internal/field"
)

// Walk carries the visited set of one Modified or BoundingVolume traversal.
// A node reached twice along the current path contributes nothing the
// second time, so cyclic graphs terminate.
type Walk struct {
	arena *Arena
	path  map[field.NodeID]bool
}

func newWalk(start *Node) *Walk {
	return &Walk{arena: start.arena, path: map[field.NodeID]bool{start.id: true}}
}

// ChildModified reports whether the referenced node is modified. Null,
// unknown and already-visited handles report false.
func (w *Walk) ChildModified(id field.NodeID) bool {
	c := w.enter(id)
	if c == nil {
		return false
	}
	defer w.leave(id)
	return c.modifiedWalk(w)
}

// ChildBounds returns the referenced node's bounds. Null, unknown and
// already-visited handles return an empty box.
func (w *Walk) ChildBounds(id field.NodeID) bounds.Box {
	c := w.enter(id)
	if c == nil {
		return bounds.Empty()
	}
	defer w.leave(id)
	return c.boundsWalk(w)
}

func (w *Walk) enter(id field.NodeID) *Node {
	if id == field.NullNode || w.path[id] {
		return nil
	}
	c, ok := w.arena.Node(id)
	if !ok {
		return nil
	}
	w.path[id] = true
	return c
}

func (w *Walk) leave(id field.NodeID) {
	delete(w.path, id)
}
