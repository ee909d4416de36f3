package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/node"
)

// Instantiate builds a scene from its declaration: types, nodes with their
// DEF names and field values, roots and routes.
//
// Declared nodes that no other declared node references through an SFNode
// or MFNode field become roots. A DEF name that is already bound is rebound
// to the new node. Loading is all-or-nothing: on error the declared types
// are forgotten, the partial graph is collected and rebound names point at
// their earlier nodes again.
func (e *Engine) Instantiate(spec ir.SceneSpec) (err error) {
	if e.router.InCascade() {
		return ErrCascadeInProgress
	}

	var (
		definedTypes []string
		rooted       []*node.Node
		routes       []*Route
		rebound      []binding
	)
	defer func() {
		if err == nil {
			return
		}
		for _, rt := range routes {
			e.router.remove(rt.From, rt.To)
		}
		for _, n := range rooted {
			e.arena.RemoveRoot(n)
		}
		for _, id := range definedTypes {
			delete(e.types, id)
		}
		e.Collect()
		for _, b := range slices.Backward(rebound) {
			if b.node.Alive() {
				_ = e.scope.Define(b.name, b.node)
			}
		}
	}()

	for _, decl := range spec.Types {
		if _, err := e.DefineType(decl); err != nil {
			return fmt.Errorf("scene %q: %w", spec.Name, err)
		}
		definedTypes = append(definedTypes, decl.ID)
	}

	created := make([]*node.Node, len(spec.Nodes))
	seen := make(map[string]bool, len(spec.Nodes))
	for i, decl := range spec.Nodes {
		if decl.Name != "" {
			if seen[decl.Name] {
				return fmt.Errorf("scene %q: node %q declared twice", spec.Name, decl.Name)
			}
			seen[decl.Name] = true
			if prev, ok := e.scope.Lookup(decl.Name); ok {
				rebound = append(rebound, binding{name: decl.Name, node: prev})
			}
		}
		_, known := e.types[decl.Type]
		n, err := e.CreateNode(decl.Type, decl.Name)
		if err != nil {
			return fmt.Errorf("scene %q: node %q: %w", spec.Name, decl.Name, err)
		}
		if !known {
			if _, implicit := e.types[decl.Type]; implicit {
				definedTypes = append(definedTypes, decl.Type)
			}
		}
		created[i] = n
	}

	referenced := make(map[field.NodeID]bool)
	dec := field.Decoder{ResolveNode: e.resolveNodeRef}
	for i, decl := range spec.Nodes {
		n := created[i]
		for _, name := range sortedKeys(decl.Fields) {
			cur, err := n.Field(name)
			if err != nil {
				return fmt.Errorf("scene %q: node %q: %w", spec.Name, decl.Name, err)
			}
			v, err := dec.Decode(cur.Type(), decl.Fields[name])
			if err != nil {
				return fmt.Errorf("scene %q: node %q field %s: %w", spec.Name, decl.Name, name, err)
			}
			if err := n.SetField(name, v); err != nil {
				return fmt.Errorf("scene %q: node %q: %w", spec.Name, decl.Name, err)
			}
			for _, id := range field.NodeIDs(v) {
				referenced[id] = true
			}
		}
	}

	for _, n := range created {
		if referenced[n.ID()] {
			continue
		}
		if err := e.arena.AddRoot(n); err != nil {
			return err
		}
		rooted = append(rooted, n)
	}

	for _, decl := range spec.Routes {
		rt, err := e.AddRoute(decl.FromNode, decl.FromEvent, decl.ToNode, decl.ToEvent)
		if err != nil {
			return fmt.Errorf("scene %q: ROUTE %s: %w", spec.Name, decl, err)
		}
		routes = append(routes, rt)
	}

	e.logger.Info("scene loaded",
		"scene", spec.Name,
		"types", len(spec.Types),
		"nodes", len(created),
		"roots", len(rooted),
		"routes", len(spec.Routes),
	)
	return nil
}

// Unload releases every root, forgets declared types and DEF names, and
// collects the whole graph.
func (e *Engine) Unload() error {
	if e.router.InCascade() {
		return ErrCascadeInProgress
	}
	for _, n := range e.arena.Roots() {
		for e.arena.IsRoot(n) {
			e.arena.RemoveRoot(n)
		}
	}
	clear(e.types)
	e.arena.DropScope(e.scope)
	e.scope = e.arena.NewScope()
	_, err := e.Collect()
	return err
}

// Reload replaces the current scene with spec. The new scene is built in a
// fresh scope next to the running one, which is only released once the new
// scene has loaded. If loading fails the running scene is kept unchanged.
func (e *Engine) Reload(spec ir.SceneSpec) error {
	if e.router.InCascade() {
		return ErrCascadeInProgress
	}
	oldRoots := e.arena.Roots()
	oldScope, oldTypes := e.scope, e.types
	e.scope = e.arena.NewScope()
	e.types = make(map[string]*node.Type)
	if err := e.Instantiate(spec); err != nil {
		e.arena.DropScope(e.scope)
		e.scope, e.types = oldScope, oldTypes
		return err
	}
	e.arena.DropScope(oldScope)

	for _, n := range oldRoots {
		for e.arena.IsRoot(n) {
			e.arena.RemoveRoot(n)
		}
	}
	_, err := e.Collect()
	return err
}

// binding is a DEF name and the node it was bound to.
type binding struct {
	name string
	node *node.Node
}

func (e *Engine) resolveNodeRef(ref any) (field.NodeID, error) {
	name, ok := ref.(string)
	if !ok {
		return 0, fmt.Errorf("node reference must be a DEF name, got %T", ref)
	}
	n, ok := e.scope.Lookup(name)
	if !ok {
		return 0, NewUnknownNodeError(name)
	}
	return n.ID(), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
