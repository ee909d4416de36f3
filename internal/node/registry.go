package node

import (
	"fmt"
	"sync"
)

// Registry holds the supported interfaces of every node kind. All kinds
// must be registered before the first type is created: CreateType seals the
// registry and Register fails afterwards.
type Registry struct {
	mu     sync.RWMutex
	kinds  map[string]*Kind
	order  []string
	sealed bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// Register records a kind's supported interfaces. Each kind name may be
// registered once.
func (r *Registry) Register(k *Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("register %s: %w", k.name, ErrRegistrySealed)
	}
	if _, dup := r.kinds[k.name]; dup {
		return fmt.Errorf("register %s: kind already registered", k.name)
	}
	r.kinds[k.name] = k
	r.order = append(r.order, k.name)
	return nil
}

// Kind returns the kind registered under name.
func (r *Registry) Kind(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Kind, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.kinds[name])
	}
	return out
}

// Seal stops further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// CreateType creates a type of the named kind exposing requested. See
// Kind.CreateType for the matching rules.
func (r *Registry) CreateType(kind, id string, requested []Interface) (*Type, error) {
	r.Seal()
	k, ok := r.Kind(kind)
	if !ok {
		return nil, fmt.Errorf("create type %q: unknown node kind %q", id, kind)
	}
	return k.CreateType(id, requested)
}
