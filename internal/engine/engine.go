package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/node"
)

// DefaultMaxSteps is the default maximum number of deliveries per
// timestamp. It bounds cascades through cyclic routes.
const DefaultMaxSteps = 1000

// Engine drives one scene graph: it owns the arena, the root scope, the
// router and the logical clock, and processes queued events in a single
// writer loop.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - everything else: only from the goroutine driving the engine (the Run
//     goroutine while Run is active)
type Engine struct {
	registry *node.Registry
	arena    *node.Arena
	scope    *node.Scope
	router   *Router
	clock    *Clock
	queue    *eventQueue
	types    map[string]*node.Type

	tokens       TokenGenerator
	observer     Observer
	logger       *slog.Logger
	maxSteps     int
	loopBreaking bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxSteps sets the delivery quota per timestamp.
//
// Default: 1000 (DefaultMaxSteps). A negative value disables the quota,
// which is only safe when the routes are known to be acyclic.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithLoopBreaking enables the VRML97 rule that an eventOut fires at most
// once per timestamp.
func WithLoopBreaking(enabled bool) EngineOption {
	return func(e *Engine) {
		e.loopBreaking = enabled
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver receives cascade and delivery records.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithTokenGenerator sets the cascade token source. Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithClock resumes from an existing clock.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an engine creating types from reg. Kinds should be registered
// before New is called; the first type definition seals the registry.
func New(reg *node.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		arena:    node.NewArena(),
		clock:    NewClock(),
		queue:    newEventQueue(),
		types:    make(map[string]*node.Type),
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.scope = e.arena.NewScope()
	e.router = NewRouter(e.arena, RouterConfig{
		Clock:        e.clock,
		Tokens:       e.tokens,
		MaxSteps:     e.maxSteps,
		LoopBreaking: e.loopBreaking,
		Observer:     e.observer,
		Logger:       e.logger,
	})
	return e
}

// Registry returns the kind registry.
func (e *Engine) Registry() *node.Registry { return e.registry }

// Arena returns the node arena.
func (e *Engine) Arena() *node.Arena { return e.arena }

// Scope returns the root DEF scope.
func (e *Engine) Scope() *node.Scope { return e.scope }

// Router returns the routing table.
func (e *Engine) Router() *Router { return e.router }

// Clock returns the engine clock.
func (e *Engine) Clock() *Clock { return e.clock }

// MaxSteps returns the delivery quota per timestamp.
func (e *Engine) MaxSteps() int { return e.maxSteps }

// QueueLen returns the number of pending queued events.
func (e *Engine) QueueLen() int { return e.queue.Len() }

// DefineType creates a node type from its declaration. An empty interface
// list exposes every interface the kind supports.
func (e *Engine) DefineType(decl ir.TypeDecl) (*node.Type, error) {
	if _, dup := e.types[decl.ID]; dup {
		return nil, fmt.Errorf("type %q already defined", decl.ID)
	}
	k, ok := e.registry.Kind(decl.Kind)
	if !ok {
		return nil, NewUnknownTypeError(decl.Kind)
	}

	requested := k.Supported().All()
	if len(decl.Interfaces) > 0 {
		requested = make([]node.Interface, 0, len(decl.Interfaces))
		for _, d := range decl.Interfaces {
			iface, err := parseInterfaceDecl(d)
			if err != nil {
				return nil, fmt.Errorf("type %q: %w", decl.ID, err)
			}
			requested = append(requested, iface)
		}
	}

	t, err := e.registry.CreateType(decl.Kind, decl.ID, requested)
	if err != nil {
		return nil, err
	}
	e.types[decl.ID] = t
	return t, nil
}

func parseInterfaceDecl(d ir.InterfaceDecl) (node.Interface, error) {
	cat, err := node.ParseCategory(d.Category)
	if err != nil {
		return node.Interface{}, err
	}
	t, err := field.ParseType(d.Type)
	if err != nil {
		return node.Interface{}, err
	}
	return node.Interface{Category: cat, Type: t, Name: d.Name}, nil
}

// ResolveType returns the type defined under name or, failing that, a type
// exposing every interface of the kind called name.
func (e *Engine) ResolveType(name string) (*node.Type, error) {
	if t, ok := e.types[name]; ok {
		return t, nil
	}
	if _, ok := e.registry.Kind(name); !ok {
		return nil, NewUnknownTypeError(name)
	}
	return e.DefineType(ir.TypeDecl{ID: name, Kind: name})
}

// CreateNode instantiates the named type in the root scope, binding def as
// its DEF name when non-empty.
func (e *Engine) CreateNode(typeName, def string) (*node.Node, error) {
	t, err := e.ResolveType(typeName)
	if err != nil {
		return nil, err
	}
	n := t.CreateNode(e.scope)
	if def != "" {
		if err := e.scope.Define(def, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Lookup resolves a DEF name in the root scope.
func (e *Engine) Lookup(name string) (*node.Node, error) {
	n, ok := e.scope.Lookup(name)
	if !ok {
		return nil, NewUnknownNodeError(name)
	}
	return n, nil
}

// AddRoute connects two nodes by DEF name. See Router.AddRoute.
func (e *Engine) AddRoute(fromNode, fromEvent, toNode, toEvent string) (*Route, error) {
	src, err := e.Lookup(fromNode)
	if err != nil {
		return nil, err
	}
	dst, err := e.Lookup(toNode)
	if err != nil {
		return nil, err
	}
	return e.router.AddRoute(src, fromEvent, dst, toEvent)
}

// RemoveRoute disconnects two nodes by DEF name. Unknown names and missing
// routes are a no-op.
func (e *Engine) RemoveRoute(fromNode, fromEvent, toNode, toEvent string) bool {
	src, ok := e.scope.Lookup(fromNode)
	if !ok {
		return false
	}
	dst, ok := e.scope.Lookup(toNode)
	if !ok {
		return false
	}
	return e.router.RemoveRoute(src, fromEvent, dst, toEvent)
}

// SendEvent delivers v to n's eventIn in at ts and runs the resulting
// cascade to completion.
func (e *Engine) SendEvent(n *node.Node, in string, v field.Value, ts float64) error {
	l, err := n.EventListener(in)
	if err != nil {
		return err
	}
	return e.router.Send(l, in, v, ts)
}

// Emit stores v in n's output out and fires it at ts, as a sensor would.
func (e *Engine) Emit(n *node.Node, out string, v field.Value, ts float64) error {
	em, err := n.EventEmitter(out)
	if err != nil {
		return err
	}
	return em.EmitValue(v, ts)
}

// Tick advances every time-dependent node to ts in handle order. A failing
// node is logged and the remaining nodes still tick; all failures are
// returned joined.
func (e *Engine) Tick(ts float64) error {
	e.clock.Advance(ts)
	var errs []error
	for _, n := range e.arena.Nodes() {
		if !n.Type().Kind().Ticks() {
			continue
		}
		if err := n.Tick(ts); err != nil {
			e.logger.Error("tick failed", "node", n.String(), "timestamp", ts, "error", err)
			errs = append(errs, fmt.Errorf("tick %s: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

// Collect destroys unreachable nodes and prunes their routes. It must run
// between cascades.
func (e *Engine) Collect() ([]field.NodeID, error) {
	if e.router.InCascade() {
		return nil, ErrCascadeInProgress
	}
	dead := e.arena.Collect()
	pruned := e.router.PruneNodes(dead)
	if len(dead) > 0 {
		e.logger.Debug("collected nodes", "nodes", len(dead), "routes", pruned)
	}
	return dead, nil
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop is called.
//
// ERROR HANDLING: a failed event is logged with its full context and the
// loop continues with the next event.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "max_steps", e.maxSteps, "loop_breaking", e.loopBreaking)

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(event); err != nil {
				e.logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// the signal channel is closed with the queue
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue; Run returns once pending events are done.
func (e *Engine) Stop() {
	e.queue.Close()
}

// processEvent applies one queued event. Called only from Run.
func (e *Engine) processEvent(ev Event) error {
	switch ev.Type {
	case EventTypeSend, EventTypeEmit:
		if ev.Value == nil {
			return &RuntimeError{Code: ErrCodeInvalidEvent, Message: ev.Type.String() + " event missing value"}
		}
		n, err := e.Lookup(ev.Node)
		if err != nil {
			return err
		}
		if ev.Type == EventTypeSend {
			return e.SendEvent(n, ev.Name, ev.Value, ev.Time)
		}
		return e.Emit(n, ev.Name, ev.Value, ev.Time)

	case EventTypeTick:
		return e.Tick(ev.Time)

	case EventTypeMutation:
		if ev.Mutate == nil {
			return &RuntimeError{Code: ErrCodeInvalidEvent, Message: "mutation event missing function"}
		}
		return ev.Mutate(e)

	default:
		return &RuntimeError{Code: ErrCodeInvalidEvent, Message: fmt.Sprintf("unknown event type: %d", ev.Type)}
	}
}

func (e *Engine) logEventError(ev Event, err error) {
	switch ev.Type {
	case EventTypeMutation:
		e.logger.Error("mutation failed",
			"error", err,
			"label", ev.Label,
		)
	case EventTypeTick:
		e.logger.Error("tick failed",
			"error", err,
			"timestamp", ev.Time,
		)
	default:
		e.logger.Error("event processing failed",
			"error", err,
			"event_type", ev.Type.String(),
			"node", ev.Node,
			"event", ev.Name,
			"timestamp", ev.Time,
		)
	}
}
