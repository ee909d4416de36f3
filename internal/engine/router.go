package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/node"
)

// Route connects an emitter to a listener. Routes do not own either end.
type Route struct {
	From     *node.Emitter
	To       *node.Listener
	FromName string // output name as requested, e.g. "x_changed"
	ToName   string // input name as requested, e.g. "set_x"
	seq      int64
}

func (r *Route) String() string {
	return fmt.Sprintf("%s.%s TO %s.%s", r.From.Node(), r.FromName, r.To.Node(), r.ToName)
}

// Observer receives trace records. Implementations must not call back into
// the router.
type Observer interface {
	CascadeStarted(c ir.Cascade)
	Delivered(d ir.Delivery)
}

// RouterConfig configures a Router. Zero values select defaults.
type RouterConfig struct {
	Clock        *Clock
	Tokens       TokenGenerator
	MaxSteps     int
	LoopBreaking bool
	Observer     Observer
	Logger       *slog.Logger
}

// Router owns the routing table of one arena and delivers events along it.
// It installs itself as the arena's dispatcher.
type Router struct {
	arena   *node.Arena
	routes  map[*node.Emitter][]*Route
	nextSeq int64

	clock    *Clock
	gen      TokenGenerator
	quota    *QuotaEnforcer
	loops    *LoopBreaker
	observer Observer
	logger   *slog.Logger

	cascade string
	depth   int
	pending []func()
}

// NewRouter creates a router for arena.
func NewRouter(arena *node.Arena, cfg RouterConfig) *Router {
	r := &Router{
		arena:    arena,
		routes:   make(map[*node.Emitter][]*Route),
		clock:    cfg.Clock,
		gen:      cfg.Tokens,
		quota:    NewQuotaEnforcer(cfg.MaxSteps),
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
	if r.clock == nil {
		r.clock = NewClock()
	}
	if r.gen == nil {
		r.gen = UUIDv7Generator{}
	}
	if cfg.MaxSteps == 0 {
		r.quota = NewQuotaEnforcer(DefaultMaxSteps)
	}
	if cfg.LoopBreaking {
		r.loops = NewLoopBreaker()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	arena.SetDispatcher(r)
	return r
}

// AddRoute connects src's output out to dst's input in.
//
// The output must be an eventOut or exposedField visible on src, the input
// an eventIn or exposedField visible on dst, and both must carry the same
// type tag. On failure a *node.UnsupportedInterfaceError is returned and
// nothing is inserted. Adding an existing route is a no-op returning the
// existing route. During a cascade the route is validated immediately and
// inserted when the cascade ends.
func (r *Router) AddRoute(src *node.Node, out string, dst *node.Node, in string) (*Route, error) {
	if err := r.checkEndpoints(src, dst); err != nil {
		return nil, err
	}
	e, err := src.EventEmitter(out)
	if err != nil {
		return nil, fmt.Errorf("route from %s.%s: %w", src, out, err)
	}
	l, err := dst.EventListener(in)
	if err != nil {
		return nil, fmt.Errorf("route to %s.%s: %w", dst, in, err)
	}
	if e.Type() != l.Type() {
		from := e.Interface()
		return nil, &node.UnsupportedInterfaceError{
			Interface: node.EventInOf(in, l.Type()),
			Conflict:  &from,
			Reason:    fmt.Sprintf("route %s.%s TO %s.%s connects %s to %s", src, out, dst, in, e.Type(), l.Type()),
		}
	}

	rt := &Route{From: e, To: l, FromName: out, ToName: in}
	if r.InCascade() {
		r.pending = append(r.pending, func() { r.insert(rt) })
		return rt, nil
	}
	return r.insert(rt), nil
}

func (r *Router) checkEndpoints(src, dst *node.Node) error {
	if src == nil || dst == nil {
		return fmt.Errorf("route endpoint is nil")
	}
	if src.Arena() != r.arena || dst.Arena() != r.arena {
		return fmt.Errorf("route %s TO %s: endpoint belongs to another scene", src, dst)
	}
	if !src.Alive() || !dst.Alive() {
		return fmt.Errorf("route %s TO %s: endpoint has been collected", src, dst)
	}
	return nil
}

func (r *Router) insert(rt *Route) *Route {
	for _, have := range r.routes[rt.From] {
		if have.To == rt.To {
			return have
		}
	}
	r.nextSeq++
	rt.seq = r.nextSeq
	r.routes[rt.From] = append(r.routes[rt.From], rt)
	return rt
}

// RemoveRoute deletes the route from src.out to dst.in. Removing a route
// that does not exist, or naming interfaces that do not resolve, is a no-op.
// It reports whether a route was (or, during a cascade, will be) removed.
func (r *Router) RemoveRoute(src *node.Node, out string, dst *node.Node, in string) bool {
	if src == nil || dst == nil {
		return false
	}
	e, err := src.EventEmitter(out)
	if err != nil {
		return false
	}
	l, err := dst.EventListener(in)
	if err != nil {
		return false
	}
	if !slices.ContainsFunc(r.routes[e], func(rt *Route) bool { return rt.To == l }) {
		return false
	}
	if r.InCascade() {
		r.pending = append(r.pending, func() { r.remove(e, l) })
		return true
	}
	r.remove(e, l)
	return true
}

func (r *Router) remove(e *node.Emitter, l *node.Listener) {
	routes := slices.DeleteFunc(r.routes[e], func(rt *Route) bool { return rt.To == l })
	if len(routes) == 0 {
		delete(r.routes, e)
		return
	}
	r.routes[e] = routes
}

// PruneNodes drops every route touching one of ids.
func (r *Router) PruneNodes(ids []field.NodeID) int {
	if len(ids) == 0 {
		return 0
	}
	dead := make(map[field.NodeID]bool, len(ids))
	for _, id := range ids {
		dead[id] = true
	}
	pruned := 0
	for e, routes := range r.routes {
		if dead[e.Node().ID()] {
			pruned += len(routes)
			delete(r.routes, e)
			continue
		}
		kept := slices.DeleteFunc(routes, func(rt *Route) bool { return dead[rt.To.Node().ID()] })
		pruned += len(routes) - len(kept)
		if len(kept) == 0 {
			delete(r.routes, e)
		} else {
			r.routes[e] = kept
		}
	}
	return pruned
}

// RoutesFrom returns the routes leaving e in insertion order.
func (r *Router) RoutesFrom(e *node.Emitter) []*Route {
	return slices.Clone(r.routes[e])
}

// Routes returns every route in insertion order.
func (r *Router) Routes() []*Route {
	var out []*Route
	for _, routes := range r.routes {
		out = append(out, routes...)
	}
	slices.SortFunc(out, func(a, b *Route) int { return int(a.seq - b.seq) })
	return out
}

// Len returns the number of routes.
func (r *Router) Len() int {
	n := 0
	for _, routes := range r.routes {
		n += len(routes)
	}
	return n
}

// InCascade reports whether events are being delivered.
func (r *Router) InCascade() bool {
	return r.cascade != ""
}

// Cascade returns the token of the cascade in progress, or "".
func (r *Router) Cascade() string {
	return r.cascade
}

// EmitEvent delivers e's current value along every route from e, in
// insertion order and depth-first. It implements node.Dispatcher; an
// emission outside any cascade starts one.
func (r *Router) EmitEvent(e *node.Emitter, ts float64) error {
	if r.loops != nil {
		if r.loops.WouldLoop(e, ts) {
			r.logger.Debug("route loop broken",
				"cascade", r.cascade,
				"emitter", endpoint(e.Node(), outputName(e)),
				"timestamp", ts,
			)
			return nil
		}
		r.loops.Record(e, ts)
	}

	routes := r.routes[e]
	if len(routes) == 0 {
		return nil
	}
	if !r.InCascade() {
		r.begin(endpoint(e.Node(), outputName(e)), ts)
		defer r.end()
	}

	value := field.Clone(e.Value())
	for _, rt := range routes {
		if !rt.To.Node().Alive() {
			continue
		}
		if err := r.deliver(rt.From, rt.FromName, rt.To, rt.ToName, value, ts); err != nil {
			return err
		}
	}
	return nil
}

// Send delivers v to l directly, as a sensor or script would. Outside a
// cascade it starts one originating at the listener.
func (r *Router) Send(l *node.Listener, in string, v field.Value, ts float64) error {
	if !r.InCascade() {
		r.begin(endpoint(l.Node(), in), ts)
		defer r.end()
	}
	return r.deliver(nil, "", l, in, v, ts)
}

func (r *Router) deliver(from *node.Emitter, fromName string, to *node.Listener, toName string, v field.Value, ts float64) error {
	if err := r.quota.Check(r.cascade, ts); err != nil {
		r.logger.Error("delivery quota exceeded",
			"cascade", r.cascade,
			"timestamp", ts,
			"target", endpoint(to.Node(), toName),
			"limit", r.quota.MaxSteps(),
		)
		return err
	}

	seq := r.clock.Next()
	d := ir.Delivery{
		ID:           field.DeliveryID(r.cascade, seq),
		CascadeToken: r.cascade,
		Seq:          seq,
		Timestamp:    ts,
		Depth:        r.depth,
		DstNode:      to.Node().ID(),
		DstName:      to.Node().Name(),
		DstEvent:     toName,
		Value:        v,
	}
	if from != nil {
		d.SrcNode = from.Node().ID()
		d.SrcName = from.Node().Name()
		d.SrcEvent = fromName
	}
	if r.observer != nil {
		r.observer.Delivered(d)
	}
	r.logger.Debug("deliver",
		"cascade", r.cascade,
		"seq", seq,
		"depth", r.depth,
		"from", d.Source(),
		"to", d.Target(),
		"type", v.Type().String(),
	)

	r.depth++
	err := to.ProcessEvent(v, ts)
	r.depth--
	return err
}

func (r *Router) begin(origin string, ts float64) {
	r.cascade = r.gen.Generate()
	r.depth = 0
	r.clock.Advance(ts)
	seq := r.clock.Next()
	if r.observer != nil {
		r.observer.CascadeStarted(ir.Cascade{
			Token:     r.cascade,
			Origin:    origin,
			Timestamp: ts,
			Seq:       seq,
		})
	}
}

func (r *Router) end() {
	r.cascade = ""
	r.depth = 0
	pending := r.pending
	r.pending = nil
	for _, apply := range pending {
		apply()
	}
}

func endpoint(n *node.Node, event string) string {
	return n.String() + "." + event
}

// outputName is the conventional output name of an emitter: x_changed for
// an exposedField x.
func outputName(e *node.Emitter) string {
	i := e.Interface()
	if i.Category == node.CategoryExposedField {
		return i.Name + "_changed"
	}
	return i.Name
}
