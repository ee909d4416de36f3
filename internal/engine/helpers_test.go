package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/node"
	"github.com/roach88/scenecore/internal/testutil"
)

// flagKind is a small kind with exposedFields of several tags, a counting
// eventIn and a node-valued field for building graphs.
func flagKind() *node.Kind {
	return node.NewKind("Flag").
		ExposedField("x", field.SFBool(false), nil).
		ExposedField("color", field.SFColor{}, nil).
		ExposedField("stamp", field.SFTime(0), nil).
		ExposedField("children", field.MFNode{}, nil).
		Field("count", field.SFInt32(0)).
		EventIn("increment", field.TypeSFInt32, func(n *node.Node, v field.Value, ts float64) error {
			total := n.Value("count").(field.SFInt32) + v.(field.SFInt32)
			if err := n.Set("count", total); err != nil {
				return err
			}
			return n.Emit("count_changed", total, ts)
		}).
		EventOut("count_changed", field.TypeSFInt32).
		MustBuild()
}

// tickerKind emits the scene time on every tick.
func tickerKind() *node.Kind {
	return node.NewKind("Ticker").
		EventOut("time", field.TypeSFTime).
		Tick(func(n *node.Node, ts float64) error {
			return n.Emit("time", field.SFTime(ts), ts)
		}).
		MustBuild()
}

func testRegistry(t *testing.T, extra ...*node.Kind) *node.Registry {
	t.Helper()
	reg := node.NewRegistry()
	for _, k := range append([]*node.Kind{flagKind(), tickerKind()}, extra...) {
		require.NoError(t, reg.Register(k))
	}
	return reg
}

// recorder collects trace records in memory.
type recorder struct {
	cascades   []ir.Cascade
	deliveries []ir.Delivery
}

func (r *recorder) CascadeStarted(c ir.Cascade) { r.cascades = append(r.cascades, c) }
func (r *recorder) Delivered(d ir.Delivery)     { r.deliveries = append(r.deliveries, d) }

// targets lists "Node.event" for every delivery in order.
func (r *recorder) targets() []string {
	out := make([]string, len(r.deliveries))
	for i, d := range r.deliveries {
		out[i] = d.Target()
	}
	return out
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	base := []EngineOption{
		WithObserver(rec),
		WithTokenGenerator(testutil.NewSequentialTokens("")),
		WithLogger(testutil.DiscardLogger()),
	}
	return New(testRegistry(t), append(base, opts...)...), rec
}

func mustCreate(t *testing.T, e *Engine, typeName string, names ...string) []*node.Node {
	t.Helper()
	nodes := make([]*node.Node, len(names))
	for i, name := range names {
		n, err := e.CreateNode(typeName, name)
		require.NoError(t, err)
		require.NoError(t, e.Arena().AddRoot(n))
		nodes[i] = n
	}
	return nodes
}

func mustRoute(t *testing.T, e *Engine, from, out, to, in string) *Route {
	t.Helper()
	rt, err := e.AddRoute(from, out, to, in)
	require.NoError(t, err)
	return rt
}

func fieldOf(t *testing.T, n *node.Node, name string) field.Value {
	t.Helper()
	v, err := n.Field(name)
	require.NoError(t, err)
	return v
}

// irType declares a type from "category Type name" strings.
func irType(id, kind string, ifaces ...string) ir.TypeDecl {
	decl := ir.TypeDecl{ID: id, Kind: kind}
	for _, s := range ifaces {
		parts := strings.Fields(s)
		decl.Interfaces = append(decl.Interfaces, ir.InterfaceDecl{
			Category: parts[0],
			Type:     parts[1],
			Name:     parts[2],
		})
	}
	return decl
}
