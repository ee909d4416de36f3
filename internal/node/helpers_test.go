package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/bounds"
	"github.com/roach88/scenecore/internal/field"
)

// testKind has one interface of each category plus a node-valued
// exposedField so graphs can be built.
func testKind(t *testing.T, hookCalls *int) *Kind {
	t.Helper()
	k, err := NewKind("Widget").
		Field("size", field.SFVec3f{2, 2, 2}).
		ExposedField("enabled", field.SFBool(false), func(n *Node, v field.Value, ts float64) error {
			if hookCalls != nil {
				*hookCalls++
			}
			return nil
		}).
		ExposedField("children", field.MFNode{}, nil).
		EventIn("set_fraction", field.TypeSFFloat, func(n *Node, v field.Value, ts float64) error {
			return n.Emit("value_changed", v, ts)
		}).
		EventOut("value_changed", field.TypeSFFloat).
		Bounds(func(n *Node, w *Walk) bounds.Box {
			b := bounds.FromCenterSize(bounds.Vec3{}, n.Value("size").(field.SFVec3f))
			for _, id := range field.NodeIDs(n.Value("children")) {
				b = b.Union(w.ChildBounds(id))
			}
			return b
		}).
		Modified(func(n *Node, w *Walk) bool {
			for _, id := range field.NodeIDs(n.Value("children")) {
				if w.ChildModified(id) {
					return true
				}
			}
			return false
		}).
		Build()
	require.NoError(t, err)
	return k
}

func fullType(t *testing.T, k *Kind) *Type {
	t.Helper()
	typ, err := k.CreateType(k.Name(), k.Supported().All())
	require.NoError(t, err)
	return typ
}

type recordingDispatcher struct {
	emitted []string
}

func (d *recordingDispatcher) EmitEvent(e *Emitter, ts float64) error {
	d.emitted = append(d.emitted, e.Node().String()+"."+e.Interface().Name)
	return nil
}
