package kinds

import (
	"slices"

	"github.com/roach88/scenecore/internal/bounds"
	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/node"
)

// Group holds children and bounds them.
func Group() *node.Kind {
	return grouping(node.NewKind("Group")).MustBuild()
}

// Transform positions its children: P' = T + C + R(S(P - C)).
func Transform() *node.Kind {
	return grouping(node.NewKind("Transform")).
		ExposedField("translation", field.SFVec3f{}, nil).
		ExposedField("rotation", field.SFRotation{0, 0, 1, 0}, nil).
		ExposedField("scale", field.SFVec3f{1, 1, 1}, nil).
		ExposedField("center", field.SFVec3f{}, nil).
		Bounds(func(n *node.Node, w *node.Walk) bounds.Box {
			b := childBounds(n, w)
			if b.IsEmpty() {
				return b
			}
			t := n.Value("translation").(field.SFVec3f)
			r := n.Value("rotation").(field.SFRotation)
			s := n.Value("scale").(field.SFVec3f)
			c := n.Value("center").(field.SFVec3f)
			axis := bounds.Vec3{r[0], r[1], r[2]}
			return b.Map(func(p bounds.Vec3) bounds.Vec3 {
				p = bounds.Scale(bounds.Sub(p, c), s)
				p = bounds.Rotate(p, axis, r[3])
				return bounds.Add(bounds.Add(p, c), t)
			})
		}).
		MustBuild()
}

func grouping(b *node.KindBuilder) *node.KindBuilder {
	return b.
		ExposedField("children", field.MFNode{}, nil).
		EventIn("addChildren", field.TypeMFNode, addChildren).
		EventIn("removeChildren", field.TypeMFNode, removeChildren).
		Field("bboxCenter", field.SFVec3f{}).
		Field("bboxSize", field.SFVec3f{-1, -1, -1}).
		Bounds(childBounds).
		Modified(childrenModified)
}

func addChildren(n *node.Node, v field.Value, ts float64) error {
	kids := n.Value("children").(field.MFNode)
	next := slices.Clone(kids)
	for _, id := range v.(field.MFNode) {
		if !id.IsNull() && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	if len(next) == len(kids) {
		return nil
	}
	return n.Emit("children", next, ts)
}

func removeChildren(n *node.Node, v field.Value, ts float64) error {
	kids := n.Value("children").(field.MFNode)
	drop := v.(field.MFNode)
	next := slices.DeleteFunc(slices.Clone(kids), func(id field.SFNode) bool {
		return slices.Contains(drop, id)
	})
	if len(next) == len(kids) {
		return nil
	}
	return n.Emit("children", next, ts)
}

// childBounds honors an explicit bboxSize; the default size -1 -1 -1 means
// the union of the children.
func childBounds(n *node.Node, w *node.Walk) bounds.Box {
	if size := n.Value("bboxSize").(field.SFVec3f); size[0] >= 0 && size[1] >= 0 && size[2] >= 0 {
		return bounds.FromCenterSize(n.Value("bboxCenter").(field.SFVec3f), size)
	}
	b := bounds.Empty()
	for _, id := range field.NodeIDs(n.Value("children")) {
		b = b.Union(w.ChildBounds(id))
	}
	return b
}

func childrenModified(n *node.Node, w *node.Walk) bool {
	for _, id := range field.NodeIDs(n.Value("children")) {
		if w.ChildModified(id) {
			return true
		}
	}
	return false
}
