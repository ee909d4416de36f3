package kinds

import (
	"github.com/roach88/scenecore/internal/bounds"
	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/node"
)

// Shape pairs a geometry with an appearance. Its bounds are the geometry's.
func Shape() *node.Kind {
	return node.NewKind("Shape").
		ExposedField("appearance", field.SFNode{}, nil).
		ExposedField("geometry", field.SFNode{}, nil).
		Bounds(func(n *node.Node, w *node.Walk) bounds.Box {
			return w.ChildBounds(n.Value("geometry").(field.SFNode).ID)
		}).
		Modified(func(n *node.Node, w *node.Walk) bool {
			return w.ChildModified(n.Value("appearance").(field.SFNode).ID) ||
				w.ChildModified(n.Value("geometry").(field.SFNode).ID)
		}).
		MustBuild()
}

func Appearance() *node.Kind {
	return node.NewKind("Appearance").
		ExposedField("material", field.SFNode{}, nil).
		Modified(func(n *node.Node, w *node.Walk) bool {
			return w.ChildModified(n.Value("material").(field.SFNode).ID)
		}).
		MustBuild()
}

func Material() *node.Kind {
	return node.NewKind("Material").
		ExposedField("diffuseColor", field.SFColor{0.8, 0.8, 0.8}, nil).
		ExposedField("emissiveColor", field.SFColor{}, nil).
		ExposedField("transparency", field.SFFloat(0), nil).
		MustBuild()
}

// Box is an axis-aligned box centered at the origin.
func Box() *node.Kind {
	return node.NewKind("Box").
		Field("size", field.SFVec3f{2, 2, 2}).
		Bounds(func(n *node.Node, w *node.Walk) bounds.Box {
			return bounds.FromCenterSize(bounds.Vec3{}, n.Value("size").(field.SFVec3f))
		}).
		MustBuild()
}

// Sphere is a sphere centered at the origin.
func Sphere() *node.Kind {
	return node.NewKind("Sphere").
		Field("radius", field.SFFloat(1)).
		Bounds(func(n *node.Node, w *node.Walk) bounds.Box {
			return bounds.Sphere(bounds.Vec3{}, float32(n.Value("radius").(field.SFFloat)))
		}).
		MustBuild()
}
