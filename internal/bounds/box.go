// Package bounds provides axis-aligned bounding volumes for node instances.
package bounds

import "github.com/chewxy/math32"

// Vec3 is a point or extent in model space.
type Vec3 = [3]float32

// Box is an axis-aligned bounding box. A box whose Min exceeds its Max on
// any axis is empty.
type Box struct {
	Min Vec3
	Max Vec3
}

// Empty returns the box that contains nothing. It is the identity for Union.
func Empty() Box {
	inf := math32.Inf(1)
	return Box{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// FromCenterSize returns the box centered at c with full extents size.
func FromCenterSize(c, size Vec3) Box {
	var b Box
	for i := range 3 {
		half := math32.Abs(size[i]) / 2
		b.Min[i] = c[i] - half
		b.Max[i] = c[i] + half
	}
	return b
}

// Sphere returns the box enclosing a sphere.
func Sphere(c Vec3, radius float32) Box {
	d := 2 * math32.Abs(radius)
	return FromCenterSize(c, Vec3{d, d, d})
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	for i := range 3 {
		b.Min[i] = math32.Min(b.Min[i], o.Min[i])
		b.Max[i] = math32.Max(b.Max[i], o.Max[i])
	}
	return b
}

// ExpandPoint returns the smallest box containing b and p.
func (b Box) ExpandPoint(p Vec3) Box {
	return b.Union(Box{Min: p, Max: p})
}

// Center returns the midpoint of a non-empty box.
func (b Box) Center() Vec3 {
	return Vec3{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the extents of the box, zero when empty.
func (b Box) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return Vec3{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Corners returns the eight corners of a non-empty box.
func (b Box) Corners() [8]Vec3 {
	var out [8]Vec3
	for i := range 8 {
		for axis := range 3 {
			if i&(1<<axis) != 0 {
				out[i][axis] = b.Max[axis]
			} else {
				out[i][axis] = b.Min[axis]
			}
		}
	}
	return out
}

// Map returns the box enclosing the image of b's corners under f. For
// affine f this encloses the image of the whole box.
func (b Box) Map(f func(Vec3) Vec3) Box {
	if b.IsEmpty() {
		return b
	}
	out := Empty()
	for _, c := range b.Corners() {
		out = out.ExpandPoint(f(c))
	}
	return out
}
