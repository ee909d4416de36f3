package bounds

import "github.com/chewxy/math32"

// Rotate rotates p by angle radians about axis (Rodrigues' formula). A zero
// axis leaves p unchanged.
func Rotate(p Vec3, axis Vec3, angle float32) Vec3 {
	l := math32.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if l == 0 || angle == 0 {
		return p
	}
	k := Vec3{axis[0] / l, axis[1] / l, axis[2] / l}
	sin, cos := math32.Sincos(angle)

	cross := Vec3{
		k[1]*p[2] - k[2]*p[1],
		k[2]*p[0] - k[0]*p[2],
		k[0]*p[1] - k[1]*p[0],
	}
	dot := k[0]*p[0] + k[1]*p[1] + k[2]*p[2]

	var out Vec3
	for i := range 3 {
		out[i] = p[i]*cos + cross[i]*sin + k[i]*dot*(1-cos)
	}
	return out
}

// Add returns a + b.
func Add(a, b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub returns a - b.
func Sub(a, b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Scale multiplies a component-wise by s.
func Scale(a, s Vec3) Vec3 {
	return Vec3{a[0] * s[0], a[1] * s[1], a[2] * s[2]}
}
