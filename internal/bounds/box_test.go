package bounds

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestEmptyIsUnionIdentity(t *testing.T) {
	b := FromCenterSize(Vec3{0, 0, 0}, Vec3{2, 2, 2})

	assert.True(t, Empty().IsEmpty())
	assert.Equal(t, b, Empty().Union(b))
	assert.Equal(t, b, b.Union(Empty()))
	assert.Equal(t, Vec3{}, Empty().Size())
}

func TestFromCenterSize(t *testing.T) {
	b := FromCenterSize(Vec3{1, 0, 0}, Vec3{2, 4, 6})
	assert.Equal(t, Vec3{0, -2, -3}, b.Min)
	assert.Equal(t, Vec3{2, 2, 3}, b.Max)
	assert.Equal(t, Vec3{1, 0, 0}, b.Center())
	assert.Equal(t, Vec3{2, 4, 6}, b.Size())
}

func TestUnion(t *testing.T) {
	a := Box{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	b := Box{Min: Vec3{-1, 0.5, 0}, Max: Vec3{0.5, 3, 1}}
	u := a.Union(b)
	assert.Equal(t, Vec3{-1, 0, 0}, u.Min)
	assert.Equal(t, Vec3{1, 3, 1}, u.Max)
}

func TestSphere(t *testing.T) {
	b := Sphere(Vec3{0, 0, 0}, 1.5)
	assert.Equal(t, Vec3{-1.5, -1.5, -1.5}, b.Min)
	assert.Equal(t, Vec3{1.5, 1.5, 1.5}, b.Max)
}

func TestMapTranslate(t *testing.T) {
	b := FromCenterSize(Vec3{0, 0, 0}, Vec3{2, 2, 2})
	moved := b.Map(func(p Vec3) Vec3 { return Add(p, Vec3{10, 0, 0}) })
	assert.Equal(t, Vec3{9, -1, -1}, moved.Min)
	assert.Equal(t, Vec3{11, 1, 1}, moved.Max)

	assert.True(t, Empty().Map(func(p Vec3) Vec3 { return p }).IsEmpty())
}

func TestRotate(t *testing.T) {
	p := Rotate(Vec3{1, 0, 0}, Vec3{0, 0, 1}, math32.Pi/2)
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 1, p[1], 1e-6)
	assert.InDelta(t, 0, p[2], 1e-6)

	assert.Equal(t, Vec3{1, 2, 3}, Rotate(Vec3{1, 2, 3}, Vec3{}, 1))
}
