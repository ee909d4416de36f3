package field

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScalars(t *testing.T) {
	d := Decoder{}
	tests := []struct {
		typ  Type
		raw  any
		want Value
	}{
		{TypeSFBool, true, SFBool(true)},
		{TypeSFInt32, 3, SFInt32(3)},
		{TypeSFInt32, 3.0, SFInt32(3)},
		{TypeSFFloat, 2, SFFloat(2)},
		{TypeSFDouble, 0.5, SFDouble(0.5)},
		{TypeSFTime, int64(10), SFTime(10)},
		{TypeSFString, "x", SFString("x")},
		{TypeSFVec3f, []any{1, 2.5, 3}, SFVec3f{1, 2.5, 3}},
		{TypeSFRotation, []any{0, 1, 0, 1.5}, SFRotation{0, 1, 0, 1.5}},
		{TypeSFNode, nil, SFNode{}},
		{TypeSFNode, 4, SFNode{ID: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			got, err := d.Decode(tt.typ, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	d := Decoder{}
	tests := []struct {
		name string
		typ  Type
		raw  any
	}{
		{"bool from string", TypeSFBool, "true"},
		{"int from fraction", TypeSFInt32, 1.5},
		{"int overflow", TypeSFInt32, int64(1) << 40},
		{"vec wrong arity", TypeSFVec3f, []any{1, 2}},
		{"color from string", TypeSFColor, "red"},
		{"node name without resolver", TypeSFNode, "A"},
		{"flat mf not multiple", TypeMFVec2f, []any{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.typ, tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestDecodeMulti(t *testing.T) {
	d := Decoder{}

	v, err := d.Decode(TypeMFFloat, []any{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, MFFloat{1, 2, 3}, v)

	v, err = d.Decode(TypeMFFloat, 4)
	require.NoError(t, err)
	assert.Equal(t, MFFloat{4}, v, "single element without brackets")

	v, err = d.Decode(TypeMFVec3f, []any{[]any{1, 2, 3}, []any{4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, MFVec3f{{1, 2, 3}, {4, 5, 6}}, v)

	v, err = d.Decode(TypeMFVec3f, []any{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, MFVec3f{{1, 2, 3}, {4, 5, 6}}, v, "flat VRML form")

	v, err = d.Decode(TypeMFString, nil)
	require.NoError(t, err)
	assert.Equal(t, MFString{}, v)
}

func TestDecodeNodeResolver(t *testing.T) {
	names := map[string]NodeID{"A": 1, "B": 2}
	d := Decoder{ResolveNode: func(ref any) (NodeID, error) {
		s, ok := ref.(string)
		if !ok {
			return 0, fmt.Errorf("node reference must be a name, got %T", ref)
		}
		id, ok := names[s]
		if !ok {
			return 0, fmt.Errorf("unknown node %q", s)
		}
		return id, nil
	}}

	v, err := d.Decode(TypeMFNode, []any{"B", "A"})
	require.NoError(t, err)
	assert.Equal(t, MFNode{{ID: 2}, {ID: 1}}, v)

	v, err = d.Decode(TypeSFNode, nil)
	require.NoError(t, err)
	assert.Equal(t, SFNode{}, v)

	_, err = d.Decode(TypeSFNode, "C")
	assert.ErrorContains(t, err, "unknown node")
}

func TestDecodeImage(t *testing.T) {
	d := Decoder{}

	v, err := d.Decode(TypeSFImage, []any{2, 1, 1, 0, 255})
	require.NoError(t, err)
	assert.Equal(t, SFImage{Width: 2, Height: 1, Components: 1, Pixels: []uint32{0, 255}}, v)

	v, err = d.Decode(TypeSFImage, map[string]any{
		"width": 1, "height": 1, "components": 3, "pixels": []any{0xFF00FF},
	})
	require.NoError(t, err)
	assert.Equal(t, SFImage{Width: 1, Height: 1, Components: 3, Pixels: []uint32{0xFF00FF}}, v)

	_, err = d.Decode(TypeSFImage, []any{2, 2, 1, 0})
	assert.ErrorContains(t, err, "needs 4 pixels")
}
