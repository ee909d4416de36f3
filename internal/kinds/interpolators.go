package kinds

import (
	"sort"

	"github.com/tanema/gween/ease"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/node"
)

// ScalarInterpolator maps set_fraction through key/keyValue to a float.
func ScalarInterpolator() *node.Kind {
	return interpolator("ScalarInterpolator", field.MFFloat{}, field.TypeSFFloat,
		func(kv field.Value, i, j int, t float32) field.Value {
			vals := kv.(field.MFFloat)
			return field.SFFloat(lerp(float32(vals[i]), float32(vals[j]), t))
		})
}

// PositionInterpolator maps set_fraction to a 3D position.
func PositionInterpolator() *node.Kind {
	return interpolator("PositionInterpolator", field.MFVec3f{}, field.TypeSFVec3f,
		func(kv field.Value, i, j int, t float32) field.Value {
			vals := kv.(field.MFVec3f)
			var out field.SFVec3f
			for c := range out {
				out[c] = lerp(vals[i][c], vals[j][c], t)
			}
			return out
		})
}

// ColorInterpolator maps set_fraction to a color. Components are
// interpolated in RGB.
func ColorInterpolator() *node.Kind {
	return interpolator("ColorInterpolator", field.MFColor{}, field.TypeSFColor,
		func(kv field.Value, i, j int, t float32) field.Value {
			vals := kv.(field.MFColor)
			var out field.SFColor
			for c := range out {
				out[c] = lerp(vals[i][c], vals[j][c], t)
			}
			return out
		})
}

// blendFunc interpolates keyValue entries i and j at t in [0,1].
type blendFunc func(keyValue field.Value, i, j int, t float32) field.Value

func interpolator(name string, keyValue field.Value, out field.Type, blend blendFunc) *node.Kind {
	return node.NewKind(name).
		EventIn("set_fraction", field.TypeSFFloat, func(n *node.Node, v field.Value, ts float64) error {
			key := n.Value("key").(field.MFFloat)
			kv := n.Value("keyValue").(field.MultiValue)
			i, j, t, ok := segment(key, kv.Len(), float32(v.(field.SFFloat)))
			if !ok {
				return nil
			}
			return n.Emit("value_changed", blend(kv, i, j, t), ts)
		}).
		ExposedField("key", field.MFFloat{}, nil).
		ExposedField("keyValue", keyValue, nil).
		EventOut("value_changed", out).
		MustBuild()
}

// segment locates fraction f among key, returning the bracketing keyValue
// indices and the position between them. Fractions outside the keys clamp
// to the first or last value. Keys without a matching value are ignored.
func segment(key field.MFFloat, n int, f float32) (i, j int, t float32, ok bool) {
	m := min(len(key), n)
	if m == 0 {
		return 0, 0, 0, false
	}
	at := func(k int) float32 { return float32(key[k]) }
	if f <= at(0) {
		return 0, 0, 0, true
	}
	if f >= at(m-1) {
		return m - 1, m - 1, 0, true
	}
	// first key strictly greater than f
	j = sort.Search(m, func(k int) bool { return at(k) > f })
	i = j - 1
	span := at(j) - at(i)
	if span <= 0 {
		return j, j, 0, true
	}
	return i, j, (f - at(i)) / span, true
}

func lerp(a, b, t float32) float32 {
	return ease.Linear(t, a, b-a, 1)
}
