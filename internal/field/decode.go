package field

import (
	"encoding/json"
	"fmt"
	"math"
)

// Decoder converts loosely typed data (decoded YAML, JSON or CUE) into
// typed field values.
//
// Accepted forms follow the VRML conventions: vectors are number lists,
// multi-valued fields are lists of elements (or a flat number list for
// vector kinds, or a single element without the list). Images are either a
// {width, height, components, pixels} map or a flat [w, h, c, p...] list.
type Decoder struct {
	// ResolveNode maps a node reference (usually a DEF name) to a handle.
	// When nil, only integer handles and null are accepted.
	ResolveNode func(ref any) (NodeID, error)
}

// Decode converts raw into a value with tag t.
func (d Decoder) Decode(t Type, raw any) (Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("decode: invalid field type")
	}
	if t.IsMulti() {
		return d.decodeMulti(t, raw)
	}
	return d.decodeSingle(t, raw)
}

func (d Decoder) decodeSingle(t Type, raw any) (Value, error) {
	switch t {
	case TypeSFBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, decodeErr(t, raw)
		}
		return SFBool(b), nil
	case TypeSFInt32:
		n, err := toInt(raw)
		if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, decodeErr(t, raw)
		}
		return SFInt32(n), nil
	case TypeSFFloat:
		f, err := toFloat(raw)
		if err != nil {
			return nil, decodeErr(t, raw)
		}
		return SFFloat(f), nil
	case TypeSFDouble:
		f, err := toFloat(raw)
		if err != nil {
			return nil, decodeErr(t, raw)
		}
		return SFDouble(f), nil
	case TypeSFTime:
		f, err := toFloat(raw)
		if err != nil {
			return nil, decodeErr(t, raw)
		}
		return SFTime(f), nil
	case TypeSFString:
		s, ok := raw.(string)
		if !ok {
			return nil, decodeErr(t, raw)
		}
		return SFString(s), nil
	case TypeSFVec2f, TypeSFVec3f, TypeSFVec4f, TypeSFColor, TypeSFColorRGBA, TypeSFRotation:
		var buf [4]float32
		n := componentWidth(t)
		if err := fillFloats(t, raw, buf[:n]); err != nil {
			return nil, err
		}
		return vectorOf(t, buf), nil
	case TypeSFImage:
		return decodeImage(raw)
	case TypeSFNode:
		return d.decodeNode(raw)
	}
	return nil, decodeErr(t, raw)
}

func (d Decoder) decodeMulti(t Type, raw any) (Value, error) {
	elem := t.Elem()
	var items []any
	switch r := raw.(type) {
	case nil:
		return Default(t), nil
	case []any:
		items = r
		if width := componentWidth(elem); width > 0 && len(r) > 0 && isNumber(r[0]) {
			grouped, err := groupFlat(t, r, width)
			if err != nil {
				return nil, err
			}
			items = grouped
		}
	default:
		items = []any{raw}
	}

	mv := Default(t)
	elems := make([]Value, 0, len(items))
	for i, item := range items {
		v, err := d.decodeSingle(elem, item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", t, i, err)
		}
		elems = append(elems, v)
	}
	return Append(mv, elems...)
}

func (d Decoder) decodeNode(raw any) (Value, error) {
	if raw == nil {
		return SFNode{}, nil
	}
	if d.ResolveNode != nil {
		id, err := d.ResolveNode(raw)
		if err != nil {
			return nil, err
		}
		return SFNode{ID: id}, nil
	}
	n, err := toInt(raw)
	if err != nil || n < 0 {
		return nil, decodeErr(TypeSFNode, raw)
	}
	return SFNode{ID: NodeID(n)}, nil
}

func decodeImage(raw any) (Value, error) {
	var nums []int64
	switch r := raw.(type) {
	case map[string]any:
		w, err1 := toInt(r["width"])
		h, err2 := toInt(r["height"])
		c, err3 := toInt(r["components"])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, decodeErr(TypeSFImage, raw)
		}
		nums = []int64{w, h, c}
		pixels, _ := r["pixels"].([]any)
		for _, p := range pixels {
			n, err := toInt(p)
			if err != nil {
				return nil, decodeErr(TypeSFImage, raw)
			}
			nums = append(nums, n)
		}
	case []any:
		for _, p := range r {
			n, err := toInt(p)
			if err != nil {
				return nil, decodeErr(TypeSFImage, raw)
			}
			nums = append(nums, n)
		}
	default:
		return nil, decodeErr(TypeSFImage, raw)
	}

	if len(nums) < 3 {
		return nil, fmt.Errorf("SFImage needs width, height and components")
	}
	img := SFImage{Width: int32(nums[0]), Height: int32(nums[1]), Components: int32(nums[2])}
	if img.Width < 0 || img.Height < 0 || img.Components < 0 || img.Components > 4 {
		return nil, fmt.Errorf("SFImage header %dx%dx%d out of range", img.Width, img.Height, img.Components)
	}
	want := int(img.Width) * int(img.Height)
	if len(nums)-3 != want {
		return nil, fmt.Errorf("SFImage %dx%d needs %d pixels, got %d", img.Width, img.Height, want, len(nums)-3)
	}
	img.Pixels = make([]uint32, want)
	for i, p := range nums[3:] {
		img.Pixels[i] = uint32(p)
	}
	return img, nil
}

func vectorOf(t Type, c [4]float32) Value {
	switch t {
	case TypeSFVec2f:
		return SFVec2f{c[0], c[1]}
	case TypeSFVec3f:
		return SFVec3f{c[0], c[1], c[2]}
	case TypeSFColor:
		return SFColor{c[0], c[1], c[2]}
	case TypeSFVec4f:
		return SFVec4f(c)
	case TypeSFColorRGBA:
		return SFColorRGBA(c)
	default:
		return SFRotation(c)
	}
}

// componentWidth is the number of floats in one element of a vector kind,
// or 0 for scalar kinds.
func componentWidth(t Type) int {
	switch t {
	case TypeSFVec2f:
		return 2
	case TypeSFVec3f, TypeSFColor:
		return 3
	case TypeSFVec4f, TypeSFColorRGBA, TypeSFRotation:
		return 4
	}
	return 0
}

func groupFlat(t Type, flat []any, width int) ([]any, error) {
	if len(flat)%width != 0 {
		return nil, fmt.Errorf("%s: %d numbers is not a multiple of %d", t, len(flat), width)
	}
	out := make([]any, 0, len(flat)/width)
	for i := 0; i < len(flat); i += width {
		out = append(out, flat[i:i+width])
	}
	return out, nil
}

func fillFloats(t Type, raw any, dst []float32) error {
	list, ok := raw.([]any)
	if !ok || len(list) != len(dst) {
		return decodeErr(t, raw)
	}
	for i, item := range list {
		f, err := toFloat(item)
		if err != nil {
			return decodeErr(t, raw)
		}
		dst[i] = float32(f)
	}
	return nil
}

func isNumber(raw any) bool {
	_, err := toFloat(raw)
	return err == nil
}

func toFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("not a number: %T", raw)
}

func toInt(raw any) (int64, error) {
	switch n := raw.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	}
	return 0, fmt.Errorf("not an integer: %T", raw)
}

func decodeErr(t Type, raw any) error {
	return fmt.Errorf("cannot decode %v (%T) as %s", raw, raw, t)
}
