package field

import (
	"fmt"
	"slices"
)

// Default returns the initial value for a tag: FALSE, zero numbers, zero
// vectors, black, the identity rotation (0 0 1 0), the empty string, the
// empty image, the null node, or an empty sequence. Invalid tags return nil.
func Default(t Type) Value {
	switch t {
	case TypeSFBool:
		return SFBool(false)
	case TypeSFInt32:
		return SFInt32(0)
	case TypeSFFloat:
		return SFFloat(0)
	case TypeSFDouble:
		return SFDouble(0)
	case TypeSFTime:
		return SFTime(0)
	case TypeSFString:
		return SFString("")
	case TypeSFVec2f:
		return SFVec2f{}
	case TypeSFVec3f:
		return SFVec3f{}
	case TypeSFVec4f:
		return SFVec4f{}
	case TypeSFColor:
		return SFColor{}
	case TypeSFColorRGBA:
		return SFColorRGBA{}
	case TypeSFRotation:
		return SFRotation{0, 0, 1, 0}
	case TypeSFImage:
		return SFImage{}
	case TypeSFNode:
		return SFNode{}
	case TypeMFBool:
		return MFBool{}
	case TypeMFInt32:
		return MFInt32{}
	case TypeMFFloat:
		return MFFloat{}
	case TypeMFDouble:
		return MFDouble{}
	case TypeMFTime:
		return MFTime{}
	case TypeMFString:
		return MFString{}
	case TypeMFVec2f:
		return MFVec2f{}
	case TypeMFVec3f:
		return MFVec3f{}
	case TypeMFVec4f:
		return MFVec4f{}
	case TypeMFColor:
		return MFColor{}
	case TypeMFColorRGBA:
		return MFColorRGBA{}
	case TypeMFRotation:
		return MFRotation{}
	case TypeMFImage:
		return MFImage{}
	case TypeMFNode:
		return MFNode{}
	default:
		return nil
	}
}

// Clone returns an independent copy of v. Node values copy handles only,
// so the clone refers to the same nodes.
func Clone(v Value) Value {
	switch val := v.(type) {
	case SFImage:
		val.Pixels = slices.Clone(val.Pixels)
		return val
	case MFImage:
		out := make(MFImage, len(val))
		for i, img := range val {
			out[i] = Clone(img).(SFImage)
		}
		return out
	case MFBool:
		return slices.Clone(val)
	case MFInt32:
		return slices.Clone(val)
	case MFFloat:
		return slices.Clone(val)
	case MFDouble:
		return slices.Clone(val)
	case MFTime:
		return slices.Clone(val)
	case MFString:
		return slices.Clone(val)
	case MFVec2f:
		return slices.Clone(val)
	case MFVec3f:
		return slices.Clone(val)
	case MFVec4f:
		return slices.Clone(val)
	case MFColor:
		return slices.Clone(val)
	case MFColorRGBA:
		return slices.Clone(val)
	case MFRotation:
		return slices.Clone(val)
	case MFNode:
		return slices.Clone(val)
	default:
		// remaining variants are plain values
		return v
	}
}

// Equal reports structural equality. Multi-valued values compare length and
// then elements pairwise. Values with different tags are not comparable and
// return a *TypeMismatchError.
func Equal(a, b Value) (bool, error) {
	if a == nil || b == nil {
		return false, fmt.Errorf("cannot compare nil field value")
	}
	if a.Type() != b.Type() {
		return false, &TypeMismatchError{Want: a.Type(), Got: b.Type()}
	}
	return equal(a, b), nil
}

func equal(a, b Value) bool {
	switch av := a.(type) {
	case SFImage:
		bv := b.(SFImage)
		return av.Width == bv.Width &&
			av.Height == bv.Height &&
			av.Components == bv.Components &&
			slices.Equal(av.Pixels, bv.Pixels)
	case MultiValue:
		bv := b.(MultiValue)
		if av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !equal(av.At(i), bv.At(i)) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Append returns mv with elems added at the end, in order. Duplicates are
// kept. Every element must carry mv's element tag.
func Append(mv Value, elems ...Value) (Value, error) {
	return edit(mv, editOp{kind: editAppend, elems: elems})
}

// Replace returns mv with the element at index i replaced by elem.
func Replace(mv Value, i int, elem Value) (Value, error) {
	return edit(mv, editOp{kind: editReplace, index: i, elems: []Value{elem}})
}

// Clear returns an empty value with mv's tag.
func Clear(mv Value) (Value, error) {
	return edit(mv, editOp{kind: editClear})
}

type editKind int

const (
	editAppend editKind = iota
	editReplace
	editClear
)

type editOp struct {
	kind  editKind
	index int
	elems []Value
}

func edit(mv Value, op editOp) (Value, error) {
	switch m := mv.(type) {
	case MFBool:
		return applyEdit(m, op)
	case MFInt32:
		return applyEdit(m, op)
	case MFFloat:
		return applyEdit(m, op)
	case MFDouble:
		return applyEdit(m, op)
	case MFTime:
		return applyEdit(m, op)
	case MFString:
		return applyEdit(m, op)
	case MFVec2f:
		return applyEdit(m, op)
	case MFVec3f:
		return applyEdit(m, op)
	case MFVec4f:
		return applyEdit(m, op)
	case MFColor:
		return applyEdit(m, op)
	case MFColorRGBA:
		return applyEdit(m, op)
	case MFRotation:
		return applyEdit(m, op)
	case MFImage:
		return applyEdit(m, op)
	case MFNode:
		return applyEdit(m, op)
	case nil:
		return nil, fmt.Errorf("cannot edit nil field value")
	default:
		return nil, fmt.Errorf("%s is not a multi-valued field type", mv.Type())
	}
}

func applyEdit[E Value, M interface {
	~[]E
	MultiValue
}](m M, op editOp) (Value, error) {
	elems := make([]E, len(op.elems))
	for i, e := range op.elems {
		ev, ok := e.(E)
		if !ok {
			got := TypeInvalid
			if e != nil {
				got = e.Type()
			}
			return nil, &TypeMismatchError{Want: m.Type().Elem(), Got: got}
		}
		elems[i] = Clone(ev).(E)
	}

	switch op.kind {
	case editClear:
		return make(M, 0), nil
	case editReplace:
		if op.index < 0 || op.index >= len(m) {
			return nil, fmt.Errorf("index %d out of range for %s of length %d", op.index, m.Type(), len(m))
		}
		out := slices.Clone(m)
		out[op.index] = elems[0]
		return out, nil
	default:
		out := make(M, 0, len(m)+len(elems))
		out = append(out, m...)
		out = append(out, elems...)
		return out, nil
	}
}
