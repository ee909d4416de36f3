package field

// Value is a sealed interface over every field value variant.
// Only the SF* and MF* types of this package implement it.
type Value interface {
	Type() Type
	fieldValue()
}

// MultiValue is implemented by every MF* variant.
type MultiValue interface {
	Value
	Len() int
	At(i int) Value
}

// NodeID is a stable node handle. The zero handle is the null node.
type NodeID uint64

// NullNode is the null handle.
const NullNode NodeID = 0

type (
	SFBool   bool
	SFInt32  int32
	SFFloat  float32
	SFDouble float64
	SFTime   float64
	SFString string

	SFVec2f     [2]float32
	SFVec3f     [3]float32
	SFVec4f     [4]float32
	SFColor     [3]float32
	SFColorRGBA [4]float32

	// SFRotation is an axis (x, y, z) followed by an angle in radians.
	SFRotation [4]float32
)

// SFImage is an uncompressed image: one packed pixel per entry, with
// Components bytes significant per pixel (1 to 4).
type SFImage struct {
	Width      int32
	Height     int32
	Components int32
	Pixels     []uint32
}

// SFNode refers to a node by handle. Copies share the referent.
type SFNode struct {
	ID NodeID
}

// IsNull reports whether the value refers to no node.
func (v SFNode) IsNull() bool { return v.ID == NullNode }

type (
	MFBool      []SFBool
	MFInt32     []SFInt32
	MFFloat     []SFFloat
	MFDouble    []SFDouble
	MFTime      []SFTime
	MFString    []SFString
	MFVec2f     []SFVec2f
	MFVec3f     []SFVec3f
	MFVec4f     []SFVec4f
	MFColor     []SFColor
	MFColorRGBA []SFColorRGBA
	MFRotation  []SFRotation
	MFImage     []SFImage
	MFNode      []SFNode
)

func (SFBool) Type() Type      { return TypeSFBool }
func (SFInt32) Type() Type     { return TypeSFInt32 }
func (SFFloat) Type() Type     { return TypeSFFloat }
func (SFDouble) Type() Type    { return TypeSFDouble }
func (SFTime) Type() Type      { return TypeSFTime }
func (SFString) Type() Type    { return TypeSFString }
func (SFVec2f) Type() Type     { return TypeSFVec2f }
func (SFVec3f) Type() Type     { return TypeSFVec3f }
func (SFVec4f) Type() Type     { return TypeSFVec4f }
func (SFColor) Type() Type     { return TypeSFColor }
func (SFColorRGBA) Type() Type { return TypeSFColorRGBA }
func (SFRotation) Type() Type  { return TypeSFRotation }
func (SFImage) Type() Type     { return TypeSFImage }
func (SFNode) Type() Type      { return TypeSFNode }

func (MFBool) Type() Type      { return TypeMFBool }
func (MFInt32) Type() Type     { return TypeMFInt32 }
func (MFFloat) Type() Type     { return TypeMFFloat }
func (MFDouble) Type() Type    { return TypeMFDouble }
func (MFTime) Type() Type      { return TypeMFTime }
func (MFString) Type() Type    { return TypeMFString }
func (MFVec2f) Type() Type     { return TypeMFVec2f }
func (MFVec3f) Type() Type     { return TypeMFVec3f }
func (MFVec4f) Type() Type     { return TypeMFVec4f }
func (MFColor) Type() Type     { return TypeMFColor }
func (MFColorRGBA) Type() Type { return TypeMFColorRGBA }
func (MFRotation) Type() Type  { return TypeMFRotation }
func (MFImage) Type() Type     { return TypeMFImage }
func (MFNode) Type() Type      { return TypeMFNode }

func (SFBool) fieldValue()      {}
func (SFInt32) fieldValue()     {}
func (SFFloat) fieldValue()     {}
func (SFDouble) fieldValue()    {}
func (SFTime) fieldValue()      {}
func (SFString) fieldValue()    {}
func (SFVec2f) fieldValue()     {}
func (SFVec3f) fieldValue()     {}
func (SFVec4f) fieldValue()     {}
func (SFColor) fieldValue()     {}
func (SFColorRGBA) fieldValue() {}
func (SFRotation) fieldValue()  {}
func (SFImage) fieldValue()     {}
func (SFNode) fieldValue()      {}

func (MFBool) fieldValue()      {}
func (MFInt32) fieldValue()     {}
func (MFFloat) fieldValue()     {}
func (MFDouble) fieldValue()    {}
func (MFTime) fieldValue()      {}
func (MFString) fieldValue()    {}
func (MFVec2f) fieldValue()     {}
func (MFVec3f) fieldValue()     {}
func (MFVec4f) fieldValue()     {}
func (MFColor) fieldValue()     {}
func (MFColorRGBA) fieldValue() {}
func (MFRotation) fieldValue()  {}
func (MFImage) fieldValue()     {}
func (MFNode) fieldValue()      {}

func (m MFBool) Len() int      { return len(m) }
func (m MFInt32) Len() int     { return len(m) }
func (m MFFloat) Len() int     { return len(m) }
func (m MFDouble) Len() int    { return len(m) }
func (m MFTime) Len() int      { return len(m) }
func (m MFString) Len() int    { return len(m) }
func (m MFVec2f) Len() int     { return len(m) }
func (m MFVec3f) Len() int     { return len(m) }
func (m MFVec4f) Len() int     { return len(m) }
func (m MFColor) Len() int     { return len(m) }
func (m MFColorRGBA) Len() int { return len(m) }
func (m MFRotation) Len() int  { return len(m) }
func (m MFImage) Len() int     { return len(m) }
func (m MFNode) Len() int      { return len(m) }

func (m MFBool) At(i int) Value      { return m[i] }
func (m MFInt32) At(i int) Value     { return m[i] }
func (m MFFloat) At(i int) Value     { return m[i] }
func (m MFDouble) At(i int) Value    { return m[i] }
func (m MFTime) At(i int) Value      { return m[i] }
func (m MFString) At(i int) Value    { return m[i] }
func (m MFVec2f) At(i int) Value     { return m[i] }
func (m MFVec3f) At(i int) Value     { return m[i] }
func (m MFVec4f) At(i int) Value     { return m[i] }
func (m MFColor) At(i int) Value     { return m[i] }
func (m MFColorRGBA) At(i int) Value { return m[i] }
func (m MFRotation) At(i int) Value  { return m[i] }
func (m MFImage) At(i int) Value     { return m[i] }
func (m MFNode) At(i int) Value      { return m[i] }

// NodeIDs returns the handles held by an SFNode or MFNode value, skipping
// null entries. Other values hold no handles.
func NodeIDs(v Value) []NodeID {
	switch val := v.(type) {
	case SFNode:
		if val.IsNull() {
			return nil
		}
		return []NodeID{val.ID}
	case MFNode:
		ids := make([]NodeID, 0, len(val))
		for _, n := range val {
			if !n.IsNull() {
				ids = append(ids, n.ID)
			}
		}
		return ids
	default:
		return nil
	}
}
