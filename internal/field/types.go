package field

import "fmt"

// Type is the tag of a field value. A value's tag never changes.
//
// Every SF tag has exactly one MF counterpart, obtained with Multi.
type Type uint8

const (
	TypeInvalid Type = iota

	TypeSFBool
	TypeSFInt32
	TypeSFFloat
	TypeSFDouble
	TypeSFTime
	TypeSFString
	TypeSFVec2f
	TypeSFVec3f
	TypeSFVec4f
	TypeSFColor
	TypeSFColorRGBA
	TypeSFRotation
	TypeSFImage
	TypeSFNode

	TypeMFBool
	TypeMFInt32
	TypeMFFloat
	TypeMFDouble
	TypeMFTime
	TypeMFString
	TypeMFVec2f
	TypeMFVec3f
	TypeMFVec4f
	TypeMFColor
	TypeMFColorRGBA
	TypeMFRotation
	TypeMFImage
	TypeMFNode

	typeCount
)

// multiOffset is the distance between an SF tag and its MF counterpart.
const multiOffset = TypeMFBool - TypeSFBool

var typeNames = [...]string{
	TypeInvalid:     "<invalid>",
	TypeSFBool:      "SFBool",
	TypeSFInt32:     "SFInt32",
	TypeSFFloat:     "SFFloat",
	TypeSFDouble:    "SFDouble",
	TypeSFTime:      "SFTime",
	TypeSFString:    "SFString",
	TypeSFVec2f:     "SFVec2f",
	TypeSFVec3f:     "SFVec3f",
	TypeSFVec4f:     "SFVec4f",
	TypeSFColor:     "SFColor",
	TypeSFColorRGBA: "SFColorRGBA",
	TypeSFRotation:  "SFRotation",
	TypeSFImage:     "SFImage",
	TypeSFNode:      "SFNode",
	TypeMFBool:      "MFBool",
	TypeMFInt32:     "MFInt32",
	TypeMFFloat:     "MFFloat",
	TypeMFDouble:    "MFDouble",
	TypeMFTime:      "MFTime",
	TypeMFString:    "MFString",
	TypeMFVec2f:     "MFVec2f",
	TypeMFVec3f:     "MFVec3f",
	TypeMFVec4f:     "MFVec4f",
	TypeMFColor:     "MFColor",
	TypeMFColorRGBA: "MFColorRGBA",
	TypeMFRotation:  "MFRotation",
	TypeMFImage:     "MFImage",
	TypeMFNode:      "MFNode",
}

var typesByName = func() map[string]Type {
	m := make(map[string]Type, typeCount)
	for t := TypeSFBool; t < typeCount; t++ {
		m[typeNames[t]] = t
	}
	return m
}()

// String returns the VRML spelling of the tag ("SFBool", "MFNode", ...).
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Valid reports whether t is one of the defined tags.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < typeCount
}

// IsMulti reports whether t is a multi-valued (MF) tag.
func (t Type) IsMulti() bool {
	return t >= TypeMFBool && t < typeCount
}

// Elem returns the SF element tag of an MF tag. SF tags return themselves.
func (t Type) Elem() Type {
	if t.IsMulti() {
		return t - multiOffset
	}
	return t
}

// Multi returns the MF tag whose elements are t. MF tags return themselves.
func (t Type) Multi() Type {
	if t.Valid() && !t.IsMulti() {
		return t + multiOffset
	}
	return t
}

// ParseType resolves the VRML spelling of a tag.
func ParseType(name string) (Type, error) {
	t, ok := typesByName[name]
	if !ok {
		return TypeInvalid, fmt.Errorf("unknown field type %q", name)
	}
	return t, nil
}

// AllTypes returns every valid tag in declaration order.
func AllTypes() []Type {
	out := make([]Type, 0, typeCount-1)
	for t := TypeSFBool; t < typeCount; t++ {
		out = append(out, t)
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid field type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
