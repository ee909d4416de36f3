// Package field implements the VRML field value system.
//
// Every field, exposedField, eventIn and eventOut carries one of 28 tags:
// fourteen single-valued kinds (SFBool, SFInt32, SFFloat, SFDouble, SFTime,
// SFString, SFVec2f, SFVec3f, SFVec4f, SFColor, SFColorRGBA, SFRotation,
// SFImage, SFNode) and a multi-valued MF sequence for each of them.
//
// Values are a sealed interface. Node values hold handles (NodeID), never
// pointers, so copying a node value shares the referent and ownership is
// tracked elsewhere (see package node).
package field
