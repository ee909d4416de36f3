package field

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical encodes v as deterministic JSON: the same value always
// produces the same bytes. This is the encoding used for trace storage and
// fingerprints.
//
// Numbers use the shortest representation that round-trips at the value's
// precision. Strings are NFC normalized and HTML characters are not escaped.
// NaN and infinities are rejected. Node handles encode as integers, with
// null as JSON null.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalTagged encodes v together with its tag:
// {"type":"SFVec3f","value":[1,2,3]}.
func MarshalTagged(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot marshal nil field value")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.WriteString(strconv.Quote(v.Type().String()))
	buf.WriteString(`,"value":`)
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalCanonical decodes JSON produced by MarshalCanonical for tag t.
// Node handles are taken as-is.
func UnmarshalCanonical(t Type, data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return Decoder{}.Decode(t, raw)
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("cannot marshal nil field value")
	case SFBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case SFInt32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case SFFloat:
		return writeFloat(buf, float64(val), 32)
	case SFDouble:
		return writeFloat(buf, float64(val), 64)
	case SFTime:
		return writeFloat(buf, float64(val), 64)
	case SFString:
		return writeString(buf, string(val))
	case SFVec2f:
		return writeFloats(buf, val[:])
	case SFVec3f:
		return writeFloats(buf, val[:])
	case SFVec4f:
		return writeFloats(buf, val[:])
	case SFColor:
		return writeFloats(buf, val[:])
	case SFColorRGBA:
		return writeFloats(buf, val[:])
	case SFRotation:
		return writeFloats(buf, val[:])
	case SFImage:
		// keys in sorted order
		fmt.Fprintf(buf, `{"components":%d,"height":%d,"pixels":[`, val.Components, val.Height)
		for i, p := range val.Pixels {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatUint(uint64(p), 10))
		}
		fmt.Fprintf(buf, `],"width":%d}`, val.Width)
	case SFNode:
		if val.IsNull() {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatUint(uint64(val.ID), 10))
		}
	case MultiValue:
		buf.WriteByte('[')
		for i := 0; i < val.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, val.At(i)); err != nil {
				return fmt.Errorf("%s[%d]: %w", val.Type(), i, err)
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unsupported field value %T", v)
	}
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v has no canonical form", f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

func writeFloats(buf *bytes.Buffer, fs []float32) error {
	buf.WriteByte('[')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeFloat(buf, float64(f), 32); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
