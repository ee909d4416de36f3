package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTypesCount(t *testing.T) {
	assert.Len(t, AllTypes(), 28)
}

func TestParseTypeRoundTrip(t *testing.T) {
	for _, typ := range AllTypes() {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err, typ.String())
		assert.Equal(t, typ, parsed)
	}
}

func TestParseTypeUnknown(t *testing.T) {
	_, err := ParseType("SFMatrix")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SFMatrix")
}

func TestMultiAndElem(t *testing.T) {
	tests := []struct {
		sf Type
		mf Type
	}{
		{TypeSFBool, TypeMFBool},
		{TypeSFVec3f, TypeMFVec3f},
		{TypeSFRotation, TypeMFRotation},
		{TypeSFNode, TypeMFNode},
	}
	for _, tt := range tests {
		t.Run(tt.sf.String(), func(t *testing.T) {
			assert.False(t, tt.sf.IsMulti())
			assert.True(t, tt.mf.IsMulti())
			assert.Equal(t, tt.mf, tt.sf.Multi())
			assert.Equal(t, tt.sf, tt.mf.Elem())
			assert.Equal(t, tt.sf, tt.sf.Elem())
			assert.Equal(t, tt.mf, tt.mf.Multi())
		})
	}
}

func TestTypeTextMarshaling(t *testing.T) {
	b, err := TypeSFColor.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "SFColor", string(b))

	var typ Type
	require.NoError(t, typ.UnmarshalText([]byte("MFString")))
	assert.Equal(t, TypeMFString, typ)

	_, err = TypeInvalid.MarshalText()
	assert.Error(t, err)
}
