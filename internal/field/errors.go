package field

import (
	"errors"
	"fmt"
)

// TypeMismatchError reports a value whose tag differs from the one required.
type TypeMismatchError struct {
	Want Type
	Got  Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field type mismatch: want %s, got %s", e.Want, e.Got)
}

// IsTypeMismatch reports whether err is or wraps a *TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var tm *TypeMismatchError
	return errors.As(err, &tm)
}

// Check returns a *TypeMismatchError unless v carries tag t.
func Check(t Type, v Value) error {
	if v == nil {
		return &TypeMismatchError{Want: t, Got: TypeInvalid}
	}
	if v.Type() != t {
		return &TypeMismatchError{Want: t, Got: v.Type()}
	}
	return nil
}
