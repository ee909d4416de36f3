package node

import (
	"errors"
	"fmt"
)

// CodeUnsupportedInterface is the error code of every schema error.
const CodeUnsupportedInterface = "UNSUPPORTED_INTERFACE"

// UnsupportedInterfaceError is the single schema error: an interface that
// conflicts with a set, is not supported by a kind, is not visible on a
// node, or cannot be connected by a route.
type UnsupportedInterfaceError struct {
	Interface Interface
	// Conflict is the member that caused the failure, when there is one.
	Conflict *Interface
	Reason   string
}

func (e *UnsupportedInterfaceError) Error() string {
	msg := fmt.Sprintf("unsupported interface %s", e.Interface)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Conflict != nil {
		msg += fmt.Sprintf(" (have %s)", *e.Conflict)
	}
	return msg
}

// Code returns CodeUnsupportedInterface.
func (e *UnsupportedInterfaceError) Code() string { return CodeUnsupportedInterface }

// IsUnsupportedInterface reports whether err is or wraps an
// *UnsupportedInterfaceError.
func IsUnsupportedInterface(err error) bool {
	var ui *UnsupportedInterfaceError
	return errors.As(err, &ui)
}

// ErrRegistrySealed is returned by Register once types have been created.
var ErrRegistrySealed = errors.New("registry sealed: kinds must be registered before types are created")
