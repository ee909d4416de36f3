package kinds

import (
	"fmt"

	"github.com/roach88/scenecore/internal/node"
)

// Builtins returns fresh instances of every built-in kind.
func Builtins() []*node.Kind {
	return []*node.Kind{
		Group(),
		Transform(),
		Shape(),
		Appearance(),
		Material(),
		Box(),
		Sphere(),
		TouchSensor(),
		TimeSensor(),
		ScalarInterpolator(),
		PositionInterpolator(),
		ColorInterpolator(),
	}
}

// RegisterBuiltins adds every built-in kind to reg.
func RegisterBuiltins(reg *node.Registry) error {
	for _, k := range Builtins() {
		if err := reg.Register(k); err != nil {
			return fmt.Errorf("register builtin kinds: %w", err)
		}
	}
	return nil
}
