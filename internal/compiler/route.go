package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/scenecore/internal/ir"
)

// routePattern matches "Node.event TO Node.event". DEF names may contain
// letters, digits, '_' and '-'; event names are identifiers.
var routePattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_-]*)\.([A-Za-z_][A-Za-z0-9_]*)\s+TO\s+([A-Za-z_][A-Za-z0-9_-]*)\.([A-Za-z_][A-Za-z0-9_]*)\s*$`)

// ParseRoute parses the VRML route form "A.x_changed TO B.set_x".
func ParseRoute(s string) (ir.RouteDecl, error) {
	m := routePattern.FindStringSubmatch(s)
	if m == nil {
		return ir.RouteDecl{}, fmt.Errorf("invalid route %q, expected \"Node.event TO Node.event\"", s)
	}
	return ir.RouteDecl{FromNode: m[1], FromEvent: m[2], ToNode: m[3], ToEvent: m[4]}, nil
}
