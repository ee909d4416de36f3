package compiler

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
	"github.com/roach88/scenecore/internal/node"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Scene structure errors (E101-E109)
	ErrSceneNameEmpty     = "E101" // scene name is required
	ErrSceneNoNodes       = "E102" // at least one node required
	ErrTypeNoKind         = "E103" // type declaration without kind
	ErrInvalidInterface   = "E104" // invalid category, type tag or name
	ErrDuplicateName      = "E105" // duplicate type ID, DEF name or interface
	ErrInvalidDEFName     = "E106" // DEF name is not an identifier
	ErrUnknownType        = "E107" // node names an undeclared type or kind
	ErrUnsupportedIface   = "E108" // kind does not support a requested interface
	ErrUnknownField       = "E109" // node sets a field its type does not expose
	ErrInvalidFieldValue  = "E110" // field value does not decode to the field's tag
	ErrInvalidRoute       = "E111" // route names an unknown node
	ErrUnknownEvent       = "E112" // route names an event its node does not expose
	ErrRouteTypeMismatch  = "E113" // route connects different type tags
	ErrInvalidNodeRef     = "E114" // node-valued field names an undeclared node
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// KindSource resolves node kinds. *node.Registry implements it.
type KindSource interface {
	Kind(name string) (*node.Kind, bool)
}

// Validate validates a compiled scene against structural rules.
// Returns all errors found (does not fail-fast).
// Supports *ir.SceneSpec and ir.SceneSpec.
func Validate(v any) []ValidationError {
	return ValidateWithKinds(v, nil)
}

// ValidateWithKinds is Validate plus the checks that need the kinds:
// interface support, field visibility and values, and route endpoints and
// type tags. A nil kinds skips them.
func ValidateWithKinds(v any, kinds KindSource) []ValidationError {
	switch spec := v.(type) {
	case *ir.SceneSpec:
		return validateScene(spec, kinds)
	case ir.SceneSpec:
		return validateScene(&spec, kinds)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// defNamePattern matches DEF names: an identifier, optionally with '-'.
var defNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// validateScene validates a scene declaration.
func validateScene(spec *ir.SceneSpec, kinds KindSource) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "scene name is required and must be non-empty",
			Code:    ErrSceneNameEmpty,
		})
	}

	// E102: at least one node required
	if len(spec.Nodes) == 0 {
		errs = append(errs, ValidationError{
			Field:   "nodes",
			Message: "at least one node is required",
			Code:    ErrSceneNoNodes,
		})
	}

	types := make(map[string]*node.Type)
	typeNames := make(map[string]bool)
	for i, decl := range spec.Types {
		path := fmt.Sprintf("types[%d]", i)

		// E105: duplicate type ID
		if typeNames[decl.ID] {
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("duplicate type ID: %q", decl.ID),
				Code:    ErrDuplicateName,
			})
		}
		typeNames[decl.ID] = true

		// E103: kind is required
		if strings.TrimSpace(decl.Kind) == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".kind",
				Message: fmt.Sprintf("type %q must name a kind", decl.ID),
				Code:    ErrTypeNoKind,
			})
			continue
		}

		ifaces, ifaceErrs := validateInterfaces(decl, path)
		errs = append(errs, ifaceErrs...)
		if kinds == nil || len(ifaceErrs) > 0 {
			continue
		}

		k, ok := kinds.Kind(decl.Kind)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".kind",
				Message: fmt.Sprintf("unknown node kind %q", decl.Kind),
				Code:    ErrUnknownType,
			})
			continue
		}
		if len(decl.Interfaces) == 0 {
			ifaces = k.Supported().All()
		}
		// E108: the kind must support every requested interface
		t, err := k.CreateType(decl.ID, ifaces)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   path + ".interfaces",
				Message: err.Error(),
				Code:    ErrUnsupportedIface,
			})
			continue
		}
		types[decl.ID] = t
	}

	nodeTypes := make(map[string]*node.Type)
	nodeNames := make(map[string]bool)
	for i, decl := range spec.Nodes {
		if decl.Name != "" {
			if !defNamePattern.MatchString(decl.Name) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("nodes[%d].name", i),
					Message: fmt.Sprintf("invalid DEF name %q", decl.Name),
					Code:    ErrInvalidDEFName,
				})
			}
			if nodeNames[decl.Name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("nodes[%d].name", i),
					Message: fmt.Sprintf("duplicate DEF name: %q", decl.Name),
					Code:    ErrDuplicateName,
				})
			}
			nodeNames[decl.Name] = true
		}

		if kinds == nil {
			continue
		}
		t, ok := resolveType(decl.Type, types, typeNames, kinds)
		if !ok {
			if !typeNames[decl.Type] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("nodes[%d].type", i),
					Message: fmt.Sprintf("node %q: no type or kind named %q", decl.Name, decl.Type),
					Code:    ErrUnknownType,
				})
			}
			continue
		}
		types[decl.Type] = t
		if decl.Name != "" {
			nodeTypes[decl.Name] = t
		}
	}

	if kinds != nil {
		for i, decl := range spec.Nodes {
			if t, ok := types[decl.Type]; ok {
				errs = append(errs, validateFields(decl, i, t, nodeNames)...)
			}
		}
	}

	for i, route := range spec.Routes {
		errs = append(errs, validateRoute(route, i, nodeNames, nodeTypes, kinds != nil)...)
	}

	return errs
}

// validateInterfaces parses a type's interface declarations.
func validateInterfaces(decl ir.TypeDecl, path string) ([]node.Interface, []ValidationError) {
	var (
		errs   []ValidationError
		ifaces []node.Interface
		seen   node.InterfaceSet
	)
	for j, d := range decl.Interfaces {
		ipath := fmt.Sprintf("%s.interfaces[%d]", path, j)
		cat, err := node.ParseCategory(d.Category)
		if err != nil {
			errs = append(errs, ValidationError{Field: ipath + ".category", Message: err.Error(), Code: ErrInvalidInterface})
			continue
		}
		tag, err := field.ParseType(d.Type)
		if err != nil {
			errs = append(errs, ValidationError{Field: ipath + ".type", Message: err.Error(), Code: ErrInvalidInterface})
			continue
		}
		iface := node.Interface{Category: cat, Type: tag, Name: d.Name}
		// E104/E105: names must be valid and must not collide
		if err := seen.Add(iface); err != nil {
			code := ErrInvalidInterface
			var ui *node.UnsupportedInterfaceError
			if errors.As(err, &ui) && ui.Conflict != nil {
				code = ErrDuplicateName
			}
			errs = append(errs, ValidationError{Field: ipath, Message: err.Error(), Code: code})
			continue
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, errs
}

func resolveType(name string, types map[string]*node.Type, declared map[string]bool, kinds KindSource) (*node.Type, bool) {
	if t, ok := types[name]; ok {
		return t, true
	}
	if declared[name] {
		return nil, false // declared but invalid; already reported
	}
	k, ok := kinds.Kind(name)
	if !ok {
		return nil, false
	}
	t, err := k.CreateType(name, k.Supported().All())
	if err != nil {
		return nil, false
	}
	return t, true
}

// validateFields checks that every initialized field is exposed by the
// node's type and decodes to its tag. Node references must name declared
// nodes.
func validateFields(decl ir.NodeDecl, i int, t *node.Type, nodeNames map[string]bool) []ValidationError {
	var errs []ValidationError
	dec := field.Decoder{ResolveNode: func(ref any) (field.NodeID, error) {
		name, ok := ref.(string)
		if !ok {
			return 0, fmt.Errorf("node reference must be a DEF name, got %T", ref)
		}
		if !nodeNames[name] {
			return 0, errUndeclaredNode{name}
		}
		return 1, nil
	}}

	for _, name := range sortedFieldNames(decl.Fields) {
		path := fmt.Sprintf("nodes[%d].fields.%s", i, name)
		iface, ok := t.Interfaces().FindField(name)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("node %q: type %s exposes no field %q", decl.Name, t.ID(), name),
				Code:    ErrUnknownField,
			})
			continue
		}
		if _, err := dec.Decode(iface.Type, decl.Fields[name]); err != nil {
			code := ErrInvalidFieldValue
			if _, undeclared := asUndeclared(err); undeclared {
				code = ErrInvalidNodeRef
			}
			errs = append(errs, ValidationError{Field: path, Message: err.Error(), Code: code})
		}
	}
	return errs
}

func validateRoute(r ir.RouteDecl, i int, nodeNames map[string]bool, nodeTypes map[string]*node.Type, typed bool) []ValidationError {
	var errs []ValidationError
	path := fmt.Sprintf("routes[%d]", i)

	// E111: both ends must be declared nodes
	for _, end := range []string{r.FromNode, r.ToNode} {
		if !nodeNames[end] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("route %s: unknown node %q", r, end),
				Code:    ErrInvalidRoute,
			})
		}
	}
	if len(errs) > 0 || !typed {
		return errs
	}

	src, okSrc := nodeTypes[r.FromNode]
	dst, okDst := nodeTypes[r.ToNode]
	if !okSrc || !okDst {
		return errs // type errors already reported
	}

	// E112: the events must exist on the node types
	out, ok := src.Interfaces().FindEventOut(r.FromEvent)
	if !ok {
		errs = append(errs, ValidationError{
			Field:   path + ".from",
			Message: fmt.Sprintf("route %s: %s exposes no eventOut %q", r, r.FromNode, r.FromEvent),
			Code:    ErrUnknownEvent,
		})
	}
	in, okIn := dst.Interfaces().FindEventIn(r.ToEvent)
	if !okIn {
		errs = append(errs, ValidationError{
			Field:   path + ".to",
			Message: fmt.Sprintf("route %s: %s exposes no eventIn %q", r, r.ToNode, r.ToEvent),
			Code:    ErrUnknownEvent,
		})
	}

	// E113: the type tags must agree
	if ok && okIn && out.Type != in.Type {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("route %s connects %s to %s", r, out.Type, in.Type),
			Code:    ErrRouteTypeMismatch,
		})
	}
	return errs
}

type errUndeclaredNode struct{ name string }

func (e errUndeclaredNode) Error() string {
	return fmt.Sprintf("no node named %q is declared", e.name)
}

func asUndeclared(err error) (errUndeclaredNode, bool) {
	var u errUndeclaredNode
	ok := errors.As(err, &u)
	return u, ok
}

func sortedFieldNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
