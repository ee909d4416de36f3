package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/scenecore/internal/ir"
)

// CompileScene parses a CUE value into a SceneSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the scene struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`scene: Lamp: { nodes: { ... } }`)
//	spec, err := CompileScene(v.LookupPath(cue.ParsePath("scene.Lamp")))
//
// A scene has three optional sections:
//
//	types:  Switch: { kind: "Group", interfaces: ["exposedField MFNode children"] }
//	nodes:  Root: { type: "Switch", fields: { children: ["Bulb"] } }
//	routes: ["Root.children_changed TO Mirror.set_children"]
//
// Nodes are declared in CUE field order, which is also instantiation order.
func CompileScene(v cue.Value) (*ir.SceneSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SceneSpec{}

	// Parse scene name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	spec.Types, err = parseTypes(v)
	if err != nil {
		return nil, err
	}

	spec.Nodes, err = parseNodes(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Nodes) == 0 {
		return nil, &CompileError{
			Field:   "nodes",
			Message: "at least one node is required",
			Pos:     v.Pos(),
		}
	}

	spec.Routes, err = parseRoutes(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// CompileScenes compiles every scene under the top-level "scene" struct of
// v, in declaration order. A value without scenes is an error.
func CompileScenes(v cue.Value) ([]ir.SceneSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	scenes := v.LookupPath(cue.ParsePath("scene"))
	if !scenes.Exists() {
		return nil, &CompileError{Field: "scene", Message: "no scenes declared", Pos: v.Pos()}
	}
	iter, err := scenes.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var specs []ir.SceneSpec
	for iter.Next() {
		spec, err := CompileScene(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	if len(specs) == 0 {
		return nil, &CompileError{Field: "scene", Message: "no scenes declared", Pos: scenes.Pos()}
	}
	return specs, nil
}

// parseTypes extracts type declarations, one per field of "types".
func parseTypes(v cue.Value) ([]ir.TypeDecl, error) {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, nil // types are optional; nodes may name kinds directly
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var types []ir.TypeDecl
	for iter.Next() {
		id := iter.Label()
		typeVal := iter.Value()

		kindVal := typeVal.LookupPath(cue.ParsePath("kind"))
		if !kindVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("types.%s.kind", id),
				Message: "kind is required",
				Pos:     typeVal.Pos(),
			}
		}
		kind, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		decl := ir.TypeDecl{ID: id, Kind: kind}
		ifacesVal := typeVal.LookupPath(cue.ParsePath("interfaces"))
		if ifacesVal.Exists() {
			decl.Interfaces, err = parseInterfaces(id, ifacesVal)
			if err != nil {
				return nil, err
			}
		}
		types = append(types, decl)
	}
	return types, nil
}

// parseInterfaces accepts each interface as "category Type name" or as
// { category, type, name }.
func parseInterfaces(typeID string, v cue.Value) ([]ir.InterfaceDecl, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.InterfaceDecl
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		path := fmt.Sprintf("types.%s.interfaces[%d]", typeID, i)

		if s, err := item.String(); err == nil {
			decl, err := ParseInterfaceDecl(s)
			if err != nil {
				return nil, &CompileError{Field: path, Message: err.Error(), Pos: item.Pos()}
			}
			out = append(out, decl)
			continue
		}

		var decl ir.InterfaceDecl
		for _, f := range []struct {
			name string
			dst  *string
		}{
			{"category", &decl.Category},
			{"type", &decl.Type},
			{"name", &decl.Name},
		} {
			fv := item.LookupPath(cue.ParsePath(f.name))
			if !fv.Exists() {
				return nil, &CompileError{
					Field:   path + "." + f.name,
					Message: "must be a string \"category Type name\" or declare category, type and name",
					Pos:     item.Pos(),
				}
			}
			s, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			*f.dst = s
		}
		out = append(out, decl)
	}
	return out, nil
}

// ParseInterfaceDecl parses the textual form "exposedField SFBool on".
func ParseInterfaceDecl(s string) (ir.InterfaceDecl, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return ir.InterfaceDecl{}, fmt.Errorf("interface %q: expected \"category Type name\"", s)
	}
	return ir.InterfaceDecl{Category: parts[0], Type: parts[1], Name: parts[2]}, nil
}

// parseNodes extracts node declarations, one per field of "nodes". The
// field label is the DEF name.
func parseNodes(v cue.Value) ([]ir.NodeDecl, error) {
	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil, nil
	}

	iter, err := nodesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var nodes []ir.NodeDecl
	for iter.Next() {
		name := iter.Label()
		nodeVal := iter.Value()

		typeVal := nodeVal.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("nodes.%s.type", name),
				Message: "type is required",
				Pos:     nodeVal.Pos(),
			}
		}
		typeName, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		decl := ir.NodeDecl{Name: name, Type: typeName}
		fieldsVal := nodeVal.LookupPath(cue.ParsePath("fields"))
		if fieldsVal.Exists() {
			fieldIter, err := fieldsVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			decl.Fields = make(map[string]any)
			for fieldIter.Next() {
				raw, err := plainValue(fieldIter.Value())
				if err != nil {
					return nil, err
				}
				decl.Fields[fieldIter.Label()] = raw
			}
		}
		nodes = append(nodes, decl)
	}
	return nodes, nil
}

// plainValue converts a concrete CUE value to bool, int64, float64, string,
// nil, []any or map[string]any, the forms field decoding accepts.
func plainValue(v cue.Value) (any, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   v.Path().String(),
			Message: "field values must be concrete",
			Pos:     v.Pos(),
		}
	}

	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		return b, formatCUEError(err)
	case cue.IntKind:
		i, err := v.Int64()
		return i, formatCUEError(err)
	case cue.FloatKind:
		f, err := v.Float64()
		return f, formatCUEError(err)
	case cue.StringKind:
		s, err := v.String()
		return s, formatCUEError(err)
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			item, err := plainValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := make(map[string]any)
		for iter.Next() {
			item, err := plainValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = item
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   v.Path().String(),
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// parseRoutes extracts "routes", each either "A.out TO B.in" or
// { from: "A.out", to: "B.in" }.
func parseRoutes(v cue.Value) ([]ir.RouteDecl, error) {
	routesVal := v.LookupPath(cue.ParsePath("routes"))
	if !routesVal.Exists() {
		return nil, nil
	}

	iter, err := routesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var routes []ir.RouteDecl
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		text, err := item.String()
		if err != nil {
			from, ferr := item.LookupPath(cue.ParsePath("from")).String()
			to, terr := item.LookupPath(cue.ParsePath("to")).String()
			if ferr != nil || terr != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("routes[%d]", i),
					Message: "route must be \"Node.event TO Node.event\" or declare from and to",
					Pos:     item.Pos(),
				}
			}
			text = from + " TO " + to
		}

		route, err := ParseRoute(text)
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("routes[%d]", i), Message: err.Error(), Pos: item.Pos()}
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
