package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/ir"
)

func compileSource(t *testing.T, src, path string) (*ir.SceneSpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileScene(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileSceneBasic(t *testing.T) {
	spec, err := compileSource(t, `
		scene: Lamp: {
			types: Switch: {
				kind: "Group"
				interfaces: ["exposedField MFNode children"]
			}

			nodes: {
				Root: {
					type: "Switch"
					fields: children: ["Bulb"]
				}
				Bulb: type: "Shape"
				Mat: {
					type: "Material"
					fields: {
						diffuseColor: [1.0, 0.5, 0]
						transparency: 0.25
					}
				}
			}

			routes: ["Root.children_changed TO Bulb.set_geometry"]
		}
	`, "scene.Lamp")
	require.NoError(t, err)

	assert.Equal(t, "Lamp", spec.Name)

	require.Len(t, spec.Types, 1)
	assert.Equal(t, "Switch", spec.Types[0].ID)
	assert.Equal(t, "Group", spec.Types[0].Kind)
	assert.Equal(t, []ir.InterfaceDecl{
		{Category: "exposedField", Type: "MFNode", Name: "children"},
	}, spec.Types[0].Interfaces)

	require.Len(t, spec.Nodes, 3)
	assert.Equal(t, "Root", spec.Nodes[0].Name, "nodes keep declaration order")
	assert.Equal(t, "Bulb", spec.Nodes[1].Name)
	assert.Equal(t, "Mat", spec.Nodes[2].Name)
	assert.Equal(t, []any{"Bulb"}, spec.Nodes[0].Fields["children"])
	assert.Nil(t, spec.Nodes[1].Fields)
	assert.Equal(t, []any{1.0, 0.5, int64(0)}, spec.Nodes[2].Fields["diffuseColor"])
	assert.Equal(t, 0.25, spec.Nodes[2].Fields["transparency"])

	require.Len(t, spec.Routes, 1)
	assert.Equal(t, ir.RouteDecl{
		FromNode: "Root", FromEvent: "children_changed",
		ToNode: "Bulb", ToEvent: "set_geometry",
	}, spec.Routes[0])
}

func TestCompileSceneStructForms(t *testing.T) {
	spec, err := compileSource(t, `
		scene: Light: {
			types: Lit: {
				kind: "Material"
				interfaces: [{category: "exposedField", type: "SFColor", name: "diffuseColor"}]
			}
			nodes: {
				A: type: "Lit"
				B: type: "Lit"
			}
			routes: [{from: "A.diffuseColor_changed", to: "B.set_diffuseColor"}]
		}
	`, "scene.Light")
	require.NoError(t, err)

	assert.Equal(t, "diffuseColor", spec.Types[0].Interfaces[0].Name)
	assert.Equal(t, "SFColor", spec.Types[0].Interfaces[0].Type)
	require.Len(t, spec.Routes, 1)
	assert.Equal(t, "A.diffuseColor_changed TO B.set_diffuseColor", spec.Routes[0].String())
}

func TestCompileSceneFieldValueKinds(t *testing.T) {
	spec, err := compileSource(t, `
		scene: Values: nodes: N: {
			type: "Any"
			fields: {
				b: true
				i: 3
				f: 1.5
				s: "text"
				n: null
				l: []
				st: {width: 1, height: 1}
			}
		}
	`, "scene.Values")
	require.NoError(t, err)

	fields := spec.Nodes[0].Fields
	assert.Equal(t, true, fields["b"])
	assert.Equal(t, int64(3), fields["i"])
	assert.Equal(t, 1.5, fields["f"])
	assert.Equal(t, "text", fields["s"])
	assert.Nil(t, fields["n"])
	assert.Contains(t, fields, "n")
	assert.Equal(t, []any{}, fields["l"])
	assert.Equal(t, map[string]any{"width": int64(1), "height": int64(1)}, fields["st"])
}

func TestCompileSceneErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "no nodes",
			src:   `scene: Empty: { routes: [] }`,
			field: "nodes",
		},
		{
			name:  "type without kind",
			src:   `scene: Empty: { types: T: { interfaces: [] }, nodes: A: type: "T" }`,
			field: "types.T.kind",
		},
		{
			name:  "node without type",
			src:   `scene: Empty: { nodes: A: { fields: {} } }`,
			field: "nodes.A.type",
		},
		{
			name:  "malformed interface",
			src:   `scene: Empty: { types: T: { kind: "Group", interfaces: ["MFNode children"] }, nodes: A: type: "T" }`,
			field: "types.T.interfaces[0]",
		},
		{
			name:  "incomplete interface struct",
			src:   `scene: Empty: { types: T: { kind: "Group", interfaces: [{category: "field", type: "SFBool"}] }, nodes: A: type: "T" }`,
			field: "types.T.interfaces[0].name",
		},
		{
			name:  "malformed route",
			src:   `scene: Empty: { nodes: A: type: "Group", routes: ["A.x -> A.y"] }`,
			field: "routes[0]",
		},
		{
			name:  "incomplete route struct",
			src:   `scene: Empty: { nodes: A: type: "Group", routes: [{from: "A.x"}] }`,
			field: "routes[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSource(t, tt.src, "scene.Empty")
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileSceneNonConcreteField(t *testing.T) {
	_, err := compileSource(t, `
		scene: Open: nodes: A: {
			type: "Material"
			fields: transparency: float
		}
	`, "scene.Open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concrete")
}

func TestCompileSceneCUEError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`scene: Bad: { nodes: A: type: "Group" & "Shape" }`)
	_, err := CompileScene(v.LookupPath(cue.ParsePath("scene.Bad")))
	require.Error(t, err)
}

func TestParseInterfaceDecl(t *testing.T) {
	decl, err := ParseInterfaceDecl("  exposedField   SFBool on ")
	require.NoError(t, err)
	assert.Equal(t, ir.InterfaceDecl{Category: "exposedField", Type: "SFBool", Name: "on"}, decl)

	_, err = ParseInterfaceDecl("exposedField SFBool")
	assert.Error(t, err)
	_, err = ParseInterfaceDecl("a b c d")
	assert.Error(t, err)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "nodes", Message: "at least one node is required"}
	assert.Equal(t, "nodes: at least one node is required", err.Error())
}

func TestCompileScenes(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		scene: {
			First: nodes: A: type: "Group"
			Second: {
				nodes: {
					B: type: "Material"
					C: type: "Material"
				}
				routes: ["B.diffuseColor_changed TO C.set_diffuseColor"]
			}
		}
	`)
	require.NoError(t, v.Err())

	specs, err := CompileScenes(v)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "First", specs[0].Name)
	assert.Equal(t, "Second", specs[1].Name)
	assert.Len(t, specs[1].Routes, 1)
}

func TestCompileScenesErrors(t *testing.T) {
	ctx := cuecontext.New()

	_, err := CompileScenes(ctx.CompileString(`other: 1`))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "scene", ce.Field)

	_, err = CompileScenes(ctx.CompileString(`scene: {}`))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "scene", ce.Field)

	_, err = CompileScenes(ctx.CompileString(`scene: Bad: routes: []`))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "nodes", ce.Field)
}
