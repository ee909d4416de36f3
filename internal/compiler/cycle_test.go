package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/ir"
)

func route(t *testing.T, s string) ir.RouteDecl {
	t.Helper()
	r, err := ParseRoute(s)
	require.NoError(t, err)
	return r
}

func sceneWithRoutes(t *testing.T, routes ...string) ir.SceneSpec {
	t.Helper()
	spec := ir.SceneSpec{Name: "Test"}
	for _, s := range routes {
		spec.Routes = append(spec.Routes, route(t, s))
	}
	return spec
}

// TestAnalyzeCycles_Empty tests that a scene without routes produces no warnings.
func TestAnalyzeCycles_Empty(t *testing.T) {
	warnings := AnalyzeCycles(ir.SceneSpec{})
	assert.Empty(t, warnings, "no routes should produce no warnings")
	assert.NotNil(t, warnings)
}

// TestAnalyzeCycles_DAG tests that a directed acyclic graph produces no warnings.
func TestAnalyzeCycles_DAG(t *testing.T) {
	spec := sceneWithRoutes(t,
		"Touch.touchTime TO Clock.set_startTime",
		"Clock.fraction_changed TO Spin.set_fraction",
		"Clock.fraction_changed TO Fade.set_fraction",
		"Spin.value_changed TO Xform.set_rotation",
	)

	warnings := AnalyzeCycles(spec)
	assert.Empty(t, warnings, "DAG should produce no cycle warnings")
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	spec := sceneWithRoutes(t, "A.x_changed TO A.set_x")

	warnings := AnalyzeCycles(spec)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "A"}, warnings[0].Path)
	assert.Equal(t, []string{"A.x_changed TO A.set_x"}, warnings[0].Routes)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "routed to itself")
}

func TestAnalyzeCycles_TwoNodeCycle(t *testing.T) {
	spec := sceneWithRoutes(t,
		"A.x_changed TO B.set_x",
		"B.x_changed TO A.set_x",
	)

	warnings := AnalyzeCycles(spec)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "A"}, warnings[0].Path)
	assert.Len(t, warnings[0].Routes, 2)
	assert.Equal(t, "Route cycle detected: A → B → A", warnings[0].Message)
}

func TestAnalyzeCycles_ThreeNodeCycle(t *testing.T) {
	spec := sceneWithRoutes(t,
		"C.x_changed TO A.set_x",
		"A.x_changed TO B.set_x",
		"B.x_changed TO C.set_x",
	)

	warnings := AnalyzeCycles(spec)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "C", "A"}, warnings[0].Path)
	assert.Equal(t, []string{
		"C.x_changed TO A.set_x",
		"A.x_changed TO B.set_x",
		"B.x_changed TO C.set_x",
	}, warnings[0].Routes, "routes keep declaration order")
}

func TestAnalyzeCycles_MultipleIndependentCycles(t *testing.T) {
	spec := sceneWithRoutes(t,
		"Y.out TO X.in",
		"X.out TO Y.in",
		"B.out TO A.in",
		"A.out TO B.in",
		"M.out TO M.in",
	)

	warnings := AnalyzeCycles(spec)
	require.Len(t, warnings, 3)
	assert.Equal(t, "A", warnings[0].Path[0])
	assert.Equal(t, "M", warnings[1].Path[0])
	assert.Equal(t, "X", warnings[2].Path[0])
}

func TestAnalyzeCycles_CycleWithUnconnectedRoutes(t *testing.T) {
	spec := sceneWithRoutes(t,
		"Root.children_changed TO Mirror.set_children",
		"A.x_changed TO B.set_x",
		"B.x_changed TO A.set_x",
		"B.x_changed TO Sink.set_x",
	)

	warnings := AnalyzeCycles(spec)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "A"}, warnings[0].Path)
	assert.NotContains(t, warnings[0].Path, "Sink")
}

func TestAnalyzeCycles_ParallelRoutesBetweenSameNodes(t *testing.T) {
	spec := sceneWithRoutes(t,
		"A.x_changed TO B.set_x",
		"A.y_changed TO B.set_y",
		"B.x_changed TO A.set_x",
	)

	warnings := AnalyzeCycles(spec)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "A"}, warnings[0].Path)
	assert.Len(t, warnings[0].Routes, 3)
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	spec := sceneWithRoutes(t,
		"D.o TO E.i", "E.o TO D.i",
		"A.o TO B.i", "B.o TO C.i", "C.o TO A.i",
	)

	first := AnalyzeCycles(spec)
	for range 20 {
		assert.Equal(t, first, AnalyzeCycles(spec))
	}
}

func TestBuildRouteGraph(t *testing.T) {
	graph := buildRouteGraph(sceneWithRoutes(t,
		"A.o TO C.i",
		"A.o TO B.i",
		"A.p TO B.j",
	).Routes)

	assert.Equal(t, []string{"B", "C"}, graph["A"], "edges are sorted and deduplicated")
	assert.Empty(t, graph["B"])
	assert.Contains(t, graph, "C", "targets are graph nodes")
}

func TestHasSelfLoop(t *testing.T) {
	graph := routeGraph{"A": {"A", "B"}, "B": {}}
	assert.True(t, hasSelfLoop("A", graph))
	assert.False(t, hasSelfLoop("B", graph))
	assert.False(t, hasSelfLoop("missing", graph))
}

func TestTarjanSCC_SingleNode(t *testing.T) {
	sccs := tarjanSCC(routeGraph{"A": {}})
	assert.Equal(t, [][]string{{"A"}}, sccs)
}

func TestTarjanSCC_Chain(t *testing.T) {
	sccs := tarjanSCC(routeGraph{"A": {"B"}, "B": {"C"}, "C": {}})
	assert.Len(t, sccs, 3, "a chain has one SCC per node")
}

func TestReconstructCyclePath_Empty(t *testing.T) {
	assert.Empty(t, reconstructCyclePath(nil, routeGraph{}))
}
