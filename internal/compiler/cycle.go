package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/scenecore/internal/ir"
)

// CycleWarning represents a potential cycle in a scene's routes.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - Feedback between two exposedFields that settles
//   - Loops cut at runtime by the loop-breaking rule
//   - Loops bounded by the delivery quota
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["A", "B", "A"]
	Routes  []string `json:"routes"`  // Routes closing the cycle, in VRML form
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on a scene's routes.
//
// It builds the node graph with one edge per route (FromNode → ToNode) and
// detects strongly connected components with Tarjan's algorithm. Every SCC
// with more than one node, or a node routed to itself, is reported.
//
// The analysis is conservative: it does not know which inputs of a node
// lead to which outputs, so a reported cycle may never fire at runtime.
// Warnings are sorted so repeated runs produce identical output.
//
// A scene without route cycles returns an empty warning list.
func AnalyzeCycles(spec ir.SceneSpec) []CycleWarning {
	if len(spec.Routes) == 0 {
		return []CycleWarning{}
	}

	graph := buildRouteGraph(spec.Routes)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, spec.Routes))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// routeGraph maps a DEF name to the DEF names its routes reach, sorted and
// without duplicates.
type routeGraph map[string][]string

func buildRouteGraph(routes []ir.RouteDecl) routeGraph {
	graph := make(routeGraph)
	for _, r := range routes {
		if _, ok := graph[r.ToNode]; !ok {
			graph[r.ToNode] = []string{}
		}
		if !slices.Contains(graph[r.FromNode], r.ToNode) {
			graph[r.FromNode] = append(graph[r.FromNode], r.ToNode)
		}
	}
	for n := range graph {
		slices.Sort(graph[n])
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph routeGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted order and each SCC is returned sorted, so
// the result is deterministic. Single-node SCCs without self-loops are NOT
// cycles.
func tarjanSCC(graph routeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph routeGraph, routes []ir.RouteDecl) CycleWarning {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	var inCycle []string
	for _, r := range routes {
		if members[r.FromNode] && members[r.ToNode] {
			inCycle = append(inCycle, r.String())
		}
	}

	if len(scc) == 1 {
		n := scc[0]
		return CycleWarning{
			Path:    []string{n, n},
			Routes:  inCycle,
			Message: fmt.Sprintf("Node routed to itself: %s → %s", n, n),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Routes:  inCycle,
		Message: fmt.Sprintf("Route cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the first (smallest) node in the SCC, follow edges to
// other SCC members, continue until we return to the start node.
func reconstructCyclePath(scc []string, graph routeGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		// Prefer an unvisited member; close the cycle once none is left
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && !visited[neighbor] {
				next = neighbor
				break
			}
		}
		if next == "" && slices.Contains(graph[current], start) {
			next = start
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
