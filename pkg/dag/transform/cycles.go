package transform

import "github.com/matzehuels/diagramflow/pkg/dag"

// BreakCycles makes g acyclic by reversing back edges found by a
// depth-first search. It returns the number of edges reversed.
//
// The search starts from sources in insertion order and then from any node
// not yet visited (nodes that only sit on cycles), so the set of reversed
// edges is a deterministic function of the insertion order. Reversed edges
// keep their scene id and are flagged with [dag.Edge.Reversed] so routing
// can flip them back.
func BreakCycles(g *dag.DAG) int {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var backEdges [][2]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		for _, child := range g.Children(node) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				backEdges = append(backEdges, [2]string{node, child})
			}
		}
		color[node] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, e := range backEdges {
		g.ReverseEdge(e[0], e[1])
	}
	return len(backEdges)
}
