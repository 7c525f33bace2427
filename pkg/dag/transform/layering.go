package transform

import (
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/matzehuels/diagramflow/pkg/dag"
)

// AssignLayers assigns every node to a layer by longest path from the
// sources: sources sit at layer 0 and every other node at one plus the
// maximum layer of its parents.
//
// The traversal order comes from gonum's [topo.SortStabilized], with ties
// broken by node insertion order, so repeated runs over the same graph give
// identical layers.
//
// # Cycles
//
// AssignLayers requires an acyclic graph. It returns the gonum
// [topo.Unorderable] error unchanged if a cycle remains; run [BreakCycles]
// first.
//
// # Performance
//
// O(V log V + E): the stabilised sort dominates.
func AssignLayers(g *dag.DAG) error {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return nil
	}

	index := make(map[string]int64, len(nodes))
	ids := make([]string, len(nodes))
	dg := simple.NewDirectedGraph()
	for i, n := range nodes {
		index[n.ID] = int64(i)
		ids[i] = n.ID
		dg.AddNode(simple.Node(i))
	}
	for _, e := range g.Edges() {
		dg.SetEdge(dg.NewEdge(simple.Node(index[e.From]), simple.Node(index[e.To])))
	}

	sorted, err := topo.SortStabilized(dg, byInsertion)
	if err != nil {
		return err
	}

	layers := make(map[string]int, len(nodes))
	for _, n := range sorted {
		id := ids[n.ID()]
		for _, child := range g.Children(id) {
			if l := layers[id] + 1; l > layers[child] {
				layers[child] = l
			}
		}
		if _, ok := layers[id]; !ok {
			layers[id] = 0
		}
	}

	g.SetLayers(layers)
	return nil
}

// byInsertion orders gonum nodes by id, which AssignLayers sets to the
// DAG insertion index.
func byInsertion(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
}
