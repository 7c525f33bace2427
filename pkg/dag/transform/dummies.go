package transform

import (
	"fmt"

	"github.com/matzehuels/diagramflow/pkg/dag"
)

// InsertDummies breaks edges that span more than one layer into chains of
// single-layer edges connected by zero-sized [dag.NodeKindDummy] nodes.
//
//	Before: api (layer 0) → db (layer 3)
//	After:  api → ~e1~1 → ~e1~2 → db
//
// Each dummy records the scene edge id in Origin, and every segment keeps
// the original edge id and reversal flag, so dummy coordinates can be read
// back as routing waypoints.
//
// InsertDummies must run after [AssignLayers]. It returns the number of
// dummies created.
func InsertDummies(g *dag.DAG) int {
	gen := newIDGen(g.Nodes())
	created := 0
	var toRemove []dag.Edge
	for _, e := range g.Edges() {
		src, srcOK := g.Node(e.From)
		dst, dstOK := g.Node(e.To)
		if !srcOK || !dstOK || dst.Layer <= src.Layer+1 {
			continue
		}

		toRemove = append(toRemove, e)
		prevID := src.ID
		for layer := src.Layer + 1; layer < dst.Layer; layer++ {
			id := gen.next(e, layer)
			if err := g.AddNode(dag.Node{ID: id, Layer: layer, Kind: dag.NodeKindDummy, Origin: e.ID}); err != nil {
				panic(err)
			}
			if err := g.AddEdge(dag.Edge{From: prevID, To: id, ID: e.ID, Reversed: e.Reversed}); err != nil {
				panic(err)
			}
			prevID = id
			created++
		}
		if err := g.AddEdge(dag.Edge{From: prevID, To: dst.ID, ID: e.ID, Reversed: e.Reversed}); err != nil {
			panic(err)
		}
	}

	for _, e := range toRemove {
		removeOne(g, e)
	}
	return created
}

// removeOne drops the original long edge while keeping any parallel edges
// between the same endpoints that were not split.
func removeOne(g *dag.DAG, e dag.Edge) {
	var keep []dag.Edge
	for _, other := range g.Edges() {
		if other.From == e.From && other.To == e.To && other != e {
			keep = append(keep, other)
		}
	}
	g.RemoveEdge(e.From, e.To)
	for _, k := range keep {
		_ = g.AddEdge(k)
	}
}

type idGen struct {
	used map[string]struct{}
}

func newIDGen(nodes []*dag.Node) *idGen {
	m := make(map[string]struct{}, len(nodes)*2)
	for _, n := range nodes {
		m[n.ID] = struct{}{}
	}
	return &idGen{used: m}
}

func (gen *idGen) next(e dag.Edge, layer int) string {
	base := e.ID
	if base == "" {
		base = e.From + ">" + e.To
	}
	prefix := fmt.Sprintf("~%s~%d", base, layer)
	id := prefix
	for i := 1; ; i++ {
		if _, exists := gen.used[id]; !exists {
			gen.used[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s__%d", prefix, i)
	}
}
