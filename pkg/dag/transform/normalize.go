package transform

import "github.com/matzehuels/diagramflow/pkg/dag"

// Stats summarises what [Normalize] did to a graph.
type Stats struct {
	Reversed  int // edges flipped to break cycles
	Dummies   int // dummy nodes inserted for long edges
	Crossings int // crossings left after ordering
}

// Normalize runs the full layered pipeline in place: cycle breaking, layer
// assignment, long-edge splitting and crossing reduction. On return g
// satisfies [dag.DAG.Validate].
func Normalize(g *dag.DAG, sweeps int) (Stats, error) {
	var st Stats
	st.Reversed = BreakCycles(g)
	if err := AssignLayers(g); err != nil {
		return st, err
	}
	st.Dummies = InsertDummies(g)
	st.Crossings = OrderLayers(g, sweeps)
	return st, nil
}
