package transform

import (
	"testing"

	"github.com/matzehuels/diagramflow/pkg/dag"
)

func build(ids []string, edges [][2]string) *dag.DAG {
	g := dag.New()
	for _, id := range ids {
		_ = g.AddNode(dag.Node{ID: id})
	}
	for _, e := range edges {
		_ = g.AddEdge(dag.Edge{From: e[0], To: e[1], ID: e[0] + e[1]})
	}
	return g
}

func TestBreakCycles_NoCycles(t *testing.T) {
	g := build([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})

	if reversed := BreakCycles(g); reversed != 0 {
		t.Errorf("BreakCycles() reversed %d edges, want 0", reversed)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", g.EdgeCount())
	}
}

func TestBreakCycles_SimpleCycle(t *testing.T) {
	g := build([]string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})

	if reversed := BreakCycles(g); reversed != 1 {
		t.Errorf("BreakCycles() reversed %d edges, want 1", reversed)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2 (edges are reversed, not dropped)", g.EdgeCount())
	}
	for _, e := range g.Edges() {
		if e.From != "a" || e.To != "b" {
			t.Errorf("edge %+v should now run a→b", e)
		}
	}
}

func TestBreakCycles_TriangleCycle(t *testing.T) {
	g := build([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}})

	if reversed := BreakCycles(g); reversed != 1 {
		t.Errorf("BreakCycles() reversed %d edges, want 1", reversed)
	}
	var flagged int
	for _, e := range g.Edges() {
		if e.Reversed {
			flagged++
			if e.ID != "ca" {
				t.Errorf("reversed edge = %q, want ca", e.ID)
			}
		}
	}
	if flagged != 1 {
		t.Errorf("flagged = %d, want 1", flagged)
	}
}

func TestBreakCycles_MultipleCycles(t *testing.T) {
	g := build([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "a"}, {"c", "d"}, {"d", "c"}})

	if reversed := BreakCycles(g); reversed != 2 {
		t.Errorf("BreakCycles() reversed %d edges, want 2", reversed)
	}
}

func TestBreakCycles_DiamondNoCycle(t *testing.T) {
	g := build([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}})

	if reversed := BreakCycles(g); reversed != 0 {
		t.Errorf("BreakCycles() reversed %d edges, want 0", reversed)
	}
}

func TestBreakCycles_ResultIsAcyclic(t *testing.T) {
	g := build([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"d", "b"}})

	BreakCycles(g)

	if again := BreakCycles(g); again != 0 {
		t.Errorf("graph still has cycles after BreakCycles()")
	}
	if err := AssignLayers(g); err != nil {
		t.Errorf("AssignLayers after BreakCycles: %v", err)
	}
}

func TestBreakCycles_EmptyGraph(t *testing.T) {
	if reversed := BreakCycles(dag.New()); reversed != 0 {
		t.Errorf("BreakCycles() reversed %d edges, want 0", reversed)
	}
}
