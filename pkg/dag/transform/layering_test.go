package transform

import (
	"reflect"
	"testing"

	"github.com/matzehuels/diagramflow/pkg/dag"
)

func layerOf(g *dag.DAG, id string) int {
	n, _ := g.Node(id)
	return n.Layer
}

func TestAssignLayers_LongestPath(t *testing.T) {
	// a → b → c, a → c: c must land below b, not beside it
	g := build([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}})

	if err := AssignLayers(g); err != nil {
		t.Fatalf("AssignLayers: %v", err)
	}
	want := map[string]int{"a": 0, "b": 1, "c": 2, "d": 0}
	for id, l := range want {
		if got := layerOf(g, id); got != l {
			t.Errorf("layer(%s) = %d, want %d", id, got, l)
		}
	}
}

func TestAssignLayers_Cycle(t *testing.T) {
	g := build([]string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})
	if err := AssignLayers(g); err == nil {
		t.Error("AssignLayers on a cycle should fail")
	}
}

func TestInsertDummies(t *testing.T) {
	g := build([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}})
	_ = AssignLayers(g)

	if n := InsertDummies(g); n != 1 {
		t.Fatalf("InsertDummies() = %d, want 1", n)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() after InsertDummies = %v", err)
	}
	var dummy *dag.Node
	for _, n := range g.Nodes() {
		if n.IsDummy() {
			dummy = n
		}
	}
	if dummy == nil || dummy.Origin != "ac" || dummy.Layer != 1 {
		t.Fatalf("dummy = %+v", dummy)
	}
	for _, e := range g.Edges() {
		if e.From == "a" && e.To == "c" {
			t.Error("long edge a→c should be gone")
		}
	}
}

func TestOrderLayers_RemovesAvoidableCrossing(t *testing.T) {
	g := build([]string{"a", "b", "x", "y"}, [][2]string{{"a", "y"}, {"b", "x"}})
	_ = AssignLayers(g)

	if got := OrderLayers(g, 0); got != 0 {
		t.Errorf("OrderLayers() = %d crossings, want 0", got)
	}
	if c := dag.CountCrossings(g, g.Orders()); c != 0 {
		t.Errorf("order written back has %d crossings", c)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	mk := func() *dag.DAG {
		return build(
			[]string{"a", "b", "c", "d", "e", "f"},
			[][2]string{{"a", "d"}, {"a", "e"}, {"b", "d"}, {"c", "f"}, {"f", "a"}, {"e", "c"}, {"b", "f"}},
		)
	}
	g1, g2 := mk(), mk()
	s1, err1 := Normalize(g1, 4)
	s2, err2 := Normalize(g2, 4)
	if err1 != nil || err2 != nil {
		t.Fatalf("Normalize errors: %v %v", err1, err2)
	}
	if s1 != s2 {
		t.Errorf("stats differ: %+v vs %+v", s1, s2)
	}
	if !reflect.DeepEqual(g1.Orders(), g2.Orders()) {
		t.Error("orders differ between identical runs")
	}
	if err := g1.Validate(); err != nil {
		t.Errorf("Validate() after Normalize = %v", err)
	}
}
