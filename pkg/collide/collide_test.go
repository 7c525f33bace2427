package collide

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

func at(id string, x, y float64) scene.Node {
	return scene.Node{ID: id, Kind: scene.KindShape, Position: geo.Point{X: x, Y: y}}
}

func index(nodes []scene.Node) map[string]scene.Node {
	m := make(map[string]scene.Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func siblingOverlaps(nodes []scene.Node) int {
	count := 0
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if nodes[i].Parent == nodes[j].Parent && nodes[i].Box().Intersects(nodes[j].Box()) {
				count++
			}
		}
	}
	return count
}

func TestResolvePair(t *testing.T) {
	res := Resolve([]scene.Node{at("a", 0, 0), at("b", 100, 0)}, DefaultOptions())
	m := index(res.Nodes)
	if !near(m["a"].Position.X, -40) || !near(m["b"].Position.X, 140) {
		t.Errorf("positions = %v, %v, want x -40 and 140", m["a"].Position, m["b"].Position)
	}
	if m["a"].Position.Y != 0 || m["b"].Position.Y != 0 {
		t.Errorf("y moved: %v, %v", m["a"].Position, m["b"].Position)
	}
	if gap := m["b"].Box().X - m["a"].Box().MaxX(); gap < 20 {
		t.Errorf("gap = %v, want at least the margin", gap)
	}
	if !res.Converged {
		t.Error("Converged = false")
	}
}

func TestResolvePinned(t *testing.T) {
	a := at("a", 0, 0)
	a.Pinned = true
	res := Resolve([]scene.Node{a, at("b", 100, 0)}, DefaultOptions())
	m := index(res.Nodes)
	if m["a"].Position != (geo.Point{}) {
		t.Errorf("pinned a moved to %v", m["a"].Position)
	}
	if !near(m["b"].Position.X, 180) {
		t.Errorf("b.X = %v, want 180", m["b"].Position.X)
	}
}

func TestResolveBothPinned(t *testing.T) {
	a, b := at("a", 0, 0), at("b", 10, 0)
	a.Pinned, b.Pinned = true, true
	res := Resolve([]scene.Node{a, b}, DefaultOptions())
	m := index(res.Nodes)
	if m["a"].Position != a.Position || m["b"].Position != b.Position {
		t.Error("pinned nodes moved")
	}
}

func TestResolveZeroOverlapConvergence(t *testing.T) {
	tests := []struct {
		name  string
		nodes func() []scene.Node
	}{
		{"staggered", func() []scene.Node {
			var out []scene.Node
			for i := range 6 {
				out = append(out, at(fmt.Sprintf("n%d", i), float64(i)*50, float64(i)*10))
			}
			return out
		}},
		{"coincident", func() []scene.Node {
			var out []scene.Node
			for i := range 6 {
				out = append(out, at(fmt.Sprintf("n%d", i), 0, 0))
			}
			return out
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.nodes(), DefaultOptions())
			if !res.Converged {
				t.Errorf("Converged = false after %d iterations", res.Iterations)
			}
			if n := siblingOverlaps(res.Nodes); n != 0 {
				t.Errorf("overlapping pairs = %d, want 0", n)
			}
			if res.Warnings.Has(errors.ErrCodeIterationCap) {
				t.Errorf("unexpected warnings %v", res.Warnings)
			}
		})
	}
}

func TestResolveIterationCap(t *testing.T) {
	var nodes []scene.Node
	for i := range 6 {
		nodes = append(nodes, at(fmt.Sprintf("n%d", i), 0, 0))
	}
	opt := DefaultOptions()
	opt.MaxIterations = 1
	res := Resolve(nodes, opt)
	if res.Converged {
		t.Error("Converged = true with a single pass")
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
	if !res.Warnings.Has(errors.ErrCodeIterationCap) {
		t.Errorf("Warnings = %v, want ITERATION_CAP", res.Warnings)
	}
}

func TestResolveDeterministic(t *testing.T) {
	nodes := []scene.Node{at("d", 30, 5), at("a", 0, 0), at("c", 20, 40), at("b", 10, 10)}
	first := Resolve(nodes, DefaultOptions())
	for range 3 {
		if again := Resolve(nodes, DefaultOptions()); !reflect.DeepEqual(first, again) {
			t.Fatal("Resolve is not deterministic")
		}
	}
}

func TestResolveContainers(t *testing.T) {
	ch := DefaultOptions().Chrome
	g := scene.Node{ID: "g", Kind: scene.KindGroup, Position: geo.Point{X: 0, Y: 0}, Width: 240, Height: 160}
	a := at("a", 20, 50)
	a.Parent, a.Extent = "g", scene.ExtentParent
	b := at("b", 60, 50)
	b.Parent, b.Extent = "g", scene.ExtentParent
	c := at("c", 100, 40)

	res := Resolve([]scene.Node{g, a, b, c}, DefaultOptions())
	if n := siblingOverlaps(res.Nodes); n != 0 {
		t.Errorf("overlapping siblings = %d, want 0", n)
	}

	m := index(res.Nodes)
	frame := geo.Box{Width: m["g"].Size().Width, Height: m["g"].Size().Height}
	for _, id := range []string{"a", "b"} {
		if !frame.Contains(m[id].Box(), 1e-6) {
			t.Errorf("%s %v escapes container %v", id, m[id].Box(), frame)
		}
		if m[id].Box().Y < ch.Padding+ch.Header-1e-6 {
			t.Errorf("%s overlaps the container header", id)
		}
	}
}

func TestResolveSeparateContainersNotCompared(t *testing.T) {
	g1 := scene.Node{ID: "g1", Kind: scene.KindGroup, Width: 240, Height: 160}
	g2 := scene.Node{ID: "g2", Kind: scene.KindGroup, Position: geo.Point{X: 1000}, Width: 240, Height: 160}
	a := at("a", 40, 70)
	a.Parent = "g1"
	b := at("b", 40, 70)
	b.Parent = "g2"

	opt := DefaultOptions()
	opt.Chrome = scene.Chrome{Padding: 40, Header: 30}
	res := Resolve([]scene.Node{g1, g2, a, b}, opt)
	m := index(res.Nodes)
	if m["a"].Position != m["b"].Position {
		t.Errorf("children of distinct containers interacted: a=%v b=%v", m["a"].Position, m["b"].Position)
	}
	if m["g1"].Position != (geo.Point{}) || m["g2"].Position != (geo.Point{X: 1000}) {
		t.Errorf("containers moved: %v %v", m["g1"].Position, m["g2"].Position)
	}
}
