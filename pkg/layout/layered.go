package layout

import (
	"math"
	"slices"

	"github.com/matzehuels/diagramflow/pkg/dag"
	"github.com/matzehuels/diagramflow/pkg/dag/transform"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Layered is the directional (Sugiyama) engine.
//
// Nodes are ranked so that edge sources come before targets, long edges
// are split with dummies and layer orders are swept to reduce crossings
// (see pkg/dag/transform). Layers are then laid along the main axis
// separated by the inter-layer gap, each as deep as its deepest node; the
// nodes of a layer are centred on the cross axis and separated by the
// intra-layer gap. Dummy coordinates become edge waypoints.
//
// The final placement is translated so its top-left corner is the origin.
type Layered struct {
	Sweeps int
}

// Place implements Engine.
func (l *Layered) Place(nodes []scene.Node, edges []scene.Edge, c Choice) (Placement, error) {
	g := dag.New()
	for _, n := range nodes {
		s := n.Size()
		if err := g.AddNode(dag.Node{ID: n.ID, Width: s.Width, Height: s.Height}); err != nil {
			return Placement{}, err
		}
	}
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		if err := g.AddEdge(dag.Edge{From: e.Source, To: e.Target, ID: e.ID}); err != nil {
			return Placement{}, err
		}
	}
	if _, err := transform.Normalize(g, l.Sweeps); err != nil {
		return Placement{}, err
	}

	horizontal := c.Direction.Horizontal()
	inter, intra := c.Gaps()
	mainOf := func(n *dag.Node) float64 {
		if horizontal {
			return n.Width
		}
		return n.Height
	}
	crossOf := func(n *dag.Node) float64 {
		if horizontal {
			return n.Height
		}
		return n.Width
	}
	point := func(main, cross float64) geo.Point {
		if horizontal {
			return geo.Point{X: main, Y: cross}
		}
		return geo.Point{X: cross, Y: main}
	}

	topLeft := make(map[string]geo.Point, g.NodeCount())
	centre := make(map[string]geo.Point, g.NodeCount())
	var at float64
	for _, layer := range g.LayerIDs() {
		members := g.NodesInLayer(layer)
		depth, span := 0.0, 0.0
		for i, n := range members {
			depth = math.Max(depth, mainOf(n))
			span += crossOf(n)
			if i > 0 {
				span += intra
			}
		}
		cur := -span / 2
		for _, n := range members {
			m := at + (depth-mainOf(n))/2
			topLeft[n.ID] = point(m, cur)
			centre[n.ID] = point(m+mainOf(n)/2, cur+crossOf(n)/2)
			cur += crossOf(n) + intra
		}
		at += depth + inter
	}

	// Shift so the placed scene nodes start at the origin.
	minX, minY := math.Inf(1), math.Inf(1)
	for _, n := range g.Nodes() {
		if n.IsDummy() {
			continue
		}
		minX = math.Min(minX, topLeft[n.ID].X)
		minY = math.Min(minY, topLeft[n.ID].Y)
	}
	shift := geo.Point{X: -geo.Finite(minX, 0), Y: -geo.Finite(minY, 0)}

	place := Placement{
		Positions: make(map[string]geo.Point, len(nodes)),
		Waypoints: map[string][]geo.Point{},
	}
	for _, n := range nodes {
		place.Positions[n.ID] = topLeft[n.ID].Add(shift)
	}

	reversed := map[string]bool{}
	for _, e := range g.Edges() {
		if e.Reversed {
			reversed[e.ID] = true
		}
	}
	for _, n := range g.Nodes() {
		if n.IsDummy() && n.Origin != "" {
			place.Waypoints[n.Origin] = append(place.Waypoints[n.Origin], centre[n.ID].Add(shift))
		}
	}
	for id, pts := range place.Waypoints {
		// dummies were created in layer order; reversed edges run backwards
		if reversed[id] {
			slices.Reverse(pts)
		}
	}
	return place, nil
}
