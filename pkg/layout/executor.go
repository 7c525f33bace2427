package layout

import (
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Executor runs a layout engine selected by [Choice.Algorithm] and applies
// the shared post-processing every engine gets: NaN/Inf sanitising, grid
// fallback for nodes the engine did not place, and port assignment.
//
// An Executor is safe for concurrent use once all engines are registered.
type Executor struct {
	engines map[Algorithm]Engine
	tuning  Tuning
}

// NewExecutor returns an executor with the built-in layered, tree and grid
// engines registered.
func NewExecutor(t Tuning) *Executor {
	t.SetDefaults()
	x := &Executor{engines: map[Algorithm]Engine{}, tuning: t}
	x.Register(AlgorithmLayered, &Layered{Sweeps: t.Sweeps})
	x.Register(AlgorithmTree, Tree{})
	x.Register(AlgorithmGrid, Grid{})
	return x
}

// Register adds or replaces the engine for an algorithm.
func (x *Executor) Register(a Algorithm, e Engine) {
	x.engines[a] = e
}

// Has reports whether an engine is registered for a.
func (x *Executor) Has(a Algorithm) bool {
	_, ok := x.engines[a]
	return ok
}

// Tuning returns the executor's tuning.
func (x *Executor) Tuning() Tuning { return x.tuning }

// Layout positions nodes and routes edges. It never fails: an unknown or
// failing engine falls back to the layered engine, and any node left
// unplaced is put on a grid beside the placed ones.
//
// Input nodes are not modified. Edges with an endpoint outside nodes are
// dropped from the result.
func (x *Executor) Layout(nodes []scene.Node, edges []scene.Edge, c Choice) Result {
	var res Result
	c = x.normalizeChoice(c)

	ns := prepareNodes(nodes)
	es := prepareEdges(ns, edges)
	layoutEdges := slices.DeleteFunc(slices.Clone(es), func(e scene.Edge) bool { return e.Source == e.Target })

	place, used := x.run(ns, layoutEdges, c, &res.Warnings)
	res.Engine = used

	hidden := make(map[string]bool, len(place.Hidden))
	for _, id := range place.Hidden {
		hidden[id] = true
	}

	var unplaced []scene.Node
	placedBoxes := make([]geo.Box, 0, len(ns))
	for i, n := range ns {
		if p, ok := place.Positions[n.ID]; ok {
			ns[i].Position = p.Sanitize()
			placedBoxes = append(placedBoxes, ns[i].Box())
			continue
		}
		if hidden[n.ID] {
			continue
		}
		unplaced = append(unplaced, n)
	}

	if len(unplaced) > 0 {
		origin := geo.Point{}
		if bb, ok := geo.Bounds(placedBoxes); ok {
			if c.Direction.Horizontal() {
				origin = geo.Point{X: bb.X, Y: bb.MaxY() + c.SpacingY}
			} else {
				origin = geo.Point{X: bb.MaxX() + c.SpacingX, Y: bb.Y}
			}
		}
		pos := GridPositions(unplaced, origin, c.SpacingX, c.SpacingY)
		for i, n := range ns {
			if p, ok := pos[n.ID]; ok {
				ns[i].Position = p
				res.Unplaced = append(res.Unplaced, n.ID)
			}
		}
		res.Warnings.Add(errors.ErrCodeLayoutInfeasible, "",
			"%s engine left %d node(s) unplaced; placed on a grid", used, len(unplaced))
	}

	boxes := make(map[string]geo.Box, len(ns))
	for _, n := range ns {
		boxes[n.ID] = n.Box()
	}
	for i := range es {
		if len(es[i].Waypoints) == 0 {
			if wp, ok := place.Waypoints[es[i].ID]; ok {
				es[i].Waypoints = slices.Clone(wp)
			}
		}
	}
	AssignPorts(es, boxes, c.Direction)

	res.Nodes = ns
	res.Edges = es
	res.Hidden = place.Hidden
	return res
}

// run executes the chosen engine, falling back to layered and finally to
// an empty placement (everything to the grid).
func (x *Executor) run(nodes []scene.Node, edges []scene.Edge, c Choice, ws *errors.Warnings) (Placement, Algorithm) {
	if len(nodes) == 0 {
		return Placement{}, c.Algorithm
	}
	eng, ok := x.engines[c.Algorithm]
	if !ok {
		ws.Add(errors.ErrCodeLayoutInfeasible, "", "no %q engine registered; using layered", c.Algorithm)
		c.Algorithm = AlgorithmLayered
		eng = x.engines[AlgorithmLayered]
	}
	place, err := eng.Place(nodes, edges, c)
	if err == nil {
		return place, c.Algorithm
	}
	ws.Add(errors.ErrCodeLayoutInfeasible, "", "%s layout failed: %v", c.Algorithm, err)
	if c.Algorithm == AlgorithmLayered {
		return Placement{}, AlgorithmGrid
	}
	if place, err = x.engines[AlgorithmLayered].Place(nodes, edges, c); err == nil {
		return place, AlgorithmLayered
	}
	ws.Add(errors.ErrCodeLayoutInfeasible, "", "layered layout failed: %v", err)
	return Placement{}, AlgorithmGrid
}

func (x *Executor) normalizeChoice(c Choice) Choice {
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmLayered
	}
	if c.Direction == "" {
		c.Direction = DirectionLR
	}
	if !(c.SpacingX > 0) || math.IsInf(c.SpacingX, 0) {
		c.SpacingX = x.tuning.SpacingX
	}
	if !(c.SpacingY > 0) || math.IsInf(c.SpacingY, 0) {
		c.SpacingY = x.tuning.SpacingY
	}
	return c
}

// prepareNodes sanitises and id-sorts a copy of nodes, dropping duplicates
// (last wins) and nodes without an id.
func prepareNodes(nodes []scene.Node) []scene.Node {
	idx := make(map[string]int, len(nodes))
	out := make([]scene.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		n = n.Clone().Sanitize()
		if i, ok := idx[n.ID]; ok {
			out[i] = n
			continue
		}
		idx[n.ID] = len(out)
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b scene.Node) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// prepareEdges keeps edges whose endpoints are both in nodes, id-sorted.
func prepareEdges(nodes []scene.Node, edges []scene.Edge) []scene.Edge {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	out := make([]scene.Edge, 0, len(edges))
	for _, e := range edges {
		if present[e.Source] && present[e.Target] {
			e = e.Clone()
			for i := range e.Waypoints {
				e.Waypoints[i] = e.Waypoints[i].Sanitize()
			}
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b scene.Edge) int { return strings.Compare(a.ID, b.ID) })
	return out
}
