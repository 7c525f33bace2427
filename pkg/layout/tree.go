package layout

import (
	"math"
	"slices"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// ErrNoRoot is returned by the tree engine when every node has an incoming
// edge, so no tree can be rooted.
var ErrNoRoot = errors.New(errors.ErrCodeLayoutInfeasible, "no root: every node has an incoming edge")

// Tree is the mind-map engine.
//
// Roots are nodes without incoming edges, in id order. The first root's
// top-left corner sits at the origin. Each node's children advance one
// level along the main axis and are stacked along the cross axis, centred
// on their parent, so a parent with two equal children gets one at a
// negative and one at a positive cross offset. A child whose payload sets
// side "left" or "top" grows its subtree towards the negative main axis;
// its descendants inherit that side unless they set their own.
//
// Collapsed nodes are placed but their subtrees take no space and are
// reported as hidden, so they keep whatever position they had. Further
// roots are stacked after the previous tree along the cross axis. Nodes
// unreachable from any root (pure cycles) are left to the executor's grid.
type Tree struct{}

type treeState struct {
	byID       map[string]scene.Node
	kids       map[string][]string
	horizontal bool
	inter      float64
	intra      float64
	extents    map[string]float64
	pos        map[string]geo.Point
}

// Place implements Engine.
func (Tree) Place(nodes []scene.Node, edges []scene.Edge, c Choice) (Placement, error) {
	st := &treeState{
		byID:       make(map[string]scene.Node, len(nodes)),
		kids:       map[string][]string{},
		horizontal: c.Direction.Horizontal(),
		extents:    map[string]float64{},
	}
	st.inter, st.intra = c.Gaps()
	for _, n := range nodes {
		st.byID[n.ID] = n
	}

	incoming := map[string]bool{}
	out := map[string][]string{}
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		incoming[e.Target] = true
		out[e.Source] = append(out[e.Source], e.Target)
	}
	for id := range out {
		slices.Sort(out[id])
	}

	var roots []string
	for _, n := range nodes {
		if !incoming[n.ID] {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		return Placement{}, ErrNoRoot
	}

	// Claim children breadth-first so a node reachable from several
	// parents hangs under the first one reached.
	claimed := map[string]bool{}
	queue := slices.Clone(roots)
	for _, r := range roots {
		claimed[r] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range out[id] {
			if claimed[child] {
				continue
			}
			claimed[child] = true
			st.kids[id] = append(st.kids[id], child)
			queue = append(queue, child)
		}
	}

	place := Placement{Positions: map[string]geo.Point{}}
	var hidden []string
	for _, id := range nodes {
		if st.byID[id.ID].Collapsed() {
			hidden = append(hidden, st.descendants(id.ID)...)
		}
	}
	slices.Sort(hidden)
	place.Hidden = slices.Compact(hidden)

	var prevMax float64
	for i, r := range roots {
		st.pos = map[string]geo.Point{}
		rs := st.byID[r].Size()
		st.place(r, 0, st.crossOf(rs)/2, 1)

		boxes := make([]geo.Box, 0, len(st.pos))
		for id, p := range st.pos {
			boxes = append(boxes, geo.NewBox(p, st.byID[id].Size()))
		}
		bb, _ := geo.Bounds(boxes)
		var shift geo.Point
		if i > 0 {
			if st.horizontal {
				shift.Y = prevMax + st.intra - bb.Y
			} else {
				shift.X = prevMax + st.intra - bb.X
			}
		}
		for id, p := range st.pos {
			place.Positions[id] = p.Add(shift)
		}
		bb = bb.Translate(shift)
		if st.horizontal {
			prevMax = bb.MaxY()
		} else {
			prevMax = bb.MaxX()
		}
	}
	return place, nil
}

func (st *treeState) mainOf(s geo.Size) float64 {
	if st.horizontal {
		return s.Width
	}
	return s.Height
}

func (st *treeState) crossOf(s geo.Size) float64 {
	if st.horizontal {
		return s.Height
	}
	return s.Width
}

// childSign resolves the main-axis direction of a child subtree.
func childSign(n scene.Node, parentSign float64) float64 {
	switch n.Side() {
	case "left", "top":
		return -1
	case "right", "bottom":
		return 1
	}
	return parentSign
}

// extent is the cross-axis span a subtree needs.
func (st *treeState) extent(id string, sign float64) float64 {
	if e, ok := st.extents[id]; ok {
		return e
	}
	n := st.byID[id]
	own := st.crossOf(n.Size())
	if n.Collapsed() {
		st.extents[id] = own
		return own
	}
	pos, neg := st.stacks(id, sign)
	e := math.Max(own, math.Max(pos, neg))
	st.extents[id] = e
	return e
}

// stacks returns the cross-axis span of the positive and negative child
// groups of id.
func (st *treeState) stacks(id string, sign float64) (pos, neg float64) {
	var np, nn int
	for _, k := range st.kids[id] {
		ks := childSign(st.byID[k], sign)
		e := st.extent(k, ks)
		if ks > 0 {
			pos += e
			np++
		} else {
			neg += e
			nn++
		}
	}
	if np > 1 {
		pos += float64(np-1) * st.intra
	}
	if nn > 1 {
		neg += float64(nn-1) * st.intra
	}
	return pos, neg
}

// place positions id with its near main-axis edge at edge (far edge when
// sign is negative) and its cross centre at centre, then recurses.
func (st *treeState) place(id string, edge, centre, sign float64) {
	n := st.byID[id]
	s := n.Size()
	mainMin := edge
	if sign < 0 {
		mainMin = edge - st.mainOf(s)
	}
	crossMin := centre - st.crossOf(s)/2
	if st.horizontal {
		st.pos[id] = geo.Point{X: mainMin, Y: crossMin}
	} else {
		st.pos[id] = geo.Point{X: crossMin, Y: mainMin}
	}
	if n.Collapsed() {
		return
	}

	posSpan, negSpan := st.stacks(id, sign)
	curPos := centre - posSpan/2
	curNeg := centre - negSpan/2
	for _, k := range st.kids[id] {
		ks := childSign(st.byID[k], sign)
		e := st.extent(k, ks)
		if ks > 0 {
			st.place(k, mainMin+st.mainOf(s)+st.inter, curPos+e/2, ks)
			curPos += e + st.intra
		} else {
			st.place(k, mainMin-st.inter, curNeg+e/2, ks)
			curNeg += e + st.intra
		}
	}
}

// descendants returns every node below id in the claimed tree.
func (st *treeState) descendants(id string) []string {
	var out []string
	stack := slices.Clone(st.kids[id])
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, k)
		stack = append(stack, st.kids[k]...)
	}
	return out
}
